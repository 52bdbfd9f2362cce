package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xaenox/nutrobo/internal/models"
)

// sqlStore implements Storage on database/sql. Queries are written with "?"
// placeholders and rebound for the driver.
type sqlStore struct {
	db     *sql.DB
	rebind func(string) string
}

func rebindQuestion(q string) string { return q }

func rebindDollar(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{ID: id, Threads: []string{}}
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT name, ic_ratio FROM users WHERE id = ?`), id,
	).Scan(&user.Profile.Name, &user.Profile.ICRatio)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT thread_id FROM user_threads WHERE user_id = ? ORDER BY seq DESC`), id)
	if err != nil {
		return nil, fmt.Errorf("error querying threads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var threadID string
		if err := rows.Scan(&threadID); err != nil {
			return nil, fmt.Errorf("error scanning thread: %w", err)
		}
		user.Threads = append(user.Threads, threadID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}
	return user, nil
}

func (s *sqlStore) PutUser(ctx context.Context, user *models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO users (id, name, ic_ratio)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, ic_ratio = excluded.ic_ratio, last_used_at = CURRENT_TIMESTAMP`),
		user.ID, user.Profile.Name, user.Profile.ICRatio)
	if err != nil {
		return fmt.Errorf("error upserting user: %w", err)
	}

	for i := len(user.Threads) - 1; i >= 0; i-- {
		if err := s.claimThread(ctx, tx, user.ID, user.Threads[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqlStore) AddThread(ctx context.Context, userID, threadID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO users (id) VALUES (?)
		ON CONFLICT (id) DO UPDATE SET last_used_at = CURRENT_TIMESTAMP`), userID)
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}
	if err := s.claimThread(ctx, tx, userID, threadID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqlStore) claimThread(ctx context.Context, tx *sql.Tx, userID, threadID string) error {
	_, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO user_threads (thread_id, user_id) VALUES (?, ?)
		ON CONFLICT (thread_id) DO NOTHING`), threadID, userID)
	if err != nil {
		return fmt.Errorf("error inserting thread: %w", err)
	}

	var owner string
	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT user_id FROM user_threads WHERE thread_id = ?`), threadID,
	).Scan(&owner)
	if err != nil {
		return fmt.Errorf("error reading thread owner: %w", err)
	}
	if owner != userID {
		return ErrThreadOwned
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
