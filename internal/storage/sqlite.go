package storage

import (
	"database/sql"
	"embed"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteStorage struct {
	sqlStore
}

func NewSQLiteStorage(path string, logger *zap.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db, "migrations/sqlite.sql"); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Opened SQLite database", zap.String("path", path))
	return &SQLiteStorage{sqlStore{db: db, rebind: rebindQuestion}}, nil
}

func applyMigrations(db *sql.DB, name string) error {
	migrationSQL, err := migrations.ReadFile(name)
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}
