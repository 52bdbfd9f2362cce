// Package auth turns an Authorization header into a user identity.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity is the caller established by a credential. UserID is empty for
// anonymous clients.
type Identity struct {
	UserID string
	Client string
}

func (i Identity) Anonymous() bool {
	return i.UserID == ""
}

// Request carries the parts of an inbound request used for verification.
type Request struct {
	Authorization string
	// UID is the user a trusted client acts on behalf of.
	UID string
}

type Verifier interface {
	Verify(ctx context.Context, req Request) (Identity, error)
}

type Config struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	// Clients maps a client id to its accepted secrets.
	Clients map[string][]string
}

// TokenVerifier accepts HS256 bearer tokens and basic client credentials.
type TokenVerifier struct {
	cfg Config
}

func NewTokenVerifier(cfg Config) *TokenVerifier {
	return &TokenVerifier{cfg: cfg}
}

func (v *TokenVerifier) Verify(_ context.Context, req Request) (Identity, error) {
	if req.Authorization == "" {
		return Identity{}, fmt.Errorf("%w: missing Authorization header", ErrUnauthorized)
	}
	scheme, credential, _ := strings.Cut(req.Authorization, " ")
	switch scheme {
	case "Bearer":
		return v.verifyBearer(strings.TrimSpace(credential))
	case "Basic":
		return v.verifyBasic(strings.TrimSpace(credential), req.UID)
	default:
		return Identity{}, fmt.Errorf("%w: unsupported scheme %q", ErrUnauthorized, scheme)
	}
}

func (v *TokenVerifier) verifyBearer(token string) (Identity, error) {
	if v.cfg.JWTSecret == "" {
		return Identity{}, fmt.Errorf("%w: bearer tokens are not accepted", ErrUnauthorized)
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(v.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if v.cfg.JWTIssuer != "" && !claims.VerifyIssuer(v.cfg.JWTIssuer, true) {
		return Identity{}, fmt.Errorf("%w: unexpected issuer", ErrUnauthorized)
	}
	if v.cfg.JWTAudience != "" && !claims.VerifyAudience(v.cfg.JWTAudience, true) {
		return Identity{}, fmt.Errorf("%w: unexpected audience", ErrUnauthorized)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return Identity{UserID: claims.Subject}, nil
}

func (v *TokenVerifier) verifyBasic(credential, uid string) (Identity, error) {
	decoded, err := base64.StdEncoding.DecodeString(credential)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: malformed basic credential", ErrUnauthorized)
	}
	client, secret, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return Identity{}, fmt.Errorf("%w: malformed basic credential", ErrUnauthorized)
	}
	for _, accepted := range v.cfg.Clients[client] {
		if subtle.ConstantTimeCompare([]byte(accepted), []byte(secret)) == 1 {
			return Identity{UserID: uid, Client: client}, nil
		}
	}
	return Identity{}, fmt.Errorf("%w: invalid client credentials", ErrUnauthorized)
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity, or an anonymous one.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}
