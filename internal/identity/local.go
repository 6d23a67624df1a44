package identity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// LocalProvider validates HS256 session tokens locally and keeps user
// metadata in a SQLite database. It serves deployments without a hosted
// identity provider (AUTH_PROVIDER=jwt).
type LocalProvider struct {
	signingSecret []byte
	db            *sql.DB
}

// NewLocalProvider opens (and if needed initializes) the metadata database.
func NewLocalProvider(signingSecret, dbPath string) (*LocalProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS user_metadata (
		user_id    TEXT NOT NULL,
		meta_key   TEXT NOT NULL,
		meta_value TEXT NOT NULL,
		PRIMARY KEY (user_id, meta_key)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init metadata schema: %w", err)
	}

	return &LocalProvider{signingSecret: []byte(signingSecret), db: db}, nil
}

func (p *LocalProvider) Name() string { return "jwt" }

// Close releases the metadata database.
func (p *LocalProvider) Close() error { return p.db.Close() }

// ValidateToken parses and verifies an HS256 JWT. The subject claim becomes
// the user identifier; "sid" (falling back to "jti") becomes the session id,
// with a generated id when the token carries neither.
func (p *LocalProvider) ValidateToken(ctx context.Context, token string) Session {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return p.signingSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return Session{Valid: false, Error: "invalid token"}
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Session{Valid: false, Error: "invalid token claims"}
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Session{Valid: false, Error: "token missing subject"}
	}

	sessionID, _ := claims["sid"].(string)
	if sessionID == "" {
		sessionID, _ = claims["jti"].(string)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return Session{Valid: true, UserID: sub, SessionID: sessionID}
}

// GetUserMetadata returns all metadata rows for a user. No rows is an empty
// map, not an error.
func (p *LocalProvider) GetUserMetadata(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT meta_key, meta_value FROM user_metadata WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("read metadata for %s: %w", userID, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan metadata for %s: %w", userID, err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

// UpdateUserMetadata upserts the given entries inside one transaction; an
// empty value deletes the key. Concurrent writers for the same user are
// serialized by SQLite, last write wins.
func (p *LocalProvider) UpdateUserMetadata(ctx context.Context, userID string, meta map[string]string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata update for %s: %w", userID, err)
	}
	defer tx.Rollback()

	for k, v := range meta {
		if v == "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM user_metadata WHERE user_id = ? AND meta_key = ?`, userID, k); err != nil {
				return fmt.Errorf("delete metadata %s/%s: %w", userID, k, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_metadata (user_id, meta_key, meta_value) VALUES (?, ?, ?)
			 ON CONFLICT (user_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value`,
			userID, k, v); err != nil {
			return fmt.Errorf("upsert metadata %s/%s: %w", userID, k, err)
		}
	}
	return tx.Commit()
}
