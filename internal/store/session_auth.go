package store

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/peop360/beyonders/internal/model"
)

const (
	// authSessionTTL bounds how long a login stays valid. Assessments run
	// well under a day; anything longer is a stale cookie.
	authSessionTTL = 24 * time.Hour

	authTokenBytes = 32
)

// CreateAuthSession creates a new auth session token for a user. Expired
// sessions are purged on the way in so the table tracks live logins only.
func (s *Store) CreateAuthSession(userID int64) (string, error) {
	token, err := newAuthToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	if _, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, now); err != nil {
		return "", err
	}
	_, err = s.db.Exec(
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(authSessionTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthSession returns the live auth session for the given token, or nil
// when the token is unknown or expired.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, created_at, expires_at FROM auth_sessions
		 WHERE id = ? AND expires_at > ?`, token, time.Now(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var sess model.AuthSession
	if err := rows.Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteAuthSession removes a session token.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

func newAuthToken() (string, error) {
	b := make([]byte, authTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
