package docstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EnsureIdentity resolves the caller's identity, minting and persisting an
// anonymous one on first use. Subsequent calls return the cached token
// without touching the database.
//
// Every cold entry point (subscription setup, order send, status patch,
// cleanup pass) must await this before issuing store operations.
func (s *Store) EnsureIdentity(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.identity != "" {
		token := s.identity
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	token := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (token, created_at)
		VALUES (?, ?)
	`, token, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", transportErr(CodeUnavailable, "ensure identity", err)
	}

	s.mu.Lock()
	// A concurrent call may have won; keep the first token.
	if s.identity == "" {
		s.identity = token
	}
	token = s.identity
	s.mu.Unlock()
	return token, nil
}

// requireIdentity guards operations that must not run before
// EnsureIdentity has resolved.
func (s *Store) requireIdentity(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == "" {
		return transportErr(CodeNotAuthenticated, op, nil)
	}
	return nil
}
