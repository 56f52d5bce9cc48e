package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Supervisor verifies the supervisor credential against a bcrypt hash.
// The zero value rejects every credential.
type Supervisor struct {
	hash []byte
}

// NewSupervisor returns a Supervisor for hash. An empty hash yields a
// Supervisor that rejects everything, so locked records stay locked.
func NewSupervisor(hash string) (*Supervisor, error) {
	if hash == "" {
		return &Supervisor{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("auth: supervisor hash: %w", err)
	}
	return &Supervisor{hash: []byte(hash)}, nil
}

// Configured reports whether a hash is set.
func (s *Supervisor) Configured() bool { return len(s.hash) > 0 }

// Verify reports whether credential matches the configured hash.
func (s *Supervisor) Verify(credential string) bool {
	if len(s.hash) == 0 || credential == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.hash, []byte(credential)) == nil
}
