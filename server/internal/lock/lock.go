// Package lock implements the edit-lock policy: operational records older than
// a short window may only be changed or deleted after the operator presents the
// supervisor credential again.
//
// The policy is a stateless predicate over (createdAt, now). It performs no
// authentication itself; Gate pairs it with a Verifier so HTTP handlers can
// check a supplied credential in one call. Nothing is locked in the
// concurrency sense: two operators can still race on the same record.
package lock

import (
	"errors"
	"time"
)

// DefaultWindow is how long after creation a record stays freely editable.
const DefaultWindow = 5 * time.Minute

var (
	// ErrReauthRequired means the record is past the window and no credential was supplied.
	ErrReauthRequired = errors.New("lock: re-authentication required")

	// ErrInvalidCredential means a credential was supplied but did not verify.
	ErrInvalidCredential = errors.New("lock: invalid supervisor credential")
)

// Stamped is any record carrying a creation instant.
type Stamped interface {
	Stamp() *time.Time
}

// Policy decides whether mutating a record needs re-authentication.
type Policy struct {
	// Window is the grace period after creation. Zero means DefaultWindow.
	Window time.Duration
}

// RequiresReauth reports whether a record created at createdAt is locked at
// now. A missing createdAt is treated as locked.
func (p Policy) RequiresReauth(createdAt *time.Time, now time.Time) bool {
	if createdAt == nil {
		return true
	}
	return now.Sub(*createdAt) > p.window()
}

func (p Policy) window() time.Duration {
	if p.Window <= 0 {
		return DefaultWindow
	}
	return p.Window
}

// RequiresReauth applies the default policy.
func RequiresReauth(createdAt *time.Time, now time.Time) bool {
	return Policy{}.RequiresReauth(createdAt, now)
}

// Verifier checks an out-of-band credential.
type Verifier interface {
	Verify(credential string) bool
}

// Gate combines the policy with credential verification.
type Gate struct {
	Policy   Policy
	Verifier Verifier
}

// Authorize returns nil when rec may be mutated at now with the given
// credential (empty when the caller supplied none). It must be called on every
// attempt; a successful call grants nothing beyond the current mutation.
func (g Gate) Authorize(rec Stamped, now time.Time, credential string) error {
	if !g.Policy.RequiresReauth(rec.Stamp(), now) {
		return nil
	}
	if credential == "" {
		return ErrReauthRequired
	}
	if g.Verifier == nil || !g.Verifier.Verify(credential) {
		return ErrInvalidCredential
	}
	return nil
}
