// Package auth verifies that bridge requests were signed with the current
// session secret.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/d2verb/podbridge/internal/protocol"
)

// SecretSize is the number of random bytes in a session secret.
const SecretSize = 32

var (
	// ErrMissingToken is returned when a request carries no auth token.
	ErrMissingToken = errors.New("missing auth token")
	// ErrBadToken is returned when the token does not match.
	ErrBadToken = errors.New("bad auth token")
)

// Authenticator holds the session key for one listener lifetime.
// The key is set once in the constructor and only read afterwards.
type Authenticator struct {
	key []byte
}

// New creates an Authenticator with a freshly generated session secret.
func New() (*Authenticator, error) {
	raw := make([]byte, SecretSize)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return &Authenticator{key: []byte(hex.EncodeToString(raw))}, nil
}

// NewWithKey creates an Authenticator from an exported session key.
// Clients use this to sign; tests use it to pin the key.
func NewWithKey(key string) (*Authenticator, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("session key is empty")
	}
	return &Authenticator{key: []byte(key)}, nil
}

// SessionKey returns the exported form of the session secret: 64 lowercase
// hex characters. The caller must not log or persist it.
func (a *Authenticator) SessionKey() string {
	return string(a.key)
}

// Token computes the expected auth token for the identity fields.
func (a *Authenticator) Token(id, action string, ts protocol.Timestamp) string {
	mac := hmac.New(sha256.New, a.key)
	_, _ = mac.Write([]byte(id + action + string(ts)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign sets req.AuthToken.
func (a *Authenticator) Sign(req *protocol.Request) {
	req.AuthToken = a.Token(req.ID, req.Action, req.Timestamp)
}

// Verify checks req's token. A nil error means the request is authentic.
func (a *Authenticator) Verify(req *protocol.Request) error {
	if req.AuthToken == "" {
		return ErrMissingToken
	}
	expected := a.Token(req.ID, req.Action, req.Timestamp)
	if !hmac.Equal([]byte(expected), []byte(req.AuthToken)) {
		return ErrBadToken
	}
	return nil
}
