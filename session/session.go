// Package session stores the signed-in identity of the console. The token is
// kept in a kv.Storage so the same code serves in-memory and persisted
// sessions.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/rescache/kv"
)

// ErrNoIdentity is returned when nobody is signed in.
var ErrNoIdentity = errors.New("session: no identity")

const (
	tokenKey = "session.token"
	scopeKey = "session.scope_id"
)

// Identity yields the current bearer token.
type Identity interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is an Identity with a fixed token.
type StaticToken string

// Token implements Identity.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrNoIdentity
	}
	return string(t), nil
}

// Store is a kv-backed Identity.
type Store struct {
	storage kv.Storage
}

var _ Identity = (*Store)(nil)

// New creates a Store over storage.
func New(storage kv.Storage) *Store {
	return &Store{storage: storage}
}

// Token implements Identity.
func (s *Store) Token(ctx context.Context) (string, error) {
	token, ok, err := s.storage.Get(ctx, tokenKey)
	if err != nil {
		return "", fmt.Errorf("session: read token: %w", err)
	}
	if !ok || token == "" {
		return "", ErrNoIdentity
	}
	return token, nil
}

// SetToken signs in with token and the user's home scope.
func (s *Store) SetToken(ctx context.Context, token, scopeID string) error {
	if token == "" {
		return fmt.Errorf("session: empty token")
	}
	if err := s.storage.Set(ctx, tokenKey, token); err != nil {
		return err
	}
	if scopeID == "" {
		return s.storage.Delete(ctx, scopeKey)
	}
	return s.storage.Set(ctx, scopeKey, scopeID)
}

// ScopeID returns the scope recorded at sign-in, if any.
func (s *Store) ScopeID(ctx context.Context) (string, error) {
	v, _, err := s.storage.Get(ctx, scopeKey)
	return v, err
}

// Clear signs out.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, tokenKey); err != nil {
		return err
	}
	return s.storage.Delete(ctx, scopeKey)
}
