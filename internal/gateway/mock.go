package gateway

import (
	"context"
	"net/http"
	"strings"
	"sync"
)

const mockIDPrefix = "auth0|mock|"

// Mock implements both the IdentityProvider and Directory interfaces over
// one in-memory store, so a resolve/delete/verify rehearsal behaves end to
// end. Every email exists in both services until it is deleted; provider
// IDs are derived deterministically from the email.
type Mock struct {
	mu         sync.Mutex
	idpGone    map[string]bool // keyed by email
	dirGone    map[string]bool // keyed by email
	unresolved map[string]bool // emails the provider pretends not to know
}

func NewMock() *Mock {
	return &Mock{
		idpGone:    make(map[string]bool),
		dirGone:    make(map[string]bool),
		unresolved: make(map[string]bool),
	}
}

// ForgetEmail makes the provider answer "no match" for an email without
// touching the directory. Used by tests to model users that never existed
// in the identity provider.
func (m *Mock) ForgetEmail(email string) {
	m.mu.Lock()
	m.unresolved[email] = true
	m.mu.Unlock()
}

// MockID returns the deterministic provider ID the mock assigns to an email.
func MockID(email string) string { return mockIDPrefix + email }

func (m *Mock) LookupByEmail(_ context.Context, email string) (string, Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unresolved[email] || m.idpGone[email] {
		return "", Result{Status: http.StatusOK}, nil
	}
	return MockID(email), Result{Status: http.StatusOK}, nil
}

func (m *Mock) DeleteUser(_ context.Context, id string) (Result, error) {
	email := strings.TrimPrefix(id, mockIDPrefix)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unresolved[email] || m.idpGone[email] {
		return Result{Status: http.StatusNotFound}, nil
	}
	m.idpGone[email] = true
	return Result{Status: http.StatusNoContent}, nil
}

func (m *Mock) GetUser(_ context.Context, id string) (Result, error) {
	email := strings.TrimPrefix(id, mockIDPrefix)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unresolved[email] || m.idpGone[email] {
		return Result{Status: http.StatusNotFound}, nil
	}
	return Result{Status: http.StatusOK}, nil
}

func (m *Mock) DeleteByEmail(_ context.Context, email string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dirGone[email] {
		return Result{Status: http.StatusNotFound}, nil
	}
	m.dirGone[email] = true
	return Result{Status: http.StatusOK}, nil
}

func (m *Mock) GetByEmail(_ context.Context, email string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dirGone[email] {
		return Result{Status: http.StatusNotFound}, nil
	}
	return Result{Status: http.StatusOK}, nil
}
