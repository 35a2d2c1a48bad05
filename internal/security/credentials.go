// Package security provides centralized credential management, log
// redaction, and inbound payload validation.
package security

import (
	"slices"
	"sync"
)

// CredentialStore is a thread-safe store for sensitive credentials.
// It is the single source of truth for secrets at runtime: modules register
// the credentials they load (bot token, API key) so the redactor can keep
// them out of log output.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]string
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		creds: make(map[string]string),
	}
}

// Set stores a credential. If a credential with the same name already exists,
// it is overwritten.
func (s *CredentialStore) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[name] = value
}

// Get returns the credential value and true, or "" and false if not found.
func (s *CredentialStore) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.creds[name]
	return v, ok
}

// Has returns true if a credential with the given name exists.
func (s *CredentialStore) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.creds[name]
	return ok
}

// Names returns a sorted list of all credential names.
func (s *CredentialStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.creds))
	for name := range s.creds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Values returns all non-empty credential values. Order is not guaranteed.
// This is intended for registering values with a Redactor.
func (s *CredentialStore) Values() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]string, 0, len(s.creds))
	for _, v := range s.creds {
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Len returns the number of stored credentials.
func (s *CredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creds)
}
