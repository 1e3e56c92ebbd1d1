// Package session holds the active credential pair. The HTTP client reads
// it on every request, auth calls write it and a 401 clears it.
package session

import (
	"sync"

	"nourish/models"
)

// Store is the token store handed to the HTTP client and the auth service.
type Store interface {
	// Get returns the active credential, or nil when logged out.
	Get() (*models.Credential, error)
	// Set replaces the credential pair. An empty refresh token removes any
	// stored one so a stale refresh token never outlives its access token.
	Set(accessToken, refreshToken string) error
	// SetAccess swaps the access token and keeps the refresh token.
	SetAccess(accessToken string) error
	// Clear removes both tokens.
	Clear() error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.RWMutex
	cred *models.Credential
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Get() (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return nil, nil
	}
	c := *s.cred
	return &c, nil
}

func (s *MemoryStore) Set(accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &models.Credential{AccessToken: accessToken, RefreshToken: refreshToken}
	return nil
}

func (s *MemoryStore) SetAccess(accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		s.cred = &models.Credential{}
	}
	s.cred.AccessToken = accessToken
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}
