// Package tokens holds the client's access and refresh tokens.
package tokens

import (
	"sync"

	"github.com/rs/zerolog"

	"pocket-notes/internal/models"
	"pocket-notes/internal/storage"
)

const (
	AccessKey  = "access_token"
	RefreshKey = "refresh_token"
)

// Store keeps the access token in memory and mirrors both tokens to durable
// storage. Storage is best-effort: a nil backend is allowed and write errors
// are only logged.
type Store struct {
	mu      sync.RWMutex
	access  string
	storage storage.Storage
	log     zerolog.Logger
}

func New(s storage.Storage, log zerolog.Logger) *Store {
	st := &Store{storage: s, log: log}
	st.access = st.read(AccessKey)
	return st
}

func (s *Store) Set(t models.AuthTokens) {
	s.mu.Lock()
	s.access = t.Access
	s.mu.Unlock()
	s.write(AccessKey, t.Access)
	s.write(RefreshKey, t.Refresh)
}

// SetAccess replaces the access token and leaves the refresh token as is.
func (s *Store) SetAccess(access string) {
	s.mu.Lock()
	s.access = access
	s.mu.Unlock()
	s.write(AccessKey, access)
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.access = ""
	s.mu.Unlock()
	s.remove(AccessKey)
	s.remove(RefreshKey)
}

// Current returns the in-memory access token, or "" when there is none.
func (s *Store) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// Refresh reads the refresh token from durable storage.
func (s *Store) Refresh() string {
	return s.read(RefreshKey)
}

func (s *Store) read(key string) string {
	if s.storage == nil {
		return ""
	}
	v, err := s.storage.Get(key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("token storage read failed")
		return ""
	}
	return v
}

func (s *Store) write(key, value string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Set(key, value); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("token storage write failed")
	}
}

func (s *Store) remove(key string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Delete(key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("token storage delete failed")
	}
}
