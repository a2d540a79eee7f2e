package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"pocket-notes/internal/auth"
	"pocket-notes/internal/cache"
	"pocket-notes/internal/db"
)

type Config struct {
	DataDir    string
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	CacheSize  int
}

// Server bundles the store with the HTTP handler built on top of it.
type Server struct {
	Handler http.Handler
	Auth    *auth.Auth

	db *db.DB
}

// Open creates the data directory and database if needed and wires the
// router.
func Open(cfg Config, log zerolog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	database, err := db.New(filepath.Join(cfg.DataDir, "notes.db"))
	if err != nil {
		return nil, err
	}

	a := auth.New(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	h := NewHandlers(database, cache.New(cfg.CacheSize), a, log)
	return &Server{
		Handler: NewRouter(h, a, log),
		Auth:    a,
		db:      database,
	}, nil
}

func (s *Server) Close() error {
	return s.db.Close()
}
