// Package session tracks who is signed in.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"pocket-notes/internal/models"
)

type Status int

const (
	StatusUnauthenticated Status = iota
	StatusLoading
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// API is the part of the HTTP client the controller needs.
type API interface {
	Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthTokens, error)
	Register(ctx context.Context, creds models.RegisterCredentials) (*models.RegisterResult, error)
	Me(ctx context.Context) (*models.User, error)
	Logout()
	IsAuthenticated() bool
}

type Controller struct {
	mu     sync.RWMutex
	api    API
	status Status
	user   *models.User
	log    zerolog.Logger
}

// New returns a controller in the loading state; call Start to resolve it.
func New(api API, log zerolog.Logger) *Controller {
	return &Controller{api: api, status: StatusLoading, log: log}
}

// Start resolves the initial state from any stored token. Without a token it
// settles on unauthenticated without touching the network.
func (c *Controller) Start(ctx context.Context) {
	if !c.api.IsAuthenticated() {
		c.set(StatusUnauthenticated, nil)
		return
	}
	c.set(StatusLoading, nil)
	if err := c.fetchUser(ctx); err != nil {
		c.log.Info().Err(err).Msg("stored session rejected")
	}
}

// fetchUser loads the current user. On failure tokens are dropped and the
// controller falls back to unauthenticated.
func (c *Controller) fetchUser(ctx context.Context) error {
	user, err := c.api.Me(ctx)
	if err != nil {
		c.api.Logout()
		c.set(StatusUnauthenticated, nil)
		return err
	}
	c.set(StatusAuthenticated, user)
	return nil
}

func (c *Controller) Login(ctx context.Context, creds models.LoginCredentials) error {
	if _, err := c.api.Login(ctx, creds); err != nil {
		return err
	}
	if err := c.fetchUser(ctx); err != nil {
		return fmt.Errorf("fetch user after login: %w", err)
	}
	c.log.Info().Str("email", creds.Email).Msg("logged in")
	return nil
}

func (c *Controller) Register(ctx context.Context, creds models.RegisterCredentials) error {
	res, err := c.api.Register(ctx, creds)
	if err != nil {
		return err
	}
	user := res.User
	c.set(StatusAuthenticated, &user)
	c.log.Info().Str("email", user.Email).Msg("registered")
	return nil
}

func (c *Controller) Logout() {
	c.api.Logout()
	c.set(StatusUnauthenticated, nil)
}

func (c *Controller) set(status Status, user *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	c.user = user
}

func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// User returns a copy of the signed-in user, or nil.
func (c *Controller) User() *models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

func (c *Controller) IsAuthenticated() bool { return c.Status() == StatusAuthenticated }

func (c *Controller) IsLoading() bool { return c.Status() == StatusLoading }
