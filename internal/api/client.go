// Package api is the HTTP client for the notes REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pocket-notes/internal/tokens"
)

const DefaultBaseURL = "http://localhost:8000/api"

type Client struct {
	baseURL string
	http    *http.Client
	tokens  *tokens.Store
	headers map[string]string
	log     zerolog.Logger

	// refreshMu serializes refreshes so that concurrent 401s share one.
	refreshMu sync.Mutex
}

type Option func(*Client)

// WithHTTPClient sets the HTTP client (default: 30s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(cl *Client) {
		cl.log = log
	}
}

// WithHeader sets a header sent on every request.
func WithHeader(key, value string) Option {
	return func(cl *Client) {
		if cl.headers == nil {
			cl.headers = make(map[string]string)
		}
		cl.headers[key] = value
	}
}

func New(baseURL string, store *tokens.Store, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  store,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends a JSON request to endpoint and decodes a 2xx body into out. A 401
// on an authenticated request triggers one refresh and one retry.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, endpoint, err)
		}
	}

	access := c.tokens.Current()
	status, respBody, err := c.send(ctx, method, endpoint, payload, access)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && access != "" {
		if c.refreshToken(ctx, access) {
			status, respBody, err = c.send(ctx, method, endpoint, payload, c.tokens.Current())
			if err != nil {
				return err
			}
		}
	}

	if status < 200 || status >= 300 {
		return parseError(status, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, endpoint, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, access string) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("api: build %s %s: %w", method, endpoint, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("endpoint", endpoint).Str("request_id", requestID).Msg("request failed")
		return 0, nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read %s %s: %v", ErrTransport, method, endpoint, err)
	}

	c.log.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("request")
	return resp.StatusCode, respBody, nil
}

// refreshToken exchanges the stored refresh token for a new access token.
// rejected is the access token the server just refused; if another caller has
// already replaced it, no request is made. Any failure clears both tokens.
func (c *Client) refreshToken(ctx context.Context, rejected string) bool {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.tokens.Current(); current != "" && current != rejected {
		return true
	}

	refresh := c.tokens.Refresh()
	if refresh == "" {
		return false
	}

	payload, _ := json.Marshal(map[string]string{"refresh": refresh})
	status, body, err := c.send(ctx, http.MethodPost, "/auth/refresh/", payload, "")
	if err == nil && status >= 200 && status < 300 {
		var data struct {
			Access string `json:"access"`
		}
		if json.Unmarshal(body, &data) == nil && data.Access != "" {
			c.tokens.SetAccess(data.Access)
			c.log.Debug().Msg("access token refreshed")
			return true
		}
	}

	c.log.Info().Int("status", status).Err(err).Msg("token refresh failed, clearing session")
	c.tokens.Clear()
	return false
}
