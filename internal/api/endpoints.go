package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"pocket-notes/internal/models"
)

// Auth

func (c *Client) Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthTokens, error) {
	var tokens models.AuthTokens
	if err := c.do(ctx, http.MethodPost, "/auth/login/", creds, &tokens); err != nil {
		return nil, err
	}
	c.tokens.Set(tokens)
	return &tokens, nil
}

func (c *Client) Register(ctx context.Context, creds models.RegisterCredentials) (*models.RegisterResult, error) {
	var res models.RegisterResult
	if err := c.do(ctx, http.MethodPost, "/auth/register/", creds, &res); err != nil {
		return nil, err
	}
	c.tokens.Set(res.Tokens)
	return &res, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me/", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout forgets the stored tokens. The server keeps no session to end.
func (c *Client) Logout() {
	c.tokens.Clear()
}

// IsAuthenticated reports whether an access token is held. It says nothing
// about whether the server will still accept it.
func (c *Client) IsAuthenticated() bool {
	return c.tokens.Current() != ""
}

// Categories

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.do(ctx, http.MethodGet, "/categories/", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) CreateCategory(ctx context.Context, data models.NewCategory) (*models.Category, error) {
	var category models.Category
	if err := c.do(ctx, http.MethodPost, "/categories/", data, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) SeedDefaultCategories(ctx context.Context) (*models.SeedResult, error) {
	var res models.SeedResult
	if err := c.do(ctx, http.MethodPost, "/categories/seed_defaults/", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Notes

// Notes lists notes, optionally restricted to one category. The server may
// answer with a bare array or a paginated {"results": [...]} object.
func (c *Client) Notes(ctx context.Context, categoryID *int64) ([]models.Note, error) {
	endpoint := "/notes/"
	if categoryID != nil {
		endpoint += "?" + url.Values{"category": {strconv.FormatInt(*categoryID, 10)}}.Encode()
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, err
	}
	return decodeNotes(raw)
}

func decodeNotes(raw json.RawMessage) ([]models.Note, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []models.Note{}, nil
	}
	if raw[0] == '[' {
		var notes []models.Note
		if err := json.Unmarshal(raw, &notes); err != nil {
			return nil, fmt.Errorf("api: decode notes: %w", err)
		}
		return notes, nil
	}
	var page models.NoteList
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("api: decode notes page: %w", err)
	}
	if page.Results == nil {
		page.Results = []models.Note{}
	}
	return page.Results, nil
}

func (c *Client) Note(ctx context.Context, id int64) (*models.Note, error) {
	var note models.Note
	if err := c.do(ctx, http.MethodGet, noteEndpoint(id), nil, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) CreateNote(ctx context.Context, data models.NewNote) (*models.Note, error) {
	var note models.Note
	if err := c.do(ctx, http.MethodPost, "/notes/", data, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) UpdateNote(ctx context.Context, id int64, patch models.NotePatch) (*models.Note, error) {
	var note models.Note
	if err := c.do(ctx, http.MethodPatch, noteEndpoint(id), patch, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, noteEndpoint(id), nil, nil)
}

func noteEndpoint(id int64) string {
	return "/notes/" + strconv.FormatInt(id, 10) + "/"
}
