package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"pocket-notes/internal/auth"
	"pocket-notes/internal/cache"
	"pocket-notes/internal/db"
	"pocket-notes/internal/models"
)

const (
	maxTitleLength  = 255
	minPasswordLen  = 8
	msgRequired     = "This field is required."
	msgNotFound     = "Not found."
	msgInvalidBody  = "JSON parse error."
	msgServerError  = "A server error occurred."
	msgTitleTooLong = "Ensure this field has no more than 255 characters."
)

type Handlers struct {
	db       *db.DB
	cache    *cache.Cache
	auth     *auth.Auth
	log      zerolog.Logger
	validate *validator.Validate
}

func NewHandlers(database *db.DB, c *cache.Cache, a *auth.Auth, log zerolog.Logger) *Handlers {
	return &Handlers{
		db:       database,
		cache:    c,
		auth:     a,
		log:      log,
		validate: validator.New(),
	}
}

func (h *Handlers) respond(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.log.Error().Err(err).Msg("encode response")
		}
	}
}

func (h *Handlers) detail(w http.ResponseWriter, message string, status int) {
	h.respond(w, map[string]string{"detail": message}, status)
}

type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (h *Handlers) fields(w http.ResponseWriter, errs fieldErrors) {
	h.respond(w, errs, http.StatusBadRequest)
}

func (h *Handlers) serverError(w http.ResponseWriter, err error, msg string) {
	h.log.Error().Err(err).Msg(msg)
	h.detail(w, msgServerError, http.StatusInternalServerError)
}

func (h *Handlers) unauthorized(w http.ResponseWriter, detail string) {
	h.detail(w, detail, http.StatusUnauthorized)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.detail(w, msgInvalidBody, http.StatusBadRequest)
		return false
	}
	return true
}

// validationErrors maps validator failures onto per-field messages keyed by
// the JSON field name.
func validationErrors(err error, names map[string]string) fieldErrors {
	out := fieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, fe := range verrs {
		name := names[fe.Field()]
		switch fe.Tag() {
		case "required":
			out.add(name, msgRequired)
		case "email":
			out.add(name, "Enter a valid email address.")
		case "hexcolor":
			out.add(name, "Enter a valid hex color.")
		case "max":
			out.add(name, fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param()))
		default:
			out.add(name, "Invalid value.")
		}
	}
	return out
}

func userID(r *http.Request) int64 {
	id, _ := auth.UserID(r.Context())
	return id
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Auth

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email" validate:"required,email,max=254"`
		Password        string `json:"password" validate:"required"`
		PasswordConfirm string `json:"password_confirm" validate:"required"`
		FirstName       string `json:"first_name" validate:"max=150"`
		LastName        string `json:"last_name" validate:"max=150"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	errs := validationErrors(h.validate.Struct(&req), map[string]string{
		"Email": "email", "Password": "password", "PasswordConfirm": "password_confirm",
		"FirstName": "first_name", "LastName": "last_name",
	})
	if req.Password != "" && utf8.RuneCountInString(req.Password) < minPasswordLen {
		errs.add("password", "This password is too short. It must contain at least 8 characters.")
	}
	if len(errs) == 0 && req.Password != req.PasswordConfirm {
		errs.add("password_confirm", "Passwords don't match.")
	}
	if len(errs) > 0 {
		h.fields(w, errs)
		return
	}

	user, err := h.db.CreateUser(req.Email, req.Password, req.FirstName, req.LastName)
	if errors.Is(err, db.ErrConflict) {
		h.fields(w, fieldErrors{"email": {"user with this email already exists."}})
		return
	}
	if err != nil {
		h.serverError(w, err, "create user")
		return
	}

	tokens, err := h.auth.IssuePair(user.ID)
	if err != nil {
		h.serverError(w, err, "issue tokens")
		return
	}
	h.log.Info().Int64("user", user.ID).Msg("user registered")
	h.respond(w, models.RegisterResult{User: *user, Tokens: tokens}, http.StatusCreated)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginCredentials
	if !h.decode(w, r, &req) {
		return
	}
	errs := fieldErrors{}
	if req.Email == "" {
		errs.add("email", msgRequired)
	}
	if req.Password == "" {
		errs.add("password", msgRequired)
	}
	if len(errs) > 0 {
		h.fields(w, errs)
		return
	}

	user, err := h.db.Authenticate(req.Email, req.Password)
	if errors.Is(err, db.ErrBadCredentials) {
		h.detail(w, "No active account found with the given credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.serverError(w, err, "authenticate")
		return
	}

	tokens, err := h.auth.IssuePair(user.ID)
	if err != nil {
		h.serverError(w, err, "issue tokens")
		return
	}
	h.respond(w, tokens, http.StatusOK)
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.Refresh == "" {
		h.fields(w, fieldErrors{"refresh": {msgRequired}})
		return
	}

	access, err := h.auth.Refresh(req.Refresh)
	if err != nil {
		h.detail(w, "Token is invalid or expired", http.StatusUnauthorized)
		return
	}
	h.respond(w, map[string]string{"access": access}, http.StatusOK)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.db.GetUser(userID(r))
	if errors.Is(err, db.ErrNotFound) {
		h.unauthorized(w, "User not found")
		return
	}
	if err != nil {
		h.serverError(w, err, "get user")
		return
	}
	h.respond(w, user, http.StatusOK)
}

// Categories

func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.db.GetCategories(userID(r))
	if err != nil {
		h.serverError(w, err, "get categories")
		return
	}
	h.respond(w, categories, http.StatusOK)
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name" validate:"required,max=100"`
		Color string `json:"color" validate:"omitempty,hexcolor,max=7"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if errs := validationErrors(h.validate.Struct(&req), map[string]string{"Name": "name", "Color": "color"}); len(errs) > 0 {
		h.fields(w, errs)
		return
	}

	uid := userID(r)
	category, err := h.db.CreateCategory(uid, req.Name, req.Color)
	if errors.Is(err, db.ErrConflict) {
		h.fields(w, fieldErrors{"non_field_errors": {"The fields name, user must make a unique set."}})
		return
	}
	if err != nil {
		h.serverError(w, err, "create category")
		return
	}

	h.cache.InvalidateByPrefix(cache.UserPrefix(uid))
	h.respond(w, category, http.StatusCreated)
}

func (h *Handlers) SeedDefaultCategories(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	created, err := h.db.SeedDefaultCategories(uid)
	if err != nil {
		h.serverError(w, err, "seed categories")
		return
	}
	if len(created) > 0 {
		h.cache.InvalidateByPrefix(cache.UserPrefix(uid))
	}
	h.respond(w, models.SeedResult{
		Message: fmt.Sprintf("Created %d default categories", len(created)),
		Created: created,
	}, http.StatusOK)
}

// Notes

type noteList struct {
	Count    int           `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []models.Note `json:"results"`
}

func (h *Handlers) GetNotes(w http.ResponseWriter, r *http.Request) {
	var categoryID *int64
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.fields(w, fieldErrors{"category": {"A valid integer is required."}})
			return
		}
		categoryID = &id
	}

	notes, err := h.db.GetNotes(userID(r), categoryID)
	if err != nil {
		h.serverError(w, err, "get notes")
		return
	}
	h.respond(w, noteList{Count: len(notes), Results: notes}, http.StatusOK)
}

func (h *Handlers) noteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.detail(w, msgNotFound, http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// checkNoteFields applies the note serializer rules shared by create and
// update.
func (h *Handlers) checkNoteFields(uid int64, title *string, category *int64) fieldErrors {
	errs := fieldErrors{}
	if title != nil && utf8.RuneCountInString(*title) > maxTitleLength {
		errs.add("title", msgTitleTooLong)
	}
	if category != nil {
		if _, err := h.db.GetCategory(uid, *category); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				errs.add("category", "Category does not belong to you.")
			} else {
				h.log.Error().Err(err).Msg("check category")
				errs.add("category", "Invalid category.")
			}
		}
	}
	return errs
}

func (h *Handlers) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	uid := userID(r)

	key := cache.NoteKey(uid, id)
	if note, ok := h.cache.Get(key); ok {
		h.respond(w, note, http.StatusOK)
		return
	}

	note, err := h.db.GetNote(uid, id)
	if errors.Is(err, db.ErrNotFound) {
		h.detail(w, msgNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, err, "get note")
		return
	}

	h.cache.Set(key, *note)
	h.respond(w, note, http.StatusOK)
}

func (h *Handlers) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req models.NewNote
	if !h.decode(w, r, &req) {
		return
	}
	uid := userID(r)
	if errs := h.checkNoteFields(uid, &req.Title, req.Category); len(errs) > 0 {
		h.fields(w, errs)
		return
	}

	note, err := h.db.CreateNote(uid, req)
	if err != nil {
		h.serverError(w, err, "create note")
		return
	}
	h.respond(w, note, http.StatusCreated)
}

func (h *Handlers) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	var patch models.NotePatch
	if !h.decode(w, r, &patch) {
		return
	}
	uid := userID(r)
	if errs := h.checkNoteFields(uid, patch.Title, patch.Category); len(errs) > 0 {
		h.fields(w, errs)
		return
	}

	note, err := h.db.UpdateNote(uid, id, patch)
	if errors.Is(err, db.ErrNotFound) {
		h.detail(w, msgNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, err, "update note")
		return
	}

	h.cache.Invalidate(cache.NoteKey(uid, id))
	h.respond(w, note, http.StatusOK)
}

func (h *Handlers) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.noteID(w, r)
	if !ok {
		return
	}
	uid := userID(r)

	err := h.db.DeleteNote(uid, id)
	if errors.Is(err, db.ErrNotFound) {
		h.detail(w, msgNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, err, "delete note")
		return
	}

	h.cache.Invalidate(cache.NoteKey(uid, id))
	h.respond(w, nil, http.StatusNoContent)
}
