package app

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pocket-notes/internal/api"
	"pocket-notes/internal/autosave"
	"pocket-notes/internal/clock"
	"pocket-notes/internal/models"
	"pocket-notes/internal/server"
	"pocket-notes/internal/session"
	"pocket-notes/internal/storage"
	"pocket-notes/internal/tokens"
	"pocket-notes/internal/ui"
)

type stack struct {
	client  *api.Client
	tokens  *tokens.Store
	session *session.Controller
	rec     *recorder
	deps    Deps
}

func newStack(t *testing.T) *stack {
	t.Helper()
	srv, err := server.Open(server.Config{DataDir: t.TempDir(), JWTSecret: "e2e-secret"}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })
	hs := httptest.NewServer(srv.Handler)
	t.Cleanup(hs.Close)

	store := tokens.New(storage.NewMemory(), zerolog.Nop())
	client := api.New(hs.URL+"/api", store)
	rec := &recorder{}
	return &stack{
		client:  client,
		tokens:  store,
		session: session.New(client, zerolog.Nop()),
		rec:     rec,
		deps:    Deps{API: client, Nav: rec, Notify: rec, Log: zerolog.Nop()},
	}
}

func (s *stack) signUp(t *testing.T) {
	t.Helper()
	s.session.Start(context.Background())
	form := NewAuthForm(s.session, s.rec)
	err := form.Submit(context.Background(), ModeSignup, AuthFields{
		Email: "writer@example.com", Password: "long-enough", PasswordConfirm: "long-enough",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if !s.session.IsAuthenticated() {
		t.Fatalf("status = %v", s.session.Status())
	}
}

func TestEndToEndEditingSession(t *testing.T) {
	s := newStack(t)
	s.signUp(t)
	ctx := context.Background()

	dash := NewDashboard(s.deps, s.session)
	if err := dash.Load(ctx); err != nil {
		t.Fatal(err)
	}
	cats := dash.Categories()
	if len(cats) != 3 {
		t.Fatalf("categories = %+v", cats)
	}

	note, err := dash.NewNote(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if note.Title != "" || note.Content != "" || note.Category == nil {
		t.Fatalf("new note = %+v", note)
	}
	if s.rec.lastRoute() != ui.NoteRoute(note.ID) {
		t.Fatalf("routes = %v", s.rec.routes)
	}

	clk := clock.NewManual(time.Now())
	ed, err := OpenEditor(ctx, s.deps, note.ID, autosave.WithClock(clk))
	if err != nil {
		t.Fatal(err)
	}
	before := ed.LastSaved()

	ed.SetTitle("Groceries")
	ed.SetContent("eggs, milk")
	clk.Advance(autosave.DefaultDelay)
	if ed.State() != autosave.StateClean {
		t.Fatalf("state = %v", ed.State())
	}

	var personal models.Category
	for _, c := range cats {
		if c.Name == "Personal" {
			personal = c
		}
	}
	if err := ed.ChangeCategory(ctx, personal.ID); err != nil {
		t.Fatal(err)
	}
	ed.SetContent("eggs, milk, bread")
	if err := ed.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if s.rec.lastRoute() != ui.RouteList {
		t.Fatalf("routes = %v", s.rec.routes)
	}

	got, err := s.client.Note(ctx, note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Groceries" || got.Content != "eggs, milk, bread" || *got.Category != personal.ID {
		t.Fatalf("server note = %+v", got)
	}
	if *got.CategoryName != "Personal" || *got.CategoryColor != "#A8D5D8" {
		t.Fatalf("category fields = %v %v", *got.CategoryName, *got.CategoryColor)
	}
	if got.UpdatedAt.Before(before) || got.UpdatedAt.Before(ed.LastSaved()) {
		t.Fatalf("updated_at went backwards: %v, %v, %v", before, ed.LastSaved(), got.UpdatedAt)
	}
}

func TestEndToEndTitleTooLong(t *testing.T) {
	s := newStack(t)
	s.signUp(t)
	ctx := context.Background()

	note, err := s.client.CreateNote(ctx, models.NewNote{})
	if err != nil {
		t.Fatal(err)
	}
	clk := clock.NewManual(time.Now())
	ed, err := OpenEditor(ctx, s.deps, note.ID, autosave.WithClock(clk))
	if err != nil {
		t.Fatal(err)
	}

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	ed.SetTitle(string(long))
	clk.Advance(autosave.DefaultDelay)

	if ed.State() != autosave.StateUnsynced {
		t.Fatalf("state = %v", ed.State())
	}
	if msg := s.rec.lastToast().Message; msg != "Title is too long (max 255 characters)" {
		t.Fatalf("toast = %q", msg)
	}
}

func TestEndToEndDelete(t *testing.T) {
	s := newStack(t)
	s.signUp(t)
	ctx := context.Background()

	note, err := s.client.CreateNote(ctx, models.NewNote{Title: "bye"})
	if err != nil {
		t.Fatal(err)
	}
	ed, err := OpenEditor(ctx, s.deps, note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := ed.Delete(ctx, func() bool { return true }); err != nil {
		t.Fatal(err)
	}
	if s.rec.lastRoute() != ui.RouteList || s.rec.lastToast().Message != "Note deleted" {
		t.Fatalf("routes = %v toasts = %+v", s.rec.routes, s.rec.toasts)
	}

	notes, err := s.client.Notes(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range notes {
		if n.ID == note.ID {
			t.Fatal("deleted note still listed")
		}
	}
}

func TestEndToEndRefreshesRejectedAccessToken(t *testing.T) {
	s := newStack(t)
	s.signUp(t)
	ctx := context.Background()

	refresh := s.tokens.Refresh()
	s.tokens.Set(models.AuthTokens{Access: "stale", Refresh: refresh})

	if _, err := s.client.Categories(ctx); err != nil {
		t.Fatalf("request after refresh: %v", err)
	}
	if s.tokens.Current() == "stale" || s.tokens.Current() == "" {
		t.Fatalf("access token not replaced: %q", s.tokens.Current())
	}

	s.tokens.Set(models.AuthTokens{Access: "stale", Refresh: "also-bad"})
	_, err := s.client.Categories(ctx)
	if !api.IsUnauthorized(err) {
		t.Fatalf("err = %v", err)
	}
	if s.tokens.Current() != "" || s.tokens.Refresh() != "" {
		t.Fatal("tokens kept after failed refresh")
	}
}

func TestEndToEndStartWithStoredSession(t *testing.T) {
	s := newStack(t)
	s.signUp(t)

	fresh := session.New(s.client, zerolog.Nop())
	fresh.Start(context.Background())
	if !fresh.IsAuthenticated() || fresh.User().Email != "writer@example.com" {
		t.Fatalf("status = %v user = %+v", fresh.Status(), fresh.User())
	}

	NewDashboard(s.deps, fresh).Logout()
	if s.client.IsAuthenticated() {
		t.Fatal("tokens survived logout")
	}
}
