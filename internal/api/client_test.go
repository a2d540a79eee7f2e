package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"pocket-notes/internal/models"
	"pocket-notes/internal/storage"
	"pocket-notes/internal/tokens"
)

func newTestClient(t *testing.T, h http.Handler, access, refresh string) (*Client, *tokens.Store) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	store := tokens.New(storage.NewMemory(), zerolog.Nop())
	if access != "" || refresh != "" {
		store.Set(models.AuthTokens{Access: access, Refresh: refresh})
	}
	return New(srv.URL, store), store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestAttachesBearerToken(t *testing.T) {
	var gotAuth, gotRequestID string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		writeJSON(w, http.StatusOK, models.User{ID: 7, Email: "a@b.c"})
	}), "tok", "ref")

	user, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("user id = %d", user.ID)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Fatal("missing X-Request-ID")
	}
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []models.Category{})
	}), "", "")

	if _, err := c.Categories(context.Background()); err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("Authorization = %q, want none", gotAuth)
	}
}

func TestUnauthorizedRefreshesAndRetriesOnce(t *testing.T) {
	var meCalls, refreshCalls atomic.Int32
	var retriedWith string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		n := meCalls.Add(1)
		if r.Header.Get("Authorization") == "Bearer old" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
			return
		}
		if n == 2 {
			retriedWith = r.Header.Get("Authorization")
		}
		writeJSON(w, http.StatusOK, models.User{ID: 1})
	})
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["refresh"] != "ref" || r.Header.Get("Authorization") != "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": "new"})
	})

	c, store := newTestClient(t, mux, "old", "ref")
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me: %v", err)
	}
	if meCalls.Load() != 2 {
		t.Fatalf("me calls = %d, want 2", meCalls.Load())
	}
	if refreshCalls.Load() != 1 {
		t.Fatalf("refresh calls = %d, want 1", refreshCalls.Load())
	}
	if retriedWith != "Bearer new" {
		t.Fatalf("retry Authorization = %q", retriedWith)
	}
	if store.Current() != "new" || store.Refresh() != "ref" {
		t.Fatalf("tokens after refresh: access=%q refresh=%q", store.Current(), store.Refresh())
	}
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/categories/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
			return
		}
		writeJSON(w, http.StatusOK, []models.Category{})
	})
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"access": "new"})
	})

	c, _ := newTestClient(t, mux, "old", "ref")
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Categories(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Categories: %v", err)
		}
	}
	if refreshCalls.Load() != 1 {
		t.Fatalf("refresh calls = %d, want 1", refreshCalls.Load())
	}
}

func TestFailedRefreshClearsTokensWithoutRetry(t *testing.T) {
	var meCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		meCalls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid"})
	})
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is blacklisted"})
	})

	c, store := newTestClient(t, mux, "old", "ref")
	_, err := c.Me(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want 401", err)
	}
	apiErr, _ := AsError(err)
	if apiErr.Detail != "Given token not valid" {
		t.Fatalf("surfaced detail = %q, want the original 401 body", apiErr.Detail)
	}
	if meCalls.Load() != 1 {
		t.Fatalf("me calls = %d, want 1", meCalls.Load())
	}
	if store.Current() != "" || store.Refresh() != "" {
		t.Fatal("tokens not cleared")
	}
}

func TestRefreshWithoutStoredRefreshTokenMakesNoRequest(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{})
	})
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})

	c, store := newTestClient(t, mux, "", "")
	store.SetAccess("only-access")

	if _, err := c.Me(context.Background()); !IsUnauthorized(err) {
		t.Fatalf("err = %v", err)
	}
	if refreshCalls.Load() != 0 {
		t.Fatalf("refresh calls = %d, want 0", refreshCalls.Load())
	}
}

func TestUnauthorizedWithoutTokenDoesNotRefresh(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
	})
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})

	c, _ := newTestClient(t, mux, "", "")
	_, err := c.Login(context.Background(), models.LoginCredentials{Email: "a@b.c", Password: "x"})
	apiErr, ok := AsError(err)
	if !ok || apiErr.Detail != "No active account found with the given credentials" {
		t.Fatalf("err = %v", err)
	}
	if refreshCalls.Load() != 0 {
		t.Fatalf("refresh calls = %d", refreshCalls.Load())
	}
}

func TestErrorBodies(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		detail string
		fields map[string]string
	}{
		{"detail", `{"detail":"Not found."}`, "Not found.", nil},
		{"field list", `{"title":["Ensure this field has no more than 255 characters."]}`, "", map[string]string{"title": "Ensure this field has no more than 255 characters."}},
		{"field string", `{"email":"taken"}`, "", map[string]string{"email": "taken"}},
		{"not json", `<html>oops</html>`, "", nil},
		{"empty", ``, "", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, tc.body)
			}), "tok", "ref")

			_, err := c.Note(context.Background(), 1)
			apiErr, ok := AsError(err)
			if !ok {
				t.Fatalf("err = %v, want *Error", err)
			}
			if apiErr.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d", apiErr.StatusCode)
			}
			if apiErr.Detail != tc.detail {
				t.Fatalf("detail = %q, want %q", apiErr.Detail, tc.detail)
			}
			for name, msg := range tc.fields {
				if got := apiErr.FieldMessage(name); got != msg {
					t.Fatalf("field %s = %q, want %q", name, got, msg)
				}
			}
			if tc.fields == nil && len(apiErr.Fields) != 0 {
				t.Fatalf("unexpected fields %v", apiErr.Fields)
			}
		})
	}
}

func TestEmptyBodyDecodesToZeroValue(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/notes/3/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}), "tok", "ref")

	if err := c.DeleteNote(context.Background(), 3); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, tokens.New(nil, zerolog.Nop()))

	_, err := c.Categories(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestNotesAcceptsBothShapes(t *testing.T) {
	notes := []models.Note{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}
	shapes := map[string]any{
		"array":     notes,
		"paginated": models.NoteList{Count: 2, Results: notes},
	}
	for name, payload := range shapes {
		t.Run(name, func(t *testing.T) {
			var gotQuery string
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.RawQuery
				writeJSON(w, http.StatusOK, payload)
			}), "tok", "ref")

			cat := int64(4)
			got, err := c.Notes(context.Background(), &cat)
			if err != nil {
				t.Fatalf("Notes: %v", err)
			}
			if len(got) != 2 || got[1].Title != "b" {
				t.Fatalf("notes = %+v", got)
			}
			if gotQuery != "category=4" {
				t.Fatalf("query = %q", gotQuery)
			}
		})
	}
}

func TestUpdateNoteSendsOnlyPatchedFields(t *testing.T) {
	var body map[string]any
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, models.Note{ID: 9, Title: "X"})
	}), "tok", "ref")

	title := "X"
	if _, err := c.UpdateNote(context.Background(), 9, models.NotePatch{Title: &title}); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if len(body) != 1 || body["title"] != "X" {
		t.Fatalf("body = %v", body)
	}
}

func TestLoginStoresTokens(t *testing.T) {
	c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.AuthTokens{Access: "a", Refresh: "r"})
	}), "", "")

	if _, err := c.Login(context.Background(), models.LoginCredentials{Email: "a@b.c", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if store.Current() != "a" || store.Refresh() != "r" {
		t.Fatalf("tokens = %q / %q", store.Current(), store.Refresh())
	}
	if !c.IsAuthenticated() {
		t.Fatal("IsAuthenticated = false")
	}
	c.Logout()
	if c.IsAuthenticated() {
		t.Fatal("IsAuthenticated after Logout")
	}
}
