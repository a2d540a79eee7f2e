package storage

import (
	"path/filepath"
	"testing"
)

func exercise(t *testing.T, s Storage) {
	t.Helper()

	if v, err := s.Get("missing"); err != nil || v != "" {
		t.Fatalf("Get(missing) = %q, %v; want empty, nil", v, err)
	}
	if err := s.Set("access_token", "a1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("access_token", "a2"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if v, _ := s.Get("access_token"); v != "a2" {
		t.Fatalf("Get = %q, want a2", v)
	}
	if err := s.Delete("access_token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if v, _ := s.Get("access_token"); v != "" {
		t.Fatalf("Get after Delete = %q", v)
	}
	if err := s.Delete("access_token"); err != nil {
		t.Fatalf("Delete missing key: %v", err)
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestMemoryZeroValue(t *testing.T) {
	exercise(t, &Memory{})
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "state.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exercise(t, s)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Set("refresh_token", "r1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if v, _ := s.Get("refresh_token"); v != "r1" {
		t.Fatalf("Get after reopen = %q, want r1", v)
	}
}
