package cache

import (
	"testing"

	"pocket-notes/internal/models"
)

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Set(NoteKey(1, 1), models.Note{ID: 1})
	c.Set(NoteKey(1, 2), models.Note{ID: 2})
	c.Get(NoteKey(1, 1))
	c.Set(NoteKey(1, 3), models.Note{ID: 3})

	if _, ok := c.Get(NoteKey(1, 2)); ok {
		t.Fatal("least recently used entry survived")
	}
	if n, ok := c.Get(NoteKey(1, 1)); !ok || n.ID != 1 {
		t.Fatal("recently read entry was evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d", c.Len())
	}
}

func TestInvalidateByPrefixIsPerUser(t *testing.T) {
	c := New(0)
	c.Set(NoteKey(1, 1), models.Note{ID: 1})
	c.Set(NoteKey(1, 2), models.Note{ID: 2})
	c.Set(NoteKey(11, 1), models.Note{ID: 1})

	c.InvalidateByPrefix(UserPrefix(1))
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	if _, ok := c.Get(NoteKey(11, 1)); !ok {
		t.Fatal("user 11 entry dropped with user 1 prefix")
	}

	c.Invalidate(NoteKey(11, 1))
	if c.Len() != 0 {
		t.Fatalf("Len = %d after Invalidate", c.Len())
	}
}
