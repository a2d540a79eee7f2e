package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"pocket-notes/internal/models"
	"pocket-notes/internal/ui"
)

// NotesAPI is the part of the HTTP client the screens use.
type NotesAPI interface {
	SeedDefaultCategories(ctx context.Context) (*models.SeedResult, error)
	Categories(ctx context.Context) ([]models.Category, error)
	Notes(ctx context.Context, categoryID *int64) ([]models.Note, error)
	Note(ctx context.Context, id int64) (*models.Note, error)
	CreateNote(ctx context.Context, data models.NewNote) (*models.Note, error)
	UpdateNote(ctx context.Context, id int64, patch models.NotePatch) (*models.Note, error)
	DeleteNote(ctx context.Context, id int64) error
}

// Deps are the collaborators shared by the screens.
type Deps struct {
	API    NotesAPI
	Nav    ui.Navigator
	Notify ui.Notifier
	Log    zerolog.Logger
}

type Logouter interface {
	Logout()
}

// Dashboard is the note list with its category sidebar.
type Dashboard struct {
	deps    Deps
	session Logouter

	mu         sync.RWMutex
	categories []models.Category
	notes      []models.Note
	selected   *int64
	loading    bool
}

func NewDashboard(deps Deps, session Logouter) *Dashboard {
	return &Dashboard{deps: deps, session: session, loading: true}
}

// Load seeds the default categories if needed, then fetches categories and
// the notes of the selected category.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.RLock()
	selected := d.selected
	d.mu.RUnlock()

	err := d.load(ctx, selected)

	d.mu.Lock()
	d.loading = false
	d.mu.Unlock()

	if err != nil {
		d.deps.Log.Error().Err(err).Msg("load dashboard")
		d.deps.Notify.Notify(ui.Toast{Message: "Failed to load notes", Kind: ui.ToastError})
	}
	return err
}

func (d *Dashboard) load(ctx context.Context, selected *int64) error {
	if _, err := d.deps.API.SeedDefaultCategories(ctx); err != nil {
		return err
	}
	cats, err := d.deps.API.Categories(ctx)
	if err != nil {
		return err
	}
	notes, err := d.deps.API.Notes(ctx, selected)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.categories = cats
	d.notes = notes
	d.mu.Unlock()
	return nil
}

// SelectCategory filters the list; nil shows every category.
func (d *Dashboard) SelectCategory(ctx context.Context, id *int64) error {
	d.mu.Lock()
	d.selected = id
	d.mu.Unlock()
	return d.Load(ctx)
}

// NewNote creates an empty note in the selected category, falling back to
// the first category, and opens it.
func (d *Dashboard) NewNote(ctx context.Context) (*models.Note, error) {
	d.mu.RLock()
	category := d.selected
	if category == nil && len(d.categories) > 0 {
		id := d.categories[0].ID
		category = &id
	}
	d.mu.RUnlock()

	note, err := d.deps.API.CreateNote(ctx, models.NewNote{Category: category})
	if err != nil {
		d.deps.Log.Error().Err(err).Msg("create note")
		d.deps.Notify.Notify(ui.Toast{Message: "Failed to create note", Kind: ui.ToastError})
		return nil, err
	}
	d.deps.Nav.Navigate(ui.NoteRoute(note.ID))
	return note, nil
}

func (d *Dashboard) OpenNote(note models.Note) {
	d.deps.Nav.Navigate(ui.NoteRoute(note.ID))
}

// TotalNotes sums the note counts of every category.
func (d *Dashboard) TotalNotes() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	total := 0
	for _, c := range d.categories {
		total += c.NotesCount
	}
	return total
}

func (d *Dashboard) Logout() {
	d.session.Logout()
	d.deps.Notify.Notify(ui.Toast{Message: "Logged out successfully", Kind: ui.ToastSuccess})
	d.deps.Nav.Navigate(ui.RouteLogin)
}

func (d *Dashboard) Categories() []models.Category {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Category(nil), d.categories...)
}

func (d *Dashboard) Notes() []models.Note {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Note(nil), d.notes...)
}

func (d *Dashboard) Selected() *int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selected
}

func (d *Dashboard) IsLoading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading
}
