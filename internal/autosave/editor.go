// Package autosave keeps an open note in sync with the server. Edits are
// debounced into partial updates, category changes go out immediately, and
// nothing typed is dropped when the editor closes.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pocket-notes/internal/clock"
	"pocket-notes/internal/models"
	"pocket-notes/internal/ui"
)

const DefaultDelay = 500 * time.Millisecond

var (
	ErrUnknownCategory = errors.New("autosave: unknown category")
	ErrClosed          = errors.New("autosave: editor closed")
)

// NoteAPI is the part of the HTTP client the editor talks to.
type NoteAPI interface {
	UpdateNote(ctx context.Context, id int64, patch models.NotePatch) (*models.Note, error)
	DeleteNote(ctx context.Context, id int64) error
}

type State int

const (
	StateClean State = iota
	StatePending
	StateSaving
	StatePendingAfterSave
	StateUnsynced
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StatePending:
		return "pending"
	case StateSaving:
		return "saving"
	case StatePendingAfterSave:
		return "pending-after-save"
	case StateUnsynced:
		return "unsynced"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Draft is the locally edited version of a note.
type Draft struct {
	Title         string
	Content       string
	Category      *int64
	CategoryName  *string
	CategoryColor *string
}

type field uint8

const (
	fieldTitle field = 1 << iota
	fieldContent
	fieldCategory
)

type Option func(*Editor)

func WithDelay(d time.Duration) Option {
	return func(e *Editor) {
		if d > 0 {
			e.delay = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(e *Editor) { e.clock = c }
}

func WithNotifier(n ui.Notifier) Option {
	return func(e *Editor) { e.notify = n }
}

func WithNavigator(n ui.Navigator) Option {
	return func(e *Editor) { e.nav = n }
}

func WithLogger(log zerolog.Logger) Option {
	return func(e *Editor) { e.log = log }
}

func WithCategories(cats []models.Category) Option {
	return func(e *Editor) { e.categories = append([]models.Category(nil), cats...) }
}

// WithContext sets the context used by saves the debounce timer starts.
func WithContext(ctx context.Context) Option {
	return func(e *Editor) { e.ctx = ctx }
}

// Editor owns the draft of one note. It is safe for concurrent use; at most
// one save is in flight at a time.
type Editor struct {
	id     int64
	api    NoteAPI
	clock  clock.Clock
	delay  time.Duration
	notify ui.Notifier
	nav    ui.Navigator
	log    zerolog.Logger
	ctx    context.Context

	mu         sync.Mutex
	categories []models.Category
	note       models.Note
	draft      Draft
	dirty      field
	state      State
	timer      clock.Timer
	gen        uint64
	// categoryQueued is set when a category change arrives mid-save; it is
	// sent as soon as the in-flight request resolves.
	categoryQueued bool
	// idle is closed when the running save chain finishes.
	idle chan struct{}
	// deleteDone is closed when a running Delete returns.
	deleteDone chan struct{}
	deleting   bool
	closed     bool
}

func New(api NoteAPI, note models.Note, opts ...Option) *Editor {
	e := &Editor{
		id:     note.ID,
		api:    api,
		clock:  clock.Real(),
		delay:  DefaultDelay,
		notify: ui.Nop,
		nav:    ui.Nop,
		log:    zerolog.Nop(),
		ctx:    context.Background(),
		note:   note,
		draft: Draft{
			Title:         note.Title,
			Content:       note.Content,
			Category:      note.Category,
			CategoryName:  note.CategoryName,
			CategoryColor: note.CategoryColor,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().Int64("note", note.ID).Logger()
	return e
}

func (e *Editor) SetTitle(title string) {
	e.edit(func() {
		e.draft.Title = title
		e.dirty |= fieldTitle
	})
}

func (e *Editor) SetContent(content string) {
	e.edit(func() {
		e.draft.Content = content
		e.dirty |= fieldContent
	})
}

func (e *Editor) edit(apply func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	apply()
	switch {
	case e.state == StateSaving || e.state == StatePendingAfterSave:
		e.state = StatePendingAfterSave
	case e.deleting:
		// re-armed if the delete fails
	default:
		e.armLocked()
	}
}

// SetCategories replaces the list category changes are resolved against.
func (e *Editor) SetCategories(cats []models.Category) {
	e.mu.Lock()
	e.categories = append([]models.Category(nil), cats...)
	e.mu.Unlock()
}

// ChangeCategory moves the note to another category. The draft is updated
// right away and the change is sent without waiting for the debounce,
// together with any unsaved title or content.
func (e *Editor) ChangeCategory(ctx context.Context, id int64) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	var cat *models.Category
	for i := range e.categories {
		if e.categories[i].ID == id {
			cat = &e.categories[i]
			break
		}
	}
	if cat == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownCategory, id)
	}

	catID, name, color := cat.ID, cat.Name, cat.Color
	e.draft.Category = &catID
	e.draft.CategoryName = &name
	e.draft.CategoryColor = &color
	e.dirty |= fieldCategory
	e.cancelTimerLocked()

	if e.state == StateSaving || e.state == StatePendingAfterSave {
		e.state = StatePendingAfterSave
		e.categoryQueued = true
		e.mu.Unlock()
		return nil
	}
	if e.deleting {
		e.mu.Unlock()
		return nil
	}
	patch := e.beginSaveLocked()
	e.mu.Unlock()
	return e.runSaves(ctx, patch)
}

// Close flushes whatever has not reached the server and navigates back to
// the list. A running save or delete is waited for first; edits that are
// still unsaved after that get one more request. Calling it again is a no-op.
func (e *Editor) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true

	err := e.settleLocked(ctx)
	if err == nil {
		e.cancelTimerLocked()
		if e.dirty != 0 {
			patch := e.beginSaveLocked()
			e.mu.Unlock()
			err = e.runSaves(ctx, patch)
			e.mu.Lock()
		} else if e.state == StatePending {
			e.state = StateClean
		}
	}
	e.mu.Unlock()

	e.nav.Navigate(ui.RouteList)
	return err
}

// settleLocked waits, with the lock released, until no save or delete is
// running.
func (e *Editor) settleLocked(ctx context.Context) error {
	for {
		var ch chan struct{}
		switch {
		case e.deleting:
			ch = e.deleteDone
		case e.state == StateSaving || e.state == StatePendingAfterSave:
			ch = e.idle
		default:
			return nil
		}
		e.mu.Unlock()
		err := wait(ctx, ch)
		e.mu.Lock()
		if err != nil {
			return err
		}
	}
}

// Delete removes the note once confirm returns true. Pending edits are held
// back while the request runs; on failure the editor stays open with its
// draft intact.
func (e *Editor) Delete(ctx context.Context, confirm func() bool) error {
	if confirm != nil && !confirm() {
		return nil
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.deleting = true
	e.deleteDone = make(chan struct{})
	e.cancelTimerLocked()
	if e.state == StatePending {
		e.state = StateClean
	}
	for e.state == StateSaving || e.state == StatePendingAfterSave {
		idle := e.idle
		e.mu.Unlock()
		if err := wait(ctx, idle); err != nil {
			e.mu.Lock()
			e.resumeAfterDeleteLocked()
			e.mu.Unlock()
			return err
		}
		e.mu.Lock()
		e.cancelTimerLocked()
	}
	e.mu.Unlock()

	id := e.id
	if err := e.api.DeleteNote(ctx, id); err != nil {
		e.mu.Lock()
		e.resumeAfterDeleteLocked()
		e.mu.Unlock()
		e.log.Warn().Err(err).Msg("delete failed")
		e.notify.Notify(ui.Toast{Message: msgDeleteFailed, Kind: ui.ToastError})
		return fmt.Errorf("delete note %d: %w", id, err)
	}

	e.mu.Lock()
	e.closed = true
	e.cancelTimerLocked()
	e.dirty = 0
	e.state = StateClean
	e.finishDeleteLocked()
	e.mu.Unlock()

	e.log.Info().Msg("note deleted")
	e.notify.Notify(ui.Toast{Message: msgDeleted, Kind: ui.ToastSuccess})
	e.nav.Navigate(ui.RouteList)
	return nil
}

// resumeAfterDeleteLocked re-arms held edits after a failed delete. A Close
// that came in meanwhile flushes them itself.
func (e *Editor) resumeAfterDeleteLocked() {
	if e.dirty != 0 && e.state == StateClean && !e.closed {
		e.armLocked()
	}
	e.finishDeleteLocked()
}

func (e *Editor) finishDeleteLocked() {
	e.deleting = false
	close(e.deleteDone)
	e.deleteDone = nil
}

// armLocked (re)starts the debounce timer.
func (e *Editor) armLocked() {
	e.cancelTimerLocked()
	gen := e.gen
	e.timer = e.clock.AfterFunc(e.delay, func() { e.fire(gen) })
	e.state = StatePending
}

// cancelTimerLocked stops the debounce timer. Bumping gen makes a callback
// that already started ignore itself.
func (e *Editor) cancelTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
}

func (e *Editor) fire(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.state != StatePending || e.closed || e.deleting {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	if e.dirty == 0 {
		e.state = StateClean
		e.mu.Unlock()
		return
	}
	patch := e.beginSaveLocked()
	e.mu.Unlock()
	_ = e.runSaves(e.ctx, patch)
}

// beginSaveLocked moves the dirty fields into a patch and marks a save in
// flight.
func (e *Editor) beginSaveLocked() models.NotePatch {
	var patch models.NotePatch
	if e.dirty&fieldTitle != 0 {
		title := e.draft.Title
		patch.Title = &title
	}
	if e.dirty&fieldContent != 0 {
		content := e.draft.Content
		patch.Content = &content
	}
	if e.dirty&fieldCategory != 0 && e.draft.Category != nil {
		id := *e.draft.Category
		patch.Category = &id
	}
	e.dirty = 0
	e.categoryQueued = false
	e.state = StateSaving
	if e.idle == nil {
		e.idle = make(chan struct{})
	}
	return patch
}

// runSaves sends patch and then anything that queued up while it was in
// flight. It returns the error of the last request.
func (e *Editor) runSaves(ctx context.Context, patch models.NotePatch) error {
	for {
		note, err := e.api.UpdateNote(ctx, e.id, patch)

		e.mu.Lock()
		if err != nil {
			e.dirty |= patchFields(patch)
		} else {
			e.note = *note
		}

		next, more := e.resolveLocked(err)
		if !more {
			idle := e.idle
			e.idle = nil
			e.mu.Unlock()
			close(idle)
			e.report(err)
			return err
		}
		e.mu.Unlock()
		e.report(err)
		patch = next
	}
}

// resolveLocked decides what follows a finished request. It reports whether
// another request should be sent right away.
func (e *Editor) resolveLocked(err error) (models.NotePatch, bool) {
	if e.state == StatePendingAfterSave && e.dirty != 0 {
		if e.categoryQueued || e.closed {
			return e.beginSaveLocked(), true
		}
		if !e.deleting {
			e.armLocked()
			return models.NotePatch{}, false
		}
	}
	switch {
	case e.dirty == 0:
		e.state = StateClean
	case err != nil:
		e.state = StateUnsynced
	default:
		// edits held back by a running delete
		e.state = StateClean
	}
	return models.NotePatch{}, false
}

func (e *Editor) report(err error) {
	if err == nil {
		return
	}
	e.log.Warn().Err(err).Msg("save failed")
	e.notify.Notify(ui.Toast{Message: SaveErrorMessage(err), Kind: ui.ToastError})
}

func patchFields(p models.NotePatch) field {
	var f field
	if p.Title != nil {
		f |= fieldTitle
	}
	if p.Content != nil {
		f |= fieldContent
	}
	if p.Category != nil {
		f |= fieldCategory
	}
	return f
}

func wait(ctx context.Context, ch <-chan struct{}) error {
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) IsSaving() bool {
	s := e.State()
	return s == StateSaving || s == StatePendingAfterSave
}

func (e *Editor) Draft() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Note returns the last version the server confirmed.
func (e *Editor) Note() models.Note {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.note
}

func (e *Editor) LastSaved() time.Time {
	return e.Note().UpdatedAt
}

func (e *Editor) Categories() []models.Category {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Category(nil), e.categories...)
}
