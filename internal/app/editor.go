package app

import (
	"context"
	"fmt"

	"pocket-notes/internal/autosave"
	"pocket-notes/internal/models"
	"pocket-notes/internal/ui"
)

// OpenEditor loads a note with the category list and returns an editor for
// it. On failure the user is sent back to the list.
func OpenEditor(ctx context.Context, deps Deps, id int64, opts ...autosave.Option) (*autosave.Editor, error) {
	note, cats, err := loadNote(ctx, deps.API, id)
	if err != nil {
		deps.Log.Error().Err(err).Int64("note", id).Msg("open note")
		deps.Notify.Notify(ui.Toast{Message: "Failed to load note", Kind: ui.ToastError})
		deps.Nav.Navigate(ui.RouteList)
		return nil, fmt.Errorf("open note %d: %w", id, err)
	}

	base := []autosave.Option{
		autosave.WithCategories(cats),
		autosave.WithNavigator(deps.Nav),
		autosave.WithNotifier(deps.Notify),
		autosave.WithLogger(deps.Log),
	}
	return autosave.New(deps.API, *note, append(base, opts...)...), nil
}

func loadNote(ctx context.Context, api NotesAPI, id int64) (*models.Note, []models.Category, error) {
	note, err := api.Note(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	cats, err := api.Categories(ctx)
	if err != nil {
		return nil, nil, err
	}
	return note, cats, nil
}
