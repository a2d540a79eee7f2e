package db

import (
	"time"

	"pocket-notes/internal/models"
)

const noteColumns = `n.id, n.title, n.content, n.category_id, c.name, c.color, n.created_at, n.updated_at`

func scanNote(row interface{ Scan(...any) error }) (*models.Note, error) {
	var n models.Note
	err := row.Scan(&n.ID, &n.Title, &n.Content, &n.Category, &n.CategoryName, &n.CategoryColor, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNotes lists a user's notes, most recently updated first. A nil
// categoryID lists every note.
func (d *DB) GetNotes(userID int64, categoryID *int64) ([]models.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes n LEFT JOIN categories c ON c.id = n.category_id WHERE n.user_id = ?`
	args := []any{userID}
	if categoryID != nil {
		q += ` AND n.category_id = ?`
		args = append(args, *categoryID)
	}
	q += ` ORDER BY n.updated_at DESC, n.id DESC`

	rows, err := d.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

func (d *DB) GetNote(userID, id int64) (*models.Note, error) {
	row := d.conn.QueryRow(`SELECT `+noteColumns+` FROM notes n LEFT JOIN categories c ON c.id = n.category_id WHERE n.user_id = ? AND n.id = ?`, userID, id)
	n, err := scanNote(row)
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

func (d *DB) CreateNote(userID int64, data models.NewNote) (*models.Note, error) {
	now := time.Now().UTC()
	result, err := d.conn.Exec(`INSERT INTO notes (user_id, category_id, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, data.Category, data.Title, data.Content, now, now)
	if err != nil {
		return nil, err
	}
	id, _ := result.LastInsertId()
	return d.GetNote(userID, id)
}

// UpdateNote applies the non-nil fields of patch and bumps updated_at.
func (d *DB) UpdateNote(userID, id int64, patch models.NotePatch) (*models.Note, error) {
	current, err := d.GetNote(userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		current.Title = *patch.Title
	}
	if patch.Content != nil {
		current.Content = *patch.Content
	}
	if patch.Category != nil {
		current.Category = patch.Category
	}

	updated := time.Now().UTC()
	if !updated.After(current.UpdatedAt) {
		updated = current.UpdatedAt.Add(time.Microsecond)
	}
	_, err = d.conn.Exec(`UPDATE notes SET title = ?, content = ?, category_id = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		current.Title, current.Content, current.Category, updated, userID, id)
	if err != nil {
		return nil, err
	}
	return d.GetNote(userID, id)
}

func (d *DB) DeleteNote(userID, id int64) error {
	result, err := d.conn.Exec(`DELETE FROM notes WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
