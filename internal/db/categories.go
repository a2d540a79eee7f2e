package db

import (
	"time"

	"pocket-notes/internal/models"
)

// DefaultCategories are created for every user by SeedDefaultCategories.
var DefaultCategories = []models.NewCategory{
	{Name: "Random Thoughts", Color: "#F5C4A1"},
	{Name: "School", Color: "#F5E6A3"},
	{Name: "Personal", Color: "#A8D5D8"},
}

const categoryColumns = `c.id, c.name, c.color, c.created_at,
	(SELECT COUNT(*) FROM notes n WHERE n.category_id = c.id)`

func scanCategory(row interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt, &c.NotesCount); err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) GetCategories(userID int64) ([]models.Category, error) {
	rows, err := d.conn.Query(`SELECT `+categoryColumns+` FROM categories c WHERE c.user_id = ? ORDER BY c.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (d *DB) GetCategory(userID, id int64) (*models.Category, error) {
	row := d.conn.QueryRow(`SELECT `+categoryColumns+` FROM categories c WHERE c.user_id = ? AND c.id = ?`, userID, id)
	c, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (d *DB) CreateCategory(userID int64, name, color string) (*models.Category, error) {
	if color == "" {
		color = DefaultCategories[0].Color
	}
	result, err := d.conn.Exec(`INSERT INTO categories (user_id, name, color, created_at) VALUES (?, ?, ?, ?)`,
		userID, name, color, time.Now().UTC())
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	id, _ := result.LastInsertId()
	return d.GetCategory(userID, id)
}

// SeedDefaultCategories creates whichever default categories the user is
// missing and returns the ones it created.
func (d *DB) SeedDefaultCategories(userID int64) ([]models.Category, error) {
	created := []models.Category{}
	for _, def := range DefaultCategories {
		c, err := d.CreateCategory(userID, def.Name, def.Color)
		if err == ErrConflict {
			continue
		}
		if err != nil {
			return nil, err
		}
		created = append(created, *c)
	}
	return created, nil
}
