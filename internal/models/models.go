package models

import "time"

type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	DateJoined time.Time `json:"date_joined"`
}

type Category struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	NotesCount int       `json:"notes_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Note is the server's view of a note. CategoryName and CategoryColor are
// read-only conveniences denormalized from the category.
type Note struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Category      *int64    `json:"category"`
	CategoryName  *string   `json:"category_name"`
	CategoryColor *string   `json:"category_color"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type AuthTokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterCredentials struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
}

type RegisterResult struct {
	User   User       `json:"user"`
	Tokens AuthTokens `json:"tokens"`
}

type NewCategory struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type SeedResult struct {
	Message string     `json:"message"`
	Created []Category `json:"created"`
}

type NewNote struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category *int64 `json:"category"`
}

// NotePatch is a partial note update. Nil fields are left untouched by the
// server.
type NotePatch struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	Category *int64  `json:"category,omitempty"`
}

func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Category == nil
}

// NoteList is the paginated shape of GET /notes/.
type NoteList struct {
	Count   int    `json:"count"`
	Results []Note `json:"results"`
}
