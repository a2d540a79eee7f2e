package db

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pocket-notes/internal/models"
)

var ErrBadCredentials = errors.New("bad credentials")

func (d *DB) CreateUser(email, password, firstName, lastName string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	result, err := d.conn.Exec(
		`INSERT INTO users (email, password_hash, first_name, last_name, date_joined) VALUES (?, ?, ?, ?, ?)`,
		email, string(hash), firstName, lastName, time.Now().UTC(),
	)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	id, _ := result.LastInsertId()
	return d.GetUser(id)
}

func (d *DB) GetUser(id int64) (*models.User, error) {
	var u models.User
	err := d.conn.QueryRow(`SELECT id, email, first_name, last_name, date_joined FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.DateJoined)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords both return ErrBadCredentials.
func (d *DB) Authenticate(email, password string) (*models.User, error) {
	var id int64
	var hash string
	err := d.conn.QueryRow(`SELECT id, password_hash FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))).
		Scan(&id, &hash)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return d.GetUser(id)
}
