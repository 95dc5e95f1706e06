package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the stored identity record. Salt and PasswordHash hold the raw
// bytes supplied at registration and must never be serialized outward.
type User struct {
	ID           uuid.UUID `db:"id" json:"-"`
	Username     string    `db:"username" json:"-"`
	Salt         []byte    `db:"salt" json:"-"`
	PasswordHash []byte    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
}

// FilteredUser is the only view of a user that leaves the API.
type FilteredUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// Filter strips everything except the public identity fields.
func (u *User) Filter() FilteredUser {
	return FilteredUser{ID: u.ID, Username: u.Username}
}
