package entity

import (
	"time"
)

// User owns staff records. Passwords are stored as bcrypt hashes.
type User struct {
	ID        string
	Email     string
	Password  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
