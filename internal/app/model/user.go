package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User backs ownership checks and the auth endpoints.
type User struct {
	ID           string    `db:"id" gorm:"primaryKey;size:36"`
	Email        string    `db:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `db:"password_hash" gorm:"size:255;not null"`
	Role         string    `db:"role" gorm:"size:20;not null;default:user"`
	CreatedAt    time.Time `db:"created_at" gorm:"autoCreateTime"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
