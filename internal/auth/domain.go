package auth

import "time"

// Account carries the credential fields of a user record.
type Account struct {
	ID           string
	Email        string
	Name         string
	Role         string
	Department   string
	Location     string
	PasswordHash string
	IsActive     bool
}

// SessionRecord mirrors a server side session row kept for device audit.
type SessionRecord struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	IP        string
	UserAgent string
}
