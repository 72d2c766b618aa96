package users

import (
	"errors"
	"time"
)

// User is a platform account.
type User struct {
	ID         string
	Email      string
	Name       string
	Role       string
	Department string
	Location   string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ListFilter narrows user listings.
type ListFilter struct {
	Department string
	Role       string
	Page       int
	PerPage    int
}

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrUnknownRole indicates a role name outside the hierarchy.
	ErrUnknownRole = errors.New("users: unknown role")
)
