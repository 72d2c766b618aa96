package procurement

import (
	"errors"
	"time"
)

// Purchase request lifecycle statuses.
type PRStatus string

const (
	PRStatusDraft     PRStatus = "DRAFT"
	PRStatusSubmitted PRStatus = "SUBMITTED"
	PRStatusApproved  PRStatus = "APPROVED"
	PRStatusRejected  PRStatus = "REJECTED"
	PRStatusConverted PRStatus = "CONVERTED"
)

// Purchase order lifecycle statuses.
type POStatus string

const (
	POStatusDraft     POStatus = "DRAFT"
	POStatusApproved  POStatus = "APPROVED"
	POStatusCancelled POStatus = "CANCELLED"
)

// PurchaseRequest domain model.
type PurchaseRequest struct {
	ID          string
	Number      string
	RequestorID string
	Department  string
	Description string
	Currency    string
	Amount      float64
	Status      PRStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PRLine represents a requested item.
type PRLine struct {
	ID          string
	PRID        string
	ProductID   string
	Description string
	Qty         float64
	UnitPrice   float64
}

// PurchaseOrder domain model.
type PurchaseOrder struct {
	ID           string
	Number       string
	PRID         string
	VendorID     string
	Currency     string
	Amount       float64
	Status       POStatus
	ExpectedDate time.Time
	CreatedAt    time.Time
}

// PRFilter narrows purchase request listings.
type PRFilter struct {
	RequestorID string
	Department  string
	Status      PRStatus
	Page        int
	PerPage     int
}

var (
	// ErrInvalidState occurs when action violates the status workflow.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
)
