package vendors

import (
	"errors"
	"time"
)

// Vendor statuses.
const (
	VendorActive   = "active"
	VendorInactive = "inactive"
)

// Vendor is a supplier record.
type Vendor struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CampaignStatus is the price collection campaign lifecycle state.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Campaign is a price collection round inviting vendors to submit prices.
type Campaign struct {
	ID             string
	Name           string
	Description    string
	Status         CampaignStatus
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	VendorIDs      []string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PriceStatus is a submitted price's lifecycle state.
type PriceStatus string

const (
	PricePending  PriceStatus = "pending"
	PriceActive   PriceStatus = "active"
	PriceExpiring PriceStatus = "expiring"
	PriceExpired  PriceStatus = "expired"
)

// PriceSubmission is a vendor's quoted price with a validity window.
type PriceSubmission struct {
	ID         string
	CampaignID string
	VendorID   string
	ProductID  string
	Currency   string
	Price      float64
	ValidFrom  time.Time
	ValidTo    time.Time
	Status     PriceStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// VendorFilter narrows vendor listings.
type VendorFilter struct {
	Status  string
	Search  string
	Page    int
	PerPage int
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("vendors: not found")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("vendors: duplicate")
	// ErrInvalidState occurs when an action violates the lifecycle.
	ErrInvalidState = errors.New("vendors: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("vendors: invalid input")
)
