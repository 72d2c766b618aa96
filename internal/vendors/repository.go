package vendors

import (
	"context"
	"time"
)

// RepositoryPort describes persistence used by Service.
type RepositoryPort interface {
	CreateVendor(ctx context.Context, v Vendor) error
	GetVendor(ctx context.Context, id string) (Vendor, error)
	ListVendors(ctx context.Context, filter VendorFilter) ([]Vendor, int, error)
	UpdateVendor(ctx context.Context, v Vendor) error
	DeleteVendor(ctx context.Context, id string) error

	CreateCampaign(ctx context.Context, c Campaign) error
	GetCampaign(ctx context.Context, id string) (Campaign, error)
	ListCampaigns(ctx context.Context, status CampaignStatus) ([]Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id string, status CampaignStatus) error

	CreateSubmission(ctx context.Context, s PriceSubmission) error
	GetSubmission(ctx context.Context, id string) (PriceSubmission, error)
	ListSubmissions(ctx context.Context, campaignID string) ([]PriceSubmission, error)
	UpdateSubmissionStatus(ctx context.Context, id string, status PriceStatus) error
	// LatestActivePrice returns the newest active price for a product.
	LatestActivePrice(ctx context.Context, productID string) (PriceSubmission, error)
	// MarkExpiring flags active prices whose window ends before the cutoff.
	MarkExpiring(ctx context.Context, cutoff time.Time) (int, error)
	// ExpireDue expires prices whose window has closed.
	ExpireDue(ctx context.Context, now time.Time) (int, error)
	// ListExpiringSoon returns active or expiring prices ending before the cutoff.
	ListExpiringSoon(ctx context.Context, cutoff time.Time) ([]PriceSubmission, error)
}
