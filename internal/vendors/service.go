package vendors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carmen-erp/carmen-erp/internal/audit"
	"github.com/carmen-erp/carmen-erp/internal/shared"
)

// ExpiringSoonWindow is how far ahead the lifecycle scan flags prices as
// expiring.
const ExpiringSoonWindow = 7 * 24 * time.Hour

// AuditPort records vendor security/data events.
type AuditPort interface {
	LogEvent(ctx context.Context, eventType, userID string, details map[string]any) error
}

// Service orchestrates vendor management and price collection.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the vendors service.
func NewService(repo RepositoryPort, auditor AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: auditor, logger: logger, now: time.Now}
}

// CreateVendorInput is the vendor creation payload.
type CreateVendorInput struct {
	Name  string
	Email string
	Phone string
}

// CreateVendor registers a new active vendor.
func (s *Service) CreateVendor(ctx context.Context, input CreateVendorInput, actorID string) (Vendor, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Vendor{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	now := s.now().UTC()
	v := Vendor{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:     input.Phone,
		Status:    VendorActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateVendor(ctx, v); err != nil {
		return Vendor{}, err
	}
	s.recordAudit(ctx, actorID, map[string]any{"entity": "vendor", "op": "create", "vendor": v.ID})
	return v, nil
}

// GetVendor fetches one vendor.
func (s *Service) GetVendor(ctx context.Context, id string) (Vendor, error) {
	return s.repo.GetVendor(ctx, id)
}

// ListVendors returns vendors matching the filter.
func (s *Service) ListVendors(ctx context.Context, filter VendorFilter) ([]Vendor, shared.Pagination, error) {
	list, total, err := s.repo.ListVendors(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// UpdateVendor applies vendor profile changes.
func (s *Service) UpdateVendor(ctx context.Context, v Vendor, actorID string) error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if v.Status != VendorActive && v.Status != VendorInactive {
		return fmt.Errorf("%w: status %q", ErrValidation, v.Status)
	}
	if err := s.repo.UpdateVendor(ctx, v); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, map[string]any{"entity": "vendor", "op": "update", "vendor": v.ID})
	return nil
}

// DeleteVendor removes a vendor record.
func (s *Service) DeleteVendor(ctx context.Context, id, actorID string) error {
	if err := s.repo.DeleteVendor(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, map[string]any{"entity": "vendor", "op": "delete", "vendor": id})
	return nil
}

// CreateCampaignInput is the payload for a new price collection campaign.
type CreateCampaignInput struct {
	Name           string
	Description    string
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	VendorIDs      []string
	CreatedBy      string
}

// CreateCampaign opens a draft campaign.
func (s *Service) CreateCampaign(ctx context.Context, input CreateCampaignInput) (Campaign, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Campaign{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if len(input.VendorIDs) == 0 {
		return Campaign{}, fmt.Errorf("%w: at least one vendor required", ErrValidation)
	}
	if !input.ScheduledEnd.IsZero() && !input.ScheduledEnd.After(input.ScheduledStart) {
		return Campaign{}, fmt.Errorf("%w: end must be after start", ErrValidation)
	}
	now := s.now().UTC()
	c := Campaign{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		Status:         CampaignDraft,
		ScheduledStart: input.ScheduledStart,
		ScheduledEnd:   input.ScheduledEnd,
		VendorIDs:      input.VendorIDs,
		CreatedBy:      input.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateCampaign(ctx, c); err != nil {
		return Campaign{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, map[string]any{"entity": "campaign", "op": "create", "campaign": c.ID})
	return c, nil
}

// GetCampaign fetches one campaign.
func (s *Service) GetCampaign(ctx context.Context, id string) (Campaign, error) {
	return s.repo.GetCampaign(ctx, id)
}

// ListCampaigns returns campaigns, optionally filtered by status.
func (s *Service) ListCampaigns(ctx context.Context, status CampaignStatus) ([]Campaign, error) {
	return s.repo.ListCampaigns(ctx, status)
}

// ActivateCampaign transitions a draft campaign to active so vendors can
// submit prices.
func (s *Service) ActivateCampaign(ctx context.Context, id, actorID string) error {
	return s.transitionCampaign(ctx, id, actorID, CampaignDraft, CampaignActive)
}

// CompleteCampaign closes an active campaign and activates its pending
// submissions.
func (s *Service) CompleteCampaign(ctx context.Context, id, actorID string) error {
	if err := s.transitionCampaign(ctx, id, actorID, CampaignActive, CampaignCompleted); err != nil {
		return err
	}
	submissions, err := s.repo.ListSubmissions(ctx, id)
	if err != nil {
		return err
	}
	for _, sub := range submissions {
		if sub.Status != PricePending {
			continue
		}
		if err := s.repo.UpdateSubmissionStatus(ctx, sub.ID, PriceActive); err != nil {
			return err
		}
	}
	return nil
}

// CancelCampaign cancels a draft or active campaign.
func (s *Service) CancelCampaign(ctx context.Context, id, actorID string) error {
	c, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != CampaignDraft && c.Status != CampaignActive {
		return ErrInvalidState
	}
	if err := s.repo.UpdateCampaignStatus(ctx, id, CampaignCancelled); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, map[string]any{"entity": "campaign", "op": "cancel", "campaign": id})
	return nil
}

// SubmitPriceInput is a vendor's quoted price for one product.
type SubmitPriceInput struct {
	CampaignID string
	VendorID   string
	ProductID  string
	Currency   string
	Price      float64
	ValidFrom  time.Time
	ValidTo    time.Time
}

// SubmitPrice records a pending price against an active campaign. The
// price goes live when the campaign completes.
func (s *Service) SubmitPrice(ctx context.Context, input SubmitPriceInput) (PriceSubmission, error) {
	if input.Price < 0 {
		return PriceSubmission{}, fmt.Errorf("%w: negative price", ErrValidation)
	}
	if input.ProductID == "" || input.VendorID == "" {
		return PriceSubmission{}, fmt.Errorf("%w: product and vendor required", ErrValidation)
	}
	if !input.ValidTo.After(input.ValidFrom) {
		return PriceSubmission{}, fmt.Errorf("%w: validity window", ErrValidation)
	}
	c, err := s.repo.GetCampaign(ctx, input.CampaignID)
	if err != nil {
		return PriceSubmission{}, err
	}
	if c.Status != CampaignActive {
		return PriceSubmission{}, ErrInvalidState
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	now := s.now().UTC()
	sub := PriceSubmission{
		ID:         uuid.NewString(),
		CampaignID: input.CampaignID,
		VendorID:   input.VendorID,
		ProductID:  input.ProductID,
		Currency:   currency,
		Price:      input.Price,
		ValidFrom:  input.ValidFrom,
		ValidTo:    input.ValidTo,
		Status:     PricePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		return PriceSubmission{}, err
	}
	return sub, nil
}

// ListSubmissions returns a campaign's price submissions.
func (s *Service) ListSubmissions(ctx context.Context, campaignID string) ([]PriceSubmission, error) {
	return s.repo.ListSubmissions(ctx, campaignID)
}

// LatestActivePrice returns the newest live price for a product.
func (s *Service) LatestActivePrice(ctx context.Context, productID string) (PriceSubmission, error) {
	return s.repo.LatestActivePrice(ctx, productID)
}

// ListExpiringSoon returns live prices whose validity ends within the
// expiring window.
func (s *Service) ListExpiringSoon(ctx context.Context) ([]PriceSubmission, error) {
	return s.repo.ListExpiringSoon(ctx, s.now().UTC().Add(ExpiringSoonWindow))
}

// ExpireDuePrices runs one lifecycle sweep: active prices nearing their
// window end become expiring, closed windows become expired. Invoked by
// the scheduled job.
func (s *Service) ExpireDuePrices(ctx context.Context) (marked, expired int, err error) {
	now := s.now().UTC()
	marked, err = s.repo.MarkExpiring(ctx, now.Add(ExpiringSoonWindow))
	if err != nil {
		return 0, 0, err
	}
	expired, err = s.repo.ExpireDue(ctx, now)
	if err != nil {
		return marked, 0, err
	}
	if marked > 0 || expired > 0 {
		s.logger.Info("price lifecycle sweep",
			slog.Int("marked_expiring", marked),
			slog.Int("expired", expired))
	}
	return marked, expired, nil
}

func (s *Service) transitionCampaign(ctx context.Context, id, actorID string, from, to CampaignStatus) error {
	c, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != from {
		return ErrInvalidState
	}
	if err := s.repo.UpdateCampaignStatus(ctx, id, to); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, map[string]any{
		"entity": "campaign", "op": string(to), "campaign": id,
	})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.LogEvent(ctx, string(audit.EventDataModification), actorID, details)
}
