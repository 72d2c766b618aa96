package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carmen-erp/carmen-erp/internal/audit"
	"github.com/carmen-erp/carmen-erp/internal/shared"
)

// AuditPort records procurement security/data events.
type AuditPort interface {
	LogEvent(ctx context.Context, eventType, userID string, details map[string]any) error
}

// IdempotencyPort deduplicates retried mutations keyed by client tokens.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, scope string) error
	Delete(ctx context.Context, key string) error
}

// Service orchestrates procurement flows.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, auditor AuditPort, idem IdempotencyPort) *Service {
	return &Service{repo: repo, audit: auditor, idempotency: idem}
}

// CreatePRInput describes a purchase request creation payload.
type CreatePRInput struct {
	RequestorID string
	Department  string
	Description string
	Currency    string
	Lines       []PRLineInput
}

// PRLineInput describes a request line.
type PRLineInput struct {
	ProductID   string
	Description string
	Qty         float64
	UnitPrice   float64
}

// CreatePOInput defines data to create a PO from an approved PR.
type CreatePOInput struct {
	PRID         string
	VendorID     string
	ExpectedDate time.Time
}

// CreatePurchaseRequest persists a PR header and lines in draft status.
func (s *Service) CreatePurchaseRequest(ctx context.Context, input CreatePRInput) (PurchaseRequest, error) {
	if len(input.Lines) == 0 {
		return PurchaseRequest{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	if input.RequestorID == "" {
		return PurchaseRequest{}, fmt.Errorf("%w: requestor required", ErrValidation)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}

	var amount float64
	for _, line := range input.Lines {
		if line.Qty <= 0 || line.UnitPrice < 0 {
			return PurchaseRequest{}, fmt.Errorf("%w: line qty/price", ErrValidation)
		}
		amount += line.Qty * line.UnitPrice
	}

	now := time.Now().UTC()
	pr := PurchaseRequest{
		ID:          uuid.NewString(),
		Number:      generateNumber("PR"),
		RequestorID: input.RequestorID,
		Department:  input.Department,
		Description: input.Description,
		Currency:    currency,
		Amount:      amount,
		Status:      PRStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.CreatePR(ctx, pr); err != nil {
			return err
		}
		for _, line := range input.Lines {
			if err := tx.InsertPRLine(ctx, PRLine{
				ID:          uuid.NewString(),
				PRID:        pr.ID,
				ProductID:   line.ProductID,
				Description: line.Description,
				Qty:         line.Qty,
				UnitPrice:   line.UnitPrice,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseRequest{}, err
	}
	s.recordAudit(ctx, audit.EventDataModification, input.RequestorID, map[string]any{
		"entity": "purchase_request", "op": "create", "number": pr.Number, "amount": pr.Amount,
	})
	return pr, nil
}

// GetPurchaseRequest fetches a PR with its lines.
func (s *Service) GetPurchaseRequest(ctx context.Context, id string) (PurchaseRequest, []PRLine, error) {
	return s.repo.GetPR(ctx, id)
}

// ListPurchaseRequests returns PRs matching the filter.
func (s *Service) ListPurchaseRequests(ctx context.Context, filter PRFilter) ([]PurchaseRequest, shared.Pagination, error) {
	list, total, err := s.repo.ListPRs(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// GetPurchaseOrder fetches a purchase order.
func (s *Service) GetPurchaseOrder(ctx context.Context, id string) (PurchaseOrder, error) {
	return s.repo.GetPO(ctx, id)
}

// ListOpenPurchaseOrders returns draft orders still awaiting approval.
func (s *Service) ListOpenPurchaseOrders(ctx context.Context) ([]PurchaseOrder, error) {
	return s.repo.ListOpenPOs(ctx)
}

// SubmitPurchaseRequest transitions a draft PR to SUBMITTED.
func (s *Service) SubmitPurchaseRequest(ctx context.Context, id, actorID string) error {
	pr, _, err := s.repo.GetPR(ctx, id)
	if err != nil {
		return err
	}
	if pr.Status != PRStatusDraft {
		return ErrInvalidState
	}
	if err := s.transitionPR(ctx, id, PRStatusSubmitted); err != nil {
		return err
	}
	s.recordAudit(ctx, audit.EventDataModification, actorID, map[string]any{
		"entity": "purchase_request", "op": "submit", "number": pr.Number,
	})
	return nil
}

// ApprovePurchaseRequest transitions a submitted PR to APPROVED. An
// optional idempotency key makes retried approvals harmless.
func (s *Service) ApprovePurchaseRequest(ctx context.Context, id, actorID, idempotencyKey string) error {
	inserted := false
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "procurement.pr_approve"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil
			}
			return err
		}
		inserted = true
	}
	pr, err := s.approvePR(ctx, id)
	if err != nil {
		// a failed attempt must not burn the key, or the client's retry
		// would report success without approving anything
		if inserted {
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
		return err
	}
	s.recordAudit(ctx, audit.EventDataModification, actorID, map[string]any{
		"entity": "purchase_request", "op": "approve", "number": pr.Number, "amount": pr.Amount,
	})
	return nil
}

func (s *Service) approvePR(ctx context.Context, id string) (PurchaseRequest, error) {
	pr, _, err := s.repo.GetPR(ctx, id)
	if err != nil {
		return PurchaseRequest{}, err
	}
	if pr.Status != PRStatusSubmitted {
		return PurchaseRequest{}, ErrInvalidState
	}
	if err := s.transitionPR(ctx, id, PRStatusApproved); err != nil {
		return PurchaseRequest{}, err
	}
	return pr, nil
}

// RejectPurchaseRequest transitions a submitted PR to REJECTED.
func (s *Service) RejectPurchaseRequest(ctx context.Context, id, actorID, reason string) error {
	pr, _, err := s.repo.GetPR(ctx, id)
	if err != nil {
		return err
	}
	if pr.Status != PRStatusSubmitted {
		return ErrInvalidState
	}
	if err := s.transitionPR(ctx, id, PRStatusRejected); err != nil {
		return err
	}
	s.recordAudit(ctx, audit.EventDataModification, actorID, map[string]any{
		"entity": "purchase_request", "op": "reject", "number": pr.Number, "reason": reason,
	})
	return nil
}

// CreatePurchaseOrder converts an approved PR into a draft PO.
func (s *Service) CreatePurchaseOrder(ctx context.Context, input CreatePOInput, actorID string) (PurchaseOrder, error) {
	if input.VendorID == "" {
		return PurchaseOrder{}, fmt.Errorf("%w: vendor required", ErrValidation)
	}
	pr, _, err := s.repo.GetPR(ctx, input.PRID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if pr.Status != PRStatusApproved {
		return PurchaseOrder{}, ErrInvalidState
	}

	po := PurchaseOrder{
		ID:           uuid.NewString(),
		Number:       generateNumber("PO"),
		PRID:         pr.ID,
		VendorID:     input.VendorID,
		Currency:     pr.Currency,
		Amount:       pr.Amount,
		Status:       POStatusDraft,
		ExpectedDate: input.ExpectedDate,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.CreatePO(ctx, po); err != nil {
			return err
		}
		return tx.UpdatePRStatus(ctx, pr.ID, PRStatusConverted)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, audit.EventDataModification, actorID, map[string]any{
		"entity": "purchase_order", "op": "create", "number": po.Number, "pr": pr.Number,
	})
	return po, nil
}

// ApprovePurchaseOrder transitions a draft PO to APPROVED.
func (s *Service) ApprovePurchaseOrder(ctx context.Context, id, actorID string) error {
	po, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return err
	}
	if po.Status != POStatusDraft {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdatePOStatus(ctx, id, POStatusApproved)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, audit.EventDataModification, actorID, map[string]any{
		"entity": "purchase_order", "op": "approve", "number": po.Number, "amount": po.Amount,
	})
	return nil
}

// CancelPurchaseOrder cancels a PO that has not been approved yet.
func (s *Service) CancelPurchaseOrder(ctx context.Context, id, actorID string) error {
	po, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return err
	}
	if po.Status != POStatusDraft {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdatePOStatus(ctx, id, POStatusCancelled)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, audit.EventDataModification, actorID, map[string]any{
		"entity": "purchase_order", "op": "cancel", "number": po.Number,
	})
	return nil
}

func (s *Service) transitionPR(ctx context.Context, id string, status PRStatus) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdatePRStatus(ctx, id, status)
	})
}

func (s *Service) recordAudit(ctx context.Context, eventType audit.EventType, actorID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.LogEvent(ctx, string(eventType), actorID, details)
}

func generateNumber(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
}
