package procurement

import (
	"context"
	"errors"

	"github.com/carmen-erp/carmen-erp/internal/authz"
)

// Lookup exposes purchase request and order attributes to the
// authorization layer for condition enforcement.
type Lookup struct {
	repo RepositoryPort
}

// NewLookup constructs the attribute lookup.
func NewLookup(repo RepositoryPort) *Lookup {
	return &Lookup{repo: repo}
}

// ResourceAttributes resolves ownership, department and amount facts for
// the given resource instance.
func (l *Lookup) ResourceAttributes(ctx context.Context, resource authz.Resource, id string) (authz.ResourceAttributes, error) {
	switch resource {
	case authz.ResourcePurchaseRequests:
		pr, _, err := l.repo.GetPR(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return authz.ResourceAttributes{}, authz.ErrResourceNotFound
			}
			return authz.ResourceAttributes{}, err
		}
		return authz.ResourceAttributes{
			OwnerID:    pr.RequestorID,
			Department: pr.Department,
			Amount:     pr.Amount,
		}, nil
	case authz.ResourcePurchaseOrders:
		po, err := l.repo.GetPO(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return authz.ResourceAttributes{}, authz.ErrResourceNotFound
			}
			return authz.ResourceAttributes{}, err
		}
		// POs inherit scoping facts from the originating PR.
		pr, _, err := l.repo.GetPR(ctx, po.PRID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return authz.ResourceAttributes{Amount: po.Amount}, nil
			}
			return authz.ResourceAttributes{}, err
		}
		return authz.ResourceAttributes{
			OwnerID:    pr.RequestorID,
			Department: pr.Department,
			Amount:     po.Amount,
		}, nil
	default:
		return authz.ResourceAttributes{}, authz.ErrAttributesUnavailable
	}
}
