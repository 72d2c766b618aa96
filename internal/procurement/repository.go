package procurement

import "context"

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPR(ctx context.Context, id string) (PurchaseRequest, []PRLine, error)
	ListPRs(ctx context.Context, filter PRFilter) ([]PurchaseRequest, int, error)
	GetPO(ctx context.Context, id string) (PurchaseOrder, error)
	ListOpenPOs(ctx context.Context) ([]PurchaseOrder, error)
}

// TxRepository exposes write operations inside a transaction.
type TxRepository interface {
	CreatePR(ctx context.Context, pr PurchaseRequest) error
	InsertPRLine(ctx context.Context, line PRLine) error
	UpdatePRStatus(ctx context.Context, id string, status PRStatus) error
	CreatePO(ctx context.Context, po PurchaseOrder) error
	UpdatePOStatus(ctx context.Context, id string, status POStatus) error
}
