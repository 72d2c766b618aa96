package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carmen-erp/carmen-erp/internal/platform/db"
)

// Repository implements RepositoryPort on postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn inside one transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const prColumns = "id, number, requestor_id, department, description, currency, amount, status, created_at, updated_at"

// GetPR fetches a PR header and its lines.
func (r *Repository) GetPR(ctx context.Context, id string) (PurchaseRequest, []PRLine, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+prColumns+" FROM purchase_requests WHERE id = $1", id)
	var pr PurchaseRequest
	if err := row.Scan(&pr.ID, &pr.Number, &pr.RequestorID, &pr.Department, &pr.Description,
		&pr.Currency, &pr.Amount, &pr.Status, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRequest{}, nil, ErrNotFound
		}
		return PurchaseRequest{}, nil, err
	}

	rows, err := r.pool.Query(ctx,
		"SELECT id, pr_id, product_id, description, qty, unit_price FROM purchase_request_lines WHERE pr_id = $1 ORDER BY id", id)
	if err != nil {
		return PurchaseRequest{}, nil, err
	}
	defer rows.Close()

	var lines []PRLine
	for rows.Next() {
		var line PRLine
		if err := rows.Scan(&line.ID, &line.PRID, &line.ProductID, &line.Description, &line.Qty, &line.UnitPrice); err != nil {
			return PurchaseRequest{}, nil, err
		}
		lines = append(lines, line)
	}
	return pr, lines, rows.Err()
}

// ListPRs returns PRs matching the filter, newest first.
func (r *Repository) ListPRs(ctx context.Context, filter PRFilter) ([]PurchaseRequest, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.RequestorID != "" {
		where += " AND requestor_id = " + arg(filter.RequestorID)
	}
	if filter.Department != "" {
		where += " AND department = " + arg(filter.Department)
	}
	if filter.Status != "" {
		where += " AND status = " + arg(filter.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM purchase_requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := "SELECT " + prColumns + " FROM purchase_requests" + where +
		" ORDER BY created_at DESC LIMIT " + arg(perPage) + " OFFSET " + arg((page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []PurchaseRequest
	for rows.Next() {
		var pr PurchaseRequest
		if err := rows.Scan(&pr.ID, &pr.Number, &pr.RequestorID, &pr.Department, &pr.Description,
			&pr.Currency, &pr.Amount, &pr.Status, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, pr)
	}
	return list, total, rows.Err()
}

const poColumns = "id, number, pr_id, vendor_id, currency, amount, status, expected_date, created_at"

// GetPO fetches a purchase order.
func (r *Repository) GetPO(ctx context.Context, id string) (PurchaseOrder, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+poColumns+" FROM purchase_orders WHERE id = $1", id)
	var po PurchaseOrder
	if err := row.Scan(&po.ID, &po.Number, &po.PRID, &po.VendorID, &po.Currency, &po.Amount,
		&po.Status, &po.ExpectedDate, &po.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	return po, nil
}

// ListOpenPOs returns POs still in draft.
func (r *Repository) ListOpenPOs(ctx context.Context) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+poColumns+" FROM purchase_orders WHERE status = $1 ORDER BY created_at DESC", POStatusDraft)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := rows.Scan(&po.ID, &po.Number, &po.PRID, &po.VendorID, &po.Currency, &po.Amount,
			&po.Status, &po.ExpectedDate, &po.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, po)
	}
	return list, rows.Err()
}

func (t *txRepo) CreatePR(ctx context.Context, pr PurchaseRequest) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO purchase_requests (id, number, requestor_id, department, description, currency, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pr.ID, pr.Number, pr.RequestorID, pr.Department, pr.Description, pr.Currency, pr.Amount, pr.Status, pr.CreatedAt, pr.UpdatedAt)
	return err
}

func (t *txRepo) InsertPRLine(ctx context.Context, line PRLine) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO purchase_request_lines (id, pr_id, product_id, description, qty, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		line.ID, line.PRID, line.ProductID, line.Description, line.Qty, line.UnitPrice)
	return err
}

func (t *txRepo) UpdatePRStatus(ctx context.Context, id string, status PRStatus) error {
	tag, err := t.tx.Exec(ctx, "UPDATE purchase_requests SET status = $2, updated_at = NOW() WHERE id = $1", id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO purchase_orders (id, number, pr_id, vendor_id, currency, amount, status, expected_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		po.ID, po.Number, po.PRID, po.VendorID, po.Currency, po.Amount, po.Status, po.ExpectedDate, po.CreatedAt)
	return err
}

func (t *txRepo) UpdatePOStatus(ctx context.Context, id string, status POStatus) error {
	tag, err := t.tx.Exec(ctx, "UPDATE purchase_orders SET status = $2 WHERE id = $1", id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
