package vendors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements RepositoryPort on postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *Repository) CreateVendor(ctx context.Context, v Vendor) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO vendors (id, name, email, phone, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ID, v.Name, v.Email, v.Phone, v.Status, v.CreatedAt, v.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *Repository) GetVendor(ctx context.Context, id string) (Vendor, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT id, name, email, phone, status, created_at, updated_at FROM vendors WHERE id = $1", id)
	var v Vendor
	if err := row.Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, ErrNotFound
		}
		return Vendor{}, err
	}
	return v, nil
}

func (r *Repository) ListVendors(ctx context.Context, filter VendorFilter) ([]Vendor, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		where += " AND status = " + arg(filter.Status)
	}
	if filter.Search != "" {
		where += " AND name ILIKE " + arg("%"+filter.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM vendors"+where, args...).Scan(&total); err != nil {
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
	rows, err := r.pool.Query(ctx,
		"SELECT id, name, email, phone, status, created_at, updated_at FROM vendors"+where+
			" ORDER BY name LIMIT "+arg(perPage)+" OFFSET "+arg((page-1)*perPage), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, v)
	}
	return list, total, rows.Err()
}

func (r *Repository) UpdateVendor(ctx context.Context, v Vendor) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE vendors SET name = $2, email = $3, phone = $4, status = $5, updated_at = NOW()
		WHERE id = $1`,
		v.ID, v.Name, v.Email, v.Phone, v.Status)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteVendor(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM vendors WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const campaignColumns = "id, name, description, status, scheduled_start, scheduled_end, vendor_ids, created_by, created_at, updated_at"

func (r *Repository) CreateCampaign(ctx context.Context, c Campaign) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO price_campaigns (`+campaignColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Name, c.Description, c.Status, c.ScheduledStart, c.ScheduledEnd,
		c.VendorIDs, c.CreatedBy, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *Repository) GetCampaign(ctx context.Context, id string) (Campaign, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+campaignColumns+" FROM price_campaigns WHERE id = $1", id)
	var c Campaign
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Status, &c.ScheduledStart, &c.ScheduledEnd,
		&c.VendorIDs, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, err
	}
	return c, nil
}

func (r *Repository) ListCampaigns(ctx context.Context, status CampaignStatus) ([]Campaign, error) {
	query := "SELECT " + campaignColumns + " FROM price_campaigns"
	args := []any{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Campaign
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Status, &c.ScheduledStart, &c.ScheduledEnd,
			&c.VendorIDs, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *Repository) UpdateCampaignStatus(ctx context.Context, id string, status CampaignStatus) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE price_campaigns SET status = $2, updated_at = NOW() WHERE id = $1", id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const submissionColumns = "id, campaign_id, vendor_id, product_id, currency, price, valid_from, valid_to, status, created_at, updated_at"

func (r *Repository) CreateSubmission(ctx context.Context, s PriceSubmission) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO price_submissions (`+submissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.CampaignID, s.VendorID, s.ProductID, s.Currency, s.Price,
		s.ValidFrom, s.ValidTo, s.Status, s.CreatedAt, s.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *Repository) GetSubmission(ctx context.Context, id string) (PriceSubmission, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+submissionColumns+" FROM price_submissions WHERE id = $1", id)
	return scanSubmission(row)
}

func (r *Repository) ListSubmissions(ctx context.Context, campaignID string) ([]PriceSubmission, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+submissionColumns+" FROM price_submissions WHERE campaign_id = $1 ORDER BY created_at DESC", campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

func (r *Repository) UpdateSubmissionStatus(ctx context.Context, id string, status PriceStatus) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE price_submissions SET status = $2, updated_at = NOW() WHERE id = $1", id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) LatestActivePrice(ctx context.Context, productID string) (PriceSubmission, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+submissionColumns+` FROM price_submissions
		WHERE product_id = $1 AND status IN ($2, $3)
		ORDER BY valid_from DESC LIMIT 1`,
		productID, PriceActive, PriceExpiring)
	return scanSubmission(row)
}

func (r *Repository) MarkExpiring(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE price_submissions SET status = $1, updated_at = NOW()
		WHERE status = $2 AND valid_to <= $3`,
		PriceExpiring, PriceActive, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE price_submissions SET status = $1, updated_at = NOW()
		WHERE status IN ($2, $3) AND valid_to < $4`,
		PriceExpired, PriceActive, PriceExpiring, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) ListExpiringSoon(ctx context.Context, cutoff time.Time) ([]PriceSubmission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+submissionColumns+` FROM price_submissions
		WHERE status IN ($1, $2) AND valid_to <= $3
		ORDER BY valid_to`,
		PriceActive, PriceExpiring, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

func scanSubmission(row pgx.Row) (PriceSubmission, error) {
	var s PriceSubmission
	if err := row.Scan(&s.ID, &s.CampaignID, &s.VendorID, &s.ProductID, &s.Currency, &s.Price,
		&s.ValidFrom, &s.ValidTo, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PriceSubmission{}, ErrNotFound
		}
		return PriceSubmission{}, err
	}
	return s, nil
}

func collectSubmissions(rows pgx.Rows) ([]PriceSubmission, error) {
	var list []PriceSubmission
	for rows.Next() {
		var s PriceSubmission
		if err := rows.Scan(&s.ID, &s.CampaignID, &s.VendorID, &s.ProductID, &s.Currency, &s.Price,
			&s.ValidFrom, &s.ValidTo, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
