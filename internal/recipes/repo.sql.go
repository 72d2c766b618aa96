package recipes

import (
	"context"
	"errors"

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

func (r *Repository) CreateRecipe(ctx context.Context, rec Recipe, ingredients []Ingredient) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO recipes (id, name, description, yield, yield_unit, currency, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.ID, rec.Name, rec.Description, rec.Yield, rec.YieldUnit, rec.Currency, rec.CreatedAt, rec.UpdatedAt)
		if err != nil {
			return err
		}
		for _, ing := range ingredients {
			_, err := tx.Exec(ctx, `
				INSERT INTO recipe_ingredients (id, recipe_id, product_id, name, qty, unit, wastage_pct, fallback_unit_cost)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				ing.ID, ing.RecipeID, ing.ProductID, ing.Name, ing.Qty, ing.Unit, ing.WastagePct, ing.FallbackUnitCost)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetRecipe(ctx context.Context, id string) (Recipe, []Ingredient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, yield, yield_unit, currency, created_at, updated_at
		FROM recipes WHERE id = $1`, id)
	var rec Recipe
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.Yield, &rec.YieldUnit,
		&rec.Currency, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Recipe{}, nil, ErrNotFound
		}
		return Recipe{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, recipe_id, product_id, name, qty, unit, wastage_pct, fallback_unit_cost
		FROM recipe_ingredients WHERE recipe_id = $1 ORDER BY name`, id)
	if err != nil {
		return Recipe{}, nil, err
	}
	defer rows.Close()

	var ingredients []Ingredient
	for rows.Next() {
		var ing Ingredient
		if err := rows.Scan(&ing.ID, &ing.RecipeID, &ing.ProductID, &ing.Name,
			&ing.Qty, &ing.Unit, &ing.WastagePct, &ing.FallbackUnitCost); err != nil {
			return Recipe{}, nil, err
		}
		ingredients = append(ingredients, ing)
	}
	return rec, ingredients, rows.Err()
}

func (r *Repository) ListRecipes(ctx context.Context, page, perPage int) ([]Recipe, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM recipes").Scan(&total); err != nil {
		return nil, 0, err
	}
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, yield, yield_unit, currency, created_at, updated_at
		FROM recipes ORDER BY name LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Recipe
	for rows.Next() {
		var rec Recipe
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.Yield, &rec.YieldUnit,
			&rec.Currency, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, rec)
	}
	return list, total, rows.Err()
}

func (r *Repository) DeleteRecipe(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM recipe_ingredients WHERE recipe_id = $1", id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, "DELETE FROM recipes WHERE id = $1", id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
