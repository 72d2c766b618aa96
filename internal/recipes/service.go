package recipes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carmen-erp/carmen-erp/internal/shared"
	"github.com/carmen-erp/carmen-erp/internal/vendors"
)

// PriceSource supplies the latest live vendor price for a product.
type PriceSource interface {
	LatestActivePrice(ctx context.Context, productID string) (vendors.PriceSubmission, error)
}

// Service holds recipe storage and the costing calculator.
type Service struct {
	repo   RepositoryPort
	prices PriceSource
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the recipes service. prices may be nil; costing
// then relies on fallback unit costs alone.
func NewService(repo RepositoryPort, prices PriceSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, prices: prices, logger: logger, now: time.Now}
}

// CreateRecipeInput is the recipe creation payload.
type CreateRecipeInput struct {
	Name        string
	Description string
	Yield       float64
	YieldUnit   string
	Currency    string
	Ingredients []IngredientInput
}

// IngredientInput is one recipe line in the payload.
type IngredientInput struct {
	ProductID        string
	Name             string
	Qty              float64
	Unit             string
	WastagePct       float64
	FallbackUnitCost float64
}

// CreateRecipe persists a recipe with its ingredient lines.
func (s *Service) CreateRecipe(ctx context.Context, input CreateRecipeInput) (Recipe, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Recipe{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if input.Yield <= 0 {
		return Recipe{}, fmt.Errorf("%w: yield must be positive", ErrValidation)
	}
	if len(input.Ingredients) == 0 {
		return Recipe{}, fmt.Errorf("%w: at least one ingredient required", ErrValidation)
	}
	for _, ing := range input.Ingredients {
		if ing.Qty <= 0 {
			return Recipe{}, fmt.Errorf("%w: ingredient qty must be positive", ErrValidation)
		}
		if ing.WastagePct < 0 || ing.WastagePct >= 100 {
			return Recipe{}, fmt.Errorf("%w: wastage pct out of range", ErrValidation)
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	yieldUnit := input.YieldUnit
	if yieldUnit == "" {
		yieldUnit = "portions"
	}
	now := s.now().UTC()
	rec := Recipe{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Yield:       input.Yield,
		YieldUnit:   yieldUnit,
		Currency:    currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ingredients := make([]Ingredient, 0, len(input.Ingredients))
	for _, ing := range input.Ingredients {
		ingredients = append(ingredients, Ingredient{
			ID:               uuid.NewString(),
			RecipeID:         rec.ID,
			ProductID:        ing.ProductID,
			Name:             ing.Name,
			Qty:              ing.Qty,
			Unit:             ing.Unit,
			WastagePct:       ing.WastagePct,
			FallbackUnitCost: ing.FallbackUnitCost,
		})
	}
	if err := s.repo.CreateRecipe(ctx, rec, ingredients); err != nil {
		return Recipe{}, err
	}
	return rec, nil
}

// GetRecipe fetches a recipe with its ingredients.
func (s *Service) GetRecipe(ctx context.Context, id string) (Recipe, []Ingredient, error) {
	return s.repo.GetRecipe(ctx, id)
}

// ListRecipes returns a page of recipes.
func (s *Service) ListRecipes(ctx context.Context, page, perPage int) ([]Recipe, shared.Pagination, error) {
	list, total, err := s.repo.ListRecipes(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, perPage, total), nil
}

// DeleteRecipe removes a recipe and its ingredient lines.
func (s *Service) DeleteRecipe(ctx context.Context, id string) error {
	return s.repo.DeleteRecipe(ctx, id)
}

// Cost computes the current cost breakdown for a recipe. Each ingredient
// uses the latest live vendor price when one exists, falling back to the
// recorded fallback unit cost. Wastage inflates the purchased quantity
// before costing.
func (s *Service) Cost(ctx context.Context, recipeID string) (CostBreakdown, error) {
	rec, ingredients, err := s.repo.GetRecipe(ctx, recipeID)
	if err != nil {
		return CostBreakdown{}, err
	}

	breakdown := CostBreakdown{
		RecipeID:     rec.ID,
		Currency:     rec.Currency,
		Yield:        rec.Yield,
		CalculatedAt: s.now().UTC(),
	}
	for _, ing := range ingredients {
		unitCost := ing.FallbackUnitCost
		source := PriceSourceFallback
		if s.prices != nil && ing.ProductID != "" {
			price, err := s.prices.LatestActivePrice(ctx, ing.ProductID)
			switch {
			case err == nil:
				unitCost = price.Price
				source = PriceSourceVendor
			case errors.Is(err, vendors.ErrNotFound):
				// keep fallback
			default:
				return CostBreakdown{}, err
			}
		}
		effectiveQty := ing.Qty * (1 + ing.WastagePct/100)
		total := effectiveQty * unitCost
		breakdown.Ingredients = append(breakdown.Ingredients, IngredientCost{
			IngredientID: ing.ID,
			ProductID:    ing.ProductID,
			Name:         ing.Name,
			Qty:          ing.Qty,
			EffectiveQty: effectiveQty,
			UnitCost:     unitCost,
			TotalCost:    total,
			PriceSource:  source,
		})
		breakdown.TotalCost += total
	}
	breakdown.CostPerPortion = breakdown.TotalCost / rec.Yield
	return breakdown, nil
}
