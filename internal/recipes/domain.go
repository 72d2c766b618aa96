package recipes

import (
	"errors"
	"time"
)

// Recipe is a costed kitchen recipe.
type Recipe struct {
	ID          string
	Name        string
	Description string
	// Yield is the number of portions one batch produces.
	Yield     float64
	YieldUnit string
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ingredient is one recipe line.
type Ingredient struct {
	ID        string
	RecipeID  string
	ProductID string
	Name      string
	Qty       float64
	Unit      string
	// WastagePct inflates the purchased quantity to cover trim loss.
	WastagePct float64
	// FallbackUnitCost is used when no live vendor price exists.
	FallbackUnitCost float64
}

// IngredientCost is the costed form of one ingredient line.
type IngredientCost struct {
	IngredientID string
	ProductID    string
	Name         string
	Qty          float64
	EffectiveQty float64
	UnitCost     float64
	TotalCost    float64
	PriceSource  string
}

// Price sources for an ingredient cost line.
const (
	PriceSourceVendor   = "vendor_price"
	PriceSourceFallback = "fallback"
)

// CostBreakdown is the rollup for a whole recipe.
type CostBreakdown struct {
	RecipeID       string
	Currency       string
	Ingredients    []IngredientCost
	TotalCost      float64
	CostPerPortion float64
	Yield          float64
	CalculatedAt   time.Time
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("recipes: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("recipes: invalid input")
)
