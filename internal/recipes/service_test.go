package recipes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carmen-erp/carmen-erp/internal/vendors"
)

type fakeRepo struct {
	recipes     map[string]Recipe
	ingredients map[string][]Ingredient
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		recipes:     make(map[string]Recipe),
		ingredients: make(map[string][]Ingredient),
	}
}

func (f *fakeRepo) CreateRecipe(_ context.Context, r Recipe, ingredients []Ingredient) error {
	f.recipes[r.ID] = r
	f.ingredients[r.ID] = ingredients
	return nil
}

func (f *fakeRepo) GetRecipe(_ context.Context, id string) (Recipe, []Ingredient, error) {
	r, ok := f.recipes[id]
	if !ok {
		return Recipe{}, nil, ErrNotFound
	}
	return r, f.ingredients[id], nil
}

func (f *fakeRepo) ListRecipes(context.Context, int, int) ([]Recipe, int, error) {
	var out []Recipe
	for _, r := range f.recipes {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (f *fakeRepo) DeleteRecipe(_ context.Context, id string) error {
	if _, ok := f.recipes[id]; !ok {
		return ErrNotFound
	}
	delete(f.recipes, id)
	delete(f.ingredients, id)
	return nil
}

type fakePrices struct {
	prices map[string]float64
}

func (f *fakePrices) LatestActivePrice(_ context.Context, productID string) (vendors.PriceSubmission, error) {
	price, ok := f.prices[productID]
	if !ok {
		return vendors.PriceSubmission{}, vendors.ErrNotFound
	}
	return vendors.PriceSubmission{ProductID: productID, Price: price, Status: vendors.PriceActive}, nil
}

func TestCreateRecipeValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil)

	_, err := svc.CreateRecipe(context.Background(), CreateRecipeInput{Name: "No yield", Yield: 0,
		Ingredients: []IngredientInput{{Name: "x", Qty: 1}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateRecipe(context.Background(), CreateRecipeInput{Name: "No lines", Yield: 4})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateRecipe(context.Background(), CreateRecipeInput{Name: "Bad wastage", Yield: 4,
		Ingredients: []IngredientInput{{Name: "x", Qty: 1, WastagePct: 100}}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCostUsesVendorPricesWithFallback(t *testing.T) {
	repo := newFakeRepo()
	prices := &fakePrices{prices: map[string]float64{"prod-beef": 12.0}}
	svc := NewService(repo, prices, nil)

	rec, err := svc.CreateRecipe(context.Background(), CreateRecipeInput{
		Name:  "Beef stew",
		Yield: 4,
		Ingredients: []IngredientInput{
			{ProductID: "prod-beef", Name: "Beef chuck", Qty: 2, Unit: "kg", WastagePct: 10, FallbackUnitCost: 9},
			{ProductID: "prod-carrot", Name: "Carrots", Qty: 1, Unit: "kg", FallbackUnitCost: 2},
		},
	})
	require.NoError(t, err)

	breakdown, err := svc.Cost(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, breakdown.Ingredients, 2)

	// beef: vendor price 12, wastage 10% -> 2.2kg * 12 = 26.4
	beef := breakdown.Ingredients[0]
	require.Equal(t, PriceSourceVendor, beef.PriceSource)
	require.InDelta(t, 2.2, beef.EffectiveQty, 0.001)
	require.InDelta(t, 26.4, beef.TotalCost, 0.001)

	// carrots: no vendor price -> fallback 2/kg
	carrot := breakdown.Ingredients[1]
	require.Equal(t, PriceSourceFallback, carrot.PriceSource)
	require.InDelta(t, 2.0, carrot.TotalCost, 0.001)

	require.InDelta(t, 28.4, breakdown.TotalCost, 0.001)
	require.InDelta(t, 7.1, breakdown.CostPerPortion, 0.001)
}

func TestCostWithoutPriceSource(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	rec, err := svc.CreateRecipe(context.Background(), CreateRecipeInput{
		Name:  "Plain rice",
		Yield: 10,
		Ingredients: []IngredientInput{
			{Name: "Rice", Qty: 1, Unit: "kg", FallbackUnitCost: 3},
		},
	})
	require.NoError(t, err)

	breakdown, err := svc.Cost(context.Background(), rec.ID)
	require.NoError(t, err)
	require.InDelta(t, 3.0, breakdown.TotalCost, 0.001)
	require.InDelta(t, 0.3, breakdown.CostPerPortion, 0.001)
	require.Equal(t, PriceSourceFallback, breakdown.Ingredients[0].PriceSource)
}

func TestCostNotFound(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil)
	_, err := svc.Cost(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
