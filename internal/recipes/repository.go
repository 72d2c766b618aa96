package recipes

import "context"

// RepositoryPort describes persistence used by Service.
type RepositoryPort interface {
	CreateRecipe(ctx context.Context, r Recipe, ingredients []Ingredient) error
	GetRecipe(ctx context.Context, id string) (Recipe, []Ingredient, error)
	ListRecipes(ctx context.Context, page, perPage int) ([]Recipe, int, error)
	DeleteRecipe(ctx context.Context, id string) error
}
