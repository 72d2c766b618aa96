package recipes

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carmen-erp/carmen-erp/internal/authz"
	"github.com/carmen-erp/carmen-erp/internal/platform/httpx"
	"github.com/carmen-erp/carmen-erp/internal/shared"
)

// Handler exposes recipe and costing endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        authz.Middleware
	validator *validator.Validate
}

// NewHandler builds the recipes handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers recipe routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.mw.Require(authz.ActionRead, authz.ResourceRecipes)).Get("/", h.list)
	r.With(h.mw.Require(authz.ActionRead, authz.ResourceRecipes)).Get("/{id}", h.get)
	r.With(h.mw.Require(authz.ActionRead, authz.ResourceRecipes)).Get("/{id}/cost", h.cost)
	r.With(h.mw.Require(authz.ActionCreate, authz.ResourceRecipes)).Post("/", h.create)
	r.With(h.mw.Require(authz.ActionDelete, authz.ResourceRecipes)).Delete("/{id}", h.delete)
}

type ingredientView struct {
	ID               string  `json:"id"`
	ProductID        string  `json:"product_id"`
	Name             string  `json:"name"`
	Qty              float64 `json:"qty"`
	Unit             string  `json:"unit"`
	WastagePct       float64 `json:"wastage_pct"`
	FallbackUnitCost float64 `json:"fallback_unit_cost"`
}

type recipeView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Yield       float64          `json:"yield"`
	YieldUnit   string           `json:"yield_unit"`
	Currency    string           `json:"currency"`
	CreatedAt   time.Time        `json:"created_at"`
	Ingredients []ingredientView `json:"ingredients,omitempty"`
}

func toRecipeView(rec Recipe, ingredients []Ingredient) recipeView {
	view := recipeView{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Yield:       rec.Yield,
		YieldUnit:   rec.YieldUnit,
		Currency:    rec.Currency,
		CreatedAt:   rec.CreatedAt,
	}
	for _, ing := range ingredients {
		view.Ingredients = append(view.Ingredients, ingredientView{
			ID:               ing.ID,
			ProductID:        ing.ProductID,
			Name:             ing.Name,
			Qty:              ing.Qty,
			Unit:             ing.Unit,
			WastagePct:       ing.WastagePct,
			FallbackUnitCost: ing.FallbackUnitCost,
		})
	}
	return view
}

type ingredientCostView struct {
	IngredientID string  `json:"ingredient_id"`
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	Qty          float64 `json:"qty"`
	EffectiveQty float64 `json:"effective_qty"`
	UnitCost     float64 `json:"unit_cost"`
	TotalCost    float64 `json:"total_cost"`
	PriceSource  string  `json:"price_source"`
}

type costView struct {
	RecipeID       string               `json:"recipe_id"`
	Currency       string               `json:"currency"`
	Ingredients    []ingredientCostView `json:"ingredients"`
	TotalCost      float64              `json:"total_cost"`
	CostPerPortion float64              `json:"cost_per_portion"`
	Yield          float64              `json:"yield"`
	CalculatedAt   time.Time            `json:"calculated_at"`
}

func toCostView(b CostBreakdown) costView {
	view := costView{
		RecipeID:       b.RecipeID,
		Currency:       b.Currency,
		TotalCost:      b.TotalCost,
		CostPerPortion: b.CostPerPortion,
		Yield:          b.Yield,
		CalculatedAt:   b.CalculatedAt,
	}
	for _, ic := range b.Ingredients {
		view.Ingredients = append(view.Ingredients, ingredientCostView{
			IngredientID: ic.IngredientID,
			ProductID:    ic.ProductID,
			Name:         ic.Name,
			Qty:          ic.Qty,
			EffectiveQty: ic.EffectiveQty,
			UnitCost:     ic.UnitCost,
			TotalCost:    ic.TotalCost,
			PriceSource:  ic.PriceSource,
		})
	}
	return view
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	list, pagination, err := h.service.ListRecipes(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list recipes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]recipeView, 0, len(list))
	for _, rec := range list {
		views = append(views, toRecipeView(rec, nil))
	}
	httpx.OK(w, http.StatusOK, map[string]any{"recipes": views, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	rec, ingredients, err := h.service.GetRecipe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, "get recipe", err)
		return
	}
	httpx.OK(w, http.StatusOK, toRecipeView(rec, ingredients))
}

func (h *Handler) cost(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.service.Cost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, "cost recipe", err)
		return
	}
	httpx.OK(w, http.StatusOK, toCostView(breakdown))
}

type createIngredientRequest struct {
	ProductID        string  `json:"product_id"`
	Name             string  `json:"name" validate:"required"`
	Qty              float64 `json:"qty" validate:"required,gt=0"`
	Unit             string  `json:"unit" validate:"required"`
	WastagePct       float64 `json:"wastage_pct" validate:"gte=0,lt=100"`
	FallbackUnitCost float64 `json:"fallback_unit_cost" validate:"gte=0"`
}

type createRecipeRequest struct {
	Name        string                    `json:"name" validate:"required"`
	Description string                    `json:"description"`
	Yield       float64                   `json:"yield" validate:"required,gt=0"`
	YieldUnit   string                    `json:"yield_unit"`
	Currency    string                    `json:"currency" validate:"omitempty,len=3"`
	Ingredients []createIngredientRequest `json:"ingredients" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRecipeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	input := CreateRecipeInput{
		Name:        req.Name,
		Description: req.Description,
		Yield:       req.Yield,
		YieldUnit:   req.YieldUnit,
		Currency:    req.Currency,
	}
	for _, ing := range req.Ingredients {
		input.Ingredients = append(input.Ingredients, IngredientInput{
			ProductID:        ing.ProductID,
			Name:             ing.Name,
			Qty:              ing.Qty,
			Unit:             ing.Unit,
			WastagePct:       ing.WastagePct,
			FallbackUnitCost: ing.FallbackUnitCost,
		})
	}
	rec, err := h.service.CreateRecipe(r.Context(), input)
	if err != nil {
		h.respondDomainError(w, "create recipe", err)
		return
	}
	httpx.OK(w, http.StatusCreated, toRecipeView(rec, nil))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteRecipe(r.Context(), id); err != nil {
		h.respondDomainError(w, "delete recipe", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, "Validation failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
