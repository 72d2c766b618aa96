package vendors

import (
	"context"
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

// Handler exposes vendor management and price collection endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        authz.Middleware
	validator *validator.Validate
}

// NewHandler builds the vendors handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers vendor routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/", func(r chi.Router) {
		r.With(h.mw.Require(authz.ActionRead, authz.ResourceVendors)).Get("/", h.listVendors)
		r.With(h.mw.Require(authz.ActionRead, authz.ResourceVendors)).Get("/{id}", h.getVendor)
		r.Group(func(r chi.Router) {
			r.Use(h.mw.Require(authz.ActionManageVendors, authz.ResourceVendors))
			r.Post("/", h.createVendor)
			r.Put("/{id}", h.updateVendor)
			r.Delete("/{id}", h.deleteVendor)
		})
	})
	r.Route("/campaigns", func(r chi.Router) {
		r.With(h.mw.Require(authz.ActionRead, authz.ResourceVendors)).Get("/", h.listCampaigns)
		r.With(h.mw.Require(authz.ActionRead, authz.ResourceVendors)).Get("/{id}", h.getCampaign)
		r.With(h.mw.Require(authz.ActionRead, authz.ResourceVendors)).Get("/{id}/submissions", h.listSubmissions)
		r.Group(func(r chi.Router) {
			r.Use(h.mw.Require(authz.ActionManageVendors, authz.ResourceVendors))
			r.Post("/", h.createCampaign)
			r.Post("/{id}/activate", h.activateCampaign)
			r.Post("/{id}/complete", h.completeCampaign)
			r.Post("/{id}/cancel", h.cancelCampaign)
			r.Post("/{id}/submissions", h.submitPrice)
		})
	})
	r.Route("/prices", func(r chi.Router) {
		r.Use(h.mw.Require(authz.ActionRead, authz.ResourceVendors))
		r.Get("/expiring", h.listExpiring)
		r.Get("/products/{id}/latest", h.latestPrice)
	})
}

type vendorView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toVendorView(v Vendor) vendorView {
	return vendorView{
		ID: v.ID, Name: v.Name, Email: v.Email, Phone: v.Phone,
		Status: v.Status, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt,
	}
}

type campaignView struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
	VendorIDs      []string  `json:"vendor_ids"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

func toCampaignView(c Campaign) campaignView {
	return campaignView{
		ID: c.ID, Name: c.Name, Description: c.Description, Status: string(c.Status),
		ScheduledStart: c.ScheduledStart, ScheduledEnd: c.ScheduledEnd,
		VendorIDs: c.VendorIDs, CreatedBy: c.CreatedBy, CreatedAt: c.CreatedAt,
	}
}

type submissionView struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	VendorID   string    `json:"vendor_id"`
	ProductID  string    `json:"product_id"`
	Currency   string    `json:"currency"`
	Price      float64   `json:"price"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidTo    time.Time `json:"valid_to"`
	Status     string    `json:"status"`
}

func toSubmissionView(s PriceSubmission) submissionView {
	return submissionView{
		ID: s.ID, CampaignID: s.CampaignID, VendorID: s.VendorID, ProductID: s.ProductID,
		Currency: s.Currency, Price: s.Price, ValidFrom: s.ValidFrom, ValidTo: s.ValidTo,
		Status: string(s.Status),
	}
}

func (h *Handler) listVendors(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	list, pagination, err := h.service.ListVendors(r.Context(), VendorFilter{
		Status:  r.URL.Query().Get("status"),
		Search:  r.URL.Query().Get("search"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.logger.Error("list vendors", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]vendorView, 0, len(list))
	for _, v := range list {
		views = append(views, toVendorView(v))
	}
	httpx.OK(w, http.StatusOK, map[string]any{"vendors": views, "pagination": pagination})
}

func (h *Handler) getVendor(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetVendor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, "get vendor", err)
		return
	}
	httpx.OK(w, http.StatusOK, toVendorView(v))
}

type createVendorRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

func (h *Handler) createVendor(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromContext(r.Context())
	var req createVendorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	v, err := h.service.CreateVendor(r.Context(), CreateVendorInput(req), user.ID)
	if err != nil {
		h.respondDomainError(w, "create vendor", err)
		return
	}
	httpx.OK(w, http.StatusCreated, toVendorView(v))
}

type updateVendorRequest struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
	Phone  string `json:"phone"`
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func (h *Handler) updateVendor(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromContext(r.Context())
	var req updateVendorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	v := Vendor{
		ID:     chi.URLParam(r, "id"),
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Status: req.Status,
	}
	if err := h.service.UpdateVendor(r.Context(), v, user.ID); err != nil {
		h.respondDomainError(w, "update vendor", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": v.ID})
}

func (h *Handler) deleteVendor(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteVendor(r.Context(), id, user.ID); err != nil {
		h.respondDomainError(w, "delete vendor", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCampaigns(r.Context(), CampaignStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.logger.Error("list campaigns", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]campaignView, 0, len(list))
	for _, c := range list {
		views = append(views, toCampaignView(c))
	}
	httpx.OK(w, http.StatusOK, map[string]any{"campaigns": views})
}

func (h *Handler) getCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, "get campaign", err)
		return
	}
	httpx.OK(w, http.StatusOK, toCampaignView(c))
}

type createCampaignRequest struct {
	Name           string    `json:"name" validate:"required"`
	Description    string    `json:"description"`
	ScheduledStart time.Time `json:"scheduled_start" validate:"required"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
	VendorIDs      []string  `json:"vendor_ids" validate:"required,min=1"`
}

func (h *Handler) createCampaign(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromContext(r.Context())
	var req createCampaignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	c, err := h.service.CreateCampaign(r.Context(), CreateCampaignInput{
		Name:           req.Name,
		Description:    req.Description,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
		VendorIDs:      req.VendorIDs,
		CreatedBy:      user.ID,
	})
	if err != nil {
		h.respondDomainError(w, "create campaign", err)
		return
	}
	httpx.OK(w, http.StatusCreated, toCampaignView(c))
}

func (h *Handler) activateCampaign(w http.ResponseWriter, r *http.Request) {
	h.campaignTransition(w, r, "activate campaign", h.service.ActivateCampaign)
}

func (h *Handler) completeCampaign(w http.ResponseWriter, r *http.Request) {
	h.campaignTransition(w, r, "complete campaign", h.service.CompleteCampaign)
}

func (h *Handler) cancelCampaign(w http.ResponseWriter, r *http.Request) {
	h.campaignTransition(w, r, "cancel campaign", h.service.CancelCampaign)
}

func (h *Handler) campaignTransition(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, id, actorID string) error) {
	user, _ := authz.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := fn(r.Context(), id, user.ID); err != nil {
		h.respondDomainError(w, op, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": id})
}

type submitPriceRequest struct {
	VendorID  string    `json:"vendor_id" validate:"required"`
	ProductID string    `json:"product_id" validate:"required"`
	Currency  string    `json:"currency" validate:"omitempty,len=3"`
	Price     float64   `json:"price" validate:"gte=0"`
	ValidFrom time.Time `json:"valid_from" validate:"required"`
	ValidTo   time.Time `json:"valid_to" validate:"required"`
}

func (h *Handler) submitPrice(w http.ResponseWriter, r *http.Request) {
	var req submitPriceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	sub, err := h.service.SubmitPrice(r.Context(), SubmitPriceInput{
		CampaignID: chi.URLParam(r, "id"),
		VendorID:   req.VendorID,
		ProductID:  req.ProductID,
		Currency:   req.Currency,
		Price:      req.Price,
		ValidFrom:  req.ValidFrom,
		ValidTo:    req.ValidTo,
	})
	if err != nil {
		h.respondDomainError(w, "submit price", err)
		return
	}
	httpx.OK(w, http.StatusCreated, toSubmissionView(sub))
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListSubmissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("list submissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]submissionView, 0, len(list))
	for _, s := range list {
		views = append(views, toSubmissionView(s))
	}
	httpx.OK(w, http.StatusOK, map[string]any{"submissions": views})
}

func (h *Handler) listExpiring(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListExpiringSoon(r.Context())
	if err != nil {
		h.logger.Error("list expiring prices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]submissionView, 0, len(list))
	for _, s := range list {
		views = append(views, toSubmissionView(s))
	}
	httpx.OK(w, http.StatusOK, map[string]any{"prices": views})
}

func (h *Handler) latestPrice(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.LatestActivePrice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, "latest price", err)
		return
	}
	httpx.OK(w, http.StatusOK, toSubmissionView(sub))
}

func (h *Handler) respondDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, ErrInvalidState):
		httpx.RespondError(w, httpx.ErrInvalidState)
	case errors.Is(err, ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, "Validation failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
