package procurement

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

// Handler exposes procurement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	engine    *authz.Engine
	mw        authz.Middleware
	validator *validator.Validate
}

// NewHandler builds the procurement handler.
func NewHandler(logger *slog.Logger, service *Service, engine *authz.Engine, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		engine:    engine,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchase-requests", func(r chi.Router) {
		r.With(h.mw.Require(authz.ActionCreatePurchaseRequests, authz.ResourcePurchaseRequests)).
			Post("/", h.createPR)
		r.Get("/", h.listPRs)
		r.With(h.mw.Require(authz.ActionRead, authz.ResourcePurchaseRequests)).
			Get("/{id}", h.getPR)
		r.With(h.mw.Require(authz.ActionUpdate, authz.ResourcePurchaseRequests)).
			Post("/{id}/submit", h.submitPR)
		r.With(h.mw.Require(authz.ActionApprovePurchaseRequests, authz.ResourcePurchaseRequests)).
			Post("/{id}/approve", h.approvePR)
		r.With(h.mw.Require(authz.ActionApprovePurchaseRequests, authz.ResourcePurchaseRequests)).
			Post("/{id}/reject", h.rejectPR)
	})
	r.Route("/purchase-orders", func(r chi.Router) {
		r.With(h.mw.Require(authz.ActionCreatePurchaseOrders, authz.ResourcePurchaseOrders)).
			Post("/", h.createPO)
		r.With(h.mw.Require(authz.ActionRead, authz.ResourcePurchaseOrders)).
			Get("/", h.listOpenPOs)
		r.With(h.mw.Require(authz.ActionRead, authz.ResourcePurchaseOrders)).
			Get("/{id}", h.getPO)
		r.With(h.mw.Require(authz.ActionApprovePurchaseOrders, authz.ResourcePurchaseOrders)).
			Post("/{id}/approve", h.approvePO)
		r.With(h.mw.Require(authz.ActionUpdate, authz.ResourcePurchaseOrders)).
			Post("/{id}/cancel", h.cancelPO)
	})
}

type prLineView struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
}

type prView struct {
	ID          string       `json:"id"`
	Number      string       `json:"number"`
	RequestorID string       `json:"requestor_id"`
	Department  string       `json:"department"`
	Description string       `json:"description"`
	Currency    string       `json:"currency"`
	Amount      float64      `json:"amount"`
	Status      string       `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Lines       []prLineView `json:"lines,omitempty"`
}

func toPRView(pr PurchaseRequest, lines []PRLine) prView {
	view := prView{
		ID:          pr.ID,
		Number:      pr.Number,
		RequestorID: pr.RequestorID,
		Department:  pr.Department,
		Description: pr.Description,
		Currency:    pr.Currency,
		Amount:      pr.Amount,
		Status:      string(pr.Status),
		CreatedAt:   pr.CreatedAt,
		UpdatedAt:   pr.UpdatedAt,
	}
	for _, line := range lines {
		view.Lines = append(view.Lines, prLineView{
			ID:          line.ID,
			ProductID:   line.ProductID,
			Description: line.Description,
			Qty:         line.Qty,
			UnitPrice:   line.UnitPrice,
		})
	}
	return view
}

type poView struct {
	ID           string    `json:"id"`
	Number       string    `json:"number"`
	PRID         string    `json:"pr_id"`
	VendorID     string    `json:"vendor_id"`
	Currency     string    `json:"currency"`
	Amount       float64   `json:"amount"`
	Status       string    `json:"status"`
	ExpectedDate time.Time `json:"expected_date"`
	CreatedAt    time.Time `json:"created_at"`
}

func toPOView(po PurchaseOrder) poView {
	return poView{
		ID:           po.ID,
		Number:       po.Number,
		PRID:         po.PRID,
		VendorID:     po.VendorID,
		Currency:     po.Currency,
		Amount:       po.Amount,
		Status:       string(po.Status),
		ExpectedDate: po.ExpectedDate,
		CreatedAt:    po.CreatedAt,
	}
}

type createPRLineRequest struct {
	ProductID   string  `json:"product_id" validate:"required"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

type createPRRequest struct {
	Description string                `json:"description" validate:"required"`
	Currency    string                `json:"currency" validate:"omitempty,len=3"`
	Lines       []createPRLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) createPR(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromContext(r.Context())
	var req createPRRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	input := CreatePRInput{
		RequestorID: user.ID,
		Department:  user.Department,
		Description: req.Description,
		Currency:    req.Currency,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, PRLineInput{
			ProductID:   line.ProductID,
			Description: line.Description,
			Qty:         line.Qty,
			UnitPrice:   line.UnitPrice,
		})
	}

	pr, err := h.service.CreatePurchaseRequest(r.Context(), input)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			httpx.Fail(w, http.StatusBadRequest, "Validation failed", err.Error())
			return
		}
		h.logger.Error("create purchase request", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, toPRView(pr, nil))
}

// listPRs authorizes directly so the decision's conditions can scope the
// query: staff see only their own requests, department managers their
// department's.
func (h *Handler) listPRs(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	result := h.engine.Authorize(r.Context(), authz.Request{
		User:     user,
		Action:   authz.ActionRead,
		Resource: authz.ResourcePurchaseRequests,
	})
	if !result.Allowed {
		httpx.Fail(w, http.StatusForbidden, "Insufficient permissions", map[string]any{
			"required": result.RequiredPermissions,
			"reason":   result.Reason,
		})
		return
	}

	page, perPage := shared.PageParams(r)
	filter := PRFilter{
		Status:  PRStatus(r.URL.Query().Get("status")),
		Page:    page,
		PerPage: perPage,
	}
	for _, cond := range result.Conditions {
		switch cond {
		case authz.ConditionOwnOnly:
			filter.RequestorID = user.ID
		case authz.ConditionDepartmentOnly:
			filter.Department = user.Department
		}
	}

	list, pagination, err := h.service.ListPurchaseRequests(r.Context(), filter)
	if err != nil {
		h.logger.Error("list purchase requests", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]prView, 0, len(list))
	for _, pr := range list {
		views = append(views, toPRView(pr, nil))
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"purchase_requests": views,
		"pagination":        pagination,
	})
}

func (h *Handler) getPR(w http.ResponseWriter, r *http.Request) {
	pr, lines, err := h.service.GetPurchaseRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get purchase request", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toPRView(pr, lines))
}

func (h *Handler) submitPR(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.service.SubmitPurchaseRequest(r.Context(), id, user.ID); err != nil {
		h.respondWorkflowError(w, "submit purchase request", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": id, "status": PRStatusSubmitted})
}

func (h *Handler) approvePR(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")
	key := r.Header.Get("Idempotency-Key")
	if err := h.service.ApprovePurchaseRequest(r.Context(), id, user.ID, key); err != nil {
		h.respondWorkflowError(w, "approve purchase request", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": id, "status": PRStatusApproved})
}

type rejectPRRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) rejectPR(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromContext(r.Context())
	var req rejectPRRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.RejectPurchaseRequest(r.Context(), id, user.ID, req.Reason); err != nil {
		h.respondWorkflowError(w, "reject purchase request", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": id, "status": PRStatusRejected})
}

type createPORequest struct {
	PRID         string    `json:"pr_id" validate:"required"`
	VendorID     string    `json:"vendor_id" validate:"required"`
	ExpectedDate time.Time `json:"expected_date"`
}

func (h *Handler) createPO(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromContext(r.Context())
	var req createPORequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	po, err := h.service.CreatePurchaseOrder(r.Context(), CreatePOInput{
		PRID:         req.PRID,
		VendorID:     req.VendorID,
		ExpectedDate: req.ExpectedDate,
	}, user.ID)
	if err != nil {
		h.respondWorkflowError(w, "create purchase order", err)
		return
	}
	httpx.OK(w, http.StatusCreated, toPOView(po))
}

func (h *Handler) listOpenPOs(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListOpenPurchaseOrders(r.Context())
	if err != nil {
		h.logger.Error("list open purchase orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]poView, 0, len(list))
	for _, po := range list {
		views = append(views, toPOView(po))
	}
	httpx.OK(w, http.StatusOK, map[string]any{"purchase_orders": views})
}

func (h *Handler) getPO(w http.ResponseWriter, r *http.Request) {
	po, err := h.service.GetPurchaseOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get purchase order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toPOView(po))
}

func (h *Handler) approvePO(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.service.ApprovePurchaseOrder(r.Context(), id, user.ID); err != nil {
		h.respondWorkflowError(w, "approve purchase order", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": id, "status": POStatusApproved})
}

func (h *Handler) cancelPO(w http.ResponseWriter, r *http.Request) {
	user, _ := authz.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.service.CancelPurchaseOrder(r.Context(), id, user.ID); err != nil {
		h.respondWorkflowError(w, "cancel purchase order", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": id, "status": POStatusCancelled})
}

func (h *Handler) respondWorkflowError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidState):
		httpx.RespondError(w, httpx.ErrInvalidState)
	case errors.Is(err, ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, "Validation failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
