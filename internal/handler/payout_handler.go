package handler

import (
	"errors"
	"net/http"

	"payout-service/internal/domain/payout"
	"payout-service/internal/repository"
	"payout-service/internal/services"
	"payout-service/internal/transport/httpdto"
	payout_errors "payout-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type PayoutHandler struct {
	service *services.PayoutService
}

func NewPayoutHandler(service *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{service: service}
}

func (h *PayoutHandler) Create(c *gin.Context) {
	var req httpdto.CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), services.CreatePayoutInput{
		Amount:           *req.Amount,
		Currency:         req.Currency,
		RecipientName:    req.RecipientName,
		RecipientAccount: req.RecipientAccount,
		Description:      req.Description,
		CallbackURL:      req.CallbackURL,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromPayout(created)))
}

func (h *PayoutHandler) List(c *gin.Context) {
	var req httpdto.ListPayoutsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	filter := repository.PayoutFilter{
		Search:   req.Search,
		Status:   payout.Status(req.Status),
		Currency: payout.Currency(req.Currency),
		Ordering: req.Ordering,
		Page:     req.Page,
		Limit:    req.Limit,
	}
	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = repository.DefaultPageSize
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListPayoutsResponse{
		Payouts: httpdto.FromPayoutSlice(items),
		Total:   total,
		Page:    page,
		Limit:   limit,
	}))
}

func (h *PayoutHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromPayout(item)))
}

func (h *PayoutHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req httpdto.UpdatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), id, services.UpdatePayoutInput{
		Amount:           req.Amount,
		Currency:         req.Currency,
		RecipientName:    req.RecipientName,
		RecipientAccount: req.RecipientAccount,
		Description:      req.Description,
		CallbackURL:      req.CallbackURL,
		Status:           req.Status,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromPayout(updated)))
}

func (h *PayoutHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("payout not found", "NOT_FOUND"))
		return uuid.Nil, false
	}
	return id, true
}

func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
		c.JSON(http.StatusBadRequest, httpdto.NewValidationErrorResponse(fields))
		return
	}
	c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request body", "INVALID_REQUEST"))
}

// writeError maps service errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	var verr *payout_errors.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, httpdto.NewValidationErrorResponse(map[string]string{verr.Field: verr.Message}))
	case errors.Is(err, payout_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "VALIDATION_FAILED"))
	case errors.Is(err, payout_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("payout not found", "NOT_FOUND"))
	case errors.Is(err, payout_errors.ErrPayoutLocked):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "PAYOUT_LOCKED"))
	case errors.Is(err, payout_errors.ErrInvalidTransition):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "INVALID_TRANSITION"))
	case errors.Is(err, payout_errors.ErrConflict):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("payout was modified concurrently, retry", "CONFLICT"))
	case errors.Is(err, payout_errors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(err.Error(), "RATE_LIMITED"))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal server error", "INTERNAL_ERROR"))
	}
}

// RegisterRoutes mounts the payout routes on rg. createMiddleware runs only
// in front of creation.
func (h *PayoutHandler) RegisterRoutes(rg *gin.RouterGroup, createMiddleware ...gin.HandlerFunc) {
	payouts := rg.Group("/payouts")
	{
		payouts.POST("", append(createMiddleware, h.Create)...)
		payouts.GET("", h.List)
		payouts.GET("/:id", h.Get)
		payouts.PUT("/:id", h.Update)
		payouts.PATCH("/:id", h.Update)
		payouts.DELETE("/:id", h.Delete)
	}
}
