package withdrawal

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"khidmapay/internal/auth"
	"khidmapay/internal/logger"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Request godoc
// @Summary      Request withdrawal
// @Description  Reserves an amount of the withdrawable balance for payout.
// @Tags         withdrawals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      RequestInput  true  "Withdrawal details"
// @Success      201      {object}  Request
// @Failure      400      {object}  api.ErrorResponse
// @Failure      422      {object}  api.ErrorResponse
// @Router       /withdrawals [post]
func (h *Handler) Request(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var in RequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.service.Request(c.Request.Context(), userID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, req)
}

// List godoc
// @Summary      List my withdrawals
// @Tags         withdrawals
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  Request
// @Router       /withdrawals [get]
func (h *Handler) List(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	requests, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// Get godoc
// @Summary      Get withdrawal
// @Tags         withdrawals
// @Security     BearerAuth
// @Produce      json
// @Param        withdrawalID  path      int  true  "Withdrawal ID"
// @Success      200           {object}  Request
// @Failure      404           {object}  api.ErrorResponse
// @Router       /withdrawals/{withdrawalID} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("withdrawalID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal ID"})
		return
	}

	req, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// AdminList godoc
// @Summary      List withdrawals by status
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        status  query    string  false  "Status filter"  default(pending)
// @Success      200     {array}  Request
// @Router       /admin/withdrawals [get]
func (h *Handler) AdminList(c *gin.Context) {
	status := c.DefaultQuery("status", StatusPending)
	switch status {
	case StatusPending, StatusProcessing, StatusCompleted, StatusRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	requests, err := h.service.ListByStatus(c.Request.Context(), status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// Process godoc
// @Summary      Start processing a withdrawal
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        withdrawalID  path      int  true  "Withdrawal ID"
// @Success      200           {object}  Request
// @Failure      404           {object}  api.ErrorResponse
// @Failure      409           {object}  api.ErrorResponse
// @Router       /admin/withdrawals/{withdrawalID}/process [post]
func (h *Handler) Process(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("withdrawalID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal ID"})
		return
	}

	req, err := h.service.Process(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// Complete godoc
// @Summary      Complete a withdrawal
// @Description  Debits the wallet ledger and settles the request.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        withdrawalID  path      int  true  "Withdrawal ID"
// @Success      200           {object}  Request
// @Failure      404           {object}  api.ErrorResponse
// @Failure      409           {object}  api.ErrorResponse
// @Router       /admin/withdrawals/{withdrawalID}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("withdrawalID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal ID"})
		return
	}

	req, err := h.service.Complete(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

type rejectRequest struct {
	Notes string `json:"notes" binding:"required"`
}

// Reject godoc
// @Summary      Reject a withdrawal
// @Description  Releases the reservation and records the reason.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        withdrawalID  path      int            true  "Withdrawal ID"
// @Param        request       body      rejectRequest  true  "Rejection reason"
// @Success      200           {object}  Request
// @Failure      404           {object}  api.ErrorResponse
// @Failure      409           {object}  api.ErrorResponse
// @Router       /admin/withdrawals/{withdrawalID}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("withdrawalID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal ID"})
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.Reject(c.Request.Context(), id, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrBelowMinimum), errors.Is(err, ErrMissingPayoutDetails):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrExceedsAvailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.WithError(err).Error("withdrawal operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
