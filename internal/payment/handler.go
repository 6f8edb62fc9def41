package payment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"khidmapay/internal/auth"
	"khidmapay/internal/logger"
	"khidmapay/internal/policy"
	"khidmapay/internal/provider"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type initiateRequest struct {
	BookingID int    `json:"booking_id" binding:"required,gt=0"`
	Provider  string `json:"provider" binding:"required,oneof=waafipay dmoney stripe"`
	PayerRef  string `json:"payer_ref" binding:"required"`
	AmountFr  *int64 `json:"amount_fr" binding:"omitempty,gt=0"`
}

// Initiate godoc
// @Summary      Initiate payment
// @Description  Collects payment for a booking through the chosen provider.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      initiateRequest  true  "Payment details"
// @Success      200      {object}  Payment
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /payments/initiate [post]
func (h *Handler) Initiate(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.Initiate(c.Request.Context(), userID, InitiateInput{
		BookingID: req.BookingID,
		Provider:  req.Provider,
		PayerRef:  req.PayerRef,
		AmountFr:  req.AmountFr,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Verify godoc
// @Summary      Verify payment
// @Description  Finalizes a pending test-mode payment, otherwise reports current status.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        paymentID  path      int  true  "Payment ID"
// @Success      200        {object}  Payment
// @Failure      400        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Router       /payments/{paymentID}/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	paymentID, err := strconv.Atoi(c.Param("paymentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	p, err := h.service.Verify(c.Request.Context(), userID, paymentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

type refundRequest struct {
	Reason string `json:"reason"`
}

// Refund godoc
// @Summary      Refund payment
// @Description  Cancels the paid booking and refunds per the cancellation policy.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        paymentID  path      int            true   "Payment ID"
// @Param        request    body      refundRequest  false  "Refund reason"
// @Success      200        {object}  RefundOutcome
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /payments/{paymentID}/refund [post]
func (h *Handler) Refund(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	paymentID, err := strconv.Atoi(c.Param("paymentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	var req refundRequest
	_ = c.ShouldBindJSON(&req)

	outcome, err := h.service.Refund(c.Request.Context(), userID, paymentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if req.Reason != "" {
		logger.Info("refund requested", "payment_id", paymentID, "actor_id", userID, "reason", req.Reason)
	}

	c.JSON(http.StatusOK, outcome)
}

// Cancel godoc
// @Summary      Cancel booking
// @Description  Cancels a booking and issues the policy-computed refund when paid.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  RefundOutcome
// @Failure      400        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	outcome, err := h.service.Cancel(c.Request.Context(), userID, bookingID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// CompleteService godoc
// @Summary      Complete service
// @Description  Marks the service delivered; professional funds release after the hold window.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  booking.Booking
// @Failure      400        {object}  api.ErrorResponse
// @Failure      403        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/complete [post]
func (h *Handler) CompleteService(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	b, err := h.service.CompleteService(c.Request.Context(), userID, bookingID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// respondError maps service errors onto HTTP statuses. Provider detail is
// logged server-side; callers get a generic message.
func (h *Handler) respondError(c *gin.Context, err error) {
	var provErr *provider.Error
	switch {
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrAlreadyRefunded), errors.Is(err, ErrAlreadyCancelled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, provider.ErrUnknownProvider):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, policy.ErrNoRefundWindow):
		c.JSON(http.StatusConflict, gin.H{"error": "no refund within 12h of the scheduled service"})
	case errors.As(err, &provErr):
		logger.WithError(provErr).Error("provider call failed", "provider", provErr.Provider, "retryable", provErr.Retryable)
		if provErr.Retryable {
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable, try again later"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment was declined by the provider"})
		}
	default:
		logger.WithError(err).Error("payment operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
