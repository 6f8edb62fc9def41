package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"khidmapay/internal/auth"
	"khidmapay/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{
		repo: NewRepository(db),
	}
}

// GetWallet godoc
// @Summary      Get wallet and balances
// @Description  Returns the professional's wallet with the reserved-aware balance view.
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} gin.H
// @Failure      500 {object} api.ErrorResponse
// @Router       /wallet [get]
func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	w, err := h.repo.GetOrCreate(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load wallet"})
		return
	}

	balance, err := h.repo.GetBalance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":  w,
		"balance": balance,
	})
}

// ListTransactions godoc
// @Summary      List wallet transactions
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} Transaction
// @Failure      500 {object} api.ErrorResponse
// @Router       /wallet/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.repo.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, txs)
}

// UpdatePayoutInfo godoc
// @Summary      Update payout destination
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body PayoutInfo true "Payout destination"
// @Success      200 {object} api.MessageResponse
// @Failure      400 {object} api.ErrorResponse
// @Router       /wallet/payout-info [put]
func (h *Handler) UpdatePayoutInfo(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var info PayoutInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout info"})
		return
	}

	switch info.Method {
	case MethodWaafiPay, MethodDMoney:
		if info.PayoutPhone == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payout_phone is required for mobile wallet payouts"})
			return
		}
	case MethodBank:
		if info.BankName == "" || info.BankAccount == "" || info.BankHolder == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bank_name, bank_account and bank_holder are required for bank payouts"})
			return
		}
	}

	if err := h.repo.UpdatePayoutInfo(c.Request.Context(), userID, info); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update payout info"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "payout info updated"})
}

// ReconcileWallet godoc
// @Summary      Reconcile a wallet against its transaction log
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        walletID path int true "Wallet ID"
// @Success      200 {object} ReconcileReport
// @Failure      409 {object} gin.H
// @Router       /admin/wallets/{walletID}/reconcile [post]
func (h *Handler) ReconcileWallet(c *gin.Context) {
	walletID, err := strconv.Atoi(c.Param("walletID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet ID"})
		return
	}

	report, err := h.repo.Reconcile(c.Request.Context(), walletID)
	if err != nil {
		if errors.Is(err, ErrLedgerMismatch) {
			c.JSON(http.StatusConflict, gin.H{
				"error":  "wallet failed reconciliation",
				"report": report,
			})
			return
		}
		logger.Error("reconcile failed", "wallet_id", walletID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reconcile wallet"})
		return
	}

	c.JSON(http.StatusOK, report)
}
