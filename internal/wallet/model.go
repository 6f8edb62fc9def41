package wallet

import "time"

// Ledger entry types.
const (
	TypeEarning        = "earning"
	TypeWithdrawal     = "withdrawal"
	TypeAdjustment     = "adjustment"
	TypeRefundReversal = "refund_reversal"
)

// Payout methods.
const (
	MethodWaafiPay = "waafipay"
	MethodDMoney   = "dmoney"
	MethodBank     = "bank"
)

// Wallet is the per-professional balance record. Amounts are whole Djibouti
// francs; DJF circulates with no minor unit. The cached fields are a fold
// over the transaction log and must always satisfy
// total_earned - total_withdrawn == balance + pending_balance.
type Wallet struct {
	ID               int       `db:"id" json:"id"`
	ProfessionalID   int       `db:"professional_id" json:"professional_id"`
	BalanceFr        int64     `db:"balance_fr" json:"balance_fr"`
	PendingBalanceFr int64     `db:"pending_balance_fr" json:"pending_balance_fr"`
	TotalEarnedFr    int64     `db:"total_earned_fr" json:"total_earned_fr"`
	TotalWithdrawnFr int64     `db:"total_withdrawn_fr" json:"total_withdrawn_fr"`
	CommissionRateBp *int64    `db:"commission_rate_bp" json:"commission_rate_bp,omitempty"`
	PayoutMethod     string    `db:"payout_method" json:"payout_method"`
	PayoutPhone      string    `db:"payout_phone" json:"payout_phone"`
	BankName         string    `db:"bank_name" json:"bank_name"`
	BankAccount      string    `db:"bank_account" json:"bank_account"`
	BankHolder       string    `db:"bank_holder" json:"bank_holder"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is an append-only ledger entry. Entries are immutable once
// written; BalanceAfterFr records balance + pending after the entry applied.
type Transaction struct {
	ID             int       `db:"id" json:"id"`
	WalletID       int       `db:"wallet_id" json:"wallet_id"`
	Type           string    `db:"type" json:"type"`
	AmountFr       int64     `db:"amount_fr" json:"amount_fr"`
	BalanceAfterFr int64     `db:"balance_after_fr" json:"balance_after_fr"`
	Description    string    `db:"description" json:"description"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Balance is the reserved-aware view served to callers. WithdrawableFr is
// available balance minus the sum of unresolved withdrawal reservations.
type Balance struct {
	AvailableFr    int64 `json:"available_fr"`
	PendingFr      int64 `json:"pending_fr"`
	ReservedFr     int64 `json:"reserved_fr"`
	WithdrawableFr int64 `json:"withdrawable_fr"`
}

// ReconcileReport compares the cached wallet fields against a fold over the
// transaction log.
type ReconcileReport struct {
	WalletID        int   `json:"wallet_id"`
	CachedHeldFr    int64 `json:"cached_held_fr"`
	LedgerHeldFr    int64 `json:"ledger_held_fr"`
	CachedWithdrawn int64 `json:"cached_withdrawn_fr"`
	LedgerWithdrawn int64 `json:"ledger_withdrawn_fr"`
	Conserved       bool  `json:"conserved"`
	OK              bool  `json:"ok"`
}
