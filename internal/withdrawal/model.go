package withdrawal

import "time"

// Withdrawal state machine: pending -> processing -> completed, or
// pending -> rejected. A pending or processing request reserves its amount
// against the wallet's withdrawable balance until it resolves.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusRejected   = "rejected"
)

type Request struct {
	ID             int        `db:"id" json:"id"`
	WalletID       int        `db:"wallet_id" json:"wallet_id"`
	ProfessionalID int        `db:"professional_id" json:"professional_id"`
	AmountFr       int64      `db:"amount_fr" json:"amount_fr"`
	Method         string     `db:"method" json:"method"`
	PayoutPhone    string     `db:"payout_phone" json:"payout_phone,omitempty"`
	BankName       string     `db:"bank_name" json:"bank_name,omitempty"`
	BankAccount    string     `db:"bank_account" json:"bank_account,omitempty"`
	BankHolder     string     `db:"bank_holder" json:"bank_holder,omitempty"`
	Status         string     `db:"status" json:"status"`
	AdminNotes     string     `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	ProcessedAt    *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}
