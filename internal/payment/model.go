package payment

import (
	"fmt"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

// Payment is one attempt to collect funds for a booking. Terminal records
// are immutable; a retry creates a new row under a fresh reference.
type Payment struct {
	ID             int        `db:"id" json:"id"`
	BookingID      int        `db:"booking_id" json:"booking_id"`
	Provider       string     `db:"provider" json:"provider"`
	PayerRef       string     `db:"payer_ref" json:"payer_ref"`
	AmountFr       int64      `db:"amount_fr" json:"amount_fr"`
	CommissionFr   int64      `db:"commission_fr" json:"commission_fr"`
	ProfessionalFr int64      `db:"professional_fr" json:"professional_fr"`
	Reference      string     `db:"reference" json:"reference"`
	ProviderTxnID  string     `db:"provider_txn_id" json:"provider_txn_id,omitempty"`
	Status         string     `db:"status" json:"status"`
	TestMode       bool       `db:"test_mode" json:"test_mode"`
	ErrorMessage   string     `db:"error_message" json:"error_message,omitempty"`
	InitiatedAt    time.Time  `db:"initiated_at" json:"initiated_at"`
	VerifiedAt     *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	RefundedAt     *time.Time `db:"refunded_at" json:"refunded_at,omitempty"`
}

// ManualRefund is an obligation row written when a rail cannot push the
// refund back itself. Ops settles these out of band.
type ManualRefund struct {
	ID        int       `db:"id" json:"id"`
	PaymentID int       `db:"payment_id" json:"payment_id"`
	BookingID int       `db:"booking_id" json:"booking_id"`
	ClientID  int       `db:"client_id" json:"client_id"`
	AmountFr  int64     `db:"amount_fr" json:"amount_fr"`
	Provider  string    `db:"provider" json:"provider"`
	Status    string    `db:"status" json:"status"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	ManualRefundOpen    = "open"
	ManualRefundSettled = "settled"
)

// NewReference generates the per-attempt transaction reference. Unique per
// attempt, so a retry never reuses the reference of a failed submission.
func NewReference(bookingID int) string {
	return fmt.Sprintf("KP-%d-%d", time.Now().UnixNano(), bookingID)
}
