package booking

import "time"

// Booking lifecycle statuses.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Payment statuses. The only legal transitions are
// unpaid -> pending -> paid and paid -> refunded.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// Booking is the settlement view of a scheduled service engagement.
// Bookings are never deleted; cancellation is a soft state.
type Booking struct {
	ID             int        `db:"id" json:"id"`
	ClientID       int        `db:"client_id" json:"client_id"`
	ProfessionalID int        `db:"professional_id" json:"professional_id"`
	ScheduledAt    time.Time  `db:"scheduled_at" json:"scheduled_at"`
	AmountFr       int64      `db:"amount_fr" json:"amount_fr"`
	Status         string     `db:"status" json:"status"`
	PaymentStatus  string     `db:"payment_status" json:"payment_status"`
	CommissionFr   int64      `db:"commission_fr" json:"commission_fr"`
	RefundFr       int64      `db:"refund_fr" json:"refund_fr"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
