package payment

import "context"

type Repository interface {
	Create(ctx context.Context, p *Payment) (*Payment, error)
	GetByID(ctx context.Context, id int) (*Payment, error)
	GetCompletedByBookingID(ctx context.Context, bookingID int) (*Payment, error)
	ListByBookingID(ctx context.Context, bookingID int) ([]Payment, error)

	// Complete settles a successful provider call: the payment record and
	// the booking flip together in one transaction.
	Complete(ctx context.Context, paymentID int, providerTxnID string, bookingID int, commissionFr int64) error

	MarkFailed(ctx context.Context, id int, errorMessage string) error

	// MarkRefunded flips the payment record and the booking
	// (cancelled/refunded) together in one transaction.
	MarkRefunded(ctx context.Context, paymentID, bookingID int, refundFr int64) error

	CreateManualRefund(ctx context.Context, m *ManualRefund) error
}
