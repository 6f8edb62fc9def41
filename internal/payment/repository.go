package payment

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrDuplicateCompleted fires off the partial unique index on completed
	// payments: a second attempt finished after another already settled the
	// booking.
	ErrDuplicateCompleted = errors.New("booking already has a completed payment")
	ErrNotPending         = errors.New("payment is not pending")
)

const uniqueViolation = "23505"

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const paymentColumns = `id, booking_id, provider, payer_ref, amount_fr, commission_fr, professional_fr, reference, provider_txn_id, status, test_mode, error_message, initiated_at, verified_at, refunded_at`

func (r *repository) Create(ctx context.Context, p *Payment) (*Payment, error) {
	query := `
		INSERT INTO payments (booking_id, provider, payer_ref, amount_fr, commission_fr, professional_fr, reference, status, test_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
		RETURNING ` + paymentColumns

	var created Payment
	err := r.db.GetContext(ctx, &created, query,
		p.BookingID, p.Provider, p.PayerRef, p.AmountFr, p.CommissionFr, p.ProfessionalFr, p.Reference, p.TestMode)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetCompletedByBookingID(ctx context.Context, bookingID int) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1 AND status = 'completed'`,
		bookingID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListByBookingID(ctx context.Context, bookingID int) ([]Payment, error) {
	var payments []Payment
	err := r.db.SelectContext(ctx, &payments,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1 ORDER BY initiated_at DESC, id DESC`,
		bookingID)
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// Complete flips the payment record to completed and the booking to
// confirmed/paid in one transaction, so a crash between the two writes
// cannot leave a paid booking without its settled record. The partial
// unique index on completed payments rejects a second winner for the same
// booking.
func (r *repository) Complete(ctx context.Context, paymentID int, providerTxnID string, bookingID int, commissionFr int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE payments
		 SET status = 'completed', provider_txn_id = $2, verified_at = NOW()
		 WHERE id = $1 AND status = 'pending'`,
		paymentID, providerTxnID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateCompleted
		}
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotPending
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE bookings
		 SET status = 'confirmed', payment_status = 'paid', commission_fr = $2
		 WHERE id = $1 AND payment_status IN ('unpaid', 'pending') AND status <> 'cancelled'`,
		bookingID, commissionFr,
	)
	if err != nil {
		return err
	}

	affected, err = result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDuplicateCompleted
	}

	return tx.Commit()
}

func (r *repository) MarkFailed(ctx context.Context, id int, errorMessage string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments
		 SET status = 'failed', error_message = $2
		 WHERE id = $1 AND status = 'pending'`,
		id, errorMessage,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotPending
	}

	return nil
}

// MarkRefunded flips the completed payment to refunded and the booking to
// cancelled/refunded together.
func (r *repository) MarkRefunded(ctx context.Context, paymentID, bookingID int, refundFr int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE payments
		 SET status = 'refunded', refunded_at = NOW()
		 WHERE id = $1 AND status = 'completed'`,
		paymentID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotPending
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE bookings
		 SET status = 'cancelled', payment_status = 'refunded', refund_fr = $2
		 WHERE id = $1 AND payment_status = 'paid'`,
		bookingID, refundFr,
	)
	if err != nil {
		return err
	}

	affected, err = result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotPending
	}

	return tx.Commit()
}

func (r *repository) CreateManualRefund(ctx context.Context, m *ManualRefund) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO manual_refunds (payment_id, booking_id, client_id, amount_fr, provider, status, reason)
		 VALUES ($1, $2, $3, $4, $5, 'open', $6)`,
		m.PaymentID, m.BookingID, m.ClientID, m.AmountFr, m.Provider, m.Reason,
	)
	return err
}
