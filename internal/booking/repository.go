package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrInvalidTransition = errors.New("booking is not in a state that allows this transition")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const bookingColumns = `id, client_id, professional_id, scheduled_at, amount_fr, status, payment_status, commission_fr, refund_fr, completed_at, created_at`

func (r *repository) Create(ctx context.Context, clientID, professionalID int, scheduledAt time.Time, amountFr int64) (*Booking, error) {
	query := `
		INSERT INTO bookings (client_id, professional_id, scheduled_at, amount_fr, status, payment_status)
		VALUES ($1, $2, $3, $4, 'pending', 'unpaid')
		RETURNING ` + bookingColumns

	var b Booking
	err := r.db.GetContext(ctx, &b, query, clientID, professionalID, scheduledAt, amountFr)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var b Booking
	err := r.db.GetContext(ctx, &b, query, id)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *repository) SetPaymentPending(ctx context.Context, id int) error {
	query := `
		UPDATE bookings
		SET payment_status = 'pending'
		WHERE id = $1 AND payment_status = 'unpaid'
	`
	return r.transition(ctx, query, id)
}

func (r *repository) MarkCancelled(ctx context.Context, id int) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled'
		WHERE id = $1 AND status NOT IN ('cancelled', 'completed')
	`
	return r.transition(ctx, query, id)
}

func (r *repository) MarkCompleted(ctx context.Context, id int) (*Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'completed', completed_at = NOW()
		WHERE id = $1 AND status IN ('confirmed', 'in_progress')
		RETURNING ` + bookingColumns

	var b Booking
	err := r.db.GetContext(ctx, &b, query, id)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *repository) transition(ctx context.Context, query string, id int) error {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrInvalidTransition
	}

	return nil
}
