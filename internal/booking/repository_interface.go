package booking

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, clientID, professionalID int, scheduledAt time.Time, amountFr int64) (*Booking, error)
	GetByID(ctx context.Context, id int) (*Booking, error)
	SetPaymentPending(ctx context.Context, id int) error
	MarkCancelled(ctx context.Context, id int) error
	MarkCompleted(ctx context.Context, id int) (*Booking, error)
}
