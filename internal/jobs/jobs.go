package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	KindConfirmPayment   = "confirm_payment"
	KindReleaseFunds     = "release_funds"
	KindReconcileWallets = "reconcile_wallets"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Job struct {
	ID        int64           `db:"id" json:"id"`
	Kind      string          `db:"kind" json:"kind"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	RunAt     time.Time       `db:"run_at" json:"run_at"`
	Attempts  int             `db:"attempts" json:"attempts"`
	Status    string          `db:"status" json:"status"`
	LastError string          `db:"last_error" json:"last_error,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// ConfirmPaymentPayload drives the delayed test-mode confirmation.
type ConfirmPaymentPayload struct {
	PaymentID int `json:"payment_id"`
}

// ReleaseFundsPayload moves a payment's professional share from pending to
// available once the hold window has passed.
type ReleaseFundsPayload struct {
	WalletID  int   `json:"wallet_id"`
	BookingID int   `json:"booking_id"`
	AmountFr  int64 `json:"amount_fr"`
}

// Scheduler is the enqueue side. Producers depend on this, never on the
// worker.
type Scheduler interface {
	Enqueue(ctx context.Context, kind string, payload any, runAt time.Time) error
}

type store struct {
	db *sqlx.DB
}

func NewScheduler(db *sqlx.DB) Scheduler {
	return &store{db: db}
}

func (s *store) Enqueue(ctx context.Context, kind string, payload any, runAt time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs (kind, payload, run_at, status)
		 VALUES ($1, $2, $3, 'pending')`,
		kind, data, runAt,
	)
	return err
}
