package withdrawal

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrExceedsAvailable means the requested amount does not fit inside
	// available balance minus the sum of other unresolved reservations.
	ErrExceedsAvailable  = errors.New("amount exceeds withdrawable balance")
	ErrInvalidTransition = errors.New("withdrawal request is not in a state that allows this transition")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const requestColumns = `id, wallet_id, professional_id, amount_fr, method, payout_phone, bank_name, bank_account, bank_holder, status, admin_notes, created_at, processed_at`

func (r *repository) CreateReserved(ctx context.Context, req *Request) (*Request, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// The wallet row lock serializes this check against concurrent
	// requests and ledger mutations for the same professional.
	var balanceFr int64
	err = tx.GetContext(ctx, &balanceFr,
		`SELECT balance_fr FROM wallets WHERE id = $1 FOR UPDATE`, req.WalletID)
	if err != nil {
		return nil, err
	}

	var reservedFr int64
	err = tx.GetContext(ctx, &reservedFr,
		`SELECT COALESCE(SUM(amount_fr), 0)
		 FROM withdrawal_requests
		 WHERE wallet_id = $1 AND status IN ('pending', 'processing')`,
		req.WalletID)
	if err != nil {
		return nil, err
	}

	if req.AmountFr > balanceFr-reservedFr {
		return nil, ErrExceedsAvailable
	}

	var created Request
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO withdrawal_requests (wallet_id, professional_id, amount_fr, method, payout_phone, bank_name, bank_account, bank_holder, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
		 RETURNING `+requestColumns,
		req.WalletID, req.ProfessionalID, req.AmountFr, req.Method,
		req.PayoutPhone, req.BankName, req.BankAccount, req.BankHolder,
	).StructScan(&created)
	if err != nil {
		return nil, err
	}

	return &created, tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, id int) (*Request, error) {
	var req Request
	err := r.db.GetContext(ctx, &req,
		`SELECT `+requestColumns+` FROM withdrawal_requests WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) ListByProfessional(ctx context.Context, professionalID int) ([]Request, error) {
	var requests []Request
	err := r.db.SelectContext(ctx, &requests,
		`SELECT `+requestColumns+`
		 FROM withdrawal_requests
		 WHERE professional_id = $1
		 ORDER BY created_at DESC, id DESC`,
		professionalID)
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) ListByStatus(ctx context.Context, status string) ([]Request, error) {
	var requests []Request
	err := r.db.SelectContext(ctx, &requests,
		`SELECT `+requestColumns+`
		 FROM withdrawal_requests
		 WHERE status = $1
		 ORDER BY created_at ASC, id ASC`,
		status)
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) MarkProcessing(ctx context.Context, id int) error {
	return r.transition(ctx,
		`UPDATE withdrawal_requests
		 SET status = 'processing'
		 WHERE id = $1 AND status = 'pending'`, id)
}

func (r *repository) MarkRejected(ctx context.Context, id int, notes string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE withdrawal_requests
		 SET status = 'rejected', admin_notes = $2, processed_at = NOW()
		 WHERE id = $1 AND status IN ('pending', 'processing')`,
		id, notes)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidTransition
	}

	return nil
}

func (r *repository) transition(ctx context.Context, query string, id int) error {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidTransition
	}

	return nil
}
