package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"khidmapay/internal/logger"
	"khidmapay/internal/metrics"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientPending = errors.New("insufficient pending balance")
	// ErrLedgerMismatch means the cached wallet fields disagree with the
	// transaction log. Never corrected automatically; requires manual
	// reconciliation.
	ErrLedgerMismatch = errors.New("wallet balance does not reconcile against transaction log")
	// ErrRequestNotProcessing means the withdrawal row was not in the
	// processing state when settlement ran; nothing was debited.
	ErrRequestNotProcessing = errors.New("withdrawal request is not processing")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const walletColumns = `id, professional_id, balance_fr, pending_balance_fr, total_earned_fr, total_withdrawn_fr, commission_rate_bp, payout_method, payout_phone, bank_name, bank_account, bank_holder, created_at, updated_at`

func (r *repository) GetOrCreate(ctx context.Context, professionalID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w, `SELECT `+walletColumns+` FROM wallets WHERE professional_id = $1`, professionalID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO wallets (professional_id)
		 VALUES ($1)
		 RETURNING `+walletColumns,
		professionalID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

func (r *repository) GetByID(ctx context.Context, walletID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// lockWallet loads the wallet row FOR UPDATE inside tx, creating it lazily
// on a professional's first earning event.
func (r *repository) lockWallet(ctx context.Context, tx *sqlx.Tx, professionalID int) (*Wallet, error) {
	var w Wallet
	err := tx.QueryRowxContext(ctx,
		`SELECT `+walletColumns+`
		 FROM wallets
		 WHERE professional_id = $1
		 FOR UPDATE`,
		professionalID,
	).StructScan(&w)
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO wallets (professional_id)
		 VALUES ($1)
		 RETURNING `+walletColumns,
		professionalID,
	).StructScan(&w)
	if err != nil {
		return nil, err
	}

	return &w, nil
}

func (r *repository) appendEntry(ctx context.Context, tx *sqlx.Tx, w *Wallet, txType string, amountFr int64, description string) (*Transaction, error) {
	entry := &Transaction{}
	err := tx.QueryRowxContext(ctx,
		`INSERT INTO wallet_transactions (wallet_id, type, amount_fr, balance_after_fr, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, wallet_id, type, amount_fr, balance_after_fr, description, created_at`,
		w.ID, txType, amountFr, w.BalanceFr+w.PendingBalanceFr, description,
	).StructScan(entry)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) saveBalances(ctx context.Context, tx *sqlx.Tx, w *Wallet) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE wallets
		 SET balance_fr = $1, pending_balance_fr = $2, total_earned_fr = $3, total_withdrawn_fr = $4, updated_at = NOW()
		 WHERE id = $5`,
		w.BalanceFr, w.PendingBalanceFr, w.TotalEarnedFr, w.TotalWithdrawnFr, w.ID,
	)
	return err
}

// CreditPending records an earning. Funds land in pending_balance and move
// to available only through ReleasePending.
func (r *repository) CreditPending(ctx context.Context, professionalID int, amountFr int64, description string) (*Transaction, error) {
	if amountFr <= 0 {
		return nil, errors.New("credit amount must be positive")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := r.lockWallet(ctx, tx, professionalID)
	if err != nil {
		return nil, err
	}

	w.PendingBalanceFr += amountFr
	w.TotalEarnedFr += amountFr

	if err := r.saveBalances(ctx, tx, w); err != nil {
		return nil, err
	}

	entry, err := r.appendEntry(ctx, tx, w, TypeEarning, amountFr, description)
	if err != nil {
		return nil, err
	}

	return entry, tx.Commit()
}

// ReleasePending moves funds from pending to available. The move does not
// change the total held, so no ledger entry is appended; the release job
// logs the transition.
func (r *repository) ReleasePending(ctx context.Context, walletID int, amountFr int64, description string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var w Wallet
	err = tx.QueryRowxContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`,
		walletID,
	).StructScan(&w)
	if err != nil {
		return err
	}

	if w.PendingBalanceFr < amountFr {
		return ErrInsufficientPending
	}

	w.PendingBalanceFr -= amountFr
	w.BalanceFr += amountFr

	if err := r.saveBalances(ctx, tx, &w); err != nil {
		return err
	}

	logger.Info("released pending funds",
		"wallet_id", walletID,
		"amount_fr", amountFr,
		"description", description,
	)

	return tx.Commit()
}

// ReverseEarning debits a previously credited earning on refund. The debit
// comes out of pending first, then available, and reduces total_earned so
// ledger conservation holds.
func (r *repository) ReverseEarning(ctx context.Context, professionalID int, amountFr int64, description string) (*Transaction, error) {
	if amountFr <= 0 {
		return nil, errors.New("reversal amount must be positive")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := r.lockWallet(ctx, tx, professionalID)
	if err != nil {
		return nil, err
	}

	if w.PendingBalanceFr+w.BalanceFr < amountFr {
		return nil, ErrInsufficientBalance
	}

	fromPending := amountFr
	if fromPending > w.PendingBalanceFr {
		fromPending = w.PendingBalanceFr
	}
	w.PendingBalanceFr -= fromPending
	w.BalanceFr -= amountFr - fromPending
	w.TotalEarnedFr -= amountFr

	if err := r.saveBalances(ctx, tx, w); err != nil {
		return nil, err
	}

	entry, err := r.appendEntry(ctx, tx, w, TypeRefundReversal, -amountFr, description)
	if err != nil {
		return nil, err
	}

	return entry, tx.Commit()
}

// SettleWithdrawal resolves a processing withdrawal and debits available
// balance in the same transaction. The guarded status flip is the
// idempotency gate: a retry after a partial failure finds the row either
// still processing with nothing debited, or already completed, and can
// never debit the wallet twice for the same request.
func (r *repository) SettleWithdrawal(ctx context.Context, walletID, requestID int, amountFr int64, description string) (*Transaction, error) {
	if amountFr <= 0 {
		return nil, errors.New("debit amount must be positive")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Wallet row lock first, then the request row, matching the lock
	// order of the reservation path.
	var w Wallet
	err = tx.QueryRowxContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`,
		walletID,
	).StructScan(&w)
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE withdrawal_requests
		 SET status = 'completed', processed_at = NOW()
		 WHERE id = $1 AND status = 'processing'`,
		requestID)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrRequestNotProcessing
	}

	if w.BalanceFr < amountFr {
		return nil, ErrInsufficientBalance
	}

	w.BalanceFr -= amountFr
	w.TotalWithdrawnFr += amountFr

	if err := r.saveBalances(ctx, tx, &w); err != nil {
		return nil, err
	}

	entry, err := r.appendEntry(ctx, tx, &w, TypeWithdrawal, -amountFr, description)
	if err != nil {
		return nil, err
	}

	return entry, tx.Commit()
}

// GetBalance returns the reserved-aware view: withdrawable excludes the sum
// of unresolved withdrawal reservations.
func (r *repository) GetBalance(ctx context.Context, professionalID int) (*Balance, error) {
	w, err := r.GetOrCreate(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	var reserved int64
	err = r.db.GetContext(ctx, &reserved,
		`SELECT COALESCE(SUM(amount_fr), 0)
		 FROM withdrawal_requests
		 WHERE wallet_id = $1 AND status IN ('pending', 'processing')`,
		w.ID,
	)
	if err != nil {
		return nil, err
	}

	withdrawable := w.BalanceFr - reserved
	if withdrawable < 0 {
		withdrawable = 0
	}

	return &Balance{
		AvailableFr:    w.BalanceFr,
		PendingFr:      w.PendingBalanceFr,
		ReservedFr:     reserved,
		WithdrawableFr: withdrawable,
	}, nil
}

func (r *repository) ListTransactions(ctx context.Context, professionalID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var walletID int
	err := r.db.GetContext(ctx, &walletID, `SELECT id FROM wallets WHERE professional_id = $1`, professionalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Transaction{}, nil
		}
		return nil, err
	}

	var txs []Transaction
	err = r.db.SelectContext(ctx, &txs, `
		SELECT id, wallet_id, type, amount_fr, balance_after_fr, description, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}

	return txs, nil
}

func (r *repository) UpdatePayoutInfo(ctx context.Context, professionalID int, info PayoutInfo) error {
	w, err := r.GetOrCreate(ctx, professionalID)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE wallets
		 SET payout_method = $1, payout_phone = $2, bank_name = $3, bank_account = $4, bank_holder = $5, updated_at = NOW()
		 WHERE id = $6`,
		info.Method, info.PayoutPhone, info.BankName, info.BankAccount, info.BankHolder, w.ID,
	)
	return err
}

// Reconcile folds the transaction log and compares against the cached
// wallet fields. A mismatch is a data-integrity fault: it is logged and
// counted, never silently corrected.
func (r *repository) Reconcile(ctx context.Context, walletID int) (*ReconcileReport, error) {
	w, err := r.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}

	var fold struct {
		Held      int64 `db:"held"`
		Withdrawn int64 `db:"withdrawn"`
	}
	err = r.db.GetContext(ctx, &fold, `
		SELECT
			COALESCE(SUM(amount_fr), 0) AS held,
			COALESCE(SUM(CASE WHEN type = 'withdrawal' THEN -amount_fr ELSE 0 END), 0) AS withdrawn
		FROM wallet_transactions
		WHERE wallet_id = $1
	`, walletID)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		WalletID:        walletID,
		CachedHeldFr:    w.BalanceFr + w.PendingBalanceFr,
		LedgerHeldFr:    fold.Held,
		CachedWithdrawn: w.TotalWithdrawnFr,
		LedgerWithdrawn: fold.Withdrawn,
		Conserved:       w.TotalEarnedFr-w.TotalWithdrawnFr == w.BalanceFr+w.PendingBalanceFr,
	}
	report.OK = report.Conserved &&
		report.CachedHeldFr == report.LedgerHeldFr &&
		report.CachedWithdrawn == report.LedgerWithdrawn

	if !report.OK {
		metrics.RecordIntegrityFailure()
		logger.Error("wallet failed reconciliation",
			"wallet_id", walletID,
			"cached_held_fr", report.CachedHeldFr,
			"ledger_held_fr", report.LedgerHeldFr,
			"cached_withdrawn_fr", report.CachedWithdrawn,
			"ledger_withdrawn_fr", report.LedgerWithdrawn,
			"conserved", report.Conserved,
		)
		return report, ErrLedgerMismatch
	}

	return report, nil
}

func (r *repository) ListWalletIDs(ctx context.Context) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM wallets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
