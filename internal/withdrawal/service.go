package withdrawal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"khidmapay/internal/config"
	"khidmapay/internal/logger"
	"khidmapay/internal/metrics"
	"khidmapay/internal/wallet"
)

var (
	ErrRequestNotFound      = errors.New("withdrawal request not found")
	ErrForbidden            = errors.New("withdrawal request does not belong to the caller")
	ErrBelowMinimum         = errors.New("amount is below the minimum withdrawal threshold")
	ErrMissingPayoutDetails = errors.New("no payout details for the chosen method")
)

type RequestInput struct {
	AmountFr int64  `json:"amount_fr" binding:"required,gt=0"`
	Method   string `json:"method" binding:"required,oneof=waafipay dmoney bank"`

	// Optional. When empty, the payout details stored on the wallet are used.
	PayoutPhone string `json:"payout_phone" binding:"omitempty,djphone"`
	BankName    string `json:"bank_name"`
	BankAccount string `json:"bank_account"`
	BankHolder  string `json:"bank_holder"`
}

// Notifier is the outbound notification surface for withdrawal transitions.
// Failures are logged, never propagated into financial state.
type Notifier interface {
	NotifyWithdrawal(ctx context.Context, professionalID int, status string, amountFr int64) error
}

type Service interface {
	Request(ctx context.Context, professionalID int, in RequestInput) (*Request, error)
	Get(ctx context.Context, actorID, id int) (*Request, error)
	ListMine(ctx context.Context, professionalID int) ([]Request, error)

	ListByStatus(ctx context.Context, status string) ([]Request, error)
	Process(ctx context.Context, id int) (*Request, error)
	Complete(ctx context.Context, id int) (*Request, error)
	Reject(ctx context.Context, id int, notes string) (*Request, error)
}

type service struct {
	requests Repository
	wallets  wallet.Repository
	notifier Notifier

	minAmountFr int64
}

func NewService(requests Repository, wallets wallet.Repository, notifier Notifier, cfg *config.Config) Service {
	return &service{
		requests:    requests,
		wallets:     wallets,
		notifier:    notifier,
		minAmountFr: cfg.MinWithdrawalFr,
	}
}

func (s *service) Request(ctx context.Context, professionalID int, in RequestInput) (*Request, error) {
	if in.AmountFr < s.minAmountFr {
		return nil, fmt.Errorf("%w: minimum is %d DJF", ErrBelowMinimum, s.minAmountFr)
	}

	w, err := s.wallets.GetOrCreate(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	req := &Request{
		WalletID:       w.ID,
		ProfessionalID: professionalID,
		AmountFr:       in.AmountFr,
		Method:         in.Method,
		PayoutPhone:    in.PayoutPhone,
		BankName:       in.BankName,
		BankAccount:    in.BankAccount,
		BankHolder:     in.BankHolder,
	}
	if err := fillPayoutDetails(req, w); err != nil {
		return nil, err
	}

	created, err := s.requests.CreateReserved(ctx, req)
	if err != nil {
		return nil, err
	}

	metrics.RecordWithdrawal(StatusPending)
	s.notify(ctx, created)
	return created, nil
}

// fillPayoutDetails falls back to the payout details stored on the wallet
// and rejects methods that end up with no destination at all.
func fillPayoutDetails(req *Request, w *wallet.Wallet) error {
	switch req.Method {
	case wallet.MethodWaafiPay, wallet.MethodDMoney:
		if req.PayoutPhone == "" {
			req.PayoutPhone = w.PayoutPhone
		}
		if req.PayoutPhone == "" {
			return fmt.Errorf("%w: a payout phone number is required for %s", ErrMissingPayoutDetails, req.Method)
		}
	case wallet.MethodBank:
		if req.BankAccount == "" {
			req.BankName = w.BankName
			req.BankAccount = w.BankAccount
			req.BankHolder = w.BankHolder
		}
		if req.BankAccount == "" {
			return fmt.Errorf("%w: a bank account is required for bank payouts", ErrMissingPayoutDetails)
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, actorID, id int) (*Request, error) {
	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.ProfessionalID != actorID {
		return nil, ErrForbidden
	}
	return req, nil
}

func (s *service) ListMine(ctx context.Context, professionalID int) ([]Request, error) {
	return s.requests.ListByProfessional(ctx, professionalID)
}

func (s *service) ListByStatus(ctx context.Context, status string) ([]Request, error) {
	return s.requests.ListByStatus(ctx, status)
}

func (s *service) Process(ctx context.Context, id int) (*Request, error) {
	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.requests.MarkProcessing(ctx, req.ID); err != nil {
		return nil, err
	}

	metrics.RecordWithdrawal(StatusProcessing)
	req, err = s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, req)
	return req, nil
}

// Complete resolves the request and debits the ledger in one transaction.
// The guarded status flip inside that transaction is the durable gate: a
// retry after a transient failure either finds the row still processing
// with nothing debited, or already completed, never a second debit.
func (s *service) Complete(ctx context.Context, id int) (*Request, error) {
	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusProcessing {
		return nil, ErrInvalidTransition
	}

	_, err = s.wallets.SettleWithdrawal(ctx, req.WalletID, req.ID, req.AmountFr,
		fmt.Sprintf("withdrawal #%d via %s", req.ID, req.Method))
	if errors.Is(err, wallet.ErrRequestNotProcessing) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("failed to settle withdrawal #%d: %w", req.ID, err)
	}

	metrics.RecordWithdrawal(StatusCompleted)
	req, err = s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, req)
	return req, nil
}

func (s *service) Reject(ctx context.Context, id int, notes string) (*Request, error) {
	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Rejection only flips the row. The reservation is implicit in the
	// pending/processing status, so leaving those states releases it.
	if err := s.requests.MarkRejected(ctx, req.ID, notes); err != nil {
		return nil, err
	}

	metrics.RecordWithdrawal(StatusRejected)
	req, err = s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, req)
	return req, nil
}

func (s *service) get(ctx context.Context, id int) (*Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *service) notify(ctx context.Context, req *Request) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyWithdrawal(ctx, req.ProfessionalID, req.Status, req.AmountFr); err != nil {
		logger.Warn("failed to queue withdrawal notification",
			"withdrawal_id", req.ID, "status", req.Status, "error", err)
	}
}
