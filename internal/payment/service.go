package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"khidmapay/internal/booking"
	"khidmapay/internal/config"
	"khidmapay/internal/jobs"
	"khidmapay/internal/logger"
	"khidmapay/internal/metrics"
	"khidmapay/internal/policy"
	"khidmapay/internal/provider"
	"khidmapay/internal/wallet"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrForbidden        = errors.New("booking does not belong to the caller")
	ErrAlreadyPaid      = errors.New("booking is already paid")
	ErrAlreadyRefunded  = errors.New("booking is already refunded")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrInvalidAmount    = errors.New("amount must be a positive whole amount in DJF")
)

type InitiateInput struct {
	BookingID int
	Provider  string
	PayerRef  string
	AmountFr  *int64 // overrides the booking total when set
}

type RefundOutcome struct {
	BookingID    int    `json:"booking_id"`
	RefundFr     int64  `json:"refund_fr"`
	Percent      int64  `json:"percent"`
	Reason       string `json:"reason"`
	ManualRefund bool   `json:"manual_refund"`
}

// Notifier is the outbound notification surface the settlement flows use.
// Failures are logged, never propagated into financial state.
type Notifier interface {
	NotifyPaymentReceived(ctx context.Context, professionalID, bookingID int, amountFr int64) error
	NotifyPaymentConfirmed(ctx context.Context, clientID, bookingID int, amountFr int64) error
	NotifyRefund(ctx context.Context, clientID, bookingID int, refundFr int64, percentage int64) error
	NotifyCancellation(ctx context.Context, professionalID, bookingID int, percentage int64) error
}

type Service interface {
	Initiate(ctx context.Context, actorID int, in InitiateInput) (*Payment, error)
	Verify(ctx context.Context, actorID, paymentID int) (*Payment, error)
	Refund(ctx context.Context, actorID, paymentID int) (*RefundOutcome, error)
	Cancel(ctx context.Context, actorID, bookingID int) (*RefundOutcome, error)
	CompleteService(ctx context.Context, actorID, bookingID int) (*booking.Booking, error)
	ConfirmPending(ctx context.Context, paymentID int) error
}

type service struct {
	payments  Repository
	bookings  booking.Repository
	wallets   wallet.Repository
	engine    *policy.Engine
	providers *provider.Registry
	scheduler jobs.Scheduler
	notifier  Notifier

	confirmDelay    time.Duration
	releaseAfter    time.Duration
	providerTimeout time.Duration
	maxRetries      int

	now func() time.Time
}

func NewService(
	payments Repository,
	bookings booking.Repository,
	wallets wallet.Repository,
	engine *policy.Engine,
	providers *provider.Registry,
	scheduler jobs.Scheduler,
	notifier Notifier,
	cfg *config.Config,
) Service {
	return &service{
		payments:        payments,
		bookings:        bookings,
		wallets:         wallets,
		engine:          engine,
		providers:       providers,
		scheduler:       scheduler,
		notifier:        notifier,
		confirmDelay:    cfg.TestConfirmDelay,
		releaseAfter:    time.Duration(cfg.PendingReleaseDays) * 24 * time.Hour,
		providerTimeout: cfg.ProviderTimeout,
		maxRetries:      cfg.ProviderMaxRetries,
		now:             time.Now,
	}
}

func (s *service) Initiate(ctx context.Context, actorID int, in InitiateInput) (*Payment, error) {
	b, err := s.bookings.GetByID(ctx, in.BookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}

	if b.ClientID != actorID {
		return nil, ErrForbidden
	}

	if b.PaymentStatus == booking.PaymentPaid || b.PaymentStatus == booking.PaymentRefunded {
		return nil, ErrAlreadyPaid
	}

	if b.Status == booking.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	amountFr := b.AmountFr
	if in.AmountFr != nil {
		amountFr = *in.AmountFr
	}
	if amountFr <= 0 {
		return nil, ErrInvalidAmount
	}

	adapter, err := s.providers.Get(in.Provider)
	if err != nil {
		return nil, err
	}

	// Per-professional commission override lives on the wallet.
	w, err := s.wallets.GetOrCreate(ctx, b.ProfessionalID)
	if err != nil {
		return nil, err
	}

	rateBp := s.engine.DefaultRateBp()
	if w.CommissionRateBp != nil {
		rateBp = *w.CommissionRateBp
	}
	commissionFr, professionalFr := s.engine.SplitWithRate(amountFr, rateBp)

	testMode := false
	if tm, ok := adapter.(interface{ TestMode() bool }); ok {
		testMode = tm.TestMode()
	}

	record, result, err := s.submitWithRetry(ctx, adapter, b.ID, in.PayerRef, amountFr, commissionFr, professionalFr, testMode)
	if err != nil {
		return record, err
	}

	switch {
	case result.Pending:
		// Test-mode rail: the row stays pending and a durable job finishes
		// the settlement after the configured delay.
		if err := s.bookings.SetPaymentPending(ctx, b.ID); err != nil && !errors.Is(err, booking.ErrInvalidTransition) {
			return record, err
		}

		runAt := s.now().Add(s.confirmDelay)
		if err := s.scheduler.Enqueue(ctx, jobs.KindConfirmPayment, jobs.ConfirmPaymentPayload{PaymentID: record.ID}, runAt); err != nil {
			return record, err
		}

		record.ProviderTxnID = result.ProviderTxnID
		logger.Info("payment pending confirmation",
			"payment_id", record.ID, "booking_id", b.ID, "provider", record.Provider, "run_at", runAt)
		return record, nil

	case result.Success:
		if err := s.settle(ctx, record, b, result.ProviderTxnID); err != nil {
			return record, err
		}
		return s.payments.GetByID(ctx, record.ID)

	default:
		return record, &provider.Error{Provider: adapter.Name(), Message: result.ErrorMessage, Retryable: false}
	}
}

// submitWithRetry persists a pending record before every provider call and
// retries retryable failures with exponential backoff, each attempt under a
// fresh reference. Terminal failures and exhausted retries leave the last
// record failed with the provider's message.
func (s *service) submitWithRetry(
	ctx context.Context,
	adapter provider.Adapter,
	bookingID int,
	payerRef string,
	amountFr, commissionFr, professionalFr int64,
	testMode bool,
) (*Payment, *provider.Result, error) {
	backoff := 500 * time.Millisecond

	var record *Payment
	for attempt := 1; ; attempt++ {
		var err error
		record, err = s.payments.Create(ctx, &Payment{
			BookingID:      bookingID,
			Provider:       adapter.Name(),
			PayerRef:       payerRef,
			AmountFr:       amountFr,
			CommissionFr:   commissionFr,
			ProfessionalFr: professionalFr,
			Reference:      NewReference(bookingID),
			TestMode:       testMode,
		})
		if err != nil {
			return nil, nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		result, err := adapter.Submit(callCtx, provider.Request{
			Reference:    record.Reference,
			AmountFr:     amountFr,
			CommissionFr: commissionFr,
			Currency:     "DJF",
			PayerRef:     payerRef,
			Description:  fmt.Sprintf("Khidma booking #%d", bookingID),
		})
		cancel()

		if err == nil {
			return record, result, nil
		}

		message := err.Error()
		if result != nil && result.ErrorMessage != "" {
			message = result.ErrorMessage
		}
		if markErr := s.payments.MarkFailed(ctx, record.ID, message); markErr != nil {
			logger.WithError(markErr).Error("failed to mark payment attempt failed", "payment_id", record.ID)
		}
		metrics.RecordPayment(adapter.Name(), "failed")

		var provErr *provider.Error
		retryable := errors.As(err, &provErr) && provErr.Retryable

		if !retryable || attempt >= s.maxRetries {
			logger.WithError(err).Warn("payment attempt failed",
				"booking_id", bookingID, "provider", adapter.Name(), "attempt", attempt, "retryable", retryable)
			return record, nil, err
		}

		logger.WithError(err).Warn("retrying payment attempt",
			"booking_id", bookingID, "provider", adapter.Name(), "attempt", attempt, "backoff", backoff.String())

		select {
		case <-ctx.Done():
			return record, nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// settle runs the completion path shared by synchronous success and the
// delayed test-mode confirmation: record+booking flip atomically, then the
// ledger credit, then notifications. Notification failures never unwind
// the financial state.
func (s *service) settle(ctx context.Context, p *Payment, b *booking.Booking, providerTxnID string) error {
	err := s.payments.Complete(ctx, p.ID, providerTxnID, b.ID, p.CommissionFr)
	if err != nil {
		if errors.Is(err, ErrDuplicateCompleted) {
			if markErr := s.payments.MarkFailed(ctx, p.ID, "superseded by an already completed payment"); markErr != nil && !errors.Is(markErr, ErrNotPending) {
				logger.WithError(markErr).Error("failed to mark superseded payment", "payment_id", p.ID)
			}
			return ErrAlreadyPaid
		}
		return err
	}

	if _, err := s.wallets.CreditPending(ctx, b.ProfessionalID, p.ProfessionalFr,
		fmt.Sprintf("earning for booking #%d", b.ID)); err != nil {
		// The booking is paid; the missing credit is an integrity fault to
		// chase down, not a reason to fail the client call.
		logger.WithError(err).Error("earning credit failed after settlement",
			"payment_id", p.ID, "booking_id", b.ID, "professional_id", b.ProfessionalID)
		metrics.RecordIntegrityFailure()
		return err
	}

	metrics.RecordPayment(p.Provider, "completed")
	metrics.RecordPaymentAmount(p.Provider, p.AmountFr)

	if err := s.notifier.NotifyPaymentReceived(ctx, b.ProfessionalID, b.ID, p.ProfessionalFr); err != nil {
		logger.WithError(err).Warn("professional notification failed", "booking_id", b.ID)
	}
	if err := s.notifier.NotifyPaymentConfirmed(ctx, b.ClientID, b.ID, p.AmountFr); err != nil {
		logger.WithError(err).Warn("client notification failed", "booking_id", b.ID)
	}

	logger.Info("payment settled",
		"payment_id", p.ID, "booking_id", b.ID, "provider", p.Provider,
		"amount_fr", p.AmountFr, "commission_fr", p.CommissionFr)
	return nil
}

func (s *service) Verify(ctx context.Context, actorID, paymentID int) (*Payment, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	b, err := s.bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	if b.ClientID != actorID && b.ProfessionalID != actorID {
		return nil, ErrForbidden
	}

	if p.Status == StatusPending && p.TestMode {
		if err := s.ConfirmPending(ctx, p.ID); err != nil {
			return nil, err
		}
		return s.payments.GetByID(ctx, p.ID)
	}

	return p, nil
}

// Refund is the payment-addressed entry into the cancellation workflow.
// The refund amount always comes from the policy engine against the
// original payment, never from a caller-supplied figure.
func (s *service) Refund(ctx context.Context, actorID, paymentID int) (*RefundOutcome, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	return s.Cancel(ctx, actorID, p.BookingID)
}

// ConfirmPending finalizes a pending test-mode payment. Idempotent: a
// record that already left pending is reported settled without touching
// anything, so the scheduled job and a manual verify cannot double-credit.
func (s *service) ConfirmPending(ctx context.Context, paymentID int) error {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPaymentNotFound
		}
		return err
	}

	if p.Status != StatusPending {
		return nil
	}

	b, err := s.bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		return ErrBookingNotFound
	}

	if err := s.settle(ctx, p, b, p.ProviderTxnID); err != nil {
		if errors.Is(err, ErrAlreadyPaid) {
			return nil
		}
		return err
	}
	return nil
}

func (s *service) Cancel(ctx context.Context, actorID, bookingID int) (*RefundOutcome, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}

	if b.ClientID != actorID {
		return nil, ErrForbidden
	}

	if b.PaymentStatus == booking.PaymentRefunded {
		return nil, ErrAlreadyRefunded
	}
	if b.Status == booking.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	// Unpaid bookings cancel without any ledger activity.
	if b.PaymentStatus != booking.PaymentPaid {
		if err := s.bookings.MarkCancelled(ctx, bookingID); err != nil {
			return nil, err
		}
		if err := s.notifier.NotifyCancellation(ctx, b.ProfessionalID, b.ID, 0); err != nil {
			logger.WithError(err).Warn("cancellation notification failed", "booking_id", b.ID)
		}
		return &RefundOutcome{BookingID: b.ID}, nil
	}

	p, err := s.payments.GetCompletedByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("paid booking %d has no completed payment: %w", bookingID, err)
	}

	// The refund is computed against the originally collected amount, not
	// the booking total, which may have been edited since.
	refund, err := s.engine.ComputeRefund(b.ScheduledAt, s.now(), p.AmountFr)
	if err != nil {
		return nil, err
	}

	outcome := &RefundOutcome{
		BookingID: b.ID,
		RefundFr:  refund.AmountFr,
		Percent:   refund.Percent,
		Reason:    refund.Reason,
	}

	adapter, err := s.providers.Get(p.Provider)
	if err != nil {
		return nil, err
	}

	// The record flip is the idempotency gate. It commits before any money
	// moves, so a retried cancellation stops at ErrAlreadyRefunded instead
	// of instructing the rail a second time.
	if err := s.payments.MarkRefunded(ctx, p.ID, b.ID, refund.AmountFr); err != nil {
		return nil, err
	}

	pushed := false
	if refund.AmountFr > 0 && adapter.SupportsRefund() {
		refundCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		_, refundErr := adapter.Refund(refundCtx, p.ProviderTxnID, refund.AmountFr)
		cancel()
		if refundErr != nil {
			logger.WithError(refundErr).Warn("push refund failed, recording manual obligation",
				"payment_id", p.ID, "provider", p.Provider)
		} else {
			pushed = true
		}
	}

	// A zero refund, possible when a partial tier rounds a tiny amount
	// down to nothing, leaves no obligation to record.
	if !pushed && refund.AmountFr > 0 {
		outcome.ManualRefund = true
		if err := s.payments.CreateManualRefund(ctx, &ManualRefund{
			PaymentID: p.ID,
			BookingID: b.ID,
			ClientID:  b.ClientID,
			AmountFr:  refund.AmountFr,
			Provider:  p.Provider,
			Reason:    refund.Reason,
		}); err != nil {
			logger.WithError(err).Error("manual refund obligation not recorded after refund",
				"payment_id", p.ID, "booking_id", b.ID, "refund_fr", refund.AmountFr)
			metrics.RecordIntegrityFailure()
			return nil, err
		}
	}

	// The ledger reverses the full professional credit, not the
	// client-visible refund: a partial refund keeps the commission on the
	// platform side, never on the professional's wallet.
	if p.ProfessionalFr > 0 {
		if _, err := s.wallets.ReverseEarning(ctx, b.ProfessionalID, p.ProfessionalFr,
			fmt.Sprintf("refund for booking #%d", b.ID)); err != nil {
			logger.WithError(err).Error("ledger reversal failed after refund",
				"payment_id", p.ID, "booking_id", b.ID, "professional_id", b.ProfessionalID)
			metrics.RecordIntegrityFailure()
			return nil, err
		}
	}

	metrics.RecordRefund(refund.Reason)

	if err := s.notifier.NotifyRefund(ctx, b.ClientID, b.ID, refund.AmountFr, refund.Percent); err != nil {
		logger.WithError(err).Warn("refund notification failed", "booking_id", b.ID)
	}
	if err := s.notifier.NotifyCancellation(ctx, b.ProfessionalID, b.ID, refund.Percent); err != nil {
		logger.WithError(err).Warn("cancellation notification failed", "booking_id", b.ID)
	}

	logger.Info("booking refunded",
		"booking_id", b.ID, "payment_id", p.ID, "refund_fr", refund.AmountFr,
		"percent", refund.Percent, "manual", outcome.ManualRefund)
	return outcome, nil
}

// CompleteService marks the service delivered and schedules the release of
// the professional's pending funds after the hold window.
func (s *service) CompleteService(ctx context.Context, actorID, bookingID int) (*booking.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}

	if b.ProfessionalID != actorID {
		return nil, ErrForbidden
	}

	completed, err := s.bookings.MarkCompleted(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if completed.PaymentStatus == booking.PaymentPaid {
		p, err := s.payments.GetCompletedByBookingID(ctx, bookingID)
		if err != nil {
			return nil, err
		}

		w, err := s.wallets.GetOrCreate(ctx, b.ProfessionalID)
		if err != nil {
			return nil, err
		}

		runAt := s.now().Add(s.releaseAfter)
		if err := s.scheduler.Enqueue(ctx, jobs.KindReleaseFunds, jobs.ReleaseFundsPayload{
			WalletID:  w.ID,
			BookingID: bookingID,
			AmountFr:  p.ProfessionalFr,
		}, runAt); err != nil {
			return nil, err
		}

		logger.Info("release scheduled",
			"booking_id", bookingID, "wallet_id", w.ID, "amount_fr", p.ProfessionalFr, "run_at", runAt)
	}

	return completed, nil
}
