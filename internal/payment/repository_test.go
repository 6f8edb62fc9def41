package payment

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func setupPaymentMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func paymentRows(id, bookingID int, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "booking_id", "provider", "payer_ref", "amount_fr", "commission_fr", "professional_fr",
		"reference", "provider_txn_id", "status", "test_mode", "error_message",
		"initiated_at", "verified_at", "refunded_at",
	}).AddRow(id, bookingID, "dmoney", "77202020", 10000, 1000, 9000,
		"KP-1700000000-42", "", status, false, "", time.Now(), nil, nil)
}

func TestCreatePayment(t *testing.T) {
	repo, mock, close := setupPaymentMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payments (booking_id, provider, payer_ref, amount_fr, commission_fr, professional_fr, reference, status, test_mode)")).
		WithArgs(42, "dmoney", "77202020", int64(10000), int64(1000), int64(9000), "KP-1700000000-42", false).
		WillReturnRows(paymentRows(9, 42, StatusPending))

	p, err := repo.Create(context.Background(), &Payment{
		BookingID:      42,
		Provider:       "dmoney",
		PayerRef:       "77202020",
		AmountFr:       10000,
		CommissionFr:   1000,
		ProfessionalFr: 9000,
		Reference:      "KP-1700000000-42",
	})
	require.NoError(t, err)
	require.Equal(t, 9, p.ID)
	require.Equal(t, StatusPending, p.Status)
	require.Equal(t, int64(1000), p.CommissionFr)
}

func TestComplete_FlipsRecordAndBookingTogether(t *testing.T) {
	repo, mock, close := setupPaymentMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed', provider_txn_id = $2, verified_at = NOW()")).
		WithArgs(9, "DM-1001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'confirmed', payment_status = 'paid', commission_fr = $2")).
		WithArgs(42, int64(1000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Complete(context.Background(), 9, "DM-1001", 42, 1000)
	require.NoError(t, err)
}

func TestComplete_NotPending(t *testing.T) {
	repo, mock, close := setupPaymentMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed', provider_txn_id = $2, verified_at = NOW()")).
		WithArgs(9, "DM-1001").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Complete(context.Background(), 9, "DM-1001", 42, 1000)
	require.ErrorIs(t, err, ErrNotPending)
}

func TestComplete_UniqueIndexRejectsSecondWinner(t *testing.T) {
	repo, mock, close := setupPaymentMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed', provider_txn_id = $2, verified_at = NOW()")).
		WithArgs(9, "DM-1002").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "payments_one_completed_per_booking"})
	mock.ExpectRollback()

	err := repo.Complete(context.Background(), 9, "DM-1002", 42, 1000)
	require.ErrorIs(t, err, ErrDuplicateCompleted)
}

func TestComplete_BookingAlreadySettled(t *testing.T) {
	repo, mock, close := setupPaymentMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed', provider_txn_id = $2, verified_at = NOW()")).
		WithArgs(9, "DM-1002").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'confirmed', payment_status = 'paid', commission_fr = $2")).
		WithArgs(42, int64(1000)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Complete(context.Background(), 9, "DM-1002", 42, 1000)
	require.ErrorIs(t, err, ErrDuplicateCompleted)
}

func TestMarkFailed_OnlyPendingRecords(t *testing.T) {
	repo, mock, close := setupPaymentMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'failed', error_message = $2")).
		WithArgs(9, "payer declined").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkFailed(context.Background(), 9, "payer declined")
	require.ErrorIs(t, err, ErrNotPending)
}

func TestMarkRefunded_FlipsRecordAndBooking(t *testing.T) {
	repo, mock, close := setupPaymentMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'refunded', refunded_at = NOW()")).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'cancelled', payment_status = 'refunded', refund_fr = $2")).
		WithArgs(42, int64(5000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.MarkRefunded(context.Background(), 9, 42, 5000)
	require.NoError(t, err)
}

func TestMarkRefunded_OnlyCompletedRecords(t *testing.T) {
	repo, mock, close := setupPaymentMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'refunded', refunded_at = NOW()")).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.MarkRefunded(context.Background(), 9, 42, 5000)
	require.ErrorIs(t, err, ErrNotPending)
}

func TestCreateManualRefund(t *testing.T) {
	repo, mock, close := setupPaymentMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO manual_refunds (payment_id, booking_id, client_id, amount_fr, provider, status, reason)")).
		WithArgs(9, 42, 1, int64(5000), "stripe", "PARTIAL_REFUND_12H").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateManualRefund(context.Background(), &ManualRefund{
		PaymentID: 9,
		BookingID: 42,
		ClientID:  1,
		AmountFr:  5000,
		Provider:  "stripe",
		Reason:    "PARTIAL_REFUND_12H",
	})
	require.NoError(t, err)
}
