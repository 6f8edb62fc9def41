package withdrawal

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"khidmapay/internal/config"
	"khidmapay/internal/logger"
	"khidmapay/internal/wallet"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

// Mock repositories
type MockWithdrawalRepo struct{ mock.Mock }
type MockWalletRepo struct{ mock.Mock }
type MockNotifier struct{ mock.Mock }

func (m *MockWithdrawalRepo) CreateReserved(ctx context.Context, req *Request) (*Request, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Request), args.Error(1)
}

func (m *MockWithdrawalRepo) GetByID(ctx context.Context, id int) (*Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Request), args.Error(1)
}

func (m *MockWithdrawalRepo) ListByProfessional(ctx context.Context, professionalID int) ([]Request, error) {
	args := m.Called(ctx, professionalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Request), args.Error(1)
}

func (m *MockWithdrawalRepo) ListByStatus(ctx context.Context, status string) ([]Request, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Request), args.Error(1)
}

func (m *MockWithdrawalRepo) MarkProcessing(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockWithdrawalRepo) MarkRejected(ctx context.Context, id int, notes string) error {
	return m.Called(ctx, id, notes).Error(0)
}

func (m *MockWalletRepo) GetOrCreate(ctx context.Context, professionalID int) (*wallet.Wallet, error) {
	args := m.Called(ctx, professionalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) GetByID(ctx context.Context, walletID int) (*wallet.Wallet, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) CreditPending(ctx context.Context, professionalID int, amountFr int64, description string) (*wallet.Transaction, error) {
	args := m.Called(ctx, professionalID, amountFr, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletRepo) ReleasePending(ctx context.Context, walletID int, amountFr int64, description string) error {
	return m.Called(ctx, walletID, amountFr, description).Error(0)
}

func (m *MockWalletRepo) ReverseEarning(ctx context.Context, professionalID int, amountFr int64, description string) (*wallet.Transaction, error) {
	args := m.Called(ctx, professionalID, amountFr, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletRepo) SettleWithdrawal(ctx context.Context, walletID, requestID int, amountFr int64, description string) (*wallet.Transaction, error) {
	args := m.Called(ctx, walletID, requestID, amountFr, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletRepo) GetBalance(ctx context.Context, professionalID int) (*wallet.Balance, error) {
	args := m.Called(ctx, professionalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Balance), args.Error(1)
}

func (m *MockWalletRepo) ListTransactions(ctx context.Context, professionalID int, limit, offset int) ([]wallet.Transaction, error) {
	args := m.Called(ctx, professionalID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.Transaction), args.Error(1)
}

func (m *MockWalletRepo) UpdatePayoutInfo(ctx context.Context, professionalID int, info wallet.PayoutInfo) error {
	return m.Called(ctx, professionalID, info).Error(0)
}

func (m *MockWalletRepo) Reconcile(ctx context.Context, walletID int) (*wallet.ReconcileReport, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.ReconcileReport), args.Error(1)
}

func (m *MockWalletRepo) ListWalletIDs(ctx context.Context) ([]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockNotifier) NotifyWithdrawal(ctx context.Context, professionalID int, status string, amountFr int64) error {
	return m.Called(ctx, professionalID, status, amountFr).Error(0)
}

type fixtures struct {
	requests *MockWithdrawalRepo
	wallets  *MockWalletRepo
	notifier *MockNotifier
	service  Service
}

func newTestService() *fixtures {
	f := &fixtures{
		requests: new(MockWithdrawalRepo),
		wallets:  new(MockWalletRepo),
		notifier: new(MockNotifier),
	}
	cfg := &config.Config{MinWithdrawalFr: 1000}
	f.service = NewService(f.requests, f.wallets, f.notifier, cfg)
	return f
}

func testWallet() *wallet.Wallet {
	return &wallet.Wallet{
		ID:             7,
		ProfessionalID: 20,
		BalanceFr:      40000,
		PayoutPhone:    "77101010",
	}
}

func TestRequest_Success(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	f.wallets.On("GetOrCreate", ctx, 20).Return(testWallet(), nil)
	f.requests.On("CreateReserved", ctx, mock.MatchedBy(func(req *Request) bool {
		return req.WalletID == 7 && req.AmountFr == 25000 && req.PayoutPhone == "77101010"
	})).Return(&Request{ID: 3, WalletID: 7, ProfessionalID: 20, AmountFr: 25000, Status: StatusPending}, nil)
	f.notifier.On("NotifyWithdrawal", ctx, 20, StatusPending, int64(25000)).Return(nil)

	created, err := f.service.Request(ctx, 20, RequestInput{AmountFr: 25000, Method: "waafipay"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, created.Status)

	f.requests.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestRequest_BelowMinimum(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	_, err := f.service.Request(ctx, 20, RequestInput{AmountFr: 500, Method: "waafipay"})
	require.ErrorIs(t, err, ErrBelowMinimum)

	f.wallets.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything)
	f.requests.AssertNotCalled(t, "CreateReserved", mock.Anything, mock.Anything)
}

func TestRequest_ExceedsAvailable(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	// 50,000 DJF against a 40,000 DJF balance gets rejected by the repo's
	// in-transaction bound check.
	f.wallets.On("GetOrCreate", ctx, 20).Return(testWallet(), nil)
	f.requests.On("CreateReserved", ctx, mock.Anything).Return(nil, ErrExceedsAvailable)

	_, err := f.service.Request(ctx, 20, RequestInput{AmountFr: 50000, Method: "waafipay"})
	require.ErrorIs(t, err, ErrExceedsAvailable)

	f.notifier.AssertNotCalled(t, "NotifyWithdrawal", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequest_FallsBackToWalletPayoutPhone(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	f.wallets.On("GetOrCreate", ctx, 20).Return(testWallet(), nil)
	f.requests.On("CreateReserved", ctx, mock.MatchedBy(func(req *Request) bool {
		return req.PayoutPhone == "77101010"
	})).Return(&Request{ID: 3, ProfessionalID: 20, AmountFr: 2000, Status: StatusPending}, nil)
	f.notifier.On("NotifyWithdrawal", ctx, 20, StatusPending, int64(2000)).Return(nil)

	_, err := f.service.Request(ctx, 20, RequestInput{AmountFr: 2000, Method: "dmoney"})
	require.NoError(t, err)

	f.requests.AssertExpectations(t)
}

func TestRequest_MissingPayoutDetails(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	bare := testWallet()
	bare.PayoutPhone = ""
	f.wallets.On("GetOrCreate", ctx, 20).Return(bare, nil)

	_, err := f.service.Request(ctx, 20, RequestInput{AmountFr: 2000, Method: "waafipay"})
	require.ErrorIs(t, err, ErrMissingPayoutDetails)

	_, err = f.service.Request(ctx, 20, RequestInput{AmountFr: 2000, Method: "bank"})
	require.ErrorIs(t, err, ErrMissingPayoutDetails)

	f.requests.AssertNotCalled(t, "CreateReserved", mock.Anything, mock.Anything)
}

func TestGet_OwnershipEnforced(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	f.requests.On("GetByID", ctx, 3).
		Return(&Request{ID: 3, ProfessionalID: 20, AmountFr: 25000, Status: StatusPending}, nil)

	_, err := f.service.Get(ctx, 99, 3)
	require.ErrorIs(t, err, ErrForbidden)

	req, err := f.service.Get(ctx, 20, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, req.ID)
}

func TestGet_NotFound(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	f.requests.On("GetByID", ctx, 99).Return(nil, sql.ErrNoRows)

	_, err := f.service.Get(ctx, 20, 99)
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestComplete_SettlesFlipAndDebitTogether(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	processing := &Request{ID: 3, WalletID: 7, ProfessionalID: 20, AmountFr: 25000, Method: "waafipay", Status: StatusProcessing}
	completed := &Request{ID: 3, WalletID: 7, ProfessionalID: 20, AmountFr: 25000, Method: "waafipay", Status: StatusCompleted}

	f.requests.On("GetByID", ctx, 3).Return(processing, nil).Once()
	f.wallets.On("SettleWithdrawal", ctx, 7, 3, int64(25000), "withdrawal #3 via waafipay").
		Return(&wallet.Transaction{ID: 1, WalletID: 7, Type: wallet.TypeWithdrawal, AmountFr: -25000}, nil)
	f.requests.On("GetByID", ctx, 3).Return(completed, nil).Once()
	f.notifier.On("NotifyWithdrawal", ctx, 20, StatusCompleted, int64(25000)).Return(nil)

	req, err := f.service.Complete(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, req.Status)

	f.wallets.AssertExpectations(t)
	f.requests.AssertExpectations(t)
}

func TestComplete_RequiresProcessing(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	f.requests.On("GetByID", ctx, 3).
		Return(&Request{ID: 3, WalletID: 7, ProfessionalID: 20, AmountFr: 25000, Status: StatusPending}, nil)

	_, err := f.service.Complete(ctx, 3)
	require.ErrorIs(t, err, ErrInvalidTransition)

	f.wallets.AssertNotCalled(t, "SettleWithdrawal",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestComplete_DebitFailureLeavesRequestOpen(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	f.requests.On("GetByID", ctx, 3).
		Return(&Request{ID: 3, WalletID: 7, ProfessionalID: 20, AmountFr: 25000, Method: "waafipay", Status: StatusProcessing}, nil)
	f.wallets.On("SettleWithdrawal", ctx, 7, 3, int64(25000), "withdrawal #3 via waafipay").
		Return(nil, wallet.ErrInsufficientBalance)

	_, err := f.service.Complete(ctx, 3)
	require.ErrorIs(t, err, wallet.ErrInsufficientBalance)
}

func TestComplete_RetryAfterTransientFailureDebitsOnce(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	processing := &Request{ID: 3, WalletID: 7, ProfessionalID: 20, AmountFr: 25000, Method: "waafipay", Status: StatusProcessing}
	completed := &Request{ID: 3, WalletID: 7, ProfessionalID: 20, AmountFr: 25000, Method: "waafipay", Status: StatusCompleted}

	// First attempt dies mid-settlement; the transaction rolled back, so
	// the row is still processing and nothing was debited.
	f.requests.On("GetByID", ctx, 3).Return(processing, nil).Once()
	f.wallets.On("SettleWithdrawal", ctx, 7, 3, int64(25000), "withdrawal #3 via waafipay").
		Return(nil, errors.New("connection reset")).Once()

	_, err := f.service.Complete(ctx, 3)
	require.Error(t, err)

	// The admin retries and the settlement lands exactly once.
	f.requests.On("GetByID", ctx, 3).Return(processing, nil).Once()
	f.wallets.On("SettleWithdrawal", ctx, 7, 3, int64(25000), "withdrawal #3 via waafipay").
		Return(&wallet.Transaction{ID: 1, WalletID: 7, Type: wallet.TypeWithdrawal, AmountFr: -25000}, nil).Once()
	f.requests.On("GetByID", ctx, 3).Return(completed, nil).Once()
	f.notifier.On("NotifyWithdrawal", ctx, 20, StatusCompleted, int64(25000)).Return(nil)

	req, err := f.service.Complete(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, req.Status)

	f.wallets.AssertExpectations(t)
}

func TestComplete_ConcurrentResolutionRejected(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	// The stale read still sees processing, but the row was resolved in
	// between; the guarded flip inside the settlement rejects the retry.
	f.requests.On("GetByID", ctx, 3).
		Return(&Request{ID: 3, WalletID: 7, ProfessionalID: 20, AmountFr: 25000, Method: "waafipay", Status: StatusProcessing}, nil)
	f.wallets.On("SettleWithdrawal", ctx, 7, 3, int64(25000), "withdrawal #3 via waafipay").
		Return(nil, wallet.ErrRequestNotProcessing)

	_, err := f.service.Complete(ctx, 3)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReject_ReleasesReservationWithoutLedgerEntry(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	pending := &Request{ID: 3, WalletID: 7, ProfessionalID: 20, AmountFr: 25000, Status: StatusPending}
	rejected := &Request{ID: 3, WalletID: 7, ProfessionalID: 20, AmountFr: 25000, Status: StatusRejected, AdminNotes: "account mismatch"}

	f.requests.On("GetByID", ctx, 3).Return(pending, nil).Once()
	f.requests.On("MarkRejected", ctx, 3, "account mismatch").Return(nil)
	f.requests.On("GetByID", ctx, 3).Return(rejected, nil).Once()
	f.notifier.On("NotifyWithdrawal", ctx, 20, StatusRejected, int64(25000)).Return(nil)

	req, err := f.service.Reject(ctx, 3, "account mismatch")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, req.Status)

	f.wallets.AssertNotCalled(t, "SettleWithdrawal",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.requests.AssertExpectations(t)
}

func TestProcess_TransitionsPending(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	pending := &Request{ID: 3, WalletID: 7, ProfessionalID: 20, AmountFr: 25000, Status: StatusPending}
	processing := &Request{ID: 3, WalletID: 7, ProfessionalID: 20, AmountFr: 25000, Status: StatusProcessing}

	f.requests.On("GetByID", ctx, 3).Return(pending, nil).Once()
	f.requests.On("MarkProcessing", ctx, 3).Return(nil)
	f.requests.On("GetByID", ctx, 3).Return(processing, nil).Once()
	f.notifier.On("NotifyWithdrawal", ctx, 20, StatusProcessing, int64(25000)).Return(nil)

	req, err := f.service.Process(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, req.Status)
}

func TestNotificationFailureDoesNotFailRequest(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	f.wallets.On("GetOrCreate", ctx, 20).Return(testWallet(), nil)
	f.requests.On("CreateReserved", ctx, mock.Anything).
		Return(&Request{ID: 3, ProfessionalID: 20, AmountFr: 2000, Status: StatusPending}, nil)
	f.notifier.On("NotifyWithdrawal", ctx, 20, StatusPending, int64(2000)).
		Return(assert.AnError)

	_, err := f.service.Request(ctx, 20, RequestInput{AmountFr: 2000, Method: "waafipay"})
	require.NoError(t, err)
}
