package wallet

import "context"

type Repository interface {
	GetOrCreate(ctx context.Context, professionalID int) (*Wallet, error)
	GetByID(ctx context.Context, walletID int) (*Wallet, error)
	CreditPending(ctx context.Context, professionalID int, amountFr int64, description string) (*Transaction, error)
	ReleasePending(ctx context.Context, walletID int, amountFr int64, description string) error
	ReverseEarning(ctx context.Context, professionalID int, amountFr int64, description string) (*Transaction, error)
	SettleWithdrawal(ctx context.Context, walletID, requestID int, amountFr int64, description string) (*Transaction, error)
	GetBalance(ctx context.Context, professionalID int) (*Balance, error)
	ListTransactions(ctx context.Context, professionalID int, limit, offset int) ([]Transaction, error)
	UpdatePayoutInfo(ctx context.Context, professionalID int, info PayoutInfo) error
	Reconcile(ctx context.Context, walletID int) (*ReconcileReport, error)
	ListWalletIDs(ctx context.Context) ([]int, error)
}

type PayoutInfo struct {
	Method      string `json:"method" binding:"required,oneof=waafipay dmoney bank"`
	PayoutPhone string `json:"payout_phone" binding:"omitempty,djphone"`
	BankName    string `json:"bank_name"`
	BankAccount string `json:"bank_account"`
	BankHolder  string `json:"bank_holder"`
}
