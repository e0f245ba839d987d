package wallet

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Ledger is the only entry point for wallet balance mutations. No other
// component writes balances directly.
type Ledger interface {
	GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error)
	Debit(ctx context.Context, userID int, amount int64, entryType EntryType, description, referenceID string) (*LedgerEntry, error)
	DebitTx(ctx context.Context, tx *sqlx.Tx, userID int, amount int64, entryType EntryType, description, referenceID string) (*LedgerEntry, error)
	Credit(ctx context.Context, userID int, amount int64, entryType EntryType, description, referenceID string) (*LedgerEntry, error)
	CreditTx(ctx context.Context, tx *sqlx.Tx, userID int, amount int64, entryType EntryType, description, referenceID string) (*LedgerEntry, error)
	RecordPendingTopUp(ctx context.Context, userID int, amount int64, externalOrderID string) (*LedgerEntry, error)
	CompletePendingTopUp(ctx context.Context, externalOrderID string) (*LedgerEntry, error)
	MarkPendingTopUpFailed(ctx context.Context, externalOrderID, reason string) (*LedgerEntry, error)
	FindEntryByReference(ctx context.Context, referenceID string) (*LedgerEntry, error)
	GetTransactions(ctx context.Context, userID int, limit, offset int) ([]LedgerEntry, error)
}
