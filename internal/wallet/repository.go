package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrPendingTopUpNotFound = errors.New("pending top-up not found")
)

const walletColumns = `id, user_id, balance, created_at, updated_at`

const entryColumns = `id, wallet_id, user_id, transaction_code, type, amount,
	description, reference_id, status, balance_after, created_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 RETURNING `+walletColumns,
		userID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// lockWallet loads the user's wallet row FOR UPDATE inside tx, creating it on
// first use. Every balance read-modify-write goes through this lock so that
// two concurrent mutations against the same account serialize.
func lockWallet(ctx context.Context, tx *sqlx.Tx, userID int) (*Wallet, error) {
	var w Wallet
	err := tx.QueryRowxContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`,
		userID,
	).StructScan(&w)
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 RETURNING `+walletColumns,
		userID,
	).StructScan(&w)
	if err != nil {
		return nil, err
	}

	return &w, nil
}

// findCompletedByReference returns an existing completed entry for the same
// logical mutation, if one exists. Used as the idempotency check before
// applying a debit or credit.
func findCompletedByReference(ctx context.Context, q sqlx.QueryerContext, referenceID string, entryType EntryType) (*LedgerEntry, error) {
	var e LedgerEntry
	err := sqlx.GetContext(ctx, q, &e,
		`SELECT `+entryColumns+`
		 FROM wallet_ledger_entries
		 WHERE reference_id = $1 AND type = $2 AND status = 'completed'`,
		referenceID, entryType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func newTransactionCode() string {
	return "TXN-" + uuid.NewString()
}

// Debit atomically decrements the balance and appends a completed ledger
// entry. Rejects with ErrInsufficientBalance when the balance would go
// negative; in that case no entry is written.
func (r *Repository) Debit(ctx context.Context, userID int, amount int64, entryType EntryType, description, referenceID string) (*LedgerEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := r.DebitTx(ctx, tx, userID, amount, entryType, description, referenceID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// DebitTx is Debit running inside a caller-owned transaction, for operations
// that must be atomic with other rows (escrow creation, price adjustments).
func (r *Repository) DebitTx(ctx context.Context, tx *sqlx.Tx, userID int, amount int64, entryType EntryType, description, referenceID string) (*LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if referenceID != "" {
		existing, err := findCompletedByReference(ctx, tx, referenceID, entryType)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	w, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	newBalance := w.Balance - amount
	if newBalance < 0 {
		return nil, ErrInsufficientBalance
	}

	return applyEntry(ctx, tx, w, -amount, newBalance, entryType, description, referenceID)
}

// Credit atomically increments the balance and appends a completed ledger
// entry. There is no upper bound on a balance.
func (r *Repository) Credit(ctx context.Context, userID int, amount int64, entryType EntryType, description, referenceID string) (*LedgerEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := r.CreditTx(ctx, tx, userID, amount, entryType, description, referenceID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *Repository) CreditTx(ctx context.Context, tx *sqlx.Tx, userID int, amount int64, entryType EntryType, description, referenceID string) (*LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if referenceID != "" {
		existing, err := findCompletedByReference(ctx, tx, referenceID, entryType)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	w, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	return applyEntry(ctx, tx, w, amount, w.Balance+amount, entryType, description, referenceID)
}

func applyEntry(ctx context.Context, tx *sqlx.Tx, w *Wallet, signedAmount, newBalance int64, entryType EntryType, description, referenceID string) (*LedgerEntry, error) {
	_, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`,
		newBalance, w.ID,
	)
	if err != nil {
		return nil, err
	}

	var entry LedgerEntry
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO wallet_ledger_entries
			(wallet_id, user_id, transaction_code, type, amount, description, reference_id, status, balance_after)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'completed', $8)
		 RETURNING `+entryColumns,
		w.ID, w.UserID, newTransactionCode(), entryType, signedAmount, description, referenceID, newBalance,
	).StructScan(&entry)
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return &entry, nil
}

// RecordPendingTopUp creates a pending entry for an external payment that
// has not been confirmed yet. The balance is untouched until the gateway
// confirms.
func (r *Repository) RecordPendingTopUp(ctx context.Context, userID int, amount int64, externalOrderID string) (*LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	w, err := r.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	var entry LedgerEntry
	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO wallet_ledger_entries
			(wallet_id, user_id, transaction_code, type, amount, description, reference_id, status, balance_after)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
		 RETURNING `+entryColumns,
		w.ID, w.UserID, newTransactionCode(), EntryTopUpPending, amount,
		"Wallet top-up via payment gateway", externalOrderID, w.Balance,
	).StructScan(&entry)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// CompletePendingTopUp credits the balance for a confirmed external payment
// and flips the pending entry to completed. Replaying a confirmation that
// was already applied returns the completed entry unchanged.
func (r *Repository) CompletePendingTopUp(ctx context.Context, externalOrderID string) (*LedgerEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var pending LedgerEntry
	err = tx.QueryRowxContext(ctx,
		`SELECT `+entryColumns+`
		 FROM wallet_ledger_entries
		 WHERE reference_id = $1 AND type = $2 AND status = 'pending'
		 FOR UPDATE`,
		externalOrderID, EntryTopUpPending,
	).StructScan(&pending)
	if errors.Is(err, sql.ErrNoRows) {
		// Duplicate confirmation: the pending row was already completed.
		completed, ferr := findCompletedByReference(ctx, tx, externalOrderID, EntryTopUpPending)
		if ferr != nil {
			return nil, ferr
		}
		if completed != nil {
			return completed, nil
		}
		return nil, ErrPendingTopUpNotFound
	}
	if err != nil {
		return nil, err
	}

	w, err := lockWallet(ctx, tx, pending.UserID)
	if err != nil {
		return nil, err
	}

	newBalance := w.Balance + pending.Amount
	_, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`,
		newBalance, w.ID,
	)
	if err != nil {
		return nil, err
	}

	var entry LedgerEntry
	err = tx.QueryRowxContext(ctx,
		`UPDATE wallet_ledger_entries
		 SET status = 'completed', balance_after = $1
		 WHERE id = $2
		 RETURNING `+entryColumns,
		newBalance, pending.ID,
	).StructScan(&entry)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarkPendingTopUpFailed records a gateway failure against the pending
// entry. No balance change.
func (r *Repository) MarkPendingTopUpFailed(ctx context.Context, externalOrderID, reason string) (*LedgerEntry, error) {
	var entry LedgerEntry
	err := r.db.QueryRowxContext(ctx,
		`UPDATE wallet_ledger_entries
		 SET status = 'failed', description = description || ' - ' || $1
		 WHERE reference_id = $2 AND type = $3 AND status = 'pending'
		 RETURNING `+entryColumns,
		reason, externalOrderID, EntryTopUpPending,
	).StructScan(&entry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPendingTopUpNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindEntryByReference returns the most recent ledger entry carrying the
// given reference, regardless of status. Used by the webhook reconciler to
// classify replays and orphans.
func (r *Repository) FindEntryByReference(ctx context.Context, referenceID string) (*LedgerEntry, error) {
	var e LedgerEntry
	err := r.db.GetContext(ctx, &e,
		`SELECT `+entryColumns+`
		 FROM wallet_ledger_entries
		 WHERE reference_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		referenceID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) GetTransactions(ctx context.Context, userID int, limit, offset int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []LedgerEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT `+entryColumns+`
		 FROM wallet_ledger_entries
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
