package escrow

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LocDang637/CosplayDate-sub001/internal/logger"
	"github.com/LocDang637/CosplayDate-sub001/internal/wallet"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type mockEscrowRepo struct {
	mock.Mock
}

func (m *mockEscrowRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, bookingID, payerID, payeeID int, amount int64, transactionCode string) (*Transaction, error) {
	args := m.Called(ctx, tx, bookingID, payerID, payeeID, amount, transactionCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *mockEscrowRepo) GetHeldByBookingTx(ctx context.Context, tx *sqlx.Tx, bookingID int) (*Transaction, error) {
	args := m.Called(ctx, tx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *mockEscrowRepo) GetHeldByIDTx(ctx context.Context, tx *sqlx.Tx, id int) (*Transaction, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *mockEscrowRepo) UpdateAmountTx(ctx context.Context, tx *sqlx.Tx, id int, amount int64) (bool, error) {
	args := m.Called(ctx, tx, id, amount)
	return args.Bool(0), args.Error(1)
}

func (m *mockEscrowRepo) MarkReleasedTx(ctx context.Context, tx *sqlx.Tx, id int) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockEscrowRepo) MarkRefundedTx(ctx context.Context, tx *sqlx.Tx, id int) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockEscrowRepo) GetByBookingID(ctx context.Context, bookingID int) (*Transaction, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *mockEscrowRepo) GetByID(ctx context.Context, id int) (*Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) GetOrCreateWallet(ctx context.Context, userID int) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *mockLedger) Debit(ctx context.Context, userID int, amount int64, entryType wallet.EntryType, description, referenceID string) (*wallet.LedgerEntry, error) {
	args := m.Called(ctx, userID, amount, entryType, description, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.LedgerEntry), args.Error(1)
}

func (m *mockLedger) DebitTx(ctx context.Context, tx *sqlx.Tx, userID int, amount int64, entryType wallet.EntryType, description, referenceID string) (*wallet.LedgerEntry, error) {
	args := m.Called(ctx, tx, userID, amount, entryType, description, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.LedgerEntry), args.Error(1)
}

func (m *mockLedger) Credit(ctx context.Context, userID int, amount int64, entryType wallet.EntryType, description, referenceID string) (*wallet.LedgerEntry, error) {
	args := m.Called(ctx, userID, amount, entryType, description, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.LedgerEntry), args.Error(1)
}

func (m *mockLedger) CreditTx(ctx context.Context, tx *sqlx.Tx, userID int, amount int64, entryType wallet.EntryType, description, referenceID string) (*wallet.LedgerEntry, error) {
	args := m.Called(ctx, tx, userID, amount, entryType, description, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.LedgerEntry), args.Error(1)
}

func (m *mockLedger) RecordPendingTopUp(ctx context.Context, userID int, amount int64, externalOrderID string) (*wallet.LedgerEntry, error) {
	args := m.Called(ctx, userID, amount, externalOrderID)
	return args.Get(0).(*wallet.LedgerEntry), args.Error(1)
}

func (m *mockLedger) CompletePendingTopUp(ctx context.Context, externalOrderID string) (*wallet.LedgerEntry, error) {
	args := m.Called(ctx, externalOrderID)
	return args.Get(0).(*wallet.LedgerEntry), args.Error(1)
}

func (m *mockLedger) MarkPendingTopUpFailed(ctx context.Context, externalOrderID, reason string) (*wallet.LedgerEntry, error) {
	args := m.Called(ctx, externalOrderID, reason)
	return args.Get(0).(*wallet.LedgerEntry), args.Error(1)
}

func (m *mockLedger) FindEntryByReference(ctx context.Context, referenceID string) (*wallet.LedgerEntry, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.LedgerEntry), args.Error(1)
}

func (m *mockLedger) GetTransactions(ctx context.Context, userID int, limit, offset int) ([]wallet.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]wallet.LedgerEntry), args.Error(1)
}

type mockBookingStore struct {
	mock.Mock
}

func (m *mockBookingStore) MarkCompletedTx(ctx context.Context, tx *sqlx.Tx, bookingID int) error {
	args := m.Called(ctx, tx, bookingID)
	return args.Error(0)
}

func (m *mockBookingStore) MarkCancelledTx(ctx context.Context, tx *sqlx.Tx, bookingID int, reason string) error {
	args := m.Called(ctx, tx, bookingID, reason)
	return args.Error(0)
}

type escrowFixture struct {
	svc      Service
	repo     *mockEscrowRepo
	ledger   *mockLedger
	bookings *mockBookingStore
	dbMock   sqlmock.Sqlmock
	close    func()
}

func newEscrowFixture(t *testing.T) *escrowFixture {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	repo := new(mockEscrowRepo)
	ledger := new(mockLedger)
	bookings := new(mockBookingStore)

	return &escrowFixture{
		svc:      NewService(sqlxDB, repo, ledger, bookings),
		repo:     repo,
		ledger:   ledger,
		bookings: bookings,
		dbMock:   dbMock,
		close:    func() { sqlxDB.Close() },
	}
}

func heldEscrow() *Transaction {
	return &Transaction{
		ID:              7,
		BookingID:       42,
		PayerID:         1,
		PayeeID:         2,
		Amount:          1000,
		Status:          StatusHeld,
		TransactionCode: "ESC-abc",
		CreatedAt:       time.Now(),
	}
}

func TestCreateTx_DebitsPayerForFullHold(t *testing.T) {
	f := newEscrowFixture(t)
	defer f.close()

	ctx := context.Background()

	f.repo.On("CreateTx", ctx, mock.Anything, 42, 1, 2, int64(1000), mock.Anything).
		Return(heldEscrow(), nil)
	f.ledger.On("DebitTx", ctx, mock.Anything, 1, int64(1000), wallet.EntryEscrowHold, mock.Anything, "ESC-abc").
		Return(&wallet.LedgerEntry{Amount: -1000}, nil)

	// The caller owns the transaction; a nil tx passes through the mocks.
	e, err := f.svc.CreateTx(ctx, nil, 42, 1, 2, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), e.Amount)
	assert.Equal(t, StatusHeld, e.Status)

	f.ledger.AssertExpectations(t)
}

func TestCreateTx_DebitFailureSurfaces(t *testing.T) {
	f := newEscrowFixture(t)
	defer f.close()

	ctx := context.Background()

	f.repo.On("CreateTx", ctx, mock.Anything, 42, 1, 2, int64(1000), mock.Anything).
		Return(heldEscrow(), nil)
	f.ledger.On("DebitTx", ctx, mock.Anything, 1, int64(1000), wallet.EntryEscrowHold, mock.Anything, "ESC-abc").
		Return(nil, wallet.ErrInsufficientBalance)

	_, err := f.svc.CreateTx(ctx, nil, 42, 1, 2, 1000)
	require.ErrorIs(t, err, wallet.ErrInsufficientBalance)
}

func TestRelease_CreditsPayeeExactly(t *testing.T) {
	f := newEscrowFixture(t)
	defer f.close()

	ctx := context.Background()

	f.dbMock.ExpectBegin()
	f.dbMock.ExpectCommit()

	f.repo.On("GetHeldByBookingTx", ctx, mock.Anything, 42).Return(heldEscrow(), nil)
	// Conservation: the payee receives exactly the held amount.
	f.ledger.On("CreditTx", ctx, mock.Anything, 2, int64(1000), wallet.EntryEscrowRelease, mock.Anything, "ESC-abc").
		Return(&wallet.LedgerEntry{Amount: 1000}, nil)
	f.repo.On("MarkReleasedTx", ctx, mock.Anything, 7).Return(true, nil)
	f.bookings.On("MarkCompletedTx", ctx, mock.Anything, 42).Return(nil)

	released, err := f.svc.Release(ctx, 42)
	require.NoError(t, err)
	assert.True(t, released)

	f.ledger.AssertExpectations(t)
	f.bookings.AssertExpectations(t)
	require.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestRelease_NoHeldEscrowIsBenign(t *testing.T) {
	f := newEscrowFixture(t)
	defer f.close()

	ctx := context.Background()

	f.dbMock.ExpectBegin()
	f.dbMock.ExpectRollback()

	f.repo.On("GetHeldByBookingTx", ctx, mock.Anything, 42).Return(nil, nil)

	released, err := f.svc.Release(ctx, 42)
	require.NoError(t, err)
	assert.False(t, released)

	f.ledger.AssertNotCalled(t, "CreditTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	require.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestRefund_PartialCreditsPayer(t *testing.T) {
	f := newEscrowFixture(t)
	defer f.close()

	ctx := context.Background()

	f.dbMock.ExpectBegin()
	f.dbMock.ExpectCommit()

	f.repo.On("GetHeldByIDTx", ctx, mock.Anything, 7).Return(heldEscrow(), nil)
	f.ledger.On("CreditTx", ctx, mock.Anything, 1, int64(500), wallet.EntryEscrowRefund, mock.Anything, "ESC-abc").
		Return(&wallet.LedgerEntry{Amount: 500}, nil)
	f.repo.On("MarkRefundedTx", ctx, mock.Anything, 7).Return(true, nil)
	f.bookings.On("MarkCancelledTx", ctx, mock.Anything, 42, "schedule conflict").Return(nil)

	refunded, err := f.svc.Refund(ctx, 7, 500, "schedule conflict")
	require.NoError(t, err)
	assert.True(t, refunded)

	f.ledger.AssertExpectations(t)
	f.bookings.AssertExpectations(t)
	require.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestRefund_ZeroAmountStillResolves(t *testing.T) {
	f := newEscrowFixture(t)
	defer f.close()

	ctx := context.Background()

	f.dbMock.ExpectBegin()
	f.dbMock.ExpectCommit()

	f.repo.On("GetHeldByIDTx", ctx, mock.Anything, 7).Return(heldEscrow(), nil)
	f.repo.On("MarkRefundedTx", ctx, mock.Anything, 7).Return(true, nil)
	f.bookings.On("MarkCancelledTx", ctx, mock.Anything, 42, "late cancellation").Return(nil)

	refunded, err := f.svc.Refund(ctx, 7, 0, "late cancellation")
	require.NoError(t, err)
	assert.True(t, refunded)

	// No money moves; the hold is simply forfeited.
	f.ledger.AssertNotCalled(t, "CreditTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	require.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestRefund_ExceedingHoldRejected(t *testing.T) {
	f := newEscrowFixture(t)
	defer f.close()

	ctx := context.Background()

	f.dbMock.ExpectBegin()
	f.dbMock.ExpectRollback()

	f.repo.On("GetHeldByIDTx", ctx, mock.Anything, 7).Return(heldEscrow(), nil)

	_, err := f.svc.Refund(ctx, 7, 1500, "too much")
	require.ErrorIs(t, err, ErrRefundExceedsHold)
	require.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestRefund_NotHeldIsBenign(t *testing.T) {
	f := newEscrowFixture(t)
	defer f.close()

	ctx := context.Background()

	f.dbMock.ExpectBegin()
	f.dbMock.ExpectRollback()

	f.repo.On("GetHeldByIDTx", ctx, mock.Anything, 7).Return(nil, nil)

	refunded, err := f.svc.Refund(ctx, 7, 500, "again")
	require.NoError(t, err)
	assert.False(t, refunded)
	require.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestAdjustHoldTx_ResizesHeldAmount(t *testing.T) {
	f := newEscrowFixture(t)
	defer f.close()

	ctx := context.Background()

	f.repo.On("GetHeldByBookingTx", ctx, mock.Anything, 42).Return(heldEscrow(), nil)
	f.repo.On("UpdateAmountTx", ctx, mock.Anything, 7, int64(1500)).Return(true, nil)

	e, err := f.svc.AdjustHoldTx(ctx, nil, 42, 1500)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), e.Amount)
}

func TestAdjustHoldTx_NoHeldEscrow(t *testing.T) {
	f := newEscrowFixture(t)
	defer f.close()

	ctx := context.Background()

	f.repo.On("GetHeldByBookingTx", ctx, mock.Anything, 42).Return(nil, nil)

	_, err := f.svc.AdjustHoldTx(ctx, nil, 42, 1500)
	require.Error(t, err)
}
