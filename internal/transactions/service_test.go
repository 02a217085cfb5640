package transactions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/internal/notifications"
	"github.com/voucherbay/voucherbay-backend/internal/vouchers"
	"github.com/voucherbay/voucherbay-backend/pkg/auth"
	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
)

type passthroughRunner struct{}

func (passthroughRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingSettler struct {
	settled []*models.Transaction
	err     error
}

func (r *recordingSettler) Settle(ctx context.Context, tx *gorm.DB, txn *models.Transaction) (*models.Payout, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.settled = append(r.settled, txn)
	return &models.Payout{
		SellerID:      txn.SellerID,
		TransactionID: txn.ID,
		AmountPaise:   txn.SellerPayoutPaise,
		Status:        enums.PayoutStatusPending,
	}, nil
}

type recordingNotifier struct {
	events []notifications.Event
}

func (r *recordingNotifier) Emit(ctx context.Context, event notifications.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) Dispatch(ctx context.Context, events []notifications.Event) {
	r.events = append(r.events, events...)
}

func (r *recordingNotifier) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (r *recordingNotifier) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (r *recordingNotifier) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	settler  *recordingSettler
	notifier *recordingNotifier
	voucher  *models.Voucher
	txn      *models.Transaction
}

func newFixture(t *testing.T, method enums.PaymentMethod) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Voucher{}, &models.Transaction{}))

	voucher := &models.Voucher{
		SellerID:          uuid.New(),
		Brand:             "Amazon",
		Title:             "Amazon gift card 500",
		FaceValuePaise:    50000,
		PricePaise:        45000,
		FeePercent:        decimal.NewFromInt(5),
		QuantityRemaining: 0,
		Status:            enums.VoucherStatusSoldOut,
		EncryptedCode:     "sealed",
	}
	require.NoError(t, conn.Create(voucher).Error)

	status := enums.TransactionStatusPending
	if method == enums.PaymentMethodCash {
		status = enums.TransactionStatusPendingAdminConfirmation
	}
	txn := &models.Transaction{
		VoucherID:         voucher.ID,
		BuyerID:           uuid.New(),
		SellerID:          voucher.SellerID,
		AmountPaise:       45000,
		PlatformFeePaise:  2250,
		SellerPayoutPaise: 42750,
		PaymentMethod:     method,
		Status:            status,
	}
	require.NoError(t, conn.Create(txn).Error)

	settler := &recordingSettler{}
	notifier := &recordingNotifier{}
	svc, err := NewService(
		NewRepository(conn),
		vouchers.NewRepository(conn),
		settler,
		notifier,
		passthroughRunner{},
		nil,
	)
	require.NoError(t, err)

	return &fixture{
		conn:     conn,
		svc:      svc,
		settler:  settler,
		notifier: notifier,
		voucher:  voucher,
		txn:      txn,
	}
}

func (f *fixture) reloadTxn(t *testing.T) *models.Transaction {
	t.Helper()
	var txn models.Transaction
	require.NoError(t, f.conn.Where("id = ?", f.txn.ID).First(&txn).Error)
	return &txn
}

func (f *fixture) reloadVoucher(t *testing.T) *models.Voucher {
	t.Helper()
	var voucher models.Voucher
	require.NoError(t, f.conn.Where("id = ?", f.voucher.ID).First(&voucher).Error)
	return &voucher
}

func TestAdminVerifyComplete(t *testing.T) {
	f := newFixture(t, enums.PaymentMethodCash)

	result, err := f.svc.AdminVerify(context.Background(), uuid.New(), f.txn.ID, AdminVerifyInput{Action: "complete"})
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusCompleted, result.Status)

	stored := f.reloadTxn(t)
	require.Equal(t, enums.TransactionStatusCompleted, stored.Status)
	require.Len(t, f.settler.settled, 1)
	require.Len(t, f.notifier.events, 2, "buyer and seller are both notified")

	// Inventory stays consumed on completion.
	require.Equal(t, 0, f.reloadVoucher(t).QuantityRemaining)
}

func TestAdminVerifyRejectRestoresInventory(t *testing.T) {
	f := newFixture(t, enums.PaymentMethodCash)
	note := "no cash deposit found"

	result, err := f.svc.AdminVerify(context.Background(), uuid.New(), f.txn.ID, AdminVerifyInput{
		Action:    "reject",
		AdminNote: &note,
	})
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusFailed, result.Status)

	stored := f.reloadTxn(t)
	require.Equal(t, enums.TransactionStatusFailed, stored.Status)
	require.NotNil(t, stored.AdminNote)
	require.Equal(t, note, *stored.AdminNote)

	voucher := f.reloadVoucher(t)
	require.Equal(t, 1, voucher.QuantityRemaining, "rejected purchase returns the unit")
	require.Equal(t, enums.VoucherStatusPublished, voucher.Status, "sold_out reopens")

	require.Empty(t, f.settler.settled, "no payout on rejection")
	require.Len(t, f.notifier.events, 1, "only the buyer is notified")
}

func TestAdminVerifyRepeatIsAlreadyProcessed(t *testing.T) {
	f := newFixture(t, enums.PaymentMethodCash)

	_, err := f.svc.AdminVerify(context.Background(), uuid.New(), f.txn.ID, AdminVerifyInput{Action: "complete"})
	require.NoError(t, err)

	_, err = f.svc.AdminVerify(context.Background(), uuid.New(), f.txn.ID, AdminVerifyInput{Action: "complete"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAlreadyProcessed))
	require.Len(t, f.settler.settled, 1, "repeat confirmation must not settle twice")
}

func TestAdminVerifyConflictingOutcome(t *testing.T) {
	f := newFixture(t, enums.PaymentMethodCash)

	_, err := f.svc.AdminVerify(context.Background(), uuid.New(), f.txn.ID, AdminVerifyInput{Action: "complete"})
	require.NoError(t, err)

	_, err = f.svc.AdminVerify(context.Background(), uuid.New(), f.txn.ID, AdminVerifyInput{Action: "reject"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, 0, f.reloadVoucher(t).QuantityRemaining, "conflicting reject must not restore inventory")
}

func TestAdminVerifyWrongPaymentMethod(t *testing.T) {
	f := newFixture(t, enums.PaymentMethodGateway)

	_, err := f.svc.AdminVerify(context.Background(), uuid.New(), f.txn.ID, AdminVerifyInput{Action: "complete"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestGatewayCallbackSuccess(t *testing.T) {
	f := newFixture(t, enums.PaymentMethodGateway)

	result, err := f.svc.GatewayCallback(context.Background(), f.txn.ID, GatewayCallbackInput{
		Outcome:   "success",
		Reference: "gw_ref_001",
	})
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusPaid, result.Status)

	stored := f.reloadTxn(t)
	require.Equal(t, enums.TransactionStatusPaid, stored.Status)
	require.NotNil(t, stored.GatewayReference)
	require.Equal(t, "gw_ref_001", *stored.GatewayReference)
	require.Len(t, f.settler.settled, 1)
}

func TestGatewayCallbackFailureRestoresInventory(t *testing.T) {
	f := newFixture(t, enums.PaymentMethodGateway)

	result, err := f.svc.GatewayCallback(context.Background(), f.txn.ID, GatewayCallbackInput{
		Outcome:   "failure",
		Reference: "gw_ref_002",
	})
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusFailed, result.Status)

	voucher := f.reloadVoucher(t)
	require.Equal(t, 1, voucher.QuantityRemaining)
	require.Equal(t, enums.VoucherStatusPublished, voucher.Status)
	require.Empty(t, f.settler.settled)
}

func TestGatewayCallbackRepeatIsAlreadyProcessed(t *testing.T) {
	f := newFixture(t, enums.PaymentMethodGateway)

	_, err := f.svc.GatewayCallback(context.Background(), f.txn.ID, GatewayCallbackInput{
		Outcome:   "success",
		Reference: "gw_ref_003",
	})
	require.NoError(t, err)

	_, err = f.svc.GatewayCallback(context.Background(), f.txn.ID, GatewayCallbackInput{
		Outcome:   "success",
		Reference: "gw_ref_003",
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAlreadyProcessed))
	require.Len(t, f.settler.settled, 1)
}

func TestPayoutSplitIsFrozenAcrossTransitions(t *testing.T) {
	f := newFixture(t, enums.PaymentMethodCash)

	_, err := f.svc.AdminVerify(context.Background(), uuid.New(), f.txn.ID, AdminVerifyInput{Action: "complete"})
	require.NoError(t, err)

	stored := f.reloadTxn(t)
	require.Equal(t, int64(45000), stored.AmountPaise)
	require.Equal(t, int64(2250), stored.PlatformFeePaise)
	require.Equal(t, int64(42750), stored.SellerPayoutPaise)
}

func TestGetAccessControl(t *testing.T) {
	f := newFixture(t, enums.PaymentMethodCash)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, f.txn.ID, auth.Principal{ID: f.txn.BuyerID, Role: enums.UserRoleUser})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.txn.ID, auth.Principal{ID: f.txn.SellerID, Role: enums.UserRoleUser})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.txn.ID, auth.Principal{ID: uuid.New(), Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.txn.ID, auth.Principal{ID: uuid.New(), Role: enums.UserRoleUser})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestGetUnknownTransaction(t *testing.T) {
	f := newFixture(t, enums.PaymentMethodCash)

	_, err := f.svc.Get(context.Background(), uuid.New(), auth.Principal{ID: uuid.New(), Role: enums.UserRoleAdmin})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
