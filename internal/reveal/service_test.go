package reveal

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/internal/transactions"
	"github.com/voucherbay/voucherbay-backend/internal/vouchers"
	"github.com/voucherbay/voucherbay-backend/pkg/auth"
	"github.com/voucherbay/voucherbay-backend/pkg/config"
	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/vault"
)

type recordingScheduler struct {
	scheduled []uuid.UUID
}

func (r *recordingScheduler) ScheduleVoucherCleanup(ctx context.Context, voucherID uuid.UUID) {
	r.scheduled = append(r.scheduled, voucherID)
}

type fixture struct {
	conn      *gorm.DB
	svc       Service
	scheduler *recordingScheduler
	voucher   *models.Voucher
	txn       *models.Transaction
	buyer     auth.Principal
}

func newFixture(t *testing.T, status enums.TransactionStatus) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Voucher{}, &models.Transaction{}))

	codeVault, err := vault.New(config.VaultConfig{Secret: "test-secret"})
	require.NoError(t, err)
	encrypted, err := codeVault.Encrypt("AMZ-1111-2222")
	require.NoError(t, err)

	voucher := &models.Voucher{
		SellerID:          uuid.New(),
		Brand:             "Amazon",
		Title:             "Amazon gift card 500",
		FaceValuePaise:    50000,
		PricePaise:        45000,
		FeePercent:        decimal.NewFromInt(5),
		QuantityRemaining: 0,
		Status:            enums.VoucherStatusSoldOut,
		EncryptedCode:     encrypted,
	}
	require.NoError(t, conn.Create(voucher).Error)

	buyerID := uuid.New()
	txn := &models.Transaction{
		VoucherID:         voucher.ID,
		BuyerID:           buyerID,
		SellerID:          voucher.SellerID,
		AmountPaise:       45000,
		PlatformFeePaise:  2250,
		SellerPayoutPaise: 42750,
		PaymentMethod:     enums.PaymentMethodCash,
		Status:            status,
	}
	require.NoError(t, conn.Create(txn).Error)

	scheduler := &recordingScheduler{}
	svc, err := NewService(
		transactions.NewRepository(conn),
		vouchers.NewRepository(conn),
		codeVault,
		scheduler,
		nil,
		nil,
	)
	require.NoError(t, err)

	return &fixture{
		conn:      conn,
		svc:       svc,
		scheduler: scheduler,
		voucher:   voucher,
		txn:       txn,
		buyer:     auth.Principal{ID: buyerID, Role: enums.UserRoleUser, VerificationStatus: enums.VerificationStatusVerified},
	}
}

func TestRevealReturnsPlaintextCode(t *testing.T) {
	f := newFixture(t, enums.TransactionStatusCompleted)

	result, err := f.svc.Reveal(context.Background(), f.txn.ID, f.buyer)
	require.NoError(t, err)
	require.Equal(t, "AMZ-1111-2222", result.Code)
	require.True(t, result.FirstReveal)
	require.Equal(t, []uuid.UUID{f.voucher.ID}, f.scheduler.scheduled)

	var stored models.Transaction
	require.NoError(t, f.conn.Where("id = ?", f.txn.ID).First(&stored).Error)
	require.True(t, stored.ScratchCodeRevealed)
}

func TestRevealFlagFlipsOnce(t *testing.T) {
	f := newFixture(t, enums.TransactionStatusPaid)
	ctx := context.Background()

	first, err := f.svc.Reveal(ctx, f.txn.ID, f.buyer)
	require.NoError(t, err)
	require.True(t, first.FirstReveal)

	second, err := f.svc.Reveal(ctx, f.txn.ID, f.buyer)
	require.NoError(t, err)
	require.Equal(t, "AMZ-1111-2222", second.Code, "repeat reveals still serve the code")
	require.False(t, second.FirstReveal)
	require.Len(t, f.scheduler.scheduled, 1, "cleanup is scheduled only on the first reveal")
}

func TestRevealForbiddenForStrangers(t *testing.T) {
	f := newFixture(t, enums.TransactionStatusCompleted)

	stranger := auth.Principal{ID: uuid.New(), Role: enums.UserRoleUser}
	_, err := f.svc.Reveal(context.Background(), f.txn.ID, stranger)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	seller := auth.Principal{ID: f.txn.SellerID, Role: enums.UserRoleUser}
	_, err = f.svc.Reveal(context.Background(), f.txn.ID, seller)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden), "the seller never sees the code")
}

func TestRevealAllowedForAdmin(t *testing.T) {
	f := newFixture(t, enums.TransactionStatusCompleted)

	admin := auth.Principal{ID: uuid.New(), Role: enums.UserRoleAdmin}
	result, err := f.svc.Reveal(context.Background(), f.txn.ID, admin)
	require.NoError(t, err)
	require.Equal(t, "AMZ-1111-2222", result.Code)
}

func TestRevealNotReadyBeforeConfirmation(t *testing.T) {
	for _, status := range []enums.TransactionStatus{
		enums.TransactionStatusPending,
		enums.TransactionStatusPendingAdminConfirmation,
		enums.TransactionStatusFailed,
	} {
		f := newFixture(t, status)
		_, err := f.svc.Reveal(context.Background(), f.txn.ID, f.buyer)
		require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotReady), "status %s must not reveal", status)
	}
}

func TestRevealMissingCode(t *testing.T) {
	f := newFixture(t, enums.TransactionStatusCompleted)
	require.NoError(t, f.conn.Model(&models.Voucher{}).
		Where("id = ?", f.voucher.ID).
		Update("encrypted_code", "").Error)

	_, err := f.svc.Reveal(context.Background(), f.txn.ID, f.buyer)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRevealUnknownTransaction(t *testing.T) {
	f := newFixture(t, enums.TransactionStatusCompleted)

	_, err := f.svc.Reveal(context.Background(), uuid.New(), f.buyer)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
