package vouchers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Voucher{}))
	return conn
}

func seedVoucher(t *testing.T, conn *gorm.DB, mutate func(*models.Voucher)) *models.Voucher {
	t.Helper()
	voucher := &models.Voucher{
		SellerID:          uuid.New(),
		Brand:             "Amazon",
		Title:             "Amazon gift card 500",
		FaceValuePaise:    50000,
		PricePaise:        45000,
		FeePercent:        decimal.NewFromInt(5),
		QuantityRemaining: 1,
		Status:            enums.VoucherStatusPublished,
		EncryptedCode:     "sealed",
	}
	if mutate != nil {
		mutate(voucher)
	}
	require.NoError(t, conn.Create(voucher).Error)
	return voucher
}

func TestTryLockIsExclusive(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	voucher := seedVoucher(t, conn, nil)

	got, err := repo.TryLock(ctx, voucher.ID)
	require.NoError(t, err)
	require.True(t, got)

	got, err = repo.TryLock(ctx, voucher.ID)
	require.NoError(t, err)
	require.False(t, got, "second claim must lose the compare-and-swap")

	require.NoError(t, repo.Unlock(ctx, voucher.ID))

	got, err = repo.TryLock(ctx, voucher.ID)
	require.NoError(t, err)
	require.True(t, got, "lock must be claimable again after release")
}

func TestTryLockUnknownVoucher(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)

	got, err := repo.TryLock(context.Background(), uuid.New())
	require.NoError(t, err)
	require.False(t, got)
}

func TestDecrementQuantityFlipsSoldOut(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	voucher := seedVoucher(t, conn, func(v *models.Voucher) {
		v.QuantityRemaining = 2
	})

	ok, err := repo.DecrementQuantity(ctx, voucher.ID)
	require.NoError(t, err)
	require.True(t, ok)

	current, err := repo.FindByID(ctx, voucher.ID)
	require.NoError(t, err)
	require.Equal(t, 1, current.QuantityRemaining)
	require.Equal(t, enums.VoucherStatusPublished, current.Status)

	ok, err = repo.DecrementQuantity(ctx, voucher.ID)
	require.NoError(t, err)
	require.True(t, ok)

	current, err = repo.FindByID(ctx, voucher.ID)
	require.NoError(t, err)
	require.Equal(t, 0, current.QuantityRemaining)
	require.Equal(t, enums.VoucherStatusSoldOut, current.Status)

	ok, err = repo.DecrementQuantity(ctx, voucher.ID)
	require.NoError(t, err)
	require.False(t, ok, "exhausted inventory must refuse further decrements")
}

func TestRestoreQuantityReopensListing(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	voucher := seedVoucher(t, conn, func(v *models.Voucher) {
		v.QuantityRemaining = 0
		v.Status = enums.VoucherStatusSoldOut
	})

	require.NoError(t, repo.RestoreQuantity(ctx, voucher.ID))

	current, err := repo.FindByID(ctx, voucher.ID)
	require.NoError(t, err)
	require.Equal(t, 1, current.QuantityRemaining)
	require.Equal(t, enums.VoucherStatusPublished, current.Status)
}

func TestUpdateModeration(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	voucher := seedVoucher(t, conn, func(v *models.Voucher) {
		v.Status = enums.VoucherStatusPendingVerification
	})

	note := "brand mismatch"
	require.NoError(t, repo.UpdateModeration(ctx, voucher.ID, enums.VoucherStatusRejected, &note))

	current, err := repo.FindByID(ctx, voucher.ID)
	require.NoError(t, err)
	require.Equal(t, enums.VoucherStatusRejected, current.Status)
	require.NotNil(t, current.ReviewNote)
	require.Equal(t, note, *current.ReviewNote)
}
