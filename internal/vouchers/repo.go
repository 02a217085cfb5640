package vouchers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
)

// Repository persists vouchers and owns the per-voucher purchase-intent lock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, voucher *models.Voucher) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	ListByStatus(ctx context.Context, status enums.VoucherStatus, limit int) ([]models.Voucher, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Voucher, error)
	UpdateModeration(ctx context.Context, id uuid.UUID, status enums.VoucherStatus, reviewNote *string) error
	TryLock(ctx context.Context, id uuid.UUID) (bool, error)
	Unlock(ctx context.Context, id uuid.UUID) error
	DecrementQuantity(ctx context.Context, id uuid.UUID) (bool, error)
	RestoreQuantity(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a vouchers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&voucher).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.VoucherStatus, limit int) ([]models.Voucher, error) {
	var rows []models.Voucher
	query := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Voucher, error) {
	var rows []models.Voucher
	query := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateModeration(ctx context.Context, id uuid.UUID, status enums.VoucherStatus, reviewNote *string) error {
	updates := map[string]any{"status": status}
	if reviewNote != nil {
		updates["review_note"] = reviewNote
	}
	return r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// TryLock atomically claims the purchase-intent flag. The compare-and-swap in
// the WHERE clause is the whole mutual-exclusion mechanism: no row matches
// while another attempt holds the flag.
func (r *repository) TryLock(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ? AND is_locked = ?", id, false).
		Update("is_locked", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Unlock clears the purchase-intent flag unconditionally.
func (r *repository) Unlock(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ?", id).
		Update("is_locked", false).Error
}

// DecrementQuantity consumes one unit, flipping the listing to sold_out when
// the last unit goes. The quantity guard makes oversell impossible even if a
// caller slips past the lock.
func (r *repository) DecrementQuantity(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE vouchers
		SET quantity_remaining = quantity_remaining - 1,
			status = CASE WHEN quantity_remaining - 1 <= 0 THEN 'sold_out' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND quantity_remaining > 0
	`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RestoreQuantity returns one unit after a rejected purchase, reopening a
// sold_out listing.
func (r *repository) RestoreQuantity(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE vouchers
		SET quantity_remaining = quantity_remaining + 1,
			status = CASE WHEN status = 'sold_out' THEN 'published' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Voucher{}).Error
}
