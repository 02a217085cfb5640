package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
)

// Repository persists transactions. Rows are append-and-update only, never
// deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Transaction, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Transaction, error)
	ListByStatus(ctx context.Context, status enums.TransactionStatus, limit int) ([]models.Transaction, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus, adminNote, gatewayReference *string) (bool, error)
	MarkCodeRevealed(ctx context.Context, id uuid.UUID) (bool, error)
	CountFailedByBuyerSince(ctx context.Context, buyerID uuid.UUID, since time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a transactions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Transaction, error) {
	return r.list(ctx, "buyer_id = ?", buyerID, limit)
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Transaction, error) {
	return r.list(ctx, "seller_id = ?", sellerID, limit)
}

func (r *repository) ListByStatus(ctx context.Context, status enums.TransactionStatus, limit int) ([]models.Transaction, error) {
	return r.list(ctx, "status = ?", status, limit)
}

func (r *repository) list(ctx context.Context, cond string, arg any, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	query := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TransitionStatus moves a transaction between states with a guard on the
// current state. The WHERE clause makes concurrent confirmations race-safe:
// only one caller observes RowsAffected > 0.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus, adminNote, gatewayReference *string) (bool, error) {
	updates := map[string]any{"status": to}
	if adminNote != nil {
		updates["admin_note"] = adminNote
	}
	if gatewayReference != nil {
		updates["gateway_reference"] = gatewayReference
	}

	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkCodeRevealed flips the audit marker exactly once.
func (r *repository) MarkCodeRevealed(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND scratch_code_revealed = ?", id, false).
		Update("scratch_code_revealed", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CountFailedByBuyerSince(ctx context.Context, buyerID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("buyer_id = ? AND status = ? AND created_at >= ?", buyerID, enums.TransactionStatusFailed, since).
		Count(&count).Error
	return count, err
}
