package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
)

// Repository persists the payout ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.Payout, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Payout, error)
	ListByStatus(ctx context.Context, status enums.PayoutStatus, limit int) ([]models.Payout, error)
	ListPendingBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Payout, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, status enums.PayoutStatus, reference, proofURL *string, at time.Time) (bool, error)
	UpdateQueryThread(ctx context.Context, id uuid.UUID, thread []models.PayoutQuery, expectedUpdatedAt time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Payout, error) {
	var rows []models.Payout
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

func (r *repository) ListByStatus(ctx context.Context, status enums.PayoutStatus, limit int) ([]models.Payout, error) {
	var rows []models.Payout
	query := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListPendingBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Payout, error) {
	var rows []models.Payout
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND status = ?", sellerID, enums.PayoutStatusPending).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkProcessed finalizes a pending payout. The status guard in the WHERE
// clause keeps double processing out: a payout leaves pending exactly once.
func (r *repository) MarkProcessed(ctx context.Context, id uuid.UUID, status enums.PayoutStatus, reference, proofURL *string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":       status,
		"processed_at": at,
	}
	if reference != nil {
		updates["payment_reference"] = reference
	}
	if proofURL != nil {
		updates["proof_url"] = proofURL
	}

	res := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, enums.PayoutStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateQueryThread replaces the query thread only when the row has not moved
// since the caller read it. The updated_at guard turns a lost append race into
// a retryable miss instead of a silently dropped message.
func (r *repository) UpdateQueryThread(ctx context.Context, id uuid.UUID, thread []models.PayoutQuery, expectedUpdatedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND updated_at = ?", id, expectedUpdatedAt).
		Updates(map[string]any{
			"query_thread": thread,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
