package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/pkg/enums"
)

// Voucher is one sellable inventory unit: a gift-card listing with a secret
// redemption code held encrypted at rest. IsLocked is a transient
// purchase-intent flag and must never survive a purchase attempt.
type Voucher struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID          uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Brand             string              `gorm:"column:brand;type:text;not null"`
	Title             string              `gorm:"column:title;type:text;not null"`
	FaceValuePaise    int64               `gorm:"column:face_value_paise;not null"`
	PricePaise        int64               `gorm:"column:price_paise;not null"`
	FeePercent        decimal.Decimal     `gorm:"column:fee_percent;type:numeric;not null"`
	QuantityRemaining int                 `gorm:"column:quantity_remaining;not null"`
	Status            enums.VoucherStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	IsLocked          bool                `gorm:"column:is_locked;not null;default:false"`
	EncryptedCode     string              `gorm:"column:encrypted_code;type:text"`
	RiskScore         int                 `gorm:"column:risk_score;not null;default:0"`
	ReviewNote        *string             `gorm:"column:review_note;type:text"`
	ExpiresAt         *time.Time          `gorm:"column:expires_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Voucher) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// IsExpired reports whether the voucher has passed its expiry.
func (v *Voucher) IsExpired(now time.Time) bool {
	return v.ExpiresAt != nil && now.After(*v.ExpiresAt)
}
