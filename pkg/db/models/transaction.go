package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/pkg/enums"
)

// Transaction is one purchase agreement. It is a financial record: rows are
// never deleted, and SellerPayoutPaise is frozen at creation regardless of
// later fee configuration changes.
type Transaction struct {
	ID                  uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	VoucherID           uuid.UUID               `gorm:"column:voucher_id;type:uuid;not null;index"`
	BuyerID             uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID            uuid.UUID               `gorm:"column:seller_id;type:uuid;not null;index"`
	AmountPaise         int64                   `gorm:"column:amount_paise;not null"`
	PlatformFeePaise    int64                   `gorm:"column:platform_fee_paise;not null"`
	SellerPayoutPaise   int64                   `gorm:"column:seller_payout_paise;not null"`
	PaymentMethod       enums.PaymentMethod     `gorm:"column:payment_method;type:text;not null"`
	Status              enums.TransactionStatus `gorm:"column:status;type:text;not null"`
	ScratchCodeRevealed bool                    `gorm:"column:scratch_code_revealed;not null;default:false"`
	AdminNote           *string                 `gorm:"column:admin_note;type:text"`
	GatewayReference    *string                 `gorm:"column:gateway_reference;type:text"`
	CreatedAt           time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
