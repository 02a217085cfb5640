package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/pkg/enums"
)

// PayoutQuery is one message on a payout's seller/admin thread.
type PayoutQuery struct {
	Sender  enums.QuerySender `json:"sender"`
	Message string            `json:"message"`
	SentAt  time.Time         `json:"sent_at"`
}

// Payout is the platform's obligation to pay a seller for one completed
// transaction. TransactionID is unique: settlement is idempotent by
// construction.
type Payout struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	SellerID         uuid.UUID          `gorm:"column:seller_id;type:uuid;not null;index"`
	TransactionID    uuid.UUID          `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex"`
	AmountPaise      int64              `gorm:"column:amount_paise;not null"`
	Status           enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentReference *string            `gorm:"column:payment_reference;type:text"`
	ProofURL         *string            `gorm:"column:proof_url;type:text"`
	ProcessedAt      *time.Time         `gorm:"column:processed_at"`
	QueryThread      []PayoutQuery      `gorm:"column:query_thread;serializer:json"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
