package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/pkg/enums"
)

// User is a marketplace participant. Registration and profile management live
// in the identity service; this table backs login and principal lookups only.
type User struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Name               string                   `gorm:"column:name;type:text;not null"`
	Email              string                   `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash       string                   `gorm:"column:password_hash;type:text;not null"`
	Role               enums.UserRole           `gorm:"column:role;type:text;not null;default:'user'"`
	VerificationStatus enums.VerificationStatus `gorm:"column:verification_status;type:text;not null;default:'pending'"`
	Suspended          bool                     `gorm:"column:suspended;not null;default:false"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
