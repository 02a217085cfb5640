package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEvent records who did what to which record. Written by admin-facing
// controllers, never by the core state machine.
type AuditEvent struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ActorID    uuid.UUID       `gorm:"column:actor_id;type:uuid;not null;index"`
	TargetType string          `gorm:"column:target_type;type:text;not null"`
	TargetID   uuid.UUID       `gorm:"column:target_id;type:uuid;not null;index"`
	Action     string          `gorm:"column:action;type:text;not null"`
	Details    json.RawMessage `gorm:"column:details;serializer:json"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (a *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
