package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
)

// Service records structured audit events for admin-sensitive actions. It is
// invoked by controllers around the core, never by the state machine itself.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.AuditEvent, error)
	ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.AuditEvent, error)
}

// RecordInput captures the immutable data an audit event requires.
type RecordInput struct {
	ActorID    uuid.UUID       `json:"actor_id"`
	TargetType string          `json:"target_type"`
	TargetID   uuid.UUID       `json:"target_id"`
	Action     string          `json:"action"`
	Details    json.RawMessage `json:"details"`
}

type service struct {
	db *gorm.DB
}

// NewService wires an audit service with the shared DB connection.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit db required")
	}
	return &service{db: db}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.AuditEvent, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if input.TargetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target id required")
	}
	if input.TargetType == "" || input.Action == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target type and action required")
	}

	event := &models.AuditEvent{
		ActorID:    input.ActorID,
		TargetType: input.TargetType,
		TargetID:   input.TargetID,
		Action:     input.Action,
		Details:    input.Details,
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store audit event")
	}
	return event, nil
}

func (s *service) ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.AuditEvent, error) {
	if targetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target id required")
	}

	var events []models.AuditEvent
	err := s.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit events")
	}
	return events, nil
}
