package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
	"github.com/voucherbay/voucherbay-backend/pkg/pagination"
)

// Event is a pending notification produced by a state transition. The core
// returns these from transitions and dispatches them after commit, keeping the
// state machine free of delivery concerns.
type Event struct {
	UserID  uuid.UUID
	Kind    enums.NotificationKind
	Title   string
	Message string
	Link    *string
}

// Service defines notification emit/list/read operations.
type Service interface {
	Emit(ctx context.Context, event Event) error
	Dispatch(ctx context.Context, events []Event)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// ListParams configures pagination for notifications.
type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Emit(ctx context.Context, event Event) error {
	if event.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification user id required")
	}
	if !event.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification kind")
	}
	if event.Message == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification message required")
	}

	notification := &models.Notification{
		UserID:  event.UserID,
		Kind:    event.Kind,
		Title:   event.Title,
		Message: event.Message,
		Link:    event.Link,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store notification")
	}
	return nil
}

// Dispatch emits each event, logging failures. Delivery problems never roll
// back the state transition that produced the events.
func (s *service) Dispatch(ctx context.Context, events []Event) {
	for _, event := range events {
		if err := s.Emit(ctx, event); err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithUserID(ctx, event.UserID.String()), "notification.dispatch_failed", err)
			}
		}
	}
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listNotificationsParams{
		UserID:     params.UserID,
		Limit:      pagination.LimitWithBuffer(params.Limit),
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	count, err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
