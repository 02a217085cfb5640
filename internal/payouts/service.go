package payouts

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/internal/notifications"
	"github.com/voucherbay/voucherbay-backend/pkg/auth"
	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
	"github.com/voucherbay/voucherbay-backend/pkg/metrics"
)

// maxQueryAppendAttempts bounds the re-read loop when the payout row moves
// under a query-thread append.
const maxQueryAppendAttempts = 3

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the payout ledger: settlement on confirmed transactions, admin
// processing, and the seller/admin query thread.
type Service interface {
	Settle(ctx context.Context, tx *gorm.DB, txn *models.Transaction) (*models.Payout, error)
	Get(ctx context.Context, id uuid.UUID, principal auth.Principal) (*models.Payout, error)
	ListMine(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Payout, error)
	ListPending(ctx context.Context, limit int) ([]models.Payout, error)
	ProcessAdminAction(ctx context.Context, adminID, payoutID uuid.UUID, input ProcessInput) (*models.Payout, error)
	BulkSettle(ctx context.Context, adminID, sellerID uuid.UUID, reference string) (*BulkResult, error)
	AddQuery(ctx context.Context, payoutID uuid.UUID, principal auth.Principal, message string) (*models.Payout, error)
}

// ProcessInput is the admin action on one pending payout. Reference identifies
// the payment on its rail and is mandatory when marking paid.
type ProcessInput struct {
	Action    string  `json:"action" validate:"required,oneof=mark_paid reject"`
	Reference *string `json:"reference,omitempty"`
	ProofURL  *string `json:"proof_url,omitempty"`
}

// BulkResult summarizes a bulk payout run for one seller.
type BulkResult struct {
	SellerID    uuid.UUID `json:"seller_id"`
	Count       int       `json:"count"`
	AmountPaise int64     `json:"amount_paise"`
	Reference   string    `json:"reference"`
}

type service struct {
	repo     Repository
	notifier notifications.Service
	runner   TxRunner
	stats    *metrics.MarketplaceMetrics
	logg     *logger.Logger
}

// NewService wires the payout ledger dependencies.
func NewService(
	repo Repository,
	notifier notifications.Service,
	runner TxRunner,
	stats *metrics.MarketplaceMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payouts repository required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications service required")
	}
	if runner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	return &service{
		repo:     repo,
		notifier: notifier,
		runner:   runner,
		stats:    stats,
		logg:     logg,
	}, nil
}

// Settle records the platform's obligation for a settled transaction. It is
// idempotent on transaction id: a repeat settle returns the existing row
// unchanged, and a concurrent settle that loses the unique index race falls
// back to a re-read.
func (s *service) Settle(ctx context.Context, tx *gorm.DB, txn *models.Transaction) (*models.Payout, error) {
	if txn == nil || txn.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction required")
	}

	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByTransactionID(ctx, txn.ID)
	if err == nil {
		return existing, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up payout")
	}

	payout := &models.Payout{
		SellerID:      txn.SellerID,
		TransactionID: txn.ID,
		AmountPaise:   txn.SellerPayoutPaise,
		Status:        enums.PayoutStatusPending,
	}
	if err := repo.Create(ctx, payout); err != nil {
		if pkgerrors.IsUniqueViolation(err) || stderrors.Is(err, gorm.ErrDuplicatedKey) {
			existing, readErr := repo.FindByTransactionID(ctx, txn.ID)
			if readErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, readErr, "re-read payout after conflict")
			}
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payout")
	}

	s.stats.IncPayout("settled")
	return payout, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, principal auth.Principal) (*models.Payout, error) {
	payout, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if payout.SellerID != principal.ID && !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payout belongs to another seller")
	}
	return payout, nil
}

func (s *service) ListMine(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Payout, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	rows, err := s.repo.ListBySeller(ctx, sellerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	return rows, nil
}

func (s *service) ListPending(ctx context.Context, limit int) ([]models.Payout, error) {
	rows, err := s.repo.ListByStatus(ctx, enums.PayoutStatusPending, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending payouts")
	}
	return rows, nil
}

// ProcessAdminAction finalizes one pending payout as paid or rejected.
func (s *service) ProcessAdminAction(ctx context.Context, adminID, payoutID uuid.UUID, input ProcessInput) (*models.Payout, error) {
	payout, err := s.load(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	var target enums.PayoutStatus
	switch input.Action {
	case "mark_paid":
		if input.Reference == nil || *input.Reference == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required to mark a payout paid")
		}
		target = enums.PayoutStatusPaid
	case "reject":
		target = enums.PayoutStatusRejected
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be mark_paid or reject")
	}

	if payout.Status != enums.PayoutStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed,
			fmt.Sprintf("payout already %s", payout.Status))
	}

	now := time.Now().UTC()
	processed, err := s.repo.MarkProcessed(ctx, payoutID, target, input.Reference, input.ProofURL, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "process payout")
	}
	if !processed {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "payout was processed concurrently")
	}

	payout.Status = target
	payout.ProcessedAt = &now
	if input.Reference != nil {
		payout.PaymentReference = input.Reference
	}
	if input.ProofURL != nil {
		payout.ProofURL = input.ProofURL
	}

	s.stats.IncPayout(input.Action)
	s.notifier.Dispatch(ctx, []notifications.Event{{
		UserID:  payout.SellerID,
		Kind:    enums.NotificationKindPayout,
		Title:   "Payout processed",
		Message: payoutProcessedMessage(payout),
	}})

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, adminID.String()), "payout.processed")
	}
	return payout, nil
}

// BulkSettle marks every pending payout of one seller paid under a single
// reference. The seller receives exactly one aggregated notification however
// many rows were covered.
func (s *service) BulkSettle(ctx context.Context, adminID, sellerID uuid.UUID, reference string) (*BulkResult, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	result := &BulkResult{SellerID: sellerID, Reference: reference}
	now := time.Now().UTC()

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pending, err := repo.ListPendingBySeller(ctx, sellerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending payouts")
		}
		for i := range pending {
			processed, err := repo.MarkProcessed(ctx, pending[i].ID, enums.PayoutStatusPaid, &reference, nil, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payout paid")
			}
			if !processed {
				continue
			}
			result.Count++
			result.AmountPaise += pending[i].AmountPaise
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Count > 0 {
		s.stats.IncPayout("bulk_paid")
		s.notifier.Dispatch(ctx, []notifications.Event{{
			UserID: sellerID,
			Kind:   enums.NotificationKindPayout,
			Title:  "Payouts settled",
			Message: fmt.Sprintf("%d payouts totalling %d paise were paid under reference %s.",
				result.Count, result.AmountPaise, reference),
		}})
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, adminID.String()), "payout.bulk_settled")
	}
	return result, nil
}

// AddQuery appends a message to the payout's query thread. The thread is
// append-only and independent of payout status. The write re-reads and retries
// when the row moved between load and update, so concurrent appends never
// overwrite each other.
func (s *service) AddQuery(ctx context.Context, payoutID uuid.UUID, principal auth.Principal, message string) (*models.Payout, error) {
	if message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message required")
	}

	sender := enums.QuerySenderUser
	if principal.IsAdmin() {
		sender = enums.QuerySenderAdmin
	}

	for attempt := 0; attempt < maxQueryAppendAttempts; attempt++ {
		payout, err := s.load(ctx, payoutID)
		if err != nil {
			return nil, err
		}
		if payout.SellerID != principal.ID && !principal.IsAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payout belongs to another seller")
		}

		thread := append(payout.QueryThread, models.PayoutQuery{
			Sender:  sender,
			Message: message,
			SentAt:  time.Now().UTC(),
		})

		applied, err := s.repo.UpdateQueryThread(ctx, payoutID, thread, payout.UpdatedAt)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payout query")
		}
		if applied {
			payout.QueryThread = thread
			return payout, nil
		}
	}

	return nil, pkgerrors.New(pkgerrors.CodeDependency, "payout was updated concurrently, retry the query")
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	payout, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	return payout, nil
}

func payoutProcessedMessage(payout *models.Payout) string {
	if payout.Status == enums.PayoutStatusPaid {
		return fmt.Sprintf("Your payout of %d paise was paid.", payout.AmountPaise)
	}
	return fmt.Sprintf("Your payout of %d paise was rejected. Use the payout query thread for details.", payout.AmountPaise)
}
