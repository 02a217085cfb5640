package transactions

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/internal/notifications"
	"github.com/voucherbay/voucherbay-backend/internal/vouchers"
	"github.com/voucherbay/voucherbay-backend/pkg/auth"
	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
)

// Settler records the payout for a settled transaction inside the same
// database transaction as the state change.
type Settler interface {
	Settle(ctx context.Context, tx *gorm.DB, txn *models.Transaction) (*models.Payout, error)
}

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the transaction state machine. Both confirmation paths (admin
// for cash, callback for gateway) converge here so the side effects stay in
// one place.
type Service interface {
	Get(ctx context.Context, id uuid.UUID, principal auth.Principal) (*models.Transaction, error)
	ListPurchases(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Transaction, error)
	ListSales(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Transaction, error)
	ListPendingReview(ctx context.Context, limit int) ([]models.Transaction, error)
	AdminVerify(ctx context.Context, adminID, transactionID uuid.UUID, input AdminVerifyInput) (*models.Transaction, error)
	GatewayCallback(ctx context.Context, transactionID uuid.UUID, input GatewayCallbackInput) (*models.Transaction, error)
}

// AdminVerifyInput is the admin verdict on a cash payment.
type AdminVerifyInput struct {
	Action    string  `json:"action" validate:"required,oneof=complete reject"`
	AdminNote *string `json:"admin_note,omitempty"`
}

// GatewayCallbackInput carries the gateway's confirmation outcome.
type GatewayCallbackInput struct {
	Outcome   string `json:"outcome" validate:"required,oneof=success failure"`
	Reference string `json:"reference" validate:"required"`
}

// transition is one legal edge of the state machine together with its side
// effects. The edge is applied with a guarded UPDATE so concurrent
// confirmations cannot both win.
type transition struct {
	from             enums.TransactionStatus
	to               enums.TransactionStatus
	restoreInventory bool
	settlePayout     bool
}

type service struct {
	repo         Repository
	vouchersRepo vouchers.Repository
	settler      Settler
	notifier     notifications.Service
	runner       TxRunner
	logg         *logger.Logger
}

// NewService wires the state machine dependencies.
func NewService(
	repo Repository,
	vouchersRepo vouchers.Repository,
	settler Settler,
	notifier notifications.Service,
	runner TxRunner,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transactions repository required")
	}
	if vouchersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vouchers repository required")
	}
	if settler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payout settler required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications service required")
	}
	if runner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	return &service{
		repo:         repo,
		vouchersRepo: vouchersRepo,
		settler:      settler,
		notifier:     notifier,
		runner:       runner,
		logg:         logg,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, principal auth.Principal) (*models.Transaction, error) {
	txn, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.BuyerID != principal.ID && txn.SellerID != principal.ID && !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to another user")
	}
	return txn, nil
}

func (s *service) ListPurchases(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Transaction, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	rows, err := s.repo.ListByBuyer(ctx, buyerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	return rows, nil
}

func (s *service) ListSales(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Transaction, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	rows, err := s.repo.ListBySeller(ctx, sellerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	return rows, nil
}

func (s *service) ListPendingReview(ctx context.Context, limit int) ([]models.Transaction, error) {
	rows, err := s.repo.ListByStatus(ctx, enums.TransactionStatusPendingAdminConfirmation, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending transactions")
	}
	return rows, nil
}

// AdminVerify confirms or rejects a cash payment.
func (s *service) AdminVerify(ctx context.Context, adminID, transactionID uuid.UUID, input AdminVerifyInput) (*models.Transaction, error) {
	txn, err := s.load(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.PaymentMethod != enums.PaymentMethodCash {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only cash payments are verified by admins")
	}

	var edge transition
	switch input.Action {
	case "complete":
		edge = transition{
			from:         enums.TransactionStatusPendingAdminConfirmation,
			to:           enums.TransactionStatusCompleted,
			settlePayout: true,
		}
	case "reject":
		edge = transition{
			from:             enums.TransactionStatusPendingAdminConfirmation,
			to:               enums.TransactionStatusFailed,
			restoreInventory: true,
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be complete or reject")
	}

	txn, err = s.apply(ctx, txn, edge, input.AdminNote, nil)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		ctx := s.logg.WithTransactionID(ctx, txn.ID.String())
		s.logg.Info(s.logg.WithUserID(ctx, adminID.String()), "transaction.admin_verified")
	}
	return txn, nil
}

// GatewayCallback applies the gateway's outcome to a pending transaction. A
// failure callback mirrors an admin reject: the reserved unit goes back on
// sale.
func (s *service) GatewayCallback(ctx context.Context, transactionID uuid.UUID, input GatewayCallbackInput) (*models.Transaction, error) {
	txn, err := s.load(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.PaymentMethod != enums.PaymentMethodGateway {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is not on the gateway path")
	}

	var edge transition
	switch input.Outcome {
	case "success":
		edge = transition{
			from:         enums.TransactionStatusPending,
			to:           enums.TransactionStatusPaid,
			settlePayout: true,
		}
	case "failure":
		edge = transition{
			from:             enums.TransactionStatusPending,
			to:               enums.TransactionStatusFailed,
			restoreInventory: true,
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outcome must be success or failure")
	}

	reference := input.Reference
	txn, err = s.apply(ctx, txn, edge, nil, &reference)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithTransactionID(ctx, txn.ID.String()), "transaction.gateway_confirmed")
	}
	return txn, nil
}

// apply moves the transaction along one edge and runs the edge's side effects
// in the same database transaction. Notifications go out after commit.
func (s *service) apply(ctx context.Context, txn *models.Transaction, edge transition, adminNote, gatewayReference *string) (*models.Transaction, error) {
	if txn.Status != edge.from {
		return nil, s.classifyStale(txn, edge)
	}

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).TransitionStatus(ctx, txn.ID, edge.from, edge.to, adminNote, gatewayReference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition transaction")
		}
		if !moved {
			// Lost the race; re-read outside and classify.
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction state moved concurrently")
		}
		if edge.restoreInventory {
			if err := s.vouchersRepo.WithTx(tx).RestoreQuantity(ctx, txn.VoucherID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore voucher quantity")
			}
		}
		if edge.settlePayout {
			if _, err := s.settler.Settle(ctx, tx, txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
			if current, loadErr := s.load(ctx, txn.ID); loadErr == nil {
				return nil, s.classifyStale(current, edge)
			}
		}
		return nil, err
	}

	txn.Status = edge.to
	if adminNote != nil {
		txn.AdminNote = adminNote
	}
	if gatewayReference != nil {
		txn.GatewayReference = gatewayReference
	}

	s.notifier.Dispatch(ctx, transitionEvents(txn, edge))
	return txn, nil
}

// classifyStale distinguishes a repeat of an already applied confirmation
// (idempotent to callers) from a genuinely illegal transition.
func (s *service) classifyStale(txn *models.Transaction, edge transition) error {
	if txn.Status == edge.to {
		return pkgerrors.New(pkgerrors.CodeAlreadyProcessed,
			fmt.Sprintf("transaction already %s", txn.Status))
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot move transaction from %s to %s", txn.Status, edge.to))
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return txn, nil
}

func transitionEvents(txn *models.Transaction, edge transition) []notifications.Event {
	switch edge.to {
	case enums.TransactionStatusCompleted, enums.TransactionStatusPaid:
		return []notifications.Event{
			{
				UserID:  txn.BuyerID,
				Kind:    enums.NotificationKindPurchase,
				Title:   "Payment confirmed",
				Message: "Your payment is confirmed. The voucher code is ready to reveal.",
			},
			{
				UserID:  txn.SellerID,
				Kind:    enums.NotificationKindSale,
				Title:   "Sale confirmed",
				Message: "Your voucher sold. The payout has been recorded in your ledger.",
			},
		}
	case enums.TransactionStatusFailed:
		return []notifications.Event{
			{
				UserID:  txn.BuyerID,
				Kind:    enums.NotificationKindPurchase,
				Title:   "Payment not confirmed",
				Message: "Your purchase was not confirmed and has been cancelled. The voucher is back on sale.",
			},
		}
	default:
		return nil
	}
}
