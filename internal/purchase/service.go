package purchase

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/internal/fraud"
	"github.com/voucherbay/voucherbay-backend/internal/notifications"
	"github.com/voucherbay/voucherbay-backend/internal/transactions"
	"github.com/voucherbay/voucherbay-backend/internal/vouchers"
	"github.com/voucherbay/voucherbay-backend/pkg/auth"
	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
	"github.com/voucherbay/voucherbay-backend/pkg/metrics"
)

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the purchase eligibility gate: the single entry point that turns
// a buyer's intent into a pending transaction, or refuses it.
type Service interface {
	Execute(ctx context.Context, input Input) (*models.Transaction, error)
}

// Input carries one purchase attempt.
type Input struct {
	VoucherID     uuid.UUID
	Buyer         auth.Principal
	PaymentMethod enums.PaymentMethod
}

type service struct {
	vouchersRepo vouchers.Repository
	txRepo       transactions.Repository
	riskGate     fraud.Checker
	notifier     notifications.Service
	runner       TxRunner
	stats        *metrics.MarketplaceMetrics
	logg         *logger.Logger
}

// NewService wires the purchase flow dependencies.
func NewService(
	vouchersRepo vouchers.Repository,
	txRepo transactions.Repository,
	riskGate fraud.Checker,
	notifier notifications.Service,
	runner TxRunner,
	stats *metrics.MarketplaceMetrics,
	logg *logger.Logger,
) (Service, error) {
	if vouchersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vouchers repository required")
	}
	if txRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transactions repository required")
	}
	if riskGate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fraud checker required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications service required")
	}
	if runner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	return &service{
		vouchersRepo: vouchersRepo,
		txRepo:       txRepo,
		riskGate:     riskGate,
		notifier:     notifier,
		runner:       runner,
		stats:        stats,
		logg:         logg,
	}, nil
}

// Execute runs the ordered eligibility checks and, when they all pass, creates
// the transaction and consumes one inventory unit inside one database
// transaction. The voucher lock is held across the whole critical section and
// released by defer on every exit path.
func (s *service) Execute(ctx context.Context, input Input) (*models.Transaction, error) {
	txn, err := s.execute(ctx, input)
	s.stats.IncPurchase(outcomeLabel(err))
	return txn, err
}

func (s *service) execute(ctx context.Context, input Input) (*models.Transaction, error) {
	if input.VoucherID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher id required")
	}
	if input.Buyer.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method must be cash or gateway")
	}

	if _, err := s.vouchersRepo.FindByID(ctx, input.VoucherID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
	}

	lock, err := acquireLock(ctx, s.vouchersRepo, input.VoucherID, s.logg)
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	// Re-read under the lock: quantity and status may have moved while the
	// flag was free.
	voucher, err := s.vouchersRepo.FindByID(ctx, input.VoucherID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
	}

	if err := s.checkEligibility(ctx, voucher, input.Buyer); err != nil {
		return nil, err
	}

	txn := buildTransaction(voucher, input)
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.txRepo.WithTx(tx).Create(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store transaction")
		}
		consumed, err := s.vouchersRepo.WithTx(tx).DecrementQuantity(ctx, voucher.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement voucher quantity")
		}
		if !consumed {
			return pkgerrors.New(pkgerrors.CodeIneligible, "voucher is sold out")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, purchaseEvents(voucher, txn))

	if s.logg != nil {
		ctx := s.logg.WithVoucherID(ctx, voucher.ID.String())
		s.logg.Info(s.logg.WithTransactionID(ctx, txn.ID.String()), "purchase.accepted")
	}
	return txn, nil
}

func (s *service) checkEligibility(ctx context.Context, voucher *models.Voucher, buyer auth.Principal) error {
	if voucher.Status != enums.VoucherStatusPublished {
		return pkgerrors.New(pkgerrors.CodeIneligible, "voucher is not available for purchase")
	}
	if voucher.QuantityRemaining <= 0 {
		return pkgerrors.New(pkgerrors.CodeIneligible, "voucher is sold out")
	}
	if voucher.IsExpired(time.Now()) {
		return pkgerrors.New(pkgerrors.CodeIneligible, "voucher has expired")
	}
	if voucher.SellerID == buyer.ID {
		return pkgerrors.New(pkgerrors.CodeIneligible, "sellers cannot purchase their own voucher")
	}
	if buyer.VerificationStatus != enums.VerificationStatusVerified {
		return pkgerrors.New(pkgerrors.CodeIneligible, "identity verification required before purchase")
	}

	decision, err := s.riskGate.CheckRisk(ctx, voucher, buyer.ID)
	if err != nil {
		return err
	}
	switch decision {
	case enums.RiskDecisionAdmit:
		return nil
	case enums.RiskDecisionEscalate:
		return pkgerrors.New(pkgerrors.CodeUnderReview, "purchase flagged for manual review")
	case enums.RiskDecisionDeny:
		return pkgerrors.New(pkgerrors.CodeIneligible, "purchase denied by risk checks")
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, "unknown risk decision")
	}
}

// buildTransaction freezes the money split at creation time. Later fee
// configuration changes never touch an existing transaction.
func buildTransaction(voucher *models.Voucher, input Input) *models.Transaction {
	amount := voucher.PricePaise
	fee := decimal.NewFromInt(amount).
		Mul(voucher.FeePercent).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()

	status := enums.TransactionStatusPending
	if input.PaymentMethod == enums.PaymentMethodCash {
		status = enums.TransactionStatusPendingAdminConfirmation
	}

	return &models.Transaction{
		VoucherID:         voucher.ID,
		BuyerID:           input.Buyer.ID,
		SellerID:          voucher.SellerID,
		AmountPaise:       amount,
		PlatformFeePaise:  fee,
		SellerPayoutPaise: amount - fee,
		PaymentMethod:     input.PaymentMethod,
		Status:            status,
	}
}

func purchaseEvents(voucher *models.Voucher, txn *models.Transaction) []notifications.Event {
	buyerMessage := "Your purchase is awaiting payment confirmation."
	if txn.PaymentMethod == enums.PaymentMethodCash {
		buyerMessage = "Your purchase is awaiting admin confirmation of the cash payment."
	}
	return []notifications.Event{
		{
			UserID:  txn.BuyerID,
			Kind:    enums.NotificationKindPurchase,
			Title:   "Purchase created",
			Message: buyerMessage,
		},
		{
			UserID:  txn.SellerID,
			Kind:    enums.NotificationKindSale,
			Title:   "Voucher sale pending",
			Message: "A buyer has started a purchase of " + voucher.Title + ".",
		},
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return "accepted"
	}
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeLocked):
		return "locked"
	case pkgerrors.HasCode(err, pkgerrors.CodeUnderReview):
		return "under_review"
	case pkgerrors.HasCode(err, pkgerrors.CodeIneligible):
		return "ineligible"
	default:
		return "error"
	}
}
