package reveal

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/internal/transactions"
	"github.com/voucherbay/voucherbay-backend/internal/vouchers"
	"github.com/voucherbay/voucherbay-backend/pkg/auth"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
	"github.com/voucherbay/voucherbay-backend/pkg/metrics"
	"github.com/voucherbay/voucherbay-backend/pkg/vault"
)

// CleanupScheduler is notified on the first reveal of a voucher code so the
// encrypted material can eventually be purged.
type CleanupScheduler interface {
	ScheduleVoucherCleanup(ctx context.Context, voucherID uuid.UUID)
}

// NoopScheduler ignores cleanup requests.
type NoopScheduler struct{}

func (NoopScheduler) ScheduleVoucherCleanup(ctx context.Context, voucherID uuid.UUID) {}

// Result is a decrypted code together with whether this call was the first
// reveal of the transaction.
type Result struct {
	Code        string `json:"code"`
	FirstReveal bool   `json:"first_reveal"`
}

// Service gates access to the plaintext redemption code.
type Service interface {
	Reveal(ctx context.Context, transactionID uuid.UUID, principal auth.Principal) (*Result, error)
}

type service struct {
	txRepo       transactions.Repository
	vouchersRepo vouchers.Repository
	codeVault    *vault.Vault
	scheduler    CleanupScheduler
	stats        *metrics.MarketplaceMetrics
	logg         *logger.Logger
}

// NewService wires the reveal flow. A nil scheduler falls back to the no-op.
func NewService(
	txRepo transactions.Repository,
	vouchersRepo vouchers.Repository,
	codeVault *vault.Vault,
	scheduler CleanupScheduler,
	stats *metrics.MarketplaceMetrics,
	logg *logger.Logger,
) (Service, error) {
	if txRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transactions repository required")
	}
	if vouchersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vouchers repository required")
	}
	if codeVault == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vault required")
	}
	if scheduler == nil {
		scheduler = NoopScheduler{}
	}
	return &service{
		txRepo:       txRepo,
		vouchersRepo: vouchersRepo,
		codeVault:    codeVault,
		scheduler:    scheduler,
		stats:        stats,
		logg:         logg,
	}, nil
}

// Reveal decrypts the code for the buyer (or an admin) once payment is
// confirmed. The revealed flag flips exactly once as an audit marker; repeat
// reveals still return the code.
func (s *service) Reveal(ctx context.Context, transactionID uuid.UUID, principal auth.Principal) (*Result, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	txn, err := s.txRepo.FindByID(ctx, transactionID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}

	if txn.BuyerID != principal.ID && !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can reveal the code")
	}
	if !txn.Status.IsSettled() {
		return nil, pkgerrors.New(pkgerrors.CodeNotReady, "payment has not been confirmed yet")
	}

	voucher, err := s.vouchersRepo.FindByID(ctx, txn.VoucherID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
	}
	if voucher.EncryptedCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher holds no redemption code")
	}

	code, err := s.codeVault.Decrypt(voucher.EncryptedCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrypt redemption code")
	}

	first, err := s.txRepo.MarkCodeRevealed(ctx, txn.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark code revealed")
	}
	if first {
		s.scheduler.ScheduleVoucherCleanup(ctx, voucher.ID)
	}

	s.stats.IncReveal()
	if s.logg != nil {
		ctx := s.logg.WithTransactionID(ctx, txn.ID.String())
		s.logg.Info(s.logg.WithVoucherID(ctx, voucher.ID.String()), "reveal.code_served")
	}

	return &Result{Code: code, FirstReveal: first}, nil
}
