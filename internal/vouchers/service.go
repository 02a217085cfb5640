package vouchers

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/internal/notifications"
	"github.com/voucherbay/voucherbay-backend/pkg/auth"
	"github.com/voucherbay/voucherbay-backend/pkg/config"
	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
	"github.com/voucherbay/voucherbay-backend/pkg/vault"
)

// Service manages voucher listings: seller creation, catalog reads, and admin
// moderation. The redemption code is encrypted before it ever reaches the
// repository and is never included in reads from this service.
type Service interface {
	CreateListing(ctx context.Context, sellerID uuid.UUID, input CreateListingInput) (*View, error)
	Get(ctx context.Context, id uuid.UUID) (*View, error)
	ListPublished(ctx context.Context, limit int) ([]View, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]View, error)
	Moderate(ctx context.Context, adminID, voucherID uuid.UUID, input ModerateInput) (*View, error)
	DeleteListing(ctx context.Context, voucherID uuid.UUID, principal auth.Principal) error
}

// CreateListingInput is the seller-facing listing payload. Code is the
// plaintext redemption secret, accepted once and sealed immediately.
type CreateListingInput struct {
	Brand          string     `json:"brand" validate:"required,max=120"`
	Title          string     `json:"title" validate:"required,max=200"`
	FaceValuePaise int64      `json:"face_value_paise" validate:"required,gt=0"`
	PricePaise     int64      `json:"price_paise" validate:"required,gt=0"`
	Quantity       int        `json:"quantity" validate:"required,gt=0"`
	Code           string     `json:"code" validate:"required"`
	FeePercent     *string    `json:"fee_percent,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// ModerateInput carries the admin verdict on a pending listing.
type ModerateInput struct {
	Decision   string  `json:"decision" validate:"required,oneof=publish reject"`
	ReviewNote *string `json:"review_note,omitempty"`
}

// View is the outward shape of a voucher. The encrypted code stays behind the
// reveal flow.
type View struct {
	ID                uuid.UUID           `json:"id"`
	SellerID          uuid.UUID           `json:"seller_id"`
	Brand             string              `json:"brand"`
	Title             string              `json:"title"`
	FaceValuePaise    int64               `json:"face_value_paise"`
	PricePaise        int64               `json:"price_paise"`
	FeePercent        decimal.Decimal     `json:"fee_percent"`
	QuantityRemaining int                 `json:"quantity_remaining"`
	Status            enums.VoucherStatus `json:"status"`
	RiskScore         int                 `json:"risk_score"`
	ReviewNote        *string             `json:"review_note,omitempty"`
	ExpiresAt         *time.Time          `json:"expires_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

type service struct {
	repo     Repository
	vault    *vault.Vault
	notifier notifications.Service
	fees     config.FeesConfig
	logg     *logger.Logger
}

// NewService wires voucher listing dependencies.
func NewService(
	repo Repository,
	codeVault *vault.Vault,
	notifier notifications.Service,
	fees config.FeesConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vouchers repository required")
	}
	if codeVault == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vault required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications service required")
	}
	return &service{
		repo:     repo,
		vault:    codeVault,
		notifier: notifier,
		fees:     fees,
		logg:     logg,
	}, nil
}

func (s *service) CreateListing(ctx context.Context, sellerID uuid.UUID, input CreateListingInput) (*View, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.ExpiresAt != nil && input.ExpiresAt.Before(time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry must be in the future")
	}

	feePercent, err := s.resolveFeePercent(input.FeePercent)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.vault.Encrypt(input.Code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encrypt redemption code")
	}

	voucher := &models.Voucher{
		SellerID:          sellerID,
		Brand:             input.Brand,
		Title:             input.Title,
		FaceValuePaise:    input.FaceValuePaise,
		PricePaise:        input.PricePaise,
		FeePercent:        feePercent,
		QuantityRemaining: input.Quantity,
		Status:            enums.VoucherStatusPendingVerification,
		EncryptedCode:     encrypted,
		ExpiresAt:         input.ExpiresAt,
	}
	if err := s.repo.Create(ctx, voucher); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store voucher")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithVoucherID(ctx, voucher.ID.String()), "voucher.listing_created")
	}
	return toView(voucher), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher id required")
	}
	voucher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrDependency(err, "voucher")
	}
	return toView(voucher), nil
}

func (s *service) ListPublished(ctx context.Context, limit int) ([]View, error) {
	rows, err := s.repo.ListByStatus(ctx, enums.VoucherStatusPublished, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list published vouchers")
	}
	return toViews(rows), nil
}

func (s *service) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]View, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	rows, err := s.repo.ListBySeller(ctx, sellerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller vouchers")
	}
	return toViews(rows), nil
}

// Moderate applies an admin verdict. Only listings awaiting verification can
// be published or rejected.
func (s *service) Moderate(ctx context.Context, adminID, voucherID uuid.UUID, input ModerateInput) (*View, error) {
	if voucherID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher id required")
	}

	voucher, err := s.repo.FindByID(ctx, voucherID)
	if err != nil {
		return nil, notFoundOrDependency(err, "voucher")
	}
	if voucher.Status != enums.VoucherStatusPendingVerification {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("voucher in status %s cannot be moderated", voucher.Status))
	}

	var next enums.VoucherStatus
	var message string
	switch input.Decision {
	case "publish":
		next = enums.VoucherStatusPublished
		message = fmt.Sprintf("Your %s listing %q is now live.", voucher.Brand, voucher.Title)
	case "reject":
		next = enums.VoucherStatusRejected
		message = fmt.Sprintf("Your %s listing %q was rejected.", voucher.Brand, voucher.Title)
		if input.ReviewNote != nil && *input.ReviewNote != "" {
			message = fmt.Sprintf("%s Reason: %s", message, *input.ReviewNote)
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be publish or reject")
	}

	if err := s.repo.UpdateModeration(ctx, voucherID, next, input.ReviewNote); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update voucher moderation")
	}
	voucher.Status = next
	if input.ReviewNote != nil {
		voucher.ReviewNote = input.ReviewNote
	}

	s.notifier.Dispatch(ctx, []notifications.Event{{
		UserID:  voucher.SellerID,
		Kind:    enums.NotificationKindVoucher,
		Title:   "Listing reviewed",
		Message: message,
	}})

	if s.logg != nil {
		ctx := s.logg.WithVoucherID(ctx, voucherID.String())
		s.logg.Info(s.logg.WithUserID(ctx, adminID.String()), "voucher.moderated")
	}
	return toView(voucher), nil
}

// DeleteListing withdraws a listing that never went live. Published and sold
// listings stay: transactions reference them and buyers may still reveal codes.
func (s *service) DeleteListing(ctx context.Context, voucherID uuid.UUID, principal auth.Principal) error {
	if voucherID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "voucher id required")
	}

	voucher, err := s.repo.FindByID(ctx, voucherID)
	if err != nil {
		return notFoundOrDependency(err, "voucher")
	}
	if voucher.SellerID != principal.ID && !principal.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another seller")
	}

	switch voucher.Status {
	case enums.VoucherStatusDraft, enums.VoucherStatusPendingVerification, enums.VoucherStatusRejected:
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("a %s listing cannot be deleted", voucher.Status))
	}

	if err := s.repo.Delete(ctx, voucherID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete voucher")
	}

	if s.logg != nil {
		ctx := s.logg.WithVoucherID(ctx, voucherID.String())
		s.logg.Info(s.logg.WithUserID(ctx, principal.ID.String()), "voucher.listing_deleted")
	}
	return nil
}

func (s *service) resolveFeePercent(raw *string) (decimal.Decimal, error) {
	if raw == nil || *raw == "" {
		pct, err := s.fees.DefaultFeePercent()
		if err != nil {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "default fee percent")
		}
		return pct, nil
	}

	pct, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid fee percent")
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "fee percent out of range")
	}
	return pct, nil
}

func notFoundOrDependency(err error, resource string) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, resource+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+resource)
}

func toView(voucher *models.Voucher) *View {
	return &View{
		ID:                voucher.ID,
		SellerID:          voucher.SellerID,
		Brand:             voucher.Brand,
		Title:             voucher.Title,
		FaceValuePaise:    voucher.FaceValuePaise,
		PricePaise:        voucher.PricePaise,
		FeePercent:        voucher.FeePercent,
		QuantityRemaining: voucher.QuantityRemaining,
		Status:            voucher.Status,
		RiskScore:         voucher.RiskScore,
		ReviewNote:        voucher.ReviewNote,
		ExpiresAt:         voucher.ExpiresAt,
		CreatedAt:         voucher.CreatedAt,
	}
}

func toViews(rows []models.Voucher) []View {
	views := make([]View, 0, len(rows))
	for i := range rows {
		views = append(views, *toView(&rows[i]))
	}
	return views
}
