package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/voucherbay/voucherbay-backend/internal/auth"
	"github.com/voucherbay/voucherbay-backend/internal/notifications"
	"github.com/voucherbay/voucherbay-backend/internal/payouts"
	"github.com/voucherbay/voucherbay-backend/internal/purchase"
	"github.com/voucherbay/voucherbay-backend/internal/reveal"
	"github.com/voucherbay/voucherbay-backend/internal/transactions"
	"github.com/voucherbay/voucherbay-backend/internal/vouchers"
	pkgauth "github.com/voucherbay/voucherbay-backend/pkg/auth"
	"github.com/voucherbay/voucherbay-backend/pkg/config"
	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, input auth.LoginInput) (*auth.LoginResult, error) {
	return nil, fmt.Errorf("not implemented")
}

type stubVouchersService struct{}

func (stubVouchersService) CreateListing(ctx context.Context, sellerID uuid.UUID, input vouchers.CreateListingInput) (*vouchers.View, error) {
	return &vouchers.View{}, nil
}

func (stubVouchersService) Get(ctx context.Context, id uuid.UUID) (*vouchers.View, error) {
	return &vouchers.View{}, nil
}

func (stubVouchersService) ListPublished(ctx context.Context, limit int) ([]vouchers.View, error) {
	return nil, nil
}

func (stubVouchersService) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]vouchers.View, error) {
	return nil, nil
}

func (stubVouchersService) Moderate(ctx context.Context, adminID, voucherID uuid.UUID, input vouchers.ModerateInput) (*vouchers.View, error) {
	return &vouchers.View{}, nil
}

func (stubVouchersService) DeleteListing(ctx context.Context, voucherID uuid.UUID, principal pkgauth.Principal) error {
	return nil
}

type stubPurchaseService struct{}

func (stubPurchaseService) Execute(ctx context.Context, input purchase.Input) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

type stubTransactionsService struct{}

func (stubTransactionsService) Get(ctx context.Context, id uuid.UUID, principal pkgauth.Principal) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (stubTransactionsService) ListPurchases(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Transaction, error) {
	return nil, nil
}

func (stubTransactionsService) ListSales(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Transaction, error) {
	return nil, nil
}

func (stubTransactionsService) ListPendingReview(ctx context.Context, limit int) ([]models.Transaction, error) {
	return nil, nil
}

func (stubTransactionsService) AdminVerify(ctx context.Context, adminID, transactionID uuid.UUID, input transactions.AdminVerifyInput) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (stubTransactionsService) GatewayCallback(ctx context.Context, transactionID uuid.UUID, input transactions.GatewayCallbackInput) (*models.Transaction, error) {
	return &models.Transaction{ID: transactionID}, nil
}

type stubPayoutsService struct{}

func (stubPayoutsService) Settle(ctx context.Context, tx *gorm.DB, txn *models.Transaction) (*models.Payout, error) {
	return &models.Payout{}, nil
}

func (stubPayoutsService) Get(ctx context.Context, id uuid.UUID, principal pkgauth.Principal) (*models.Payout, error) {
	return &models.Payout{}, nil
}

func (stubPayoutsService) ListMine(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Payout, error) {
	return nil, nil
}

func (stubPayoutsService) ListPending(ctx context.Context, limit int) ([]models.Payout, error) {
	return nil, nil
}

func (stubPayoutsService) ProcessAdminAction(ctx context.Context, adminID, payoutID uuid.UUID, input payouts.ProcessInput) (*models.Payout, error) {
	return &models.Payout{}, nil
}

func (stubPayoutsService) BulkSettle(ctx context.Context, adminID, sellerID uuid.UUID, reference string) (*payouts.BulkResult, error) {
	return &payouts.BulkResult{}, nil
}

func (stubPayoutsService) AddQuery(ctx context.Context, payoutID uuid.UUID, principal pkgauth.Principal, message string) (*models.Payout, error) {
	return &models.Payout{}, nil
}

type stubRevealService struct{}

func (stubRevealService) Reveal(ctx context.Context, transactionID uuid.UUID, principal pkgauth.Principal) (*reveal.Result, error) {
	return &reveal.Result{}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) Emit(ctx context.Context, event notifications.Event) error {
	return nil
}

func (stubNotificationsService) Dispatch(ctx context.Context, events []notifications.Event) {}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "voucherbay-test",
			ExpirationMinutes: 30,
		},
		Gateway: config.GatewayConfig{WebhookSecret: "hook-secret"},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil, // idempotency store: middleware passes through when nil
		prometheus.NewRegistry(),
		Services{
			Auth:          stubAuthService{},
			Vouchers:      stubVouchersService{},
			Purchase:      stubPurchaseService{},
			Transactions:  stubTransactionsService{},
			Payouts:       stubPayoutsService{},
			Reveal:        stubRevealService{},
			Notifications: stubNotificationsService{},
			Audit:         nil,
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:             uuid.New(),
		Role:               role,
		VerificationStatus: enums.VerificationStatusVerified,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveAlwaysServes(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for health live got %d", resp.Code)
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}

func TestUserGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vouchers", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestUserGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vouchers", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for voucher list got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payouts", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payouts", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestGatewayWebhookRejectsBadSignature(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", nil)
	req.Header.Set("X-Gateway-Signature", "wrong")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature got %d", resp.Code)
	}
}
