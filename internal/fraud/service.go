package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/voucherbay/voucherbay-backend/pkg/config"
	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
)

// FailedAttemptCounter reports how many of the buyer's transactions failed
// recently, one of the velocity signals feeding the gate.
type FailedAttemptCounter interface {
	CountFailedByBuyerSince(ctx context.Context, buyerID uuid.UUID, since time.Time) (int64, error)
}

// Checker is the fraud-risk gate consumed by the purchase flow. The scoring
// internals are external; the core only acts on the three-way verdict.
type Checker interface {
	CheckRisk(ctx context.Context, voucher *models.Voucher, buyerID uuid.UUID) (enums.RiskDecision, error)
}

type checker struct {
	cfg      config.FraudConfig
	failures FailedAttemptCounter
}

// NewChecker builds the threshold-based risk gate.
func NewChecker(cfg config.FraudConfig, failures FailedAttemptCounter) (Checker, error) {
	if failures == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "failed attempt counter required")
	}
	return &checker{cfg: cfg, failures: failures}, nil
}

func (c *checker) CheckRisk(ctx context.Context, voucher *models.Voucher, buyerID uuid.UUID) (enums.RiskDecision, error) {
	if voucher == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "voucher required")
	}
	if buyerID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}

	if c.cfg.DenyRiskScore > 0 && voucher.RiskScore >= c.cfg.DenyRiskScore {
		return enums.RiskDecisionDeny, nil
	}
	if c.cfg.EscalateRiskScore > 0 && voucher.RiskScore >= c.cfg.EscalateRiskScore {
		return enums.RiskDecisionEscalate, nil
	}

	if c.cfg.FailedBuyerLimit > 0 {
		since := time.Now().Add(-c.cfg.FailedBuyerWindow)
		failed, err := c.failures.CountFailedByBuyerSince(ctx, buyerID, since)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count failed purchases")
		}
		if failed >= int64(c.cfg.FailedBuyerLimit) {
			return enums.RiskDecisionEscalate, nil
		}
	}

	return enums.RiskDecisionAdmit, nil
}
