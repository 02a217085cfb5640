package enums

// RiskDecision is the fraud gate's verdict for a voucher/buyer pair.
type RiskDecision string

const (
	RiskDecisionAdmit    RiskDecision = "admit"
	RiskDecisionEscalate RiskDecision = "escalate"
	RiskDecisionDeny     RiskDecision = "deny"
)

// IsValid reports whether the value is a known RiskDecision.
func (r RiskDecision) IsValid() bool {
	switch r {
	case RiskDecisionAdmit, RiskDecisionEscalate, RiskDecisionDeny:
		return true
	default:
		return false
	}
}
