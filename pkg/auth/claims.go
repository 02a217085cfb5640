package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/voucherbay/voucherbay-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID             uuid.UUID
	Role               enums.UserRole
	VerificationStatus enums.VerificationStatus
}

// AccessTokenClaims represents the typed JWT issued to clients. The identity
// collaborator is the source of truth for verification status; the core
// trusts these claims but re-checks the status before admitting a purchase.
type AccessTokenClaims struct {
	UserID             uuid.UUID                `json:"user_id"`
	Role               enums.UserRole           `json:"role"`
	VerificationStatus enums.VerificationStatus `json:"verification_status"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller as seen by the core services.
type Principal struct {
	ID                 uuid.UUID
	Role               enums.UserRole
	VerificationStatus enums.VerificationStatus
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == enums.UserRoleAdmin
}

// Principal converts validated claims into a core-facing principal.
func (c *AccessTokenClaims) Principal() Principal {
	return Principal{
		ID:                 c.UserID,
		Role:               c.Role,
		VerificationStatus: c.VerificationStatus,
	}
}
