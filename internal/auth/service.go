package auth

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	pkgauth "github.com/voucherbay/voucherbay-backend/pkg/auth"
	"github.com/voucherbay/voucherbay-backend/pkg/config"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
	"github.com/voucherbay/voucherbay-backend/pkg/security"
)

// Service authenticates users and mints access tokens. Registration and
// identity verification live with the external identity collaborator; this
// service only turns stored credentials into a signed principal.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
}

// LoginInput is the credential pair presented at login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the signed token and the principal it encodes.
type LoginResult struct {
	AccessToken string            `json:"access_token"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Principal   pkgauth.Principal `json:"-"`
}

type service struct {
	repo Repository
	jwt  config.JWTConfig
	logg *logger.Logger
}

// NewService wires the login dependencies.
func NewService(repo Repository, jwt config.JWTConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "auth repository required")
	}
	return &service{repo: repo, jwt: jwt, logg: logg}, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			// Same answer as a wrong password so login cannot probe for accounts.
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up user")
	}

	match, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !match {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "auth.password_mismatch")
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if user.Suspended {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account suspended")
	}

	now := time.Now().UTC()
	token, err := pkgauth.MintAccessToken(s.jwt, now, pkgauth.AccessTokenPayload{
		UserID:             user.ID,
		Role:               user.Role,
		VerificationStatus: user.VerificationStatus,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.login")
	}
	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   now.Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute),
		Principal: pkgauth.Principal{
			ID:                 user.ID,
			Role:               user.Role,
			VerificationStatus: user.VerificationStatus,
		},
	}, nil
}
