package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgauth "github.com/voucherbay/voucherbay-backend/pkg/auth"
	"github.com/voucherbay/voucherbay-backend/pkg/config"
	"github.com/voucherbay/voucherbay-backend/pkg/db/models"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/security"
)

var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

var testJWTCfg = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "voucherbay-test",
	ExpirationMinutes: 30,
}

func newAuthFixture(t *testing.T, mutate func(*models.User)) (Service, *models.User) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))

	hash, err := security.HashPassword("correct horse battery", testPasswordCfg)
	require.NoError(t, err)

	user := &models.User{
		Name:               "Asha",
		Email:              "asha@example.com",
		PasswordHash:       hash,
		Role:               enums.UserRoleUser,
		VerificationStatus: enums.VerificationStatusVerified,
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, conn.Create(user).Error)

	svc, err := NewService(NewRepository(conn), testJWTCfg, nil)
	require.NoError(t, err)
	return svc, user
}

func TestLoginIssuesToken(t *testing.T) {
	svc, user := newAuthFixture(t, nil)

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, user.ID, result.Principal.ID)

	claims, err := pkgauth.ParseAccessToken(testJWTCfg, result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, enums.UserRoleUser, claims.Role)
	require.Equal(t, enums.VerificationStatusVerified, claims.VerificationStatus)
}

func TestLoginIsCaseInsensitiveOnEmail(t *testing.T) {
	svc, _ := newAuthFixture(t, nil)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "ASHA@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t, nil)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "guess",
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t, nil)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "correct horse battery",
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized),
		"unknown accounts answer like wrong passwords")
}

func TestLoginSuspendedAccount(t *testing.T) {
	svc, _ := newAuthFixture(t, func(u *models.User) {
		u.Suspended = true
	})

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "correct horse battery",
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}
