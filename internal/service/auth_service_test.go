package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
	appErrors "github.com/tpdc055/policemanagementsystem-sub000/pkg/errors"
)

func signTestToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService("test-secret")

	raw := signTestToken(t, "test-secret", &models.JWTClaims{
		UserID:  "officer-7",
		Role:    models.RoleOfficer,
		BadgeNo: "B-1234",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(raw)
	require.NoError(t, err)
	require.Equal(t, "officer-7", claims.UserID)
	require.Equal(t, models.RoleOfficer, claims.Role)
	require.Equal(t, "B-1234", claims.BadgeNo)
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	svc := NewAuthService("test-secret")

	_, err := svc.ValidateToken("")
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("not-a-jwt")
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))

	wrongSecret := signTestToken(t, "other-secret", &models.JWTClaims{UserID: "u"})
	_, err = svc.ValidateToken(wrongSecret)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))

	expired := signTestToken(t, "test-secret", &models.JWTClaims{
		UserID: "u",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	_, err = svc.ValidateToken(expired)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))

	missingSubject := signTestToken(t, "test-secret", &models.JWTClaims{})
	_, err = svc.ValidateToken(missingSubject)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}
