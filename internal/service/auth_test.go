package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirbridge/internal/domain"
)

func TestAuthService_LoginAndValidate(t *testing.T) {
	usvc, _ := setupServices(t)
	auth := NewAuthService(usvc, "test-secret", time.Hour)
	ctx := context.Background()

	u, err := usvc.Create(ctx, validInput("grace"))
	require.NoError(t, err)

	token, got, err := auth.Login(ctx, "grace", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotEmpty(t, token)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "grace", claims.Username)

	var cerr *domain.CredentialsError
	_, _, err = auth.Login(ctx, "grace", "nope")
	require.ErrorAs(t, err, &cerr)
}

func TestAuthService_ValidateRejectsTampered(t *testing.T) {
	usvc, _ := setupServices(t)
	auth := NewAuthService(usvc, "test-secret", time.Hour)
	other := NewAuthService(usvc, "other-secret", time.Hour)
	ctx := context.Background()

	_, err := usvc.Create(ctx, validInput("heidi"))
	require.NoError(t, err)

	token, _, err := other.Login(ctx, "heidi", "s3cret-pass")
	require.NoError(t, err)

	var cerr *domain.CredentialsError
	_, err = auth.ValidateToken(token)
	require.ErrorAs(t, err, &cerr)

	_, err = auth.ValidateToken("not.a.token")
	require.ErrorAs(t, err, &cerr)
}

func TestAuthService_ValidateRejectsExpired(t *testing.T) {
	usvc, _ := setupServices(t)
	auth := NewAuthService(usvc, "test-secret", -time.Minute)
	ctx := context.Background()

	_, err := usvc.Create(ctx, validInput("ivan"))
	require.NoError(t, err)

	token, _, err := auth.Login(ctx, "ivan", "s3cret-pass")
	require.NoError(t, err)

	var cerr *domain.CredentialsError
	_, err = auth.ValidateToken(token)
	require.ErrorAs(t, err, &cerr)
}
