package service

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	internaldb "dirbridge/internal/db"
	"dirbridge/internal/db/repository"
	"dirbridge/internal/domain"
)

func setupServices(t *testing.T) (*UserService, *GroupService) {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	users := repository.NewUserRepo(writeDB, readDB)
	groups := repository.NewGroupRepo(writeDB, readDB)
	return NewUserService(users, groups), NewGroupService(groups)
}

func validInput(username string) domain.CreateUserInput {
	return domain.CreateUserInput{
		Username:    username,
		DisplayName: "Test " + username,
		Email:       username + "@example.com",
		Password:    "s3cret-pass",
	}
}

func TestUserService_CreateHashesPassword(t *testing.T) {
	svc, _ := setupServices(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, validInput("alice"))
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))
}

func TestUserService_CreateValidation(t *testing.T) {
	svc, _ := setupServices(t)
	ctx := context.Background()

	bad := validInput("bob")
	bad.Email = "not-an-email"
	_, err := svc.Create(ctx, bad)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	bad = validInput("bob")
	bad.Password = ""
	_, err = svc.Create(ctx, bad)
	require.ErrorAs(t, err, &verr)

	bad = validInput("bob")
	bad.Username = "  "
	_, err = svc.Create(ctx, bad)
	require.ErrorAs(t, err, &verr)
}

func TestUserService_Authenticate(t *testing.T) {
	svc, _ := setupServices(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, validInput("carol"))
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "carol", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	var cerr *domain.CredentialsError
	_, err = svc.Authenticate(ctx, "carol", "wrong")
	require.ErrorAs(t, err, &cerr)

	_, err = svc.Authenticate(ctx, "nobody", "s3cret-pass")
	require.ErrorAs(t, err, &cerr)
}

func TestUserService_AuthenticateDisabled(t *testing.T) {
	svc, _ := setupServices(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, validInput("dave"))
	require.NoError(t, err)
	require.NoError(t, svc.SetStatus(ctx, u.ID, domain.UserStatusDisabled))

	// Correct password, but the account is disabled.
	var cerr *domain.CredentialsError
	_, err = svc.Authenticate(ctx, "dave", "s3cret-pass")
	require.ErrorAs(t, err, &cerr)

	require.NoError(t, svc.SetStatus(ctx, u.ID, domain.UserStatusEnabled))
	_, err = svc.Authenticate(ctx, "dave", "s3cret-pass")
	require.NoError(t, err)
}

func TestUserService_ChangePassword(t *testing.T) {
	svc, _ := setupServices(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, validInput("erin"))
	require.NoError(t, err)

	var cerr *domain.CredentialsError
	err = svc.ChangePassword(ctx, u.ID, "wrong-old", "brand-new-pass")
	require.ErrorAs(t, err, &cerr)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "s3cret-pass", "brand-new-pass"))

	_, err = svc.Authenticate(ctx, "erin", "s3cret-pass")
	require.ErrorAs(t, err, &cerr)
	_, err = svc.Authenticate(ctx, "erin", "brand-new-pass")
	require.NoError(t, err)
}
