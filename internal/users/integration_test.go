package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FCHEHIDI/Library-Management-System/internal/config"
	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
	"github.com/FCHEHIDI/Library-Management-System/internal/notify"
	"github.com/FCHEHIDI/Library-Management-System/internal/storage/storagetest"
)

func setup(t *testing.T) Service {
	db := storagetest.Open(t)
	policies := config.Default()
	router := notify.NewRouter(db, policies, &notify.LogEmailGateway{From: "test@example.com"}, &notify.LogSMSGateway{})
	return NewService(db, router, policies)
}

func register(t *testing.T, svc Service, username string) *User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  "User",
		Password:  "s3cret-enough",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	u := register(t, svc, "authuser")

	assert.Equal(t, StatusActive, u.Status)
	assert.False(t, u.EmailVerified)

	got, err := svc.Authenticate(ctx, "authuser", "s3cret-enough")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "authuser", "wrong")
	assert.ErrorIs(t, err, liberr.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "nobody", "s3cret-enough")
	assert.ErrorIs(t, err, liberr.ErrUnauthorized)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	svc := setup(t)
	register(t, svc, "dupe")

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "dupe",
		Email:    "other@example.com",
		Password: "s3cret-enough",
	})
	assert.ErrorIs(t, err, liberr.ErrConflict)
}

func TestSuspensionWorkflow(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	u := register(t, svc, "troublemaker")

	suspended, err := svc.Suspend(ctx, u.ID, 7, "repeated late returns")
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, suspended.Status)
	require.NotNil(t, suspended.SuspensionEnd)

	restored, err := svc.Unsuspend(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, restored.Status)
	assert.Nil(t, restored.SuspensionEnd)

	_, err = svc.Unsuspend(ctx, u.ID)
	assert.ErrorIs(t, err, liberr.ErrPolicyViolation)
}

func TestBanOverridesSuspension(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	u := register(t, svc, "banned")

	_, err := svc.Suspend(ctx, u.ID, 7, "first strike")
	require.NoError(t, err)

	// Banning a suspended user succeeds and overrides the status.
	banned, err := svc.Ban(ctx, u.ID, "second strike")
	require.NoError(t, err)
	assert.Equal(t, StatusBanned, banned.Status)
	assert.Contains(t, banned.SuspensionReason, "PERMANENT BAN")

	// Suspending a banned user must fail.
	_, err = svc.Suspend(ctx, u.ID, 7, "pointless")
	assert.ErrorIs(t, err, liberr.ErrPolicyViolation)
}
