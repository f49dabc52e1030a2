// internal/accounts/implementation_test.go
package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelftrack/internal/clock"
	"shelftrack/internal/store"
)

func newAccountFixture(t *testing.T) (store.Store, Service) {
	t.Helper()
	st := store.NewMemory()
	src := clock.NewSource(st, func() time.Time {
		return time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	})
	require.NoError(t, src.Tick(context.Background()))
	return st, NewService(st, src)
}

func librarian() Account {
	return Account{
		Username:         "headlib",
		Email:            "lib@example.com",
		Name:             "Head Librarian",
		Role:             RoleAdmin,
		RecoveryQuestion: "First pet?",
		RecoveryAnswer:   "Bantay",
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	_, svc := newAccountFixture(t)

	created, err := svc.Register(ctx, librarian(), "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.PasswordHash)
	assert.Empty(t, created.RecoveryAnswer)

	// login by username, then by email
	account, entryID, err := svc.Authenticate(ctx, "headlib", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
	assert.NotEmpty(t, entryID)

	_, _, err = svc.Authenticate(ctx, "lib@example.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	_, svc := newAccountFixture(t)

	_, err := svc.Register(ctx, librarian(), "")
	assert.ErrorIs(t, err, ErrMissingField)

	bad := librarian()
	bad.Role = "superuser"
	_, err = svc.Register(ctx, bad, "s3cret")
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = svc.Register(ctx, librarian(), "s3cret")
	require.NoError(t, err)

	dup := librarian()
	dup.Username = "other"
	dup.Email = "LIB@example.com"
	_, err = svc.Register(ctx, dup, "s3cret")
	assert.ErrorIs(t, err, ErrDuplicateLogin)
}

func TestAuthenticateRateLimited(t *testing.T) {
	ctx := context.Background()
	_, svc := newAccountFixture(t)

	var err error
	for i := 0; i < 6; i++ {
		_, _, err = svc.Authenticate(ctx, "nobody", "guess")
	}
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestAccessLogLifecycle(t *testing.T) {
	ctx := context.Background()
	_, svc := newAccountFixture(t)

	created, err := svc.Register(ctx, librarian(), "s3cret")
	require.NoError(t, err)
	_, entryID, err := svc.Authenticate(ctx, "headlib", "s3cret")
	require.NoError(t, err)

	entries, err := svc.AccessLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, created.ID, entries[0].UserID)
	assert.Equal(t, RoleAdmin, entries[0].Role)
	assert.Empty(t, entries[0].LogoutTime)

	require.NoError(t, svc.Logout(ctx, entryID))
	assert.ErrorIs(t, svc.Logout(ctx, entryID), ErrSessionClosed)

	entries, err = svc.AccessLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].LogoutTime)
}

func TestAuthenticateNeedsSharedClock(t *testing.T) {
	ctx := context.Background()
	st, svc := newAccountFixture(t)

	_, err := svc.Register(ctx, librarian(), "s3cret")
	require.NoError(t, err)

	require.NoError(t, st.Delete(ctx, clock.Path))
	_, _, err = svc.Authenticate(ctx, "headlib", "s3cret")
	assert.ErrorIs(t, err, ErrClockUnavailable)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	_, svc := newAccountFixture(t)

	created, err := svc.Register(ctx, librarian(), "s3cret")
	require.NoError(t, err)

	updated := librarian()
	updated.Name = "Desk Staff"
	updated.Role = RoleStaff
	require.NoError(t, svc.Update(ctx, created.ID, updated))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleStaff, got.Role)
	assert.Equal(t, "Desk Staff", got.Name)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}
