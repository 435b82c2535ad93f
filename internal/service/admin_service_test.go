package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaplog/internal/models"
	"chaplog/internal/security"
)

func seedUsers(users *fakeUsers) {
	users.byID["admin-1"] = models.User{ID: "admin-1", Email: "admin@chaplog.com", NormalizedEmail: "ADMIN@CHAPLOG.COM", Role: models.UserRoleAdmin}
	users.byID["user-1"] = models.User{ID: "user-1", Email: "ann@example.com", NormalizedEmail: "ANN@EXAMPLE.COM", UserName: "ann", Role: models.UserRoleUser}
	users.byID["user-2"] = models.User{ID: "user-2", Email: "bob@example.com", NormalizedEmail: "BOB@EXAMPLE.COM", UserName: "bob", Role: models.UserRoleUser}
}

func TestAdminDeleteUser(t *testing.T) {
	users := newFakeUsers()
	seedUsers(users)
	svc := NewAdminService(users, zerolog.Nop())
	ctx := context.Background()

	err := svc.DeleteUser(ctx, "admin-1", "admin-1")
	assert.ErrorIs(t, err, ErrCannotDeleteAdmin)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, svc.DeleteUser(ctx, "admin-1", "ghost"), ErrUserNotFound)

	require.NoError(t, svc.DeleteUser(ctx, "admin-1", "user-2"))
	count, err := svc.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAdminListUsers(t *testing.T) {
	users := newFakeUsers()
	seedUsers(users)
	svc := NewAdminService(users, zerolog.Nop())

	page, err := svc.ListUsers(context.Background(), "  ann ", PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "user-1", page.Items[0].ID)
	assert.Equal(t, 20, page.PageSize)

	page, err = svc.ListUsers(context.Background(), "", PageRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 1)
	assert.True(t, page.HasPrevious())
	assert.False(t, page.HasNext())

	_, err = svc.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeedAdminOnlyIntoEmptyStore(t *testing.T) {
	users := newFakeUsers()
	svc := NewAdminService(users, zerolog.Nop())
	ctx := context.Background()
	seed := AdminSeed{Email: "admin@chaplog.com", Password: "Admin123!", UserName: "admin"}

	created, err := svc.SeedAdmin(ctx, seed)
	require.NoError(t, err)
	assert.True(t, created)

	admin, err := users.FindByEmail(ctx, "ADMIN@CHAPLOG.COM")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, admin.Role)
	assert.True(t, admin.EmailConfirmed)
	ok, err := security.VerifyPassword("Admin123!", admin.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	created, err = svc.SeedAdmin(ctx, seed)
	require.NoError(t, err)
	assert.False(t, created)
	count, _ := svc.CountUsers(ctx)
	assert.Equal(t, 1, count)
}
