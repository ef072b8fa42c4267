package repository

import (
	"context"
	"path/filepath"
	"testing"

	"estate-portal/internal/auth/models"
	"estate-portal/internal/common/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	models.PasswordCost = bcrypt.MinCost
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := New(db)
	require.NoError(t, repo.Init(context.Background(), "admin", "admin"))
	return repo
}

func createUser(t *testing.T, repo *Repository, login string, role models.Role) *models.User {
	t.Helper()

	hash, err := models.HashPassword("secret")
	require.NoError(t, err)
	u, err := repo.Create(context.Background(), models.User{
		Login:        login,
		PasswordHash: hash,
		FIO:          "Иванов " + login,
		Email:        login + "@estate.example",
		Role:         role,
		Active:       true,
	})
	require.NoError(t, err)
	return u
}

func TestInitSeedsAdminOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Init(ctx, "admin", "other"))

	admin, err := repo.GetByLogin(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, admin.Active)
	assert.True(t, admin.VerifyPassword("admin"))
	assert.False(t, admin.VerifyPassword("other"))

	users, err := repo.List(ctx, UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := createUser(t, repo, "petrov", "")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, models.RoleManager, u.Role)
	assert.NotEmpty(t, u.CreatedAt)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "petrov", got.Login)
	assert.True(t, got.VerifyPassword("secret"))

	_, err = repo.Create(ctx, models.User{Login: "petrov", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicateLogin)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	createUser(t, repo, "sidorova", models.RoleManager)
	createUser(t, repo, "smirnov", models.RoleManager)
	createUser(t, repo, "boss", models.RoleAdmin)

	logins := func(users []models.User) []string {
		out := []string{}
		for _, u := range users {
			out = append(out, u.Login)
		}
		return out
	}

	users, err := repo.List(ctx, UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "boss", "sidorova", "smirnov"}, logins(users))

	users, err = repo.List(ctx, UserFilter{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "boss"}, logins(users))

	users, err = repo.List(ctx, UserFilter{Search: "  SMIR "})
	require.NoError(t, err)
	assert.Equal(t, []string{"smirnov"}, logins(users))

	createUser(t, repo, "s_petrov", models.RoleManager)

	users, err = repo.List(ctx, UserFilter{Search: "_"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s_petrov"}, logins(users), "underscore is matched literally")

	users, err = repo.List(ctx, UserFilter{Search: "%"})
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = repo.List(ctx, UserFilter{Search: "s_p"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s_petrov"}, logins(users))
}

func TestUpdatePartial(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "kozlov", models.RoleManager)

	phone := "+79990000000"
	inactive := false
	password := "new-secret"
	updated, err := repo.Update(ctx, u.ID, models.UserPatch{Phone: &phone, Active: &inactive, Password: &password})
	require.NoError(t, err)

	assert.Equal(t, phone, updated.Phone)
	assert.False(t, updated.Active)
	assert.Equal(t, u.FIO, updated.FIO)
	assert.Equal(t, u.Email, updated.Email)
	assert.True(t, updated.VerifyPassword("new-secret"))

	unchanged, err := repo.Update(ctx, u.ID, models.UserPatch{})
	require.NoError(t, err)
	assert.Equal(t, updated, unchanged)

	_, err = repo.Update(ctx, "missing", models.UserPatch{Phone: &phone})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "temp", models.RoleManager)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err := repo.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), ErrNotFound)
}
