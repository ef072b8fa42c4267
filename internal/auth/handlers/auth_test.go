package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"estate-portal/internal/auth/models"
	"estate-portal/internal/auth/repository"
	"estate-portal/internal/auth/service"
	"estate-portal/internal/common/database"
	"estate-portal/internal/common/middleware"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	models.PasswordCost = bcrypt.MinCost
}

type testEnv struct {
	app      *fiber.App
	repo     *repository.Repository
	sessions *service.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.New(db)
	require.NoError(t, repo.Init(context.Background(), "admin", "admin"))

	sessions := service.NewMemoryStore(time.Hour)
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	NewAuthHandler(repo, sessions, zap.NewNop()).Register(app)

	return &testEnv{app: app, repo: repo, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, target, token, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (e *testEnv) login(t *testing.T, login, password string) (string, models.User) {
	t.Helper()

	status, data := e.do(t, http.MethodPost, "/login", "", `{"login":"`+login+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, status, string(data))

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(data, &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User
}

func (e *testEnv) createManager(t *testing.T, adminToken, login string) models.User {
	t.Helper()

	status, data := e.do(t, http.MethodPost, "/users", adminToken,
		`{"login":"`+login+`","password":"secret1","fio":"Менеджер `+login+`","email":"`+login+`@estate.example"}`)
	require.Equal(t, http.StatusCreated, status, string(data))

	var u models.User
	require.NoError(t, json.Unmarshal(data, &u))
	return u
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	token, user := env.login(t, "admin", "admin")
	assert.Equal(t, models.RoleAdmin, user.Role)

	status, data := env.do(t, http.MethodGet, "/me", token, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), `"login":"admin"`)
	assert.NotContains(t, string(data), "password")

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "wrong password", body: `{"login":"admin","password":"nope"}`, status: http.StatusUnauthorized},
		{name: "unknown login", body: `{"login":"ghost","password":"admin"}`, status: http.StatusUnauthorized},
		{name: "missing password", body: `{"login":"admin"}`, status: http.StatusBadRequest},
		{name: "empty body", body: "", status: http.StatusBadRequest},
		{name: "broken json", body: `{"login":`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := env.do(t, http.MethodPost, "/login", "", tt.body)
			assert.Equal(t, tt.status, status, string(data))
		})
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.login(t, "admin", "admin")

	status, _ := env.do(t, http.MethodPost, "/logout", token, "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, http.MethodGet, "/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, "/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUsersRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	adminToken, _ := env.login(t, "admin", "admin")
	env.createManager(t, adminToken, "manager1")
	managerToken, _ := env.login(t, "manager1", "secret1")

	status, _ := env.do(t, http.MethodGet, "/users", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodGet, "/users", "bogus-token", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodGet, "/users", managerToken, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodGet, "/me", managerToken, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestUserCRUD(t *testing.T) {
	env := newTestEnv(t)
	adminToken, _ := env.login(t, "admin", "admin")

	created := env.createManager(t, adminToken, "ivanova")
	assert.Equal(t, models.RoleManager, created.Role)
	assert.True(t, created.Active)

	status, data := env.do(t, http.MethodGet, "/users?search=ivan", adminToken, "")
	require.Equal(t, http.StatusOK, status)
	var users []models.User
	require.NoError(t, json.Unmarshal(data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, created.ID, users[0].ID)

	status, _ = env.do(t, http.MethodGet, "/users?role=owner", adminToken, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, data = env.do(t, http.MethodGet, "/users/"+created.ID, adminToken, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), `"login":"ivanova"`)

	status, data = env.do(t, http.MethodPatch, "/users/"+created.ID, adminToken, `{"phone":"+79991234567","role":"admin"}`)
	require.Equal(t, http.StatusOK, status, string(data))
	var updated models.User
	require.NoError(t, json.Unmarshal(data, &updated))
	assert.Equal(t, "+79991234567", updated.Phone)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Equal(t, created.FIO, updated.FIO)

	status, _ = env.do(t, http.MethodDelete, "/users/"+created.ID, adminToken, "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, http.MethodGet, "/users/"+created.ID, adminToken, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodDelete, "/users/"+created.ID, adminToken, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateUserValidation(t *testing.T) {
	env := newTestEnv(t)
	adminToken, _ := env.login(t, "admin", "admin")

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{name: "short login", body: `{"login":"ab","password":"secret1","fio":"A"}`, status: http.StatusBadRequest, field: "login"},
		{name: "short password", body: `{"login":"abc","password":"123","fio":"A"}`, status: http.StatusBadRequest, field: "password"},
		{name: "bad email", body: `{"login":"abc","password":"secret1","fio":"A","email":"nope"}`, status: http.StatusBadRequest, field: "email"},
		{name: "bad phone", body: `{"login":"abc","password":"secret1","fio":"A","phone":"8-999"}`, status: http.StatusBadRequest, field: "phone"},
		{name: "bad role", body: `{"login":"abc","password":"secret1","fio":"A","role":"owner"}`, status: http.StatusBadRequest, field: "role"},
		{name: "duplicate login", body: `{"login":"admin","password":"secret1","fio":"A"}`, status: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := env.do(t, http.MethodPost, "/users", adminToken, tt.body)
			assert.Equal(t, tt.status, status, string(data))
			if tt.field != "" {
				assert.Contains(t, string(data), `"field":"`+tt.field+`"`)
			}
		})
	}
}

func TestAdminCannotLockOutSelf(t *testing.T) {
	env := newTestEnv(t)
	adminToken, admin := env.login(t, "admin", "admin")

	status, data := env.do(t, http.MethodDelete, "/users/"+admin.ID, adminToken, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(data), "cannot delete yourself")

	status, _ = env.do(t, http.MethodPatch, "/users/"+admin.ID, adminToken, `{"active":false}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPatch, "/users/"+admin.ID, adminToken, `{"role":"manager"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPatch, "/users/"+admin.ID, adminToken, `{"fio":"Главный администратор"}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestDeactivationRevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	adminToken, _ := env.login(t, "admin", "admin")
	manager := env.createManager(t, adminToken, "petrova")
	managerToken, _ := env.login(t, "petrova", "secret1")

	status, _ := env.do(t, http.MethodPatch, "/users/"+manager.ID, adminToken, `{"active":false}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodGet, "/me", managerToken, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, "/login", "", `{"login":"petrova","password":"secret1"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}
