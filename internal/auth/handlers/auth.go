package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"estate-portal/internal/auth/models"
	"estate-portal/internal/auth/repository"
	"estate-portal/internal/auth/service"
	"estate-portal/internal/common/validation"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ============================================================
// Auth Handler
// ============================================================

const userLocal = "user"

type AuthHandler struct {
	repo     *repository.Repository
	sessions service.SessionStore
	validate *validation.Validator
	log      *zap.Logger
}

func NewAuthHandler(repo *repository.Repository, sessions service.SessionStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		repo:     repo,
		sessions: sessions,
		validate: validation.New(),
		log:      log.Named("auth"),
	}
}

// Register вешает маршруты входа и управления пользователями.
func (h *AuthHandler) Register(r fiber.Router) {
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/me", h.authenticate, h.Me)

	users := r.Group("/users", h.authenticate, h.requireAdmin)
	users.Get("/", h.ListUsers)
	users.Post("/", h.CreateUser)
	users.Get("/:id", h.GetUser)
	users.Patch("/:id", h.UpdateUser)
	users.Delete("/:id", h.DeleteUser)
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login выдает токен сессии по паре login/password.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req loginRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	user, err := h.repo.GetByLogin(c.Context(), req.Login)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return h.fail(c, err)
	}
	if user == nil || !user.Active || !user.VerifyPassword(req.Password) {
		h.log.Info("login rejected", zap.String("login", req.Login))
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	token, err := h.sessions.Issue(c.Context(), user.ID)
	if err != nil {
		return h.fail(c, err)
	}

	h.log.Info("login", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return c.JSON(loginResponse{Token: token, User: user})
}

// Logout завершает текущую сессию. Неизвестный токен не ошибка.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	token, ok := bearer(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	if err := h.sessions.Revoke(c.Context(), token); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me возвращает текущего пользователя.
func (h *AuthHandler) Me(c fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

// ============================================================
// Users (admin)
// ============================================================

type createUserRequest struct {
	Login    string      `json:"login" validate:"required,min=3,max=64"`
	Password string      `json:"password" validate:"required,min=6,max=72"`
	FIO      string      `json:"fio" validate:"required,max=200"`
	Email    string      `json:"email" validate:"omitempty,email"`
	Phone    string      `json:"phone" validate:"omitempty,e164"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=admin manager"`
	Active   *bool       `json:"active"`
}

type updateUserRequest struct {
	FIO      *string      `json:"fio" validate:"omitempty,min=1,max=200"`
	Email    *string      `json:"email" validate:"omitempty,email"`
	Phone    *string      `json:"phone" validate:"omitempty,e164"`
	Role     *models.Role `json:"role" validate:"omitempty,oneof=admin manager"`
	Active   *bool        `json:"active"`
	Password *string      `json:"password" validate:"omitempty,min=6,max=72"`
}

func (h *AuthHandler) ListUsers(c fiber.Ctx) error {
	filter := repository.UserFilter{
		Search: c.Query("search"),
		Role:   models.Role(c.Query("role")),
	}
	switch filter.Role {
	case "", models.RoleAdmin, models.RoleManager:
	default:
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid role"})
	}

	users, err := h.repo.List(c.Context(), filter)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(users)
}

func (h *AuthHandler) GetUser(c fiber.Ctx) error {
	user, err := h.repo.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(user)
}

func (h *AuthHandler) CreateUser(c fiber.Ctx) error {
	var req createUserRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	hash, err := models.HashPassword(req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	user, err := h.repo.Create(c.Context(), models.User{
		Login:        strings.TrimSpace(req.Login),
		PasswordHash: hash,
		FIO:          req.FIO,
		Email:        req.Email,
		Phone:        req.Phone,
		Role:         req.Role,
		Active:       active,
	})
	if err != nil {
		return h.fail(c, err)
	}

	h.log.Info("user created", zap.String("user_id", user.ID), zap.String("by", currentUser(c).ID))
	return c.Status(http.StatusCreated).JSON(user)
}

func (h *AuthHandler) UpdateUser(c fiber.Ctx) error {
	var req updateUserRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	id := c.Params("id")
	if id == currentUser(c).ID {
		if req.Active != nil && !*req.Active {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "cannot deactivate yourself"})
		}
		if req.Role != nil && *req.Role != models.RoleAdmin {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "cannot drop your own admin role"})
		}
	}

	user, err := h.repo.Update(c.Context(), id, models.UserPatch{
		FIO:      req.FIO,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
		Active:   req.Active,
		Password: req.Password,
	})
	if err != nil {
		return h.fail(c, err)
	}

	if !user.Active || req.Password != nil {
		if err := h.sessions.RevokeUser(c.Context(), user.ID); err != nil {
			return h.fail(c, err)
		}
	}
	return c.JSON(user)
}

func (h *AuthHandler) DeleteUser(c fiber.Ctx) error {
	id := c.Params("id")
	if id == currentUser(c).ID {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "cannot delete yourself"})
	}

	if err := h.repo.Delete(c.Context(), id); err != nil {
		return h.fail(c, err)
	}
	if err := h.sessions.RevokeUser(c.Context(), id); err != nil {
		return h.fail(c, err)
	}

	h.log.Info("user deleted", zap.String("user_id", id), zap.String("by", currentUser(c).ID))
	return c.SendStatus(http.StatusNoContent)
}

// ============================================================
// Middleware
// ============================================================

// authenticate кладёт активного пользователя сессии в Locals.
func (h *AuthHandler) authenticate(c fiber.Ctx) error {
	token, ok := bearer(c)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	userID, err := h.sessions.Resolve(c.Context(), token)
	if errors.Is(err, service.ErrSessionNotFound) {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	if err != nil {
		return h.fail(c, err)
	}

	user, err := h.repo.GetByID(c.Context(), userID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !user.Active) {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	if err != nil {
		return h.fail(c, err)
	}

	c.Locals(userLocal, user)
	return c.Next()
}

func (h *AuthHandler) requireAdmin(c fiber.Ctx) error {
	if !currentUser(c).IsAdmin() {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}
	return c.Next()
}

// ============================================================
// Helpers
// ============================================================

func bearer(c fiber.Ctx) (string, bool) {
	auth := c.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return token, token != ""
}

func currentUser(c fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocal).(*models.User)
	return user
}

// bind разбирает JSON тело и прогоняет валидацию.
func (h *AuthHandler) bind(c fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return fiber.NewError(http.StatusBadRequest, "empty body")
	}
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid json")
	}
	return h.validate.Struct(dst)
}

// fail переводит ошибки в HTTP ответ.
func (h *AuthHandler) fail(c fiber.Ctx, err error) error {
	var (
		verr *validation.Error
		ferr *fiber.Error
	)
	switch {
	case errors.As(err, &ferr):
		return c.Status(ferr.Code).JSON(fiber.Map{"error": ferr.Message})
	case errors.As(err, &verr):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	case errors.Is(err, repository.ErrDuplicateLogin):
		return c.Status(http.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
