package client

import (
	"context"
	"net/http"
	"net/url"

	"estate-portal/internal/auth/models"
)

// ============================================================
// Auth & Users
// ============================================================

type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login получает токен и запоминает его для следующих запросов.
func (c *Client) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"login": login, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", nil, body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/logout", nil, nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUsers(ctx context.Context, search string, role models.Role) ([]models.User, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if role != "" {
		q.Set("role", string(role))
	}
	var out []models.User
	if err := c.do(ctx, http.MethodGet, "/users", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type UserInput struct {
	Login    string      `json:"login"`
	Password string      `json:"password"`
	FIO      string      `json:"fio"`
	Email    string      `json:"email,omitempty"`
	Phone    string      `json:"phone,omitempty"`
	Role     models.Role `json:"role,omitempty"`
	Active   *bool       `json:"active,omitempty"`
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPost, "/users", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserUpdate задаёт PATCH тело; nil поля не отправляются.
type UserUpdate struct {
	FIO      *string      `json:"fio,omitempty"`
	Email    *string      `json:"email,omitempty"`
	Phone    *string      `json:"phone,omitempty"`
	Role     *models.Role `json:"role,omitempty"`
	Active   *bool        `json:"active,omitempty"`
	Password *string      `json:"password,omitempty"`
}

func (c *Client) UpdateUser(ctx context.Context, id string, in UserUpdate) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, nil)
}
