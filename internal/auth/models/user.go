package models

import (
	"golang.org/x/crypto/bcrypt"
)

// ============================================================
// User Model
// ============================================================

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// User описывает сотрудника застройщика с доступом к админке.
type User struct {
	ID           string `json:"id"`
	Login        string `json:"login"`
	PasswordHash string `json:"-"`
	FIO          string `json:"fio"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Role         Role   `json:"role"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"created_at"`
}

// UserPatch задаёт частичное обновление; nil поля не меняются.
type UserPatch struct {
	FIO      *string
	Email    *string
	Phone    *string
	Role     *Role
	Active   *bool
	Password *string
}

func (p UserPatch) IsEmpty() bool {
	return p.FIO == nil && p.Email == nil && p.Phone == nil && p.Role == nil && p.Active == nil && p.Password == nil
}

// PasswordCost задаёт стоимость bcrypt; тесты понижают её до bcrypt.MinCost.
var PasswordCost = bcrypt.DefaultCost

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
