package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"estate-portal/internal/auth/models"
	"estate-portal/internal/common/database"

	"github.com/google/uuid"
	"github.com/ncruces/go-sqlite3"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateLogin = errors.New("login already taken")
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ============================================================
// SQLite Repository
// ============================================================

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init запускает миграции и убеждается в наличии admin.
func (r *Repository) Init(ctx context.Context, adminLogin, adminPassword string) error {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	if err := database.Migrate(ctx, r.db, migrations); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return r.ensureAdmin(ctx, adminLogin, adminPassword)
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const userColumns = `id, login, password_hash, fio, email, phone, role, active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var u models.User
	if err := s.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.FIO, &u.Email, &u.Phone, &u.Role, &u.Active, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE login = ?
    `, login)
	return scanUser(row)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE id = ?
    `, id)
	return scanUser(row)
}

// likeEscaper экранирует спецсимволы LIKE, чтобы поиск был буквальной подстрокой.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// UserFilter сужает список: Search ищет подстроку в логине, ФИО и email.
type UserFilter struct {
	Search string
	Role   models.Role
}

func (r *Repository) List(ctx context.Context, f UserFilter) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1 = 1`
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		query += ` AND (lower(login) LIKE ? ESCAPE '\' OR lower(fio) LIKE ? ESCAPE '\' OR lower(email) LIKE ? ESCAPE '\')`
		args = append(args, like, like, like)
	}
	if f.Role != "" {
		query += ` AND role = ?`
		args = append(args, f.Role)
	}
	query += ` ORDER BY login`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Create сохраняет нового пользователя с уже посчитанным PasswordHash.
func (r *Repository) Create(ctx context.Context, u models.User) (*models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleManager
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO users (id, login, password_hash, fio, email, phone, role, active)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `, u.ID, u.Login, u.PasswordHash, u.FIO, u.Email, u.Phone, u.Role, u.Active)
	if err != nil {
		return nil, constraint(err, u.Login)
	}
	return r.GetByID(ctx, u.ID)
}

// Update применяет частичное изменение. Пароль хешируется здесь.
func (r *Repository) Update(ctx context.Context, id string, p models.UserPatch) (*models.User, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if p.FIO != nil {
		set("fio", *p.FIO)
	}
	if p.Email != nil {
		set("email", *p.Email)
	}
	if p.Phone != nil {
		set("phone", *p.Phone)
	}
	if p.Role != nil {
		set("role", *p.Role)
	}
	if p.Active != nil {
		set("active", *p.Active)
	}
	if p.Password != nil {
		hash, err := models.HashPassword(*p.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		set("password_hash", hash)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================
// Seeding
// ============================================================

func (r *Repository) ensureAdmin(ctx context.Context, login, password string) error {
	_, err := r.GetByLogin(ctx, login)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	hash, err := models.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	_, err = r.Create(ctx, models.User{
		Login:        login,
		PasswordHash: hash,
		FIO:          "Администратор",
		Role:         models.RoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

func constraint(err error, login string) error {
	if errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) {
		return fmt.Errorf("%s: %w", login, ErrDuplicateLogin)
	}
	return err
}
