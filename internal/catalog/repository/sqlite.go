package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"estate-portal/internal/catalog/models"
	"estate-portal/internal/common/database"
)

var ErrNotFound = errors.New("not found")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout задаёт формат дат в TEXT колонках; в UTC сравнивается лексикографически.
const timeLayout = "2006-01-02T15:04:05Z"

// ============================================================
// SQLite Repository
// ============================================================

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init применяет встроенные миграции каталога.
func (r *Repository) Init(ctx context.Context) error {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	if err := database.Migrate(ctx, r.db, migrations); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Ping проверяет соединение с базой (readiness probe).
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ============================================================
// Complexes & Blocks
// ============================================================

func (r *Repository) ListComplexes(ctx context.Context) ([]models.Complex, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, address, description, latitude, longitude
        FROM complexes
        ORDER BY id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	complexes := []models.Complex{}
	for rows.Next() {
		var c models.Complex
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Description, &c.Latitude, &c.Longitude); err != nil {
			return nil, err
		}
		complexes = append(complexes, c)
	}
	return complexes, rows.Err()
}

// GetComplex возвращает комплекс вместе со списком корпусов (без помещений).
func (r *Repository) GetComplex(ctx context.Context, id int64) (*models.Complex, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, name, address, description, latitude, longitude
        FROM complexes
        WHERE id = ?
    `, id)

	var c models.Complex
	if err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Description, &c.Latitude, &c.Longitude); err != nil {
		return nil, notFound(err, "complex", id)
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, complex_id, name, floors
        FROM blocks
        WHERE complex_id = ?
        ORDER BY id
    `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.Blocks = []models.Block{}
	for rows.Next() {
		var b models.Block
		if err := rows.Scan(&b.ID, &b.ComplexID, &b.Name, &b.Floors); err != nil {
			return nil, err
		}
		c.Blocks = append(c.Blocks, b)
	}
	return &c, rows.Err()
}

// GetBlock возвращает корпус со всеми помещениями.
func (r *Repository) GetBlock(ctx context.Context, id int64) (*models.Block, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, complex_id, name, floors
        FROM blocks
        WHERE id = ?
    `, id)

	var b models.Block
	if err := row.Scan(&b.ID, &b.ComplexID, &b.Name, &b.Floors); err != nil {
		return nil, notFound(err, "block", id)
	}

	units, err := r.ListUnits(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Units = units
	return &b, nil
}

// ============================================================
// Units
// ============================================================

const unitColumns = `u.id, u.block_id, b.name, u.kind, u.number, u.floor, u.rooms, u.type, u.area, u.price, u.status, u.plan_url`

type scanner interface {
	Scan(dest ...any) error
}

func scanUnit(s scanner) (models.Unit, error) {
	var u models.Unit
	err := s.Scan(&u.ID, &u.BlockID, &u.BlockName, &u.Kind, &u.Number, &u.Floor, &u.Rooms, &u.Type, &u.Area, &u.Price, &u.Status, &u.PlanURL)
	return u, err
}

// ListUnits возвращает помещения корпуса снизу вверх, внутри этажа по id.
func (r *Repository) ListUnits(ctx context.Context, blockID int64) ([]models.Unit, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+unitColumns+`
        FROM units u
        JOIN blocks b ON b.id = u.block_id
        WHERE u.block_id = ?
        ORDER BY u.floor, u.id
    `, blockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := []models.Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (r *Repository) GetUnit(ctx context.Context, id int64) (*models.Unit, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+unitColumns+`
        FROM units u
        JOIN blocks b ON b.id = u.block_id
        WHERE u.id = ?
    `, id)

	u, err := scanUnit(row)
	if err != nil {
		return nil, notFound(err, "unit", id)
	}
	return &u, nil
}

// ============================================================
// Panoramas
// ============================================================

func (r *Repository) ListPanoramas(ctx context.Context, owner models.PanoramaOwner, ownerID int64) ([]models.Panorama, error) {
	column := "complex_id"
	if owner == models.OwnerApartment {
		column = "apartment_id"
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, title, kind, source, preview, complex_id, apartment_id, created_at
        FROM panoramas
        WHERE `+column+` = ?
        ORDER BY id
    `, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	panoramas := []models.Panorama{}
	for rows.Next() {
		p, err := scanPanorama(rows)
		if err != nil {
			return nil, err
		}
		panoramas = append(panoramas, p)
	}
	return panoramas, rows.Err()
}

func scanPanorama(s scanner) (models.Panorama, error) {
	var (
		p         models.Panorama
		complexID sql.NullInt64
		apartID   sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Title, &p.Kind, &p.Source, &p.Preview, &complexID, &apartID, &p.CreatedAt); err != nil {
		return p, err
	}
	if complexID.Valid {
		p.ComplexID = &complexID.Int64
	}
	if apartID.Valid {
		p.ApartmentID = &apartID.Int64
	}
	return p, nil
}

// CreatePanorama сохраняет панораму; владелец должен существовать,
// а для квартиры быть помещением вида apartment.
func (r *Repository) CreatePanorama(ctx context.Context, p models.Panorama) (*models.Panorama, error) {
	owner, ownerID, err := p.Owner()
	if err != nil {
		return nil, err
	}

	switch owner {
	case models.OwnerComplex:
		if _, err := r.GetComplex(ctx, ownerID); err != nil {
			return nil, err
		}
	case models.OwnerApartment:
		u, err := r.GetUnit(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if u.Kind != models.KindApartment {
			return nil, fmt.Errorf("unit %d is not an apartment: %w", ownerID, ErrNotFound)
		}
	}

	res, err := r.db.ExecContext(ctx, `
        INSERT INTO panoramas (title, kind, source, preview, complex_id, apartment_id)
        VALUES (?, ?, ?, ?, ?, ?)
    `, p.Title, p.Kind, p.Source, p.Preview, nullable(p.ComplexID), nullable(p.ApartmentID))
	if err != nil {
		return nil, fmt.Errorf("insert panorama: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `
        SELECT id, title, kind, source, preview, complex_id, apartment_id, created_at
        FROM panoramas
        WHERE id = ?
    `, id)
	created, err := scanPanorama(row)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ============================================================
// Promotions
// ============================================================

type PromotionFilter struct {
	ComplexID *int64
	// RunningAt, если задан, оставляет только активные акции, идущие в этот момент.
	RunningAt *time.Time
}

func (r *Repository) ListPromotions(ctx context.Context, f PromotionFilter) ([]models.Promotion, error) {
	query := `
        SELECT id, complex_id, title, description, image_url, discount_percent, starts_at, ends_at, active
        FROM promotions
        WHERE 1 = 1`
	var args []any
	if f.ComplexID != nil {
		// общие акции застройщика показываются на страницах всех комплексов
		query += ` AND (complex_id = ? OR complex_id IS NULL)`
		args = append(args, *f.ComplexID)
	}
	if f.RunningAt != nil {
		now := f.RunningAt.UTC().Format(timeLayout)
		query += ` AND active = 1 AND starts_at <= ? AND ends_at > ?`
		args = append(args, now, now)
	}
	query += ` ORDER BY ends_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promotions := []models.Promotion{}
	for rows.Next() {
		var (
			p          models.Promotion
			complexID  sql.NullInt64
			start, end string
		)
		if err := rows.Scan(&p.ID, &complexID, &p.Title, &p.Description, &p.ImageURL, &p.DiscountPercent, &start, &end, &p.Active); err != nil {
			return nil, err
		}
		if complexID.Valid {
			p.ComplexID = &complexID.Int64
		}
		if p.StartsAt, err = time.Parse(timeLayout, start); err != nil {
			return nil, fmt.Errorf("promotion %d starts_at: %w", p.ID, err)
		}
		if p.EndsAt, err = time.Parse(timeLayout, end); err != nil {
			return nil, fmt.Errorf("promotion %d ends_at: %w", p.ID, err)
		}
		promotions = append(promotions, p)
	}
	return promotions, rows.Err()
}

// ExpirePromotions снимает флаг active с акций, закончившихся к моменту now.
func (r *Repository) ExpirePromotions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE promotions
        SET active = 0
        WHERE active = 1 AND ends_at <= ?
    `, now.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("expire promotions: %w", err)
	}
	return res.RowsAffected()
}

// ============================================================
// Payment Info
// ============================================================

func (r *Repository) ListPaymentInfo(ctx context.Context, complexID int64) ([]models.PaymentInfo, error) {
	if _, err := r.GetComplex(ctx, complexID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, complex_id, kind, title, description, down_payment_percent, annual_rate_percent, term_months
        FROM payment_info
        WHERE complex_id = ?
        ORDER BY id
    `, complexID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	infos := []models.PaymentInfo{}
	for rows.Next() {
		var p models.PaymentInfo
		if err := rows.Scan(&p.ID, &p.ComplexID, &p.Kind, &p.Title, &p.Description, &p.DownPaymentPercent, &p.AnnualRatePercent, &p.TermMonths); err != nil {
			return nil, err
		}
		infos = append(infos, p)
	}
	return infos, rows.Err()
}

// ============================================================
// Helpers
// ============================================================

func notFound(err error, entity string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return err
}

func nullable(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
