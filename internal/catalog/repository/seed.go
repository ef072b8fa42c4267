package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"estate-portal/internal/catalog/models"

	"gopkg.in/yaml.v3"
)

// ============================================================
// Seed Fixtures
// ============================================================

// Fixture содержит YAML-описание каталога для первичного наполнения базы.
type Fixture struct {
	Complexes  []ComplexFixture   `yaml:"complexes"`
	Promotions []models.Promotion `yaml:"promotions"`
}

type ComplexFixture struct {
	models.Complex `yaml:",inline"`
	Payments       []models.PaymentInfo `yaml:"payments"`
	Panoramas      []PanoramaFixture    `yaml:"panoramas"`
}

// PanoramaFixture привязывается к комплексу, либо к квартире, если задан apartment_id.
type PanoramaFixture struct {
	ID          int64               `yaml:"id"`
	Title       string              `yaml:"title"`
	Kind        models.PanoramaKind `yaml:"kind"`
	Source      string              `yaml:"source"`
	Preview     string              `yaml:"preview"`
	ApartmentID int64               `yaml:"apartment_id"`
}

// LoadFixture читает YAML фикстуру с диска.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// Seed записывает фикстуру в одной транзакции. Записи с теми же id обновляются,
// поэтому повторный запуск безопасен.
func (r *Repository) Seed(ctx context.Context, f *Fixture) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range f.Complexes {
		if err := seedComplex(ctx, tx, c); err != nil {
			return fmt.Errorf("complex %d: %w", c.ID, err)
		}
	}

	for _, p := range f.Promotions {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO promotions (id, complex_id, title, description, image_url, discount_percent, starts_at, ends_at, active)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                complex_id = excluded.complex_id, title = excluded.title, description = excluded.description,
                image_url = excluded.image_url, discount_percent = excluded.discount_percent,
                starts_at = excluded.starts_at, ends_at = excluded.ends_at, active = excluded.active
        `, p.ID, nullable(p.ComplexID), p.Title, p.Description, p.ImageURL, p.DiscountPercent,
			p.StartsAt.UTC().Format(timeLayout), p.EndsAt.UTC().Format(timeLayout), p.Active)
		if err != nil {
			return fmt.Errorf("promotion %d: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

func seedComplex(ctx context.Context, tx *sql.Tx, c ComplexFixture) error {
	_, err := tx.ExecContext(ctx, `
        INSERT INTO complexes (id, name, address, description, latitude, longitude)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name, address = excluded.address, description = excluded.description,
            latitude = excluded.latitude, longitude = excluded.longitude
    `, c.ID, c.Name, c.Address, c.Description, c.Latitude, c.Longitude)
	if err != nil {
		return err
	}

	for _, b := range c.Blocks {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO blocks (id, complex_id, name, floors)
            VALUES (?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                complex_id = excluded.complex_id, name = excluded.name, floors = excluded.floors
        `, b.ID, c.ID, b.Name, b.Floors)
		if err != nil {
			return fmt.Errorf("block %d: %w", b.ID, err)
		}

		for _, u := range b.Units {
			status := u.Status
			if status == "" {
				status = models.StatusAvailable
			}
			_, err := tx.ExecContext(ctx, `
                INSERT INTO units (id, block_id, kind, number, floor, rooms, type, area, price, status, plan_url)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
                ON CONFLICT(id) DO UPDATE SET
                    block_id = excluded.block_id, kind = excluded.kind, number = excluded.number,
                    floor = excluded.floor, rooms = excluded.rooms, type = excluded.type,
                    area = excluded.area, price = excluded.price, status = excluded.status,
                    plan_url = excluded.plan_url
            `, u.ID, b.ID, u.Kind, u.Number, u.Floor, u.Rooms, u.Type, u.Area, u.Price, status, u.PlanURL)
			if err != nil {
				return fmt.Errorf("unit %d: %w", u.ID, err)
			}
		}
	}

	for _, p := range c.Payments {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO payment_info (id, complex_id, kind, title, description, down_payment_percent, annual_rate_percent, term_months)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                complex_id = excluded.complex_id, kind = excluded.kind, title = excluded.title,
                description = excluded.description, down_payment_percent = excluded.down_payment_percent,
                annual_rate_percent = excluded.annual_rate_percent, term_months = excluded.term_months
        `, p.ID, c.ID, p.Kind, p.Title, p.Description, p.DownPaymentPercent, p.AnnualRatePercent, p.TermMonths)
		if err != nil {
			return fmt.Errorf("payment %d: %w", p.ID, err)
		}
	}

	for _, p := range c.Panoramas {
		var complexID, apartmentID any = c.ID, nil
		if p.ApartmentID != 0 {
			complexID, apartmentID = nil, p.ApartmentID
		}
		_, err := tx.ExecContext(ctx, `
            INSERT INTO panoramas (id, title, kind, source, preview, complex_id, apartment_id)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                title = excluded.title, kind = excluded.kind, source = excluded.source,
                preview = excluded.preview, complex_id = excluded.complex_id, apartment_id = excluded.apartment_id
        `, p.ID, p.Title, p.Kind, p.Source, p.Preview, complexID, apartmentID)
		if err != nil {
			return fmt.Errorf("panorama %d: %w", p.ID, err)
		}
	}
	return nil
}
