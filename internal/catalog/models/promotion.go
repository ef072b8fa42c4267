package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Promotion
// ============================================================

type Promotion struct {
	ID              int64           `json:"id" yaml:"id"`
	ComplexID       *int64          `json:"complex_id,omitempty" yaml:"complex_id"`
	Title           string          `json:"title" yaml:"title"`
	Description     string          `json:"description" yaml:"description"`
	ImageURL        string          `json:"image_url,omitempty" yaml:"image_url"`
	DiscountPercent decimal.Decimal `json:"discount_percent" yaml:"discount_percent"`
	StartsAt        time.Time       `json:"starts_at" yaml:"starts_at"`
	EndsAt          time.Time       `json:"ends_at" yaml:"ends_at"`
	Active          bool            `json:"active" yaml:"active"`
}

// Running сообщает, действует ли акция в момент now.
func (p Promotion) Running(now time.Time) bool {
	return p.Active && !now.Before(p.StartsAt) && now.Before(p.EndsAt)
}

// Apply возвращает цену со скидкой акции. Скидка больше 100% считается за 100%.
func (p Promotion) Apply(price decimal.Decimal) decimal.Decimal {
	if p.DiscountPercent.LessThanOrEqual(decimal.Zero) {
		return price
	}
	discount := decimal.Min(p.DiscountPercent, hundred)
	return price.Mul(hundred.Sub(discount)).Div(hundred).Round(2)
}
