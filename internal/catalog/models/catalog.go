package models

import (
	"github.com/shopspring/decimal"
)

// ============================================================
// Complex & Block
// ============================================================

type Complex struct {
	ID          int64   `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Address     string  `json:"address" yaml:"address"`
	Description string  `json:"description" yaml:"description"`
	Latitude    float64 `json:"latitude" yaml:"latitude"`
	Longitude   float64 `json:"longitude" yaml:"longitude"`
	Blocks      []Block `json:"blocks,omitempty" yaml:"blocks"`
}

// Block описывает корпус (здание) внутри комплекса.
type Block struct {
	ID        int64  `json:"id" yaml:"id"`
	ComplexID int64  `json:"complex_id" yaml:"-"`
	Name      string `json:"name" yaml:"name"`
	Floors    int    `json:"floors" yaml:"floors"`
	Units     []Unit `json:"units,omitempty" yaml:"units"`
}

// ============================================================
// Units
// ============================================================

type UnitKind string

const (
	KindApartment  UnitKind = "apartment"
	KindCommercial UnitKind = "commercial"
)

type UnitStatus string

const (
	StatusAvailable UnitStatus = "available"
	StatusReserved  UnitStatus = "reserved"
	StatusSold      UnitStatus = "sold"
)

// Unit описывает квартиру или коммерческое помещение в корпусе.
type Unit struct {
	ID        int64           `json:"id" yaml:"id"`
	BlockID   int64           `json:"block_id" yaml:"-"`
	BlockName string          `json:"block_name,omitempty" yaml:"-"`
	Kind      UnitKind        `json:"kind" yaml:"kind"`
	Number    string          `json:"number" yaml:"number"`
	Floor     int             `json:"floor" yaml:"floor"`
	Rooms     int             `json:"rooms" yaml:"rooms"`
	Type      string          `json:"type" yaml:"type"`
	Area      decimal.Decimal `json:"area" yaml:"area"`
	Price     decimal.Decimal `json:"price" yaml:"price"`
	Status    UnitStatus      `json:"status" yaml:"status"`
	PlanURL   string          `json:"plan_url,omitempty" yaml:"plan_url"`
}

// Available сообщает, можно ли ещё купить помещение.
func (u Unit) Available() bool {
	return u.Status == StatusAvailable
}

// PricePerMeter возвращает цену за квадратный метр, округлённую до копеек.
func (u Unit) PricePerMeter() decimal.Decimal {
	if u.Area.IsZero() {
		return decimal.Zero
	}
	return u.Price.DivRound(u.Area, 2)
}
