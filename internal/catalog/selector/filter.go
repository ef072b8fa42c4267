// Package selector фильтрует квартиры и коммерческие помещения корпуса
// и согласует состояние вкладок выборщика.
package selector

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"estate-portal/internal/catalog/models"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownTab    = errors.New("unknown tab")
	ErrUnknownOption = errors.New("option is not available on this tab")
)

// ============================================================
// Tabs
// ============================================================

type Tab string

const (
	TabApartments Tab = "apartments"
	TabCommercial Tab = "commercial"
)

var Tabs = []Tab{TabApartments, TabCommercial}

// ParseTab разбирает вкладку из строки запроса; пустая строка означает квартиры.
func ParseTab(s string) (Tab, error) {
	switch Tab(strings.ToLower(strings.TrimSpace(s))) {
	case "", TabApartments:
		return TabApartments, nil
	case TabCommercial:
		return TabCommercial, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
	}
}

func (t Tab) Kind() models.UnitKind {
	if t == TabCommercial {
		return models.KindCommercial
	}
	return models.KindApartment
}

// ============================================================
// Criteria
// ============================================================

// Criteria описывает набор условий, объединяемых через И. Нулевые значения не ограничивают выборку.
type Criteria struct {
	Search        string          `json:"search,omitempty"`
	Floor         int             `json:"floor,omitempty"`
	Type          string          `json:"type,omitempty"`
	Rooms         int             `json:"rooms,omitempty"`
	MinPrice      decimal.Decimal `json:"min_price"`
	MaxPrice      decimal.Decimal `json:"max_price"`
	MinArea       decimal.Decimal `json:"min_area"`
	MaxArea       decimal.Decimal `json:"max_area"`
	OnlyAvailable bool            `json:"only_available,omitempty"`
}

// Normalize обрезает поиск и меняет местами перепутанные границы диапазонов.
func (c Criteria) Normalize() Criteria {
	c.Search = strings.TrimSpace(c.Search)
	c.MinPrice, c.MaxPrice = orderRange(c.MinPrice, c.MaxPrice)
	c.MinArea, c.MaxArea = orderRange(c.MinArea, c.MaxArea)
	return c
}

// IsEmpty сообщает, что criteria не ограничивает выборку.
func (c Criteria) IsEmpty() bool {
	return strings.TrimSpace(c.Search) == "" && c.Floor == 0 && c.Type == "" && c.Rooms == 0 &&
		c.MinPrice.IsZero() && c.MaxPrice.IsZero() && c.MinArea.IsZero() && c.MaxArea.IsZero() &&
		!c.OnlyAvailable
}

func orderRange(lo, hi decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if !lo.IsZero() && !hi.IsZero() && lo.GreaterThan(hi) {
		return hi, lo
	}
	return lo, hi
}

// Match проверяет unit по всем условиям criteria.
func Match(u models.Unit, c Criteria) bool {
	if c.Search != "" && !matchesSearch(u, c.Search) {
		return false
	}
	if c.Floor != 0 && u.Floor != c.Floor {
		return false
	}
	if c.Type != "" && !strings.EqualFold(u.Type, c.Type) {
		return false
	}
	if c.Rooms != 0 && u.Rooms != c.Rooms {
		return false
	}
	if !inRange(u.Price, c.MinPrice, c.MaxPrice) || !inRange(u.Area, c.MinArea, c.MaxArea) {
		return false
	}
	if c.OnlyAvailable && !u.Available() {
		return false
	}
	return true
}

func matchesSearch(u models.Unit, search string) bool {
	needle := strings.ToLower(search)
	for _, field := range []string{u.Number, u.Type, u.BlockName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func inRange(v, lo, hi decimal.Decimal) bool {
	if !lo.IsZero() && v.LessThan(lo) {
		return false
	}
	if !hi.IsZero() && v.GreaterThan(hi) {
		return false
	}
	return true
}

// Filter возвращает units, прошедшие Match, в исходном порядке.
func Filter(units []models.Unit, c Criteria) []models.Unit {
	c = c.Normalize()
	out := make([]models.Unit, 0, len(units))
	for _, u := range units {
		if Match(u, c) {
			out = append(out, u)
		}
	}
	return out
}

// ForTab оставляет только помещения вкладки.
func ForTab(units []models.Unit, tab Tab) []models.Unit {
	kind := tab.Kind()
	out := make([]models.Unit, 0, len(units))
	for _, u := range units {
		if u.Kind == kind {
			out = append(out, u)
		}
	}
	return out
}

// ============================================================
// Options
// ============================================================

type Range struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Options перечисляет значения, которые можно выбрать в фильтрах вкладки.
type Options struct {
	Floors []int    `json:"floors"`
	Types  []string `json:"types"`
	Rooms  []int    `json:"rooms"`
	Price  Range    `json:"price"`
	Area   Range    `json:"area"`
}

// BuildOptions собирает уникальные этажи, типы, комнатность и границы цены/площади.
func BuildOptions(units []models.Unit) Options {
	opts := Options{Floors: []int{}, Types: []string{}, Rooms: []int{}}
	for i, u := range units {
		if !slices.Contains(opts.Floors, u.Floor) {
			opts.Floors = append(opts.Floors, u.Floor)
		}
		if u.Type != "" && !slices.Contains(opts.Types, u.Type) {
			opts.Types = append(opts.Types, u.Type)
		}
		if u.Rooms > 0 && !slices.Contains(opts.Rooms, u.Rooms) {
			opts.Rooms = append(opts.Rooms, u.Rooms)
		}
		if i == 0 {
			opts.Price = Range{Min: u.Price, Max: u.Price}
			opts.Area = Range{Min: u.Area, Max: u.Area}
			continue
		}
		opts.Price = widen(opts.Price, u.Price)
		opts.Area = widen(opts.Area, u.Area)
	}
	slices.Sort(opts.Floors)
	slices.Sort(opts.Types)
	slices.Sort(opts.Rooms)
	return opts
}

func widen(r Range, v decimal.Decimal) Range {
	if v.LessThan(r.Min) {
		r.Min = v
	}
	if v.GreaterThan(r.Max) {
		r.Max = v
	}
	return r
}

func (o Options) HasFloor(floor int) bool {
	return slices.Contains(o.Floors, floor)
}

func (o Options) HasType(t string) bool {
	return slices.ContainsFunc(o.Types, func(v string) bool { return strings.EqualFold(v, t) })
}

func (o Options) HasRooms(rooms int) bool {
	return slices.Contains(o.Rooms, rooms)
}

// ============================================================
// View
// ============================================================

// View содержит всё, что отрисовывает выборщик для активной вкладки.
type View struct {
	Tab      Tab           `json:"tab"`
	Criteria Criteria      `json:"criteria"`
	Options  Options       `json:"options"`
	Counts   map[Tab]int   `json:"counts"`
	Total    int           `json:"total"`
	Units    []models.Unit `json:"units"`
}

// Apply строит View без хранения состояния: одна вкладка, одни критерии.
// Для неактивных вкладок счётчик учитывает только поиск, остальные фильтры у каждой вкладки свои.
func Apply(units []models.Unit, tab Tab, c Criteria) View {
	c = c.Normalize()
	perTab := make(map[Tab]Criteria, len(Tabs))
	for _, t := range Tabs {
		perTab[t] = Criteria{Search: c.Search}
	}
	perTab[tab] = c
	return buildView(units, tab, perTab)
}

func buildView(units []models.Unit, tab Tab, perTab map[Tab]Criteria) View {
	counts := make(map[Tab]int, len(Tabs))
	var filtered []models.Unit
	for _, t := range Tabs {
		matched := Filter(ForTab(units, t), perTab[t])
		counts[t] = len(matched)
		if t == tab {
			filtered = matched
		}
	}

	tabUnits := ForTab(units, tab)
	return View{
		Tab:      tab,
		Criteria: perTab[tab].Normalize(),
		Options:  BuildOptions(tabUnits),
		Counts:   counts,
		Total:    len(tabUnits),
		Units:    filtered,
	}
}
