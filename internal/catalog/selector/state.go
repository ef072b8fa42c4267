package selector

import (
	"fmt"
	"maps"
	"slices"

	"estate-portal/internal/catalog/models"

	"github.com/shopspring/decimal"
)

// ============================================================
// State
// ============================================================

// State хранит исходный список и фильтры каждой вкладки.
// Поиск общий для всех вкладок, этаж/тип/диапазоны у каждой свои.
// После каждого изменения View пересчитывается синхронно.
// State не потокобезопасен: им владеет один экран или одна команда CLI.
type State struct {
	units    []models.Unit
	tab      Tab
	search   string
	criteria map[Tab]Criteria
	view     View
}

func NewState(units []models.Unit) *State {
	s := &State{
		tab:      TabApartments,
		criteria: make(map[Tab]Criteria, len(Tabs)),
	}
	s.SetUnits(units)
	return s
}

// SetUnits заменяет данные (повторная загрузка) и сбрасывает значения фильтров,
// которых больше нет среди вариантов вкладки.
func (s *State) SetUnits(units []models.Unit) {
	s.units = slices.Clone(units)
	for _, t := range Tabs {
		opts := BuildOptions(ForTab(s.units, t))
		c := s.criteria[t]
		if c.Floor != 0 && !opts.HasFloor(c.Floor) {
			c.Floor = 0
		}
		if c.Type != "" && !opts.HasType(c.Type) {
			c.Type = ""
		}
		if c.Rooms != 0 && !opts.HasRooms(c.Rooms) {
			c.Rooms = 0
		}
		s.criteria[t] = c
	}
	s.recompute()
}

// SetTab переключает вкладку; её собственные фильтры восстанавливаются.
func (s *State) SetTab(tab Tab) error {
	parsed, err := ParseTab(string(tab))
	if err != nil {
		return err
	}
	s.tab = parsed
	s.recompute()
	return nil
}

func (s *State) SetSearch(search string) {
	s.search = search
	s.recompute()
}

// SetFloor выбирает этаж на активной вкладке; 0 снимает фильтр.
func (s *State) SetFloor(floor int) error {
	if floor != 0 && !s.view.Options.HasFloor(floor) {
		return fmt.Errorf("%w: floor %d", ErrUnknownOption, floor)
	}
	s.update(func(c *Criteria) { c.Floor = floor })
	return nil
}

// SetType выбирает тип помещения на активной вкладке; пустая строка снимает фильтр.
func (s *State) SetType(t string) error {
	if t != "" && !s.view.Options.HasType(t) {
		return fmt.Errorf("%w: type %q", ErrUnknownOption, t)
	}
	s.update(func(c *Criteria) { c.Type = t })
	return nil
}

// SetRooms выбирает комнатность на активной вкладке; 0 снимает фильтр.
func (s *State) SetRooms(rooms int) error {
	if rooms != 0 && !s.view.Options.HasRooms(rooms) {
		return fmt.Errorf("%w: rooms %d", ErrUnknownOption, rooms)
	}
	s.update(func(c *Criteria) { c.Rooms = rooms })
	return nil
}

func (s *State) SetPriceRange(lo, hi decimal.Decimal) {
	s.update(func(c *Criteria) { c.MinPrice, c.MaxPrice = orderRange(lo, hi) })
}

func (s *State) SetAreaRange(lo, hi decimal.Decimal) {
	s.update(func(c *Criteria) { c.MinArea, c.MaxArea = orderRange(lo, hi) })
}

func (s *State) SetOnlyAvailable(only bool) {
	s.update(func(c *Criteria) { c.OnlyAvailable = only })
}

// Reset сбрасывает фильтры активной вкладки; поиск остаётся.
func (s *State) Reset() {
	s.criteria[s.tab] = Criteria{}
	s.recompute()
}

func (s *State) Tab() Tab {
	return s.tab
}

// View возвращает копию текущего результата; её изменения не влияют на State.
func (s *State) View() View {
	v := s.view
	v.Units = slices.Clone(v.Units)
	v.Counts = maps.Clone(v.Counts)
	v.Options.Floors = slices.Clone(v.Options.Floors)
	v.Options.Types = slices.Clone(v.Options.Types)
	v.Options.Rooms = slices.Clone(v.Options.Rooms)
	return v
}

func (s *State) update(fn func(c *Criteria)) {
	c := s.criteria[s.tab]
	fn(&c)
	s.criteria[s.tab] = c
	s.recompute()
}

func (s *State) recompute() {
	perTab := make(map[Tab]Criteria, len(Tabs))
	for _, t := range Tabs {
		c := s.criteria[t]
		c.Search = s.search
		perTab[t] = c
	}
	s.view = buildView(s.units, s.tab, perTab)
}
