package selector

import (
	"testing"

	"estate-portal/internal/catalog/models"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func unit(id int64, kind models.UnitKind, number string, floor, rooms int, typ, area, price string, status models.UnitStatus) models.Unit {
	return models.Unit{
		ID:        id,
		BlockID:   1,
		BlockName: "Корпус А",
		Kind:      kind,
		Number:    number,
		Floor:     floor,
		Rooms:     rooms,
		Type:      typ,
		Area:      dec(area),
		Price:     dec(price),
		Status:    status,
	}
}

func fixture() []models.Unit {
	return []models.Unit{
		unit(1, models.KindApartment, "A-101", 1, 1, "studio", "25", "3000000", models.StatusAvailable),
		unit(2, models.KindApartment, "A-102", 1, 2, "2k", "54", "6000000", models.StatusReserved),
		unit(3, models.KindApartment, "A-201", 2, 1, "studio", "26", "3200000", models.StatusAvailable),
		unit(4, models.KindApartment, "A-202", 2, 3, "3k", "80", "9500000", models.StatusSold),
		unit(5, models.KindCommercial, "C-1", 1, 0, "retail", "120", "15000000", models.StatusAvailable),
		unit(6, models.KindCommercial, "C-2", 1, 0, "office", "60", "7000000", models.StatusAvailable),
		unit(7, models.KindApartment, "A-301", 3, 2, "2k", "55", "6300000", models.StatusAvailable),
	}
}

func ids(units []models.Unit) []int64 {
	out := make([]int64, 0, len(units))
	for _, u := range units {
		out = append(out, u.ID)
	}
	return out
}

func TestFilterEqualsPredicateFilter(t *testing.T) {
	units := fixture()

	cases := []Criteria{
		{},
		{Search: "a-10"},
		{Search: "STUDIO"},
		{Search: "корпус"},
		{Floor: 2},
		{Type: "2K"},
		{Rooms: 1, OnlyAvailable: true},
		{MinPrice: dec("3100000"), MaxPrice: dec("7000000")},
		{MinArea: dec("50")},
		{Search: "a", Floor: 1, Type: "studio"},
		{Search: "nothing-matches"},
	}

	for _, c := range cases {
		var want []models.Unit
		for _, u := range units {
			if Match(u, c.Normalize()) {
				want = append(want, u)
			}
		}
		got := Filter(units, c)
		assert.Equal(t, ids(want), ids(got), "criteria %+v", c)
	}
}

func TestFilter(t *testing.T) {
	units := fixture()

	tests := []struct {
		name string
		c    Criteria
		want []int64
	}{
		{"empty criteria keeps everything in order", Criteria{}, []int64{1, 2, 3, 4, 5, 6, 7}},
		{"search is case-insensitive substring", Criteria{Search: "  a-10 "}, []int64{1, 2}},
		{"search matches type", Criteria{Search: "Studio"}, []int64{1, 3}},
		{"floor", Criteria{Floor: 1}, []int64{1, 2, 5, 6}},
		{"type ignores case", Criteria{Type: "RETAIL"}, []int64{5}},
		{"rooms", Criteria{Rooms: 2}, []int64{2, 7}},
		{"only available", Criteria{OnlyAvailable: true, Floor: 2}, []int64{3}},
		{"price range", Criteria{MinPrice: dec("6000000"), MaxPrice: dec("7000000")}, []int64{2, 6, 7}},
		{"swapped range is repaired", Criteria{MinPrice: dec("7000000"), MaxPrice: dec("6000000")}, []int64{2, 6, 7}},
		{"open upper bound", Criteria{MinArea: dec("60")}, []int64{4, 5, 6}},
		{"no match", Criteria{Search: "zzz"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(units, tt.c)))
		})
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	units := fixture()
	before := ids(units)

	_ = Filter(units, Criteria{Floor: 2})
	assert.Equal(t, before, ids(units))
}

func TestParseTab(t *testing.T) {
	tab, err := ParseTab("")
	require.NoError(t, err)
	assert.Equal(t, TabApartments, tab)

	tab, err = ParseTab(" Commercial ")
	require.NoError(t, err)
	assert.Equal(t, TabCommercial, tab)

	_, err = ParseTab("parking")
	assert.ErrorIs(t, err, ErrUnknownTab)
}

func TestBuildOptions(t *testing.T) {
	opts := BuildOptions(ForTab(fixture(), TabApartments))

	want := Options{
		Floors: []int{1, 2, 3},
		Types:  []string{"2k", "3k", "studio"},
		Rooms:  []int{1, 2, 3},
		Price:  Range{Min: dec("3000000"), Max: dec("9500000")},
		Area:   Range{Min: dec("25"), Max: dec("80")},
	}
	if diff := cmp.Diff(want, opts, decimalEqual); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}

	empty := BuildOptions(nil)
	assert.Empty(t, empty.Floors)
	assert.NotNil(t, empty.Types)
}

func TestApply(t *testing.T) {
	view := Apply(fixture(), TabApartments, Criteria{Search: "1", Floor: 1})

	assert.Equal(t, TabApartments, view.Tab)
	assert.Equal(t, []int64{1, 2}, ids(view.Units))
	assert.Equal(t, 5, view.Total)
	assert.Equal(t, 2, view.Counts[TabApartments])
	// на неактивной вкладке действует только поиск
	assert.Equal(t, 1, view.Counts[TabCommercial])
	assert.Equal(t, []int{1, 2, 3}, view.Options.Floors)
}

func TestStateTabsKeepOwnCriteria(t *testing.T) {
	s := NewState(fixture())
	require.NoError(t, s.SetFloor(2))
	assert.Equal(t, []int64{3, 4}, ids(s.View().Units))

	require.NoError(t, s.SetTab(TabCommercial))
	assert.Equal(t, []int64{5, 6}, ids(s.View().Units), "floor of apartments tab must not leak")
	assert.Equal(t, []string{"office", "retail"}, s.View().Options.Types)

	err := s.SetFloor(2)
	assert.ErrorIs(t, err, ErrUnknownOption)

	require.NoError(t, s.SetType("office"))
	assert.Equal(t, []int64{6}, ids(s.View().Units))

	require.NoError(t, s.SetTab(TabApartments))
	assert.Equal(t, 2, s.View().Criteria.Floor)
	assert.Equal(t, []int64{3, 4}, ids(s.View().Units))
	assert.Equal(t, 1, s.View().Counts[TabCommercial])
}

func TestStateSearchIsShared(t *testing.T) {
	s := NewState(fixture())
	s.SetSearch("2")

	// "2" находится и в номере, и в типе "2k"
	assert.Equal(t, []int64{2, 3, 4, 7}, ids(s.View().Units))
	assert.Equal(t, 4, s.View().Counts[TabApartments])
	assert.Equal(t, 1, s.View().Counts[TabCommercial])

	require.NoError(t, s.SetTab(TabCommercial))
	assert.Equal(t, "2", s.View().Criteria.Search)
	assert.Equal(t, []int64{6}, ids(s.View().Units))
}

func TestStateReloadDropsStaleOptions(t *testing.T) {
	s := NewState(fixture())
	require.NoError(t, s.SetFloor(3))
	require.NoError(t, s.SetType("2k"))
	assert.Equal(t, []int64{7}, ids(s.View().Units))

	// третий этаж продан и исчез из выдачи
	s.SetUnits(fixture()[:6])

	assert.Equal(t, 0, s.View().Criteria.Floor)
	assert.Equal(t, "2k", s.View().Criteria.Type)
	assert.Equal(t, []int64{2}, ids(s.View().Units))
}

func TestStateRangesAndReset(t *testing.T) {
	s := NewState(fixture())
	s.SetSearch("a-")
	s.SetPriceRange(dec("6500000"), dec("3100000"))
	assert.Equal(t, []int64{2, 3, 7}, ids(s.View().Units))

	s.SetAreaRange(dec("50"), decimal.Zero)
	assert.Equal(t, []int64{2, 7}, ids(s.View().Units))

	s.SetOnlyAvailable(true)
	assert.Equal(t, []int64{7}, ids(s.View().Units))

	require.NoError(t, s.SetRooms(2))
	assert.ErrorIs(t, s.SetRooms(5), ErrUnknownOption)

	s.Reset()
	assert.Equal(t, "a-", s.View().Criteria.Search)
	assert.True(t, s.View().Criteria.MinPrice.IsZero())
	assert.Equal(t, []int64{1, 2, 3, 4, 7}, ids(s.View().Units))
}

func TestStateRejectsUnknownTab(t *testing.T) {
	s := NewState(fixture())
	err := s.SetTab("parking")
	assert.ErrorIs(t, err, ErrUnknownTab)
	assert.Equal(t, TabApartments, s.Tab())
}

func TestStateViewIsCopy(t *testing.T) {
	s := NewState(fixture())
	v := s.View()
	require.NotEmpty(t, v.Units)

	v.Units[0].Number = "changed"
	v.Counts[TabApartments] = 100
	v.Options.Floors[0] = 99

	fresh := s.View()
	assert.NotEqual(t, "changed", fresh.Units[0].Number)
	assert.Equal(t, 5, fresh.Counts[TabApartments])
	assert.Equal(t, []int{1, 2, 3}, fresh.Options.Floors)
	require.NoError(t, s.SetFloor(1), "options must not be corrupted by the caller")
}
