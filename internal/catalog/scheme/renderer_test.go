package scheme

import (
	"encoding/xml"
	"strings"
	"testing"

	"estate-portal/internal/catalog/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlock() *models.Block {
	return &models.Block{
		ID:     10,
		Name:   "Корпус <1>",
		Floors: 3,
		Units: []models.Unit{
			{ID: 1, Kind: models.KindApartment, Number: "101", Floor: 1, Status: models.StatusAvailable},
			{ID: 2, Kind: models.KindApartment, Number: "102", Floor: 1, Status: models.StatusReserved},
			{ID: 3, Kind: models.KindCommercial, Number: "К-1", Floor: 1, Status: models.StatusSold},
			{ID: 4, Kind: models.KindApartment, Number: "201", Floor: 2, Status: models.StatusAvailable},
		},
	}
}

func TestRenderProducesValidSVG(t *testing.T) {
	svg, err := NewRenderer().Render(testBlock(), nil)
	require.NoError(t, err)

	var doc struct {
		XMLName xml.Name `xml:"svg"`
		Width   string   `xml:"width,attr"`
		Height  string   `xml:"height,attr"`
		Rects   []struct {
			ID      string `xml:"id,attr"`
			Y       string `xml:"y,attr"`
			Fill    string `xml:"fill,attr"`
			Opacity string `xml:"opacity,attr"`
		} `xml:"rect"`
		Texts []string `xml:"text"`
	}
	require.NoError(t, xml.Unmarshal([]byte(svg), &doc))

	require.Len(t, doc.Rects, 4)
	// 36 + 3*(64+4) + 4
	assert.Equal(t, "244", doc.Width)
	// 28 + 3 этажа*(40+4) + 4
	assert.Equal(t, "164", doc.Height)

	byID := map[string]string{}
	yByID := map[string]string{}
	for _, r := range doc.Rects {
		byID[r.ID] = r.Fill
		yByID[r.ID] = r.Y
		assert.Equal(t, "1", r.Opacity)
	}
	assert.Equal(t, "#4caf50", byID["unit-1"])
	assert.Equal(t, "#ffb300", byID["unit-2"])
	assert.Equal(t, "#bdbdbd", byID["unit-3"])
	// верхний этаж рисуется первым
	assert.Equal(t, "120", yByID["unit-1"])
	assert.Equal(t, "76", yByID["unit-4"])

	assert.Contains(t, doc.Texts, "Корпус <1>")
	assert.Contains(t, doc.Texts, "К-1")
	assert.Contains(t, doc.Texts, "3", "empty top floor still gets a label")
}

func TestRenderHighlight(t *testing.T) {
	svg, err := NewRenderer().Render(testBlock(), map[int64]bool{4: true})
	require.NoError(t, err)

	assert.Contains(t, svg, `id="unit-4" x="40" y="76" width="64" height="40" rx="3" fill="#4caf50" stroke="#616161" opacity="1"`)
	assert.Equal(t, 3, strings.Count(svg, `opacity="0.25" data-status`))
	assert.Contains(t, svg, `stroke="#1565c0"`)
}

func TestRenderErrors(t *testing.T) {
	_, err := NewRenderer().Render(nil, nil)
	assert.Error(t, err)

	_, err = NewRenderer().Render(&models.Block{ID: 5}, nil)
	assert.Error(t, err)
}

func TestRenderOrdersCellsByNumber(t *testing.T) {
	block := &models.Block{
		ID:     11,
		Name:   "Корпус 2",
		Floors: 1,
		Units: []models.Unit{
			{ID: 1, Number: "1-103", Floor: 1, Status: models.StatusAvailable},
			{ID: 2, Number: "1-10", Floor: 1, Status: models.StatusAvailable},
			{ID: 3, Number: "1-9", Floor: 1, Status: models.StatusAvailable},
			{ID: 4, Number: "1-101", Floor: 1, Status: models.StatusAvailable},
		},
	}

	svg, err := NewRenderer().Render(block, nil)
	require.NoError(t, err)

	var doc struct {
		Rects []struct {
			ID string `xml:"id,attr"`
			X  string `xml:"x,attr"`
		} `xml:"rect"`
	}
	require.NoError(t, xml.Unmarshal([]byte(svg), &doc))

	order := make([]string, 0, len(doc.Rects))
	for _, r := range doc.Rects {
		order = append(order, r.ID)
	}
	assert.Equal(t, []string{"unit-3", "unit-2", "unit-4", "unit-1"}, order)
	assert.Equal(t, "40", doc.Rects[0].X)
	assert.Less(t, strings.Index(svg, ">1-9<"), strings.Index(svg, ">1-10<"))
}

func TestCompareNumbers(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1-9", "1-10", -1},
		{"101", "103", -1},
		{"1-010", "1-10", 0},
		{"К-2", "К-1", 1},
		{"101", "101a", -1},
		{"1-101", "К-1", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, compareNumbers(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}
