package scheme

import (
	"cmp"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"estate-portal/internal/catalog/models"
)

// ============================================================
// Renderer
// ============================================================

// Renderer рисует «шахматку» корпуса: строка на этаж, клетка на помещение.
type Renderer struct {
	CellWidth  float64
	CellHeight float64
	Gap        float64
	LabelWidth float64
	Header     float64
}

func NewRenderer() *Renderer {
	return &Renderer{
		CellWidth:  64,
		CellHeight: 40,
		Gap:        4,
		LabelWidth: 36,
		Header:     28,
	}
}

var statusFill = map[models.UnitStatus]string{
	models.StatusAvailable: "#4caf50",
	models.StatusReserved:  "#ffb300",
	models.StatusSold:      "#bdbdbd",
}

const commercialStroke = "#1565c0"

// Render собирает SVG по корпусу. Если highlight не nil, помещения вне него
// рисуются полупрозрачными (результат фильтра выборщика).
func (r *Renderer) Render(block *models.Block, highlight map[int64]bool) (string, error) {
	if block == nil {
		return "", fmt.Errorf("block is nil")
	}
	if len(block.Units) == 0 {
		return "", fmt.Errorf("block %d has no units", block.ID)
	}

	rows, top, bottom := r.groupByFloor(block)

	maxCols := 0
	for _, units := range rows {
		maxCols = max(maxCols, len(units))
	}

	floors := top - bottom + 1
	width := r.LabelWidth + float64(maxCols)*(r.CellWidth+r.Gap) + r.Gap
	height := r.Header + float64(floors)*(r.CellHeight+r.Gap) + r.Gap

	var elements []string
	elements = append(elements, fmt.Sprintf(`<text x="%s" y="%s" font-size="14" font-weight="bold">%s</text>`,
		formatFloat(r.Gap), formatFloat(r.Header-10), html.EscapeString(block.Name)))

	for floor := top; floor >= bottom; floor-- {
		y := r.Header + float64(top-floor)*(r.CellHeight+r.Gap) + r.Gap
		elements = append(elements, r.renderFloorLabel(floor, y))
		for col, u := range rows[floor] {
			x := r.LabelWidth + float64(col)*(r.CellWidth+r.Gap) + r.Gap
			elements = append(elements, r.renderUnit(u, x, y, highlight)...)
		}
	}

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		formatFloat(width), formatFloat(height), formatFloat(width), formatFloat(height)))
	builder.WriteString("\n")

	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// ============================================================
// Layout
// ============================================================

// groupByFloor раскладывает помещения по этажам; внутри этажа они идут по номеру.
// Этажи без помещений (до block.Floors) остаются пустыми строками.
func (r *Renderer) groupByFloor(block *models.Block) (map[int][]models.Unit, int, int) {
	rows := make(map[int][]models.Unit)
	top, bottom := block.Units[0].Floor, block.Units[0].Floor
	for _, u := range block.Units {
		rows[u.Floor] = append(rows[u.Floor], u)
		top = max(top, u.Floor)
		bottom = min(bottom, u.Floor)
	}
	for _, units := range rows {
		slices.SortStableFunc(units, func(a, b models.Unit) int {
			return compareNumbers(a.Number, b.Number)
		})
	}
	if block.Floors > top {
		top = block.Floors
	}
	if bottom > 1 {
		bottom = 1
	}
	return rows, top, bottom
}

// compareNumbers сравнивает номера помещений, считая цифровые части числами: "1-9" < "1-10".
func compareNumbers(a, b string) int {
	for a != "" && b != "" {
		da, db := digitPrefix(a), digitPrefix(b)
		if da > 0 && db > 0 {
			na, nb := strings.TrimLeft(a[:da], "0"), strings.TrimLeft(b[:db], "0")
			if c := cmp.Compare(len(na), len(nb)); c != 0 {
				return c
			}
			if c := strings.Compare(na, nb); c != 0 {
				return c
			}
			a, b = a[da:], b[db:]
			continue
		}

		ra, sa := utf8.DecodeRuneInString(a)
		rb, sb := utf8.DecodeRuneInString(b)
		if ra != rb {
			return cmp.Compare(ra, rb)
		}
		a, b = a[sa:], b[sb:]
	}
	return cmp.Compare(len(a), len(b))
}

func digitPrefix(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

func (r *Renderer) renderFloorLabel(floor int, y float64) string {
	return fmt.Sprintf(`<text x="%s" y="%s" font-size="12" text-anchor="end">%d</text>`,
		formatFloat(r.LabelWidth-6), formatFloat(y+r.CellHeight/2+4), floor)
}

func (r *Renderer) renderUnit(u models.Unit, x, y float64, highlight map[int64]bool) []string {
	fill, ok := statusFill[u.Status]
	if !ok {
		fill = statusFill[models.StatusSold]
	}
	stroke := "#616161"
	if u.Kind == models.KindCommercial {
		stroke = commercialStroke
	}
	opacity := "1"
	if highlight != nil && !highlight[u.ID] {
		opacity = "0.25"
	}

	rect := fmt.Sprintf(`<rect id="unit-%d" x="%s" y="%s" width="%s" height="%s" rx="3" fill="%s" stroke="%s" opacity="%s" data-status="%s" />`,
		u.ID, formatFloat(x), formatFloat(y), formatFloat(r.CellWidth), formatFloat(r.CellHeight), fill, stroke, opacity, u.Status)
	label := fmt.Sprintf(`<text x="%s" y="%s" font-size="11" text-anchor="middle" opacity="%s">%s</text>`,
		formatFloat(x+r.CellWidth/2), formatFloat(y+r.CellHeight/2+4), opacity, html.EscapeString(u.Number))
	return []string{rect, label}
}

// ============================================================
// Formatting helpers
// ============================================================

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}
