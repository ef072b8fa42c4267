package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"estate-portal/internal/catalog/models"
	"estate-portal/internal/catalog/selector"

	"github.com/shopspring/decimal"
)

// ============================================================
// Catalog
// ============================================================

func (c *Client) ListComplexes(ctx context.Context) ([]models.Complex, error) {
	var out []models.Complex
	if err := c.do(ctx, http.MethodGet, "/complexes", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetComplex(ctx context.Context, id int64) (*models.Complex, error) {
	var out models.Complex
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/complexes/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBuilding загружает корпус со всеми помещениями.
func (c *Client) GetBuilding(ctx context.Context, id int64) (*models.Block, error) {
	var out models.Block
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/buildings/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SelectUnits выполняет выборку на сервере.
func (c *Client) SelectUnits(ctx context.Context, buildingID int64, tab selector.Tab, cr selector.Criteria) (*selector.View, error) {
	q := criteriaQuery(cr)
	if tab != "" {
		q.Set("tab", string(tab))
	}
	var out selector.View
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/buildings/%d/units", buildingID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scheme возвращает SVG шахматки; непустые критерии подсвечивают подходящие помещения.
func (c *Client) Scheme(ctx context.Context, buildingID int64, cr selector.Criteria) ([]byte, error) {
	return c.send(ctx, http.MethodGet, fmt.Sprintf("/buildings/%d/scheme.svg", buildingID), criteriaQuery(cr), nil)
}

func criteriaQuery(cr selector.Criteria) url.Values {
	q := url.Values{}
	if cr.Search != "" {
		q.Set("search", cr.Search)
	}
	if cr.Floor != 0 {
		q.Set("floor", strconv.Itoa(cr.Floor))
	}
	if cr.Type != "" {
		q.Set("type", cr.Type)
	}
	if cr.Rooms > 0 {
		q.Set("rooms", strconv.Itoa(cr.Rooms))
	}
	setDecimal(q, "min_price", cr.MinPrice)
	setDecimal(q, "max_price", cr.MaxPrice)
	setDecimal(q, "min_area", cr.MinArea)
	setDecimal(q, "max_area", cr.MaxArea)
	if cr.OnlyAvailable {
		q.Set("available", "true")
	}
	return q
}

func setDecimal(q url.Values, key string, v decimal.Decimal) {
	if v.IsPositive() {
		q.Set(key, v.String())
	}
}

// ============================================================
// Panoramas
// ============================================================

func (c *Client) ComplexPanoramas(ctx context.Context, complexID int64) ([]models.Panorama, error) {
	var out []models.Panorama
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/panoramas/complex/%d", complexID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ApartmentPanoramas(ctx context.Context, apartmentID int64) ([]models.Panorama, error) {
	var out []models.Panorama
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/panoramas/apartment/%d", apartmentID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PanoramaInput задаёт тело POST /panoramas/; задаётся ровно один из ComplexID, ApartmentID.
type PanoramaInput struct {
	Title       string              `json:"title"`
	Kind        models.PanoramaKind `json:"kind"`
	Source      string              `json:"source"`
	Preview     string              `json:"preview,omitempty"`
	ComplexID   *int64              `json:"complex_id,omitempty"`
	ApartmentID *int64              `json:"apartment_id,omitempty"`
}

func (c *Client) CreatePanorama(ctx context.Context, in PanoramaInput) (*models.Panorama, error) {
	var out models.Panorama
	if err := c.do(ctx, http.MethodPost, "/panoramas/", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================
// Promotions & Payment Info
// ============================================================

type PromotionQuery struct {
	ComplexID  int64
	ActiveOnly bool
}

func (c *Client) ListPromotions(ctx context.Context, pq PromotionQuery) ([]models.Promotion, error) {
	q := url.Values{}
	if pq.ComplexID > 0 {
		q.Set("complex_id", strconv.FormatInt(pq.ComplexID, 10))
	}
	if pq.ActiveOnly {
		q.Set("active", "true")
	}
	var out []models.Promotion
	if err := c.do(ctx, http.MethodGet, "/promotions", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PaymentInfo(ctx context.Context, complexID int64) ([]models.PaymentInfo, error) {
	q := url.Values{"complex_id": {strconv.FormatInt(complexID, 10)}}
	var out []models.PaymentInfo
	if err := c.do(ctx, http.MethodGet, "/payment-info", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PaymentQuotes рассчитывает платежи по цене помещения.
func (c *Client) PaymentQuotes(ctx context.Context, complexID int64, price decimal.Decimal) ([]models.Quote, error) {
	q := url.Values{
		"complex_id": {strconv.FormatInt(complexID, 10)},
		"price":      {price.String()},
	}
	var out []models.Quote
	if err := c.do(ctx, http.MethodGet, "/payment-info", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
