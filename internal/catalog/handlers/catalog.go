package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"estate-portal/internal/catalog/media"
	"estate-portal/internal/catalog/models"
	"estate-portal/internal/catalog/repository"
	"estate-portal/internal/catalog/scheme"
	"estate-portal/internal/catalog/selector"
	"estate-portal/internal/common/validation"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ============================================================
// Catalog Handler
// ============================================================

type CatalogHandler struct {
	repo     *repository.Repository
	signer   media.Signer
	renderer *scheme.Renderer
	validate *validation.Validator
	log      *zap.Logger
	now      func() time.Time
}

func NewCatalogHandler(repo *repository.Repository, signer media.Signer, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		repo:     repo,
		signer:   signer,
		renderer: scheme.NewRenderer(),
		validate: validation.New(),
		log:      log.Named("catalog"),
		now:      time.Now,
	}
}

// Register вешает маршруты каталога на роутер.
func (h *CatalogHandler) Register(r fiber.Router) {
	r.Get("/complexes", h.ListComplexes)
	r.Get("/complexes/:id", h.GetComplex)

	r.Get("/buildings/:id", h.GetBuilding)
	r.Get("/buildings/:id/units", h.ListUnits)
	r.Get("/buildings/:id/scheme.svg", h.GetScheme)

	r.Get("/panoramas/complex/:id", h.ComplexPanoramas)
	r.Get("/panoramas/apartment/:id", h.ApartmentPanoramas)
	r.Post("/panoramas", h.CreatePanorama)

	r.Get("/promotions", h.ListPromotions)
	r.Get("/payment-info", h.ListPaymentInfo)
}

// ============================================================
// Complexes & Buildings
// ============================================================

// ListComplexes отдаёт список жилых комплексов.
func (h *CatalogHandler) ListComplexes(c fiber.Ctx) error {
	complexes, err := h.repo.ListComplexes(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(complexes)
}

// GetComplex отдаёт комплекс с корпусами.
func (h *CatalogHandler) GetComplex(c fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	cx, err := h.repo.GetComplex(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(cx)
}

// GetBuilding отдаёт корпус со всеми помещениями.
func (h *CatalogHandler) GetBuilding(c fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	block, err := h.repo.GetBlock(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(block)
}

// ListUnits отдаёт состояние выборщика: вкладка, фильтры, варианты, счётчики и результат.
func (h *CatalogHandler) ListUnits(c fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	tab, criteria, err := parseSelectorQuery(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	block, err := h.repo.GetBlock(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(selector.Apply(block.Units, tab, criteria))
}

// GetScheme рисует шахматку корпуса; фильтры выборщика подсвечивают подходящие помещения.
func (h *CatalogHandler) GetScheme(c fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	criteria, err := parseCriteria(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	block, err := h.repo.GetBlock(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}

	var highlight map[int64]bool
	if !criteria.IsEmpty() {
		highlight = make(map[int64]bool)
		for _, u := range selector.Filter(block.Units, criteria) {
			highlight[u.ID] = true
		}
	}

	svg, err := h.renderer.Render(block, highlight)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

// ============================================================
// Panoramas
// ============================================================

type createPanoramaRequest struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Kind        models.PanoramaKind `json:"kind" validate:"required,oneof=image video"`
	Source      string              `json:"source" validate:"required,max=1024"`
	Preview     string              `json:"preview" validate:"omitempty,url"`
	ComplexID   *int64              `json:"complex_id" validate:"required_without=ApartmentID,omitempty,gt=0"`
	ApartmentID *int64              `json:"apartment_id" validate:"required_without=ComplexID,omitempty,gt=0"`
}

func (h *CatalogHandler) ComplexPanoramas(c fiber.Ctx) error {
	return h.listPanoramas(c, models.OwnerComplex)
}

func (h *CatalogHandler) ApartmentPanoramas(c fiber.Ctx) error {
	return h.listPanoramas(c, models.OwnerApartment)
}

func (h *CatalogHandler) listPanoramas(c fiber.Ctx, owner models.PanoramaOwner) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	panoramas, err := h.repo.ListPanoramas(c.Context(), owner, id)
	if err != nil {
		return h.fail(c, err)
	}
	for i := range panoramas {
		if err := h.resolveURL(c.Context(), &panoramas[i]); err != nil {
			return h.fail(c, err)
		}
	}
	return c.JSON(panoramas)
}

// CreatePanorama регистрирует панораму комплекса или квартиры. Файл уже должен лежать по source.
func (h *CatalogHandler) CreatePanorama(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "empty body"})
	}

	var req createPanoramaRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if err := h.validate.Struct(req); err != nil {
		return h.fail(c, err)
	}

	panorama := models.Panorama{
		Title:       req.Title,
		Kind:        req.Kind,
		Source:      req.Source,
		Preview:     req.Preview,
		ComplexID:   req.ComplexID,
		ApartmentID: req.ApartmentID,
	}
	if _, _, err := panorama.Owner(); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	created, err := h.repo.CreatePanorama(c.Context(), panorama)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.resolveURL(c.Context(), created); err != nil {
		return h.fail(c, err)
	}

	h.log.Info("panorama created", zap.Int64("id", created.ID), zap.String("kind", string(created.Kind)))
	return c.Status(http.StatusCreated).JSON(created)
}

func (h *CatalogHandler) resolveURL(ctx context.Context, p *models.Panorama) error {
	url, err := h.signer.URL(ctx, p.Source)
	if err != nil {
		return err
	}
	p.URL = url
	return nil
}

// ============================================================
// Promotions & Payment Info
// ============================================================

// ListPromotions отдаёт акции; ?complex_id= сужает до комплекса, ?active=true до идущих сейчас.
func (h *CatalogHandler) ListPromotions(c fiber.Ctx) error {
	var filter repository.PromotionFilter

	if raw := c.Query("complex_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid complex_id"})
		}
		filter.ComplexID = &id
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid active"})
		}
		if active {
			now := h.now()
			filter.RunningAt = &now
		}
	}

	promotions, err := h.repo.ListPromotions(c.Context(), filter)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(promotions)
}

// ListPaymentInfo отдаёт варианты оплаты комплекса; с ?price= добавляет расчёт платежей.
func (h *CatalogHandler) ListPaymentInfo(c fiber.Ctx) error {
	complexID, err := strconv.ParseInt(c.Query("complex_id"), 10, 64)
	if err != nil || complexID <= 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "complex_id required"})
	}

	infos, err := h.repo.ListPaymentInfo(c.Context(), complexID)
	if err != nil {
		return h.fail(c, err)
	}

	raw := c.Query("price")
	if raw == "" {
		return c.JSON(infos)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || !price.IsPositive() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid price"})
	}

	quotes := make([]models.Quote, 0, len(infos))
	for _, info := range infos {
		quotes = append(quotes, info.Quote(price))
	}
	return c.JSON(quotes)
}

// ============================================================
// Helpers
// ============================================================

func paramID(c fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func parseSelectorQuery(c fiber.Ctx) (selector.Tab, selector.Criteria, error) {
	tab, err := selector.ParseTab(c.Query("tab"))
	if err != nil {
		return "", selector.Criteria{}, err
	}
	criteria, err := parseCriteria(c)
	return tab, criteria, err
}

func parseCriteria(c fiber.Ctx) (selector.Criteria, error) {
	var (
		cr  selector.Criteria
		err error
	)
	cr.Search = strings.TrimSpace(c.Query("search"))
	cr.Type = strings.TrimSpace(c.Query("type"))

	if cr.Floor, err = queryInt(c, "floor"); err != nil {
		return cr, err
	}
	if cr.Rooms, err = queryInt(c, "rooms"); err != nil {
		return cr, err
	}
	if cr.Rooms < 0 {
		return cr, errors.New("invalid rooms")
	}
	if cr.MinPrice, err = queryDecimal(c, "min_price"); err != nil {
		return cr, err
	}
	if cr.MaxPrice, err = queryDecimal(c, "max_price"); err != nil {
		return cr, err
	}
	if cr.MinArea, err = queryDecimal(c, "min_area"); err != nil {
		return cr, err
	}
	if cr.MaxArea, err = queryDecimal(c, "max_area"); err != nil {
		return cr, err
	}
	if raw := c.Query("available"); raw != "" {
		if cr.OnlyAvailable, err = strconv.ParseBool(raw); err != nil {
			return cr, errors.New("invalid available")
		}
	}
	return cr, nil
}

// queryInt допускает отрицательные значения: подземные этажи нумеруются с -1.
func queryInt(c fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return v, nil
}

func queryDecimal(c fiber.Ctx, key string) (decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() {
		return decimal.Zero, errors.New("invalid " + key)
	}
	return v, nil
}

// fail переводит ошибки слоя данных в HTTP ответ.
func (h *CatalogHandler) fail(c fiber.Ctx, err error) error {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrPanoramaOwner):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
