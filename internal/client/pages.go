package client

import (
	"context"

	"estate-portal/internal/catalog/models"
	"estate-portal/internal/catalog/selector"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Complex Page
// ============================================================

// ComplexPage хранит данные страницы комплекса; каждый блок грузится и падает независимо.
type ComplexPage struct {
	Complex    Page[*models.Complex]
	Panoramas  Page[[]models.Panorama]
	Promotions Page[[]models.Promotion]
	Payments   Page[[]models.PaymentInfo]
}

// LoadComplexPage параллельно загружает комплекс, панорамы, акции и условия оплаты.
// Ошибка одного блока не отменяет остальные: она остаётся в Err этого блока.
func LoadComplexPage(ctx context.Context, c *Client, complexID int64) *ComplexPage {
	page := &ComplexPage{}

	var g errgroup.Group
	g.Go(func() error {
		page.Complex.Load(ctx, c.log, "комплекс", func(ctx context.Context) (*models.Complex, error) {
			return c.GetComplex(ctx, complexID)
		})
		return nil
	})
	g.Go(func() error {
		page.Panoramas.Load(ctx, c.log, "панорамы", func(ctx context.Context) ([]models.Panorama, error) {
			return c.ComplexPanoramas(ctx, complexID)
		})
		return nil
	})
	g.Go(func() error {
		page.Promotions.Load(ctx, c.log, "акции", func(ctx context.Context) ([]models.Promotion, error) {
			return c.ListPromotions(ctx, PromotionQuery{ComplexID: complexID, ActiveOnly: true})
		})
		return nil
	})
	g.Go(func() error {
		page.Payments.Load(ctx, c.log, "условия оплаты", func(ctx context.Context) ([]models.PaymentInfo, error) {
			return c.PaymentInfo(ctx, complexID)
		})
		return nil
	})
	g.Wait()

	return page
}

// ============================================================
// Selector Page
// ============================================================

// SelectorPage связывает выборщик с корпусом: помещения загружаются один раз,
// фильтрация и вкладки считаются локально в selector.State.
type SelectorPage struct {
	Building Page[*models.Block]
	State    *selector.State

	client     *Client
	buildingID int64
}

func NewSelectorPage(c *Client, buildingID int64) *SelectorPage {
	return &SelectorPage{
		State:      selector.NewState(nil),
		client:     c,
		buildingID: buildingID,
	}
}

// Reload загружает корпус и передаёт помещения в State; фильтры сохраняются,
// если их значения остались в вариантах.
func (s *SelectorPage) Reload(ctx context.Context) error {
	err := s.Building.Load(ctx, s.client.log, "корпус", func(ctx context.Context) (*models.Block, error) {
		return s.client.GetBuilding(ctx, s.buildingID)
	})
	if err != nil {
		return err
	}

	block := s.Building.Data()
	s.State.SetUnits(block.Units)
	s.client.log.Debug("selector reloaded",
		zap.Int64("building", s.buildingID),
		zap.Int("units", len(block.Units)),
	)
	return nil
}
