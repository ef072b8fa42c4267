package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"estate-portal/internal/catalog/models"
	"estate-portal/internal/catalog/selector"
	"estate-portal/internal/client"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// ============================================================
// Complexes
// ============================================================

func (a *cli) complexesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complexes [id]",
		Short: "List residential complexes or show one with its blocks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			if len(args) == 0 {
				complexes, err := api.ListComplexes(ctx)
				if err != nil {
					return err
				}
				return a.render(cmd, complexes, func(w io.Writer) {
					row(w, "ID", "NAME", "ADDRESS", "BLOCKS")
					for _, cx := range complexes {
						row(w, cx.ID, cx.Name, cx.Address, len(cx.Blocks))
					}
				})
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cx, err := api.GetComplex(ctx, id)
			if err != nil {
				return err
			}
			return a.render(cmd, cx, func(w io.Writer) {
				row(w, "BLOCK", "NAME", "FLOORS")
				for _, b := range cx.Blocks {
					row(w, b.ID, b.Name, b.Floors)
				}
			})
		},
	}
	return cmd
}

// ============================================================
// Units
// ============================================================

// criteriaFlags хранит флаги фильтров выборщика, общие для units и scheme.
type criteriaFlags struct {
	search    string
	floor     int
	unitType  string
	rooms     int
	minPrice  string
	maxPrice  string
	minArea   string
	maxArea   string
	available bool
}

func (f *criteriaFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.search, "search", "", "Search by number, type or block name")
	fs.IntVar(&f.floor, "floor", 0, "Floor")
	fs.StringVar(&f.unitType, "type", "", "Unit type (studio, 2k, retail...)")
	fs.IntVar(&f.rooms, "rooms", 0, "Number of rooms")
	fs.StringVar(&f.minPrice, "min-price", "", "Minimum price")
	fs.StringVar(&f.maxPrice, "max-price", "", "Maximum price")
	fs.StringVar(&f.minArea, "min-area", "", "Minimum area, m²")
	fs.StringVar(&f.maxArea, "max-area", "", "Maximum area, m²")
	fs.BoolVar(&f.available, "available", false, "Only units on sale")
}

func (f *criteriaFlags) criteria() (selector.Criteria, error) {
	c := selector.Criteria{
		Search:        f.search,
		Floor:         f.floor,
		Type:          f.unitType,
		Rooms:         f.rooms,
		OnlyAvailable: f.available,
	}
	var err error
	for _, p := range []struct {
		flag string
		raw  string
		dst  *decimal.Decimal
	}{
		{"min-price", f.minPrice, &c.MinPrice},
		{"max-price", f.maxPrice, &c.MaxPrice},
		{"min-area", f.minArea, &c.MinArea},
		{"max-area", f.maxArea, &c.MaxArea},
	} {
		if p.raw == "" {
			continue
		}
		if *p.dst, err = decimal.NewFromString(p.raw); err != nil {
			return c, fmt.Errorf("--%s: %w", p.flag, err)
		}
	}
	return c, nil
}

// apply переносит критерии в состояние выборщика через его сеттеры,
// чтобы недоступные на вкладке значения отклонялись так же, как в интерфейсе.
func (f *criteriaFlags) apply(state *selector.State, c selector.Criteria) error {
	state.SetSearch(c.Search)
	if c.Floor != 0 {
		if err := state.SetFloor(c.Floor); err != nil {
			return fmt.Errorf("--floor %d: %w", c.Floor, err)
		}
	}
	if c.Type != "" {
		if err := state.SetType(c.Type); err != nil {
			return fmt.Errorf("--type %s: %w", c.Type, err)
		}
	}
	if c.Rooms != 0 {
		if err := state.SetRooms(c.Rooms); err != nil {
			return fmt.Errorf("--rooms %d: %w", c.Rooms, err)
		}
	}
	state.SetPriceRange(c.MinPrice, c.MaxPrice)
	state.SetAreaRange(c.MinArea, c.MaxArea)
	state.SetOnlyAvailable(c.OnlyAvailable)
	return nil
}

func (a *cli) unitsCmd() *cobra.Command {
	var (
		filters criteriaFlags
		tabName string
		remote  bool
	)

	cmd := &cobra.Command{
		Use:   "units <building-id>",
		Short: "Select apartments or commercial units of a building",
		Long: `Loads the building once and filters its units locally, the same way the
selector page does. With --remote the filtering is done by the catalog service.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			tab, err := selector.ParseTab(tabName)
			if err != nil {
				return err
			}
			crit, err := filters.criteria()
			if err != nil {
				return err
			}

			api, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			var view selector.View
			if remote {
				v, err := api.SelectUnits(ctx, id, tab, crit)
				if err != nil {
					return err
				}
				view = *v
			} else {
				page := client.NewSelectorPage(api, id)
				if err := page.Reload(ctx); err != nil {
					return fmt.Errorf("%s: %w", page.Building.Err(), err)
				}
				if err := page.State.SetTab(tab); err != nil {
					return err
				}
				if err := filters.apply(page.State, crit); err != nil {
					return err
				}
				view = page.State.View()
			}

			return a.render(cmd, view, func(w io.Writer) { unitTable(w, view) })
		},
	}

	filters.bind(cmd)
	cmd.Flags().StringVar(&tabName, "tab", string(selector.TabApartments), "Tab: apartments or commercial")
	cmd.Flags().BoolVar(&remote, "remote", false, "Filter on the server")
	return cmd
}

func unitTable(w io.Writer, view selector.View) {
	row(w, "NUMBER", "FLOOR", "ROOMS", "TYPE", "AREA", "PRICE", "STATUS")
	for _, u := range view.Units {
		row(w, u.Number, u.Floor, u.Rooms, u.Type, u.Area.StringFixed(1), u.Price.StringFixed(0), u.Status)
	}
	fmt.Fprintf(w, "\n%s: %d of %d\tapartments: %d\tcommercial: %d\n",
		view.Tab, len(view.Units), view.Total,
		view.Counts[selector.TabApartments], view.Counts[selector.TabCommercial])
}

func (a *cli) schemeCmd() *cobra.Command {
	var (
		filters criteriaFlags
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "scheme <building-id>",
		Short: "Download the floor plan grid of a building as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			crit, err := filters.criteria()
			if err != nil {
				return err
			}

			api, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			svg, err := api.Scheme(ctx, id, crit)
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				_, err = cmd.OutOrStdout().Write(svg)
				return err
			}
			return os.WriteFile(outPath, svg, 0o644)
		},
	}

	filters.bind(cmd)
	cmd.Flags().StringVarP(&outPath, "file", "f", "", "Write SVG to file instead of stdout")
	return cmd
}

// ============================================================
// Panoramas
// ============================================================

func (a *cli) panoramasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panoramas",
		Short: "Browse and add 360° panoramas",
	}

	list := func(owner models.PanoramaOwner) *cobra.Command {
		return &cobra.Command{
			Use:   string(owner) + " <id>",
			Short: "List panoramas of a " + string(owner),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				api, err := a.client()
				if err != nil {
					return err
				}
				ctx, cancel := a.context(cmd)
				defer cancel()

				var items []models.Panorama
				if owner == models.OwnerComplex {
					items, err = api.ComplexPanoramas(ctx, id)
				} else {
					items, err = api.ApartmentPanoramas(ctx, id)
				}
				if err != nil {
					return err
				}
				return a.render(cmd, items, func(w io.Writer) { panoramaTable(w, items) })
			},
		}
	}

	var (
		in          client.PanoramaInput
		kind        string
		complexID   int64
		apartmentID int64
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a panorama for a complex or an apartment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Kind = models.PanoramaKind(kind)
			if cmd.Flags().Changed("complex") {
				in.ComplexID = &complexID
			}
			if cmd.Flags().Changed("apartment") {
				in.ApartmentID = &apartmentID
			}

			api, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			p, err := api.CreatePanorama(ctx, in)
			if err != nil {
				return err
			}
			return a.render(cmd, p, func(w io.Writer) { panoramaTable(w, []models.Panorama{*p}) })
		},
	}
	add.Flags().StringVar(&in.Title, "title", "", "Title")
	add.Flags().StringVar(&kind, "kind", string(models.PanoramaImage), "image or video")
	add.Flags().StringVar(&in.Source, "source", "", "Source URL or storage key")
	add.Flags().StringVar(&in.Preview, "preview", "", "Preview image URL")
	add.Flags().Int64Var(&complexID, "complex", 0, "Owning complex ID")
	add.Flags().Int64Var(&apartmentID, "apartment", 0, "Owning apartment ID")
	add.MarkFlagsMutuallyExclusive("complex", "apartment")
	add.MarkFlagsOneRequired("complex", "apartment")

	cmd.AddCommand(list(models.OwnerComplex), list(models.OwnerApartment), add)
	return cmd
}

func panoramaTable(w io.Writer, items []models.Panorama) {
	row(w, "ID", "KIND", "TITLE", "URL")
	for _, p := range items {
		url := p.URL
		if url == "" {
			url = p.Source
		}
		row(w, p.ID, p.Kind, p.Title, url)
	}
}

// ============================================================
// Promotions & Payments
// ============================================================

func (a *cli) promotionsCmd() *cobra.Command {
	var q client.PromotionQuery

	cmd := &cobra.Command{
		Use:   "promotions",
		Short: "List promotions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			promos, err := api.ListPromotions(ctx, q)
			if err != nil {
				return err
			}
			return a.render(cmd, promos, func(w io.Writer) {
				row(w, "ID", "TITLE", "DISCOUNT", "ENDS", "ACTIVE")
				for _, p := range promos {
					row(w, p.ID, p.Title, p.DiscountPercent.String()+"%", p.EndsAt.Format("2006-01-02"), p.Active)
				}
			})
		},
	}
	cmd.Flags().Int64Var(&q.ComplexID, "complex", 0, "Only promotions of this complex (plus global ones)")
	cmd.Flags().BoolVar(&q.ActiveOnly, "active", false, "Only running promotions")
	return cmd
}

func (a *cli) paymentsCmd() *cobra.Command {
	var price string

	cmd := &cobra.Command{
		Use:   "payments <complex-id>",
		Short: "Show payment options of a complex, optionally quoted for a price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			api, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			if price == "" {
				infos, err := api.PaymentInfo(ctx, id)
				if err != nil {
					return err
				}
				return a.render(cmd, infos, func(w io.Writer) {
					row(w, "KIND", "TITLE", "DOWN %", "RATE %", "MONTHS")
					for _, p := range infos {
						row(w, p.Kind, p.Title, p.DownPaymentPercent, p.AnnualRatePercent, p.TermMonths)
					}
				})
			}

			amount, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("--price: %w", err)
			}
			quotes, err := api.PaymentQuotes(ctx, id, amount)
			if err != nil {
				return err
			}
			return a.render(cmd, quotes, func(w io.Writer) {
				row(w, "KIND", "TITLE", "DOWN PAYMENT", "MONTHLY", "MONTHS")
				for _, q := range quotes {
					row(w, q.Kind, q.Title, q.DownPayment.StringFixed(2), q.MonthlyPayment.StringFixed(2), q.TermMonths)
				}
			})
		},
	}
	cmd.Flags().StringVar(&price, "price", "", "Unit price to calculate payments for")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
