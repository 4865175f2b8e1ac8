package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/talgya/phase-lever/internal/diagram"
	"github.com/talgya/phase-lever/internal/persistence"
	"github.com/talgya/phase-lever/internal/phase"
	"github.com/talgya/phase-lever/internal/termview"
)

// pointOutput is the --json shape of classify and amounts, matching the API.
type pointOutput struct {
	X       float64        `json:"x"`
	T       float64        `json:"t"`
	Region  any            `json:"region"`
	Amounts *phase.Amounts `json:"amounts,omitempty"`
}

func (c *cli) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <x> <T>",
		Short: "Name the phase region at mole fraction x (U) and temperature T (°C)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, t, err := pointArgs(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if rc := c.remoteClient(); rc != nil {
				p, err := rc.Classify(cmd.Context(), x, t)
				if err != nil {
					return err
				}
				if c.jsonOut {
					return printJSON(out, pointOutput{X: p.X, T: p.T, Region: p.Region})
				}
				printRegion(out, p.Region.Type, p.Region.Name, p.Region.LiquidComposition)
				return nil
			}

			region, err := phase.Classify(x, t)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return printJSON(out, pointOutput{X: x, T: t, Region: region})
			}
			var liquidX *float64
			if tp, ok := region.(phase.TwoPhase); ok {
				if lx, ok := tp.LiquidComposition(); ok {
					liquidX = &lx
				}
			}
			printRegion(out, region.Kind(), region.Name(), liquidX)
			return nil
		},
	}
}

func printRegion(w io.Writer, kind, name string, liquidX *float64) {
	fmt.Fprintf(w, "%s (%s)", name, kind)
	if liquidX != nil {
		fmt.Fprintf(w, ", liquid x_U = %.2f", *liquidX)
	}
	fmt.Fprintln(w)
}

func (c *cli) amountsCmd() *cobra.Command {
	var (
		save  bool
		width int
	)

	cmd := &cobra.Command{
		Use:   "amounts <x> <T>",
		Short: "Relative amount of each phase at (x, T) by the lever rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, t, err := pointArgs(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if rc := c.remoteClient(); rc != nil {
				p, err := rc.Amounts(cmd.Context(), x, t)
				if err != nil {
					return err
				}
				if c.jsonOut {
					return printJSON(out, pointOutput{X: p.X, T: p.T, Region: p.Region, Amounts: p.Amounts})
				}
				fmt.Fprintln(out, termview.Render(termview.Readout{
					X: p.X, T: p.T, Kind: p.Region.Type, Region: p.Region.Name, Amounts: *p.Amounts,
				}, width))
				return nil
			}

			a, region, err := phase.AmountsAt(x, t)
			if err != nil {
				return err
			}
			if save {
				if err := c.saveQuery(persistence.NewQuery(x, t, region, a)); err != nil {
					return err
				}
			}
			if c.jsonOut {
				return printJSON(out, pointOutput{X: x, T: t, Region: region, Amounts: &a})
			}
			fmt.Fprintln(out, termview.Render(termview.Readout{
				X: x, T: t, Kind: region.Kind(), Region: region.Name(), Amounts: a,
			}, width))
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "record the query in the local history store")
	cmd.Flags().IntVar(&width, "width", termview.DefaultBarWidth, "bar chart width in cells")
	return cmd
}

// saveQuery appends one query to the configured local store.
func (c *cli) saveQuery(q persistence.Query) error {
	db, err := c.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveQuery(q); err != nil {
		return err
	}
	slog.Debug("query saved", "id", q.ID, "path", c.cfg.Store.Path)
	return nil
}

// saveQueries stores a batch of queries in one transaction.
func (c *cli) saveQueries(qs []persistence.Query) error {
	db, err := c.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveQueries(qs); err != nil {
		return err
	}
	slog.Debug("queries saved", "count", len(qs), "path", c.cfg.Store.Path)
	return nil
}

func (c *cli) diagramCmd() *cobra.Command {
	var step float64

	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Print the phase boundaries and axis ticks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type line struct {
				diagram.Segment
				Points []diagram.Point `json:"points"`
			}

			var lines []line
			for _, seg := range diagram.Boundaries() {
				pts, err := diagram.Polyline(seg, step)
				if err != nil {
					return err
				}
				lines = append(lines, line{Segment: seg, Points: pts})
			}

			out := cmd.OutOrStdout()
			if c.jsonOut {
				return printJSON(out, map[string]any{
					"lines":             lines,
					"temperature_ticks": diagram.TemperatureTicks(),
					"composition_ticks": diagram.CompositionTicks(),
				})
			}

			fmt.Fprintf(out, "x: %s, T: %s\n\n", diagram.CompositionLabel, diagram.TemperatureLabel)
			for _, l := range lines {
				fmt.Fprintf(out, "%-20s %-9s (%s, %s) → (%s, %s)  %d points\n",
					l.Name, l.Kind,
					termview.Number(l.From.X, 3), termview.Number(l.From.T, 1),
					termview.Number(l.To.X, 3), termview.Number(l.To.T, 1),
					len(l.Points))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&step, "step", diagram.DefaultStep, "composition sampling step for liquidus lines")
	return cmd
}
