package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/phase-lever/internal/cooling"
	"github.com/talgya/phase-lever/internal/persistence"
	"github.com/talgya/phase-lever/internal/phase"
	"github.com/talgya/phase-lever/internal/termview"
)

func (c *cli) coolCmd() *cobra.Command {
	var (
		start, end, step float64
		save             bool
	)

	cmd := &cobra.Command{
		Use:   "cool <x>",
		Short: "Cool an alloy of composition x and report every region change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := parseArg("composition", args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("step") {
				step = c.cfg.Cooling.Step
			}
			out := cmd.OutOrStdout()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if rc := c.remoteClient(); rc != nil {
				if save {
					return errors.New("--save stores locally and cannot be combined with --remote")
				}
				p, err := rc.Cooling(ctx, x, start, end, step)
				if err != nil {
					return err
				}
				if c.jsonOut {
					return printJSON(out, p)
				}
				for _, st := range p.Steps {
					printStep(out, st.T, st.Region.Name, st.Amounts)
				}
				for _, tr := range p.Transitions {
					fmt.Fprintln(out, termview.TransitionLine(tr.T, tr.From, tr.To))
				}
				return nil
			}

			path, err := c.coolLocal(ctx, out, x, start, end, step)
			if err != nil || !save {
				return err
			}
			return c.saveQueries(pathQueries(path))
		},
	}

	cmd.Flags().Float64Var(&start, "start", phase.MaxT, "starting temperature (°C)")
	cmd.Flags().Float64Var(&end, "end", phase.MinT, "final temperature (°C)")
	cmd.Flags().Float64Var(&step, "step", cooling.DefaultStep, "temperature decrement per step (°C), default from cooling.step")
	cmd.Flags().BoolVar(&save, "save", false, "record every step in the local history store")
	return cmd
}

// coolLocal runs the cooling path in-process. Text mode streams each step as
// it is computed, paced by cooling.interval.
func (c *cli) coolLocal(ctx context.Context, out io.Writer, x, start, end, step float64) (*cooling.Path, error) {
	r, err := cooling.NewRunner(x, start, end, step)
	if err != nil {
		return nil, err
	}

	if c.jsonOut {
		path, err := r.Run(ctx)
		if err != nil {
			return nil, err
		}
		return path, printJSON(out, path)
	}

	r.Interval = c.cfg.Cooling.Interval
	r.OnStep = func(st cooling.Step) {
		printStep(out, st.T, st.Region.Name(), st.Amounts)
	}
	r.OnTransition = func(tr cooling.Transition) {
		fmt.Fprintln(out, termview.TransitionLine(tr.T, tr.From, tr.To))
	}

	path, err := r.Run(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "%d steps, %d transitions\n", len(path.Steps), len(path.Transitions))
	return path, nil
}

func pathQueries(p *cooling.Path) []persistence.Query {
	qs := make([]persistence.Query, 0, len(p.Steps))
	for _, st := range p.Steps {
		qs = append(qs, persistence.NewQuery(p.X, st.T, st.Region, st.Amounts))
	}
	return qs
}

func printStep(w io.Writer, t float64, region string, a phase.Amounts) {
	fmt.Fprintf(w, "%7s °C  %-12s  L %-6s Ti %-6s TiU2 %-6s U %s\n",
		termview.Number(t, 2), region,
		termview.Number(a.Liquid, 3), termview.Number(a.Ti, 3),
		termview.Number(a.TiU2, 3), termview.Number(a.U, 3))
}
