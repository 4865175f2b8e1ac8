package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/phase-lever/internal/api"
	"github.com/talgya/phase-lever/internal/persistence"
	"github.com/talgya/phase-lever/internal/phase"
	"github.com/talgya/phase-lever/internal/termview"
)

// openStore opens the history database at store.path, creating its directory.
func (c *cli) openStore() (*persistence.DB, error) {
	path := c.cfg.Store.Path
	if path == "" {
		return nil, errors.New("no history store configured (store.path is empty)")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	return persistence.Open(path)
}

func (c *cli) serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the phase diagram HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			var db *persistence.DB
			if cfg.Store.Path != "" {
				var err error
				db, err = c.openStore()
				if err != nil {
					return err
				}
				defer db.Close()
				slog.Info("database opened", "path", cfg.Store.Path)

				if last, err := db.GetMeta("last_start"); err == nil {
					slog.Info("previous start", "at", last)
				}
				if err := db.SaveMeta("last_start", time.Now().UTC().Format(time.RFC3339)); err != nil {
					slog.Error("save start time failed", "error", err)
				}
			} else {
				slog.Warn("store.path not set, query history disabled")
			}

			srv := &api.Server{
				DB:           db,
				Port:         cfg.Server.Port,
				CORSOrigins:  cfg.Server.CORSOrigins,
				RateLimit:    cfg.Server.RateLimit,
				HistoryLimit: cfg.Store.HistoryLimit,
				CoolingStep:  cfg.Cooling.Step,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "API: http://localhost:%d/api/v1/status\n", cfg.Server.Port)
			if err := srv.Start(ctx); err != nil {
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List the most recent stored amounts queries, or show one by ID",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return c.showQuery(cmd, args[0])
			}
			if limit <= 0 {
				limit = c.cfg.Store.HistoryLimit
			}

			var rows []persistence.Query
			if rc := c.remoteClient(); rc != nil {
				var err error
				rows, err = rc.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
			} else {
				db, err := c.openStore()
				if err != nil {
					return err
				}
				defer db.Close()
				rows, err = db.RecentQueries(limit)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if c.jsonOut {
				if rows == nil {
					rows = []persistence.Query{}
				}
				return printJSON(out, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "no queries recorded")
				return nil
			}
			for _, q := range rows {
				fmt.Fprintf(out, "%-8s %-16s x=%-6s T=%-6s %-12s L %-6s Ti %-6s TiU2 %-6s U %s\n",
					shortID(q.ID), humanize.Time(q.CreatedAt()),
					termview.Number(q.X, 3), termview.Number(q.T, 1), q.Region,
					termview.Number(q.Liquid, 3), termview.Number(q.Ti, 3),
					termview.Number(q.TiU2, 3), termview.Number(q.U, 3))
			}
			fmt.Fprintf(out, "%s queries shown\n", humanize.Comma(int64(len(rows))))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "number of queries (default store.history_limit)")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// showQuery prints one stored query as a full readout.
func (c *cli) showQuery(cmd *cobra.Command, id string) error {
	var q *persistence.Query
	if rc := c.remoteClient(); rc != nil {
		var err error
		if q, err = rc.Query(cmd.Context(), id); err != nil {
			return err
		}
	} else {
		db, err := c.openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		got, err := db.GetQuery(id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no stored query with id %s", id)
		}
		if err != nil {
			return err
		}
		q = &got
	}

	out := cmd.OutOrStdout()
	if c.jsonOut {
		return printJSON(out, q)
	}
	fmt.Fprintf(out, "%s  %s\n", q.ID, humanize.Time(q.CreatedAt()))
	fmt.Fprintln(out, termview.Render(termview.Readout{
		X: q.X, T: q.T, Kind: q.Kind, Region: q.Region,
		Amounts: phase.Amounts{
			Liquid: q.Liquid, Ti: q.Ti, TiU2: q.TiU2, U: q.U,
			LiquidComposition: q.LiquidX,
		},
	}, termview.DefaultBarWidth))
	return nil
}
