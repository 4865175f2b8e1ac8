package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/talgya/phase-lever/internal/client"
	"github.com/talgya/phase-lever/internal/config"
)

// cli holds the global flags and the loaded configuration shared by every
// subcommand.
type cli struct {
	configPath string
	jsonOut    bool
	remote     string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "phaselever",
		Short: "U–Ti phase diagram: regions, lever-rule amounts and cooling paths",
		Long: `phaselever classifies a (composition, temperature) point on the
uranium–titanium binary phase diagram and reports the relative amount of
each phase present, locally or against a running phaselever server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./phaselever.toml or ~/.phaselever.toml)")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print JSON instead of text")
	root.PersistentFlags().StringVar(&c.remote, "remote", "", "query a phaselever server at this base URL instead of computing locally")

	root.AddCommand(
		c.classifyCmd(),
		c.amountsCmd(),
		c.diagramCmd(),
		c.coolCmd(),
		c.serveCmd(),
		c.historyCmd(),
		c.initConfigCmd(),
	)
	return root
}

// setup loads the configuration and installs the default logger.
func (c *cli) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	c.cfg = cfg

	// Logs go to stderr so stdout stays clean for --json.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return nil
}

// remoteClient returns the API client, or nil when running locally.
func (c *cli) remoteClient() *client.Client {
	if c.remote == "" {
		return nil
	}
	return client.New(c.remote)
}

func (c *cli) initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a sample configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "phaselever.toml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.InitFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseArg(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return f, nil
}

// pointArgs parses the <x> <T> positional arguments.
func pointArgs(args []string) (float64, float64, error) {
	x, err := parseArg("composition", args[0])
	if err != nil {
		return 0, 0, err
	}
	t, err := parseArg("temperature", args[1])
	if err != nil {
		return 0, 0, err
	}
	return x, t, nil
}
