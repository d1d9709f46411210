package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/periodic/internal"
	"github.com/starford/periodic/internal/periodic"
	pkgconfig "github.com/starford/periodic/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

// withRuntime bootstraps the vault for a one-shot command.
func withRuntime(ctx context.Context, cmd *cli.Command, fn func(*internal.Runtime) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := internal.Bootstrap(ctx, cfg, internal.NewLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func granularityArg(cmd *cli.Command) (periodic.Granularity, error) {
	if cmd.Args().Len() < 1 {
		return "", fmt.Errorf("granularity is required (day, week, month, quarter, year)")
	}
	return periodic.ParseGranularity(cmd.Args().Get(0))
}

func openNote(ctx context.Context, cmd *cli.Command) error {
	g, err := granularityArg(cmd)
	if err != nil {
		return err
	}
	return withRuntime(ctx, cmd, func(rt *internal.Runtime) error {
		lib := rt.Service.Library()
		date := lib.Now()
		if v := cmd.Args().Get(1); v != "" {
			if date, err = lib.Parse(v, "YYYY-MM-DD", true); err != nil {
				return fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
			}
		}
		if n := int(cmd.Int("offset")); n != 0 {
			date = rt.Service.Step(g, date, n)
		}
		note, created, err := rt.Service.Open(ctx, g, date)
		if err != nil {
			return err
		}
		return printJSON(struct {
			Note    any  `json:"note"`
			Created bool `json:"created"`
		}{note, created})
	})
}

func resolvePath(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("path is required")
	}
	return withRuntime(ctx, cmd, func(rt *internal.Runtime) error {
		res, err := rt.Service.Resolve(ctx, cmd.Args().Get(0))
		if err != nil {
			return err
		}
		return printJSON(res)
	})
}

func validateFormat(ctx context.Context, cmd *cli.Command) error {
	g, err := granularityArg(cmd)
	if err != nil {
		return err
	}
	return withRuntime(ctx, cmd, func(rt *internal.Runtime) error {
		check := rt.Service.ValidateFormat(g, cmd.Args().Get(1))
		if err := printJSON(check); err != nil {
			return err
		}
		if !check.Valid {
			return fmt.Errorf("invalid format %q: %s", check.Format, check.Error)
		}
		return nil
	})
}

func main() {
	cmd := &cli.Command{
		Name:   "periodic",
		Usage:  "Daily, weekly, monthly, quarterly and yearly notes in a Markdown vault",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the vault watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdio",
				Action: serveMCP,
			},
			{
				Name:      "open",
				Usage:     "Open the periodic note of a date, creating it if needed",
				ArgsUsage: "<granularity> [YYYY-MM-DD]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Periods to move from the date, e.g. -1 for the previous one",
					},
				},
				Action: openNote,
			},
			{
				Name:      "resolve",
				Usage:     "Tell whether a vault file is a periodic note",
				ArgsUsage: "<path>",
				Action:    resolvePath,
			},
			{
				Name:      "validate",
				Usage:     "Check a filename format for a granularity",
				ArgsUsage: "<granularity> <format>",
				Action:    validateFormat,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
