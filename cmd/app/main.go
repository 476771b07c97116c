package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/noor/internal"
	pkgconfig "github.com/starford/noor/pkg/config"
)

const defaultConfigFile = "config/config.yaml"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), defaultConfigFile, cfg); err != nil {
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

// stderrLogger keeps stdout for command output.
func stderrLogger(cfg *internal.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func scan(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, proc, err := internal.Scan(ctx, cmd.Bool("process"),
		internal.WithConfig(cfg), internal.WithLogger(stderrLogger(cfg)))
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if proc == nil {
		return printJSON(res)
	}
	return printJSON(map[string]any{"scan": res, "process": proc})
}

func process(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := internal.Process(ctx, internal.WithConfig(cfg), internal.WithLogger(stderrLogger(cfg)))
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}
	return printJSON(res)
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithLogger(stderrLogger(cfg)))
}

func main() {
	cmd := &cli.Command{
		Name:   "noor",
		Usage:  "Screenshot-to-notes library: image index, OCR pipeline and Markdown notes",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigFile,
				Value:       defaultConfigFile,
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, the library watcher and the scheduled scan",
				Action: serve,
			},
			{
				Name:  "scan",
				Usage: "Scan screenshot folders once and print the result",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "process",
						Usage: "Run OCR on pending screenshots after the scan",
					},
				},
				Action: scan,
			},
			{
				Name:   "process",
				Usage:  "Run OCR on every pending screenshot",
				Action: process,
			},
			{
				Name:   "mcp",
				Usage:  "Serve notes and images over MCP on stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
