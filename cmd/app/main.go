package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/linkgraph/internal"
	pkgconfig "github.com/starford/linkgraph/pkg/config"
)

var version = "dev"

func runMode(mode internal.Mode) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if root := cmd.String("root"); root != "" {
			cfg.Site.Root = root
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithVersion(version),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}

		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "linkgraph",
		Usage:   "Build the post/snippet/tag link graph of a content site",
		Version: version,
		Action:  runMode(internal.ModeBuild),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Site root, overrides site.root",
				Sources: cli.EnvVars("LINKGRAPH_SITE_ROOT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Scan the site once and write the graph artifact",
				Action: runMode(internal.ModeBuild),
			},
			{
				Name:   "watch",
				Usage:  "Build, then rebuild on every content change",
				Action: runMode(internal.ModeWatch),
			},
			{
				Name:   "serve",
				Usage:  "Watch and serve the graph, live events, and metrics over HTTP",
				Action: runMode(internal.ModeServe),
			},
			{
				Name:   "mcp",
				Usage:  "Expose graph inspection tools over MCP stdio",
				Action: runMode(internal.ModeMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
