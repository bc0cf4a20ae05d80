package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	pkgconfig "github.com/starford/raido/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	loaded, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !loaded && cmd.IsSet("config") {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}
	return cfg, nil
}

func runMirror(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithFolder(cmd.String("folder")),
		internal.WithParentPage(cmd.String("page")),
		internal.WithVerbose(cmd.Bool("verbose")),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVerbose(cmd.Bool("verbose")),
	}

	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func verboseFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable debug logging",
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Mirror a local folder tree into a Notion-style workspace as nested pages",
		Commands: []*cli.Command{
			{
				Name:   "mirror",
				Usage:  "Mirror a folder under an existing parent page",
				Action: runMirror,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "folder",
						Aliases:  []string{"f"},
						Usage:    "Local folder (or single file) to mirror",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "page",
						Aliases:  []string{"p"},
						Usage:    "Parent page ID (UUID, hyphens optional)",
						Required: true,
						Sources:  cli.EnvVars("NOTION_PARENT_PAGE"),
					},
					configFlag(),
					verboseFlag(),
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the mirror tools over MCP stdio",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag(), verboseFlag()},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
