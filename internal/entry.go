// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/mirror"
	"github.com/starford/raido/internal/notion"
	"github.com/starford/raido/internal/source"
)

// Run performs one mirror run with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	setupLogger(cfg, app.verbose)

	token, err := resolveToken(cfg)
	if err != nil {
		return err
	}

	parentID, err := notion.NormalizePageID(app.parentPage)
	if err != nil {
		return err
	}

	// A bad root must surface before anything is sent to the remote service.
	tree, err := source.NewTree(app.folder)
	if err != nil {
		return err
	}

	slog.Info("Configuration loaded",
		slog.String("folder", tree.Root()),
		slog.String("parent_page_id", parentID),
		slog.String("base_url", cfg.Notion.BaseURL),
		slog.Int("workers", cfg.Mirror.Workers),
		slog.String("on_error", cfg.Mirror.OnError),
		slog.String("log_level", cfg.App.LogLevel.String()))

	client := notion.NewClient(cfg.Notion.BaseURL, token, cfg.Notion.Version, cfg.Notion.Timeout())
	walker := mirror.New(tree, client, extract.NewService(), mirror.Options{
		Workers:       cfg.Mirror.Workers,
		SkipFailed:    cfg.Mirror.SkipFailed(),
		IncludeHidden: cfg.Mirror.IncludeHidden,
	})

	res, err := walker.Mirror(ctx, parentID)
	if err != nil {
		return fmt.Errorf("mirror run: %w", err)
	}

	slog.Info("Mirror complete",
		slog.String("root_page_id", res.RootPageID),
		slog.Int("pages", res.Pages),
		slog.Int("text_blocks", res.TextBlocks),
		slog.Int("file_blocks", res.FileBlocks),
		slog.Int("fallbacks", res.Fallbacks),
		slog.Int("skipped_subtrees", res.SkippedSubtrees))

	return nil
}

// RunMCP serves the mirror tools over the MCP stdio transport until the
// client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	setupLogger(cfg, app.verbose)

	token, err := resolveToken(cfg)
	if err != nil {
		return err
	}

	client := notion.NewClient(cfg.Notion.BaseURL, token, cfg.Notion.Version, cfg.Notion.Timeout())
	srv := mcpserver.New(client, mirror.Options{
		Workers:       cfg.Mirror.Workers,
		SkipFailed:    cfg.Mirror.SkipFailed(),
		IncludeHidden: cfg.Mirror.IncludeHidden,
	})

	slog.Info("MCP server starting", slog.String("transport", "stdio"))
	return srv.ServeStdio()
}

// setupLogger installs the default JSON logger. Logs go to stderr so
// stdout stays clean for the MCP stdio transport.
func setupLogger(cfg *Config, verbose bool) {
	level := cfg.App.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// resolveToken returns the integration token from the config file or the
// NOTION_TOKEN environment variable. A missing token is fatal here, before
// any traversal begins.
func resolveToken(cfg *Config) (string, error) {
	token := cfg.Notion.Token
	if token == "" {
		token = os.Getenv("NOTION_TOKEN")
	}
	if token == "" {
		return "", fmt.Errorf("notion token not set, provide notion.token or NOTION_TOKEN: %w", apperr.ErrConfig)
	}
	return token, nil
}
