// Package mirror walks a local tree and reproduces it as pages in the
// remote document service.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/notion"
	"github.com/starford/raido/internal/source"
)

// Options tune a mirror run. The zero value is a sequential run that
// stops at the first failure and leaves hidden entries out.
type Options struct {
	// Workers bounds parallel content uploads. Page creation stays
	// sequential either way, so the remote tree always comes into being
	// in traversal order; at most Workers file contents upload at once.
	Workers int
	// SkipFailed logs and counts a failed subtree instead of aborting
	// the run. Failures at the root are fatal regardless.
	SkipFailed bool
	// IncludeHidden mirrors dot-prefixed entries too.
	IncludeHidden bool
}

// Result summarizes one mirror run.
type Result struct {
	RootPageID string
	Pages      int
	TextBlocks int
	FileBlocks int
	// Fallbacks counts text-like files that degraded to a file
	// reference because their content could not be extracted.
	Fallbacks int
	// SkippedSubtrees counts subtrees abandoned under SkipFailed.
	SkippedSubtrees int
}

type counters struct {
	pages      atomic.Int64
	textBlocks atomic.Int64
	fileBlocks atomic.Int64
	fallbacks  atomic.Int64
	skipped    atomic.Int64
}

func (c *counters) result(rootID string) *Result {
	return &Result{
		RootPageID:      rootID,
		Pages:           int(c.pages.Load()),
		TextBlocks:      int(c.textBlocks.Load()),
		FileBlocks:      int(c.fileBlocks.Load()),
		Fallbacks:       int(c.fallbacks.Load()),
		SkippedSubtrees: int(c.skipped.Load()),
	}
}

// Walker mirrors one source tree into the remote service.
type Walker struct {
	tree      *source.Tree
	remote    notion.Service
	extractor *extract.Service
	opts      Options
}

// New creates a Walker over tree that writes through remote.
func New(tree *source.Tree, remote notion.Service, extractor *extract.Service, opts Options) *Walker {
	return &Walker{tree: tree, remote: remote, extractor: extractor, opts: opts}
}

// Mirror reproduces the tree as a page hierarchy under parentID and
// returns the new root page id with the run's counters. Directories are
// visited depth-first; each directory's entries are taken in one
// combined name-ordered pass, files and subdirectories interleaved.
func (w *Walker) Mirror(ctx context.Context, parentID string) (*Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	limit := w.opts.Workers
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	var c counters
	root := source.Entry{Name: w.tree.Name(), Path: "", Dir: w.tree.IsDir()}
	rootID, err := w.mirrorNode(gctx, g, &c, parentID, root)

	// Always drain the upload workers, even when traversal failed.
	werr := g.Wait()
	switch {
	case err == nil:
		err = werr
	case werr != nil && !errors.Is(werr, context.Canceled):
		// Traversal died because an upload cancelled the group; the
		// upload failure is the real cause.
		err = werr
	}
	if err != nil {
		return nil, err
	}
	return c.result(rootID), nil
}

// mirrorNode creates the page for one entry and fills it: directories
// recurse over their listed children, files resolve their content.
func (w *Walker) mirrorNode(ctx context.Context, g *errgroup.Group, c *counters, parentID string, e source.Entry) (string, error) {
	pageID, err := w.remote.CreatePage(ctx, parentID, e.Name)
	if err != nil {
		return "", fmt.Errorf("mirror: create page for %s: %w", nodePath(e), err)
	}
	c.pages.Add(1)
	slog.Debug("page created", slog.String("path", e.Path), slog.String("page_id", pageID))

	if e.Dir {
		return pageID, w.mirrorChildren(ctx, g, c, pageID, e)
	}

	upload := func() error {
		err := w.uploadContent(ctx, c, pageID, e)
		if err != nil && w.opts.SkipFailed && ctx.Err() == nil {
			slog.Warn("content upload failed, page left without blocks",
				slog.String("path", e.Path),
				slog.String("error", err.Error()))
			c.skipped.Add(1)
			return nil
		}
		return err
	}
	if w.opts.Workers > 1 {
		g.Go(upload)
		return pageID, nil
	}
	return pageID, upload()
}

func (w *Walker) mirrorChildren(ctx context.Context, g *errgroup.Group, c *counters, pageID string, dir source.Entry) error {
	entries, err := w.tree.List(dir.Path)
	if err != nil {
		return err
	}
	for _, child := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !w.opts.IncludeHidden && strings.HasPrefix(child.Name, ".") {
			slog.Debug("hidden entry skipped", slog.String("path", child.Path))
			continue
		}
		if _, err := w.mirrorNode(ctx, g, c, pageID, child); err != nil {
			if w.opts.SkipFailed && ctx.Err() == nil {
				slog.Warn("subtree skipped",
					slog.String("path", child.Path),
					slog.String("error", err.Error()))
				c.skipped.Add(1)
				continue
			}
			return err
		}
	}
	return nil
}

// uploadContent fills a file's page: text-like files become ordered
// paragraph blocks, everything else becomes a single file reference.
// Unreadable or malformed text-like files degrade to the file reference
// instead of failing the node.
func (w *Walker) uploadContent(ctx context.Context, c *counters, pageID string, e source.Entry) error {
	kind := extract.Detect(e.Name)
	switch {
	case kind.TextLike():
		text, err := w.extractText(e, kind)
		if err == nil {
			chunks := ChunkText(text, notion.MaxTextLen)
			if err := w.remote.AppendText(ctx, pageID, chunks); err != nil {
				return fmt.Errorf("mirror: append text for %s: %w", nodePath(e), err)
			}
			c.textBlocks.Add(int64(len(chunks)))
			slog.Debug("text mirrored",
				slog.String("path", e.Path),
				slog.Int("blocks", len(chunks)))
			return nil
		}
		slog.Warn("text extraction failed, attaching file reference",
			slog.String("path", e.Path),
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()))
		c.fallbacks.Add(1)
	case kind == extract.KindUnsupported:
		slog.Warn("no extraction for legacy format, attaching file reference",
			slog.String("path", e.Path))
		c.fallbacks.Add(1)
	}

	if err := w.remote.AppendFile(ctx, pageID, e.Name, placeholderURL(e.Name)); err != nil {
		return fmt.Errorf("mirror: append file for %s: %w", nodePath(e), err)
	}
	c.fileBlocks.Add(1)
	return nil
}

// nodePath names an entry in logs and errors. The root entry has an
// empty relative path, so its base name stands in.
func nodePath(e source.Entry) string {
	if e.Path == "" {
		return e.Name
	}
	return e.Path
}

func (w *Walker) extractText(e source.Entry, kind extract.Kind) (string, error) {
	data, err := w.tree.Read(e.Path)
	if err != nil {
		return "", err
	}
	return w.extractor.Text(kind, data)
}

// placeholderURL stands in for real file hosting, which the mirror does
// not do.
func placeholderURL(name string) string {
	return "https://example.com/files/" + url.PathEscape(name)
}
