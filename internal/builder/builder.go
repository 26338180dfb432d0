// Package builder runs one graph build: scan, parse, assemble, write.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/linkgraph/internal/checksum"
	"github.com/starford/linkgraph/internal/graph"
	"github.com/starford/linkgraph/internal/metrics"
	"github.com/starford/linkgraph/internal/models"
	"github.com/starford/linkgraph/internal/parser"
	"github.com/starford/linkgraph/internal/sidecar"
	"github.com/starford/linkgraph/internal/storage"
)

// Settings are the site-relative locations a build reads and writes.
type Settings struct {
	PostsDir        string
	SnippetsDir     string
	Output          string
	HiddenConfig    string
	QualityMetadata string
	ExcludedTags    []string
}

// Result describes a successful build. Seq increases with every build run
// by the same Builder.
type Result struct {
	BuildID  string
	Seq      uint64
	Graph    *graph.Graph
	Items    []models.ContentItem
	Data     []byte
	Checksum string
	Posts    int
	Snippets int
	Duration time.Duration
}

// Error is a failed build.
type Error struct {
	BuildID string
	Err     error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Builder produces the graph artifact for one site.
type Builder struct {
	store    storage.Provider
	settings Settings
	parser   *parser.Parser
	logger   *slog.Logger
	recorder metrics.Recorder

	mu  sync.Mutex
	seq uint64
}

// New creates a Builder. A nil recorder records nothing.
func New(store storage.Provider, settings Settings, logger *slog.Logger, recorder metrics.Recorder) *Builder {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	excluded := settings.ExcludedTags
	if excluded == nil {
		excluded = parser.DefaultExcludedTags
	}
	return &Builder{
		store:    store,
		settings: settings,
		parser:   parser.New(excluded),
		logger:   logger,
		recorder: recorder,
	}
}

// Output is the site-relative path of the artifact.
func (b *Builder) Output() string {
	return b.settings.Output
}

// Build runs the pipeline and writes the artifact in a single write. On any
// error the previous artifact is left in place. Concurrent calls run one
// after another.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++

	start := time.Now()
	id := uuid.NewString()
	logger := b.logger.With(slog.String("build_id", id))

	res, err := b.build(ctx, id, logger)
	elapsed := time.Since(start)
	b.recorder.ObserveBuildDuration(elapsed)
	switch {
	case err == nil:
		b.recorder.IncBuildOutcome(metrics.OutcomeSuccess)
	case ctx.Err() != nil:
		b.recorder.IncBuildOutcome(metrics.OutcomeCanceled)
		return nil, &Error{BuildID: id, Err: err}
	default:
		b.recorder.IncBuildOutcome(metrics.OutcomeFailed)
		return nil, &Error{BuildID: id, Err: err}
	}
	res.Seq = b.seq
	res.Duration = elapsed
	return res, nil
}

func (b *Builder) build(ctx context.Context, id string, logger *slog.Logger) (*Result, error) {
	stage := time.Now()
	policy := graph.Policy{
		Hidden:  sidecar.LoadHidden(b.store, b.settings.HiddenConfig, logger),
		Quality: sidecar.LoadQuality(b.store, b.settings.QualityMetadata, logger),
	}
	b.recorder.ObserveStageDuration(metrics.StageSidecar, time.Since(stage))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage = time.Now()
	posts := b.scan(ctx, models.KindPost, b.settings.PostsDir, logger)
	snippets := b.scan(ctx, models.KindSnippet, b.settings.SnippetsDir, logger)
	b.recorder.ObserveStageDuration(metrics.StageScan, time.Since(stage))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage = time.Now()
	items := make([]models.ContentItem, 0, len(posts)+len(snippets))
	items = append(append(items, posts...), snippets...)
	g := graph.Assemble(items, policy)
	data, err := graph.Encode(g)
	if err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}
	b.recorder.ObserveStageDuration(metrics.StageAssemble, time.Since(stage))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage = time.Now()
	if err := b.store.Write(b.settings.Output, data); err != nil {
		return nil, fmt.Errorf("builder: write %s: %w", b.settings.Output, err)
	}
	b.recorder.ObserveStageDuration(metrics.StageWrite, time.Since(stage))

	visibleSnippets := 0
	for _, it := range items[len(posts):] {
		if !it.Hidden {
			visibleSnippets++
		}
	}
	stats := g.Stats()
	b.recorder.SetGraphSize(metrics.GraphSize{Nodes: stats.Nodes, Links: stats.Links, Placeholders: stats.Placeholders})

	logger.Info("Graph built",
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("posts", len(posts)),
		slog.Int("snippets", visibleSnippets),
		slog.Int("links", len(g.Links)),
		slog.String("output", b.settings.Output),
	)

	return &Result{
		BuildID:  id,
		Graph:    g,
		Items:    items,
		Data:     data,
		Checksum: checksum.Sum(data),
		Posts:    len(posts),
		Snippets: visibleSnippets,
	}, nil
}

// scan reads one collection. Unreadable collections and files are logged
// and skipped.
func (b *Builder) scan(ctx context.Context, kind models.ContentKind, dir string, logger *slog.Logger) []models.ContentItem {
	files, err := b.store.Items(dir)
	if err != nil {
		logger.Warn("builder: scan failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return nil
	}
	items := make([]models.ContentItem, 0, len(files))
	for _, f := range files {
		if ctx.Err() != nil {
			return items
		}
		data, err := b.store.Read(f.Path)
		if err != nil {
			logger.Warn("builder: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		items = append(items, NewContentItem(kind, f, b.parser.Parse(data, f.Dir)))
	}
	return items
}

// NewContentItem combines a scanned file with its parse result.
func NewContentItem(kind models.ContentKind, file storage.ItemFile, res *parser.Result) models.ContentItem {
	return models.ContentItem{
		ID:          models.ItemID(kind, file.Dir),
		Slug:        file.Dir,
		Title:       res.Title,
		Kind:        kind,
		Path:        file.Path,
		Tags:        res.Tags,
		References:  res.References,
		DisplayDate: res.DisplayDate,
		Accessible:  true,
	}
}

