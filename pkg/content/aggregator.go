// Package content assembles module and week extracts from Canvas items.
package content

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/Sternrassler/canvas-mcp/pkg/htmltext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds in-flight item extractions.
const DefaultConcurrency = 8

var (
	itemsExtractedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_items_extracted_total",
		Help: "Total module items extracted by kind and outcome",
	}, []string{"kind", "outcome"})

	extractDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "canvas_module_extract_duration_seconds",
		Help:    "Duration of complete module extractions",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

// Source is the subset of the Canvas API the aggregator reads from.
type Source interface {
	ListModules(ctx context.Context, courseID string) ([]canvas.Module, error)
	ListModuleItems(ctx context.Context, courseID, moduleID string) ([]canvas.ModuleItem, error)
	GetPage(ctx context.Context, courseID, slug string) (*canvas.Page, error)
	GetFile(ctx context.Context, fileID string) (*canvas.File, error)
	GetAssignment(ctx context.Context, courseID, assignmentID string) (*canvas.Assignment, error)
}

// Aggregator extracts every item of a module concurrently.
type Aggregator struct {
	source      Source
	concurrency int
	logger      zerolog.Logger
}

// NewAggregator creates an aggregator. concurrency <= 0 uses DefaultConcurrency.
func NewAggregator(source Source, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{
		source:      source,
		concurrency: concurrency,
		logger:      log.With().Str("component", "content-aggregator").Logger(),
	}
}

// ExtractModule lists the module items, extracts each one and returns the
// blocks in position order. A failed listing fails the call; a failed item
// is recorded in its block and never affects its siblings.
func (a *Aggregator) ExtractModule(ctx context.Context, courseID, moduleID string) (*Result, error) {
	start := time.Now()
	defer func() { extractDuration.Observe(time.Since(start).Seconds()) }()

	items, err := a.source.ListModuleItems(ctx, courseID, moduleID)
	if err != nil {
		return nil, fmt.Errorf("list items of module %s: %w", moduleID, err)
	}

	refs := make([]ItemRef, len(items))
	for i, item := range items {
		refs[i] = RefFromItem(item)
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Position < refs[j].Position })

	blocks := make([]Block, len(refs))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			blocks[i] = a.extract(ctx, courseID, i+1, ref)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{
		CourseID:   courseID,
		ModuleID:   moduleID,
		Title:      fmt.Sprintf("Module %s - Complete Content Extract", moduleID),
		TotalItems: len(refs),
		Blocks:     blocks,
	}

	a.logger.Info().
		Str("course_id", courseID).
		Str("module_id", moduleID).
		Int("items", result.TotalItems).
		Int("failed", result.Failures()).
		Dur("duration", time.Since(start)).
		Msg("Module extracted")

	return result, nil
}

// extract runs the handler for the item's kind and captures its failure.
func (a *Aggregator) extract(ctx context.Context, courseID string, index int, ref ItemRef) Block {
	block := Block{Index: index, Item: ref}

	var err error
	switch ref.Kind {
	case KindPage:
		if ref.PageSlug != "" {
			block.Page, err = a.source.GetPage(ctx, courseID, ref.PageSlug)
			if err == nil {
				block.PageText = htmltext.Convert(block.Page.Body)
			}
		}
	case KindFile:
		if ref.ContentID != 0 {
			block.File, err = a.source.GetFile(ctx, strconv.FormatInt(ref.ContentID, 10))
		}
	case KindAssignment:
		if ref.ContentID != 0 {
			block.Assignment, err = a.source.GetAssignment(ctx, courseID, strconv.FormatInt(ref.ContentID, 10))
			if err == nil {
				block.AssignmentText = htmltext.Convert(block.Assignment.Description)
			}
		}
	}

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "failed"
		block.Err = err
		block.Page, block.File, block.Assignment = nil, nil, nil
		a.logger.Warn().
			Err(err).
			Str("course_id", courseID).
			Int64("item_id", ref.ID).
			Str("kind", ref.Kind.String()).
			Msg("Item extraction failed")
	case block.MetadataOnly():
		outcome = "metadata"
	}
	itemsExtractedTotal.WithLabelValues(ref.Kind.String(), outcome).Inc()

	return block
}
