// Package crosswalk apportions one geography's identifiers onto another's
// through their shared H3 cells.
package crosswalk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/geoalign/internal/core/geoerr"
	"github.com/mohammed-shakir/geoalign/internal/core/model"
	"github.com/mohammed-shakir/geoalign/internal/core/observability"
	"github.com/mohammed-shakir/geoalign/internal/mapper"
	h3mapper "github.com/mohammed-shakir/geoalign/internal/mapper/h3"
	"github.com/mohammed-shakir/geoalign/internal/quality"
)

// weightTolerance bounds the per-source weight sum above 1.
const weightTolerance = 1e-6

type Options struct {
	// Workers bounds per-feature indexing fan-out; <= 0 uses GOMAXPROCS.
	Workers int
	// MemoSize is the number of coverings remembered within one Build;
	// <= 0 disables the memo.
	MemoSize int
	// Progress, when set, is called from worker goroutines after each
	// feature is indexed.
	Progress func(done, total int)
}

type Builder struct {
	mapper mapper.Interface
	logger *slog.Logger
	opts   Options
}

func New(m mapper.Interface, logger *slog.Logger, opts Options) *Builder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{mapper: m, logger: logger, opts: opts}
}

// group is every feature sharing one identifier, merged into one footprint.
type group struct {
	id    string
	cells []uint32
}

// Build indexes both sets at res and returns the weighted crosswalk. On
// cancellation nothing is returned.
func (b *Builder) Build(ctx context.Context, source, target model.FeatureSet, res int) (*model.Crosswalk, error) {
	if res < h3mapper.MinResolution || res > h3mapper.MaxResolution {
		return nil, &geoerr.InvalidResolutionError{Resolution: res}
	}
	start := time.Now()

	memo, err := b.newMemo()
	if err != nil {
		return nil, err
	}
	total := len(source.Features) + len(target.Features)
	var done atomic.Int64

	srcCells, err := b.index(ctx, source, res, memo, "source", &done, total)
	if err != nil {
		return nil, err
	}
	tgtCells, err := b.index(ctx, target, res, memo, "target", &done, total)
	if err != nil {
		return nil, err
	}

	arena := h3mapper.NewArena(cellCount(srcCells) + cellCount(tgtCells))
	sources := groupByID(source.Features, srcCells, arena)
	targets := groupByID(target.Features, tgtCells, arena)

	owners := make([][]int32, arena.Len())
	for ti, t := range targets {
		for _, id := range t.cells {
			owners[id] = append(owners[id], int32(ti))
		}
	}

	cw := &model.Crosswalk{}
	for _, s := range sources {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("crosswalk canceled: %w", err)
		}
		if len(s.cells) == 0 {
			b.logger.Debug("skipping degenerate source", "source_id", s.id)
			cw.Skipped = append(cw.Skipped, s.id)
			continue
		}
		cw.SourceCells += len(s.cells)
		if err := apportion(cw, s, targets, owners, arena); err != nil {
			return nil, err
		}
	}
	cw.Quality = quality.FromCrosswalk(cw, res)

	observability.AddCellsIndexed("source", cw.SourceCells)
	observability.AddCellsIndexed("target", cellCount(tgtCells))
	b.logger.Info("crosswalk built",
		"resolution", res,
		"sources", len(sources),
		"targets", len(targets),
		"entries", len(cw.Entries),
		"pairs", len(cw.Pairs),
		"skipped", len(cw.Skipped),
		"coverage", cw.Quality.Coverage,
		"accuracy", cw.Quality.Accuracy,
		"elapsed", time.Since(start))
	return cw, nil
}

// apportion splits each source cell's share 1/|S| evenly across the
// targets holding that cell and appends the resulting entries and pairs.
func apportion(cw *model.Crosswalk, s group, targets []group, owners [][]int32, arena *h3mapper.Arena) error {
	type acc struct {
		entries []model.CrosswalkEntry
		weight  float64
	}
	share := 1 / float64(len(s.cells))
	perTarget := map[int32]*acc{}

	for _, id := range s.cells {
		ts := owners[id]
		if len(ts) == 0 {
			continue
		}
		w := share / float64(len(ts))
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return &geoerr.AlignmentComputationError{
				SourceID: s.id,
				Op:       "cell weight",
				Err:      fmt.Errorf("non-finite weight %v", w),
			}
		}
		cell := arena.Cell(id).String()
		for _, ti := range ts {
			a := perTarget[ti]
			if a == nil {
				a = &acc{}
				perTarget[ti] = a
			}
			a.entries = append(a.entries, model.CrosswalkEntry{
				SourceID: s.id,
				TargetID: targets[ti].id,
				CellID:   cell,
				Weight:   w,
			})
			a.weight += w
		}
	}

	order := make([]int32, 0, len(perTarget))
	for ti := range perTarget {
		order = append(order, ti)
	}
	slices.Sort(order)

	var sum float64
	for _, ti := range order {
		a := perTarget[ti]
		cw.Entries = append(cw.Entries, a.entries...)
		cw.Pairs = append(cw.Pairs, model.PairWeight{
			SourceID:    s.id,
			TargetID:    targets[ti].id,
			Weight:      math.Min(1, a.weight),
			Overlap:     float64(len(a.entries)) * share,
			SharedCells: len(a.entries),
		})
		sum += a.weight
	}
	if sum > 1+weightTolerance {
		return &geoerr.AlignmentComputationError{
			SourceID: s.id,
			Op:       "weight normalisation",
			Err:      fmt.Errorf("weights sum to %v", sum),
		}
	}
	return nil
}

func (b *Builder) newMemo() (*lru.Cache[uint64, model.Cells], error) {
	if b.opts.MemoSize <= 0 {
		return nil, nil
	}
	memo, err := lru.New[uint64, model.Cells](b.opts.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("covering memo: %w", err)
	}
	return memo, nil
}

// index covers every feature of fs concurrently. Cancellation is checked
// between features; a feature already being indexed runs to completion.
func (b *Builder) index(
	ctx context.Context,
	fs model.FeatureSet,
	res int,
	memo *lru.Cache[uint64, model.Cells],
	role string,
	done *atomic.Int64,
	total int,
) ([]model.Cells, error) {
	out := make([]model.Cells, len(fs.Features))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)

	for i, f := range fs.Features {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cells, err := b.cover(f.Geometry, res, memo)
			if err != nil {
				return indexError(role, f.ID, err)
			}
			out[i] = cells
			n := done.Add(1)
			if b.opts.Progress != nil {
				b.opts.Progress(int(n), total)
			}
			return nil
		})
	}
	err := g.Wait()
	if cerr := ctx.Err(); cerr != nil {
		return nil, fmt.Errorf("crosswalk canceled: %w", cerr)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// indexError keeps already classified failures and reports anything else
// as an alignment computation failure for the feature.
func indexError(role, id string, err error) error {
	if geoerr.CodeOf(err) != geoerr.CodeInternal {
		return fmt.Errorf("index %s feature %q: %w", role, id, err)
	}
	if role == "source" {
		return &geoerr.AlignmentComputationError{SourceID: id, Op: "index source", Err: err}
	}
	return &geoerr.AlignmentComputationError{Op: fmt.Sprintf("index %s feature %q", role, id), Err: err}
}

func (b *Builder) cover(g model.Geometry, res int, memo *lru.Cache[uint64, model.Cells]) (model.Cells, error) {
	if memo == nil {
		return b.mapper.CellsCovering(g, res)
	}
	key := Fingerprint(g, res)
	if cells, ok := memo.Get(key); ok {
		return cells, nil
	}
	cells, err := b.mapper.CellsCovering(g, res)
	if err != nil {
		return nil, err
	}
	memo.Add(key, cells)
	return cells, nil
}

// groupByID merges features sharing an id, keeping first-seen order, and
// interns their cells as sorted id sets.
func groupByID(features []model.Feature, cells []model.Cells, arena *h3mapper.Arena) []group {
	index := make(map[string]int, len(features))
	var out []group
	for i, f := range features {
		ids := arena.InternAll(cells[i])
		gi, ok := index[f.ID]
		if !ok {
			index[f.ID] = len(out)
			out = append(out, group{id: f.ID, cells: ids})
			continue
		}
		out[gi].cells = append(out[gi].cells, ids...)
	}
	for i := range out {
		slices.Sort(out[i].cells)
		out[i].cells = slices.Compact(out[i].cells)
	}
	return out
}

func cellCount(sets []model.Cells) int {
	n := 0
	for _, s := range sets {
		n += len(s)
	}
	return n
}
