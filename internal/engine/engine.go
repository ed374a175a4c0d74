// Package engine wires ingestion, indexing, crosswalk construction and
// compactness scoring into the request-level operations callers use.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/geoalign/internal/compactness"
	"github.com/mohammed-shakir/geoalign/internal/core/geoerr"
	"github.com/mohammed-shakir/geoalign/internal/core/model"
	"github.com/mohammed-shakir/geoalign/internal/core/observability"
	"github.com/mohammed-shakir/geoalign/internal/crosswalk"
	"github.com/mohammed-shakir/geoalign/internal/ingest"
	mylog "github.com/mohammed-shakir/geoalign/internal/logger"
	"github.com/mohammed-shakir/geoalign/internal/mapper"
	h3mapper "github.com/mohammed-shakir/geoalign/internal/mapper/h3"
	"github.com/mohammed-shakir/geoalign/internal/quality"
)

// ResultSink persists finished results keyed by case id.
type ResultSink interface {
	SaveCrosswalk(ctx context.Context, caseID string, cw *model.Crosswalk) error
	SaveCompactness(ctx context.Context, caseID string, results []model.DistrictCompactness) error
}

// ProgressReporter receives coarse progress for long-running jobs. Report
// may be called from several goroutines at once.
type ProgressReporter interface {
	Report(ctx context.Context, job string, done, total int)
}

// ResolutionRange bounds the resolutions Align accepts, inclusive.
type ResolutionRange struct {
	Min, Max int
}

type Options struct {
	Workers  int
	MemoSize int
	// Resolutions narrows the accepted range; nil allows 0..15.
	Resolutions    *ResolutionRange
	StrictTopology bool
	Thresholds     quality.Thresholds
	Sink           ResultSink
	Progress       ProgressReporter
	// Mapper overrides the H3 indexer.
	Mapper mapper.Interface
}

type Engine struct {
	logger *slog.Logger
	mapper mapper.Interface
	opts   Options
}

func New(logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Mapper == nil {
		opts.Mapper = h3mapper.New()
	}
	if opts.Resolutions == nil {
		opts.Resolutions = &ResolutionRange{Min: h3mapper.MinResolution, Max: h3mapper.MaxResolution}
	}
	if opts.Thresholds == (quality.Thresholds{}) {
		opts.Thresholds = quality.DefaultThresholds()
	}
	return &Engine{logger: logger, mapper: opts.Mapper, opts: opts}
}

type AlignRequest struct {
	CaseID      string
	Source      []byte
	Target      []byte
	Resolution  int
	SourceIDKey string
	TargetIDKey string
}

// Align builds the crosswalk from req.Source onto req.Target.
func (e *Engine) Align(ctx context.Context, req AlignRequest) (cw *model.Crosswalk, err error) {
	if req.CaseID == "" {
		req.CaseID = mylog.CaseIDFrom(ctx)
	}
	ctx = e.begin(ctx, "align", req.CaseID)
	defer e.finish(ctx, "align", time.Now(), &err)

	if req.Resolution < e.opts.Resolutions.Min || req.Resolution > e.opts.Resolutions.Max {
		return nil, &geoerr.InvalidResolutionError{Resolution: req.Resolution}
	}
	source, err := e.featureSet(req.Source, req.SourceIDKey, "source")
	if err != nil {
		return nil, err
	}
	target, err := e.featureSet(req.Target, req.TargetIDKey, "target")
	if err != nil {
		return nil, err
	}

	b := crosswalk.New(e.mapper, e.logger, crosswalk.Options{
		Workers:  e.opts.Workers,
		MemoSize: e.opts.MemoSize,
		Progress: e.progress(ctx, "align"),
	})
	cw, err = b.Build(ctx, source, target, req.Resolution)
	if err != nil {
		return nil, err
	}

	observability.SetCrosswalkCoverage(cw.Quality.Coverage)
	for _, w := range e.Warnings(cw) {
		e.logger.WarnContext(ctx, "crosswalk quality", "warning", w)
	}
	if e.opts.Sink != nil {
		if err := e.opts.Sink.SaveCrosswalk(ctx, req.CaseID, cw); err != nil {
			return nil, fmt.Errorf("save crosswalk: %w", err)
		}
	}
	return cw, nil
}

// Warnings lists the quality thresholds cw falls short of.
func (e *Engine) Warnings(cw *model.Crosswalk) []string {
	if cw == nil {
		return nil
	}
	return quality.Warnings(cw.Quality, e.opts.Thresholds)
}

// Compactness scores a single GeoJSON geometry or feature.
func (e *Engine) Compactness(ctx context.Context, raw []byte) (r model.CompactnessResult, err error) {
	ctx = e.begin(ctx, "compactness", "")
	defer e.finish(ctx, "compactness", time.Now(), &err)

	g, err := ingest.Validate(raw)
	if err != nil {
		return model.CompactnessResult{}, err
	}
	if err := e.checkTopology(g, ""); err != nil {
		return model.CompactnessResult{}, err
	}
	r, err = compactness.Calculate(g)
	if err != nil {
		return model.CompactnessResult{}, err
	}
	observeScores(r)
	return r, nil
}

// PlanCompactness scores every district of a plan FeatureCollection. The
// case id, if any, is taken from ctx (see WithCaseID).
func (e *Engine) PlanCompactness(ctx context.Context, raw []byte, idKey string) (out []model.DistrictCompactness, err error) {
	caseID := mylog.CaseIDFrom(ctx)
	ctx = e.begin(ctx, "plan", caseID)
	defer e.finish(ctx, "plan", time.Now(), &err)

	fs, err := e.featureSet(raw, idKey, "plan")
	if err != nil {
		return nil, err
	}
	out, err = compactness.CalculateSet(ctx, fs)
	if err != nil {
		return nil, err
	}
	for _, d := range out {
		observeScores(d.CompactnessResult)
	}
	if p := e.progress(ctx, "plan"); p != nil {
		p(len(out), len(out))
	}
	if e.opts.Sink != nil {
		if err := e.opts.Sink.SaveCompactness(ctx, caseID, out); err != nil {
			return nil, fmt.Errorf("save compactness: %w", err)
		}
	}
	return out, nil
}

func (e *Engine) featureSet(raw []byte, idKey, role string) (model.FeatureSet, error) {
	fs, err := ingest.FeatureSet(raw, idKey)
	if err != nil {
		return model.FeatureSet{}, fmt.Errorf("%s: %w", role, err)
	}
	for _, f := range fs.Features {
		if err := e.checkTopology(f.Geometry, f.ID); err != nil {
			return model.FeatureSet{}, fmt.Errorf("%s: %w", role, err)
		}
	}
	return fs, nil
}

func (e *Engine) checkTopology(g model.Geometry, id string) error {
	if !e.opts.StrictTopology {
		return nil
	}
	if err := ingest.CheckTopology(g); err != nil {
		if id != "" {
			return fmt.Errorf("feature %q: %w", id, err)
		}
		return err
	}
	return nil
}

func (e *Engine) progress(ctx context.Context, job string) func(done, total int) {
	if e.opts.Progress == nil {
		return nil
	}
	return func(done, total int) {
		e.opts.Progress.Report(ctx, job, done, total)
	}
}

// WithCaseID attaches the case results belong to.
func WithCaseID(ctx context.Context, caseID string) context.Context {
	return mylog.WithCaseID(ctx, caseID)
}

func (e *Engine) begin(ctx context.Context, job, caseID string) context.Context {
	ctx = mylog.WithComponent(ctx, "engine")
	ctx = mylog.WithJob(ctx, job)
	return mylog.WithCaseID(ctx, caseID)
}

func (e *Engine) finish(ctx context.Context, op string, start time.Time, errp *error) {
	elapsed := time.Since(start)
	code := geoerr.CodeOf(*errp)
	outcome := "ok"
	if code != geoerr.CodeOK {
		outcome = code.String()
	}
	observability.ObserveOperation(op, outcome, elapsed.Seconds())

	switch {
	case *errp == nil:
		e.logger.DebugContext(ctx, "operation done", "elapsed", elapsed)
	case geoerr.IsClientError(*errp) || code == geoerr.CodeCanceled:
		e.logger.InfoContext(ctx, "operation rejected", "code", code.String(), "err", (*errp).Error())
	default:
		e.logger.ErrorContext(ctx, "operation failed", "code", code.String(), "err", (*errp).Error())
	}
}

func observeScores(r model.CompactnessResult) {
	observability.ObserveCompactness("polsby_popper", r.PolsbyPopper)
	observability.ObserveCompactness("reock", r.Reock)
	observability.ObserveCompactness("convex_hull_ratio", r.ConvexHullRatio)
}
