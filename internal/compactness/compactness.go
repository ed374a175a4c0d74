// Package compactness scores district shapes with the Polsby-Popper, Reock
// and convex-hull measures.
//
// Input rejected by validation is an *geoerr.InvalidGeometryError. A kernel
// failure while measuring a valid shape is reported as an
// *geoerr.AlignmentComputationError with Op "compactness", the engine's
// single class for internal numeric failure.
package compactness

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/geoalign/internal/core/geoerr"
	"github.com/mohammed-shakir/geoalign/internal/core/model"
	"github.com/mohammed-shakir/geoalign/internal/ingest"
	"github.com/mohammed-shakir/geoalign/internal/kernel"
)

// Calculate validates g and scores it. Every score lies in [0,1]; shapes
// without area score zero on all three.
func Calculate(g model.Geometry) (model.CompactnessResult, error) {
	if err := ingest.ValidateGeometry(g); err != nil {
		return model.CompactnessResult{}, err
	}
	s, err := kernel.Measure(g)
	if err != nil {
		return model.CompactnessResult{}, &geoerr.AlignmentComputationError{Op: "compactness", Err: err}
	}
	return FromShape(s), nil
}

// FromShape derives scores from precomputed measurements.
func FromShape(s kernel.Shape) model.CompactnessResult {
	out := model.CompactnessResult{Area: s.Area, Perimeter: s.Perimeter}
	if s.Area <= 0 {
		return out
	}
	if s.Perimeter > 0 {
		out.PolsbyPopper = clamp01(4 * math.Pi * s.Area / (s.Perimeter * s.Perimeter))
	}
	if s.EnclosingRadius > 0 {
		out.Reock = clamp01(s.Area / (math.Pi * s.EnclosingRadius * s.EnclosingRadius))
	}
	if s.HullArea > 0 {
		out.ConvexHullRatio = clamp01(s.Area / s.HullArea)
	} else {
		out.ConvexHullRatio = 1
	}
	return out
}

// CalculateSet scores every feature of fs, returning results in input
// order. The first failure aborts the set.
func CalculateSet(ctx context.Context, fs model.FeatureSet) ([]model.DistrictCompactness, error) {
	out := make([]model.DistrictCompactness, len(fs.Features))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, f := range fs.Features {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := Calculate(f.Geometry)
			if err != nil {
				return fmt.Errorf("district %q: %w", f.ID, err)
			}
			out[i] = model.DistrictCompactness{ID: f.ID, CompactnessResult: r}
			return nil
		})
	}
	err := g.Wait()
	if cerr := ctx.Err(); cerr != nil {
		return nil, fmt.Errorf("compactness canceled: %w", cerr)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
