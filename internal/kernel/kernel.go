// Package kernel implements the spatial primitives the engine is built on.
//
// Every measurement is taken in a Lambert azimuthal equal-area Frame centred
// on the operands' combined bounding box, so areas are in square meters and
// lengths in meters. Binary operations share one frame. Geometry-valued
// results are returned in lon/lat.
package kernel

import (
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-geos"

	"github.com/mohammed-shakir/geoalign/internal/core/geoerr"
	"github.com/mohammed-shakir/geoalign/internal/core/model"
)

type Units int

const (
	Meters Units = iota
	Kilometers
	Feet
	Miles
)

func (u Units) meters(v float64) (float64, error) {
	switch u {
	case Meters:
		return v, nil
	case Kilometers:
		return v * 1000, nil
	case Feet:
		return v * 0.3048, nil
	case Miles:
		return v * 1609.344, nil
	default:
		return 0, fmt.Errorf("unknown units %d", int(u))
	}
}

// ParseUnits accepts "m", "km", "ft" and "mi" plus their long names.
func ParseUnits(s string) (Units, error) {
	switch s {
	case "", "m", "meter", "meters":
		return Meters, nil
	case "km", "kilometer", "kilometers":
		return Kilometers, nil
	case "ft", "foot", "feet":
		return Feet, nil
	case "mi", "mile", "miles":
		return Miles, nil
	default:
		return 0, fmt.Errorf("unknown units %q", s)
	}
}

// bufferSegments is the GEOS quadrant segment count used for curves.
const bufferSegments = 32

// ErrEmptyResult is returned when an operation produces no areal geometry.
var ErrEmptyResult = errors.New("operation produced an empty geometry")

// Area returns the area of g in square meters; points have zero area.
func Area(g model.Geometry) (float64, error) {
	return measure("area", g, func(gg *geos.Geom) float64 { return gg.Area() })
}

// Perimeter returns the total ring length of g in meters, holes included.
func Perimeter(g model.Geometry) (float64, error) {
	return measure("perimeter", g, func(gg *geos.Geom) float64 { return gg.Length() })
}

func measure(op string, g model.Geometry, fn func(*geos.Geom) float64) (float64, error) {
	var v float64
	err := guard(op, func() error {
		gg, err := toGEOS(g, FrameFor(g))
		if err != nil {
			return err
		}
		v = fn(gg)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return checkMeasure(op, v)
}

// checkMeasure rejects lengths and areas that are not finite and non-negative.
func checkMeasure(op string, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%s: non-finite result %v", op, v)
	}
	return v, nil
}

// Centroid returns the area-weighted centroid of g.
func Centroid(g model.Geometry) (model.Point, error) {
	if p, ok := g.(model.Point); ok {
		return p, nil
	}
	var out model.Point
	err := guard("centroid", func() error {
		f := FrameFor(g)
		gg, err := toGEOS(g, f)
		if err != nil {
			return err
		}
		c := gg.Centroid()
		if c == nil || c.IsEmpty() {
			// zero-area input; fall back to the vertex mean
			out = vertexMean(g)
			return nil
		}
		out = model.Point{Coord: f.Inverse(c.X(), c.Y())}
		return nil
	})
	return out, err
}

func vertexMean(g model.Geometry) model.Point {
	vs := model.Vertices(g)
	if len(vs) == 0 {
		return model.Point{}
	}
	var lon, lat float64
	for _, v := range vs {
		lon += v.Lon
		lat += v.Lat
	}
	n := float64(len(vs))
	return model.Point{Coord: model.Coord{Lon: lon / n, Lat: lat / n}}
}

// Buffer grows g by radius; a negative radius erodes polygons.
func Buffer(g model.Geometry, radius float64, units Units) (model.Geometry, error) {
	r, err := units.meters(radius)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil, fmt.Errorf("buffer: radius must be finite")
	}
	var out model.Geometry
	err = guard("buffer", func() error {
		f := FrameFor(g)
		gg, err := toGEOS(g, f)
		if err != nil {
			return err
		}
		out = fromGEOS(gg.Buffer(r, bufferSegments), f, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("buffer: %w", ErrEmptyResult)
	}
	return out, nil
}

// Intersection returns the areal overlap of a and b; ok is false when they
// do not overlap.
func Intersection(a, b model.Geometry) (model.Geometry, bool, error) {
	var out model.Geometry
	err := guard("intersection", func() error {
		f := FrameFor(a, b)
		ga, err := toGEOS(a, f)
		if err != nil {
			return err
		}
		gb, err := toGEOS(b, f)
		if err != nil {
			return err
		}
		if !ga.Intersects(gb) {
			return nil
		}
		out = fromGEOS(ga.Intersection(gb), f, false)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// Union dissolves gs into a single geometry.
func Union(gs ...model.Geometry) (model.Geometry, error) {
	if len(gs) == 0 {
		return nil, geoerr.InvalidGeometry("", "union of zero geometries")
	}
	var out model.Geometry
	err := guard("union", func() error {
		f := FrameFor(gs...)
		parts := make([]*geos.Geom, 0, len(gs))
		for i, g := range gs {
			gg, err := toGEOS(g, f)
			if err != nil {
				return fmt.Errorf("geometry %d: %w", i, err)
			}
			parts = append(parts, gg)
		}
		out = fromGEOS(cascadedUnion(parts), f, true)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("union: %w", ErrEmptyResult)
	}
	return out, nil
}

// cascadedUnion merges halves recursively, keeping intermediate results small.
func cascadedUnion(parts []*geos.Geom) *geos.Geom {
	if len(parts) == 1 {
		return parts[0]
	}
	mid := len(parts) / 2
	left := cascadedUnion(parts[:mid])
	right := cascadedUnion(parts[mid:])
	return left.Union(right)
}

// ConvexHull returns the hull of g; ok is false when the hull has no area.
func ConvexHull(g model.Geometry) (model.Geometry, bool, error) {
	var out model.Geometry
	err := guard("convex hull", func() error {
		f := FrameFor(g)
		gg, err := toGEOS(g, f)
		if err != nil {
			return err
		}
		out = fromGEOS(gg.ConvexHull(), f, false)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// Distance returns the minimum distance between a and b in meters.
func Distance(a, b model.Geometry) (float64, error) {
	var d float64
	err := guard("distance", func() error {
		f := FrameFor(a, b)
		ga, err := toGEOS(a, f)
		if err != nil {
			return err
		}
		gb, err := toGEOS(b, f)
		if err != nil {
			return err
		}
		d = ga.Distance(gb)
		return nil
	})
	return d, err
}

// OverlapFraction is area(a ∩ b) / area(a), zero when a has no area or the
// two do not overlap.
func OverlapFraction(a, b model.Geometry) (float64, error) {
	areaA, err := Area(a)
	if err != nil {
		return 0, err
	}
	if areaA == 0 {
		return 0, nil
	}
	inter, ok, err := Intersection(a, b)
	if err != nil || !ok {
		return 0, err
	}
	// both areas re-measured in the shared frame so the ratio uses one convention
	var shared float64
	err = guard("overlap", func() error {
		f := FrameFor(a, b)
		ga, err := toGEOS(a, f)
		if err != nil {
			return err
		}
		gi, err := toGEOS(inter, f)
		if err != nil {
			return err
		}
		areaA = ga.Area()
		shared = gi.Area()
		return nil
	})
	if err != nil || areaA == 0 {
		return 0, err
	}
	return math.Min(1, shared/areaA), nil
}

// Validity reports whether g is topologically valid per GEOS, and why not.
func Validity(g model.Geometry) (bool, string, error) {
	var (
		ok     bool
		reason string
	)
	err := guard("validity", func() error {
		gg, err := toGEOS(g, FrameFor(g))
		if err != nil {
			return err
		}
		ok = gg.IsValid()
		if !ok {
			reason = gg.IsValidReason()
		}
		return nil
	})
	return ok, reason, err
}

// Shape holds the measurements compactness scores are derived from, all
// taken in one frame.
type Shape struct {
	Area      float64
	Perimeter float64
	// HullArea is zero when the convex hull has no area.
	HullArea float64
	// EnclosingRadius is the minimum enclosing circle radius.
	EnclosingRadius float64
}

// Measure computes the Shape of g.
func Measure(g model.Geometry) (Shape, error) {
	var s Shape
	err := guard("measure", func() error {
		f := FrameFor(g)
		gg, err := toGEOS(g, f)
		if err != nil {
			return err
		}
		s.Area = gg.Area()
		s.Perimeter = gg.Length()
		if s.Area > 0 {
			if hull := gg.ConvexHull(); hull != nil && !hull.IsEmpty() {
				s.HullArea = hull.Area()
			}
		}
		s.EnclosingRadius = enclosingRadius(g, f)
		return nil
	})
	if err != nil {
		return Shape{}, err
	}
	for _, v := range []float64{s.Area, s.Perimeter, s.HullArea, s.EnclosingRadius} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Shape{}, fmt.Errorf("measure: non-finite result")
		}
	}
	return s, nil
}
