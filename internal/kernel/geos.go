package kernel

import (
	"fmt"

	"github.com/twpayne/go-geos"

	"github.com/mohammed-shakir/geoalign/internal/core/geoerr"
	"github.com/mohammed-shakir/geoalign/internal/core/model"
)

// guard converts panics raised by the GEOS binding into errors.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("geos %s: %v", op, rec)
		}
	}()
	return fn()
}

func toGEOS(g model.Geometry, f Frame) (*geos.Geom, error) {
	switch t := g.(type) {
	case model.Point:
		x, y := f.Forward(t.Coord)
		return geos.NewPoint([]float64{x, y}), nil
	case model.Polygon:
		return geos.NewPolygon(projectRings(t.Rings, f)), nil
	case model.MultiPolygon:
		if len(t.Polygons) == 0 {
			return nil, geoerr.InvalidGeometry("polygons", "multipolygon is empty")
		}
		parts := make([]*geos.Geom, 0, len(t.Polygons))
		for _, p := range t.Polygons {
			parts = append(parts, geos.NewPolygon(projectRings(p.Rings, f)))
		}
		return geos.NewCollection(geos.TypeIDMultiPolygon, parts), nil
	case nil:
		return nil, geoerr.InvalidGeometry("", "geometry is nil")
	default:
		return nil, geoerr.InvalidGeometry("", "unsupported geometry %T", g)
	}
}

func projectRings(rings []model.Ring, f Frame) [][][]float64 {
	out := make([][][]float64, 0, len(rings))
	for _, r := range rings {
		ring := make([][]float64, len(r))
		for i, c := range r {
			x, y := f.Forward(c)
			ring[i] = []float64{x, y}
		}
		out = append(out, ring)
	}
	return out
}

// fromGEOS returns the areal part of gg in lon/lat, or nil when gg has no
// areal part. Points survive only when wantPoint is set.
func fromGEOS(gg *geos.Geom, f Frame, wantPoint bool) model.Geometry {
	if gg == nil || gg.IsEmpty() {
		return nil
	}
	var polys []model.Polygon
	var point *model.Point
	collect(gg, f, &polys, &point)

	switch {
	case len(polys) == 1:
		return polys[0]
	case len(polys) > 1:
		return model.MultiPolygon{Polygons: polys}
	case wantPoint && point != nil:
		return *point
	default:
		return nil
	}
}

func collect(gg *geos.Geom, f Frame, polys *[]model.Polygon, point **model.Point) {
	switch gg.TypeID() {
	case geos.TypeIDPolygon:
		if gg.IsEmpty() || gg.Area() == 0 {
			return
		}
		*polys = append(*polys, unprojectPolygon(gg, f))
	case geos.TypeIDPoint:
		if *point == nil && !gg.IsEmpty() {
			p := model.Point{Coord: f.Inverse(gg.X(), gg.Y())}
			*point = &p
		}
	case geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection, geos.TypeIDMultiPoint:
		for i := range gg.NumGeometries() {
			collect(gg.Geometry(i), f, polys, point)
		}
	default:
		// lines carry no area
	}
}

func unprojectPolygon(gg *geos.Geom, f Frame) model.Polygon {
	rings := make([]model.Ring, 0, 1+gg.NumInteriorRings())
	rings = append(rings, unprojectRing(gg.ExteriorRing(), f))
	for i := range gg.NumInteriorRings() {
		rings = append(rings, unprojectRing(gg.InteriorRing(i), f))
	}
	return model.Polygon{Rings: rings}
}

func unprojectRing(ring *geos.Geom, f Frame) model.Ring {
	cs := ring.CoordSeq()
	out := make(model.Ring, cs.Size())
	for i := range cs.Size() {
		out[i] = f.Inverse(cs.X(i), cs.Y(i))
	}
	// keep closure exact after the round trip
	if len(out) > 1 {
		out[len(out)-1] = out[0]
	}
	return out
}
