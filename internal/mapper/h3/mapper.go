package h3mapper

import (
	"fmt"
	"slices"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/geoalign/internal/core/geoerr"
	"github.com/mohammed-shakir/geoalign/internal/core/model"
	"github.com/mohammed-shakir/geoalign/internal/kernel"
	"github.com/mohammed-shakir/geoalign/internal/mapper"
)

const (
	MinResolution = 0
	MaxResolution = 15
)

type Mapper struct{}

var _ mapper.Interface = (*Mapper)(nil)

func New() *Mapper { return &Mapper{} }

func (m *Mapper) CellsForBBox(bb model.BBox, res int) (model.Cells, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	// Build a rectangular loop (lon,lat in EPSG:4326). v4 wants degrees.
	outer := h3.GeoLoop{
		{Lat: bb.Y1, Lng: bb.X1},
		{Lat: bb.Y1, Lng: bb.X2},
		{Lat: bb.Y2, Lng: bb.X2},
		{Lat: bb.Y2, Lng: bb.X1},
	}
	return polyfill([]h3.GeoPolygon{{GeoLoop: outer}}, res)
}

// CellsCovering returns the cells whose centres fall inside g. A
// non-degenerate geometry smaller than one cell yields the cell holding its
// centroid; a point yields the cell holding it; a zero-area polygon yields
// no cells.
func (m *Mapper) CellsCovering(g model.Geometry, res int) (model.Cells, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}

	var polys []h3.GeoPolygon
	switch t := g.(type) {
	case model.Point:
		c, err := cellAt(t.Coord, res)
		if err != nil {
			return nil, err
		}
		return model.Cells{c}, nil
	case model.Polygon:
		p, err := toGeoPolygon("", t)
		if err != nil {
			return nil, err
		}
		polys = append(polys, p)
	case model.MultiPolygon:
		if len(t.Polygons) == 0 {
			return nil, geoerr.InvalidGeometry("polygons", "multipolygon is empty")
		}
		for i, part := range t.Polygons {
			p, err := toGeoPolygon(fmt.Sprintf("polygons[%d].", i), part)
			if err != nil {
				return nil, err
			}
			polys = append(polys, p)
		}
	default:
		return nil, geoerr.InvalidGeometry("type", "unsupported geometry %T", g)
	}

	cells, err := polyfill(polys, res)
	if err != nil {
		return nil, err
	}
	if len(cells) > 0 {
		return cells, nil
	}

	area, err := kernel.Area(g)
	if err != nil {
		return nil, fmt.Errorf("covering area: %w", err)
	}
	if area == 0 {
		return model.Cells{}, nil
	}
	centroid, err := kernel.Centroid(g)
	if err != nil {
		return nil, fmt.Errorf("covering centroid: %w", err)
	}
	c, err := cellAt(centroid.Coord, res)
	if err != nil {
		return nil, err
	}
	return model.Cells{c}, nil
}

// --- helpers ---

func validateRes(res int) error {
	if res < MinResolution || res > MaxResolution {
		return &geoerr.InvalidResolutionError{Resolution: res}
	}
	return nil
}

func cellAt(c model.Coord, res int) (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: c.Lat, Lng: c.Lon}, res)
	if err != nil {
		return 0, fmt.Errorf("h3 cell at %v,%v: %w", c.Lat, c.Lon, err)
	}
	return cell, nil
}

func toGeoPolygon(prefix string, p model.Polygon) (h3.GeoPolygon, error) {
	if len(p.Rings) == 0 {
		return h3.GeoPolygon{}, geoerr.InvalidGeometry(prefix+"rings", "polygon has no rings")
	}
	outer := toLoop(p.Rings[0])
	if len(outer) < 3 {
		return h3.GeoPolygon{}, geoerr.InvalidGeometry(prefix+"rings[0]", "outer ring has < 4 vertices")
	}
	var holes []h3.GeoLoop
	for i := 1; i < len(p.Rings); i++ {
		h := toLoop(p.Rings[i])
		if len(h) < 3 {
			return h3.GeoPolygon{}, geoerr.InvalidGeometry(fmt.Sprintf("%srings[%d]", prefix, i), "hole has < 4 vertices")
		}
		holes = append(holes, h)
	}
	return h3.GeoPolygon{GeoLoop: outer, Holes: holes}, nil
}

// Convert a ring to an h3.GeoLoop (in degrees).
// If the ring is explicitly closed (last == first), drop the trailing duplicate.
func toLoop(r model.Ring) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(r))
	for _, c := range r {
		loop = append(loop, h3.LatLng{Lat: c.Lat, Lng: c.Lon})
	}
	if r.Closed() {
		loop = loop[:len(loop)-1]
	}
	return loop
}

// polyfill computes unique cells across polys and returns them sorted for determinism.
func polyfill(polys []h3.GeoPolygon, res int) (model.Cells, error) {
	var out model.Cells
	for _, p := range polys {
		// v4 returns ([]h3.Cell, error)
		cells, err := h3.PolygonToCells(p, res)
		if err != nil {
			return nil, fmt.Errorf("h3 polyfill: %w", err)
		}
		out = append(out, cells...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// CellArea returns the exact area of cell in square meters.
func CellArea(cell h3.Cell) (float64, error) {
	a, err := h3.CellAreaM2(cell)
	if err != nil {
		return 0, fmt.Errorf("h3 cell area: %w", err)
	}
	return a, nil
}

// CoveredArea sums the areas of cells in square meters.
func CoveredArea(cells model.Cells) (float64, error) {
	var total float64
	for _, c := range cells {
		a, err := CellArea(c)
		if err != nil {
			return 0, err
		}
		total += a
	}
	return total, nil
}
