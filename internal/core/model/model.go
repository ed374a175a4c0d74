// Package model defines core domain types shared across the engine.
package model

import (
	"fmt"
	"math"
)

type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
	SRID   string
}

// String representation matching wfs/wms bbox format
func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%s", b.X1, b.Y1, b.X2, b.Y2, b.SRID)
}

// Center returns the midpoint of the box.
func (b BBox) Center() Coord {
	return Coord{Lon: (b.X1 + b.X2) / 2, Lat: (b.Y1 + b.Y2) / 2}
}

// Extend grows b to include o.
func (b BBox) Extend(o BBox) BBox {
	return BBox{
		X1:   math.Min(b.X1, o.X1),
		Y1:   math.Min(b.Y1, o.Y1),
		X2:   math.Max(b.X2, o.X2),
		Y2:   math.Max(b.Y2, o.Y2),
		SRID: b.SRID,
	}
}

// Coord is a (longitude, latitude) pair in EPSG:4326 degrees.
type Coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Ring is an ordered, closed sequence of coordinates.
type Ring []Coord

// Closed reports whether the first and last coordinates are identical.
func (r Ring) Closed() bool {
	if len(r) < 2 {
		return false
	}
	return r[0] == r[len(r)-1]
}

type Kind int

const (
	KindPoint Kind = iota + 1
	KindPolygon
	KindMultiPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindPolygon:
		return "Polygon"
	case KindMultiPolygon:
		return "MultiPolygon"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Geometry is implemented by Point, Polygon and MultiPolygon only.
type Geometry interface {
	Kind() Kind
	Bounds() BBox
	sealed()
}

type Point struct {
	Coord
}

type Polygon struct {
	Rings []Ring
}

type MultiPolygon struct {
	Polygons []Polygon
}

var (
	_ Geometry = Point{}
	_ Geometry = Polygon{}
	_ Geometry = MultiPolygon{}
)

func (Point) Kind() Kind        { return KindPoint }
func (Polygon) Kind() Kind      { return KindPolygon }
func (MultiPolygon) Kind() Kind { return KindMultiPolygon }

func (Point) sealed()        {}
func (Polygon) sealed()      {}
func (MultiPolygon) sealed() {}

func (p Point) Bounds() BBox {
	return BBox{X1: p.Lon, Y1: p.Lat, X2: p.Lon, Y2: p.Lat, SRID: "EPSG:4326"}
}

func (p Polygon) Bounds() BBox {
	return ringsBounds(p.Rings)
}

func (m MultiPolygon) Bounds() BBox {
	var (
		out BBox
		set bool
	)
	for _, p := range m.Polygons {
		if len(p.Rings) == 0 {
			continue
		}
		b := p.Bounds()
		if !set {
			out, set = b, true
			continue
		}
		out = out.Extend(b)
	}
	return out
}

func ringsBounds(rings []Ring) BBox {
	b := BBox{
		X1: math.Inf(1), Y1: math.Inf(1),
		X2: math.Inf(-1), Y2: math.Inf(-1),
		SRID: "EPSG:4326",
	}
	n := 0
	for _, r := range rings {
		for _, c := range r {
			b.X1 = math.Min(b.X1, c.Lon)
			b.Y1 = math.Min(b.Y1, c.Lat)
			b.X2 = math.Max(b.X2, c.Lon)
			b.Y2 = math.Max(b.Y2, c.Lat)
			n++
		}
	}
	if n == 0 {
		return BBox{SRID: "EPSG:4326"}
	}
	return b
}

// Vertices flattens every coordinate of g, closing duplicates included.
func Vertices(g Geometry) []Coord {
	switch t := g.(type) {
	case Point:
		return []Coord{t.Coord}
	case Polygon:
		var out []Coord
		for _, r := range t.Rings {
			out = append(out, r...)
		}
		return out
	case MultiPolygon:
		var out []Coord
		for _, p := range t.Polygons {
			out = append(out, Vertices(p)...)
		}
		return out
	default:
		return nil
	}
}

// Feature is a geometry plus its identifier and opaque properties.
type Feature struct {
	ID         string         `json:"id"`
	Geometry   Geometry       `json:"-"`
	Properties map[string]any `json:"properties,omitempty"`
}

// FeatureSet is an ordered list of features and the property key their ids were read from.
type FeatureSet struct {
	IDKey    string
	Features []Feature
}
