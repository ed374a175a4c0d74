// Package ingest normalises GeoJSON input into the engine's geometry model
// and rejects malformed shapes.
package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/geoalign/internal/core/geoerr"
	"github.com/mohammed-shakir/geoalign/internal/core/model"
)

// MinRingPoints is the smallest closed ring: a triangle plus its closing vertex.
const MinRingPoints = 4

// Validate decodes a GeoJSON geometry (or a Feature wrapping one) and
// returns it as a validated model geometry.
func Validate(raw []byte) (model.Geometry, error) {
	var hdr struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return nil, geoerr.InvalidGeometry("", "parse geojson: %v", err)
	}

	var og orb.Geometry
	switch strings.TrimSpace(hdr.Type) {
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, geoerr.InvalidGeometry("", "parse feature: %v", err)
		}
		og = f.Geometry
	case "FeatureCollection":
		return nil, geoerr.InvalidGeometry("type", "expected a geometry, got FeatureCollection")
	default:
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, geoerr.InvalidGeometry("", "parse geometry: %v", err)
		}
		og = g.Geometry()
	}
	return FromOrb(og)
}

// FromOrb converts an orb geometry into the model and validates it.
func FromOrb(og orb.Geometry) (model.Geometry, error) {
	var g model.Geometry
	switch t := og.(type) {
	case orb.Point:
		g = model.Point{Coord: coord(t)}
	case orb.Polygon:
		g = polygon(t)
	case orb.MultiPolygon:
		mp := model.MultiPolygon{Polygons: make([]model.Polygon, 0, len(t))}
		for _, p := range t {
			mp.Polygons = append(mp.Polygons, polygon(p))
		}
		g = mp
	case nil:
		return nil, geoerr.InvalidGeometry("", "geometry is null")
	default:
		return nil, geoerr.InvalidGeometry("type", "unsupported geometry type %s", og.GeoJSONType())
	}
	if err := ValidateGeometry(g); err != nil {
		return nil, err
	}
	return g, nil
}

func coord(p orb.Point) model.Coord {
	return model.Coord{Lon: p.Lon(), Lat: p.Lat()}
}

func polygon(p orb.Polygon) model.Polygon {
	out := model.Polygon{Rings: make([]model.Ring, 0, len(p))}
	for _, r := range p {
		ring := make(model.Ring, len(r))
		for i, pt := range r {
			ring[i] = coord(pt)
		}
		out.Rings = append(out.Rings, ring)
	}
	return out
}

// ValidateGeometry checks the structural invariants of g. Zero-area shapes
// are accepted.
func ValidateGeometry(g model.Geometry) error {
	switch t := g.(type) {
	case model.Point:
		return validateCoord("coordinates", t.Coord)
	case model.Polygon:
		return validatePolygon("", t)
	case model.MultiPolygon:
		if len(t.Polygons) == 0 {
			return geoerr.InvalidGeometry("polygons", "multipolygon is empty")
		}
		for i, p := range t.Polygons {
			if err := validatePolygon(fmt.Sprintf("polygons[%d].", i), p); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return geoerr.InvalidGeometry("", "geometry is null")
	default:
		return geoerr.InvalidGeometry("type", "unsupported geometry %T", g)
	}
}

func validatePolygon(prefix string, p model.Polygon) error {
	if len(p.Rings) == 0 {
		return geoerr.InvalidGeometry(prefix+"rings", "polygon has no rings")
	}
	for i, r := range p.Rings {
		path := fmt.Sprintf("%srings[%d]", prefix, i)
		if len(r) < MinRingPoints {
			return geoerr.InvalidGeometry(path, "ring has %d points (need >= %d)", len(r), MinRingPoints)
		}
		for j, c := range r {
			if err := validateCoord(fmt.Sprintf("%s[%d]", path, j), c); err != nil {
				return err
			}
		}
		if !r.Closed() {
			return geoerr.InvalidGeometry(path, "ring is not closed")
		}
	}
	return nil
}

func validateCoord(path string, c model.Coord) error {
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) {
		return geoerr.InvalidGeometry(path, "coordinate is not finite")
	}
	if c.Lon < -180 || c.Lon > 180 {
		return geoerr.InvalidGeometry(path, "longitude %v outside [-180,180]", c.Lon)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return geoerr.InvalidGeometry(path, "latitude %v outside [-90,90]", c.Lat)
	}
	return nil
}

// FeatureSet decodes a FeatureCollection and validates every feature. Ids
// are read from properties[idKey], or from the feature id when idKey is empty.
func FeatureSet(raw []byte, idKey string) (model.FeatureSet, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return model.FeatureSet{}, geoerr.InvalidGeometry("", "parse feature collection: %v", err)
	}

	out := model.FeatureSet{
		IDKey:    idKey,
		Features: make([]model.Feature, 0, len(fc.Features)),
	}
	for i, f := range fc.Features {
		id, err := featureID(f, idKey)
		if err != nil {
			return model.FeatureSet{}, fmt.Errorf("feature %d: %w", i, err)
		}
		g, err := FromOrb(f.Geometry)
		if err != nil {
			return model.FeatureSet{}, fmt.Errorf("feature %d (%s): %w", i, id, err)
		}
		out.Features = append(out.Features, model.Feature{
			ID:         id,
			Geometry:   g,
			Properties: map[string]any(f.Properties),
		})
	}
	return out, nil
}

func featureID(f *geojson.Feature, idKey string) (string, error) {
	var v any
	if idKey == "" {
		v = f.ID
	} else {
		v = f.Properties[idKey]
	}
	id, ok := formatID(v)
	if !ok {
		if idKey == "" {
			return "", fmt.Errorf("%w: feature id", geoerr.ErrMissingIdentifier)
		}
		return "", fmt.Errorf("%w: property %q", geoerr.ErrMissingIdentifier, idKey)
	}
	return id, nil
}

func formatID(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}
