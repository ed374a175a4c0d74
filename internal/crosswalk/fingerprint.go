package crosswalk

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/geoalign/internal/core/model"
)

// Fingerprint hashes the exact coordinates of g together with res.
func Fingerprint(g model.Geometry, res int) uint64 {
	d := xxhash.New()
	var buf [8]byte

	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	writeCoord := func(c model.Coord) {
		writeU64(math.Float64bits(c.Lon))
		writeU64(math.Float64bits(c.Lat))
	}
	writeRings := func(rings []model.Ring) {
		writeU64(uint64(len(rings)))
		for _, r := range rings {
			writeU64(uint64(len(r)))
			for _, c := range r {
				writeCoord(c)
			}
		}
	}

	writeU64(uint64(res))
	switch t := g.(type) {
	case model.Point:
		writeU64(uint64(model.KindPoint))
		writeCoord(t.Coord)
	case model.Polygon:
		writeU64(uint64(model.KindPolygon))
		writeRings(t.Rings)
	case model.MultiPolygon:
		writeU64(uint64(model.KindMultiPolygon))
		writeU64(uint64(len(t.Polygons)))
		for _, p := range t.Polygons {
			writeRings(p.Rings)
		}
	}
	return d.Sum64()
}
