package kernel

import (
	"math"
	"math/rand/v2"

	"github.com/mohammed-shakir/geoalign/internal/core/model"
)

// Circle is a circle in lon/lat with its radius in meters.
type Circle struct {
	Center model.Coord
	Radius float64
}

// Area returns the circle's area in square meters.
func (c Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

type vec struct{ x, y float64 }

type disc struct {
	c vec
	r float64
}

func (d disc) contains(p vec) bool {
	return math.Hypot(p.x-d.c.x, p.y-d.c.y) <= d.r*(1+1e-12)+1e-9
}

// MinimumEnclosingCircle returns the smallest circle containing every vertex
// of g, found with Welzl's algorithm over the projected vertex set.
func MinimumEnclosingCircle(g model.Geometry) (Circle, error) {
	if g == nil {
		return Circle{}, ErrEmptyResult
	}
	f := FrameFor(g)
	pts := projectedVertices(g, f)
	if len(pts) == 0 {
		return Circle{}, ErrEmptyResult
	}
	d := welzl(pts)
	return Circle{Center: f.Inverse(d.c.x, d.c.y), Radius: d.r}, nil
}

// enclosingRadius is the minimum enclosing circle radius of g in meters,
// measured in frame f.
func enclosingRadius(g model.Geometry, f Frame) float64 {
	pts := projectedVertices(g, f)
	if len(pts) == 0 {
		return 0
	}
	return welzl(pts).r
}

func projectedVertices(g model.Geometry, f Frame) []vec {
	vs := model.Vertices(g)
	seen := make(map[model.Coord]struct{}, len(vs))
	out := make([]vec, 0, len(vs))
	for _, c := range vs {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		x, y := f.Forward(c)
		out = append(out, vec{x, y})
	}
	return out
}

// welzl is the iterative form of Welzl's algorithm; expected O(n) after a
// shuffle. The shuffle is seeded so results are reproducible.
func welzl(in []vec) disc {
	pts := make([]vec, len(in))
	copy(pts, in)
	rng := rand.New(rand.NewPCG(0x9e3779b97f4a7c15, uint64(len(pts))))
	rng.Shuffle(len(pts), func(i, j int) { pts[i], pts[j] = pts[j], pts[i] })

	d := disc{c: pts[0]}
	for i := 1; i < len(pts); i++ {
		if d.contains(pts[i]) {
			continue
		}
		d = disc{c: pts[i]}
		for j := 0; j < i; j++ {
			if d.contains(pts[j]) {
				continue
			}
			d = diameter(pts[i], pts[j])
			for k := 0; k < j; k++ {
				if d.contains(pts[k]) {
					continue
				}
				d = circumscribe(pts[i], pts[j], pts[k])
			}
		}
	}
	return d
}

func diameter(a, b vec) disc {
	c := vec{(a.x + b.x) / 2, (a.y + b.y) / 2}
	return disc{c: c, r: math.Hypot(a.x-b.x, a.y-b.y) / 2}
}

// circumscribe returns the circumcircle of a, b, c; collinear triples fall
// back to the circle spanning the two farthest points.
func circumscribe(a, b, c vec) disc {
	bx, by := b.x-a.x, b.y-a.y
	cx, cy := c.x-a.x, c.y-a.y
	den := 2 * (bx*cy - by*cx)
	scale := math.Max(math.Hypot(bx, by), math.Hypot(cx, cy))
	if math.Abs(den) <= 1e-12*scale*scale {
		best := diameter(a, b)
		for _, cand := range []disc{diameter(a, c), diameter(b, c)} {
			if cand.r > best.r {
				best = cand
			}
		}
		return best
	}
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (cy*b2 - by*c2) / den
	uy := (bx*c2 - cx*b2) / den
	return disc{c: vec{a.x + ux, a.y + uy}, r: math.Hypot(ux, uy)}
}
