package compactness

import "github.com/mohammed-shakir/geoalign/internal/core/model"

// Stat is the plan-wide view of one measure.
type Stat struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	MinID string  `json:"min_id,omitempty"`
}

type Summary struct {
	Districts       int  `json:"districts"`
	PolsbyPopper    Stat `json:"polsby_popper"`
	Reock           Stat `json:"reock"`
	ConvexHullRatio Stat `json:"convex_hull_ratio"`
}

// Summarize reduces per-district scores to a mean and the least compact
// district per measure.
func Summarize(results []model.DistrictCompactness) Summary {
	s := Summary{Districts: len(results)}
	if len(results) == 0 {
		return s
	}
	pp := newAcc()
	re := newAcc()
	ch := newAcc()
	for _, r := range results {
		pp.add(r.ID, r.PolsbyPopper)
		re.add(r.ID, r.Reock)
		ch.add(r.ID, r.ConvexHullRatio)
	}
	n := float64(len(results))
	s.PolsbyPopper = pp.stat(n)
	s.Reock = re.stat(n)
	s.ConvexHullRatio = ch.stat(n)
	return s
}

type acc struct {
	sum   float64
	min   float64
	minID string
	seen  bool
}

func newAcc() *acc { return &acc{} }

func (a *acc) add(id string, v float64) {
	a.sum += v
	if !a.seen || v < a.min {
		a.min, a.minID, a.seen = v, id, true
	}
}

func (a *acc) stat(n float64) Stat {
	return Stat{Mean: a.sum / n, Min: a.min, MinID: a.minID}
}
