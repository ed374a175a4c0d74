// Package quality summarises how complete and confident a crosswalk is.
package quality

import (
	"fmt"
	"math"

	"github.com/mohammed-shakir/geoalign/internal/core/model"
)

// Thresholds below which Warnings reports a problem. Both are fractions.
type Thresholds struct {
	Coverage float64
	Accuracy float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Coverage: 0.8, Accuracy: 0.5}
}

// FromCrosswalk derives coverage and accuracy from a finished crosswalk.
// Coverage is the share of indexed source cells matched by at least one
// target; accuracy is the mean pair weight.
func FromCrosswalk(cw *model.Crosswalk, res int) model.QualityMetrics {
	out := model.QualityMetrics{Resolution: res}
	if cw == nil {
		return out
	}

	type key struct{ source, cell string }
	matched := make(map[key]struct{}, len(cw.Entries))
	for _, e := range cw.Entries {
		matched[key{e.SourceID, e.CellID}] = struct{}{}
	}
	if cw.SourceCells > 0 {
		out.Coverage = clamp01(float64(len(matched)) / float64(cw.SourceCells))
	}

	if len(cw.Pairs) > 0 {
		var sum float64
		for _, p := range cw.Pairs {
			sum += p.Weight
		}
		out.Accuracy = clamp01(sum / float64(len(cw.Pairs)))
	}
	return out
}

// Warnings lists caller-facing messages for metrics under the thresholds.
func Warnings(m model.QualityMetrics, th Thresholds) []string {
	var out []string
	if m.Coverage < th.Coverage {
		out = append(out, fmt.Sprintf("coverage below %s (%s)", Percent(th.Coverage), Percent(m.Coverage)))
	}
	if m.Accuracy < th.Accuracy {
		out = append(out, fmt.Sprintf("accuracy below %s (%s)", Percent(th.Accuracy), Percent(m.Accuracy)))
	}
	return out
}

// Percent renders a fraction for display; stored values stay in [0,1].
func Percent(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
