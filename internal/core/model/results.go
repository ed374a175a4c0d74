package model

import h3 "github.com/uber/h3-go/v4"

// Cells is a sorted, de-duplicated set of H3 cells at one resolution.
type Cells []h3.Cell

// Strings renders the cells as H3 hex identifiers.
func (c Cells) Strings() []string {
	out := make([]string, len(c))
	for i, cell := range c {
		out[i] = cell.String()
	}
	return out
}

type CrosswalkEntry struct {
	SourceID string  `json:"source_id"`
	TargetID string  `json:"target_id"`
	CellID   string  `json:"cell_id"`
	Weight   float64 `json:"weight"`
}

// PairWeight aggregates the entries of one (source, target) pair.
type PairWeight struct {
	SourceID    string  `json:"source_id"`
	TargetID    string  `json:"target_id"`
	Weight      float64 `json:"weight"`
	// Overlap is |S∩T|/|S|, the share of the source's cells this target
	// holds, counted in full even where other targets hold the same cells.
	Overlap     float64 `json:"overlap"`
	SharedCells int     `json:"shared_cells"`
}

// QualityMetrics values are fractions in [0,1].
type QualityMetrics struct {
	Coverage   float64 `json:"coverage"`
	Accuracy   float64 `json:"accuracy"`
	Resolution int     `json:"resolution"`
}

type Crosswalk struct {
	Entries []CrosswalkEntry `json:"entries"`
	Pairs   []PairWeight     `json:"pairs"`
	Quality QualityMetrics   `json:"quality"`
	// SourceCells is the total number of indexed cells across all sources.
	SourceCells int `json:"source_cells"`
	// Skipped lists source ids whose cell set was empty.
	Skipped []string `json:"skipped,omitempty"`
}

type CompactnessResult struct {
	PolsbyPopper    float64 `json:"polsby_popper"`
	Reock           float64 `json:"reock"`
	ConvexHullRatio float64 `json:"convex_hull_ratio"`
	Area            float64 `json:"area"`
	Perimeter       float64 `json:"perimeter"`
}

type DistrictCompactness struct {
	ID string `json:"id"`
	CompactnessResult
}
