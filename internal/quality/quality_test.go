package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mohammed-shakir/geoalign/internal/core/model"
)

func TestFromCrosswalk_Empty(t *testing.T) {
	m := FromCrosswalk(&model.Crosswalk{}, 9)
	assert.Equal(t, model.QualityMetrics{Resolution: 9}, m)

	m = FromCrosswalk(nil, 7)
	assert.Equal(t, 7, m.Resolution)
	assert.Zero(t, m.Coverage)
}

func TestFromCrosswalk_CoverageCountsDistinctSourceCells(t *testing.T) {
	cw := &model.Crosswalk{
		SourceCells: 4,
		Entries: []model.CrosswalkEntry{
			{SourceID: "s1", TargetID: "t1", CellID: "c1", Weight: 0.125},
			{SourceID: "s1", TargetID: "t2", CellID: "c1", Weight: 0.125},
			{SourceID: "s1", TargetID: "t1", CellID: "c2", Weight: 0.25},
		},
		Pairs: []model.PairWeight{
			{SourceID: "s1", TargetID: "t1", Weight: 0.375},
			{SourceID: "s1", TargetID: "t2", Weight: 0.125},
		},
	}
	m := FromCrosswalk(cw, 9)
	assert.InDelta(t, 0.5, m.Coverage, 1e-12)
	assert.InDelta(t, 0.25, m.Accuracy, 1e-12)
}

func TestFromCrosswalk_BoundedOnBadInput(t *testing.T) {
	cw := &model.Crosswalk{
		SourceCells: 1,
		Entries: []model.CrosswalkEntry{
			{SourceID: "a", CellID: "c1"},
			{SourceID: "b", CellID: "c1"},
		},
		Pairs: []model.PairWeight{{Weight: 3}},
	}
	m := FromCrosswalk(cw, 9)
	assert.LessOrEqual(t, m.Coverage, 1.0)
	assert.LessOrEqual(t, m.Accuracy, 1.0)
	assert.GreaterOrEqual(t, m.Coverage, 0.0)
}

func TestWarnings(t *testing.T) {
	th := DefaultThresholds()
	assert.Empty(t, Warnings(model.QualityMetrics{Coverage: 1, Accuracy: 1}, th))

	w := Warnings(model.QualityMetrics{Coverage: 0.42, Accuracy: 0.9}, th)
	assert.Equal(t, []string{"coverage below 80% (42%)"}, w)

	w = Warnings(model.QualityMetrics{Coverage: 0.1, Accuracy: 0.1}, th)
	assert.Len(t, w, 2)
}
