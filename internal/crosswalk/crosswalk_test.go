package crosswalk

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/geoalign/internal/core/geoerr"
	"github.com/mohammed-shakir/geoalign/internal/core/model"
	"github.com/mohammed-shakir/geoalign/internal/kernel"
	h3mapper "github.com/mohammed-shakir/geoalign/internal/mapper/h3"
)

// fakeMapper returns preset cells keyed by a point's longitude.
type fakeMapper struct {
	cells map[float64]model.Cells
	calls atomic.Int64
	err   error
}

func (f *fakeMapper) CellsForBBox(model.BBox, int) (model.Cells, error) { return nil, nil }

func (f *fakeMapper) CellsCovering(g model.Geometry, _ int) (model.Cells, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	p, ok := g.(model.Point)
	if !ok {
		return nil, errors.New("fake mapper wants points")
	}
	return f.cells[p.Lon], nil
}

func pt(key float64) model.Point { return model.Point{Coord: model.Coord{Lon: key}} }

func set(ids []string, keys ...float64) model.FeatureSet {
	fs := model.FeatureSet{}
	for i, id := range ids {
		fs.Features = append(fs.Features, model.Feature{ID: id, Geometry: pt(keys[i])})
	}
	return fs
}

func cells(ids ...int64) model.Cells {
	out := make(model.Cells, len(ids))
	for i, id := range ids {
		out[i] = h3.Cell(id)
	}
	return out
}

func square(c model.Coord, side float64) model.Polygon {
	f := kernel.NewFrame(c)
	h := side / 2
	ring := model.Ring{f.Inverse(-h, -h), f.Inverse(h, -h), f.Inverse(h, h), f.Inverse(-h, h)}
	ring = append(ring, ring[0])
	return model.Polygon{Rings: []model.Ring{ring}}
}

func sourceSums(cw *model.Crosswalk) map[string]float64 {
	out := map[string]float64{}
	for _, e := range cw.Entries {
		out[e.SourceID] += e.Weight
	}
	return out
}

func TestBuild_IdenticalSquaresAlignOneToOne(t *testing.T) {
	sq := square(model.Coord{Lon: 18.0686, Lat: 59.3293}, 1000)
	src := model.FeatureSet{Features: []model.Feature{{ID: "A", Geometry: sq}}}
	tgt := model.FeatureSet{Features: []model.Feature{{ID: "X", Geometry: sq}}}

	cw, err := New(h3mapper.New(), nil, Options{}).Build(context.Background(), src, tgt, 9)
	require.NoError(t, err)

	require.Len(t, cw.Pairs, 1)
	assert.Equal(t, "A", cw.Pairs[0].SourceID)
	assert.Equal(t, "X", cw.Pairs[0].TargetID)
	assert.InDelta(t, 1.0, cw.Pairs[0].Weight, 1e-6)
	assert.InDelta(t, 1.0, cw.Quality.Coverage, 1e-9)
	assert.InDelta(t, 1.0, cw.Quality.Accuracy, 1e-6)
	assert.Equal(t, 9, cw.Quality.Resolution)
	assert.Equal(t, cw.SourceCells, len(cw.Entries))
	assert.Empty(t, cw.Skipped)
}

func TestBuild_WeightsSumToOneUnderFullCoverage(t *testing.T) {
	m := &fakeMapper{cells: map[float64]model.Cells{
		1: cells(1, 2, 3, 4),
		2: cells(1, 2),
		3: cells(3, 4, 9),
	}}
	cw, err := New(m, nil, Options{}).Build(context.Background(),
		set([]string{"s"}, 1), set([]string{"t1", "t2"}, 2, 3), 9)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, sourceSums(cw)["s"], 1e-6)
	require.Len(t, cw.Pairs, 2)
	assert.InDelta(t, 0.5, cw.Pairs[0].Weight, 1e-12)
	assert.InDelta(t, 0.5, cw.Pairs[1].Weight, 1e-12)
	assert.Equal(t, cw.Pairs[0].Weight, cw.Pairs[0].Overlap)
	assert.Equal(t, 1.0, cw.Quality.Coverage)
}

func TestBuild_OverlappingTargetsShareCells(t *testing.T) {
	m := &fakeMapper{cells: map[float64]model.Cells{
		1: cells(1, 2, 3, 4),
		2: cells(1, 2),
		3: cells(2, 3),
	}}
	cw, err := New(m, nil, Options{}).Build(context.Background(),
		set([]string{"s"}, 1), set([]string{"t1", "t2"}, 2, 3), 9)
	require.NoError(t, err)

	want := []model.CrosswalkEntry{
		{SourceID: "s", TargetID: "t1", CellID: h3.Cell(1).String(), Weight: 0.25},
		{SourceID: "s", TargetID: "t1", CellID: h3.Cell(2).String(), Weight: 0.125},
		{SourceID: "s", TargetID: "t2", CellID: h3.Cell(2).String(), Weight: 0.125},
		{SourceID: "s", TargetID: "t2", CellID: h3.Cell(3).String(), Weight: 0.25},
	}
	assert.Equal(t, want, cw.Entries)

	require.Len(t, cw.Pairs, 2)
	assert.Equal(t, 2, cw.Pairs[0].SharedCells)
	assert.InDelta(t, 0.375, cw.Pairs[0].Weight, 1e-12)
	assert.InDelta(t, 0.375, cw.Pairs[1].Weight, 1e-12)
	assert.InDelta(t, 0.5, cw.Pairs[0].Overlap, 1e-12)
	assert.InDelta(t, 0.5, cw.Pairs[1].Overlap, 1e-12)

	assert.Equal(t, 4, cw.SourceCells)
	assert.InDelta(t, 0.75, cw.Quality.Coverage, 1e-12)
	assert.InDelta(t, 0.375, cw.Quality.Accuracy, 1e-12)
}

func TestBuild_DegenerateSourceIsSkipped(t *testing.T) {
	m := &fakeMapper{cells: map[float64]model.Cells{
		1: nil,
		2: cells(5),
		3: cells(5),
	}}
	cw, err := New(m, nil, Options{}).Build(context.Background(),
		set([]string{"flat", "ok"}, 1, 2), set([]string{"t"}, 3), 9)
	require.NoError(t, err)

	assert.Equal(t, []string{"flat"}, cw.Skipped)
	require.Len(t, cw.Pairs, 1)
	assert.Equal(t, "ok", cw.Pairs[0].SourceID)
	assert.Equal(t, 1, cw.SourceCells)
	assert.Equal(t, 1.0, cw.Quality.Coverage)
}

func TestBuild_FeaturesSharingAnIDAreMerged(t *testing.T) {
	m := &fakeMapper{cells: map[float64]model.Cells{
		1: cells(1, 2),
		2: cells(2, 3),
		3: cells(1, 2, 3),
	}}
	cw, err := New(m, nil, Options{}).Build(context.Background(),
		set([]string{"a", "a"}, 1, 2), set([]string{"t"}, 3), 9)
	require.NoError(t, err)

	require.Len(t, cw.Pairs, 1)
	assert.Equal(t, 3, cw.Pairs[0].SharedCells)
	assert.InDelta(t, 1.0, cw.Pairs[0].Weight, 1e-12)
	assert.Equal(t, 3, cw.SourceCells)
}

func TestBuild_NoTargetsMeansZeroCoverage(t *testing.T) {
	m := &fakeMapper{cells: map[float64]model.Cells{1: cells(1, 2)}}
	cw, err := New(m, nil, Options{}).Build(context.Background(),
		set([]string{"s"}, 1), model.FeatureSet{}, 9)
	require.NoError(t, err)
	assert.Empty(t, cw.Entries)
	assert.Zero(t, cw.Quality.Coverage)
	assert.Zero(t, cw.Quality.Accuracy)
}

func TestBuild_InvalidResolution(t *testing.T) {
	_, err := New(&fakeMapper{}, nil, Options{}).Build(context.Background(), model.FeatureSet{}, model.FeatureSet{}, 16)
	var re *geoerr.InvalidResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 16, re.Resolution)
	assert.ErrorIs(t, err, geoerr.ErrInvalidResolution)
}

func TestBuild_CanceledContextReturnsNothing(t *testing.T) {
	m := &fakeMapper{cells: map[float64]model.Cells{1: cells(1), 2: cells(1)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cw, err := New(m, nil, Options{}).Build(ctx, set([]string{"s"}, 1), set([]string{"t"}, 2), 9)
	require.Error(t, err)
	assert.Nil(t, cw)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, geoerr.CodeCanceled, geoerr.CodeOf(err))
}

func TestBuild_MapperErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	m := &fakeMapper{err: boom}
	cw, err := New(m, nil, Options{}).Build(context.Background(), set([]string{"s"}, 1), model.FeatureSet{}, 9)
	assert.Nil(t, cw)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, geoerr.ErrAlignmentComputation)
	assert.Equal(t, geoerr.CodeAlignment, geoerr.CodeOf(err))

	var ace *geoerr.AlignmentComputationError
	require.ErrorAs(t, err, &ace)
	assert.Equal(t, "s", ace.SourceID)
	assert.Equal(t, "index source", ace.Op)
}

func TestBuild_TargetIndexErrorIsTyped(t *testing.T) {
	boom := errors.New("polyfill failed")
	m := &fakeMapper{err: boom}
	_, err := New(m, nil, Options{}).Build(context.Background(), model.FeatureSet{}, set([]string{"t1"}, 1), 9)
	require.ErrorIs(t, err, geoerr.ErrAlignmentComputation)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `index target feature "t1"`)
}

func TestBuild_ClassifiedIndexErrorPassesThrough(t *testing.T) {
	m := &fakeMapper{err: geoerr.InvalidGeometry("rings[0]", "too few points")}
	_, err := New(m, nil, Options{}).Build(context.Background(), set([]string{"s"}, 1), model.FeatureSet{}, 9)
	require.ErrorIs(t, err, geoerr.ErrInvalidGeometry)
	assert.NotErrorIs(t, err, geoerr.ErrAlignmentComputation)
	assert.Contains(t, err.Error(), `index source feature "s"`)
}

func TestBuild_MemoIndexesIdenticalGeometryOnce(t *testing.T) {
	m := &fakeMapper{cells: map[float64]model.Cells{1: cells(1, 2)}}
	b := New(m, nil, Options{Workers: 1, MemoSize: 16})
	cw, err := b.Build(context.Background(), set([]string{"s"}, 1), set([]string{"t"}, 1), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.calls.Load())
	assert.InDelta(t, 1.0, cw.Pairs[0].Weight, 1e-12)

	m.calls.Store(0)
	_, err = New(m, nil, Options{Workers: 1}).Build(context.Background(), set([]string{"s"}, 1), set([]string{"t"}, 1), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.calls.Load())
}

func TestBuild_ReportsProgress(t *testing.T) {
	m := &fakeMapper{cells: map[float64]model.Cells{1: cells(1), 2: cells(1), 3: cells(1)}}
	var calls, last atomic.Int64
	b := New(m, nil, Options{Progress: func(done, total int) {
		calls.Add(1)
		if done == total {
			last.Store(int64(done))
		}
	}})
	_, err := b.Build(context.Background(), set([]string{"a", "b"}, 1, 2), set([]string{"t"}, 3), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, int64(3), last.Load())
}

func TestBuild_WeightsStayFiniteAndBounded(t *testing.T) {
	m := &fakeMapper{cells: map[float64]model.Cells{
		1: cells(1, 2, 3),
		2: cells(1, 2, 3),
		3: cells(1, 2, 3),
		4: cells(2),
	}}
	cw, err := New(m, nil, Options{}).Build(context.Background(),
		set([]string{"s"}, 1), set([]string{"t1", "t2", "t3"}, 2, 3, 4), 9)
	require.NoError(t, err)
	for _, e := range cw.Entries {
		assert.False(t, math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0))
		assert.GreaterOrEqual(t, e.Weight, 0.0)
		assert.LessOrEqual(t, e.Weight, 1.0)
	}
	assert.InDelta(t, 1.0, sourceSums(cw)["s"], 1e-9)
}

func TestFingerprint(t *testing.T) {
	a := square(model.Coord{Lon: 18, Lat: 59}, 100)
	b := square(model.Coord{Lon: 18, Lat: 59}, 100)
	c := square(model.Coord{Lon: 18, Lat: 59}, 101)

	assert.Equal(t, Fingerprint(a, 9), Fingerprint(b, 9))
	assert.NotEqual(t, Fingerprint(a, 9), Fingerprint(a, 10))
	assert.NotEqual(t, Fingerprint(a, 9), Fingerprint(c, 9))
	assert.NotEqual(t, Fingerprint(a, 9), Fingerprint(model.MultiPolygon{Polygons: []model.Polygon{a}}, 9))
}
