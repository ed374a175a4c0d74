package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mohammed-shakir/geoalign/internal/compactness"
	"github.com/mohammed-shakir/geoalign/internal/core/model"
)

// writerSink writes results to w as JSON, or CSV for crosswalk pairs.
type writerSink struct {
	w        io.Writer
	format   string
	warnings func(*model.Crosswalk) []string
	summary  bool
}

type crosswalkDoc struct {
	CaseID   string           `json:"case_id,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	Result   *model.Crosswalk `json:"crosswalk"`
}

type planDoc struct {
	CaseID    string                      `json:"case_id,omitempty"`
	Districts []model.DistrictCompactness `json:"districts"`
	Summary   *compactness.Summary        `json:"summary,omitempty"`
}

func (s *writerSink) SaveCrosswalk(_ context.Context, caseID string, cw *model.Crosswalk) error {
	if s.format == "csv" {
		return writePairsCSV(s.w, cw.Pairs)
	}
	doc := crosswalkDoc{CaseID: caseID, Result: cw}
	if s.warnings != nil {
		doc.Warnings = s.warnings(cw)
	}
	return writeJSON(s.w, doc)
}

func (s *writerSink) SaveCompactness(_ context.Context, caseID string, rs []model.DistrictCompactness) error {
	if s.format == "csv" {
		return writeCompactnessCSV(s.w, rs)
	}
	doc := planDoc{CaseID: caseID, Districts: rs}
	if s.summary {
		sum := compactness.Summarize(rs)
		doc.Summary = &sum
	}
	return writeJSON(s.w, doc)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writePairsCSV(w io.Writer, pairs []model.PairWeight) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"source_id", "target_id", "weight", "overlap", "shared_cells"})
	for _, p := range pairs {
		_ = cw.Write([]string{
			p.SourceID,
			p.TargetID,
			strconv.FormatFloat(p.Weight, 'f', -1, 64),
			strconv.FormatFloat(p.Overlap, 'f', -1, 64),
			strconv.Itoa(p.SharedCells),
		})
	}
	cw.Flush()
	return cw.Error()
}

func writeCompactnessCSV(w io.Writer, rs []model.DistrictCompactness) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "polsby_popper", "reock", "convex_hull_ratio", "area_m2", "perimeter_m"})
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for _, r := range rs {
		_ = cw.Write([]string{r.ID, f(r.PolsbyPopper), f(r.Reock), f(r.ConvexHullRatio), f(r.Area), f(r.Perimeter)})
	}
	cw.Flush()
	return cw.Error()
}

// openOutput returns stdout when path is empty or "-". A file is written
// beside path and renamed over it only when finish is passed a nil error.
func openOutput(path string, stdout io.Writer) (w io.Writer, finish func(error) error, err error) {
	if path == "" || path == "-" {
		return stdout, func(error) error { return nil }, nil
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, nil, fmt.Errorf("open output: %w", err)
	}
	finish = func(runErr error) error {
		cerr := f.Close()
		if runErr != nil || cerr != nil {
			_ = os.Remove(f.Name())
			if cerr != nil {
				return fmt.Errorf("close output: %w", cerr)
			}
			return nil
		}
		if err := os.Rename(f.Name(), path); err != nil {
			_ = os.Remove(f.Name())
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}
	return f, finish, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return b, nil
}

func checkFormat(format string) error {
	switch format {
	case "json", "csv":
		return nil
	default:
		return fmt.Errorf("unknown format %q (want json or csv)", format)
	}
}
