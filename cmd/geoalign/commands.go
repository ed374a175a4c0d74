package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/geoalign/internal/core/server"
	"github.com/mohammed-shakir/geoalign/internal/engine"
)

func newCrosswalkCommand() *cobra.Command {
	var (
		source, target, sourceKey, targetKey string
		caseID, output, format               string
		res                                  int
	)
	cmd := &cobra.Command{
		Use:   "crosswalk",
		Short: "Apportion source identifiers onto target identifiers",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a := appFrom(cmd)
			if err := checkFormat(format); err != nil {
				return err
			}
			if !cmd.Flags().Changed("res") {
				res = a.cfg.H3Res
			}
			src, err := readInput(source)
			if err != nil {
				return err
			}
			tgt, err := readInput(target)
			if err != nil {
				return err
			}
			w, finish, err := openOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, finish(err)) }()

			sink := &writerSink{w: w, format: format}
			e := a.engine(sink)
			sink.warnings = e.Warnings

			cw, err := e.Align(cmd.Context(), engine.AlignRequest{
				CaseID:      caseID,
				Source:      src,
				Target:      tgt,
				Resolution:  res,
				SourceIDKey: sourceKey,
				TargetIDKey: targetKey,
			})
			if err != nil {
				return err
			}
			for _, warn := range e.Warnings(cw) {
				fmt.Fprintln(a.stderr, "warning:", warn)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&source, "source", "", "source FeatureCollection (path or -)")
	f.StringVar(&target, "target", "", "target FeatureCollection (path or -)")
	f.StringVar(&sourceKey, "source-id", "", "source identifier property (default: feature id)")
	f.StringVar(&targetKey, "target-id", "", "target identifier property (default: feature id)")
	f.IntVar(&res, "res", 9, "H3 resolution (default H3_RES)")
	f.StringVar(&caseID, "case", "", "case id attached to the result")
	f.StringVarP(&output, "output", "o", "", "output file (default stdout)")
	f.StringVar(&format, "format", "json", "json or csv (pairs only)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newCompactnessCommand() *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "compactness",
		Short: "Score one GeoJSON geometry or feature",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a := appFrom(cmd)
			raw, err := readInput(input)
			if err != nil {
				return err
			}
			r, err := a.engine(nil).Compactness(cmd.Context(), raw)
			if err != nil {
				return err
			}
			w, finish, err := openOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, finish(err)) }()
			return writeJSON(w, r)
		},
	}
	cmd.Flags().StringVar(&input, "input", "-", "geometry or feature (path or -)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newPlanCommand() *cobra.Command {
	var input, idKey, caseID, output, format string
	var summary bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Score every district of a plan FeatureCollection",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a := appFrom(cmd)
			if err := checkFormat(format); err != nil {
				return err
			}
			raw, err := readInput(input)
			if err != nil {
				return err
			}
			w, finish, err := openOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, finish(err)) }()

			e := a.engine(&writerSink{w: w, format: format, summary: summary})
			_, err = e.PlanCompactness(engine.WithCaseID(cmd.Context(), caseID), raw, idKey)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&input, "input", "-", "plan FeatureCollection (path or -)")
	f.StringVar(&idKey, "id-key", "", "district identifier property (default: feature id)")
	f.StringVar(&caseID, "case", "", "case id attached to the result")
	f.StringVarP(&output, "output", "o", "", "output file (default stdout)")
	f.StringVar(&format, "format", "json", "json or csv")
	f.BoolVar(&summary, "summary", false, "include plan-wide mean and minimum per measure")
	return cmd
}

func newServeMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve /metrics, /healthz and /progress until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			h := server.Router(a.log, a.metricsProvider().Handler(), a.progress)
			return server.Run(cmd.Context(), a.cfg.Metrics.Addr, a.log, h)
		},
	}
}
