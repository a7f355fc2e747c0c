// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Vmbench aggregates VM benchmark transcripts into mean/σ statistics.
//
// Usage:
//
//	vmbench aggregate [--rules rules.yml] [--db snapshots.db] [--charts] DIR...
//	vmbench chart --in aggregated_report.json --out charts/
//
// Each DIR is one test-configuration results directory containing
// results_sheet_*.txt transcripts (one per iteration × VM). For each
// directory, aggregate writes aggregated_report.txt and
// aggregated_report.json next to the transcripts, prints the summary
// table, and optionally renders charts and records the snapshot in a
// SQLite database. A failing directory is reported and skipped; the
// command fails only when every directory failed.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vmbench/aggregate"
	"vmbench/chart"
	"vmbench/report"
	"vmbench/store"
	"vmbench/validate"
)

func main() {
	root := &cobra.Command{
		Use:           "vmbench",
		Short:         "Aggregate and visualize VM benchmark transcripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	}

	root.AddCommand(aggregateCommand(), chartCommand())

	if err := root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func aggregateCommand() *cobra.Command {
	var (
		rulesPath string
		dbPath    string
		charts    bool
	)
	cmd := &cobra.Command{
		Use:   "aggregate DIR...",
		Short: "Aggregate the transcripts under each results directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := validate.Default()
			if rulesPath != "" {
				var err error
				if rules, err = validate.Load(rulesPath); err != nil {
					return err
				}
			}

			var db *store.DB
			if dbPath != "" {
				var err error
				if db, err = store.Open(dbPath); err != nil {
					return err
				}
				defer db.Close()
			}

			ok := 0
			for _, dir := range args {
				if err := aggregateDir(dir, rules, db, charts); err != nil {
					logrus.WithError(err).Errorf("directory %s failed", dir)
					continue
				}
				ok++
			}
			logrus.Infof("%d/%d directories aggregated", ok, len(args))
			if ok == 0 {
				return errors.New("all directories failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "YAML file overriding the plausibility rules")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to record snapshots in")
	cmd.Flags().BoolVar(&charts, "charts", false, "render PNG charts into DIR/charts")
	return cmd
}

func aggregateDir(dir string, rules *validate.Rules, db *store.DB, charts bool) error {
	snap, err := aggregate.Dir(dir, rules)
	if err != nil {
		return err
	}

	report.Text(os.Stdout, snap)

	txt, err := os.Create(filepath.Join(dir, "aggregated_report.txt"))
	if err != nil {
		return errors.Wrap(err, "creating text report")
	}
	report.Text(txt, snap)
	if err := txt.Close(); err != nil {
		return errors.Wrap(err, "writing text report")
	}

	if err := report.WriteJSON(filepath.Join(dir, "aggregated_report.json"), snap); err != nil {
		return err
	}

	if charts {
		if err := chart.Render(snap, filepath.Join(dir, "charts")); err != nil {
			return err
		}
	}

	if db != nil {
		// The database is an extra record, not part of the hand-off
		// artifacts; failing to write it should not fail the
		// directory.
		if _, err := db.SaveSnapshot(filepath.Clean(dir), snap); err != nil {
			logrus.WithError(err).Warnf("could not record snapshot for %s", dir)
		}
	}
	return nil
}

func chartCommand() *cobra.Command {
	var (
		in  string
		out string
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render charts from a previously written snapshot JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := report.ReadJSON(in)
			if err != nil {
				return err
			}
			if err := chart.Render(snap, out); err != nil {
				return err
			}
			fmt.Printf("charts written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "aggregated_report.json", "snapshot JSON to read")
	cmd.Flags().StringVar(&out, "out", "charts", "output directory for PNGs")
	return cmd
}
