// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chart renders aggregate snapshots as bar charts with
// standard-deviation error bars, one PNG per measured dimension.
package chart

import (
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"vmbench/aggregate"
)

// A dimension selects one statistic pair out of a Metric.
type dimension struct {
	name  string // output file stem
	title string
	unit  string
	get   func(aggregate.Metric) (mean, sigma float64)
}

var dimensions = []dimension{
	{"iops", "Disk operation rate", "IOPS", func(m aggregate.Metric) (float64, float64) {
		return m.IOPSMean, m.IOPSStdev
	}},
	{"bandwidth", "Disk bandwidth", "MiB/s", func(m aggregate.Metric) (float64, float64) {
		return m.BandwidthMean, m.BandwidthStdev
	}},
	{"latency", "Disk latency", "ms", func(m aggregate.Metric) (float64, float64) {
		return m.LatencyMean, m.LatencyStdev
	}},
}

// Render writes one PNG per dimension into dir (creating it if
// needed): a bar per test key, bar height the mean, error bars ±σ.
// When the snapshot carries OLTP statistics an additional tps.png is
// written.
func Render(snap *aggregate.Snapshot, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	keys := snap.Keys()
	if len(keys) > 0 {
		for _, d := range dimensions {
			means := make([]float64, len(keys))
			sigmas := make([]float64, len(keys))
			for i, key := range keys {
				means[i], sigmas[i] = d.get(snap.Metrics[key])
			}
			path := filepath.Join(dir, d.name+".png")
			if err := barChart(path, d.title, d.unit, keys, means, sigmas); err != nil {
				return err
			}
		}
	}

	if snap.Oltp != nil {
		path := filepath.Join(dir, "tps.png")
		if err := barChart(path, "OLTP transaction rate", "TPS",
			[]string{"pgbench"}, []float64{snap.Oltp.TPSMean}, []float64{snap.Oltp.TPSStdev}); err != nil {
			return err
		}
	}
	return nil
}

// errPoints feeds YErrorBars: bar centers on X with ±σ on Y.
type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

func barChart(path, title, unit string, names []string, means, sigmas []float64) error {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = unit
	p.X.Tick.Label.Rotation = -0.5
	p.X.Tick.Label.XAlign = -0.8

	bars, err := plotter.NewBarChart(plotter.Values(means), vg.Points(30))
	if err != nil {
		return errors.Wrap(err, "building bar chart")
	}
	bars.Color = color.RGBA{R: 0x41, G: 0x69, B: 0xe1, A: 0xff}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)

	pts := errPoints{
		XYs:     make(plotter.XYs, len(means)),
		YErrors: make(plotter.YErrors, len(means)),
	}
	for i := range means {
		pts.XYs[i].X = float64(i)
		pts.XYs[i].Y = means[i]
		pts.YErrors[i].Low = sigmas[i]
		pts.YErrors[i].High = sigmas[i]
	}
	errBars, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return errors.Wrap(err, "building error bars")
	}
	errBars.LineStyle.Width = vg.Points(1)
	p.Add(errBars)

	if err := p.Save(24*vg.Centimeter, 16*vg.Centimeter, path); err != nil {
		return errors.Wrapf(err, "saving %s", path)
	}
	return nil
}
