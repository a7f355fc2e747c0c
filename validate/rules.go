// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package validate rejects physically implausible disk-benchmark rows.
//
// Transcript labels are free text and may themselves contain numbers,
// so a drifting column layout can push a label fragment into a
// numeric field. The rules here are the safety net: absolute
// high-water marks that no real run reaches, the IOPS-to-bandwidth
// ratio implied by the benchmark's fixed block size, and per-class
// latency ceilings.
//
// All thresholds and label markers ship with defaults matching the
// historical run scripts and can be overridden from a YAML file,
// because the transcript generations disagree on the exact label
// wording and acceptable ranges.
package validate

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"vmbench/transcript"
)

// Rules holds the plausibility thresholds for one aggregation run.
type Rules struct {
	// MaxIOPS and MaxBandwidth are absolute high-water marks.
	// Values beyond them indicate column misalignment, not
	// measurements.
	MaxIOPS      float64 `yaml:"maxIOPS"`
	MaxBandwidth float64 `yaml:"maxBandwidth"`

	// BlockSizeKiB is the benchmark's fixed block size. Expected
	// bandwidth is IOPS × BlockSizeKiB (in KiB/s, which the run
	// scripts report scaled to MiB/s with the same factor).
	BlockSizeKiB float64 `yaml:"blockSizeKiB"`

	// RatioLow and RatioHigh bound observed bandwidth relative to
	// the expected value. WriteRatioLow replaces RatioLow for
	// write-classified labels: caching can complete writes without
	// a matching bandwidth cost.
	RatioLow      float64 `yaml:"ratioLow"`
	RatioHigh     float64 `yaml:"ratioHigh"`
	WriteRatioLow float64 `yaml:"writeRatioLow"`

	// LatencyCeilings maps a test class to its maximum plausible
	// latency in ms. A row's class is the longest ceiling key its
	// label starts with, except that a combined-workload label
	// always uses the mixed class. Unrecognized classes fall back
	// to DefaultLatencyCeiling.
	LatencyCeilings       map[string]float64 `yaml:"latencyCeilings"`
	DefaultLatencyCeiling float64            `yaml:"defaultLatencyCeiling"`

	// Markers classify labels; shared with key disambiguation.
	Markers transcript.Markers `yaml:"markers"`
}

// Default returns the rules matching the historical run scripts.
func Default() *Rules {
	return &Rules{
		MaxIOPS:       100000,
		MaxBandwidth:  10000,
		BlockSizeKiB:  4,
		RatioLow:      0.8,
		RatioHigh:     1.2,
		WriteRatioLow: 0.5,
		LatencyCeilings: map[string]float64{
			"Sequential Read":  50,
			"Sequential Write": 100,
			"Random Read":      100,
			"Random Write":     200,
			"Mixed RW":         200,
		},
		DefaultLatencyCeiling: 300,
		Markers:               DefaultMarkers(),
	}
}

// DefaultMarkers returns a copy of transcript.DefaultMarkers, so that
// a YAML override cannot alias the package-level slices.
func DefaultMarkers() transcript.Markers {
	return transcript.Markers{
		Mixed: append([]string(nil), transcript.DefaultMarkers.Mixed...),
		Read:  append([]string(nil), transcript.DefaultMarkers.Read...),
		Write: append([]string(nil), transcript.DefaultMarkers.Write...),
	}
}

// Load returns the default rules overlaid with the YAML file at path.
// Fields absent from the file keep their defaults.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading rules %s", path)
	}
	rules := Default()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, errors.Wrapf(err, "parsing rules %s", path)
	}
	return rules, nil
}

// A Verdict is the outcome of checking one row. Rejections carry the
// violated constraint for operator-visible reporting.
type Verdict struct {
	OK     bool
	Reason string

	// ExpectedLo and ExpectedHi are the acceptable bandwidth range
	// for ratio rejections, or the latency ceiling in ExpectedHi
	// for latency rejections.
	ExpectedLo, ExpectedHi float64
}

func (v Verdict) String() string {
	if v.OK {
		return "ok"
	}
	return v.Reason
}

// Check applies the rules to row, in order: absolute caps, then the
// bandwidth ratio window, then the latency ceiling. The first
// violated rule decides the verdict.
func (r *Rules) Check(row *transcript.Row) Verdict {
	if row.IOPS > r.MaxIOPS {
		return Verdict{
			Reason:     fmt.Sprintf("IOPS %.1f above high-water mark %.0f", row.IOPS, r.MaxIOPS),
			ExpectedHi: r.MaxIOPS,
		}
	}
	if row.Bandwidth > r.MaxBandwidth {
		return Verdict{
			Reason:     fmt.Sprintf("bandwidth %.1f above high-water mark %.0f", row.Bandwidth, r.MaxBandwidth),
			ExpectedHi: r.MaxBandwidth,
		}
	}

	// The ratio rule needs both quantities; a zeroed column cannot
	// form a ratio and is left to the absolute caps above.
	if row.IOPS > 0 && row.Bandwidth > 0 {
		expected := row.IOPS * r.BlockSizeKiB
		lo := expected * r.RatioLow
		if r.Markers.WriteClassified(row.Label) {
			lo = expected * r.WriteRatioLow
		}
		hi := expected * r.RatioHigh
		if row.Bandwidth < lo || row.Bandwidth > hi {
			return Verdict{
				Reason: fmt.Sprintf("bandwidth %.1f outside expected range %.1f-%.1f for %.1f IOPS",
					row.Bandwidth, lo, hi, row.IOPS),
				ExpectedLo: lo,
				ExpectedHi: hi,
			}
		}
	}

	ceiling := r.latencyCeiling(row.Label)
	if row.Latency > ceiling {
		return Verdict{
			Reason:     fmt.Sprintf("latency %.2fms above ceiling %.0fms", row.Latency, ceiling),
			ExpectedHi: ceiling,
		}
	}
	return Verdict{OK: true}
}

// latencyCeiling resolves the ceiling for a label: the mixed class
// when the label carries a combined-workload marker, otherwise the
// longest ceiling key the label starts with, otherwise the default.
func (r *Rules) latencyCeiling(label string) float64 {
	if base := mixedClass(r.Markers, label); base != "" {
		if c, ok := r.LatencyCeilings[base]; ok {
			return c
		}
	}
	keys := make([]string, 0, len(r.LatencyCeilings))
	for k := range r.LatencyCeilings {
		keys = append(keys, k)
	}
	// Longest key first, so "Sequential Read" beats "Sequential".
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		if strings.HasPrefix(label, k) {
			return r.LatencyCeilings[k]
		}
	}
	return r.DefaultLatencyCeiling
}

func mixedClass(m transcript.Markers, label string) string {
	for _, marker := range m.Mixed {
		if strings.Contains(label, marker) {
			return marker
		}
	}
	return ""
}
