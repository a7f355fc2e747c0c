// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aggregate

import (
	"sort"

	"github.com/aclements/go-moremath/stats"
)

// A Metric is the aggregated statistics for one test key across all
// iterations and subjects that reported it.
type Metric struct {
	IOPSMean       float64 `json:"iops_mean"`
	IOPSStdev      float64 `json:"iops_stdev"`
	BandwidthMean  float64 `json:"bandwidth_mean"`
	BandwidthStdev float64 `json:"bandwidth_stdev"`
	LatencyMean    float64 `json:"latency_mean"`
	LatencyStdev   float64 `json:"latency_stdev"`
	Samples        int     `json:"samples"`
}

// An Oltp is the aggregated OLTP summary statistics. It exists only
// when at least one transcript reported an OLTP summary; a Snapshot
// never carries a zero-filled one.
type Oltp struct {
	TPSMean      float64 `json:"tps_mean"`
	TPSStdev     float64 `json:"tps_stdev"`
	LatencyMean  float64 `json:"latency_mean"`
	LatencyStdev float64 `json:"latency_stdev"`
	Samples      int     `json:"samples"`
}

// A Snapshot is the aggregated output of one run over one results
// directory. It is immutable once returned by Finish; the reporting
// and charting consumers share it by reference and must not modify
// it.
type Snapshot struct {
	// Metrics maps test key to its aggregated statistics.
	Metrics map[string]Metric `json:"tests"`

	// Oltp is nil when no transcript reported an OLTP summary.
	Oltp *Oltp `json:"oltp,omitempty"`

	// Iterations is the sorted set of iteration numbers that
	// contributed data.
	Iterations []int `json:"iterations"`

	// Subjects is the number of distinct subjects (VMs) that
	// contributed, or the externally declared count when the
	// discovered files carried no subject information.
	Subjects int `json:"subjects"`
}

// Keys returns the snapshot's test keys in sorted order.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.Metrics))
	for k := range s.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// meanOf returns the arithmetic mean of xs. xs must be sorted so the
// result is independent of accumulation order.
func meanOf(xs []float64) float64 {
	return stats.Sample{Xs: xs, Sorted: true}.Mean()
}

// stdevOf returns the sample standard deviation (n−1 denominator) of
// xs, defined as 0 rather than NaN for a single sample.
func stdevOf(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stats.Sample{Xs: xs, Sorted: true}.StdDev()
}
