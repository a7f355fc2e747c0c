// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report renders aggregate snapshots for people and for
// machines: a fixed-width console table and a JSON document that
// round-trips the snapshot exactly.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"vmbench/aggregate"
)

// Text writes the human-readable summary of snap to w: a header, the
// per-test table in sorted key order with mean ± σ cells, and the
// OLTP block when present.
func Text(w io.Writer, snap *aggregate.Snapshot) {
	fmt.Fprintf(w, "Aggregated benchmark results\n")
	fmt.Fprintf(w, "Iterations: %d  VMs: %d\n", len(snap.Iterations), snap.Subjects)
	fmt.Fprintf(w, "Implausible rows were filtered before aggregation.\n\n")

	if len(snap.Metrics) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Test", "IOPS", "Bandwidth (MiB/s)", "Latency (ms)", "Samples"})
		table.SetAutoFormatHeaders(false)
		table.SetAlignment(tablewriter.ALIGN_RIGHT)
		table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT})
		for _, key := range snap.Keys() {
			m := snap.Metrics[key]
			table.Append([]string{
				key,
				meanSigma(m.IOPSMean, m.IOPSStdev, 1),
				meanSigma(m.BandwidthMean, m.BandwidthStdev, 1),
				meanSigma(m.LatencyMean, m.LatencyStdev, 2),
				strconv.Itoa(m.Samples),
			})
		}
		table.Render()
		fmt.Fprintln(w)
	}

	if snap.Oltp != nil {
		o := snap.Oltp
		fmt.Fprintf(w, "OLTP (pgbench)\n")
		fmt.Fprintf(w, "  TPS:         %s\n", meanSigma(o.TPSMean, o.TPSStdev, 2))
		fmt.Fprintf(w, "  Avg latency: %s ms\n", meanSigma(o.LatencyMean, o.LatencyStdev, 3))
		fmt.Fprintf(w, "  Samples:     %d\n", o.Samples)
	}
}

// meanSigma formats "mean ± σ" with prec digits after the point.
func meanSigma(mean, sigma float64, prec int) string {
	return fmt.Sprintf("%.*f ± %.*f", prec, mean, prec, sigma)
}
