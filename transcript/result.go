// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transcript parses plain-text benchmark transcripts.
//
// A transcript is the text a single benchmark run leaves behind for
// one VM in one iteration: a table of disk micro-benchmark rows
// (sequence number, free-text label, IOPS, bandwidth, latency) and,
// optionally, an OLTP summary block (TPS, average latency,
// transaction count). The format is not a grammar; it has drifted
// between releases, so the Reader tries a section-oriented scan first
// and falls back to a whole-text scan.
//
// The Reader's API is modeled on bufio.Scanner: call Scan until it
// returns false, inspecting Result after each call. Parse problems on
// individual lines surface as *SyntaxError records so that one bad
// line never discards the rest of the file.
package transcript

import "fmt"

// A Row is one disk-benchmark measurement parsed from a transcript.
type Row struct {
	// Seq is the test sequence number from the transcript. Two rows
	// may share a Seq when a combined read/write test reports both
	// directions under one number.
	Seq int

	// Label is the free-text test label, trimmed of surrounding
	// whitespace but otherwise verbatim.
	Label string

	IOPS      float64 // operations per second
	Bandwidth float64 // MiB/s
	Latency   float64 // ms

	// Continuation is set when the row had no leading sequence
	// number and inherited Seq from the preceding numbered row.
	Continuation bool

	fileName string
	line     int
}

// Pos returns the file name and 1-based line this row was read from.
func (r *Row) Pos() (fileName string, line int) {
	return r.fileName, r.line
}

func (r *Row) String() string {
	return fmt.Sprintf("%d %q iops=%v bw=%v lat=%v", r.Seq, r.Label, r.IOPS, r.Bandwidth, r.Latency)
}

// An OltpSummary is the transaction-benchmark summary of a
// transcript. A transcript has at most one.
type OltpSummary struct {
	TPS          float64 // transactions per second
	AvgLatency   float64 // ms
	Transactions int     // transactions processed

	fileName string
	line     int
}

// Pos returns the file name and 1-based line the summary starts on.
func (o *OltpSummary) Pos() (fileName string, line int) {
	return o.fileName, o.line
}

// A SyntaxError describes a malformed line in a transcript. It is
// reported as a Record and does not stop the scan.
type SyntaxError struct {
	FileName string
	Line     int
	Msg      string
}

func (e *SyntaxError) Pos() (fileName string, line int) {
	return e.FileName, e.Line
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}

// A Record is a single record read from a transcript: a *Row, an
// *OltpSummary, or a *SyntaxError.
type Record interface {
	// Pos returns the position of this record as a file name and a
	// 1-based line number within that file.
	Pos() (fileName string, line int)
}

var _ Record = (*Row)(nil)
var _ Record = (*OltpSummary)(nil)
var _ Record = (*SyntaxError)(nil)
