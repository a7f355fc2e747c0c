// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package aggregate folds validated transcript measurements into
// per-test-key mean and standard-deviation statistics.
//
// One Aggregator accumulates one results directory: each transcript
// is parsed, validated, and keyed independently, then folded through
// the single Fold mutation point. Statistics are computed over the
// multiset of samples per key, so the fold order does not affect the
// result. A key absent from a transcript simply contributes nothing;
// there is no zero-filling.
package aggregate

import (
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"vmbench/transcript"
	"vmbench/validate"
)

// Directory-level failures. Both are recoverable per directory:
// sibling directories in the same run are unaffected.
var (
	// ErrNoTranscripts reports a directory with no parseable
	// transcript files at all.
	ErrNoTranscripts = errors.New("no parseable transcripts")

	// ErrNoMeasurements reports a directory whose transcripts
	// parsed but yielded no validated measurements.
	ErrNoMeasurements = errors.New("no validated measurements")
)

// A Measurement is one validated, keyed disk-benchmark sample.
type Measurement struct {
	Key       string
	IOPS      float64
	Bandwidth float64
	Latency   float64
}

// A Transcript is the validated content of one parsed transcript,
// tagged with the iteration and subject it belongs to.
type Transcript struct {
	Iteration    int
	Subject      int
	Measurements []Measurement
	Oltp         *transcript.OltpSummary
}

// Parse runs one transcript through the extract → validate → key
// pipeline. Implausible rows are logged and dropped; syntax errors
// are logged and skipped. Only an unreadable input is an error, in
// which case the transcript contributes nothing.
//
// The returned Transcript carries zero tags; the caller assigns
// Iteration and Subject before folding.
func Parse(r io.Reader, name string, rules *validate.Rules) (*Transcript, error) {
	if rules == nil {
		rules = validate.Default()
	}
	rd := transcript.NewReader(r, name)
	keys := transcript.NewKeySet(rules.Markers)
	t := new(Transcript)
	for rd.Scan() {
		switch rec := rd.Result().(type) {
		case *transcript.Row:
			v := rules.Check(rec)
			if !v.OK {
				logrus.WithFields(logrus.Fields{
					"file":        name,
					"label":       rec.Label,
					"iops":        rec.IOPS,
					"bandwidth":   rec.Bandwidth,
					"latency":     rec.Latency,
					"expected_lo": v.ExpectedLo,
					"expected_hi": v.ExpectedHi,
				}).Warnf("implausible row rejected: %s", v.Reason)
				continue
			}
			t.Measurements = append(t.Measurements, Measurement{
				Key:       keys.Assign(rec),
				IOPS:      rec.IOPS,
				Bandwidth: rec.Bandwidth,
				Latency:   rec.Latency,
			})
		case *transcript.OltpSummary:
			t.Oltp = rec
		case *transcript.SyntaxError:
			logrus.Warnf("%s", rec.Error())
		}
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

type accum struct {
	iops, bandwidth, latency []float64
}

// An Aggregator accumulates transcripts for one results directory.
// The zero value is not usable; call New.
type Aggregator struct {
	rules *validate.Rules

	keys       map[string]*accum
	tps        []float64
	oltpLat    []float64
	iterations map[int]bool
	subjects   map[int]bool

	// subjectsTagged records that at least one folded file carried an
	// explicit subject tag. A lone positional index 0 is not evidence
	// of a single subject; a tagged one is.
	subjectsTagged bool

	// DeclaredSubjects is the externally declared subject count
	// (from the directory naming convention), used when the folded
	// transcripts carried no genuine subject indexes of their own.
	DeclaredSubjects int

	folded int
}

// New returns an empty Aggregator checking rows against rules.
// A nil rules uses validate.Default.
func New(rules *validate.Rules) *Aggregator {
	if rules == nil {
		rules = validate.Default()
	}
	return &Aggregator{
		rules:      rules,
		keys:       make(map[string]*accum),
		iterations: make(map[int]bool),
		subjects:   make(map[int]bool),
	}
}

// Fold merges one transcript's measurements into the aggregation in
// progress. It is the only mutation point of the accumulated state.
func (a *Aggregator) Fold(t *Transcript) {
	a.iterations[t.Iteration] = true
	a.subjects[t.Subject] = true
	a.folded++
	for _, m := range t.Measurements {
		acc := a.keys[m.Key]
		if acc == nil {
			acc = new(accum)
			a.keys[m.Key] = acc
		}
		acc.iops = append(acc.iops, m.IOPS)
		acc.bandwidth = append(acc.bandwidth, m.Bandwidth)
		acc.latency = append(acc.latency, m.Latency)
	}
	if t.Oltp != nil {
		a.tps = append(a.tps, t.Oltp.TPS)
		a.oltpLat = append(a.oltpLat, t.Oltp.AvgLatency)
	}
}

// AddFile parses the transcript at f.Path and folds it. The file
// handle is released before AddFile returns, on every path.
func (a *Aggregator) AddFile(f transcript.File) error {
	fh, err := os.Open(f.Path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", f.Path)
	}
	defer fh.Close()

	t, err := Parse(fh, f.Path, a.rules)
	if err != nil {
		return err
	}
	t.Iteration, t.Subject = f.Iteration, f.Subject
	if f.SubjectTagged {
		a.subjectsTagged = true
	}
	a.Fold(t)
	return nil
}

// Folded returns the number of transcripts folded so far.
func (a *Aggregator) Folded() int {
	return a.folded
}

// Finish computes the aggregated statistics and returns the snapshot.
// Each key's sample lists are sorted before the statistics are taken,
// so the result is identical regardless of fold order.
func (a *Aggregator) Finish() *Snapshot {
	snap := &Snapshot{
		Metrics:    make(map[string]Metric, len(a.keys)),
		Iterations: make([]int, 0, len(a.iterations)),
	}
	for key, acc := range a.keys {
		sort.Float64s(acc.iops)
		sort.Float64s(acc.bandwidth)
		sort.Float64s(acc.latency)
		snap.Metrics[key] = Metric{
			IOPSMean:       meanOf(acc.iops),
			IOPSStdev:      stdevOf(acc.iops),
			BandwidthMean:  meanOf(acc.bandwidth),
			BandwidthStdev: stdevOf(acc.bandwidth),
			LatencyMean:    meanOf(acc.latency),
			LatencyStdev:   stdevOf(acc.latency),
			Samples:        len(acc.iops),
		}
	}
	if len(a.tps) > 0 {
		sort.Float64s(a.tps)
		sort.Float64s(a.oltpLat)
		snap.Oltp = &Oltp{
			TPSMean:      meanOf(a.tps),
			TPSStdev:     stdevOf(a.tps),
			LatencyMean:  meanOf(a.oltpLat),
			LatencyStdev: stdevOf(a.oltpLat),
			Samples:      len(a.tps),
		}
	}
	for it := range a.iterations {
		snap.Iterations = append(snap.Iterations, it)
	}
	sort.Ints(snap.Iterations)
	// Distinct subject indexes are trusted when any file was
	// explicitly tagged or when an iteration actually held more than
	// one transcript; otherwise every file got the positional index 0
	// and the declared count, if any, is the better answer.
	switch {
	case a.subjectsTagged || len(a.subjects) > 1:
		snap.Subjects = len(a.subjects)
	case a.DeclaredSubjects > 0:
		snap.Subjects = a.DeclaredSubjects
	default:
		snap.Subjects = 1
	}
	return snap
}

// Dir aggregates every transcript under root into one snapshot.
//
// Unreadable or unparseable files are logged and skipped. A root with
// no usable transcripts at all fails with ErrNoTranscripts; one whose
// transcripts yielded no validated measurements fails with
// ErrNoMeasurements. Both are directory-scoped: callers processing
// several roots continue with the rest.
func Dir(root string, rules *validate.Rules) (*Snapshot, error) {
	files, declared, err := transcript.ScanDir(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Wrap(ErrNoTranscripts, root)
	}

	a := New(rules)
	a.DeclaredSubjects = declared
	for _, f := range files {
		if err := a.AddFile(f); err != nil {
			logrus.WithError(err).Warnf("skipping transcript %s", f.Path)
		}
	}
	if a.Folded() == 0 {
		return nil, errors.Wrap(ErrNoTranscripts, root)
	}

	snap := a.Finish()
	if len(snap.Metrics) == 0 && snap.Oltp == nil {
		return nil, errors.Wrap(ErrNoMeasurements, root)
	}
	logrus.WithFields(logrus.Fields{
		"found":      len(files),
		"parsed":     a.Folded(),
		"keys":       len(snap.Metrics),
		"iterations": len(snap.Iterations),
		"subjects":   snap.Subjects,
	}).Infof("aggregated %s", root)
	return snap, nil
}
