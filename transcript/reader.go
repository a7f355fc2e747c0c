// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transcript

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A Reader reads measurement records from one benchmark transcript.
//
// Its API is modeled on bufio.Scanner. Unlike a line scanner it
// consumes the whole input before yielding the first record: the
// OLTP summary spans the file and the disk section cannot be
// identified without seeing whether a section heading exists at all.
//
// To construct a Reader, either call NewReader or call Reset on a
// zeroed Reader.
type Reader struct {
	src      io.Reader
	fileName string

	parsed bool
	err    error // I/O error, fatal to this file

	q    []Record
	qPos int
}

// NewReader constructs a Reader that parses the transcript from r.
// fileName is used in error messages and record positions.
func NewReader(r io.Reader, fileName string) *Reader {
	reader := new(Reader)
	reader.Reset(r, fileName)
	return reader
}

// Reset resets the Reader to begin reading from a new input.
func (r *Reader) Reset(ior io.Reader, fileName string) {
	if fileName == "" {
		fileName = "<unknown>"
	}
	r.src = ior
	r.fileName = fileName
	r.parsed = false
	r.err = nil
	r.q = r.q[:0]
	r.qPos = 0
}

var noRecord = &SyntaxError{"", 0, "Reader.Scan has not been called"}

// Scan advances the Reader to the next record and reports whether one
// was read. When Scan returns false the caller should check Err: a
// nil Err means the transcript was fully consumed.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	if r.qPos+1 < len(r.q) {
		r.qPos++
		return true
	}
	if r.parsed {
		// Queue drained.
		return false
	}
	r.parsed = true
	if err := r.parse(); err != nil {
		r.err = err
		return false
	}
	r.qPos = 0
	return len(r.q) > 0
}

// Result returns the record read by the last call to Scan: a *Row, an
// *OltpSummary, or a *SyntaxError. Syntax errors are non-fatal; the
// caller can keep calling Scan.
func (r *Reader) Result() Record {
	if r.qPos >= len(r.q) {
		return noRecord
	}
	return r.q[r.qPos]
}

// Err returns the I/O error that stopped the Reader, if any.
func (r *Reader) Err() error {
	return r.err
}

var (
	// headingRe matches the "=====..." banner lines the run scripts
	// emit between transcript sections.
	headingRe = regexp.MustCompile(`^\s*={3,}`)

	// diskHeadingRe picks the banner that opens the disk-benchmark
	// section. Older transcripts label it in Russian.
	diskHeadingRe = regexp.MustCompile(`(?i)fio|дисковой подсистемы`)

	// primaryRowRe is the five-field measurement row: sequence
	// number, free-text label, IOPS, bandwidth, latency. The label
	// is free-form and may itself contain digits; the plausibility
	// rules catch the misalignments that causes.
	primaryRowRe = regexp.MustCompile(`^\s*(\d+)\s+(\S.*?)\s+(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)\s*$`)

	// continuationRowRe is a measurement row with no leading
	// sequence number: the second direction of a combined
	// read/write test, filed under the preceding row's number.
	continuationRowRe = regexp.MustCompile(`^\s*([^\s\d].*?)\s+(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)\s*$`)

	// oltpRe locates the three OLTP summary fields anywhere in the
	// transcript, tolerating intervening text. All three must be
	// present; otherwise no summary is produced.
	oltpRe = regexp.MustCompile(`(?s)TPS[^:\n]*:\s*(\d+(?:\.\d+)?)` +
		`.*?(?:Average latency|Средняя задержка)[^:\n]*:\s*(\d+(?:\.\d+)?)` +
		`.*?(?:Transactions processed|Обработано транзакций)[^:\n]*:\s*(\d+)`)
)

// parse consumes the whole input and fills the record queue. Rows are
// queued in transcript order; the OLTP summary, if any, comes last.
func (r *Reader) parse() error {
	data, err := io.ReadAll(r.src)
	if err != nil {
		return errors.Wrapf(err, "reading %s", r.fileName)
	}
	content := string(data)
	lines := strings.Split(content, "\n")

	lo, hi, sectioned := diskSection(lines)
	var lastPrimary *Row
	for i := lo; i < hi; i++ {
		line := lines[i]
		if m := primaryRowRe.FindStringSubmatch(line); m != nil {
			seq, err := strconv.Atoi(m[1])
			if err != nil {
				r.q = append(r.q, &SyntaxError{r.fileName, i + 1, "parsing sequence number: " + err.Error()})
				continue
			}
			row, serr := r.newRow(seq, m[2], m[3:6], i+1, false)
			if serr != nil {
				r.q = append(r.q, serr)
				continue
			}
			lastPrimary = row
			r.q = append(r.q, row)
			continue
		}
		// Continuation rows are only meaningful relative to a
		// numbered row, which in turn is only unambiguous inside a
		// marked disk section. The whole-text fallback matches
		// numbered rows alone.
		if !sectioned {
			continue
		}
		if m := continuationRowRe.FindStringSubmatch(line); m != nil {
			if lastPrimary == nil {
				r.q = append(r.q, &SyntaxError{r.fileName, i + 1, "continuation row without a preceding numbered row"})
				continue
			}
			row, serr := r.newRow(lastPrimary.Seq, m[1], m[2:5], i+1, true)
			if serr != nil {
				r.q = append(r.q, serr)
				continue
			}
			r.q = append(r.q, row)
		}
	}

	if m := oltpRe.FindStringSubmatchIndex(content); m != nil {
		line := 1 + strings.Count(content[:m[0]], "\n")
		tps, err1 := strconv.ParseFloat(content[m[2]:m[3]], 64)
		lat, err2 := strconv.ParseFloat(content[m[4]:m[5]], 64)
		count, err3 := strconv.Atoi(content[m[6]:m[7]])
		if err1 != nil || err2 != nil || err3 != nil {
			r.q = append(r.q, &SyntaxError{r.fileName, line, "malformed OLTP summary"})
		} else {
			r.q = append(r.q, &OltpSummary{
				TPS:          tps,
				AvgLatency:   lat,
				Transactions: count,
				fileName:     r.fileName,
				line:         line,
			})
		}
	}
	return nil
}

func (r *Reader) newRow(seq int, label string, nums []string, line int, cont bool) (*Row, *SyntaxError) {
	vals := make([]float64, len(nums))
	for i, s := range nums {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &SyntaxError{r.fileName, line, "parsing measurement: " + err.Error()}
		}
		vals[i] = v
	}
	return &Row{
		Seq:          seq,
		Label:        strings.TrimSpace(label),
		IOPS:         vals[0],
		Bandwidth:    vals[1],
		Latency:      vals[2],
		Continuation: cont,
		fileName:     r.fileName,
		line:         line,
	}, nil
}

// diskSection returns the half-open line range of the disk-benchmark
// section and whether a section heading was found. Without a heading
// the whole transcript is scanned (legacy format).
func diskSection(lines []string) (lo, hi int, sectioned bool) {
	for i, line := range lines {
		if !sectioned {
			if headingRe.MatchString(line) && diskHeadingRe.MatchString(line) {
				lo, sectioned = i+1, true
			}
			continue
		}
		if headingRe.MatchString(line) {
			return lo, i, true
		}
	}
	if sectioned {
		return lo, len(lines), true
	}
	return 0, len(lines), false
}
