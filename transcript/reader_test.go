// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transcript

import (
	"fmt"
	"strings"
	"testing"
)

// parseAll reads every record from data, wiping position information
// from rows for comparison.
func parseAll(t *testing.T, data string) []Record {
	t.Helper()
	r := NewReader(strings.NewReader(data), "test")
	var out []Record
	for r.Scan() {
		switch rec := r.Result().(type) {
		case *Row:
			c := *rec
			c.fileName, c.line = "", 0
			out = append(out, &c)
		case *OltpSummary:
			c := *rec
			c.fileName, c.line = "", 0
			out = append(out, &c)
		case *SyntaxError:
			out = append(out, rec)
		default:
			t.Fatalf("unexpected record type %T", rec)
		}
	}
	if err := r.Err(); err != nil {
		t.Fatal("parsing failed: ", err)
	}
	return out
}

func printRecord(r Record) string {
	switch r := r.(type) {
	case *Row:
		cont := ""
		if r.Continuation {
			cont = " cont"
		}
		return fmt.Sprintf("row %d %q %v %v %v%s", r.Seq, r.Label, r.IOPS, r.Bandwidth, r.Latency, cont)
	case *OltpSummary:
		return fmt.Sprintf("oltp %v %v %d", r.TPS, r.AvgLatency, r.Transactions)
	case *SyntaxError:
		return fmt.Sprintf("err %s", r.Msg)
	}
	return fmt.Sprintf("unknown %T", r)
}

func checkRecords(t *testing.T, data string, want ...string) {
	t.Helper()
	got := parseAll(t, data)
	var gotS []string
	for _, r := range got {
		gotS = append(gotS, printRecord(r))
	}
	if len(gotS) != len(want) {
		t.Fatalf("got %d records %v, want %d %v", len(gotS), gotS, len(want), want)
	}
	for i := range want {
		if gotS[i] != want[i] {
			t.Errorf("record %d: got %q, want %q", i, gotS[i], want[i])
		}
	}
}

func TestReaderSection(t *testing.T) {
	data := `Some preamble text with a number 42 in it.
=====Результаты fio=====
No  Test              IOPS    BW      Lat
1   Sequential Read   1200    4800    0.8
2   Sequential Write  900     3600    1.1
=====Результаты pgbench=====
3   Not A Disk Row    1       2       3
`
	checkRecords(t, data,
		`row 1 "Sequential Read" 1200 4800 0.8`,
		`row 2 "Sequential Write" 900 3600 1.1`,
	)
}

func TestReaderContinuation(t *testing.T) {
	data := `=== fio ===
5   Mixed RW (Read)   1200   4800   1.0
    Mixed RW (Write)  900    3600   1.2
6   Random Read       2000   8000   0.5
`
	checkRecords(t, data,
		`row 5 "Mixed RW (Read)" 1200 4800 1`,
		`row 5 "Mixed RW (Write)" 900 3600 1.2 cont`,
		`row 6 "Random Read" 2000 8000 0.5`,
	)
}

func TestReaderContinuationWithoutPrimary(t *testing.T) {
	data := `=== fio ===
    Mixed RW (Write)  900    3600   1.2
`
	checkRecords(t, data,
		`err continuation row without a preceding numbered row`,
	)
}

func TestReaderFallback(t *testing.T) {
	// No section banner: the whole text is scanned, but only
	// numbered rows count.
	data := `legacy transcript
1   Sequential Read   1200   4800   0.8
    Mixed RW (Write)  900    3600   1.2
2   Random Write      500    2000   1.5
`
	checkRecords(t, data,
		`row 1 "Sequential Read" 1200 4800 0.8`,
		`row 2 "Random Write" 500 2000 1.5`,
	)
}

func TestReaderLabelWithDigits(t *testing.T) {
	data := `=== fio ===
1   Random Read 4k blocks   7000   28000   0.9
`
	checkRecords(t, data,
		`row 1 "Random Read 4k blocks" 7000 28000 0.9`,
	)
}

func TestReaderOltp(t *testing.T) {
	data := `=====Результаты fio=====
1   Sequential Read   1200   4800   0.8
=====Результаты pgbench=====
TPS (Transactions Per Second): 842.51
some intervening commentary
Средняя задержка: 11.87 ms
Обработано транзакций: 50551
`
	checkRecords(t, data,
		`row 1 "Sequential Read" 1200 4800 0.8`,
		`oltp 842.51 11.87 50551`,
	)
}

func TestReaderOltpEnglishLabels(t *testing.T) {
	data := `TPS: 120.5
Average latency: 8.31
Transactions processed: 7230
`
	checkRecords(t, data,
		`oltp 120.5 8.31 7230`,
	)
}

func TestReaderOltpIncomplete(t *testing.T) {
	// Two of the three fields is not a summary.
	data := `TPS (Transactions Per Second): 842.51
Средняя задержка: 11.87
`
	checkRecords(t, data)
}

func TestReaderEmpty(t *testing.T) {
	checkRecords(t, "")
}

func TestReaderPos(t *testing.T) {
	data := "=== fio ===\n1  Sequential Read  1200  4800  0.8\n"
	r := NewReader(strings.NewReader(data), "file.txt")
	if !r.Scan() {
		t.Fatal("expected one record")
	}
	name, line := r.Result().Pos()
	if name != "file.txt" || line != 2 {
		t.Errorf("got pos %s:%d, want file.txt:2", name, line)
	}
}
