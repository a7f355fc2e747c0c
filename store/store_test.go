// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"gotest.tools/v3/assert"

	"vmbench/aggregate"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "vmbench.db"))
	assert.NilError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSnapshot() *aggregate.Snapshot {
	return &aggregate.Snapshot{
		Metrics: map[string]aggregate.Metric{
			"Sequential Read": {
				IOPSMean: 1250, IOPSStdev: 70.7,
				BandwidthMean: 5000, BandwidthStdev: 282.8,
				LatencyMean: 0.75, LatencyStdev: 0.07,
				Samples: 2,
			},
			"Random Write": {
				IOPSMean: 900, BandwidthMean: 3600, LatencyMean: 1.4,
				Samples: 1,
			},
		},
		Oltp: &aggregate.Oltp{
			TPSMean: 842.51, TPSStdev: 12.3,
			LatencyMean: 11.87, LatencyStdev: 0.4,
			Samples: 2,
		},
		Iterations: []int{1, 2},
		Subjects:   2,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	snap := sampleSnapshot()

	id, err := db.SaveSnapshot("baseline", snap)
	assert.NilError(t, err)
	assert.Assert(t, id > 0)

	got, err := db.LatestSnapshot("baseline")
	assert.NilError(t, err)
	assert.DeepEqual(t, got, snap)
}

func TestSaveLoadNoOltp(t *testing.T) {
	db := openTestDB(t)
	snap := sampleSnapshot()
	snap.Oltp = nil

	_, err := db.SaveSnapshot("disk-only", snap)
	assert.NilError(t, err)

	got, err := db.LatestSnapshot("disk-only")
	assert.NilError(t, err)
	assert.Assert(t, got.Oltp == nil)
	assert.DeepEqual(t, got, snap)
}

func TestLatestSnapshotPicksNewest(t *testing.T) {
	db := openTestDB(t)

	first := sampleSnapshot()
	_, err := db.SaveSnapshot("run", first)
	assert.NilError(t, err)

	second := sampleSnapshot()
	second.Metrics["Sequential Read"] = aggregate.Metric{
		IOPSMean: 1300, BandwidthMean: 5200, LatencyMean: 0.7, Samples: 3,
	}
	second.Iterations = []int{1, 2, 3}
	_, err = db.SaveSnapshot("run", second)
	assert.NilError(t, err)

	got, err := db.LatestSnapshot("run")
	assert.NilError(t, err)
	assert.DeepEqual(t, got, second)
}

func TestLatestSnapshotUnknownLabel(t *testing.T) {
	db := openTestDB(t)
	_, err := db.LatestSnapshot("no-such-label")
	assert.Assert(t, errors.Is(err, sql.ErrNoRows))
}

func TestLabelsIsolated(t *testing.T) {
	db := openTestDB(t)

	a := sampleSnapshot()
	_, err := db.SaveSnapshot("a", a)
	assert.NilError(t, err)

	b := sampleSnapshot()
	b.Subjects = 8
	_, err = db.SaveSnapshot("b", b)
	assert.NilError(t, err)

	got, err := db.LatestSnapshot("a")
	assert.NilError(t, err)
	assert.Equal(t, got.Subjects, 2)
}
