// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store persists aggregate snapshots to a SQLite database so
// that runs over different configurations can be kept and compared
// after the fact.
package store

import (
	"database/sql"
	"encoding/json"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"vmbench/aggregate"
)

// DB is a handle to the snapshot database.
type DB struct {
	sql *sql.DB

	insertSnapshot *sql.Stmt
	insertMetric   *sql.Stmt
	insertOltp     *sql.Stmt
}

const schema = `
CREATE TABLE IF NOT EXISTS Snapshots (
	SnapshotID INTEGER PRIMARY KEY AUTOINCREMENT,
	Label TEXT NOT NULL,
	CreatedAt TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	Iterations TEXT NOT NULL,
	Subjects INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS Metrics (
	SnapshotID INTEGER NOT NULL,
	TestKey TEXT NOT NULL,
	IOPSMean REAL NOT NULL, IOPSStdev REAL NOT NULL,
	BandwidthMean REAL NOT NULL, BandwidthStdev REAL NOT NULL,
	LatencyMean REAL NOT NULL, LatencyStdev REAL NOT NULL,
	Samples INTEGER NOT NULL,
	PRIMARY KEY (SnapshotID, TestKey)
);
CREATE TABLE IF NOT EXISTS Oltp (
	SnapshotID INTEGER PRIMARY KEY,
	TPSMean REAL NOT NULL, TPSStdev REAL NOT NULL,
	LatencyMean REAL NOT NULL, LatencyStdev REAL NOT NULL,
	Samples INTEGER NOT NULL
);
`

// Open opens (creating if necessary) the snapshot database at path.
func Open(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	db := &DB{sql: sqldb}
	if _, err := sqldb.Exec(schema); err != nil {
		sqldb.Close()
		return nil, errors.Wrap(err, "creating schema")
	}
	if err := db.prepareStatements(); err != nil {
		sqldb.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) prepareStatements() error {
	var err error
	db.insertSnapshot, err = db.sql.Prepare(
		"INSERT INTO Snapshots(Label, Iterations, Subjects) VALUES (?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "preparing snapshot insert")
	}
	db.insertMetric, err = db.sql.Prepare(
		"INSERT INTO Metrics VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "preparing metric insert")
	}
	db.insertOltp, err = db.sql.Prepare(
		"INSERT INTO Oltp VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "preparing oltp insert")
	}
	return nil
}

// Close closes the database handle.
func (db *DB) Close() error {
	return db.sql.Close()
}

// SaveSnapshot writes snap under label in one transaction and returns
// the new snapshot's ID.
func (db *DB) SaveSnapshot(label string, snap *aggregate.Snapshot) (id int64, err error) {
	iters, err := json.Marshal(snap.Iterations)
	if err != nil {
		return 0, errors.Wrap(err, "encoding iterations")
	}

	tx, err := db.sql.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = errors.Wrap(tx.Commit(), "committing snapshot")
		}
	}()

	res, err := tx.Stmt(db.insertSnapshot).Exec(label, string(iters), snap.Subjects)
	if err != nil {
		return 0, errors.Wrap(err, "inserting snapshot")
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "snapshot id")
	}

	for _, key := range snap.Keys() {
		m := snap.Metrics[key]
		if _, err = tx.Stmt(db.insertMetric).Exec(id, key,
			m.IOPSMean, m.IOPSStdev, m.BandwidthMean, m.BandwidthStdev,
			m.LatencyMean, m.LatencyStdev, m.Samples); err != nil {
			return 0, errors.Wrapf(err, "inserting metric %q", key)
		}
	}
	if o := snap.Oltp; o != nil {
		if _, err = tx.Stmt(db.insertOltp).Exec(id,
			o.TPSMean, o.TPSStdev, o.LatencyMean, o.LatencyStdev, o.Samples); err != nil {
			return 0, errors.Wrap(err, "inserting oltp")
		}
	}
	return id, nil
}

// LatestSnapshot reads back the most recently saved snapshot for
// label. It returns sql.ErrNoRows (wrapped) when none exists.
func (db *DB) LatestSnapshot(label string) (*aggregate.Snapshot, error) {
	var (
		id    int64
		iters string
		snap  = &aggregate.Snapshot{Metrics: make(map[string]aggregate.Metric)}
	)
	err := db.sql.QueryRow(
		"SELECT SnapshotID, Iterations, Subjects FROM Snapshots WHERE Label = ? ORDER BY SnapshotID DESC LIMIT 1",
		label).Scan(&id, &iters, &snap.Subjects)
	if err != nil {
		return nil, errors.Wrapf(err, "loading snapshot for %q", label)
	}
	if err := json.Unmarshal([]byte(iters), &snap.Iterations); err != nil {
		return nil, errors.Wrap(err, "decoding iterations")
	}

	rows, err := db.sql.Query(
		"SELECT TestKey, IOPSMean, IOPSStdev, BandwidthMean, BandwidthStdev, LatencyMean, LatencyStdev, Samples FROM Metrics WHERE SnapshotID = ?",
		id)
	if err != nil {
		return nil, errors.Wrap(err, "loading metrics")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key string
			m   aggregate.Metric
		)
		if err := rows.Scan(&key, &m.IOPSMean, &m.IOPSStdev, &m.BandwidthMean,
			&m.BandwidthStdev, &m.LatencyMean, &m.LatencyStdev, &m.Samples); err != nil {
			return nil, errors.Wrap(err, "scanning metric")
		}
		snap.Metrics[key] = m
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "reading metrics")
	}

	var o aggregate.Oltp
	err = db.sql.QueryRow(
		"SELECT TPSMean, TPSStdev, LatencyMean, LatencyStdev, Samples FROM Oltp WHERE SnapshotID = ?",
		id).Scan(&o.TPSMean, &o.TPSStdev, &o.LatencyMean, &o.LatencyStdev, &o.Samples)
	switch {
	case err == sql.ErrNoRows:
		// No OLTP block in this snapshot.
	case err != nil:
		return nil, errors.Wrap(err, "loading oltp")
	default:
		snap.Oltp = &o
	}
	return snap, nil
}
