// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"vmbench/aggregate"
)

// WriteJSON writes snap to path as indented JSON. The document is the
// hand-off artifact for the charting consumer and round-trips through
// ReadJSON without loss beyond float64 representation.
func WriteJSON(path string, snap *aggregate.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// ReadJSON loads a snapshot previously written by WriteJSON.
func ReadJSON(path string) (*aggregate.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	snap := new(aggregate.Snapshot)
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return snap, nil
}
