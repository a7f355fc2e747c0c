// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transcript

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A File is one discovered transcript, tagged with the iteration and
// subject (VM) it belongs to. The tags come from the directory and
// file naming convention of the run scripts; downstream code treats
// them as opaque identifiers.
type File struct {
	Path      string
	Iteration int
	Subject   int

	// SubjectTagged reports whether Subject came from an explicit vmN
	// tag in the file name rather than the positional counter.
	SubjectTagged bool
}

const transcriptPattern = "results_sheet_*.txt"

var (
	iterTagRe     = regexp.MustCompile(`iter(\d+)`)
	subjectTagRe  = regexp.MustCompile(`vm(\d+)`)
	subjectsDirRe = regexp.MustCompile(`_(\d+)vms_`)
)

// ScanDir walks root recursively and returns the transcripts found,
// ordered by path.
//
// A transcript's iteration comes from the mandatory iterN tag in its
// file name; files without the tag are skipped with a warning. The
// subject index comes from an optional vmN tag, or failing that from
// the file's position among its iteration's transcripts. declared is
// the subject count embedded in root's own name (the _Nvms_ tag), or
// 0 when absent; callers use it as a fallback when the discovered
// files carry no subject information of their own.
func ScanDir(root string) (files []File, declared int, err error) {
	var paths []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logrus.WithError(err).Warnf("skipping %s", path)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(transcriptPattern, d.Name()); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, 0, errors.Wrapf(walkErr, "scanning %s", root)
	}
	sort.Strings(paths)

	perIter := make(map[int]int)
	for _, path := range paths {
		base := filepath.Base(path)
		m := iterTagRe.FindStringSubmatch(base)
		if m == nil {
			logrus.Warnf("%s: no iteration tag in file name, skipping", path)
			continue
		}
		iter, _ := strconv.Atoi(m[1])

		subject, tagged := perIter[iter], false
		if sm := subjectTagRe.FindStringSubmatch(base); sm != nil {
			subject, _ = strconv.Atoi(sm[1])
			tagged = true
		}
		perIter[iter]++

		files = append(files, File{Path: path, Iteration: iter, Subject: subject, SubjectTagged: tagged})
	}

	if m := subjectsDirRe.FindStringSubmatch(root); m != nil {
		declared, _ = strconv.Atoi(m[1])
	}
	return files, declared, nil
}
