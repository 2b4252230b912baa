// Copyright 2025 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bids reads the parts of the BIDS directory convention this project
// relies on: participant directories named `sub-<label>` and per-participant
// modality subdirectories. Membership is decided by directory names only.
package bids

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	cerror "github.com/pingcap/bidsflow/pkg/errors"
)

const (
	subjectPrefix     = "sub-"
	rawdataSuffix     = "-rawdata"
	derivativesSuffix = "-derivatives"
)

// SubjectDirName returns the directory name holding one participant's data.
func SubjectDirName(label string) string {
	return subjectPrefix + label
}

// RawdataDir returns the rawdata directory of a dataset under root.
func RawdataDir(root, dataset string) string {
	return filepath.Join(root, dataset+rawdataSuffix)
}

// DerivativesDir returns the derivatives directory of a dataset under root.
func DerivativesDir(root, dataset string) string {
	return filepath.Join(root, dataset+derivativesSuffix)
}

// Datasets returns the dataset ids under root, one per directory named
// `<id>-rawdata`, sorted. A missing root yields an empty list.
func Datasets(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cerror.WrapError(cerror.ErrScanDatasets, err, root)
	}

	var datasets []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), rawdataSuffix)
		if id == entry.Name() || id == "" {
			continue
		}
		datasets = append(datasets, id)
	}
	sort.Strings(datasets)
	return datasets, nil
}

// Participants returns the set of participant labels under dir, one per
// immediate subdirectory named `sub-<label>`. A missing directory or one
// without matches yields an empty set, not an error; whether the directory
// must exist is the caller's call.
func Participants(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, cerror.WrapError(cerror.ErrScanParticipants, err, dir)
	}

	labels := make(map[string]struct{})
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		label := strings.TrimPrefix(entry.Name(), subjectPrefix)
		if label == entry.Name() || label == "" {
			continue
		}
		labels[label] = struct{}{}
	}
	return labels, nil
}

// Missing returns the participants present under srcDir but absent under
// outDir, sorted lexicographically by label.
func Missing(srcDir, outDir string) ([]string, error) {
	src, err := Participants(srcDir)
	if err != nil {
		return nil, err
	}
	out, err := Participants(outDir)
	if err != nil {
		return nil, err
	}

	missing := make([]string, 0, len(src))
	for label := range src {
		if _, ok := out[label]; !ok {
			missing = append(missing, label)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

// HasModality reports whether a participant provides a non-empty modality
// directory, e.g. `<dir>/sub-01/anat` with at least one entry in it.
func HasModality(dir, label, modality string) bool {
	entries, err := os.ReadDir(filepath.Join(dir, SubjectDirName(label), modality))
	return err == nil && len(entries) > 0
}
