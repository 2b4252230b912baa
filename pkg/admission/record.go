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

package admission

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	cerror "github.com/pingcap/bidsflow/pkg/errors"
)

const recordSuffix = ".json"

// Record is one claimed admission slot as persisted in the lock directory.
// The file content is JSON with an RFC 3339 acquisition timestamp so that
// operators can read records with standard tooling.
type Record struct {
	Pid        int       `json:"pid"`
	Job        string    `json:"job"`
	AcquiredAt time.Time `json:"acquired_at"`
}

func readRecord(path string) (Record, error) {
	var rec Record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// writeRecord persists rec under a fresh name keyed by the holder pid. The
// content lands via a same-directory rename, a reader never observes a
// partially written record.
func (c *Controller) writeRecord(rec Record) (string, error) {
	name := fmt.Sprintf("%d-%s%s", rec.Pid, uuid.New().String()[:8], recordSuffix)
	path := filepath.Join(c.dir, name)

	data, err := json.Marshal(rec)
	if err != nil {
		return "", cerror.WrapError(cerror.ErrAcquireSlot, err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", cerror.WrapError(cerror.ErrAcquireSlot, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", cerror.WrapError(cerror.ErrAcquireSlot, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", cerror.WrapError(cerror.ErrAcquireSlot, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", cerror.WrapError(cerror.ErrAcquireSlot, err)
	}
	return path, nil
}

// formatHolders renders the live records for the ResourceExhausted
// diagnostic, one holder per line.
func formatHolders(live []Record, now time.Time) string {
	lines := make([]string, 0, len(live))
	for _, rec := range live {
		lines = append(lines, fmt.Sprintf("  pid %d  %s  acquired %s",
			rec.Pid, rec.Job, humanize.RelTime(rec.AcquiredAt, now, "ago", "from now")))
	}
	return strings.Join(lines, "\n")
}
