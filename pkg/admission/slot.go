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
	"os"

	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Slot is the handle to one acquired admission slot. It deletes only the
// record it created, never a foreign one.
type Slot struct {
	path     string
	record   Record
	released atomic.Bool
}

// Record returns the record this slot persisted on acquisition.
func (s *Slot) Record() Record {
	return s.record
}

// Release removes the slot's record from the lock directory. Calling it
// again after a successful release is a no-op, so it can sit both on a
// defer and on explicit shutdown paths.
func (s *Slot) Release() error {
	if !s.released.CAS(false, true) {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return cerror.WrapError(cerror.ErrReleaseSlot, err, s.path)
	}
	log.Info("admission slot released",
		zap.String("path", s.path), zap.String("job", s.record.Job))
	return nil
}
