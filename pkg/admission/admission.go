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

// Package admission bounds how many pipeline invocations may run at once on
// a shared machine. The coordination medium is a lock directory holding one
// JSON record per live invocation; records whose holder process is gone are
// reclaimed before they count against the limit.
//
// Admission is advisory concurrency control among cooperating processes, not
// hard mutual exclusion. Counting live records and creating the own record
// are separate filesystem operations; a short-lived guard file serializes
// well-behaved invocations through that sequence, but a crashed or
// non-cooperating process can still push the live count transiently past
// the limit by a small margin.
package admission

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/pingcap/bidsflow/pkg/logutil"
	"github.com/pingcap/bidsflow/pkg/retry"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

const (
	guardFileName   = ".acquire.guard"
	guardStaleAfter = 10 * time.Second
)

// Option configures a Controller.
type Option func(*Controller)

// WithPid overrides the holder pid recorded for new slots.
func WithPid(pid int) Option {
	return func(c *Controller) {
		c.pid = pid
	}
}

// WithLiveness overrides the holder liveness probe.
func WithLiveness(alive func(pid int) bool) Option {
	return func(c *Controller) {
		c.alive = alive
	}
}

// WithClock overrides the clock used for record timestamps and ages.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		c.clock = clk
	}
}

// Controller admits work against the record count in one lock directory.
type Controller struct {
	dir   string
	limit int

	pid   int
	alive func(pid int) bool
	// use clock to facilitate unit test
	clock clock.Clock
}

// New creates a Controller over dir, creating the directory when absent.
// limit is the maximum number of live records admitted system-wide.
func New(dir string, limit int, opts ...Option) (*Controller, error) {
	c := &Controller{
		dir:   dir,
		limit: limit,
		pid:   os.Getpid(),
		alive: ProcessAlive,
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cerror.WrapError(cerror.ErrCheckDirWritable, err, dir)
	}
	return c, nil
}

// Acquire claims one admission slot for the given job descriptor. When the
// live-record count has reached the limit it fails with ErrTooManyInstances
// carrying a holder report and leaves the directory untouched. The returned
// slot must be released on every exit path of the caller.
func (c *Controller) Acquire(job string) (*Slot, error) {
	unguard := c.guard()
	defer unguard()

	live, err := c.scan()
	if err != nil {
		return nil, cerror.WrapError(cerror.ErrAcquireSlot, err)
	}
	if len(live) >= c.limit {
		return nil, cerror.ErrTooManyInstances.
			GenWithStackByArgs(len(live), c.limit, formatHolders(live, c.clock.Now()))
	}

	rec := Record{Pid: c.pid, Job: job, AcquiredAt: c.clock.Now()}
	path, err := c.writeRecord(rec)
	if err != nil {
		return nil, err
	}
	log.Info("admission slot acquired",
		zap.String("path", path),
		zap.String("job", job),
		zap.Int("running", len(live)+1),
		zap.Int("limit", c.limit))
	return &Slot{path: path, record: rec}, nil
}

// List reclaims stale records, then returns the live ones sorted by
// acquisition time ascending.
func (c *Controller) List() ([]Record, error) {
	live, err := c.scan()
	if err != nil {
		return nil, cerror.WrapError(cerror.ErrListInstances, err)
	}
	return live, nil
}

// scan walks the lock directory, removes records whose holder process is no
// longer alive and returns the remaining records sorted by acquisition time.
func (c *Controller) scan() ([]Record, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, errors.Trace(err)
	}

	var live []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordSuffix) {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		rec, err := readRecord(path)
		if err != nil {
			// Undecodable records never count against the limit. They are
			// left in place: they may belong to a foreign writer mid-flight.
			log.Warn("skipping undecodable instance record",
				zap.String("path", path), logutil.ShortError(err))
			continue
		}
		if !c.alive(rec.Pid) {
			log.Info("reclaiming stale instance record",
				zap.String("path", path),
				zap.Int("pid", rec.Pid),
				zap.String("job", rec.Job))
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Warn("failed to remove stale instance record",
					zap.String("path", path), logutil.ShortError(err))
			}
			continue
		}
		live = append(live, rec)
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].AcquiredAt.Before(live[j].AcquiredAt)
	})
	return live, nil
}

// guard serializes the count-then-create sequence among cooperating
// invocations through an O_EXCL guard file, retrying on collision. A guard
// left behind by a crashed process is removed once it is older than
// guardStaleAfter. Failing to obtain the guard does not fail admission:
// counting stays advisory and the caller proceeds unguarded.
func (c *Controller) guard() (unguard func()) {
	path := filepath.Join(c.dir, guardFileName)
	startTime := time.Now()
	err := retry.Run(time.Millisecond*50, 20, func() error {
		guardFile, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o666)
		if os.IsExist(err) {
			if time.Since(startTime) > guardStaleAfter {
				_ = os.Remove(path)
			}
			return errors.Trace(err)
		} else if err != nil {
			return backoff.Permanent(err)
		}

		if err := guardFile.Close(); err != nil {
			log.Warn("failed to close admission guard", zap.String("path", path))
		}
		return nil
	})
	if err != nil {
		log.Warn("could not serialize admission check, proceeding unguarded",
			zap.String("path", path), logutil.ShortError(err))
		return func() {}
	}
	return func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove admission guard",
				zap.String("path", path), logutil.ShortError(err))
		}
	}
}
