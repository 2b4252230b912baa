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

package config

import (
	"os"
	"path/filepath"

	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/pingcap/bidsflow/pkg/fsutil"
	"github.com/pingcap/bidsflow/pkg/logutil"
	"github.com/pingcap/errors"
)

// DefaultMaxInstances bounds how many pipeline containers may run on one
// machine at the same time unless the operator raises it.
const DefaultMaxInstances = 10

// Config holds the configuration of a bidsflow invocation. Every field can
// be set in the TOML file and overridden by the matching command line flag.
type Config struct {
	// RawdataRoot holds one `<dataset>-rawdata` directory per dataset.
	RawdataRoot string `toml:"rawdata-root" json:"rawdata-root"`
	// DerivativesRoot holds one `<dataset>-derivatives` directory per dataset.
	DerivativesRoot string `toml:"derivatives-root" json:"derivatives-root"`
	// ImageDir stores the apptainer images built from docker references.
	ImageDir string `toml:"image-dir" json:"image-dir"`
	// FSLicense is the FreeSurfer license file bind-mounted into every
	// pipeline container.
	FSLicense string `toml:"fs-license" json:"fs-license"`
	// LockDir is the shared directory of admission records. All cooperating
	// bidsflow processes on the machine must agree on it.
	LockDir      string `toml:"lock-dir" json:"lock-dir"`
	MaxInstances int    `toml:"max-instances" json:"max-instances"`
	// BatchTable is the TSV of dataset rows and tool version columns.
	BatchTable string `toml:"batch-table" json:"batch-table"`

	Log *logutil.Config `toml:"log" json:"log"`
}

// GetDefaultConfig returns the default configuration. The result is a fresh
// value on every call, callers may mutate it freely.
func GetDefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		RawdataRoot:     filepath.Join(home, "rawdata"),
		DerivativesRoot: filepath.Join(home, "derivatives"),
		ImageDir:        "/opt/apptainer",
		FSLicense:       "/opt/freesurfer/license.txt",
		LockDir:         filepath.Join(os.TempDir(), "bidsflow-instances"),
		MaxInstances:    DefaultMaxInstances,
		BatchTable:      filepath.Join(home, ".bidsflow", "batch.tsv"),
		Log:             &logutil.Config{Level: "info"},
	}
}

// ValidateAndAdjust validates the configuration and fills derived defaults.
// The lock directory is created here so a bad location fails the invocation
// before any dataset work starts.
func (c *Config) ValidateAndAdjust() error {
	if c.RawdataRoot == "" {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("empty rawdata-root")
	}
	if c.DerivativesRoot == "" {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("empty derivatives-root")
	}
	if c.ImageDir == "" {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("empty image-dir")
	}
	if c.FSLicense == "" {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("empty fs-license")
	}
	if c.LockDir == "" {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("empty lock-dir")
	}
	if c.MaxInstances < 1 {
		return cerror.ErrInvalidConfig.GenWithStackByArgs(
			"max-instances must be at least 1")
	}

	if err := os.MkdirAll(c.LockDir, 0o755); err != nil {
		return cerror.WrapError(cerror.ErrCheckDirWritable, err, c.LockDir)
	}
	if err := fsutil.IsDirAndWritable(c.LockDir); err != nil {
		return errors.Trace(err)
	}

	if c.Log == nil {
		c.Log = &logutil.Config{}
	}
	c.Log.Adjust()
	return nil
}
