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
	"testing"

	"github.com/BurntSushi/toml"
	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	require.NotEmpty(t, cfg.RawdataRoot)
	require.NotEmpty(t, cfg.DerivativesRoot)
	require.Equal(t, "/opt/apptainer", cfg.ImageDir)
	require.Equal(t, "/opt/freesurfer/license.txt", cfg.FSLicense)
	require.Equal(t, DefaultMaxInstances, cfg.MaxInstances)
	require.Equal(t, "info", cfg.Log.Level)

	// fresh value every call
	cfg.MaxInstances = 1
	require.Equal(t, DefaultMaxInstances, GetDefaultConfig().MaxInstances)
}

func TestValidateAndAdjust(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	cfg.LockDir = filepath.Join(t.TempDir(), "locks")
	require.Nil(t, cfg.ValidateAndAdjust())
	// the lock dir must exist afterwards
	st, err := os.Stat(cfg.LockDir)
	require.Nil(t, err)
	require.True(t, st.IsDir())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty rawdata-root", func(c *Config) { c.RawdataRoot = "" }},
		{"empty derivatives-root", func(c *Config) { c.DerivativesRoot = "" }},
		{"empty image-dir", func(c *Config) { c.ImageDir = "" }},
		{"empty fs-license", func(c *Config) { c.FSLicense = "" }},
		{"empty lock-dir", func(c *Config) { c.LockDir = "" }},
		{"zero max-instances", func(c *Config) { c.MaxInstances = 0 }},
		{"negative max-instances", func(c *Config) { c.MaxInstances = -3 }},
	}
	for _, cs := range cases {
		cfg := GetDefaultConfig()
		cs.mutate(cfg)
		err := cfg.ValidateAndAdjust()
		require.True(t, cerror.ErrInvalidConfig.Equal(err), "%s: %v", cs.name, err)
	}
}

func TestValidateAndAdjustFillsLog(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	cfg.LockDir = t.TempDir()
	cfg.Log = nil
	require.Nil(t, cfg.ValidateAndAdjust())
	require.NotNil(t, cfg.Log)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestDecodeTOML(t *testing.T) {
	t.Parallel()

	data := `
rawdata-root = "/srv/neuro/rawdata"
derivatives-root = "/srv/neuro/derivatives"
max-instances = 4

[log]
level = "debug"
file = "/var/log/bidsflow.log"
`
	cfg := GetDefaultConfig()
	_, err := toml.Decode(data, cfg)
	require.Nil(t, err)
	require.Equal(t, "/srv/neuro/rawdata", cfg.RawdataRoot)
	require.Equal(t, "/srv/neuro/derivatives", cfg.DerivativesRoot)
	require.Equal(t, 4, cfg.MaxInstances)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "/var/log/bidsflow.log", cfg.Log.File)
	// untouched keys keep their defaults
	require.Equal(t, "/opt/apptainer", cfg.ImageDir)
}
