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

package run

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pingcap/bidsflow/pkg/batch"
	"github.com/pingcap/bidsflow/pkg/config"
	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/pingcap/bidsflow/pkg/leakutil"
	"github.com/pingcap/bidsflow/pkg/tool"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	leakutil.SetUpLeakTest(m)
}

func TestDefaultCfg(t *testing.T) {
	lockDir := filepath.Join(t.TempDir(), "locks")
	cmd := new(cobra.Command)
	o := newOptions()
	o.addFlags(cmd)

	require.Nil(t, cmd.ParseFlags([]string{"--lock-dir", lockDir}))
	conf, err := o.loadAndVerifyConfig(cmd)
	require.Nil(t, err)

	expected := config.GetDefaultConfig()
	expected.LockDir = lockDir
	require.Nil(t, expected.ValidateAndAdjust())
	require.Equal(t, expected, conf)
}

func TestAddUnknownFlag(t *testing.T) {
	cmd := new(cobra.Command)
	o := newOptions()
	o.addFlags(cmd)

	require.Regexp(t, ".*unknown flag: --forbidden.*",
		cmd.ParseFlags([]string{"--forbidden="}).Error())
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	lockDir := filepath.Join(t.TempDir(), "locks")
	configPath := filepath.Join(t.TempDir(), "bidsflow.toml")
	configContent := fmt.Sprintf(`
rawdata-root = "/from/file/rawdata"
derivatives-root = "/from/file/derivatives"
max-instances = 3
lock-dir = "%s"

[log]
level = "warn"
`, lockDir)
	require.Nil(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	cmd := new(cobra.Command)
	o := newOptions()
	o.addFlags(cmd)

	require.Nil(t, cmd.ParseFlags([]string{
		"--config", configPath,
		"--rawdata-root", "/from/flag/rawdata",
		"--max-instances", "5",
	}))
	conf, err := o.loadAndVerifyConfig(cmd)
	require.Nil(t, err)
	require.Equal(t, "/from/flag/rawdata", conf.RawdataRoot)
	require.Equal(t, "/from/file/derivatives", conf.DerivativesRoot)
	require.Equal(t, 5, conf.MaxInstances)
	require.Equal(t, "warn", conf.Log.Level)
	require.Equal(t, lockDir, conf.LockDir)
}

func TestUnknownConfigFileKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bidsflow.toml")
	require.Nil(t, os.WriteFile(configPath, []byte("no-such-key = true\n"), 0o644))

	cmd := new(cobra.Command)
	o := newOptions()
	o.addFlags(cmd)

	require.Nil(t, cmd.ParseFlags([]string{"--config", configPath}))
	_, err := o.loadAndVerifyConfig(cmd)
	require.Error(t, err)
	require.Regexp(t, ".*contained unknown configuration options.*", err.Error())
}

func TestBuildJobsConfigMode(t *testing.T) {
	tablePath := filepath.Join(t.TempDir(), "batch.tsv")
	table := "dataset\tfmriprep\tqsiprep\n" +
		"ds000114\t25.1.4\t\n" +
		"ds000221\t\t1.0.1\n"
	require.Nil(t, os.WriteFile(tablePath, []byte(table), 0o644))

	cmd := new(cobra.Command)
	o := newOptions()
	o.addFlags(cmd)
	require.Nil(t, cmd.ParseFlags(nil))

	conf := config.GetDefaultConfig()
	conf.BatchTable = tablePath
	jobs, err := o.buildJobs(nil, conf)
	require.Nil(t, err)
	require.Equal(t, []batch.Job{
		{Dataset: "ds000114", Tool: tool.FMRIPrep, Version: "25.1.4"},
		{Dataset: "ds000221", Tool: tool.QSIPrep, Version: "1.0.1"},
	}, jobs)
}

func TestBuildJobsOverrideMode(t *testing.T) {
	cmd := new(cobra.Command)
	o := newOptions()
	o.addFlags(cmd)

	require.Nil(t, cmd.ParseFlags([]string{
		"--dataset", "ds000114",
		"--participant-label", "01",
		"--participant-label", "sub-02",
	}))
	jobs, err := o.buildJobs([]string{"fmriprep"}, config.GetDefaultConfig())
	require.Nil(t, err)
	require.Equal(t, []batch.Job{{
		Dataset:      "ds000114",
		Tool:         tool.FMRIPrep,
		Version:      "25.1.4",
		Participants: []string{"01", "02"},
	}}, jobs)
}

func TestBuildJobsVersionOverride(t *testing.T) {
	cmd := new(cobra.Command)
	o := newOptions()
	o.addFlags(cmd)

	require.Nil(t, cmd.ParseFlags([]string{
		"--dataset", "ds000114",
		"--tool-version", "24.0.0",
	}))
	jobs, err := o.buildJobs([]string{"fmriprep"}, config.GetDefaultConfig())
	require.Nil(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "24.0.0", jobs[0].Version)
}

func TestBuildJobsToolRequiresDataset(t *testing.T) {
	cmd := new(cobra.Command)
	o := newOptions()
	o.addFlags(cmd)

	require.Nil(t, cmd.ParseFlags(nil))
	_, err := o.buildJobs([]string{"freesurfer"}, config.GetDefaultConfig())
	require.True(t, cerror.ErrInvalidRunOption.Equal(err))
	require.Regexp(t, ".*--dataset is required.*", err.Error())
}

func TestBuildJobsOverrideFlagsNeedTool(t *testing.T) {
	cmd := new(cobra.Command)
	o := newOptions()
	o.addFlags(cmd)

	require.Nil(t, cmd.ParseFlags([]string{"--dataset", "ds000114"}))
	_, err := o.buildJobs(nil, config.GetDefaultConfig())
	require.True(t, cerror.ErrInvalidRunOption.Equal(err))
	require.Regexp(t, ".*need a tool argument.*", err.Error())
}

func TestBuildJobsUnknownTool(t *testing.T) {
	cmd := new(cobra.Command)
	o := newOptions()
	o.addFlags(cmd)

	require.Nil(t, cmd.ParseFlags([]string{"--dataset", "ds000114"}))
	_, err := o.buildJobs([]string{"spm"}, config.GetDefaultConfig())
	require.True(t, cerror.ErrUnknownTool.Equal(err))
}

func TestParseExtraArgs(t *testing.T) {
	args, err := parseExtraArgs([]string{
		"--mem 16G",
		`--output-spaces "MNI152NLin2009cAsym:res-2 anat"`,
	})
	require.Nil(t, err)
	require.Equal(t, []string{
		"--mem", "16G",
		"--output-spaces", "MNI152NLin2009cAsym:res-2 anat",
	}, args)

	_, err = parseExtraArgs([]string{`--broken "quote`})
	require.True(t, cerror.ErrInvalidRunOption.Equal(err))
}
