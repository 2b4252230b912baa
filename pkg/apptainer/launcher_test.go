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

package apptainer

import (
	"context"
	"testing"

	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/pingcap/bidsflow/pkg/tool"
	"github.com/stretchr/testify/require"
)

func TestCommandLine(t *testing.T) {
	t.Parallel()

	launcher := NewLauncher()
	spec := LaunchSpec{
		Image:          "/opt/apptainer/freesurfer.freesurfer.7.3.2.sif",
		RawdataDir:     "/data/ds1-rawdata",
		DerivativesDir: "/data/ds1-derivatives",
		License:        "/opt/freesurfer/license.txt",
		Tool:           tool.FreeSurfer,
		OutputLabel:    "freesurfer_7.3.2",
		Participant:    "01",
	}

	require.Equal(t,
		"apptainer run"+
			" -B /data/ds1-rawdata:/rawdata"+
			" -B /data/ds1-derivatives:/derivatives"+
			" -B /opt/freesurfer/license.txt:/opt/freesurfer/license.txt"+
			" /opt/apptainer/freesurfer.freesurfer.7.3.2.sif"+
			" recon-all -all -subjid sub-01"+
			" -i /rawdata/sub-01/anat/sub-01_T1w.nii.gz"+
			" -sd /derivatives/freesurfer_7.3.2",
		launcher.CommandLine(spec))
}

func TestRunUsesInjectedExec(t *testing.T) {
	t.Parallel()

	recorder := &execRecorder{}
	launcher := &Launcher{execCommand: recorder.command}
	spec := LaunchSpec{
		Image:          "/opt/apptainer/nipreps.fmriprep.25.1.4.sif",
		RawdataDir:     "/data/ds1-rawdata",
		DerivativesDir: "/data/ds1-derivatives",
		License:        "/opt/freesurfer/license.txt",
		Tool:           tool.FMRIPrep,
		OutputLabel:    "fmriprep_25.1.4",
		Participant:    "02",
		ExtraArgs:      []string{"--nthreads", "4"},
	}

	require.Nil(t, launcher.Run(context.Background(), spec))
	require.Equal(t, []string{"apptainer"}, recorder.names)
	require.Len(t, recorder.args, 1)
	args := recorder.args[0]
	require.Equal(t, "run", args[0])
	require.Contains(t, args, "/opt/apptainer/nipreps.fmriprep.25.1.4.sif")
	// extra args go last, after the tool's own command line
	require.Equal(t, []string{"--nthreads", "4"}, args[len(args)-2:])
}

func TestRunNonzeroExit(t *testing.T) {
	t.Parallel()

	recorder := &execRecorder{fail: true}
	launcher := &Launcher{execCommand: recorder.command}

	err := launcher.Run(context.Background(), LaunchSpec{
		Tool:        tool.QSIPrep,
		OutputLabel: "qsiprep_1.0.1",
		Participant: "03",
	})
	require.True(t, cerror.ErrPipelineFailed.Equal(err))
	require.Regexp(t, "pipeline qsiprep failed for participant sub-03", err.Error())
}
