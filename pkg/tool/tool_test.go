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

package tool

import (
	"testing"

	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		parsed, err := Parse(name)
		require.Nil(t, err)
		require.Equal(t, name, parsed.String())
	}

	// names are case insensitive
	parsed, err := Parse("FreeSurfer")
	require.Nil(t, err)
	require.Equal(t, FreeSurfer, parsed)

	_, err = Parse("spm")
	require.True(t, cerror.ErrUnknownTool.Equal(err))
	require.Regexp(t, "freesurfer, fmriprep, qsiprep", err.Error())
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		tool     Tool
		version  string
		owner    string
		modality string
	}{
		{FreeSurfer, "7.3.2", "freesurfer", "anat"},
		{FMRIPrep, "25.1.4", "nipreps", "func"},
		{QSIPrep, "1.0.1", "pennlinc", "dwi"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.version, tc.tool.DefaultVersion())
		require.Equal(t, tc.owner, tc.tool.Owner())
		require.Equal(t, tc.modality, tc.tool.RequiredModality())
	}
}

func TestImageNaming(t *testing.T) {
	t.Parallel()

	require.Equal(t, "freesurfer.freesurfer.7.3.2.sif", FreeSurfer.ImageName("7.3.2"))
	require.Equal(t, "nipreps.fmriprep.25.1.4.sif", FMRIPrep.ImageName("25.1.4"))
	require.Equal(t, "docker://pennlinc/qsiprep:1.0.1", QSIPrep.DockerRef("1.0.1"))
	require.Equal(t, "fmriprep_25.1.4", FMRIPrep.DefaultOutputLabel("25.1.4"))
}

func TestContainerArgs(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{
		"recon-all", "-all",
		"-subjid", "sub-01",
		"-i", "/rawdata/sub-01/anat/sub-01_T1w.nii.gz",
		"-sd", "/derivatives/freesurfer_7.3.2",
	}, FreeSurfer.ContainerArgs("freesurfer_7.3.2", "01"))

	require.Equal(t, []string{
		"/rawdata", "/derivatives/fmriprep_25.1.4", "participant",
		"--participant-label", "01",
		"--fs-license-file", "/opt/freesurfer/license.txt",
		"--output-spaces", "MNI152NLin2009cAsym:res-2",
	}, FMRIPrep.ContainerArgs("fmriprep_25.1.4", "01"))

	require.Equal(t, []string{
		"/rawdata", "/derivatives/qsiprep_1.0.1", "participant",
		"--participant-label", "02",
		"--fs-license-file", "/opt/freesurfer/license.txt",
		"--output-resolution", "2",
	}, QSIPrep.ContainerArgs("qsiprep_1.0.1", "02"))
}
