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
	"fmt"
	"strings"

	cerror "github.com/pingcap/bidsflow/pkg/errors"
)

// Container-side mount points shared by every tool's argument rule.
const (
	RawdataMount     = "/rawdata"
	DerivativesMount = "/derivatives"
	LicenseMount     = "/opt/freesurfer/license.txt"
)

// Tool is one supported pipeline kind. The set is closed: every Tool carries
// its own default version, image owner and container argument rule, so an
// unknown name is rejected before any filesystem work starts.
type Tool string

// Enum values of Tool
const (
	// FreeSurfer runs structural reconstruction (recon-all).
	FreeSurfer Tool = "freesurfer"
	// FMRIPrep runs functional preprocessing as a BIDS app.
	FMRIPrep Tool = "fmriprep"
	// QSIPrep runs diffusion preprocessing as a BIDS app.
	QSIPrep Tool = "qsiprep"
)

// All returns the supported tools in canonical order.
func All() []Tool {
	return []Tool{FreeSurfer, FMRIPrep, QSIPrep}
}

// Names returns the names of all supported tools in canonical order.
func Names() []string {
	tools := All()
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, string(t))
	}
	return names
}

// Parse converts a tool name to its Tool value, it returns ErrUnknownTool
// for any name outside the enumeration.
func Parse(name string) (Tool, error) {
	switch t := Tool(strings.ToLower(name)); t {
	case FreeSurfer, FMRIPrep, QSIPrep:
		return t, nil
	default:
		return "", cerror.ErrUnknownTool.GenWithStackByArgs(name, strings.Join(Names(), ", "))
	}
}

// String implements fmt.Stringer.
func (t Tool) String() string {
	return string(t)
}

// DefaultVersion returns the version used when none is requested explicitly.
func (t Tool) DefaultVersion() string {
	switch t {
	case FreeSurfer:
		return "7.3.2"
	case FMRIPrep:
		return "25.1.4"
	case QSIPrep:
		return "1.0.1"
	}
	return ""
}

// Owner returns the registry namespace publishing the tool's container images.
func (t Tool) Owner() string {
	switch t {
	case FreeSurfer:
		return "freesurfer"
	case FMRIPrep:
		return "nipreps"
	case QSIPrep:
		return "pennlinc"
	}
	return ""
}

// ImageName returns the image file name under the image store directory.
func (t Tool) ImageName(version string) string {
	return fmt.Sprintf("%s.%s.%s.sif", t.Owner(), t, version)
}

// DockerRef returns the docker registry source the image is built from.
func (t Tool) DockerRef(version string) string {
	return fmt.Sprintf("docker://%s/%s:%s", t.Owner(), t, version)
}

// DefaultOutputLabel returns the derivatives subdirectory used when the
// operator does not name one.
func (t Tool) DefaultOutputLabel(version string) string {
	return fmt.Sprintf("%s_%s", t, version)
}

// RequiredModality returns the BIDS modality directory a participant must
// provide before this tool can run, e.g. "anat" for structural reconstruction.
func (t Tool) RequiredModality() string {
	switch t {
	case FreeSurfer:
		return "anat"
	case FMRIPrep:
		return "func"
	case QSIPrep:
		return "dwi"
	}
	return ""
}

// ContainerArgs returns the in-container command line for one participant.
// All paths are container-side mount points, never host paths.
func (t Tool) ContainerArgs(outputLabel, label string) []string {
	switch t {
	case FreeSurfer:
		return []string{
			"recon-all", "-all",
			"-subjid", "sub-" + label,
			"-i", fmt.Sprintf("%s/sub-%s/anat/sub-%s_T1w.nii.gz", RawdataMount, label, label),
			"-sd", DerivativesMount + "/" + outputLabel,
		}
	case FMRIPrep:
		return []string{
			RawdataMount, DerivativesMount + "/" + outputLabel, "participant",
			"--participant-label", label,
			"--fs-license-file", LicenseMount,
			"--output-spaces", "MNI152NLin2009cAsym:res-2",
		}
	case QSIPrep:
		return []string{
			RawdataMount, DerivativesMount + "/" + outputLabel, "participant",
			"--participant-label", label,
			"--fs-license-file", LicenseMount,
			"--output-resolution", "2",
		}
	}
	return nil
}
