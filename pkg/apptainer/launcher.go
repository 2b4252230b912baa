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
	"os"
	"os/exec"
	"strings"

	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/pingcap/bidsflow/pkg/tool"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// LaunchSpec describes one participant's container run. Host directories are
// bound to the fixed container-side mount points of pkg/tool.
type LaunchSpec struct {
	Image          string
	RawdataDir     string
	DerivativesDir string
	License        string
	Tool           tool.Tool
	OutputLabel    string
	Participant    string
	ExtraArgs      []string
}

// Launcher runs pipeline containers synchronously, streaming their output to
// the invoking terminal.
type Launcher struct {
	execCommand ExecCommandFunc
}

// NewLauncher returns a Launcher backed by the real apptainer binary.
func NewLauncher() *Launcher {
	return &Launcher{execCommand: defaultExecCommand}
}

func (l *Launcher) args(spec LaunchSpec) []string {
	args := []string{
		"run",
		"-B", spec.RawdataDir + ":" + tool.RawdataMount,
		"-B", spec.DerivativesDir + ":" + tool.DerivativesMount,
		"-B", spec.License + ":" + tool.LicenseMount,
		spec.Image,
	}
	args = append(args, spec.Tool.ContainerArgs(spec.OutputLabel, spec.Participant)...)
	return append(args, spec.ExtraArgs...)
}

// CommandLine returns the command Run would execute, for pre-launch logging
// and dry runs.
func (l *Launcher) CommandLine(spec LaunchSpec) string {
	return binaryName + " " + strings.Join(l.args(spec), " ")
}

// Run launches the container for one participant and waits for it. A nonzero
// exit becomes ErrPipelineFailed for that participant; canceling ctx kills
// the subprocess.
func (l *Launcher) Run(ctx context.Context, spec LaunchSpec) error {
	cmd := l.execCommand(ctx, binaryName, l.args(spec)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	log.Info("start executing command", zap.String("cmd", cmd.String()))
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			log.Warn("pipeline container exited abnormally",
				zap.String("tool", spec.Tool.String()),
				zap.String("participant", spec.Participant),
				zap.Int("exitCode", exitErr.ExitCode()))
		}
		return cerror.WrapError(cerror.ErrPipelineFailed, err, spec.Tool, spec.Participant)
	}
	return nil
}
