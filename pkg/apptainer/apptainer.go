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

// Package apptainer drives the Apptainer container runtime through os/exec:
// a Store materializes tool images, a Launcher runs one participant's
// pipeline inside an image. Both wait for the subprocess synchronously and
// honor context cancellation.
package apptainer

import (
	"context"
	"os/exec"

	cerror "github.com/pingcap/bidsflow/pkg/errors"
)

const binaryName = "apptainer"

// ExecCommandFunc builds the command a Store or Launcher executes. Tests
// substitute it to observe assembled command lines without a runtime.
type ExecCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

func defaultExecCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// Installed reports whether the apptainer binary is reachable through PATH.
func Installed() error {
	if _, err := exec.LookPath(binaryName); err != nil {
		return cerror.WrapError(cerror.ErrApptainerNotFound, err)
	}
	return nil
}
