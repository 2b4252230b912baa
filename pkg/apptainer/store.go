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
	"path/filepath"

	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/pingcap/bidsflow/pkg/tool"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// Store materializes tool container images under one directory, one `.sif`
// file per (tool, version).
type Store struct {
	dir         string
	execCommand ExecCommandFunc
}

// NewStore returns a Store over dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, execCommand: defaultExecCommand}
}

// ImagePath returns where the image for (tool, version) lives in the store.
func (s *Store) ImagePath(t tool.Tool, version string) string {
	return filepath.Join(s.dir, t.ImageName(version))
}

// Ensure returns the image path for (tool, version), building the image from
// its docker source first when the store does not hold it yet. Builds stream
// their output to the invoking terminal, they can run for a long time.
func (s *Store) Ensure(ctx context.Context, t tool.Tool, version string) (string, error) {
	path := s.ImagePath(t, version)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", errors.Trace(err)
	}

	log.Warn("apptainer image not in store, building it",
		zap.String("image", path),
		zap.String("source", t.DockerRef(version)))
	cmd := s.execCommand(ctx, binaryName, "build", path, t.DockerRef(version))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	log.Info("start executing command", zap.String("cmd", cmd.String()))
	if err := cmd.Run(); err != nil {
		return "", cerror.WrapError(cerror.ErrImageBuildFailed, err, t.ImageName(version))
	}
	log.Info("apptainer image built", zap.String("image", path))
	return path, nil
}
