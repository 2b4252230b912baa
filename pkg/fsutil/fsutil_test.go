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

package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsDirWritable(t *testing.T) {
	dir := t.TempDir()
	require.Nil(t, IsDirWritable(dir))

	require.Nil(t, os.Chmod(dir, 0o400))
	me, err := user.Current()
	require.Nil(t, err)
	if me.Name == "root" || runtime.GOOS == "windows" {
		// chmod is not supported under windows.
		t.Skip("test case is running as a superuser or in windows")
	}
	err = IsDirWritable(dir)
	require.Regexp(t, ".*permission denied.*", err.Error())
}

func TestIsDirAndWritable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.test")

	err := IsDirAndWritable(path)
	require.Regexp(t, ".*no such file or directory.*", err.Error())

	require.Nil(t, os.WriteFile(path, nil, 0o600))
	err = IsDirAndWritable(path)
	require.Regexp(t, ".*is not a directory.*", err.Error())

	require.Nil(t, IsDirAndWritable(dir))
}
