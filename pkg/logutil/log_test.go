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

package logutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLoggerAndSetLogLevel(t *testing.T) {
	f := filepath.Join(t.TempDir(), "test.log")
	cfg := &Config{
		Level: "warning",
		File:  f,
	}
	err := InitLogger(cfg)
	require.Nil(t, err)
	require.Equal(t, zapcore.WarnLevel, log.GetLevel())

	// Set a different level.
	err = SetLogLevel("info")
	require.Nil(t, err)
	require.Equal(t, zapcore.InfoLevel, log.GetLevel())

	// Set the same level.
	err = SetLogLevel("info")
	require.Nil(t, err)
	require.Equal(t, zapcore.InfoLevel, log.GetLevel())

	// Set an invalid level.
	err = SetLogLevel("badlevel")
	require.NotNil(t, err)
}

func TestZapErrorFilter(t *testing.T) {
	var (
		err       = errors.New("test error")
		testCases = []struct {
			err      error
			filters  []error
			expected zap.Field
		}{
			{nil, []error{}, zap.Error(nil)},
			{err, []error{}, zap.Error(err)},
			{err, []error{context.Canceled}, zap.Error(err)},
			{err, []error{err}, zap.Error(nil)},
			{context.Canceled, []error{context.Canceled}, zap.Error(nil)},
			{errors.Annotate(context.Canceled, "annotate error"), []error{context.Canceled}, zap.Error(nil)},
		}
	)
	for _, tc := range testCases {
		require.Equal(t, tc.expected, ZapErrorFilter(tc.err, tc.filters...))
	}
}

func TestShortError(t *testing.T) {
	require.Equal(t, zap.Skip(), ShortError(nil))
	err := errors.New("short error")
	require.Equal(t, zap.String("error", "short error"), ShortError(err))
}

func TestAdjust(t *testing.T) {
	cfg := &Config{}
	cfg.Adjust()
	require.Equal(t, "info", cfg.Level)
	require.Equal(t, defaultLogMaxSize, cfg.FileMaxSize)
	require.Equal(t, defaultLogMaxDays, cfg.FileMaxDays)

	cfg = &Config{Level: "warning"}
	cfg.Adjust()
	require.Equal(t, "warn", cfg.Level)
}
