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

package batch

import (
	"strings"
	"testing"

	"github.com/pingcap/bidsflow/pkg/tool"
	"github.com/stretchr/testify/require"
)

func TestExpandTable(t *testing.T) {
	t.Parallel()

	table, err := ParseTable(strings.NewReader(
		"dataset\tfreesurfer\tfmriprep\tqsiprep\nds1\t7.3.2\t25.1.4\t\n"))
	require.Nil(t, err)

	// the empty qsiprep cell expands to nothing
	jobs := ExpandTable(table)
	require.Equal(t, []Job{
		{Dataset: "ds1", Tool: tool.FreeSurfer, Version: "7.3.2"},
		{Dataset: "ds1", Tool: tool.FMRIPrep, Version: "25.1.4"},
	}, jobs)
}

func TestExpandTableOrder(t *testing.T) {
	t.Parallel()

	table := &Table{
		Tools: []tool.Tool{tool.QSIPrep, tool.FreeSurfer},
		Rows: []Row{
			{Dataset: "ds2", Versions: []string{"1.0.1", "7.3.2"}},
			{Dataset: "ds1", Versions: []string{"", "6.0.0"}},
		},
	}

	// rows first, then header column order within a row
	jobs := ExpandTable(table)
	require.Equal(t, []string{
		"ds2/qsiprep@1.0.1",
		"ds2/freesurfer@7.3.2",
		"ds1/freesurfer@6.0.0",
	}, []string{jobs[0].String(), jobs[1].String(), jobs[2].String()})
}

func TestSingleJob(t *testing.T) {
	t.Parallel()

	job := SingleJob("ds1", tool.FMRIPrep, "", []string{"01", "02"})
	require.Equal(t, "ds1/fmriprep@25.1.4", job.String())
	require.Equal(t, []string{"01", "02"}, job.Participants)

	job = SingleJob("ds1", tool.FMRIPrep, "24.0.0", nil)
	require.Equal(t, "24.0.0", job.Version)
	require.Empty(t, job.Participants)
}
