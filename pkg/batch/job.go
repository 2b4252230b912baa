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
	"fmt"

	"github.com/pingcap/bidsflow/pkg/tool"
)

// Job is one requested (dataset, tool, version) unit of work plus the
// participants it applies to. An empty participant list means "all pending",
// resolved against the completion diff at run time. A job never mixes tools.
type Job struct {
	Dataset      string
	Tool         tool.Tool
	Version      string
	Participants []string
}

// String returns the job descriptor recorded in admission lock records.
func (j Job) String() string {
	return fmt.Sprintf("%s/%s@%s", j.Dataset, j.Tool, j.Version)
}

// ExpandTable expands the batch table into jobs in row-then-column order of
// the source table. Empty version cells expand to nothing.
func ExpandTable(table *Table) []Job {
	var jobs []Job
	for _, row := range table.Rows {
		for i, t := range table.Tools {
			if row.Versions[i] == "" {
				continue
			}
			jobs = append(jobs, Job{Dataset: row.Dataset, Tool: t, Version: row.Versions[i]})
		}
	}
	return jobs
}

// SingleJob builds the one job of an override-mode invocation, bypassing the
// batch table. An empty version selects the tool's default; beyond that no
// tool or version is ever invented.
func SingleJob(dataset string, t tool.Tool, version string, labels []string) Job {
	if version == "" {
		version = t.DefaultVersion()
	}
	return Job{Dataset: dataset, Tool: t, Version: version, Participants: labels}
}
