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

package list

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pingcap/bidsflow/pkg/admission"
	"github.com/pingcap/bidsflow/pkg/cmd/util"
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
)

// listInstancesOptions defines flags for the `list instances` command.
type listInstancesOptions struct {
	*options
}

// newCmdListInstances creates the `list instances` command.
func newCmdListInstances(o *options) *cobra.Command {
	lo := &listInstancesOptions{options: o}

	return &cobra.Command{
		Use:   "instances",
		Short: "List live admission records of running pipeline containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return lo.run(cmd)
		},
	}
}

// run runs the `list instances` command. Listing reclaims stale records of
// dead processes as a side effect, exactly like acquisition does.
func (o *listInstancesOptions) run(cmd *cobra.Command) error {
	conf, err := o.resolveConfig(cmd)
	if err != nil {
		return errors.Trace(err)
	}
	ctrl, err := admission.New(conf.LockDir, conf.MaxInstances)
	if err != nil {
		return errors.Trace(err)
	}
	records, err := ctrl.List()
	if err != nil {
		return errors.Trace(err)
	}

	if o.output == "json" {
		if records == nil {
			records = []admission.Record{}
		}
		return util.JSONPrint(cmd, records)
	}
	if len(records) == 0 {
		cmd.Printf("No live instances in %s\n", conf.LockDir)
		return nil
	}
	now := time.Now()
	for _, rec := range records {
		cmd.Printf("pid %-8d %-44s acquired %s (%s)\n",
			rec.Pid, rec.Job,
			rec.AcquiredAt.Format(time.RFC3339),
			humanize.RelTime(rec.AcquiredAt, now, "ago", "from now"))
	}
	return nil
}
