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
	"github.com/pingcap/bidsflow/pkg/bids"
	"github.com/pingcap/bidsflow/pkg/cmd/util"
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
)

// listDatasetsOptions defines flags for the `list datasets` command.
type listDatasetsOptions struct {
	*options
}

// newCmdListDatasets creates the `list datasets` command.
func newCmdListDatasets(o *options) *cobra.Command {
	lo := &listDatasetsOptions{options: o}

	return &cobra.Command{
		Use:   "datasets",
		Short: "List datasets under the rawdata root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return lo.run(cmd)
		},
	}
}

// run runs the `list datasets` command.
func (o *listDatasetsOptions) run(cmd *cobra.Command) error {
	conf, err := o.resolveConfig(cmd)
	if err != nil {
		return errors.Trace(err)
	}
	ids, err := bids.Datasets(conf.RawdataRoot)
	if err != nil {
		return errors.Trace(err)
	}

	if o.output == "json" {
		if ids == nil {
			ids = []string{}
		}
		return util.JSONPrint(cmd, ids)
	}
	if len(ids) == 0 {
		cmd.Printf("No datasets found in %s\n", conf.RawdataRoot)
		return nil
	}
	for _, id := range ids {
		cmd.Println(id)
	}
	return nil
}
