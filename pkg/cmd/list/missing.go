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
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pingcap/bidsflow/pkg/bids"
	"github.com/pingcap/bidsflow/pkg/cmd/util"
	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/pingcap/bidsflow/pkg/tool"
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
)

// listMissingOptions defines flags for the `list missing` command.
type listMissingOptions struct {
	*options

	dataset     string
	toolVersion string
	outputLabel string
}

// missingReport is the JSON shape of `list missing --output json`.
type missingReport struct {
	Dataset     string   `json:"dataset"`
	Tool        string   `json:"tool"`
	Version     string   `json:"version"`
	OutputLabel string   `json:"output-label"`
	Missing     []string `json:"missing"`
}

// newCmdListMissing creates the `list missing` command.
func newCmdListMissing(o *options) *cobra.Command {
	lo := &listMissingOptions{options: o}

	command := &cobra.Command{
		Use:   "missing <tool>",
		Short: "List participants a tool has not completed for a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return lo.run(cmd, args)
		},
	}
	command.Flags().StringVar(&lo.dataset, "dataset", "", "dataset identifier")
	command.Flags().StringVar(&lo.toolVersion, "tool-version", "", "tool version overriding the built-in default")
	command.Flags().StringVar(&lo.outputLabel, "output-label", "", "derivatives subdirectory name, default <tool>_<version>")
	// the possible error returned from MarkFlagRequired is `no such flag`
	command.MarkFlagRequired("dataset") //nolint:errcheck

	return command
}

// run runs the `list missing` command.
func (o *listMissingOptions) run(cmd *cobra.Command, args []string) error {
	conf, err := o.resolveConfig(cmd)
	if err != nil {
		return errors.Trace(err)
	}
	t, err := tool.Parse(args[0])
	if err != nil {
		return errors.Trace(err)
	}
	version := o.toolVersion
	if version == "" {
		version = t.DefaultVersion()
	}
	outputLabel := o.outputLabel
	if outputLabel == "" {
		outputLabel = t.DefaultOutputLabel(version)
	}

	rawDir := bids.RawdataDir(conf.RawdataRoot, o.dataset)
	if _, err := os.Stat(rawDir); err != nil {
		if ids, derr := bids.Datasets(conf.RawdataRoot); derr == nil && len(ids) > 0 {
			cmd.Printf(color.HiYellowString("[WARN] available datasets: %s\n", strings.Join(ids, ", ")))
		}
		return cerror.ErrDatasetNotFound.GenWithStackByArgs(o.dataset, conf.RawdataRoot)
	}
	outDir := filepath.Join(bids.DerivativesDir(conf.DerivativesRoot, o.dataset), outputLabel)
	missing, err := bids.Missing(rawDir, outDir)
	if err != nil {
		return errors.Trace(err)
	}

	if o.output == "json" {
		if missing == nil {
			missing = []string{}
		}
		return util.JSONPrint(cmd, &missingReport{
			Dataset:     o.dataset,
			Tool:        t.String(),
			Version:     version,
			OutputLabel: outputLabel,
			Missing:     missing,
		})
	}
	if len(missing) == 0 {
		cmd.Printf("All participants of %s complete for %s@%s\n", o.dataset, t, version)
		return nil
	}
	cmd.Printf("%d participant(s) pending for %s/%s@%s\n", len(missing), o.dataset, t, version)
	for _, label := range missing {
		cmd.Println(bids.SubjectDirName(label))
	}
	return nil
}
