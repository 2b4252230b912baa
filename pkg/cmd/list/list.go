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
	"github.com/pingcap/bidsflow/pkg/cmd/util"
	"github.com/pingcap/bidsflow/pkg/config"
	"github.com/pingcap/bidsflow/pkg/logutil"
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
)

// options defines flags shared by every `list` subcommand.
type options struct {
	configFilePath  string
	rawdataRoot     string
	derivativesRoot string
	lockDir         string
	maxInstances    int
	logLevel        string
	output          string
}

// newOptions creates new options for the `list` command.
func newOptions() *options {
	return &options{}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to template printing to it.
func (o *options) addFlags(cmd *cobra.Command) {
	defaultCfg := config.GetDefaultConfig()
	cmd.PersistentFlags().StringVar(&o.configFilePath, "config", "", "path of the configuration file")
	cmd.PersistentFlags().StringVar(&o.rawdataRoot, "rawdata-root", defaultCfg.RawdataRoot, "root directory holding <dataset>-rawdata directories")
	cmd.PersistentFlags().StringVar(&o.derivativesRoot, "derivatives-root", defaultCfg.DerivativesRoot, "root directory holding <dataset>-derivatives directories")
	cmd.PersistentFlags().StringVar(&o.lockDir, "lock-dir", defaultCfg.LockDir, "shared directory of admission records")
	cmd.PersistentFlags().IntVar(&o.maxInstances, "max-instances", defaultCfg.MaxInstances, "maximum number of concurrently admitted pipeline containers")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "warn", "log level (etc: debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&o.output, "output", "text", "output format (text|json)")
}

// resolveConfig merges the configuration file and the list flags, flags win.
func (o *options) resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	conf := config.GetDefaultConfig()
	if o.configFilePath != "" {
		if err := util.StrictDecodeFile(o.configFilePath, "bidsflow", conf); err != nil {
			return nil, err
		}
	}
	if f := cmd.Flag("rawdata-root"); f != nil && f.Changed {
		conf.RawdataRoot = o.rawdataRoot
	}
	if f := cmd.Flag("derivatives-root"); f != nil && f.Changed {
		conf.DerivativesRoot = o.derivativesRoot
	}
	if f := cmd.Flag("lock-dir"); f != nil && f.Changed {
		conf.LockDir = o.lockDir
	}
	if f := cmd.Flag("max-instances"); f != nil && f.Changed {
		conf.MaxInstances = o.maxInstances
	}
	return conf, nil
}

func (o *options) validOutput() error {
	switch o.output {
	case "text", "json":
		return nil
	}
	return errors.Errorf("invalid output format %s, expected text or json", o.output)
}

// NewCmdList creates the `list` command.
func NewCmdList() *cobra.Command {
	o := newOptions()

	cmds := &cobra.Command{
		Use:   "list",
		Short: "List datasets, pending participants and live pipeline instances",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Listing is read-only and quick, the default signal behavior
			// is good enough.
			_ = util.InitCmd(cmd, &logutil.Config{Level: o.logLevel})
			return o.validOutput()
		},
	}

	o.addFlags(cmds)

	// Add subcommands.
	cmds.AddCommand(newCmdListDatasets(o))
	cmds.AddCommand(newCmdListMissing(o))
	cmds.AddCommand(newCmdListInstances(o))

	return cmds
}
