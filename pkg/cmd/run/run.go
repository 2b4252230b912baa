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

package run

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	shellwords "github.com/mattn/go-shellwords"
	"github.com/pingcap/bidsflow/pkg/admission"
	"github.com/pingcap/bidsflow/pkg/apptainer"
	"github.com/pingcap/bidsflow/pkg/batch"
	cmdcontext "github.com/pingcap/bidsflow/pkg/cmd/context"
	"github.com/pingcap/bidsflow/pkg/cmd/util"
	"github.com/pingcap/bidsflow/pkg/config"
	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/pingcap/bidsflow/pkg/runner"
	"github.com/pingcap/bidsflow/pkg/tool"
	"github.com/pingcap/bidsflow/pkg/version"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// options defines flags for the `run` command.
type options struct {
	cfg            *config.Config
	configFilePath string

	dataset      string
	participants []string
	toolVersion  string
	outputLabel  string
	extraArgs    []string
	wait         bool
	waitTimeout  time.Duration
	dryRun       bool
}

// newOptions creates new options for the `run` command.
func newOptions() *options {
	return &options{
		cfg: config.GetDefaultConfig(),
	}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to template printing to it.
func (o *options) addFlags(cmd *cobra.Command) {
	defaultCfg := config.GetDefaultConfig()
	cmd.Flags().StringVar(&o.cfg.RawdataRoot, "rawdata-root", defaultCfg.RawdataRoot, "root directory holding <dataset>-rawdata directories")
	cmd.Flags().StringVar(&o.cfg.DerivativesRoot, "derivatives-root", defaultCfg.DerivativesRoot, "root directory holding <dataset>-derivatives directories")
	cmd.Flags().StringVar(&o.cfg.ImageDir, "image-dir", defaultCfg.ImageDir, "directory storing apptainer images")
	cmd.Flags().StringVar(&o.cfg.FSLicense, "fs-license", defaultCfg.FSLicense, "path of the FreeSurfer license file")
	cmd.Flags().StringVar(&o.cfg.LockDir, "lock-dir", defaultCfg.LockDir, "shared directory of admission records")
	cmd.Flags().IntVar(&o.cfg.MaxInstances, "max-instances", defaultCfg.MaxInstances, "maximum number of concurrently admitted pipeline containers")
	cmd.Flags().StringVar(&o.cfg.BatchTable, "batch-table", defaultCfg.BatchTable, "path of the batch TSV table")
	cmd.Flags().StringVar(&o.cfg.Log.Level, "log-level", defaultCfg.Log.Level, "log level (etc: debug|info|warn|error)")
	cmd.Flags().StringVar(&o.cfg.Log.File, "log-file", defaultCfg.Log.File, "log file path")

	cmd.Flags().StringVar(&o.dataset, "dataset", "", "dataset identifier, required when a tool is named")
	cmd.Flags().StringSliceVar(&o.participants, "participant-label", nil, "participant labels to run, repeatable; default is every pending participant")
	cmd.Flags().StringVar(&o.toolVersion, "tool-version", "", "tool version overriding the built-in default")
	cmd.Flags().StringVar(&o.outputLabel, "output-label", "", "derivatives subdirectory name, default <tool>_<version>")
	cmd.Flags().StringArrayVar(&o.extraArgs, "extra-arg", nil, "extra argument appended to the pipeline command line, shell quoting allowed, repeatable")
	cmd.Flags().BoolVar(&o.wait, "wait", false, "wait for a free admission slot instead of failing when the instance limit is reached")
	cmd.Flags().DurationVar(&o.waitTimeout, "wait-timeout", 0, "bound the --wait time, 0 waits forever")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "log the assembled container commands without executing them")
	cmd.Flags().StringVar(&o.configFilePath, "config", "", "path of the configuration file")
}

// loadAndVerifyConfig merges the configuration file and the command line
// flags, flags win.
func (o *options) loadAndVerifyConfig(cmd *cobra.Command) (*config.Config, error) {
	conf := config.GetDefaultConfig()
	if len(o.configFilePath) > 0 {
		if err := util.StrictDecodeFile(o.configFilePath, "bidsflow", conf); err != nil {
			return nil, err
		}
	}
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "rawdata-root":
			conf.RawdataRoot = o.cfg.RawdataRoot
		case "derivatives-root":
			conf.DerivativesRoot = o.cfg.DerivativesRoot
		case "image-dir":
			conf.ImageDir = o.cfg.ImageDir
		case "fs-license":
			conf.FSLicense = o.cfg.FSLicense
		case "lock-dir":
			conf.LockDir = o.cfg.LockDir
		case "max-instances":
			conf.MaxInstances = o.cfg.MaxInstances
		case "batch-table":
			conf.BatchTable = o.cfg.BatchTable
		case "log-level":
			conf.Log.Level = o.cfg.Log.Level
		case "log-file":
			conf.Log.File = o.cfg.Log.File
		case "dataset", "participant-label", "tool-version", "output-label",
			"extra-arg", "wait", "wait-timeout", "dry-run", "config":
			// run options, not configuration
		default:
			log.Panic("unknown flag, please report a bug", zap.String("flagName", flag.Name))
		}
	})
	if err := conf.ValidateAndAdjust(); err != nil {
		return nil, errors.Trace(err)
	}
	return conf, nil
}

// buildJobs turns the command line into the job list: a named tool selects
// override mode for one dataset, otherwise the batch table drives the run.
func (o *options) buildJobs(args []string, conf *config.Config) ([]batch.Job, error) {
	if len(args) == 0 {
		if o.dataset != "" || o.toolVersion != "" || len(o.participants) > 0 {
			return nil, cerror.ErrInvalidRunOption.GenWithStackByArgs(
				"--dataset, --participant-label and --tool-version need a tool argument")
		}
		table, err := batch.LoadTable(conf.BatchTable)
		if err != nil {
			return nil, err
		}
		return batch.ExpandTable(table), nil
	}

	t, err := tool.Parse(args[0])
	if err != nil {
		return nil, err
	}
	if o.dataset == "" {
		return nil, cerror.ErrInvalidRunOption.GenWithStackByArgs(
			"--dataset is required when a tool is named")
	}
	labels := make([]string, 0, len(o.participants))
	for _, label := range o.participants {
		label = strings.TrimPrefix(strings.TrimSpace(label), "sub-")
		if label == "" {
			return nil, cerror.ErrInvalidRunOption.GenWithStackByArgs(
				"empty participant label")
		}
		labels = append(labels, label)
	}
	return []batch.Job{batch.SingleJob(o.dataset, t, o.toolVersion, labels)}, nil
}

// parseExtraArgs shellword-splits every --extra-arg value so quoted
// arguments survive the trip onto the container command line.
func parseExtraArgs(raw []string) ([]string, error) {
	var args []string
	for _, arg := range raw {
		words, err := shellwords.Parse(arg)
		if err != nil {
			return nil, cerror.ErrInvalidRunOption.GenWithStackByArgs(
				fmt.Sprintf("cannot parse extra argument %q: %v", arg, err))
		}
		args = append(args, words...)
	}
	return args, nil
}

// run runs the `run` command.
func (o *options) run(cmd *cobra.Command, args []string) error {
	conf, err := o.loadAndVerifyConfig(cmd)
	if err != nil {
		return errors.Trace(err)
	}

	cancel := util.InitCmd(cmd, conf.Log)
	defer cancel()
	util.InitSignalHandling(util.ImmediateShutdownNotify(), cancel)
	util.LogHTTPProxies()
	version.LogVersionInfo()

	jobs, err := o.buildJobs(args, conf)
	if err != nil {
		return errors.Trace(err)
	}
	if len(jobs) == 0 {
		cmd.Println("Nothing to run, the batch table names no jobs")
		return nil
	}
	extraArgs, err := parseExtraArgs(o.extraArgs)
	if err != nil {
		return errors.Trace(err)
	}
	if !o.dryRun {
		if err := apptainer.Installed(); err != nil {
			return errors.Trace(err)
		}
	}

	ctrl, err := admission.New(conf.LockDir, conf.MaxInstances)
	if err != nil {
		return errors.Trace(err)
	}
	driver := &runner.Driver{
		RawdataRoot:     conf.RawdataRoot,
		DerivativesRoot: conf.DerivativesRoot,
		License:         conf.FSLicense,
		Admission:       ctrl,
		Store:           apptainer.NewStore(conf.ImageDir),
		Launcher:        apptainer.NewLauncher(),
		Options: runner.Options{
			OutputLabel: o.outputLabel,
			ExtraArgs:   extraArgs,
			Wait:        o.wait,
			WaitTimeout: o.waitTimeout,
			DryRun:      o.dryRun,
		},
	}

	ctx := cmdcontext.GetDefaultContext()
	summary, err := driver.RunJobs(ctx, jobs)
	cmd.Printf("completed %d, skipped %d, failed %d\n",
		summary.Completed, summary.Skipped, summary.Failed)
	if summary.Failed > 0 {
		cmd.Printf(color.HiYellowString("[WARN] %d participant run(s) failed, see the log for details\n", summary.Failed))
	}
	if err != nil && errors.Cause(err) != context.Canceled {
		return errors.Trace(err)
	}
	return nil
}

// NewCmdRun creates the `run` command.
func NewCmdRun() *cobra.Command {
	o := newOptions()

	command := &cobra.Command{
		Use:   "run [tool]",
		Short: "Run pending pipeline jobs over BIDS datasets",
		Long: `Run pending pipeline jobs over BIDS datasets.

Without a tool argument every job of the batch table runs. Naming a tool
(` + strings.Join(tool.Names(), ", ") + `) switches to override mode for a
single dataset picked with --dataset.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}

	o.addFlags(command)

	return command
}
