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

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	shellwords "github.com/mattn/go-shellwords"
	"github.com/pingcap/bidsflow/pkg/cmd/list"
	"github.com/pingcap/bidsflow/pkg/cmd/run"
	"github.com/pingcap/bidsflow/pkg/cmd/util"
	"github.com/pingcap/bidsflow/pkg/cmd/version"
	"github.com/spf13/cobra"
)

// options defines flags for the root command.
type options struct {
	interact bool
}

// newOptions creates new options for the root command.
func newOptions() *options {
	return &options{}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to template printing to it.
func (o *options) addFlags(c *cobra.Command) {
	if o == nil {
		return
	}
	c.PersistentFlags().BoolVarP(&o.interact, "interact", "i", false, "Run bidsflow with readline")
}

// NewCmd creates the root command.
func NewCmd() *cobra.Command {
	o := newOptions()

	cmds := &cobra.Command{
		Use:   "bidsflow",
		Short: "Run containerized neuroimaging pipelines over BIDS datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Whether to run interactively or not.
			if o.interact {
				loop()
				return nil
			}
			return cmd.Help()
		},
	}

	o.addFlags(cmds)

	// Add subcommands.
	cmds.AddCommand(run.NewCmdRun())
	cmds.AddCommand(list.NewCmdList())
	cmds.AddCommand(version.NewCmdVersion())

	return cmds
}

// Run runs the root command.
func Run() {
	cmd := NewCmd()

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	util.CheckErr(cmd.Execute())
}

// loop reads one command line at a time and executes it against a fresh
// command tree, so flag state never bleeds between lines.
func loop() {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[31m»\033[0m ",
		HistoryFile:       filepath.Join(os.TempDir(), "bidsflow-readline.tmp"),
		InterruptPrompt:   "^C",
		EOFPrompt:         "^D",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()

	for {
		line, err := l.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				break
			} else if err == io.EOF {
				break
			}
			continue
		}
		if line == "exit" {
			os.Exit(0)
		}
		args, err := shellwords.Parse(line)
		if err != nil {
			fmt.Printf("parse command err: %v\n", err)
			continue
		}

		command := NewCmd()
		command.SetArgs(args)
		_ = command.ParseFlags(args)
		command.SetOut(os.Stdout)
		command.SetErr(os.Stdout)
		if err = command.Execute(); err != nil {
			command.Println(err)
		}
	}
}
