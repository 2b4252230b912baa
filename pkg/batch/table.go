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

// Package batch turns the declarative dataset-by-tool batch table into an
// ordered list of jobs. Parsing is strict: a malformed table aborts the
// invocation before any job runs.
package batch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	cerror "github.com/pingcap/bidsflow/pkg/errors"
	"github.com/pingcap/bidsflow/pkg/tool"
	"github.com/pingcap/errors"
)

// Row is one dataset line of the batch table. Versions aligns with the
// table's Tools column order, an empty cell meaning "not requested".
type Row struct {
	Dataset  string
	Versions []string
}

// Table is the parsed batch table. Header column order and file row order
// are preserved, they determine the order jobs expand in.
type Table struct {
	Tools []tool.Tool
	Rows  []Row
}

// LoadTable reads and parses the batch table at path.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerror.WrapError(cerror.ErrBatchTableRead, err, path)
	}
	return ParseTable(bytes.NewReader(data))
}

// ParseTable parses tab-delimited batch table content. The first content
// line is the header `dataset<TAB>tool...`; every data row carries a dataset
// id and one version cell per tool column. Blank lines and lines starting
// with '#' are skipped.
func ParseTable(r io.Reader) (*Table, error) {
	var (
		table   = &Table{}
		seen    = make(map[string]struct{})
		scanner = bufio.NewScanner(r)
		lineNo  = 0
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		cells := strings.Split(line, "\t")
		if table.Tools == nil {
			tools, err := parseHeader(cells)
			if err != nil {
				return nil, err
			}
			table.Tools = tools
			continue
		}

		row, err := parseRow(cells, len(table.Tools), lineNo)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[row.Dataset]; ok {
			return nil, cerror.ErrBatchTableDuplicateDataset.GenWithStackByArgs(row.Dataset)
		}
		seen[row.Dataset] = struct{}{}
		table.Rows = append(table.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	if table.Tools == nil {
		return nil, cerror.ErrBatchTableHeader.GenWithStackByArgs("table is empty")
	}
	return table, nil
}

func parseHeader(cells []string) ([]tool.Tool, error) {
	if !strings.EqualFold(strings.TrimSpace(cells[0]), "dataset") {
		return nil, cerror.ErrBatchTableHeader.
			GenWithStackByArgs(fmt.Sprintf("first column must be dataset, got %q", cells[0]))
	}
	if len(cells) < 2 {
		return nil, cerror.ErrBatchTableHeader.GenWithStackByArgs("no tool columns")
	}

	tools := make([]tool.Tool, 0, len(cells)-1)
	seen := make(map[tool.Tool]struct{}, len(cells)-1)
	for _, cell := range cells[1:] {
		t, err := tool.Parse(strings.TrimSpace(cell))
		if err != nil {
			return nil, cerror.WrapError(cerror.ErrBatchTableHeader, err, "unknown tool column")
		}
		if _, ok := seen[t]; ok {
			return nil, cerror.ErrBatchTableHeader.
				GenWithStackByArgs(fmt.Sprintf("tool %s appears twice", t))
		}
		seen[t] = struct{}{}
		tools = append(tools, t)
	}
	return tools, nil
}

func parseRow(cells []string, toolCount, lineNo int) (Row, error) {
	if len(cells) != toolCount+1 {
		return Row{}, cerror.ErrBatchTableRow.
			GenWithStackByArgs(lineNo, fmt.Sprintf("expected %d columns, got %d", toolCount+1, len(cells)))
	}
	dataset := strings.TrimSpace(cells[0])
	if dataset == "" {
		return Row{}, cerror.ErrBatchTableRow.GenWithStackByArgs(lineNo, "empty dataset id")
	}

	versions := make([]string, toolCount)
	for i, cell := range cells[1:] {
		versions[i] = strings.TrimSpace(cell)
	}
	return Row{Dataset: dataset, Versions: versions}, nil
}
