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

package errors

import (
	"github.com/pingcap/errors"
)

// errors
var (
	// batch table related errors
	ErrBatchTableRead = errors.Normalize(
		"read batch table %s",
		errors.RFCCodeText("BFL:ErrBatchTableRead"),
	)
	ErrBatchTableHeader = errors.Normalize(
		"invalid batch table header: %s",
		errors.RFCCodeText("BFL:ErrBatchTableHeader"),
	)
	ErrBatchTableRow = errors.Normalize(
		"invalid batch table line %d: %s",
		errors.RFCCodeText("BFL:ErrBatchTableRow"),
	)
	ErrBatchTableDuplicateDataset = errors.Normalize(
		"dataset %s declared more than once in batch table",
		errors.RFCCodeText("BFL:ErrBatchTableDuplicateDataset"),
	)

	// tool related errors
	ErrUnknownTool = errors.Normalize(
		"unknown tool %s, supported tools are %s",
		errors.RFCCodeText("BFL:ErrUnknownTool"),
	)

	// admission related errors
	ErrTooManyInstances = errors.Normalize(
		"admission limit reached (%d running, limit %d):\n%s",
		errors.RFCCodeText("BFL:ErrTooManyInstances"),
	)
	ErrAcquireSlot = errors.Normalize(
		"acquire admission slot",
		errors.RFCCodeText("BFL:ErrAcquireSlot"),
	)
	ErrReleaseSlot = errors.Normalize(
		"release admission slot %s",
		errors.RFCCodeText("BFL:ErrReleaseSlot"),
	)
	ErrListInstances = errors.Normalize(
		"list running instances",
		errors.RFCCodeText("BFL:ErrListInstances"),
	)

	// dataset and participant related errors
	ErrDatasetNotFound = errors.Normalize(
		"dataset %s not found under %s",
		errors.RFCCodeText("BFL:ErrDatasetNotFound"),
	)
	ErrParticipantNotFound = errors.Normalize(
		"none of the requested participants exist in dataset %s",
		errors.RFCCodeText("BFL:ErrParticipantNotFound"),
	)
	ErrScanParticipants = errors.Normalize(
		"scan participants under %s",
		errors.RFCCodeText("BFL:ErrScanParticipants"),
	)
	ErrScanDatasets = errors.Normalize(
		"scan datasets under %s",
		errors.RFCCodeText("BFL:ErrScanDatasets"),
	)
	ErrLicenseNotFound = errors.Normalize(
		"FreeSurfer license file not found: %s",
		errors.RFCCodeText("BFL:ErrLicenseNotFound"),
	)

	// container related errors
	ErrApptainerNotFound = errors.Normalize(
		"apptainer executable not found in PATH",
		errors.RFCCodeText("BFL:ErrApptainerNotFound"),
	)
	ErrImageBuildFailed = errors.Normalize(
		"failed to build apptainer image %s",
		errors.RFCCodeText("BFL:ErrImageBuildFailed"),
	)
	ErrPipelineFailed = errors.Normalize(
		"pipeline %s failed for participant sub-%s",
		errors.RFCCodeText("BFL:ErrPipelineFailed"),
	)

	// utility errors
	ErrReachMaxTry = errors.Normalize("reach maximum try: %s, error: %s",
		errors.RFCCodeText("BFL:ErrReachMaxTry"),
	)
	ErrCheckDirWritable = errors.Normalize(
		"check dir writable failed: %s",
		errors.RFCCodeText("BFL:ErrCheckDirWritable"),
	)
	ErrInvalidConfig = errors.Normalize(
		"invalid configuration: %s",
		errors.RFCCodeText("BFL:ErrInvalidConfig"),
	)
	ErrInvalidRunOption = errors.Normalize(
		"invalid run option: %s",
		errors.RFCCodeText("BFL:ErrInvalidRunOption"),
	)
)
