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

// WrapError generates a new error based on given `*errors.Error`, wraps the err
// as cause error. If given `err` is nil, returns a nil error, which is a
// different behavior against `Wrap` function in pingcap/errors.
func WrapError(rfcError *errors.Error, err error, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return rfcError.Wrap(err).GenWithStackByArgs(args...)
}

// IsTooManyInstances checks whether an error is caused by the admission limit.
// The run driver uses it to decide whether waiting for a free slot can help.
func IsTooManyInstances(err error) bool {
	return ErrTooManyInstances.Equal(errors.Cause(err))
}

// IsBatchTableError checks whether an error originates from batch table
// parsing or validation.
func IsBatchTableError(err error) bool {
	cause := errors.Cause(err)
	return ErrBatchTableRead.Equal(cause) ||
		ErrBatchTableHeader.Equal(cause) ||
		ErrBatchTableRow.Equal(cause) ||
		ErrBatchTableDuplicateDataset.Equal(cause)
}
