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

package leakutil

import (
	"testing"

	"go.uber.org/goleak"
)

// SetUpLeakTest ignore unrelated goroutines,
// and set up the goroutine leak check in m.
func SetUpLeakTest(m *testing.M, opts ...goleak.Option) {
	opts = append(opts,
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)

	goleak.VerifyTestMain(m, opts...)
}

// VerifyNone verifies that no unexpected leaks occur at the end of a single test.
func VerifyNone(t *testing.T, opts ...goleak.Option) {
	opts = append(opts,
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)

	goleak.VerifyNone(t, opts...)
}
