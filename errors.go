// Copyright 2026 The Tablevet Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tablevet

import (
	"errors"
	"fmt"
)

// ErrBackendUnsupported marks an operation the active table backend cannot
// express (e.g. regex matching on SQLite). It surfaces wrapped inside an
// ExecutionError on the affected step.
var ErrBackendUnsupported = errors.New("operation not supported by table backend")

// ResolutionError: a column or value reference cannot be resolved against
// the table at interrogation time. Confined to the one step.
type ResolutionError struct {
	Selector string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %s: %v", e.Selector, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// TransformError: a precondition or segmentation expression failed to
// evaluate. Confined to the one step.
type TransformError struct {
	Stage string // "preconditions" or "segments"
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// ExecutionError: the assertion's computation itself failed (type
// mismatch, backend-unsupported operation). Confined to the one step.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ConfigurationError: invalid step parameters detected at plan-build time.
// Raised immediately by the append operation, never deferred.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return e.Reason }

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// DispatchError: an action callback raised. Propagates out of
// interrogation immediately; actions are the caller's escalation hook.
type DispatchError struct {
	StepID   string
	Severity Severity
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("action %q for step %s failed: %v", e.Severity, e.StepID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
