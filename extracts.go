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
	"context"
	"errors"
	"fmt"
)

// Extract returns the failing-row subset recorded for the step with index
// i (first materialized row when segments expanded it). Nil when the step
// has nothing to extract.
func (a *Agent) Extract(ctx context.Context, i int) ([]map[string]any, error) {
	for _, s := range a.Steps() {
		if s.I == i {
			return s.Extract(ctx)
		}
	}
	return nil, fmt.Errorf("no step with index %d", i)
}

// CollectExtracts warms the failing-row extract cache of every failed step
// using a bounded pool; each task issues independent read-only queries, so
// this is safe after the sequential interrogation has completed. The
// per-step caps still apply. Returns the joined task errors, if any.
func (a *Agent) CollectExtracts(ctx context.Context, poolSize int) error {
	if !a.interrogated {
		return fmt.Errorf("agent has not been interrogated")
	}

	pool := NewTaskPool(poolSize, a.logger)
	for _, s := range a.FailedSteps() {
		if !s.HasExtract() {
			continue
		}
		step := s
		pool.Enqueue(step.StepID, func() error {
			_, err := step.Extract(ctx)
			return err
		})
	}
	pool.Join()

	return errors.Join(pool.Errors()...)
}
