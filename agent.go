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
	"fmt"
	"io"
	"log/slog"
	"time"
)

const defaultExtractLimit = 500

// AgentOptions configures a new Agent. Exactly one of Table and
// TableProvider must be set; the provider form lets a plan be assembled
// before the table exists.
type AgentOptions struct {
	Table         Table
	TableProvider TableProvider
	Label         string
	// Actions is the default three-tier threshold configuration for steps
	// that do not carry their own.
	Actions *Actions
	// Handler is invoked once per firing tier per step.
	Handler ActionHandler
	// ExtractLimit caps the failing rows retained per step (default 500).
	ExtractLimit int
	Logger       *slog.Logger
}

// Agent owns the ordered validation plan and its interrogation lifecycle:
// Planned -> Interrogated. Steps may still be appended after an
// interrogation; re-interrogating re-executes the whole plan. An Agent is
// a single-writer object: do not interrogate it from multiple goroutines.
type Agent struct {
	label          string
	tbl            Table
	provider       TableProvider
	defaultActions *Actions
	handler        ActionHandler
	extractLimit   int
	logger         *slog.Logger

	plan    []*ValidationStep // as appended, never expanded
	results []*ValidationStep // materialized by the last interrogation

	stepIDs   map[string]bool
	nextI     int
	nextGroup int

	interrogated bool
	runID        string
	startedAt    time.Time
	endedAt      time.Time
}

func NewAgent(opts AgentOptions) (*Agent, error) {
	if (opts.Table == nil) == (opts.TableProvider == nil) {
		return nil, configErrorf("agent requires exactly one of Table or TableProvider")
	}
	if err := opts.Actions.validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	limit := opts.ExtractLimit
	if limit <= 0 {
		limit = defaultExtractLimit
	}

	return &Agent{
		label:          opts.Label,
		tbl:            opts.Table,
		provider:       opts.TableProvider,
		defaultActions: opts.Actions,
		handler:        opts.Handler,
		extractLimit:   limit,
		logger:         logger,
		stepIDs:        map[string]bool{},
	}, nil
}

func (a *Agent) Label() string { return a.label }

// Interrogated reports whether the plan has been executed at least once.
func (a *Agent) Interrogated() bool { return a.interrogated }

// RunID identifies the most recent interrogation.
func (a *Agent) RunID() string { return a.runID }

func (a *Agent) StartedAt() time.Time { return a.startedAt }
func (a *Agent) EndedAt() time.Time   { return a.endedAt }

// Steps returns the materialized step sequence of the last interrogation,
// or the planned (unexpanded) sequence when the agent has not been
// interrogated yet. The returned records are live; treat them as
// read-only.
func (a *Agent) Steps() []*ValidationStep {
	if a.interrogated {
		return a.results
	}
	return a.plan
}

// PlanLength returns the number of planned (pre-expansion) steps.
func (a *Agent) PlanLength() int { return len(a.plan) }

// StepsWhere filters the current step sequence.
func (a *Agent) StepsWhere(keep func(*ValidationStep) bool) []*ValidationStep {
	var out []*ValidationStep
	for _, s := range a.Steps() {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// FailedSteps returns evaluated steps with at least one failing test unit.
func (a *Agent) FailedSteps() []*ValidationStep {
	return a.StepsWhere(func(s *ValidationStep) bool {
		return s.Evaluated && s.NFailed > 0
	})
}

// ErroredSteps returns steps whose execution captured an error.
func (a *Agent) ErroredSteps() []*ValidationStep {
	return a.StepsWhere(func(s *ValidationStep) bool { return s.Errored() })
}

// AllPassed is the overall verdict: true only when the plan has been
// interrogated and every active step evaluated with zero failing units.
// An errored step counts as not passed.
func (a *Agent) AllPassed() bool {
	if !a.interrogated {
		return false
	}
	for _, s := range a.results {
		if !s.ActiveNow {
			continue
		}
		if s.AllPassed == nil || !*s.AllPassed {
			return false
		}
	}
	return true
}

// ActivateStep and DeactivateStep toggle a planned step by its index i.
// Step indices are never renumbered.
func (a *Agent) ActivateStep(i int) error   { return a.setActive(i, true) }
func (a *Agent) DeactivateStep(i int) error { return a.setActive(i, false) }

func (a *Agent) setActive(i int, v bool) error {
	s := a.planStep(i)
	if s == nil {
		return fmt.Errorf("no step with index %d", i)
	}
	s.Active = ActiveValue(v)
	return nil
}

// RemoveStep removes a planned step by its index i; remaining indices keep
// their values.
func (a *Agent) RemoveStep(i int) error {
	for idx, s := range a.plan {
		if s.I == i {
			a.plan = append(a.plan[:idx], a.plan[idx+1:]...)
			delete(a.stepIDs, s.StepID)
			return nil
		}
	}
	return fmt.Errorf("no step with index %d", i)
}

func (a *Agent) planStep(i int) *ValidationStep {
	for _, s := range a.plan {
		if s.I == i {
			return s
		}
	}
	return nil
}

// appendSteps validates shared options and appends one planned step per
// entry, all sharing one expansion group.
func (a *Agent) appendSteps(steps []*ValidationStep, opts *StepOptions) error {
	if opts == nil {
		opts = &StepOptions{}
	}
	if err := opts.Actions.validate(); err != nil {
		return err
	}
	for _, spec := range opts.Segments {
		if spec.Column == "" {
			return configErrorf("segment spec requires a column name")
		}
	}
	if opts.StepID != "" && len(steps) > 1 {
		return configErrorf("explicit step id %q cannot cover %d expanded steps", opts.StepID, len(steps))
	}

	a.nextGroup++
	for _, s := range steps {
		a.nextI++
		s.I = a.nextI
		s.Group = a.nextGroup

		s.StepID = opts.StepID
		if s.StepID == "" {
			s.StepID = fmt.Sprintf("%s.%04d", s.Assertion, s.I)
		}
		if a.stepIDs[s.StepID] {
			a.nextI--
			return configErrorf("duplicate step id %q", s.StepID)
		}
		a.stepIDs[s.StepID] = true

		s.Brief = opts.Brief
		if s.Brief == "" {
			s.Brief = autoBrief(s)
		}
		s.NAPass = opts.NAPass
		s.Preconditions = opts.Preconditions
		s.Segments = opts.Segments
		s.Actions = opts.Actions
		s.Active = opts.Active
		s.ActiveNow = true
		s.extractLimit = a.extractLimit

		a.plan = append(a.plan, s)
	}
	return nil
}

func autoBrief(s *ValidationStep) string {
	target := s.Column
	if target == "" && s.Columns != nil {
		target = s.Columns.Describe()
	}
	if target == "" {
		return fmt.Sprintf("expect %s", s.Assertion)
	}
	return fmt.Sprintf("expect %s on %s", s.Assertion, target)
}
