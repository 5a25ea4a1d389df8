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

import "context"

// Severity is a threshold tier. Classification always evaluates in the
// order notify, warn, stop.
type Severity string

const (
	SeverityNotify Severity = "notify"
	SeverityWarn   Severity = "warn"
	SeverityStop   Severity = "stop"
)

// Threshold triggers a tier either on an absolute failing-unit count or on
// a failing fraction; exactly one of the two modes is set.
type Threshold struct {
	Count    *int64   `json:"count,omitempty" yaml:"count,omitempty"`
	Fraction *float64 `json:"fraction,omitempty" yaml:"fraction,omitempty"`
}

// CountThreshold fires when n_failed >= k.
func CountThreshold(k int64) *Threshold { return &Threshold{Count: &k} }

// FractionThreshold fires when f_failed >= p.
func FractionThreshold(p float64) *Threshold { return &Threshold{Fraction: &p} }

func (t *Threshold) validate(tier Severity) error {
	if t == nil {
		return nil
	}
	if (t.Count == nil) == (t.Fraction == nil) {
		return configErrorf("threshold for %q must set exactly one of count or fraction", tier)
	}
	return nil
}

// Exceeded reports whether the tier fires for the given failure metrics.
// A nil threshold never fires (the tier is simply not evaluated).
func (t *Threshold) Exceeded(nFailed int64, fFailed float64) bool {
	if t == nil {
		return false
	}
	if t.Count != nil {
		return nFailed >= *t.Count
	}
	return fFailed >= *t.Fraction
}

// Actions is the three-tier threshold configuration of a step (or the
// agent-wide default applied to steps without their own).
type Actions struct {
	Notify *Threshold `json:"notify,omitempty" yaml:"notify,omitempty"`
	Warn   *Threshold `json:"warn,omitempty" yaml:"warn,omitempty"`
	Stop   *Threshold `json:"stop,omitempty" yaml:"stop,omitempty"`
}

func (a *Actions) validate() error {
	if a == nil {
		return nil
	}
	if err := a.Notify.validate(SeverityNotify); err != nil {
		return err
	}
	if err := a.Warn.validate(SeverityWarn); err != nil {
		return err
	}
	return a.Stop.validate(SeverityStop)
}

func (a *Actions) classify(nFailed int64, fFailed float64) (notify, warn, stop bool) {
	if a == nil {
		return false, false, false
	}
	return a.Notify.Exceeded(nFailed, fFailed),
		a.Warn.Exceeded(nFailed, fFailed),
		a.Stop.Exceeded(nFailed, fFailed)
}

// ActionContext is the step context handed to an action callback when a
// tier fires.
type ActionContext struct {
	I         int           `json:"i"`
	StepID    string        `json:"step_id"`
	Segment   string        `json:"segment,omitempty"`
	Assertion AssertionType `json:"assertion_type"`
	Brief     string        `json:"brief,omitempty"`
	Severity  Severity      `json:"severity"`
	N         int64         `json:"n"`
	NFailed   int64         `json:"n_failed"`
	FFailed   float64       `json:"f_failed"`
}

// ActionHandler is invoked synchronously once per firing tier, in the
// order notify, warn, stop. A returned error aborts the interrogation
// (wrapped as DispatchError); returning an error from the stop tier is the
// supported way to terminate a run early on the caller's side.
type ActionHandler func(ctx context.Context, action ActionContext) error
