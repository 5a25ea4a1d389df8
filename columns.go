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
	"regexp"
	"strings"
)

// ColumnSelector is a deferred column reference, resolved against the
// table's schema at interrogation time (strictly after preconditions, so
// it may name columns a precondition derives).
type ColumnSelector interface {
	columnSelector()
	Describe() string
}

// Cols selects columns by literal name. Every name must exist in the
// post-precondition schema.
type Cols []string

// StartsWith selects every column whose name has the given prefix.
type StartsWith string

// EndsWith selects every column whose name has the given suffix.
type EndsWith string

// Contains selects every column whose name contains the given substring.
type Contains string

// Matches selects every column whose name matches the RE2 pattern.
type Matches string

// Everything selects all columns.
type Everything struct{}

func (Cols) columnSelector()       {}
func (StartsWith) columnSelector() {}
func (EndsWith) columnSelector()   {}
func (Contains) columnSelector()   {}
func (Matches) columnSelector()    {}
func (Everything) columnSelector() {}

func (c Cols) Describe() string       { return fmt.Sprintf("columns %v", []string(c)) }
func (s StartsWith) Describe() string { return fmt.Sprintf("columns starting with %q", string(s)) }
func (s EndsWith) Describe() string   { return fmt.Sprintf("columns ending with %q", string(s)) }
func (s Contains) Describe() string   { return fmt.Sprintf("columns containing %q", string(s)) }
func (s Matches) Describe() string    { return fmt.Sprintf("columns matching %q", string(s)) }
func (Everything) Describe() string   { return "all columns" }

// ResolveColumns resolves a selector against a schema into an ordered,
// deduplicated list of concrete column names. A literal name with no match
// or a pattern selector matching nothing yields a ResolutionError.
func ResolveColumns(sel ColumnSelector, schema Schema) ([]string, error) {
	switch s := sel.(type) {
	case Cols:
		var out []string
		seen := map[string]bool{}
		for _, name := range s {
			if !schema.HasColumn(name) {
				return nil, &ResolutionError{
					Selector: sel.Describe(),
					Err:      fmt.Errorf("column %q not found in table schema", name),
				}
			}
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
		return out, nil

	case StartsWith:
		return matchColumns(sel, schema, func(name string) bool {
			return strings.HasPrefix(name, string(s))
		})
	case EndsWith:
		return matchColumns(sel, schema, func(name string) bool {
			return strings.HasSuffix(name, string(s))
		})
	case Contains:
		return matchColumns(sel, schema, func(name string) bool {
			return strings.Contains(name, string(s))
		})
	case Matches:
		re, err := regexp.Compile(string(s))
		if err != nil {
			return nil, &ResolutionError{Selector: sel.Describe(), Err: err}
		}
		return matchColumns(sel, schema, re.MatchString)
	case Everything:
		return schema.Names(), nil

	default:
		return nil, &ResolutionError{
			Selector: fmt.Sprintf("%T", sel),
			Err:      fmt.Errorf("unknown column selector type"),
		}
	}
}

func matchColumns(sel ColumnSelector, schema Schema, match func(string) bool) ([]string, error) {
	var out []string
	for _, c := range schema {
		if match(c.Name) {
			out = append(out, c.Name)
		}
	}
	if len(out) == 0 {
		return nil, &ResolutionError{
			Selector: sel.Describe(),
			Err:      fmt.Errorf("no columns matched"),
		}
	}
	return out, nil
}
