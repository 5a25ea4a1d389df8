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
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExpectedColumn declares one column a col_schema_match step requires. A
// nil Type means "require presence, skip the type check".
type ExpectedColumn struct {
	Name string  `yaml:"name" json:"name"`
	Type *string `yaml:"type,omitempty" json:"type,omitempty"`
}

// ExpectedSchema is the declared schema for a col_schema_match step.
// Complete forbids extra actual columns; InOrder requires the declared
// columns to appear in the actual schema in the declared relative order.
type ExpectedSchema struct {
	Columns  []ExpectedColumn `yaml:"columns" json:"columns"`
	Complete bool             `yaml:"complete,omitempty" json:"complete,omitempty"`
	InOrder  bool             `yaml:"in_order,omitempty" json:"in_order,omitempty"`
}

// LoadExpectedSchemaFile reads an expected-schema declaration from a YAML
// document.
func LoadExpectedSchemaFile(fileName string) (*ExpectedSchema, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var expected ExpectedSchema
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&expected); err != nil {
		return nil, err
	}

	if len(expected.Columns) == 0 {
		return nil, fmt.Errorf("expected schema file %s declares no columns", fileName)
	}

	return &expected, nil
}

// Match compares the declaration against an actual schema. A nil return
// means the schemas agree; otherwise the error names the first mismatch.
func (e *ExpectedSchema) Match(actual Schema) error {
	positions := map[string]int{}
	for i, c := range actual {
		positions[c.Name] = i
	}

	lastPos := -1
	for _, want := range e.Columns {
		pos, ok := positions[want.Name]
		if !ok {
			return fmt.Errorf("expected column %q not present", want.Name)
		}
		if e.InOrder && pos <= lastPos {
			return fmt.Errorf("column %q out of declared order", want.Name)
		}
		lastPos = pos

		if want.Type != nil {
			got := actual[pos].Type
			if !typeNamesEqual(*want.Type, got) {
				return fmt.Errorf("column %q has type %q, expected %q", want.Name, got, *want.Type)
			}
		}
	}

	if e.Complete && len(actual) != len(e.Columns) {
		declared := map[string]bool{}
		for _, want := range e.Columns {
			declared[want.Name] = true
		}
		for _, c := range actual {
			if !declared[c.Name] {
				return fmt.Errorf("unexpected column %q present", c.Name)
			}
		}
	}

	return nil
}

func typeNamesEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) ||
		normalizeTypeName(a) == normalizeTypeName(b)
}
