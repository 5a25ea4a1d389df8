package tablevet

import (
	"testing"
	"time"
)

func TestEvalPredicateCompare(t *testing.T) {
	row := map[string]any{
		"a": int64(5),
		"b": 3.5,
		"s": "hello",
		"n": nil,
	}

	tests := []struct {
		name     string
		pred     Predicate
		expected TriState
	}{
		{"gt pass", Compare{Column: "a", Op: OpGT, Operand: Lit(4)}, TriPass},
		{"gt fail", Compare{Column: "a", Op: OpGT, Operand: Lit(5)}, TriFail},
		{"gte boundary", Compare{Column: "a", Op: OpGTE, Operand: Lit(5)}, TriPass},
		{"lt mixed numeric widths", Compare{Column: "b", Op: OpLT, Operand: Lit(4)}, TriPass},
		{"eq string", Compare{Column: "s", Op: OpEQ, Operand: Lit("hello")}, TriPass},
		{"ne string", Compare{Column: "s", Op: OpNE, Operand: Lit("hello")}, TriFail},
		{"null column value is NA", Compare{Column: "n", Op: OpGT, Operand: Lit(1)}, TriNA},
		{"cross column pass", Compare{Column: "a", Op: OpGT, Operand: ColRef("b")}, TriPass},
		{"cross column against null is NA", Compare{Column: "a", Op: OpGT, Operand: ColRef("n")}, TriNA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalPredicate(row, tt.pred)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEvalPredicateCompareTypeMismatch(t *testing.T) {
	row := map[string]any{"s": "hello"}
	if _, err := EvalPredicate(row, Compare{Column: "s", Op: OpGT, Operand: Lit(1)}); err == nil {
		t.Error("expected type mismatch error comparing string with number")
	}
}

func TestEvalPredicateBetweenInclusivity(t *testing.T) {
	pred := func(v any) map[string]any { return map[string]any{"x": v} }

	tests := []struct {
		name     string
		incLow   bool
		incHigh  bool
		negate   bool
		value    any
		expected TriState
	}{
		{"inclusive low boundary passes", true, false, false, 1, TriPass},
		{"exclusive high boundary fails", true, false, false, 5, TriFail},
		{"below range fails", true, false, false, 0.999, TriFail},
		{"inside range passes", true, false, false, 3, TriPass},
		{"both exclusive rejects both bounds", false, false, false, 1, TriFail},
		{"both inclusive accepts both bounds", true, true, false, 5, TriPass},
		{"not_between flips inside", true, true, true, 3, TriFail},
		{"not_between flips outside", true, true, true, 9, TriPass},
		{"null value is NA", true, true, false, nil, TriNA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Between{
				Column:  "x",
				Low:     Lit(1),
				High:    Lit(5),
				IncLow:  tt.incLow,
				IncHigh: tt.incHigh,
				Negate:  tt.negate,
			}
			got, err := EvalPredicate(pred(tt.value), p)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEvalPredicateSetMembership(t *testing.T) {
	row := map[string]any{"g": "g2", "n": nil}

	tests := []struct {
		name     string
		pred     Predicate
		expected TriState
	}{
		{"in_set member", InSet{Column: "g", Set: []any{"g1", "g2"}}, TriPass},
		{"in_set non-member", InSet{Column: "g", Set: []any{"g1", "g3"}}, TriFail},
		{"not_in_set member", InSet{Column: "g", Set: []any{"g1", "g2"}, Negate: true}, TriFail},
		{"not_in_set non-member", InSet{Column: "g", Set: []any{"g1"}, Negate: true}, TriPass},
		{"null value is NA", InSet{Column: "n", Set: []any{"g1"}}, TriNA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalPredicate(row, tt.pred)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEvalPredicateNullAndRegex(t *testing.T) {
	row := map[string]any{"s": "user-042", "n": nil}

	tests := []struct {
		name     string
		pred     Predicate
		expected TriState
	}{
		{"null check on null passes", NullCheck{Column: "n"}, TriPass},
		{"null check on value fails", NullCheck{Column: "s"}, TriFail},
		{"not_null on value passes", NullCheck{Column: "s", Negate: true}, TriPass},
		{"not_null on null fails", NullCheck{Column: "n", Negate: true}, TriFail},
		{"regex match passes", RegexMatch{Column: "s", Pattern: `^user-\d+$`}, TriPass},
		{"regex mismatch fails", RegexMatch{Column: "s", Pattern: `^\d+$`}, TriFail},
		{"regex on null is NA", RegexMatch{Column: "n", Pattern: `^x`}, TriNA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalPredicate(row, tt.pred)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEvalPredicateConjointly(t *testing.T) {
	row := map[string]any{"a": 5, "b": nil}

	tests := []struct {
		name     string
		preds    []Predicate
		expected TriState
	}{
		{
			name: "all pass",
			preds: []Predicate{
				Compare{Column: "a", Op: OpGT, Operand: Lit(1)},
				Compare{Column: "a", Op: OpLT, Operand: Lit(10)},
			},
			expected: TriPass,
		},
		{
			name: "one fail dominates",
			preds: []Predicate{
				Compare{Column: "a", Op: OpGT, Operand: Lit(1)},
				Compare{Column: "a", Op: OpGT, Operand: Lit(100)},
			},
			expected: TriFail,
		},
		{
			name: "fail beats NA",
			preds: []Predicate{
				Compare{Column: "b", Op: OpGT, Operand: Lit(1)},
				Compare{Column: "a", Op: OpGT, Operand: Lit(100)},
			},
			expected: TriFail,
		},
		{
			name: "NA without fail is NA",
			preds: []Predicate{
				Compare{Column: "a", Op: OpGT, Operand: Lit(1)},
				Compare{Column: "b", Op: OpGT, Operand: Lit(1)},
			},
			expected: TriNA,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalPredicate(row, And{Preds: tt.preds})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEvalExpr(t *testing.T) {
	row := map[string]any{"a": 10, "b": 4.0, "n": nil}

	tests := []struct {
		name     string
		expr     Expr
		expected any
	}{
		{"column", Col("a"), 10},
		{"literal", Val(7), 7},
		{"sum", BinaryExpr{Op: "+", Left: Col("a"), Right: Col("b")}, 14.0},
		{"ratio", BinaryExpr{Op: "/", Left: Col("a"), Right: Col("b")}, 2.5},
		{"null propagates", BinaryExpr{Op: "*", Left: Col("a"), Right: Col("n")}, nil},
		{"division by zero is null", BinaryExpr{Op: "/", Left: Col("a"), Right: Val(0)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalExpr(row, tt.expr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCompareValuesTime(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	cmp, err := compareValues(early, late)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp >= 0 {
		t.Errorf("expected early < late, got %d", cmp)
	}
}
