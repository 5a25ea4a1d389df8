package memtable

import (
	"context"
	"reflect"
	"testing"

	"github.com/tablevet/tablevet"
)

var testSchema = tablevet.Schema{
	{Name: "id", Type: "BIGINT"},
	{Name: "city", Type: "VARCHAR"},
	{Name: "score", Type: "DOUBLE"},
}

func testTable() *Table {
	return New("scores", testSchema, []map[string]any{
		{"id": int64(1), "city": "berlin", "score": 0.9},
		{"id": int64(2), "city": "berlin", "score": 0.4},
		{"id": int64(3), "city": "lisbon", "score": nil},
		{"id": int64(4), "city": "lisbon", "score": 0.7},
	})
}

func TestNewNormalizesPartialRows(t *testing.T) {
	table := New("partial", testSchema, []map[string]any{
		{"id": int64(1)}, // city and score omitted
	})

	rows, err := table.FailingRows(context.Background(),
		tablevet.NullCheck{Column: "city", Negate: true}, false, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("omitted column must read as null, got %d failing rows", len(rows))
	}
	if _, ok := rows[0]["score"]; !ok {
		t.Error("normalized row must carry every schema column as a key")
	}
}

func TestTestCounts(t *testing.T) {
	ctx := context.Background()
	table := testTable()
	pred := tablevet.Compare{Column: "score", Op: tablevet.OpGT, Operand: tablevet.Lit(0.5)}

	counts, err := table.TestCounts(ctx, pred, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.N != 4 || counts.Passed != 2 {
		t.Errorf("expected 4/2, got %d/%d", counts.N, counts.Passed)
	}

	counts, err = table.TestCounts(ctx, pred, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Passed != 3 {
		t.Errorf("na_pass should fold the null row into passing, got %d", counts.Passed)
	}
}

func TestFilterExcludesUndecidableRows(t *testing.T) {
	ctx := context.Background()
	pred := tablevet.Compare{Column: "score", Op: tablevet.OpGT, Operand: tablevet.Lit(0.5)}

	filtered, err := testTable().Filter(ctx, pred)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, err := filtered.RowCount(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows (null score excluded), got %d", n)
	}
}

func TestDerive(t *testing.T) {
	ctx := context.Background()
	derived, err := testTable().Derive(ctx, "pct",
		tablevet.BinaryExpr{Op: "*", Left: tablevet.Col("score"), Right: tablevet.Val(100)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	schema, err := derived.Schema(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dbType, ok := schema.ColumnType("pct")
	if !ok {
		t.Fatal("derived column missing from schema")
	}
	if dbType != "DOUBLE" {
		t.Errorf("expected inferred type DOUBLE, got %q", dbType)
	}

	counts, err := derived.TestCounts(ctx,
		tablevet.Compare{Column: "pct", Op: tablevet.OpGT, Operand: tablevet.Lit(50)}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.N != 4 || counts.Passed != 2 {
		t.Errorf("expected 4/2, got %d/%d", counts.N, counts.Passed)
	}

	// duplicate name rejected
	if _, err := derived.Derive(ctx, "pct", tablevet.Val(1)); err == nil {
		t.Error("expected error deriving an existing column")
	}
}

func TestDistinctValues(t *testing.T) {
	ctx := context.Background()

	values, err := testTable().DistinctValues(ctx, "city")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(values, []any{"berlin", "lisbon"}) {
		t.Errorf("expected first-appearance order, got %v", values)
	}

	// nulls are never a distinct value
	values, err = testTable().DistinctValues(ctx, "score")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 3 {
		t.Errorf("expected 3 non-null distinct scores, got %v", values)
	}

	if _, err := testTable().DistinctValues(ctx, "nope"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestDistinctRowCount(t *testing.T) {
	ctx := context.Background()
	table := testTable()

	tests := []struct {
		name     string
		columns  []string
		expected int64
	}{
		{"all columns distinct", nil, 4},
		{"city alone repeats", []string{"city"}, 2},
		{"id alone distinct", []string{"id"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.DistinctRowCount(ctx, tt.columns)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}

	if _, err := table.DistinctRowCount(ctx, []string{"nope"}); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestDistinctRowCountNullVsEmptyString(t *testing.T) {
	table := New("edge", tablevet.Schema{{Name: "v", Type: "VARCHAR"}}, []map[string]any{
		{"v": nil},
		{"v": ""},
	})
	got, err := table.DistinctRowCount(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 {
		t.Errorf("null and empty string must hash differently, got %d", got)
	}
}

func TestCompleteRowCount(t *testing.T) {
	ctx := context.Background()
	table := testTable()

	all, err := table.CompleteRowCount(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if all != 3 {
		t.Errorf("expected 3 complete rows over all columns, got %d", all)
	}

	scoped, err := table.CompleteRowCount(ctx, []string{"id", "city"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scoped != 4 {
		t.Errorf("expected 4 complete rows over id and city, got %d", scoped)
	}
}

func TestFailingRows(t *testing.T) {
	ctx := context.Background()
	pred := tablevet.Compare{Column: "score", Op: tablevet.OpGT, Operand: tablevet.Lit(0.5)}

	rows, err := testTable().FailingRows(ctx, pred, false, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 failing rows, got %d", len(rows))
	}
	if rows[0]["id"] != int64(2) || rows[1]["id"] != int64(3) {
		t.Errorf("unexpected failing rows: %v", rows)
	}

	// na_pass removes the null row from the failing subset
	rows, err = testTable().FailingRows(ctx, pred, true, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != int64(2) {
		t.Errorf("expected only id 2 failing under na_pass, got %v", rows)
	}

	// limit caps the subset
	rows, err = testTable().FailingRows(ctx, pred, false, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row under limit, got %d", len(rows))
	}
}
