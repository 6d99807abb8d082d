package ocr

import (
	"testing"
)

// block is a test helper for positioned text.
func block(text string, conf, xMin, yMin, xMax, yMax float64) TextBlock {
	return TextBlock{Text: text, Confidence: conf, XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax}
}

// invoiceTableBlocks lays out a 4-column table: header plus two data
// rows, columns starting at x = 0.1, 0.3, 0.6, 0.8.
func invoiceTableBlocks() []TextBlock {
	return []TextBlock{
		block("Qty", 0.99, 0.10, 0.30, 0.15, 0.32),
		block("Description", 0.99, 0.30, 0.30, 0.42, 0.32),
		block("Unit Price", 0.99, 0.60, 0.30, 0.68, 0.32),
		block("Amount", 0.99, 0.80, 0.30, 0.86, 0.32),

		block("100", 0.95, 0.10, 0.35, 0.13, 0.37),
		block("Widgets", 0.93, 0.30, 0.35, 0.38, 0.37),
		block("40.00", 0.94, 0.60, 0.35, 0.65, 0.37),
		block("4000.00", 0.92, 0.80, 0.35, 0.87, 0.37),

		block("50", 0.95, 0.10, 0.40, 0.12, 0.42),
		block("Gadgets", 0.93, 0.30, 0.40, 0.38, 0.42),
		block("80.00", 0.94, 0.60, 0.40, 0.65, 0.42),
		block("4000.00", 0.92, 0.80, 0.40, 0.87, 0.42),
	}
}

func TestGroupIntoRows(t *testing.T) {
	rows := GroupIntoRows(invoiceTableBlocks(), DefaultRowTolerance)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != 4 {
			t.Errorf("row %d: expected 4 blocks, got %d", i, len(row))
		}
	}
	// Blocks within a row come back left to right.
	if rows[1][0].Text != "100" || rows[1][3].Text != "4000.00" {
		t.Errorf("row 1 not ordered left to right: %v", rows[1])
	}
}

func TestGroupIntoRows_ToleranceSplits(t *testing.T) {
	blocks := []TextBlock{
		block("a", 0.9, 0.1, 0.300, 0.2, 0.320), // center 0.310
		block("b", 0.9, 0.3, 0.305, 0.4, 0.325), // center 0.315, within 0.015
		block("c", 0.9, 0.1, 0.340, 0.2, 0.360), // center 0.350, separate row
	}
	rows := GroupIntoRows(blocks, DefaultRowTolerance)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if len(rows[0]) != 2 || len(rows[1]) != 1 {
		t.Errorf("unexpected grouping: %d + %d", len(rows[0]), len(rows[1]))
	}
}

func TestDetectColumnBoundaries(t *testing.T) {
	boundaries := DetectColumnBoundaries(invoiceTableBlocks(), DefaultColumnTolerance)
	// 4 left-edge clusters produce 3 boundaries.
	if len(boundaries) != 3 {
		t.Fatalf("expected 3 boundaries, got %d: %v", len(boundaries), boundaries)
	}
	// Boundaries sit between the cluster centroids.
	expected := []float64{0.2, 0.45, 0.7}
	for i, b := range boundaries {
		if abs(b-expected[i]) > 1e-9 {
			t.Errorf("boundary %d: expected %.3f, got %.3f", i, expected[i], b)
		}
	}
}

func TestColumnIndex(t *testing.T) {
	boundaries := []float64{0.2, 0.45, 0.7}
	tests := []struct {
		x    float64
		want int
	}{
		{0.10, 0}, {0.19, 0}, {0.25, 1}, {0.5, 2}, {0.9, 3},
	}
	for _, tt := range tests {
		if got := columnIndex(tt.x, boundaries); got != tt.want {
			t.Errorf("columnIndex(%.2f) = %d, want %d", tt.x, got, tt.want)
		}
	}
}

func TestDetectTables(t *testing.T) {
	res := &Result{Pages: []Page{{Number: 1, Blocks: invoiceTableBlocks()}}}
	tables := NewTableDetector().DetectTables(res)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	table := tables[0]

	if table.NumColumns() != 4 {
		t.Errorf("expected 4 columns, got %d", table.NumColumns())
	}
	if table.NumRows() != 3 {
		t.Errorf("expected 3 rows (header included), got %d", table.NumRows())
	}

	// Header synonyms resolved to canonical names.
	for _, name := range []string{"quantity", "description", "unit_price", "amount"} {
		if table.ColumnByName(name) == -1 {
			t.Errorf("column %q not found; names: %v", name, table.ColumnNames)
		}
	}
	if table.ColumnByName("tax") != -1 {
		t.Error("nonexistent column should return -1")
	}

	// Header excluded from data rows.
	data := table.DataRows()
	if len(data) != 2 {
		t.Fatalf("expected 2 data rows, got %d", len(data))
	}
	qtyCol := table.ColumnByName("quantity")
	cell, ok := data[0].Cell(qtyCol)
	if !ok || cell.Text != "100" {
		t.Errorf("expected first data row qty 100, got %+v", cell)
	}
}

func TestDetectTables_NoHeaderKeepsAllRows(t *testing.T) {
	blocks := []TextBlock{
		block("alpha", 0.9, 0.1, 0.30, 0.2, 0.32),
		block("beta", 0.9, 0.5, 0.30, 0.6, 0.32),
		block("gamma", 0.9, 0.1, 0.40, 0.2, 0.42),
		block("delta", 0.9, 0.5, 0.40, 0.6, 0.42),
	}
	res := &Result{Pages: []Page{{Number: 1, Blocks: blocks}}}
	tables := NewTableDetector().DetectTables(res)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	if len(tables[0].ColumnNames) != 0 {
		t.Errorf("no synonym matched, header should be empty: %v", tables[0].ColumnNames)
	}
	if len(tables[0].DataRows()) != 2 {
		t.Errorf("without a header all rows are data rows, got %d", len(tables[0].DataRows()))
	}
}

func TestDetectTables_TooFewRows(t *testing.T) {
	blocks := []TextBlock{
		block("only", 0.9, 0.1, 0.30, 0.2, 0.32),
		block("one row", 0.9, 0.5, 0.30, 0.6, 0.32),
	}
	res := &Result{Pages: []Page{{Number: 1, Blocks: blocks}}}
	if tables := NewTableDetector().DetectTables(res); len(tables) != 0 {
		t.Errorf("a single row is not a table, got %d", len(tables))
	}
}

func TestBuildTableRows_CellMerging(t *testing.T) {
	// Two blocks in the same row and column merge; confidence is the
	// minimum of the fragments.
	blocks := []TextBlock{
		block("Super", 0.9, 0.30, 0.35, 0.34, 0.37),
		block("Widget", 0.6, 0.36, 0.35, 0.40, 0.37),
		block("100", 0.95, 0.80, 0.35, 0.83, 0.37),
	}
	rows := buildTableRows([][]TextBlock{blocks}, []float64{0.6})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	cell, ok := rows[0].Cell(0)
	if !ok {
		t.Fatal("expected merged cell in column 0")
	}
	if cell.Text != "Super Widget" {
		t.Errorf("expected concatenated text, got %q", cell.Text)
	}
	if cell.Confidence != 0.6 {
		t.Errorf("expected min confidence 0.6, got %v", cell.Confidence)
	}
}
