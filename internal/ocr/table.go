package ocr

import (
	"sort"
	"strings"
)

// Defaults for table detection. Tolerances are fractions of page
// dimensions since block geometry is pre-normalized to 0-1.
const (
	DefaultRowTolerance    = 0.015
	DefaultColumnTolerance = 0.05
	MinTableRows           = 2
)

// columnSynonyms maps canonical column names to header substrings, in
// declaration order. Order matters: the first canonical name whose
// synonym matches wins for a given header cell.
var columnSynonyms = []struct {
	name     string
	patterns []string
}{
	{"quantity", []string{"qty", "quantity", "units", "count", "pcs"}},
	{"description", []string{"description", "item", "product", "service", "particulars"}},
	{"unit_price", []string{"unit price", "price", "rate", "unit cost", "each"}},
	{"amount", []string{"amount", "total", "line total", "ext.", "extension"}},
}

// TableCell is a single cell in a detected table. Text from co-located
// blocks is concatenated left to right; confidence is the minimum of the
// constituent blocks, since a cell is only as trustworthy as its weakest
// fragment.
type TableCell struct {
	Text       string
	Confidence float64
	Row        int
	Column     int
}

// TableRow is a sparse row of cells keyed by column index.
type TableRow struct {
	Index int
	Cells map[int]TableCell
}

// Cell returns the cell at the given column, if present.
func (r TableRow) Cell(column int) (TableCell, bool) {
	c, ok := r.Cells[column]
	return c, ok
}

// DetectedTable is a table recovered from a page's positioned text.
type DetectedTable struct {
	Page        int
	Rows        []TableRow
	Boundaries  []float64      // x positions separating columns
	ColumnNames map[int]string // column index -> canonical or raw header name

	XMin, YMin, XMax, YMax float64
}

// NumColumns returns the number of columns in the table.
func (t *DetectedTable) NumColumns() int { return len(t.Boundaries) + 1 }

// NumRows returns the number of rows, header included.
func (t *DetectedTable) NumRows() int { return len(t.Rows) }

// ColumnByName finds a column index by case-insensitive partial name
// match. Returns -1 when no column matches.
func (t *DetectedTable) ColumnByName(name string) int {
	needle := strings.ToLower(name)
	// Deterministic scan over column indexes.
	cols := make([]int, 0, len(t.ColumnNames))
	for idx := range t.ColumnNames {
		cols = append(cols, idx)
	}
	sort.Ints(cols)
	for _, idx := range cols {
		if strings.Contains(strings.ToLower(t.ColumnNames[idx]), needle) {
			return idx
		}
	}
	return -1
}

// DataRows returns the rows holding line-item data. The first row is
// skipped only when header detection named at least one column.
func (t *DetectedTable) DataRows() []TableRow {
	if len(t.Rows) == 0 {
		return nil
	}
	if len(t.ColumnNames) > 0 {
		return t.Rows[1:]
	}
	return t.Rows
}

// TableDetector recovers table structure from positioned text using
// spatial clustering: rows from vertical proximity, columns from
// left-edge alignment, headers from synonym matching on the first row.
type TableDetector struct {
	RowTolerance    float64
	ColumnTolerance float64
	MinRows         int
}

// NewTableDetector returns a detector with the default tolerances.
func NewTableDetector() *TableDetector {
	return &TableDetector{
		RowTolerance:    DefaultRowTolerance,
		ColumnTolerance: DefaultColumnTolerance,
		MinRows:         MinTableRows,
	}
}

// DetectTables detects tables in a recognition result, page by page.
func (d *TableDetector) DetectTables(res *Result) []DetectedTable {
	var tables []DetectedTable
	for _, page := range res.Pages {
		if t, ok := d.detectOnPage(page.Blocks, page.Number); ok {
			tables = append(tables, t)
		}
	}
	return tables
}

func (d *TableDetector) detectOnPage(blocks []TextBlock, page int) (DetectedTable, bool) {
	if len(blocks) == 0 {
		return DetectedTable{}, false
	}

	rows := GroupIntoRows(blocks, d.RowTolerance)
	if len(rows) < d.MinRows {
		return DetectedTable{}, false
	}

	boundaries := DetectColumnBoundaries(blocks, d.ColumnTolerance)
	tableRows := buildTableRows(rows, boundaries)
	columnNames := detectHeader(tableRows[0])

	t := DetectedTable{
		Page:        page,
		Rows:        tableRows,
		Boundaries:  boundaries,
		ColumnNames: columnNames,
		XMin:        blocks[0].XMin,
		YMin:        blocks[0].YMin,
		XMax:        blocks[0].XMax,
		YMax:        blocks[0].YMax,
	}
	for _, b := range blocks {
		t.XMin = min(t.XMin, b.XMin)
		t.YMin = min(t.YMin, b.YMin)
		t.XMax = max(t.XMax, b.XMax)
		t.YMax = max(t.YMax, b.YMax)
	}
	return t, true
}

// GroupIntoRows clusters blocks into rows: blocks whose vertical centers
// fall within tolerance of the running row anchor share a row. Blocks in
// each row are ordered left to right. Pure function, no OCR dependency.
func GroupIntoRows(blocks []TextBlock, tolerance float64) [][]TextBlock {
	if len(blocks) == 0 {
		return nil
	}

	sorted := make([]TextBlock, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CenterY() < sorted[j].CenterY()
	})

	var rows [][]TextBlock
	current := []TextBlock{sorted[0]}
	currentY := sorted[0].CenterY()

	for _, b := range sorted[1:] {
		if abs(b.CenterY()-currentY) <= tolerance {
			current = append(current, b)
		} else {
			rows = append(rows, current)
			current = []TextBlock{b}
			currentY = b.CenterY()
		}
	}
	rows = append(rows, current)

	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].CenterX() < row[j].CenterX()
		})
	}
	return rows
}

// DetectColumnBoundaries clusters block left edges to find column starts,
// then places a boundary at the midpoint between successive cluster
// centroids. Pure function over the block list and tolerance.
func DetectColumnBoundaries(blocks []TextBlock, tolerance float64) []float64 {
	if len(blocks) == 0 {
		return nil
	}

	edges := make([]float64, 0, len(blocks))
	for _, b := range blocks {
		edges = append(edges, b.XMin)
	}
	sort.Float64s(edges)

	var centroids []float64
	clusterStart := edges[0]
	clusterSum := edges[0]
	clusterCount := 1

	for _, edge := range edges[1:] {
		if edge-clusterStart <= tolerance {
			clusterSum += edge
			clusterCount++
		} else {
			centroids = append(centroids, clusterSum/float64(clusterCount))
			clusterStart = edge
			clusterSum = edge
			clusterCount = 1
		}
	}
	centroids = append(centroids, clusterSum/float64(clusterCount))

	boundaries := make([]float64, 0, len(centroids))
	for i := 0; i+1 < len(centroids); i++ {
		boundaries = append(boundaries, (centroids[i]+centroids[i+1])/2)
	}
	return boundaries
}

// columnIndex assigns a horizontal position to the column whose boundary
// it falls left of; the last column catches everything remaining.
func columnIndex(x float64, boundaries []float64) int {
	for i, b := range boundaries {
		if x < b {
			return i
		}
	}
	return len(boundaries)
}

func buildTableRows(textRows [][]TextBlock, boundaries []float64) []TableRow {
	rows := make([]TableRow, 0, len(textRows))
	for rowIdx, blocks := range textRows {
		cells := make(map[int]TableCell)
		for _, b := range blocks {
			col := columnIndex(b.CenterX(), boundaries)
			if existing, ok := cells[col]; ok {
				// Overlapping blocks concatenate in left-to-right order
				// and the cell keeps its weakest confidence.
				existing.Text += " " + b.Text
				existing.Confidence = min(existing.Confidence, b.Confidence)
				cells[col] = existing
			} else {
				cells[col] = TableCell{
					Text:       b.Text,
					Confidence: b.Confidence,
					Row:        rowIdx,
					Column:     col,
				}
			}
		}
		rows = append(rows, TableRow{Index: rowIdx, Cells: cells})
	}
	return rows
}

// detectHeader matches first-row cell text against known column synonyms.
// Unmatched headers keep their raw (lowercased) text as the column name.
// If no cell matches any synonym the first row is not a header at all and
// an empty map comes back.
func detectHeader(first TableRow) map[int]string {
	names := make(map[int]string, len(first.Cells))
	matchedAny := false
	for col, cell := range first.Cells {
		text := strings.ToLower(strings.TrimSpace(cell.Text))
		name := text
		for _, syn := range columnSynonyms {
			matched := false
			for _, p := range syn.patterns {
				if strings.Contains(text, p) {
					matched = true
					break
				}
			}
			if matched {
				name = syn.name
				matchedAny = true
				break
			}
		}
		names[col] = name
	}
	if !matchedAny {
		return map[int]string{}
	}
	return names
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
