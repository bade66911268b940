package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"bitbucket.org/mmdatafocus/recon_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// NOTE: These tests are intentionally DB-free. The insert and header-resolve
// hooks are swapped for in-memory fakes; real bulk inserts need MySQL.

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func staticResolver(mappings map[string]string) headerResolveFunc {
	return func(_ context.Context, _ models.SourceType, rawHeaderRow []string) (*models.HeaderResolution, error) {
		resolution := &models.HeaderResolution{
			CanonicalHeaders: make([]*string, len(rawHeaderRow)),
		}
		for i, header := range rawHeaderRow {
			if canonical, ok := mappings[header]; ok {
				c := canonical
				resolution.CanonicalHeaders[i] = &c
			} else {
				resolution.Unmapped = append(resolution.Unmapped, header)
			}
		}
		return resolution, nil
	}
}

type captureInsert struct {
	table   string
	batches [][]map[string]interface{}
	failOn  int // 1-based batch number to fail on; 0 disables
}

func (c *captureInsert) insert(_ context.Context, table string, rows []map[string]interface{}) error {
	if c.failOn > 0 && len(c.batches)+1 == c.failOn {
		return errors.New("forced insert failure")
	}
	c.table = table
	c.batches = append(c.batches, rows)
	return nil
}

func (c *captureInsert) rowCount() int {
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

var posTestMappings = map[string]string{
	"Bill No":      "bill_no",
	"Store Code":   "store_code",
	"Bill Date":    "bill_date",
	"Gross Amount": "gross_amount",
}

func newTestLoader(batchSize int, sink *captureInsert) *Loader {
	return &Loader{
		batchSize: batchSize,
		insert:    sink.insert,
		resolve:   staticResolver(posTestMappings),
	}
}

func TestLoad_AllColumnsMapped(t *testing.T) {
	file := buildWorkbook(t, [][]interface{}{
		{"Bill No", "Store Code", "Bill Date", "Gross Amount"},
		{"B001", "S001", "2026-08-01", "1500.50"},
		{"B002", "S001", "2026-08-01", "240"},
	})

	sink := &captureInsert{}
	loader := newTestLoader(100, sink)

	summary, err := loader.Load(context.Background(), models.SourceTypePosSale, file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if summary.RowsInserted != 2 {
		t.Errorf("rows inserted: got %d, want 2", summary.RowsInserted)
	}
	if len(summary.UnmappedColumns) != 0 {
		t.Errorf("unexpected unmapped columns: %v", summary.UnmappedColumns)
	}
	if sink.table != "raw_pos_sales" {
		t.Errorf("table: got %q, want raw_pos_sales", sink.table)
	}

	first := sink.batches[0][0]
	if first["bill_no"] != "B001" {
		t.Errorf("bill_no: got %v", first["bill_no"])
	}
	gross, ok := first["gross_amount"].(decimal.Decimal)
	if !ok || !gross.Equal(decimal.RequireFromString("1500.50")) {
		t.Errorf("gross_amount not coerced to decimal: %v", first["gross_amount"])
	}
}

func TestLoad_UnmappedColumnDropped(t *testing.T) {
	file := buildWorkbook(t, [][]interface{}{
		{"Bill No", "Outlet Region", "Gross Amount"},
		{"B001", "North", "100"},
	})

	sink := &captureInsert{}
	loader := newTestLoader(100, sink)

	summary, err := loader.Load(context.Background(), models.SourceTypePosSale, file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(summary.UnmappedColumns) != 1 || summary.UnmappedColumns[0] != "Outlet Region" {
		t.Errorf("unmapped columns: got %v", summary.UnmappedColumns)
	}

	row := sink.batches[0][0]
	if _, exists := row["Outlet Region"]; exists {
		t.Error("unmapped column value leaked into the staging row")
	}
	if len(row) != 2 {
		t.Errorf("row keys: got %d, want 2 (%v)", len(row), row)
	}
}

// Rows shorter than the header row are padded with blanks; blank amounts
// become zero, blank dates become NULL.
func TestLoad_ShortAndBlankCells(t *testing.T) {
	file := buildWorkbook(t, [][]interface{}{
		{"Bill No", "Store Code", "Bill Date", "Gross Amount"},
		{"B001"},
	})

	sink := &captureInsert{}
	loader := newTestLoader(100, sink)

	if _, err := loader.Load(context.Background(), models.SourceTypePosSale, file); err != nil {
		t.Fatalf("Load: %v", err)
	}

	row := sink.batches[0][0]
	if gross, ok := row["gross_amount"].(decimal.Decimal); !ok || !gross.IsZero() {
		t.Errorf("blank amount: got %v, want zero decimal", row["gross_amount"])
	}
	if row["bill_date"] != nil {
		t.Errorf("blank date: got %v, want nil", row["bill_date"])
	}
	if row["store_code"] != "" {
		t.Errorf("blank string: got %v, want empty", row["store_code"])
	}
}

// A batch failure abandons that batch and everything after it, but earlier
// batches stay committed and the count is surfaced on the error.
func TestLoad_PartialFailureReportsCommittedRows(t *testing.T) {
	rows := [][]interface{}{{"Bill No", "Gross Amount"}}
	for i := 1; i <= 10; i++ {
		rows = append(rows, []interface{}{fmt.Sprintf("B%03d", i), "100"})
	}
	file := buildWorkbook(t, rows)

	sink := &captureInsert{failOn: 3}
	loader := newTestLoader(2, sink)

	_, err := loader.Load(context.Background(), models.SourceTypePosSale, file)
	if err == nil {
		t.Fatal("expected load error")
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if loadErr.RowsCommitted != 4 {
		t.Errorf("rows committed: got %d, want 4", loadErr.RowsCommitted)
	}
	if sink.rowCount() != 4 {
		t.Errorf("sink rows: got %d, want 4", sink.rowCount())
	}
}

func TestLoad_InvalidAmountAbortsWithRowContext(t *testing.T) {
	file := buildWorkbook(t, [][]interface{}{
		{"Bill No", "Gross Amount"},
		{"B001", "100"},
		{"B002", "12.3.4"},
	})

	sink := &captureInsert{}
	loader := newTestLoader(100, sink)

	_, err := loader.Load(context.Background(), models.SourceTypePosSale, file)
	if err == nil {
		t.Fatal("expected load error")
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if loadErr.RowsCommitted != 0 {
		t.Errorf("rows committed: got %d, want 0", loadErr.RowsCommitted)
	}
}

func TestLoad_HeaderOnlySheetInsertsNothing(t *testing.T) {
	file := buildWorkbook(t, [][]interface{}{
		{"Bill No", "Store Code", "Bill Date", "Gross Amount"},
	})

	sink := &captureInsert{}
	loader := newTestLoader(100, sink)

	summary, err := loader.Load(context.Background(), models.SourceTypePosSale, file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if summary.RowsInserted != 0 {
		t.Errorf("rows inserted: got %d, want 0", summary.RowsInserted)
	}
	if len(sink.batches) != 0 {
		t.Errorf("expected no insert calls, got %d", len(sink.batches))
	}
}

func TestLoad_UndecodableFileIsParseError(t *testing.T) {
	sink := &captureInsert{}
	loader := newTestLoader(100, sink)

	_, err := loader.Load(context.Background(), models.SourceTypePosSale, []byte("not a spreadsheet"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
}

func TestCoerceCell_DateLayouts(t *testing.T) {
	for _, value := range []string{"2026-08-01", "2026-08-01 14:30:00", "2026/08/01"} {
		coerced, err := coerceCell(models.FieldKindTime, value)
		if err != nil {
			t.Errorf("coerce %q: %v", value, err)
			continue
		}
		if coerced == nil {
			t.Errorf("coerce %q: got nil", value)
		}
	}
	if _, err := coerceCell(models.FieldKindTime, "yesterday"); err == nil {
		t.Error("expected error for unparseable date")
	}
}
