package ingest

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// batchInsertFunc bulk-inserts one batch into a staging table. Swappable so
// loader tests run without MySQL.
type batchInsertFunc func(ctx context.Context, table string, rows []map[string]interface{}) error

type headerResolveFunc func(ctx context.Context, sourceType models.SourceType, rawHeaderRow []string) (*models.HeaderResolution, error)

// Loader turns one spreadsheet into appended staging rows. Append-only:
// re-ingesting a period without an external truncate duplicates rows.
type Loader struct {
	batchSize int
	insert    batchInsertFunc
	resolve   headerResolveFunc
}

func NewLoader() *Loader {
	return &Loader{
		batchSize: config.RawInsertBatchSize(),
		insert:    insertIntoRawTable,
		resolve:   models.ResolveHeaders,
	}
}

func insertIntoRawTable(ctx context.Context, table string, rows []map[string]interface{}) error {
	db := config.GetDB()
	return db.WithContext(ctx).Table(table).Create(rows).Error
}

// date layouts excelize produces for the cell styles seen in POS/aggregator/
// bank exports
var cellDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01-02-06",
	"1/2/06 15:04",
	"2006/01/02",
	"02-Jan-06",
}

// coerceCell converts spreadsheet cell text for a typed staging column. Blank
// cells become the column kind's zero (never SQL NULL surprises mid-batch),
// so numeric coercion stays deterministic across sources.
func coerceCell(kind models.FieldKind, value string) (interface{}, error) {
	switch kind {
	case models.FieldKindDecimal:
		if value == "" {
			return decimal.Zero, nil
		}
		dec, err := utils.ParseDecimal(value)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", value, err)
		}
		return dec, nil
	case models.FieldKindTime:
		if value == "" {
			return nil, nil
		}
		for _, layout := range cellDateLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("invalid date %q", value)
	default:
		return value, nil
	}
}

// Load decodes the first worksheet of fileBytes and appends its data rows to
// the staging table for sourceType.
//
// Batches are independent: a failure on batch N leaves batches 1..N-1
// committed (at-least-once, partial-success semantics) and surfaces a
// LoadError carrying the committed row count.
func (l *Loader) Load(ctx context.Context, sourceType models.SourceType, fileBytes []byte) (*ProcessedSummary, error) {
	table, ok := models.RawTableName(sourceType)
	if !ok {
		return nil, ErrUnknownTarget
	}
	kinds, err := models.CanonicalFieldKinds(sourceType)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	resolution, err := l.resolve(ctx, sourceType, rows[0])
	if err != nil {
		return nil, err
	}
	headers := resolution.CanonicalHeaders

	committed := 0
	batch := make([]map[string]interface{}, 0, l.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.insert(ctx, table, batch); err != nil {
			return &LoadError{RowsCommitted: committed, Err: err}
		}
		committed += len(batch)
		batch = make([]map[string]interface{}, 0, l.batchSize)
		return nil
	}

	for rowNo, row := range rows[1:] {
		record := make(map[string]interface{}, len(headers))
		for i, canonical := range headers {
			if canonical == nil {
				// unmapped column, values silently excluded
				continue
			}
			value := ""
			if i < len(row) {
				value = row[i]
			}
			coerced, err := coerceCell(kinds[*canonical], value)
			if err != nil {
				return nil, &LoadError{RowsCommitted: committed, Err: fmt.Errorf("row %d, column %q: %w", rowNo+2, *canonical, err)}
			}
			record[*canonical] = coerced
		}
		batch = append(batch, record)
		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return &ProcessedSummary{
		RowsInserted:    committed,
		UnmappedColumns: resolution.Unmapped,
	}, nil
}
