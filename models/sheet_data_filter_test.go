package models

import (
	"testing"
	"time"
)

func TestSheetDateClause_SingleDayIsEquality(t *testing.T) {
	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	clause, args := sheetDateClause(day, day)
	if clause != "DATE(bill_date) = ?" {
		t.Errorf("got clause %q, want equality", clause)
	}
	if len(args) != 1 || args[0] != "2026-08-15" {
		t.Errorf("got args %v", args)
	}
}

// Different clock times on the same calendar day still collapse to the
// equality form: the comparison is at day granularity.
func TestSheetDateClause_SameDayDifferentTimes(t *testing.T) {
	start := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 15, 23, 59, 59, 0, time.UTC)

	clause, _ := sheetDateClause(start, end)
	if clause != "DATE(bill_date) = ?" {
		t.Errorf("got clause %q, want equality", clause)
	}
}

func TestSheetDateClause_RangeIsInclusiveBetween(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	clause, args := sheetDateClause(start, end)
	if clause != "DATE(bill_date) BETWEEN ? AND ?" {
		t.Errorf("got clause %q, want BETWEEN", clause)
	}
	if len(args) != 2 || args[0] != "2026-08-01" || args[1] != "2026-08-31" {
		t.Errorf("got args %v", args)
	}
}

func TestSheetCategoryTable_KnownAndUnknown(t *testing.T) {
	for _, category := range []SheetCategory{
		SheetCategoryPosMatched, SheetCategoryAggMatched, SheetCategoryRefund,
		SheetCategoryMissingInPos, SheetCategoryMissingInAgg,
	} {
		if table, ok := sheetCategoryTable(category); !ok || table == "" {
			t.Errorf("category %q: expected a table", category)
		}
	}
	if _, ok := sheetCategoryTable("settlement_gap"); ok {
		t.Error("unknown category must not resolve to a table")
	}
}
