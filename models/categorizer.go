package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
)

// The categorizer materializes the five sheet-data tables from the summary
// table. Full truncate-and-rebuild: no incremental diffing, because the
// summary table carries no change-tracking key and diffing without one
// drifts silently.
//
// The five predicates are evaluated independently and are deliberately not
// mutually exclusive: a refund order appears both in its matched table and in
// the refund table, because the views serve different report audiences.

const summaryScanBatchSize = 1000

func sheetColumnsFromSummary(s *ReconciliationSummary) SheetDataColumns {
	return SheetDataColumns{
		PosOrderId:       s.PosOrderId,
		AggOrderId:       s.AggOrderId,
		StoreCode:        s.StoreCode,
		BillDate:         s.BillDate,
		OrderStatusPos:   s.OrderStatusPos,
		OrderStatusAgg:   s.OrderStatusAgg,
		ReconciledStatus: s.ReconciledStatus,

		PosGrossAmount:    s.PosGrossAmount,
		PosDiscountAmount: s.PosDiscountAmount,
		PosNetAmount:      s.PosNetAmount,
		PosTaxAmount:      s.PosTaxAmount,
		PosRoundOffAmount: s.PosRoundOffAmount,

		AggGrossAmount:      s.AggGrossAmount,
		AggDiscountAmount:   s.AggDiscountAmount,
		AggNetAmount:        s.AggNetAmount,
		AggTaxAmount:        s.AggTaxAmount,
		AggCommissionAmount: s.AggCommissionAmount,
		AggPaymentFeeAmount: s.AggPaymentFeeAmount,
		AggPayoutAmount:     s.AggPayoutAmount,

		DeltaGrossAmount:    s.DeltaGrossAmount,
		DeltaDiscountAmount: s.DeltaDiscountAmount,
		DeltaNetAmount:      s.DeltaNetAmount,
		DeltaTaxAmount:      s.DeltaTaxAmount,
		DeltaPayoutAmount:   s.DeltaPayoutAmount,
	}
}

func posMatchedFromSummary(s *ReconciliationSummary) (*PosMatchedSheetData, bool) {
	if s.PosOrderId == nil {
		return nil, false
	}
	return &PosMatchedSheetData{
		ID:               "POS_" + *s.PosOrderId,
		SheetDataColumns: sheetColumnsFromSummary(s),
	}, true
}

func aggMatchedFromSummary(s *ReconciliationSummary) (*AggMatchedSheetData, bool) {
	if s.AggOrderId == nil {
		return nil, false
	}
	return &AggMatchedSheetData{
		ID:               "AGG_" + *s.AggOrderId,
		SheetDataColumns: sheetColumnsFromSummary(s),
	}, true
}

func refundFromSummary(s *ReconciliationSummary) (*RefundSheetData, bool) {
	if s.AggOrderId == nil || s.OrderStatusAgg != OrderStatusRefund {
		return nil, false
	}
	return &RefundSheetData{
		ID:               "REF_" + *s.AggOrderId,
		SheetDataColumns: sheetColumnsFromSummary(s),
	}, true
}

func missingInPosFromSummary(s *ReconciliationSummary) (*MissingInPosSheetData, bool) {
	if s.PosOrderId != nil || s.AggOrderId == nil {
		return nil, false
	}
	return &MissingInPosSheetData{
		ID:               "MIP_" + *s.AggOrderId,
		SheetDataColumns: sheetColumnsFromSummary(s),
	}, true
}

func missingInAggFromSummary(s *ReconciliationSummary) (*MissingInAggSheetData, bool) {
	if s.AggOrderId != nil || s.PosOrderId == nil {
		return nil, false
	}
	return &MissingInAggSheetData{
		ID:               "MIA_" + *s.PosOrderId,
		SheetDataColumns: sheetColumnsFromSummary(s),
	}, true
}

// rebuildCategoryTable truncates and repopulates one category table inside its
// own transaction. Summary rows are streamed in batches so the rebuild never
// holds the whole summary table in memory.
func rebuildCategoryTable[T any](ctx context.Context, db *gorm.DB, table string, build func(*ReconciliationSummary) (*T, bool)) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// DELETE rather than TRUNCATE: TRUNCATE is an implicit commit in
		// MySQL and would break the per-table transaction boundary.
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}

		var batch []*ReconciliationSummary
		result := tx.Model(&ReconciliationSummary{}).Order("id").
			FindInBatches(&batch, summaryScanBatchSize, func(_ *gorm.DB, _ int) error {
				rows := make([]*T, 0, len(batch))
				for _, s := range batch {
					if row, ok := build(s); ok {
						rows = append(rows, row)
					}
				}
				if len(rows) == 0 {
					return nil
				}
				return tx.Table(table).CreateInBatches(rows, summaryScanBatchSize).Error
			})
		return result.Error
	})
}

// RebuildSheetData rebuilds all five category tables. Each table is its own
// transaction boundary: a failure aborts that table's rebuild only, and the
// remaining tables still run. Running twice on unchanged summary data yields
// byte-identical tables.
func RebuildSheetData(ctx context.Context) error {
	db := config.GetDB()
	logger := config.GetLogger()

	// Best-effort serialization of overlapping rebuild calls. Redis being
	// down must not block the rebuild; MySQL stays the source of truth.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "lock:sheet-data-rebuild", 10*time.Minute, nil)
		if err == nil {
			defer func() {
				_ = lock.Release(ctx)
			}()
		} else if err == redislock.ErrNotObtained {
			return errors.New("sheet data rebuild already in progress")
		} else {
			config.LogError(logger, "categorizer.go", "RebuildSheetData", "Obtain redis lock", nil, err)
		}
	}

	var errs []error
	record := func(category SheetCategory, err error) {
		if err != nil {
			config.LogError(logger, "categorizer.go", "RebuildSheetData", string(category), nil, err)
			errs = append(errs, fmt.Errorf("rebuild %s: %w", category, err))
		}
	}

	record(SheetCategoryPosMatched, rebuildCategoryTable(ctx, db, PosMatchedSheetData{}.TableName(), posMatchedFromSummary))
	record(SheetCategoryAggMatched, rebuildCategoryTable(ctx, db, AggMatchedSheetData{}.TableName(), aggMatchedFromSummary))
	record(SheetCategoryRefund, rebuildCategoryTable(ctx, db, RefundSheetData{}.TableName(), refundFromSummary))
	record(SheetCategoryMissingInPos, rebuildCategoryTable(ctx, db, MissingInPosSheetData{}.TableName(), missingInPosFromSummary))
	record(SheetCategoryMissingInAgg, rebuildCategoryTable(ctx, db, MissingInAggSheetData{}.TableName(), missingInAggFromSummary))

	return errors.Join(errs...)
}
