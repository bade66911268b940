package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"github.com/shopspring/decimal"
)

var ErrInvalidCategory = errors.New("invalid sheet category")

// SheetDataColumns is the column block shared by all five category tables.
// Money and delta values are passed through verbatim from the summary row;
// nothing here is recomputed.
type SheetDataColumns struct {
	PosOrderId *string `gorm:"size:255;index;default:null" json:"pos_order_id"`
	AggOrderId *string `gorm:"size:255;index;default:null" json:"agg_order_id"`

	StoreCode string    `gorm:"size:64;index" json:"store_code"`
	BillDate  time.Time `gorm:"index;default:null" json:"bill_date"`

	OrderStatusPos   string `gorm:"size:64;default:null" json:"order_status_pos"`
	OrderStatusAgg   string `gorm:"size:64;default:null" json:"order_status_agg"`
	ReconciledStatus string `gorm:"size:64;default:null" json:"reconciled_status"`

	PosGrossAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"pos_gross_amount"`
	PosDiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"pos_discount_amount"`
	PosNetAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"pos_net_amount"`
	PosTaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"pos_tax_amount"`
	PosRoundOffAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"pos_round_off_amount"`

	AggGrossAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"agg_gross_amount"`
	AggDiscountAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"agg_discount_amount"`
	AggNetAmount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"agg_net_amount"`
	AggTaxAmount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"agg_tax_amount"`
	AggCommissionAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"agg_commission_amount"`
	AggPaymentFeeAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"agg_payment_fee_amount"`
	AggPayoutAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"agg_payout_amount"`

	DeltaGrossAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"delta_gross_amount"`
	DeltaDiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"delta_discount_amount"`
	DeltaNetAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"delta_net_amount"`
	DeltaTaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"delta_tax_amount"`
	DeltaPayoutAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"delta_payout_amount"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// The synthetic string primary key (`<prefix>_<anchorOrderId>`) is what makes
// truncate-and-rebuild safe: reruns on unchanged input derive identical ids.

type PosMatchedSheetData struct {
	ID               string `gorm:"primaryKey;size:255" json:"id"`
	SheetDataColumns `gorm:"embedded"`
}

func (PosMatchedSheetData) TableName() string {
	return "pos_matched_sheet_data"
}

type AggMatchedSheetData struct {
	ID               string `gorm:"primaryKey;size:255" json:"id"`
	SheetDataColumns `gorm:"embedded"`
}

func (AggMatchedSheetData) TableName() string {
	return "agg_matched_sheet_data"
}

type RefundSheetData struct {
	ID               string `gorm:"primaryKey;size:255" json:"id"`
	SheetDataColumns `gorm:"embedded"`
}

func (RefundSheetData) TableName() string {
	return "refund_sheet_data"
}

type MissingInPosSheetData struct {
	ID               string `gorm:"primaryKey;size:255" json:"id"`
	SheetDataColumns `gorm:"embedded"`
}

func (MissingInPosSheetData) TableName() string {
	return "missing_in_pos_sheet_data"
}

type MissingInAggSheetData struct {
	ID               string `gorm:"primaryKey;size:255" json:"id"`
	SheetDataColumns `gorm:"embedded"`
}

func (MissingInAggSheetData) TableName() string {
	return "missing_in_agg_sheet_data"
}

func sheetCategoryTable(category SheetCategory) (string, bool) {
	switch category {
	case SheetCategoryPosMatched:
		return PosMatchedSheetData{}.TableName(), true
	case SheetCategoryAggMatched:
		return AggMatchedSheetData{}.TableName(), true
	case SheetCategoryRefund:
		return RefundSheetData{}.TableName(), true
	case SheetCategoryMissingInPos:
		return MissingInPosSheetData{}.TableName(), true
	case SheetCategoryMissingInAgg:
		return MissingInAggSheetData{}.TableName(), true
	}
	return "", false
}

// sheetDateClause builds the bill-date predicate. A single-day range
// (start == end) is an exact-date equality, not a BETWEEN, so there is no
// inclusive/exclusive ambiguity at day granularity.
func sheetDateClause(startDate, endDate time.Time) (string, []interface{}) {
	start := startDate.Format("2006-01-02")
	end := endDate.Format("2006-01-02")
	if start == end {
		return "DATE(bill_date) = ?", []interface{}{start}
	}
	return "DATE(bill_date) BETWEEN ? AND ?", []interface{}{start, end}
}

// QuerySheetData is the read-only accessor over the five category tables.
// No rows matching the filter is an empty result, not an error.
func QuerySheetData(ctx context.Context, category SheetCategory, startDate, endDate time.Time, storeCodes []string) ([]map[string]interface{}, error) {
	table, ok := sheetCategoryTable(category)
	if !ok {
		return nil, ErrInvalidCategory
	}

	db := config.GetDB()
	clause, args := sheetDateClause(startDate, endDate)
	dbCtx := db.WithContext(ctx).Table(table).Where(clause, args...)
	if len(storeCodes) > 0 {
		dbCtx = dbCtx.Where("store_code IN ?", storeCodes)
	}

	rows := make([]map[string]interface{}, 0)
	if err := dbCtx.Order("bill_date, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
