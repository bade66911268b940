package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// SourceType identifies the external data provider an export came from. Each
// source type has its own raw staging table and its own column mappings.
type SourceType string

const (
	SourceTypePosSale              SourceType = "pos_sale"
	SourceTypeAggregatorSettlement SourceType = "aggregator_settlement"
	SourceTypeBankStatement        SourceType = "bank_statement"
)

// fixed allow-list; upload submission rejects anything else before dispatch
var allSourceTypes = []SourceType{
	SourceTypePosSale,
	SourceTypeAggregatorSettlement,
	SourceTypeBankStatement,
}

func ParseSourceType(s string) (SourceType, error) {
	for _, t := range allSourceTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid source type %q", s)
}

func (t SourceType) Value() (driver.Value, error) {
	return string(t), nil
}

func (t *SourceType) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*t = SourceType(v)
	case []byte:
		*t = SourceType(v)
	default:
		return errors.New("source type must be string")
	}
	return nil
}

// UploadStatus transitions are monotonic: uploaded -> processing -> completed|failed.
// Terminal states are never revisited.
type UploadStatus string

const (
	UploadStatusUploaded   UploadStatus = "uploaded"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
)

func (s UploadStatus) IsTerminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusFailed
}

func ParseUploadStatus(s string) (UploadStatus, error) {
	switch UploadStatus(s) {
	case UploadStatusUploaded, UploadStatusProcessing, UploadStatusCompleted, UploadStatusFailed:
		return UploadStatus(s), nil
	}
	return "", fmt.Errorf("invalid upload status %q", s)
}

func (s UploadStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *UploadStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = UploadStatus(v)
	case []byte:
		*s = UploadStatus(v)
	default:
		return errors.New("upload status must be string")
	}
	return nil
}

// SheetCategory names one of the five materialized reconciliation views.
type SheetCategory string

const (
	SheetCategoryPosMatched   SheetCategory = "pos_matched"
	SheetCategoryAggMatched   SheetCategory = "agg_matched"
	SheetCategoryRefund       SheetCategory = "refund"
	SheetCategoryMissingInPos SheetCategory = "missing_in_pos"
	SheetCategoryMissingInAgg SheetCategory = "missing_in_agg"
)

// OrderStatusRefund is the aggregator-side order status that routes a summary
// row into the refund view (in addition to its matched view).
const OrderStatusRefund = "refund"
