package models

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/schema"
)

// Raw staging tables, one per source type. Rows are created in bulk by the
// ingestion loader and never individually mutated; re-ingesting a period
// without an external truncate duplicates rows (caller responsibility).
//
// Column names double as the canonical field names the column-mapping
// registry targets, so the allowed canonical set per source type is derived
// from these structs rather than maintained by hand.

type RawPosSale struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BillNo         string          `gorm:"size:255;index" json:"bill_no"`
	StoreCode      string          `gorm:"size:64;index" json:"store_code"`
	BillDate       time.Time       `gorm:"default:null" json:"bill_date"`
	GrossAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gross_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	NetAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	RoundOffAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"round_off_amount"`
	PaymentMode    string          `gorm:"size:64;default:null" json:"payment_mode"`
	OrderStatus    string          `gorm:"size:64;default:null" json:"order_status"`
	CashierName    string          `gorm:"size:255;default:null" json:"cashier_name"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type RawAggregatorSettlement struct {
	ID               int             `gorm:"primary_key" json:"id"`
	OrderId          string          `gorm:"size:255;index" json:"order_id"`
	StoreCode        string          `gorm:"size:64;index" json:"store_code"`
	OrderDate        time.Time       `gorm:"default:null" json:"order_date"`
	GrossAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gross_amount"`
	DiscountAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	NetAmount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_amount"`
	TaxAmount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"commission_amount"`
	PaymentFeeAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"payment_fee_amount"`
	PayoutAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"payout_amount"`
	OrderStatus      string          `gorm:"size:64;default:null" json:"order_status"`
	SettlementRef    string          `gorm:"size:255;default:null" json:"settlement_ref"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type RawBankStatement struct {
	ID              int             `gorm:"primary_key" json:"id"`
	TransactionRef  string          `gorm:"size:255;index" json:"transaction_ref"`
	StoreCode       string          `gorm:"size:64;index" json:"store_code"`
	TransactionDate time.Time       `gorm:"default:null" json:"transaction_date"`
	CreditAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit_amount"`
	DebitAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit_amount"`
	BalanceAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance_amount"`
	Narration       string          `gorm:"type:text" json:"narration"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

var rawModels = map[SourceType]interface{}{
	SourceTypePosSale:              &RawPosSale{},
	SourceTypeAggregatorSettlement: &RawAggregatorSettlement{},
	SourceTypeBankStatement:        &RawBankStatement{},
}

// RawTableName returns the destination staging table for a source type.
// The bool is false when the source type has no registered destination.
func RawTableName(sourceType SourceType) (string, bool) {
	switch sourceType {
	case SourceTypePosSale:
		return "raw_pos_sales", true
	case SourceTypeAggregatorSettlement:
		return "raw_aggregator_settlements", true
	case SourceTypeBankStatement:
		return "raw_bank_statements", true
	}
	return "", false
}

var (
	canonicalFieldCache   = map[SourceType]map[string]bool{}
	canonicalFieldCacheMu sync.Mutex
)

// CanonicalFields returns the set of column names a mapping may target for a
// source type, parsed once from the raw model's gorm schema. `id` and
// `created_at` are loader-owned and never valid mapping targets.
func CanonicalFields(sourceType SourceType) (map[string]bool, error) {
	canonicalFieldCacheMu.Lock()
	defer canonicalFieldCacheMu.Unlock()

	if fields, ok := canonicalFieldCache[sourceType]; ok {
		return fields, nil
	}

	model, ok := rawModels[sourceType]
	if !ok {
		return nil, fmt.Errorf("no raw model registered for source type %q", sourceType)
	}

	s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		return nil, err
	}

	fields := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.DBName == "" || f.DBName == "id" || f.DBName == "created_at" {
			continue
		}
		fields[f.DBName] = true
	}
	canonicalFieldCache[sourceType] = fields
	return fields, nil
}

// FieldKind drives how the loader coerces spreadsheet cell text before it
// reaches a typed staging column.
type FieldKind int

const (
	FieldKindString FieldKind = iota
	FieldKindDecimal
	FieldKindTime
)

var (
	decimalType = reflect.TypeOf(decimal.Decimal{})
	timeType    = reflect.TypeOf(time.Time{})
)

// CanonicalFieldKinds returns the value kind of every canonical field of a
// source type, parsed from the raw model's gorm schema.
func CanonicalFieldKinds(sourceType SourceType) (map[string]FieldKind, error) {
	model, ok := rawModels[sourceType]
	if !ok {
		return nil, fmt.Errorf("no raw model registered for source type %q", sourceType)
	}

	s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		return nil, err
	}

	kinds := make(map[string]FieldKind, len(s.Fields))
	for _, f := range s.Fields {
		if f.DBName == "" || f.DBName == "id" || f.DBName == "created_at" {
			continue
		}
		switch f.FieldType {
		case decimalType:
			kinds[f.DBName] = FieldKindDecimal
		case timeType:
			kinds[f.DBName] = FieldKindTime
		default:
			kinds[f.DBName] = FieldKindString
		}
	}
	return kinds, nil
}
