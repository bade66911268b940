package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationSummary is the categorizer's sole input: one row per logical
// order, pre-joined across POS and aggregator by the upstream ETL, with
// per-field deltas already computed where both sides exist. This backend
// reads it and never writes it.
type ReconciliationSummary struct {
	ID int `gorm:"primary_key" json:"id"`

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

func (ReconciliationSummary) TableName() string {
	return "reconciliation_summaries"
}
