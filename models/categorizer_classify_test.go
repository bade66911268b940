package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the category
// predicates and synthetic id derivation on in-memory summary rows; the
// truncate-and-rebuild path needs MySQL and is covered by ops runbooks.

func strPtr(s string) *string { return &s }

func matchedSummary() *ReconciliationSummary {
	return &ReconciliationSummary{
		PosOrderId:     strPtr("P1"),
		AggOrderId:     strPtr("Z1"),
		StoreCode:      "S001",
		BillDate:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		OrderStatusPos: "completed",
		OrderStatusAgg: "active",
		PosNetAmount:   decimal.NewFromInt(1200),
		AggNetAmount:   decimal.NewFromInt(1180),
		DeltaNetAmount: decimal.NewFromInt(20),
	}
}

// A fully matched active order lands in both matched tables and nowhere else.
func TestClassify_MatchedActiveOrder(t *testing.T) {
	s := matchedSummary()

	pos, ok := posMatchedFromSummary(s)
	if !ok {
		t.Fatal("expected pos_matched membership")
	}
	if pos.ID != "POS_P1" {
		t.Errorf("pos id: got %q, want POS_P1", pos.ID)
	}
	agg, ok := aggMatchedFromSummary(s)
	if !ok {
		t.Fatal("expected agg_matched membership")
	}
	if agg.ID != "AGG_Z1" {
		t.Errorf("agg id: got %q, want AGG_Z1", agg.ID)
	}

	if _, ok := refundFromSummary(s); ok {
		t.Error("active order must not be a refund")
	}
	if _, ok := missingInPosFromSummary(s); ok {
		t.Error("matched order must not be missing_in_pos")
	}
	if _, ok := missingInAggFromSummary(s); ok {
		t.Error("matched order must not be missing_in_agg")
	}
}

// An aggregator-only refund is in agg_matched, refund AND missing_in_pos;
// the categories are deliberately not mutually exclusive.
func TestClassify_AggOnlyRefundOverlapsThreeCategories(t *testing.T) {
	s := &ReconciliationSummary{
		PosOrderId:     nil,
		AggOrderId:     strPtr("Z2"),
		StoreCode:      "S002",
		OrderStatusAgg: OrderStatusRefund,
	}

	if _, ok := posMatchedFromSummary(s); ok {
		t.Error("row without pos order must not be pos_matched")
	}
	if agg, ok := aggMatchedFromSummary(s); !ok || agg.ID != "AGG_Z2" {
		t.Errorf("expected agg_matched AGG_Z2, got ok=%v", ok)
	}
	if ref, ok := refundFromSummary(s); !ok || ref.ID != "REF_Z2" {
		t.Errorf("expected refund REF_Z2, got ok=%v", ok)
	}
	if mip, ok := missingInPosFromSummary(s); !ok || mip.ID != "MIP_Z2" {
		t.Errorf("expected missing_in_pos MIP_Z2, got ok=%v", ok)
	}
	if _, ok := missingInAggFromSummary(s); ok {
		t.Error("row without pos order must not be missing_in_agg")
	}
}

func TestClassify_PosOnlyOrderIsMissingInAgg(t *testing.T) {
	s := &ReconciliationSummary{
		PosOrderId: strPtr("P9"),
		AggOrderId: nil,
		StoreCode:  "S003",
	}

	if mia, ok := missingInAggFromSummary(s); !ok || mia.ID != "MIA_P9" {
		t.Errorf("expected missing_in_agg MIA_P9, got ok=%v", ok)
	}
	if _, ok := aggMatchedFromSummary(s); ok {
		t.Error("row without agg order must not be agg_matched")
	}
	if _, ok := refundFromSummary(s); ok {
		t.Error("row without agg order must not be a refund")
	}
	if _, ok := missingInPosFromSummary(s); ok {
		t.Error("row with pos order must not be missing_in_pos")
	}
}

// A refund must keep its aggregator order status to qualify: a matched row
// with any other status never reaches the refund table.
func TestClassify_NonRefundStatusSkipsRefundTable(t *testing.T) {
	s := matchedSummary()
	s.OrderStatusAgg = "cancelled"

	if _, ok := refundFromSummary(s); ok {
		t.Error("cancelled order must not be a refund")
	}
}

// Rebuilding from the same summary row twice derives the same ids and the
// same column values, which is what makes truncate-and-rebuild idempotent.
func TestClassify_Deterministic(t *testing.T) {
	first, _ := posMatchedFromSummary(matchedSummary())
	second, _ := posMatchedFromSummary(matchedSummary())

	if first.ID != second.ID {
		t.Fatalf("ids differ across reruns: %q vs %q", first.ID, second.ID)
	}
	if !first.PosNetAmount.Equal(second.PosNetAmount) || !first.DeltaNetAmount.Equal(second.DeltaNetAmount) {
		t.Error("amounts differ across reruns")
	}
	if first.StoreCode != second.StoreCode || !first.BillDate.Equal(second.BillDate) {
		t.Error("dimensions differ across reruns")
	}
}

// Amounts pass through verbatim from the summary; the categorizer never
// recomputes deltas.
func TestClassify_AmountsCopiedVerbatim(t *testing.T) {
	s := matchedSummary()
	s.DeltaNetAmount = decimal.RequireFromString("0.0001")

	agg, _ := aggMatchedFromSummary(s)
	if !agg.DeltaNetAmount.Equal(decimal.RequireFromString("0.0001")) {
		t.Errorf("delta not copied verbatim: %s", agg.DeltaNetAmount)
	}
}
