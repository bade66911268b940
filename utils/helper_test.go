package utils

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestProcessValidationErrors_FlattensFieldTags(t *testing.T) {
	type query struct {
		Category  string `validate:"required"`
		StartDate string `validate:"required,datetime=2006-01-02"`
	}

	err := validator.New().Struct(query{StartDate: "15-08-2026"})
	if err == nil {
		t.Fatal("expected validation errors")
	}

	fields := ProcessValidationErrors(err)
	if fields["Category"] != "required" {
		t.Errorf("Category: got %q, want required", fields["Category"])
	}
	if fields["StartDate"] != "datetime" {
		t.Errorf("StartDate: got %q, want datetime", fields["StartDate"])
	}
}

func TestUniqueSlice_PreservesFirstOccurrenceOrder(t *testing.T) {
	got := UniqueSlice([]string{"S001", "S002", "S001", "S003", "S002"})
	want := []string{"S001", "S002", "S003"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := SplitAndTrim(" S001, ,S002 ,")
	if len(got) != 2 || got[0] != "S001" || got[1] != "S002" {
		t.Errorf("got %v", got)
	}
	if SplitAndTrim("  ") != nil {
		t.Error("blank input must yield nil")
	}
}

func TestParseDecimal(t *testing.T) {
	dec, err := ParseDecimal(" 1500.50 ")
	if err != nil || dec.String() != "1500.5" {
		t.Errorf("got %v, %v", dec, err)
	}
	if _, err := ParseDecimal(""); err == nil {
		t.Error("empty string must error")
	}
	if _, err := ParseDecimal("12.3.4"); err == nil {
		t.Error("malformed number must error")
	}
}
