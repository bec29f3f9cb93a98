package service

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBasePercentForLevel(t *testing.T) {
	cases := []struct {
		level int
		want  string
	}{
		{1, "13"},
		{2, "2"},
		{3, "1"},
		{4, "1"},
		{0, "0"},
		{5, "0"},
		{-1, "0"},
	}
	for _, tc := range cases {
		got := BasePercentForLevel(tc.level)
		if got.String() != tc.want {
			t.Fatalf("level %d percent want %s, got %s", tc.level, tc.want, got.String())
		}
	}
}

func TestComputeCommissionFullRate(t *testing.T) {
	orderTotal := decimal.NewFromInt(189)
	fullRate := decimal.NewFromInt(1)

	cases := []struct {
		level int
		want  string
	}{
		{1, "24.57"},
		{2, "3.78"},
		{3, "1.89"},
		{4, "1.89"},
	}
	for _, tc := range cases {
		got := ComputeCommission(tc.level, orderTotal, fullRate).Round(2)
		if got.StringFixed(2) != tc.want {
			t.Fatalf("level %d commission want %s, got %s", tc.level, tc.want, got.StringFixed(2))
		}
	}
}

func TestComputeCommissionReducedRate(t *testing.T) {
	orderTotal := decimal.NewFromInt(200)
	halfRate := decimal.NewFromFloat(0.5)

	got := ComputeCommission(1, orderTotal, halfRate).Round(2)
	if got.StringFixed(2) != "13.00" {
		t.Fatalf("reduced rate commission want 13.00, got %s", got.StringFixed(2))
	}
}

func TestComputeCommissionZeroCases(t *testing.T) {
	if got := ComputeCommission(1, decimal.Zero, decimal.NewFromInt(1)); !got.IsZero() {
		t.Fatalf("zero order total should yield zero, got %s", got.String())
	}
	if got := ComputeCommission(7, decimal.NewFromInt(100), decimal.NewFromInt(1)); !got.IsZero() {
		t.Fatalf("unknown level should yield zero, got %s", got.String())
	}
	if got := ComputeCommission(1, decimal.NewFromInt(100), decimal.Zero); !got.IsZero() {
		t.Fatalf("zero rate should yield zero, got %s", got.String())
	}
}

func TestComputeCommissionNegativeTotalPassesThrough(t *testing.T) {
	got := ComputeCommission(1, decimal.NewFromInt(-100), decimal.NewFromInt(1)).Round(2)
	if got.StringFixed(2) != "-13.00" {
		t.Fatalf("negative total want -13.00, got %s", got.StringFixed(2))
	}
}
