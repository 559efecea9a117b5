package metrics

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPercentageChange(t *testing.T) {
	tests := []struct {
		name      string
		cur, prev string
		want      string
	}{
		{"both zero", "0", "0", "0"},
		{"growth from zero", "12.5", "0", "100"},
		{"doubled", "100", "50", "100"},
		{"halved", "50", "100", "-50"},
		{"month over month", "1000000", "800000", "25"},
		{"repeating fraction rounds to two places", "1", "3", "-66.67"},
		{"thirds", "4", "3", "33.33"},
		{"negative previous keeps sign of denominator", "50", "-100", "-150"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentageChange(d(tt.cur), d(tt.prev))
			if !got.Equal(d(tt.want)) {
				t.Errorf("PercentageChange(%s, %s) = %s, want %s", tt.cur, tt.prev, got, tt.want)
			}
		})
	}
}

func TestSavingsChangeUsesAbsoluteDenominator(t *testing.T) {
	tests := []struct {
		cur, prev, want string
	}{
		{"0", "0", "0"},
		{"10", "0", "100"},
		{"-10", "0", "0"},
		{"150", "100", "50"},
		{"50", "-100", "150"},
		{"-200", "-100", "-100"},
	}
	for _, tt := range tests {
		got := SavingsChange(d(tt.cur), d(tt.prev))
		if !got.Equal(d(tt.want)) {
			t.Errorf("SavingsChange(%s, %s) = %s, want %s", tt.cur, tt.prev, got, tt.want)
		}
	}
	if PercentageChange(d("50"), d("-100")).Equal(SavingsChange(d("50"), d("-100"))) {
		t.Error("savings and percentage change should disagree for a negative previous value")
	}
}

func TestCountChange(t *testing.T) {
	if got := CountChange(3, 2); !got.Equal(d("50")) {
		t.Errorf("CountChange(3, 2) = %s", got)
	}
	if got := CountChange(0, 0); !got.IsZero() {
		t.Errorf("CountChange(0, 0) = %s", got)
	}
}

func TestLastPage(t *testing.T) {
	tests := []struct {
		total   int64
		perPage int
		want    int
	}{
		{0, 17, 1},
		{1, 17, 1},
		{17, 17, 1},
		{18, 17, 2},
		{35, 17, 3},
		{34, 17, 2},
	}
	for _, tt := range tests {
		if got := LastPage(tt.total, tt.perPage); got != tt.want {
			t.Errorf("LastPage(%d, %d) = %d, want %d", tt.total, tt.perPage, got, tt.want)
		}
	}
}
