package qc

import (
	"math"
	"testing"
)

func TestCenteredMean(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name       string
		xs         []float64
		window     int
		minPeriods int
		expected   []float64
	}{
		{
			name:       "odd window",
			xs:         []float64{1, 2, 3, 4, 5},
			window:     3,
			minPeriods: 1,
			expected:   []float64{1.5, 2, 3, 4, 4.5},
		},
		{
			name:       "even window leans back",
			xs:         []float64{1, 2, 3, 4, 5},
			window:     4,
			minPeriods: 1,
			expected:   []float64{1.5, 2, 2.5, 3.5, 4},
		},
		{
			name:       "nan skipped",
			xs:         []float64{1, nan, 3},
			window:     3,
			minPeriods: 1,
			expected:   []float64{1, 2, 3},
		},
		{
			name:       "min periods",
			xs:         []float64{1, nan, 3},
			window:     3,
			minPeriods: 2,
			expected:   []float64{nan, 2, nan},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := centeredMean(tt.xs, tt.window, tt.minPeriods)
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d values, want %d", len(got), len(tt.expected))
			}
			for i := range got {
				if math.IsNaN(tt.expected[i]) {
					if !math.IsNaN(got[i]) {
						t.Errorf("index %d: got %v, want NaN", i, got[i])
					}
					continue
				}
				if math.Abs(got[i]-tt.expected[i]) > 1e-9 {
					t.Errorf("index %d: got %v, want %v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestQuantile(t *testing.T) {
	xs := []float64{4, 1, 3, 2, math.NaN()}
	tests := []struct {
		q        float64
		expected float64
	}{
		{0, 1},
		{0.5, 2.5},
		{0.9, 3.7},
		{1, 4},
	}
	for _, tt := range tests {
		if got := quantile(xs, tt.q); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("quantile(%v) = %v, want %v", tt.q, got, tt.expected)
		}
	}
	if got := quantile(nil, 0.5); !math.IsNaN(got) {
		t.Errorf("quantile of empty input = %v, want NaN", got)
	}
}

func TestSampleStdDev(t *testing.T) {
	if got := sampleStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}); math.Abs(got-2.138089935) > 1e-6 {
		t.Errorf("got %v", got)
	}
	if got := sampleStdDev([]float64{3}); !math.IsNaN(got) {
		t.Errorf("single value: got %v, want NaN", got)
	}
}
