package timeseries

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		times   []float64
		values  []float64
		wantErr error
	}{
		{"ok", []float64{1, 2, 3}, []float64{0.1, 0.2, 0.3}, nil},
		{"empty", nil, nil, nil},
		{"length mismatch", []float64{1, 2}, []float64{1}, ErrLengthMismatch},
		{"duplicate time", []float64{1, 2, 2}, []float64{1, 2, 3}, ErrUnsortedTimes},
		{"decreasing", []float64{3, 2, 1}, []float64{1, 2, 3}, ErrUnsortedTimes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.times, tt.values)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValid(t *testing.T) {
	s := Series{
		Times:  []float64{1, 2, 3, 4, 5},
		Values: []float64{1, math.NaN(), 3, math.Inf(1), 5},
	}
	if got := s.ValidCount(); got != 3 {
		t.Fatalf("ValidCount() = %d, want 3", got)
	}

	v := s.Valid()
	wantTimes := []float64{1, 3, 5}
	if v.Len() != len(wantTimes) {
		t.Fatalf("Valid().Len() = %d, want %d", v.Len(), len(wantTimes))
	}
	for i, want := range wantTimes {
		if v.Times[i] != want {
			t.Errorf("Times[%d] = %v, want %v", i, v.Times[i], want)
		}
	}
}

func TestDayNumber(t *testing.T) {
	tests := []struct {
		date string
		want float64
	}{
		{"19700101", 0},
		{"19700102", 1},
		{"20000101", 10957},
		{"20200101", 18262},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d, err := ParseDate(tt.date)
			if err != nil {
				t.Fatalf("ParseDate: %v", err)
			}
			got := DayNumber(d)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("DayNumber(%s) = %v, want %v", tt.date, got, tt.want)
			}
			back := DayTime(got)
			if back.Sub(d).Abs() > time.Second {
				t.Errorf("DayTime(%v) = %v, want %v", got, back, d)
			}
		})
	}
}

func TestParseDateInvalid(t *testing.T) {
	if _, err := ParseDate("2020-01-01"); err == nil {
		t.Fatal("expected error for dashed date")
	}
}

func TestUniformGrid(t *testing.T) {
	tests := []struct {
		name              string
		start, stop, step float64
		wantLen           int
	}{
		{"whole days", 0, 10, 1, 10},
		{"fractional step", 0, 1, 0.01, 100},
		{"partial last step", 0, 10.5, 1, 11},
		{"empty range", 5, 5, 1, 0},
		{"zero step", 0, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := UniformGrid(tt.start, tt.stop, tt.step)
			if len(g) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(g), tt.wantLen)
			}
			for _, x := range g {
				if x >= tt.stop {
					t.Errorf("grid point %v not below stop %v", x, tt.stop)
				}
			}
		})
	}
}

func TestBetween(t *testing.T) {
	g := UniformGrid(0, 11, 1)
	got := Between(g, 2, 6)
	want := []float64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("Between = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Between[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
