package bms

import (
	"math"
	"testing"
)

func TestAdjustTimeScaledMeasures(t *testing.T) {
	c := NewChart()
	c.Shortens = []float64{0.25, 0.25, 0.25, 0.25}
	if got := c.AdjustTime(0, 2); got != 5 {
		t.Fatalf("expected 5, got %v", got)
	}
	c.Shortens = []float64{1.2}
	if got := c.AdjustPosition(0, 2); math.Abs(got-2.2) > 1e-12 {
		t.Fatalf("expected 2.2, got %v", got)
	}
}

func TestShortenOutOfRange(t *testing.T) {
	c := NewChart()
	c.Shortens = []float64{0.5}
	if c.Shorten(-1) != 1 || c.Shorten(1) != 1 || c.Shorten(0) != 0.5 {
		t.Fatalf("unexpected scaling factors %v %v %v", c.Shorten(-1), c.Shorten(0), c.Shorten(1))
	}
}

func TestAdjustTimeRoundTrip(t *testing.T) {
	tables := [][]float64{
		nil,
		{1, 0.5, 2, 0.25},
		{0.75, 0.75, 1.5, 1, 3},
	}
	for _, shortens := range tables {
		c := NewChart()
		c.Shortens = shortens
		for _, base := range []float64{0, 0.3, 1.7, 2.5, 5} {
			if got := c.AdjustTime(base, 0); got != base {
				t.Fatalf("shortens %v: expected AdjustTime(%v, 0) to be %v, got %v", shortens, base, base, got)
			}
			for _, d := range []float64{0.1, 0.6, 1.3, 3.9} {
				pos := c.AdjustTime(base, d)
				if got := c.AdjustPosition(base, pos); math.Abs(got-d) > 1e-9 {
					t.Fatalf("shortens %v: base %v delta %v round-tripped to %v", shortens, base, d, got)
				}
			}
		}
	}
}
