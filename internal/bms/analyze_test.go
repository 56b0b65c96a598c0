package bms

import (
	"math"
	"testing"
)

func TestAnalyze(t *testing.T) {
	c := chartWith(
		NewVisible(0.5, 1, 1),
		NewLNStart(1, 2, 2),
		NewLNDone(2, 2, 3),
		NewSetBPM(2, 150),
	)
	info := Analyze(c)
	if info.NumNotes != 2 || info.OriginOffset != -1 || !info.HasLongNote || !info.HasBPMChange {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.MaxScore != 750 {
		t.Fatalf("expected max score 750, got %d", info.MaxScore)
	}

	info = Analyze(chartWith(NewVisible(1, 1, 1)))
	if info.OriginOffset != 0 || info.MaxScore != 300 {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestPlayDuration(t *testing.T) {
	length := func(k Key) float64 {
		if k == 1 {
			return 10
		}
		return 0
	}
	tests := []struct {
		name string
		objs []Obj
		want float64
	}{
		{"plain", []Obj{NewBGM(1, 2)}, 6},
		{"sound tail", []Obj{NewBGM(1, 1)}, 12},
		{"stop", []Obj{NewStop(1, Duration{Unit: Seconds, Value: 1.5})}, 7.5},
		{"tempo", []Obj{NewSetBPM(1, 240)}, 4},
		{"reverse", []Obj{NewSetBPM(1, -120)}, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := chartWith(tc.objs...)
			c.InitialBPM = 120
			c.NumMeasures = 2
			if got := PlayDuration(c, 0, length); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("expected %v seconds, got %v", tc.want, got)
			}
		})
	}
}
