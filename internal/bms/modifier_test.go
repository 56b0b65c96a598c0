package bms

import (
	"math/rand/v2"
	"testing"
)

func fiveKeySpec(t *testing.T) *KeySpec {
	t.Helper()
	ks, err := NewKeySpec(NewChart(), KeySpecOptions{Preset: "5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ks
}

func TestMirror(t *testing.T) {
	c := chartWith(
		NewVisible(1, 1, 1),
		NewVisible(1, 2, 2),
		NewVisible(1, 3, 3),
		NewVisible(1, 6, 4),
		NewBGM(1, 5),
	)
	ks := fiveKeySpec(t)
	ApplyModifier(c, Mirror, nil, ks, 0, len(ks.Order))
	want := []Lane{5, 4, 3, 6}
	for i, lane := range want {
		if c.Objs[i].Lane != lane {
			t.Fatalf("object %d: expected lane %d, got %d", i, lane, c.Objs[i].Lane)
		}
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	c := NewChart()
	for lane := Lane(1); lane <= 5; lane++ {
		c.Objs = append(c.Objs, NewVisible(1, lane, Key(lane)), NewVisible(2, lane, Key(lane)))
	}
	ks := fiveKeySpec(t)
	ApplyModifier(c, Shuffle, rand.New(rand.NewPCG(3, 4)), ks, 0, len(ks.Order))
	target := map[Key]Lane{}
	used := map[Lane]bool{}
	for _, o := range c.Objs {
		if prev, ok := target[o.Sound]; ok {
			if prev != o.Lane {
				t.Fatalf("expected lane %d to move consistently", o.Sound)
			}
			continue
		}
		if used[o.Lane] || o.Lane < 1 || o.Lane > 5 {
			t.Fatalf("unexpected target lane %d", o.Lane)
		}
		target[o.Sound] = o.Lane
		used[o.Lane] = true
	}
}

func TestRandomKeepsLongNotesTogether(t *testing.T) {
	ks := fiveKeySpec(t)
	for seed := uint64(1); seed <= 30; seed++ {
		c := chartWith(
			NewLNStart(1, 1, 1),
			NewVisible(1, 2, 2),
			NewVisible(1.5, 2, 3),
			NewVisible(1.5, 3, 4),
			NewVisible(2, 4, 5),
			NewLNStart(2, 5, 6),
			NewVisible(2.5, 2, 7),
			NewLNDone(3, 1, 8),
			NewLNDone(3, 5, 13),
			NewVisible(3.5, 1, 10),
		)
		Sanitize(c)
		ApplyModifier(c, Random, rand.New(rand.NewPCG(seed, 1)), ks, 0, len(ks.Order))

		held := map[Lane]bool{}
		starts := map[Key]Lane{}
		for _, o := range c.Objs {
			if o.Lane < 1 || o.Lane > 5 {
				t.Fatalf("seed %d: object moved outside the key lanes: %+v", seed, o)
			}
			switch o.Kind {
			case LNStart:
				if held[o.Lane] {
					t.Fatalf("seed %d: overlapping long notes in lane %d", seed, o.Lane)
				}
				held[o.Lane] = true
				starts[o.Sound] = o.Lane
			case LNDone:
				start := starts[o.Sound-7]
				if o.Lane != start {
					t.Fatalf("seed %d: long note split between lanes %d and %d", seed, start, o.Lane)
				}
				held[o.Lane] = false
			case Visible:
				if held[o.Lane] {
					t.Fatalf("seed %d: note placed inside a long note in lane %d", seed, o.Lane)
				}
			}
		}
	}
}

func TestRandomLeavesScratchAlone(t *testing.T) {
	ks := fiveKeySpec(t)
	c := chartWith(NewVisible(1, 6, 1), NewVisible(2, 6, 2))
	ApplyModifier(c, Random, rand.New(rand.NewPCG(9, 9)), ks, 0, len(ks.Order))
	for _, o := range c.Objs {
		if o.Lane != 6 {
			t.Fatalf("expected scratch to stay in lane 6, got %d", o.Lane)
		}
	}
}

func TestParseModifier(t *testing.T) {
	m, err := ParseModifier("random-ex")
	if err != nil || m != RandomEx {
		t.Fatalf("expected random-ex, got %v (%v)", m, err)
	}
	if _, err := ParseModifier("upside-down"); err == nil {
		t.Fatalf("expected an error for an unknown modifier")
	}
}
