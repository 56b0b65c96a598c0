package bms

import (
	"fmt"
	"math"
	"slices"
)

// Modifier rearranges lanes before play.
type Modifier int

const (
	NoModifier Modifier = iota
	Mirror
	Shuffle
	ShuffleEx
	Random
	RandomEx
)

var modifierNames = map[string]Modifier{
	"mirror": Mirror, "shuffle": Shuffle, "shuffle-ex": ShuffleEx,
	"random": Random, "random-ex": RandomEx,
}

func ParseModifier(s string) (Modifier, error) {
	if s == "" {
		return NoModifier, nil
	}
	m, ok := modifierNames[s]
	if !ok {
		return NoModifier, fmt.Errorf("unknown modifier %q", s)
	}
	return m, nil
}

func (m Modifier) String() string {
	for name, mm := range modifierNames {
		if mm == m {
			return name
		}
	}
	return "none"
}

// ApplyModifier rearranges the lanes ks.Order[begin:end]. Scratches and pedals
// are left alone except for the Ex variants. Couple play calls this once per
// side.
func ApplyModifier(c *Chart, m Modifier, rng Rand, ks *KeySpec, begin, end int) {
	var lanes []Lane
	for _, lane := range ks.Order[begin:end] {
		if m == ShuffleEx || m == RandomEx || ks.Kinds[lane].CountsAsKey() {
			lanes = append(lanes, lane)
		}
	}
	switch m {
	case Mirror:
		mirrorLanes(c, lanes)
	case Shuffle, ShuffleEx:
		shuffleLanes(c, rng, lanes)
	case Random, RandomEx:
		randomLanes(c, rng, lanes)
	}
}

func identityMap() []Lane {
	m := make([]Lane, NumLanes)
	for i := range m {
		m[i] = Lane(i)
	}
	return m
}

func remapLanes(c *Chart, m []Lane) {
	for i := range c.Objs {
		if c.Objs[i].IsObject() {
			c.Objs[i].Lane = m[c.Objs[i].Lane]
		}
	}
}

func shuffle(rng Rand, lanes []Lane) {
	for i := len(lanes) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		lanes[i], lanes[j] = lanes[j], lanes[i]
	}
}

func mirrorLanes(c *Chart, lanes []Lane) {
	m := identityMap()
	for i, from := range lanes {
		m[from] = lanes[len(lanes)-1-i]
	}
	remapLanes(c, m)
}

func shuffleLanes(c *Chart, rng Rand, lanes []Lane) {
	shuffled := append([]Lane(nil), lanes...)
	shuffle(rng, shuffled)
	m := identityMap()
	for i, from := range lanes {
		m[from] = shuffled[i]
	}
	remapLanes(c, m)
}

// randomLanes draws a new permutation whenever time advances. A lane holding
// a long note keeps its target until the note ends, and neither the source
// nor the target take part in permutations drawn meanwhile. The chart must be
// sanitized.
func randomLanes(c *Chart, rng Rand, lanes []Lane) {
	m := identityMap()
	sources := append([]Lane(nil), lanes...)
	targets := append([]Lane(nil), lanes...)
	var selected [NumLanes]bool
	for _, lane := range lanes {
		selected[lane] = true
	}

	last := math.Inf(-1)
	for i := range c.Objs {
		o := &c.Objs[i]
		if o.Time > last {
			last = o.Time + 1e-4
			shuffled := append([]Lane(nil), targets...)
			shuffle(rng, shuffled)
			for k, from := range sources {
				m[from] = shuffled[k]
			}
		}
		if !o.IsObject() || !selected[o.Lane] {
			continue
		}
		from := o.Lane
		o.Lane = m[from]
		switch o.Kind {
		case LNStart:
			sources = removeLane(sources, from)
			targets = removeLane(targets, o.Lane)
		case LNDone:
			if !slices.Contains(sources, from) {
				sources = append(sources, from)
				targets = append(targets, o.Lane)
			}
		}
	}
}

func removeLane(lanes []Lane, lane Lane) []Lane {
	if i := slices.Index(lanes, lane); i >= 0 {
		return slices.Delete(lanes, i, i+1)
	}
	return lanes
}
