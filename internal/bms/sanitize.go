package bms

import "sort"

// Per-lane type bits, in order of importance.
const (
	typeLNDone = iota
	typeLNStart
	typeVisible
	typeInvisible
	typeBomb
)

const lnMask = 1<<typeLNStart | 1<<typeLNDone

func laneType(o *Obj, lane Lane) int {
	if !o.IsObject() || o.Lane != lane {
		return -1
	}
	switch o.Kind {
	case LNDone:
		return typeLNDone
	case LNStart:
		return typeLNStart
	case Visible:
		return typeVisible
	case Invisible:
		return typeInvisible
	}
	return typeBomb
}

// sanitizeRuns visits runs of objects sharing a time. Within a run, repeated
// types are demoted; merge then decides which of the remaining types survive.
func sanitizeRuns(objs []Obj, typeOf func(*Obj) int, merge func(types int) int) {
	i := 0
	for i < len(objs) {
		cur := objs[i].Time
		types := 0
		j := i
		for ; j < len(objs) && objs[j].Time <= cur; j++ {
			t := typeOf(&objs[j])
			if t < 0 {
				continue
			}
			if types&(1<<t) != 0 {
				objs[j] = objs[j].demote()
			} else {
				types |= 1 << t
			}
		}
		types = merge(types)
		for ; i < j; i++ {
			if t := typeOf(&objs[i]); t >= 0 && types&(1<<t) == 0 {
				objs[i] = objs[i].demote()
			}
		}
	}
}

// Sanitize sorts the objects and removes overlapping or unbalanced ones so
// that every lane holds at most one event of each type per instant and every
// LNStart is matched by an LNDone.
func Sanitize(c *Chart) {
	sort.SliceStable(c.Objs, func(i, j int) bool { return c.Objs[i].Time < c.Objs[j].Time })

	for lane := Lane(0); lane < NumLanes; lane++ {
		typeOf := func(o *Obj) int { return laneType(o, lane) }
		inside := false
		sanitizeRuns(c.Objs, typeOf, func(types int) int {
			if types&lnMask == lnMask {
				types &^= lnMask
			}
			if inside {
				types &^= 1<<typeLNStart | 1<<typeVisible | 1<<typeBomb
			} else {
				types &^= 1 << typeLNDone
			}
			if types&lnMask != 0 {
				types &^= 1 << typeInvisible
			}
			lowest := types & -types
			if lowest == 1<<typeInvisible {
				types = lowest | types&(1<<typeBomb)
			} else {
				types = lowest
			}
			if types&(1<<typeLNStart) != 0 {
				inside = true
			} else if types&(1<<typeLNDone) != 0 {
				inside = false
			}
			return types
		})

		if inside {
			for i := len(c.Objs) - 1; i >= 0; i-- {
				if typeOf(&c.Objs[i]) == typeLNStart {
					c.Objs[i] = c.Objs[i].demote()
					break
				}
			}
		}
	}

	sanitizeRuns(c.Objs, func(o *Obj) int {
		switch o.Kind {
		case SetBGA:
			return int(o.Layer)
		case SetBPM:
			return NumLayers
		case Stop:
			return NumLayers + 1
		}
		return -1
	}, func(types int) int { return types })
}

// Compact demotes objects in lanes outside the key specification and drops
// deleted events.
func Compact(c *Chart, ks *KeySpec) {
	for i := range c.Objs {
		if lane, ok := c.Objs[i].ObjectLane(); ok && !ks.Has(lane) {
			c.Objs[i] = c.Objs[i].demote()
		}
	}
	objs := c.Objs[:0]
	for _, o := range c.Objs {
		if o.Kind != Deleted {
			objs = append(objs, o)
		}
	}
	c.Objs = objs
}
