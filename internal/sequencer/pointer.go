package sequencer

import "github.com/cbegin/bmsplay-go/internal/bms"

const noNext = -1

// Pointer is a cursor into the events of a chart. Several pointers may share
// one chart; the chart itself is never modified during play.
type Pointer struct {
	chart *bms.Chart
	pos   int
	next  int
}

func NewPointer(c *bms.Chart) Pointer {
	return Pointer{chart: c, next: noNext}
}

// pointerAt returns a pointer at the given event index.
func pointerAt(c *bms.Chart, pos int) Pointer {
	return Pointer{chart: c, pos: pos, next: noNext}
}

func (p *Pointer) Pos() int              { return p.pos }
func (p *Pointer) Less(o *Pointer) bool  { return p.pos < o.pos }
func (p *Pointer) Equal(o *Pointer) bool { return p.pos == o.pos }

// Valid reports whether the pointer rests on an event.
func (p *Pointer) Valid() bool { return p.pos < len(p.chart.Objs) }

func (p *Pointer) Obj() *bms.Obj { return &p.chart.Objs[p.pos] }
func (p *Pointer) Time() float64 { return p.chart.Objs[p.pos].Time }
func (p *Pointer) Measure() int  { return p.chart.Objs[p.pos].Measure() }

// Reset drops the pending step of an interrupted Next* loop.
func (p *Pointer) Reset() { p.next = noNext }

// SeekUntil moves past every event earlier than limit.
func (p *Pointer) SeekUntil(limit float64) {
	objs := p.chart.Objs
	for p.pos < len(objs) && objs[p.pos].Time < limit {
		p.pos++
	}
	p.next = noNext
}

// NextUntil steps one event at a time through the events earlier than
// limit. The pointer rests on the returned event until the following call.
func (p *Pointer) NextUntil(limit float64) bool {
	if p.next != noNext {
		p.pos = p.next
	}
	if p.pos < len(p.chart.Objs) && p.Time() < limit {
		p.next = p.pos + 1
		return true
	}
	p.next = noNext
	return false
}

func (p *Pointer) SeekTo(limit *Pointer) {
	p.pos = limit.pos
	p.next = noNext
}

// NextTo steps through the events before limit.
func (p *Pointer) NextTo(limit *Pointer) bool {
	if p.next != noNext {
		p.pos = p.next
	}
	if p.pos >= limit.pos {
		p.next = noNext
		return false
	}
	p.next = p.pos + 1
	return true
}

func (p *Pointer) SeekToEnd() {
	p.pos = len(p.chart.Objs)
	p.next = noNext
}

// NextToEnd steps through every remaining event.
func (p *Pointer) NextToEnd() bool {
	if p.next != noNext {
		p.pos = p.next
	}
	if p.pos < len(p.chart.Objs) {
		p.next = p.pos + 1
		return true
	}
	p.next = noNext
	return false
}

// FindNext returns the first event at or after the pointer matching pred.
func (p *Pointer) FindNext(pred func(*bms.Obj) bool) (Pointer, bool) {
	objs := p.chart.Objs
	for i := p.pos; i < len(objs); i++ {
		if pred(&objs[i]) {
			return pointerAt(p.chart, i), true
		}
	}
	return Pointer{}, false
}

// FindPrevious returns the last event before the pointer matching pred.
func (p *Pointer) FindPrevious(pred func(*bms.Obj) bool) (Pointer, bool) {
	objs := p.chart.Objs
	for i := min(p.pos, len(objs)) - 1; i >= 0; i-- {
		if pred(&objs[i]) {
			return pointerAt(p.chart, i), true
		}
	}
	return Pointer{}, false
}

// FindClosest returns the matching event nearest to base in time. The
// previous event wins only when strictly closer.
func (p *Pointer) FindClosest(base float64, pred func(*bms.Obj) bool) (Pointer, bool) {
	prev, hasPrev := p.FindPrevious(pred)
	next, hasNext := p.FindNext(pred)
	switch {
	case hasPrev && hasNext:
		if abs(prev.Time()-base) < abs(next.Time()-base) {
			return prev, true
		}
		return next, true
	case hasPrev:
		return prev, true
	case hasNext:
		return next, true
	}
	return Pointer{}, false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
