package sequencer

import "github.com/cbegin/bmsplay-go/internal/bms"

// Clock maps wall time in milliseconds onto chart position. The mapping is
// linear from the last origin; BPM changes, measure scaling changes and
// stops move the origin so the position stays continuous.
type Clock struct {
	bpm     bms.BPM
	wall    float64
	offset  float64
	shorten float64

	stopped   bool
	stopUntil float64
}

func NewClock(bpm bms.BPM, now, offset, shorten float64) Clock {
	return Clock{bpm: bpm, wall: now, offset: offset, shorten: shorten}
}

func (c *Clock) BPM() bms.BPM     { return c.bpm }
func (c *Clock) Shorten() float64 { return c.shorten }
func (c *Clock) Offset() float64  { return c.offset }

// Stopped reports whether a stop is holding the position.
func (c *Clock) Stopped() bool { return c.stopped }

// Advance returns the position at wall time now. A stop whose end has
// passed moves the origin to that end, so the position resumes on the
// following call.
func (c *Clock) Advance(now float64) float64 {
	if c.stopped {
		if now >= c.stopUntil {
			c.wall = c.stopUntil
			c.stopped = false
		}
		return c.offset
	}
	return c.offset + c.bpm.MsecToMeasure(now-c.wall)/c.shorten
}

// Rebase moves the origin to position at without moving the mapping.
func (c *Clock) Rebase(at float64) {
	c.wall += c.bpm.MeasureToMsec(at-c.offset) * c.shorten
	c.offset = at
}

func (c *Clock) SetBPM(at float64, bpm bms.BPM) {
	c.Rebase(at)
	c.bpm = bpm
}

func (c *Clock) SetShorten(at, shorten float64) {
	c.Rebase(at)
	c.shorten = shorten
}

// Stop holds the position at at for msec milliseconds from now. shorten is
// the scaling of the measure containing at, which may lie behind the current
// origin. An overlapping stop extends to the later end.
func (c *Clock) Stop(at, msec, now, shorten float64) {
	end := now + msec
	if c.stopped {
		end = max(end, c.stopUntil)
	}
	c.Rebase(at)
	c.shorten = shorten
	c.stopped = true
	c.stopUntil = end
}
