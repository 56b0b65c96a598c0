package bms

// Info is derived from a compacted chart.
type Info struct {
	// OriginOffset is -1 when a note lies in the first measure so that play
	// starts one measure early, 0 otherwise.
	OriginOffset float64
	HasBPMChange bool
	HasLongNote  bool
	// NumNotes counts visible notes; a long note counts once.
	NumNotes int
	MaxScore int
}

func Analyze(c *Chart) Info {
	var info Info
	for _, o := range c.Objs {
		info.HasLongNote = info.HasLongNote || o.IsLNStart()
		info.HasBPMChange = info.HasBPMChange || o.IsSetBPM()
		if o.IsLNStart() || o.IsVisible() {
			info.NumNotes++
			if o.Time < 1 {
				info.OriginOffset = -1
			}
		}
	}
	for i := 0; i < info.NumNotes; i++ {
		ratio := float64(i) / float64(info.NumNotes)
		info.MaxScore += int(300 * (1 + ratio))
	}
	return info
}

// PlayDuration returns the play time in seconds. soundLength reports the length
// of a sound in seconds, or 0 when unknown. A negative BPM ends the chart with
// the time needed to scroll back to the origin.
func PlayDuration(c *Chart, origin float64, soundLength func(Key) float64) float64 {
	pos := origin
	bpm := c.InitialBPM
	var msec, soundEnd float64

scan:
	for _, o := range c.Objs {
		msec += bpm.MeasureToMsec(c.AdjustPosition(pos, o.Time))
		switch o.Kind {
		case Visible, LNStart, BGM:
			if o.Sound != NoKey && soundLength != nil {
				soundEnd = max(soundEnd, msec+soundLength(o.Sound)*1000)
			}
		case SetBPM:
			if o.BPM > 0 {
				bpm = o.BPM
			} else if o.BPM < 0 {
				bpm = o.BPM
				msec += (-o.BPM).MeasureToMsec(c.AdjustPosition(origin, pos))
				break scan
			}
		case Stop:
			msec += o.Duration.Msec(bpm)
		}
		pos = o.Time
	}

	if bpm > 0 {
		msec += bpm.MeasureToMsec(c.AdjustPosition(pos, float64(c.NumMeasures+1)))
	}
	return max(msec, soundEnd) / 1000
}
