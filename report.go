package bmsplay

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	intseq "github.com/cbegin/bmsplay-go/internal/sequencer"
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

// FormatDuration renders d for headers, e.g. "2m 5s".
func FormatDuration(d time.Duration) string {
	return durafmt.Parse(d.Round(time.Second)).LimitFirstN(2).Format(shortUnits)
}

// clockTime renders d as mm:ss.t.
func clockTime(d time.Duration) string {
	tenths := int(d / (100 * time.Millisecond))
	return fmt.Sprintf("%02d:%02d.%d", tenths/600, tenths/10%60, tenths%10)
}

// StatusLine is the one-line play status used by the text display.
func StatusLine(st intseq.State, total time.Duration) string {
	elapsed := time.Duration(st.Now * float64(time.Millisecond))
	return fmt.Sprintf("%s / %s (@%9.4f) | BPM %6.2f | %d / %d notes",
		clockTime(elapsed), clockTime(total), st.Position, float64(st.BPM),
		st.Tally.Combo, st.Tally.TotalNotes())
}

// Summary renders the result screen.
func (r Result) Summary() string {
	var b strings.Builder
	if !r.Cleared {
		b.WriteString("YOU FAILED!\n")
	} else {
		b.WriteString("*** CLEARED! ***\n")
	}
	c := r.Tally.Counts
	fmt.Fprintf(&b, "COOL  %4d    GREAT %4d    GOOD  %4d\n", c[intseq.Cool], c[intseq.Great], c[intseq.Good])
	fmt.Fprintf(&b, "BAD   %4d    MISS  %4d    MAX COMBO %d\n", c[intseq.Bad], c[intseq.Miss], r.Tally.BestCombo)
	fmt.Fprintf(&b, "SCORE %s / %s\n", humanize.Comma(int64(r.Tally.Score)), humanize.Comma(int64(r.MaxScore)))
	return b.String()
}

// Describe renders a load summary, e.g. "12 sounds (3.1 MB), 2 images, 1 failed".
func (s LoadSummary) Describe() string {
	out := fmt.Sprintf("%d sounds (%s), %d images (%s)",
		s.Sounds.Loaded, humanize.Bytes(uint64(s.Sounds.Bytes)),
		s.Images.Loaded, humanize.Bytes(uint64(s.Images.Bytes)))
	if failed := s.Sounds.Failed + s.Images.Failed; failed > 0 {
		out += fmt.Sprintf(", %d failed", failed)
	}
	return out
}
