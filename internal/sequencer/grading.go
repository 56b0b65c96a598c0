package sequencer

import "github.com/cbegin/bmsplay-go/internal/bms"

// Grade is the judgement of a single input or missed object.
type Grade int

const (
	Miss Grade = iota
	Bad
	Good
	Great
	Cool
	NumGrades = 5
)

func (g Grade) String() string {
	switch g {
	case Miss:
		return "MISS"
	case Bad:
		return "BAD"
	case Good:
		return "GOOD"
	case Great:
		return "GREAT"
	case Cool:
		return "COOL"
	}
	return "?"
}

// Timing windows in milliseconds, before the grade factor is applied.
const (
	CoolCutoff  = 14.4
	GreatCutoff = 48.0
	GoodCutoff  = 84.0
	BadCutoff   = 144.0
)

const (
	MaxGauge     = 512
	InitialGauge = 256
	// SurvivalGauge is the gauge needed to clear the chart.
	SurvivalGauge = MaxGauge * 293 / 1000
	ScorePerNote  = 300.0
)

var (
	missDamage = bms.Damage{Ratio: 0.059}
	badDamage  = bms.Damage{Ratio: 0.030}
)

// GradeFactor scales timing distances by the chart's #RANK. Higher ranks
// widen the windows.
func GradeFactor(rank int) float64 {
	return 1.5 - float64(min(rank, 5))*0.25
}

// GradeFor returns the grade for a normalized distance in milliseconds.
func GradeFor(dist float64) Grade {
	dist = abs(dist)
	switch {
	case dist < CoolCutoff:
		return Cool
	case dist < GreatCutoff:
		return Great
	case dist < GoodCutoff:
		return Good
	case dist < BadCutoff:
		return Bad
	}
	return Miss
}

// Tally accumulates grades, combo, score and gauge over one play.
type Tally struct {
	Counts    [NumGrades]int
	Combo     int
	BestCombo int
	Score     int
	Gauge     int

	totalNotes int
}

func NewTally(totalNotes int) Tally {
	return Tally{Gauge: InitialGauge, totalNotes: totalNotes}
}

func (t *Tally) TotalNotes() int { return t.totalNotes }

// Cleared reports whether the gauge is at or above the survival line.
func (t *Tally) Cleared() bool { return t.Gauge >= SurvivalGauge }

// record applies one grade. It returns false when the damage ends the play.
func (t *Tally) record(g Grade, scoreDelta float64, damage bms.Damage) bool {
	t.Counts[g]++
	comboFactor := 1.0
	if t.totalNotes > 0 {
		comboFactor += float64(t.Combo) / float64(t.totalNotes)
	}
	t.Score += int(scoreDelta * ScorePerNote * comboFactor)

	switch g {
	case Miss, Bad:
		t.Combo = 0
	case Great, Cool:
		weight := 2
		if g == Cool {
			weight = 3
		}
		bonus := min(t.Combo, 100) / 50
		t.Combo++
		t.Gauge = min(t.Gauge+weight+bonus, MaxGauge)
	}
	t.BestCombo = max(t.BestCombo, t.Combo)

	if damage.InstantDeath {
		t.Gauge = min(t.Gauge, 0)
		return false
	}
	t.Gauge -= int(MaxGauge * damage.Ratio)
	return true
}

// RecordDistance grades an input dist milliseconds away from its object.
func (t *Tally) RecordDistance(dist float64) Grade {
	g := GradeFor(dist)
	var damage bms.Damage
	switch g {
	case Bad:
		damage = badDamage
	case Miss:
		damage = missDamage
	}
	t.record(g, max(0, 1-abs(dist)/BadCutoff), damage)
	return g
}

// RecordDamage grades a bomb hit as MISS with the bomb's damage.
func (t *Tally) RecordDamage(damage bms.Damage) bool {
	return t.record(Miss, 0, damage)
}

func (t *Tally) RecordMiss() {
	t.record(Miss, 0, missDamage)
}
