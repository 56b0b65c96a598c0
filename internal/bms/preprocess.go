package bms

// Rand is the random source used by #RANDOM and lane modifiers.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type blockState int

const (
	// outside any #IF clause; the enclosing block decides activity
	stateOutside blockState = iota
	// inside an #IF clause that is being processed
	stateProcess
	// inside an #IF clause that has not matched yet
	stateIgnore
	// inside an #IF clause after a previous clause matched
	stateNoFurther
)

func (s blockState) inactive() bool {
	return s == stateIgnore || s == stateNoFurther
}

type block struct {
	value int // 0 when the #RANDOM argument was not positive
	state blockState
	skip  bool
}

// Preprocessor tracks nested #RANDOM/#IF blocks and decides whether content
// lines are active.
type Preprocessor struct {
	rng    Rand
	blocks []block
}

func NewPreprocessor(rng Rand) *Preprocessor {
	return &Preprocessor{rng: rng, blocks: []block{{state: stateOutside}}}
}

func (p *Preprocessor) top() *block { return &p.blocks[len(p.blocks)-1] }

// Active reports whether content lines should be processed.
func (p *Preprocessor) Active() bool {
	b := p.top()
	return !(b.skip || b.state.inactive())
}

// Random opens a block whose value is drawn from [1, n]. No value is drawn
// while the enclosing block is inactive.
func (p *Preprocessor) Random(n int) {
	p.push(n, true)
}

// SetRandom opens a block whose value is fixed to n.
func (p *Preprocessor) SetRandom(n int) {
	p.push(n, false)
}

func (p *Preprocessor) push(n int, draw bool) {
	inactive := !p.Active()
	value := 0
	if n > 0 {
		switch {
		case !draw:
			value = n
		case !inactive:
			value = p.rng.IntN(n) + 1
		}
	}
	p.blocks = append(p.blocks, block{value: value, state: stateOutside, skip: inactive})
}

func (p *Preprocessor) EndRandom() {
	if len(p.blocks) > 1 {
		p.blocks = p.blocks[:len(p.blocks)-1]
	}
}

func (p *Preprocessor) If(n int)     { p.cond(n, true) }
func (p *Preprocessor) ElseIf(n int) { p.cond(n, false) }

func (p *Preprocessor) cond(n int, isIf bool) {
	b := p.top()
	if (isIf && !b.state.inactive()) || b.state == stateIgnore {
		if n > 0 && n == b.value {
			b.state = stateProcess
		} else {
			b.state = stateIgnore
		}
	} else {
		b.state = stateNoFurther
	}
}

func (p *Preprocessor) Else() {
	b := p.top()
	if b.state == stateIgnore {
		b.state = stateProcess
	} else {
		b.state = stateNoFurther
	}
}

// End closes the innermost #IF clause. Blocks opened inside it without their
// own #ENDRANDOM are discarded as well.
func (p *Preprocessor) End() {
	idx := len(p.blocks) - 1
	for idx > 0 && p.blocks[idx].state == stateOutside {
		idx--
	}
	if idx > 0 {
		p.blocks = p.blocks[:idx+1]
	}
	p.top().state = stateOutside
}
