package audio

import (
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/cbegin/bmsplay-go/internal/bms"
)

// Background sounds play quieter than key sounds.
const bgmVolume = 96.0 / 128.0

// Bank holds the decoded sounds of a chart and plays them. Replaying a sound
// cuts its previous instance. Bank implements sequencer.SoundSink.
type Bank struct {
	mu      sync.Mutex
	ctx     *ebitaudio.Context
	rate    int
	clips   [][]byte
	last    map[bms.Key]*ebitaudio.Player
	players map[*ebitaudio.Player]struct{}
	beep    []byte
}

func NewBank() (*Bank, error) {
	ctx, err := sharedAudioContext(SampleRate)
	if err != nil {
		return nil, err
	}
	return &Bank{
		ctx:     ctx,
		rate:    SampleRate,
		clips:   make([][]byte, bms.MaxKey),
		last:    make(map[bms.Key]*ebitaudio.Player),
		players: make(map[*ebitaudio.Player]struct{}),
		beep:    beepPCM(),
	}, nil
}

// Set stores decoded PCM for a sound key.
func (b *Bank) Set(key bms.Key, pcm []byte) {
	if !key.Valid() {
		return
	}
	b.mu.Lock()
	b.clips[key] = pcm
	b.mu.Unlock()
}

// Duration returns the length of a sound in seconds, 0 when not loaded.
func (b *Bank) Duration(key bms.Key) float64 {
	if !key.Valid() {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return pcmSeconds(b.clips[key], b.rate)
}

func (b *Bank) Play(key bms.Key, bgm bool) {
	if !key.Valid() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	pcm := b.clips[key]
	if len(pcm) == 0 {
		return
	}
	if prev, ok := b.last[key]; ok {
		prev.Close()
		delete(b.players, prev)
	}
	p := b.ctx.NewPlayerFromBytes(pcm)
	if bgm {
		p.SetVolume(bgmVolume)
	}
	b.track(p)
	b.last[key] = p
	p.Play()
}

// Beep plays the play speed change cue.
func (b *Bank) Beep() {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.ctx.NewPlayerFromBytes(b.beep)
	b.track(p)
	p.Play()
}

// track registers p and closes players that have finished.
func (b *Bank) track(p *ebitaudio.Player) {
	for sp := range b.players {
		if !sp.IsPlaying() {
			sp.Close()
			delete(b.players, sp)
		}
	}
	for key, sp := range b.last {
		if _, ok := b.players[sp]; !ok {
			delete(b.last, key)
		}
	}
	b.players[p] = struct{}{}
}

// Playing reports whether any sound is still audible.
func (b *Bank) Playing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for p := range b.players {
		if p.IsPlaying() {
			return true
		}
	}
	return false
}

// Close stops every sound.
func (b *Bank) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for p := range b.players {
		p.Close()
	}
	clear(b.players)
	clear(b.last)
}
