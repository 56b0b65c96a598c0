package audio

import (
	"fmt"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// SampleRate is the rate every sound is decoded and mixed at.
const SampleRate = 44100

// bytesPerFrame is 16-bit stereo.
const bytesPerFrame = 4

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// sharedAudioContext returns the process-wide audio context. Ebiten allows
// only one.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// pcmSeconds returns the length of 16-bit stereo PCM data.
func pcmSeconds(pcm []byte, sampleRate int) float64 {
	return float64(len(pcm)/bytesPerFrame) / float64(sampleRate)
}
