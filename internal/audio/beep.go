package audio

import "encoding/binary"

const beepSamples = 12000

// beepPCM renders the play speed change cue: a sawtooth of period 28
// samples with a quadratic decay.
func beepPCM() []byte {
	pcm := make([]byte, beepSamples*bytesPerFrame)
	for i := 0; i < beepSamples; i++ {
		rest := beepSamples - i
		v := int16((i%28 - 14) * min(2000, rest*rest/50000))
		off := i * bytesPerFrame
		binary.LittleEndian.PutUint16(pcm[off:], uint16(v))
		binary.LittleEndian.PutUint16(pcm[off+2:], uint16(v))
	}
	return pcm
}
