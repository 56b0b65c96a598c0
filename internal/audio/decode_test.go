package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func monoWAV(frames, sampleRate int) []byte {
	var buf bytes.Buffer
	dataSize := frames * 2
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for i := 0; i < frames; i++ {
		binary.Write(&buf, binary.LittleEndian, int16(i*50))
	}
	return buf.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	pcm, err := Decode("KICK.WAV", bytes.NewReader(monoWAV(441, SampleRate)), SampleRate)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(pcm) != 441*bytesPerFrame {
		t.Fatalf("expected %d bytes of stereo PCM, got %d", 441*bytesPerFrame, len(pcm))
	}
	if got := pcmSeconds(pcm, SampleRate); math.Abs(got-0.01) > 1e-9 {
		t.Fatalf("expected 0.01s, got %v", got)
	}
}

func TestDecodeRejectsUnknownFormat(t *testing.T) {
	_, err := Decode("intro.mid", bytes.NewReader(nil), SampleRate)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeReportsCorruptData(t *testing.T) {
	if _, err := Decode("broken.wav", bytes.NewReader([]byte("not a wave file")), SampleRate); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestBeepPCM(t *testing.T) {
	pcm := beepPCM()
	if len(pcm) != beepSamples*bytesPerFrame {
		t.Fatalf("expected %d bytes, got %d", beepSamples*bytesPerFrame, len(pcm))
	}
	first := int16(binary.LittleEndian.Uint16(pcm[0:]))
	if first != -14*2000 {
		t.Fatalf("expected full amplitude at start, got %d", first)
	}
	last := int16(binary.LittleEndian.Uint16(pcm[len(pcm)-4:]))
	if last != 0 {
		t.Fatalf("expected silence at the end, got %d", last)
	}
}
