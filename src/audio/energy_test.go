package audio

import (
	"math"
	"testing"
)

// mulawSine renders n samples of a sine at the given amplitude as a
// mu-law packet.
func mulawSine(n int, freq, amplitude float64) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		out[i] = EncodeMulaw(int16(amplitude * math.Sin(2*math.Pi*freq*t)))
	}
	return out
}

// mulawSilence renders n samples of digital silence.
func mulawSilence(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = EncodeMulaw(0)
	}
	return out
}

func TestEnergySilenceIsNotSpeech(t *testing.T) {
	d := NewEnergyDetector(0)
	packet := mulawSilence(PacketSize)

	if rms := d.RMS(packet); rms != 0 {
		t.Errorf("expected zero RMS for silence, got %f", rms)
	}
	if d.IsSpeech(packet) {
		t.Error("silence classified as speech")
	}
}

func TestEnergyVoiceIsSpeech(t *testing.T) {
	d := NewEnergyDetector(0)
	packet := mulawSine(PacketSize, 440, 8000)

	rms := d.RMS(packet)
	// A sine RMS is amplitude/sqrt(2); quantization moves it a little.
	if rms < 4000 || rms > 7000 {
		t.Errorf("unexpected RMS %f for 8000-amplitude sine", rms)
	}
	if !d.IsSpeech(packet) {
		t.Error("loud sine not classified as speech")
	}
}

func TestEnergyThresholdBoundary(t *testing.T) {
	quiet := mulawSine(PacketSize, 440, 300)
	loud := mulawSine(PacketSize, 440, 3000)

	d := NewEnergyDetector(500)
	if d.IsSpeech(quiet) {
		t.Error("low-amplitude sine should stay below a 500 threshold")
	}
	if !d.IsSpeech(loud) {
		t.Error("3000-amplitude sine should exceed a 500 threshold")
	}
}

func TestEnergyEmptyPacket(t *testing.T) {
	d := NewEnergyDetector(0)
	if d.RMS(nil) != 0 {
		t.Error("expected zero RMS for empty packet")
	}
	if d.IsSpeech(nil) {
		t.Error("empty packet classified as speech")
	}
}

func TestEnergyDefaultThreshold(t *testing.T) {
	if got := NewEnergyDetector(-1).Threshold(); got != DefaultSpeechThreshold {
		t.Errorf("expected default threshold %f, got %f", DefaultSpeechThreshold, got)
	}
	if got := NewEnergyDetector(1200).Threshold(); got != 1200 {
		t.Errorf("expected configured threshold 1200, got %f", got)
	}
}
