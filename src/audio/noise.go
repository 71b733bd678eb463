package audio

import (
	"math"
	"math/rand"
)

// DefaultNoiseVolume is the mix level for the ambient bed relative to
// the voice signal.
const DefaultNoiseVolume = 0.12

const (
	noiseLoopSeconds = 10
	noiseSeed        = 42
)

// NoiseBed is a deterministic office-ambiance loop mixed under
// outbound speech so the line never sounds digitally dead. The loop
// is generated once at construction and never mutated, so one bed can
// back every concurrent call; each call walks it through its own
// NoiseMixer.
type NoiseBed struct {
	loop   []int16
	volume float64
}

// NewNoiseBed builds the ambiance loop. A non-positive volume selects
// DefaultNoiseVolume.
func NewNoiseBed(volume float64) *NoiseBed {
	if volume <= 0 {
		volume = DefaultNoiseVolume
	}
	return &NoiseBed{
		loop:   buildAmbiance(),
		volume: volume,
	}
}

// Mixer returns a fresh cursor over the shared loop. A mixer is for a
// single call and is not safe for concurrent use.
func (n *NoiseBed) Mixer() *NoiseMixer {
	return &NoiseMixer{bed: n}
}

// NoiseMixer holds one call's position in the ambiance loop so
// consecutive packets stay continuous.
type NoiseMixer struct {
	bed *NoiseBed
	pos int
}

// Mix blends the next slice of ambiance into a mu-law packet and
// returns a new wire-ready packet of the same length.
func (m *NoiseMixer) Mix(packet []byte) []byte {
	out := make([]byte, len(packet))
	for i, b := range packet {
		voice := int(DecodeMulaw(b))
		amb := int(float64(m.bed.loop[m.pos]) * m.bed.volume)
		m.pos = (m.pos + 1) % len(m.bed.loop)

		mixed := voice + amb
		if mixed > 32767 {
			mixed = 32767
		} else if mixed < -32768 {
			mixed = -32768
		}
		out[i] = EncodeMulaw(int16(mixed))
	}
	return out
}

// buildAmbiance layers a mains hum, HVAC-style filtered noise, and
// sparse keyboard clicks into a seamless loop.
func buildAmbiance() []int16 {
	n := SampleRate * noiseLoopSeconds
	rng := rand.New(rand.NewSource(noiseSeed))
	samples := make([]float64, n)

	// Mains hum with a weak second harmonic.
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		samples[i] = 120*math.Sin(2*math.Pi*60*t) + 50*math.Sin(2*math.Pi*120*t)
	}

	// HVAC rumble: white noise through a one-pole lowpass.
	lp := 0.0
	for i := 0; i < n; i++ {
		white := (rng.Float64()*2 - 1) * 400
		lp = lp*0.97 + white*0.03
		samples[i] += lp * 6
	}

	// Sparse keyboard clicks: short decaying bursts.
	for c := 0; c < 25; c++ {
		start := rng.Intn(n - SampleRate/10)
		dur := SampleRate/200 + rng.Intn(SampleRate/100)
		for j := 0; j < dur; j++ {
			decay := 1 - float64(j)/float64(dur)
			samples[start+j] += (rng.Float64()*2 - 1) * 900 * decay
		}
	}

	out := make([]int16, n)
	for i, s := range samples {
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		out[i] = int16(s)
	}
	return out
}
