package audio

import "math"

// DTMF row/column frequency pairs in Hz.
var dtmfFreqs = map[byte][2]float64{
	'1': {697, 1209}, '2': {697, 1336}, '3': {697, 1477},
	'4': {770, 1209}, '5': {770, 1336}, '6': {770, 1477},
	'7': {852, 1209}, '8': {852, 1336}, '9': {852, 1477},
	'*': {941, 1209}, '0': {941, 1336}, '#': {941, 1477},
}

const (
	dtmfToneMs  = 200
	dtmfGapMs   = 150
	dtmfPauseMs = 500 // 'w' in a dial string
	dtmfAmp     = 0.5
)

// IsValidDialString reports whether every character of s is a DTMF
// digit (0-9, *, #) or the pause character 'w'. Empty strings are
// not valid.
func IsValidDialString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 'w' || c == '*' || c == '#' || (c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

// ToneSynthesizer renders DTMF dial strings as wire-ready mu-law
// packet sequences.
type ToneSynthesizer struct {
	sampleRate int
}

// NewToneSynthesizer creates a synthesizer at the telephony rate.
func NewToneSynthesizer() *ToneSynthesizer {
	return &ToneSynthesizer{sampleRate: SampleRate}
}

// Synthesize renders a dial string into PacketSize mu-law frames.
// Each digit is 200 ms of dual-sine tone followed by a 150 ms gap
// (no gap after the last character); 'w' is a 500 ms pause. Characters
// with no DTMF mapping are skipped, so "1x2" plays as "12"; a string
// with nothing dialable yields no packets.
func (t *ToneSynthesizer) Synthesize(digits string) [][]byte {
	dialable := make([]byte, 0, len(digits))
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if _, ok := dtmfFreqs[c]; ok || c == 'w' {
			dialable = append(dialable, c)
		}
	}

	var mulaw []byte
	for i, c := range dialable {
		if c == 'w' {
			mulaw = append(mulaw, t.silence(dtmfPauseMs)...)
			continue
		}
		mulaw = append(mulaw, t.tone(c)...)
		if i < len(dialable)-1 {
			mulaw = append(mulaw, t.silence(dtmfGapMs)...)
		}
	}
	return ChunkPackets(mulaw)
}

func (t *ToneSynthesizer) tone(digit byte) []byte {
	freqs := dtmfFreqs[digit]
	n := t.sampleRate * dtmfToneMs / 1000
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		ts := float64(i) / float64(t.sampleRate)
		v := math.Sin(2*math.Pi*freqs[0]*ts) + math.Sin(2*math.Pi*freqs[1]*ts)
		sample := int16(dtmfAmp * 32767 * v / 2)
		out[i] = EncodeMulaw(sample)
	}
	return out
}

func (t *ToneSynthesizer) silence(ms int) []byte {
	n := t.sampleRate * ms / 1000
	quiet := EncodeMulaw(0)
	out := make([]byte, n)
	for i := range out {
		out[i] = quiet
	}
	return out
}
