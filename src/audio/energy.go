package audio

import "math"

// DefaultSpeechThreshold is the RMS level, in raw int16 units, above
// which a packet counts as speech. Telephony lines carry a constant
// noise floor well below this.
const DefaultSpeechThreshold = 500.0

// EnergyDetector classifies mu-law packets as speech or silence by
// RMS energy. It is stateless; hysteresis lives in the segmenter.
type EnergyDetector struct {
	threshold float64
}

// NewEnergyDetector creates a detector. A non-positive threshold
// selects DefaultSpeechThreshold.
func NewEnergyDetector(threshold float64) *EnergyDetector {
	if threshold <= 0 {
		threshold = DefaultSpeechThreshold
	}
	return &EnergyDetector{threshold: threshold}
}

// Threshold returns the configured speech threshold.
func (d *EnergyDetector) Threshold() float64 {
	return d.threshold
}

// RMS computes the root-mean-square amplitude of a mu-law packet in
// raw int16 units. An empty packet has zero energy.
func (d *EnergyDetector) RMS(packet []byte) float64 {
	if len(packet) == 0 {
		return 0
	}

	var sumSquares float64
	for _, b := range packet {
		s := float64(DecodeMulaw(b))
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(len(packet)))
}

// IsSpeech reports whether the packet's energy exceeds the threshold.
func (d *EnergyDetector) IsSpeech(packet []byte) bool {
	return d.RMS(packet) > d.threshold
}
