package audio

// G.711 mu-law codec and PCM helpers for the 8 kHz telephony path.
//
// Wire bytes carry the standard G.711 bit inversion: encode complements
// the assembled byte as its last step and decode un-inverts first, so
// what travels on the websocket is directly playable by the carrier.

const (
	// SampleRate is the narrowband telephony rate in samples per second.
	SampleRate = 8000
	// PacketSize is one 20 ms frame of 8 kHz mu-law audio, in bytes.
	PacketSize = 160
	// PacketDurationMs is the duration of one packet in milliseconds.
	PacketDurationMs = 20
)

const (
	mulawBias = 0x84
	mulawClip = 32635
)

// EncodeMulaw compresses a 16-bit linear sample into one mu-law wire byte.
func EncodeMulaw(sample int16) byte {
	s := int(sample)
	sign := 0
	if s < 0 {
		sign = 0x80
		s = -s
	}
	if s > mulawClip {
		s = mulawClip
	}
	s += mulawBias

	exponent := 7
	for mask := 0x4000; s&mask == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := (s >> (exponent + 3)) & 0x0F

	return ^byte(sign | exponent<<4 | mantissa)
}

// DecodeMulaw expands one mu-law wire byte into a 16-bit linear sample.
func DecodeMulaw(b byte) int16 {
	u := ^b
	sign := u & 0x80
	exponent := (u >> 4) & 0x07
	mantissa := u & 0x0F

	sample := ((int(mantissa) << 3) + mulawBias) << exponent
	sample -= mulawBias
	if sign != 0 {
		sample = -sample
	}
	return int16(sample)
}

// MulawToPCM decodes a mu-law byte stream into linear samples.
func MulawToPCM(mulaw []byte) []int16 {
	pcm := make([]int16, len(mulaw))
	for i, b := range mulaw {
		pcm[i] = DecodeMulaw(b)
	}
	return pcm
}

// PCMToMulaw encodes linear samples into a mu-law byte stream.
func PCMToMulaw(pcm []int16) []byte {
	mulaw := make([]byte, len(pcm))
	for i, s := range pcm {
		mulaw[i] = EncodeMulaw(s)
	}
	return mulaw
}

// BytesToPCM converts little-endian 16-bit audio bytes to samples.
// A trailing odd byte is dropped.
func BytesToPCM(data []byte) []int16 {
	pcm := make([]int16, len(data)/2)
	for i := range pcm {
		pcm[i] = int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
	}
	return pcm
}

// PCMToBytes converts samples to little-endian 16-bit audio bytes.
func PCMToBytes(pcm []int16) []byte {
	data := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		data[2*i] = byte(uint16(s))
		data[2*i+1] = byte(uint16(s) >> 8)
	}
	return data
}

// Resample converts samples between rates by nearest-neighbor pick,
// with no anti-aliasing. Good enough for speech headed into a
// narrowband codec; the 24 kHz -> 8 kHz TTS path is the hot case.
func Resample(pcm []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(pcm) == 0 || srcRate <= 0 || dstRate <= 0 {
		out := make([]int16, len(pcm))
		copy(out, pcm)
		return out
	}

	n := len(pcm) * dstRate / srcRate
	out := make([]int16, n)
	for i := range out {
		src := i * srcRate / dstRate
		if src >= len(pcm) {
			src = len(pcm) - 1
		}
		out[i] = pcm[src]
	}
	return out
}

// ChunkPackets splits a mu-law byte stream into PacketSize frames.
// The final short frame, if any, is kept as-is.
func ChunkPackets(mulaw []byte) [][]byte {
	if len(mulaw) == 0 {
		return nil
	}
	packets := make([][]byte, 0, (len(mulaw)+PacketSize-1)/PacketSize)
	for off := 0; off < len(mulaw); off += PacketSize {
		end := off + PacketSize
		if end > len(mulaw) {
			end = len(mulaw)
		}
		packets = append(packets, mulaw[off:end])
	}
	return packets
}
