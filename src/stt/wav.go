package stt

import "encoding/binary"

// wavFormatMulaw is the RIFF audio format code for G.711 mu-law.
const wavFormatMulaw = 7

// WrapMulawWAV prepends a 44-byte RIFF header to raw mu-law audio so
// upload endpoints that sniff containers accept it: mono, 8 bits per
// sample, byte rate equal to the sample rate, block align 1.
func WrapMulawWAV(mulaw []byte, sampleRate int) []byte {
	const headerSize = 44
	out := make([]byte, headerSize+len(mulaw))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(mulaw)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], wavFormatMulaw)
	binary.LittleEndian.PutUint16(out[22:24], 1) // mono
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate)) // byte rate
	binary.LittleEndian.PutUint16(out[32:34], 1)                  // block align
	binary.LittleEndian.PutUint16(out[34:36], 8)                  // bits per sample

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(mulaw)))

	copy(out[headerSize:], mulaw)
	return out
}
