// Package tts streams synthesized speech as wire-ready mu-law packets.
package tts

import (
	"context"
	"sync"

	"github.com/sonara-labs/dialtone/src/audio"
)

// Provider names accepted by configuration.
const (
	ProviderElevenLabs = "elevenlabs"
	ProviderOpenAI     = "openai"
	ProviderCartesia   = "cartesia"
)

// Synthesizer renders one utterance of text into a finite packet
// stream. Construction errors (bad request, auth) surface from
// Synthesize; mid-stream failures close the stream with Err set.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Stream, error)
}

// Stream is a one-shot sequence of 160-byte mu-law packets. Consumers
// range over Packets until it closes, then check Err. The final
// packet may be shorter than 160 bytes.
type Stream struct {
	ch  chan []byte
	mu  sync.Mutex
	err error
}

func newStream() *Stream {
	return &Stream{ch: make(chan []byte, 32)}
}

// Packets returns the packet channel. It is closed when synthesis
// finishes, fails, or the producing context is cancelled.
func (s *Stream) Packets() <-chan []byte {
	return s.ch
}

// Err reports a mid-stream failure. Only meaningful after Packets
// has closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// push delivers one packet unless the consumer has gone away.
func (s *Stream) push(ctx context.Context, packet []byte) bool {
	select {
	case s.ch <- packet:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Stream) close() {
	close(s.ch)
}

// NewBufferedStream streams pre-rendered packets from memory. The
// producer stops early if ctx is cancelled before the consumer drains
// the stream.
func NewBufferedStream(ctx context.Context, packets [][]byte) *Stream {
	stream := newStream()
	go func() {
		defer stream.close()
		for _, packet := range packets {
			if !stream.push(ctx, packet) {
				return
			}
		}
	}()
	return stream
}

// packetizer re-chunks an arbitrary byte flow into PacketSize frames.
type packetizer struct {
	buf []byte
}

// add appends data and returns any complete packets now available.
func (p *packetizer) add(data []byte) [][]byte {
	p.buf = append(p.buf, data...)

	var packets [][]byte
	for len(p.buf) >= audio.PacketSize {
		packet := make([]byte, audio.PacketSize)
		copy(packet, p.buf[:audio.PacketSize])
		p.buf = p.buf[audio.PacketSize:]
		packets = append(packets, packet)
	}
	return packets
}

// flush returns the trailing short packet, if any.
func (p *packetizer) flush() []byte {
	if len(p.buf) == 0 {
		return nil
	}
	rest := make([]byte, len(p.buf))
	copy(rest, p.buf)
	p.buf = nil
	return rest
}
