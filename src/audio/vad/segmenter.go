// Package vad segments a classified packet stream into utterances.
package vad

import (
	"sync"
	"time"
)

// SegmenterState identifies the segmenter's position in the utterance
// lifecycle.
type SegmenterState int

const (
	// StateIdle means no utterance is open.
	StateIdle SegmenterState = iota
	// StateAccumulating means an utterance is being collected.
	StateAccumulating
)

// String returns a human-readable state name.
func (s SegmenterState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	default:
		return "unknown"
	}
}

// SegmenterParams tunes the utterance state machine. Packet counts are
// in 20 ms frames.
type SegmenterParams struct {
	StartPackets   int           // consecutive speech frames to open an utterance
	SilencePackets int           // consecutive silence frames to finalize
	MaxUtterance   time.Duration // wall-clock cap on a single utterance
	MinBytes       int           // utterances shorter than this are discarded
}

// DefaultSegmenterParams returns the tuning used on live calls:
// 60 ms of speech to open, 700 ms of trailing silence to close,
// a 12 s hard cap, and a ~100 ms minimum worth transcribing.
func DefaultSegmenterParams() SegmenterParams {
	return SegmenterParams{
		StartPackets:   3,
		SilencePackets: 35,
		MaxUtterance:   12 * time.Second,
		MinBytes:       1600,
	}
}

// UtteranceSegmenter turns per-packet speech/silence decisions into
// complete utterances. Isolated noise pops never open an utterance;
// once open, everything (speech and silence alike) is captured until
// a long enough silence run or the wall-clock cap closes it.
type UtteranceSegmenter struct {
	params SegmenterParams

	mu         sync.Mutex
	state      SegmenterState
	startRun   int
	silenceRun int
	pending    []byte // speech-run bytes observed while still idle
	buf        []byte
	openedAt   time.Time
}

// NewUtteranceSegmenter creates a segmenter. Zero-valued params fields
// take their defaults.
func NewUtteranceSegmenter(params SegmenterParams) *UtteranceSegmenter {
	def := DefaultSegmenterParams()
	if params.StartPackets <= 0 {
		params.StartPackets = def.StartPackets
	}
	if params.SilencePackets <= 0 {
		params.SilencePackets = def.SilencePackets
	}
	if params.MaxUtterance <= 0 {
		params.MaxUtterance = def.MaxUtterance
	}
	if params.MinBytes <= 0 {
		params.MinBytes = def.MinBytes
	}
	return &UtteranceSegmenter{params: params}
}

// Params returns the effective tuning.
func (s *UtteranceSegmenter) Params() SegmenterParams {
	return s.params
}

// Active reports whether an utterance is currently open.
func (s *UtteranceSegmenter) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAccumulating
}

// Process feeds one classified packet. It returns the finalized
// utterance when this packet closed one, and closed=true whenever an
// open utterance ended, including the case where it was discarded for
// being too short (utterance nil).
func (s *UtteranceSegmenter) Process(packet []byte, isSpeech bool) (utterance []byte, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		if !isSpeech {
			s.startRun = 0
			s.pending = nil
			return nil, false
		}
		s.pending = append(s.pending, packet...)
		s.startRun++
		if s.startRun >= s.params.StartPackets {
			s.openLocked(s.pending)
		}
		return nil, false

	case StateAccumulating:
		s.buf = append(s.buf, packet...)
		if isSpeech {
			s.silenceRun = 0
		} else {
			s.silenceRun++
		}
		if s.silenceRun >= s.params.SilencePackets ||
			time.Since(s.openedAt) >= s.params.MaxUtterance {
			return s.finalizeLocked(), true
		}
	}
	return nil, false
}

// Seed opens an utterance directly from packets that were already
// classified as speech elsewhere (the barge-in handoff), bypassing
// start hysteresis so none of the interrupting audio is lost.
func (s *UtteranceSegmenter) Seed(packets [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var head []byte
	for _, p := range packets {
		head = append(head, p...)
	}
	s.openLocked(head)
}

// Flush force-finalizes the open utterance, if any. Used by the
// wall-clock safety timer when the packet stream stalls.
func (s *UtteranceSegmenter) Flush() (utterance []byte, wasOpen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAccumulating {
		return nil, false
	}
	return s.finalizeLocked(), true
}

// Reset drops all state and returns to idle.
func (s *UtteranceSegmenter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.startRun = 0
	s.silenceRun = 0
	s.pending = nil
	s.buf = nil
}

func (s *UtteranceSegmenter) openLocked(head []byte) {
	s.state = StateAccumulating
	s.buf = head
	s.pending = nil
	s.startRun = 0
	s.silenceRun = 0
	s.openedAt = time.Now()
}

func (s *UtteranceSegmenter) finalizeLocked() []byte {
	utterance := s.buf
	s.state = StateIdle
	s.startRun = 0
	s.silenceRun = 0
	s.buf = nil
	s.pending = nil

	if len(utterance) < s.params.MinBytes {
		return nil
	}
	return utterance
}
