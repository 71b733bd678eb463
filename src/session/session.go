// Package session runs the per-call event loop over the media stream.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sonara-labs/dialtone/src/agent"
	"github.com/sonara-labs/dialtone/src/audio"
	"github.com/sonara-labs/dialtone/src/audio/vad"
	"github.com/sonara-labs/dialtone/src/logger"
	"github.com/sonara-labs/dialtone/src/stt"
	"github.com/sonara-labs/dialtone/src/telephony"
	"github.com/sonara-labs/dialtone/src/tts"
)

// State is the call session's position in its lifecycle.
type State int

const (
	// StateAwaitingStart means the socket is up but no start event yet.
	StateAwaitingStart State = iota
	// StateGreeting means the greeting is pending or playing.
	StateGreeting
	// StateListening means inbound audio is being classified.
	StateListening
	// StateBuffering means an utterance is being collected.
	StateBuffering
	// StateProcessing means an utterance is in STT/brain flight.
	StateProcessing
	// StateSpeaking means agent audio is streaming out.
	StateSpeaking
	// StateEnded means the call is over.
	StateEnded
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateAwaitingStart:
		return "awaiting-start"
	case StateGreeting:
		return "greeting"
	case StateListening:
		return "listening"
	case StateBuffering:
		return "buffering-speech"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Params tunes session behavior.
type Params struct {
	GreetingDelay  time.Duration // wait after stream start before the opener
	BargeInPackets int           // consecutive speech frames to interrupt playback
	TransferDelay  time.Duration // gap between announcement and redirect
	RecoveryLine   string        // spoken when the brain is unreachable
	TransferNote   string        // system line fed to the brain after a failed transfer
	Segmenter      vad.SegmenterParams
}

// DefaultParams returns live-call tuning: 800 ms greeting delay,
// 200 ms of sustained speech to barge in, 1.5 s announcement-to-dial
// gap.
func DefaultParams() Params {
	return Params{
		GreetingDelay:  800 * time.Millisecond,
		BargeInPackets: 10,
		TransferDelay:  1500 * time.Millisecond,
		RecoveryLine:   "Sorry, I'm having a little trouble on my end. Could you say that again?",
		TransferNote:   "[System: The transfer failed. The line did not connect. Let the caller know and continue the conversation.]",
		Segmenter:      vad.DefaultSegmenterParams(),
	}
}

// BrainFactory builds a per-call brain primed with the lead's prompt.
type BrainFactory func(lead agent.Lead) (agent.Brain, error)

// Deps are the session's collaborators. Transfer and Noise are
// optional; everything else is required.
type Deps struct {
	Registry    *Registry
	Transcriber stt.Transcriber
	Synthesizer tts.Synthesizer
	NewBrain    BrainFactory
	Transfer    telephony.TransferExecutor
	Detector    *audio.EnergyDetector
	Noise       *audio.NoiseBed // shared read-only loop; each session cuts its own Mixer
}

// CallSession owns one phone call: it consumes decoded wire messages,
// segments caller speech, runs the transcribe/respond/speak cycle,
// and executes transfer and hang-up actions.
type CallSession struct {
	id     string
	conn   Conn
	deps   Deps
	params Params
	log    *logger.Logger
	tones  *audio.ToneSynthesizer
	noise  *audio.NoiseMixer // this session's cursor over the shared bed

	ctx  context.Context
	stop context.CancelFunc

	mu           sync.Mutex
	state        State
	streamSid    string
	callSid      string
	lead         agent.Lead
	routes       TransferRoutes
	brain        agent.Brain
	seg          *vad.UtteranceSegmenter
	playback     *PlaybackHandle
	greetingDone bool
	bargeRun     [][]byte
	greetTimer   *time.Timer
	utterTimer   *time.Timer
}

// New creates a session for one media connection. Zero params fields
// take their defaults.
func New(conn Conn, deps Deps, params Params) *CallSession {
	def := DefaultParams()
	if params.GreetingDelay <= 0 {
		params.GreetingDelay = def.GreetingDelay
	}
	if params.BargeInPackets <= 0 {
		params.BargeInPackets = def.BargeInPackets
	}
	if params.TransferDelay <= 0 {
		params.TransferDelay = def.TransferDelay
	}
	if params.RecoveryLine == "" {
		params.RecoveryLine = def.RecoveryLine
	}
	if params.TransferNote == "" {
		params.TransferNote = def.TransferNote
	}
	if deps.Detector == nil {
		deps.Detector = audio.NewEnergyDetector(0)
	}

	var noise *audio.NoiseMixer
	if deps.Noise != nil {
		noise = deps.Noise.Mixer()
	}

	id := uuid.NewString()[:8]
	ctx, cancel := context.WithCancel(context.Background())
	return &CallSession{
		id:     id,
		conn:   conn,
		deps:   deps,
		params: params,
		log:    logger.WithPrefix("Session " + id),
		tones:  audio.NewToneSynthesizer(),
		noise:  noise,
		ctx:    ctx,
		stop:   cancel,
		seg:    vad.NewUtteranceSegmenter(params.Segmenter),
	}
}

// ID returns the short session identifier.
func (s *CallSession) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *CallSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HandleMessage consumes one decoded wire message. Called from the
// transport's read pump.
func (s *CallSession) HandleMessage(msg *Message) {
	switch msg.Event {
	case EventConnected:
		s.log.Debug("Carrier handshake complete")
	case EventStart:
		s.handleStart(msg)
	case EventMedia:
		s.handleMedia(msg)
	case EventStop:
		s.log.Info("Stream stopped by carrier")
		s.Shutdown()
	}
}

func (s *CallSession) handleStart(msg *Message) {
	start := msg.Start
	if start == nil {
		s.log.Warn("Start event without payload")
		return
	}

	s.mu.Lock()
	if s.state != StateAwaitingStart {
		s.mu.Unlock()
		return
	}
	s.streamSid = start.StreamSid
	if s.streamSid == "" {
		s.streamSid = msg.StreamSid
	}
	s.callSid = start.CallSid

	var cc *CallContext
	var known bool
	if s.deps.Registry != nil {
		cc, known = s.deps.Registry.Take(start.CallSid)
	}
	if known {
		s.lead = cc.Lead
		s.routes = cc.Routes
	} else {
		s.lead = agent.Lead{}
	}
	lead := s.lead
	s.state = StateGreeting
	s.mu.Unlock()

	if !known {
		s.log.Warn("No pending context for call %s, using anonymous lead", start.CallSid)
	}
	s.log.Info("Stream started call=%s stream=%s lead=%q", start.CallSid, s.streamSid, lead.FirstName)

	brain, err := s.deps.NewBrain(lead)
	if err != nil {
		s.log.Error("Brain construction failed: %v", err)
	} else {
		s.mu.Lock()
		s.brain = brain
		s.mu.Unlock()
	}

	s.mu.Lock()
	if s.state == StateGreeting {
		s.greetTimer = time.AfterFunc(s.params.GreetingDelay, s.runGreeting)
	}
	s.mu.Unlock()
}

func (s *CallSession) runGreeting() {
	s.mu.Lock()
	lead := s.lead
	s.mu.Unlock()

	if s.speak(agent.BuildGreeting(lead)) {
		s.mu.Lock()
		s.greetingDone = true
		s.mu.Unlock()
		s.log.Debug("Greeting completed, barge-in armed")
	}
}

func (s *CallSession) handleMedia(msg *Message) {
	packet, err := msg.AudioPacket()
	if err != nil {
		s.log.Debug("Dropping malformed media frame: %v", err)
		return
	}
	isSpeech := s.deps.Detector.IsSpeech(packet)

	s.mu.Lock()
	switch s.state {
	case StateSpeaking:
		s.mediaWhileSpeakingLocked(packet, isSpeech)
	case StateListening, StateBuffering:
		s.mediaWhileListeningLocked(packet, isSpeech)
	default:
		// Dropped: not listening yet, mid-processing, or ended.
		s.mu.Unlock()
	}
}

// mediaWhileSpeakingLocked counts consecutive speech frames and fires
// the barge-in once the run is long enough. Releases s.mu.
func (s *CallSession) mediaWhileSpeakingLocked(packet []byte, isSpeech bool) {
	if !s.greetingDone {
		s.mu.Unlock()
		return
	}
	if !isSpeech {
		s.bargeRun = nil
		s.mu.Unlock()
		return
	}

	s.bargeRun = append(s.bargeRun, packet)
	if len(s.bargeRun) < s.params.BargeInPackets {
		s.mu.Unlock()
		return
	}

	run := s.bargeRun
	s.bargeRun = nil
	handle := s.playback
	streamSid := s.streamSid
	s.state = StateBuffering
	s.seg.Seed(run)
	s.armUtteranceTimerLocked()
	s.mu.Unlock()

	if handle != nil && handle.Cancel() {
		s.log.Info("Barge-in after %d speech frames", len(run))
		if err := s.conn.WriteMessage(NewClearMessage(streamSid)); err != nil {
			s.log.Warn("Failed to send clear frame: %v", err)
		}
	}
}

// mediaWhileListeningLocked feeds the segmenter. Releases s.mu.
func (s *CallSession) mediaWhileListeningLocked(packet []byte, isSpeech bool) {
	utterance, closed := s.seg.Process(packet, isSpeech)
	if closed {
		s.disarmUtteranceTimerLocked()
		if utterance != nil {
			s.state = StateProcessing
			s.mu.Unlock()
			go s.processUtterance(utterance)
			return
		}
		s.state = StateListening
		s.mu.Unlock()
		s.log.Debug("Utterance too short, discarded")
		return
	}

	if s.state == StateListening && s.seg.Active() {
		s.state = StateBuffering
		s.armUtteranceTimerLocked()
	}
	s.mu.Unlock()
}

// armUtteranceTimerLocked starts the wall-clock safety timer that
// forces processing when silence-based finalization never fires.
func (s *CallSession) armUtteranceTimerLocked() {
	s.disarmUtteranceTimerLocked()
	s.utterTimer = time.AfterFunc(s.seg.Params().MaxUtterance, s.onUtteranceTimeout)
}

func (s *CallSession) disarmUtteranceTimerLocked() {
	if s.utterTimer != nil {
		s.utterTimer.Stop()
		s.utterTimer = nil
	}
}

func (s *CallSession) onUtteranceTimeout() {
	utterance, wasOpen := s.seg.Flush()

	s.mu.Lock()
	if !wasOpen || s.state != StateBuffering {
		s.mu.Unlock()
		return
	}
	if utterance == nil {
		s.state = StateListening
		s.mu.Unlock()
		return
	}
	s.state = StateProcessing
	s.mu.Unlock()

	s.log.Warn("Utterance hit the wall-clock cap, forcing processing")
	s.processUtterance(utterance)
}

func (s *CallSession) processUtterance(utterance []byte) {
	s.log.Info("Processing %d-byte utterance (%.1fs)",
		len(utterance), float64(len(utterance))/float64(audio.SampleRate))

	text, err := s.deps.Transcriber.Transcribe(s.ctx, utterance)
	if err != nil {
		s.log.Error("Transcription failed: %v", err)
		text = ""
	}
	if text == "" {
		s.log.Debug("Nothing said, back to listening")
		s.toListening()
		return
	}
	s.log.Info("Caller: %s", text)

	s.mu.Lock()
	brain := s.brain
	s.mu.Unlock()
	if brain == nil {
		s.speak(s.params.RecoveryLine)
		return
	}

	turn, err := brain.Respond(s.ctx, text)
	if err != nil {
		s.log.Error("Brain failed: %v", err)
		s.speak(s.params.RecoveryLine)
		return
	}
	s.log.Info("Agent [%s]: %s", turn.Action, turn.Text)

	switch turn.Action {
	case agent.ActionEnd:
		if turn.Text != "" {
			s.speak(turn.Text)
		}
		s.mu.Lock()
		s.state = StateEnded
		s.mu.Unlock()
		s.log.Info("Call ended by agent")

	case agent.ActionTransferPrimary, agent.ActionTransferSecondary, agent.ActionTransferLegacy:
		s.runTransfer(turn)

	default:
		if turn.Text != "" {
			s.speak(turn.Text)
		} else {
			s.toListening()
		}
	}
}

func (s *CallSession) runTransfer(turn agent.Turn) {
	if turn.Text != "" {
		s.speak(turn.Text)
	}

	s.mu.Lock()
	route := s.routes.pick(turn.Action)
	callSid := s.callSid
	s.mu.Unlock()

	if s.deps.Transfer == nil || route.Number == "" {
		s.log.Error("No transfer executor or route for %s", turn.Action)
		s.recoverFromFailedTransfer()
		return
	}

	select {
	case <-time.After(s.params.TransferDelay):
	case <-s.ctx.Done():
		return
	}

	if route.Digits != "" {
		s.playDigits(route.Digits)
	}

	if err := s.deps.Transfer.Transfer(s.ctx, callSid, route); err != nil {
		s.log.Error("Transfer failed: %v", err)
		s.recoverFromFailedTransfer()
		return
	}

	s.mu.Lock()
	s.state = StateEnded
	s.mu.Unlock()
	s.log.Info("Call transferred to %s", route.Number)
}

// recoverFromFailedTransfer tells the brain the line did not connect
// so it can keep the caller informed, falling back to the fixed
// recovery line if the brain is down too.
func (s *CallSession) recoverFromFailedTransfer() {
	s.mu.Lock()
	brain := s.brain
	s.mu.Unlock()

	if brain != nil {
		if turn, err := brain.Respond(s.ctx, s.params.TransferNote); err == nil && turn.Text != "" {
			s.speak(turn.Text)
			return
		}
	}
	s.speak(s.params.RecoveryLine)
}

// playDigits renders a dial string onto the media stream, for routes
// that sit behind an extension menu.
func (s *CallSession) playDigits(digits string) {
	packets := s.tones.Synthesize(digits)
	if len(packets) == 0 {
		s.log.Warn("Nothing dialable in %q", digits)
		return
	}

	s.mu.Lock()
	streamSid := s.streamSid
	s.mu.Unlock()

	s.log.Info("Playing %d DTMF packets for %q", len(packets), digits)
	for _, packet := range packets {
		if s.ctx.Err() != nil {
			return
		}
		if err := s.conn.WriteMessage(NewMediaMessage(streamSid, packet)); err != nil {
			s.log.Warn("Write failed during DTMF: %v", err)
			return
		}
	}
}

// speak streams one utterance of agent speech to the wire. It blocks
// until playback finishes, fails, or is cancelled, and returns true
// only for a full, uninterrupted playback.
func (s *CallSession) speak(text string) bool {
	ctx, cancel := context.WithCancel(s.ctx)
	handle := newPlaybackHandle(cancel)

	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		cancel()
		return false
	}
	s.state = StateSpeaking
	s.playback = handle
	s.bargeRun = nil
	streamSid := s.streamSid
	s.mu.Unlock()

	stream, err := s.deps.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		s.log.Error("TTS failed: %v", err)
		cancel()
		s.finishPlayback(handle, false)
		return false
	}

	completed := true
	for packet := range stream.Packets() {
		if handle.Cancelled() {
			completed = false
			break
		}
		if s.noise != nil {
			packet = s.noise.Mix(packet)
		}
		if err := s.conn.WriteMessage(NewMediaMessage(streamSid, packet)); err != nil {
			s.log.Warn("Write failed during playback: %v", err)
			completed = false
			break
		}
	}
	if err := stream.Err(); err != nil {
		s.log.Warn("TTS stream ended with error: %v", err)
		completed = false
	}

	cancel()
	s.finishPlayback(handle, completed)
	return completed && !handle.Cancelled()
}

// finishPlayback releases the handle and restores the listening state
// unless a barge-in or shutdown already moved it.
func (s *CallSession) finishPlayback(handle *PlaybackHandle, completed bool) {
	handle.finish()
	s.mu.Lock()
	if s.playback == handle {
		s.playback = nil
	}
	if s.state == StateSpeaking {
		s.state = StateListening
	}
	s.mu.Unlock()

	if completed {
		s.log.Debug("Playback completed")
	}
}

// toListening returns to listening after processing resolved without
// speech.
func (s *CallSession) toListening() {
	s.mu.Lock()
	if s.state == StateProcessing {
		s.state = StateListening
	}
	s.mu.Unlock()
}

// Shutdown tears the session down: socket closed, stop event, or
// server exit. Safe to call more than once.
func (s *CallSession) Shutdown() {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return
	}
	s.state = StateEnded
	handle := s.playback
	s.playback = nil
	if s.greetTimer != nil {
		s.greetTimer.Stop()
		s.greetTimer = nil
	}
	s.disarmUtteranceTimerLocked()
	s.seg.Reset()
	s.mu.Unlock()

	if handle != nil {
		handle.Cancel()
	}
	s.stop()
	s.log.Info("Session closed")
}
