package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Media stream event names.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventStop      = "stop"
	EventMark      = "mark"
	EventClear     = "clear"
)

// Message is one JSON envelope on the media websocket, inbound or
// outbound. Only the fields for the message's event are populated.
type Message struct {
	Event     string        `json:"event"`
	StreamSid string        `json:"streamSid,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Stop      *StopPayload  `json:"stop,omitempty"`
	Mark      *MarkPayload  `json:"mark,omitempty"`
}

// MediaPayload carries one base64 frame of call audio.
type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

// StartPayload announces a new media stream.
type StartPayload struct {
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid"`
	AccountSid       string            `json:"accountSid,omitempty"`
	Tracks           []string          `json:"tracks,omitempty"`
	MediaFormat      MediaFormat       `json:"mediaFormat"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// MediaFormat describes the stream's audio encoding.
type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// StopPayload announces the end of a media stream.
type StopPayload struct {
	CallSid string `json:"callSid,omitempty"`
}

// MarkPayload acknowledges playback progress. Unused here beyond
// decoding.
type MarkPayload struct {
	Name string `json:"name,omitempty"`
}

// DecodeMessage parses one websocket text frame.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decoding wire message: %w", err)
	}
	if msg.Event == "" {
		return nil, fmt.Errorf("wire message has no event")
	}
	return &msg, nil
}

// AudioPacket decodes the base64 audio of a media message.
func (m *Message) AudioPacket() ([]byte, error) {
	if m.Media == nil {
		return nil, fmt.Errorf("message has no media payload")
	}
	packet, err := base64.StdEncoding.DecodeString(m.Media.Payload)
	if err != nil {
		return nil, fmt.Errorf("decoding audio payload: %w", err)
	}
	return packet, nil
}

// NewMediaMessage builds an outbound audio frame.
func NewMediaMessage(streamSid string, mulaw []byte) *Message {
	return &Message{
		Event:     EventMedia,
		StreamSid: streamSid,
		Media: &MediaPayload{
			Payload: base64.StdEncoding.EncodeToString(mulaw),
		},
	}
}

// NewClearMessage builds the frame that flushes the carrier's
// playback buffer after a barge-in.
func NewClearMessage(streamSid string) *Message {
	return &Message{Event: EventClear, StreamSid: streamSid}
}

// Conn is the outbound half of a media connection. Implementations
// must serialize concurrent writers.
type Conn interface {
	WriteMessage(msg *Message) error
	Close() error
}
