package session

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestDecodeStartMessage(t *testing.T) {
	raw := []byte(`{
		"event": "start",
		"sequenceNumber": "1",
		"streamSid": "MZ123",
		"start": {
			"streamSid": "MZ123",
			"accountSid": "AC456",
			"callSid": "CA789",
			"tracks": ["inbound"],
			"mediaFormat": {"encoding": "audio/x-mulaw", "sampleRate": 8000, "channels": 1},
			"customParameters": {"campaign": "auto-q3"}
		}
	}`)

	msg, err := DecodeMessage(raw)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Event != EventStart {
		t.Errorf("Event = %q", msg.Event)
	}
	if msg.Start == nil || msg.Start.CallSid != "CA789" {
		t.Fatalf("Start = %+v", msg.Start)
	}
	if msg.Start.MediaFormat.SampleRate != 8000 {
		t.Errorf("SampleRate = %d", msg.Start.MediaFormat.SampleRate)
	}
	if msg.Start.CustomParameters["campaign"] != "auto-q3" {
		t.Errorf("CustomParameters = %v", msg.Start.CustomParameters)
	}
}

func TestDecodeMediaAndAudioPacket(t *testing.T) {
	raw := []byte(`{
		"event": "media",
		"streamSid": "MZ123",
		"media": {"track": "inbound", "chunk": "3", "timestamp": "60", "payload": "//9/fw=="}
	}`)

	msg, err := DecodeMessage(raw)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	packet, err := msg.AudioPacket()
	if err != nil {
		t.Fatalf("AudioPacket: %v", err)
	}
	if !bytes.Equal(packet, []byte{0xFF, 0xFF, 0x7F, 0x7F}) {
		t.Errorf("packet = %x", packet)
	}
}

func TestDecodeMessageErrors(t *testing.T) {
	if _, err := DecodeMessage([]byte(`not json`)); err == nil {
		t.Error("malformed JSON accepted")
	}
	if _, err := DecodeMessage([]byte(`{"streamSid": "MZ1"}`)); err == nil {
		t.Error("message without event accepted")
	}
	msg := &Message{Event: EventMedia}
	if _, err := msg.AudioPacket(); err == nil {
		t.Error("AudioPacket on empty media succeeded")
	}
	msg.Media = &MediaPayload{Payload: "@@not-base64@@"}
	if _, err := msg.AudioPacket(); err == nil {
		t.Error("AudioPacket on bad base64 succeeded")
	}
}

func TestOutboundMessages(t *testing.T) {
	media := NewMediaMessage("MZ1", []byte{0x00, 0xFF})
	data, err := json.Marshal(media)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	round, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	packet, err := round.AudioPacket()
	if err != nil {
		t.Fatalf("AudioPacket: %v", err)
	}
	if !bytes.Equal(packet, []byte{0x00, 0xFF}) {
		t.Errorf("round trip = %x", packet)
	}

	clearMsg := NewClearMessage("MZ1")
	data, err = json.Marshal(clearMsg)
	if err != nil {
		t.Fatalf("Marshal clear: %v", err)
	}
	want := `{"event":"clear","streamSid":"MZ1"}`
	if string(data) != want {
		t.Errorf("clear frame = %s, want %s", data, want)
	}
}
