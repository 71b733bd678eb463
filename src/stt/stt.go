// Package stt turns raw call audio into filtered transcripts.
package stt

import "context"

// MinUtteranceBytes is roughly 100 ms of 8 kHz mu-law. Anything
// shorter is skipped without a network call; engines hallucinate on
// such fragments more often than they transcribe them.
const MinUtteranceBytes = 1600

// Transcriber converts a mu-law utterance into text. Implementations
// degrade to an empty transcript on provider failure instead of
// returning errors that would kill a live call; a non-nil error is
// reserved for programmer mistakes (nil context and the like).
type Transcriber interface {
	Transcribe(ctx context.Context, mulaw []byte) (string, error)
}
