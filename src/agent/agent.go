// Package agent decides what the voice agent says and does next.
package agent

import (
	"context"
	"strings"
)

// Action is what the session should do after speaking a turn's text.
type Action int

const (
	// ActionSpeak plays the reply and keeps listening.
	ActionSpeak Action = iota
	// ActionTransferPrimary hands the call to the primary route.
	ActionTransferPrimary
	// ActionTransferSecondary hands the call to the secondary route.
	ActionTransferSecondary
	// ActionTransferLegacy hands the call to the default route.
	ActionTransferLegacy
	// ActionEnd plays the goodbye and hangs up.
	ActionEnd
)

// String returns a human-readable action name.
func (a Action) String() string {
	switch a {
	case ActionSpeak:
		return "speak"
	case ActionTransferPrimary:
		return "transfer-primary"
	case ActionTransferSecondary:
		return "transfer-secondary"
	case ActionTransferLegacy:
		return "transfer"
	case ActionEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Turn is one agent response: the text to speak and the follow-up
// action.
type Turn struct {
	Text   string
	Action Action
}

// Brain produces the next turn for a conversation. Implementations
// hold per-call history; one Brain instance serves one call.
type Brain interface {
	Respond(ctx context.Context, userText string) (Turn, error)
}

// Control tokens the model appends to signal actions. They are
// stripped from the spoken text.
const (
	tokenTransferPrimary   = "[TRANSFER_PRIMARY]"
	tokenTransferSecondary = "[TRANSFER_SECONDARY]"
	tokenTransferLegacy    = "[TRANSFER_NOW]"
	tokenEnd               = "[CALL_END]"
)

// ParseTurn extracts the action token from raw model output and
// returns the cleaned turn. Route tokens win over the end token when
// a confused model emits both.
func ParseTurn(raw string) Turn {
	action := ActionSpeak
	switch {
	case strings.Contains(raw, tokenTransferPrimary):
		action = ActionTransferPrimary
	case strings.Contains(raw, tokenTransferSecondary):
		action = ActionTransferSecondary
	case strings.Contains(raw, tokenTransferLegacy):
		action = ActionTransferLegacy
	case strings.Contains(raw, tokenEnd):
		action = ActionEnd
	}

	text := raw
	for _, token := range []string{
		tokenTransferPrimary, tokenTransferSecondary, tokenTransferLegacy, tokenEnd,
	} {
		text = strings.ReplaceAll(text, token, "")
	}

	return Turn{Text: strings.TrimSpace(text), Action: action}
}
