package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func jsonDecode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func TestParseTurn(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantText   string
		wantAction Action
	}{
		{
			"plain_speech",
			"Got it. Who are you insured with right now?",
			"Got it. Who are you insured with right now?",
			ActionSpeak,
		},
		{
			"transfer_primary",
			"Awesome, connecting you with a licensed agent now, stay with me. [TRANSFER_PRIMARY]",
			"Awesome, connecting you with a licensed agent now, stay with me.",
			ActionTransferPrimary,
		},
		{
			"transfer_secondary",
			"One moment while I get you over to the right team. [TRANSFER_SECONDARY]",
			"One moment while I get you over to the right team.",
			ActionTransferSecondary,
		},
		{
			"transfer_legacy",
			"Stay with me. [TRANSFER_NOW]",
			"Stay with me.",
			ActionTransferLegacy,
		},
		{
			"call_end",
			"No worries at all. Have a great day! [CALL_END]",
			"No worries at all. Have a great day!",
			ActionEnd,
		},
		{
			"route_beats_end",
			"Connecting you now. [TRANSFER_PRIMARY] [CALL_END]",
			"Connecting you now.",
			ActionTransferPrimary,
		},
		{
			"token_only",
			"[CALL_END]",
			"",
			ActionEnd,
		},
		{
			"token_mid_text",
			"Okay. [TRANSFER_NOW] Thanks.",
			"Okay.  Thanks.",
			ActionTransferLegacy,
		},
		{
			"empty",
			"",
			"",
			ActionSpeak,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTurn(tt.raw)
			if got.Action != tt.wantAction {
				t.Errorf("action = %s, want %s", got.Action, tt.wantAction)
			}
			if got.Text != tt.wantText {
				t.Errorf("text = %q, want %q", got.Text, tt.wantText)
			}
		})
	}
}

func TestActionString(t *testing.T) {
	if ActionTransferPrimary.String() != "transfer-primary" {
		t.Errorf("unexpected name %q", ActionTransferPrimary.String())
	}
	if Action(99).String() != "unknown" {
		t.Errorf("unexpected name for out-of-range action")
	}
}

func TestBuildGreeting(t *testing.T) {
	got := BuildGreeting(Lead{FirstName: "Maria"})
	if !strings.Contains(got, "Maria") {
		t.Errorf("greeting %q does not address the lead", got)
	}

	anon := BuildGreeting(Lead{})
	if !strings.Contains(anon, "there") {
		t.Errorf("anonymous greeting %q should fall back to 'there'", anon)
	}
}

func TestBuildSystemPromptIncludesLeadFacts(t *testing.T) {
	insured := true
	prompt := BuildSystemPrompt(Lead{
		FirstName:      "Maria",
		State:          "TX",
		CurrentInsurer: "Acme Mutual",
		Insured:        &insured,
	})

	for _, want := range []string{"Maria", "TX", "Acme Mutual", "[TRANSFER_PRIMARY]", "[CALL_END]"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}

	unknown := BuildSystemPrompt(Lead{FirstName: "Sam"})
	if !strings.Contains(unknown, "unknown") {
		t.Error("system prompt should mark missing lead facts as unknown")
	}
}

func TestOpenAIBrainAccumulatesStream(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model    string        `json:"model"`
			Messages []chatMessage `json:"messages"`
		}
		if err := jsonDecode(r, &body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		gotModel = body.Model
		if len(body.Messages) < 2 || body.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", body.Messages)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"choices":[{"delta":{"content":"Got it. "}}]}` + "\n\n"))
		w.Write([]byte(`data: {"choices":[{"delta":{"content":"[CALL_END]"}}]}` + "\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	b := NewOpenAIBrain(OpenAIBrainConfig{
		APIKey:       "key",
		SystemPrompt: "be brief",
		BaseURL:      server.URL,
	})

	turn, err := b.Respond(context.Background(), "no thanks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotModel != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %q", gotModel)
	}
	if turn.Action != ActionEnd {
		t.Errorf("expected end action, got %s", turn.Action)
	}
	if turn.Text != "Got it." {
		t.Errorf("expected accumulated text %q, got %q", "Got it.", turn.Text)
	}
}

func TestOpenAIBrainKeepsHistory(t *testing.T) {
	var lastCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []chatMessage `json:"messages"`
		}
		jsonDecode(r, &body)
		lastCount = len(body.Messages)
		w.Write([]byte(`data: {"choices":[{"delta":{"content":"ok"}}]}` + "\n\ndata: [DONE]\n\n"))
	}))
	defer server.Close()

	b := NewOpenAIBrain(OpenAIBrainConfig{APIKey: "key", SystemPrompt: "p", BaseURL: server.URL})

	b.Respond(context.Background(), "first")
	if lastCount != 2 { // system + user
		t.Fatalf("expected 2 messages on first turn, got %d", lastCount)
	}
	b.Respond(context.Background(), "second")
	if lastCount != 4 { // + assistant + user
		t.Fatalf("expected 4 messages on second turn, got %d", lastCount)
	}
}

func TestOpenAIBrainSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	b := NewOpenAIBrain(OpenAIBrainConfig{APIKey: "key", BaseURL: server.URL})
	if _, err := b.Respond(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
