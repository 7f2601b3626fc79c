package geminicli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
)

func TestNormalize_UserMessage(t *testing.T) {
	doc := document{
		SessionID: "sess-1",
		Messages: []message{
			{Role: "user", Timestamp: "2026-01-01T00:00:00Z", Text: "what's in this repo?"},
		},
	}
	events, err := Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	up, ok := events[0].Payload.(agentevent.UserPayload)
	if !ok || up.Text != "what's in this repo?" {
		t.Errorf("got %+v, want UserPayload{what's in this repo?}", events[0].Payload)
	}
}

func TestNormalize_GeminiMessageWithThoughtsAndText(t *testing.T) {
	doc := document{
		SessionID: "sess-1",
		Messages: []message{
			{Role: "gemini", Timestamp: "2026-01-01T00:00:01Z", Text: "here's the answer",
				Thoughts: []thought{{Text: "first, let me check the files"}}},
		},
	}
	events, err := Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (reasoning + message)", len(events))
	}
	if _, ok := events[0].Payload.(agentevent.ReasoningPayload); !ok {
		t.Errorf("events[0] = %T, want ReasoningPayload", events[0].Payload)
	}
	if _, ok := events[1].Payload.(agentevent.MessagePayload); !ok {
		t.Errorf("events[1] = %T, want MessagePayload", events[1].Payload)
	}
}

func TestNormalize_ToolCallWithResultLinksByCallID(t *testing.T) {
	doc := document{
		SessionID: "sess-1",
		Messages: []message{
			{Role: "gemini", Timestamp: "2026-01-01T00:00:01Z", ToolCalls: []toolCall{
				{Name: "read_file", CallID: "call-1", Arguments: []byte(`{"path":"/tmp/a.go"}`), Status: "success", Output: "package main"},
			}},
		},
	}
	events, err := Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (tool_call + tool_result)", len(events))
	}
	call := events[0].Payload.(agentevent.ToolCallEventPayload).Call
	result, ok := events[1].Payload.(agentevent.ToolResultPayload)
	if !ok {
		t.Fatalf("events[1] = %T, want ToolResultPayload", events[1].Payload)
	}
	if result.CallID != call.ID() {
		t.Errorf("CallID = %s, want %s", result.CallID, call.ID())
	}
	if result.IsError {
		t.Errorf("IsError = true for status=success, want false")
	}
	if call.Kind() != agentevent.KindFileRead {
		t.Errorf("Kind() = %v, want KindFileRead", call.Kind())
	}
}

func TestNormalize_ErrorStatusMarksToolResultAsError(t *testing.T) {
	doc := document{
		SessionID: "sess-1",
		Messages: []message{
			{Role: "gemini", Timestamp: "2026-01-01T00:00:01Z", ToolCalls: []toolCall{
				{Name: "shell", CallID: "call-1", Arguments: []byte(`{"command":"false"}`), Status: "error", Output: "command failed"},
			}},
		},
	}
	events, err := Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	result := events[1].Payload.(agentevent.ToolResultPayload)
	if !result.IsError {
		t.Errorf("IsError = false, want true for status=error")
	}
}

func TestNormalize_InfoMessageBecomesNotification(t *testing.T) {
	doc := document{
		SessionID: "sess-1",
		Messages: []message{
			{Role: "info", Timestamp: "2026-01-01T00:00:00Z", Text: "checkpoint saved"},
		},
	}
	events, err := Normalize(doc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	n, ok := events[0].Payload.(agentevent.NotificationPayload)
	if !ok || n.Text != "checkpoint saved" {
		t.Errorf("got %+v, want NotificationPayload{checkpoint saved}", events[0].Payload)
	}
}

func TestExtractProjectHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	content := `{"sessionId":"sess-1","projectHash":"abc123","messages":[]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	hash, err := ExtractProjectHash(path)
	if err != nil {
		t.Fatalf("ExtractProjectHash: %v", err)
	}
	if hash != "abc123" {
		t.Errorf("ExtractProjectHash = %q, want %q", hash, "abc123")
	}
}
