package codex

import (
	"encoding/json"
	"testing"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
)

func rec(kind, raw string) Record {
	return Record{Kind: kind, Raw: []byte(raw)}
}

func TestNormalize_UserAndAgentMessages(t *testing.T) {
	records := []Record{
		rec("response_item", `{"timestamp":"2026-01-01T00:00:00Z","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"hi there"}]}}`),
		rec("response_item", `{"timestamp":"2026-01-01T00:00:01Z","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"hello"}]}}`),
	}
	events, err := Normalize(records, "sess-1")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if _, ok := events[0].Payload.(agentevent.UserPayload); !ok {
		t.Errorf("events[0] = %T, want UserPayload", events[0].Payload)
	}
	if _, ok := events[1].Payload.(agentevent.MessagePayload); !ok {
		t.Errorf("events[1] = %T, want MessagePayload", events[1].Payload)
	}
}

func TestNormalize_FunctionCallThenOutputLinksByCallID(t *testing.T) {
	records := []Record{
		rec("response_item", `{"timestamp":"2026-01-01T00:00:00Z","payload":{"type":"function_call","name":"shell","call_id":"call_1","arguments":"{\"command\":[\"ls\",\"-la\"]}"}}`),
		rec("response_item", `{"timestamp":"2026-01-01T00:00:01Z","payload":{"type":"function_call_output","call_id":"call_1","output":"total 0\nExit Code: 0"}}`),
	}
	events, err := Normalize(records, "sess-1")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
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
		t.Errorf("IsError = true for exit code 0, want false")
	}
	if call.Kind() != agentevent.KindExecute {
		t.Errorf("Kind() = %v, want KindExecute", call.Kind())
	}
}

func TestNormalize_NonZeroExitCodeMarksToolResultAsError(t *testing.T) {
	records := []Record{
		rec("response_item", `{"timestamp":"2026-01-01T00:00:00Z","payload":{"type":"function_call","name":"shell","call_id":"call_1","arguments":"{\"command\":[\"false\"]}"}}`),
		rec("response_item", `{"timestamp":"2026-01-01T00:00:01Z","payload":{"type":"function_call_output","call_id":"call_1","output":"Exit Code: 1"}}`),
	}
	events, err := Normalize(records, "sess-1")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	result := events[1].Payload.(agentevent.ToolResultPayload)
	if !result.IsError {
		t.Errorf("IsError = false, want true for non-zero exit code")
	}
}

func TestNormalize_ApplyPatchAddVsUpdateClassification(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind agentevent.ToolKind
	}{
		{"add file", "*** Add File: new.go\n+package main\n", agentevent.KindFileWrite},
		{"update file", "*** Update File: existing.go\n@@ -1 +1 @@\n", agentevent.KindFileEdit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// arguments is a JSON-string-encoded blob, so it's built with
			// json.Marshal twice: once for the {"raw": ...} body, once more
			// to embed that body as the record's "arguments" string field.
			argsBody, err := json.Marshal(struct {
				Raw string `json:"raw"`
			}{Raw: tt.raw})
			if err != nil {
				t.Fatalf("json.Marshal(argsBody): %v", err)
			}
			argsField, err := json.Marshal(string(argsBody))
			if err != nil {
				t.Fatalf("json.Marshal(argsField): %v", err)
			}
			records := []Record{
				rec("response_item", `{"timestamp":"2026-01-01T00:00:00Z","payload":{"type":"function_call","name":"apply_patch","call_id":"call_1","arguments":`+string(argsField)+`}}`),
			}
			events, err := Normalize(records, "sess-1")
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			call := events[0].Payload.(agentevent.ToolCallEventPayload).Call
			if call.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", call.Kind(), tt.wantKind)
			}
		})
	}
}

func TestNormalize_DuplicateTokenCountIsSuppressed(t *testing.T) {
	usage := `{"type":"token_count","info":{"last_token_usage":{"input_tokens":100,"cached_input_tokens":10,"output_tokens":20,"reasoning_output_tokens":5,"total_tokens":120}}}`
	records := []Record{
		rec("event_msg", `{"timestamp":"2026-01-01T00:00:00Z","payload":`+usage+`}`),
		rec("event_msg", `{"timestamp":"2026-01-01T00:00:01Z","payload":`+usage+`}`),
	}
	events, err := Normalize(records, "sess-1")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d token_usage events, want 1 (duplicate suppressed)", len(events))
	}
	tu := events[0].Payload.(agentevent.TokenUsagePayload).Usage
	if tu.Input.Cached != 10 || tu.Input.Uncached != 90 || tu.Output.Generated != 15 || tu.Output.Reasoning != 5 {
		t.Errorf("got %+v, want Cached=10 Uncached=90 Generated=15 Reasoning=5", tu)
	}
}

func TestNormalize_OrphanFunctionCallOutputIsSkipped(t *testing.T) {
	records := []Record{
		rec("response_item", `{"timestamp":"2026-01-01T00:00:00Z","payload":{"type":"function_call_output","call_id":"never-seen","output":"x"}}`),
	}
	events, err := Normalize(records, "sess-1")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestNormalize_SessionMetaAndTurnContextProduceNoEvents(t *testing.T) {
	records := []Record{
		rec("session_meta", `{"payload":{}}`),
		rec("turn_context", `{"payload":{"model":"gpt-test"}}`),
	}
	events, err := Normalize(records, "sess-1")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}
