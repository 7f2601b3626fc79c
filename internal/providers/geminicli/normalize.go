package geminicli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/agtraceerr"
	"github.com/nextlevelbuilder/agtrace/internal/providers"
)

// ParseFile reads a Gemini-CLI-style single-JSON-document session log and
// normalizes it into the vendor-neutral event algebra.
func ParseFile(path string) ([]agentevent.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, agtraceerr.New(agtraceerr.FileUnreadable, "geminicli.ParseFile", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, agtraceerr.New(agtraceerr.SchemaMismatch, "geminicli.ParseFile", err)
	}
	return Normalize(doc)
}

// Normalize converts a decoded Gemini-CLI session document into the
// vendor-neutral event algebra.
func Normalize(doc document) ([]agentevent.Event, error) {
	b := providers.NewEventBuilder(agentevent.DeriveSessionID(doc.SessionID))
	events := make([]agentevent.Event, 0, len(doc.Messages)*2)

	for idx, msg := range doc.Messages {
		baseID := fmt.Sprintf("%s:msg_%d", doc.SessionID, idx)
		ts := providers.ParseTimestamp(msg.Timestamp)
		raw, _ := json.Marshal(msg)

		switch msg.Role {
		case "user":
			b.BuildAndPush(&events, baseID, "user", ts, agentevent.Main, agentevent.UserPayload{Text: msg.Text}, raw)

		case "gemini":
			for tIdx, th := range msg.Thoughts {
				b.BuildAndPush(&events, fmt.Sprintf("%s-thought-%d", baseID, tIdx), "reasoning", ts, agentevent.Main,
					agentevent.ReasoningPayload{Text: th.Text}, raw)
			}
			if msg.Text != "" {
				b.BuildAndPush(&events, baseID, "message", ts, agentevent.Main, agentevent.MessagePayload{Text: msg.Text}, raw)
			}
			for cIdx, tc := range msg.ToolCalls {
				callBaseID := fmt.Sprintf("%s-call-%d", baseID, cIdx)
				id := b.DeriveID(callBaseID, "tool_call")
				call := buildGeminiToolCall(id, tc)
				b.BuildAndPush(&events, callBaseID, "tool_call", ts, agentevent.Main,
					agentevent.ToolCallEventPayload{Call: call}, raw)
				b.RegisterToolCall(tc.CallID, id)

				if tc.Output != "" || tc.Status != "" {
					callID, ok := b.ToolCallID(tc.CallID)
					if ok {
						b.BuildAndPush(&events, callBaseID, "tool_result", ts, agentevent.Main,
							agentevent.ToolResultPayload{CallID: callID, Output: tc.Output, IsError: tc.Status == "error"}, raw)
					}
				}
			}

		case "info":
			b.BuildAndPush(&events, baseID, "notification", ts, agentevent.Main, agentevent.NotificationPayload{Text: msg.Text}, raw)
		}
	}

	return events, nil
}

func buildGeminiToolCall(id uuid.UUID, tc toolCall) agentevent.ToolCall {
	kind := providers.ClassifyTool(tc.Name)
	args := string(tc.Arguments)

	switch kind {
	case agentevent.KindFileRead:
		var p struct {
			Path string `json:"path"`
		}
		_ = json.Unmarshal(tc.Arguments, &p)
		return agentevent.NewFileReadCall(id, tc.Name, tc.CallID, p.Path)
	case agentevent.KindFileEdit:
		var p struct {
			Path    string `json:"path"`
			NewText string `json:"new_text"`
		}
		_ = json.Unmarshal(tc.Arguments, &p)
		return agentevent.NewFileEditCall(id, tc.Name, tc.CallID, p.Path, p.NewText)
	case agentevent.KindFileWrite:
		var p struct {
			Path    string `json:"path"`
			Content string `json:"content"`
		}
		_ = json.Unmarshal(tc.Arguments, &p)
		return agentevent.NewFileWriteCall(id, tc.Name, tc.CallID, p.Path, p.Content)
	case agentevent.KindExecute:
		var p struct {
			Command string `json:"command"`
		}
		_ = json.Unmarshal(tc.Arguments, &p)
		return agentevent.NewExecuteCall(id, tc.Name, tc.CallID, strings.Fields(p.Command), nil)
	case agentevent.KindSearch:
		var p struct {
			Pattern string `json:"pattern"`
		}
		_ = json.Unmarshal(tc.Arguments, &p)
		return agentevent.NewSearchCall(id, tc.Name, tc.CallID, p.Pattern)
	case agentevent.KindMcp:
		return agentevent.NewMcpCall(id, tc.Name, tc.CallID, strings.TrimPrefix(tc.Name, "mcp__"), args)
	default:
		return agentevent.NewGenericCall(id, tc.Name, tc.CallID, args)
	}
}
