package codex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/providers"
)

// Normalize converts decoded Codex records into the vendor-neutral event
// algebra. vendorSessionID is the session id Codex assigns the rollout
// file (extracted by the caller from SessionMeta or the file name).
func Normalize(records []Record, vendorSessionID string) ([]agentevent.Event, error) {
	b := providers.NewEventBuilder(agentevent.DeriveSessionID(vendorSessionID))
	events := make([]agentevent.Event, 0, len(records))

	var lastSeenTokenUsage [3]int
	haveLastSeenTokenUsage := false

	for rowIndex, rec := range records {
		baseID := fmt.Sprintf("%s:row_%d", vendorSessionID, rowIndex)

		switch rec.Kind {
		case "event_msg":
			normalizeEventMsg(b, rec.Raw, baseID, &events, &lastSeenTokenUsage, &haveLastSeenTokenUsage)
		case "response_item":
			normalizeResponseItem(b, rec.Raw, baseID, &events)
		case "turn_context", "session_meta":
			// no events: session_meta carries only metadata, turn_context's
			// model would annotate raw payloads in a richer port.
		default:
			// unknown record kind: skipped.
		}
	}

	return events, nil
}

func normalizeEventMsg(
	b *providers.EventBuilder,
	raw json.RawMessage,
	baseID string,
	events *[]agentevent.Event,
	lastSeenTokenUsage *[3]int,
	haveLastSeenTokenUsage *bool,
) {
	var msg eventMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	var kind eventMsgPayload
	if err := json.Unmarshal(msg.Payload, &kind); err != nil {
		return
	}

	// user_message / agent_message / agent_reasoning are skipped: they
	// duplicate the richer ResponseItem records for the same turn.
	if kind.Type != "token_count" {
		return
	}

	var tc tokenCountPayload
	if err := json.Unmarshal(msg.Payload, &tc); err != nil || tc.Info == nil {
		return
	}
	u := tc.Info.LastTokenUsage
	triple := [3]int{u.InputTokens, u.OutputTokens, u.TotalTokens}
	if *haveLastSeenTokenUsage && *lastSeenTokenUsage == triple {
		return // duplicate token_count event, same as the last one seen
	}
	*lastSeenTokenUsage, *haveLastSeenTokenUsage = triple, true

	ts := providers.ParseTimestamp(msg.Timestamp)
	usage := agentevent.TokenUsage{
		Input: agentevent.InputTokens{
			Cached:   u.CachedInputTokens,
			Uncached: u.InputTokens - u.CachedInputTokens,
		},
		Output: agentevent.OutputTokens{
			Generated: u.OutputTokens - u.ReasoningOutputTokens,
			Reasoning: u.ReasoningOutputTokens,
		},
	}
	b.BuildAndPush(events, baseID, "token_usage", ts, agentevent.Main,
		agentevent.TokenUsagePayload{Usage: usage}, raw)
}

func normalizeResponseItem(b *providers.EventBuilder, raw json.RawMessage, baseID string, events *[]agentevent.Event) {
	var item responseItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return
	}
	var kind responseItemPayload
	if err := json.Unmarshal(item.Payload, &kind); err != nil {
		return
	}
	ts := providers.ParseTimestamp(item.Timestamp)

	switch kind.Type {
	case "message":
		var m messagePayload
		if err := json.Unmarshal(item.Payload, &m); err != nil {
			return
		}
		text := extractMessageText(m.Content)
		if m.Role == "user" {
			b.BuildAndPush(events, baseID, "user", ts, agentevent.Main, agentevent.UserPayload{Text: text}, raw)
		} else {
			b.BuildAndPush(events, baseID, "message", ts, agentevent.Main, agentevent.MessagePayload{Text: text}, raw)
		}

	case "reasoning":
		var r reasoningPayload
		if err := json.Unmarshal(item.Payload, &r); err != nil {
			return
		}
		b.BuildAndPush(events, baseID, "reasoning", ts, agentevent.Main,
			agentevent.ReasoningPayload{Text: extractReasoningText(r)}, raw)

	case "function_call":
		var fc functionCallPayload
		if err := json.Unmarshal(item.Payload, &fc); err != nil {
			return
		}
		id := b.DeriveID(baseID, "tool_call")
		call := buildCodexToolCall(id, fc.Name, fc.CallID, []byte(parseJSONArgumentsRaw(fc.Arguments)))
		b.BuildAndPush(events, baseID, "tool_call", ts, agentevent.Main,
			agentevent.ToolCallEventPayload{Call: call}, raw)
		b.RegisterToolCall(fc.CallID, id)

	case "function_call_output":
		var out functionCallOutputPayload
		if err := json.Unmarshal(item.Payload, &out); err != nil {
			return
		}
		callID, ok := b.ToolCallID(out.CallID)
		if !ok {
			return
		}
		exitCode, hasExit := extractExitCode(out.Output)
		isError := hasExit && exitCode != 0
		b.BuildAndPush(events, baseID, "tool_result", ts, agentevent.Main,
			agentevent.ToolResultPayload{CallID: callID, Output: out.Output, IsError: isError}, raw)

	case "custom_tool_call":
		var tc customToolCallPayload
		if err := json.Unmarshal(item.Payload, &tc); err != nil {
			return
		}
		id := b.DeriveID(baseID, "tool_call")
		call := buildCodexToolCall(id, tc.Name, tc.CallID, []byte(parseJSONArgumentsRaw(tc.Input)))
		b.BuildAndPush(events, baseID, "tool_call", ts, agentevent.Main,
			agentevent.ToolCallEventPayload{Call: call}, raw)
		b.RegisterToolCall(tc.CallID, id)

	case "custom_tool_call_output":
		var out customToolCallOutputPayload
		if err := json.Unmarshal(item.Payload, &out); err != nil {
			return
		}
		callID, ok := b.ToolCallID(out.CallID)
		if !ok {
			return
		}
		exitCode, hasExit := extractExitCode(out.Output)
		isError := hasExit && exitCode != 0
		b.BuildAndPush(events, baseID, "tool_result", ts, agentevent.Main,
			agentevent.ToolResultPayload{CallID: callID, Output: out.Output, IsError: isError}, raw)

	case "ghost_snapshot":
		// skipped: file-system snapshot, not a conversational event.
	}
}

func extractMessageText(blocks []messageContent) string {
	var parts []string
	for _, c := range blocks {
		if c.Type == "input_text" || c.Type == "output_text" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func extractReasoningText(r reasoningPayload) string {
	if r.Content != nil && *r.Content != "" {
		return *r.Content
	}
	var parts []string
	for _, s := range r.Summary {
		if s.Type == "summary_text" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// parseJSONArgumentsRaw parses a vendor JSON-string-encoded argument
// blob. If it isn't valid JSON, it's wrapped as {"raw": "<text>"} so
// downstream classification never fails on malformed arguments.
func parseJSONArgumentsRaw(args string) string {
	var probe json.RawMessage
	if json.Unmarshal([]byte(args), &probe) == nil {
		return args
	}
	wrapped, _ := json.Marshal(struct {
		Raw string `json:"raw"`
	}{Raw: args})
	return string(wrapped)
}

func buildCodexToolCall(id uuid.UUID, name, providerCallID string, arguments json.RawMessage) agentevent.ToolCall {
	switch name {
	case "apply_patch":
		if raw, ok := applyPatchRaw(arguments); ok {
			if patch, ok := parseApplyPatch(raw); ok {
				switch patch.Operation {
				case patchAdd:
					return agentevent.NewFileWriteCall(id, name, providerCallID, patch.FilePath, patch.RawPatch)
				case patchUpdate:
					return agentevent.NewFileEditCall(id, name, providerCallID, patch.FilePath, patch.RawPatch)
				}
			}
		}
	case "shell":
		var args shellArgs
		if json.Unmarshal(arguments, &args) == nil && len(args.Command) > 0 {
			return agentevent.NewExecuteCallFull(id, name, providerCallID, args.Command, nil, args.TimeoutMS, shellExtra(args.Workdir))
		}
	case "shell_command":
		var args shellCommandArgs
		if json.Unmarshal(arguments, &args) == nil && args.Command != "" {
			return agentevent.NewExecuteCallFull(id, name, providerCallID, strings.Fields(args.Command), nil, nil, shellExtra(args.Workdir))
		}
	case "read_mcp_resource":
		var args readMcpResourceArgs
		if json.Unmarshal(arguments, &args) == nil {
			return agentevent.NewFileReadCall(id, name, providerCallID, args.URI)
		}
	default:
		if strings.HasPrefix(name, "mcp__") {
			return agentevent.NewMcpCall(id, name, providerCallID, strings.TrimPrefix(name, "mcp__"), string(arguments))
		}
	}
	return agentevent.NewGenericCall(id, name, providerCallID, string(arguments))
}
