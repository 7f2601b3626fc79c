package claude

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/providers"
)

// slashCommand is what extractSlashCommand found in a user text block.
type slashCommand struct {
	Name string
	Args string
}

// extractSlashCommand looks for a <command-name>/foo</command-name>
// pattern (optionally followed by <command-args>...</command-args>).
// Valid slash commands always start with '/' — this guards against
// matching documentation text that merely mentions the tag names.
func extractSlashCommand(text string) (slashCommand, bool) {
	nameStart := strings.Index(text, "<command-name>")
	nameEnd := strings.Index(text, "</command-name>")
	if nameStart < 0 || nameEnd < 0 || nameStart >= nameEnd {
		return slashCommand{}, false
	}

	name := strings.TrimSpace(text[nameStart+len("<command-name>") : nameEnd])
	if name == "" || !strings.HasPrefix(name, "/") {
		return slashCommand{}, false
	}

	var args string
	argsStart := strings.Index(text, "<command-args>")
	argsEnd := strings.Index(text, "</command-args>")
	if argsStart >= 0 && argsEnd >= 0 && argsStart < argsEnd {
		a := strings.TrimSpace(text[argsStart+len("<command-args>") : argsEnd])
		if a != "" {
			args = a
		}
	}

	return slashCommand{Name: name, Args: args}, true
}

func streamOf(isSidechain bool, agentID *string) agentevent.StreamID {
	if !isSidechain {
		return agentevent.Main
	}
	id := "unknown"
	if agentID != nil && *agentID != "" {
		id = *agentID
	}
	return agentevent.Sidechain(id)
}

// Normalize converts decoded Claude records into the vendor-neutral event
// algebra. Records must be in file order; the caller (io.go) is
// responsible for decoding raw JSONL lines into Records first.
func Normalize(records []Record) ([]agentevent.Event, error) {
	sessionID := findSessionID(records)
	b := providers.NewEventBuilder(agentevent.DeriveSessionID(sessionID))
	events := make([]agentevent.Event, 0, len(records))

	// metaIDs tracks uuids of meta user messages and their descendants
	// (by parentUuid chain) so both are skipped; a file-history-snapshot
	// marks the end of a meta chain and clears it.
	metaIDs := make(map[string]bool)

	for _, rec := range records {
		switch rec.Kind {
		case "user":
			if err := normalizeUser(b, rec.Raw, &events, metaIDs); err != nil {
				continue
			}
		case "assistant":
			if err := normalizeAssistant(b, rec.Raw, &events); err != nil {
				continue
			}
		case "system":
			normalizeSystem(b, rec.Raw, &events)
		case "progress":
			normalizeProgress(b, rec.Raw, &events)
		case "queue-operation":
			normalizeQueueOperation(b, rec.Raw, &events)
		case "summary":
			normalizeSummary(b, rec.Raw, &events)
		case "file-history-snapshot":
			metaIDs = make(map[string]bool)
		default:
			// anything else unrecognized: skipped.
		}
	}

	return events, nil
}

func findSessionID(records []Record) string {
	for _, rec := range records {
		switch rec.Kind {
		case "user", "assistant", "system", "progress", "queue-operation":
			var probe struct {
				SessionID string `json:"sessionId"`
			}
			if json.Unmarshal(rec.Raw, &probe) == nil && probe.SessionID != "" {
				return probe.SessionID
			}
		case "summary":
			var probe struct {
				SessionID *string `json:"sessionId"`
			}
			if json.Unmarshal(rec.Raw, &probe) == nil && probe.SessionID != nil {
				return *probe.SessionID
			}
		}
	}
	return "unknown"
}

func normalizeUser(b *providers.EventBuilder, raw json.RawMessage, events *[]agentevent.Event, metaIDs map[string]bool) error {
	var rec userRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return err
	}

	if rec.IsMeta {
		metaIDs[rec.UUID] = true
		return nil
	}
	if rec.ParentUUID != nil && metaIDs[*rec.ParentUUID] {
		metaIDs[rec.UUID] = true
		return nil
	}

	ts := providers.ParseTimestamp(rec.Timestamp)
	stream := streamOf(rec.IsSidechain, rec.AgentID)

	var blocks []userContentBlock
	if err := json.Unmarshal(rec.Message.Content, &blocks); err != nil {
		// content may be a bare string for simple user turns.
		var text string
		if json.Unmarshal(rec.Message.Content, &text) == nil && text != "" {
			blocks = []userContentBlock{{Type: "text", Text: text}}
		}
	}

	for idx, content := range blocks {
		baseID := fmt.Sprintf("%s-content-%d", rec.UUID, idx)
		switch content.Type {
		case "text":
			if cmd, ok := extractSlashCommand(content.Text); ok {
				b.BuildAndPush(events, baseID, "slash_command", ts, stream,
					agentevent.SlashCommandPayload{Name: cmd.Name, Args: cmd.Args}, raw)
			} else {
				b.BuildAndPush(events, baseID, "user", ts, stream,
					agentevent.UserPayload{Text: content.Text}, raw)
			}
		case "tool_result":
			callID, ok := b.ToolCallID(content.ToolUseID)
			if !ok {
				continue
			}
			var output string
			_ = json.Unmarshal(content.Content, &output)
			effectiveAgentID := content.AgentID
			if effectiveAgentID == nil && rec.ToolUseResult != nil {
				effectiveAgentID = rec.ToolUseResult.AgentID
			}
			_ = effectiveAgentID // retained for parity with the original's agent_id field; not surfaced on ToolResultPayload yet.
			b.BuildAndPush(events, baseID, "tool_result", ts, stream,
				agentevent.ToolResultPayload{CallID: callID, Output: output, IsError: content.IsError}, raw)
		case "image":
			// skipped: no metadata mapping yet.
		}
	}
	return nil
}

func normalizeAssistant(b *providers.EventBuilder, raw json.RawMessage, events *[]agentevent.Event) error {
	var rec assistantRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return err
	}
	ts := providers.ParseTimestamp(rec.Timestamp)
	stream := streamOf(rec.IsSidechain, rec.AgentID)

	var blocks []assistantContentBlock
	if err := json.Unmarshal(rec.Message.Content, &blocks); err != nil {
		return err
	}

	var lastGenerationID uuid.UUID
	haveGeneration := false

	for idx, content := range blocks {
		baseID := fmt.Sprintf("%s-content-%d", rec.UUID, idx)
		switch content.Type {
		case "thinking":
			b.BuildAndPush(events, baseID, "reasoning", ts, stream,
				agentevent.ReasoningPayload{Text: content.Thinking}, raw)
		case "tool_use":
			id := b.DeriveID(baseID, "tool_call")
			call := buildToolCall(id, content.Name, content.ID, content.Input)
			b.BuildAndPush(events, baseID, "tool_call", ts, stream,
				agentevent.ToolCallEventPayload{Call: call}, raw)
			b.RegisterToolCall(content.ID, id)
			lastGenerationID, haveGeneration = id, true
		case "text":
			id := b.BuildAndPush(events, baseID, "message", ts, stream,
				agentevent.MessagePayload{Text: content.Text}, raw)
			lastGenerationID, haveGeneration = id, true
		case "tool_result":
			callID, ok := b.ToolCallID(content.ToolUseID)
			if !ok {
				continue
			}
			b.BuildAndPush(events, baseID, "tool_result", ts, stream,
				agentevent.ToolResultPayload{CallID: callID, Output: content.Content, IsError: content.IsError}, raw)
		}
	}

	_ = lastGenerationID
	if haveGeneration && rec.Message.Usage != nil {
		usage := rec.Message.Usage
		cached := 0
		if usage.CacheReadInputTokens != nil {
			cached = *usage.CacheReadInputTokens
		}
		tu := agentevent.TokenUsage{
			Input:  agentevent.InputTokens{Cached: cached, Uncached: usage.InputTokens},
			Output: agentevent.OutputTokens{Generated: usage.OutputTokens},
		}
		b.BuildAndPush(events, rec.UUID, "token_usage", ts, stream,
			agentevent.TokenUsagePayload{Usage: tu}, raw)
	}
	return nil
}

func buildToolCall(id uuid.UUID, name, providerCallID string, input json.RawMessage) agentevent.ToolCall {
	kind := providers.ClassifyTool(name)
	args := string(input)
	switch kind {
	case agentevent.KindExecute:
		var params struct {
			Command string `json:"command"`
		}
		_ = json.Unmarshal(input, &params)
		return agentevent.NewExecuteCall(id, name, providerCallID, strings.Fields(params.Command), nil)
	case agentevent.KindFileRead:
		var params struct {
			FilePath string `json:"file_path"`
		}
		_ = json.Unmarshal(input, &params)
		return agentevent.NewFileReadCall(id, name, providerCallID, params.FilePath)
	case agentevent.KindFileEdit:
		var params struct {
			FilePath  string `json:"file_path"`
			OldString string `json:"old_string"`
			NewString string `json:"new_string"`
		}
		_ = json.Unmarshal(input, &params)
		return agentevent.NewFileEditCall(id, name, providerCallID, params.FilePath, params.NewString)
	case agentevent.KindFileWrite:
		var params struct {
			FilePath string `json:"file_path"`
			Content  string `json:"content"`
		}
		_ = json.Unmarshal(input, &params)
		return agentevent.NewFileWriteCall(id, name, providerCallID, params.FilePath, params.Content)
	case agentevent.KindSearch:
		var params struct {
			Pattern string `json:"pattern"`
		}
		_ = json.Unmarshal(input, &params)
		return agentevent.NewSearchCall(id, name, providerCallID, params.Pattern)
	case agentevent.KindMcp:
		server := strings.TrimPrefix(name, "mcp__")
		return agentevent.NewMcpCall(id, name, providerCallID, server, args)
	default:
		return agentevent.NewGenericCall(id, name, providerCallID, args)
	}
}

func normalizeSystem(b *providers.EventBuilder, raw json.RawMessage, events *[]agentevent.Event) {
	var rec systemRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return
	}
	if rec.Subtype != "local_command" || rec.Content == nil {
		return
	}
	ts := providers.ParseTimestamp(rec.Timestamp)
	stream := streamOf(rec.IsSidechain, nil)

	content := *rec.Content
	name, args := content, ""
	if spaceIdx := strings.IndexByte(content, ' '); spaceIdx >= 0 {
		name, args = content[:spaceIdx], content[spaceIdx+1:]
	}
	b.BuildAndPush(events, rec.UUID, "slash_command", ts, stream,
		agentevent.SlashCommandPayload{Name: name, Args: args}, raw)
}

func normalizeProgress(b *providers.EventBuilder, raw json.RawMessage, events *[]agentevent.Event) {
	var rec progressRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return
	}
	var data progressData
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		return
	}
	if data.Type != "hook_progress" {
		return
	}
	ts := providers.ParseTimestamp(rec.Timestamp)
	stream := streamOf(rec.IsSidechain, rec.AgentID)

	hookName := "unknown"
	if data.HookName != nil {
		hookName = *data.HookName
	}
	text := fmt.Sprintf("Hook: %s (%s)", hookName, data.HookEvent)
	b.BuildAndPush(events, rec.UUID, "notification", ts, stream,
		agentevent.NotificationPayload{Text: text}, raw)
}

func normalizeQueueOperation(b *providers.EventBuilder, raw json.RawMessage, events *[]agentevent.Event) {
	var rec queueOperationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return
	}
	ts := providers.ParseTimestamp(rec.Timestamp)
	baseID := rec.SessionID + "\x00" + rec.Timestamp + "\x00queue"
	content := ""
	if rec.Content != nil {
		content = *rec.Content
	}
	b.BuildAndPush(events, baseID, "queue_operation", ts, agentevent.Main,
		agentevent.SystemEventPayload{Kind: rec.Operation, Text: content}, raw)
}

func normalizeSummary(b *providers.EventBuilder, raw json.RawMessage, events *[]agentevent.Event) {
	var rec summaryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return
	}
	ts := providers.ParseTimestamp("")
	if rec.Timestamp != nil {
		ts = providers.ParseTimestamp(*rec.Timestamp)
	}
	baseID := "summary"
	if rec.LeafUUID != nil {
		baseID = *rec.LeafUUID
	}
	b.BuildAndPush(events, baseID, "summary", ts, agentevent.Main,
		agentevent.SummaryPayload{Text: rec.Summary}, raw)
}
