package query

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
)

// ExportFormat selects Export's output encoding.
type ExportFormat int

const (
	ExportJSONL ExportFormat = iota
	ExportJSON
)

// exportedEvent is the wire shape of one exported event: the normalized
// fields plus the raw vendor record, so a downstream consumer can choose
// either representation without re-parsing the source file.
type exportedEvent struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	ParentID  string          `json:"parent_id,omitempty"`
	Timestamp string          `json:"timestamp"`
	Sidechain bool            `json:"sidechain,omitempty"`
	AgentID   string          `json:"agent_id,omitempty"`
	Kind      string          `json:"kind"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Export writes a session's events to w in the requested format. JSONL
// writes one record per line (streaming-friendly); JSON writes a single
// array (easier for tools that load the whole export at once).
func Export(w io.Writer, events []agentevent.Event, format ExportFormat) error {
	records := make([]exportedEvent, 0, len(events))
	for _, ev := range events {
		rec := exportedEvent{
			ID:        ev.ID.String(),
			SessionID: ev.SessionID.String(),
			Timestamp: ev.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			Sidechain: ev.Stream.Sidechain,
			AgentID:   ev.Stream.AgentID,
			Kind:      payloadKind(ev.Payload),
			Raw:       ev.Raw,
		}
		if ev.ParentID != uuid.Nil {
			rec.ParentID = ev.ParentID.String()
		}
		records = append(records, rec)
	}

	switch format {
	case ExportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	default:
		enc := json.NewEncoder(w)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("query.Export: %w", err)
			}
		}
		return nil
	}
}

func payloadKind(p agentevent.Payload) string {
	switch p.(type) {
	case agentevent.UserPayload:
		return "user"
	case agentevent.SlashCommandPayload:
		return "slash_command"
	case agentevent.MessagePayload:
		return "message"
	case agentevent.ReasoningPayload:
		return "reasoning"
	case agentevent.ToolCallEventPayload:
		return "tool_call"
	case agentevent.ToolResultPayload:
		return "tool_result"
	case agentevent.TokenUsagePayload:
		return "token_usage"
	case agentevent.NotificationPayload:
		return "notification"
	case agentevent.SystemEventPayload:
		return "system_event"
	case agentevent.SummaryPayload:
		return "summary"
	default:
		return "unknown"
	}
}
