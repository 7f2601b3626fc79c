package providers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
)

// EventBuilder assembles Events for one session, deriving deterministic
// ids and tracking the vendor call-token -> ToolCall UUID map so a later
// ToolResult record can be linked back to the call that produced it. The
// map is session-scoped and discarded once normalization of that session
// finishes.
type EventBuilder struct {
	sessionID    uuid.UUID
	toolCallByID map[string]uuid.UUID
}

// NewEventBuilder starts a builder for the given session identity.
func NewEventBuilder(sessionID uuid.UUID) *EventBuilder {
	return &EventBuilder{sessionID: sessionID, toolCallByID: make(map[string]uuid.UUID)}
}

// SessionID returns the derived session identity this builder emits into.
func (b *EventBuilder) SessionID() uuid.UUID { return b.sessionID }

// RegisterToolCall records the vendor opaque call-token for a ToolCall
// event just built, so a subsequent ToolResult can resolve it.
func (b *EventBuilder) RegisterToolCall(providerCallID string, eventID uuid.UUID) {
	if providerCallID == "" {
		return
	}
	b.toolCallByID[providerCallID] = eventID
}

// ToolCallID resolves a vendor call-token previously registered by
// RegisterToolCall. The second return value is false for orphan results
// whose call was never seen; the vendor normalizers drop such results.
func (b *EventBuilder) ToolCallID(providerCallID string) (uuid.UUID, bool) {
	id, ok := b.toolCallByID[providerCallID]
	return id, ok
}

// DeriveID computes the event id that BuildAndPush would assign for the
// given baseID+suffix, without constructing or appending an event. Used
// when a ToolCall's own identity must match its owning event's id before
// the event is built.
func (b *EventBuilder) DeriveID(baseID, suffix string) uuid.UUID {
	return agentevent.DeriveEventID(b.sessionID, baseID, suffix)
}

// BuildAndPush derives an event id from baseID+suffix, constructs the
// Event, appends it to events, and returns its id so the caller can chain
// (e.g. register it as a tool call or attach a following TokenUsage to it).
func (b *EventBuilder) BuildAndPush(
	events *[]agentevent.Event,
	baseID, suffix string,
	ts time.Time,
	stream agentevent.StreamID,
	payload agentevent.Payload,
	raw json.RawMessage,
) uuid.UUID {
	id := agentevent.DeriveEventID(b.sessionID, baseID, suffix)
	*events = append(*events, agentevent.Event{
		ID:        id,
		SessionID: b.sessionID,
		Timestamp: ts,
		Stream:    stream,
		Payload:   payload,
		Raw:       raw,
	})
	return id
}

// ParseTimestamp parses an RFC3339 timestamp, falling back to the current
// time for malformed input rather than failing the whole record — a
// single bad timestamp should not drop an otherwise-valid event.
func ParseTimestamp(ts string) time.Time {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}
