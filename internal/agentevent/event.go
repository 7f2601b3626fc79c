// Package agentevent defines the vendor-neutral event algebra that every
// provider normalizer emits into: one flat Event stream per session,
// independent of whichever vendor schema it was parsed from.
package agentevent

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StreamID identifies which conversational stream an event belongs to.
// Turn/step assembly never interleaves events across streams.
type StreamID struct {
	Sidechain bool
	AgentID   string // set only when Sidechain is true
}

// Main is the primary conversation stream.
var Main = StreamID{}

// Sidechain returns the stream for a subagent identified by agentID.
func Sidechain(agentID string) StreamID {
	return StreamID{Sidechain: true, AgentID: agentID}
}

// Event is one normalized occurrence in a session, vendor-neutral.
type Event struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	ParentID  uuid.UUID // zero value means no parent
	Timestamp time.Time
	Stream    StreamID
	Payload   Payload
	Raw       json.RawMessage // lossless copy of the source record
}

// Payload is the sum type of everything a normalizer can emit. Each
// variant is a distinct Go type implementing this marker interface,
// mirroring the original Rust enum EventPayload without resorting to
// inheritance.
type Payload interface {
	payload()
}

type UserPayload struct{ Text string }

type SlashCommandPayload struct {
	Name string
	Args string
}

type MessagePayload struct{ Text string }

type ReasoningPayload struct{ Text string }

type ToolCallEventPayload struct{ Call ToolCall }

type ToolResultPayload struct {
	CallID  uuid.UUID
	Output  string
	IsError bool
}

type TokenUsagePayload struct{ Usage TokenUsage }

type NotificationPayload struct{ Text string }

type SystemEventPayload struct {
	Kind string
	Text string
}

type SummaryPayload struct{ Text string }

func (UserPayload) payload()         {}
func (SlashCommandPayload) payload()  {}
func (MessagePayload) payload()       {}
func (ReasoningPayload) payload()     {}
func (ToolCallEventPayload) payload() {}
func (ToolResultPayload) payload()    {}
func (TokenUsagePayload) payload()    {}
func (NotificationPayload) payload()  {}
func (SystemEventPayload) payload()   {}
func (SummaryPayload) payload()       {}

// DeriveSessionID hashes a vendor session-id string into a stable UUID,
// so re-normalizing the same vendor record always yields the same
// session identity. Mirrors the original implementation's
// Uuid::new_v5(&Uuid::NAMESPACE_OID, session_id.as_bytes()).
func DeriveSessionID(vendorSessionID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(vendorSessionID))
}

// DeriveEventID derives a deterministic event id from the owning session,
// a vendor-scoped base id (e.g. "<session>:row_<n>"), and a semantic
// suffix distinguishing multiple events emitted from one vendor record
// (e.g. "reasoning", "message", "usage", "tool_call:<index>"). Two
// normalization passes over the same file produce byte-identical ids.
func DeriveEventID(sessionID uuid.UUID, baseID, suffix string) uuid.UUID {
	name := baseID + "\x00" + suffix
	return uuid.NewSHA1(sessionID, []byte(name))
}
