// Package assemble turns a flat, time-ordered Event stream into the
// turn/step structure a reader or lens actually consumes. Assembled
// sessions are always transient — never persisted, always rebuilt from
// the raw log files the pointer index points at.
package assemble

import (
	"time"

	"github.com/google/uuid"
	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
)

// Session is the assembled view of one provider log: its header plus the
// ordered turns taken on the main stream. Sidechain streams are kept
// separately and are never interleaved into Turns.
type Session struct {
	ID        uuid.UUID
	Provider  string
	Cwd       string
	StartedAt time.Time
	EndedAt   time.Time
	Turns     []Turn
	Sidechain map[string][]Turn // keyed by agent id
}

// Turn begins at a User event and contains every step up to (but not
// including) the next User event on the same stream.
type Turn struct {
	Index    int
	Steps    []Step
	Tokens   agentevent.TokenUsage
	HeavyPct float64 // fraction of ContextWindow this turn's cumulative usage reached
}

// StepKind groups a contiguous run of same-kind events within a turn.
type StepKind int

const (
	StepThinking StepKind = iota
	StepToolExecution
	StepAssistant
	StepSystemEvent
)

type Step struct {
	Kind       StepKind
	Events     []agentevent.Event
	Executions []ToolExecution // populated for StepToolExecution steps
}

// ToolExecution pairs a tool call with its matched result, when one
// exists in the same turn. A call with no matching result (tool still
// running, or the session ended mid-call) keeps Result nil. DurationMS
// is the wall-clock gap between the call and result events; it is nil
// until a result arrives.
type ToolExecution struct {
	Call        agentevent.ToolCall
	CallEvent   agentevent.Event
	Result      *agentevent.ToolResultPayload
	ResultEvent *agentevent.Event
	DurationMS  *int64
}

// Options configures assembly thresholds that spec.md leaves open — see
// SPEC_FULL.md §9.
type Options struct {
	ContextWindow     int
	ContextWarningPct float64
	ContextAlertPct   float64
}

// DefaultOptions mirrors internal/config's default assembly settings, for
// callers that assemble without wiring a loaded Config.
func DefaultOptions() Options {
	return Options{ContextWindow: 200000, ContextWarningPct: 0.75, ContextAlertPct: 0.90}
}

// Assemble groups a flat, already-sorted event stream into a Session.
// Events must be in ascending timestamp order; the caller (scanner or
// live reader) owns sort order since that depends on vendor-specific
// tailing discipline.
func Assemble(sessionID uuid.UUID, provider, cwd string, events []agentevent.Event, opts Options) Session {
	s := Session{ID: sessionID, Provider: provider, Cwd: cwd, Sidechain: make(map[string][]Turn)}
	if len(events) == 0 {
		return s
	}
	s.StartedAt = events[0].Timestamp
	s.EndedAt = events[len(events)-1].Timestamp

	var mainline []agentevent.Event
	bySidechain := make(map[string][]agentevent.Event)

	for _, ev := range events {
		if ev.Stream.Sidechain {
			bySidechain[ev.Stream.AgentID] = append(bySidechain[ev.Stream.AgentID], ev)
			continue
		}
		mainline = append(mainline, ev)
	}

	s.Turns = assembleTurns(mainline, opts)
	for agentID, evs := range bySidechain {
		s.Sidechain[agentID] = assembleTurns(evs, opts)
	}
	return s
}

func assembleTurns(events []agentevent.Event, opts Options) []Turn {
	var turns []Turn
	var current *Turn
	var cumulative agentevent.TokenUsage
	var lastUsage agentevent.TokenUsage
	haveLastUsage := false

	flushStep := func(kind StepKind, buf []agentevent.Event) []agentevent.Event {
		if current != nil && len(buf) > 0 {
			current.Steps = append(current.Steps, Step{Kind: kind, Events: append([]agentevent.Event(nil), buf...)})
		}
		return buf[:0]
	}

	var stepBuf []agentevent.Event
	var stepKind StepKind
	haveStep := false

	for _, ev := range events {
		if _, isUser := ev.Payload.(agentevent.UserPayload); isUser {
			if haveStep {
				stepBuf = flushStep(stepKind, stepBuf)
				haveStep = false
			}
			if current != nil {
				finalizeTurn(current, cumulative, opts)
				turns = append(turns, *current)
			}
			current = &Turn{Index: len(turns)}
		}
		if current == nil {
			// no User event has opened a turn yet: start an implicit turn 0
			// so leading system/tool events are never dropped.
			current = &Turn{Index: 0}
		}

		kind := classifyStep(ev.Payload)
		if haveStep && kind != stepKind {
			stepBuf = flushStep(stepKind, stepBuf)
			haveStep = false
		}
		stepKind = kind
		haveStep = true
		stepBuf = append(stepBuf, ev)

		if tu, ok := ev.Payload.(agentevent.TokenUsagePayload); ok {
			if !haveLastUsage || !tu.Usage.Equal(lastUsage) {
				cumulative.Input.Cached += tu.Usage.Input.Cached
				cumulative.Input.Uncached += tu.Usage.Input.Uncached
				cumulative.Output.Generated += tu.Usage.Output.Generated
				cumulative.Output.Reasoning += tu.Usage.Output.Reasoning
				cumulative.Output.Tool += tu.Usage.Output.Tool
				lastUsage, haveLastUsage = tu.Usage, true
				current.Tokens.Input.Cached += tu.Usage.Input.Cached
				current.Tokens.Input.Uncached += tu.Usage.Input.Uncached
				current.Tokens.Output.Generated += tu.Usage.Output.Generated
				current.Tokens.Output.Reasoning += tu.Usage.Output.Reasoning
				current.Tokens.Output.Tool += tu.Usage.Output.Tool
			}
		}
	}

	if haveStep {
		stepBuf = flushStep(stepKind, stepBuf)
	}
	if current != nil {
		current.HeavyPct = heavyPct(cumulative, opts)
		pairToolExecutions(current)
		turns = append(turns, *current)
	}
	return turns
}

func finalizeTurn(t *Turn, cumulative agentevent.TokenUsage, opts Options) {
	t.HeavyPct = heavyPct(cumulative, opts)
	pairToolExecutions(t)
}

// pairToolExecutions links each ToolCallEventPayload in t's
// StepToolExecution steps to its matching ToolResultPayload (by call
// id), computing DurationMS from the two events' timestamps. Results
// that never match a call in this turn are orphans: they're removed
// from their step's Events and relocated into a trailing
// StepSystemEvent step, so every ToolExecution step holds only paired
// or unmatched calls.
//
// Pairing runs in two passes over the turn's steps so that pointers
// taken into a step's Executions slice in the second pass are never
// invalidated by a later append in the first.
func pairToolExecutions(t *Turn) {
	type loc struct{ step, idx int }
	calls := make(map[uuid.UUID]loc)
	stepExecs := make([][]ToolExecution, len(t.Steps))

	type resultInfo struct {
		payload agentevent.ToolResultPayload
		event   agentevent.Event
	}
	results := make(map[uuid.UUID]resultInfo)
	var orphanEvents []agentevent.Event
	orphanSteps := make(map[int]bool)

	for si, step := range t.Steps {
		if step.Kind != StepToolExecution {
			continue
		}
		for _, ev := range step.Events {
			switch p := ev.Payload.(type) {
			case agentevent.ToolCallEventPayload:
				stepExecs[si] = append(stepExecs[si], ToolExecution{Call: p.Call, CallEvent: ev})
				calls[p.Call.ID()] = loc{step: si, idx: len(stepExecs[si]) - 1}
			case agentevent.ToolResultPayload:
				if _, ok := calls[p.CallID]; ok {
					results[p.CallID] = resultInfo{payload: p, event: ev}
				} else {
					orphanEvents = append(orphanEvents, ev)
					orphanSteps[si] = true
				}
			}
		}
	}

	for si := range t.Steps {
		if stepExecs[si] == nil {
			continue
		}
		for i := range stepExecs[si] {
			exec := &stepExecs[si][i]
			res, ok := results[exec.Call.ID()]
			if !ok {
				continue
			}
			payload, resultEvent := res.payload, res.event
			exec.Result = &payload
			exec.ResultEvent = &resultEvent
			if d := resultEvent.Timestamp.Sub(exec.CallEvent.Timestamp).Milliseconds(); d >= 0 {
				exec.DurationMS = &d
			}
		}
		t.Steps[si].Executions = stepExecs[si]
	}

	if len(orphanEvents) == 0 {
		return
	}
	filtered := t.Steps[:0]
	for si, step := range t.Steps {
		if orphanSteps[si] {
			kept := step.Events[:0]
			for _, ev := range step.Events {
				if rp, ok := ev.Payload.(agentevent.ToolResultPayload); ok {
					if _, matched := calls[rp.CallID]; !matched {
						continue // orphan: dropped from here, relocated below
					}
				}
				kept = append(kept, ev)
			}
			step.Events = kept
			if len(kept) == 0 && len(step.Executions) == 0 {
				continue // now-empty step: drop rather than keep a husk
			}
		}
		filtered = append(filtered, step)
	}
	t.Steps = append(filtered, Step{Kind: StepSystemEvent, Events: orphanEvents})
}

func heavyPct(u agentevent.TokenUsage, opts Options) float64 {
	window := opts.ContextWindow
	if window <= 0 {
		window = DefaultOptions().ContextWindow
	}
	return float64(u.Total()) / float64(window)
}

func classifyStep(p agentevent.Payload) StepKind {
	switch p.(type) {
	case agentevent.ReasoningPayload:
		return StepThinking
	case agentevent.ToolCallEventPayload, agentevent.ToolResultPayload:
		return StepToolExecution
	case agentevent.MessagePayload, agentevent.UserPayload, agentevent.SlashCommandPayload:
		return StepAssistant
	default:
		return StepSystemEvent
	}
}
