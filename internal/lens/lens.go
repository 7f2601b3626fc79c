// Package lens runs diagnostic detectors over an assembled session and
// reduces their findings to a single health score, the way a linter
// reduces many findings to a pass/fail.
package lens

import (
	"strings"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/assemble"
)

// Severity classifies an Insight's impact on the health score.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// Insight is one finding produced by a Lens.
type Insight struct {
	Lens     string
	Severity Severity
	Summary  string
	TurnIdx  int
}

// Lens inspects an assembled session and returns zero or more Insights.
type Lens interface {
	Name() string
	Analyze(s assemble.Session) []Insight
}

// Report is the aggregate output of running a set of lenses.
type Report struct {
	Insights []Insight
	Health   int
}

// Run executes every lens over s and reduces the findings to a Report.
// Health is max(0, 100 - 10*len(insights)) — a single flat linear
// penalty per finding, not weighted by severity, matching the
// distillation's own definition (see SPEC_FULL.md §4.7).
func Run(s assemble.Session, lenses ...Lens) Report {
	var all []Insight
	for _, l := range lenses {
		all = append(all, l.Analyze(s)...)
	}
	health := 100 - 10*len(all)
	if health < 0 {
		health = 0
	}
	return Report{Insights: all, Health: health}
}

// Default returns the standard lens set: Failures, Loops, Bottlenecks,
// ApologyStorms, ZombieChains, LintPingPong.
func Default() []Lens {
	return []Lens{
		Failures{},
		Loops{},
		Bottlenecks{},
		ApologyStorms{},
		ZombieChains{},
		LintPingPong{},
	}
}

// toolResultsOf returns every ToolResultPayload across every step of a
// turn, a shared helper the lenses below all need.
func toolResultsOf(t assemble.Turn) []agentevent.ToolResultPayload {
	var out []agentevent.ToolResultPayload
	for _, step := range t.Steps {
		for _, ev := range step.Events {
			if tr, ok := ev.Payload.(agentevent.ToolResultPayload); ok {
				out = append(out, tr)
			}
		}
	}
	return out
}

func toolCallsOf(t assemble.Turn) []agentevent.ToolCallEventPayload {
	var out []agentevent.ToolCallEventPayload
	for _, step := range t.Steps {
		for _, ev := range step.Events {
			if tc, ok := ev.Payload.(agentevent.ToolCallEventPayload); ok {
				out = append(out, tc)
			}
		}
	}
	return out
}

func messagesOf(t assemble.Turn) []string {
	var out []string
	for _, step := range t.Steps {
		for _, ev := range step.Events {
			if m, ok := ev.Payload.(agentevent.MessagePayload); ok {
				out = append(out, m.Text)
			}
		}
	}
	return out
}

// turnEvents flattens every step's events into the turn's full event
// order, for lenses that need raw adjacency rather than per-kind views.
func turnEvents(t assemble.Turn) []agentevent.Event {
	var out []agentevent.Event
	for _, step := range t.Steps {
		out = append(out, step.Events...)
	}
	return out
}

// toolExecutionsOf returns every paired ToolExecution across a turn's
// StepToolExecution steps, in the order they occurred.
func toolExecutionsOf(t assemble.Turn) []assemble.ToolExecution {
	var out []assemble.ToolExecution
	for _, step := range t.Steps {
		if step.Kind == assemble.StepToolExecution {
			out = append(out, step.Executions...)
		}
	}
	return out
}

// toolTarget identifies what a call acted on, combined with its kind so
// two calls of different kinds never collide on the same target string.
func toolTarget(c agentevent.ToolCall) string {
	switch v := c.(type) {
	case agentevent.FileReadCall:
		return c.Kind().String() + ":" + v.Path
	case agentevent.FileEditCall:
		return c.Kind().String() + ":" + v.Path
	case agentevent.FileWriteCall:
		return c.Kind().String() + ":" + v.Path
	case agentevent.ExecuteCall:
		return c.Kind().String() + ":" + strings.Join(v.Command, " ")
	case agentevent.SearchCall:
		return c.Kind().String() + ":" + v.Pattern
	case agentevent.McpCall:
		return c.Kind().String() + ":" + v.Server
	default:
		return c.Kind().String() + ":" + c.Name()
	}
}
