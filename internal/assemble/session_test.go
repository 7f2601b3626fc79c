package assemble

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
)

func mkEvent(offset time.Duration, payload agentevent.Payload) agentevent.Event {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return agentevent.Event{
		ID:        uuid.New(),
		Timestamp: base.Add(offset),
		Stream:    agentevent.Main,
		Payload:   payload,
	}
}

func TestAssemble_EmptyEvents(t *testing.T) {
	s := Assemble(uuid.New(), "claude", "/tmp", nil, DefaultOptions())
	if len(s.Turns) != 0 {
		t.Errorf("Assemble(nil) produced %d turns, want 0", len(s.Turns))
	}
}

func TestAssemble_SplitsTurnsOnUserEvents(t *testing.T) {
	events := []agentevent.Event{
		mkEvent(0*time.Second, agentevent.UserPayload{Text: "do the thing"}),
		mkEvent(1*time.Second, agentevent.MessagePayload{Text: "ok, working on it"}),
		mkEvent(2*time.Second, agentevent.UserPayload{Text: "now do another thing"}),
		mkEvent(3*time.Second, agentevent.MessagePayload{Text: "done"}),
	}

	s := Assemble(uuid.New(), "claude", "/repo", events, DefaultOptions())

	if len(s.Turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(s.Turns))
	}
	if s.Turns[0].Index != 0 || s.Turns[1].Index != 1 {
		t.Errorf("turn indices = [%d, %d], want [0, 1]", s.Turns[0].Index, s.Turns[1].Index)
	}
}

func TestAssemble_LeadingEventsBeforeFirstUserFormImplicitTurnZero(t *testing.T) {
	events := []agentevent.Event{
		mkEvent(0*time.Second, agentevent.SystemEventPayload{Kind: "init", Text: "session started"}),
		mkEvent(1*time.Second, agentevent.UserPayload{Text: "hello"}),
	}

	s := Assemble(uuid.New(), "codex", "/repo", events, DefaultOptions())

	if len(s.Turns) != 2 {
		t.Fatalf("got %d turns, want 2 (implicit + explicit)", len(s.Turns))
	}
	if s.Turns[0].Index != 0 {
		t.Errorf("leading turn index = %d, want 0", s.Turns[0].Index)
	}
	if len(s.Turns[0].Steps) != 1 || s.Turns[0].Steps[0].Kind != StepSystemEvent {
		t.Errorf("leading turn steps = %+v, want one StepSystemEvent step", s.Turns[0].Steps)
	}
}

func TestAssemble_GroupsContiguousSameKindEventsIntoOneStep(t *testing.T) {
	events := []agentevent.Event{
		mkEvent(0*time.Second, agentevent.UserPayload{Text: "go"}),
		mkEvent(1*time.Second, agentevent.ReasoningPayload{Text: "thinking a"}),
		mkEvent(2*time.Second, agentevent.ReasoningPayload{Text: "thinking b"}),
		mkEvent(3*time.Second, agentevent.MessagePayload{Text: "answer"}),
	}

	s := Assemble(uuid.New(), "claude", "/repo", events, DefaultOptions())
	if len(s.Turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(s.Turns))
	}
	steps := s.Turns[0].Steps
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3 (user, thinking x2 merged, assistant)", len(steps))
	}
	if steps[0].Kind != StepAssistant {
		t.Errorf("steps[0].Kind = %v, want StepAssistant (user event)", steps[0].Kind)
	}
	if steps[1].Kind != StepThinking || len(steps[1].Events) != 2 {
		t.Errorf("steps[1] = %+v, want StepThinking with 2 merged events", steps[1])
	}
	if steps[2].Kind != StepAssistant {
		t.Errorf("steps[2].Kind = %v, want StepAssistant", steps[2].Kind)
	}
}

func TestAssemble_SidechainEventsNeverJoinMainTurns(t *testing.T) {
	events := []agentevent.Event{
		mkEvent(0*time.Second, agentevent.UserPayload{Text: "go"}),
		{ID: uuid.New(), Timestamp: time.Now(), Stream: agentevent.Sidechain("sub-1"), Payload: agentevent.MessagePayload{Text: "subagent reply"}},
	}

	s := Assemble(uuid.New(), "claude", "/repo", events, DefaultOptions())
	if len(s.Turns) != 1 {
		t.Fatalf("got %d main turns, want 1", len(s.Turns))
	}
	for _, step := range s.Turns[0].Steps {
		for _, ev := range step.Events {
			if ev.Stream.Sidechain {
				t.Errorf("sidechain event leaked into main turn steps")
			}
		}
	}
	if _, ok := s.Sidechain["sub-1"]; !ok {
		t.Errorf("Sidechain[\"sub-1\"] missing, got keys %v", keysOf(s.Sidechain))
	}
}

func keysOf(m map[string][]Turn) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestAssemble_HeavyPctReflectsContextWindow(t *testing.T) {
	opts := Options{ContextWindow: 1000, ContextWarningPct: 0.75, ContextAlertPct: 0.9}
	events := []agentevent.Event{
		mkEvent(0*time.Second, agentevent.UserPayload{Text: "go"}),
		mkEvent(1*time.Second, agentevent.TokenUsagePayload{Usage: agentevent.TokenUsage{
			Input:  agentevent.InputTokens{Uncached: 400},
			Output: agentevent.OutputTokens{Generated: 100},
		}}),
	}

	s := Assemble(uuid.New(), "claude", "/repo", events, opts)
	if len(s.Turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(s.Turns))
	}
	want := 500.0 / 1000.0
	if got := s.Turns[0].HeavyPct; got != want {
		t.Errorf("HeavyPct = %v, want %v", got, want)
	}
}

func TestAssemble_DuplicateTokenUsageIsNotDoubleCounted(t *testing.T) {
	usage := agentevent.TokenUsagePayload{Usage: agentevent.TokenUsage{
		Input: agentevent.InputTokens{Uncached: 100},
	}}
	events := []agentevent.Event{
		mkEvent(0*time.Second, agentevent.UserPayload{Text: "go"}),
		mkEvent(1*time.Second, usage),
		mkEvent(2*time.Second, usage),
	}

	s := Assemble(uuid.New(), "claude", "/repo", events, DefaultOptions())
	if got := s.Turns[0].Tokens.Input.Uncached; got != 100 {
		t.Errorf("Tokens.Input.Uncached = %d, want 100 (duplicate usage report suppressed)", got)
	}
}

func TestAssemble_ToolExecutionPairsCallToResultWithDuration(t *testing.T) {
	callID := uuid.New()
	call := agentevent.NewGenericCall(callID, "Read", "toolu_1", `{"path":"x"}`)
	events := []agentevent.Event{
		mkEvent(0*time.Second, agentevent.UserPayload{Text: "go"}),
		mkEvent(1*time.Second, agentevent.ToolCallEventPayload{Call: call}),
		mkEvent(4*time.Second, agentevent.ToolResultPayload{CallID: callID, Output: "ok"}),
	}

	s := Assemble(uuid.New(), "claude", "/repo", events, DefaultOptions())
	if len(s.Turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(s.Turns))
	}
	var execStep *Step
	for i, step := range s.Turns[0].Steps {
		if step.Kind == StepToolExecution {
			execStep = &s.Turns[0].Steps[i]
		}
	}
	if execStep == nil {
		t.Fatalf("no StepToolExecution step found")
	}
	if len(execStep.Executions) != 1 {
		t.Fatalf("got %d executions, want 1", len(execStep.Executions))
	}
	exec := execStep.Executions[0]
	if exec.Result == nil {
		t.Fatalf("Result = nil, want matched result")
	}
	if exec.Result.Output != "ok" {
		t.Errorf("Result.Output = %q, want %q", exec.Result.Output, "ok")
	}
	if exec.DurationMS == nil || *exec.DurationMS != 3000 {
		t.Errorf("DurationMS = %v, want 3000", exec.DurationMS)
	}
}

func TestAssemble_ToolExecutionUnmatchedCallKeepsNilResult(t *testing.T) {
	call := agentevent.NewGenericCall(uuid.New(), "Read", "toolu_1", `{"path":"x"}`)
	events := []agentevent.Event{
		mkEvent(0*time.Second, agentevent.UserPayload{Text: "go"}),
		mkEvent(1*time.Second, agentevent.ToolCallEventPayload{Call: call}),
	}

	s := Assemble(uuid.New(), "claude", "/repo", events, DefaultOptions())
	var execStep *Step
	for i, step := range s.Turns[0].Steps {
		if step.Kind == StepToolExecution {
			execStep = &s.Turns[0].Steps[i]
		}
	}
	if execStep == nil || len(execStep.Executions) != 1 {
		t.Fatalf("executions = %+v, want exactly 1", execStep)
	}
	if execStep.Executions[0].Result != nil {
		t.Errorf("Result = %+v, want nil (no matching result)", execStep.Executions[0].Result)
	}
}

func TestAssemble_OrphanToolResultRelocatesToTrailingSystemEventStep(t *testing.T) {
	events := []agentevent.Event{
		mkEvent(0*time.Second, agentevent.UserPayload{Text: "go"}),
		mkEvent(1*time.Second, agentevent.ToolResultPayload{CallID: uuid.New(), Output: "orphaned"}),
	}

	s := Assemble(uuid.New(), "claude", "/repo", events, DefaultOptions())
	steps := s.Turns[0].Steps
	last := steps[len(steps)-1]
	if last.Kind != StepSystemEvent {
		t.Fatalf("last step kind = %v, want StepSystemEvent", last.Kind)
	}
	if len(last.Events) != 1 {
		t.Fatalf("got %d orphan events, want 1", len(last.Events))
	}
	for _, step := range steps {
		if step.Kind == StepToolExecution {
			t.Errorf("unexpected StepToolExecution step for an orphan-only result: %+v", step)
		}
	}
}

func TestAssemble_SessionStartAndEndTimestamps(t *testing.T) {
	events := []agentevent.Event{
		mkEvent(0*time.Second, agentevent.UserPayload{Text: "first"}),
		mkEvent(10*time.Second, agentevent.MessagePayload{Text: "last"}),
	}
	s := Assemble(uuid.New(), "claude", "/repo", events, DefaultOptions())
	if !s.StartedAt.Equal(events[0].Timestamp) {
		t.Errorf("StartedAt = %v, want %v", s.StartedAt, events[0].Timestamp)
	}
	if !s.EndedAt.Equal(events[1].Timestamp) {
		t.Errorf("EndedAt = %v, want %v", s.EndedAt, events[1].Timestamp)
	}
}
