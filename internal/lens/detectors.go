package lens

import (
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/assemble"
)

// Failures flags any turn containing a failed tool result — a failure
// the agent may or may not have recovered from, but always worth
// surfacing at the top severity.
type Failures struct{}

func (Failures) Name() string { return "failures" }

func (Failures) Analyze(s assemble.Session) []Insight {
	var out []Insight
	for _, t := range s.Turns {
		failed := 0
		for _, r := range toolResultsOf(t) {
			if r.IsError {
				failed++
			}
		}
		if failed > 0 {
			out = append(out, Insight{
				Lens: "failures", Severity: SeverityCritical, TurnIdx: t.Index,
				Summary: fmt.Sprintf("turn %d: %d tool call(s) failed", t.Index, failed),
			})
		}
	}
	return out
}

// Loops flags a run of three or more consecutive tool calls on the same
// (kind, target) whose results all came back as errors — the agent
// retrying the same failing thing instead of changing approach.
type Loops struct{}

func (Loops) Name() string { return "loops" }

func (Loops) Analyze(s assemble.Session) []Insight {
	var out []Insight
	for _, t := range s.Turns {
		var key string
		count := 0
		for _, e := range toolExecutionsOf(t) {
			target := toolTarget(e.Call)
			isErr := e.Result != nil && e.Result.IsError
			if isErr && target == key {
				count++
				continue
			}
			if count >= 3 {
				out = append(out, Insight{
					Lens: "loops", Severity: SeverityWarning, TurnIdx: t.Index,
					Summary: fmt.Sprintf("turn %d: %d consecutive failing calls to %s", t.Index, count, key),
				})
			}
			if isErr {
				key, count = target, 1
			} else {
				key, count = "", 0
			}
		}
		if count >= 3 {
			out = append(out, Insight{
				Lens: "loops", Severity: SeverityWarning, TurnIdx: t.Index,
				Summary: fmt.Sprintf("turn %d: %d consecutive failing calls to %s", t.Index, count, key),
			})
		}
	}
	return out
}

// Bottlenecks flags any single ToolExecution whose call-to-result gap
// exceeded ten seconds.
type Bottlenecks struct{}

func (Bottlenecks) Name() string { return "bottlenecks" }

const bottleneckThresholdMS = 10_000

func (Bottlenecks) Analyze(s assemble.Session) []Insight {
	var out []Insight
	for _, t := range s.Turns {
		for _, e := range toolExecutionsOf(t) {
			if e.DurationMS != nil && *e.DurationMS > bottleneckThresholdMS {
				out = append(out, Insight{
					Lens: "bottlenecks", Severity: SeverityWarning, TurnIdx: t.Index,
					Summary: fmt.Sprintf("turn %d: %s took %dms", t.Index, e.Call.Name(), *e.DurationMS),
				})
			}
		}
	}
	return out
}

// ApologyStorms flags a session with more than three assistant messages
// containing an apologetic phrase — a sign of a confused or looping
// agent rather than productive recovery.
type ApologyStorms struct{}

func (ApologyStorms) Name() string { return "apology_storms" }

var apologyPhrases = []string{"i apologize", "my mistake", "sorry", "i was wrong"}

func (ApologyStorms) Analyze(s assemble.Session) []Insight {
	count := 0
	lastTurn := 0
	for _, t := range s.Turns {
		for _, msg := range messagesOf(t) {
			lower := strings.ToLower(msg)
			for _, p := range apologyPhrases {
				if strings.Contains(lower, p) {
					count++
					lastTurn = t.Index
					break
				}
			}
		}
	}
	if count > 3 {
		return []Insight{{
			Lens: "apology_storms", Severity: SeverityWarning, TurnIdx: lastTurn,
			Summary: fmt.Sprintf("session: %d apologetic messages", count),
		}}
	}
	return nil
}

// ZombieChains flags a turn with more than twenty tool calls and no
// intervening user message — turn boundaries already fall on user
// messages, so any one turn's call count is exactly the length of its
// longest such run.
type ZombieChains struct{}

func (ZombieChains) Name() string { return "zombie_chains" }

const zombieChainThreshold = 20

func (ZombieChains) Analyze(s assemble.Session) []Insight {
	var out []Insight
	for _, t := range s.Turns {
		n := len(toolCallsOf(t))
		if n > zombieChainThreshold {
			out = append(out, Insight{
				Lens: "zombie_chains", Severity: SeverityWarning, TurnIdx: t.Index,
				Summary: fmt.Sprintf("turn %d: %d tool calls with no intervening user message", t.Index, n),
			})
		}
	}
	return out
}

// LintPingPong flags a turn that edits or writes a file and then, within
// ten events, runs a tool that comes back as an error — repeated three
// or more times — the agent chasing a failing run back and forth
// instead of converging.
type LintPingPong struct{}

func (LintPingPong) Name() string { return "lint_ping_pong" }

const lintPingPongWindow = 10

func (LintPingPong) Analyze(s assemble.Session) []Insight {
	var out []Insight
	for _, t := range s.Turns {
		execByID := make(map[string]assemble.ToolExecution)
		for _, e := range toolExecutionsOf(t) {
			execByID[e.Call.ID().String()] = e
		}

		lastEditIdx := -1
		pingPong := 0
		for idx, ev := range turnEvents(t) {
			call, ok := ev.Payload.(agentevent.ToolCallEventPayload)
			if !ok {
				continue
			}
			switch call.Call.Kind() {
			case agentevent.KindFileEdit, agentevent.KindFileWrite:
				lastEditIdx = idx
			case agentevent.KindExecute:
				exec := execByID[call.Call.ID().String()]
				isErr := exec.Result != nil && exec.Result.IsError
				if lastEditIdx >= 0 && idx-lastEditIdx <= lintPingPongWindow && isErr {
					pingPong++
				}
			}
		}
		if pingPong >= 3 {
			out = append(out, Insight{
				Lens: "lint_ping_pong", Severity: SeverityWarning, TurnIdx: t.Index,
				Summary: fmt.Sprintf("turn %d: edit-then-failing-run repeated %d times", t.Index, pingPong),
			})
		}
	}
	return out
}
