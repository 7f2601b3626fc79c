package query

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/assemble"
	"github.com/nextlevelbuilder/agtrace/internal/providers"
)

// CorpusStats summarizes tool-execution health across a sample of
// sessions: how many tool calls were made, how many results came back
// as an error, and the highest fraction of the context window that any
// single turn's cumulative token usage reached (MaxTurnHeavyPct).
type CorpusStats struct {
	SampleSize      int
	TotalToolCalls  int
	TotalFailures   int
	MaxTurnHeavyPct float64
}

// Stats samples up to limit sessions under projectHash and reduces them
// to corpus-wide tool-call and failure counts.
func (s *Service) Stats(ctx context.Context, projectHash string, limit int) (CorpusStats, error) {
	rows, err := s.idx.ListSessions(ctx, projectHash, "", limit)
	if err != nil {
		return CorpusStats{}, fmt.Errorf("query.Stats: %w", err)
	}

	var out CorpusStats
	out.SampleSize = len(rows)

	for _, row := range rows {
		events, err := s.LoadEvents(ctx, row)
		if err != nil {
			continue
		}
		sess := assemble.Assemble(eventSessionID(events), row.Provider, "", events, s.opts)
		for _, t := range sess.Turns {
			for _, step := range t.Steps {
				for _, ev := range step.Events {
					switch p := ev.Payload.(type) {
					case agentevent.ToolCallEventPayload:
						out.TotalToolCalls++
					case agentevent.ToolResultPayload:
						if p.IsError {
							out.TotalFailures++
						}
					}
				}
			}
			if t.HeavyPct > out.MaxTurnHeavyPct {
				out.MaxTurnHeavyPct = t.HeavyPct
			}
		}
	}
	return out, nil
}

// ToolSample records the first observed invocation of a distinct tool
// name, including its arguments and the result it produced (if any).
type ToolSample struct {
	Arguments string
	Result    string
	HasResult bool
}

// ToolInfo classifies one distinct tool name seen in the corpus.
type ToolInfo struct {
	ToolName string
	Kind     string
}

// ProviderToolStats is one provider's tool-usage breakdown: a count and
// sample per tool name, plus the classification of each.
type ProviderToolStats struct {
	Counts  map[string]int
	Samples map[string]ToolSample
	Tools   []ToolInfo
}

// ToolStatsResult is the corpus-wide tool-usage summary, keyed by
// provider.
type ToolStatsResult struct {
	TotalSessions int
	ByProvider    map[string]ProviderToolStats
}

// ToolStats collects per-provider tool invocation counts and one sample
// invocation per distinct tool name, the way a corpus-wide usage report
// is built from a bounded sample rather than the full index.
func (s *Service) ToolStats(ctx context.Context, limit int, provider string) (ToolStatsResult, error) {
	rows, err := s.idx.ListSessions(ctx, "", provider, limit)
	if err != nil {
		return ToolStatsResult{}, fmt.Errorf("query.ToolStats: %w", err)
	}

	result := ToolStatsResult{TotalSessions: len(rows), ByProvider: make(map[string]ProviderToolStats)}

	for _, row := range rows {
		events, err := s.LoadEvents(ctx, row)
		if err != nil {
			continue
		}

		results := make(map[string]string) // callID -> output
		for _, ev := range events {
			if r, ok := ev.Payload.(agentevent.ToolResultPayload); ok {
				results[r.CallID.String()] = r.Output
			}
		}

		ps, ok := result.ByProvider[row.Provider]
		if !ok {
			ps = ProviderToolStats{Counts: make(map[string]int), Samples: make(map[string]ToolSample)}
		}

		for _, ev := range events {
			tc, ok := ev.Payload.(agentevent.ToolCallEventPayload)
			if !ok {
				continue
			}
			name := tc.Call.Name()
			ps.Counts[name]++
			if _, sampled := ps.Samples[name]; !sampled {
				args := toolArguments(tc.Call)
				sample := ToolSample{Arguments: args}
				if out, found := results[tc.Call.ID().String()]; found {
					sample.Result, sample.HasResult = out, true
				}
				ps.Samples[name] = sample
			}
		}
		result.ByProvider[row.Provider] = ps
	}

	for name, ps := range result.ByProvider {
		names := make([]string, 0, len(ps.Counts))
		for toolName := range ps.Counts {
			names = append(names, toolName)
		}
		sort.Strings(names)
		for _, toolName := range names {
			ps.Tools = append(ps.Tools, ToolInfo{ToolName: toolName, Kind: classifyForProvider(providers.Name(name), toolName)})
		}
		result.ByProvider[name] = ps
	}

	return result, nil
}

func classifyForProvider(_ providers.Name, toolName string) string {
	return providers.ClassifyTool(toolName).String()
}

func toolArguments(tc agentevent.ToolCall) string {
	data, err := json.Marshal(tc)
	if err != nil {
		return "(failed to serialize)"
	}
	return string(data)
}
