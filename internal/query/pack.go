package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/assemble"
	"github.com/nextlevelbuilder/agtrace/internal/index"
	"github.com/nextlevelbuilder/agtrace/internal/lens"
)

func eventSessionID(events []agentevent.Event) uuid.UUID {
	if len(events) == 0 {
		return uuid.Nil
	}
	return events[0].SessionID
}

// Digest is one scored, assembled session selected for a Pack result.
type Digest struct {
	SessionID    string
	Provider     string
	Session      assemble.Session
	RecencyBoost int
	Health       int
	Score        int
}

// PackResult is the outcome of a balanced, scored session selection.
type PackResult struct {
	Selections    []Digest
	BalancedCount int
	RawCount      int
}

// Pack selects up to limit sessions for external analysis: it first caps
// each provider's contribution so one noisy vendor can't crowd out the
// others, then scores every balanced candidate by health and recency and
// keeps the top-scoring limit.
func (s *Service) Pack(ctx context.Context, projectHash string, limit int) (PackResult, error) {
	raw, err := s.idx.ListSessions(ctx, projectHash, "", 1000)
	if err != nil {
		return PackResult{}, fmt.Errorf("query.Pack: %w", err)
	}

	balanced := balanceByProvider(raw, 200)

	digests := make([]Digest, 0, len(balanced))
	for i, row := range balanced {
		events, err := s.LoadEvents(ctx, row)
		if err != nil || len(events) == 0 {
			continue
		}
		sess := assemble.Assemble(eventSessionID(events), row.Provider, "", events, s.opts)
		report := lens.Run(sess, lens.Default()...)
		digests = append(digests, Digest{
			SessionID:    row.SessionID,
			Provider:     row.Provider,
			Session:      sess,
			RecencyBoost: len(balanced) - i,
			Health:       report.Health,
			Score:        report.Health + (len(balanced) - i),
		})
	}

	sort.SliceStable(digests, func(i, j int) bool { return digests[i].Score > digests[j].Score })
	if limit > 0 && len(digests) > limit {
		digests = digests[:limit]
	}

	return PackResult{Selections: digests, BalancedCount: len(balanced), RawCount: len(raw)}, nil
}

// balanceByProvider caps each provider's session list at targetPerProvider
// (keeping its newest entries, since rows arrive start_ts descending) and
// re-sorts the combined set by start time.
func balanceByProvider(sessions []index.SessionRow, targetPerProvider int) []index.SessionRow {
	byProvider := make(map[string][]index.SessionRow)
	for _, s := range sessions {
		byProvider[s.Provider] = append(byProvider[s.Provider], s)
	}

	var balanced []index.SessionRow
	for _, list := range byProvider {
		if len(list) > targetPerProvider {
			list = list[:targetPerProvider]
		}
		balanced = append(balanced, list...)
	}

	sort.SliceStable(balanced, func(i, j int) bool { return balanced[i].StartTS.After(balanced[j].StartTS) })
	return balanced
}
