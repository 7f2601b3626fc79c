// Package query is the read surface over the pointer index: listing
// sessions, loading and assembling their events, exporting them, packing
// a provider-balanced sample for external analysis, and summarizing
// corpus-wide tool usage. It never writes to the index; that's the
// scanner's job.
package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/agtraceerr"
	"github.com/nextlevelbuilder/agtrace/internal/assemble"
	"github.com/nextlevelbuilder/agtrace/internal/index"
	"github.com/nextlevelbuilder/agtrace/internal/providers"
	"github.com/nextlevelbuilder/agtrace/internal/providers/claude"
	"github.com/nextlevelbuilder/agtrace/internal/providers/codex"
	"github.com/nextlevelbuilder/agtrace/internal/providers/geminicli"
)

// Service is the query surface bound to one pointer index.
type Service struct {
	idx  *index.Index
	opts assemble.Options
}

func New(idx *index.Index, opts assemble.Options) *Service {
	return &Service{idx: idx, opts: opts}
}

// ListSessions returns the raw index rows for a project, newest first.
func (s *Service) ListSessions(ctx context.Context, projectHash, provider string, limit int) ([]index.SessionRow, error) {
	rows, err := s.idx.ListSessions(ctx, projectHash, provider, limit)
	if err != nil {
		return nil, fmt.Errorf("query.ListSessions: %w", err)
	}
	return rows, nil
}

// LoadEvents reparses every file backing a session and merges them into
// one time-ordered event stream. Sessions are never backed by more than
// one file in the common case, but rotation can leave a session spread
// across an old and a new path until the next full scan catches up.
func (s *Service) LoadEvents(ctx context.Context, row index.SessionRow) ([]agentevent.Event, error) {
	files, err := s.idx.SessionFiles(ctx, row.SessionID)
	if err != nil {
		return nil, fmt.Errorf("query.LoadEvents: %w", err)
	}
	if len(files) == 0 {
		return nil, agtraceerr.New(agtraceerr.NotFound, "query.LoadEvents", fmt.Errorf("no files recorded for session %s", row.SessionID))
	}

	var all []agentevent.Event
	for _, f := range files {
		evs, err := parseWithProvider(providers.Name(row.Provider), f.Path)
		if err != nil {
			continue // FileUnreadable/SchemaMismatch: warn-and-skip at this layer too
		}
		all = append(all, evs...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	return all, nil
}

// LoadRawFiles returns the index's file rows backing a session, for
// callers that want the raw paths without reparsing them.
func (s *Service) LoadRawFiles(ctx context.Context, sessionID string) ([]index.FileRow, error) {
	files, err := s.idx.SessionFiles(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query.LoadRawFiles: %w", err)
	}
	return files, nil
}

// GetSession loads and assembles one session by id. row.SessionID is
// already the derived session UUID (that's what the scanner records),
// not the raw vendor id, so it parses directly rather than re-deriving.
func (s *Service) GetSession(ctx context.Context, row index.SessionRow, cwd string) (assemble.Session, error) {
	events, err := s.LoadEvents(ctx, row)
	if err != nil {
		return assemble.Session{}, err
	}
	sessionID, err := uuid.Parse(row.SessionID)
	if err != nil {
		sessionID = eventSessionIDFallback(events)
	}
	return assemble.Assemble(sessionID, row.Provider, cwd, events, s.opts), nil
}

func eventSessionIDFallback(events []agentevent.Event) uuid.UUID {
	if len(events) == 0 {
		return uuid.Nil
	}
	return events[0].SessionID
}

func parseWithProvider(provider providers.Name, path string) ([]agentevent.Event, error) {
	switch provider {
	case providers.Claude:
		return claude.ParseFile(path)
	case providers.Codex:
		return codex.ParseFile(path)
	case providers.GeminiCLI:
		return geminicli.ParseFile(path)
	default:
		return nil, fmt.Errorf("query: unknown provider %q", provider)
	}
}
