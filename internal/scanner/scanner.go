// Package scanner walks each enabled provider's log root, skips files
// the index already has an up-to-date record for, and upserts the rest —
// the incremental ingest step that keeps the pointer index current
// without re-parsing every file on every run.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/index"
	"github.com/nextlevelbuilder/agtrace/internal/projecthash"
	"github.com/nextlevelbuilder/agtrace/internal/providers"
	"github.com/nextlevelbuilder/agtrace/internal/providers/claude"
	"github.com/nextlevelbuilder/agtrace/internal/providers/codex"
	"github.com/nextlevelbuilder/agtrace/internal/providers/geminicli"
)

// Header is the lightweight metadata a scan extracts from a file without
// fully normalizing it: just enough to populate an index row.
type Header struct {
	SessionID string
	Cwd       string
	StartedAt time.Time
	EndedAt   time.Time
}

// Scanner walks provider roots and upserts into an Index.
type Scanner struct {
	idx         *index.Index
	concurrency int
}

func New(idx *index.Index, concurrency int) *Scanner {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Scanner{idx: idx, concurrency: concurrency}
}

// Root is one provider's enabled log directory.
type Root struct {
	Provider providers.Name
	LogRoot  string
}

// Scan walks every root, fanning file-header extraction out across a
// bounded worker pool while serializing index writes through the
// Index's own mutex.
func (s *Scanner) Scan(ctx context.Context, roots []Root) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, root := range roots {
		root := root
		paths, err := discoverFiles(root)
		if err != nil {
			slog.Warn("scanner: discover failed", "provider", root.Provider, "root", root.LogRoot, "error", err)
			continue
		}
		for _, path := range paths {
			path := path
			g.Go(func() error {
				return s.scanFile(ctx, root.Provider, path)
			})
		}
	}

	return g.Wait()
}

func discoverFiles(root Root) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root.LogRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if matchesProvider(root.Provider, path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func matchesProvider(p providers.Name, path string) bool {
	switch p {
	case providers.Claude:
		return strings.HasSuffix(path, ".jsonl")
	case providers.Codex:
		return strings.Contains(filepath.Base(path), "rollout-") && strings.HasSuffix(path, ".jsonl")
	case providers.GeminiCLI:
		return strings.HasSuffix(path, ".json")
	default:
		return false
	}
}

func (s *Scanner) scanFile(ctx context.Context, provider providers.Name, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		slog.Warn("scanner: stat failed", "path", path, "error", err)
		return nil // FileUnreadable policy: warn and skip
	}

	size, mtime, found, err := s.idx.FileState(ctx, path)
	if err != nil {
		return fmt.Errorf("scanner: %w", err)
	}
	if found && size == info.Size() && mtime.Equal(info.ModTime().Truncate(time.Second)) {
		return nil // unchanged since last scan
	}

	header, err := extractHeader(provider, path)
	if err != nil {
		slog.Warn("scanner: header extraction failed", "path", path, "error", err)
		return nil // InputDecode/SchemaMismatch policy: warn and skip
	}
	if header.SessionID == "" {
		return nil
	}

	var projHash string
	if provider == providers.GeminiCLI {
		projHash, err = geminicli.ExtractProjectHash(path)
		if err != nil {
			slog.Warn("scanner: project hash extraction failed", "path", path, "error", err)
			return nil
		}
	} else {
		projHash = projecthash.Hash(header.Cwd)
	}
	if err := s.idx.UpsertProject(ctx, index.ProjectRow{Hash: projHash, Cwd: header.Cwd}); err != nil {
		return fmt.Errorf("scanner: %w", err)
	}

	return s.idx.UpsertSessionWithFile(ctx,
		index.SessionRow{
			SessionID:   header.SessionID,
			Provider:    string(provider),
			ProjectHash: projHash,
			StartTS:     header.StartedAt,
			EndTS:       header.EndedAt,
		},
		index.FileRow{
			SessionID: header.SessionID,
			Path:      path,
			Size:      info.Size(),
			MTime:     info.ModTime(),
		},
	)
}

// extractHeader fully parses the file via the vendor normalizer and
// reduces it to the handful of fields the index cares about. A lighter
// partial-decode path is possible but normalizing is already cheap
// enough at session-log scale, and reuses the exact same vendor parsing
// path the query surface later uses — so header and body can never
// disagree about the session's identity.
func extractHeader(provider providers.Name, path string) (Header, error) {
	switch provider {
	case providers.Claude:
		evs, err := claude.ParseFile(path)
		if err != nil {
			return Header{}, err
		}
		h, err := headerFromEvents(evs)
		if err != nil {
			return Header{}, err
		}
		h.Cwd, _ = claude.ExtractCwd(path)
		return h, nil
	case providers.Codex:
		evs, err := codex.ParseFile(path)
		if err != nil {
			return Header{}, err
		}
		h, err := headerFromEvents(evs)
		if err != nil {
			return Header{}, err
		}
		h.Cwd, _ = codex.ExtractCwd(path)
		return h, nil
	case providers.GeminiCLI:
		evs, err := geminicli.ParseFile(path)
		if err != nil {
			return Header{}, err
		}
		return headerFromEvents(evs)
	default:
		return Header{}, fmt.Errorf("scanner: unknown provider %q", provider)
	}
}

func headerFromEvents(evs []agentevent.Event) (Header, error) {
	if len(evs) == 0 {
		return Header{}, nil
	}
	h := Header{
		SessionID: evs[0].SessionID.String(),
		StartedAt: evs[0].Timestamp,
		EndedAt:   evs[0].Timestamp,
	}
	for _, ev := range evs {
		if ev.Timestamp.Before(h.StartedAt) {
			h.StartedAt = ev.Timestamp
		}
		if ev.Timestamp.After(h.EndedAt) {
			h.EndedAt = ev.Timestamp
		}
	}
	return h, nil
}
