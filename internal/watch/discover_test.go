package watch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/agtrace/internal/index"
	"github.com/nextlevelbuilder/agtrace/internal/providers"
)

func seedSession(t *testing.T, idx *index.Index, projectHash, sessionID, path string, start time.Time) {
	t.Helper()
	ctx := context.Background()
	if err := idx.UpsertProject(ctx, index.ProjectRow{Hash: projectHash, Cwd: "/" + projectHash}); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	err := idx.UpsertSessionWithFile(ctx,
		index.SessionRow{SessionID: sessionID, Provider: string(providers.Claude), ProjectHash: projectHash, StartTS: start, EndTS: start},
		index.FileRow{SessionID: sessionID, Path: path, Size: 10, MTime: start})
	if err != nil {
		t.Fatalf("UpsertSessionWithFile: %v", err)
	}
}

func TestNewestFileForProject_IsolatesAcrossProjects(t *testing.T) {
	idx, err := index.Open(filepath.Join(t.TempDir(), "pointer.db"))
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedSession(t, idx, "project-a", "sess-a", "/project-a/session.jsonl", base)
	// project-b's session is strictly newer, but must never surface when
	// resolving project-a's target.
	seedSession(t, idx, "project-b", "sess-b", "/project-b/session.jsonl", base.Add(time.Hour))

	got, err := newestFileForProject(context.Background(), idx, "project-a", providers.Claude)
	if err != nil {
		t.Fatalf("newestFileForProject: %v", err)
	}
	if got != "/project-a/session.jsonl" {
		t.Errorf("got %q, want project-a's file even though project-b has a newer session", got)
	}
}

func TestNewestFileForProject_EmptyWhenProjectHasNoSessions(t *testing.T) {
	idx, err := index.Open(filepath.Join(t.TempDir(), "pointer.db"))
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	got, err := newestFileForProject(context.Background(), idx, "unknown-project", providers.Claude)
	if err != nil {
		t.Fatalf("newestFileForProject: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty (no indexed session yet, stay waiting)", got)
	}
}

func TestResolveAttachTarget_IndexScopedNeverFallsBackToRootScan(t *testing.T) {
	idx, err := index.Open(filepath.Join(t.TempDir(), "pointer.db"))
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	dir := t.TempDir()
	// a file exists directly under root, but the project has no indexed
	// session: resolution must stay empty rather than falling back to a
	// root-wide scan that would cross project boundaries.
	path := filepath.Join(dir, "session.jsonl")
	writeLine(t, path, `{"type":"user","uuid":"u1","sessionId":"sess-1","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"hi"}}`)

	target := Target{Provider: providers.Claude, Idx: idx, ProjectHash: "no-sessions-yet"}
	got, err := resolveAttachTarget(context.Background(), dir, target)
	if err != nil {
		t.Fatalf("resolveAttachTarget: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty (index-scoped target never falls back to root-wide scan)", got)
	}
}
