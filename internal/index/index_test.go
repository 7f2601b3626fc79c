package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "pointer.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestUpsertProject_InsertThenUpdate(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	if err := idx.UpsertProject(ctx, ProjectRow{Hash: "h1", Cwd: "/repo/a"}); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	if err := idx.UpsertProject(ctx, ProjectRow{Hash: "h1", Cwd: "/repo/a-renamed"}); err != nil {
		t.Fatalf("UpsertProject (update): %v", err)
	}
}

func TestUpsertSessionWithFile_StartTSNeverLowered(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	if err := idx.UpsertProject(ctx, ProjectRow{Hash: "proj", Cwd: "/repo"}); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}

	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	err := idx.UpsertSessionWithFile(ctx,
		SessionRow{SessionID: "sess-1", Provider: "claude", ProjectHash: "proj", StartTS: early, EndTS: early},
		FileRow{SessionID: "sess-1", Path: "/logs/a.jsonl", Size: 100, MTime: early})
	if err != nil {
		t.Fatalf("UpsertSessionWithFile (first): %v", err)
	}

	// a later scan reports a start_ts skewed forward; the original earliest
	// start time must be preserved.
	err = idx.UpsertSessionWithFile(ctx,
		SessionRow{SessionID: "sess-1", Provider: "claude", ProjectHash: "proj", StartTS: later, EndTS: later},
		FileRow{SessionID: "sess-1", Path: "/logs/a.jsonl", Size: 200, MTime: later})
	if err != nil {
		t.Fatalf("UpsertSessionWithFile (second): %v", err)
	}

	rows, err := idx.ListSessions(ctx, "proj", "", 0)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d session rows, want 1", len(rows))
	}
	if !rows[0].StartTS.Equal(early) {
		t.Errorf("StartTS = %v, want %v (earliest retained)", rows[0].StartTS, early)
	}
	if !rows[0].EndTS.Equal(later) {
		t.Errorf("EndTS = %v, want %v (latest retained)", rows[0].EndTS, later)
	}
}

func TestUpsertSessionWithFile_MultipleFilesPerSession(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := idx.UpsertProject(ctx, ProjectRow{Hash: "proj", Cwd: "/repo"}); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	for _, path := range []string{"/logs/a.jsonl", "/logs/a.jsonl.1"} {
		err := idx.UpsertSessionWithFile(ctx,
			SessionRow{SessionID: "sess-1", Provider: "claude", ProjectHash: "proj", StartTS: ts, EndTS: ts},
			FileRow{SessionID: "sess-1", Path: path, Size: 10, MTime: ts})
		if err != nil {
			t.Fatalf("UpsertSessionWithFile(%s): %v", path, err)
		}
	}

	files, err := idx.SessionFiles(ctx, "sess-1")
	if err != nil {
		t.Fatalf("SessionFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
}

func TestFileState_UnknownPathReturnsNotFound(t *testing.T) {
	idx := openTestIndex(t)
	_, _, found, err := idx.FileState(context.Background(), "/nope")
	if err != nil {
		t.Fatalf("FileState: %v", err)
	}
	if found {
		t.Errorf("FileState found=true for a path never recorded")
	}
}

func TestFileState_ReturnsRecordedSizeAndMTime(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 4, 5, 0, 0, 0, time.UTC)

	if err := idx.UpsertProject(ctx, ProjectRow{Hash: "proj", Cwd: "/repo"}); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	if err := idx.UpsertSessionWithFile(ctx,
		SessionRow{SessionID: "sess-1", Provider: "codex", ProjectHash: "proj", StartTS: ts, EndTS: ts},
		FileRow{SessionID: "sess-1", Path: "/logs/b.jsonl", Size: 555, MTime: ts}); err != nil {
		t.Fatalf("UpsertSessionWithFile: %v", err)
	}

	size, mtime, found, err := idx.FileState(ctx, "/logs/b.jsonl")
	if err != nil {
		t.Fatalf("FileState: %v", err)
	}
	if !found {
		t.Fatalf("FileState found=false, want true")
	}
	if size != 555 {
		t.Errorf("size = %d, want 555", size)
	}
	if !mtime.Equal(ts) {
		t.Errorf("mtime = %v, want %v", mtime, ts)
	}
}

func TestListSessions_FiltersByProviderAndOrdersDescending(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	if err := idx.UpsertProject(ctx, ProjectRow{Hash: "proj", Cwd: "/repo"}); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}

	sessions := []struct {
		id       string
		provider string
		start    time.Time
	}{
		{"sess-claude-1", "claude", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"sess-claude-2", "claude", time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)},
		{"sess-codex-1", "codex", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, s := range sessions {
		err := idx.UpsertSessionWithFile(ctx,
			SessionRow{SessionID: s.id, Provider: s.provider, ProjectHash: "proj", StartTS: s.start, EndTS: s.start},
			FileRow{SessionID: s.id, Path: "/logs/" + s.id + ".jsonl", Size: 1, MTime: s.start})
		if err != nil {
			t.Fatalf("UpsertSessionWithFile(%s): %v", s.id, err)
		}
	}

	claudeOnly, err := idx.ListSessions(ctx, "proj", "claude", 0)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(claudeOnly) != 2 {
		t.Fatalf("got %d claude sessions, want 2", len(claudeOnly))
	}
	if claudeOnly[0].SessionID != "sess-claude-2" {
		t.Errorf("ListSessions[0] = %s, want most recent first (sess-claude-2)", claudeOnly[0].SessionID)
	}

	limited, err := idx.ListSessions(ctx, "proj", "", 1)
	if err != nil {
		t.Fatalf("ListSessions (limit): %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("got %d rows with limit=1, want 1", len(limited))
	}
}
