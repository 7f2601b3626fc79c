package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/nextlevelbuilder/agtrace/internal/index"
	"github.com/nextlevelbuilder/agtrace/internal/providers"
)

// newestFileUnder returns the most recently modified regular file under
// root, or "" if root has no files yet (the watcher stays Waiting).
func newestFileUnder(root string) (string, error) {
	var best string
	var bestMod int64

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if mt := info.ModTime().Unix(); mt > bestMod {
			bestMod, best = mt, path
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return best, nil
}

// newestFileForProject picks the file backing the most recently started
// session in projectHash (optionally narrowed to provider), so the
// watcher never crosses into another project's sessions. An empty
// result (no indexed session yet) is not an error: the caller stays
// Waiting until the scanner or a future tick indexes one.
func newestFileForProject(ctx context.Context, idx *index.Index, projectHash string, provider providers.Name) (string, error) {
	rows, err := idx.ListSessions(ctx, projectHash, string(provider), 1)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return newestFileForSession(ctx, idx, rows[0].SessionID)
}

// newestFileForSession returns the most recently modified file backing
// sessionID, since a session can span more than one on-disk file.
func newestFileForSession(ctx context.Context, idx *index.Index, sessionID string) (string, error) {
	files, err := idx.SessionFiles(ctx, sessionID)
	if err != nil {
		return "", err
	}
	var best string
	var bestMTime time.Time
	for _, f := range files {
		if best == "" || f.MTime.After(bestMTime) {
			best, bestMTime = f.Path, f.MTime
		}
	}
	return best, nil
}
