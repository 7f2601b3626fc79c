package codex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/agtraceerr"
)

var rolloutFileSessionID = regexp.MustCompile(`rollout-.*-([0-9a-f-]{36})\.jsonl$`)

// ParseFile reads a Codex-style rollout JSONL file and normalizes it.
func ParseFile(path string) ([]agentevent.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, agtraceerr.New(agtraceerr.FileUnreadable, "codex.ParseFile", err)
	}
	defer f.Close()

	records, sessionID, err := decodeLines(f)
	if err != nil {
		return nil, err
	}
	if sessionID == "" {
		if m := rolloutFileSessionID.FindStringSubmatch(filepath.Base(path)); m != nil {
			sessionID = m[1]
		} else {
			sessionID = filepath.Base(path)
		}
	}
	return Normalize(records, sessionID)
}

func decodeLines(r io.Reader) ([]Record, string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var records []Record
	var sessionID string
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var probe struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			continue
		}
		if probe.Type == "session_meta" && sessionID == "" {
			var meta struct {
				ID string `json:"id"`
			}
			if json.Unmarshal(probe.Payload, &meta) == nil && meta.ID != "" {
				sessionID = meta.ID
			}
		}
		raw := make([]byte, len(line))
		copy(raw, line)
		records = append(records, Record{Kind: probe.Type, Raw: raw})
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("codex.decodeLines: %w", err)
	}
	return records, sessionID, nil
}
