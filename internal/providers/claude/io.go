package claude

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/agtraceerr"
)

// ParseFile reads a Claude-style JSONL session log and normalizes it into
// the vendor-neutral event algebra. Malformed lines are skipped, not
// fatal — see SPEC_FULL.md §7.
func ParseFile(path string) ([]agentevent.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, agtraceerr.New(agtraceerr.FileUnreadable, "claude.ParseFile", err)
	}
	defer f.Close()

	records, err := decodeLines(f)
	if err != nil {
		return nil, err
	}
	return Normalize(records)
}

func decodeLines(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var records []Record
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			continue // InputDecode policy: skip the undecodable line; nothing is logged
		}
		raw := make([]byte, len(line))
		copy(raw, line)
		records = append(records, Record{Kind: probe.Type, Raw: raw})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("claude.decodeLines: %w", err)
	}
	return records, nil
}
