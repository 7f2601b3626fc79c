package codex

import (
	"bufio"
	"encoding/json"
	"os"
)

// ExtractCwd scans a Codex rollout file for the session_meta record's cwd
// field.
func ExtractCwd(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var probe struct {
			Type    string `json:"type"`
			Payload struct {
				Cwd string `json:"cwd"`
			} `json:"payload"`
		}
		if json.Unmarshal(scanner.Bytes(), &probe) == nil && probe.Type == "session_meta" && probe.Payload.Cwd != "" {
			return probe.Payload.Cwd, nil
		}
	}
	return "", scanner.Err()
}
