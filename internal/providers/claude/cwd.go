package claude

import (
	"bufio"
	"encoding/json"
	"os"
)

// ExtractCwd scans a Claude JSONL file for the first record carrying a
// "cwd" field, used by the scanner to derive the project hash without a
// full normalization pass.
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
			Cwd *string `json:"cwd"`
		}
		if json.Unmarshal(scanner.Bytes(), &probe) == nil && probe.Cwd != nil && *probe.Cwd != "" {
			return *probe.Cwd, nil
		}
	}
	return "", scanner.Err()
}
