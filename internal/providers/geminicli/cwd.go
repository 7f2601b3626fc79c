package geminicli

import (
	"encoding/json"
	"os"
)

// ExtractProjectHash reads just the projectHash field from a session
// document without normalizing the whole file. Gemini-CLI sessions carry
// their project hash directly (the directory they're stored under is
// named by it), unlike Claude/Codex sessions, which only carry a
// working directory that must be hashed by the caller.
func ExtractProjectHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var doc struct {
		ProjectHash string `json:"projectHash"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	return doc.ProjectHash, nil
}
