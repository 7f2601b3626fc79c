package codex

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var exitCodeRegexp = regexp.MustCompile(`Exit Code:\s*(\d+)`)

// extractExitCode pulls the numeric exit code out of a shell tool's
// output text, when present.
func extractExitCode(output string) (int, bool) {
	m := exitCodeRegexp.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// patchOperation classifies an apply_patch body.
type patchOperation int

const (
	patchUnknown patchOperation = iota
	patchAdd
	patchUpdate
)

type parsedPatch struct {
	Operation patchOperation
	FilePath  string
	RawPatch  string
}

// parseApplyPatch inspects the raw patch text for "*** Add File: <path>"
// or "*** Update File: <path>" markers, the same disambiguation the
// original parser performs since apply_patch's own arguments carry only
// the bundled raw patch, not a structured operation field.
func parseApplyPatch(raw string) (parsedPatch, bool) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if path, ok := strings.CutPrefix(line, "*** Add File: "); ok {
			return parsedPatch{Operation: patchAdd, FilePath: strings.TrimSpace(path), RawPatch: raw}, true
		}
		if path, ok := strings.CutPrefix(line, "*** Update File: "); ok {
			return parsedPatch{Operation: patchUpdate, FilePath: strings.TrimSpace(path), RawPatch: raw}, true
		}
	}
	return parsedPatch{}, false
}

// applyPatchRaw extracts the bundled raw patch text from apply_patch's
// JSON arguments, which wrap it as {"raw": "..."} (or, in some Codex
// builds, {"input": "..."}).
func applyPatchRaw(arguments json.RawMessage) (string, bool) {
	var withRaw struct {
		Raw string `json:"raw"`
	}
	if json.Unmarshal(arguments, &withRaw) == nil && withRaw.Raw != "" {
		return withRaw.Raw, true
	}
	var withInput struct {
		Input string `json:"input"`
	}
	if json.Unmarshal(arguments, &withInput) == nil && withInput.Input != "" {
		return withInput.Input, true
	}
	return "", false
}

// shellArgs is the argument shape for the "shell" tool: an argv array
// plus optional timeout/workdir, mapped onto the shared ExecuteCall
// shape; the argv slice is carried into ExecuteCall.Command as-is, not
// joined into one string.
type shellArgs struct {
	Command   []string `json:"command"`
	TimeoutMS *int     `json:"timeout_ms"`
	Workdir   *string  `json:"workdir"`
}

// shellCommandArgs is the argument shape for "shell_command": a single
// joined command string rather than an argv array.
type shellCommandArgs struct {
	Command string  `json:"command"`
	Workdir *string `json:"workdir"`
}

type readMcpResourceArgs struct {
	Server string `json:"server"`
	URI    string `json:"uri"`
}

// shellExtra carries a shell tool's workdir into ExecuteCall.Extra, the
// canonical algebra's catch-all for vendor fields it doesn't model
// directly.
func shellExtra(workdir *string) map[string]string {
	if workdir == nil || *workdir == "" {
		return nil
	}
	return map[string]string{"workdir": *workdir}
}
