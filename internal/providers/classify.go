// Package providers holds the vendor registry and the shared tool-name
// classifier every normalizer consults before building a ToolCall.
package providers

import (
	"strings"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
)

// Name identifies a supported vendor.
type Name string

const (
	Claude    Name = "claude"
	Codex     Name = "codex"
	GeminiCLI Name = "geminicli"
)

// ClassifyTool maps a vendor tool name to the shared taxonomy. Vendor
// aliases are resolved here so normalizers never branch on kind
// themselves — see SPEC_FULL.md §4.1.
func ClassifyTool(name string) agentevent.ToolKind {
	if strings.HasPrefix(name, "mcp__") {
		return agentevent.KindMcp
	}
	switch name {
	case "shell", "shell_command", "bash", "Bash":
		return agentevent.KindExecute
	case "apply_patch":
		return agentevent.KindFileEdit // disambiguated further by patch-body inspection
	case "read_mcp_resource":
		return agentevent.KindFileRead
	case "Read", "read_file", "view":
		return agentevent.KindFileRead
	case "Edit", "edit_file":
		return agentevent.KindFileEdit
	case "Write", "write_file":
		return agentevent.KindFileWrite
	case "Glob", "Grep", "search", "grep":
		return agentevent.KindSearch
	default:
		return agentevent.KindGeneric
	}
}
