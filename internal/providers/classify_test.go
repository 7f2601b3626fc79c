package providers

import (
	"testing"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
)

func TestClassifyTool(t *testing.T) {
	tests := []struct {
		name string
		want agentevent.ToolKind
	}{
		{"Bash", agentevent.KindExecute},
		{"shell", agentevent.KindExecute},
		{"shell_command", agentevent.KindExecute},
		{"Read", agentevent.KindFileRead},
		{"read_file", agentevent.KindFileRead},
		{"read_mcp_resource", agentevent.KindFileRead},
		{"Edit", agentevent.KindFileEdit},
		{"apply_patch", agentevent.KindFileEdit},
		{"Write", agentevent.KindFileWrite},
		{"Glob", agentevent.KindSearch},
		{"Grep", agentevent.KindSearch},
		{"mcp__github__search", agentevent.KindMcp},
		{"SomeUnknownTool", agentevent.KindGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTool(tt.name); got != tt.want {
				t.Errorf("ClassifyTool(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
