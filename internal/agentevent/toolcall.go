package agentevent

import "github.com/google/uuid"

// ToolKind is the classification taxonomy from SPEC_FULL.md §4.1.
type ToolKind int

const (
	KindGeneric ToolKind = iota
	KindFileRead
	KindFileEdit
	KindFileWrite
	KindExecute
	KindSearch
	KindMcp
)

func (k ToolKind) String() string {
	switch k {
	case KindFileRead:
		return "file_read"
	case KindFileEdit:
		return "file_edit"
	case KindFileWrite:
		return "file_write"
	case KindExecute:
		return "execute"
	case KindSearch:
		return "search"
	case KindMcp:
		return "mcp"
	default:
		return "generic"
	}
}

// ToolCall is the sum type of normalized tool invocations. Every variant
// carries the raw vendor call-token (when the vendor exposes one) so
// normalizers can link a later ToolResult back to it before the link
// table is discarded.
type ToolCall interface {
	Kind() ToolKind
	Name() string
	ID() uuid.UUID
	ProviderCallID() (string, bool)
}

type baseCall struct {
	id       uuid.UUID
	name     string
	callID   string
	hasCallID bool
}

func (b baseCall) ID() uuid.UUID { return b.id }
func (b baseCall) Name() string  { return b.name }
func (b baseCall) ProviderCallID() (string, bool) { return b.callID, b.hasCallID }

func newBase(id uuid.UUID, name, providerCallID string) baseCall {
	return baseCall{id: id, name: name, callID: providerCallID, hasCallID: providerCallID != ""}
}

// FileReadCall reads all or part of a file.
type FileReadCall struct {
	baseCall
	Path string
}

func NewFileReadCall(id uuid.UUID, name, providerCallID, path string) FileReadCall {
	return FileReadCall{baseCall: newBase(id, name, providerCallID), Path: path}
}
func (FileReadCall) Kind() ToolKind { return KindFileRead }

// FileEditCall modifies an existing file in place.
type FileEditCall struct {
	baseCall
	Path string
	Diff string
}

func NewFileEditCall(id uuid.UUID, name, providerCallID, path, diff string) FileEditCall {
	return FileEditCall{baseCall: newBase(id, name, providerCallID), Path: path, Diff: diff}
}
func (FileEditCall) Kind() ToolKind { return KindFileEdit }

// FileWriteCall creates or fully overwrites a file.
type FileWriteCall struct {
	baseCall
	Path    string
	Content string
}

func NewFileWriteCall(id uuid.UUID, name, providerCallID, path, content string) FileWriteCall {
	return FileWriteCall{baseCall: newBase(id, name, providerCallID), Path: path, Content: content}
}
func (FileWriteCall) Kind() ToolKind { return KindFileWrite }

// ExecuteCall runs a shell command or subprocess.
type ExecuteCall struct {
	baseCall
	Command  []string
	ExitCode *int
	Timeout  *int              // milliseconds, when the vendor reports one
	Extra    map[string]string // vendor-specific fields the canonical shape doesn't model (e.g. workdir)
}

func NewExecuteCall(id uuid.UUID, name, providerCallID string, command []string, exitCode *int) ExecuteCall {
	return ExecuteCall{baseCall: newBase(id, name, providerCallID), Command: command, ExitCode: exitCode}
}

// NewExecuteCallFull is NewExecuteCall plus the vendor's reported timeout
// and any extra fields (e.g. workdir) lost by the canonical shape.
func NewExecuteCallFull(id uuid.UUID, name, providerCallID string, command []string, exitCode, timeout *int, extra map[string]string) ExecuteCall {
	return ExecuteCall{baseCall: newBase(id, name, providerCallID), Command: command, ExitCode: exitCode, Timeout: timeout, Extra: extra}
}
func (ExecuteCall) Kind() ToolKind { return KindExecute }

// SearchCall looks up content by pattern or glob.
type SearchCall struct {
	baseCall
	Pattern string
}

func NewSearchCall(id uuid.UUID, name, providerCallID, pattern string) SearchCall {
	return SearchCall{baseCall: newBase(id, name, providerCallID), Pattern: pattern}
}
func (SearchCall) Kind() ToolKind { return KindSearch }

// McpCall invokes a Model Context Protocol server tool.
type McpCall struct {
	baseCall
	Server    string
	Arguments string // raw JSON
}

func NewMcpCall(id uuid.UUID, name, providerCallID, server, arguments string) McpCall {
	return McpCall{baseCall: newBase(id, name, providerCallID), Server: server, Arguments: arguments}
}
func (McpCall) Kind() ToolKind { return KindMcp }

// GenericCall is any tool invocation the classifier can't place more
// specifically. Arguments are preserved verbatim as raw JSON.
type GenericCall struct {
	baseCall
	Arguments string
}

func NewGenericCall(id uuid.UUID, name, providerCallID, arguments string) GenericCall {
	return GenericCall{baseCall: newBase(id, name, providerCallID), Arguments: arguments}
}
func (GenericCall) Kind() ToolKind { return KindGeneric }
