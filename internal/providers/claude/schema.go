// Package claude normalizes the Claude-style session log format: one
// JSON object per line, discriminated by a "type" field, with
// message.content[] holding typed content blocks.
package claude

import "encoding/json"

// Record is the line-delimited envelope. Record type is resolved by Kind
// before decoding into the specific shape.
type Record struct {
	Kind string `json:"type"`
	Raw  json.RawMessage
}

type userMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type userRecord struct {
	UUID          string         `json:"uuid"`
	ParentUUID    *string        `json:"parentUuid"`
	SessionID     string         `json:"sessionId"`
	Timestamp     string         `json:"timestamp"`
	Message       userMessage    `json:"message"`
	IsSidechain   bool           `json:"isSidechain"`
	IsMeta        bool           `json:"isMeta"`
	AgentID       *string        `json:"agentId"`
	ToolUseResult *toolUseResult `json:"toolUseResult"`
}

type toolUseResult struct {
	AgentID *string `json:"agentId"`
}

// userContentBlock is one element of userMessage.Content: a text block,
// a tool_result block, or any other block type, told apart by Type.
type userContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
	AgentID   *string         `json:"agent_id"`
}

type tokenUsage struct {
	InputTokens              int  `json:"input_tokens"`
	OutputTokens             int  `json:"output_tokens"`
	CacheCreationInputTokens *int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     *int `json:"cache_read_input_tokens"`
}

type assistantMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *tokenUsage     `json:"usage"`
}

type assistantRecord struct {
	UUID        string           `json:"uuid"`
	ParentUUID  *string          `json:"parentUuid"`
	SessionID   string           `json:"sessionId"`
	Timestamp   string           `json:"timestamp"`
	Message     assistantMessage `json:"message"`
	IsSidechain bool             `json:"isSidechain"`
	AgentID     *string          `json:"agentId"`
}

type assistantContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   string          `json:"content"`
	IsError   bool            `json:"is_error"`
}

type systemRecord struct {
	UUID        string  `json:"uuid"`
	SessionID   string  `json:"sessionId"`
	Timestamp   string  `json:"timestamp"`
	IsSidechain bool    `json:"isSidechain"`
	Subtype     string  `json:"subtype"`
	Content     *string `json:"content"`
}

type progressRecord struct {
	UUID        string          `json:"uuid"`
	SessionID   string          `json:"sessionId"`
	Timestamp   string          `json:"timestamp"`
	IsSidechain bool            `json:"isSidechain"`
	AgentID     *string         `json:"agentId"`
	Data        json.RawMessage `json:"data"`
}

type progressData struct {
	Type      string  `json:"type"`
	HookEvent string  `json:"hookEvent"`
	HookName  *string `json:"hookName"`
	Command   *string `json:"command"`
}

type queueOperationRecord struct {
	SessionID string  `json:"sessionId"`
	Timestamp string  `json:"timestamp"`
	Operation string  `json:"operation"`
	Content   *string `json:"content"`
	TaskID    *string `json:"taskId"`
}

type summaryRecord struct {
	SessionID *string `json:"sessionId"`
	Timestamp *string `json:"timestamp"`
	Summary   string  `json:"summary"`
	LeafUUID  *string `json:"leafUuid"`
}
