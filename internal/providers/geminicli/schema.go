// Package geminicli normalizes the Gemini-CLI-style session log format:
// a single JSON document per session (not line-delimited), stored under
// a directory named by a project hash.
package geminicli

import "encoding/json"

type document struct {
	SessionID   string          `json:"sessionId"`
	ProjectHash string          `json:"projectHash"`
	Messages    []message       `json:"messages"`
	_           json.RawMessage `json:"-"`
}

type message struct {
	Role      string     `json:"role"` // "user" | "gemini" | "info"
	Timestamp string     `json:"timestamp"`
	Text      string     `json:"text"`
	Thoughts  []thought  `json:"thoughts,omitempty"`
	ToolCalls []toolCall `json:"toolCalls,omitempty"`
}

type thought struct {
	Text string `json:"text"`
}

type toolCall struct {
	Name      string          `json:"name"`
	CallID    string          `json:"callId"`
	Arguments json.RawMessage `json:"arguments"`
	Status    string          `json:"status"` // "success" | "error"
	Output    string          `json:"output"`
}
