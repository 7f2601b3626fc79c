// Package codex normalizes the Codex-style session log format: one JSON
// object per line under rollout-*.jsonl files, discriminated by "type",
// with a mix of async EventMsg notifications and richer ResponseItem
// entries.
package codex

import "encoding/json"

// Record is the line-delimited envelope, resolved by Kind before
// decoding into the specific shape.
type Record struct {
	Kind string `json:"type"`
	Raw  json.RawMessage
}

type eventMsg struct {
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type eventMsgPayload struct {
	Type string `json:"type"`
}

type tokenCountPayload struct {
	Type string          `json:"type"`
	Info *tokenCountInfo `json:"info"`
}

type tokenCountInfo struct {
	LastTokenUsage lastTokenUsage `json:"last_token_usage"`
}

type lastTokenUsage struct {
	InputTokens            int `json:"input_tokens"`
	CachedInputTokens      int `json:"cached_input_tokens"`
	OutputTokens           int `json:"output_tokens"`
	ReasoningOutputTokens  int `json:"reasoning_output_tokens"`
	TotalTokens            int `json:"total_tokens"`
}

type responseItem struct {
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type responseItemPayload struct {
	Type string `json:"type"`
}

type messagePayload struct {
	Type    string           `json:"type"`
	Role    string           `json:"role"`
	Content []messageContent `json:"content"`
}

type messageContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type reasoningPayload struct {
	Type    string        `json:"type"`
	Content *string       `json:"content"`
	Summary []summaryText `json:"summary"`
}

type summaryText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type functionCallPayload struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	CallID    string `json:"call_id"`
}

type functionCallOutputPayload struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

type customToolCallPayload struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Input  string `json:"input"`
	CallID string `json:"call_id"`
}

type customToolCallOutputPayload struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

type turnContext struct {
	Payload turnContextPayload `json:"payload"`
}

type turnContextPayload struct {
	Model string `json:"model"`
}
