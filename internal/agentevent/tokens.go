package agentevent

// TokenUsage is the canonical, reconciled token accounting shape. Vendors
// report usage in one of two incompatible dialects (cumulative-per-session
// vs incremental-per-record); normalizers are responsible for converting
// into this shape before emitting a TokenUsagePayload.
type TokenUsage struct {
	Input  InputTokens
	Output OutputTokens
}

type InputTokens struct {
	Cached   int
	Uncached int
}

type OutputTokens struct {
	Generated int
	Reasoning int // left 0 when the vendor doesn't report a split (e.g. Claude)
	Tool      int
}

// Equal reports whether two usages carry identical figures, used to
// suppress consecutive duplicate TokenUsage events a vendor may re-report
// unchanged across several records.
func (u TokenUsage) Equal(o TokenUsage) bool {
	return u.Input == o.Input && u.Output == o.Output
}

// Total returns the sum of every counted token.
func (u TokenUsage) Total() int {
	return u.Input.Cached + u.Input.Uncached + u.Output.Generated + u.Output.Reasoning + u.Output.Tool
}
