package config

import (
	"encoding/json"
	"fmt"
	"sync"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON, for provider
// lists that sometimes arrive as numeric enums from older config files.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for agtrace.
type Config struct {
	DataDir   string          `json:"data_dir,omitempty"`
	Providers ProvidersConfig `json:"providers"`
	Assembly  AssemblyConfig  `json:"assembly"`
	Watch     WatchConfig     `json:"watch"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`

	mu sync.RWMutex
}

// ProviderRoot is one enabled provider's log root on disk.
type ProviderRoot struct {
	Name    string `json:"name"`
	LogRoot string `json:"log_root"`
	Enabled bool   `json:"enabled"`
}

// ProvidersConfig lists the vendor log roots agtrace scans and tails.
type ProvidersConfig struct {
	Roots []ProviderRoot `json:"roots,omitempty"`
}

// AssemblyConfig controls session-assembly heuristics that spec.md leaves
// as an Open Question — see SPEC_FULL.md §9.
type AssemblyConfig struct {
	ContextWindow     int     `json:"context_window,omitempty"`      // fallback token budget when a model's real window is unknown
	ContextWarningPct float64 `json:"context_warning_pct,omitempty"` // "heavy" fraction of ContextWindow; copied into assemble.Options, no turn is flagged against it
	ContextAlertPct   float64 `json:"context_alert_pct,omitempty"`   // "critical" fraction; copied into assemble.Options, no turn is flagged against it
}

// WatchConfig controls the live-tail poll fallback (see SPEC_FULL.md §4.6).
type WatchConfig struct {
	PollInterval string `json:"poll_interval,omitempty"` // Go duration string, default "500ms"
	BufferSize   int    `json:"buffer_size,omitempty"`   // channel capacity for delivered signals
}

// TelemetryConfig holds OpenTelemetry trace-export settings. No package
// in this module reads it: o11y.Init takes its own InitOptions, and
// nothing calls o11y.Init.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	Pretty      bool   `json:"pretty,omitempty"` // stdouttrace.WithPrettyPrint
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DataDir = src.DataDir
	c.Providers = src.Providers
	c.Assembly = src.Assembly
	c.Watch = src.Watch
	c.Telemetry = src.Telemetry
}
