package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

const defaultDataDirName = ".agtrace"

// Default returns a Config with sensible defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(home, defaultDataDirName),
		Providers: ProvidersConfig{
			Roots: []ProviderRoot{
				{Name: "claude", LogRoot: filepath.Join(home, ".claude", "projects"), Enabled: true},
				{Name: "codex", LogRoot: filepath.Join(home, ".codex", "sessions"), Enabled: true},
				{Name: "geminicli", LogRoot: filepath.Join(home, ".gemini", "tmp"), Enabled: true},
			},
		},
		Assembly: AssemblyConfig{
			ContextWindow:     200000,
			ContextWarningPct: 0.75,
			ContextAlertPct:   0.90,
		},
		Watch: WatchConfig{
			PollInterval: "500ms",
			BufferSize:   256,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "agtrace",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars. A missing
// file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config. Env vars take
// precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("AGTRACE_DATA_DIR", &c.DataDir)
	envStr("AGTRACE_POLL_INTERVAL", &c.Watch.PollInterval)

	if v := os.Getenv("AGTRACE_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("AGTRACE_CONTEXT_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Assembly.ContextWindow = n
		}
	}
}

// Save writes the config to a JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Hash returns a SHA-256 hash of the config for optimistic concurrency
// between CLI invocations sharing one data directory.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

// IndexPath returns the path to the sqlite pointer index under DataDir.
func (c *Config) IndexPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return filepath.Join(ExpandHome(c.DataDir), "index.db")
}

// EnabledRoots returns the providers with Enabled set, in config order.
func (c *Config) EnabledRoots() []ProviderRoot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ProviderRoot, 0, len(c.Providers.Roots))
	for _, r := range c.Providers.Roots {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
