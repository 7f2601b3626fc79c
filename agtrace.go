// Package agtrace is the root facade over agtrace's internal packages: a
// thin, dependency-light surface a collaborator (the cmd/agtrace CLI, or
// any other Go program) can import without reaching into internal/.
package agtrace

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/agtraceerr"
	"github.com/nextlevelbuilder/agtrace/internal/assemble"
	"github.com/nextlevelbuilder/agtrace/internal/config"
	"github.com/nextlevelbuilder/agtrace/internal/index"
	"github.com/nextlevelbuilder/agtrace/internal/lens"
	"github.com/nextlevelbuilder/agtrace/internal/projecthash"
	"github.com/nextlevelbuilder/agtrace/internal/providers"
	"github.com/nextlevelbuilder/agtrace/internal/providers/claude"
	"github.com/nextlevelbuilder/agtrace/internal/providers/codex"
	"github.com/nextlevelbuilder/agtrace/internal/providers/geminicli"
	"github.com/nextlevelbuilder/agtrace/internal/query"
	"github.com/nextlevelbuilder/agtrace/internal/scanner"
	"github.com/nextlevelbuilder/agtrace/internal/watch"
)

// ProviderInfo describes one vendor's detected log root.
type ProviderInfo struct {
	Name    providers.Name
	LogRoot string
	Exists  bool
}

// Detect probes the default log root for every supported vendor and
// reports which ones exist on this machine.
func Detect(ctx context.Context) ([]ProviderInfo, error) {
	cfg := config.Default()
	out := make([]ProviderInfo, 0, len(cfg.Providers.Roots))
	for _, r := range cfg.Providers.Roots {
		_, err := os.Stat(config.ExpandHome(r.LogRoot))
		out = append(out, ProviderInfo{Name: providers.Name(r.Name), LogRoot: r.LogRoot, Exists: err == nil})
	}
	return out, nil
}

// Providers is a lightweight handle onto parsing and diagnostic
// operations that require no pointer index: parsing a single file,
// checking whether a file parses cleanly, and running a provider root
// sweep. Use Client instead for session browsing and querying.
type Providers struct {
	cfg *config.Config
}

// WithConfig builds a Providers handle bound to cfg.
func WithConfig(cfg *config.Config) *Providers {
	return &Providers{cfg: cfg}
}

// ParseAuto detects which vendor format path belongs to from its
// filename, then parses it.
func (p *Providers) ParseAuto(ctx context.Context, path string) ([]agentevent.Event, error) {
	name, err := detectProviderFromPath(path)
	if err != nil {
		return nil, err
	}
	return parseFile(name, path)
}

// ParseFile parses path using the named vendor's normalizer explicitly.
func (p *Providers) ParseFile(ctx context.Context, path string, name providers.Name) ([]agentevent.Event, error) {
	return parseFile(name, path)
}

// Diagnosis is the per-provider result of a Diagnose sweep.
type Diagnosis struct {
	Provider   providers.Name
	TotalFiles int
	Successful int
	Failed     int
	Errors     []string
}

// Diagnose walks every enabled provider root and tallies how many of its
// files parse cleanly, the way `doctor run` reports corpus health before
// any indexing happens.
func (p *Providers) Diagnose(ctx context.Context) ([]Diagnosis, error) {
	var out []Diagnosis
	for _, root := range p.cfg.EnabledRoots() {
		name := providers.Name(root.Name)
		d := Diagnosis{Provider: name}

		err := filepath.WalkDir(config.ExpandHome(root.LogRoot), func(path string, entry os.DirEntry, err error) error {
			if err != nil || entry.IsDir() {
				return nil
			}
			if !matchesProvider(name, path) {
				return nil
			}
			d.TotalFiles++
			if _, perr := parseFile(name, path); perr != nil {
				d.Failed++
				d.Errors = append(d.Errors, fmt.Sprintf("%s: %v", path, perr))
			} else {
				d.Successful++
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("agtrace.Diagnose: %w", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// CheckFile reports whether path parses cleanly under the given vendor,
// or under auto-detection if name is empty.
func (p *Providers) CheckFile(ctx context.Context, path string, name providers.Name) error {
	if name == "" {
		detected, err := detectProviderFromPath(path)
		if err != nil {
			return err
		}
		name = detected
	}
	_, err := parseFile(name, path)
	return err
}

// FileInspection is the lightweight, unparsed preview InspectFile returns.
type FileInspection struct {
	Path        string
	TotalLines  int
	ShownLines  []string
	TruncatedAt int
}

// InspectFile returns the first n lines of path without normalizing it,
// for a human to eyeball a session file's raw shape.
func (p *Providers) InspectFile(ctx context.Context, path string, n int) (FileInspection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileInspection{}, agtraceerr.New(agtraceerr.FileUnreadable, "agtrace.InspectFile", err)
	}
	lines := strings.Split(string(data), "\n")
	shown := lines
	truncated := 0
	if n > 0 && len(lines) > n {
		shown = lines[:n]
		truncated = n
	}
	return FileInspection{Path: path, TotalLines: len(lines), ShownLines: shown, TruncatedAt: truncated}, nil
}

func detectProviderFromPath(path string) (providers.Name, error) {
	base := filepath.Base(path)
	switch {
	case strings.Contains(base, "rollout-") && strings.HasSuffix(base, ".jsonl"):
		return providers.Codex, nil
	case strings.HasSuffix(base, ".jsonl"):
		return providers.Claude, nil
	case strings.HasSuffix(base, ".json"):
		return providers.GeminiCLI, nil
	default:
		return "", agtraceerr.New(agtraceerr.NotFound, "agtrace.detectProviderFromPath", fmt.Errorf("no provider matches %q", path))
	}
}

func matchesProvider(p providers.Name, path string) bool {
	base := filepath.Base(path)
	switch p {
	case providers.Claude:
		return strings.HasSuffix(base, ".jsonl") && !strings.Contains(base, "rollout-")
	case providers.Codex:
		return strings.Contains(base, "rollout-") && strings.HasSuffix(base, ".jsonl")
	case providers.GeminiCLI:
		return strings.HasSuffix(base, ".json")
	default:
		return false
	}
}

func parseFile(name providers.Name, path string) ([]agentevent.Event, error) {
	switch name {
	case providers.Claude:
		return claude.ParseFile(path)
	case providers.Codex:
		return codex.ParseFile(path)
	case providers.GeminiCLI:
		return geminicli.ParseFile(path)
	default:
		return nil, agtraceerr.New(agtraceerr.InvalidInput, "agtrace.parseFile", fmt.Errorf("unknown provider %q", name))
	}
}

// Client is the full workspace handle: session browsing, querying,
// packing, and live watching, all backed by a pointer index.
type Client struct {
	idx *index.Index
	q   *query.Service
	cfg *config.Config
}

// NewClient wraps an already-open pointer index with the full query
// surface, using cfg's assembly thresholds for turn/step assembly.
func NewClient(idx *index.Index, cfg *config.Config) *Client {
	opts := assemble.Options{
		ContextWindow:     cfg.Assembly.ContextWindow,
		ContextWarningPct: cfg.Assembly.ContextWarningPct,
		ContextAlertPct:   cfg.Assembly.ContextAlertPct,
	}
	return &Client{idx: idx, q: query.New(idx, opts), cfg: cfg}
}

// Update runs a full incremental scan over every enabled provider root,
// upserting new or changed files into the pointer index.
func (c *Client) Update(ctx context.Context, concurrency int) error {
	sc := scanner.New(c.idx, concurrency)
	roots := make([]scanner.Root, 0, len(c.cfg.EnabledRoots()))
	for _, r := range c.cfg.EnabledRoots() {
		roots = append(roots, scanner.Root{Provider: providers.Name(r.Name), LogRoot: config.ExpandHome(r.LogRoot)})
	}
	return sc.Scan(ctx, roots)
}

// Sessions returns the session-query collaborator bound to this client.
func (c *Client) Sessions() *SessionQueries {
	return &SessionQueries{q: c.q}
}

// PackContext selects a provider-balanced, health-scored sample of
// sessions under projectHash.
func (c *Client) PackContext(ctx context.Context, projectHash string, limit int) (query.PackResult, error) {
	return c.q.Pack(ctx, projectHash, limit)
}

// Stats returns corpus-wide tool-call and failure counts for a sample of
// sessions under projectHash.
func (c *Client) Stats(ctx context.Context, projectHash string, limit int) (query.CorpusStats, error) {
	return c.q.Stats(ctx, projectHash, limit)
}

// ToolStats returns per-provider tool usage counts and samples.
func (c *Client) ToolStats(ctx context.Context, limit int, provider string) (query.ToolStatsResult, error) {
	return c.q.ToolStats(ctx, limit, provider)
}

// Watch returns a builder for attaching a live tail to a provider root.
// The returned builder scopes discovery to the current working
// directory's project by default; call AllProjects or Project to
// override.
func (c *Client) Watch() *WatchBuilder {
	return &WatchBuilder{cfg: c.cfg, idx: c.idx}
}

// SessionFilter narrows a session listing.
type SessionFilter struct {
	ProjectHash string
	Provider    string
	Limit       int
}

// SessionQueries is the session-browsing collaborator returned by
// Client.Sessions.
type SessionQueries struct {
	q *query.Service
}

// List returns index rows matching filter, newest first.
func (sq *SessionQueries) List(ctx context.Context, filter SessionFilter) ([]index.SessionRow, error) {
	return sq.q.ListSessions(ctx, filter.ProjectHash, filter.Provider, filter.Limit)
}

// Find locates one session by the session id the index records for it
// (the derived session UUID string, not the vendor's own id) and returns
// a handle for loading its events.
func (sq *SessionQueries) Find(ctx context.Context, sessionID string) (*SessionHandle, error) {
	rows, err := sq.q.ListSessions(ctx, "", "", 0)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.SessionID == sessionID {
			return &SessionHandle{q: sq.q, row: row}, nil
		}
	}
	return nil, agtraceerr.New(agtraceerr.NotFound, "agtrace.SessionQueries.Find", fmt.Errorf("session %q not found", sessionID))
}

// SessionHandle is a single located session, lazily loadable.
type SessionHandle struct {
	q   *query.Service
	row index.SessionRow
}

// Events reparses and merges every file backing this session.
func (h *SessionHandle) Events(ctx context.Context) ([]agentevent.Event, error) {
	return h.q.LoadEvents(ctx, h.row)
}

// Assembled loads and assembles this session's turns and steps.
func (h *SessionHandle) Assembled(ctx context.Context) (assemble.Session, error) {
	return h.q.GetSession(ctx, h.row, "")
}

// RawFiles returns the index's file rows backing this session.
func (h *SessionHandle) RawFiles(ctx context.Context) ([]index.FileRow, error) {
	return h.q.LoadRawFiles(ctx, h.row.SessionID)
}

// Export writes this session's events to w in the given format.
func (h *SessionHandle) Export(ctx context.Context, w io.Writer, format query.ExportFormat) error {
	events, err := h.Events(ctx)
	if err != nil {
		return err
	}
	return query.Export(w, events, format)
}

// WatchBuilder configures and starts a live tail.
type WatchBuilder struct {
	cfg         *config.Config
	idx         *index.Index
	provider    providers.Name
	sessID      string
	projectHash string
	allProjects bool
}

// Provider pins the watch to one vendor's log root.
func (b *WatchBuilder) Provider(name providers.Name) *WatchBuilder {
	b.provider = name
	return b
}

// SessionID pins the watch to a specific session file, given as a path,
// instead of attaching to whichever file is newest. A value that is not
// an existing file path is ignored and the newest file is used.
func (b *WatchBuilder) SessionID(id string) *WatchBuilder {
	b.sessID = id
	return b
}

// Project scopes "newest" to sessions started under cwd, overriding the
// default of the caller's own working directory.
func (b *WatchBuilder) Project(cwd string) *WatchBuilder {
	b.projectHash = projecthash.Hash(cwd)
	return b
}

// AllProjects disables project scoping, attaching to the newest session
// indexed for the provider regardless of which project it belongs to.
func (b *WatchBuilder) AllProjects() *WatchBuilder {
	b.allProjects = true
	return b
}

// Start resolves the configured provider's log root and begins tailing
// it, returning a LiveStream the caller drains until ctx is cancelled.
func (b *WatchBuilder) Start(ctx context.Context) (*LiveStream, error) {
	if b.provider == "" {
		return nil, agtraceerr.New(agtraceerr.InvalidInput, "agtrace.WatchBuilder.Start", fmt.Errorf("no provider set"))
	}
	var root string
	for _, r := range b.cfg.EnabledRoots() {
		if providers.Name(r.Name) == b.provider {
			root = config.ExpandHome(r.LogRoot)
			break
		}
	}
	if root == "" {
		return nil, agtraceerr.New(agtraceerr.NotFound, "agtrace.WatchBuilder.Start", fmt.Errorf("provider %q not enabled", b.provider))
	}

	target := watch.Target{Provider: b.provider, SessionID: b.sessID}
	if b.idx != nil && !b.allProjects {
		target.Idx = b.idx
		target.ProjectHash = b.projectHash
		if target.ProjectHash == "" {
			if cwd, err := os.Getwd(); err == nil {
				target.ProjectHash = projecthash.Hash(cwd)
			}
		}
	}

	poll, _ := time.ParseDuration(b.cfg.Watch.PollInterval)
	w := watch.New(poll, b.cfg.Watch.BufferSize)
	ch := w.Run(ctx, root, target)
	return &LiveStream{ch: ch}, nil
}

// LiveStream delivers watch.Signal values as a session file changes.
type LiveStream struct {
	ch <-chan watch.Signal
}

// NextBlocking waits for the next signal or ctx cancellation, reporting
// false once the stream is closed.
func (s *LiveStream) NextBlocking(ctx context.Context) (watch.Signal, bool) {
	select {
	case sig, ok := <-s.ch:
		return sig, ok
	case <-ctx.Done():
		return watch.Signal{}, false
	}
}

// TryNext returns the next signal if one is already buffered, without
// blocking.
func (s *LiveStream) TryNext() (watch.Signal, bool) {
	select {
	case sig, ok := <-s.ch:
		return sig, ok
	default:
		return watch.Signal{}, false
	}
}

// SessionAnalyzer runs diagnostic lenses over one assembled session and
// reduces their findings to a health score.
type SessionAnalyzer struct {
	session assemble.Session
	lenses  []lens.Lens
}

// NewSessionAnalyzer starts an analyzer over an already-assembled session.
func NewSessionAnalyzer(session assemble.Session) *SessionAnalyzer {
	return &SessionAnalyzer{session: session}
}

// Through adds lenses to run. Calling it multiple times accumulates.
func (a *SessionAnalyzer) Through(lenses ...lens.Lens) *SessionAnalyzer {
	a.lenses = append(a.lenses, lenses...)
	return a
}

// Report runs every added lens and reduces the findings to a Report.
func (a *SessionAnalyzer) Report() lens.Report {
	return lens.Run(a.session, a.lenses...)
}
