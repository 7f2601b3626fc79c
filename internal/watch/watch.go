// Package watch implements live tailing of an in-progress session log:
// attach to the newest session (or an explicit file path), follow appended
// bytes, and detect rotation or a vanished file — never assembling
// turns itself, only delivering newly normalized events to the caller.
package watch

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/agtrace/internal/agentevent"
	"github.com/nextlevelbuilder/agtrace/internal/index"
	"github.com/nextlevelbuilder/agtrace/internal/providers"
	"github.com/nextlevelbuilder/agtrace/internal/providers/claude"
	"github.com/nextlevelbuilder/agtrace/internal/providers/codex"
	"github.com/nextlevelbuilder/agtrace/internal/providers/geminicli"
)

// SignalKind classifies one delivery from the watcher.
type SignalKind int

const (
	Waiting SignalKind = iota
	Attached
	Appended
	Rotated
	Fatal
)

// Signal is one item delivered over the watcher's channel.
type Signal struct {
	Kind   SignalKind
	Path   string
	Events []agentevent.Event
	Err    error
}

// Target pins the watcher to a specific session file, or leaves
// SessionID empty to mean "attach to whichever session is newest in this
// project". SessionID is honoured only when it is the path of an existing
// file; any other value, such as a bare session id, is ignored and the
// newest session is used. Idx
// and ProjectHash, when set, scope "newest" to sessions indexed under
// that project; without an index the watcher falls back to the newest
// file anywhere under root, unscoped.
type Target struct {
	Provider    providers.Name
	SessionID   string // empty means attach-to-newest; an absolute path attaches directly
	Idx         *index.Index
	ProjectHash string
}

// tailState tracks one watched file's read position and identity.
// eventCount is the number of events already delivered from this file,
// used to slice a fresh re-parse down to just the new tail instead of
// approximating a byte offset against event count (line lengths vary,
// so a byte-fraction estimate can skip or duplicate records).
type tailState struct {
	path       string
	size       int64
	eventCount int
}

// Watcher polls one provider root and tails the attached file,
// delivering Signal values over a bounded channel. A context.Context
// cancellation is checked once per poll tick, never mid-read, so a
// single tick always completes cleanly.
type Watcher struct {
	poll   time.Duration
	buffer int
}

func New(poll time.Duration, buffer int) *Watcher {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Watcher{poll: poll, buffer: buffer}
}

// Run attaches to target under root and streams Signal values until ctx
// is cancelled. The returned channel is closed on exit; callers must
// drain it or the tailer blocks once the buffer fills (backpressure is
// intentional — a slow consumer should stall the tailer, not drop data).
func (w *Watcher) Run(ctx context.Context, root string, target Target) <-chan Signal {
	out := make(chan Signal, w.buffer)

	go func() {
		defer close(out)

		var state *tailState
		ticker := time.NewTicker(w.poll)
		defer ticker.Stop()

		// fsnotify wakes the loop immediately on write/create/rename instead
		// of waiting for the next poll tick; the ticker stays in the select
		// as a fallback for filesystems where inotify watches don't fire
		// (network mounts) or fsnotify.NewWatcher itself failed.
		var fsEvents <-chan fsnotify.Event
		fsw, fsErr := fsnotify.NewWatcher()
		if fsErr != nil {
			slog.Warn("watch: fsnotify unavailable, falling back to polling only", "error", fsErr)
		} else {
			defer fsw.Close()
			if err := fsw.Add(root); err != nil {
				slog.Warn("watch: fsnotify.Add failed, falling back to polling only", "root", root, "error", err)
			} else {
				fsEvents = fsw.Events
				go func() {
					for err := range fsw.Errors {
						slog.Warn("watch: fsnotify error", "error", err)
					}
				}()
			}
		}

		send := func(sig Signal) bool {
			select {
			case out <- sig:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(Signal{Kind: Waiting}) {
			return
		}

		// fsnotify can fire many events per write syscall (rename-then-write,
		// multiple appends in one batch); debounce fsnotify-triggered
		// reconciles so a burst collapses into one reparse instead of one
		// per event. Ticker-driven ticks bypass the limiter — they're
		// already paced at w.poll.
		burstLimiter := rate.NewLimiter(rate.Every(w.poll/4), 1)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-fsEvents:
				if !burstLimiter.Allow() {
					continue
				}
			}

			path, err := resolveAttachTarget(ctx, root, target)
			if err != nil {
				slog.Warn("watch: resolve target failed", "error", err)
				continue
			}
			if path == "" {
				continue // still waiting for a matching session to appear
			}

			info, err := os.Stat(path)
			if err != nil {
				if state != nil && state.path == path {
					if !send(Signal{Kind: Rotated, Path: path}) {
						return
					}
					state = nil
				}
				continue
			}

			if state == nil || state.path != path {
				state = &tailState{path: path}
				if !send(Signal{Kind: Attached, Path: path}) {
					return
				}
			}

			if info.Size() < state.size {
				// truncated in place: treat as rotation, restart from zero.
				if !send(Signal{Kind: Rotated, Path: path}) {
					return
				}
				state.eventCount = 0
			}
			prevSize := state.size
			state.size = info.Size()

			if info.Size() == prevSize {
				continue // nothing new this tick
			}

			events, newCount, err := tailNewEvents(target.Provider, path, state.eventCount)
			if err != nil {
				if !send(Signal{Kind: Fatal, Path: path, Err: err}) {
					return
				}
				return
			}
			state.eventCount = newCount
			if len(events) > 0 {
				if !send(Signal{Kind: Appended, Path: path, Events: events}) {
					return
				}
			}
		}
	}()

	return out
}

// resolveAttachTarget picks the file a Target should attach to. A
// direct-path target (SessionID set by the caller to an absolute path,
// used by tests and explicit session selection) is returned verbatim.
// Otherwise, when the Target carries an index, discovery is scoped to
// the newest session indexed under ProjectHash — events from another
// project's files MUST NOT cause the watcher to switch targets, so this
// path never falls back to the unscoped root-wide scan even when the
// project has no indexed session yet (an empty result means "keep
// waiting", not "look anywhere"). Without an index, the watcher has no
// project boundary to enforce and scans root directly.
func resolveAttachTarget(ctx context.Context, root string, target Target) (string, error) {
	if target.SessionID != "" {
		if _, err := os.Stat(target.SessionID); err == nil {
			return target.SessionID, nil
		}
	}
	if target.Idx != nil {
		return newestFileForProject(ctx, target.Idx, target.ProjectHash, target.Provider)
	}
	return newestFileUnder(root)
}

// tailNewEvents re-parses the whole file (cheap at session-log scale) and
// returns only the events past prevCount, alongside the file's new total
// event count. Re-parsing instead of incremental byte-range decoding
// avoids splitting a JSON record across two ticks, at the cost of
// re-deriving ids for already-seen events — harmless since event ids are
// deterministic and callers dedupe by id. Slicing by exact event count
// rather than a byte-offset fraction means a tick never skips or
// duplicates records because line lengths vary.
func tailNewEvents(provider providers.Name, path string, prevCount int) ([]agentevent.Event, int, error) {
	var all []agentevent.Event
	var err error
	switch provider {
	case providers.Claude:
		all, err = claude.ParseFile(path)
	case providers.Codex:
		all, err = codex.ParseFile(path)
	case providers.GeminiCLI:
		all, err = geminicli.ParseFile(path)
	default:
		return nil, prevCount, nil
	}
	if err != nil {
		return nil, prevCount, err
	}

	if prevCount >= len(all) {
		return nil, len(all), nil
	}
	return all[prevCount:], len(all), nil
}
