// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package inventory owns the cached view of the local model daemon: which
models are installed, how much disk and memory the host has, and
whether the daemon is reachable.

# Problem Statement

Every surface of the dashboard (CLI commands, HTTP handlers) needs the
same aggregate — model list plus system resources plus server status —
and none of them should trigger a daemon round-trip per render. At the
same time, a pull or delete must make the next read reflect reality,
and a dead daemon must degrade the display rather than blank it.

# Solution

A single Cache instance per process, constructed once and passed to all
callers:

	┌──────────────────────────────────────────────────────────────┐
	│                       GetSnapshot(force)                     │
	├──────────────────────────────────────────────────────────────┤
	│                                                              │
	│  cached fresh & !force ──────────────► return cached         │
	│                                                              │
	│  otherwise (singleflight, one refresh in flight at a time):  │
	│    1. read disk + memory stats (failure aborts the refresh)  │
	│    2. probe daemon heartbeat                                 │
	│       └─ unreachable: flag it, keep the previous model list  │
	│    3. fetch model list + daemon version                      │
	│    4. assemble immutable Snapshot, swap it in atomically     │
	│                                                              │
	└──────────────────────────────────────────────────────────────┘

Pull and delete invalidate the cache on every outcome, success or not,
so the caller's next read always re-fetches.

# Snapshot Consistency

A Snapshot is assembled from reads taken within one refresh and is
never mutated afterwards. Callers may hold a *Snapshot across requests;
it will simply go stale, never change underneath them.

# Failure Policy

  - Daemon unreachable: GetSnapshot succeeds with Server.Reachable
    false and the previous model list retained (no flicker to empty).
  - Malformed daemon response: the refresh fails with the parse error;
    the previous snapshot stays cached.
  - Disk/memory query failure: the refresh fails with the query error.
    These are host configuration problems, not transient conditions.

No retries happen here; retry policy belongs to the presentation layer
(the refresh button, effectively).
*/
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/llmdash/pkg/ollama"
	"github.com/AleutianAI/llmdash/pkg/sysinfo"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the snapshot lifetime used when Config.TTL is zero.
const DefaultTTL = 60 * time.Second

// ErrEmptyModelName rejects pull/delete calls with a blank identifier.
var ErrEmptyModelName = errors.New("model name must not be empty")

// -----------------------------------------------------------------------------
// Data Types
// -----------------------------------------------------------------------------

// ServerStatus reports daemon reachability as of the last probe.
type ServerStatus struct {
	// Reachable is true if the daemon answered its heartbeat.
	Reachable bool `json:"reachable"`

	// BaseURL is the daemon URL that was probed.
	BaseURL string `json:"base_url"`

	// Version is the daemon's reported version, empty if unknown.
	Version string `json:"version,omitempty"`

	// CheckedAt is when the probe ran.
	CheckedAt time.Time `json:"checked_at"`

	// Error describes the probe failure when Reachable is false.
	Error string `json:"error,omitempty"`
}

// Resources aggregates the host readings captured with a snapshot.
type Resources struct {
	Disk   sysinfo.DiskStats   `json:"disk"`
	Memory sysinfo.MemoryStats `json:"memory"`
}

// Snapshot is an immutable point-in-time view of the model inventory
// and host resources. All fields come from a single refresh cycle.
type Snapshot struct {
	// Models is the installed model list, sorted by name.
	Models []ollama.Model `json:"models"`

	// Resources holds disk and memory readings.
	Resources Resources `json:"resources"`

	// Server is the daemon status at refresh time.
	Server ServerStatus `json:"server"`

	// FetchedAt is when this snapshot was assembled.
	FetchedAt time.Time `json:"fetched_at"`
}

// TotalModelBytes sums the sizes of all models in the snapshot.
func (s *Snapshot) TotalModelBytes() int64 {
	var total int64
	for _, m := range s.Models {
		total += m.Size
	}
	return total
}

// HasModel reports whether the snapshot contains the named model.
// Both "model" and "model:latest" match.
func (s *Snapshot) HasModel(name string) bool {
	want := normalizeModelName(name)
	for _, m := range s.Models {
		if normalizeModelName(m.Name) == want {
			return true
		}
	}
	return false
}

// normalizeModelName lowercases and strips a :latest tag for comparison.
func normalizeModelName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ":latest")
}

// Result is the outcome of a mutating operation (pull or delete).
type Result struct {
	// OK is true when the daemon accepted and completed the operation.
	OK bool `json:"ok"`

	// Message is display text describing the outcome.
	Message string `json:"message"`

	// Err carries the structured failure, nil on success.
	Err error `json:"-"`
}

// -----------------------------------------------------------------------------
// Collaborator Interfaces
// -----------------------------------------------------------------------------

// Daemon is the slice of the Ollama client the cache depends on.
// *ollama.Client satisfies it; tests provide fakes.
type Daemon interface {
	Heartbeat(ctx context.Context) error
	Version(ctx context.Context) (string, error)
	ListModels(ctx context.Context) ([]ollama.Model, error)
	Pull(ctx context.Context, name string, progress ollama.PullProgress) error
	Delete(ctx context.Context, name string) error
	BaseURL() string
}

// -----------------------------------------------------------------------------
// Cache
// -----------------------------------------------------------------------------

// Config tunes a Cache.
type Config struct {
	// TTL is how long a snapshot stays fresh. Zero means DefaultTTL.
	TTL time.Duration

	// DiskPath is the filesystem path whose usage is monitored.
	// Empty means "/".
	DiskPath string
}

// Cache is the process-wide inventory cache. Construct one with New
// and share it by reference; it is safe for concurrent use.
type Cache struct {
	daemon   Daemon
	system   sysinfo.Reader
	ttl      time.Duration
	diskPath string

	// now is injectable for TTL tests.
	now func() time.Time

	mu      sync.Mutex
	snap    *Snapshot
	expired bool

	// group collapses concurrent refreshes into one daemon round-trip.
	group singleflight.Group
}

// New creates an inventory cache over the given daemon client and
// system reader.
func New(daemon Daemon, system sysinfo.Reader, cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.DiskPath == "" {
		cfg.DiskPath = "/"
	}
	return &Cache{
		daemon:   daemon,
		system:   system,
		ttl:      cfg.TTL,
		diskPath: cfg.DiskPath,
		now:      time.Now,
	}
}

// GetSnapshot returns the current inventory snapshot.
//
// The cached snapshot is returned as-is while it is younger than the
// TTL and has not been invalidated; force bypasses both checks.
// Concurrent refreshes are collapsed: callers arriving while a refresh
// is in flight wait for and share its result.
//
// Connectivity failures do not surface as errors — the returned
// snapshot carries Server.Reachable=false and keeps the previous model
// list. Parse and system-query failures fail the refresh; the previous
// snapshot (available via Cached) is retained.
func (c *Cache) GetSnapshot(ctx context.Context, force bool) (*Snapshot, error) {
	c.mu.Lock()
	if !force && !c.expired && c.snap != nil && c.now().Sub(c.snap.FetchedAt) < c.ttl {
		snap := c.snap
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()

	v, err, shared := c.group.Do("refresh", func() (any, error) {
		// The result is shared with every waiting caller, so the first
		// caller's cancellation must not poison it. The daemon client's
		// per-operation deadlines still bound the work.
		return c.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Reused in-flight inventory refresh")
	}
	return v.(*Snapshot), nil
}

// Cached returns the last successfully assembled snapshot without any
// I/O, or nil if no refresh has succeeded yet. The result may be stale.
func (c *Cache) Cached() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Invalidate marks the cached snapshot as expired. No I/O happens; the
// next GetSnapshot call performs a full refresh.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.expired = true
	c.mu.Unlock()
}

// refresh performs one full fetch cycle and swaps the result in.
func (c *Cache) refresh(ctx context.Context) (*Snapshot, error) {
	disk, err := c.system.DiskUsage(c.diskPath)
	if err != nil {
		return nil, fmt.Errorf("inventory refresh: %w", err)
	}
	mem, err := c.system.MemoryUsage()
	if err != nil {
		return nil, fmt.Errorf("inventory refresh: %w", err)
	}

	status := ServerStatus{
		BaseURL:   c.daemon.BaseURL(),
		CheckedAt: c.now(),
	}

	var models []ollama.Model
	if err := c.daemon.Heartbeat(ctx); err != nil {
		status.Error = err.Error()
		models = c.lastModels()
		slog.Warn("Ollama unreachable, serving degraded snapshot",
			"url", status.BaseURL, "error", err)
	} else {
		status.Reachable = true
		// Version is cosmetic; a failure here does not degrade the snapshot.
		if v, verr := c.daemon.Version(ctx); verr == nil {
			status.Version = v
		}

		list, lerr := c.daemon.ListModels(ctx)
		switch {
		case lerr == nil:
			models = list
		case ollama.IsKind(lerr, ollama.KindConnectivity):
			// Daemon died between heartbeat and list. Same degradation
			// as a failed heartbeat.
			status.Reachable = false
			status.Error = lerr.Error()
			models = c.lastModels()
		default:
			return nil, fmt.Errorf("inventory refresh: %w", lerr)
		}
	}

	snap := &Snapshot{
		Models:    models,
		Resources: Resources{Disk: disk, Memory: mem},
		Server:    status,
		FetchedAt: c.now(),
	}

	c.mu.Lock()
	c.snap = snap
	c.expired = false
	c.mu.Unlock()

	slog.Debug("Inventory refreshed",
		"models", len(snap.Models), "reachable", status.Reachable)
	return snap, nil
}

// lastModels returns the previous snapshot's model list, or nil.
// Preferring the stale list over an empty one avoids UI flicker when
// the daemon restarts.
func (c *Cache) lastModels() []ollama.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return nil
	}
	return c.snap.Models
}

// -----------------------------------------------------------------------------
// Mutating Operations
// -----------------------------------------------------------------------------

// PullModel downloads a model through the daemon.
//
// The cache is invalidated on every outcome so the next read reflects
// reality — a failed pull may still have changed daemon state. The
// progress callback is optional; nil makes the pull one blocking call.
func (c *Cache) PullModel(ctx context.Context, name string, progress ollama.PullProgress) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{Message: ErrEmptyModelName.Error(), Err: ErrEmptyModelName}
	}

	defer c.Invalidate()

	if err := c.daemon.Pull(ctx, name, progress); err != nil {
		return Result{Message: err.Error(), Err: err}
	}
	return Result{OK: true, Message: fmt.Sprintf("model %q pulled", name)}
}

// DeleteModel removes a model through the daemon.
//
// A model unknown to the daemon yields a NOT_FOUND result (check with
// ollama.IsKind on Result.Err). The cache is invalidated on every
// outcome, same as PullModel.
func (c *Cache) DeleteModel(ctx context.Context, name string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{Message: ErrEmptyModelName.Error(), Err: ErrEmptyModelName}
	}

	defer c.Invalidate()

	if err := c.daemon.Delete(ctx, name); err != nil {
		return Result{Message: err.Error(), Err: err}
	}
	return Result{OK: true, Message: fmt.Sprintf("model %q deleted", name)}
}
