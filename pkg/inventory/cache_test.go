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
Package inventory unit tests.

# Testing Strategy

The cache is exercised against a fake daemon and a fake system reader,
with an injected clock for TTL behavior. No network or filesystem I/O.

Covered behaviors:
  - Snapshot identity within the TTL window (no hidden refresh)
  - Invalidation forcing the next read to refetch
  - Pull/delete invalidating on success and on failure
  - Degraded snapshots preserving the previous model list
  - Parse and system-query failures retaining the cached snapshot
  - Concurrent readers sharing a single in-flight refresh
*/
package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/llmdash/pkg/ollama"
	"github.com/AleutianAI/llmdash/pkg/sysinfo"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type fakeDaemon struct {
	mu           sync.Mutex
	models       []ollama.Model
	version      string
	heartbeatErr error
	listErr      error
	pullErr      error
	deleteErr    error

	heartbeatCalls int
	listCalls      int
	pulled         []string
	deleted        []string

	// listGate, when set, blocks ListModels until closed. Used to hold
	// a refresh in flight while other callers pile up.
	listGate    chan struct{}
	listEntered chan struct{}

	// respectCtx makes ListModels honor context cancellation once the
	// gate opens, the way the real client does.
	respectCtx bool
}

func (d *fakeDaemon) Heartbeat(ctx context.Context) error {
	d.mu.Lock()
	d.heartbeatCalls++
	err := d.heartbeatErr
	d.mu.Unlock()
	return err
}

func (d *fakeDaemon) Version(ctx context.Context) (string, error) {
	return d.version, nil
}

func (d *fakeDaemon) ListModels(ctx context.Context) ([]ollama.Model, error) {
	d.mu.Lock()
	d.listCalls++
	entered := d.listEntered
	gate := d.listGate
	err := d.listErr
	models := append([]ollama.Model(nil), d.models...)
	d.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if d.respectCtx && ctx.Err() != nil {
		return nil, &ollama.ClientError{Kind: ollama.KindCancelled, Message: "Request cancelled"}
	}
	if err != nil {
		return nil, err
	}
	return models, nil
}

func (d *fakeDaemon) Pull(ctx context.Context, name string, progress ollama.PullProgress) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pulled = append(d.pulled, name)
	if d.pullErr != nil {
		return d.pullErr
	}
	d.models = append(d.models, ollama.Model{Name: name, Size: 1000})
	return nil
}

func (d *fakeDaemon) Delete(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, name)
	if d.deleteErr != nil {
		return d.deleteErr
	}
	kept := d.models[:0]
	found := false
	for _, m := range d.models {
		if m.Name == name {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	d.models = kept
	if !found {
		return &ollama.ClientError{Kind: ollama.KindNotFound, Model: name, Message: "model not found"}
	}
	return nil
}

func (d *fakeDaemon) BaseURL() string { return "http://fake:11434" }

type fakeSystem struct {
	disk    sysinfo.DiskStats
	memory  sysinfo.MemoryStats
	diskErr error
	memErr  error
}

func (s *fakeSystem) DiskUsage(path string) (sysinfo.DiskStats, error) {
	if s.diskErr != nil {
		return sysinfo.DiskStats{}, s.diskErr
	}
	stats := s.disk
	stats.Path = path
	return stats, nil
}

func (s *fakeSystem) MemoryUsage() (sysinfo.MemoryStats, error) {
	if s.memErr != nil {
		return sysinfo.MemoryStats{}, s.memErr
	}
	return s.memory, nil
}

// fakeClock drives the cache's TTL accounting.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

const gb = 1024 * 1024 * 1024

func newTestCache(d *fakeDaemon, clock *fakeClock, ttl time.Duration) *Cache {
	system := &fakeSystem{
		disk:   sysinfo.DiskStats{TotalBytes: 100 * gb, UsedBytes: 50 * gb, FreeBytes: 50 * gb, UsedPercent: 50},
		memory: sysinfo.MemoryStats{TotalBytes: 32 * gb, UsedBytes: 16 * gb, AvailableBytes: 16 * gb, UsedPercent: 50},
	}
	c := New(d, system, Config{TTL: ttl, DiskPath: "/data"})
	if clock != nil {
		c.now = clock.Now
	}
	return c
}

func twoModels() []ollama.Model {
	return []ollama.Model{
		{Name: "llama3:8b", Size: 4 * gb},
		{Name: "mistral", Size: 3 * gb},
	}
}

// -----------------------------------------------------------------------------
// TTL Behavior
// -----------------------------------------------------------------------------

func TestGetSnapshot_CachedWithinTTL(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	cache := newTestCache(daemon, nil, time.Minute)

	first, err := cache.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("first GetSnapshot failed: %v", err)
	}
	second, err := cache.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("second GetSnapshot failed: %v", err)
	}

	if first != second {
		t.Error("snapshots within the TTL window should be identical")
	}
	if daemon.listCalls != 1 {
		t.Errorf("expected 1 list call, got %d", daemon.listCalls)
	}
}

func TestGetSnapshot_TTLExpiry(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	clock := newFakeClock()
	cache := newTestCache(daemon, clock, 5*time.Second)

	snapA, err := cache.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("GetSnapshot at t=0 failed: %v", err)
	}

	clock.Advance(2 * time.Second)
	snapStill, err := cache.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("GetSnapshot at t=2 failed: %v", err)
	}
	if snapStill != snapA {
		t.Error("snapshot at t=2s should still be snapshot A")
	}
	if daemon.listCalls != 1 {
		t.Errorf("no fetch expected at t=2s, got %d list calls", daemon.listCalls)
	}

	clock.Advance(4 * time.Second) // t=6, past the 5s TTL
	snapB, err := cache.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("GetSnapshot at t=6 failed: %v", err)
	}
	if snapB == snapA {
		t.Error("snapshot at t=6s should be a fresh fetch")
	}
	if !snapB.FetchedAt.After(snapA.FetchedAt) {
		t.Errorf("fresh snapshot should have a newer FetchedAt: %v vs %v",
			snapB.FetchedAt, snapA.FetchedAt)
	}
	if daemon.listCalls != 2 {
		t.Errorf("expected 2 list calls after expiry, got %d", daemon.listCalls)
	}
}

func TestGetSnapshot_ForceBypassesTTL(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	cache := newTestCache(daemon, nil, time.Hour)

	if _, err := cache.GetSnapshot(context.Background(), false); err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if _, err := cache.GetSnapshot(context.Background(), true); err != nil {
		t.Fatalf("forced GetSnapshot failed: %v", err)
	}

	if daemon.listCalls != 2 {
		t.Errorf("force should refetch, got %d list calls", daemon.listCalls)
	}
}

// -----------------------------------------------------------------------------
// Invalidation
// -----------------------------------------------------------------------------

func TestInvalidate_ForcesNextRefresh(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	cache := newTestCache(daemon, nil, time.Hour)

	if _, err := cache.GetSnapshot(context.Background(), false); err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}

	cache.Invalidate()

	if _, err := cache.GetSnapshot(context.Background(), false); err != nil {
		t.Fatalf("GetSnapshot after Invalidate failed: %v", err)
	}
	if daemon.listCalls != 2 {
		t.Errorf("expected refetch after Invalidate, got %d list calls", daemon.listCalls)
	}
}

func TestInvalidate_PerformsNoIO(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	cache := newTestCache(daemon, nil, time.Hour)

	cache.Invalidate()

	if daemon.listCalls != 0 || daemon.heartbeatCalls != 0 {
		t.Errorf("Invalidate must not touch the daemon: list=%d heartbeat=%d",
			daemon.listCalls, daemon.heartbeatCalls)
	}
}

// -----------------------------------------------------------------------------
// Degraded Mode
// -----------------------------------------------------------------------------

func TestGetSnapshot_UnreachablePreservesPreviousModels(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	cache := newTestCache(daemon, nil, time.Hour)

	if _, err := cache.GetSnapshot(context.Background(), false); err != nil {
		t.Fatalf("initial GetSnapshot failed: %v", err)
	}

	daemon.mu.Lock()
	daemon.heartbeatErr = &ollama.ClientError{Kind: ollama.KindConnectivity, Message: "connection refused"}
	daemon.mu.Unlock()

	snap, err := cache.GetSnapshot(context.Background(), true)
	if err != nil {
		t.Fatalf("degraded GetSnapshot should not error: %v", err)
	}

	if snap.Server.Reachable {
		t.Error("Server.Reachable should be false when the heartbeat fails")
	}
	if snap.Server.Error == "" {
		t.Error("Server.Error should describe the failure")
	}
	if len(snap.Models) != 2 {
		t.Errorf("previous model list should be preserved, got %d models", len(snap.Models))
	}
}

func TestGetSnapshot_UnreachableWithNoHistory(t *testing.T) {
	daemon := &fakeDaemon{
		heartbeatErr: &ollama.ClientError{Kind: ollama.KindConnectivity, Message: "connection refused"},
	}
	cache := newTestCache(daemon, nil, time.Hour)

	snap, err := cache.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("GetSnapshot should degrade, not fail: %v", err)
	}
	if snap.Server.Reachable {
		t.Error("Server.Reachable should be false")
	}
	if len(snap.Models) != 0 {
		t.Errorf("no history means an empty model list, got %d", len(snap.Models))
	}
	if snap.Resources.Disk.TotalBytes == 0 {
		t.Error("system stats should still be captured in a degraded snapshot")
	}
}

func TestGetSnapshot_ListConnectivityFailureDegrades(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	cache := newTestCache(daemon, nil, time.Hour)

	if _, err := cache.GetSnapshot(context.Background(), false); err != nil {
		t.Fatalf("initial GetSnapshot failed: %v", err)
	}

	// Heartbeat succeeds but the list call hits a dead daemon.
	daemon.mu.Lock()
	daemon.listErr = &ollama.ClientError{Kind: ollama.KindConnectivity, Message: "connection reset"}
	daemon.mu.Unlock()

	snap, err := cache.GetSnapshot(context.Background(), true)
	if err != nil {
		t.Fatalf("expected degraded snapshot, got error: %v", err)
	}
	if snap.Server.Reachable {
		t.Error("Server.Reachable should be false")
	}
	if len(snap.Models) != 2 {
		t.Errorf("previous model list should be preserved, got %d", len(snap.Models))
	}
}

func TestGetSnapshot_ListTimeoutDegrades(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	cache := newTestCache(daemon, nil, time.Hour)

	if _, err := cache.GetSnapshot(context.Background(), false); err != nil {
		t.Fatalf("initial GetSnapshot failed: %v", err)
	}

	// A hung daemon surfaces from the client as a connectivity error
	// once its internal deadline expires.
	daemon.mu.Lock()
	daemon.listErr = &ollama.ClientError{
		Kind:    ollama.KindConnectivity,
		Message: "Cannot connect to Ollama",
		Detail:  "context deadline exceeded",
	}
	daemon.mu.Unlock()

	snap, err := cache.GetSnapshot(context.Background(), true)
	if err != nil {
		t.Fatalf("a timed-out daemon should degrade the snapshot, not fail the read: %v", err)
	}
	if snap.Server.Reachable {
		t.Error("Server.Reachable should be false")
	}
	if len(snap.Models) != 2 {
		t.Errorf("previous model list should be preserved, got %d", len(snap.Models))
	}
}

// -----------------------------------------------------------------------------
// Hard Failures
// -----------------------------------------------------------------------------

func TestGetSnapshot_ParseErrorRetainsCachedSnapshot(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	cache := newTestCache(daemon, nil, time.Hour)

	before, err := cache.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("initial GetSnapshot failed: %v", err)
	}

	daemon.mu.Lock()
	daemon.listErr = &ollama.ClientError{Kind: ollama.KindParse, Message: "malformed body"}
	daemon.mu.Unlock()

	_, err = cache.GetSnapshot(context.Background(), true)
	if err == nil {
		t.Fatal("parse failure should fail the refresh")
	}
	if !ollama.IsKind(err, ollama.KindParse) {
		t.Errorf("error should wrap the parse failure, got %v", err)
	}

	if cache.Cached() != before {
		t.Error("failed refresh must retain the previous snapshot")
	}
}

func TestGetSnapshot_SystemQueryFailureFailsRefresh(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	system := &fakeSystem{
		diskErr: &sysinfo.QueryError{Resource: "disk", Path: "/data", Err: errors.New("no such path")},
	}
	cache := New(daemon, system, Config{TTL: time.Hour, DiskPath: "/data"})

	_, err := cache.GetSnapshot(context.Background(), false)
	if err == nil {
		t.Fatal("disk query failure should fail the refresh")
	}

	var qe *sysinfo.QueryError
	if !errors.As(err, &qe) {
		t.Errorf("error should wrap *sysinfo.QueryError, got %v", err)
	}
	if daemon.heartbeatCalls != 0 {
		t.Error("refresh should abort before touching the daemon")
	}
}

// -----------------------------------------------------------------------------
// Pull / Delete
// -----------------------------------------------------------------------------

func TestPullModel_InvalidatesCache(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	cache := newTestCache(daemon, nil, time.Hour)

	if _, err := cache.GetSnapshot(context.Background(), false); err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}

	res := cache.PullModel(context.Background(), "phi3", nil)
	if !res.OK {
		t.Fatalf("PullModel failed: %s", res.Message)
	}

	snap, err := cache.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("GetSnapshot after pull failed: %v", err)
	}
	if daemon.listCalls != 2 {
		t.Errorf("read after pull must refetch, got %d list calls", daemon.listCalls)
	}
	if !snap.HasModel("phi3") {
		t.Error("snapshot after pull should contain the new model")
	}
}

func TestPullModel_FailureStillInvalidates(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	cache := newTestCache(daemon, nil, time.Hour)

	if _, err := cache.GetSnapshot(context.Background(), false); err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}

	daemon.mu.Lock()
	daemon.pullErr = &ollama.ClientError{Kind: ollama.KindPullFailed, Message: "registry unreachable"}
	daemon.mu.Unlock()

	res := cache.PullModel(context.Background(), "phi3", nil)
	if res.OK {
		t.Fatal("pull should have failed")
	}

	if _, err := cache.GetSnapshot(context.Background(), false); err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if daemon.listCalls != 2 {
		t.Errorf("failed pull must still invalidate, got %d list calls", daemon.listCalls)
	}
}

func TestPullModel_EmptyName(t *testing.T) {
	daemon := &fakeDaemon{}
	cache := newTestCache(daemon, nil, time.Hour)

	res := cache.PullModel(context.Background(), "  ", nil)
	if res.OK {
		t.Error("blank model name should be rejected")
	}
	if !errors.Is(res.Err, ErrEmptyModelName) {
		t.Errorf("expected ErrEmptyModelName, got %v", res.Err)
	}
	if len(daemon.pulled) != 0 {
		t.Error("no daemon call should happen for a blank name")
	}
}

func TestDeleteModel_NotFound(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	cache := newTestCache(daemon, nil, time.Hour)

	res := cache.DeleteModel(context.Background(), "never-installed")
	if res.OK {
		t.Fatal("deleting an unknown model should fail")
	}
	if !ollama.IsKind(res.Err, ollama.KindNotFound) {
		t.Errorf("expected NOT_FOUND result, got %v", res.Err)
	}
}

func TestDeleteModel_FullCycle(t *testing.T) {
	daemon := &fakeDaemon{models: twoModels()}
	cache := newTestCache(daemon, nil, time.Hour)

	snap, err := cache.GetSnapshot(context.Background(), false)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if len(snap.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(snap.Models))
	}
	if snap.Resources.Disk.UsedBytes != 50*gb || snap.Resources.Disk.TotalBytes != 100*gb {
		t.Errorf("disk stats not carried into snapshot: %+v", snap.Resources.Disk)
	}

	res := cache.DeleteModel(context.Background(), "mistral")
	if !res.OK {
		t.Fatalf("DeleteModel failed: %s", res.Message)
	}

	cache.Invalidate()
	after, err := cache.GetSnapshot(context.Background(), true)
	if err != nil {
		t.Fatalf("GetSnapshot after delete failed: %v", err)
	}

	if len(after.Models) != 1 || after.Models[0].Name != "llama3:8b" {
		t.Errorf("expected only llama3:8b to remain, got %+v", after.Models)
	}
	if after.Resources.Disk.TotalBytes != 100*gb {
		t.Error("disk stats should be independent of the model list")
	}
}

// -----------------------------------------------------------------------------
// Concurrency
// -----------------------------------------------------------------------------

func TestGetSnapshot_ConcurrentCallersShareOneRefresh(t *testing.T) {
	daemon := &fakeDaemon{
		models:      twoModels(),
		listGate:    make(chan struct{}),
		listEntered: make(chan struct{}, 1),
	}
	cache := newTestCache(daemon, nil, time.Hour)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*Snapshot, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.GetSnapshot(context.Background(), false)
		}(i)
	}

	// Wait for the first refresh to enter ListModels, give the rest a
	// moment to queue behind it, then release.
	<-daemon.listEntered
	time.Sleep(20 * time.Millisecond)
	close(daemon.listGate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("caller %d got a different snapshot", i)
		}
	}
	if daemon.listCalls != 1 {
		t.Errorf("expected exactly 1 list call across %d callers, got %d", callers, daemon.listCalls)
	}
}

func TestGetSnapshot_FirstCallerCancellationDoesNotPoisonWaiters(t *testing.T) {
	daemon := &fakeDaemon{
		models:      twoModels(),
		listGate:    make(chan struct{}),
		listEntered: make(chan struct{}, 1),
		respectCtx:  true,
	}
	cache := newTestCache(daemon, nil, time.Hour)

	ctxA, cancelA := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var snapA, snapB *Snapshot
	var errA, errB error

	wg.Add(1)
	go func() {
		defer wg.Done()
		snapA, errA = cache.GetSnapshot(ctxA, false)
	}()

	// Let A's refresh reach the daemon, join B behind it, then cancel A
	// while the refresh is still in flight.
	<-daemon.listEntered
	wg.Add(1)
	go func() {
		defer wg.Done()
		snapB, errB = cache.GetSnapshot(context.Background(), false)
	}()
	time.Sleep(20 * time.Millisecond)
	cancelA()
	close(daemon.listGate)
	wg.Wait()

	if errB != nil {
		t.Fatalf("waiter with a healthy context should not inherit the cancellation: %v", errB)
	}
	if len(snapB.Models) != 2 {
		t.Errorf("waiter should receive a complete snapshot, got %d models", len(snapB.Models))
	}
	if errA != nil || snapA != snapB {
		t.Errorf("all callers should share the completed refresh: errA=%v", errA)
	}
}

// -----------------------------------------------------------------------------
// Snapshot Helpers
// -----------------------------------------------------------------------------

func TestSnapshot_TotalModelBytes(t *testing.T) {
	snap := &Snapshot{Models: twoModels()}
	if got := snap.TotalModelBytes(); got != 7*gb {
		t.Errorf("TotalModelBytes() = %d, want %d", got, int64(7*gb))
	}
}

func TestSnapshot_HasModel_NormalizesLatestTag(t *testing.T) {
	snap := &Snapshot{Models: []ollama.Model{{Name: "mistral:latest"}}}

	if !snap.HasModel("mistral") {
		t.Error("HasModel should match without the :latest tag")
	}
	if !snap.HasModel("Mistral:Latest") {
		t.Error("HasModel should be case-insensitive")
	}
	if snap.HasModel("llama3") {
		t.Error("HasModel should not match absent models")
	}
}
