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
Package sysinfo reads local disk and memory usage for the dashboard.

# Problem Statement

The dashboard shows how much room the model store has left and how much
RAM the host is using. Model images are large (a single 8B model is
4-5 GB), so these figures drive the most common user decision the
dashboard supports: "can I pull another model?"

# Solution

Two read-only queries against the host, no daemons and no sampling:

  - DiskUsage: filesystem statistics for a configured path via Statfs
  - MemoryUsage: host memory via the sysinfo syscall

Both are synchronous and fast (single syscall each). A failure here is a
configuration problem (bad path, unsupported platform), not a transient
condition, and is reported as a *QueryError so callers can tell it apart
from daemon connectivity issues.

# Platform

Linux is the supported deployment target for the dashboard service; the
syscalls used here are Linux/Unix interfaces.
*/
package sysinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskStats is a point-in-time reading of filesystem usage for a path.
type DiskStats struct {
	// Path is the filesystem path the reading was taken for.
	Path string `json:"path"`

	// TotalBytes is the filesystem capacity.
	TotalBytes uint64 `json:"total_bytes"`

	// UsedBytes is the capacity currently in use.
	UsedBytes uint64 `json:"used_bytes"`

	// FreeBytes is the capacity available to unprivileged users.
	FreeBytes uint64 `json:"free_bytes"`

	// UsedPercent is UsedBytes over TotalBytes, 0-100.
	UsedPercent float64 `json:"used_percent"`
}

// MemoryStats is a point-in-time reading of host memory usage.
type MemoryStats struct {
	TotalBytes     uint64  `json:"total_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedPercent    float64 `json:"used_percent"`
}

// QueryError reports a failed disk or memory query.
//
// These failures mean the host configuration is wrong (nonexistent disk
// path, unsupported platform), so callers treat them as fatal for the
// refresh cycle rather than retrying.
type QueryError struct {
	// Resource is "disk" or "memory".
	Resource string

	// Path is the queried path, set for disk errors.
	Path string

	// Err is the underlying syscall error.
	Err error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s query failed for %s: %v", e.Resource, e.Path, e.Err)
	}
	return fmt.Sprintf("%s query failed: %v", e.Resource, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error { return e.Err }

// Reader abstracts host resource queries so the inventory cache can be
// tested without touching the real filesystem.
type Reader interface {
	DiskUsage(path string) (DiskStats, error)
	MemoryUsage() (MemoryStats, error)
}

// HostReader is the production Reader backed by syscalls.
type HostReader struct{}

// Host returns a Reader for the local machine.
func Host() HostReader { return HostReader{} }

// DiskUsage returns filesystem usage for the given path.
func (HostReader) DiskUsage(path string) (DiskStats, error) {
	return DiskUsage(path)
}

// MemoryUsage returns host memory usage.
func (HostReader) MemoryUsage() (MemoryStats, error) {
	return MemoryUsage()
}

// DiskUsage queries filesystem statistics for path.
//
// Free space is reported as the space available to unprivileged users
// (Bavail), matching what a model pull could actually consume. Used
// space is capacity minus the superuser free count, so used+free can be
// slightly below total on filesystems with reserved blocks.
func DiskUsage(path string) (DiskStats, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return DiskStats{}, &QueryError{Resource: "disk", Path: path, Err: err}
	}

	bsize := uint64(stat.Bsize)
	total := stat.Blocks * bsize
	free := stat.Bavail * bsize
	used := total - stat.Bfree*bsize

	stats := DiskStats{
		Path:       path,
		TotalBytes: total,
		UsedBytes:  used,
		FreeBytes:  free,
	}
	if total > 0 {
		stats.UsedPercent = float64(used) / float64(total) * 100
	}
	return stats, nil
}

// MemoryUsage queries host memory via the sysinfo syscall.
//
// Available memory counts free plus buffer pages. That undercounts
// reclaimable page cache compared to /proc/meminfo's MemAvailable, but
// it errs on the safe side for "can I load another model" decisions.
func MemoryUsage() (MemoryStats, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return MemoryStats{}, &QueryError{Resource: "memory", Err: err}
	}

	unit := uint64(info.Unit)
	total := uint64(info.Totalram) * unit
	free := uint64(info.Freeram) * unit
	buffers := uint64(info.Bufferram) * unit

	available := free + buffers
	used := total - available

	stats := MemoryStats{
		TotalBytes:     total,
		UsedBytes:      used,
		AvailableBytes: available,
	}
	if total > 0 {
		stats.UsedPercent = float64(used) / float64(total) * 100
	}
	return stats, nil
}
