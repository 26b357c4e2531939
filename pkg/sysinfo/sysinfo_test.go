// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sysinfo

import (
	"errors"
	"testing"
)

func TestDiskUsage_RootPath(t *testing.T) {
	stats, err := DiskUsage("/")
	if err != nil {
		t.Fatalf("DiskUsage(/) failed: %v", err)
	}

	if stats.Path != "/" {
		t.Errorf("Path = %q, want %q", stats.Path, "/")
	}
	if stats.TotalBytes == 0 {
		t.Error("TotalBytes should be non-zero for the root filesystem")
	}
	if stats.UsedBytes > stats.TotalBytes {
		t.Errorf("UsedBytes (%d) exceeds TotalBytes (%d)", stats.UsedBytes, stats.TotalBytes)
	}
	if stats.UsedPercent < 0 || stats.UsedPercent > 100 {
		t.Errorf("UsedPercent out of range: %f", stats.UsedPercent)
	}
}

func TestDiskUsage_NonexistentPath(t *testing.T) {
	_, err := DiskUsage("/this/path/does/not/exist")
	if err == nil {
		t.Fatal("expected an error for a nonexistent path")
	}

	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("expected *QueryError, got %T", err)
	}
	if qe.Resource != "disk" {
		t.Errorf("Resource = %q, want %q", qe.Resource, "disk")
	}
	if qe.Path == "" {
		t.Error("QueryError.Path should record the queried path")
	}
}

func TestMemoryUsage(t *testing.T) {
	stats, err := MemoryUsage()
	if err != nil {
		t.Fatalf("MemoryUsage() failed: %v", err)
	}

	if stats.TotalBytes == 0 {
		t.Error("TotalBytes should be non-zero")
	}
	if stats.UsedBytes+stats.AvailableBytes != stats.TotalBytes {
		t.Errorf("used (%d) + available (%d) != total (%d)",
			stats.UsedBytes, stats.AvailableBytes, stats.TotalBytes)
	}
	if stats.UsedPercent < 0 || stats.UsedPercent > 100 {
		t.Errorf("UsedPercent out of range: %f", stats.UsedPercent)
	}
}

func TestQueryError_Error(t *testing.T) {
	withPath := &QueryError{Resource: "disk", Path: "/data", Err: errors.New("no such file")}
	if got := withPath.Error(); got != "disk query failed for /data: no such file" {
		t.Errorf("Error() = %q", got)
	}

	noPath := &QueryError{Resource: "memory", Err: errors.New("boom")}
	if got := noPath.Error(); got != "memory query failed: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestHostReader_ImplementsReader(t *testing.T) {
	var _ Reader = Host()
}
