// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package format provides display helpers shared by the CLI and the
// dashboard service: human-readable byte counts and model timestamps.
package format

import (
	"fmt"
	"time"
)

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
)

// Bytes converts a byte count to a human-readable string (B, KB, MB, GB).
//
// # Examples
//
//	format.Bytes(512)         // "512 B"
//	format.Bytes(4100000000)  // "3.82 GB"
func Bytes(size int64) string {
	switch {
	case size < kib:
		return fmt.Sprintf("%d B", size)
	case size < mib:
		return fmt.Sprintf("%.2f KB", float64(size)/kib)
	case size < gib:
		return fmt.Sprintf("%.2f MB", float64(size)/mib)
	default:
		return fmt.Sprintf("%.2f GB", float64(size)/gib)
	}
}

// ModifiedTime renders a model's last-modified timestamp for display.
//
// Returns "unknown" for the zero time, which happens when the daemon
// omits or mangles the modified_at field.
func ModifiedTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("02 Jan 2006, 15:04:05")
}

// Percent renders a 0-100 usage figure with one decimal place.
func Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
