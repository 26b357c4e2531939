// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/AleutianAI/llmdash/cmd/llmdash/config"
	"github.com/AleutianAI/llmdash/pkg/format"
	"github.com/AleutianAI/llmdash/pkg/inventory"
	"github.com/AleutianAI/llmdash/pkg/ollama"
	"github.com/AleutianAI/llmdash/pkg/sysinfo"
)

// newInventoryCache builds the process-wide cache from the loaded config.
func newInventoryCache() *inventory.Cache {
	daemon := ollama.NewClient(config.Global.Daemon.BaseURL)
	return inventory.New(daemon, sysinfo.Host(), inventory.Config{
		TTL:      time.Duration(config.Global.Cache.TTLSeconds) * time.Second,
		DiskPath: config.Global.Cache.DiskPath,
	})
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

// fatal prints an error and exits non-zero.
func fatal(formatStr string, args ...any) {
	fmt.Fprintf(os.Stderr, formatStr+"\n", args...)
	os.Exit(1)
}

// renderServerStatus writes the daemon status block.
func renderServerStatus(w io.Writer, server inventory.ServerStatus) {
	fmt.Fprintln(w, "Ollama Server")
	fmt.Fprintf(w, "  URL:     %s\n", server.BaseURL)
	if server.Reachable {
		if server.Version != "" {
			fmt.Fprintf(w, "  Status:  reachable (v%s)\n", server.Version)
		} else {
			fmt.Fprintln(w, "  Status:  reachable")
		}
	} else {
		fmt.Fprintf(w, "  Status:  UNREACHABLE (%s)\n", server.Error)
	}
}

// renderModelsTable writes the model list as an aligned table.
func renderModelsTable(w io.Writer, models []ollama.Model) {
	if len(models) == 0 {
		fmt.Fprintln(w, "  (no models installed)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tSIZE\tFAMILY\tPARAMS\tQUANT\tMODIFIED")
	for _, m := range models {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			m.Name,
			format.Bytes(m.Size),
			orDash(m.Family),
			orDash(m.ParameterSize),
			orDash(m.QuantizationLevel),
			format.ModifiedTime(m.ModifiedAt),
		)
	}
	tw.Flush()
}

// renderResources writes the disk and memory block.
func renderResources(w io.Writer, res inventory.Resources) {
	fmt.Fprintln(w, "Host Resources")
	fmt.Fprintf(w, "  Disk (%s):  %s used / %s (%s)\n",
		res.Disk.Path,
		format.Bytes(int64(res.Disk.UsedBytes)),
		format.Bytes(int64(res.Disk.TotalBytes)),
		format.Percent(res.Disk.UsedPercent),
	)
	fmt.Fprintf(w, "  Memory:     %s used / %s (%s)\n",
		format.Bytes(int64(res.Memory.UsedBytes)),
		format.Bytes(int64(res.Memory.TotalBytes)),
		format.Percent(res.Memory.UsedPercent),
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
