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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/llmdash/pkg/format"
)

// runStatus renders the full dashboard view: server status, installed
// models, and host resources, all from one snapshot.
func runStatus(cmd *cobra.Command, args []string) {
	cache := newInventoryCache()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := cache.GetSnapshot(ctx, forceRefresh)
	if err != nil {
		fatal("Failed to read the inventory: %v", err)
	}

	if jsonOutput {
		printJSON(snap)
		return
	}

	renderServerStatus(os.Stdout, snap.Server)
	fmt.Println()

	fmt.Printf("Models (%d installed, %s total)\n",
		len(snap.Models), format.Bytes(snap.TotalModelBytes()))
	renderModelsTable(os.Stdout, snap.Models)
	fmt.Println()

	renderResources(os.Stdout, snap.Resources)

	if !snap.Server.Reachable && len(snap.Models) > 0 {
		fmt.Println()
		fmt.Println("Note: the daemon is unreachable; the model list above is the last known state.")
	}
}
