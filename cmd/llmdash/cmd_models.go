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

// runModelsList prints the installed model inventory.
func runModelsList(cmd *cobra.Command, args []string) {
	cache := newInventoryCache()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := cache.GetSnapshot(ctx, forceRefresh)
	if err != nil {
		fatal("Failed to read the inventory: %v", err)
	}

	if jsonOutput {
		printJSON(snap.Models)
		return
	}

	if !snap.Server.Reachable {
		fmt.Fprintf(os.Stderr, "Warning: daemon unreachable (%s); showing last known state\n",
			snap.Server.Error)
	}
	fmt.Printf("Models (%d installed, %s total)\n",
		len(snap.Models), format.Bytes(snap.TotalModelBytes()))
	renderModelsTable(os.Stdout, snap.Models)
}

// runModelsPull downloads a model, rendering daemon progress in place.
func runModelsPull(cmd *cobra.Command, args []string) {
	name := args[0]
	cache := newInventoryCache()
	appLogger.Info("pull requested", "model", name)

	// No timeout: large models legitimately take a long time.
	ctx := context.Background()

	progress := func(status string, completed, total int64) {
		if jsonOutput {
			return
		}
		if total > 0 {
			fmt.Printf("\r%-25s %s / %s", status,
				format.Bytes(completed), format.Bytes(total))
		} else {
			fmt.Printf("\r%-60s", status)
		}
	}

	fmt.Printf("Pulling %s...\n", name)
	res := cache.PullModel(ctx, name, progress)
	if !jsonOutput {
		fmt.Println()
	}

	if jsonOutput {
		printJSON(res)
		if !res.OK {
			os.Exit(1)
		}
		return
	}
	if !res.OK {
		appLogger.Error("pull failed", "model", name, "error", res.Message)
		fatal("Pull failed: %s", res.Message)
	}
	appLogger.Info("pull complete", "model", name)
	fmt.Printf("Success: %s\n", res.Message)
}

// runModelsRm deletes a model from the daemon.
func runModelsRm(cmd *cobra.Command, args []string) {
	name := args[0]
	cache := newInventoryCache()
	appLogger.Info("delete requested", "model", name)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	res := cache.DeleteModel(ctx, name)

	if jsonOutput {
		printJSON(res)
		if !res.OK {
			os.Exit(1)
		}
		return
	}
	if !res.OK {
		fatal("Delete failed: %s", res.Message)
	}
	fmt.Printf("Success: %s\n", res.Message)
}
