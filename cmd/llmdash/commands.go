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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	jsonOutput   bool
	forceRefresh bool
	servePort    int

	rootCmd = &cobra.Command{
		Use:   "llmdash",
		Short: "A cli to inspect and manage your local Ollama model inventory",
		Long: `LLMDash keeps a cached view of the models installed in your local
				Ollama daemon together with the host's disk and memory headroom,
				so you can see at a glance what is taking up space and what is
				safe to remove.`,
	}

	// --- Status ---
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the Ollama server status, installed models, and host resources",
		Run:   runStatus, // Defined in cmd_status.go
	}

	// --- Models ---
	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "Inspect and manage the installed model inventory",
	}
	modelsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the installed models with their sizes and modification times",
		Run:   runModelsList, // Defined in cmd_models.go
	}
	modelsPullCmd = &cobra.Command{
		Use:   "pull [model_name]",
		Short: "Download a model through the Ollama daemon",
		Args:  cobra.ExactArgs(1),
		Run:   runModelsPull, // Defined in cmd_models.go
	}
	modelsRmCmd = &cobra.Command{
		Use:     "rm [model_name]",
		Short:   "Delete an installed model from the Ollama daemon",
		Aliases: []string{"delete"},
		Args:    cobra.ExactArgs(1),
		Run:     runModelsRm, // Defined in cmd_models.go
	}

	// --- Serve ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP service in the foreground",
		Run:   runServe, // Defined in cmd_serve.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Emit machine-readable JSON instead of tables")

	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&forceRefresh, "refresh", false,
		"Bypass the inventory cache and query the daemon now")

	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsListCmd.Flags().BoolVar(&forceRefresh, "refresh", false,
		"Bypass the inventory cache and query the daemon now")
	modelsCmd.AddCommand(modelsPullCmd)
	modelsCmd.AddCommand(modelsRmCmd)

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0,
		"Listen port (default: dashboard.port from the config file)")
}
