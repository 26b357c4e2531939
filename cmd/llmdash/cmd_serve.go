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
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/llmdash/cmd/llmdash/config"
	"github.com/AleutianAI/llmdash/services/dashboard/observability"
	"github.com/AleutianAI/llmdash/services/dashboard/routes"
)

// runServe starts the dashboard HTTP service in the foreground with the
// same wiring as the standalone service binary, minus tracing. Useful
// for a quick local dashboard without the container stack.
func runServe(cmd *cobra.Command, args []string) {
	port := servePort
	if port == 0 {
		port = config.Global.Dashboard.Port
	}

	cache := newInventoryCache()
	metrics := observability.InitMetrics()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	routes.SetupRoutes(router, cache, metrics)

	appLogger.Info("dashboard service starting",
		"port", port, "ollama_url", config.Global.Daemon.BaseURL)
	fmt.Printf("LLMDash dashboard listening on http://localhost:%d\n", port)

	if err := router.Run(fmt.Sprintf(":%d", port)); err != nil {
		fatal("Failed to start the dashboard service: %v", err)
	}
}
