// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes wires the dashboard's HTTP endpoints to their handlers.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/llmdash/services/dashboard/handlers"
	"github.com/AleutianAI/llmdash/services/dashboard/middleware"
	"github.com/AleutianAI/llmdash/services/dashboard/observability"
)

// SetupRoutes registers all dashboard endpoints on the router.
//
// The inventory service backs every /v1 route; metrics are recorded
// per operation. /health and /metrics sit outside the versioned group.
func SetupRoutes(router *gin.Engine, svc handlers.InventoryService, metrics *observability.Metrics) {
	router.Use(middleware.RequestID())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.GET("/inventory", handlers.GetInventory(svc, metrics))
		v1.POST("/inventory/refresh", handlers.RefreshInventory(svc, metrics))
		v1.GET("/system", handlers.GetSystem(svc, metrics))

		models := v1.Group("/models")
		{
			models.GET("", handlers.ListModels(svc, metrics))
			models.POST("/pull", handlers.PullModel(svc, metrics))
			models.DELETE("/*name", handlers.DeleteModel(svc, metrics))
		}
	}
}
