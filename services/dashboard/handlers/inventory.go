// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/llmdash/services/dashboard/observability"
	"github.com/gin-gonic/gin"
)

// GetInventory serves the full inventory snapshot.
//
// GET /v1/inventory?refresh=true forces a refresh, bypassing the TTL.
// A daemon outage is not an error here: the response carries
// server.reachable=false and the last known model list.
func GetInventory(svc InventoryService, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		force := c.Query("refresh") == "true"
		before := svc.Cached()

		start := time.Now()
		snap, err := svc.GetSnapshot(c.Request.Context(), force)
		if err != nil {
			metrics.RecordRead(observability.OutcomeError)
			slog.Error("Inventory read failed", "error", err)
			body := gin.H{"error": err.Error()}
			// A stale snapshot is better than nothing for display surfaces.
			if stale := svc.Cached(); stale != nil {
				body["stale"] = stale
			}
			c.JSON(errorStatus(err), body)
			return
		}

		outcome := observability.OutcomeCached
		if snap != before {
			metrics.RecordRefreshDuration(time.Since(start).Seconds())
			if snap.Server.Reachable {
				outcome = observability.OutcomeRefreshed
			} else {
				outcome = observability.OutcomeDegraded
			}
		}
		metrics.RecordRead(outcome)
		metrics.RecordSnapshot(snap.Server.Reachable, len(snap.Models))

		c.JSON(http.StatusOK, snap)
	}
}

// RefreshInventory forces a refresh and serves the new snapshot.
//
// POST /v1/inventory/refresh is the API form of the dashboard's
// refresh button.
func RefreshInventory(svc InventoryService, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		snap, err := svc.GetSnapshot(c.Request.Context(), true)
		if err != nil {
			metrics.RecordRead(observability.OutcomeError)
			slog.Error("Forced inventory refresh failed", "error", err)
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}

		metrics.RecordRefreshDuration(time.Since(start).Seconds())
		if snap.Server.Reachable {
			metrics.RecordRead(observability.OutcomeRefreshed)
		} else {
			metrics.RecordRead(observability.OutcomeDegraded)
		}
		metrics.RecordSnapshot(snap.Server.Reachable, len(snap.Models))

		c.JSON(http.StatusOK, snap)
	}
}

// GetSystem serves only the host resource readings and daemon status.
//
// GET /v1/system exists for lightweight status widgets that do not
// want the model list payload.
func GetSystem(svc InventoryService, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svc.GetSnapshot(c.Request.Context(), false)
		if err != nil {
			metrics.RecordRead(observability.OutcomeError)
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"resources":  snap.Resources,
			"server":     snap.Server,
			"fetched_at": snap.FetchedAt,
		})
	}
}

// HealthCheck reports service liveness.
//
// GET /health says nothing about the daemon; use /v1/system for that.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "llmdash-dashboard",
	})
}
