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
	"strings"

	"github.com/AleutianAI/llmdash/services/dashboard/observability"
	"github.com/gin-gonic/gin"
)

// ModelPullRequest is the body of POST /v1/models/pull.
type ModelPullRequest struct {
	Name string `json:"name" binding:"required"`
}

// ModelOperationResponse is the body returned by pull and delete.
type ModelOperationResponse struct {
	Status  string `json:"status"`
	Model   string `json:"model"`
	Message string `json:"message"`
}

// ListModels serves the installed model list from the cache.
//
// GET /v1/models returns the models plus aggregate byte count. The
// same TTL rules as the full inventory apply.
func ListModels(svc InventoryService, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svc.GetSnapshot(c.Request.Context(), false)
		if err != nil {
			metrics.RecordRead(observability.OutcomeError)
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"models":      snap.Models,
			"count":       len(snap.Models),
			"total_bytes": snap.TotalModelBytes(),
			"fetched_at":  snap.FetchedAt,
		})
	}
}

// PullModel downloads a model through the daemon.
//
// POST /v1/models/pull blocks until the daemon finishes the download,
// which can take minutes for large models. The inventory cache is
// invalidated regardless of outcome.
func PullModel(svc InventoryService, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ModelPullRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		slog.Info("Received model pull request", "model", req.Name)

		res := svc.PullModel(c.Request.Context(), req.Name, nil)
		metrics.RecordPull(res.OK)

		if !res.OK {
			slog.Error("Model pull failed", "model", req.Name, "error", res.Message)
			c.JSON(errorStatus(res.Err), gin.H{"error": res.Message})
			return
		}

		slog.Info("Model pull complete", "model", req.Name)
		c.JSON(http.StatusOK, ModelOperationResponse{
			Status:  "success",
			Model:   req.Name,
			Message: res.Message,
		})
	}
}

// DeleteModel removes a model through the daemon.
//
// DELETE /v1/models/*name — wildcard because model names may contain
// slashes (e.g. "library/llama3:8b"). Unknown models yield 404.
func DeleteModel(svc InventoryService, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimPrefix(c.Param("name"), "/")

		slog.Info("Received model delete request", "model", name)

		res := svc.DeleteModel(c.Request.Context(), name)
		metrics.RecordDelete(res.OK)

		if !res.OK {
			slog.Warn("Model delete failed", "model", name, "error", res.Message)
			c.JSON(errorStatus(res.Err), gin.H{"error": res.Message})
			return
		}

		c.JSON(http.StatusOK, ModelOperationResponse{
			Status:  "success",
			Model:   name,
			Message: res.Message,
		})
	}
}
