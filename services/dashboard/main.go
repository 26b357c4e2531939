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
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/llmdash/pkg/inventory"
	"github.com/AleutianAI/llmdash/pkg/ollama"
	"github.com/AleutianAI/llmdash/pkg/sysinfo"
	"github.com/AleutianAI/llmdash/services/dashboard/observability"
	"github.com/AleutianAI/llmdash/services/dashboard/routes"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	// The collector URL comes from the standard OTLP env var. Tracing is
	// optional for a single-host dashboard; skip setup when unset.
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) {}, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("llmdash-dashboard")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// parseTTLSeconds interprets an INVENTORY_TTL_SECONDS value.
//
// The variable is a plain integer second count; duration strings like
// "1m" are rejected rather than misread as another unit.
func parseTTLSeconds(raw string) (time.Duration, bool) {
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func main() {
	port := os.Getenv("DASHBOARD_PORT")
	if port == "" {
		port = "12230"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	} else if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	ttl := inventory.DefaultTTL
	if raw := os.Getenv("INVENTORY_TTL_SECONDS"); raw != "" {
		if parsed, ok := parseTTLSeconds(raw); ok {
			ttl = parsed
		} else {
			slog.Warn("Ignoring invalid INVENTORY_TTL_SECONDS", "value", raw)
		}
	}

	diskPath := os.Getenv("INVENTORY_DISK_PATH")
	if diskPath == "" {
		diskPath = "/"
	}

	daemon := ollama.NewClient(baseURL)
	cache := inventory.New(daemon, sysinfo.Host(), inventory.Config{
		TTL:      ttl,
		DiskPath: diskPath,
	})
	metrics := observability.InitMetrics()

	slog.Info("Dashboard configured",
		"ollama_url", baseURL, "ttl", ttl.String(), "disk_path", diskPath)

	router := gin.Default()
	router.Use(otelgin.Middleware("llmdash-dashboard"))

	routes.SetupRoutes(router, cache, metrics)

	slog.Info("Starting the dashboard server", "port", port)
	if err := router.Run(fmt.Sprintf(":%s", port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
