/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the kernel
server, tracking HTTP requests, kernel syscalls, capability ioctl traffic,
and system metrics. The Metrics type implements kernel.Observer so the
kernel can report per-syscall measurements without importing Prometheus.

# Features

- HTTP request metrics (latency, throughput, size)
- Kernel syscall metrics (per-operation counts, errno breakdown, latency)
- Open file descriptor gauge
- Capability ioctl metrics (per-device calls and errors)
- WebSocket connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Wire into the kernel
	kern.SetObserver(metrics)

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
