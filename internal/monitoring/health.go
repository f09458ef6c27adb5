package monitoring

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a health check response
type HealthCheck struct {
	Status           HealthStatus     `json:"status"`
	Version          string           `json:"version"`
	Uptime           int64            `json:"uptime"`
	UptimeHuman      string           `json:"uptime_human"`
	InFlightRequests int              `json:"in_flight_requests"`
	MemoryUsageMB    uint64           `json:"memory_usage_mb"`
	ExtractorVersion string           `json:"extractor_version,omitempty"`
	Checks           map[string]Check `json:"checks"`
	Timestamp        time.Time        `json:"timestamp"`
}

// Check represents an individual health check
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ProbeFunc reports the extractor version or why it is unusable
type ProbeFunc func(ctx context.Context) (string, error)

// HealthChecker performs health checks
type HealthChecker struct {
	version      string
	startTime    time.Time
	probe        ProbeFunc
	probeTimeout time.Duration
	downloadDir  string
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(version string, probe ProbeFunc, downloadDir string) *HealthChecker {
	return &HealthChecker{
		version:      version,
		startTime:    time.Now(),
		probe:        probe,
		probeTimeout: 5 * time.Second,
		downloadDir:  downloadDir,
	}
}

// SetProbeTimeout bounds the extractor probe
func (h *HealthChecker) SetProbeTimeout(d time.Duration) {
	if d > 0 {
		h.probeTimeout = d
	}
}

// Check performs all health checks and returns the result
func (h *HealthChecker) Check(ctx context.Context, inFlight int) *HealthCheck {
	checks := make(map[string]Check)
	overallStatus := HealthStatusHealthy

	extractorCheck, extractorVersion := h.checkExtractor(ctx)
	checks["extractor"] = extractorCheck

	storageCheck := h.checkDownloadDir()
	checks["download_dir"] = storageCheck

	memCheck := h.checkMemory()
	checks["memory"] = memCheck

	loadCheck := h.checkInFlight(inFlight)
	checks["in_flight"] = loadCheck

	for _, c := range []Check{extractorCheck, storageCheck, memCheck, loadCheck} {
		switch c.Status {
		case "unhealthy":
			overallStatus = HealthStatusUnhealthy
		case "degraded":
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		}
	}

	uptime := time.Since(h.startTime)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &HealthCheck{
		Status:           overallStatus,
		Version:          h.version,
		Uptime:           int64(uptime.Seconds()),
		UptimeHuman:      formatDuration(uptime),
		InFlightRequests: inFlight,
		MemoryUsageMB:    m.Alloc / 1024 / 1024,
		ExtractorVersion: extractorVersion,
		Checks:           checks,
		Timestamp:        time.Now(),
	}
}

// checkExtractor runs the extractor probe
func (h *HealthChecker) checkExtractor(ctx context.Context) (Check, string) {
	if h.probe == nil {
		return Check{
			Status:  "unhealthy",
			Message: "Extractor probe not configured",
		}, ""
	}

	ctx, cancel := context.WithTimeout(ctx, h.probeTimeout)
	defer cancel()

	version, err := h.probe(ctx)
	if err != nil {
		return Check{
			Status:  "unhealthy",
			Message: "Extractor probe failed: " + err.Error(),
		}, ""
	}

	return Check{
		Status:  "healthy",
		Message: "Extractor is available",
	}, version
}

// checkDownloadDir checks that the download folder accepts new files
func (h *HealthChecker) checkDownloadDir() Check {
	if h.downloadDir == "" {
		return Check{
			Status:  "unhealthy",
			Message: "Download folder not configured",
		}
	}

	f, err := os.CreateTemp(h.downloadDir, ".healthcheck-*")
	if err != nil {
		return Check{
			Status:  "unhealthy",
			Message: "Download folder is not writable: " + err.Error(),
		}
	}
	name := f.Name()
	f.Close()
	os.Remove(name)

	return Check{
		Status:  "healthy",
		Message: "Download folder is writable",
	}
}

// checkMemory checks memory usage
func (h *HealthChecker) checkMemory() Check {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memoryMB := m.Alloc / 1024 / 1024

	const (
		warningThresholdMB  = 500  // 500 MB
		criticalThresholdMB = 1000 // 1 GB
	)

	if memoryMB > criticalThresholdMB {
		return Check{
			Status:  "unhealthy",
			Message: "Memory usage is critically high",
		}
	}

	if memoryMB > warningThresholdMB {
		return Check{
			Status:  "degraded",
			Message: "Memory usage is elevated",
		}
	}

	return Check{
		Status:  "healthy",
		Message: "Memory usage is normal",
	}
}

// checkInFlight flags an unusually high number of concurrent extractions
func (h *HealthChecker) checkInFlight(inFlight int) Check {
	const warningThreshold = 64

	if inFlight > warningThreshold {
		return Check{
			Status:  "degraded",
			Message: fmt.Sprintf("%d requests in progress", inFlight),
		}
	}

	return Check{
		Status:  "healthy",
		Message: "Request load is normal",
	}
}

// formatDuration formats a duration into a human-readable string
func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
