package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the body of GET /metrics: a point-in-time snapshot
// of process health for operators, not a Prometheus scrape target.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	Realtime      RealtimeMetrics `json:"realtime"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics holds Go runtime counters.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// RealtimeMetrics holds websocket session registry counters.
type RealtimeMetrics struct {
	ActiveSessions int `json:"active_sessions"`
}

// MQTTMetrics reports broker connectivity.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// DatabaseMetrics holds sql.DB pool counters.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime:       collectRuntimeMetrics(),
		Realtime:      RealtimeMetrics{ActiveSessions: s.sessions.Count()},
	}

	if s.mqtt != nil {
		metrics.MQTT.Connected = s.mqtt.IsConnected()
	}
	if s.db != nil {
		pool := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: pool.OpenConnections,
			InUse:           pool.InUse,
			Idle:            pool.Idle,
			WaitCount:       pool.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}

func collectRuntimeMetrics() RuntimeMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	const mb = 1 << 20
	return RuntimeMetrics{
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: float64(mem.Alloc) / mb,
		MemoryTotalMB: float64(mem.TotalAlloc) / mb,
		NumGC:         mem.NumGC,
	}
}
