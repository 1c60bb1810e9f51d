package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/ledgersync/internal/database"
	"github.com/aristath/ledgersync/internal/reliability"
	"github.com/aristath/ledgersync/internal/version"
)

// BackupService creates and lists database backups
type BackupService interface {
	CreateAndUpload(ctx context.Context) (reliability.BackupInfo, error)
	ListBackups(ctx context.Context) ([]reliability.BackupInfo, error)
}

// JobLister reports registered background jobs and their next run
type JobLister interface {
	Jobs() map[string]string
}

// SystemStatsResponse is returned by GET /api/system/stats
type SystemStatsResponse struct {
	Version       string  `json:"version"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	DataDirMB     float64 `json:"data_dir_mb"`
	DatabaseMB    float64 `json:"database_mb"`
}

// SystemHandlers handles system monitoring and operations endpoints
type SystemHandlers struct {
	db          *database.DB
	dataDir     string
	backups     BackupService
	jobs        JobLister
	startupTime time.Time
	log         zerolog.Logger
}

// NewSystemHandlers creates new system handlers. backups and jobs may be nil.
func NewSystemHandlers(db *database.DB, dataDir string, backups BackupService, jobs JobLister, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		db:          db,
		dataDir:     dataDir,
		backups:     backups,
		jobs:        jobs,
		startupTime: time.Now(),
		log:         log.With().Str("handler", "system").Logger(),
	}
}

// HandleSystemStats handles GET /api/system/stats
func (h *SystemHandlers) HandleSystemStats(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := SystemStatsResponse{
		Version:       version.Version,
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(memStats.HeapAlloc) / 1024 / 1024,
		DataDirMB:     h.getDirSize(h.dataDir),
	}
	if h.db != nil {
		response.DatabaseMB = h.getDatabaseSize(h.db.Path())
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     response,
		"metadata": metadata(),
	})
}

// HandleListJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := map[string]string{}
	if h.jobs != nil {
		jobs = h.jobs.Jobs()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     map[string]interface{}{"jobs": jobs, "count": len(jobs)},
		"metadata": metadata(),
	})
}

// HandleListBackups handles GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		http.Error(w, "Backups are not configured", http.StatusServiceUnavailable)
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		http.Error(w, "Failed to list backups", http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     map[string]interface{}{"backups": backups, "count": len(backups)},
		"metadata": metadata(),
	})
}

// HandleCreateBackup handles POST /api/system/backups
func (h *SystemHandlers) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		http.Error(w, "Backups are not configured", http.StatusServiceUnavailable)
		return
	}

	h.log.Info().Msg("Manual backup triggered")

	info, err := h.backups.CreateAndUpload(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		http.Error(w, "Backup failed", http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data":     info,
		"metadata": metadata(),
	})
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the request fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getDatabaseSize returns the size of the database file plus its WAL in MB
func (h *SystemHandlers) getDatabaseSize(path string) float64 {
	var total int64
	for _, suffix := range []string{"", "-wal"} {
		if info, err := os.Stat(path + suffix); err == nil {
			total += info.Size()
		}
	}
	return float64(total) / 1024 / 1024
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := writeJSONBody(w, data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
