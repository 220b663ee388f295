package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/wangyan9981/riskmodeling/internal/database"
	"github.com/wangyan9981/riskmodeling/internal/modules/history"
	"github.com/wangyan9981/riskmodeling/internal/scheduler"
)

// SystemHandlers serves status, database statistics, and manual job triggers.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	historyDB *database.DB
	cacheDB   *database.DB
	history   *history.DB
	symbols   []string
	syncJob   scheduler.Job
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger, dataDir string, historyDB, cacheDB *database.DB, hist *history.DB, symbols []string) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		historyDB: historyDB,
		cacheDB:   cacheDB,
		history:   hist,
		symbols:   symbols,
	}
}

// SetSyncJob registers the sync job for manual triggering.
func (h *SystemHandlers) SetSyncJob(job scheduler.Job) {
	h.syncJob = job
}

// HandleSystemStatus returns process and database health.
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	cpuPct, memPct := h.getSystemStats()

	databases := map[string]string{}
	for name, db := range map[string]*database.DB{"history": h.historyDB, "cache": h.cacheDB} {
		if db == nil {
			databases[name] = "not configured"
			continue
		}
		if err := db.QuickCheck(ctx); err != nil {
			databases[name] = "unhealthy: " + err.Error()
		} else {
			databases[name] = "ok"
		}
	}

	symbols := map[string]int{}
	if h.history != nil {
		for _, symbol := range h.symbols {
			count, err := h.history.CountPrices(symbol)
			if err != nil {
				h.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to count prices")
				continue
			}
			symbols[symbol] = count
		}
	}

	h.writeJSON(w, map[string]interface{}{
		"data": map[string]interface{}{
			"cpu_percent":    cpuPct,
			"memory_percent": memPct,
			"data_dir_mb":    h.getDirSize(h.dataDir),
			"databases":      databases,
			"symbols":        symbols,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDatabaseStats returns database statistics
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{}
	for name, db := range map[string]*database.DB{"history": h.historyDB, "cache": h.cacheDB} {
		if db == nil {
			continue
		}
		dbStats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			continue
		}
		stats[name] = map[string]interface{}{
			"size_bytes":     dbStats.SizeBytes,
			"wal_size_bytes": dbStats.WALSizeBytes,
			"page_count":     dbStats.PageCount,
			"page_size":      dbStats.PageSize,
			"freelist_count": dbStats.FreelistCount,
		}
	}

	h.writeJSON(w, map[string]interface{}{
		"data": stats,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleTriggerSyncPrices runs the price sync job immediately.
// POST /api/system/sync/prices
func (h *SystemHandlers) HandleTriggerSyncPrices(w http.ResponseWriter, r *http.Request) {
	if h.syncJob == nil {
		h.writeJSON(w, map[string]string{
			"status":  "error",
			"message": "Price sync job not registered",
		})
		return
	}

	h.log.Info().Msg("Manual price sync triggered")

	// Run in the background so slow API responses do not hold the request.
	go func() {
		if err := h.syncJob.Run(); err != nil {
			h.log.Error().Err(err).Msg("Manual price sync failed")
		}
	}()

	h.writeJSON(w, map[string]string{
		"status":  "started",
		"message": "Price sync running in background",
	})
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a short sampling interval so status calls stay fast.
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

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
