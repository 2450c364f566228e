package server

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/unocoin/internal/database"
)

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string                     `json:"status"`
	HasAccount    bool                       `json:"has_account"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	CPUPercent    float64                    `json:"cpu_percent"`
	MemoryPercent float64                    `json:"memory_percent"`
	Databases     map[string]*database.Stats `json:"databases"`
	OpenQuotes    int                        `json:"open_quotes"`
	Jobs          []string                   `json:"jobs"`
}

// getSystemStats calculates CPU and RAM usage percentages over a short window
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// handleSystemStatus handles GET /api/system/status
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := s.getSystemStats()

	dbStats := make(map[string]*database.Stats, len(s.databases))
	status := "healthy"
	for _, db := range s.databases {
		if err := db.QuickCheck(r.Context()); err != nil {
			s.log.Warn().Err(err).Str("database", db.Name()).Msg("Database is not reachable")
			status = "degraded"
			continue
		}
		stats, err := db.GetStats()
		if err != nil {
			s.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			status = "degraded"
			continue
		}
		dbStats[db.Name()] = stats
	}

	jobs := []string{}
	if s.scheduler != nil {
		jobs = s.scheduler.JobNames()
		sort.Strings(jobs)
	}

	s.writeData(w, http.StatusOK, SystemStatusResponse{
		Status:        status,
		HasAccount:    s.session.HasAccount(),
		UptimeSeconds: int64(s.now().Sub(s.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Databases:     dbStats,
		OpenQuotes:    s.quotes.Len(),
		Jobs:          jobs,
	})
}

// handleTriggerJob handles POST /api/system/jobs/{name}
func (s *Server) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if s.scheduler == nil {
		http.Error(w, "Scheduler not available", http.StatusServiceUnavailable)
		return
	}

	known := false
	for _, n := range s.scheduler.JobNames() {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":    "unknown job " + name,
			"metadata": s.metadata(),
		})
		return
	}

	if err := s.scheduler.RunByName(name); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]string{
		"job":    name,
		"status": "completed",
	})
}
