package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/rootword-dev/rootword/internal/dictionary"
	"github.com/rootword-dev/rootword/internal/models"
)

// QueueInspector reads asynq queue state
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// SystemInfoResponse describes the server, its dictionary and import queue
type SystemInfoResponse struct {
	Version    string            `json:"version"`
	Runtime    RuntimeMetrics    `json:"runtime"`
	Dictionary DictionaryMetrics `json:"dictionary"`
	RootWords  map[string]int64  `json:"root_words"`
	Users      int64             `json:"users"`
	Imports    *QueueMetrics     `json:"imports,omitempty"`
}

// RuntimeMetrics contains process resource information
type RuntimeMetrics struct {
	GoVersion    string  `json:"go_version"`
	CPUCount     int     `json:"cpu_count"`
	Goroutines   int     `json:"goroutines"`
	HeapAllocMB  float64 `json:"heap_alloc_mb"`
	SysMemoryMB  float64 `json:"sys_memory_mb"`
	UptimeSecond int64   `json:"uptime_seconds"`
}

// DictionaryMetrics describes the effective root word cache
type DictionaryMetrics struct {
	Words       int        `json:"words"`
	LoadedAt    *time.Time `json:"loaded_at,omitempty"`
	Schedule    string     `json:"refresh_schedule"`
	NextRefresh *time.Time `json:"next_refresh,omitempty"`
}

// QueueMetrics contains the state of the import queue
type QueueMetrics struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Completed int    `json:"completed"`
	Error     string `json:"error,omitempty"`
}

var startedAt = time.Now()

// @Summary Get system information
// @Description Returns process metrics, dictionary cache state, root word counts and import queue state
// @Tags system
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Failure 500 {object} map[string]interface{}
// @Router /api/system/info [get]
func (s *Server) getSystemInfo(c *gin.Context) {
	ctx := c.Request.Context()

	response := SystemInfoResponse{
		Version:   s.version,
		Runtime:   runtimeMetrics(),
		RootWords: map[string]int64{},
	}

	words, loadedAt := s.dictionary.Size()
	response.Dictionary = DictionaryMetrics{
		Words:       words,
		Schedule:    s.config.Dictionary.RefreshSchedule,
		NextRefresh: dictionary.NextRefresh(s.config.Dictionary.RefreshSchedule, time.Now()),
	}
	if !loadedAt.IsZero() {
		response.Dictionary.LoadedAt = &loadedAt
	}

	var counts []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&models.RootWord{}).
		Select("status, count(*) as count").
		Where("deleted = ?", false).
		Group("status").
		Scan(&counts).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count root words")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load system info"})
		return
	}
	for _, status := range []models.RootWordStatus{models.StatusPendingAudit, models.StatusEffective, models.StatusDiscarded} {
		response.RootWords[string(status)] = 0
	}
	for _, row := range counts {
		response.RootWords[row.Status] = row.Count
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&response.Users).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load system info"})
		return
	}

	if s.inspector != nil {
		response.Imports = s.importQueueMetrics()
	}

	respondOK(c, "success", response)
}

func runtimeMetrics() RuntimeMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeMetrics{
		GoVersion:    runtime.Version(),
		CPUCount:     runtime.NumCPU(),
		Goroutines:   runtime.NumGoroutine(),
		HeapAllocMB:  float64(mem.HeapAlloc) / (1 << 20),
		SysMemoryMB:  float64(mem.Sys) / (1 << 20),
		UptimeSecond: int64(time.Since(startedAt).Seconds()),
	}
}

// importQueueMetrics never fails the request; Redis being down is reported
// in the payload
func (s *Server) importQueueMetrics() *QueueMetrics {
	const queue = "default"

	info, err := s.inspector.GetQueueInfo(queue)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to inspect import queue")
		return &QueueMetrics{Queue: queue, Error: err.Error()}
	}

	return &QueueMetrics{
		Queue:     queue,
		Pending:   info.Pending,
		Active:    info.Active,
		Retry:     info.Retry,
		Archived:  info.Archived,
		Completed: info.Completed,
	}
}
