package monitoring

import (
	"time"

	"github.com/civicgrid/civicgrid-be/internal/models"
	"github.com/civicgrid/civicgrid-be/internal/services"
	ws "github.com/civicgrid/civicgrid-be/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// StatsTopic is the hub topic live dashboard clients subscribe to.
const StatsTopic = "stats"

// HostStatus is a point-in-time snapshot of the machine serving the platform.
type HostStatus struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
	UptimeSeconds uint64  `json:"uptimeSeconds"`
}

// StatsSnapshot is the frame pushed to dashboard subscribers.
type StatsSnapshot struct {
	GeneratedAt     time.Time              `json:"generatedAt"`
	CategoryTotals  []models.CategoryTotal `json:"categoryTotals"`
	Classifications []models.CategoryTotal `json:"classifications"`
	Host            HostStatus             `json:"host"`
}

// StatsBroadcaster periodically snapshots waste statistics and host load
// and pushes them to websocket subscribers of the stats topic.
type StatsBroadcaster struct {
	stats    services.StatsServiceProvider
	hub      *ws.Hub
	interval time.Duration
	done     chan bool
}

// NewStatsBroadcaster creates a broadcaster over the given stats service and hub.
func NewStatsBroadcaster(stats services.StatsServiceProvider, hub *ws.Hub) *StatsBroadcaster {
	return &StatsBroadcaster{
		stats:    stats,
		hub:      hub,
		interval: 15 * time.Second,
		done:     make(chan bool),
	}
}

// Run starts the broadcast loop. Call Stop to end it.
func (b *StatsBroadcaster) Run() {
	log.Info().Dur("interval", b.interval).Msg("Starting stats broadcaster")
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			log.Info().Msg("Stopping stats broadcaster")
			return
		case <-ticker.C:
			b.broadcastOnce()
		}
	}
}

// Stop halts the broadcaster.
func (b *StatsBroadcaster) Stop() {
	b.done <- true
}

func (b *StatsBroadcaster) broadcastOnce() {
	snapshot, err := b.Snapshot()
	if err != nil {
		log.Error().Err(err).Msg("Failed to build stats snapshot")
		return
	}
	b.hub.BroadcastTo(StatsTopic, ws.NewStatsMessage(snapshot))
}

// Snapshot assembles the current aggregates and host status.
func (b *StatsBroadcaster) Snapshot() (StatsSnapshot, error) {
	totals, err := b.stats.CategoryTotals()
	if err != nil {
		return StatsSnapshot{}, err
	}
	counts, err := b.stats.ClassificationCounts()
	if err != nil {
		return StatsSnapshot{}, err
	}

	return StatsSnapshot{
		GeneratedAt:     time.Now(),
		CategoryTotals:  totals,
		Classifications: counts,
		Host:            CurrentHostStatus(),
	}, nil
}

// CurrentHostStatus samples cpu, memory, and uptime. Failures degrade to
// zero values rather than failing the snapshot.
func CurrentHostStatus() HostStatus {
	var status HostStatus

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemoryPercent = vm.UsedPercent
	}
	if up, err := host.Uptime(); err == nil {
		status.UptimeSeconds = up
	}
	return status
}
