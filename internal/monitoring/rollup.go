package monitoring

import (
	"time"

	"github.com/civicgrid/civicgrid-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// RollupScheduler folds classification rows into the daily stats table on
// a cron schedule (midnight by default, rolling up the day that just ended).
type RollupScheduler struct {
	stats    services.StatsServiceProvider
	schedule cron.Schedule
	done     chan bool
}

// NewRollupScheduler parses spec as a standard cron expression and returns
// the scheduler.
func NewRollupScheduler(stats services.StatsServiceProvider, spec string) (*RollupScheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, err
	}
	return &RollupScheduler{
		stats:    stats,
		schedule: schedule,
		done:     make(chan bool),
	}, nil
}

// Run executes rollups at each scheduled time until Stop is called.
func (s *RollupScheduler) Run() {
	log.Info().Msg("Starting stats rollup scheduler")
	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-s.done:
			timer.Stop()
			log.Info().Msg("Stopping stats rollup scheduler")
			return
		case now := <-timer.C:
			// Roll up the day that just ended.
			day := now.AddDate(0, 0, -1)
			if err := s.stats.RollupDay(day); err != nil {
				log.Error().Err(err).Str("day", day.Format("2006-01-02")).Msg("Daily stats rollup failed")
			} else {
				log.Info().Str("day", day.Format("2006-01-02")).Msg("Daily stats rollup complete")
			}
		}
	}
}

// Stop halts the scheduler.
func (s *RollupScheduler) Stop() {
	s.done <- true
}
