package services

import (
	"database/sql"
	"time"

	"github.com/civicgrid/civicgrid-be/internal/apperr"
	"github.com/civicgrid/civicgrid-be/internal/models"
)

// StatsServiceProvider defines the interface for dashboard statistics.
type StatsServiceProvider interface {
	CategoryTotals() ([]models.CategoryTotal, error)
	DailySeries(days int) ([]models.DailyStat, error)
	ClassificationCounts() ([]models.CategoryTotal, error)
	RollupDay(day time.Time) error
}

// StatsService aggregates waste segregation data for the admin dashboard.
type StatsService struct {
	db *sql.DB
}

// NewStatsService creates a new StatsService.
func NewStatsService(db *sql.DB) *StatsService {
	return &StatsService{db: db}
}

// CategoryTotals sums the recorded daily weights per waste category.
func (s *StatsService) CategoryTotals() ([]models.CategoryTotal, error) {
	rows, err := s.db.Query("SELECT label, SUM(total_kg) FROM waste_daily GROUP BY label ORDER BY label")
	if err != nil {
		return nil, apperr.NewStorage("aggregate category totals", err)
	}
	defer rows.Close()

	var totals []models.CategoryTotal
	for rows.Next() {
		var t models.CategoryTotal
		if err := rows.Scan(&t.Label, &t.Total); err != nil {
			return nil, apperr.NewStorage("scan category total", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// DailySeries returns the most recent days of per-category weights,
// oldest first, for the dashboard trend chart.
func (s *StatsService) DailySeries(days int) ([]models.DailyStat, error) {
	rows, err := s.db.Query(
		`SELECT day, label, total_kg, items FROM waste_daily
		 WHERE day IN (SELECT DISTINCT day FROM waste_daily ORDER BY day DESC LIMIT ?)
		 ORDER BY day, label`, days)
	if err != nil {
		return nil, apperr.NewStorage("query daily series", err)
	}
	defer rows.Close()

	var series []models.DailyStat
	for rows.Next() {
		var d models.DailyStat
		if err := rows.Scan(&d.Day, &d.Label, &d.TotalKg, &d.Items); err != nil {
			return nil, apperr.NewStorage("scan daily stat", err)
		}
		series = append(series, d)
	}
	return series, rows.Err()
}

// ClassificationCounts counts stored classification rows per predicted label.
func (s *StatsService) ClassificationCounts() ([]models.CategoryTotal, error) {
	rows, err := s.db.Query("SELECT label, COUNT(*) FROM classifications GROUP BY label ORDER BY label")
	if err != nil {
		return nil, apperr.NewStorage("count classifications", err)
	}
	defer rows.Close()

	var counts []models.CategoryTotal
	for rows.Next() {
		var t models.CategoryTotal
		if err := rows.Scan(&t.Label, &t.Total); err != nil {
			return nil, apperr.NewStorage("scan classification count", err)
		}
		counts = append(counts, t)
	}
	return counts, rows.Err()
}

// RollupDay folds that day's classification rows into the daily table as
// item counts, one row per label. The weight column is left to sources
// that actually record weight. Safe to re-run for the same day.
func (s *StatsService) RollupDay(day time.Time) error {
	dayStr := day.Format("2006-01-02")
	_, err := s.db.Exec(
		`INSERT INTO waste_daily (day, label, items)
		 SELECT date(created_at), label, COUNT(*) FROM classifications
		 WHERE date(created_at) = ? GROUP BY label
		 ON CONFLICT(day, label) DO UPDATE SET items = excluded.items`,
		dayStr)
	if err != nil {
		return apperr.NewStorage("roll up daily stats", err)
	}
	return nil
}

// SeedSampleData loads the illustrative daily series shown on a fresh
// dashboard. Existing rows for the same days are left untouched.
func (s *StatsService) SeedSampleData() error {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sample := map[string][]float64{
		"Plastic": {10, 15, 18, 12, 14, 20, 17, 19, 13, 11},
		"Organic": {30, 35, 32, 28, 26, 34, 31, 36, 29, 27},
		"Metal":   {5, 8, 7, 6, 4, 7, 9, 10, 5, 6},
	}

	stmt, err := s.db.Prepare(
		"INSERT INTO waste_daily (day, label, total_kg) VALUES (?, ?, ?) ON CONFLICT(day, label) DO NOTHING")
	if err != nil {
		return apperr.NewStorage("seed sample stats", err)
	}
	defer stmt.Close()

	for label, values := range sample {
		for i, v := range values {
			day := start.AddDate(0, 0, i).Format("2006-01-02")
			if _, err := stmt.Exec(day, label, v); err != nil {
				return apperr.NewStorage("seed sample stats", err)
			}
		}
	}
	return nil
}
