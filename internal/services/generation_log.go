package services

import (
	"time"

	"github.com/excuse-lab/excuse-api/internal/models"
	"gorm.io/gorm"
)

type GenerationLogService struct {
	db *gorm.DB
}

func NewGenerationLogService(db *gorm.DB) *GenerationLogService {
	return &GenerationLogService{db: db}
}

// Record stores one generation outcome
func (s *GenerationLogService) Record(entry *models.GenerationLog) error {
	return s.db.Create(entry).Error
}

// GenerationStats aggregates the generation log
type GenerationStats struct {
	Total         int64            `json:"total"`
	ByOutcome     map[string]int64 `json:"by_outcome"`
	AvgAttempts   float64          `json:"avg_attempts"`
	AvgDurationMS float64          `json:"avg_duration_ms"`
	Last24h       int64            `json:"last_24h"`
}

type outcomeRow struct {
	Outcome       string
	Count         int64
	AttemptsSum   int64
	DurationMSSum int64
}

// Stats returns totals per outcome plus averages over all recorded generations
func (s *GenerationLogService) Stats() (*GenerationStats, error) {
	var rows []outcomeRow
	err := s.db.Model(&models.GenerationLog{}).
		Select("outcome, COUNT(*) AS count, COALESCE(SUM(attempts), 0) AS attempts_sum, " +
			"COALESCE(SUM(duration_ms), 0) AS duration_ms_sum").
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := summarize(rows)

	since := time.Now().Add(-24 * time.Hour)
	if err := s.db.Model(&models.GenerationLog{}).
		Where("created_at >= ?", since).
		Count(&stats.Last24h).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func summarize(rows []outcomeRow) *GenerationStats {
	stats := &GenerationStats{ByOutcome: make(map[string]int64, len(rows))}
	var attempts, duration int64
	for _, row := range rows {
		stats.ByOutcome[row.Outcome] = row.Count
		stats.Total += row.Count
		attempts += row.AttemptsSum
		duration += row.DurationMSSum
	}
	if stats.Total > 0 {
		stats.AvgAttempts = float64(attempts) / float64(stats.Total)
		stats.AvgDurationMS = float64(duration) / float64(stats.Total)
	}
	return stats
}
