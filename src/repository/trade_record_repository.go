package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"signalexecutor/src/model"
)

const (
	DefaultLimit = 20
	MaxLimit     = 500
)

// TradeRecordRepository is the trade journal.
type TradeRecordRepository struct {
	db *gorm.DB
}

func NewTradeRecordRepository(db *gorm.DB) *TradeRecordRepository {
	return &TradeRecordRepository{db: db}
}

func (r *TradeRecordRepository) Create(ctx context.Context, rec *model.TradeRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// Latest returns up to limit records, newest first.
func (r *TradeRecordRepository) Latest(ctx context.Context, limit int) ([]model.TradeRecord, error) {
	var out []model.TradeRecord
	err := r.db.WithContext(ctx).
		Order("executed_at DESC, id DESC").
		Limit(normalizeLimit(limit)).
		Find(&out).Error
	return out, err
}

// BySignal returns every record of a signal in execution order.
func (r *TradeRecordRepository) BySignal(ctx context.Context, signalID string) ([]model.TradeRecord, error) {
	var out []model.TradeRecord
	err := r.db.WithContext(ctx).
		Where("signal_id = ?", signalID).
		Order("executed_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// TradeStats counts journal records since a point in time.
type TradeStats struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Opened    int64 `json:"opened"`
}

func (r *TradeRecordRepository) StatsSince(ctx context.Context, since time.Time) (TradeStats, error) {
	var stats TradeStats
	q := r.db.WithContext(ctx).Model(&model.TradeRecord{}).Where("executed_at >= ?", since)

	if err := q.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}
	if err := q.Session(&gorm.Session{}).Where("success = ?", true).Count(&stats.Succeeded).Error; err != nil {
		return stats, err
	}
	if err := q.Session(&gorm.Session{}).
		Where("success = ? AND action = ?", true, model.ActionOpen).
		Count(&stats.Opened).Error; err != nil {
		return stats, err
	}
	return stats, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
