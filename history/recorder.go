// Package history persists workflow run results for audit and inspection.
// Records are written through gorm; Open provides a pure-Go SQLite database
// suitable for single-node deployments.
package history

import (
	"context"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/flowsmith-ai/flowsmith/flow"
)

// RunRecord is one persisted workflow run.
type RunRecord struct {
	ID            string `gorm:"primaryKey;size:36"`
	Workflow      string `gorm:"index;size:255"`
	Status        string `gorm:"size:32"`
	Output        string
	FailureReason string
	StartedAt     time.Time
	FinishedAt    time.Time
	Steps         []StepRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// StepRecord is one executed step within a run.
type StepRecord struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	RunID         string `gorm:"index;size:36"`
	Position      int
	Step          string `gorm:"size:255"`
	Status        string `gorm:"size:32"`
	Output        string
	FailureReason string
}

// Recorder writes and reads run history.
type Recorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (creating if needed) a SQLite-backed gorm database at path.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// NewRecorder creates a recorder and migrates its schema.
func NewRecorder(db *gorm.DB, log *zap.Logger) (*Recorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&RunRecord{}, &StepRecord{}); err != nil {
		return nil, err
	}
	return &Recorder{db: db, logger: log.With(zap.String("component", "history"))}, nil
}

// Record persists a finished run and returns the stored record.
func (r *Recorder) Record(ctx context.Context, workflow string, startedAt time.Time, result *flow.RunResult) (*RunRecord, error) {
	record := &RunRecord{
		ID:            uuid.NewString(),
		Workflow:      workflow,
		Status:        string(result.Status),
		Output:        result.Output,
		FailureReason: result.FailureReason,
		StartedAt:     startedAt,
		FinishedAt:    time.Now(),
	}
	for i, sr := range result.Results {
		record.Steps = append(record.Steps, StepRecord{
			Position:      i,
			Step:          sr.Step,
			Status:        string(sr.Status),
			Output:        sr.Output,
			FailureReason: sr.FailureReason,
		})
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	r.logger.Debug("run recorded",
		zap.String("run_id", record.ID),
		zap.String("workflow", workflow),
		zap.String("status", record.Status),
	)
	return record, nil
}

// Recent returns the latest runs for a workflow, newest first, steps
// preloaded in execution order.
func (r *Recorder) Recent(ctx context.Context, workflow string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []RunRecord
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("workflow = ?", workflow).
		Order("started_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Get fetches one run by id.
func (r *Recorder) Get(ctx context.Context, id string) (*RunRecord, error) {
	var record RunRecord
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
