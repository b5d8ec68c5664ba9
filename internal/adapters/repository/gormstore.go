package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/veloclub/segweek/internal/domain/model"
	"github.com/veloclub/segweek/pkg/metrics"
)

// Row models. Timestamps stay unix seconds at this boundary; the unique
// indexes on (week_id, participant_id) are the schema-level backstop for
// the one-counted-activity invariant.

type seasonRow struct {
	ID      string `gorm:"primaryKey;size:64"`
	Name    string `gorm:"size:100;not null"`
	StartAt int64  `gorm:"not null"`
	EndAt   int64  `gorm:"not null"`
	Active  bool
}

func (seasonRow) TableName() string { return "seasons" }

type segmentRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:100"`
	DistanceM float64
	AvgGrade  float64
	City      string `gorm:"size:100"`
}

func (segmentRow) TableName() string { return "segments" }

type weekRow struct {
	ID           string `gorm:"primaryKey;size:64"`
	Name         string `gorm:"size:100"`
	SeasonID     string `gorm:"size:64;not null;index"`
	SegmentID    string `gorm:"size:64;not null;index"`
	RequiredLaps int    `gorm:"not null"`
	Multiplier   int    `gorm:"not null"`
	StartAt      int64  `gorm:"not null"`
	EndAt        int64  `gorm:"not null"`
	Notes        string
}

func (weekRow) TableName() string { return "weeks" }

type participantRow struct {
	ID          string `gorm:"primaryKey;size:64"`
	DisplayName string `gorm:"size:100;not null"`
}

func (participantRow) TableName() string { return "participants" }

type activityRow struct {
	ID                 string `gorm:"primaryKey;size:36"`
	WeekID             string `gorm:"size:64;not null;uniqueIndex:idx_activities_week_participant,priority:1"`
	ParticipantID      string `gorm:"size:64;not null;uniqueIndex:idx_activities_week_participant,priority:2"`
	ExternalActivityID string `gorm:"size:64;not null"`
	StartAt            int64  `gorm:"not null"`
	DeviceName         string `gorm:"size:100"`
}

func (activityRow) TableName() string { return "activities" }

type segmentEffortRow struct {
	ID             string `gorm:"primaryKey;size:36"`
	ActivityID     string `gorm:"size:36;not null;index"`
	SegmentID      string `gorm:"size:64;not null"`
	EffortIndex    int    `gorm:"not null"`
	ElapsedSeconds int64  `gorm:"not null"`
	StartAt        int64  `gorm:"not null"`
	PRAchieved     bool   `gorm:"column:pr_achieved"`
}

func (segmentEffortRow) TableName() string { return "segment_efforts" }

type resultRow struct {
	ID               string `gorm:"primaryKey;size:36"`
	WeekID           string `gorm:"size:64;not null;uniqueIndex:idx_results_week_participant,priority:1"`
	ParticipantID    string `gorm:"size:64;not null;uniqueIndex:idx_results_week_participant,priority:2"`
	ActivityID       string `gorm:"size:36;not null"`
	TotalTimeSeconds int64  `gorm:"not null"`
}

func (resultRow) TableName() string { return "results" }

// GormStore is the Postgres-backed Store implementation.
type GormStore struct {
	db      *gorm.DB
	commits *pairLock
}

// NewGormStore opens the database and migrates the schema.
func NewGormStore(ctx context.Context, dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(
		&seasonRow{}, &segmentRow{}, &weekRow{}, &participantRow{},
		&activityRow{}, &segmentEffortRow{}, &resultRow{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &GormStore{db: db, commits: newPairLock()}, nil
}

func (s *GormStore) SeedCompetition(ctx context.Context, seasons []model.Season, segments []model.Segment, weeks []model.Week) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sn := range seasons {
			row := seasonRow{ID: sn.ID, Name: sn.Name, StartAt: sn.StartAt, EndAt: sn.EndAt, Active: sn.Active}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("seed season %s: %w", sn.ID, err)
			}
		}
		for _, sg := range segments {
			row := segmentRow{ID: sg.ID, Name: sg.Name, DistanceM: sg.DistanceM, AvgGrade: sg.AvgGrade, City: sg.City}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("seed segment %s: %w", sg.ID, err)
			}
		}
		for _, w := range weeks {
			row := weekRow{
				ID: w.ID, Name: w.Name, SeasonID: w.SeasonID, SegmentID: w.SegmentID,
				RequiredLaps: w.RequiredLaps, Multiplier: w.Multiplier,
				StartAt: w.StartAt, EndAt: w.EndAt, Notes: w.Notes,
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("seed week %s: %w", w.ID, err)
			}
		}
		return nil
	})
}

func (s *GormStore) Seasons(ctx context.Context) ([]model.Season, error) {
	var rows []seasonRow
	if err := s.db.WithContext(ctx).Order("start_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load seasons: %w", err)
	}
	out := make([]model.Season, len(rows))
	for i, r := range rows {
		out[i] = model.Season{ID: r.ID, Name: r.Name, StartAt: r.StartAt, EndAt: r.EndAt, Active: r.Active}
	}
	return out, nil
}

func (s *GormStore) Weeks(ctx context.Context) ([]model.Week, error) {
	var rows []weekRow
	if err := s.db.WithContext(ctx).Order("start_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load weeks: %w", err)
	}
	out := make([]model.Week, len(rows))
	for i, r := range rows {
		out[i] = weekFromRow(r)
	}
	return out, nil
}

func (s *GormStore) Week(ctx context.Context, weekID string) (model.Week, error) {
	var row weekRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", weekID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Week{}, ErrWeekNotFound
	}
	if err != nil {
		return model.Week{}, fmt.Errorf("load week %s: %w", weekID, err)
	}
	return weekFromRow(row), nil
}

func (s *GormStore) UpsertParticipant(ctx context.Context, p model.Participant) error {
	row := participantRow{ID: p.ID, DisplayName: p.DisplayName}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("upsert participant %s: %w", p.ID, err)
	}
	return nil
}

// CommitActivity runs the delete-then-insert swap inside one database
// transaction; the pair lock keeps two racing commits for the same pair
// from interleaving even before their transactions collide on the
// unique index.
func (s *GormStore) CommitActivity(ctx context.Context, req CommitRequest) (string, error) {
	unlock := s.commits.Lock(pairKey(req.WeekID, req.ParticipantID))
	defer unlock()

	activityID := uuid.New().String()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var week weekRow
		if err := tx.First(&week, "id = ?", req.WeekID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWeekNotFound
			}
			return err
		}

		var prior activityRow
		err := tx.First(&prior, "week_id = ? AND participant_id = ?", req.WeekID, req.ParticipantID).Error
		switch {
		case err == nil:
			// Referential order: result, efforts, then the activity.
			if err := tx.Where("week_id = ? AND participant_id = ?", req.WeekID, req.ParticipantID).
				Delete(&resultRow{}).Error; err != nil {
				return err
			}
			if err := tx.Where("activity_id = ?", prior.ID).Delete(&segmentEffortRow{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&activityRow{}, "id = ?", prior.ID).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// First observation for this pair.
		default:
			return err
		}

		activity := activityRow{
			ID:                 activityID,
			WeekID:             req.WeekID,
			ParticipantID:      req.ParticipantID,
			ExternalActivityID: req.ExternalActivityID,
			StartAt:            req.StartAt,
			DeviceName:         req.DeviceName,
		}
		if err := tx.Create(&activity).Error; err != nil {
			return err
		}

		for i, e := range req.Efforts {
			row := segmentEffortRow{
				ID:             uuid.New().String(),
				ActivityID:     activityID,
				SegmentID:      e.SegmentID,
				EffortIndex:    i,
				ElapsedSeconds: e.ElapsedSeconds,
				StartAt:        e.StartAt,
				PRAchieved:     e.PRAchieved,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		result := resultRow{
			ID:               uuid.New().String(),
			WeekID:           req.WeekID,
			ParticipantID:    req.ParticipantID,
			ActivityID:       activityID,
			TotalTimeSeconds: req.TotalTimeSeconds,
		}
		return tx.Create(&result).Error
	})
	if err != nil {
		return "", err
	}
	s.updateScaleMetrics(ctx)
	return activityID, nil
}

func (s *GormStore) RetractActivity(ctx context.Context, weekID, participantID string) error {
	unlock := s.commits.Lock(pairKey(weekID, participantID))
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior activityRow
		err := tx.First(&prior, "week_id = ? AND participant_id = ?", weekID, participantID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResultNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Where("week_id = ? AND participant_id = ?", weekID, participantID).
			Delete(&resultRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("activity_id = ?", prior.ID).Delete(&segmentEffortRow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&activityRow{}, "id = ?", prior.ID).Error
	})
	if err != nil {
		return err
	}
	s.updateScaleMetrics(ctx)
	return nil
}

func (s *GormStore) WeekResults(ctx context.Context, weekID string) ([]WeekResult, error) {
	if _, err := s.Week(ctx, weekID); err != nil {
		return nil, err
	}

	var results []resultRow
	if err := s.db.WithContext(ctx).Find(&results, "week_id = ?", weekID).Error; err != nil {
		return nil, fmt.Errorf("load results for week %s: %w", weekID, err)
	}

	out := make([]WeekResult, 0, len(results))
	for _, res := range results {
		var activity activityRow
		if err := s.db.WithContext(ctx).First(&activity, "id = ?", res.ActivityID).Error; err != nil {
			return nil, fmt.Errorf("load activity %s: %w", res.ActivityID, err)
		}
		var participant participantRow
		if err := s.db.WithContext(ctx).First(&participant, "id = ?", res.ParticipantID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load participant %s: %w", res.ParticipantID, err)
		}
		var effortRows []segmentEffortRow
		if err := s.db.WithContext(ctx).Order("effort_index").
			Find(&effortRows, "activity_id = ?", activity.ID).Error; err != nil {
			return nil, fmt.Errorf("load efforts for activity %s: %w", activity.ID, err)
		}

		efforts := make([]model.SegmentEffort, len(effortRows))
		for i, e := range effortRows {
			efforts[i] = model.SegmentEffort{
				ID:             e.ID,
				ActivityID:     e.ActivityID,
				SegmentID:      e.SegmentID,
				EffortIndex:    e.EffortIndex,
				ElapsedSeconds: e.ElapsedSeconds,
				StartAt:        e.StartAt,
				PRAchieved:     e.PRAchieved,
			}
		}

		out = append(out, WeekResult{
			ResultID:           res.ID,
			WeekID:             res.WeekID,
			ParticipantID:      res.ParticipantID,
			DisplayName:        participant.DisplayName,
			ActivityID:         activity.ID,
			ExternalActivityID: activity.ExternalActivityID,
			DeviceName:         activity.DeviceName,
			StartAt:            activity.StartAt,
			TotalTimeSeconds:   res.TotalTimeSeconds,
			Efforts:            efforts,
		})
	}
	return out, nil
}

func (s *GormStore) ResultTimesForParticipant(ctx context.Context, participantID string) (map[string]int64, error) {
	var rows []resultRow
	if err := s.db.WithContext(ctx).Find(&rows, "participant_id = ?", participantID).Error; err != nil {
		return nil, fmt.Errorf("load results for participant %s: %w", participantID, err)
	}
	times := make(map[string]int64, len(rows))
	for _, r := range rows {
		times[r.WeekID] = r.TotalTimeSeconds
	}
	return times, nil
}

func (s *GormStore) Counts(ctx context.Context) (results, participants int) {
	var r, p int64
	s.db.WithContext(ctx).Model(&resultRow{}).Count(&r)
	s.db.WithContext(ctx).Model(&participantRow{}).Count(&p)
	return int(r), int(p)
}

func (s *GormStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("access underlying database: %w", err)
	}
	return db.Close()
}

func (s *GormStore) updateScaleMetrics(ctx context.Context) {
	results, participants := s.Counts(ctx)
	metrics.UpdateStoreResults(results)
	metrics.UpdateStoreParticipants(participants)
}

func weekFromRow(r weekRow) model.Week {
	return model.Week{
		ID: r.ID, Name: r.Name, SeasonID: r.SeasonID, SegmentID: r.SegmentID,
		RequiredLaps: r.RequiredLaps, Multiplier: r.Multiplier,
		StartAt: r.StartAt, EndAt: r.EndAt, Notes: r.Notes,
	}
}
