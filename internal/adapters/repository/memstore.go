package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/veloclub/segweek/internal/domain/model"
	"github.com/veloclub/segweek/pkg/metrics"
)

// MemStore is the in-memory Store implementation. It is the default
// backend and the one the test suite runs against; the Postgres store
// implements the same contract.
type MemStore struct {
	mu sync.RWMutex

	seasons  []model.Season
	segments []model.Segment
	weeks    []model.Week
	weekByID map[string]model.Week

	participants map[string]model.Participant

	// Keyed by pair key; the (week, participant) uniqueness invariant
	// is structural here.
	activities map[string]model.Activity
	results    map[string]model.Result

	// Keyed by activity id, in effort_index order.
	efforts map[string][]model.SegmentEffort

	commits *pairLock
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(_ context.Context) *MemStore {
	return &MemStore{
		weekByID:     make(map[string]model.Week),
		participants: make(map[string]model.Participant),
		activities:   make(map[string]model.Activity),
		results:      make(map[string]model.Result),
		efforts:      make(map[string][]model.SegmentEffort),
		commits:      newPairLock(),
	}
}

// SeedCompetition replaces the configuration snapshot.
func (s *MemStore) SeedCompetition(_ context.Context, seasons []model.Season, segments []model.Segment, weeks []model.Week) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seasons = append([]model.Season(nil), seasons...)
	s.segments = append([]model.Segment(nil), segments...)
	s.weeks = append([]model.Week(nil), weeks...)
	s.weekByID = make(map[string]model.Week, len(weeks))
	for _, w := range weeks {
		s.weekByID[w.ID] = w
	}
	return nil
}

func (s *MemStore) Seasons(_ context.Context) ([]model.Season, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Season(nil), s.seasons...), nil
}

func (s *MemStore) Weeks(_ context.Context) ([]model.Week, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Week(nil), s.weeks...), nil
}

func (s *MemStore) Week(_ context.Context, weekID string) (model.Week, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.weekByID[weekID]
	if !ok {
		return model.Week{}, ErrWeekNotFound
	}
	return w, nil
}

func (s *MemStore) UpsertParticipant(_ context.Context, p model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID] = p
	metrics.UpdateStoreParticipants(len(s.participants))
	return nil
}

// CommitActivity replaces the pair's records under the pair lock, so a
// racing commit for the same pair cannot interleave its delete/insert
// steps with ours. The whole swap happens under one write lock; readers
// never see a partially replaced pair.
func (s *MemStore) CommitActivity(_ context.Context, req CommitRequest) (string, error) {
	unlock := s.commits.Lock(pairKey(req.WeekID, req.ParticipantID))
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.weekByID[req.WeekID]; !ok {
		return "", ErrWeekNotFound
	}

	key := pairKey(req.WeekID, req.ParticipantID)

	// Delete-then-insert, in referential order.
	delete(s.results, key)
	if prior, ok := s.activities[key]; ok {
		delete(s.efforts, prior.ID)
		delete(s.activities, key)
	}

	activity := model.Activity{
		ID:                 uuid.New().String(),
		WeekID:             req.WeekID,
		ParticipantID:      req.ParticipantID,
		ExternalActivityID: req.ExternalActivityID,
		StartAt:            req.StartAt,
		DeviceName:         req.DeviceName,
	}
	s.activities[key] = activity

	stored := make([]model.SegmentEffort, len(req.Efforts))
	for i, e := range req.Efforts {
		e.ID = uuid.New().String()
		e.ActivityID = activity.ID
		e.EffortIndex = i
		stored[i] = e
	}
	s.efforts[activity.ID] = stored

	s.results[key] = model.Result{
		ID:               uuid.New().String(),
		WeekID:           req.WeekID,
		ParticipantID:    req.ParticipantID,
		ActivityID:       activity.ID,
		TotalTimeSeconds: req.TotalTimeSeconds,
	}

	metrics.UpdateStoreResults(len(s.results))
	return activity.ID, nil
}

// RetractActivity removes the pair's records, leaving no trace.
func (s *MemStore) RetractActivity(_ context.Context, weekID, participantID string) error {
	unlock := s.commits.Lock(pairKey(weekID, participantID))
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(weekID, participantID)
	activity, ok := s.activities[key]
	if !ok {
		return ErrResultNotFound
	}

	delete(s.results, key)
	delete(s.efforts, activity.ID)
	delete(s.activities, key)

	metrics.UpdateStoreResults(len(s.results))
	return nil
}

func (s *MemStore) WeekResults(_ context.Context, weekID string) ([]WeekResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.weekByID[weekID]; !ok {
		return nil, ErrWeekNotFound
	}

	var out []WeekResult
	for key, res := range s.results {
		if res.WeekID != weekID {
			continue
		}
		activity := s.activities[key]
		out = append(out, WeekResult{
			ResultID:           res.ID,
			WeekID:             res.WeekID,
			ParticipantID:      res.ParticipantID,
			DisplayName:        s.participants[res.ParticipantID].DisplayName,
			ActivityID:         activity.ID,
			ExternalActivityID: activity.ExternalActivityID,
			DeviceName:         activity.DeviceName,
			StartAt:            activity.StartAt,
			TotalTimeSeconds:   res.TotalTimeSeconds,
			Efforts:            append([]model.SegmentEffort(nil), s.efforts[activity.ID]...),
		})
	}
	return out, nil
}

func (s *MemStore) ResultTimesForParticipant(_ context.Context, participantID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	times := make(map[string]int64)
	for _, res := range s.results {
		if res.ParticipantID == participantID {
			times[res.WeekID] = res.TotalTimeSeconds
		}
	}
	return times, nil
}

func (s *MemStore) Counts(_ context.Context) (results, participants int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results), len(s.participants)
}

func (s *MemStore) Close() error {
	return nil
}
