package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	repository "github.com/veloclub/segweek/internal/adapters/repository"
	"github.com/veloclub/segweek/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func seededStore(ctx context.Context) *repository.MemStore {
	s := repository.NewMemStore(ctx)
	_ = s.SeedCompetition(ctx,
		[]model.Season{{ID: "s1", Name: "Spring", StartAt: 1000, EndAt: 100000, Active: true}},
		[]model.Segment{{ID: "seg-a", Name: "Col du Test"}},
		[]model.Week{
			{ID: "w1", Name: "Week 1", SeasonID: "s1", SegmentID: "seg-a", RequiredLaps: 2, Multiplier: 1, StartAt: 2000, EndAt: 3000},
			{ID: "w2", Name: "Week 2", SeasonID: "s1", SegmentID: "seg-a", RequiredLaps: 2, Multiplier: 2, StartAt: 4000, EndAt: 5000},
		},
	)
	return s
}

func commitReq(week, participant string) repository.CommitRequest {
	return repository.CommitRequest{
		WeekID:             week,
		ParticipantID:      participant,
		ExternalActivityID: "ext-1",
		DeviceName:         "ELEMNT",
		StartAt:            2500,
		Efforts: []model.SegmentEffort{
			{SegmentID: "seg-a", ElapsedSeconds: 600, StartAt: 2500},
			{SegmentID: "seg-a", ElapsedSeconds: 620, StartAt: 3150, PRAchieved: true},
		},
		TotalTimeSeconds: 1220,
	}
}

func TestMemStoreCommit(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded store", t, func() {
		s := seededStore(ctx)
		So(s.UpsertParticipant(ctx, model.Participant{ID: "p1", DisplayName: "Rider A"}), ShouldBeNil)

		Convey("Committing creates activity, efforts and result", func() {
			id, err := s.CommitActivity(ctx, commitReq("w1", "p1"))
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)

			results, err := s.WeekResults(ctx, "w1")
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 1)
			So(results[0].ParticipantID, ShouldEqual, "p1")
			So(results[0].DisplayName, ShouldEqual, "Rider A")
			So(results[0].TotalTimeSeconds, ShouldEqual, 1220)
			So(results[0].Efforts, ShouldHaveLength, 2)
			So(results[0].Efforts[0].EffortIndex, ShouldEqual, 0)
			So(results[0].Efforts[1].EffortIndex, ShouldEqual, 1)
			So(results[0].Efforts[1].PRAchieved, ShouldBeTrue)
		})

		Convey("Committing the same observation twice converges", func() {
			_, err := s.CommitActivity(ctx, commitReq("w1", "p1"))
			So(err, ShouldBeNil)
			id2, err := s.CommitActivity(ctx, commitReq("w1", "p1"))
			So(err, ShouldBeNil)

			results, err := s.WeekResults(ctx, "w1")
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 1)
			So(results[0].ActivityID, ShouldEqual, id2)
			So(results[0].Efforts, ShouldHaveLength, 2)
		})

		Convey("A corrected observation replaces, never patches", func() {
			_, err := s.CommitActivity(ctx, commitReq("w1", "p1"))
			So(err, ShouldBeNil)

			corrected := commitReq("w1", "p1")
			corrected.ExternalActivityID = "ext-2"
			corrected.Efforts = corrected.Efforts[:1]
			corrected.TotalTimeSeconds = 600
			_, err = s.CommitActivity(ctx, corrected)
			So(err, ShouldBeNil)

			results, err := s.WeekResults(ctx, "w1")
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 1)
			So(results[0].ExternalActivityID, ShouldEqual, "ext-2")
			So(results[0].TotalTimeSeconds, ShouldEqual, 600)
			So(results[0].Efforts, ShouldHaveLength, 1)
		})

		Convey("Committing to an unknown week fails", func() {
			_, err := s.CommitActivity(ctx, commitReq("nope", "p1"))
			So(errors.Is(err, repository.ErrWeekNotFound), ShouldBeTrue)
		})

		Convey("Pairs are independent", func() {
			_, err := s.CommitActivity(ctx, commitReq("w1", "p1"))
			So(err, ShouldBeNil)
			_, err = s.CommitActivity(ctx, commitReq("w2", "p1"))
			So(err, ShouldBeNil)

			times, err := s.ResultTimesForParticipant(ctx, "p1")
			So(err, ShouldBeNil)
			So(times, ShouldHaveLength, 2)
			So(times["w1"], ShouldEqual, 1220)
		})
	})
}

func TestMemStoreRetract(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with one committed result", t, func() {
		s := seededStore(ctx)
		So(s.UpsertParticipant(ctx, model.Participant{ID: "p1", DisplayName: "Rider A"}), ShouldBeNil)
		_, err := s.CommitActivity(ctx, commitReq("w1", "p1"))
		So(err, ShouldBeNil)

		Convey("Retracting removes every trace", func() {
			So(s.RetractActivity(ctx, "w1", "p1"), ShouldBeNil)

			results, err := s.WeekResults(ctx, "w1")
			So(err, ShouldBeNil)
			So(results, ShouldBeEmpty)

			times, err := s.ResultTimesForParticipant(ctx, "p1")
			So(err, ShouldBeNil)
			So(times, ShouldBeEmpty)
		})

		Convey("Retracting an absent pair reports not found", func() {
			err := s.RetractActivity(ctx, "w2", "p1")
			So(errors.Is(err, repository.ErrResultNotFound), ShouldBeTrue)
		})
	})
}

func TestMemStoreReads(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded store", t, func() {
		s := seededStore(ctx)

		Convey("Unknown week ids are not found", func() {
			_, err := s.WeekResults(ctx, "nope")
			So(errors.Is(err, repository.ErrWeekNotFound), ShouldBeTrue)
			_, err = s.Week(ctx, "nope")
			So(errors.Is(err, repository.ErrWeekNotFound), ShouldBeTrue)
		})

		Convey("An empty week yields an empty result set, not an error", func() {
			results, err := s.WeekResults(ctx, "w1")
			So(err, ShouldBeNil)
			So(results, ShouldBeEmpty)
		})

		Convey("Configuration reads round-trip", func() {
			seasons, err := s.Seasons(ctx)
			So(err, ShouldBeNil)
			So(seasons, ShouldHaveLength, 1)
			weeks, err := s.Weeks(ctx)
			So(err, ShouldBeNil)
			So(weeks, ShouldHaveLength, 2)
		})
	})
}

func TestMemStoreConcurrentCommits(t *testing.T) {
	ctx := context.Background()

	Convey("Given racing commits for the same pair", t, func() {
		s := seededStore(ctx)
		_ = s.UpsertParticipant(ctx, model.Participant{ID: "p1", DisplayName: "Rider A"})

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.CommitActivity(ctx, commitReq("w1", "p1"))
			}()
		}
		wg.Wait()

		Convey("Exactly one result survives", func() {
			results, err := s.WeekResults(ctx, "w1")
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 1)
			So(results[0].Efforts, ShouldHaveLength, 2)
		})
	})
}
