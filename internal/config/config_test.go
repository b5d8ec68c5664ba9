package config_test

import (
	"runtime"
	"testing"

	"github.com/veloclub/segweek/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func validConfig() *config.Config {
	cfg := config.New()
	cfg.Competition = config.CompetitionConfig{
		Seasons: []config.SeasonConfig{
			{ID: "s1", Name: "Spring Series", StartAt: 1000, EndAt: 100000, Active: true},
		},
		Segments: []config.SegmentConfig{
			{ID: "seg-1", Name: "Col du Test"},
		},
		Weeks: []config.WeekConfig{
			{ID: "w1", SeasonID: "s1", SegmentID: "seg-1", RequiredLaps: 2, Multiplier: 1, StartAt: 2000, EndAt: 3000},
		},
	}
	return cfg
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreBackend, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a fully populated config", t, func() {
		convey.Convey("A valid setup passes", func() {
			convey.So(validConfig().Validate(), convey.ShouldBeNil)
		})

		convey.Convey("An empty addr is rejected", func() {
			cfg := validConfig()
			cfg.Addr = ""
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("An unknown store backend is rejected", func() {
			cfg := validConfig()
			cfg.StoreBackend = "cassandra"
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("The postgres backend requires a DSN", func() {
			cfg := validConfig()
			cfg.StoreBackend = config.StorePostgres
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)

			cfg.DatabaseDSN = "host=localhost user=segweek dbname=segweek"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("A week referencing an unknown season is rejected", func() {
			cfg := validConfig()
			cfg.Competition.Weeks[0].SeasonID = "s9"
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("A week referencing an unknown segment is rejected", func() {
			cfg := validConfig()
			cfg.Competition.Weeks[0].SegmentID = "seg-9"
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("A week needs at least one required lap", func() {
			cfg := validConfig()
			cfg.Competition.Weeks[0].RequiredLaps = 0
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("A multiplier below one is rejected", func() {
			cfg := validConfig()
			cfg.Competition.Weeks[0].Multiplier = 0
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("A window ending before it starts is rejected", func() {
			cfg := validConfig()
			cfg.Competition.Weeks[0].EndAt = cfg.Competition.Weeks[0].StartAt - 1
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("Duplicate week ids are rejected", func() {
			cfg := validConfig()
			cfg.Competition.Weeks = append(cfg.Competition.Weeks, cfg.Competition.Weeks[0])
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})
	})
}
