package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/duel/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.KFactor, convey.ShouldEqual, 32.0)
			convey.So(cfg.Scale, convey.ShouldEqual, 400.0)
			convey.So(cfg.DefaultRating, convey.ShouldEqual, 1200.0)
			convey.So(cfg.Seed, convey.ShouldEqual, int64(0))
			convey.So(cfg.MaxRounds, convey.ShouldEqual, 0)
			convey.So(cfg.AllowRepeats, convey.ShouldBeFalse)
			convey.So(cfg.TieEpsilon, convey.ShouldEqual, 1e-9)
			convey.So(cfg.MaxChallengers, convey.ShouldEqual, 5)
			convey.So(cfg.CommitRetryAttempts, convey.ShouldEqual, 5)
			convey.So(cfg.CommitRetryBackoff(), convey.ShouldEqual, 200*time.Millisecond)
			convey.So(cfg.CommitQueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.CommitWorkers, convey.ShouldEqual, 1)
			convey.So(cfg.MetricsAddr, convey.ShouldEqual, "")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid values", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"zero k", func(c *config.Config) { c.KFactor = 0 }},
			{"negative scale", func(c *config.Config) { c.Scale = -1 }},
			{"negative rounds", func(c *config.Config) { c.MaxRounds = -1 }},
			{"negative tie epsilon", func(c *config.Config) { c.TieEpsilon = -0.5 }},
			{"negative challengers", func(c *config.Config) { c.MaxChallengers = -2 }},
			{"negative retries", func(c *config.Config) { c.CommitRetryAttempts = -1 }},
			{"negative backoff", func(c *config.Config) { c.CommitRetryBackoffMS = -1 }},
			{"zero queue", func(c *config.Config) { c.CommitQueueSize = 0 }},
			{"zero workers", func(c *config.Config) { c.CommitWorkers = 0 }},
		}
		for _, tc := range cases {
			cfg := config.New(context.Background())
			tc.mutate(cfg)

			convey.Convey("Then "+tc.name+" is rejected", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
