package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/duel/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.KFactor, convey.ShouldEqual, 32.0)
				convey.So(cfg.Scale, convey.ShouldEqual, 400.0)
				convey.So(cfg.MaxChallengers, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("DUEL_K_FACTOR", "24")
			_ = os.Setenv("DUEL_SEED", "7")
			_ = os.Setenv("DUEL_MAX_ROUNDS", "30")
			_ = os.Setenv("DUEL_ALLOW_REPEATS", "true")
			_ = os.Setenv("DUEL_METRICS_ADDR", ":9100")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.KFactor, convey.ShouldEqual, 24.0)
				convey.So(cfg.Seed, convey.ShouldEqual, int64(7))
				convey.So(cfg.MaxRounds, convey.ShouldEqual, 30)
				convey.So(cfg.AllowRepeats, convey.ShouldBeTrue)
				convey.So(cfg.MetricsAddr, convey.ShouldEqual, ":9100")
				convey.So(cfg.Scale, convey.ShouldEqual, 400.0)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# engine tuning
k_factor: 16
scale: 200
max_challengers: 3
commit_retry_attempts: 2
commit_workers: 2
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("DUEL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.KFactor, convey.ShouldEqual, 16.0)
				convey.So(cfg.Scale, convey.ShouldEqual, 200.0)
				convey.So(cfg.MaxChallengers, convey.ShouldEqual, 3)
				convey.So(cfg.CommitRetryAttempts, convey.ShouldEqual, 2)
				convey.So(cfg.CommitWorkers, convey.ShouldEqual, 2)
				convey.So(cfg.DefaultRating, convey.ShouldEqual, 1200.0)
				convey.So(cfg.CommitQueueSize, convey.ShouldEqual, 1024)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("k_factor: 16\nmax_rounds: 10\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("DUEL_CONFIG", tmpFile)
			_ = os.Setenv("DUEL_K_FACTOR", "40")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.KFactor, convey.ShouldEqual, 40.0)
				convey.So(cfg.MaxRounds, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("DUEL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("DUEL_CONFIG", "/non/existent/duel.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("DUEL_MAX_ROUNDS", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config that fails validation", func() {
			_ = os.Setenv("DUEL_SCALE", "-400")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"DUEL_CONFIG",
		"DUEL_K_FACTOR",
		"DUEL_SCALE",
		"DUEL_SEED",
		"DUEL_MAX_ROUNDS",
		"DUEL_ALLOW_REPEATS",
		"DUEL_METRICS_ADDR",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "duel-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
