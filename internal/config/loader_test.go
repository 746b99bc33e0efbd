package config_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/okian/skyguess/internal/config"
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
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SKYGUESS_ADDR", ":8080")
			_ = os.Setenv("SKYGUESS_MAX_RADIUS_KM", "150.5")
			_ = os.Setenv("SKYGUESS_WORKER_COUNT", "16")
			_ = os.Setenv("SKYGUESS_KAFKA_BROKERS", "kafka:9092")
			_ = os.Setenv("SKYGUESS_LOG_FORMAT", "json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxRadiusKm, convey.ShouldEqual, 150.5)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.Brokers(), convey.ShouldResemble, []string{"kafka:9092"})
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.DecayKm, convey.ShouldEqual, 250.0)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
# overrides
addr: ":9090"
search_area_deg: 0.5
queue_size: 300
feed_list_url: "http://feed.local/feed.js"
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SKYGUESS_CONFIG", tmpFile)
			_ = os.Setenv("SKYGUESS_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SearchAreaDeg, convey.ShouldEqual, 0.5)
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.FeedListURL, convey.ShouldEqual, "http://feed.local/feed.js")
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SKYGUESS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SKYGUESS_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SKYGUESS_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given settings that fail validation", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		cases := []struct{ key, value string }{
			{"SKYGUESS_ADDR", ""},
			{"SKYGUESS_LOG_FORMAT", "xml"},
			{"SKYGUESS_FEED_TIMEOUT_MS", "0"},
			{"SKYGUESS_SEARCH_AREA_DEG", "-1"},
			{"SKYGUESS_MAX_RADIUS_KM", "0"},
			{"SKYGUESS_DECAY_KM", "0"},
			{"SKYGUESS_DEDUPE_SIZE", "-1"},
			{"SKYGUESS_LOBBY_TTL_MINUTES", "-5"},
		}
		for _, tc := range cases {
			convey.Convey("When "+tc.key+" is "+strconv.Quote(tc.value), func() {
				_ = os.Setenv(tc.key, tc.value)
				defer clearConfigEnvVars()

				cfg, err := config.Load(ctx)

				convey.Convey("Then an invalid config error is returned", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(cfg, convey.ShouldBeNil)
				})
			})
		}

		convey.Convey("When brokers are set without a topic", func() {
			_ = os.Setenv("SKYGUESS_KAFKA_BROKERS", "kafka:9092")
			_ = os.Setenv("SKYGUESS_KAFKA_TOPIC", "")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then the missing topic is reported", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "kafka_topic")
			})
		})

		convey.Convey("When zero sizes are given", func() {
			_ = os.Setenv("SKYGUESS_WORKER_COUNT", "0")
			_ = os.Setenv("SKYGUESS_QUEUE_SIZE", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then they are accepted and left to component defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 0)
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 0)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "SKYGUESS_") {
			_ = os.Unsetenv(key)
		}
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "skyguess-config-*.yaml")
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
