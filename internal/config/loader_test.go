package config_test

import (
	"context"
	"os"
	"runtime"
	"testing"

	"github.com/okian/almanac/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DispatchQueueSize, convey.ShouldEqual, 4096)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
				convey.So(cfg.MaxRangeLimit, convey.ShouldEqual, 1000)
				convey.So(cfg.DefaultRangeLimit, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ALMANAC_ADDR", ":8080")
			_ = os.Setenv("ALMANAC_QUEUE_SIZE", "1024")
			_ = os.Setenv("ALMANAC_WORKER_COUNT", "16")
			_ = os.Setenv("ALMANAC_MAX_RANGE_LIMIT", "500")
			_ = os.Setenv("ALMANAC_DEFAULT_RANGE_LIMIT", "50")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DispatchQueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.MaxRangeLimit, convey.ShouldEqual, 500)
				convey.So(cfg.DefaultRangeLimit, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
log_level: "debug"
addr: ":9090"
queue_size: 2048
worker_count: 24
max_range_limit: 2000
default_range_limit: 200
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ALMANAC_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DispatchQueueSize, convey.ShouldEqual, 2048)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 24)
				convey.So(cfg.MaxRangeLimit, convey.ShouldEqual, 2000)
				convey.So(cfg.DefaultRangeLimit, convey.ShouldEqual, 200)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 2048
worker_count: 24
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ALMANAC_CONFIG", tmpFile)
			_ = os.Setenv("ALMANAC_ADDR", ":8080")      // This should override the file
			_ = os.Setenv("ALMANAC_WORKER_COUNT", "32") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")             // Overridden by env
				convey.So(cfg.DispatchQueueSize, convey.ShouldEqual, 2048)   // From file
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)           // Overridden by env
				convey.So(cfg.MaxRangeLimit, convey.ShouldEqual, 1000)       // From defaults
				convey.So(cfg.DefaultRangeLimit, convey.ShouldEqual, 100)    // From defaults
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ALMANAC_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("ALMANAC_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("ALMANAC_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-positive range limits", func() {
			_ = os.Setenv("ALMANAC_MAX_RANGE_LIMIT", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "range limits must be positive")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with partial YAML file", func() {
			yamlContent := `
addr: ":9090"
worker_count: 16
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ALMANAC_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should merge with defaults for missing fields", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")           // From file
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)         // From file
				convey.So(cfg.DispatchQueueSize, convey.ShouldEqual, 4096) // From defaults
				convey.So(cfg.MaxRangeLimit, convey.ShouldEqual, 1000)     // From defaults
				convey.So(cfg.DefaultRangeLimit, convey.ShouldEqual, 100)  // From defaults
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("ALMANAC_QUEUE_SIZE", "invalid")
			_ = os.Setenv("ALMANAC_WORKER_COUNT", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"ALMANAC_CONFIG",
		"ALMANAC_LOG_LEVEL",
		"ALMANAC_ADDR",
		"ALMANAC_QUEUE_SIZE",
		"ALMANAC_WORKER_COUNT",
		"ALMANAC_MAX_RANGE_LIMIT",
		"ALMANAC_DEFAULT_RANGE_LIMIT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "almanac-config-*.yaml")
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
