package runtime

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/synthkit/common/config"
	"github.com/t2bot/synthkit/common/logging"
	"github.com/t2bot/synthkit/common/version"
	"github.com/t2bot/synthkit/metrics"
)

// RunStartupSequence loads the configuration at configPath, then brings up logging, Sentry
// and metrics. The returned function shuts them down again and should be deferred.
func RunStartupSequence(program string, configPath string) func() {
	config.Path = configPath
	cfg := config.Get()

	err := logging.Setup(
		cfg.Logging.Directory,
		cfg.Logging.Colors,
		cfg.Logging.Json,
		cfg.Logging.Level,
	)
	if err != nil {
		panic(err)
	}

	if cfg.Sentry.Enabled {
		logrus.Info("Setting up Sentry for debugging...")
		err = sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.Dsn,
			Environment: cfg.Sentry.Environment,
			Debug:       cfg.Sentry.Debug,
			Release:     version.Tag(program),
		})
		if err != nil {
			panic(err)
		}
	}

	logrus.Info("Starting up...")
	version.Print(program, true)
	metrics.Init()

	return func() {
		logrus.Info("Stopping metrics...")
		metrics.Stop()
		sentry.Flush(2 * time.Second)
	}
}

// ReportError sends err to Sentry (when enabled) before logging it as fatal.
func ReportError(err error) {
	sentry.CaptureException(err)
	sentry.Flush(2 * time.Second)
	logrus.Fatal(err)
}
