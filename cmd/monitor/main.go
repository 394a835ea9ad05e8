package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Meesho/BharatMLStack/vigil/internal/baseline"
	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/internal/monitor"
	"github.com/Meesho/BharatMLStack/vigil/internal/preprocess"
	"github.com/Meesho/BharatMLStack/vigil/pkg/config"
	"github.com/Meesho/BharatMLStack/vigil/pkg/logger"
	"github.com/Meesho/BharatMLStack/vigil/pkg/metric"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	endpointKey        = "MONITOR_ENDPOINT"
	baselinePathKey    = "MONITOR_BASELINE_PATH"
	outputRootKey      = "MONITOR_OUTPUT_ROOT"
	analyzerCommandKey = "MONITOR_ANALYZER_COMMAND"
	cronKey            = "MONITOR_CRON"
	intervalMinKey     = "MONITOR_INTERVAL_MINUTES"
	lookbackMinKey     = "MONITOR_LOOKBACK_MINUTES"
)

const defaultLookbackMinutes = 60

func main() {
	config.InitEnv()
	logger.Init()
	metric.Init()

	runner := buildRunner()

	cronExpression := viper.GetString(cronKey)
	if cronExpression == "" {
		runOnce(runner)
		return
	}

	intervalMinutes := viper.GetInt(intervalMinKey)
	if intervalMinutes <= 0 {
		log.Panic().Msgf("%s must be positive when %s is set", intervalMinKey, cronKey)
	}
	scheduler, err := monitor.NewScheduler(runner, time.Duration(intervalMinutes)*time.Minute)
	if err != nil {
		log.Panic().Err(err).Msg("Failed to build monitoring scheduler")
	}
	if err := scheduler.Start(cronExpression); err != nil {
		log.Panic().Err(err).Msg("Failed to start monitoring scheduler")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	scheduler.Stop()
}

func buildRunner() *monitor.Runner {
	store, err := capture.NewStore(viper.GetString(config.CaptureStoreRoot))
	if err != nil {
		log.Panic().Err(err).Msg("Failed to open capture store")
	}

	schema, err := baseline.Load(viper.GetString(baselinePathKey))
	if err != nil {
		log.Panic().Err(err).Msg("Failed to load baseline schema")
	}

	preprocessor, err := preprocess.NewPreprocessor(schema, nil)
	if err != nil {
		log.Panic().Err(err).Msg("Failed to build preprocessor")
	}

	analyzer, err := monitor.NewExecAnalyzer(viper.GetString(analyzerCommandKey))
	if err != nil {
		log.Panic().Err(err).Msg("Failed to build analysis engine invoker")
	}

	runner, err := monitor.NewRunner(
		viper.GetString(endpointKey), store, preprocessor, analyzer, viper.GetString(outputRootKey))
	if err != nil {
		log.Panic().Err(err).Msg("Failed to build monitoring runner")
	}
	return runner
}

// runOnce covers the lookback interval ending now, then exits. Used for
// manual and externally scheduled runs.
func runOnce(runner *monitor.Runner) {
	lookback := viper.GetInt(lookbackMinKey)
	if lookback <= 0 {
		lookback = defaultLookbackMinutes
	}
	now := time.Now()
	window := monitor.Window{From: now.Add(-time.Duration(lookback) * time.Minute), To: now}

	result, err := runner.Run(context.Background(), window)
	if err != nil {
		log.Panic().Err(err).Msg("Monitoring run failed")
	}
	log.Info().
		Int("included", result.Included).
		Int("excludedTest", result.ExcludedTest).
		Int("excludedMalformed", result.ExcludedMalformed).
		Int("violations", len(result.Violations.Violations)).
		Msgf("Monitoring run finished, dataset at %s", result.DatasetPath)
}
