package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/internal/generator"
	"github.com/Meesho/BharatMLStack/vigil/internal/metadata"
	"github.com/Meesho/BharatMLStack/vigil/pkg/config"
	"github.com/Meesho/BharatMLStack/vigil/pkg/logger"
	"github.com/Meesho/BharatMLStack/vigil/pkg/metric"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	applicationNameKey = "GENERATOR_APPLICATION_NAME"
	endpointKey        = "GENERATOR_ENDPOINT"
	templatePathKey    = "GENERATOR_TEMPLATE_PATH"
	mutationsPathKey   = "GENERATOR_MUTATIONS_PATH"
	batchSizeKey       = "GENERATOR_BATCH_SIZE"
	testIndicatorKey   = "GENERATOR_TEST_INDICATOR"
)

func main() {
	config.InitEnv()
	logger.Init()
	metric.Init()

	dispatcher, err := generator.NewHTTPDispatcher()
	if err != nil {
		log.Panic().Err(err).Msg("Failed to build gateway dispatcher")
	}

	gen, err := generator.New(
		viper.GetString(applicationNameKey), viper.GetString(endpointKey), dispatcher)
	if err != nil {
		log.Panic().Err(err).Msg("Failed to build traffic generator")
	}

	template, err := loadTemplate(viper.GetString(templatePathKey))
	if err != nil {
		log.Panic().Err(err).Msg("Failed to load request template")
	}
	mutations, err := loadMutations(viper.GetString(mutationsPathKey))
	if err != nil {
		log.Panic().Err(err).Msg("Failed to load mutations")
	}

	size := viper.GetInt(batchSizeKey)
	if size <= 0 {
		size = 1
	}
	indicator := viper.GetString(testIndicatorKey)
	if indicator == "" {
		indicator = metadata.TestIndicatorTrue
	}

	if err := gen.Generate(context.Background(), indicator, template, size, mutations); err != nil {
		log.Panic().Err(err).Msg("Traffic generation aborted")
	}
	log.Info().Msgf("Generated %d requests, last transaction id %d", size, gen.LastTransactionID())
}

func loadTemplate(path string) (capture.Payload, error) {
	if path == "" {
		return nil, fmt.Errorf("%s is not set", templatePathKey)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	var template capture.Payload
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	return template, nil
}

// loadMutations is optional config: without a mutations file the generator
// replays the template verbatim.
func loadMutations(path string) ([]generator.Mutation, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mutations %s: %w", path, err)
	}
	var mutations []generator.Mutation
	if err := json.Unmarshal(data, &mutations); err != nil {
		return nil, fmt.Errorf("failed to parse mutations %s: %w", path, err)
	}
	return mutations, nil
}
