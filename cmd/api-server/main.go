package main

import (
	http2 "net/http"
	_ "net/http/pprof"

	"github.com/Meesho/BharatMLStack/vigil/internal/external/kafka"
	"github.com/Meesho/BharatMLStack/vigil/internal/external/model"
	httpserver "github.com/Meesho/BharatMLStack/vigil/internal/server/http"
	"github.com/Meesho/BharatMLStack/vigil/pkg/config"
	"github.com/Meesho/BharatMLStack/vigil/pkg/logger"
	"github.com/Meesho/BharatMLStack/vigil/pkg/metric"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func main() {
	config.InitEnv()
	go func() {
		http2.ListenAndServe(":8080", nil)
	}()
	logger.Init()
	metric.Init()

	modelClient, err := model.NewHTTPClient()
	if err != nil {
		log.Panic().Err(err).Msg("Failed to build model backend client")
	}
	kafka.InitCaptureLogger()
	defer kafka.CloseCaptureLogger()

	httpserver.Init(httpserver.Deps{
		Model:   modelClient,
		Capture: kafka.PublishCaptureRecord,
	})

	if !viper.IsSet(config.AppPort) {
		log.Panic().Msg("Failed to start the application - APP_PORT is not set")
	}
	if err := httpserver.Instance().Run(":" + viper.GetString(config.AppPort)); err != nil {
		log.Panic().Err(err).Msg("Error from running vigil api-server")
	}
}
