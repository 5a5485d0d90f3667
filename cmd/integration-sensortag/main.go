package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog"

	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"

	"github.com/diwise/integration-sensortag/internal/pkg/application"
	"github.com/diwise/integration-sensortag/internal/pkg/infrastructure/router"
	"github.com/diwise/integration-sensortag/internal/pkg/infrastructure/sensortag"
	"github.com/diwise/integration-sensortag/internal/pkg/infrastructure/sheets"
)

const serviceName string = "integration-sensortag"

func main() {
	serviceVersion := buildinfo.SourceVersion()

	ctx, logger, cleanup := o11y.Init(context.Background(), serviceName, serviceVersion)
	defer cleanup()

	gatewayURL := env.GetVariableOrDie(logger, "SENSORTAG_GATEWAY_URL", "ble gateway url")
	deviceAddress := env.GetVariableOrDie(logger, "SENSORTAG_ADDRESS", "sensortag bluetooth address")
	sheetsURL := env.GetVariableOrDie(logger, "SHEETS_BASEURL", "sheet service base url")
	credentialsFile := env.GetVariableOrDie(logger, "SHEETS_CREDENTIALS_FILE", "path to a service account key file")

	spreadsheetName := env.GetVariableOrDefault(logger, "SHEETS_SPREADSHEET_NAME", "raspberry-pi-sensortag")
	worksheetName := env.GetVariableOrDefault(logger, "SHEETS_WORKSHEET_NAME", "data")
	servicePort := env.GetVariableOrDefault(logger, "SERVICE_PORT", "8080")

	cfg := application.Config{
		Interval:    envDuration(logger, "COLLECT_INTERVAL", "55s"),
		SettleDelay: envDuration(logger, "COLLECT_SETTLE_DELAY", "1s"),
	}

	device := sensortag.New(gatewayURL, deviceAddress)
	store := sheets.New(sheetsURL, credentialsFile, spreadsheetName, worksheetName)
	collector := application.New(device, store, cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		r := router.SetupRouter(chi.NewRouter(), logger, collector.Status)
		if err := r.Start(servicePort); err != nil {
			logger.Fatal().Err(err).Msg("failed to start router")
		}
	}()

	if err := device.Connect(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not connect to sensortag, will keep retrying")
	}

	logger.Info().Msgf("storing readings from %s in %s every %s", deviceAddress, spreadsheetName, cfg.Interval)

	if err := collector.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start collecting")
	}

	logger.Info().Msg("shutting down")
}

func envDuration(logger zerolog.Logger, name, defaultValue string) time.Duration {
	value := env.GetVariableOrDefault(logger, name, defaultValue)

	duration, err := time.ParseDuration(value)
	if err != nil {
		logger.Fatal().Err(err).Msgf("%s is not a valid duration", name)
	}

	return duration
}
