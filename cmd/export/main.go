// export dumps the booking ledger and the catalog to an .xlsx workbook.
//
//	export -config configs/config.yaml -out bookings.xlsx
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Mahbub143625/telegram-booking-bot/internal/catalog"
	"github.com/Mahbub143625/telegram-booking-bot/internal/config"
	"github.com/Mahbub143625/telegram-booking-bot/internal/database"
	"github.com/Mahbub143625/telegram-booking-bot/internal/ledger"
	"github.com/Mahbub143625/telegram-booking-bot/internal/report"
)

func main() {
	_ = godotenv.Load(".env")

	configPath := flag.String("config", os.Getenv("BOOKING_CONFIG_PATH"), "path to config.yaml")
	outPath := flag.String("out", "bookings.xlsx", "output workbook path")
	flag.Parse()

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("bad timezone in config")
	}

	db, err := database.New(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	out, err := os.Create(*outPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("create output file")
	}
	defer out.Close()

	exporter := report.NewExporter(catalog.New(db, &logger), ledger.New(db, &logger), loc, &logger)
	if err := exporter.Export(context.Background(), out); err != nil {
		logger.Fatal().Err(err).Msg("export failed")
	}
	logger.Info().Str("path", *outPath).Msg("export written")
}
