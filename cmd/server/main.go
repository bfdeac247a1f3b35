package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"entitysql/internal/api"
	"entitysql/internal/config"
	"entitysql/internal/idgen"
	"entitysql/internal/instrument"
	"entitysql/internal/metadata"
	"entitysql/internal/sqlgen"
	"entitysql/internal/store"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Log.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// 3. Build the metadata registry: built-in records, then the overrides file
	naming, err := metadata.ParseNameConverter(cfg.Naming)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid naming mode")
	}
	reg := metadata.NewRegistry(naming)
	if err := api.RegisterSchema(reg); err != nil {
		log.Fatal().Err(err).Msg("Failed to register built-in schema")
	}
	if cfg.Schema.Overrides != "" {
		overrides, err := metadata.LoadOverrides(cfg.Schema.Overrides)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Schema.Overrides).Msg("Failed to load schema overrides")
		}
		reg.ApplyOverrides(overrides)
		log.Info().Int("types", len(overrides)).Msg("Schema overrides loaded")
	}
	log.Info().Str("naming", reg.Naming().String()).Msg("Metadata registry ready")

	// 4. Create the process-wide allocator
	opts := idgen.Options{}
	if cfg.IDGen.MachineID >= 0 {
		opts.MachineID = idgen.FixedID(uint32(cfg.IDGen.MachineID))
	}
	ids := idgen.New(opts)
	log.Info().
		Uint32("machine_id", ids.MachineID()).
		Uint32("process_id", ids.ProcessID()).
		Msg("Identifier allocator ready")

	handler := api.NewHandler(ids, cfg.Server.MaxBatch)

	// 5. Connect to the database, if configured, and record allocations there
	if cfg.Database.Driver != "" {
		ctx := context.Background()
		db, err := store.New(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		events := instrument.NewEventBuffer(
			instrument.LogSink(log.Logger),
			cfg.Instrument.BufferSize,
			time.Duration(cfg.Instrument.FlushIntervalMs)*time.Millisecond,
		)
		defer events.Stop()

		allocations, err := store.NewDao[api.Allocation](db, sqlgen.New(reg, ids))
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid allocation schema")
		}
		allocations.WithRecorder(events)
		if err := store.NewMigrator(db).EnsureTable(ctx, allocations.Entity()); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate allocation table")
		}
		handler.WithAllocations(allocations)
		log.Info().Str("table", allocations.Entity().SQLName).Msg("Allocation history enabled")
	} else {
		log.Info().Msg("No database configured, allocation history disabled")
	}

	// 6. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 7. Register routes
	api.RegisterRoutes(app, handler)

	// 8. Start server; deferred cleanup flushes events and closes the database
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("Starting server")
	if err := app.Listen(addr); err != nil {
		log.Error().Err(err).Msg("Server stopped")
	}
}
