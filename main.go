package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civicgrid/civicgrid-be/internal/api"
	"github.com/civicgrid/civicgrid-be/internal/auth"
	"github.com/civicgrid/civicgrid-be/internal/config"
	"github.com/civicgrid/civicgrid-be/internal/database"
	"github.com/civicgrid/civicgrid-be/internal/logger"
	"github.com/civicgrid/civicgrid-be/internal/monitoring"
	"github.com/civicgrid/civicgrid-be/internal/services"
	"github.com/civicgrid/civicgrid-be/internal/session"
	"github.com/civicgrid/civicgrid-be/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	initOnly := flag.Bool("init", false, "create the database schema, seed the admin account, and exit")
	flag.Parse()

	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	if err := database.Seed(db, uuid.New().String(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed admin account")
	}

	statsService := services.NewStatsService(db)
	if err := statsService.SeedSampleData(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed sample dashboard data")
	}

	if *initOnly {
		log.Info().Str("path", cfg.DatabasePath).Msg("Database initialized successfully")
		return
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	userService := services.NewUserService(db)
	eventService := services.NewEventService(db)
	wasteService := services.NewWasteService(db, eventService, cfg.RoboflowAPIURL, cfg.RoboflowAPIKey, cfg.RoboflowModelID, cfg.WasteMinConfidence)
	routeResolver := services.NewChainRouteResolver(
		services.NewStaticRouteResolver(services.DefaultRoutes()),
		services.NewGeoRouteResolver(cfg.GeocoderURL, cfg.RouterURL),
	)

	// Session state and the role gate every protected page goes through
	sessions := session.NewManager()
	gate := auth.NewGate(sessions, userService)

	// Set up and run the background stats broadcaster
	broadcaster := monitoring.NewStatsBroadcaster(statsService, hub)
	go broadcaster.Run()

	// Set up and run the daily rollup scheduler
	rollup, err := monitoring.NewRollupScheduler(statsService, cfg.StatsRollupSpec)
	if err != nil {
		log.Fatal().Err(err).Str("spec", cfg.StatsRollupSpec).Msg("Invalid rollup schedule")
	}
	go rollup.Run()

	// Set up router
	router := api.NewRouter(hub, sessions, gate, userService, eventService, wasteService, statsService, routeResolver, cfg.CORSOrigin)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	broadcaster.Stop()
	rollup.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
