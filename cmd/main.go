package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fbettag/airwave-monitor/internal/auth"
	"github.com/fbettag/airwave-monitor/internal/config"
	"github.com/fbettag/airwave-monitor/internal/database"
	"github.com/fbettag/airwave-monitor/internal/handlers"
)

var (
	Version = "dev" // Set by build process
)

var (
	configFile    = flag.String("config", "config.yaml", "Path to configuration file")
	port          = flag.Int("port", 8080, "Port to run the web server on")
	dbPath        = flag.String("database", "", "Path to database file (overrides config)")
	logLevel      = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	secureCookies = flag.Bool("secure-cookies", false, "Only send the session cookie over HTTPS")
	showVersion   = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("AirWave Monitor %s\n", Version)
		os.Exit(0)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Set log level from flag
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.Infof("Starting AirWave Monitor %s", Version)

	// Load or initialize configuration
	cfg, err := config.LoadOrInitialize(*configFile)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Override database path if provided via flag
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
		logger.Infof("Using database path from command line: %s", cfg.DatabasePath)
	}

	// Initialize database
	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Create app context
	app := &handlers.App{
		Config:       cfg,
		ConfigPath:   *configFile,
		DB:           db,
		Logger:       logger,
		SessionStore: auth.NewSessionStore(cfg.SessionSecret, *secureCookies),
	}

	// Initialize AirWave client if configured
	if cfg.IsConfigured() {
		if err := cfg.Validate(); err != nil {
			logger.Fatalf("Invalid configuration: %v", err)
		}
		client, err := app.NewAirWaveClient()
		if err != nil {
			logger.Fatalf("Failed to create AirWave client: %v", err)
		}
		app.AirWave = client

		// Start monitoring in background
		go app.StartMonitoring()
	} else {
		logger.Warn("AirWave Monitor is not set up yet, POST /api/setup to configure it")
	}

	// Setup routes
	router := setupRoutes(app)

	// Start server
	addr := fmt.Sprintf(":%d", *port)
	logger.Infof("Starting server on http://localhost%s", addr)

	// Create server with timeouts
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Info("Shutting down...")
		app.StopMonitoring()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Errorf("Failed to shut down server: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

func setupRoutes(app *handlers.App) *mux.Router {
	return app.Router()
}
