package testutils

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/fbettag/airwave-monitor/internal/auth"
	"github.com/fbettag/airwave-monitor/internal/config"
	"github.com/fbettag/airwave-monitor/internal/database"
	"github.com/fbettag/airwave-monitor/internal/handlers"
)

const (
	// AdminUsername and AdminPassword are the credentials set by CompleteSetup
	AdminUsername = "admin"
	AdminPassword = "testpassword123"
)

// TestApp holds test application context
type TestApp struct {
	App    *handlers.App
	Config *config.Config
}

// NewTestApp creates a new test application instance in a temporary directory
func NewTestApp(t *testing.T) *TestApp {
	t.Helper()
	dir := t.TempDir()

	// Set up logger with test level
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel) // Reduce noise in tests
	logger.SetOutput(io.Discard)

	configPath := filepath.Join(dir, "config.yaml")
	cfg, err := config.LoadOrInitialize(configPath)
	if err != nil {
		t.Fatalf("Failed to initialize test config: %v", err)
	}
	cfg.DatabasePath = filepath.Join(dir, "test.db")

	// Initialize database
	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	app := &handlers.App{
		Config:       cfg,
		ConfigPath:   configPath,
		DB:           db,
		Logger:       logger,
		SessionStore: auth.NewSessionStore(cfg.SessionSecret, false),
	}

	t.Cleanup(func() {
		app.StopMonitoring()
		_ = db.Close()
	})

	return &TestApp{
		App:    app,
		Config: cfg,
	}
}

// CompleteSetup configures the app as if the setup endpoint had been called
// and attaches a client for the given AirWave.
func (ta *TestApp) CompleteSetup(t *testing.T, airwaveURL, username, password string) {
	t.Helper()

	ta.Config.SetupComplete = true
	ta.Config.Admin.Username = AdminUsername
	if err := ta.Config.SetAdminPassword(AdminPassword); err != nil {
		t.Fatalf("Failed to set admin password: %v", err)
	}

	ta.Config.AirWave.URL = airwaveURL
	ta.Config.AirWave.Username = username
	ta.Config.AirWave.Password = password
	ta.Config.AirWave.Timeout = 5

	client, err := ta.App.NewAirWaveClient()
	if err != nil {
		t.Fatalf("Failed to create AirWave client: %v", err)
	}
	ta.App.AirWave = client
}
