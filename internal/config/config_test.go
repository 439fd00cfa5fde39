package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fbettag/airwave-monitor/pkg/airwave"
)

func TestLoadOrInitialize(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test_config_load.yaml")

	t.Run("Create new config", func(t *testing.T) {
		cfg, err := LoadOrInitialize(testFile)
		if err != nil {
			t.Fatalf("Failed to create new config: %v", err)
		}

		if cfg.SetupComplete {
			t.Error("New config should not be setup complete")
		}

		if len(cfg.SessionSecret) != 44 { // 32 bytes base64 encoded = 44 chars
			t.Errorf("Session secret should be 44 chars (32 bytes base64 encoded), got %d", len(cfg.SessionSecret))
		}

		if cfg.AirWave.PollInterval != 300 {
			t.Errorf("Expected default poll interval 300, got %d", cfg.AirWave.PollInterval)
		}
		if cfg.AirWave.Timeout != 30 {
			t.Errorf("Expected default timeout 30, got %d", cfg.AirWave.Timeout)
		}
		if cfg.AirWave.InsecureSkipVerify {
			t.Error("Certificate verification should be on by default")
		}
		if cfg.Graph.Start != -7200 || cfg.Graph.End != 0 {
			t.Errorf("Unexpected default graph window %+v", cfg.Graph)
		}
		if cfg.RetentionDays != 30 {
			t.Errorf("Expected default retention 30 days, got %d", cfg.RetentionDays)
		}
	})

	t.Run("Load existing config", func(t *testing.T) {
		cfg1, err := LoadOrInitialize(testFile)
		if err != nil {
			t.Fatalf("Failed to create config: %v", err)
		}
		originalSecret := cfg1.SessionSecret

		cfg1.AirWave.URL = "https://airwave.example.com"
		cfg1.AirWave.Username = "monitor"
		cfg1.AirWave.InsecureSkipVerify = true
		cfg1.Graph.Start = -3600
		if err := cfg1.AddWatch(12, "Lobby"); err != nil {
			t.Fatalf("AddWatch failed: %v", err)
		}
		if err := SaveConfig(testFile, cfg1); err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}

		cfg2, err := LoadOrInitialize(testFile)
		if err != nil {
			t.Fatalf("Failed to load existing config: %v", err)
		}

		if cfg2.SessionSecret != originalSecret {
			t.Error("Session secret should be preserved when loading existing config")
		}
		if cfg2.AirWave.URL != "https://airwave.example.com" || !cfg2.AirWave.InsecureSkipVerify {
			t.Errorf("AirWave settings not preserved: %+v", cfg2.AirWave)
		}
		if cfg2.Graph.Start != -3600 {
			t.Errorf("Expected graph start -3600, got %d", cfg2.Graph.Start)
		}
		if len(cfg2.Watch) != 1 || cfg2.Watch[0].ID != 12 || cfg2.Watch[0].Label != "Lobby" || !cfg2.Watch[0].Enabled {
			t.Errorf("Watch list not preserved: %+v", cfg2.Watch)
		}
	})
}

func validConfig() *Config {
	return &Config{
		Admin:         AdminConfig{Username: "admin"},
		AirWave:       AirWaveConfig{URL: "https://airwave.example.com", Username: "monitor", Timeout: 30, PollInterval: 60},
		Graph:         GraphConfig{Start: -7200},
		DatabasePath:  "test.db",
		RetentionDays: 7,
		SessionSecret: "secret",
		SetupComplete: true,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "Valid", mutate: func(*Config) {}},
		{name: "Missing URL", mutate: func(c *Config) { c.AirWave.URL = "" }, wantErr: true},
		{name: "Bad URL", mutate: func(c *Config) { c.AirWave.URL = "not a url" }, wantErr: true},
		{name: "Missing AirWave user", mutate: func(c *Config) { c.AirWave.Username = "" }, wantErr: true},
		{name: "Zero poll interval", mutate: func(c *Config) { c.AirWave.PollInterval = 0 }, wantErr: true},
		{name: "Future graph start", mutate: func(c *Config) { c.Graph.Start = 60 }, wantErr: true},
		{name: "Negative retention", mutate: func(c *Config) { c.RetentionDays = -1 }, wantErr: true},
		{name: "Bad watch id", mutate: func(c *Config) { c.Watch = []WatchedAP{{ID: 0}} }, wantErr: true},
		{name: "Missing admin", mutate: func(c *Config) { c.Admin.Username = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsConfigured(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		want   bool
	}{
		{
			name:   "Empty config",
			config: &Config{},
			want:   false,
		},
		{
			name: "Partially configured",
			config: &Config{
				SetupComplete: true,
				AirWave: AirWaveConfig{
					URL: "https://test.com",
				},
			},
			want: false,
		},
		{
			name:   "Fully configured",
			config: validConfig(),
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAirWaveClientConfig(t *testing.T) {
	cfg := validConfig()
	cfg.AirWave.Password = "pw"
	cfg.AirWave.InsecureSkipVerify = true

	got := cfg.AirWaveClientConfig(nil, nil)
	want := airwave.Config{
		URL:                "https://airwave.example.com",
		Username:           "monitor",
		Password:           "pw",
		InsecureSkipVerify: true,
		Timeout:            30 * time.Second,
	}
	if got != want {
		t.Errorf("AirWaveClientConfig() = %+v, want %+v", got, want)
	}

	if w := cfg.GraphWindow(); w != (airwave.GraphWindow{Start: -7200}) {
		t.Errorf("GraphWindow() = %+v", w)
	}
	if d := cfg.PollInterval(); d != time.Minute {
		t.Errorf("PollInterval() = %v, want 1m", d)
	}
	if d := (&Config{}).PollInterval(); d != 5*time.Minute {
		t.Errorf("PollInterval() fallback = %v, want 5m", d)
	}
}

func TestSetAdminPassword(t *testing.T) {
	cfg := &Config{}

	password := "testpassword123"
	err := cfg.SetAdminPassword(password)
	if err != nil {
		t.Fatalf("Failed to set admin password: %v", err)
	}

	if cfg.Admin.PasswordHash == "" {
		t.Error("Password hash should be set")
	}

	if cfg.Admin.PasswordHash == password {
		t.Error("Password should be hashed, not stored in plaintext")
	}
}

func TestVerifyAdminPassword(t *testing.T) {
	cfg := &Config{}
	password := "testpassword123"

	err := cfg.SetAdminPassword(password)
	if err != nil {
		t.Fatalf("Failed to set admin password: %v", err)
	}

	if !cfg.VerifyAdminPassword(password) {
		t.Error("Should verify correct password")
	}

	if cfg.VerifyAdminPassword("wrongpassword") {
		t.Error("Should not verify incorrect password")
	}

	if cfg.VerifyAdminPassword("") {
		t.Error("Should not verify empty password")
	}

	if (&Config{}).VerifyAdminPassword("anypassword") {
		t.Error("Should not verify when no hash is set")
	}
}

func TestWatchManagement(t *testing.T) {
	cfg := &Config{}

	t.Run("Add watches", func(t *testing.T) {
		if err := cfg.AddWatch(3, "Lobby"); err != nil {
			t.Fatalf("Failed to add watch: %v", err)
		}
		if err := cfg.AddWatch(1, "Office"); err != nil {
			t.Fatalf("Failed to add watch: %v", err)
		}
		if len(cfg.Watch) != 2 {
			t.Errorf("Expected 2 watches, got %d", len(cfg.Watch))
		}
		if !cfg.Watch[0].Enabled {
			t.Error("New watch should be enabled by default")
		}
	})

	t.Run("Add duplicate or invalid", func(t *testing.T) {
		if err := cfg.AddWatch(3, "Again"); err == nil {
			t.Error("Should fail to add duplicate watch")
		}
		if err := cfg.AddWatch(0, "Zero"); err == nil {
			t.Error("Should fail to add non-positive id")
		}
		if len(cfg.Watch) != 2 {
			t.Errorf("Watch count should remain 2, got %d", len(cfg.Watch))
		}
	})

	t.Run("Watched IDs keep order", func(t *testing.T) {
		ids := cfg.WatchedIDs()
		if len(ids) != 2 || ids[0] != 3 || ids[1] != 1 {
			t.Errorf("WatchedIDs() = %v, want [3 1]", ids)
		}
	})

	t.Run("Disable watch", func(t *testing.T) {
		if err := cfg.UpdateWatch(3, "Lobby", false); err != nil {
			t.Fatalf("Failed to update watch: %v", err)
		}
		w := cfg.GetWatch(3)
		if w == nil || w.Enabled {
			t.Errorf("Watch should be disabled: %+v", w)
		}
		ids := cfg.WatchedIDs()
		if len(ids) != 1 || ids[0] != 1 {
			t.Errorf("WatchedIDs() = %v, want [1]", ids)
		}
		if err := cfg.UpdateWatch(99, "x", true); err == nil {
			t.Error("Should fail to update unknown watch")
		}
	})

	t.Run("Remove watches", func(t *testing.T) {
		if err := cfg.RemoveWatch(3); err != nil {
			t.Fatalf("Failed to remove watch: %v", err)
		}
		if cfg.GetWatch(3) != nil {
			t.Error("Watch should not exist after removal")
		}
		if err := cfg.RemoveWatch(3); err == nil {
			t.Error("Should fail to remove a watch twice")
		}
		if err := cfg.RemoveWatch(1); err != nil {
			t.Fatalf("Failed to remove last watch: %v", err)
		}
		if len(cfg.WatchedIDs()) != 0 {
			t.Error("Expected no watched ids")
		}
	})
}

func TestConfigEdgeCases(t *testing.T) {
	t.Run("LoadOrInitialize with invalid file path", func(t *testing.T) {
		_, err := LoadOrInitialize("/nonexistent/directory/config.yaml")
		if err == nil {
			t.Error("Should fail to load from non-existent directory")
		}
	})

	t.Run("SaveConfig with invalid file path", func(t *testing.T) {
		err := SaveConfig("/nonexistent/directory/config.yaml", &Config{})
		if err == nil {
			t.Error("Should fail to save to non-existent directory")
		}
	})

	t.Run("SetAdminPassword with empty password", func(t *testing.T) {
		cfg := &Config{}
		if err := cfg.SetAdminPassword(""); err != nil {
			t.Fatalf("Should handle empty password: %v", err)
		}
		if cfg.VerifyAdminPassword("somepassword") {
			t.Error("Non-empty password should not authenticate against empty hash")
		}
	})
}
