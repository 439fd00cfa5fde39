package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/fbettag/airwave-monitor/pkg/airwave"
)

type Config struct {
	Admin         AdminConfig   `mapstructure:"admin"`
	AirWave       AirWaveConfig `mapstructure:"airwave"`
	Graph         GraphConfig   `mapstructure:"graph"`
	DatabasePath  string        `mapstructure:"database_path" validate:"required"`
	RetentionDays int           `mapstructure:"retention_days" validate:"gte=0"` // 0 keeps everything
	SessionSecret string        `mapstructure:"session_secret" validate:"required"`
	Watch         []WatchedAP   `mapstructure:"watch" validate:"dive"`
	SetupComplete bool          `mapstructure:"setup_complete"`
}

type AdminConfig struct {
	Username     string `mapstructure:"username" validate:"required"`
	PasswordHash string `mapstructure:"password_hash"`
}

type AirWaveConfig struct {
	URL                string `mapstructure:"url" validate:"required,url"`
	Username           string `mapstructure:"username" validate:"required"`
	Password           string `mapstructure:"password"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
	Timeout            int    `mapstructure:"timeout" validate:"gte=1,lte=600"`        // seconds
	PollInterval       int    `mapstructure:"poll_interval" validate:"gte=1,lte=86400"` // seconds
}

// GraphConfig is the default window of graph links, in seconds relative to now.
type GraphConfig struct {
	Start int `mapstructure:"start" validate:"lte=0"`
	End   int `mapstructure:"end" validate:"lte=0"`
}

// WatchedAP restricts polling to selected access points. An empty or fully
// disabled watch list polls every AP.
type WatchedAP struct {
	ID      int    `mapstructure:"id" json:"id" validate:"gt=0"`
	Label   string `mapstructure:"label" json:"label"`
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set defaults
	v.SetDefault("database_path", "airwave_monitor.db")
	v.SetDefault("retention_days", 30)
	v.SetDefault("airwave.timeout", int(airwave.DefaultTimeout/time.Second))
	v.SetDefault("airwave.poll_interval", 300)
	v.SetDefault("airwave.insecure_skip_verify", false)
	v.SetDefault("graph.start", airwave.DefaultGraphStart)
	v.SetDefault("graph.end", airwave.DefaultGraphEnd)
	v.SetDefault("setup_complete", false)
	return v
}

func LoadOrInitialize(configPath string) (*Config, error) {
	v := newViper(configPath)

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Create new config with defaults
		cfg := &Config{
			DatabasePath:  v.GetString("database_path"),
			RetentionDays: v.GetInt("retention_days"),
			SessionSecret: generateSessionSecret(),
			AirWave: AirWaveConfig{
				Timeout:      v.GetInt("airwave.timeout"),
				PollInterval: v.GetInt("airwave.poll_interval"),
			},
			Graph: GraphConfig{
				Start: v.GetInt("graph.start"),
				End:   v.GetInt("graph.end"),
			},
			SetupComplete: false,
		}

		// Save initial config
		if err := SaveConfig(configPath, cfg); err != nil {
			return nil, err
		}

		return cfg, nil
	}

	// Read existing config
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}

	// Ensure session secret exists
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = generateSessionSecret()
		if err := SaveConfig(configPath, &cfg); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func SaveConfig(configPath string, cfg *Config) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("admin.username", cfg.Admin.Username)
	v.Set("admin.password_hash", cfg.Admin.PasswordHash)

	v.Set("airwave.url", cfg.AirWave.URL)
	v.Set("airwave.username", cfg.AirWave.Username)
	v.Set("airwave.password", cfg.AirWave.Password)
	v.Set("airwave.insecure_skip_verify", cfg.AirWave.InsecureSkipVerify)
	v.Set("airwave.timeout", cfg.AirWave.Timeout)
	v.Set("airwave.poll_interval", cfg.AirWave.PollInterval)

	v.Set("graph.start", cfg.Graph.Start)
	v.Set("graph.end", cfg.Graph.End)
	v.Set("database_path", cfg.DatabasePath)
	v.Set("retention_days", cfg.RetentionDays)
	v.Set("session_secret", cfg.SessionSecret)
	v.Set("setup_complete", cfg.SetupComplete)

	// Manually set the watch list to ensure correct field names
	watch := make([]map[string]interface{}, 0, len(cfg.Watch))
	for _, w := range cfg.Watch {
		watch = append(watch, map[string]interface{}{
			"id":      w.ID,
			"label":   w.Label,
			"enabled": w.Enabled,
		})
	}
	v.Set("watch", watch)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("write config %s: %w", configPath, err)
	}
	return nil
}

// Validate checks a configuration that is about to be used for polling.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q check", fe.Namespace(), fe.Tag())
		}
		return err
	}
	return nil
}

func (c *Config) IsConfigured() bool {
	return c.SetupComplete && c.Admin.Username != "" && c.AirWave.URL != ""
}

// AirWaveClientConfig builds the client configuration for the stored AirWave.
func (c *Config) AirWaveClientConfig(logger airwave.Logger, observer airwave.Observer) airwave.Config {
	return airwave.Config{
		URL:                c.AirWave.URL,
		Username:           c.AirWave.Username,
		Password:           c.AirWave.Password,
		InsecureSkipVerify: c.AirWave.InsecureSkipVerify,
		Timeout:            time.Duration(c.AirWave.Timeout) * time.Second,
		Logger:             logger,
		Observer:           observer,
	}
}

// GraphWindow returns the configured default window for graph links.
func (c *Config) GraphWindow() airwave.GraphWindow {
	return airwave.GraphWindow{Start: c.Graph.Start, End: c.Graph.End}
}

func (c *Config) PollInterval() time.Duration {
	if c.AirWave.PollInterval <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.AirWave.PollInterval) * time.Second
}

func (c *Config) SetAdminPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.Admin.PasswordHash = string(hash)
	return nil
}

func (c *Config) VerifyAdminPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(c.Admin.PasswordHash), []byte(password))
	return err == nil
}

func (c *Config) AddWatch(id int, label string) error {
	if id <= 0 {
		return errors.New("AP id must be positive")
	}
	// Check if the AP is already watched
	for _, w := range c.Watch {
		if w.ID == id {
			return errors.New("AP already watched")
		}
	}

	c.Watch = append(c.Watch, WatchedAP{
		ID:      id,
		Label:   label,
		Enabled: true,
	})

	return nil
}

func (c *Config) UpdateWatch(id int, label string, enabled bool) error {
	for i, w := range c.Watch {
		if w.ID == id {
			c.Watch[i].Label = label
			c.Watch[i].Enabled = enabled
			return nil
		}
	}
	return errors.New("AP not watched")
}

func (c *Config) RemoveWatch(id int) error {
	for i, w := range c.Watch {
		if w.ID == id {
			c.Watch = append(c.Watch[:i], c.Watch[i+1:]...)
			return nil
		}
	}
	return errors.New("AP not watched")
}

func (c *Config) GetWatch(id int) *WatchedAP {
	for i := range c.Watch {
		if c.Watch[i].ID == id {
			return &c.Watch[i]
		}
	}
	return nil
}

// WatchedIDs returns the ids of enabled watch entries in list order.
func (c *Config) WatchedIDs() []int {
	var ids []int
	for _, w := range c.Watch {
		if w.Enabled {
			ids = append(ids, w.ID)
		}
	}
	return ids
}

func generateSessionSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// This should never happen with crypto/rand
		panic(err)
	}
	return base64.URLEncoding.EncodeToString(b)
}
