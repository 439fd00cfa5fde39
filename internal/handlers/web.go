package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/fbettag/airwave-monitor/internal/config"
	"github.com/fbettag/airwave-monitor/internal/database"
)

func isSetupPath(path string) bool {
	return path == "/api/setup" || path == "/api/test-airwave"
}

// Middleware to check if setup is complete
func (app *App) CheckSetupMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always allow metrics and the status page
		if r.URL.Path == "/metrics" || r.URL.Path == "/" {
			next.ServeHTTP(w, r)
			return
		}

		app.configMu.RLock()
		configured := app.Config.IsConfigured()
		app.configMu.RUnlock()

		if configured {
			// Block access to setup endpoints
			if isSetupPath(r.URL.Path) {
				app.sendJSONError(w, "setup already complete", http.StatusForbidden)
				return
			}
		} else {
			if isSetupPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			app.sendJSONError(w, "setup required", http.StatusServiceUnavailable)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Middleware to check authentication
func (app *App) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !app.SessionStore.IsAuthenticated(r) {
			app.sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Index handler - reports whether the service is set up and who is logged in
func (app *App) IndexHandler(w http.ResponseWriter, r *http.Request) {
	app.configMu.RLock()
	configured := app.Config.IsConfigured()
	app.configMu.RUnlock()

	app.sendJSON(w, map[string]interface{}{
		"service":       "airwave-monitor",
		"setup":         configured,
		"authenticated": app.SessionStore.IsAuthenticated(r),
		"user":          app.SessionStore.CurrentUser(r),
	}, http.StatusOK)
}

func (app *App) saveConfig() error {
	return config.SaveConfig(app.ConfigPath, app.Config)
}

type airwaveSettings struct {
	URL                string `json:"url"`
	Username           string `json:"username"`
	Password           string `json:"password,omitempty"`
	InsecureSkipVerify *bool  `json:"insecure_skip_verify,omitempty"`
	Timeout            int    `json:"timeout"`
	PollInterval       int    `json:"poll_interval"`
}

// apply copies the fields present in s onto cfg. Empty strings, zero
// durations and a missing insecure_skip_verify keep the stored value.
func (s airwaveSettings) apply(cfg *config.AirWaveConfig) {
	if u := strings.TrimSpace(s.URL); u != "" {
		cfg.URL = u
	}
	if s.Username != "" {
		cfg.Username = s.Username
	}
	if s.Password != "" {
		cfg.Password = s.Password
	}
	if s.InsecureSkipVerify != nil {
		cfg.InsecureSkipVerify = *s.InsecureSkipVerify
	}
	if s.Timeout > 0 {
		cfg.Timeout = s.Timeout
	}
	if s.PollInterval > 0 {
		cfg.PollInterval = s.PollInterval
	}
}

// Setup API endpoint
func (app *App) SetupAPIHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Admin struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"admin"`
		AirWave airwaveSettings `json:"airwave"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.sendJSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Admin.Password == "" {
		app.sendJSONError(w, "admin password is required", http.StatusBadRequest)
		return
	}

	app.configMu.Lock()
	updated := *app.Config
	updated.Watch = append([]config.WatchedAP(nil), app.Config.Watch...)
	updated.Admin.Username = req.Admin.Username
	req.AirWave.apply(&updated.AirWave)
	if err := updated.Validate(); err != nil {
		app.configMu.Unlock()
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := updated.SetAdminPassword(req.Admin.Password); err != nil {
		app.configMu.Unlock()
		app.sendJSONError(w, "Failed to set password", http.StatusInternalServerError)
		return
	}
	updated.SetupComplete = true
	*app.Config = updated

	// Save configuration
	err := app.saveConfig()
	app.configMu.Unlock()
	if err != nil {
		app.sendJSONError(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	if err := app.replaceClient(); err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Start monitoring; the first poll logs in
	go app.StartMonitoring()

	// Log in the user
	if err := app.SessionStore.Login(r, w, req.Admin.Username); err != nil {
		app.Logger.Errorf("Failed to create session after setup: %v", err)
		// Don't fail setup, continue anyway
	}

	app.sendSuccess(w)
}

// replaceClient swaps in a client built from the current configuration
func (app *App) replaceClient() error {
	client, err := app.NewAirWaveClient()
	if err != nil {
		app.Logger.Errorf("Failed to create AirWave client: %v", err)
		return err
	}

	app.clientMu.Lock()
	if app.AirWave != nil {
		app.AirWave.Logout()
	}
	app.AirWave = client
	app.clientMu.Unlock()

	app.authMu.Lock()
	app.authRetryCount = 0
	app.authRetryBackoff = 0
	app.authMu.Unlock()
	return nil
}

// Login API endpoint
func (app *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.sendJSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	// Verify credentials
	app.configMu.RLock()
	valid := req.Username == app.Config.Admin.Username && app.Config.VerifyAdminPassword(req.Password)
	app.configMu.RUnlock()
	if !valid {
		app.Logger.Warnf("Failed login attempt for %q from %s", req.Username, r.RemoteAddr)
		app.sendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	// Create session
	if err := app.SessionStore.Login(r, w, req.Username); err != nil {
		app.sendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	app.sendSuccess(w)
}

// Logout handler
func (app *App) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.SessionStore.Logout(r, w); err != nil {
		app.Logger.Errorf("Failed to logout: %v", err)
		// Continue anyway
	}
	app.sendSuccess(w)
}

// Get watch list API
func (app *App) GetWatchHandler(w http.ResponseWriter, r *http.Request) {
	app.configMu.RLock()
	watch := append([]config.WatchedAP{}, app.Config.Watch...)
	app.configMu.RUnlock()

	app.sendJSON(w, watch, http.StatusOK)
}

// Add watched AP API
func (app *App) AddWatchHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    int    `json:"id"`
		Label string `json:"label"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.sendJSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	app.configMu.Lock()
	if err := app.Config.AddWatch(req.ID, req.Label); err != nil {
		app.configMu.Unlock()
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	err := app.saveConfig()
	app.configMu.Unlock()

	// Save configuration
	if err != nil {
		app.sendJSONError(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	app.sendSuccess(w)
}

// Update watched AP API
func (app *App) UpdateWatchHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		Label   string `json:"label"`
		Enabled bool   `json:"enabled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.sendJSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	app.configMu.Lock()
	if err := app.Config.UpdateWatch(id, req.Label, req.Enabled); err != nil {
		app.configMu.Unlock()
		app.sendJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	err = app.saveConfig()
	app.configMu.Unlock()

	if err != nil {
		app.sendJSONError(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	app.sendSuccess(w)
}

// Delete watched AP API
func (app *App) DeleteWatchHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	app.configMu.Lock()
	if err := app.Config.RemoveWatch(id); err != nil {
		app.configMu.Unlock()
		app.sendJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	err = app.saveConfig()
	app.configMu.Unlock()

	if err != nil {
		app.sendJSONError(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	app.sendSuccess(w)
}

// Get settings API
func (app *App) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	app.configMu.RLock()
	insecure := app.Config.AirWave.InsecureSkipVerify
	settings := map[string]interface{}{
		"airwave": airwaveSettings{
			URL:                app.Config.AirWave.URL,
			Username:           app.Config.AirWave.Username,
			InsecureSkipVerify: &insecure,
			Timeout:            app.Config.AirWave.Timeout,
			PollInterval:       app.Config.AirWave.PollInterval,
		},
		"graph": map[string]int{
			"start": app.Config.Graph.Start,
			"end":   app.Config.Graph.End,
		},
		"retention_days": app.Config.RetentionDays,
	}
	app.configMu.RUnlock()

	app.sendJSON(w, settings, http.StatusOK)
}

// Update settings API
func (app *App) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AirWave *airwaveSettings `json:"airwave"`
		Graph   *struct {
			Start *int `json:"start"`
			End   *int `json:"end"`
		} `json:"graph"`
		RetentionDays *int `json:"retention_days"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.sendJSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	app.configMu.Lock()
	updated := *app.Config
	updated.Watch = append([]config.WatchedAP(nil), app.Config.Watch...)
	if req.AirWave != nil {
		req.AirWave.apply(&updated.AirWave)
	}
	if req.Graph != nil {
		if req.Graph.Start != nil {
			updated.Graph.Start = *req.Graph.Start
		}
		if req.Graph.End != nil {
			updated.Graph.End = *req.Graph.End
		}
	}
	if req.RetentionDays != nil {
		updated.RetentionDays = *req.RetentionDays
	}
	if err := updated.Validate(); err != nil {
		app.configMu.Unlock()
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	*app.Config = updated

	// Save configuration
	err := app.saveConfig()
	app.configMu.Unlock()
	if err != nil {
		app.sendJSONError(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	// Restart monitoring with a client for the new settings
	wasMonitoring := app.IsMonitoring()
	if wasMonitoring {
		app.StopMonitoring()
	}
	if err := app.replaceClient(); err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if wasMonitoring {
		go app.StartMonitoring()
	}

	app.sendSuccess(w)
}

// Get poll runs API
func (app *App) GetPollsHandler(w http.ResponseWriter, r *http.Request) {
	polls, err := app.DB.GetPolls(queryInt(r, "limit", 100), queryInt(r, "offset", 0))
	if err != nil {
		app.sendJSONError(w, "Failed to get polls", http.StatusInternalServerError)
		return
	}
	if polls == nil {
		polls = []database.PollRun{}
	}

	app.sendJSON(w, polls, http.StatusOK)
}

// Poll now API
func (app *App) PollNowHandler(w http.ResponseWriter, r *http.Request) {
	run, err := app.PollOnce(r.Context())
	if run == nil {
		app.sendJSONError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		app.sendJSON(w, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
			"poll":    run,
		}, http.StatusBadGateway)
		return
	}

	app.sendJSON(w, map[string]interface{}{
		"success": true,
		"poll":    run,
	}, http.StatusOK)
}

// Get events API
func (app *App) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := app.DB.GetEvents(queryInt(r, "limit", 100), queryInt(r, "offset", 0))
	if err != nil {
		app.sendJSONError(w, "Failed to get events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []database.Event{}
	}

	app.sendJSON(w, events, http.StatusOK)
}

// Get events of one AP API
func (app *App) GetAPEventsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	events, err := app.DB.GetEventsByAP(id, queryInt(r, "limit", 100))
	if err != nil {
		app.sendJSONError(w, "Failed to get events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []database.Event{}
	}

	app.sendJSON(w, events, http.StatusOK)
}

// Get latest AP snapshot API
func (app *App) GetAPsHandler(w http.ResponseWriter, r *http.Request) {
	run, snapshots, err := app.DB.GetLatestSnapshot()
	if err != nil {
		app.sendJSONError(w, "Failed to get access points", http.StatusInternalServerError)
		return
	}
	if snapshots == nil {
		snapshots = []database.APSnapshot{}
	}

	app.sendJSON(w, map[string]interface{}{
		"poll":          run,
		"access_points": snapshots,
	}, http.StatusOK)
}

// Get snapshot history of one AP API
func (app *App) GetAPHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	history, err := app.DB.GetAPHistory(id, queryInt(r, "limit", 100))
	if err != nil {
		app.sendJSONError(w, "Failed to get AP history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []database.APSnapshot{}
	}

	app.sendJSON(w, history, http.StatusOK)
}

// Get status API
func (app *App) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	app.monitoringMu.RLock()
	apStates := make(map[int]database.APState, len(app.apStates))
	for id, state := range app.apStates {
		apStates[id] = *state
	}
	lastPoll := app.lastPoll
	isMonitoring := app.isMonitoring
	app.monitoringMu.RUnlock()

	app.configMu.RLock()
	cfg := map[string]interface{}{
		"airwave_url":   app.Config.AirWave.URL,
		"poll_interval": app.Config.AirWave.PollInterval,
		"watched":       app.Config.WatchedIDs(),
	}
	app.configMu.RUnlock()

	status := map[string]interface{}{
		"is_monitoring": isMonitoring,
		"breaker":       app.BreakerState().String(),
		"last_poll":     lastPoll,
		"access_points": apStates,
		"config":        cfg,
		"time":          time.Now().UTC(),
	}

	app.sendJSON(w, status, http.StatusOK)
}
