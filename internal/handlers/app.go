package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/fbettag/airwave-monitor/internal/auth"
	"github.com/fbettag/airwave-monitor/internal/config"
	"github.com/fbettag/airwave-monitor/internal/database"
	"github.com/fbettag/airwave-monitor/internal/metrics"
	"github.com/fbettag/airwave-monitor/pkg/airwave"
	"github.com/fbettag/airwave-monitor/pkg/xmlmap"
)

const (
	eventAppeared = "appeared"
	eventUp       = "up"
	eventDown     = "down"
	eventMissing  = "missing"

	breakerName = "airwave-poll"
)

var (
	errNotConfigured = errors.New("AirWave is not configured")
	errSessionFailed = errors.New("AirWave session rejected")
)

type App struct {
	Config       *config.Config
	ConfigPath   string
	DB           *database.DB
	Logger       *logrus.Logger
	SessionStore *auth.SessionStore
	AirWave      *airwave.Client

	// configMu guards Config against the poller while handlers edit it
	configMu sync.RWMutex

	// clientMu serialises every use of AirWave, which holds a single session
	clientMu sync.Mutex

	breakerOnce sync.Once
	breaker     *gobreaker.CircuitBreaker[*pollResult]

	// Monitoring state
	monitoringMu   sync.RWMutex
	isMonitoring   bool
	stopMonitoring chan struct{}
	apStates       map[int]*database.APState
	lastPoll       *database.PollRun

	// Authentication retry state
	authRetryCount   int
	lastAuthAttempt  time.Time
	authRetryBackoff time.Duration
	authMu           sync.Mutex
}

type pollResult struct {
	list       *airwave.APList
	statusCode int
}

// NewAirWaveClient builds a client for the configured AirWave with logging and
// request metrics attached.
func (app *App) NewAirWaveClient() (*airwave.Client, error) {
	app.configMu.RLock()
	cfg := app.Config.AirWaveClientConfig(airwave.NewLogrusAdapter(app.Logger), metrics.RequestObserver{})
	app.configMu.RUnlock()
	return airwave.NewClient(cfg)
}

func (app *App) pollBreaker() *gobreaker.CircuitBreaker[*pollResult] {
	app.breakerOnce.Do(func() {
		metrics.SetBreakerState(breakerName, gobreaker.StateClosed)
		app.breaker = gobreaker.NewCircuitBreaker[*pollResult](gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Interval:    10 * time.Minute,
			Timeout:     2 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				app.Logger.Warnf("Circuit breaker %s changed from %s to %s", name, from, to)
				metrics.SetBreakerState(name, to)
			},
			IsExcluded: func(err error) bool {
				return errors.Is(err, context.Canceled)
			},
		})
	})
	return app.breaker
}

// BreakerState reports the state of the poll circuit breaker.
func (app *App) BreakerState() gobreaker.State {
	return app.pollBreaker().State()
}

func (app *App) StartMonitoring() {
	app.monitoringMu.Lock()
	if app.isMonitoring {
		app.monitoringMu.Unlock()
		return
	}

	app.isMonitoring = true
	stop := make(chan struct{})
	app.stopMonitoring = stop
	app.monitoringMu.Unlock()

	// Load initial AP states from database
	app.loadAPStates()

	app.Logger.Info("Starting AirWave monitoring")

	// Start the cleanup job
	go app.startCleanupJob(stop)

	app.configMu.RLock()
	interval := app.Config.PollInterval()
	app.configMu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Initial poll
	app.pollAirWave(ctx)

	for {
		select {
		case <-ticker.C:
			app.pollAirWave(ctx)
		case <-stop:
			app.Logger.Info("Stopping AirWave monitoring")
			return
		}
	}
}

func (app *App) StopMonitoring() {
	app.monitoringMu.Lock()
	defer app.monitoringMu.Unlock()

	if app.isMonitoring {
		close(app.stopMonitoring)
		app.isMonitoring = false
	}
}

func (app *App) IsMonitoring() bool {
	app.monitoringMu.RLock()
	defer app.monitoringMu.RUnlock()
	return app.isMonitoring
}

func (app *App) loadAPStates() {
	states, err := app.DB.GetAPStates()
	if err != nil {
		app.Logger.Errorf("Failed to load AP states: %v", err)
		states = map[int]database.APState{}
	}

	app.monitoringMu.Lock()
	defer app.monitoringMu.Unlock()
	app.apStates = make(map[int]*database.APState, len(states))
	for id, s := range states {
		s := s
		app.apStates[id] = &s
	}
}

func (app *App) pollAirWave(ctx context.Context) {
	if _, err := app.PollOnce(ctx); err != nil {
		app.Logger.Errorf("AirWave poll failed: %v", err)
	}
}

// PollOnce fetches the AP list, stores a snapshot and updates AP states. The
// returned run is nil when the circuit breaker rejected the poll.
func (app *App) PollOnce(ctx context.Context) (*database.PollRun, error) {
	run := &database.PollRun{StartedAt: time.Now()}

	result, err := app.pollBreaker().Execute(func() (*pollResult, error) {
		return app.fetchAPList(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordPoll(metrics.PollRejected, 0)
		return nil, fmt.Errorf("poll skipped: %w", err)
	}

	run.FinishedAt = time.Now()
	var snapshots []database.APSnapshot
	if result != nil {
		run.StatusCode = result.statusCode
	}
	if err != nil {
		run.Error = err.Error()
	} else {
		snapshots = app.snapshots(result.list, run.FinishedAt)
	}

	if dbErr := app.DB.RecordPoll(run, snapshots); dbErr != nil {
		app.Logger.Errorf("Failed to record poll run: %v", dbErr)
	}

	app.monitoringMu.Lock()
	app.lastPoll = run
	app.monitoringMu.Unlock()

	if err != nil {
		metrics.RecordPoll(metrics.PollFailure, 0)
		return run, err
	}

	metrics.RecordPoll(metrics.PollSuccess, result.list.Len())
	app.updateAPStates(result.list, run.FinishedAt)
	app.Logger.Debugf("Polled %d access points from AirWave", result.list.Len())
	return run, nil
}

func (app *App) fetchAPList(ctx context.Context) (*pollResult, error) {
	app.configMu.RLock()
	ids := app.Config.WatchedIDs()
	app.configMu.RUnlock()

	res, _, err := app.fetchDocument(ctx, rootAPList, func(c *airwave.Client) (*airwave.Response, error) {
		return c.APList(ctx, ids...)
	})

	var list *airwave.APList
	if err == nil {
		list, err = airwave.DecodeAPList(res.Body)
	}
	result := &pollResult{list: list}
	if res != nil {
		result.statusCode = res.StatusCode
	}
	return result, err
}

// withSession runs call with a logged in AirWave client. When AirWave rejects
// the session, the client logs in again once and call is retried.
func (app *App) withSession(ctx context.Context, call func(*airwave.Client) (*airwave.Response, error)) (*airwave.Response, error) {
	app.clientMu.Lock()
	defer app.clientMu.Unlock()

	if app.AirWave == nil {
		return nil, errNotConfigured
	}

	if !app.AirWave.LoggedIn() {
		if err := app.reauthenticateWithBackoff(ctx); err != nil {
			return nil, err
		}
	}

	res, err := call(app.AirWave)
	if !isSessionFailure(res, err) {
		return res, err
	}

	app.Logger.Warnf("AirWave session rejected, logging in again")
	if reauthErr := app.reauthenticateWithBackoff(ctx); reauthErr != nil {
		if err != nil {
			return res, err
		}
		return res, reauthErr
	}
	return call(app.AirWave)
}

// isSessionFailure reports whether a response looks like an expired or
// missing AirWave session
func isSessionFailure(res *airwave.Response, err error) bool {
	if errors.Is(err, errSessionFailed) {
		return true
	}
	if err != nil {
		return false
	}
	return res != nil && !res.OK()
}

// reauthenticateWithBackoff logs in to AirWave using exponential backoff to
// avoid overwhelming the server. clientMu must be held.
func (app *App) reauthenticateWithBackoff(ctx context.Context) error {
	app.authMu.Lock()
	defer app.authMu.Unlock()

	// Check if we should attempt re-authentication based on backoff
	if time.Since(app.lastAuthAttempt) < app.authRetryBackoff {
		return fmt.Errorf("authentication retry backoff in effect (wait %v)", app.authRetryBackoff-time.Since(app.lastAuthAttempt))
	}

	app.lastAuthAttempt = time.Now()
	app.Logger.Infof("Logging in to AirWave (attempt #%d)", app.authRetryCount+1)

	res, err := app.AirWave.Login(ctx)
	if err == nil && !res.OK() {
		err = fmt.Errorf("login returned status %d", res.StatusCode)
	}
	if err != nil {
		app.authRetryCount++

		// Exponential backoff: 1s, 2s, 4s, 8s, 16s, 32s, 64s (max)
		shift := app.authRetryCount - 1
		if shift > 6 {
			shift = 6
		}
		app.authRetryBackoff = time.Duration(1<<uint(shift)) * time.Second

		app.Logger.Errorf("AirWave login failed (attempt #%d): %v. Next retry in %v", app.authRetryCount, err, app.authRetryBackoff)
		return err
	}

	// Reset retry state on successful authentication
	app.authRetryCount = 0
	app.authRetryBackoff = 0
	return nil
}

func (app *App) snapshots(list *airwave.APList, at time.Time) []database.APSnapshot {
	snapshots := make([]database.APSnapshot, 0, list.Len())
	for _, node := range list.Nodes() {
		id, ok := node.NumericID()
		if !ok {
			app.Logger.Warnf("Skipping AP %q with non-numeric id %q", node.Name(), node.ID())
			continue
		}
		fields, err := json.Marshal(node)
		if err != nil {
			app.Logger.Errorf("Failed to encode AP %d: %v", id, err)
			continue
		}
		var radioTypes []string
		for _, t := range node.RadioTypes() {
			radioTypes = append(radioTypes, string(t))
		}
		snapshots = append(snapshots, database.APSnapshot{
			APID:       id,
			Name:       node.Name(),
			LANMAC:     node.LANMAC(),
			RadioTypes: radioTypes,
			Fields:     fields,
			CapturedAt: at,
		})
	}
	return snapshots
}

// updateAPStates compares the polled APs with the last known states and logs
// an event for every AP that appeared, went up or down, or vanished.
func (app *App) updateAPStates(list *airwave.APList, seen time.Time) {
	app.monitoringMu.Lock()
	defer app.monitoringMu.Unlock()

	if app.apStates == nil {
		app.apStates = make(map[int]*database.APState)
	}

	polled := make(map[int]bool, list.Len())
	for _, node := range list.Nodes() {
		id, ok := node.NumericID()
		if !ok {
			continue
		}
		polled[id] = true
		isUp := apIsUp(node.Fields())

		state, known := app.apStates[id]
		switch {
		case !known:
			app.logEvent(id, node.Name(), eventAppeared, fmt.Sprintf("AP %s appeared in AirWave", node.Name()))
			state = &database.APState{APID: id}
			app.apStates[id] = state
		case !state.Present:
			app.logEvent(id, node.Name(), eventAppeared, fmt.Sprintf("AP %s is back in AirWave", node.Name()))
		case state.IsUp && !isUp:
			app.logEvent(id, node.Name(), eventDown, fmt.Sprintf("AP %s went down", node.Name()))
		case !state.IsUp && isUp:
			app.logEvent(id, node.Name(), eventUp, fmt.Sprintf("AP %s came up", node.Name()))
		}

		state.Name = node.Name()
		state.IsUp = isUp
		state.Present = true
		state.LastSeen = seen
		if err := app.DB.UpdateAPState(*state); err != nil {
			app.Logger.Errorf("Failed to update state of AP %d: %v", id, err)
		}
	}

	// A watch list only polls some APs, so absence means nothing then
	app.configMu.RLock()
	partial := len(app.Config.WatchedIDs()) > 0
	app.configMu.RUnlock()
	if partial {
		return
	}

	for id, state := range app.apStates {
		if polled[id] || !state.Present {
			continue
		}
		app.logEvent(id, state.Name, eventMissing, fmt.Sprintf("AP %s is no longer listed by AirWave", state.Name))
		state.Present = false
		state.IsUp = false
		if err := app.DB.UpdateAPState(*state); err != nil {
			app.Logger.Errorf("Failed to update state of AP %d: %v", id, err)
		}
	}
}

func apIsUp(fields *xmlmap.Map) bool {
	v, ok := fields.String("is_up")
	return !ok || v == "true"
}

func (app *App) logEvent(apID int, name, event, message string) {
	app.Logger.Infof("%s", message)
	if err := app.DB.LogEvent(&database.Event{
		APID:    apID,
		APName:  name,
		Event:   event,
		Message: message,
	}); err != nil {
		app.Logger.Errorf("Failed to log event for AP %d: %v", apID, err)
	}
}

// startCleanupJob runs a background job to clean up old polls every hour
func (app *App) startCleanupJob(stop <-chan struct{}) {
	app.Logger.Info("Starting retention cleanup job (runs every hour)")

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	// Run initial cleanup
	app.cleanupOldData()

	for {
		select {
		case <-ticker.C:
			app.cleanupOldData()
		case <-stop:
			app.Logger.Info("Stopping retention cleanup job")
			return
		}
	}
}

func (app *App) cleanupOldData() {
	app.configMu.RLock()
	days := app.Config.RetentionDays
	app.configMu.RUnlock()
	if days <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	deletedPolls, err := app.DB.DeleteOldPolls(cutoff)
	if err != nil {
		app.Logger.Errorf("Failed to delete old polls: %v", err)
		return
	}
	deletedEvents, err := app.DB.DeleteOldEvents(cutoff)
	if err != nil {
		app.Logger.Errorf("Failed to delete old events: %v", err)
		return
	}

	if deletedPolls > 0 || deletedEvents > 0 {
		app.Logger.Infof("Deleted %d old poll runs and %d events (>%d days)", deletedPolls, deletedEvents, days)
	}
}
