package handlers

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires every endpoint of the service
func (app *App) Router() *mux.Router {
	router := mux.NewRouter()

	// Check if setup is complete middleware (must be first)
	router.Use(app.CheckSetupMiddleware)

	// Setup routes (no auth required)
	router.HandleFunc("/api/setup", app.SetupAPIHandler).Methods("POST")
	router.HandleFunc("/api/test-airwave", app.TestAirWaveHandler).Methods("POST")

	// Public routes
	router.HandleFunc("/", app.IndexHandler).Methods("GET")
	router.HandleFunc("/api/login", app.LoginHandler).Methods("POST")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Protected routes (require authentication)
	protected := router.PathPrefix("/").Subrouter()
	protected.Use(app.AuthMiddleware)

	protected.HandleFunc("/logout", app.LogoutHandler).Methods("GET", "POST")

	// API routes
	api := protected.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", app.GetStatusHandler).Methods("GET")

	api.HandleFunc("/aps", app.GetAPsHandler).Methods("GET")
	api.HandleFunc("/aps/{id}", app.GetAPDetailHandler).Methods("GET")
	api.HandleFunc("/aps/{id}/history", app.GetAPHistoryHandler).Methods("GET")
	api.HandleFunc("/aps/{id}/events", app.GetAPEventsHandler).Methods("GET")
	api.HandleFunc("/aps/{id}/graphs", app.GetAPGraphsHandler).Methods("GET")
	api.HandleFunc("/aps/{id}/graphs/{type}/{radio}", app.GetAPGraphImageHandler).Methods("GET")

	api.HandleFunc("/clients/{mac}", app.GetClientDetailHandler).Methods("GET")
	api.HandleFunc("/rogues/{id}", app.GetRogueDetailHandler).Methods("GET")
	api.HandleFunc("/reports", app.GetReportsHandler).Methods("GET")
	api.HandleFunc("/reports/latest/{definition}", app.GetLatestReportHandler).Methods("GET")
	api.HandleFunc("/reports/{id}", app.GetReportHandler).Methods("GET")
	api.HandleFunc("/amp-stats", app.GetAMPStatsHandler).Methods("GET")
	api.HandleFunc("/folders", app.GetFoldersHandler).Methods("GET")

	api.HandleFunc("/polls", app.GetPollsHandler).Methods("GET")
	api.HandleFunc("/polls", app.PollNowHandler).Methods("POST")
	api.HandleFunc("/events", app.GetEventsHandler).Methods("GET")

	api.HandleFunc("/settings", app.GetSettingsHandler).Methods("GET")
	api.HandleFunc("/settings", app.UpdateSettingsHandler).Methods("PUT")

	api.HandleFunc("/watch", app.GetWatchHandler).Methods("GET")
	api.HandleFunc("/watch", app.AddWatchHandler).Methods("POST")
	api.HandleFunc("/watch/{id}", app.UpdateWatchHandler).Methods("PUT")
	api.HandleFunc("/watch/{id}", app.DeleteWatchHandler).Methods("DELETE")

	return router
}
