package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/fbettag/airwave-monitor/pkg/airwave"
	"github.com/fbettag/airwave-monitor/pkg/xmlmap"
)

// Document roots of the AirWave endpoints relayed by the API
const (
	rootAMPStats     = "amp:amp_stats"
	rootAPList       = "amp:amp_ap_list"
	rootAPDetail     = "amp:amp_ap_detail"
	rootClientDetail = "amp:amp_client_detail"
	rootRogueDetail  = "amp:amp_rogue_detail"
	rootFolderList   = "amp:amp_folder_list"
	rootReport       = "amp:report"
)

// Helper function to send JSON responses
func (app *App) sendJSON(w http.ResponseWriter, v interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.Logger.Errorf("Failed to encode response: %v", err)
	}
}

// Helper function to send JSON error responses
func (app *App) sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	app.sendJSON(w, map[string]interface{}{
		"success": false,
		"error":   message,
	}, statusCode)
}

func (app *App) sendSuccess(w http.ResponseWriter) {
	app.sendJSON(w, map[string]bool{"success": true}, http.StatusOK)
}

// fetchDocument runs call with a session and decodes the body. When root is
// set the document element must match it; anything else, such as the HTML
// login page AirWave serves to expired sessions, counts as a rejected session.
func (app *App) fetchDocument(ctx context.Context, root string, call func(*airwave.Client) (*airwave.Response, error)) (*airwave.Response, *xmlmap.Map, error) {
	var doc *xmlmap.Map
	res, err := app.withSession(ctx, func(c *airwave.Client) (*airwave.Response, error) {
		res, err := call(c)
		if err != nil || !res.OK() {
			return res, err
		}
		doc, err = decodeRoot(res.Body, root)
		if err != nil {
			return res, fmt.Errorf("%w: %v", errSessionFailed, err)
		}
		return res, nil
	})
	if err != nil {
		return res, nil, err
	}
	if !res.OK() {
		return res, nil, fmt.Errorf("AirWave returned status %d", res.StatusCode)
	}
	return res, doc, nil
}

func decodeRoot(body []byte, root string) (*xmlmap.Map, error) {
	doc, err := xmlmap.DecodeBytes(body)
	if err != nil {
		return nil, err
	}
	if root != "" {
		if keys := doc.Keys(); len(keys) != 1 || keys[0] != root {
			return nil, fmt.Errorf("%w: expected <%s>, got %v", airwave.ErrUnexpectedDocument, root, keys)
		}
	}
	return doc, nil
}

// sendFetchError maps a failed AirWave exchange onto a response
func (app *App) sendFetchError(w http.ResponseWriter, what string, err error) {
	app.Logger.Errorf("Failed to fetch %s: %v", what, err)
	if errors.Is(err, errNotConfigured) {
		app.sendJSONError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	app.sendJSONError(w, fmt.Sprintf("Failed to fetch %s from AirWave", what), http.StatusBadGateway)
}

// relayDocument answers with the decoded document as JSON, or with the raw
// AirWave body when the caller asks for format=xml.
func (app *App) relayDocument(w http.ResponseWriter, r *http.Request, res *airwave.Response, doc interface{}) {
	if r.URL.Query().Get("format") == "xml" {
		contentType := res.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/xml"
		}
		w.Header().Set("Content-Type", contentType)
		if _, err := w.Write(res.Body); err != nil {
			app.Logger.Errorf("Failed to write response: %v", err)
		}
		return
	}
	app.sendJSON(w, doc, http.StatusOK)
}

func (app *App) relay(w http.ResponseWriter, r *http.Request, what, root string, call func(*airwave.Client) (*airwave.Response, error)) {
	res, doc, err := app.fetchDocument(r.Context(), root, call)
	if err != nil {
		app.sendFetchError(w, what, err)
		return
	}
	app.relayDocument(w, r, res, doc)
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

func queryInt(r *http.Request, name string, def int) int {
	if s := r.URL.Query().Get(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return def
}

// Test AirWave connection endpoint
func (app *App) TestAirWaveHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL                string `json:"url"`
		Username           string `json:"username"`
		Password           string `json:"password"`
		InsecureSkipVerify bool   `json:"insecure_skip_verify"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.Logger.Errorf("Failed to decode request body: %v", err)
		app.sendJSONError(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	app.Logger.Debugf("TestAirWave request: URL=%s, User=%s", req.URL, req.Username)

	// Create a temporary AirWave client
	testClient, err := airwave.NewClient(airwave.Config{
		URL:                req.URL,
		Username:           req.Username,
		Password:           req.Password,
		InsecureSkipVerify: req.InsecureSkipVerify,
		Logger:             airwave.NewLogrusAdapter(app.Logger),
	})
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Try to login
	res, err := testClient.Login(r.Context())
	if err != nil || !res.OK() {
		app.Logger.Errorf("AirWave login test failed: %v", err)
		app.sendJSONError(w, "Failed to connect to AirWave. Please check your credentials and URL.", http.StatusBadRequest)
		return
	}
	defer testClient.Logout()

	// The AP list only decodes when the session was accepted
	res, err = testClient.APList(r.Context())
	if err != nil || !res.OK() {
		app.sendJSONError(w, "Connected to AirWave but failed to fetch the AP list.", http.StatusBadRequest)
		return
	}
	list, err := airwave.DecodeAPList(res.Body)
	if err != nil {
		app.Logger.Errorf("AirWave AP list test failed: %v", err)
		app.sendJSONError(w, "AirWave rejected the credentials.", http.StatusBadRequest)
		return
	}

	type apSummary struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		LANMAC string `json:"lan_mac"`
	}
	aps := make([]apSummary, 0, list.Len())
	for _, node := range list.Nodes() {
		aps = append(aps, apSummary{ID: node.ID(), Name: node.Name(), LANMAC: node.LANMAC()})
	}

	app.sendJSON(w, map[string]interface{}{
		"success":       true,
		"access_points": aps,
	}, http.StatusOK)
}

// Get AMP stats API
func (app *App) GetAMPStatsHandler(w http.ResponseWriter, r *http.Request) {
	app.relay(w, r, "AMP stats", rootAMPStats, func(c *airwave.Client) (*airwave.Response, error) {
		return c.AMPStats(r.Context())
	})
}

// Get folders API, optionally restricted by repeated id parameters
func (app *App) GetFoldersHandler(w http.ResponseWriter, r *http.Request) {
	var ids []int
	for _, s := range r.URL.Query()["id"] {
		id, err := strconv.Atoi(s)
		if err != nil {
			app.sendJSONError(w, "invalid id", http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}

	app.relay(w, r, "folder list", rootFolderList, func(c *airwave.Client) (*airwave.Response, error) {
		return c.FolderList(r.Context(), ids...)
	})
}

// Get live AP detail API
func (app *App) GetAPDetailHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, _, err := app.fetchDocument(r.Context(), rootAPDetail, func(c *airwave.Client) (*airwave.Response, error) {
		return c.APDetail(r.Context(), id)
	})
	if err != nil {
		app.sendFetchError(w, "AP detail", err)
		return
	}

	node, err := airwave.DecodeAPDetail(res.Body)
	if err != nil {
		app.sendJSONError(w, "AP not found", http.StatusNotFound)
		return
	}
	app.relayDocument(w, r, res, node)
}

// Get client detail API
func (app *App) GetClientDetailHandler(w http.ResponseWriter, r *http.Request) {
	mac := mux.Vars(r)["mac"]
	app.relay(w, r, "client detail", rootClientDetail, func(c *airwave.Client) (*airwave.Response, error) {
		return c.ClientDetail(r.Context(), mac)
	})
}

// Get rogue detail API
func (app *App) GetRogueDetailHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	app.relay(w, r, "rogue detail", rootRogueDetail, func(c *airwave.Client) (*airwave.Response, error) {
		return c.RogueDetail(r.Context(), id)
	})
}

// Get reports list API. The list is an XHTML page, relayed as decoded.
func (app *App) GetReportsHandler(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	app.relay(w, r, "report list", "", func(c *airwave.Client) (*airwave.Response, error) {
		return c.ReportList(r.Context(), title)
	})
}

// Get report detail API
func (app *App) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	app.relayReport(w, r, func(c *airwave.Client) (*airwave.Response, error) {
		return c.ReportDetail(r.Context(), id)
	})
}

// Get latest report of a definition API
func (app *App) GetLatestReportHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "definition")
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	app.relayReport(w, r, func(c *airwave.Client) (*airwave.Response, error) {
		return c.LatestReport(r.Context(), id)
	})
}

func (app *App) relayReport(w http.ResponseWriter, r *http.Request, call func(*airwave.Client) (*airwave.Response, error)) {
	res, _, err := app.fetchDocument(r.Context(), rootReport, call)
	if err != nil {
		app.sendFetchError(w, "report", err)
		return
	}
	report, err := airwave.DecodeReport(res.Body)
	if err != nil {
		app.sendFetchError(w, "report", err)
		return
	}
	app.relayDocument(w, r, res, report)
}

// liveAP looks up a single AP in a fresh AP list
func (app *App) liveAP(ctx context.Context, id int) (*airwave.APNode, error) {
	res, _, err := app.fetchDocument(ctx, rootAPList, func(c *airwave.Client) (*airwave.Response, error) {
		return c.APList(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	list, err := airwave.DecodeAPList(res.Body)
	if err != nil {
		return nil, err
	}
	node, ok := list.FindByID(id)
	if !ok {
		return nil, nil
	}
	return node, nil
}

func (app *App) graphWindow(r *http.Request) airwave.GraphWindow {
	app.configMu.RLock()
	window := app.Config.GraphWindow()
	app.configMu.RUnlock()

	window.Start = queryInt(r, "start", window.Start)
	window.End = queryInt(r, "end", window.End)
	return window
}

type graphEntry struct {
	airwave.GraphLink
	Proxy string `json:"proxy"`
}

// Get graph links of an AP API
func (app *App) GetAPGraphsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	node, err := app.liveAP(r.Context(), id)
	if err != nil {
		app.sendFetchError(w, "AP list", err)
		return
	}
	if node == nil {
		app.sendJSONError(w, "AP not found", http.StatusNotFound)
		return
	}

	graph, err := airwave.NewAPGraph(app.airwaveBaseURL(), node)
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	window := app.graphWindow(r)
	links := graph.AllGraphs(window)
	entries := make([]graphEntry, 0, len(links))
	for _, link := range links {
		proxy := fmt.Sprintf("/api/aps/%d/graphs/%s/%s?start=%d&end=%d", id, link.Type, link.Radio, window.Start, window.End)
		entries = append(entries, graphEntry{GraphLink: link, Proxy: proxy})
	}

	app.sendJSON(w, map[string]interface{}{
		"ap_id":  id,
		"name":   node.Name(),
		"graphs": entries,
	}, http.StatusOK)
}

// Get graph image API. The PNG is fetched with the AirWave session and
// streamed back unchanged.
func (app *App) GetAPGraphImageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	graphType := airwave.GraphType(vars["type"])
	radio := airwave.RadioType(vars["radio"])
	if !graphType.Valid() {
		app.sendJSONError(w, "unknown graph type", http.StatusBadRequest)
		return
	}
	if !radio.Valid() {
		app.sendJSONError(w, "unknown radio type", http.StatusBadRequest)
		return
	}

	node, err := app.liveAP(r.Context(), id)
	if err != nil {
		app.sendFetchError(w, "AP list", err)
		return
	}
	if node == nil {
		app.sendJSONError(w, "AP not found", http.StatusNotFound)
		return
	}

	graph, err := airwave.NewAPGraph(app.airwaveBaseURL(), node)
	if err != nil {
		app.sendJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	graphURL, ok := graph.URL(airwave.GraphRequest{Type: graphType, Radio: radio, Window: app.graphWindow(r)})
	if !ok {
		app.sendJSONError(w, "AP has no such radio", http.StatusNotFound)
		return
	}

	res, err := app.withSession(r.Context(), func(c *airwave.Client) (*airwave.Response, error) {
		res, err := c.Graph(r.Context(), graphURL)
		if err != nil || !res.OK() {
			return res, err
		}
		if !strings.HasPrefix(res.Header.Get("Content-Type"), "image/") {
			return res, fmt.Errorf("%w: graph returned %q", errSessionFailed, res.Header.Get("Content-Type"))
		}
		return res, nil
	})
	if err == nil && !res.OK() {
		err = fmt.Errorf("AirWave returned status %d", res.StatusCode)
	}
	if err != nil {
		app.sendFetchError(w, "graph", err)
		return
	}

	w.Header().Set("Content-Type", res.Header.Get("Content-Type"))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(res.Body); err != nil {
		app.Logger.Errorf("Failed to write graph: %v", err)
	}
}

func (app *App) airwaveBaseURL() string {
	app.clientMu.Lock()
	defer app.clientMu.Unlock()
	if app.AirWave == nil {
		return ""
	}
	return app.AirWave.BaseURL()
}
