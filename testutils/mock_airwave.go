package testutils

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	sessionCookie = "AMPAuth"

	// loginPage is what AirWave serves instead of data to an unknown session.
	// It is deliberately not well-formed XML.
	loginPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>AirWave Login</title></head>
<body><form method="post" action="/LOGIN"><input name="credential_0"><input type="password" name="credential_1"></form></body></html>`

	// PNGHeader is the start of every graph served by the mock
	PNGHeader = "\x89PNG\r\n\x1a\n"
)

// MockRadio is one radio of a mocked access point
type MockRadio struct {
	Index     int
	Type      string
	Interface int
}

// MockAP is one access point served by the mock AirWave
type MockAP struct {
	ID     int
	Name   string
	LANMAC string
	IsUp   bool
	Radios []MockRadio
}

// MockAirWaveServer provides a mock AirWave for testing. Data endpoints answer
// with the login page unless the request carries a cookie issued by /LOGIN.
type MockAirWaveServer struct {
	Server   *httptest.Server
	URL      string
	Username string
	Password string

	mu         sync.Mutex
	aps        []MockAP
	sessions   map[string]bool
	logins     int
	requests   []string
	graphQuery []string
}

// DefaultMockAPs returns two APs with a dual band and a single band radio set
func DefaultMockAPs() []MockAP {
	return []MockAP{
		{
			ID:     1,
			Name:   "AP001",
			LANMAC: "00:00:10:00:00:01",
			IsUp:   true,
			Radios: []MockRadio{
				{Index: 1, Type: "bgn", Interface: 2},
				{Index: 2, Type: "aN", Interface: 1},
			},
		},
		{
			ID:     2,
			Name:   "AP002",
			LANMAC: "00:00:10:00:00:02",
			IsUp:   true,
			Radios: []MockRadio{
				{Index: 1, Type: "bgn", Interface: 2},
			},
		},
	}
}

// NewMockAirWaveServer creates a new mock AirWave accepting username and password
func NewMockAirWaveServer(username, password string) *MockAirWaveServer {
	m := &MockAirWaveServer{
		Username: username,
		Password: password,
		aps:      DefaultMockAPs(),
		sessions: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/LOGIN", m.handleLogin)
	mux.HandleFunc("/ap_list.xml", m.authenticated(m.handleAPList))
	mux.HandleFunc("/ap_detail.xml", m.authenticated(m.handleAPDetail))
	mux.HandleFunc("/amp_stats.xml", m.authenticated(m.handleAMPStats))
	mux.HandleFunc("/folder_list.xml", m.authenticated(m.handleFolderList))
	mux.HandleFunc("/client_detail.xml", m.authenticated(m.handleClientDetail))
	mux.HandleFunc("/rogue_detail.xml", m.authenticated(m.handleRogueDetail))
	mux.HandleFunc("/latest_report.xml", m.authenticated(m.handleReport))
	mux.HandleFunc("/nf/report_detail", m.authenticated(m.handleReport))
	mux.HandleFunc("/nf/reports_list", m.authenticated(m.handleReportsList))
	mux.HandleFunc("/nf/rrd_graph", m.authenticated(m.handleGraph))

	m.Server = httptest.NewServer(mux)
	m.URL = m.Server.URL
	return m
}

// Close shuts down the mock server
func (m *MockAirWaveServer) Close() {
	m.Server.Close()
}

// SetAPs replaces the served access points
func (m *MockAirWaveServer) SetAPs(aps []MockAP) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aps = aps
}

// SetAPUp changes the is_up flag of one AP
func (m *MockAirWaveServer) SetAPUp(id int, up bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.aps {
		if m.aps[i].ID == id {
			m.aps[i].IsUp = up
		}
	}
}

// ExpireSessions forgets every issued session cookie
func (m *MockAirWaveServer) ExpireSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]bool)
}

// LoginCount returns how many logins were accepted
func (m *MockAirWaveServer) LoginCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins
}

// Requests returns the request URIs of all authenticated data requests
func (m *MockAirWaveServer) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// GraphQueries returns the query strings of all graph requests
func (m *MockAirWaveServer) GraphQueries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.graphQuery...)
}

func (m *MockAirWaveServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	if r.PostForm.Get("credential_0") != m.Username || r.PostForm.Get("credential_1") != m.Password {
		// AirWave shows the form again without a session
		writeBody(w, loginPage)
		return
	}

	token := uuid.NewString()
	m.mu.Lock()
	m.sessions[token] = true
	m.logins++
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:  sessionCookie,
		Value: token,
		Path:  "/",
	})
	writeBody(w, "<html><body>Welcome</body></html>")
}

func (m *MockAirWaveServer) authenticated(next func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)

		m.mu.Lock()
		valid := err == nil && m.sessions[cookie.Value]
		if valid {
			m.requests = append(m.requests, r.URL.RequestURI())
		}
		m.mu.Unlock()

		if !valid {
			w.Header().Set("Content-Type", "text/html")
			writeBody(w, loginPage)
			return
		}
		next(w, r)
	}
}

func (m *MockAirWaveServer) selectAPs(ids []string) []MockAP {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(ids) == 0 {
		return append([]MockAP(nil), m.aps...)
	}
	var out []MockAP
	for _, ap := range m.aps {
		for _, id := range ids {
			if strconv.Itoa(ap.ID) == id {
				out = append(out, ap)
			}
		}
	}
	return out
}

func (m *MockAirWaveServer) handleAPList(w http.ResponseWriter, r *http.Request) {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8" ?>` + "\n")
	b.WriteString(`<amp:amp_ap_list version="1" xmlns:amp="http://www.airwave.com">`)
	for _, ap := range m.selectAPs(r.URL.Query()["id"]) {
		writeAP(&b, ap, false)
	}
	b.WriteString(`</amp:amp_ap_list>`)
	writeXML(w, b.String())
}

func (m *MockAirWaveServer) handleAPDetail(w http.ResponseWriter, r *http.Request) {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8" ?>` + "\n")
	b.WriteString(`<amp:amp_ap_detail version="1" xmlns:amp="http://www.airwave.com">`)
	if id := r.URL.Query().Get("id"); id != "" {
		for _, ap := range m.selectAPs([]string{id}) {
			writeAP(&b, ap, true)
		}
	}
	b.WriteString(`</amp:amp_ap_detail>`)
	writeXML(w, b.String())
}

func writeAP(b *bytes.Buffer, ap MockAP, withClients bool) {
	fmt.Fprintf(b, `<ap id="%d">`, ap.ID)
	b.WriteString(`<ap_folder id="1">Top</ap_folder><group id="1">Access Points</group>`)
	fmt.Fprintf(b, `<is_up>%t</is_up>`, ap.IsUp)
	fmt.Fprintf(b, `<lan_ip>10.0.0.%d</lan_ip>`, ap.ID)
	fmt.Fprintf(b, `<lan_mac>%s</lan_mac>`, escape(ap.LANMAC))
	b.WriteString(`<model id="1">Aruba AP-325</model>`)
	fmt.Fprintf(b, `<name>%s</name>`, escape(ap.Name))
	for _, radio := range ap.Radios {
		fmt.Fprintf(b, `<radio index="%d"><radio_interface>%d</radio_interface><radio_type>%s</radio_type>`, radio.Index, radio.Interface, escape(radio.Type))
		if withClients {
			fmt.Fprintf(b, `<client><mac>00:00:20:%02d:%02d:01</mac><signal>-60</signal></client>`, ap.ID, radio.Index)
		}
		b.WriteString(`</radio>`)
	}
	b.WriteString(`</ap>`)
}

func (m *MockAirWaveServer) handleAMPStats(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	total, up := len(m.aps), 0
	for _, ap := range m.aps {
		if ap.IsUp {
			up++
		}
	}
	m.mu.Unlock()

	writeXML(w, fmt.Sprintf(`<?xml version="1.0" encoding="utf-8" ?>
<amp:amp_stats version="1" xmlns:amp="http://www.airwave.com"><devices><total>%d</total><up>%d</up><down>%d</down></devices></amp:amp_stats>`, total, up, total-up))
}

func (m *MockAirWaveServer) handleFolderList(w http.ResponseWriter, r *http.Request) {
	writeXML(w, `<?xml version="1.0" encoding="utf-8" ?>
<amp:amp_folder_list version="1" xmlns:amp="http://www.airwave.com"><folder id="1"><name>Top</name></folder><folder id="2"><name>Office</name><parent_id>1</parent_id></folder></amp:amp_folder_list>`)
}

func (m *MockAirWaveServer) handleClientDetail(w http.ResponseWriter, r *http.Request) {
	mac := r.URL.Query().Get("mac")
	writeXML(w, fmt.Sprintf(`<?xml version="1.0" encoding="utf-8" ?>
<amp:amp_client_detail version="1" xmlns:amp="http://www.airwave.com"><client mac="%s"><association><ap_id>1</ap_id><ssid>corp</ssid></association></client></amp:amp_client_detail>`, escape(mac)))
}

func (m *MockAirWaveServer) handleRogueDetail(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	writeXML(w, fmt.Sprintf(`<?xml version="1.0" encoding="utf-8" ?>
<amp:amp_rogue_detail version="1" xmlns:amp="http://www.airwave.com"><rogue id="%s"><classification>suspected</classification></rogue></amp:amp_rogue_detail>`, escape(id)))
}

func (m *MockAirWaveServer) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	writeXML(w, fmt.Sprintf(`<?xml version="1.0" encoding="utf-8" ?>
<amp:report version="1" xmlns:amp="http://www.airwave.com"><title>Daily Device Summary</title><definition_id>%s</definition_id><pickled_ap_summary><ap_id>1</ap_id><uptime>99.5</uptime></pickled_ap_summary><pickled_ap_summary><ap_id>2</ap_id><uptime>100</uptime></pickled_ap_summary></amp:report>`, escape(id)))
}

func (m *MockAirWaveServer) handleReportsList(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("reports_search_title")
	if title == "" {
		title = "All Reports"
	}
	w.Header().Set("Content-Type", "application/xhtml+xml")
	writeBody(w, fmt.Sprintf(`<?xml version="1.0" encoding="utf-8" ?>
<html xmlns="http://www.w3.org/1999/xhtml"><body><table><tr><td>%s</td><td>&nbsp;</td><td><a href="/nf/report_detail?id=7">7</a></td></tr></table></body></html>`, escape(title)))
}

func (m *MockAirWaveServer) handleGraph(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.graphQuery = append(m.graphQuery, r.URL.RawQuery)
	m.mu.Unlock()

	w.Header().Set("Content-Type", "image/png")
	writeBody(w, PNGHeader+r.URL.Query().Get("type"))
}

func escape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		log.Printf("Failed to escape %q: %v", s, err)
	}
	return b.String()
}

func writeXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	writeBody(w, body)
}

func writeBody(w http.ResponseWriter, body string) {
	if _, err := w.Write([]byte(body)); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
