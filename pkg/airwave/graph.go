package airwave

import (
	"errors"
	"net/url"
	"strconv"
)

const graphPath = "/nf/rrd_graph"

// RadioType is the vendor code of a radio band.
type RadioType string

const (
	Radio80211BGN RadioType = "bgn"
	Radio80211AN  RadioType = "aN"
	Radio80211AC  RadioType = "ac"
)

// RadioTypes lists the known radio codes in the order graphs are offered.
var RadioTypes = []RadioType{Radio80211BGN, Radio80211AN, Radio80211AC}

// GraphType selects the RRD graph AirWave renders.
type GraphType string

const (
	GraphClientCount        GraphType = "ap_client_count"
	GraphBandwidth          GraphType = "ap_bandwidth"
	GraphDot11Counters      GraphType = "dot11_counters"
	GraphRadioChannel       GraphType = "radio_channel"
	GraphRadioNoise         GraphType = "radio_noise"
	GraphRadioPower         GraphType = "radio_power"
	GraphRadioErrors        GraphType = "radio_errors"
	GraphRadioGoodput       GraphType = "radio_goodput"
	GraphChannelUtilization GraphType = "channel_utilization"
)

// GraphTypes lists every supported graph, AP level first.
var GraphTypes = []GraphType{
	GraphClientCount,
	GraphBandwidth,
	GraphDot11Counters,
	GraphRadioChannel,
	GraphRadioNoise,
	GraphRadioPower,
	GraphRadioErrors,
	GraphRadioGoodput,
	GraphChannelUtilization,
}

// RadioLevel reports whether the graph is keyed by the AP's LAN MAC and radio
// interface rather than by AP id.
func (g GraphType) RadioLevel() bool {
	switch g {
	case GraphClientCount, GraphBandwidth, GraphDot11Counters:
		return false
	}
	return true
}

// Valid reports whether g is one of GraphTypes.
func (g GraphType) Valid() bool {
	for _, t := range GraphTypes {
		if t == g {
			return true
		}
	}
	return false
}

// Valid reports whether r is one of RadioTypes.
func (r RadioType) Valid() bool {
	for _, t := range RadioTypes {
		if t == r {
			return true
		}
	}
	return false
}

const (
	DefaultGraphStart = -7200
	DefaultGraphEnd   = 0
)

// GraphWindow is a time range in seconds relative to now. Negative values
// lie in the past; zero fields fall back to DefaultGraphStart and
// DefaultGraphEnd.
type GraphWindow struct {
	Start int
	End   int
}

func (w GraphWindow) bounds() (start, end int) {
	start, end = w.Start, w.End
	if start == 0 {
		start = DefaultGraphStart
	}
	if end == 0 {
		end = DefaultGraphEnd
	}
	return start, end
}

// GraphRequest names one graph of one radio band.
type GraphRequest struct {
	Type   GraphType
	Radio  RadioType
	Window GraphWindow
}

// APGraph derives RRD graph URLs for a single AP.
type APGraph struct {
	graphURL string
	node     *APNode
}

// NewAPGraph prepares graph URLs for node on the AirWave at baseURL.
func NewAPGraph(baseURL string, node *APNode) (*APGraph, error) {
	if node == nil {
		return nil, errors.New("airwave: nil AP node")
	}
	u, err := resolvePath(baseURL, graphPath)
	if err != nil {
		return nil, err
	}
	return &APGraph{graphURL: u, node: node}, nil
}

// APGraph is NewAPGraph against the client's AirWave.
func (c *Client) APGraph(node *APNode) (*APGraph, error) {
	return NewAPGraph(c.baseURL, node)
}

// URL returns the graph URL for req, or false when the AP has no radio of
// the requested type.
func (g *APGraph) URL(req GraphRequest) (string, bool) {
	radio, ok := g.radio(req.Radio)
	if !ok {
		return "", false
	}

	start, end := req.Window.bounds()
	params := url.Values{}
	params.Set("type", string(req.Type))
	params.Set("radio_index", radio.Index())
	params.Set("start", formatOffset(start))
	params.Set("end", formatOffset(end))
	if req.Type.RadioLevel() {
		params.Set("ap_uid", g.node.LANMAC())
		params.Set("radio_interface", radio.Interface())
	} else {
		params.Set("id", g.node.ID())
	}

	return g.graphURL + "?" + EncodeParams(params), true
}

func (g *APGraph) radio(t RadioType) (Radio, bool) {
	for _, r := range g.node.Radios() {
		if r.Type() == t {
			return r, true
		}
	}
	return Radio{}, false
}

func formatOffset(seconds int) string {
	return strconv.Itoa(seconds) + "s"
}

func (g *APGraph) ClientCount(radio RadioType, w GraphWindow) (string, bool) {
	return g.URL(GraphRequest{Type: GraphClientCount, Radio: radio, Window: w})
}

func (g *APGraph) Bandwidth(radio RadioType, w GraphWindow) (string, bool) {
	return g.URL(GraphRequest{Type: GraphBandwidth, Radio: radio, Window: w})
}

func (g *APGraph) Dot11Counters(radio RadioType, w GraphWindow) (string, bool) {
	return g.URL(GraphRequest{Type: GraphDot11Counters, Radio: radio, Window: w})
}

func (g *APGraph) RadioChannel(radio RadioType, w GraphWindow) (string, bool) {
	return g.URL(GraphRequest{Type: GraphRadioChannel, Radio: radio, Window: w})
}

func (g *APGraph) RadioNoise(radio RadioType, w GraphWindow) (string, bool) {
	return g.URL(GraphRequest{Type: GraphRadioNoise, Radio: radio, Window: w})
}

func (g *APGraph) RadioPower(radio RadioType, w GraphWindow) (string, bool) {
	return g.URL(GraphRequest{Type: GraphRadioPower, Radio: radio, Window: w})
}

func (g *APGraph) RadioErrors(radio RadioType, w GraphWindow) (string, bool) {
	return g.URL(GraphRequest{Type: GraphRadioErrors, Radio: radio, Window: w})
}

func (g *APGraph) RadioGoodput(radio RadioType, w GraphWindow) (string, bool) {
	return g.URL(GraphRequest{Type: GraphRadioGoodput, Radio: radio, Window: w})
}

func (g *APGraph) ChannelUtilization(radio RadioType, w GraphWindow) (string, bool) {
	return g.URL(GraphRequest{Type: GraphChannelUtilization, Radio: radio, Window: w})
}

// GraphLink is one graph URL offered for an AP.
type GraphLink struct {
	Type  GraphType `json:"type"`
	Radio RadioType `json:"radio"`
	URL   string    `json:"url"`
}

// AllGraphs returns every graph the AP supports, grouped by graph type.
func (g *APGraph) AllGraphs(w GraphWindow) []GraphLink {
	var links []GraphLink
	for _, t := range GraphTypes {
		for _, r := range RadioTypes {
			if u, ok := g.URL(GraphRequest{Type: t, Radio: r, Window: w}); ok {
				links = append(links, GraphLink{Type: t, Radio: r, URL: u})
			}
		}
	}
	return links
}
