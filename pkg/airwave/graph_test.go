package airwave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graphBase = "https://192.168.1.1/"

func graphFor(t *testing.T, name string) *APGraph {
	t.Helper()
	node, ok := loadAPList(t).FindByName(name)
	require.True(t, ok, name)
	g, err := NewAPGraph(graphBase, node)
	require.NoError(t, err)
	return g
}

func TestGraphAPLevel(t *testing.T) {
	g := graphFor(t, "AP001")

	u, ok := g.ClientCount(Radio80211BGN, GraphWindow{})
	require.True(t, ok)
	assert.Equal(t, "https://192.168.1.1/nf/rrd_graph?end=0s&id=1&radio_index=1&start=-7200s&type=ap_client_count", u)

	u, ok = g.ClientCount(Radio80211AN, GraphWindow{})
	require.True(t, ok)
	assert.Equal(t, "https://192.168.1.1/nf/rrd_graph?end=0s&id=1&radio_index=2&start=-7200s&type=ap_client_count", u)

	_, ok = g.ClientCount(Radio80211AC, GraphWindow{})
	assert.False(t, ok, "AP001 has no 802.11ac radio")
}

func TestGraphWindow(t *testing.T) {
	g := graphFor(t, "AP001")

	u, ok := g.Bandwidth(Radio80211BGN, GraphWindow{Start: -3600, End: -60})
	require.True(t, ok)
	assert.Equal(t, "https://192.168.1.1/nf/rrd_graph?end=-60s&id=1&radio_index=1&start=-3600s&type=ap_bandwidth", u)

	// The sign is kept as given.
	u, ok = g.Dot11Counters(Radio80211BGN, GraphWindow{Start: 3600})
	require.True(t, ok)
	assert.Equal(t, "https://192.168.1.1/nf/rrd_graph?end=0s&id=1&radio_index=1&start=3600s&type=dot11_counters", u)
}

func TestGraphRadioLevel(t *testing.T) {
	g := graphFor(t, "AP001")

	u, ok := g.ChannelUtilization(Radio80211BGN, GraphWindow{})
	require.True(t, ok)
	assert.Equal(t, "https://192.168.1.1/nf/rrd_graph?ap_uid=00%3A00%3A10%3A00%3A00%3A01&end=0s&radio_index=1&radio_interface=2&start=-7200s&type=channel_utilization", u)

	u, ok = g.RadioNoise(Radio80211AN, GraphWindow{Start: -3600})
	require.True(t, ok)
	assert.Equal(t, "https://192.168.1.1/nf/rrd_graph?ap_uid=00%3A00%3A10%3A00%3A00%3A01&end=0s&radio_index=2&radio_interface=1&start=-3600s&type=radio_noise", u)

	_, ok = g.RadioPower(Radio80211AC, GraphWindow{})
	assert.False(t, ok)
}

func TestGraphAC(t *testing.T) {
	g := graphFor(t, "AP003")

	u, ok := g.RadioGoodput(Radio80211AC, GraphWindow{})
	require.True(t, ok)
	assert.Equal(t, "https://192.168.1.1/nf/rrd_graph?ap_uid=00%3A00%3A10%3A00%3A00%3A03&end=0s&radio_index=2&radio_interface=1&start=-7200s&type=radio_goodput", u)

	_, ok = g.RadioErrors(Radio80211AN, GraphWindow{})
	assert.False(t, ok)
}

func TestGraphFirstMatchingRadioWins(t *testing.T) {
	list, err := DecodeAPList([]byte(`<amp:amp_ap_list xmlns:amp="x"><ap id="9"><name>dual</name><lan_mac>aa:bb</lan_mac>` +
		`<radio index="1"><radio_type>aN</radio_type><radio_interface>1</radio_interface></radio>` +
		`<radio index="2"><radio_type>aN</radio_type><radio_interface>2</radio_interface></radio>` +
		`</ap></amp:amp_ap_list>`))
	require.NoError(t, err)

	g, err := NewAPGraph("https://h", list.At(0))
	require.NoError(t, err)
	u, ok := g.RadioChannel(Radio80211AN, GraphWindow{})
	require.True(t, ok)
	assert.Equal(t, "https://h/nf/rrd_graph?ap_uid=aa%3Abb&end=0s&radio_index=1&radio_interface=1&start=-7200s&type=radio_channel", u)
}

func TestGraphWithoutRadios(t *testing.T) {
	list, err := DecodeAPList([]byte(`<amp:amp_ap_list xmlns:amp="x"><ap id="9"><name>wired</name></ap></amp:amp_ap_list>`))
	require.NoError(t, err)

	g, err := NewAPGraph(graphBase, list.At(0))
	require.NoError(t, err)
	for _, gt := range GraphTypes {
		_, ok := g.URL(GraphRequest{Type: gt, Radio: Radio80211BGN})
		assert.False(t, ok, gt)
	}
	assert.Empty(t, g.AllGraphs(GraphWindow{}))
}

func TestAllGraphs(t *testing.T) {
	links := graphFor(t, "AP004").AllGraphs(GraphWindow{})
	require.Len(t, links, len(GraphTypes))
	for i, l := range links {
		assert.Equal(t, GraphTypes[i], l.Type)
		assert.Equal(t, Radio80211BGN, l.Radio)
		assert.Contains(t, l.URL, "type="+string(l.Type))
	}

	assert.Len(t, graphFor(t, "AP001").AllGraphs(GraphWindow{}), 2*len(GraphTypes))
}

func TestGraphTypeClassification(t *testing.T) {
	apLevel := map[GraphType]bool{GraphClientCount: true, GraphBandwidth: true, GraphDot11Counters: true}
	for _, gt := range GraphTypes {
		assert.True(t, gt.Valid())
		assert.Equal(t, !apLevel[gt], gt.RadioLevel(), gt)
	}
	assert.False(t, GraphType("bogus").Valid())
	assert.True(t, Radio80211AC.Valid())
	assert.False(t, RadioType("ax").Valid())
}

func TestNewAPGraphNilNode(t *testing.T) {
	_, err := NewAPGraph(graphBase, nil)
	assert.Error(t, err)
}
