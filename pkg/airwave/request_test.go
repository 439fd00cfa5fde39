package airwave

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPath(t *testing.T) {
	tests := []struct {
		base, endpoint, want string
	}{
		{"https://192.168.1.1", "ap_list.xml", "https://192.168.1.1/ap_list.xml"},
		{"https://192.168.1.1/", "ap_list.xml", "https://192.168.1.1/ap_list.xml"},
		{"https://192.168.1.1/", "/nf/reports_list", "https://192.168.1.1/nf/reports_list"},
		{"https://host/amp//", "//LOGIN", "https://host/amp/LOGIN"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, BuildPath(tc.base, tc.endpoint))
	}
}

func TestIDParams(t *testing.T) {
	assert.Equal(t, "id=123&id=124&id=125", IDParams([]int{123, 124, 125}))
	assert.Equal(t, "id=125&id=123", IDParams([]int{125, 123}), "order must be preserved")
	assert.Equal(t, "id=a+b&id=c%26d", IDParams([]string{"a b", "c&d"}))
	assert.Equal(t, "", IDParams([]int64{}))
}

func TestEncodeParams(t *testing.T) {
	params := url.Values{"mac": {"12:34:56:78:90:AB"}}
	assert.Equal(t, "mac=12%3A34%3A56%3A78%3A90%3AAB", EncodeParams(params))
}

func TestEncodeParamsSortedAndIdempotent(t *testing.T) {
	params := url.Values{
		"type":        {"ap_client_count"},
		"end":         {"0s"},
		"start":       {"-7200s"},
		"id":          {"1"},
		"radio_index": {"1"},
	}
	first := EncodeParams(params)
	assert.Equal(t, "end=0s&id=1&radio_index=1&start=-7200s&type=ap_client_count", first)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, EncodeParams(params))
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		base, want string
	}{
		{"https://192.168.1.1", "https://192.168.1.1/nf/rrd_graph"},
		{"https://192.168.1.1/", "https://192.168.1.1/nf/rrd_graph"},
		{"https://192.168.1.1/amp/", "https://192.168.1.1/nf/rrd_graph"},
	}
	for _, tc := range tests {
		got, err := resolvePath(tc.base, graphPath)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := resolvePath("://bad", graphPath)
	assert.Error(t, err)
}
