package airwave

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const (
	ampStatsPath     = "amp_stats.xml"
	apListPath       = "ap_list.xml"
	folderListPath   = "folder_list.xml"
	apDetailPath     = "ap_detail.xml"
	clientDetailPath = "client_detail.xml"
	rogueDetailPath  = "rogue_detail.xml"
	latestReportPath = "latest_report.xml"
	reportListPath   = "nf/reports_list"
	reportDetailPath = "nf/report_detail"
	graphEndpoint    = "rrd_graph"
)

// AMPStats fetches the management platform statistics.
func (c *Client) AMPStats(ctx context.Context) (*Response, error) {
	return c.get(ctx, ampStatsPath, "")
}

// APList fetches the access point list. With no ids every AP is returned.
func (c *Client) APList(ctx context.Context, ids ...int) (*Response, error) {
	return c.get(ctx, apListPath, IDParams(ids))
}

// FolderList fetches the folder list, optionally restricted to ids.
func (c *Client) FolderList(ctx context.Context, ids ...int) (*Response, error) {
	return c.get(ctx, folderListPath, IDParams(ids))
}

// APDetail fetches radios and associated clients of one access point.
func (c *Client) APDetail(ctx context.Context, id int) (*Response, error) {
	return c.get(ctx, apDetailPath, idQuery(id))
}

// ClientDetail fetches one client device by MAC address, e.g. "12:34:56:78:90:AB".
func (c *Client) ClientDetail(ctx context.Context, mac string) (*Response, error) {
	if mac == "" {
		return nil, fmt.Errorf("airwave %s: mac is required", clientDetailPath)
	}
	return c.get(ctx, clientDetailPath, EncodeParams(url.Values{"mac": {mac}}))
}

// RogueDetail fetches one rogue access point.
func (c *Client) RogueDetail(ctx context.Context, id int) (*Response, error) {
	return c.get(ctx, rogueDetailPath, idQuery(id))
}

// LatestReport fetches the most recent run of a report definition.
func (c *Client) LatestReport(ctx context.Context, definitionID int) (*Response, error) {
	return c.get(ctx, latestReportPath, idQuery(definitionID))
}

// ReportList lists generated reports, filtered by title when title is set.
// Some AirWave releases answer with XHTML instead of XML here.
func (c *Client) ReportList(ctx context.Context, title string) (*Response, error) {
	params := url.Values{"format": {"xml"}}
	if title != "" {
		params.Set("reports_search_title", title)
	}
	return c.get(ctx, reportListPath, EncodeParams(params))
}

// ReportDetail fetches one generated report.
func (c *Client) ReportDetail(ctx context.Context, id int) (*Response, error) {
	params := url.Values{
		"id":     {strconv.Itoa(id)},
		"format": {"xml"},
	}
	return c.get(ctx, reportDetailPath, EncodeParams(params))
}

// Graph downloads the image behind a URL produced by APGraph. The URL must
// point at the same AirWave the session belongs to.
func (c *Client) Graph(ctx context.Context, graphURL string) (*Response, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	u, err := url.Parse(graphURL)
	if err != nil {
		return nil, fmt.Errorf("parse graph URL: %w", err)
	}
	if u.Host != base.Host {
		return nil, fmt.Errorf("airwave %s: host %q does not belong to %s", graphEndpoint, u.Host, base.Host)
	}
	return c.getURL(ctx, graphEndpoint, graphURL)
}

func idQuery(id int) string {
	return EncodeParams(url.Values{"id": {strconv.Itoa(id)}})
}
