package airwave

import (
	"fmt"

	"github.com/fbettag/airwave-monitor/pkg/xmlmap"
)

// Report is the decoded body of latest_report.xml or a report detail.
type Report struct {
	fields *xmlmap.Map
}

// DecodeReport decodes a report document rooted at amp:report.
func DecodeReport(data []byte) (*Report, error) {
	root, err := descend(data, reportRoot)
	if err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &Report{fields: root}, nil
}

// Title returns the report title, empty when absent.
func (r *Report) Title() string {
	s, _ := r.fields.String("title")
	return s
}

func (r *Report) Keys() []string {
	return r.fields.Keys()
}

func (r *Report) Get(key string) (any, bool) {
	return r.fields.Get(key)
}

// List returns the values under key as a list even when the document holds
// a single one.
func (r *Report) List(key string) []any {
	return r.fields.List(key)
}

// Maps is List restricted to nested records, e.g. pickled_ap_summary rows.
func (r *Report) Maps(key string) []*xmlmap.Map {
	return r.fields.Maps(key)
}

func (r *Report) Fields() *xmlmap.Map {
	return r.fields
}

func (r *Report) MarshalJSON() ([]byte, error) {
	return r.fields.MarshalJSON()
}
