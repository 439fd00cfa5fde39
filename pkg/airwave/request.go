package airwave

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildPath joins base and endpoint with exactly one slash between them.
func BuildPath(base, endpoint string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// EncodeParams renders params as a query string with keys in sorted order and
// values percent-encoded, so the same input always yields the same bytes.
func EncodeParams(params url.Values) string {
	return params.Encode()
}

type identifier interface {
	~int | ~int64 | ~string
}

// IDParams renders ids as repeated id= pairs in the order given,
// e.g. []int{1, 2} becomes "id=1&id=2".
func IDParams[T identifier](ids []T) string {
	pairs := make([]string, 0, len(ids))
	for _, id := range ids {
		pairs = append(pairs, "id="+url.QueryEscape(fmt.Sprint(id)))
	}
	return strings.Join(pairs, "&")
}

// resolvePath resolves an absolute path against base, dropping any path the
// base URL carries.
func resolvePath(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	return u.ResolveReference(&url.URL{Path: path}).String(), nil
}
