package youtube

import (
	"net/url"
	"strings"
)

// SearchQueryParam is the routing parameter that holds the committed query.
const SearchQueryParam = "search_query"

// EncodeSearchQuery encodes q for the search_query parameter, spaces as '+'.
func EncodeSearchQuery(q string) string {
	return url.QueryEscape(strings.TrimSpace(q))
}

// DecodeSearchQuery reverses EncodeSearchQuery.
func DecodeSearchQuery(s string) (string, error) {
	return url.QueryUnescape(s)
}
