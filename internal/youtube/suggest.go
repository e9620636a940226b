package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// SuggestEndpoint is the route the gateway treats as the suggestion source.
const SuggestEndpoint = "suggestqueries.google.com/complete/search"

// SuggestGuard is the anti-JSON-hijacking prefix some responses carry.
const SuggestGuard = ")]}'"

// ErrBadSuggestions is returned for a payload without a list of strings.
var ErrBadSuggestions = errors.New("malformed suggestion payload")

// StripGuard removes a leading SuggestGuard and surrounding whitespace.
func StripGuard(body []byte) []byte {
	body = bytes.TrimSpace(body)
	body = bytes.TrimPrefix(body, []byte(SuggestGuard))
	return bytes.TrimSpace(body)
}

// ParseSuggestions decodes a suggestion payload: a JSON array whose second
// element is the ordered list of suggestion strings.
func ParseSuggestions(body []byte) ([]string, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(StripGuard(body), &arr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSuggestions, err)
	}
	if len(arr) < 2 {
		return nil, fmt.Errorf("%w: %d elements", ErrBadSuggestions, len(arr))
	}
	var list []string
	if err := json.Unmarshal(arr[1], &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSuggestions, err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

// SuggestParams are the query parameters sent with a suggestion request.
func SuggestParams(q string) url.Values {
	return url.Values{
		"client": {"firefox"},
		"ds":     {"yt"},
		"q":      {q},
	}
}

// Suggestions returns completions for q.
func (c *Client) Suggestions(ctx context.Context, q string) ([]string, error) {
	body, err := c.Get(ctx, SuggestEndpoint, SuggestParams(q))
	if err != nil {
		return nil, err
	}
	return ParseSuggestions(body)
}
