package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
)

var (
	// ErrMissingEndpoint means the request had no endpoint parameter.
	ErrMissingEndpoint = errors.New("missing endpoint parameter")
	// ErrInvalidEndpoint means the endpoint is not a plain API route.
	ErrInvalidEndpoint = errors.New("invalid endpoint parameter")
	// ErrMissingAPIKey means the gateway has no credential configured.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrUpstream covers network failures and non-2xx upstream responses.
	ErrUpstream = errors.New("upstream request failed")
	// ErrSuggestUpstream is ErrUpstream for the suggestion source.
	ErrSuggestUpstream = errors.New("suggestion request failed")
	// ErrBadSuggestions means the suggestion payload could not be parsed.
	ErrBadSuggestions = errors.New("invalid suggestion response")
	// ErrRateLimited means the client exceeded its request budget.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrOriginNotAllowed means the Origin header is not on the allow-list.
	ErrOriginNotAllowed = errors.New("origin not allowed")
)

// statusFor maps an error to the HTTP status and the user-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingEndpoint):
		return http.StatusBadRequest, "Missing endpoint parameter"
	case errors.Is(err, ErrInvalidEndpoint):
		return http.StatusBadRequest, "Invalid endpoint parameter"
	case errors.Is(err, ErrMissingAPIKey):
		return http.StatusInternalServerError, "Missing API key"
	case errors.Is(err, ErrBadSuggestions):
		return http.StatusInternalServerError, "Invalid suggestion response"
	case errors.Is(err, ErrSuggestUpstream):
		return http.StatusInternalServerError, "Failed to fetch suggestions"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "Rate limit exceeded"
	case errors.Is(err, ErrOriginNotAllowed):
		return http.StatusForbidden, "Origin not allowed"
	default:
		return http.StatusInternalServerError, "Failed to fetch from upstream API"
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	body, _ := json.Marshal(errorBody{Error: msg})
	writeJSON(w, status, body)
}
