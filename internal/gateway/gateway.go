// Package gateway is the HTTP proxy between tubex clients and the upstream
// video-data API. It holds the API key, enforces a CORS allow-list and
// unwraps the suggestion source's guarded responses.
//
//	GET /?endpoint=<route>&<params>   proxied call
//	GET /healthz                      liveness
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/oakwood-commons/tubex/internal/youtube"
)

const maxUpstreamBody = 8 << 20

// apiRoute restricts forwarded endpoints to plain path segments.
var apiRoute = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(/[A-Za-z][A-Za-z0-9_]*)*$`)

// Gateway serves the proxy endpoint.
type Gateway struct {
	opts     Options
	log      logr.Logger
	cache    *expirable.LRU[string, []byte]
	group    singleflight.Group
	limiters *clientLimiters
}

// New returns a gateway with defaults applied to opts.
func New(opts Options) *Gateway {
	opts = opts.withDefaults()
	g := &Gateway{
		opts:     opts,
		log:      opts.Logger,
		limiters: newClientLimiters(opts.RatePerSecond, opts.Burst, clientLimiterCap),
	}
	if opts.CacheTTL > 0 {
		g.cache = expirable.NewLRU[string, []byte](opts.CacheSize, nil, opts.CacheTTL)
	}
	return g
}

// Handler returns the gateway's routes wrapped in its middleware.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", g.handleHealth)
	mux.HandleFunc("GET /{$}", g.handleProxy)
	return g.logRequests(g.cors(g.rateLimit(mux)))
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []byte(`{"status":"ok"}`))
}

func (g *Gateway) handleProxy(w http.ResponseWriter, r *http.Request) {
	body, err := g.Fetch(r.Context(), r.URL.Query())
	if err != nil {
		g.log.Info("proxy request failed", "endpoint", r.URL.Query().Get("endpoint"), "error", err.Error())
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// Fetch resolves one proxied request: query must carry endpoint plus any
// parameters to forward. It returns the JSON body to send to the client.
func (g *Gateway) Fetch(ctx context.Context, query url.Values) ([]byte, error) {
	endpoint := query.Get("endpoint")
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	params := url.Values{}
	for k, vs := range query {
		if k == "endpoint" || k == "key" {
			continue
		}
		params[k] = vs
	}

	var target string
	var fetch func(context.Context, string) ([]byte, error)
	if endpoint == g.opts.SuggestEndpoint {
		target = g.opts.SuggestBase + "?" + params.Encode()
		fetch = g.fetchSuggestions
	} else {
		if !apiRoute.MatchString(endpoint) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
		}
		if g.opts.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		target = g.opts.APIBase + "/" + endpoint + "?" + params.Encode()
		fetch = g.fetchAPI
	}

	// cache and coalescing key on the target before the key is appended
	if g.cache != nil {
		if body, ok := g.cache.Get(target); ok {
			g.log.V(1).Info("cache hit", "endpoint", endpoint)
			return body, nil
		}
	}
	v, err, shared := g.group.Do(target, func() (any, error) {
		// detached so one caller's cancellation does not fail the others
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.opts.Timeout)
		defer cancel()
		return fetch(uctx, target)
	})
	if err != nil {
		return nil, err
	}
	body := v.([]byte)
	if shared {
		g.log.V(1).Info("coalesced upstream call", "endpoint", endpoint)
	}
	if g.cache != nil {
		g.cache.Add(target, body)
	}
	return body, nil
}

func (g *Gateway) get(ctx context.Context, target string, header http.Header) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	start := time.Now()
	resp, err := g.opts.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	g.log.V(1).Info("upstream call", "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start).String())
	return resp.StatusCode, body, err
}

func (g *Gateway) fetchAPI(ctx context.Context, target string) ([]byte, error) {
	status, body, err := g.get(ctx, target+"&key="+url.QueryEscape(g.opts.APIKey), http.Header{
		"Accept": {"application/json"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, status)
	}
	return body, nil
}

func (g *Gateway) fetchSuggestions(ctx context.Context, target string) ([]byte, error) {
	status, body, err := g.get(ctx, target, http.Header{
		"User-Agent": {BrowserUserAgent},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSuggestUpstream, err)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrSuggestUpstream, status)
	}
	return normalizeSuggestions(body)
}

// normalizeSuggestions strips the guard prefix and re-encodes the payload
// as plain JSON.
func normalizeSuggestions(body []byte) ([]byte, error) {
	var parsed any
	if err := json.Unmarshal(youtube.StripGuard(body), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSuggestions, err)
	}
	out, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSuggestions, err)
	}
	return out, nil
}

// Serve runs the gateway on ln until ctx is cancelled, then shuts down
// gracefully.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		g.log.Info("gateway listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	g.log.Info("shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (g *Gateway) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return g.Serve(ctx, ln)
}
