package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/tubex/internal/config"
)

// Defaults for an Options left at its zero value.
const (
	DefaultAPIBase         = "https://www.googleapis.com/youtube/v3"
	DefaultSuggestEndpoint = "suggestqueries.google.com/complete/search"
	DefaultTimeout         = 10 * time.Second
	DefaultCacheSize       = 512
	DefaultCacheTTL        = 5 * time.Minute

	// BrowserUserAgent is sent to the suggestion source, which rejects
	// obviously non-browser clients.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	// clientLimiterCap bounds how many per-client limiters are remembered.
	clientLimiterCap = 4096
)

// Options configures a Gateway.
type Options struct {
	APIBase         string
	APIKey          string
	SuggestEndpoint string
	// SuggestBase overrides the URL fetched for the suggestion route,
	// https://<SuggestEndpoint> by default.
	SuggestBase    string
	AllowedOrigins []string
	Timeout        time.Duration
	// CacheTTL <= 0 disables the response cache.
	CacheTTL  time.Duration
	CacheSize int
	// RatePerSecond <= 0 disables rate limiting.
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
	Logger        logr.Logger
}

// OptionsFromConfig converts the gateway config section.
func OptionsFromConfig(c config.GatewayConfig) Options {
	return Options{
		APIBase:         c.APIBase,
		APIKey:          c.APIKey,
		SuggestEndpoint: c.SuggestEndpoint,
		SuggestBase:     c.SuggestBase,
		AllowedOrigins:  c.AllowedOrigins,
		Timeout:         c.Timeout,
		CacheTTL:        c.CacheTTL,
		CacheSize:       c.CacheSize,
		RatePerSecond:   c.RatePerSecond,
		Burst:           c.Burst,
	}
}

func (o Options) withDefaults() Options {
	if o.APIBase == "" {
		o.APIBase = DefaultAPIBase
	}
	o.APIBase = strings.TrimRight(o.APIBase, "/")
	if o.SuggestEndpoint == "" {
		o.SuggestEndpoint = DefaultSuggestEndpoint
	}
	if o.SuggestBase == "" {
		o.SuggestBase = "https://" + o.SuggestEndpoint
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.Burst <= 0 {
		o.Burst = max(1, int(o.RatePerSecond))
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	if o.Logger.GetSink() == nil {
		o.Logger = logr.Discard()
	}
	return o
}
