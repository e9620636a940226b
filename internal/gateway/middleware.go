package gateway

import (
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// cors rejects requests whose Origin is not on the allow-list and answers
// preflights. Requests without an Origin header (CLI clients) pass.
func (g *Gateway) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !g.originAllowed(origin) {
			g.log.V(1).Info("rejected origin", "origin", origin)
			writeError(w, ErrOriginNotAllowed)
			return
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) originAllowed(origin string) bool {
	return slices.ContainsFunc(g.opts.AllowedOrigins, func(o string) bool {
		return o == "*" || strings.EqualFold(strings.TrimRight(o, "/"), origin)
	})
}

// rateLimit applies a token bucket per client address.
func (g *Gateway) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.limiters.allow(clientAddr(r)) {
			writeError(w, ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientLimiters keeps one limiter per client, forgetting the least
// recently seen clients beyond its capacity.
type clientLimiters struct {
	mu    sync.Mutex
	every rate.Limit
	burst int
	cache *lru.Cache[string, *rate.Limiter]
}

func newClientLimiters(perSecond float64, burst, capacity int) *clientLimiters {
	if perSecond <= 0 {
		return nil
	}
	cache, err := lru.New[string, *rate.Limiter](capacity)
	if err != nil {
		return nil
	}
	return &clientLimiters{every: rate.Limit(perSecond), burst: burst, cache: cache}
}

func (c *clientLimiters) allow(client string) bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	lim, ok := c.cache.Get(client)
	if !ok {
		lim = rate.NewLimiter(c.every, c.burst)
		c.cache.Add(client, lim)
	}
	c.mu.Unlock()
	return lim.Allow()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (g *Gateway) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		g.log.V(1).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"endpoint", r.URL.Query().Get("endpoint"),
			"status", rec.status,
			"elapsed", time.Since(start).String())
	})
}
