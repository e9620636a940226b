package gateway

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upstream struct {
	srv      *httptest.Server
	calls    atomic.Int32
	mu       sync.Mutex
	last     *http.Request
	status   int
	body     string
	delay    time.Duration
	released chan struct{}
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()
	u := &upstream{status: status, body: body}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		u.mu.Lock()
		u.last = r
		u.mu.Unlock()
		if u.released != nil {
			<-u.released
		}
		if u.delay > 0 {
			time.Sleep(u.delay)
		}
		w.WriteHeader(u.status)
		_, _ = io.WriteString(w, u.body)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) lastRequest() *http.Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.last
}

type testEnv struct {
	api     *upstream
	suggest *upstream
	gw      *Gateway
	handler http.Handler
}

func newEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	env := &testEnv{
		api:     newUpstream(t, http.StatusOK, `{"items":[{"id":"v1"}],"nextPageToken":"t2"}`),
		suggest: newUpstream(t, http.StatusOK, ")]}'\n[\"go\",[\"golang\",\"go tutorial\"]]"),
	}
	opts := Options{
		APIBase:        env.api.srv.URL,
		APIKey:         "secret",
		SuggestBase:    env.suggest.srv.URL + "/complete/search",
		AllowedOrigins: []string{"http://localhost:5173"},
		Timeout:        2 * time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}
	env.gw = New(opts)
	env.handler = env.gw.Handler()
	return env
}

func (e *testEnv) do(method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		req.Header[k] = vs
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(target string) *httptest.ResponseRecorder {
	return e.do(http.MethodGet, target, nil)
}

func TestMissingEndpoint(t *testing.T) {
	env := newEnv(t, nil)
	rec := env.get("/?part=snippet")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing endpoint parameter"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestInvalidEndpoint(t *testing.T) {
	env := newEnv(t, nil)
	for _, ep := range []string{"../secrets", "http://evil.example/x", "videos?x=1"} {
		rec := env.get("/?endpoint=" + url.QueryEscape(ep))
		assert.Equal(t, http.StatusBadRequest, rec.Code, ep)
		assert.JSONEq(t, `{"error":"Invalid endpoint parameter"}`, rec.Body.String())
	}
	assert.Zero(t, env.api.calls.Load())
}

func TestSuggestionRoute(t *testing.T) {
	env := newEnv(t, nil)
	rec := env.get("/?endpoint=suggestqueries.google.com/complete/search&client=firefox&ds=yt&q=go")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["go",["golang","go tutorial"]]`, rec.Body.String())

	last := env.suggest.lastRequest()
	require.NotNil(t, last)
	assert.Equal(t, "/complete/search", last.URL.Path)
	assert.Equal(t, "go", last.URL.Query().Get("q"))
	assert.Equal(t, "firefox", last.URL.Query().Get("client"))
	assert.False(t, last.URL.Query().Has("endpoint"))
	assert.Equal(t, BrowserUserAgent, last.Header.Get("User-Agent"))
}

func TestSuggestionRouteNeedsNoAPIKey(t *testing.T) {
	env := newEnv(t, func(o *Options) { o.APIKey = "" })
	rec := env.get("/?endpoint=suggestqueries.google.com/complete/search&q=go")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSuggestionFailures(t *testing.T) {
	t.Run("upstream error", func(t *testing.T) {
		env := newEnv(t, nil)
		env.suggest.status = http.StatusBadGateway
		rec := env.get("/?endpoint=suggestqueries.google.com/complete/search&q=go")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Failed to fetch suggestions"}`, rec.Body.String())
	})
	t.Run("unparseable", func(t *testing.T) {
		env := newEnv(t, nil)
		env.suggest.body = ")]}'\n<html>nope"
		rec := env.get("/?endpoint=suggestqueries.google.com/complete/search&q=go")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid suggestion response"}`, rec.Body.String())
	})
}

func TestAPIRouteForwardsWithKey(t *testing.T) {
	env := newEnv(t, nil)
	rec := env.get("/?endpoint=videos&part=snippet&chart=mostPopular&pageToken=t1&key=attacker")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[{"id":"v1"}],"nextPageToken":"t2"}`, rec.Body.String())

	last := env.api.lastRequest()
	require.NotNil(t, last)
	assert.Equal(t, "/videos", last.URL.Path)
	q := last.URL.Query()
	assert.Equal(t, []string{"secret"}, q["key"])
	assert.Equal(t, "mostPopular", q.Get("chart"))
	assert.Equal(t, "t1", q.Get("pageToken"))
	assert.False(t, q.Has("endpoint"))
}

func TestAPIRouteMissingKey(t *testing.T) {
	env := newEnv(t, func(o *Options) { o.APIKey = "" })
	rec := env.get("/?endpoint=videos")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Missing API key"}`, rec.Body.String())
	assert.Zero(t, env.api.calls.Load())
}

func TestAPIRouteUpstreamFailure(t *testing.T) {
	env := newEnv(t, nil)
	env.api.status = http.StatusForbidden
	env.api.body = `{"error":{"message":"quota"}}`
	rec := env.get("/?endpoint=search&q=x")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch from upstream API"}`, rec.Body.String())
}

func TestUpstreamTimeout(t *testing.T) {
	env := newEnv(t, func(o *Options) { o.Timeout = 50 * time.Millisecond })
	env.api.delay = 500 * time.Millisecond
	rec := env.get("/?endpoint=videos")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch from upstream API"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	env := newEnv(t, nil)

	t.Run("allowed origin", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/healthz", http.Header{"Origin": {"http://localhost:5173"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	})
	t.Run("allowed preflight", func(t *testing.T) {
		rec := env.do(http.MethodOptions, "/?endpoint=videos", http.Header{
			"Origin":                        {"http://localhost:5173"},
			"Access-Control-Request-Method": {"GET"},
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")
	})
	t.Run("rejected preflight", func(t *testing.T) {
		rec := env.do(http.MethodOptions, "/?endpoint=videos", http.Header{"Origin": {"https://evil.example"}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
	t.Run("rejected simple request", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/?endpoint=videos", http.Header{"Origin": {"https://evil.example"}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"Origin not allowed"}`, rec.Body.String())
	})
	t.Run("no origin", func(t *testing.T) {
		rec := env.get("/?endpoint=videos")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
	assert.Equal(t, int32(1), env.api.calls.Load())
}

func TestWildcardOrigin(t *testing.T) {
	env := newEnv(t, func(o *Options) { o.AllowedOrigins = []string{"*"} })
	rec := env.do(http.MethodGet, "/healthz", http.Header{"Origin": {"https://anything.example"}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	env := newEnv(t, func(o *Options) {
		o.RatePerSecond = 0.001
		o.Burst = 2
	})
	assert.Equal(t, http.StatusOK, env.get("/healthz").Code)
	assert.Equal(t, http.StatusOK, env.get("/healthz").Code)
	rec := env.get("/healthz")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Rate limit exceeded"}`, rec.Body.String())

	// other clients have their own bucket
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.1.1.1:5555"
	other := httptest.NewRecorder()
	env.handler.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestResponseCache(t *testing.T) {
	env := newEnv(t, func(o *Options) { o.CacheTTL = time.Minute })
	for range 3 {
		require.Equal(t, http.StatusOK, env.get("/?endpoint=videos&chart=mostPopular").Code)
	}
	assert.Equal(t, int32(1), env.api.calls.Load())

	require.Equal(t, http.StatusOK, env.get("/?endpoint=videos&chart=other").Code)
	assert.Equal(t, int32(2), env.api.calls.Load())
}

func TestFailuresAreNotCached(t *testing.T) {
	env := newEnv(t, func(o *Options) { o.CacheTTL = time.Minute })
	env.api.status = http.StatusInternalServerError
	env.get("/?endpoint=videos")
	env.api.status = http.StatusOK
	assert.Equal(t, http.StatusOK, env.get("/?endpoint=videos").Code)
	assert.Equal(t, int32(2), env.api.calls.Load())
}

func TestNoCacheByDefault(t *testing.T) {
	env := newEnv(t, nil)
	env.get("/?endpoint=videos")
	env.get("/?endpoint=videos")
	assert.Equal(t, int32(2), env.api.calls.Load())
}

func TestConcurrentIdenticalRequestsCoalesce(t *testing.T) {
	env := newEnv(t, nil)
	env.api.released = make(chan struct{})

	const n = 5
	var started, done sync.WaitGroup
	started.Add(n)
	done.Add(n)
	bodies := make([][]byte, n)
	for i := range n {
		go func() {
			defer done.Done()
			started.Done()
			body, err := env.gw.Fetch(context.Background(), url.Values{
				"endpoint": {"videos"},
				"id":       {"v1"},
			})
			assert.NoError(t, err)
			bodies[i] = body
		}()
	}
	started.Wait()
	require.Eventually(t, func() bool { return env.api.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(env.api.released)
	done.Wait()

	assert.Equal(t, int32(1), env.api.calls.Load())
	for _, b := range bodies {
		assert.JSONEq(t, env.api.body, string(b))
	}
}

func TestHealthz(t *testing.T) {
	env := newEnv(t, nil)
	rec := env.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, env.get("/nope").Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	env := newEnv(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- env.gw.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not shut down")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{RatePerSecond: 5}.withDefaults()
	assert.Equal(t, DefaultAPIBase, o.APIBase)
	assert.Equal(t, "https://"+DefaultSuggestEndpoint, o.SuggestBase)
	assert.Equal(t, DefaultTimeout, o.Timeout)
	assert.Equal(t, 5, o.Burst)
	assert.NotNil(t, o.HTTPClient)
}
