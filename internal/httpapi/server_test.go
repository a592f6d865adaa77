package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/morningbrew/internal/jobs"
	"github.com/aatumaykin/morningbrew/internal/ratelimit"
	"github.com/aatumaykin/morningbrew/internal/service"
	"github.com/aatumaykin/morningbrew/internal/stream"
)

var testNow = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

type fakeStarter struct {
	mu      sync.Mutex
	started service.Started
	err     error
	clients []string
}

func (f *fakeStarter) Start(_ context.Context, clientKey string) (service.Started, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients = append(f.clients, clientKey)
	return f.started, f.err
}

func (f *fakeStarter) lastClient() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.clients) == 0 {
		return ""
	}
	return f.clients[len(f.clients)-1]
}

type fixture struct {
	starter   *fakeStarter
	scheduler *jobs.Scheduler
	handler   http.Handler
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	if cfg.Heartbeat == 0 {
		cfg.Heartbeat = -1
	}
	cfg.Now = func() time.Time { return testNow }

	store := jobs.NewStore()
	sched := jobs.NewScheduler(jobs.NewLocalGuard(), store, nil)
	starter := &fakeStarter{}
	srv := New(cfg, starter, stream.NewPublisher(store), nil)

	return &fixture{starter: starter, scheduler: sched, handler: srv.Routes()}
}

func (f *fixture) do(method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestStart_Accepted(t *testing.T) {
	f := newFixture(t, Config{})
	f.starter.started = service.Started{
		JobID:       "01J0000000000000000000000A",
		UserMessage: "A cozy Otter wearing a raincoat joins your morning coffee",
		Quota:       ratelimit.Decision{Allowed: true, Limit: 3, Remaining: 2, ResetAt: testNow.Add(24 * time.Hour)},
	}

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := f.do(method, "/api/start", nil)

		require.Equal(t, http.StatusOK, rec.Code, method)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "3", rec.Header().Get("RateLimit-Limit"))
		assert.Equal(t, "2", rec.Header().Get("RateLimit-Remaining"))
		assert.Equal(t, "86400", rec.Header().Get("RateLimit-Reset"))

		body := decodeBody(t, rec)
		assert.Equal(t, "01J0000000000000000000000A", body["jobId"])
		assert.Equal(t, "A cozy Otter wearing a raincoat joins your morning coffee", body["userMessage"])
	}
}

func TestStart_RateLimited(t *testing.T) {
	f := newFixture(t, Config{RateLimitMessage: "Too many requests from this IP, please try again after 24 hours."})
	f.starter.err = ratelimit.ErrRateLimitExceeded
	f.starter.started = service.Started{
		Quota: ratelimit.Decision{Limit: 3, Remaining: 0, ResetAt: testNow.Add(90 * time.Minute)},
	}

	rec := f.do(http.MethodGet, "/api/start", nil)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "5400", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Too many requests from this IP, please try again after 24 hours.", body["message"])
	assert.NotContains(t, body, "jobId")
}

func TestStart_Conflict(t *testing.T) {
	f := newFixture(t, Config{})
	f.starter.err = jobs.ErrConcurrencyConflict

	rec := f.do(http.MethodPost, "/api/start", nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, conflictMessage, body["message"])
}

func TestStart_InternalError(t *testing.T) {
	f := newFixture(t, Config{})
	f.starter.err = errors.New("failed to schedule job: worker pool is stopped")

	rec := f.do(http.MethodGet, "/api/start", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, startFailed, body["message"])
	assert.NotContains(t, rec.Body.String(), "worker pool")
}

func TestStart_ClientKey(t *testing.T) {
	forwarded := http.Header{"X-Real-Ip": {"203.0.113.9"}}

	direct := newFixture(t, Config{})
	direct.do(http.MethodGet, "/api/start", forwarded)
	assert.Equal(t, "192.0.2.1", direct.starter.lastClient(), "proxy headers are ignored unless trusted")

	proxied := newFixture(t, Config{TrustProxy: true})
	proxied.do(http.MethodGet, "/api/start", forwarded)
	assert.Equal(t, "203.0.113.9", proxied.starter.lastClient())
}

func TestCORS(t *testing.T) {
	f := newFixture(t, Config{CORSOrigin: "http://localhost:5173"})

	rec := f.do(http.MethodGet, "/api/start", nil)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Retry-After")

	preflight := f.do(http.MethodOptions, "/api/start", http.Header{
		"Origin":                        {"http://localhost:5173"},
		"Access-Control-Request-Method": {"POST"},
	})
	assert.Equal(t, http.StatusNoContent, preflight.Code)
	assert.Equal(t, "GET, POST, OPTIONS", preflight.Header().Get("Access-Control-Allow-Methods"))
	assert.Empty(t, f.starter.clients, "preflight does not start a job")
}

func TestStream_UnknownJob(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(http.MethodGet, "/api/stream/01J0000000000000000000000Z", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, jobNotFound, body["message"])
}

func TestStream_FinishedJob(t *testing.T) {
	tests := []struct {
		name    string
		outcome jobs.Outcome
		want    string
	}{
		{
			name:    "done",
			outcome: jobs.Outcome{ImageURL: "https://images.example/cup.png"},
			want:    `data: {"status":"done","imageUrl":"https://images.example/cup.png"}`,
		},
		{
			name:    "error",
			outcome: jobs.Outcome{Err: errors.New("LLM call failed: openai: 401 invalid api key")},
			want:    `data: {"status":"error","message":"` + stream.FailureMessage + `"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			ctx := context.Background()
			job, err := f.scheduler.Start(ctx, "seed")
			require.NoError(t, err)
			_, err = f.scheduler.Finalize(ctx, job.ID, tt.outcome)
			require.NoError(t, err)

			rec := f.do(http.MethodGet, "/api/stream/"+job.ID, nil)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
			assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

			frames := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
			require.Len(t, frames, 2, rec.Body.String())
			assert.Equal(t, ": connected", frames[0])
			assert.Equal(t, tt.want, frames[1])
			assert.NotContains(t, rec.Body.String(), "invalid api key")
		})
	}
}

func TestStream_WaitsForCompletion(t *testing.T) {
	f := newFixture(t, Config{Heartbeat: 10 * time.Millisecond})
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx := context.Background()
	job, err := f.scheduler.Start(ctx, "seed")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/stream/" + job.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	time.Sleep(30 * time.Millisecond)
	_, err = f.scheduler.Finalize(ctx, job.ID, jobs.Outcome{ImageURL: "https://images.example/late.png"})
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, ": ping")
	assert.Equal(t, 1, strings.Count(text, "data: "), "exactly one terminal event")
	assert.True(t, strings.HasSuffix(text, `data: {"status":"done","imageUrl":"https://images.example/late.png"}`+"\n\n"))
}

func TestStream_ClientLeavesEarly(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	job, err := f.scheduler.Start(ctx, "seed")
	require.NoError(t, err)

	reqCtx, cancel := context.WithCancel(ctx)
	req := httptest.NewRequest(http.MethodGet, "/api/stream/"+job.ID, nil).WithContext(reqCtx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		f.handler.ServeHTTP(rec, req)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after the client left")
	}

	got, err := f.scheduler.Store().Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusProcessing, got.Status, "leaving the stream does not touch the job")
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "# HELP morningbrew_jobs_started_total\n")
	})
	f := newFixture(t, Config{MetricsHandler: metrics})

	rec := f.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = f.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jobs_started_total")

	noMetrics := newFixture(t, Config{})
	assert.Equal(t, http.StatusNotFound, noMetrics.do(http.MethodGet, "/metrics", nil).Code)
}

func TestRecoverer(t *testing.T) {
	srv := New(Config{Heartbeat: -1}, panicStarter{}, nil, nil)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/start", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panicStarter struct{}

func (panicStarter) Start(context.Context, string) (service.Started, error) {
	panic("boom")
}
