package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbv-lab/internal/config"
	"pbv-lab/internal/domain"
	"pbv-lab/internal/logx"
	"pbv-lab/internal/observability"
	"pbv-lab/internal/pipeline"
	"pbv-lab/internal/profile"
	"pbv-lab/internal/storage/memory"
)

func testConfig() config.HTTPConfig {
	return config.HTTPConfig{
		Addr:            "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: time.Second,
		MaxBodyBytes:    1 << 20,
		MaxWindow:       50,
		MaxBins:         20,
		MaxN:            20,
	}
}

func seedSeries(t *testing.T, store *memory.SeriesStore) {
	t.Helper()
	volumes := []float64{200, 220, 250, 240, 260, 300, 280}
	points := make([]*domain.SeriesPoint, len(volumes))
	for i, v := range volumes {
		points[i] = &domain.SeriesPoint{Symbol: "BTCUSDT", TimestampMs: int64(i+1) * 1000, Price: float64(100 + i), Volume: v}
	}
	require.NoError(t, store.InsertBulk(context.Background(), points))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	series := memory.NewSeriesStore()
	seedSeries(t, series)

	log := logx.Discard()
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	engine := profile.NewEngine(profile.Parallel{Workers: 2})
	job := pipeline.NewJob(series, memory.NewRunStore(), memory.NewProfileStore(), engine).
		WithLogger(log).
		WithMetrics(metrics)

	return New(testConfig(), Deps{
		Series:   series,
		Job:      job,
		Engine:   engine,
		Metrics:  metrics,
		Defaults: profile.Params{WindowSize: 6, Bins: 3, Round: -1},
		Log:      log,
	})
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestProfile_Full(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/v1/profile", map[string]any{
		"price":       []float64{1, 2, 3, 4, 5},
		"volume":      []float64{10, 20, 30, 40, 50},
		"window_size": 3,
		"bins":        2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.JSONEq(t, `{"mode":"full","rows":[
		null, null,
		{"price":[1,2],"volume":[10,50]},
		{"price":[2,3],"volume":[20,70]},
		{"price":[3,4],"volume":[30,90]}
	]}`, rec.Body.String())
}

func TestProfile_SequentialMatchesParallel(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{
		"price":        []float64{100, 101, 102, 103, 104, 105, 106},
		"volume":       []float64{200, 220, 250, 240, 260, 300, 280},
		"center_label": true,
		"round":        2,
	}

	par := do(t, s, http.MethodPost, "/v1/profile", body)
	body["sequential"] = true
	seq := do(t, s, http.MethodPost, "/v1/profile", body)

	require.Equal(t, http.StatusOK, par.Code)
	assert.Equal(t, par.Body.String(), seq.Body.String())
	assert.Contains(t, par.Body.String(), `"price":[100.83,102.5,104.17]`)
}

func TestProfile_TopNVolume(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/v1/profile", map[string]any{
		"price":       []float64{1, 2, 3},
		"volume":      []float64{10, 20, 30},
		"window_size": 3,
		"bins":        2,
		"mode":        "topn-volume",
		"n":           3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"mode":"topn-volume","rows":[null,null,[50,10,null]]}`, rec.Body.String())
}

func TestProfile_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"zero bins", map[string]any{"price": []float64{1}, "volume": []float64{1}, "bins": 0}},
		{"length mismatch", map[string]any{"price": []float64{1, 2}, "volume": []float64{1}}},
		{"unknown mode", map[string]any{"price": []float64{1}, "volume": []float64{1}, "mode": "median"}},
		{"negative n", map[string]any{"price": []float64{1}, "volume": []float64{1}, "mode": "topn-price", "n": -1}},
		{"not json", "price=1"},
		{"bins over limit", map[string]any{"price": []float64{1}, "volume": []float64{1}, "bins": 100000000}},
		{"window over limit", map[string]any{"price": []float64{1}, "volume": []float64{1}, "window_size": 51}},
		{"n over limit", map[string]any{"price": []float64{1}, "volume": []float64{1}, "mode": "topn-volume", "n": 21}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(t), http.MethodPost, "/v1/profile", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestSymbols(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/v1/symbols", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"symbols":["BTCUSDT"],"count":1}`, rec.Body.String())
}

func TestSymbolProfile(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/symbols/BTCUSDT/profile?mode=topn-price&n=2&center=true&round=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Mode       string         `json:"mode"`
		Symbol     string         `json:"symbol"`
		Timestamps []int64        `json:"timestamps"`
		Rows       []profile.TopN `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "topn-price", resp.Mode)
	assert.Equal(t, []int64{1000, 2000, 3000, 4000, 5000, 6000, 7000}, resp.Timestamps)
	require.Len(t, resp.Rows, 7)
	assert.Nil(t, resp.Rows[4])
	assert.Equal(t, []float64{104.17, 102.5}, resp.Rows[5].Floats())

	rec = do(t, s, http.MethodGet, "/v1/symbols/ETHUSDT/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/v1/symbols/BTCUSDT/profile?window=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuns_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/symbols/BTCUSDT/runs?window=6&bins=3", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var run runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, 2, run.Rows)
	assert.Equal(t, domain.RunStatusDone, run.Status)

	rec = do(t, s, http.MethodPost, "/v1/symbols/BTCUSDT/runs?window=6&bins=3", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/symbols/BTCUSDT/runs?window=6&bins=3&replace=true", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, "/v1/runs/"+run.RunID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail runDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Rows, 2)
	assert.Equal(t, 5, detail.Rows[0].Position)
	assert.Equal(t, []float64{420, 490, 560}, detail.Rows[0].Histogram.Volumes)

	rec = do(t, s, http.MethodGet, "/v1/symbols/BTCUSDT/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), run.RunID)

	rec = do(t, s, http.MethodGet, "/v1/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunReport(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/symbols/BTCUSDT/runs?window=6&bins=3", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var run runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))

	rec = do(t, s, http.MethodGet, "/v1/runs/"+run.RunID+"/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "| Run ID | "+run.RunID+" |")
	assert.Contains(t, rec.Body.String(), "| Rows | 2 |")
	assert.Contains(t, rec.Body.String(), "| Max | 104.3333 |")

	rec = do(t, s, http.MethodGet, "/v1/runs/"+run.RunID+"/report?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "6000,5,103.333333,560.000000,1470.000000,"), lines[1])

	rec = do(t, s, http.MethodGet, "/v1/runs/"+run.RunID+"/report?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/v1/runs/missing/report", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnavailableStores(t *testing.T) {
	s := New(testConfig(), Deps{Log: logx.Discard(), Defaults: profile.Params{WindowSize: 2, Bins: 2}})

	for _, target := range []string{"/v1/symbols", "/v1/symbols/BTCUSDT/profile", "/v1/symbols/BTCUSDT/runs"} {
		rec := do(t, s, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestRun_GracefulShutdown(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestQueryLimits(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{
		"/v1/symbols/BTCUSDT/profile?bins=21",
		"/v1/symbols/BTCUSDT/profile?window=51",
		"/v1/symbols/BTCUSDT/profile?mode=topn-price&n=21",
		"/v1/symbols/BTCUSDT/runs?window=6&bins=1000000",
	} {
		method := http.MethodGet
		if strings.Contains(target, "/runs") {
			method = http.MethodPost
		}
		rec := do(t, s, method, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s: %s", target, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "exceeds limit", target)
	}

	rec := do(t, s, http.MethodGet, "/v1/symbols/BTCUSDT/profile?window=6&bins=20", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
