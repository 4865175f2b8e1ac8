package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/phase-lever/internal/persistence"
)

func newTestServer(t *testing.T, s *Server) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp
}

type regionBody struct {
	Type              string   `json:"type"`
	Name              string   `json:"name"`
	Phases            []string `json:"phases"`
	LiquidComposition *float64 `json:"liquid_composition"`
}

type pointBody struct {
	X       float64    `json:"x"`
	T       float64    `json:"t"`
	Region  regionBody `json:"region"`
	Amounts *struct {
		Liquid            float64  `json:"liquid"`
		Ti                float64  `json:"ti"`
		TiU2              float64  `json:"tiu2"`
		U                 float64  `json:"u"`
		LiquidComposition *float64 `json:"liquid_composition"`
	} `json:"amounts"`
}

func TestClassifyEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &Server{})

	var body pointBody
	resp := getJSON(t, ts.URL+"/api/v1/classify?x=0.1&t=700", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "two-phase", body.Region.Type)
	assert.Equal(t, "Ti+Liquid", body.Region.Name)
	assert.Equal(t, []string{"Ti", "Liquid"}, body.Region.Phases)
	require.NotNil(t, body.Region.LiquidComposition)
	assert.InDelta(t, 0.2244933920704846, *body.Region.LiquidComposition, 1e-12)
	assert.Nil(t, body.Amounts)
}

func TestClassifyEndpointRejects(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &Server{})

	for _, q := range []string{"x=1.5&t=700", "x=0.5&t=100", "x=abc&t=700", "t=700", "x=NaN&t=700"} {
		resp := getJSON(t, ts.URL+"/api/v1/classify?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}

	resp, err := http.Post(ts.URL+"/api/v1/classify?x=0.5&t=700", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAmountsEndpointStoresHistory(t *testing.T) {
	t.Parallel()

	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts := newTestServer(t, &Server{DB: db})

	var body pointBody
	resp := getJSON(t, ts.URL+"/api/v1/amounts?x=0.5&t=600", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, body.Amounts)
	assert.InDelta(t, 0.25, body.Amounts.Ti, 1e-12)
	assert.InDelta(t, 0.75, body.Amounts.TiU2, 1e-12)
	assert.Nil(t, body.Amounts.LiquidComposition)

	var history []persistence.Query
	resp = getJSON(t, ts.URL+"/api/v1/history?limit=10", &history)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, history, 1)
	assert.Equal(t, "Ti+TiU2", history[0].Region)

	resp = getJSON(t, ts.URL+"/api/v1/history?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var one persistence.Query
	resp = getJSON(t, ts.URL+"/api/v1/history/"+history[0].ID, &one)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, history[0], one)

	resp = getJSON(t, ts.URL+"/api/v1/history/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = getJSON(t, ts.URL+"/api/v1/history/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var status map[string]any
	resp = getJSON(t, ts.URL+"/api/v1/status", &status)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, status["history"])
	assert.Equal(t, map[string]any{"Ti+TiU2": float64(1)}, status["queries_by_region"])
}

func TestHistoryWithoutStore(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &Server{})

	resp := getJSON(t, ts.URL+"/api/v1/history", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDiagramEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &Server{})

	var body struct {
		Lines []struct {
			Name   string `json:"name"`
			Kind   string `json:"kind"`
			Points []struct {
				X float64 `json:"x"`
				T float64 `json:"t"`
			} `json:"points"`
		} `json:"lines"`
		TemperatureTicks []struct {
			Label string `json:"label"`
		} `json:"temperature_ticks"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/diagram", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Lines, 7)
	assert.Equal(t, "ti-liquidus", body.Lines[0].Name)
	assert.Len(t, body.Lines[0].Points, 29)
	assert.Len(t, body.Lines[4].Points, 2)
	assert.Len(t, body.TemperatureTicks, 7)
}

func TestTieLineAndCoolingEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &Server{})

	var tl struct {
		Ends []struct {
			Phase string `json:"phase"`
			At    struct {
				X float64 `json:"x"`
			} `json:"at"`
		} `json:"ends"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/tieline?x=0.8&t=600", &tl)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, tl.Ends, 2)
	assert.Equal(t, "TiU2", tl.Ends[0].Phase)
	assert.Equal(t, "U", tl.Ends[1].Phase)
	assert.Equal(t, 1.0, tl.Ends[1].At.X)

	var path struct {
		Steps       []json.RawMessage `json:"steps"`
		Transitions []struct {
			T    float64 `json:"t"`
			From string  `json:"from"`
			To   string  `json:"to"`
		} `json:"transitions"`
	}
	resp = getJSON(t, ts.URL+"/api/v1/cooling?x=0.5&start=900&end=600&step=10", &path)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, path.Steps, 31)
	require.Len(t, path.Transitions, 2)
	assert.Equal(t, 780.0, path.Transitions[0].T)

	resp = getJSON(t, ts.URL+"/api/v1/cooling?x=0.5&start=900&end=600&step=0.01", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = getJSON(t, ts.URL+"/api/v1/cooling?x=0.5&start=600&end=900", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTieLineFromScreen(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &Server{})

	var body struct {
		Point struct {
			X float64 `json:"x"`
			T float64 `json:"t"`
		} `json:"point"`
		Region regionBody `json:"region"`
		Screen *struct {
			Point struct {
				PX float64 `json:"px"`
				PY float64 `json:"py"`
			} `json:"point"`
			Ends []struct {
				PX float64 `json:"px"`
			} `json:"ends"`
		} `json:"screen"`
	}

	// 400x325 frame: one pixel per degree, x = px/400.
	resp := getJSON(t, ts.URL+"/api/v1/tieline?viewport=0,0,400,325&px=200&py=325", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 0.5, body.Point.X, 1e-12)
	assert.InDelta(t, 600, body.Point.T, 1e-9)
	assert.Equal(t, "Ti+TiU2", body.Region.Name)
	require.NotNil(t, body.Screen)
	assert.InDelta(t, 200, body.Screen.Point.PX, 1e-9)
	require.Len(t, body.Screen.Ends, 2)
	assert.InDelta(t, 0, body.Screen.Ends[0].PX, 1e-9)

	body.Screen = nil
	resp = getJSON(t, ts.URL+"/api/v1/tieline?x=0.5&t=600", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body.Screen)

	for _, q := range []string{
		"px=200&py=100",
		"viewport=0,0,400&px=1&py=1",
		"viewport=0,0,400,325&px=500&py=100",
		"viewport=0,0,400,325&px=abc&py=100",
	} {
		resp := getJSON(t, ts.URL+"/api/v1/tieline?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestCoolingRejectsTinyStepWithoutBuildingIt(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &Server{})

	for _, step := range []string{"1e-9", "1e-300", "5e-324"} {
		resp, err := http.Get(ts.URL + "/api/v1/cooling?x=0.5&step=" + step)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, step)
		assert.Contains(t, string(body), "cooling run too long", step)
	}
}

func TestAmountsEndpointSubnormalComposition(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &Server{})

	var body pointBody
	resp := getJSON(t, ts.URL+"/api/v1/amounts?x=1e-310&t=700", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, body.Amounts)
	assert.Equal(t, "Ti+Liquid", body.Region.Name)
	assert.Equal(t, 1.0, body.Amounts.Ti+body.Amounts.Liquid)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &Server{})

	getJSON(t, ts.URL+"/api/v1/classify?x=0.5&t=900", nil)
	getJSON(t, ts.URL+"/api/v1/classify?x=2&t=900", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `phaselever_queries_total{endpoint="classify",region="Liquid"} 1`)
	assert.Contains(t, text, `phaselever_rejected_total{endpoint="classify",reason="out_of_range"} 1`)
	assert.Contains(t, text, "phaselever_request_duration_seconds")
}

func TestCORS(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &Server{CORSOrigins: []string{"http://localhost:5173"}})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/classify", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://elsewhere.example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &Server{RateLimit: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp := getJSON(t, ts.URL+"/api/v1/classify?x=0.5&t=900", nil)
		codes = append(codes, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests {
			assert.NotEmpty(t, resp.Header.Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestRateLimiterWindow(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.Equal(t, 61, rl.RetryAfter("10.0.0.1"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))

	now = now.Add(3 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.buckets)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(r))

	assert.True(t, strings.HasPrefix(clientIP(httptest.NewRequest(http.MethodGet, "/", nil)), "192.0.2."))
}
