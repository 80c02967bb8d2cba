package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stability-dashboard/frontend/internal/predict"
)

const sampleBody = `[{"text":"A","prediction":"At Risk","confidence":0.91,"explanation":[["bias",0.42]],"url":"http://x"},` +
	`{"text":"B","prediction":"Safe","confidence":0.8,"explanation":[],"url":"http://y"}]`

type fakeBackend struct {
	mu        sync.Mutex
	status    int
	body      string
	countries []string
	posted    []PredictRequest
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch r.URL.Path {
	case "/predict_live":
		b.countries = append(b.countries, r.URL.Query().Get("country"))
	case "/predict":
		var req PredictRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.posted = append(b.posted, req)
	default:
		http.NotFound(w, r)
		return
	}
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(b.body))
}

func (b *fakeBackend) requested() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.countries...)
}

type harness struct {
	server  *Server
	router  *gin.Engine
	backend *fakeBackend
}

func newHarness(t *testing.T, backend *fakeBackend, disableHistory bool) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(backend)
	t.Cleanup(upstream.Close)

	server, err := NewServer(Config{
		Predictor:      predict.Config{BaseURL: upstream.URL},
		DBPath:         filepath.Join(t.TempDir(), "history.db"),
		DisableHistory: disableHistory,
		SilentDB:       true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })

	router, err := server.Router()
	require.NoError(t, err)
	return &harness{server: server, router: router, backend: backend}
}

func (h *harness) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestIndexRendersCards(t *testing.T) {
	h := newHarness(t, &fakeBackend{body: sampleBody}, false)

	rec := h.do(t, http.MethodGet, "/?country=us", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()

	assert.Equal(t, 2, strings.Count(page, `class="card"`))
	assert.Contains(t, page, "<h3>News 1</h3>")
	assert.Contains(t, page, "<h3>News 2</h3>")
	assert.Contains(t, page, `<span class="risk">At Risk</span>`)
	assert.Contains(t, page, `<span class="safe">Safe</span>`)
	assert.Contains(t, page, "<li>bias (0.420)</li>")
	assert.Contains(t, page, "<li>No explanation available</li>")
	assert.Contains(t, page, `value="us"`)
	assert.NotContains(t, page, `style="display: block"`)
	assert.Equal(t, []string{"us"}, h.backend.requested())
}

func TestIndexFormSubmitsOnEnter(t *testing.T) {
	h := newHarness(t, &fakeBackend{body: `[]`}, true)

	rec := h.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()

	// Enter in a text input submits its form once, same as the button.
	assert.Equal(t, 1, strings.Count(page, "<form"))
	formStart := strings.Index(page, "<form")
	formEnd := strings.Index(page, "</form>")
	require.True(t, formStart >= 0 && formEnd > formStart)
	form := page[formStart:formEnd]
	assert.Contains(t, form, `id="country" name="country"`)
	assert.Contains(t, form, `<button type="submit"`)

	assert.Empty(t, h.backend.requested(), "no lookup before the form is submitted")
}

func TestIndexDefaultsEmptyCountry(t *testing.T) {
	h := newHarness(t, &fakeBackend{body: `[]`}, false)

	rec := h.do(t, http.MethodGet, "/?country=", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No news found for country code: in")
	assert.Equal(t, []string{"in"}, h.backend.requested())
}

func TestResultsReportsBackendFailure(t *testing.T) {
	h := newHarness(t, &fakeBackend{status: http.StatusInternalServerError, body: `{"error":"boom"}`}, false)

	rec := h.do(t, http.MethodGet, "/results?country=fr", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RenderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.State)
	assert.Equal(t, "fr", resp.Country)
	assert.False(t, resp.Loading)
	assert.Empty(t, resp.ResultsHTML)
	assert.Zero(t, resp.Cards)
	assert.Contains(t, resp.ErrorHTML, "Error fetching results: 500 Internal Server Error")
	assert.Contains(t, resp.ErrorHTML, "Make sure the backend server is running at")

	lookup := h.do(t, http.MethodGet, "/api/lookups/"+resp.LookupID, "")
	require.Equal(t, http.StatusOK, lookup.Code)
	var dto LookupDTO
	require.NoError(t, json.Unmarshal(lookup.Body.Bytes(), &dto))
	assert.Equal(t, "error", dto.State)
	assert.Equal(t, "500 Internal Server Error", dto.Error)
}

func TestLookupHistory(t *testing.T) {
	h := newHarness(t, &fakeBackend{body: sampleBody}, false)

	for _, country := range []string{"us", "in"} {
		require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/results?country="+country, "").Code)
	}

	rec := h.do(t, http.MethodGet, "/api/lookups?pageSize=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LookupsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp.Total)
	require.Len(t, resp.Items, 2)
	for _, item := range resp.Items {
		assert.Equal(t, "populated", item.State)
		assert.Equal(t, 2, item.Cards)
		assert.Equal(t, 1, item.AtRisk)
	}
	assert.EqualValues(t, 2, resp.States["populated"])

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/lookups/unknown", "").Code)
}

func TestLookupHistoryDisabled(t *testing.T) {
	h := newHarness(t, &fakeBackend{body: `[]`}, true)

	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/results", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, h.do(t, http.MethodGet, "/api/lookups", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, h.do(t, http.MethodGet, "/api/lookups/x", "").Code)
}

func TestPredictionsProxy(t *testing.T) {
	h := newHarness(t, &fakeBackend{body: sampleBody}, true)

	rec := h.do(t, http.MethodGet, "/api/predictions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []predict.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "At Risk", items[0].Prediction)
	assert.Equal(t, []string{"in"}, h.backend.requested())

	h.backend.mu.Lock()
	h.backend.status = http.StatusServiceUnavailable
	h.backend.mu.Unlock()
	failed := h.do(t, http.MethodGet, "/api/predictions?country=us", "")
	assert.Equal(t, http.StatusBadGateway, failed.Code)
	assert.Contains(t, failed.Body.String(), "503 Service Unavailable")
}

func TestPredictProxy(t *testing.T) {
	h := newHarness(t, &fakeBackend{body: `[]`}, true)

	rec := h.do(t, http.MethodPost, "/api/predict", `{"news":[{"title":"Headline","url":"http://z"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	h.backend.mu.Lock()
	require.Len(t, h.backend.posted, 1)
	assert.Equal(t, "Headline", h.backend.posted[0].News[0].Title)
	h.backend.mu.Unlock()

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/api/predict", `{"news":`).Code)
}

func TestMetricsCountLookups(t *testing.T) {
	h := newHarness(t, &fakeBackend{body: sampleBody}, true)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/results?country=us", "").Code)

	rec := h.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `stability_lookups_total{state="populated"} 1`)
	assert.Contains(t, body, "stability_cards_rendered_total 2")
}

func TestHealthAndConfig(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, true)

	assert.JSONEq(t, `{"status":"ok"}`, h.do(t, http.MethodGet, "/api/healthz", "").Body.String())

	var cfg map[string]any
	require.NoError(t, json.Unmarshal(h.do(t, http.MethodGet, "/api/config", "").Body.Bytes(), &cfg))
	assert.Equal(t, "in", cfg["default_country"])
	assert.Equal(t, false, cfg["history_enabled"])
}

func TestLookupStreamBroadcastsLifecycle(t *testing.T) {
	h := newHarness(t, &fakeBackend{body: sampleBody}, true)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/lookups/stream", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		h.server.notifier.mu.Lock()
		defer h.server.notifier.mu.Unlock()
		return len(h.server.notifier.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/results?country=jp")
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var started, finished LookupEvent
	require.NoError(t, conn.ReadJSON(&started))
	require.NoError(t, conn.ReadJSON(&finished))

	assert.Equal(t, "started", started.Type)
	assert.Equal(t, "jp", started.Country)
	assert.Equal(t, "populated", finished.Type)
	assert.Equal(t, 2, finished.Cards)
	assert.Equal(t, started.LookupID, finished.LookupID)

	last := h.server.notifier.LastStatus()
	require.NotNil(t, last)
	assert.Equal(t, "populated", last.Type)
}
