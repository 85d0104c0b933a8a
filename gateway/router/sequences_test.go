package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	log := logrus.New()
	log.SetOutput(io.Discard)
	v1 := r.Group("/v1")
	RegisterSequenceRoutes(v1, log)
	RegisterHealthRoute(r.Group("/v1"), func() map[string]bool { return map[string]bool{"container": true} })
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunSequence90DegreePulseProducesEcho(t *testing.T) {
	r := newTestRouter()
	body := SequenceRequest{
		Variant: "discrete",
		Species: SpeciesRequest{T1Ms: 1000, T2Ms: 100},
		Events: []EventRequest{
			{Kind: "pulse", AngleDeg: 90},
			{Kind: "interval", DurationMs: 10},
		},
	}
	rec := doJSON(t, r, http.MethodPost, "/v1/sequences:run", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data SequenceResult `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "discrete", resp.Data.Variant)
	assert.NotEmpty(t, resp.Data.ModelID)
	assert.Len(t, resp.Data.Trace, 2)
	assert.NotZero(t, resp.Data.Trace[0].EchoImag)
}

func TestRunSequenceRejectsUnknownVariant(t *testing.T) {
	r := newTestRouter()
	body := SequenceRequest{
		Variant: "bogus",
		Species: SpeciesRequest{T1Ms: 1000, T2Ms: 100},
		Events:  []EventRequest{{Kind: "pulse", AngleDeg: 90}},
	}
	rec := doJSON(t, r, http.MethodPost, "/v1/sequences:run", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunSequenceRejectsNegativeDuration(t *testing.T) {
	r := newTestRouter()
	body := SequenceRequest{
		Species: SpeciesRequest{T1Ms: 1000, T2Ms: 100},
		Events:  []EventRequest{{Kind: "interval", DurationMs: -5}},
	}
	rec := doJSON(t, r, http.MethodPost, "/v1/sequences:run", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunSequenceStandaloneEventKinds(t *testing.T) {
	r := newTestRouter()
	body := SequenceRequest{
		Variant: "discrete",
		Species: SpeciesRequest{T1Ms: 1000, T2Ms: 100, DiffusivityUm2PerMs: 1},
		Events: []EventRequest{
			{Kind: "pulse", AngleDeg: 90},
			{Kind: "relaxation", DurationMs: 5},
			{Kind: "diffusion", DurationMs: 5, GradientMTPerM: 2},
			{Kind: "off_resonance", DurationMs: 5},
			{Kind: "shift", DurationMs: 5, GradientMTPerM: 2},
		},
	}
	rec := doJSON(t, r, http.MethodPost, "/v1/sequences:run", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data SequenceResult `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Trace, 5)
}

func TestRunSequenceRegularStandaloneShiftRejectsNonIntegerGradientArea(t *testing.T) {
	r := newTestRouter()
	body := SequenceRequest{
		Variant: "regular",
		Species: SpeciesRequest{T1Ms: 1000, T2Ms: 100},
		Events: []EventRequest{
			{Kind: "pulse", AngleDeg: 90},
			{Kind: "shift", DurationMs: 1, GradientMTPerM: 1},
		},
	}
	rec := doJSON(t, r, http.MethodPost, "/v1/sequences:run", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchSequenceRunsInInputOrder(t *testing.T) {
	r := newTestRouter()
	batch := []SequenceRequest{
		{Species: SpeciesRequest{T1Ms: 1000, T2Ms: 100}, Events: []EventRequest{{Kind: "pulse", AngleDeg: 30}}},
		{Species: SpeciesRequest{T1Ms: 800, T2Ms: 80}, Events: []EventRequest{{Kind: "pulse", AngleDeg: 60}}},
	}
	rec := doJSON(t, r, http.MethodPost, "/v1/sequences:batch", batch)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []SequenceResult `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.NotEqual(t, resp.Data[0].ModelID, resp.Data[1].ModelID)
	// A phase-0 pulse of angle α leaves F+(0) = -i·sin(α).
	assert.InDelta(t, -0.5, resp.Data[0].Trace[0].EchoImag, 1e-9)
	assert.InDelta(t, -0.8660254037844386, resp.Data[1].Trace[0].EchoImag, 1e-9)
}
