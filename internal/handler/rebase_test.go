package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coin100/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type stubChainService struct {
	tx      *RebaseTx
	metrics *RebaseMetrics
	err     error
}

func (s *stubChainService) PrepareRebase(ctx context.Context, newMarketCap, walletAddress string) (*RebaseTx, error) {
	return s.tx, s.err
}

func (s *stubChainService) Metrics(ctx context.Context) (*RebaseMetrics, error) {
	return s.metrics, s.err
}

func newRebaseRouter(svc ChainService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tracer := trace.NewNoopTracerProvider().Tracer("handler-test")
	h := New(tracer, &stubCoinService{}, "secret")
	h.SetChainService(svc)

	r := gin.New()
	r.POST("/api/rebase/execute", h.ExecuteRebase)
	r.GET("/api/rebase/metrics", h.GetRebaseMetrics)
	return r
}

func TestExecuteRebaseSuccess(t *testing.T) {
	t.Parallel()
	svc := &stubChainService{tx: &RebaseTx{
		To:       "0xcontract",
		From:     "0xadmin",
		Data:     "0xdeadbeef",
		GasLimit: "0x493e0",
	}}
	r := newRebaseRouter(svc)

	payload := `{"newMarketCap":"2320000000000","walletAddress":"0xadmin"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/rebase/execute", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Success     bool     `json:"success"`
		Transaction RebaseTx `json:"transaction"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if !body.Success || body.Transaction.Data != "0xdeadbeef" {
		t.Errorf("unexpected response: %+v", body)
	}
}

func TestExecuteRebaseMissingParameters(t *testing.T) {
	t.Parallel()
	r := newRebaseRouter(&stubChainService{})

	for _, payload := range []string{
		`{}`,
		`{"newMarketCap":"100"}`,
		`{"walletAddress":"0xadmin"}`,
		`not json`,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/rebase/execute", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("payload %q: expected 400, got %d", payload, w.Code)
		}
	}
}

func TestExecuteRebaseNotAdmin(t *testing.T) {
	t.Parallel()
	r := newRebaseRouter(&stubChainService{err: domain.ErrNotAdmin})

	payload := `{"newMarketCap":"100","walletAddress":"0xnobody"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/rebase/execute", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["error"] != "Wallet does not have admin rights to execute rebase" {
		t.Errorf("unexpected error message: %v", body["error"])
	}
}

func TestGetRebaseMetrics(t *testing.T) {
	t.Parallel()
	r := newRebaseRouter(&stubChainService{metrics: &RebaseMetrics{
		TotalSupply:     "1000000.5",
		LastMarketCap:   "2320000000000",
		GonsPerFragment: "1000000000",
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rebase/metrics", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Success bool          `json:"success"`
		Metrics RebaseMetrics `json:"metrics"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Metrics.TotalSupply != "1000000.5" {
		t.Errorf("unexpected metrics: %+v", body.Metrics)
	}
}

func TestGetRebaseMetricsFailure(t *testing.T) {
	t.Parallel()
	r := newRebaseRouter(&stubChainService{err: errors.New("rpc unreachable")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rebase/metrics", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
