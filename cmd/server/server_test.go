package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/mpqr-bridge/internal/audit"
	"github.com/yourorg/mpqr-bridge/internal/bridge"
	"github.com/yourorg/mpqr-bridge/internal/circuitbreaker"
	"github.com/yourorg/mpqr-bridge/internal/config"
	"github.com/yourorg/mpqr-bridge/internal/dispatch"
	"github.com/yourorg/mpqr-bridge/internal/events"
	"github.com/yourorg/mpqr-bridge/internal/slots"
)

const orderCreated = `{"id":"ORD01JQ","status":"created","type_response":{"qr_data":"0002010102"},` +
	`"transactions":{"payments":[{"id":"PAY01","status":"pending"}]}}`

// setupTestRouter wires the facade to a fake Mercado Pago served by provider.
func setupTestRouter(t *testing.T, provider http.HandlerFunc, breaker *circuitbreaker.CircuitBreaker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mp := httptest.NewServer(provider)
	t.Cleanup(mp.Close)

	cfg := config.FromMap(map[string]string{
		"mp.etapa":           "test",
		"mp.accessTokenTest": "TEST-token",
		"mp.userIdTest":      "123456",
		"mp.baseUrl":         mp.URL,
	})
	d := newDispatcher(cfg, zap.NewNop(), breaker,
		dispatch.WithJournal(audit.Nop{}),
		dispatch.WithPublisher(events.Nop{}),
	)
	return setupRouter(d, zap.NewNop())
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, bytes.NewBufferString(body))
	require.NoError(t, err, "Failed to create request")
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	router := setupTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected provider call %s %s", r.Method, r.URL.Path)
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, orderCreated)
	}, nil)

	w := doJSON(t, router, http.MethodPost, "/v1/actions/Q", `{"order_id":"ORD01JQ"}`)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m := httptest.NewRecorder()
	router.ServeHTTP(m, req)

	assert.Equal(t, http.StatusOK, m.Code)
	assert.Contains(t, m.Body.String(), "mpqr_bridge_operations_total")
	assert.Contains(t, m.Body.String(), "mpqr_bridge_provider_requests_total")
}

func TestAction_CreateOrder(t *testing.T) {
	var gotKey, gotAuth string
	var gotBody map[string]interface{}
	router := setupTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		gotKey = r.Header.Get("X-Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, orderCreated)
	}, nil)

	body := `{"order":{"external_reference":"REF-1","external_pos_id":"CAJA1","total_amount":"10.50"}}`
	w := doJSON(t, router, http.MethodPost, "/v1/actions/o", body)

	assert.Equal(t, http.StatusOK, w.Code)
	var res bridge.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), "Failed to unmarshal response body")
	assert.Equal(t, bridge.ResOK, res.Res)
	assert.Equal(t, "ORD01JQ", res.ID)
	assert.Equal(t, "0002010102", res.QRData)
	assert.Equal(t, "PAY01", res.PaymentID)

	assert.Equal(t, "REF-1", gotKey)
	assert.Equal(t, "Bearer TEST-token", gotAuth)
	assert.Equal(t, "qr", gotBody["type"])
	assert.Equal(t, "10.50", gotBody["total_amount"])
}

func TestAction_ResultCodes(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		body    string
		status  int
		reply   string
		wantRes int
		wantMsg string
	}{
		{"InvalidAction", "/v1/actions/X", `{}`, http.StatusOK, "{}", bridge.ResInvalidAction, "invalid action: X"},
		{"MissingOrderID", "/v1/actions/Q", `{}`, http.StatusOK, "{}", bridge.ResError, "missing order_id"},
		{"EmptyBody", "/v1/actions/Q", ``, http.StatusOK, "{}", bridge.ResError, "missing order_id"},
		{"ProviderHTTPError", "/v1/actions/Q", `{"order_id":"NOPE"}`, http.StatusNotFound, `{"error":"not_found","message":"order not found"}`, bridge.ResHTTP, ""},
		{"CancelRejected", "/v1/actions/C", `{"order_id":"ORD01JQ"}`, http.StatusOK, `{"id":"ORD01JQ","status":"processed"}`, bridge.ResBusiness, "cannot cancel: status=processed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.reply)
			}, nil)

			w := doJSON(t, router, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			var res bridge.Result
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, tt.wantRes, res.Res)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, res.Msg)
			}
		})
	}
}

func TestAction_MalformedJSON(t *testing.T) {
	router := setupTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected provider call %s %s", r.Method, r.URL.Path)
	}, nil)

	w := doJSON(t, router, http.MethodPost, "/v1/actions/Q", "this is not json")

	assert.Equal(t, http.StatusBadRequest, w.Code, "Status code should be Bad Request")
	var errorResponse gin.H
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errorResponse), "Failed to unmarshal error response")
	assert.Contains(t, errorResponse["error"], "Invalid request format")
}

func TestAction_IgnoresConfigPath(t *testing.T) {
	router := setupTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, orderCreated)
	}, nil)

	w := doJSON(t, router, http.MethodPost, "/v1/actions/Q", `{"order_id":"ORD01JQ","config_path":"/does/not/exist.properties"}`)

	var res bridge.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, bridge.ResOK, res.Res)
}

func TestLegacy(t *testing.T) {
	router := setupTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders/ORD01JQ", r.URL.Path)
		_, _ = io.WriteString(w, orderCreated)
	}, nil)

	params := make([]string, slots.OrderID+1)
	params[slots.Action] = "Q"
	params[slots.OrderID] = "ORD01JQ"
	payload, err := json.Marshal(legacyRequest{Params: params})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/v1/legacy", string(payload))

	require.Equal(t, http.StatusOK, w.Code)
	var resp legacyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, bridge.ResOK, resp.Res)
	require.Len(t, resp.Params, slots.Size)
	assert.Equal(t, "0", resp.Params[slots.OutRes])
	assert.Equal(t, "ORD01JQ", resp.Params[slots.OutID])
	assert.Equal(t, "created", resp.Params[slots.OutStatus])
	assert.Equal(t, "PAY01", resp.Params[slots.OutPaymentID])
}

func TestLegacy_BadRequests(t *testing.T) {
	router := setupTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected provider call %s %s", r.Method, r.URL.Path)
	}, nil)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"NotJSON", "params", "Invalid request format"},
		{"NoParams", `{"params":[]}`, "Validation failed: params is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/v1/legacy", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var errorResponse gin.H
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errorResponse))
			assert.Contains(t, errorResponse["error"], tt.wantErr)
		})
	}
}

func TestBreakerSharedAcrossRequests(t *testing.T) {
	var hits atomic.Int32
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{FailureThreshold: 2})
	router := setupTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":"bad_gateway"}`)
	}, breaker)

	for i := 0; i < 2; i++ {
		w := doJSON(t, router, http.MethodPost, "/v1/actions/Q", `{"order_id":"ORD01JQ"}`)
		var res bridge.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, bridge.ResHTTP, res.Res)
	}

	w := doJSON(t, router, http.MethodPost, "/v1/actions/Q", `{"order_id":"ORD01JQ"}`)
	var res bridge.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, bridge.ResError, res.Res)
	assert.True(t, strings.Contains(res.Msg, "circuit is open"), res.Msg)
	assert.Equal(t, int32(2), hits.Load())
}
