package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingrepo "github.com/slotworks/bookpay/internal/booking/repository"
	bookingservice "github.com/slotworks/bookpay/internal/booking/service"
	"github.com/slotworks/bookpay/internal/clock"
	"github.com/slotworks/bookpay/internal/config"
	"github.com/slotworks/bookpay/internal/gateway/adapters/sandbox"
	gatewaydomain "github.com/slotworks/bookpay/internal/gateway/domain"
	"github.com/slotworks/bookpay/internal/linker"
	obsmetrics "github.com/slotworks/bookpay/internal/observability/metrics"
	paymentdomain "github.com/slotworks/bookpay/internal/payment/domain"
	paymentrepo "github.com/slotworks/bookpay/internal/payment/repository"
	paymentservice "github.com/slotworks/bookpay/internal/payment/service"
	"github.com/slotworks/bookpay/internal/reconciler"
	slotrepo "github.com/slotworks/bookpay/internal/slot/repository"
	"github.com/slotworks/bookpay/internal/testdb"
	userrepo "github.com/slotworks/bookpay/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	srv     *Server
	gateway *sandbox.Adapter
	svc     paymentdomain.Service
	clock   *clock.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	conn := testdb.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	fake := clock.NewFakeClock(time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))
	gw := sandbox.New()
	cfg := config.Config{HTTPAddr: ":0"}

	payments := paymentrepo.Provide()
	bookings := bookingrepo.Provide()

	materializer := bookingservice.NewService(bookingservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake,
		Repo: bookings, Users: userrepo.Provide(),
	})
	link := linker.NewService(linker.Params{
		DB: conn, Log: log, Clock: fake,
		Payments: payments, Bookings: bookings,
	})
	svc := paymentservice.NewService(paymentservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake,
		Repo: payments, Gateway: gw, Materializer: materializer, Linker: link,
	})
	rec, err := reconciler.New(reconciler.Params{
		DB: conn, Log: log, Clock: fake,
		Payments: payments, PaymentSvc: svc,
	})
	require.NoError(t, err)

	srv := NewServer(ServerParams{
		Gin:         NewEngine(cfg, obsmetrics.New()),
		Cfg:         cfg,
		DB:          conn,
		Log:         log,
		Clock:       fake,
		PaymentSvc:  svc,
		PaymentRepo: payments,
		BookingRepo: bookings,
		SlotRepo:    slotrepo.Provide(),
		Reconciler:  rec,
	})
	return &testServer{srv: srv, gateway: gw, svc: svc, clock: fake}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(w, req)
	return w
}

func paymentBody(amount string) map[string]any {
	return map[string]any{
		"amount":   amount,
		"currency": "IDR",
		"intent": map[string]any{
			"userDetails":   map[string]string{"name": "Ade", "email": "ade@example.com"},
			"dateSlotPairs": []map[string]string{{"date": "2026-09-10", "slotId": "s1"}},
			"startTime":     "18:00",
			"endTime":       "20:00",
		},
	}
}

func TestCreatePaymentEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/payments", paymentBody("149.99"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, "149.99", resp["amount"])
	assert.Contains(t, resp["reference"], "pr_")
	assert.NotEmpty(t, resp["payment_url"])
}

func TestCreatePaymentRejectsBadAmount(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/payments", paymentBody("-1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/payments", paymentBody("1.999"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyEndpointFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/payments", paymentBody("149.99"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	reference := created["reference"].(string)

	ts.gateway.SetStatus(reference, gatewaydomain.StatusCaptured)

	w = ts.do(t, http.MethodPost, "/v1/payments/"+reference+"/verify", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var verified map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verified))
	assert.Equal(t, "success", verified["status"])
	assert.Len(t, verified["booking_ids"], 1)

	// The stored payment now reports its link.
	w = ts.do(t, http.MethodGet, "/v1/payments/"+reference, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "success", got["status"])
	assert.Len(t, got["booking_ids"], 1)
}

func TestVerifyUnknownReferenceIs404(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/v1/payments/pr_nope/verify", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyGatewayDownIs503(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/payments", paymentBody("20.00"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	ts.gateway.FailVerify(true)
	w = ts.do(t, http.MethodPost, "/v1/payments/"+created["reference"].(string)+"/verify", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReconcileEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/reconcile", map[string]any{"window_hours": 24})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.EqualValues(t, 0, report["scanned"])
}

func TestReconcileEndpointWindowFollowsClock(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/payments", paymentBody("149.99"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	reference := created["reference"].(string)

	// Leave the payment success-but-unlinked so the sweep has something
	// to find inside the window.
	ts.gateway.SetStatus(reference, gatewaydomain.StatusCaptured)
	_, err := ts.svc.Verify(context.Background(), reference)
	require.NoError(t, err)

	ts.clock.Advance(48 * time.Hour)

	// The 24h window, measured from the injected clock, no longer covers
	// the payment.
	w = ts.do(t, http.MethodPost, "/v1/reconcile", map[string]any{"window_hours": 24})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.EqualValues(t, 0, report["scanned"])

	// Widening it past the payment's age repairs the orphan.
	w = ts.do(t, http.MethodPost, "/v1/reconcile", map[string]any{"window_hours": 72})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.EqualValues(t, 1, report["relinked"])
}
