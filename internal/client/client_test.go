package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"shopdesk/internal/offline"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI mimics POST /api/invoices with correlation id replay detection
type fakeAPI struct {
	mu     sync.Mutex
	seen   map[string]bool
	reject bool
	auth   string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/api/auth/login":
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success", "status_code": 200,
			"data": map[string]interface{}{"token": "tok-123"},
		})
	case "/api/invoices":
		f.auth = r.Header.Get("Authorization")
		if f.reject {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "error", "status_code": 400, "error": "Invalid request payload: items required",
			})
			return
		}
		var sale offline.PendingSale
		_ = json.NewDecoder(r.Body).Decode(&sale)
		code := http.StatusCreated
		if f.seen[sale.CorrelationID] {
			code = http.StatusOK
		}
		f.seen[sale.CorrelationID] = true
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success", "status_code": code,
			"data": map[string]interface{}{"id": "inv-1", "status": "DEBT"},
		})
	default:
		http.NotFound(w, r)
	}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{seen: map[string]bool{}}
}

func testSale() offline.PendingSale {
	return offline.PendingSale{
		CorrelationID: "c-1",
		InvoiceNumber: "FAC-1",
		CustomerName:  "AWA",
		Items:         []offline.SaleItem{{Name: "Rice", UnitPrice: decimal.NewFromInt(5000), Quantity: 2}},
		TotalAmount:   decimal.NewFromInt(10000),
		AmountPaid:    decimal.NewFromInt(4000),
		Status:        "PAID",
	}
}

func TestLoginThenSubmit(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()
	c := New(srv.URL)

	token, err := c.Login(context.Background(), "owner@shop.test", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	ack, err := c.SubmitSale(context.Background(), testSale())
	require.NoError(t, err)
	assert.Equal(t, "inv-1", ack.InvoiceID)
	assert.Equal(t, "DEBT", ack.Status)
	assert.False(t, ack.Replayed)
	assert.Equal(t, "Bearer tok-123", api.auth)

	ack, err = c.SubmitSale(context.Background(), testSale())
	require.NoError(t, err)
	assert.True(t, ack.Replayed)
}

func TestSubmitSale_ServerRejection(t *testing.T) {
	api := newFakeAPI()
	api.reject = true
	srv := httptest.NewServer(api)
	defer srv.Close()

	_, err := New(srv.URL, WithToken("t")).SubmitSale(context.Background(), testSale())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "items required")
	assert.False(t, IsTransport(err))
}

func TestSubmitSale_Unreachable(t *testing.T) {
	srv := httptest.NewServer(newFakeAPI())
	url := srv.URL
	srv.Close()

	_, err := New(url).SubmitSale(context.Background(), testSale())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func newCheckout(t *testing.T, sub offline.Submitter, monitor *offline.Monitor) (*Checkout, *offline.Queue) {
	t.Helper()
	q, err := offline.OpenQueue(context.Background(), offline.NewMemoryStore(), nil)
	require.NoError(t, err)
	numbers, err := offline.NewNumberer(7)
	require.NoError(t, err)
	return NewCheckout(sub, q, monitor, numbers), q
}

func cart() offline.Cart {
	paid := decimal.NewFromInt(4000)
	return offline.Cart{
		CustomerName: "awa",
		Items:        []offline.SaleItem{{Name: "Rice", UnitPrice: decimal.NewFromInt(5000), Quantity: 2}},
		AmountPaid:   &paid,
	}
}

func TestCheckout_Live(t *testing.T) {
	srv := httptest.NewServer(newFakeAPI())
	defer srv.Close()
	co, q := newCheckout(t, New(srv.URL), nil)

	rec, err := co.Sell(context.Background(), cart())
	require.NoError(t, err)
	assert.False(t, rec.Offline)
	assert.Equal(t, "inv-1", rec.InvoiceID)
	assert.Equal(t, 0, q.Len())
}

func TestCheckout_UnreachableQueues(t *testing.T) {
	srv := httptest.NewServer(newFakeAPI())
	url := srv.URL
	srv.Close()
	monitor := offline.NewMonitor(nil)
	monitor.SetOnline(context.Background(), true)
	co, q := newCheckout(t, New(url), monitor)

	rec, err := co.Sell(context.Background(), cart())
	require.NoError(t, err)
	assert.True(t, rec.Offline)
	assert.Equal(t, "DEBT", rec.Status)
	require.Equal(t, 1, q.Len())
	assert.Equal(t, rec.Sale.CorrelationID, q.Entries()[0].Sale.CorrelationID)
	assert.False(t, monitor.Online())
}

func TestCheckout_RejectionNotQueued(t *testing.T) {
	api := newFakeAPI()
	api.reject = true
	srv := httptest.NewServer(api)
	defer srv.Close()
	co, q := newCheckout(t, New(srv.URL), nil)

	_, err := co.Sell(context.Background(), cart())
	require.Error(t, err)
	assert.Equal(t, 0, q.Len())
}

type panicSubmitter struct{}

func (panicSubmitter) SubmitSale(context.Context, offline.PendingSale) (offline.Ack, error) {
	panic("must not submit while offline")
}

func TestCheckout_OfflineSkipsServer(t *testing.T) {
	co, q := newCheckout(t, panicSubmitter{}, offline.NewMonitor(nil))

	rec, err := co.Sell(context.Background(), cart())
	require.NoError(t, err)
	assert.True(t, rec.Offline)
	assert.Equal(t, 1, q.Len())
}

func TestCheckout_InvalidCart(t *testing.T) {
	co, q := newCheckout(t, panicSubmitter{}, nil)
	c := cart()
	c.Items = nil

	_, err := co.Sell(context.Background(), c)
	assert.ErrorIs(t, err, offline.ErrEmptyCart)
	assert.Equal(t, 0, q.Len())
}

func TestLink_ReportsConnectivity(t *testing.T) {
	upgrader := websocket.Upgrader{}
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]interface{}{"event": "invoice.created", "at": time.Now()})
		<-release
	}))
	defer srv.Close()

	monitor := offline.NewMonitor(nil)
	states := monitor.Subscribe()
	link, err := NewLink(srv.URL, "tok", monitor)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		link.Run(ctx)
		close(done)
	}()

	select {
	case online := <-states:
		assert.True(t, online)
	case <-time.After(5 * time.Second):
		t.Fatal("link never came online")
	}
	select {
	case evt := <-link.Events():
		assert.Equal(t, "invoice.created", evt.Event)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	close(release)
	require.Eventually(t, func() bool { return !monitor.Online() }, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
