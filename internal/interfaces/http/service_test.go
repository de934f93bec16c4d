package httpinterface

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/gdk-electrum/internal/core/application/session"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"github.com/tdex-network/gdk-electrum/internal/infrastructure/notifier"
	"github.com/tdex-network/gdk-electrum/internal/interfaces/rpc"
)

// stubSession implements only the operations exercised by the tests.
type stubSession struct {
	rpc.Service
}

func (stubSession) Poll() session.PollStatus {
	return session.PollStatus{LastNetworkCallSucceeded: true}
}

func (stubSession) GetFeeEstimates(context.Context) ([]domain.FeeEstimate, error) {
	return []domain.FeeEstimate{1000, 2000}, nil
}

func newTestServer(
	t *testing.T,
) (*httptest.Server, *handler, *notifier.Service) {
	reg := prometheus.NewRegistry()
	metrics, err := rpc.NewMetrics(reg)
	require.NoError(t, err)
	dispatcher, err := rpc.NewDispatcher(stubSession{}, metrics)
	require.NoError(t, err)

	notifierSvc := notifier.NewService(0)
	h := newHandler(ServiceOpts{
		Address:        ":0",
		RequestTimeout: time.Second,
		Dispatcher:     dispatcher,
		Notifier:       notifierSvc,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	server := httptest.NewServer(h.routes())
	t.Cleanup(func() {
		h.closeSubscriptions()
		server.Close()
		notifierSvc.Close()
	})
	return server, h, notifierSvc
}

func postCall(t *testing.T, url, body string) (int, map[string]json.RawMessage) {
	resp, err := http.Post(url+CallPath, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	res := make(map[string]json.RawMessage)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return resp.StatusCode, res
}

func TestNewService(t *testing.T) {
	dispatcher, err := rpc.NewDispatcher(stubSession{}, nil)
	require.NoError(t, err)
	notifierSvc := notifier.NewService(0)

	tests := []struct {
		name string
		opts ServiceOpts
	}{
		{"invalid address", ServiceOpts{Address: "localhost", Dispatcher: dispatcher, Notifier: notifierSvc}},
		{"invalid host", ServiceOpts{Address: "not an ip:9955", Dispatcher: dispatcher, Notifier: notifierSvc}},
		{"tls key without cert", ServiceOpts{Address: ":9955", TLSKey: "key.pem", Dispatcher: dispatcher, Notifier: notifierSvc}},
		{"missing dispatcher", ServiceOpts{Address: ":9955", Notifier: notifierSvc}},
		{"missing notifier", ServiceOpts{Address: ":9955", Dispatcher: dispatcher}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.opts)
			require.Error(t, err)
			require.Nil(t, svc)
		})
	}

	svc, err := NewService(ServiceOpts{
		Address: "127.0.0.1:0", Dispatcher: dispatcher, Notifier: notifierSvc,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	svc.Stop()
}

func TestCall(t *testing.T) {
	server, _, _ := newTestServer(t)

	status, res := postCall(t, server.URL, `{"method":"poll_session"}`)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{
		"user_wants_to_sync": false,
		"last_network_call_succeeded": true,
		"workers_running": false
	}`, string(res["result"]))

	status, res = postCall(t, server.URL, `{"method":"get_fee_estimates","params":{}}`)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"fees":[1000,2000]}`, string(res["result"]))

	status, res = postCall(t, server.URL, `{"method":"foo"}`)
	require.Equal(t, http.StatusOK, status)
	wireErr := domain.WireError{}
	require.NoError(t, json.Unmarshal(res["error"], &wireErr))
	require.Equal(t, domain.CodeMethodNotFound, wireErr.Code)

	status, res = postCall(t, server.URL, `{"params":{}}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, string(res["error"]), "missing method")

	status, _ = postCall(t, server.URL, `not json`)
	require.Equal(t, http.StatusBadRequest, status)

	resp, err := http.Get(server.URL + CallPath)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(server.URL + MetricsPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), `gdk_rpc_requests_total{code="ok",method="poll_session"} 1`)
}

func TestMethods(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + MethodsPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	res := methodsResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.Equal(t, rpc.Methods(), res.Methods)
}

func TestNotifications(t *testing.T) {
	server, h, notifierSvc := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + NotificationsPath

	resp, err := http.Get(server.URL + NotificationsPath + "?event=unknown")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(
		wsURL+"?event="+domain.NotificationBlock, nil,
	)
	require.NoError(t, err)
	defer conn.Close()

	// Wait for the subscription to be registered before notifying.
	require.Eventually(t, func() bool {
		h.subsLock.Lock()
		defer h.subsLock.Unlock()
		return len(h.subs) == 1
	}, time.Second, 10*time.Millisecond)

	notifierSvc.Notify(domain.Notification{
		Event: domain.NotificationNetwork, Payload: "ignored",
	})
	notifierSvc.Notify(domain.Notification{
		Event:   domain.NotificationBlock,
		Payload: map[string]interface{}{"block_height": float64(100)},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n := domain.Notification{}
	require.NoError(t, conn.ReadJSON(&n))
	require.Equal(t, domain.NotificationBlock, n.Event)
	require.Equal(
		t, map[string]interface{}{"block_height": float64(100)}, n.Payload,
	)
}

func TestWebhooks(t *testing.T) {
	server, _, _ := newTestServer(t)
	url := server.URL + WebhooksPath

	resp, err := http.Post(url, "application/json", strings.NewReader(
		`{"event":"block","endpoint":"not a url"}`,
	))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(url, "application/json", strings.NewReader(
		`{"event":"block","endpoint":"http://localhost:8000/hook","secret":"topsecret"}`,
	))
	require.NoError(t, err)
	added := addWebhookResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&added))
	resp.Body.Close()
	require.NotEmpty(t, added.ID)

	resp, err = http.Get(url)
	require.NoError(t, err)
	body := new(bytes.Buffer)
	_, err = body.ReadFrom(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.NotContains(t, body.String(), "topsecret")

	list := listWebhooksResponse{}
	require.NoError(t, json.Unmarshal(body.Bytes(), &list))
	require.Len(t, list.Webhooks, 1)
	require.Equal(t, added.ID, list.Webhooks[0].ID)
	require.True(t, list.Webhooks[0].IsSecured)

	req, err := http.NewRequest(http.MethodDelete, url+"?id="+added.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
