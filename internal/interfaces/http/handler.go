package httpinterface

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/gdk-electrum/internal/infrastructure/notifier"
	"github.com/tdex-network/gdk-electrum/internal/interfaces/rpc"
)

const (
	maxBodySize  = 1 << 20
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// CallRequest is the envelope of a request to the session.
type CallRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type addWebhookRequest struct {
	Event    string `json:"event"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret"`
}

type addWebhookResponse struct {
	ID string `json:"id"`
}

type listWebhooksResponse struct {
	Webhooks []notifier.WebhookInfo `json:"webhooks"`
}

type methodsResponse struct {
	Methods []rpc.Method `json:"methods"`
}

func (h *handler) call(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body CallRequest
	if err := decodeBody(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Method == "" {
		writeError(w, http.StatusBadRequest, "missing method")
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), h.opts.RequestTimeout)
	defer cancel()

	h.lock.Lock()
	res := h.opts.Dispatcher.Dispatch(ctx, body.Method, body.Params)
	h.lock.Unlock()

	writeJSON(w, http.StatusOK, res)
}

func (h *handler) methods(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, methodsResponse{rpc.Methods()})
}

func (h *handler) notifications(w http.ResponseWriter, req *http.Request) {
	sub, err := h.opts.Notifier.Subscribe(req.URL.Query().Get("event"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		// The upgrader already replied to the client.
		h.opts.Notifier.Unsubscribe(sub.ID)
		log.WithError(err).Debug("http: websocket upgrade failed")
		return
	}
	h.track(sub.ID)
	log.Debugf("http: websocket client subscribed with id %s", sub.ID)

	// Reading is only needed to detect the client going away.
	go func() {
		defer h.untrack(sub.ID)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer func() {
			ticker.Stop()
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout),
			)
			conn.Close()
			log.Debugf("http: websocket client %s disconnected", sub.ID)
		}()

		for {
			select {
			case n, ok := <-sub.Notifications():
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(n); err != nil {
					h.untrack(sub.ID)
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					h.untrack(sub.ID)
					return
				}
			}
		}
	}()
}

func (h *handler) webhooks(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, listWebhooksResponse{
			h.opts.Notifier.ListWebhooks(),
		})
	case http.MethodPost:
		var body addWebhookRequest
		if err := decodeBody(req, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		hook, err := notifier.NewWebhook(body.Event, body.Endpoint, body.Secret)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.opts.Notifier.AddWebhook(hook); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, addWebhookResponse{hook.ID})
	case http.MethodDelete:
		if err := h.opts.Notifier.RemoveWebhook(
			req.URL.Query().Get("id"),
		); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *handler) track(id string) {
	h.subsLock.Lock()
	defer h.subsLock.Unlock()
	h.subs[id] = struct{}{}
}

func (h *handler) untrack(id string) {
	h.subsLock.Lock()
	defer h.subsLock.Unlock()
	delete(h.subs, id)
	h.opts.Notifier.Unsubscribe(id)
}

func decodeBody(req *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read request body: %s", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid request body: %s", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("http: failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{msg})
}
