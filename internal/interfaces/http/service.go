package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/gdk-electrum/internal/infrastructure/notifier"
	"github.com/tdex-network/gdk-electrum/internal/interfaces"
	"github.com/tdex-network/gdk-electrum/internal/interfaces/rpc"
)

const (
	CallPath          = "/v1/call"
	NotificationsPath = "/v1/notifications"
	WebhooksPath      = "/v1/webhooks"
	MethodsPath       = "/v1/methods"
	MetricsPath       = "/metrics"

	DefaultRequestTimeout = 2 * time.Minute

	shutdownTimeout = 5 * time.Second
)

type ServiceOpts struct {
	Address        string
	TLSKey         string
	TLSCert        string
	RequestTimeout time.Duration

	Dispatcher *rpc.Dispatcher
	Notifier   *notifier.Service
	// Metrics is optional, if defined it's served at /metrics.
	Metrics http.Handler
}

func (o ServiceOpts) validate() error {
	if !isValidAddress(o.Address) {
		return fmt.Errorf("invalid listening address %s", o.Address)
	}
	if (o.TLSKey == "") != (o.TLSCert == "") {
		return fmt.Errorf("TLS requires both key and certificate when enabled")
	}
	if o.Dispatcher == nil {
		return fmt.Errorf("missing dispatcher")
	}
	if o.Notifier == nil {
		return fmt.Errorf("missing notifier")
	}
	return nil
}

func (o ServiceOpts) withTLS() bool {
	return o.TLSKey != ""
}

type service struct {
	opts    ServiceOpts
	handler *handler
	server  *http.Server
}

func NewService(opts ServiceOpts) (interfaces.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	h := newHandler(opts)
	return &service{
		opts:    opts,
		handler: h,
		server: &http.Server{
			Addr:              opts.Address,
			Handler:           h.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *service) Start() error {
	lis, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}

	go func() {
		var err error
		if s.opts.withTLS() {
			err = s.server.ServeTLS(lis, s.opts.TLSCert, s.opts.TLSKey)
		} else {
			err = s.server.Serve(lis)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Warn("http: server stopped unexpectedly")
		}
	}()

	log.Infof("http interface listening on %s", lis.Addr())
	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Websocket connections are hijacked and thus not tracked by Shutdown,
	// closing the notifier subscriptions makes their writers return.
	s.handler.closeSubscriptions()
	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("http: failed to gracefully shutdown server")
	}
	log.Debug("disabled http interface")
}

type handler struct {
	opts ServiceOpts

	// Requests are dispatched one at a time.
	lock *sync.Mutex

	subsLock *sync.Mutex
	subs     map[string]struct{}
}

func newHandler(opts ServiceOpts) *handler {
	return &handler{
		opts:     opts,
		lock:     &sync.Mutex{},
		subsLock: &sync.Mutex{},
		subs:     make(map[string]struct{}),
	}
}

func (h *handler) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(CallPath, h.call)
	mux.HandleFunc(MethodsPath, h.methods)
	mux.HandleFunc(NotificationsPath, h.notifications)
	mux.HandleFunc(WebhooksPath, h.webhooks)
	if h.opts.Metrics != nil {
		mux.Handle(MetricsPath, h.opts.Metrics)
	}
	return mux
}

func (h *handler) closeSubscriptions() {
	h.subsLock.Lock()
	defer h.subsLock.Unlock()

	for id := range h.subs {
		h.opts.Notifier.Unsubscribe(id)
		delete(h.subs, id)
	}
}

func isValidAddress(addr string) bool {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host != "" && host != "localhost" && net.ParseIP(host) == nil {
		return false
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return false
	}
	return port >= 0 && port <= 65535
}
