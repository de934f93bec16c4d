package esplora

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"github.com/tdex-network/gdk-electrum/internal/core/ports"
	"github.com/tdex-network/gdk-electrum/pkg/circuitbreaker"
	"golang.org/x/net/proxy"
)

const (
	defaultTimeout = 30 * time.Second
	socks5Scheme   = "socks5://"
)

type esplora struct {
	apiURL       string
	client       *http.Client
	cb           *gobreaker.CircuitBreaker
	onCallResult func(err error)
}

// NewService returns a ports.Blockchain talking to the esplora REST API
// exposed by the given target. The connection is health checked before
// returning.
func NewService(opts ports.BlockchainOpts) (ports.Blockchain, error) {
	if opts.Target.Host == "" {
		return nil, fmt.Errorf("missing target host")
	}

	transport, err := newTransport(opts.Target, opts.Proxy)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	service := &esplora{
		apiURL:       apiURL(opts.Target),
		client:       &http.Client{Transport: transport, Timeout: timeout},
		cb:           circuitbreaker.NewCircuitBreaker(opts.Target.Host),
		onCallResult: opts.OnCallResult,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := service.healthCheck(ctx); err != nil {
		service.Close()
		return nil, fmt.Errorf("health check: %w", err)
	}

	return service, nil
}

func (e *esplora) Close() {
	e.client.CloseIdleConnections()
}

func (e *esplora) healthCheck(ctx context.Context) error {
	_, err := e.GetBlockHeight(ctx)
	return err
}

// apiURL returns the base url of the target. A host already carrying a
// scheme or a path is honored.
func apiURL(target domain.EndpointTarget) string {
	host := strings.TrimSuffix(target.Host, "/")
	if strings.Contains(host, "://") {
		return host
	}
	if target.IsTLS() {
		return "https://" + host
	}
	return "http://" + host
}

func newTransport(
	target domain.EndpointTarget, proxyURL string,
) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if target.IsTLS() {
		transport.TLSClientConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: !target.ValidateDomain,
		}
	}

	if proxyURL == "" {
		return transport, nil
	}

	dialer, err := proxy.SOCKS5(
		"tcp", strings.TrimPrefix(proxyURL, socks5Scheme), nil, proxy.Direct,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %s: %w", proxyURL, err)
	}
	// Requests are forwarded through the socks proxy only.
	transport.Proxy = nil
	if d, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = d.DialContext
	} else {
		transport.DialContext = func(
			_ context.Context, network, addr string,
		) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}
