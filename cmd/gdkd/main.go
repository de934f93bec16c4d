package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/gdk-electrum/internal/config"
	"github.com/tdex-network/gdk-electrum/internal/core/application/session"
	"github.com/tdex-network/gdk-electrum/internal/core/ports"
	"github.com/tdex-network/gdk-electrum/internal/infrastructure/blockchain/esplora"
	"github.com/tdex-network/gdk-electrum/internal/infrastructure/notifier"
	dbbadger "github.com/tdex-network/gdk-electrum/internal/infrastructure/storage/badger"
	"github.com/tdex-network/gdk-electrum/internal/infrastructure/storage/inmemory"
	"github.com/tdex-network/gdk-electrum/internal/infrastructure/wallet/hdwallet"
	httpinterface "github.com/tdex-network/gdk-electrum/internal/interfaces/http"
	"github.com/tdex-network/gdk-electrum/internal/interfaces/rpc"
	"github.com/tdex-network/gdk-electrum/pkg/stats"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	datadir := config.GetDatadir()
	networkParams := config.GetNetworkParameters()

	walletSvc, err := hdwallet.NewService(hdwallet.Opts{
		Network:  config.GetNetwork(),
		GapLimit: uint32(config.GetInt(config.GapLimitKey)),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to init wallet service")
	}

	notifierSvc := notifier.NewService(notifier.DefaultBufferSize)

	sess, err := session.NewSession(session.Opts{
		Network:           networkParams,
		Wallet:            walletSvc,
		Notifier:          notifierSvc,
		BlockchainFactory: esplora.NewService,
		StoreFactory:      storeFactory(datadir),
		Timeout:           config.GetDuration(config.RequestTimeoutKey),
		SyncInterval:      config.GetDuration(config.SyncIntervalKey),
		RateLimit:         config.GetInt(config.RateLimitKey),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to init session")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := rpc.NewMetrics(reg)
	if err != nil {
		log.WithError(err).Fatal("failed to init metrics")
	}
	dispatcher, err := rpc.NewDispatcher(sess, metrics)
	if err != nil {
		log.WithError(err).Fatal("failed to init dispatcher")
	}

	httpSvc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Address:        config.GetListeningAddress(),
		TLSKey:         config.GetString(config.TLSKeyKey),
		TLSCert:        config.GetString(config.TLSCertKey),
		RequestTimeout: config.GetDuration(config.RequestTimeoutKey),
		Dispatcher:     dispatcher,
		Notifier:       notifierSvc,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to init http interface")
	}

	ctx, cancel := context.WithCancel(context.Background())
	var statsDone <-chan struct{}
	if config.GetBool(config.EnableProfilerKey) {
		statsDone = stats.EnableMemoryStatistics(
			ctx, config.GetDuration(config.StatsIntervalKey), reg,
			filepath.Join(datadir, config.ProfilerLocation),
		)
	}

	log.Infof("network: %s", networkParams.Name)
	log.Infof("blockchain endpoint: %s", sess.Endpoint())
	log.Infof("datadir: %s", datadir)
	log.Infof("http interface listening on %s", config.GetListeningAddress())

	if err := httpSvc.Start(); err != nil {
		log.WithError(err).Fatal("failed to start http interface")
	}
	log.Info("daemon started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down daemon")
	httpSvc.Stop()
	sess.Close()
	notifierSvc.Close()
	cancel()
	if config.GetBool(config.EnableProfilerKey) {
		<-statsDone
	}

	log.Info("exiting")
}

func storeFactory(datadir string) ports.StoreFactory {
	if config.GetString(config.DBTypeKey) == config.DBTypeInMemory {
		return inmemory.NewStoreFactory()
	}

	var logger badger.Logger
	if log.GetLevel() >= log.DebugLevel {
		logger = log.StandardLogger()
	}
	return dbbadger.NewStoreFactory(
		filepath.Join(datadir, config.DbLocation), logger,
	)
}
