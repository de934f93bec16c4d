package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

const (
	// NetworkKey is the network the wallet operates on. One of liquid, testnet
	// or regtest
	NetworkKey = "NETWORK"
	// ElectrumURLKey is the host[:port] of the blockchain server. Defaults to
	// the public one of the selected network
	ElectrumURLKey = "ELECTRUM_URL"
	// ElectrumOnionURLKey is the onion address of the blockchain server, used
	// in place of the electrum url when tor is enabled
	ElectrumOnionURLKey = "ELECTRUM_ONION_URL"
	// ElectrumTLSKey enables TLS when connecting to the electrum url
	ElectrumTLSKey = "ELECTRUM_TLS"
	// ValidateDomainKey enables the validation of the server TLS certificate
	ValidateDomainKey = "VALIDATE_DOMAIN"
	// UseTorKey makes the session prefer the onion address
	UseTorKey = "USE_TOR"
	// ProxyKey is the socks5 proxy to route network calls through, ie.
	// localhost:9050
	ProxyKey = "PROXY"
	// DatadirKey is the local data directory to store the internal state of
	// the daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// ListeningAddressKey is the interface the HTTP interface binds to.
	// Defaults to the loopback one, the interface is not authenticated
	ListeningAddressKey = "LISTENING_ADDRESS"
	// ListeningPortKey is the port where the HTTP interface listens on
	ListeningPortKey = "LISTENING_PORT"
	// TLSKeyKey is the path of the TLS key for the HTTP interface
	TLSKeyKey = "TLS_KEY"
	// TLSCertKey is the path of the TLS certificate for the HTTP interface
	TLSCertKey = "TLS_CERT"
	// RequestTimeoutKey is the timeout in seconds of network calls
	RequestTimeoutKey = "REQUEST_TIMEOUT"
	// SyncIntervalKey is the interval in seconds between two syncs of the
	// background workers
	SyncIntervalKey = "SYNC_INTERVAL"
	// RateLimitKey is the max number of network calls per second made by the
	// background workers
	RateLimitKey = "RATE_LIMIT"
	// GapLimitKey is the number of unused addresses scanned past the last
	// used one of every chain
	GapLimitKey = "GAP_LIMIT"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// EnableProfilerKey enables the periodic logging of runtime statistics
	EnableProfilerKey = "ENABLE_PROFILER"
	// StatsIntervalKey defines the interval in seconds for logging runtime
	// statistics
	StatsIntervalKey = "STATS_INTERVAL"

	DbLocation       = "db"
	ProfilerLocation = "stats"

	DBTypeBadger   = "badger"
	DBTypeInMemory = "inmemory"
)

var (
	vip            *viper.Viper
	defaultDatadir = btcutil.AppDataDir("gdk-electrum", false)

	defaultElectrumURLs = map[string]string{
		"liquid":  "blockstream.info/liquid/api",
		"testnet": "blockstream.info/liquidtestnet/api",
		"regtest": "localhost:3001",
	}
	supportedDBTypes = map[string]struct{}{
		DBTypeBadger:   {},
		DBTypeInMemory: {},
	}
)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("GDK")
	vip.AutomaticEnv()

	vip.SetDefault(NetworkKey, "liquid")
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, int(log.InfoLevel))
	vip.SetDefault(ListeningAddressKey, "127.0.0.1")
	vip.SetDefault(ListeningPortKey, 9955)
	vip.SetDefault(RequestTimeoutKey, 30)
	vip.SetDefault(SyncIntervalKey, 5)
	vip.SetDefault(RateLimitKey, 10)
	vip.SetDefault(GapLimitKey, 20)
	vip.SetDefault(DBTypeKey, DBTypeBadger)
	vip.SetDefault(EnableProfilerKey, false)
	vip.SetDefault(StatsIntervalKey, 600)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDuration(key string) time.Duration {
	return time.Duration(vip.GetInt(key)) * time.Second
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetListeningAddress returns the host:port the HTTP interface listens on.
func GetListeningAddress() string {
	return net.JoinHostPort(
		GetString(ListeningAddressKey), strconv.Itoa(GetInt(ListeningPortKey)),
	)
}

func GetNetwork() string {
	return normalizeNetwork(GetString(NetworkKey))
}

// GetNetworkParameters returns the network configuration of the session.
// Values not set by the user are left undefined, except for the electrum
// url and the TLS flag that default to the public server of the network.
func GetNetworkParameters() domain.NetworkParameters {
	net := GetNetwork()
	params := domain.NetworkParameters{Name: net}

	electrumURL, ok := defaultElectrumURLs[net]
	if vip.IsSet(ElectrumURLKey) {
		electrumURL, ok = GetString(ElectrumURLKey), true
	}
	if ok {
		params.ElectrumURL = &electrumURL
	}

	electrumTLS := net != "regtest"
	if vip.IsSet(ElectrumTLSKey) {
		electrumTLS = GetBool(ElectrumTLSKey)
	}
	params.ElectrumTLS = &electrumTLS

	if vip.IsSet(ElectrumOnionURLKey) {
		v := GetString(ElectrumOnionURLKey)
		params.ElectrumOnionURL = &v
	}
	if vip.IsSet(ValidateDomainKey) {
		v := GetBool(ValidateDomainKey)
		params.ValidateDomain = &v
	} else {
		params.ValidateDomain = &electrumTLS
	}
	if vip.IsSet(UseTorKey) {
		v := GetBool(UseTorKey)
		params.UseTor = &v
	}
	if vip.IsSet(ProxyKey) {
		v := GetString(ProxyKey)
		params.Proxy = &v
	}
	return params
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	if _, ok := defaultElectrumURLs[GetNetwork()]; !ok {
		return fmt.Errorf(
			"unknown network %s, must be one of liquid, testnet or regtest",
			GetString(NetworkKey),
		)
	}

	if _, err := domain.ResolveEndpoint(GetNetworkParameters()); err != nil {
		return err
	}

	if host := GetString(ListeningAddressKey); host != "localhost" &&
		net.ParseIP(host) == nil {
		return fmt.Errorf("listening address must be an IP or localhost")
	}
	if port := GetInt(ListeningPortKey); port <= 0 || port > 65535 {
		return fmt.Errorf("invalid listening port %d", port)
	}
	if host := GetString(ListeningAddressKey); !isLoopback(host) {
		log.Warnf(
			"HTTP interface is exposed on %s without authentication", host,
		)
	}

	tlsKey, tlsCert := GetString(TLSKeyKey), GetString(TLSCertKey)
	if (tlsKey == "") != (tlsCert == "") {
		return fmt.Errorf(
			"TLS for HTTP interface requires both key and certificate when enabled",
		)
	}

	if _, ok := supportedDBTypes[GetString(DBTypeKey)]; !ok {
		return fmt.Errorf(
			"unsupported db type %s, must be either %s or %s",
			GetString(DBTypeKey), DBTypeBadger, DBTypeInMemory,
		)
	}

	for _, key := range []string{
		RequestTimeoutKey, SyncIntervalKey, RateLimitKey, GapLimitKey,
		StatsIntervalKey,
	} {
		if GetInt(key) <= 0 {
			return fmt.Errorf("%s must be a positive number", key)
		}
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	if GetBool(EnableProfilerKey) {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func normalizeNetwork(name string) string {
	switch strings.ToLower(name) {
	case "", "liquid", "mainnet":
		return "liquid"
	case "testnet", "testnet-liquid":
		return "testnet"
	case "regtest", "localtest-liquid", "electrum-localtest-liquid":
		return "regtest"
	default:
		return name
	}
}
