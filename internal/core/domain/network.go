package domain

import "fmt"

// NetworkParameters is the network configuration a session is built with.
// Optional settings are pointers so that a missing value can be told apart
// from an empty one.
type NetworkParameters struct {
	Name             string
	UseTor           *bool
	ElectrumOnionURL *string
	ElectrumURL      *string
	ElectrumTLS      *bool
	ValidateDomain   *bool
	Proxy            *string
}

// EndpointKind tags the variant of an EndpointTarget.
type EndpointKind int

const (
	EndpointPlaintext EndpointKind = iota
	EndpointTLS
)

func (k EndpointKind) String() string {
	switch k {
	case EndpointPlaintext:
		return "plaintext"
	case EndpointTLS:
		return "tls"
	default:
		return fmt.Sprintf("EndpointKind(%d)", int(k))
	}
}

// EndpointTarget is the connection target resolved from NetworkParameters.
// ValidateDomain is meaningful only for the TLS variant.
type EndpointTarget struct {
	Kind           EndpointKind
	Host           string
	ValidateDomain bool
}

func PlaintextEndpoint(host string) EndpointTarget {
	return EndpointTarget{Kind: EndpointPlaintext, Host: host}
}

func TLSEndpoint(host string, validateDomain bool) EndpointTarget {
	return EndpointTarget{Kind: EndpointTLS, Host: host, ValidateDomain: validateDomain}
}

func (t EndpointTarget) IsTLS() bool {
	return t.Kind == EndpointTLS
}

func (t EndpointTarget) String() string {
	if t.IsTLS() {
		return fmt.Sprintf("tls://%s (validate domain: %t)", t.Host, t.ValidateDomain)
	}
	return fmt.Sprintf("tcp://%s", t.Host)
}

// ResolveEndpoint picks the endpoint a session connects to.
//
// With tor enabled and an onion address configured the onion address wins and
// is always reached in plaintext, whatever the TLS setting: the hidden service
// transport already encrypts and authenticates the endpoint.
// Otherwise the electrum url is mandatory and TLS is used only if requested.
func ResolveEndpoint(params NetworkParameters) (EndpointTarget, error) {
	if boolValue(params.UseTor) {
		if onion := params.ElectrumOnionURL; onion != nil && *onion != "" {
			return PlaintextEndpoint(*onion), nil
		}
	}

	if params.ElectrumURL == nil {
		return EndpointTarget{}, &ConfigError{Message: "network url is missing"}
	}
	url := *params.ElectrumURL
	if url == "" {
		return EndpointTarget{}, &ConfigError{Message: "network url is empty"}
	}

	if boolValue(params.ElectrumTLS) {
		return TLSEndpoint(url, boolValue(params.ValidateDomain)), nil
	}
	return PlaintextEndpoint(url), nil
}

func boolValue(b *bool) bool {
	return b != nil && *b
}
