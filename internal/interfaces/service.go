package interfaces

// Service is an outer surface of the daemon, like the HTTP/websocket one,
// exposing the wallet session.
type Service interface {
	Start() error
	Stop()
}
