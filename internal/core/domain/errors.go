package domain

import (
	"errors"
	"fmt"
)

// Stable, machine readable error codes exposed to callers.
const (
	CodeConfig            = "id_config"
	CodeInvalidParams     = "id_invalid_params"
	CodeMethodNotFound    = "id_method_not_found"
	CodeInsufficientFunds = "id_insufficient_funds"
	CodeInvalidAmount     = "id_invalid_amount"
	CodeNoAmount          = "id_no_amount_specified"
	CodeInvalidAddress    = "id_invalid_address"
	CodeFeeRateTooLow     = "id_fee_rate_is_below_minimum"
	CodeInvalidSubaccount = "id_invalid_subaccount"
	CodeSubaccountExists  = "id_subaccount_exists"
	CodeNotLoggedIn       = "id_not_logged_in"
	CodeNotConnected      = "id_not_connected"
	CodeWatchOnly         = "id_watch_only"
	CodeWorkersRunning    = "id_workers_running"
	CodeInvalidCreds      = "id_invalid_credentials"
	CodeNetwork           = "id_network"
	CodeUnsupported       = "id_unsupported"
	CodeUnknown           = "id_unknown"
)

var (
	// ErrInsufficientFunds is returned when the selectable coins of a
	// subaccount can't cover the requested amounts plus fees.
	ErrInsufficientFunds = &DomainError{Code: CodeInsufficientFunds, Message: "insufficient funds"}
	// ErrInvalidAmount ...
	ErrInvalidAmount = &DomainError{Code: CodeInvalidAmount, Message: "invalid amount"}
	// ErrNoAmountSpecified ...
	ErrNoAmountSpecified = &DomainError{Code: CodeNoAmount, Message: "no amount specified"}
	// ErrInvalidAddress ...
	ErrInvalidAddress = &DomainError{Code: CodeInvalidAddress, Message: "invalid address"}
	// ErrFeeRateTooLow ...
	ErrFeeRateTooLow = &DomainError{Code: CodeFeeRateTooLow, Message: "fee rate is below minimum"}
	// ErrSubaccountNotFound is returned for lookups of an unknown subaccount
	// index.
	ErrSubaccountNotFound = &DomainError{Code: CodeInvalidSubaccount, Message: "subaccount not found"}
	// ErrSubaccountExists ...
	ErrSubaccountExists = &DomainError{Code: CodeSubaccountExists, Message: "subaccount already exists"}
	// ErrNotLoggedIn ...
	ErrNotLoggedIn = &DomainError{Code: CodeNotLoggedIn, Message: "session is not logged in"}
	// ErrNotConnected ...
	ErrNotConnected = &DomainError{Code: CodeNotConnected, Message: "session is not connected"}
	// ErrWatchOnly is returned by operations that need private key material
	// on a session unlocked with public keys only.
	ErrWatchOnly = &DomainError{Code: CodeWatchOnly, Message: "operation not allowed for watch-only sessions"}
	// ErrWorkersRunning is returned when background workers are started twice
	// without stopping them in between.
	ErrWorkersRunning = &DomainError{Code: CodeWorkersRunning, Message: "background workers already running"}
	// ErrInvalidCredentials ...
	ErrInvalidCredentials = &DomainError{Code: CodeInvalidCreds, Message: "invalid credentials"}
	// ErrNetwork wraps failures of the blockchain collaborator.
	ErrNetwork = &DomainError{Code: CodeNetwork, Message: "network call failed"}
	// ErrUnsupported ...
	ErrUnsupported = &DomainError{Code: CodeUnsupported, Message: "operation not supported"}
)

// ConfigError is returned when the network configuration can't produce a
// connection target.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// DeserializationError is returned when the parameters of a request are
// malformed, incomplete or of the wrong type.
type DeserializationError struct {
	Message string
	Err     error
}

func (e *DeserializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// MethodNotFoundError is returned for requests naming an unsupported method.
type MethodNotFoundError struct {
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method not found: %s", e.Method)
}

// DomainError is a failure raised by the wallet, by its accounts or by the
// network. Two domain errors are the same error if they share the code.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// NewDomainError returns a generic domain error with the given message.
func NewDomainError(message string) *DomainError {
	return &DomainError{Code: CodeUnknown, Message: message}
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of e carrying err as its cause.
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Err: err}
}

// WireError is the error record returned to callers.
type WireError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e WireError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// ToWire maps any error to its wire representation. Structured payloads are
// dropped, only the human readable message and the stable code survive.
// Errors outside the taxonomy are reported as generic domain errors.
func ToWire(err error) WireError {
	return WireError{Message: err.Error(), Code: CodeOf(err)}
}

// CodeOf returns the stable code of err.
func CodeOf(err error) string {
	var (
		configErr   *ConfigError
		deserErr    *DeserializationError
		notFoundErr *MethodNotFoundError
		domainErr   *DomainError
	)
	switch {
	case errors.As(err, &configErr):
		return CodeConfig
	case errors.As(err, &deserErr):
		return CodeInvalidParams
	case errors.As(err, &notFoundErr):
		return CodeMethodNotFound
	case errors.As(err, &domainErr):
		return domainErr.Code
	default:
		return CodeUnknown
	}
}
