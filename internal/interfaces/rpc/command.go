package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

// Command is the typed request of a Method, decoded once by DecodeCommand.
// The set of commands is closed: only types of this package implement it.
type Command interface {
	method() Method
}

type (
	PollSessionRequest       struct{}
	DisconnectRequest        struct{}
	GetBlockHeightRequest    struct{}
	GetSubaccountNumsRequest struct{}
	GetSubaccountsRequest    struct{}
	GetFeeEstimatesRequest   struct{}
	GetSettingsRequest       struct{}
	StartThreadsRequest      struct{}
	GetWalletHashIDRequest   struct{}
	RemoveAccountRequest     struct{}
)

type ConnectRequest struct {
	Timeout *uint32 `json:"timeout,omitempty"`
	Proxy   *string `json:"proxy,omitempty"`
}

type LoginRequest struct {
	Mnemonic string `json:"mnemonic,omitempty"`
	Password string `json:"password,omitempty"`
	Xpub     string `json:"xpub,omitempty"`
}

func (r LoginRequest) validate() error {
	if (r.Mnemonic == "") == (r.Xpub == "") {
		return fmt.Errorf("exactly one of mnemonic and xpub is required")
	}
	if r.Xpub != "" && r.Password != "" {
		return fmt.Errorf("password is allowed only along with mnemonic")
	}
	return nil
}

type GetSubaccountRequest struct {
	Subaccount uint32
}

type GetSubaccountXpubRequest struct {
	Subaccount *uint32 `json:"subaccount"`
}

func (r GetSubaccountXpubRequest) validate() error {
	return requireSubaccount(r.Subaccount)
}

type GetSubaccountPathRequest struct {
	Subaccount *uint32 `json:"subaccount"`
}

func (r GetSubaccountPathRequest) validate() error {
	return requireSubaccount(r.Subaccount)
}

type CreateSubaccountRequest struct {
	Name       string  `json:"name"`
	Type       string  `json:"type,omitempty"`
	Subaccount *uint32 `json:"subaccount,omitempty"`
}

func (r CreateSubaccountRequest) validate() error {
	if r.Name == "" {
		return fmt.Errorf("missing name")
	}
	if r.Type != "" && r.Type != domain.AccountTypeP2WPKH {
		return fmt.Errorf("unsupported subaccount type %q", r.Type)
	}
	return nil
}

type GetNextSubaccountRequest struct {
	Type string `json:"type,omitempty"`
}

type RenameSubaccountRequest struct {
	Subaccount *uint32 `json:"subaccount"`
	NewName    string  `json:"new_name"`
}

func (r RenameSubaccountRequest) validate() error {
	if r.Subaccount == nil {
		return fmt.Errorf("missing subaccount")
	}
	if r.NewName == "" {
		return fmt.Errorf("missing new_name")
	}
	return nil
}

type SetSubaccountHiddenRequest struct {
	Subaccount *uint32 `json:"subaccount"`
	Hidden     *bool   `json:"hidden"`
}

func (r SetSubaccountHiddenRequest) validate() error {
	if r.Subaccount == nil {
		return fmt.Errorf("missing subaccount")
	}
	if r.Hidden == nil {
		return fmt.Errorf("missing hidden")
	}
	return nil
}

// UpdateSubaccountRequest changes only the fields that are defined.
type UpdateSubaccountRequest struct {
	Subaccount *uint32 `json:"subaccount"`
	Name       *string `json:"name,omitempty"`
	Hidden     *bool   `json:"hidden,omitempty"`
}

func (r UpdateSubaccountRequest) validate() error {
	if err := requireSubaccount(r.Subaccount); err != nil {
		return err
	}
	if r.Name != nil && *r.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	return nil
}

type GetTransactionsRequest struct {
	Subaccount *uint32 `json:"subaccount"`
	First      uint32  `json:"first,omitempty"`
	Count      uint32  `json:"count,omitempty"`
}

func (r GetTransactionsRequest) validate() error {
	return requireSubaccount(r.Subaccount)
}

type GetTransactionHexRequest struct {
	Txid string
}

type GetTransactionDetailsRequest struct {
	Txid string
}

// CreateTransactionRequest keeps the raw params along with the decoded
// request so that a rejected transaction can be echoed back.
type CreateTransactionRequest struct {
	domain.CreateTransaction
	raw json.RawMessage
}

type SignTransactionRequest struct {
	domain.Transaction
}

type SendTransactionRequest struct {
	domain.Transaction
}

type BroadcastTransactionRequest struct {
	TxHex string
}

type GetBalanceRequest struct {
	Subaccount *uint32 `json:"subaccount"`
	NumConfs   uint32  `json:"num_confs,omitempty"`
}

func (r GetBalanceRequest) validate() error {
	return requireSubaccount(r.Subaccount)
}

type GetUnspentOutputsRequest struct {
	Subaccount *uint32 `json:"subaccount"`
	NumConfs   uint32  `json:"num_confs,omitempty"`
}

func (r GetUnspentOutputsRequest) validate() error {
	return requireSubaccount(r.Subaccount)
}

type GetReceiveAddressRequest struct {
	Subaccount *uint32 `json:"subaccount"`
}

func (r GetReceiveAddressRequest) validate() error {
	return requireSubaccount(r.Subaccount)
}

type GetPreviousAddressesRequest struct {
	Subaccount *uint32 `json:"subaccount"`
}

func (r GetPreviousAddressesRequest) validate() error {
	return requireSubaccount(r.Subaccount)
}

type SetTransactionMemoRequest struct {
	Txid string
	Memo string
}

type ChangeSettingsRequest struct {
	domain.Settings
}

type ConvertAmountRequest struct {
	Satoshi *int64          `json:"satoshi,omitempty"`
	BTC     json.RawMessage `json:"btc,omitempty"`
}

func (r ConvertAmountRequest) validate() error {
	if r.Satoshi != nil && len(r.BTC) > 0 {
		return fmt.Errorf("only one of satoshi and btc is allowed")
	}
	if len(r.BTC) > 0 {
		if _, err := r.btc(); err != nil {
			return err
		}
	}
	return nil
}

// btc returns the btc amount, given either as a json string or number.
func (r ConvertAmountRequest) btc() (*string, error) {
	if len(r.BTC) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(r.BTC, &s); err == nil {
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(r.BTC, &n); err != nil {
		return nil, fmt.Errorf("btc must be a string or a number")
	}
	s = n.String()
	return &s, nil
}

func (PollSessionRequest) method() Method           { return MethodPollSession }
func (ConnectRequest) method() Method               { return MethodConnect }
func (DisconnectRequest) method() Method            { return MethodDisconnect }
func (LoginRequest) method() Method                 { return MethodLogin }
func (GetBlockHeightRequest) method() Method        { return MethodGetBlockHeight }
func (GetSubaccountNumsRequest) method() Method     { return MethodGetSubaccountNums }
func (GetSubaccountsRequest) method() Method        { return MethodGetSubaccounts }
func (GetSubaccountRequest) method() Method         { return MethodGetSubaccount }
func (GetSubaccountXpubRequest) method() Method     { return MethodGetSubaccountXpub }
func (GetSubaccountPathRequest) method() Method     { return MethodGetSubaccountPath }
func (CreateSubaccountRequest) method() Method      { return MethodCreateSubaccount }
func (GetNextSubaccountRequest) method() Method     { return MethodGetNextSubaccount }
func (RenameSubaccountRequest) method() Method      { return MethodRenameSubaccount }
func (SetSubaccountHiddenRequest) method() Method   { return MethodSetSubaccountHidden }
func (UpdateSubaccountRequest) method() Method      { return MethodUpdateSubaccount }
func (GetTransactionsRequest) method() Method       { return MethodGetTransactions }
func (GetTransactionHexRequest) method() Method     { return MethodGetTransactionHex }
func (GetTransactionDetailsRequest) method() Method { return MethodGetTxDetails }
func (CreateTransactionRequest) method() Method     { return MethodCreateTransaction }
func (SignTransactionRequest) method() Method       { return MethodSignTransaction }
func (SendTransactionRequest) method() Method       { return MethodSendTransaction }
func (BroadcastTransactionRequest) method() Method  { return MethodBroadcastTransaction }
func (GetBalanceRequest) method() Method            { return MethodGetBalance }
func (GetUnspentOutputsRequest) method() Method     { return MethodGetUnspentOutputs }
func (GetReceiveAddressRequest) method() Method     { return MethodGetReceiveAddress }
func (GetPreviousAddressesRequest) method() Method  { return MethodGetPreviousAddresses }
func (GetFeeEstimatesRequest) method() Method       { return MethodGetFeeEstimates }
func (SetTransactionMemoRequest) method() Method    { return MethodSetTransactionMemo }
func (GetSettingsRequest) method() Method           { return MethodGetSettings }
func (ChangeSettingsRequest) method() Method        { return MethodChangeSettings }
func (ConvertAmountRequest) method() Method         { return MethodConvertAmount }
func (StartThreadsRequest) method() Method          { return MethodStartThreads }
func (GetWalletHashIDRequest) method() Method       { return MethodGetWalletHashID }
func (RemoveAccountRequest) method() Method         { return MethodRemoveAccount }

type decoderFunc func(raw json.RawMessage) (Command, error)

var decoders = map[Method]decoderFunc{
	MethodPollSession:       decodeEmpty(PollSessionRequest{}),
	MethodConnect:           decodeStrict[ConnectRequest](MethodConnect),
	MethodDisconnect:        decodeEmpty(DisconnectRequest{}),
	MethodLogin:             decodeStrict[LoginRequest](MethodLogin),
	MethodGetBlockHeight:    decodeEmpty(GetBlockHeightRequest{}),
	MethodGetSubaccountNums: decodeEmpty(GetSubaccountNumsRequest{}),
	MethodGetSubaccounts:    decodeEmpty(GetSubaccountsRequest{}),
	MethodGetSubaccount:     decodeGetSubaccount,
	MethodGetSubaccountXpub: decodeStrict[GetSubaccountXpubRequest](MethodGetSubaccountXpub),
	MethodGetSubaccountPath: decodeStrict[GetSubaccountPathRequest](MethodGetSubaccountPath),
	MethodCreateSubaccount:  decodeStrict[CreateSubaccountRequest](MethodCreateSubaccount),
	MethodGetNextSubaccount: decodeStrict[GetNextSubaccountRequest](MethodGetNextSubaccount),
	MethodRenameSubaccount:  decodeStrict[RenameSubaccountRequest](MethodRenameSubaccount),
	MethodSetSubaccountHidden: decodeStrict[SetSubaccountHiddenRequest](
		MethodSetSubaccountHidden,
	),
	MethodUpdateSubaccount:     decodeStrict[UpdateSubaccountRequest](MethodUpdateSubaccount),
	MethodGetTransactions:      decodeStrict[GetTransactionsRequest](MethodGetTransactions),
	MethodGetTransactionHex:    decodeGetTransactionHex,
	MethodGetTxDetails:         decodeGetTransactionDetails,
	MethodCreateTransaction:    decodeCreateTransaction,
	MethodSignTransaction:      decodeSignTransaction,
	MethodSendTransaction:      decodeSendTransaction,
	MethodBroadcastTransaction: decodeBroadcastTransaction,
	MethodGetBalance:           decodeStrict[GetBalanceRequest](MethodGetBalance),
	MethodGetUnspentOutputs:    decodeStrict[GetUnspentOutputsRequest](MethodGetUnspentOutputs),
	MethodGetReceiveAddress:    decodeStrict[GetReceiveAddressRequest](MethodGetReceiveAddress),
	MethodGetPreviousAddresses: decodeStrict[GetPreviousAddressesRequest](
		MethodGetPreviousAddresses,
	),
	MethodGetFeeEstimates:    decodeEmpty(GetFeeEstimatesRequest{}),
	MethodSetTransactionMemo: decodeSetTransactionMemo,
	MethodGetSettings:        decodeEmpty(GetSettingsRequest{}),
	MethodChangeSettings:     decodeChangeSettings,
	MethodConvertAmount:      decodeStrict[ConvertAmountRequest](MethodConvertAmount),
	MethodStartThreads:       decodeEmpty(StartThreadsRequest{}),
	MethodGetWalletHashID:    decodeEmpty(GetWalletHashIDRequest{}),
	MethodRemoveAccount:      decodeEmpty(RemoveAccountRequest{}),
}

// DecodeCommand decodes the params of the given method into its typed
// request. Any failure is reported as a *domain.DeserializationError.
func DecodeCommand(m Method, raw json.RawMessage) (Command, error) {
	decode, ok := decoders[m]
	if !ok {
		return nil, &domain.MethodNotFoundError{Method: string(m)}
	}
	return decode(raw)
}

type validator interface {
	validate() error
}

func decodeEmpty(cmd Command) decoderFunc {
	return func(raw json.RawMessage) (Command, error) {
		if isEmpty(raw) {
			return cmd, nil
		}
		var v struct{}
		if err := strictUnmarshal(raw, &v); err != nil {
			return nil, invalidParams(cmd.method(), err)
		}
		return cmd, nil
	}
}

func decodeStrict[T Command](m Method) decoderFunc {
	return func(raw json.RawMessage) (Command, error) {
		var req T
		if !isEmpty(raw) {
			if err := strictUnmarshal(raw, &req); err != nil {
				return nil, invalidParams(m, err)
			}
		}
		if v, ok := any(req).(validator); ok {
			if err := v.validate(); err != nil {
				return nil, invalidParams(m, err)
			}
		}
		return req, nil
	}
}

func decodeSignTransaction(raw json.RawMessage) (Command, error) {
	tx, err := decodeTransaction(MethodSignTransaction, raw)
	if err != nil {
		return nil, err
	}
	return SignTransactionRequest{*tx}, nil
}

func decodeSendTransaction(raw json.RawMessage) (Command, error) {
	tx, err := decodeTransaction(MethodSendTransaction, raw)
	if err != nil {
		return nil, err
	}
	return SendTransactionRequest{*tx}, nil
}

// decodeTransaction decodes a transaction record as returned by
// create_transaction or sign_transaction. Fields unknown to the record are
// tolerated since callers usually hand back what they received.
func decodeTransaction(
	m Method, raw json.RawMessage,
) (*domain.Transaction, error) {
	if isEmpty(raw) {
		return nil, invalidParams(m, fmt.Errorf("missing transaction"))
	}
	var tx domain.Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, invalidParams(m, err)
	}
	return &tx, nil
}

func decodeCreateTransaction(raw json.RawMessage) (Command, error) {
	var req domain.CreateTransaction
	if isEmpty(raw) {
		return nil, invalidParams(
			MethodCreateTransaction, fmt.Errorf("missing params"),
		)
	}
	if err := strictUnmarshal(raw, &req); err != nil {
		return nil, invalidParams(MethodCreateTransaction, err)
	}
	return CreateTransactionRequest{req, raw}, nil
}

func decodeChangeSettings(raw json.RawMessage) (Command, error) {
	var settings domain.Settings
	if isEmpty(raw) {
		return nil, invalidParams(MethodChangeSettings, fmt.Errorf("missing params"))
	}
	if err := strictUnmarshal(raw, &settings); err != nil {
		return nil, invalidParams(MethodChangeSettings, err)
	}
	return ChangeSettingsRequest{settings}, nil
}

func decodeGetSubaccount(raw json.RawMessage) (Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &domain.DeserializationError{
			Message: "get_subaccount: index argument not found",
		}
	}
	index, ok := fields["subaccount"]
	if !ok {
		return nil, &domain.DeserializationError{
			Message: "get_subaccount: index argument not found",
		}
	}
	n, err := strconv.ParseUint(string(bytes.TrimSpace(index)), 10, 32)
	if err != nil {
		return nil, &domain.DeserializationError{
			Message: "get_subaccount: index argument not found",
		}
	}
	return GetSubaccountRequest{Subaccount: uint32(n)}, nil
}

func decodeGetTransactionHex(raw json.RawMessage) (Command, error) {
	txid, ok := rawString(raw)
	if !ok {
		return nil, &domain.DeserializationError{
			Message: "get_transaction_hex: input is not a string",
		}
	}
	return GetTransactionHexRequest{Txid: txid}, nil
}

func decodeGetTransactionDetails(raw json.RawMessage) (Command, error) {
	txid, ok := rawString(raw)
	if !ok {
		return nil, &domain.DeserializationError{
			Message: "get_transaction_details: input is not a string",
		}
	}
	return GetTransactionDetailsRequest{Txid: txid}, nil
}

func decodeBroadcastTransaction(raw json.RawMessage) (Command, error) {
	txHex, ok := rawString(raw)
	if !ok {
		return nil, &domain.DeserializationError{
			Message: "broadcast_transaction: input not a string",
		}
	}
	return BroadcastTransactionRequest{TxHex: txHex}, nil
}

func decodeSetTransactionMemo(raw json.RawMessage) (Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		fields = nil
	}

	txid, ok := stringField(fields, "txid")
	if !ok {
		return nil, &domain.DeserializationError{
			Message: "set_transaction_memo: missing txid",
		}
	}
	memo, ok := stringField(fields, "memo")
	if !ok {
		return nil, &domain.DeserializationError{
			Message: "set_transaction_memo: missing memo",
		}
	}
	return SetTransactionMemoRequest{Txid: txid, Memo: memo}, nil
}

// stringField returns the value of the given field if it's a json string.
func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok {
		return "", false
	}
	return rawString(raw)
}

// rawString returns the value of raw if it's a json string. Null and absent
// values are not strings.
func rawString(raw json.RawMessage) (string, bool) {
	if isEmpty(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func requireSubaccount(index *uint32) error {
	if index == nil {
		return fmt.Errorf("missing subaccount")
	}
	return nil
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func strictUnmarshal(raw json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after params")
	}
	return nil
}

func invalidParams(m Method, err error) error {
	return &domain.DeserializationError{
		Message: fmt.Sprintf("%s: invalid params", m),
		Err:     err,
	}
}
