package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/gdk-electrum/internal/core/application/session"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

// Service is the set of session operations reachable through the dispatcher.
type Service interface {
	Poll() session.PollStatus
	Connect(ctx context.Context, opts session.ConnectOpts) error
	Disconnect(ctx context.Context) error
	Login(ctx context.Context, creds domain.Credentials) (*session.LoginResult, error)
	GetBlockHeight(ctx context.Context) (uint32, error)
	GetSubaccountNums(ctx context.Context) ([]uint32, error)
	GetSubaccounts(ctx context.Context) ([]domain.AccountSummary, error)
	GetSubaccount(ctx context.Context, index uint32) (*domain.AccountSummary, error)
	GetSubaccountXpub(ctx context.Context, index uint32) (string, error)
	GetSubaccountRootPath(ctx context.Context, index uint32) ([]uint32, error)
	CreateSubaccount(
		ctx context.Context, args session.CreateAccountArgs,
	) (*domain.AccountSummary, error)
	GetNextSubaccount(ctx context.Context) (uint32, error)
	RenameSubaccount(ctx context.Context, index uint32, newName string) error
	SetSubaccountHidden(ctx context.Context, index uint32, hidden bool) error
	UpdateSubaccount(
		ctx context.Context, index uint32, name *string, hidden *bool,
	) error
	GetTransactions(
		ctx context.Context, page session.TransactionsPage,
	) ([]domain.TxSummary, error)
	GetTransactionHex(ctx context.Context, txid string) (string, error)
	GetTransactionDetails(
		ctx context.Context, txid string,
	) (*domain.TransactionDetails, error)
	CreateTransaction(
		ctx context.Context, req domain.CreateTransaction,
	) (*domain.Transaction, error)
	SignTransaction(
		ctx context.Context, tx domain.Transaction,
	) (*domain.Transaction, error)
	SendTransaction(
		ctx context.Context, tx domain.Transaction,
	) (*session.SendResult, error)
	BroadcastTransaction(ctx context.Context, txHex string) (string, error)
	GetBalance(
		ctx context.Context, index uint32, numConfs uint32,
	) (domain.Balance, error)
	GetUnspentOutputs(
		ctx context.Context, index uint32, numConfs uint32,
	) (session.UnspentOutputs, error)
	GetReceiveAddress(
		ctx context.Context, index uint32,
	) (*domain.AddressRecord, error)
	GetPreviousAddresses(ctx context.Context, index uint32) ([]string, error)
	GetFeeEstimates(ctx context.Context) ([]domain.FeeEstimate, error)
	SetTransactionMemo(ctx context.Context, txid, memo string) error
	GetSettings(ctx context.Context) (*domain.Settings, error)
	ChangeSettings(ctx context.Context, settings domain.Settings) error
	ConvertAmount(satoshi *int64, btc *string) (*domain.Amount, error)
	StartThreads() error
	WalletHashID(ctx context.Context) (string, error)
	RemoveAccount(ctx context.Context) error
}

var _ Service = (*session.Session)(nil)

// Response is the outcome of a dispatched request: exactly one of Result and
// Error is defined.
type Response struct {
	Result json.RawMessage   `json:"result,omitempty"`
	Error  *domain.WireError `json:"error,omitempty"`
}

// CreateTransactionResult is the outcome of create_transaction. A transaction
// that can't be constructed is not a failure of the request: the request
// params are echoed back with an additional error field.
type CreateTransactionResult struct {
	Transaction *domain.Transaction
	Rejected    map[string]json.RawMessage
}

func (r CreateTransactionResult) MarshalJSON() ([]byte, error) {
	if r.Rejected != nil {
		return json.Marshal(r.Rejected)
	}
	return json.Marshal(r.Transaction)
}

type FeeEstimatesResult struct {
	Fees []domain.FeeEstimate `json:"fees"`
}

type UnspentOutputsResult struct {
	UnspentOutputs session.UnspentOutputs `json:"unspent_outputs"`
}

type NextSubaccountResult struct {
	Subaccount uint32 `json:"subaccount"`
}

type SubaccountXpubResult struct {
	Xpub string `json:"xpub"`
}

type SubaccountPathResult struct {
	Path []uint32 `json:"path"`
}

// Dispatcher routes requests to the matching session operation and shapes
// the outcome uniformly.
type Dispatcher struct {
	svc     Service
	metrics *Metrics
}

// NewDispatcher returns a Dispatcher for the given session. Metrics are
// optional.
func NewDispatcher(svc Service, metrics *Metrics) (*Dispatcher, error) {
	if svc == nil {
		return nil, fmt.Errorf("missing session service")
	}
	return &Dispatcher{svc, metrics}, nil
}

// Dispatch serves a single request. Errors are never returned but translated
// into the Error field of the response.
func (d *Dispatcher) Dispatch(
	ctx context.Context, method string, params json.RawMessage,
) Response {
	reqID := uuid.New().String()
	logger := log.WithFields(log.Fields{
		"request_id": reqID,
		"method":     method,
	})
	logger.Debug("serving request")

	start := time.Now()
	result, err := d.dispatch(ctx, method, params)

	var res Response
	if err == nil {
		if res.Result, err = json.Marshal(result); err != nil {
			err = fmt.Errorf("failed to serialize result: %w", err)
		}
	}

	label := method
	if _, perr := ParseMethod(method); perr != nil {
		label = unknownMethod
	}
	elapsed := time.Since(start)

	if err != nil {
		wireErr := domain.ToWire(err)
		d.metrics.observe(label, wireErr.Code, elapsed)
		logger.WithError(err).Warnf("request failed with code %s", wireErr.Code)
		return Response{Error: &wireErr}
	}

	d.metrics.observe(label, codeOK, elapsed)
	logger.Debugf("request served in %s", elapsed)
	return res
}

func (d *Dispatcher) dispatch(
	ctx context.Context, name string, params json.RawMessage,
) (interface{}, error) {
	method, err := ParseMethod(name)
	if err != nil {
		return nil, err
	}
	cmd, err := DecodeCommand(method, params)
	if err != nil {
		return nil, err
	}
	return d.handle(ctx, cmd)
}

func (d *Dispatcher) handle(ctx context.Context, cmd Command) (interface{}, error) {
	switch c := cmd.(type) {
	case PollSessionRequest:
		return d.svc.Poll(), nil

	case ConnectRequest:
		opts := session.ConnectOpts{Timeout: c.Timeout, Proxy: c.Proxy}
		return true, d.svc.Connect(ctx, opts)

	case DisconnectRequest:
		return true, d.svc.Disconnect(ctx)

	case LoginRequest:
		return d.svc.Login(ctx, domain.Credentials{
			Mnemonic: c.Mnemonic,
			Password: c.Password,
			Xpub:     c.Xpub,
		})

	case GetBlockHeightRequest:
		return d.svc.GetBlockHeight(ctx)

	case GetSubaccountNumsRequest:
		return d.svc.GetSubaccountNums(ctx)

	case GetSubaccountsRequest:
		return d.svc.GetSubaccounts(ctx)

	case GetSubaccountRequest:
		return d.svc.GetSubaccount(ctx, c.Subaccount)

	case GetSubaccountXpubRequest:
		xpub, err := d.svc.GetSubaccountXpub(ctx, *c.Subaccount)
		if err != nil {
			return nil, err
		}
		return SubaccountXpubResult{xpub}, nil

	case GetSubaccountPathRequest:
		path, err := d.svc.GetSubaccountRootPath(ctx, *c.Subaccount)
		if err != nil {
			return nil, err
		}
		return SubaccountPathResult{path}, nil

	case CreateSubaccountRequest:
		return d.svc.CreateSubaccount(ctx, session.CreateAccountArgs{
			Name:  c.Name,
			Type:  c.Type,
			Index: c.Subaccount,
		})

	case GetNextSubaccountRequest:
		next, err := d.svc.GetNextSubaccount(ctx)
		if err != nil {
			return nil, err
		}
		return NextSubaccountResult{next}, nil

	case RenameSubaccountRequest:
		return true, d.svc.RenameSubaccount(ctx, *c.Subaccount, c.NewName)

	case SetSubaccountHiddenRequest:
		return true, d.svc.SetSubaccountHidden(ctx, *c.Subaccount, *c.Hidden)

	case UpdateSubaccountRequest:
		return true, d.svc.UpdateSubaccount(ctx, *c.Subaccount, c.Name, c.Hidden)

	case GetTransactionsRequest:
		return d.svc.GetTransactions(ctx, session.TransactionsPage{
			Subaccount: *c.Subaccount,
			First:      c.First,
			Count:      c.Count,
		})

	case GetTransactionHexRequest:
		return d.svc.GetTransactionHex(ctx, c.Txid)

	case GetTransactionDetailsRequest:
		return d.svc.GetTransactionDetails(ctx, c.Txid)

	case CreateTransactionRequest:
		return d.createTransaction(ctx, c)

	case SignTransactionRequest:
		return d.svc.SignTransaction(ctx, c.Transaction)

	case SendTransactionRequest:
		return d.svc.SendTransaction(ctx, c.Transaction)

	case BroadcastTransactionRequest:
		return d.svc.BroadcastTransaction(ctx, c.TxHex)

	case GetBalanceRequest:
		return d.svc.GetBalance(ctx, *c.Subaccount, c.NumConfs)

	case GetUnspentOutputsRequest:
		unspents, err := d.svc.GetUnspentOutputs(ctx, *c.Subaccount, c.NumConfs)
		if err != nil {
			return nil, err
		}
		return UnspentOutputsResult{unspents}, nil

	case GetReceiveAddressRequest:
		addr, err := d.svc.GetReceiveAddress(ctx, *c.Subaccount)
		if err != nil {
			log.WithError(err).Warnf(
				"get_receive_address for subaccount %d failed", *c.Subaccount,
			)
			return nil, err
		}
		log.Infof(
			"get_receive_address for subaccount %d returning %s (pointer %d)",
			*c.Subaccount, addr.Address, addr.Pointer,
		)
		return addr, nil

	case GetPreviousAddressesRequest:
		return d.svc.GetPreviousAddresses(ctx, *c.Subaccount)

	case GetFeeEstimatesRequest:
		fees, err := d.svc.GetFeeEstimates(ctx)
		if err != nil {
			return nil, err
		}
		// Callers rely on at least one entry being present.
		if len(fees) == 0 {
			return nil, domain.NewDomainError("Expected at least one feerate")
		}
		return FeeEstimatesResult{fees}, nil

	case SetTransactionMemoRequest:
		return true, d.svc.SetTransactionMemo(ctx, c.Txid, c.Memo)

	case GetSettingsRequest:
		return d.svc.GetSettings(ctx)

	case ChangeSettingsRequest:
		return true, d.svc.ChangeSettings(ctx, c.Settings)

	case ConvertAmountRequest:
		btc, err := c.btc()
		if err != nil {
			return nil, invalidParams(MethodConvertAmount, err)
		}
		return d.svc.ConvertAmount(c.Satoshi, btc)

	case StartThreadsRequest:
		return true, d.svc.StartThreads()

	case GetWalletHashIDRequest:
		return d.svc.WalletHashID(ctx)

	case RemoveAccountRequest:
		return true, d.svc.RemoveAccount(ctx)

	default:
		return nil, &domain.MethodNotFoundError{Method: cmd.method().String()}
	}
}

func (d *Dispatcher) createTransaction(
	ctx context.Context, req CreateTransactionRequest,
) (*CreateTransactionResult, error) {
	tx, err := d.svc.CreateTransaction(ctx, req.CreateTransaction)
	if err == nil {
		return &CreateTransactionResult{Transaction: tx}, nil
	}

	code := domain.CodeOf(err)
	log.WithError(err).Warnf("create_transaction rejected with code %s", code)

	rejected := map[string]json.RawMessage{}
	if err := json.Unmarshal(req.raw, &rejected); err != nil {
		return nil, invalidParams(MethodCreateTransaction, err)
	}
	rejected["error"], _ = json.Marshal(code)
	return &CreateTransactionResult{Rejected: rejected}, nil
}
