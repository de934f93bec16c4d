package rpc

import "github.com/tdex-network/gdk-electrum/internal/core/domain"

// Method is the name of an operation exposed by a session.
type Method string

const (
	MethodPollSession          Method = "poll_session"
	MethodConnect              Method = "connect"
	MethodDisconnect           Method = "disconnect"
	MethodLogin                Method = "login"
	MethodGetBlockHeight       Method = "get_block_height"
	MethodGetSubaccountNums    Method = "get_subaccount_nums"
	MethodGetSubaccounts       Method = "get_subaccounts"
	MethodGetSubaccount        Method = "get_subaccount"
	MethodGetSubaccountXpub    Method = "get_subaccount_xpub"
	MethodGetSubaccountPath    Method = "get_subaccount_root_path"
	MethodCreateSubaccount     Method = "create_subaccount"
	MethodGetNextSubaccount    Method = "get_next_subaccount"
	MethodRenameSubaccount     Method = "rename_subaccount"
	MethodSetSubaccountHidden  Method = "set_subaccount_hidden"
	MethodUpdateSubaccount     Method = "update_subaccount"
	MethodGetTransactions      Method = "get_transactions"
	MethodGetTransactionHex    Method = "get_transaction_hex"
	MethodGetTxDetails         Method = "get_transaction_details"
	MethodCreateTransaction    Method = "create_transaction"
	MethodSignTransaction      Method = "sign_transaction"
	MethodSendTransaction      Method = "send_transaction"
	MethodBroadcastTransaction Method = "broadcast_transaction"
	MethodGetBalance           Method = "get_balance"
	MethodGetUnspentOutputs    Method = "get_unspent_outputs"
	MethodGetReceiveAddress    Method = "get_receive_address"
	MethodGetPreviousAddresses Method = "get_previous_addresses"
	MethodGetFeeEstimates      Method = "get_fee_estimates"
	MethodSetTransactionMemo   Method = "set_transaction_memo"
	MethodGetSettings          Method = "get_settings"
	MethodChangeSettings       Method = "change_settings"
	MethodConvertAmount        Method = "convert_amount"
	MethodStartThreads         Method = "start_threads"
	MethodGetWalletHashID      Method = "get_wallet_hash_id"
	MethodRemoveAccount        Method = "remove_account"
)

var methods = []Method{
	MethodPollSession,
	MethodConnect,
	MethodDisconnect,
	MethodLogin,
	MethodGetBlockHeight,
	MethodGetSubaccountNums,
	MethodGetSubaccounts,
	MethodGetSubaccount,
	MethodGetSubaccountXpub,
	MethodGetSubaccountPath,
	MethodCreateSubaccount,
	MethodGetNextSubaccount,
	MethodRenameSubaccount,
	MethodSetSubaccountHidden,
	MethodUpdateSubaccount,
	MethodGetTransactions,
	MethodGetTransactionHex,
	MethodGetTxDetails,
	MethodCreateTransaction,
	MethodSignTransaction,
	MethodSendTransaction,
	MethodBroadcastTransaction,
	MethodGetBalance,
	MethodGetUnspentOutputs,
	MethodGetReceiveAddress,
	MethodGetPreviousAddresses,
	MethodGetFeeEstimates,
	MethodSetTransactionMemo,
	MethodGetSettings,
	MethodChangeSettings,
	MethodConvertAmount,
	MethodStartThreads,
	MethodGetWalletHashID,
	MethodRemoveAccount,
}

var methodsByName = func() map[string]Method {
	m := make(map[string]Method, len(methods))
	for _, method := range methods {
		m[string(method)] = method
	}
	return m
}()

// Methods returns every supported method.
func Methods() []Method {
	return append([]Method(nil), methods...)
}

// ParseMethod returns the Method with the given name, or a
// *domain.MethodNotFoundError if it's not supported.
func ParseMethod(name string) (Method, error) {
	m, ok := methodsByName[name]
	if !ok {
		return "", &domain.MethodNotFoundError{Method: name}
	}
	return m, nil
}

func (m Method) String() string {
	return string(m)
}
