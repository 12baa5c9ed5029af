package api

import (
	"encoding/json"

	"github.com/virtue186/fortesting/core"
)

// JSONRPCRequest 定义了 JSON-RPC 2.0 请求的结构
type JSONRPCRequest struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"` // 使用 RawMessage 延迟解析参数
	ID      int             `json:"id"`
}

// JSONRPCResponse 定义了 JSON-RPC 2.0 响应的结构
type JSONRPCResponse struct {
	Version string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
	ID      int         `json:"id"`
}

// RPCError 定义了 JSON-RPC 错误对象的结构
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// 错误码
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
	CodeNotFound       = -32001
	// CodeReverted 表示合约执行被拒绝，Data 中是拒绝原因
	CodeReverted = 3
)

// 方法名
const (
	MethodGetAccountState    = "get_account_state"
	MethodSendRawTransaction = "send_raw_transaction"
	MethodGetReceipt         = "get_receipt"
	MethodCall               = "call"
	MethodGetHeight          = "get_height"
)

type GetAccountStateParams struct {
	Address string `json:"address"`
}

// AccountStateResponse 定义了返回给客户端的账户状态，余额为十进制字符串
type AccountStateResponse struct {
	Address      string `json:"address"`
	Balance      string `json:"balance"`
	Nonce        uint64 `json:"nonce"`
	PendingNonce uint64 `json:"pending_nonce"`
	Code         string `json:"code,omitempty"`
}

type SendRawTxParams struct {
	TxData string `json:"tx_data"`
}

type GetReceiptParams struct {
	Hash string `json:"hash"`
}

type CallParams struct {
	From string `json:"from"`
	To   string `json:"to"`
	Data string `json:"data"`
}

// ReceiptResponse 与 core.Receipt 的 JSON 形式相同
type ReceiptResponse = core.Receipt
