package rpcclient

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/virtue186/fortesting/api"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/types"
)

// DefaultPollInterval 是 WaitForReceipt 轮询 get_receipt 的间隔
const DefaultPollInterval = 100 * time.Millisecond

// Client 是一个与 fortesting 节点 RPC API 交互的客户端
type Client struct {
	Endpoint     string
	PollInterval time.Duration
	HTTPClient   *http.Client

	id atomic.Int64
}

// New 创建一个新的 Client 实例
func New(endpoint string) *Client {
	return &Client{
		Endpoint:     endpoint,
		PollInterval: DefaultPollInterval,
		HTTPClient:   http.DefaultClient,
	}
}

// do 发送一次 JSON-RPC 请求，并把结果解码到 result
func (c *Client) do(ctx context.Context, method string, params any, result any) error {
	reqBody, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      c.id.Add(1),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to API server: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *api.RPCError   `json:"error"`
	}
	if err := json.Unmarshal(bodyBytes, &rpcResp); err != nil {
		return fmt.Errorf("failed to parse RPC response: %w\nResponse body: %s", err, string(bodyBytes))
	}
	if rpcResp.Error != nil {
		return rpcError(rpcResp.Error)
	}
	if len(rpcResp.Result) == 0 {
		return fmt.Errorf("received empty result from API")
	}
	return json.Unmarshal(rpcResp.Result, result)
}

// rpcError 把服务端错误码还原为 core 中的错误
func rpcError(e *api.RPCError) error {
	switch e.Code {
	case api.CodeReverted:
		return &core.RevertError{Reason: e.Data}
	case api.CodeNotFound:
		return fmt.Errorf("%s: %w", e.Message, core.ErrNotFound)
	}
	return fmt.Errorf("API error %d: %w", e.Code, e)
}

// GetAccountState 调用 get_account_state RPC 方法
func (c *Client) GetAccountState(ctx context.Context, addr types.Address) (*api.AccountStateResponse, error) {
	var res api.AccountStateResponse
	if err := c.do(ctx, api.MethodGetAccountState, api.GetAccountStateParams{Address: addr.String()}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Account(ctx context.Context, addr types.Address) (*core.AccountState, error) {
	res, err := c.GetAccountState(ctx, addr)
	if err != nil {
		return nil, err
	}
	balance, err := types.ParseAmount(res.Balance)
	if err != nil {
		return nil, err
	}
	acc := &core.AccountState{Address: addr, Nonce: res.Nonce, Code: res.Code}
	acc.Balance.Set(balance)
	return acc, nil
}

func (c *Client) PendingNonce(ctx context.Context, addr types.Address) (uint64, error) {
	res, err := c.GetAccountState(ctx, addr)
	if err != nil {
		return 0, err
	}
	return res.PendingNonce, nil
}

// SendRawTransaction 调用 send_raw_transaction RPC 方法
func (c *Client) SendRawTransaction(ctx context.Context, txHex string) (types.Hash, error) {
	var hash string
	if err := c.do(ctx, api.MethodSendRawTransaction, api.SendRawTxParams{TxData: txHex}, &hash); err != nil {
		return types.Hash{}, err
	}
	return types.HashFromHex(hash)
}

// SendTransaction 编码已签名的交易并提交
func (c *Client) SendTransaction(ctx context.Context, tx *core.Transaction) (types.Hash, error) {
	buf := new(bytes.Buffer)
	if err := tx.Encode(buf, core.GOBEncoder[*core.Transaction]{}); err != nil {
		return types.Hash{}, err
	}
	return c.SendRawTransaction(ctx, hex.EncodeToString(buf.Bytes()))
}

func (c *Client) Receipt(ctx context.Context, hash types.Hash) (*core.Receipt, error) {
	var r core.Receipt
	if err := c.do(ctx, api.MethodGetReceipt, api.GetReceiptParams{Hash: hash.String()}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// WaitForReceipt 轮询 get_receipt 直到交易上链或 ctx 结束
func (c *Client) WaitForReceipt(ctx context.Context, hash types.Hash) (*core.Receipt, error) {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()
	for {
		r, err := c.Receipt(ctx, hash)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) Call(ctx context.Context, from, to types.Address, data []byte) ([]byte, error) {
	var ret string
	params := api.CallParams{
		From: from.String(),
		To:   to.String(),
		Data: "0x" + hex.EncodeToString(data),
	}
	if err := c.do(ctx, api.MethodCall, params, &ret); err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimPrefix(ret, "0x"))
}

func (c *Client) Height(ctx context.Context) (uint32, error) {
	var h uint32
	if err := c.do(ctx, api.MethodGetHeight, nil, &h); err != nil {
		return 0, err
	}
	return h, nil
}
