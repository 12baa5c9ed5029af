package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/types"
)

type fakeBackend struct {
	accounts map[types.Address]*core.AccountState
	receipts map[types.Hash]*core.Receipt
	sent     []*core.Transaction
	callErr  error
	callRet  []byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		accounts: make(map[types.Address]*core.AccountState),
		receipts: make(map[types.Hash]*core.Receipt),
	}
}

func (b *fakeBackend) Account(_ context.Context, addr types.Address) (*core.AccountState, error) {
	if acc, ok := b.accounts[addr]; ok {
		return acc, nil
	}
	return &core.AccountState{Address: addr}, nil
}

func (b *fakeBackend) PendingNonce(_ context.Context, addr types.Address) (uint64, error) {
	acc, _ := b.Account(context.Background(), addr)
	return acc.Nonce + uint64(len(b.sent)), nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *core.Transaction) (types.Hash, error) {
	if err := tx.Verify(); err != nil {
		return types.Hash{}, err
	}
	b.sent = append(b.sent, tx)
	return tx.Hash(core.TxHasher{}), nil
}

func (b *fakeBackend) Receipt(_ context.Context, hash types.Hash) (*core.Receipt, error) {
	if r, ok := b.receipts[hash]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("receipt %s: %w", hash, core.ErrNotFound)
}

func (b *fakeBackend) Call(context.Context, types.Address, types.Address, []byte) ([]byte, error) {
	return b.callRet, b.callErr
}

func (b *fakeBackend) Height(context.Context) (uint32, error) {
	return 7, nil
}

func doRPC(t *testing.T, srv *httptest.Server, method string, params any) (int, JSONRPCResponse, json.RawMessage) {
	t.Helper()
	body, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/rpc", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw struct {
		JSONRPCResponse
		Result json.RawMessage `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	return resp.StatusCode, raw.JSONRPCResponse, raw.Result
}

func newTestServer(t *testing.T, b Backend) *httptest.Server {
	srv := httptest.NewServer(NewAPIServer(":0", nil, b).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestGetAccountState(t *testing.T) {
	b := newFakeBackend()
	addr := types.AddressFromBytes(types.RandomBytes(20))
	acc := &core.AccountState{Address: addr, Nonce: 3}
	acc.Balance.Set(types.Ether(5))
	b.accounts[addr] = acc
	srv := newTestServer(t, b)

	code, _, result := doRPC(t, srv, MethodGetAccountState, GetAccountStateParams{Address: addr.String()})
	require.Equal(t, http.StatusOK, code)
	var state AccountStateResponse
	require.NoError(t, json.Unmarshal(result, &state))
	assert.Equal(t, "5000000000000000000", state.Balance)
	assert.Equal(t, uint64(3), state.Nonce)
	assert.Equal(t, uint64(3), state.PendingNonce)
}

func TestGetAccountStateInvalidAddress(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())

	code, resp, _ := doRPC(t, srv, MethodGetAccountState, GetAccountStateParams{Address: "zz"})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestSendRawTransaction(t *testing.T) {
	b := newFakeBackend()
	srv := newTestServer(t, b)

	key := crypto.GeneratePrivateKey()
	tx := core.NewCallTransaction(0, types.AddressFromBytes(types.RandomBytes(20)), types.Wei(1), nil)
	require.NoError(t, tx.Sign(key))
	buf := new(bytes.Buffer)
	require.NoError(t, tx.Encode(buf, core.GOBEncoder[*core.Transaction]{}))

	_, resp, result := doRPC(t, srv, MethodSendRawTransaction, SendRawTxParams{TxData: hex.EncodeToString(buf.Bytes())})
	require.Nil(t, resp.Error)
	var hash string
	require.NoError(t, json.Unmarshal(result, &hash))
	assert.Equal(t, tx.Hash(core.TxHasher{}).String(), hash)
	require.Len(t, b.sent, 1)

	_, resp, _ = doRPC(t, srv, MethodSendRawTransaction, SendRawTxParams{TxData: "not-hex"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestGetReceipt(t *testing.T) {
	b := newFakeBackend()
	hash := types.RandomHash()
	b.receipts[hash] = &core.Receipt{TxHash: hash, Status: core.ReceiptReverted, RevertReason: "caller is not the owner"}
	srv := newTestServer(t, b)

	_, resp, result := doRPC(t, srv, MethodGetReceipt, GetReceiptParams{Hash: hash.String()})
	require.Nil(t, resp.Error)
	var r core.Receipt
	require.NoError(t, json.Unmarshal(result, &r))
	assert.Equal(t, hash, r.TxHash)
	assert.False(t, r.Succeeded())
	assert.Equal(t, "caller is not the owner", r.RevertReason)

	_, resp, _ = doRPC(t, srv, MethodGetReceipt, GetReceiptParams{Hash: types.RandomHash().String()})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)
}

func TestCall(t *testing.T) {
	b := newFakeBackend()
	b.callRet = []byte{0x01, 0x02}
	srv := newTestServer(t, b)
	to := types.AddressFromBytes(types.RandomBytes(20)).String()

	_, resp, result := doRPC(t, srv, MethodCall, CallParams{To: to, Data: "0xdeadbeef"})
	require.Nil(t, resp.Error)
	assert.Equal(t, `"0x0102"`, string(result))

	b.callErr = core.Revert("unknown method")
	_, resp, _ = doRPC(t, srv, MethodCall, CallParams{To: to, Data: "0x00"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeReverted, resp.Error.Code)
	assert.Equal(t, "unknown method", resp.Error.Data)
}

func TestUnknownMethodAndParseError(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())

	_, resp, _ := doRPC(t, srv, "no_such_method", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)

	httpResp, err := http.Post(srv.URL+"/rpc", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer httpResp.Body.Close()
	var parsed JSONRPCResponse
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&parsed))
	require.NotNil(t, parsed.Error)
	assert.Equal(t, CodeParseError, parsed.Error.Code)
}

func TestHeightAndMetrics(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())

	_, resp, result := doRPC(t, srv, MethodGetHeight, nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, "7", string(result))

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
}
