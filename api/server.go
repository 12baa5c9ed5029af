package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/types"
)

// Backend 是 API 背后的链，node.Node 实现了它
type Backend interface {
	Account(ctx context.Context, addr types.Address) (*core.AccountState, error)
	PendingNonce(ctx context.Context, addr types.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *core.Transaction) (types.Hash, error)
	Receipt(ctx context.Context, hash types.Hash) (*core.Receipt, error)
	Call(ctx context.Context, from, to types.Address, data []byte) ([]byte, error)
	Height(ctx context.Context) (uint32, error)
}

type APIServer struct {
	listenAddr string
	logger     log.Logger
	backend    Backend
	router     *mux.Router
}

func NewAPIServer(listenAddr string, logger log.Logger, backend Backend) *APIServer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &APIServer{
		listenAddr: listenAddr,
		logger:     logger,
		backend:    backend,
		router:     mux.NewRouter(),
	}
	s.router.HandleFunc("/rpc", s.handleRPC).Methods(http.MethodPost)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return s
}

// Handler 返回路由，便于在测试中直接挂到 httptest.Server 上
func (s *APIServer) Handler() http.Handler {
	return s.router
}

// Run 启动 HTTP 服务，ctx 取消后优雅关闭
func (s *APIServer) Run(ctx context.Context) error {
	s.logger.Log("msg", "starting API server", "listenAddr", s.listenAddr)

	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		s.logger.Log("msg", "API server stopped")
		return nil
	}
}

// handleRPC 是处理所有RPC请求的核心函数
func (s *APIServer) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &RPCError{Code: CodeParseError, Message: "Parse error"}, 0)
		return
	}

	s.logger.Log("msg", "received rpc request", "method", req.Method, "id", req.ID)
	incCounter(req.Method)

	var (
		result interface{}
		rerr   *RPCError
	)
	ctx := r.Context()
	switch req.Method {
	case MethodGetAccountState:
		result, rerr = s.handleGetAccountState(ctx, req)
	case MethodSendRawTransaction:
		result, rerr = s.handleSendRawTransaction(ctx, req)
	case MethodGetReceipt:
		result, rerr = s.handleGetReceipt(ctx, req)
	case MethodCall:
		result, rerr = s.handleCall(ctx, req)
	case MethodGetHeight:
		result, rerr = s.handleGetHeight(ctx)
	default:
		rerr = &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}
	if rerr != nil {
		writeError(w, rerr, req.ID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(JSONRPCResponse{Version: "2.0", Result: result, ID: req.ID})
}

// writeError 是一个辅助函数，用于方便地写入JSON-RPC错误响应
func writeError(w http.ResponseWriter, rerr *RPCError, id int) {
	rpcErrors.WithLabelValues(strconv.Itoa(rerr.Code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest) // 通常RPC错误也使用400或500状态码
	json.NewEncoder(w).Encode(JSONRPCResponse{Version: "2.0", Error: rerr, ID: id})
}

func invalidParams(format string, args ...any) *RPCError {
	return &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// backendError 把后端错误映射为 JSON-RPC 错误
func backendError(err error) *RPCError {
	if reason, ok := core.RevertReason(err); ok {
		return &RPCError{Code: CodeReverted, Message: err.Error(), Data: reason}
	}
	if errors.Is(err, core.ErrNotFound) {
		return &RPCError{Code: CodeNotFound, Message: err.Error()}
	}
	return &RPCError{Code: CodeServerError, Message: err.Error()}
}

func (s *APIServer) handleGetAccountState(ctx context.Context, req JSONRPCRequest) (interface{}, *RPCError) {
	var params GetAccountStateParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, invalidParams("Invalid params")
	}
	addr, err := types.AddressFromHex(params.Address)
	if err != nil {
		return nil, invalidParams("invalid address format: %s", params.Address)
	}

	acc, err := s.backend.Account(ctx, addr)
	if err != nil {
		return nil, backendError(err)
	}
	pending, err := s.backend.PendingNonce(ctx, addr)
	if err != nil {
		return nil, backendError(err)
	}
	return AccountStateResponse{
		Address:      addr.String(),
		Balance:      types.FormatAmount(&acc.Balance),
		Nonce:        acc.Nonce,
		PendingNonce: pending,
		Code:         acc.Code,
	}, nil
}

func (s *APIServer) handleSendRawTransaction(ctx context.Context, req JSONRPCRequest) (interface{}, *RPCError) {
	var params SendRawTxParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, invalidParams("Invalid params")
	}
	txBytes, err := hex.DecodeString(strings.TrimPrefix(params.TxData, "0x"))
	if err != nil {
		return nil, invalidParams("Invalid tx_data: not a valid hex string")
	}
	tx := new(core.Transaction)
	if err := tx.Decode(bytes.NewReader(txBytes), core.GOBDecoder[*core.Transaction]{}); err != nil {
		return nil, invalidParams("Invalid tx_data: failed to decode transaction: %s", err)
	}

	hash, err := s.backend.SendTransaction(ctx, tx)
	if err != nil {
		return nil, backendError(err)
	}
	s.logger.Log("msg", "transaction received via api", "hash", hash)
	return hash.String(), nil
}

func (s *APIServer) handleGetReceipt(ctx context.Context, req JSONRPCRequest) (interface{}, *RPCError) {
	var params GetReceiptParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, invalidParams("Invalid params")
	}
	hash, err := types.HashFromHex(params.Hash)
	if err != nil {
		return nil, invalidParams("invalid hash: %s", params.Hash)
	}
	r, err := s.backend.Receipt(ctx, hash)
	if err != nil {
		return nil, backendError(err)
	}
	return r, nil
}

func (s *APIServer) handleCall(ctx context.Context, req JSONRPCRequest) (interface{}, *RPCError) {
	var params CallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, invalidParams("Invalid params")
	}
	var from types.Address
	if params.From != "" {
		a, err := types.AddressFromHex(params.From)
		if err != nil {
			return nil, invalidParams("invalid from address: %s", params.From)
		}
		from = a
	}
	to, err := types.AddressFromHex(params.To)
	if err != nil {
		return nil, invalidParams("invalid to address: %s", params.To)
	}
	data, err := hex.DecodeString(strings.TrimPrefix(params.Data, "0x"))
	if err != nil {
		return nil, invalidParams("invalid data: not a valid hex string")
	}
	ret, err := s.backend.Call(ctx, from, to, data)
	if err != nil {
		return nil, backendError(err)
	}
	return "0x" + hex.EncodeToString(ret), nil
}

func (s *APIServer) handleGetHeight(ctx context.Context) (interface{}, *RPCError) {
	h, err := s.backend.Height(ctx)
	if err != nil {
		return nil, backendError(err)
	}
	return h, nil
}
