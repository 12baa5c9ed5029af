package chaintest

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/types"
)

// DefaultTimeout 限制等待单笔交易上链的时间
const DefaultTimeout = 30 * time.Second

// Backend 是测试所连接的链，node.Node 和 rpcclient.Client 都实现了它
type Backend interface {
	Account(ctx context.Context, addr types.Address) (*core.AccountState, error)
	PendingNonce(ctx context.Context, addr types.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *core.Transaction) (types.Hash, error)
	WaitForReceipt(ctx context.Context, hash types.Hash) (*core.Receipt, error)
	Call(ctx context.Context, from, to types.Address, data []byte) ([]byte, error)
}

// Executor 负责构造、签名、发送交易并等待回执
type Executor struct {
	Backend Backend
	Timeout time.Duration
}

func NewExecutor(b Backend) *Executor {
	return &Executor{Backend: b, Timeout: DefaultTimeout}
}

// SendTx 为 tx 填入 signer 的待定 nonce，签名发送并等待上链。
// 被合约拒绝的交易照常返回回执，由调用方检查 Status。
func (e *Executor) SendTx(ctx context.Context, signer Signer, tx *core.Transaction) (*core.Receipt, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	nonce, err := e.Backend.PendingNonce(ctx, signer.Address())
	if err != nil {
		return nil, err
	}
	tx.Nonce = nonce
	if err := signer.SignTx(tx); err != nil {
		return nil, err
	}
	hash, err := e.Backend.SendTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	r, err := e.Backend.WaitForReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", hash, err)
	}
	return r, nil
}

// Transfer 发送原生币
func (e *Executor) Transfer(ctx context.Context, from Signer, to types.Address, amount *uint256.Int) (*core.Receipt, error) {
	return e.SendTx(ctx, from, core.NewCallTransaction(0, to, amount, nil))
}

// Balance 返回账户的原生币余额
func (e *Executor) Balance(ctx context.Context, addr types.Address) (*uint256.Int, error) {
	acc, err := e.Backend.Account(ctx, addr)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(&acc.Balance), nil
}

// DeployContract 部署 code 并返回以部署者为调用者的 ContractInvoker。
// 部署被拒绝时返回包含原因的错误。
func (e *Executor) DeployContract(ctx context.Context, deployer Signer, code string, abi *core.ABI, args ...any) (*ContractInvoker, error) {
	if err := core.ValidateCodeName(code); err != nil {
		return nil, err
	}
	data, err := core.PackArgs(abi.Constructor, args...)
	if err != nil {
		return nil, fmt.Errorf("constructor of %s: %w", code, err)
	}
	r, err := e.SendTx(ctx, deployer, core.NewDeployTransaction(0, code, nil, data))
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", code, err)
	}
	if !r.Succeeded() {
		return nil, fmt.Errorf("deploy %s: %w", code, &core.RevertError{Reason: r.RevertReason})
	}
	return &ContractInvoker{
		Executor: e,
		Address:  r.ContractAddress,
		ABI:      abi,
		Signer:   deployer,
	}, nil
}

// NewInvoker 返回绑定到已部署合约的 ContractInvoker
func (e *Executor) NewInvoker(addr types.Address, abi *core.ABI, signer Signer) *ContractInvoker {
	return &ContractInvoker{Executor: e, Address: addr, ABI: abi, Signer: signer}
}
