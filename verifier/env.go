package verifier

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/chaintest"
	"github.com/virtue186/fortesting/contracts/fortesting"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/types"
)

// Target 是一个场景所连接的链和两个不同的身份
type Target struct {
	Backend chaintest.Backend
	Owner   chaintest.Signer
	Other   chaintest.Signer
	// Close 在场景结束后调用，可以为空
	Close func() error
}

// BackendFactory 为每个场景提供一个 Target
type BackendFactory func(ctx context.Context) (*Target, error)

// SimulatedFactory 为每个场景启动一条新的内存链
func SimulatedFactory(logger log.Logger) BackendFactory {
	return func(context.Context) (*Target, error) {
		reg := core.NewRegistry()
		fortesting.Register(reg)
		sim, err := chaintest.NewSimulated(logger, reg, 2)
		if err != nil {
			return nil, err
		}
		signers := chaintest.DevSigners(2)
		return &Target{
			Backend: sim,
			Owner:   signers[0],
			Other:   signers[1],
			Close:   sim.Close,
		}, nil
	}
}

// RemoteFactory 让所有场景共用一个已运行的节点，每个场景仍部署自己的合约实例
func RemoteFactory(backend chaintest.Backend, owner, other chaintest.Signer) BackendFactory {
	return func(context.Context) (*Target, error) {
		return &Target{Backend: backend, Owner: owner, Other: other}, nil
	}
}

// Env 是场景运行时可见的环境，Contract 以 Owner 身份调用
type Env struct {
	Executor *chaintest.Executor
	Owner    chaintest.Signer
	Other    chaintest.Signer
	Contract *chaintest.ContractInvoker
}

// SetupFunc 在场景开始前部署合约
type SetupFunc func(ctx context.Context, t *Target) (*Env, error)

// DefaultSetup 以 Owner 身份部署一个新的 ForTesting 实例并等待部署上链
func DefaultSetup(ctx context.Context, t *Target) (*Env, error) {
	if t.Owner.Address() == t.Other.Address() {
		return nil, fmt.Errorf("owner and other must be distinct identities")
	}
	e := chaintest.NewExecutor(t.Backend)
	c, err := e.DeployContract(ctx, t.Owner, fortesting.Code, fortesting.ABI())
	if err != nil {
		return nil, err
	}
	return &Env{
		Executor: e,
		Owner:    t.Owner,
		Other:    t.Other,
		Contract: c,
	}, nil
}

func (e *Env) AsOwner() *chaintest.ContractInvoker {
	return e.Contract.WithSigner(e.Owner)
}

func (e *Env) AsOther() *chaintest.ContractInvoker {
	return e.Contract.WithSigner(e.Other)
}

// Events 解码回执中合约产生的事件
func (e *Env) Events(r *core.Receipt) ([]chaintest.Event, error) {
	return e.Contract.Events(r)
}

// Ledger 返回合约账本中 addr 的余额
func (e *Env) Ledger(ctx context.Context, addr types.Address) (*uint256.Int, error) {
	return e.Contract.CallUint(ctx, "balances", addr)
}

// StoredValue 返回合约中保存的值
func (e *Env) StoredValue(ctx context.Context) (*uint256.Int, error) {
	return e.Contract.CallUint(ctx, "value")
}
