package chaintest

import (
	"context"

	"github.com/go-kit/log"
	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/node"
	"github.com/virtue186/fortesting/types"
)

// DevBalance 是模拟链上每个开发账户的初始余额
var DevBalance = types.Ether(1000)

// Simulated 是在当前进程内运行的自动出块链
type Simulated struct {
	*node.Node
	cancel context.CancelFunc
	done   chan error
}

// NewSimulated 启动一条内存链，前 accounts 个开发账户在创世块中各有 DevBalance
func NewSimulated(logger log.Logger, registry *core.Registry, accounts int) (*Simulated, error) {
	alloc := make(map[types.Address]*uint256.Int, accounts)
	for i := 0; i < accounts; i++ {
		alloc[crypto.DevKey(i).PublicKey().Address()] = new(uint256.Int).Set(DevBalance)
	}
	n, err := node.NewNode(node.NodeOpts{
		Logger:   logger,
		Registry: registry,
		Genesis:  &core.Genesis{Alloc: alloc},
		AutoMine: true,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Simulated{Node: n, cancel: cancel, done: make(chan error, 1)}
	go func() {
		s.done <- n.Start(ctx)
	}()
	return s, nil
}

// Close 停止出块并释放存储
func (s *Simulated) Close() error {
	s.cancel()
	if err := <-s.done; err != nil {
		s.Node.Close()
		return err
	}
	return s.Node.Close()
}
