package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/virtue186/fortesting/api"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/mempool"
	"github.com/virtue186/fortesting/types"
	"golang.org/x/sync/errgroup"
)

// Node 把链、交易池、sealer 和 API 组装在一起
type Node struct {
	logger    log.Logger
	storage   core.Storage
	chain     *core.BlockChain
	txPool    *mempool.TxPool
	sealer    *Sealer
	apiServer *api.APIServer
}

type NodeOpts struct {
	Logger     log.Logger
	Storage    core.Storage   // 为空时使用内存存储
	Registry   *core.Registry // 必需
	Genesis    *core.Genesis  // 必需
	PrivateKey *crypto.PrivateKey
	BlockTime  time.Duration
	AutoMine   bool
	// APIListenAddr 为空时不启动 API 服务
	APIListenAddr string
}

func NewNode(opts NodeOpts) (*Node, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("contract registry cannot be nil")
	}
	if opts.Genesis == nil {
		return nil, fmt.Errorf("genesis cannot be nil")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Storage == nil {
		opts.Storage = core.NewMemoryStorage()
	}
	if opts.PrivateKey == nil {
		key := crypto.GeneratePrivateKey()
		opts.PrivateKey = &key
	}

	chain, err := core.NewBlockChain(log.With(opts.Logger, "module", "chain"), opts.Storage, opts.Registry, opts.Genesis)
	if err != nil {
		return nil, err
	}
	txPool := mempool.NewTxPool()
	sealer, err := NewSealer(SealerOpts{
		Logger:     log.With(opts.Logger, "module", "sealer"),
		BlockTime:  opts.BlockTime,
		AutoMine:   opts.AutoMine,
		PrivateKey: opts.PrivateKey,
		BlockChain: chain,
		TxPool:     txPool,
	})
	if err != nil {
		return nil, err
	}

	n := &Node{
		logger:  opts.Logger,
		storage: opts.Storage,
		chain:   chain,
		txPool:  txPool,
		sealer:  sealer,
	}
	if opts.APIListenAddr != "" {
		n.apiServer = api.NewAPIServer(opts.APIListenAddr, log.With(opts.Logger, "module", "api"), n)
	}
	return n, nil
}

// Start 启动 sealer 和 API，阻塞直到 ctx 被取消或其中之一出错
func (n *Node) Start(ctx context.Context) error {
	n.logger.Log("msg", "starting node...", "height", n.chain.Height())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return n.sealer.Start(ctx)
	})
	if n.apiServer != nil {
		g.Go(func() error {
			return n.apiServer.Run(ctx)
		})
	}
	return g.Wait()
}

func (n *Node) Close() error {
	return n.storage.Close()
}

func (n *Node) Chain() *core.BlockChain {
	return n.chain
}

func (n *Node) Sealer() *Sealer {
	return n.sealer
}

// APIServer 未配置监听地址时为 nil
func (n *Node) APIServer() *api.APIServer {
	return n.apiServer
}

func (n *Node) Account(_ context.Context, addr types.Address) (*core.AccountState, error) {
	return n.chain.Account(addr)
}

// PendingNonce 返回 addr 下一笔交易应使用的 nonce，包括池中尚未打包的交易
func (n *Node) PendingNonce(_ context.Context, addr types.Address) (uint64, error) {
	n.sealer.lock.Lock()
	defer n.sealer.lock.Unlock()
	return n.pendingNonce(addr)
}

func (n *Node) pendingNonce(addr types.Address) (uint64, error) {
	acc, err := n.chain.Account(addr)
	if err != nil {
		return 0, err
	}
	return acc.Nonce + uint64(n.txPool.CountFrom(addr)), nil
}

// SendTransaction 校验交易并放入交易池
func (n *Node) SendTransaction(_ context.Context, tx *core.Transaction) (types.Hash, error) {
	hash := tx.Hash(core.TxHasher{})

	n.sealer.lock.Lock()
	defer n.sealer.lock.Unlock()

	if n.txPool.Has(hash) {
		return hash, mempool.ErrAlreadyKnown
	}
	if err := tx.Verify(); err != nil {
		return hash, err
	}
	from := tx.Sender()
	if n.txPool.CountFrom(from) == 0 {
		// 没有排队的交易时可以直接对照已确认状态做完整校验
		if err := n.chain.ValidateTransaction(tx); err != nil {
			return hash, err
		}
	} else {
		pending, err := n.pendingNonce(from)
		if err != nil {
			return hash, err
		}
		if tx.Nonce < pending {
			return hash, fmt.Errorf("%w: expected %d, got %d", core.ErrNonceTooLow, pending, tx.Nonce)
		}
		if tx.Nonce > pending {
			return hash, fmt.Errorf("%w: expected %d, got %d", core.ErrNonceTooHigh, pending, tx.Nonce)
		}
	}

	tx.SetFirstSeen(time.Now().UnixNano())
	if err := n.txPool.Add(tx); err != nil {
		return hash, err
	}
	submittedTxs.Inc()
	n.logger.Log(
		"msg", "adding new tx to mempool",
		"hash", hash,
		"mempoolPending", n.txPool.Len(),
	)
	n.sealer.Trigger()
	return hash, nil
}

func (n *Node) Receipt(_ context.Context, hash types.Hash) (*core.Receipt, error) {
	return n.chain.Receipt(hash)
}

// WaitForReceipt 阻塞直到交易被打包或 ctx 结束
func (n *Node) WaitForReceipt(ctx context.Context, hash types.Hash) (*core.Receipt, error) {
	for {
		updated := n.chain.Updated()
		r, err := n.chain.Receipt(hash)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-updated:
		}
	}
}

func (n *Node) Call(_ context.Context, from, to types.Address, data []byte) ([]byte, error) {
	return n.chain.Call(from, to, data)
}

func (n *Node) Height(_ context.Context) (uint32, error) {
	return n.chain.Height(), nil
}
