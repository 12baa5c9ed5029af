package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/mempool"
)

type SealerOpts struct {
	Logger     log.Logger         // 可选
	BlockTime  time.Duration      // 可选，仅在非 AutoMine 模式下使用
	AutoMine   bool               // 每收到一笔交易立即出块
	PrivateKey *crypto.PrivateKey // 必需
	BlockChain *core.BlockChain   // 必需
	TxPool     *mempool.TxPool    // 必需
}

// Sealer 从交易池取出交易并打包成区块
type Sealer struct {
	logger     log.Logger
	blockTime  time.Duration
	autoMine   bool
	privateKey crypto.PrivateKey
	blockChain *core.BlockChain
	txPool     *mempool.TxPool
	trigger    chan struct{}

	// lock 保证"出块 + 清理交易池"与交易提交互斥，待定 nonce 才不会算错
	lock sync.Mutex
}

func NewSealer(opts SealerOpts) (*Sealer, error) {
	if opts.BlockChain == nil {
		return nil, fmt.Errorf("blockchain dependency cannot be nil")
	}
	if opts.TxPool == nil {
		return nil, fmt.Errorf("transaction pool dependency cannot be nil")
	}
	if opts.PrivateKey == nil {
		return nil, fmt.Errorf("sealer private key cannot be nil")
	}

	// 为可选参数设置默认值
	if opts.BlockTime == 0 {
		opts.BlockTime = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}

	return &Sealer{
		logger:     opts.Logger,
		blockTime:  opts.BlockTime,
		autoMine:   opts.AutoMine,
		privateKey: *opts.PrivateKey,
		blockChain: opts.BlockChain,
		txPool:     opts.TxPool,
		trigger:    make(chan struct{}, 1),
	}, nil
}

// Trigger 通知 sealer 有新交易，不会阻塞
func (s *Sealer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Start 运行出块循环直到 ctx 被取消
func (s *Sealer) Start(ctx context.Context) error {
	var tick <-chan time.Time
	if !s.autoMine {
		ticker := time.NewTicker(s.blockTime)
		defer ticker.Stop()
		tick = ticker.C
	}
	s.logger.Log("msg", "starting sealer", "autoMine", s.autoMine, "blockTime", s.blockTime)

	for {
		select {
		case <-ctx.Done():
			s.logger.Log("msg", "sealer stopped")
			return nil
		case <-tick:
		case <-s.trigger:
			if s.txPool.Len() == 0 {
				continue
			}
		}
		if _, err := s.SealBlock(); err != nil {
			s.logger.Log("msg", "failed to create new block", "err", err)
		}
	}
}

// SealBlock 用交易池中当前可执行的交易打包一个新区块
func (s *Sealer) SealBlock() (*core.Block, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	valid, invalid := s.blockChain.SelectExecutable(s.txPool.Pending())
	if len(invalid) > 0 {
		s.txPool.Remove(invalid...)
		droppedTxs.Add(float64(len(invalid)))
	}

	block := core.NewBlockFromPreHeader(s.blockChain.CurrentHeader(), valid)
	if err := block.Sign(s.privateKey); err != nil {
		return nil, err
	}
	if err := s.blockChain.AddBlock(block); err != nil {
		return nil, err
	}
	s.txPool.Remove(valid...)

	updateBlockMetrics(block)
	s.logger.Log("msg", "sealed new block", "height", block.Height, "txs", len(valid), "hash", block.Hash(core.BlockHasher{}).Short())
	return block, nil
}
