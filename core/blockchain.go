package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-kit/log"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/types"
)

const receiptCacheSize = 1024

type BlockChain struct {
	logger    log.Logger
	store     Storage
	registry  *Registry
	headers   []*Header
	validator Validator
	lock      sync.RWMutex
	receipts  *lru.Cache
	// updated 在每个新区块落盘后被关闭并替换
	updated chan struct{}
}

func NewBlockChain(logger log.Logger, storage Storage, registry *Registry, genesis *Genesis) (*BlockChain, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	cache, err := lru.New(receiptCacheSize)
	if err != nil {
		return nil, err
	}
	bc := &BlockChain{
		headers:  []*Header{},
		store:    storage,
		registry: registry,
		logger:   logger,
		receipts: cache,
		updated:  make(chan struct{}),
	}
	bc.validator = NewBlockValidator(bc)
	// 从数据库加载现有的区块头
	if err := bc.loadHeaders(); err != nil {
		// 数据库是空的，写入创世块
		if errors.Is(err, errEmptyDatabase) {
			bc.logger.Log("msg", "database empty, adding genesis block", "alloc", len(genesis.Alloc))
			return bc, bc.writeGenesis(genesis)
		}
		return nil, err
	}

	return bc, nil
}

var errEmptyDatabase = errors.New("database is empty")

// loadHeaders 从数据库加载所有区块头到内存中
func (bc *BlockChain) loadHeaders() error {
	var height uint32 = 0
	for {
		hash, err := bc.getBlockHashByHeight(height)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			// 如果在高度0都找不到哈希，说明数据库是空的
			if height == 0 {
				return errEmptyDatabase
			}
			// 否则，说明已到达最高高度
			break
		}

		block, err := bc.getBlockByHash(hash)
		if err != nil {
			return err
		}

		bc.headers = append(bc.headers, block.Header)
		height++
	}

	bc.logger.Log("msg", "loaded headers from disk", "count", len(bc.headers))
	return nil
}

func (bc *BlockChain) writeGenesis(g *Genesis) error {
	state := NewState(bc.store)
	if err := g.apply(state); err != nil {
		return err
	}
	block := g.Block()
	batch := bc.store.NewBatch()
	state.Flush(batch)
	if err := putBlock(batch, block); err != nil {
		return err
	}
	if err := bc.store.Write(batch); err != nil {
		return err
	}
	bc.headers = append(bc.headers, block.Header)
	return nil
}

func (bc *BlockChain) SetValidator(v Validator) {
	bc.lock.Lock()
	defer bc.lock.Unlock()
	bc.validator = v
}

func (bc *BlockChain) Height() uint32 {
	bc.lock.RLock()
	defer bc.lock.RUnlock()

	return bc.height()
}

func (bc *BlockChain) height() uint32 {
	return uint32(len(bc.headers) - 1)
}

func (bc *BlockChain) header(height uint32) *Header {
	return bc.headers[height]
}

func (h *Header) hash() types.Hash {
	return BlockHasher{}.Hash(h)
}

func (bc *BlockChain) GetHeader(height uint32) (*Header, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()

	if height > bc.height() {
		return nil, fmt.Errorf("given height (%d) too high", height)
	}
	return bc.headers[height], nil
}

// CurrentHeader 返回最新区块头
func (bc *BlockChain) CurrentHeader() *Header {
	bc.lock.RLock()
	defer bc.lock.RUnlock()

	return bc.headers[len(bc.headers)-1]
}

func (bc *BlockChain) GetBlock(height uint32) (*Block, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()

	if height > bc.height() {
		return nil, fmt.Errorf("block %d: %w", height, ErrNotFound)
	}
	hash, err := bc.getBlockHashByHeight(height)
	if err != nil {
		return nil, err
	}
	return bc.getBlockByHash(hash)
}

// Updated 返回一个在下一个区块落盘时被关闭的 channel
func (bc *BlockChain) Updated() <-chan struct{} {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.updated
}

// Account 返回已确认状态下的账户
func (bc *BlockChain) Account(addr types.Address) (*AccountState, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return NewState(bc.store).Get(addr)
}

// Receipt 按交易哈希查找回执，尚未上链时返回 ErrNotFound
func (bc *BlockChain) Receipt(hash types.Hash) (*Receipt, error) {
	if r, ok := bc.receipts.Get(hash); ok {
		return r.(*Receipt), nil
	}
	data, err := bc.store.Get(receiptKey(hash))
	if err != nil {
		return nil, err
	}
	r, err := DecodeReceipt(data)
	if err != nil {
		return nil, err
	}
	bc.receipts.Add(hash, r)
	return r, nil
}

// Call 以只读方式执行合约方法，不产生任何持久化修改
func (bc *BlockChain) Call(from, to types.Address, data []byte) ([]byte, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()

	res := NewVM(bc.registry, NewState(bc.store)).Call(from, to, new(uint256.Int), data, true)
	return res.Return, res.Err
}

// ValidateTransaction 检查交易能否在当前状态之上执行
func (bc *BlockChain) ValidateTransaction(tx *Transaction) error {
	bc.lock.RLock()
	defer bc.lock.RUnlock()

	return bc.checkTransaction(NewState(bc.store), tx)
}

func (bc *BlockChain) checkTransaction(state *State, tx *Transaction) error {
	if err := tx.Verify(); err != nil {
		return err
	}
	sender, err := state.Get(tx.Sender())
	if err != nil {
		return err
	}
	if tx.Nonce < sender.Nonce {
		return fmt.Errorf("%w: expected %d, got %d", ErrNonceTooLow, sender.Nonce, tx.Nonce)
	}
	if tx.Nonce > sender.Nonce {
		return fmt.Errorf("%w: expected %d, got %d", ErrNonceTooHigh, sender.Nonce, tx.Nonce)
	}
	if sender.Balance.Lt(&tx.Value) {
		return fmt.Errorf("%w: have %s, want %s", ErrInsufficientFunds,
			types.FormatAmount(&sender.Balance), types.FormatAmount(&tx.Value))
	}
	if tx.IsDeploy() {
		code, _, err := ParseDeployData(tx.Data)
		if err != nil {
			return err
		}
		if _, ok := bc.registry.Get(code); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCode, code)
		}
	}
	return nil
}

// SelectExecutable 按顺序试执行交易，返回可以打包的和应当丢弃的
func (bc *BlockChain) SelectExecutable(txx []*Transaction) (valid, invalid []*Transaction) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()

	state := NewState(bc.store)
	for _, tx := range txx {
		if _, err := bc.applyTransaction(state, tx); err != nil {
			bc.logger.Log("msg", "dropping unexecutable transaction", "hash", tx.Hash(TxHasher{}), "err", err)
			invalid = append(invalid, tx)
			continue
		}
		valid = append(valid, tx)
	}
	return valid, invalid
}

// AddBlock 校验并执行区块，状态、区块和回执在同一个批处理中原子写入
func (bc *BlockChain) AddBlock(b *Block) error {
	bc.lock.Lock()
	defer bc.lock.Unlock()

	if err := bc.validator.ValidateBlock(b); err != nil {
		return err
	}
	state := NewState(bc.store)
	receipts, err := bc.applyBlock(state, b)
	if err != nil {
		// 如果交易应用失败，这是一个严重的共识错误，不应添加此区块
		return fmt.Errorf("failed to apply block: %w", err)
	}

	batch := bc.store.NewBatch()
	state.Flush(batch)
	if err := putBlock(batch, b); err != nil {
		return err
	}
	for _, r := range receipts {
		data, err := r.Encode()
		if err != nil {
			return err
		}
		batch.Put(receiptKey(r.TxHash), data)
	}
	if err := bc.store.Write(batch); err != nil {
		return err
	}

	bc.headers = append(bc.headers, b.Header)
	for _, r := range receipts {
		bc.receipts.Add(r.TxHash, r)
	}
	close(bc.updated)
	bc.updated = make(chan struct{})

	bc.logger.Log(
		"msg", "add block",
		"hash", b.Hash(BlockHasher{}),
		"height", b.Height,
		"transaction", len(b.Transactions),
	)
	return nil
}

func (bc *BlockChain) applyBlock(state *State, b *Block) ([]*Receipt, error) {
	blockHash := b.Hash(BlockHasher{})
	receipts := make([]*Receipt, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		r, err := bc.applyTransaction(state, tx)
		if err != nil {
			return nil, err
		}
		r.BlockHash = blockHash
		r.BlockHeight = b.Height
		receipts = append(receipts, r)
	}
	return receipts, nil
}

// applyTransaction 是状态转换的核心函数。
// 返回错误表示交易本身无效；合约执行失败不是错误，而是记录在回执里。
func (bc *BlockChain) applyTransaction(state *State, tx *Transaction) (*Receipt, error) {
	if err := bc.checkTransaction(state, tx); err != nil {
		return nil, err
	}
	senderAddr := tx.Sender()
	sender, err := state.Get(senderAddr)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		TxHash: tx.Hash(TxHasher{}),
		From:   senderAddr,
		To:     tx.To,
		Status: ReceiptSuccess,
	}

	// nonce 的递增在回滚时保留
	deployNonce := sender.Nonce
	sender.Nonce++
	if err := state.Put(senderAddr, sender); err != nil {
		return nil, err
	}

	vm := NewVM(bc.registry, state)
	snap := state.Snapshot()
	var res ExecResult
	switch {
	case tx.IsDeploy():
		addr := ContractAddress(senderAddr, deployNonce)
		receipt.ContractAddress = addr
		res = vm.Deploy(senderAddr, addr, &tx.Value, tx.Data)
	default:
		res = bc.applyCall(state, vm, senderAddr, *tx.To, &tx.Value, tx.Data)
	}

	if res.Err != nil {
		state.RevertToSnapshot(snap)
		receipt.Status = ReceiptReverted
		if reason, ok := RevertReason(res.Err); ok {
			receipt.RevertReason = reason
		} else {
			receipt.RevertReason = res.Err.Error()
		}
		bc.logger.Log("msg", "transaction reverted", "hash", receipt.TxHash, "from", senderAddr, "reason", receipt.RevertReason)
		return receipt, nil
	}

	receipt.Return = res.Return
	receipt.Logs = res.Logs
	bc.logger.Log("msg", "transaction applied", "hash", receipt.TxHash, "from", senderAddr, "to", tx.To, "value", types.FormatAmount(&tx.Value), "logs", len(res.Logs))
	return receipt, nil
}

// applyCall 先转入 value，目标是合约时再执行方法
func (bc *BlockChain) applyCall(state *State, vm *VM, from, to types.Address, value *uint256.Int, data []byte) ExecResult {
	if err := transfer(state, from, to, value); err != nil {
		return ExecResult{Err: err}
	}
	acc, err := state.Get(to)
	if err != nil {
		return ExecResult{Err: err}
	}
	if !acc.IsContract() {
		return ExecResult{}
	}
	return vm.Call(from, to, value, data, false)
}

func putBlock(batch Batch, block *Block) error {
	data, err := gobBytes(block)
	if err != nil {
		return err
	}
	blockHash := block.Hash(BlockHasher{})
	batch.Put(blockHeightKey(block.Height), blockHash.ToSlice())
	batch.Put(blockKey(blockHash), data)
	return nil
}

// getBlockByHash 根据区块哈希从数据库中获取区块
func (bc *BlockChain) getBlockByHash(hash types.Hash) (*Block, error) {
	data, err := bc.store.Get(blockKey(hash))
	if err != nil {
		return nil, err
	}
	return DecodeBlock(data)
}

// getBlockHashByHeight 根据区块高度从数据库中获取区块哈希
func (bc *BlockChain) getBlockHashByHeight(height uint32) (types.Hash, error) {
	data, err := bc.store.Get(blockHeightKey(height))
	if err != nil {
		return types.Hash{}, err
	}
	return types.HashFromBytes(data), nil
}
