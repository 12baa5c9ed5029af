package mempool

import (
	"errors"
	"sort"
	"sync"

	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/types"
)

var ErrAlreadyKnown = errors.New("transaction already in pool")

type TxPool struct {
	lock         sync.RWMutex
	transactions map[types.Hash]*core.Transaction
}

func NewTxPool() *TxPool {
	return &TxPool{
		transactions: make(map[types.Hash]*core.Transaction),
	}
}

func (p *TxPool) Len() int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return len(p.transactions)
}

func (p *TxPool) Add(tx *core.Transaction) error {
	hash := tx.Hash(core.TxHasher{})

	p.lock.Lock()
	defer p.lock.Unlock()
	if _, ok := p.transactions[hash]; ok {
		return ErrAlreadyKnown
	}
	p.transactions[hash] = tx
	return nil
}

func (p *TxPool) Has(hash types.Hash) bool {
	p.lock.RLock()
	defer p.lock.RUnlock()
	_, ok := p.transactions[hash]
	return ok
}

// Remove 删除已打包或被丢弃的交易
func (p *TxPool) Remove(txx ...*core.Transaction) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, tx := range txx {
		delete(p.transactions, tx.Hash(core.TxHasher{}))
	}
}

func (p *TxPool) Flush() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.transactions = make(map[types.Hash]*core.Transaction)
}

// CountFrom 返回池中来自 addr 的交易数，用于计算待定 nonce
func (p *TxPool) CountFrom(addr types.Address) int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	n := 0
	for _, tx := range p.transactions {
		if tx.Sender() == addr {
			n++
		}
	}
	return n
}

type TxMapSorter struct {
	transaction []*core.Transaction
}

func NewTxMapSorter(txMap map[types.Hash]*core.Transaction) *TxMapSorter {
	txx := make([]*core.Transaction, 0, len(txMap))
	for _, tx := range txMap {
		txx = append(txx, tx)
	}
	s := &TxMapSorter{txx}
	sort.Sort(s)
	return s
}

func (s *TxMapSorter) Len() int {
	return len(s.transaction)
}

func (s *TxMapSorter) Swap(i, j int) {
	s.transaction[i], s.transaction[j] = s.transaction[j], s.transaction[i]
}

// Less 按首次出现时间排序；同一发送方的交易总是按 nonce 排序
func (s *TxMapSorter) Less(i, j int) bool {
	a, b := s.transaction[i], s.transaction[j]
	if a.Sender() == b.Sender() {
		return a.Nonce < b.Nonce
	}
	return a.GetFirstSeen() < b.GetFirstSeen()
}

// Pending 返回按顺序排列的全部待打包交易
func (p *TxPool) Pending() []*core.Transaction {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return NewTxMapSorter(p.transactions).transaction
}
