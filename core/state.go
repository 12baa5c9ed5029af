package core

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/types"
)

// AccountState 是一个地址在链上的全部状态，合约的存储槽另外保存
type AccountState struct {
	Address types.Address
	Balance uint256.Int // 余额 (wei)
	Nonce   uint64      // 已执行的交易数
	Code    string      // 合约代码名，普通账户为空
}

func (a *AccountState) IsContract() bool {
	return a.Code != ""
}

// State 是持久化存储之上的一层写缓存。
// 所有修改先进入 dirty，并记录在 journal 中以便回滚到任意快照；
// 只有 Flush 才会把修改写进批处理。State 不是并发安全的。
type State struct {
	storage Storage
	dirty   map[string]*stateEntry
	journal []journalEntry
}

type stateEntry struct {
	value   []byte
	deleted bool
}

type journalEntry struct {
	key  string
	prev *stateEntry // nil 表示修改前 dirty 中没有此键
}

// NewState 创建一个新的 State 实例
func NewState(s Storage) *State {
	return &State{
		storage: s,
		dirty:   make(map[string]*stateEntry),
	}
}

func (s *State) get(key []byte) ([]byte, bool, error) {
	if e, ok := s.dirty[string(key)]; ok {
		if e.deleted {
			return nil, false, nil
		}
		return e.value, true, nil
	}
	v, err := s.storage.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

func (s *State) set(key []byte, e *stateEntry) {
	k := string(key)
	s.journal = append(s.journal, journalEntry{key: k, prev: s.dirty[k]})
	s.dirty[k] = e
}

// Snapshot 返回当前修改日志的位置
func (s *State) Snapshot() int {
	return len(s.journal)
}

// RevertToSnapshot 撤销快照之后的全部修改
func (s *State) RevertToSnapshot(id int) {
	for i := len(s.journal) - 1; i >= id; i-- {
		e := s.journal[i]
		if e.prev == nil {
			delete(s.dirty, e.key)
		} else {
			s.dirty[e.key] = e.prev
		}
	}
	s.journal = s.journal[:id]
}

// Flush 将所有修改写入批处理，之后 journal 被清空
func (s *State) Flush(b Batch) {
	for k, e := range s.dirty {
		if e.deleted {
			b.Delete([]byte(k))
		} else {
			b.Put([]byte(k), e.value)
		}
	}
	s.journal = s.journal[:0]
}

// Put 将一个账户的状态写入缓存
func (s *State) Put(addr types.Address, state *AccountState) error {
	data, err := gobBytes(state)
	if err != nil {
		return err
	}
	s.set(accountKey(addr), &stateEntry{value: data})
	return nil
}

// Get 获取一个账户的状态。
// 不存在的账户返回零值账户，每个地址都“存在”，只是可能是空的
func (s *State) Get(addr types.Address) (*AccountState, error) {
	data, ok, err := s.get(accountKey(addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return &AccountState{Address: addr}, nil
	}
	acc := new(AccountState)
	if err := fromGobBytes(data, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// GetSlot 读取合约存储槽，不存在时返回 nil
func (s *State) GetSlot(contract types.Address, key []byte) ([]byte, error) {
	v, _, err := s.get(slotKey(contract, key))
	return v, err
}

// SetSlot 写入合约存储槽，空值等价于删除
func (s *State) SetSlot(contract types.Address, key, value []byte) {
	if len(value) == 0 {
		s.set(slotKey(contract, key), &stateEntry{deleted: true})
		return
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.set(slotKey(contract, key), &stateEntry{value: v})
}
