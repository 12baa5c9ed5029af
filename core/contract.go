package core

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/types"
)

// Contract 是以 Go 实现的原生合约。
// 返回的任何错误都会使本次调用回滚；用 Revert 给出可读的原因。
type Contract interface {
	ABI() *ABI
	Construct(ctx *Context, args []any) error
	Invoke(ctx *Context, method *Method, args []any) ([]any, error)
}

// Registry 保存可部署的合约代码，按代码名索引
type Registry struct {
	lock      sync.RWMutex
	contracts map[string]Contract
}

func NewRegistry() *Registry {
	return &Registry{contracts: make(map[string]Contract)}
}

// Register 在名称无法写入部署数据时 panic
func (r *Registry) Register(code string, c Contract) {
	if err := ValidateCodeName(code); err != nil {
		panic(err)
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.contracts[code] = c
}

func (r *Registry) Get(code string) (Contract, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	c, ok := r.contracts[code]
	return c, ok
}

// Context 是合约一次执行所见的环境
type Context struct {
	Caller types.Address
	Self   types.Address
	Value  *uint256.Int
	Static bool

	state *State
	abi   *ABI
	logs  []*Log
}

func (c *Context) Get(key []byte) ([]byte, error) {
	return c.state.GetSlot(c.Self, key)
}

func (c *Context) Put(key, value []byte) error {
	if c.Static {
		return ErrWriteProtection
	}
	c.state.SetSlot(c.Self, key, value)
	return nil
}

// GetUint 读取一个 uint256 槽，不存在时为 0
func (c *Context) GetUint(key []byte) (*uint256.Int, error) {
	v, err := c.Get(key)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(v), nil
}

func (c *Context) PutUint(key []byte, v *uint256.Int) error {
	if v.IsZero() {
		return c.Put(key, nil)
	}
	return c.Put(key, v.Bytes())
}

func (c *Context) GetAddress(key []byte) (types.Address, error) {
	v, err := c.Get(key)
	if err != nil || len(v) == 0 {
		return types.Address{}, err
	}
	if len(v) != 20 {
		return types.Address{}, fmt.Errorf("slot %x does not hold an address", key)
	}
	return types.AddressFromBytes(v), nil
}

func (c *Context) PutAddress(key []byte, addr types.Address) error {
	return c.Put(key, addr.ToSlice())
}

// Emit 记录一个事件，参数按 ABI 中的事件定义编码
func (c *Context) Emit(event string, args ...any) error {
	if c.Static {
		return ErrWriteProtection
	}
	e, ok := c.abi.Events[event]
	if !ok {
		return fmt.Errorf("event %q not declared", event)
	}
	data, err := PackArgs(e.Inputs, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", e.Signature(), err)
	}
	c.logs = append(c.logs, &Log{
		Address: c.Self,
		Event:   e.Name,
		Topics:  []types.Hash{e.Topic()},
		Data:    data,
	})
	return nil
}

// Transfer 从合约账户向 to 转出原生资产
func (c *Context) Transfer(to types.Address, amount *uint256.Int) error {
	if c.Static {
		return ErrWriteProtection
	}
	return transfer(c.state, c.Self, to, amount)
}

func transfer(s *State, from, to types.Address, amount *uint256.Int) error {
	if amount.IsZero() || from == to {
		return nil
	}
	src, err := s.Get(from)
	if err != nil {
		return err
	}
	if src.Balance.Lt(amount) {
		return fmt.Errorf("%w: have %s, want %s", ErrInsufficientFunds,
			types.FormatAmount(&src.Balance), types.FormatAmount(amount))
	}
	dst, err := s.Get(to)
	if err != nil {
		return err
	}
	if _, overflow := dst.Balance.AddOverflow(&dst.Balance, amount); overflow {
		return fmt.Errorf("balance overflow for %s", to)
	}
	src.Balance.Sub(&src.Balance, amount)
	if err := s.Put(from, src); err != nil {
		return err
	}
	return s.Put(to, dst)
}
