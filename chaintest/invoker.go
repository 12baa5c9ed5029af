package chaintest

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/types"
)

// ContractInvoker 以固定的身份调用某个已部署的合约
type ContractInvoker struct {
	*Executor
	Address types.Address
	ABI     *core.ABI
	Signer  Signer
}

// Event 是解码后的事件
type Event struct {
	Name string
	Args []any
}

// WithSigner 返回以 s 为调用者的新 invoker
func (c *ContractInvoker) WithSigner(s Signer) *ContractInvoker {
	cc := *c
	cc.Signer = s
	return &cc
}

// Invoke 发送一笔调用交易并等待回执
func (c *ContractInvoker) Invoke(ctx context.Context, method string, args ...any) (*core.Receipt, error) {
	return c.InvokeWithValue(ctx, nil, method, args...)
}

// InvokeWithValue 同 Invoke，并随调用转入 value
func (c *ContractInvoker) InvokeWithValue(ctx context.Context, value *uint256.Int, method string, args ...any) (*core.Receipt, error) {
	data, err := c.ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	return c.SendTx(ctx, c.Signer, core.NewCallTransaction(0, c.Address, value, data))
}

// Call 以只读方式调用方法并解码返回值
func (c *ContractInvoker) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	ret, err := c.Backend.Call(ctx, c.Signer.Address(), c.Address, data)
	if err != nil {
		return nil, err
	}
	return c.ABI.UnpackOutputs(method, ret)
}

func (c *ContractInvoker) CallUint(ctx context.Context, method string, args ...any) (*uint256.Int, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(out))
	}
	v, ok := out[0].(*uint256.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, not uint256", method, out[0])
	}
	return v, nil
}

func (c *ContractInvoker) CallAddress(ctx context.Context, method string, args ...any) (types.Address, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return types.Address{}, err
	}
	if len(out) != 1 {
		return types.Address{}, fmt.Errorf("%s returned %d values", method, len(out))
	}
	v, ok := out[0].(types.Address)
	if !ok {
		return types.Address{}, fmt.Errorf("%s returned %T, not address", method, out[0])
	}
	return v, nil
}

// Events 解码回执中由本合约产生的事件，其他合约的日志被忽略
func (c *ContractInvoker) Events(r *core.Receipt) ([]Event, error) {
	events := make([]Event, 0, len(r.Logs))
	for _, l := range r.Logs {
		if l.Address != c.Address {
			continue
		}
		e, args, err := c.ABI.DecodeLog(l)
		if err != nil {
			return nil, err
		}
		events = append(events, Event{Name: e.Name, Args: args})
	}
	return events, nil
}
