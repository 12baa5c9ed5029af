package core

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/types"
)

// VM 在一个 State 之上执行原生合约。
// 每次执行前记录快照，合约返回错误时状态回滚到快照，日志丢弃。
type VM struct {
	registry *Registry
	state    *State
}

func NewVM(registry *Registry, state *State) *VM {
	return &VM{registry: registry, state: state}
}

// ExecResult 是一次执行的结果
type ExecResult struct {
	Return []byte
	Logs   []*Log
	Err    error
}

// ContractAddress 由部署者地址和部署时的 nonce 决定
func ContractAddress(deployer types.Address, nonce uint64) types.Address {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	h := crypto.Keccak256(deployer[:], n[:])
	return types.AddressFromBytes(h[12:])
}

// Deploy 创建合约账户，转入 value 并运行构造函数
func (vm *VM) Deploy(caller, addr types.Address, value *uint256.Int, data []byte) ExecResult {
	snap := vm.state.Snapshot()
	res := vm.deploy(caller, addr, value, data)
	if res.Err != nil {
		vm.state.RevertToSnapshot(snap)
		res.Logs = nil
	}
	return res
}

func (vm *VM) deploy(caller, addr types.Address, value *uint256.Int, data []byte) ExecResult {
	code, rawArgs, err := ParseDeployData(data)
	if err != nil {
		return ExecResult{Err: Revert(err.Error())}
	}
	contract, ok := vm.registry.Get(code)
	if !ok {
		return ExecResult{Err: fmt.Errorf("%w: %s", ErrUnknownCode, code)}
	}
	acc, err := vm.state.Get(addr)
	if err != nil {
		return ExecResult{Err: err}
	}
	if acc.IsContract() {
		return ExecResult{Err: Revert(fmt.Sprintf("contract already deployed at %s", addr))}
	}
	if !value.IsZero() {
		return ExecResult{Err: Revert("constructor is not payable")}
	}
	args, err := UnpackArgs(contract.ABI().Constructor, rawArgs)
	if err != nil {
		return ExecResult{Err: Revert(fmt.Sprintf("invalid constructor arguments: %s", err))}
	}
	acc.Code = code
	if err := vm.state.Put(addr, acc); err != nil {
		return ExecResult{Err: err}
	}
	ctx := &Context{
		Caller: caller,
		Self:   addr,
		Value:  value,
		state:  vm.state,
		abi:    contract.ABI(),
	}
	if err := contract.Construct(ctx, args); err != nil {
		return ExecResult{Err: asRevert(err)}
	}
	return ExecResult{Logs: ctx.logs}
}

// Call 执行一次合约方法调用。value 在调用前已由调用方转入合约账户。
// static 为 true 时任何写操作都会失败。
func (vm *VM) Call(caller, to types.Address, value *uint256.Int, data []byte, static bool) ExecResult {
	snap := vm.state.Snapshot()
	res := vm.call(caller, to, value, data, static)
	if res.Err != nil {
		vm.state.RevertToSnapshot(snap)
		res.Logs = nil
	}
	return res
}

func (vm *VM) call(caller, to types.Address, value *uint256.Int, data []byte, static bool) ExecResult {
	acc, err := vm.state.Get(to)
	if err != nil {
		return ExecResult{Err: err}
	}
	if !acc.IsContract() {
		return ExecResult{Err: fmt.Errorf("%w: %s", ErrNotContract, to)}
	}
	contract, ok := vm.registry.Get(acc.Code)
	if !ok {
		return ExecResult{Err: fmt.Errorf("%w: %s", ErrUnknownCode, acc.Code)}
	}
	abi := contract.ABI()
	method, rawArgs, err := abi.MethodByCalldata(data)
	if err != nil {
		return ExecResult{Err: Revert(err.Error())}
	}
	if !value.IsZero() && !method.Payable {
		return ExecResult{Err: Revert(fmt.Sprintf("%s is not payable", method.Name))}
	}
	args, err := UnpackArgs(method.Inputs, rawArgs)
	if err != nil {
		return ExecResult{Err: Revert(fmt.Sprintf("invalid arguments for %s: %s", method.Signature(), err))}
	}
	ctx := &Context{
		Caller: caller,
		Self:   to,
		Value:  value,
		Static: static || method.View,
		state:  vm.state,
		abi:    abi,
	}
	out, err := contract.Invoke(ctx, method, args)
	if err != nil {
		return ExecResult{Err: asRevert(err)}
	}
	ret, err := PackArgs(method.Outputs, out...)
	if err != nil {
		return ExecResult{Err: fmt.Errorf("%s returned bad outputs: %w", method.Name, err)}
	}
	return ExecResult{Return: ret, Logs: ctx.logs}
}

// asRevert 把合约返回的普通错误统一包装为 RevertError
func asRevert(err error) error {
	if errors.Is(err, ErrReverted) {
		return err
	}
	return Revert(err.Error())
}
