// Package fortesting implements the ForTesting contract: an owner-guarded
// stored value and a per-caller balance ledger funded by deposits.
package fortesting

import (
	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/types"
)

// Code is the name the contract is registered and deployed under.
const Code = "ForTesting"

// Revert reasons.
const (
	ReasonNotOwner            = "caller is not the owner"
	ReasonInsufficientBalance = "insufficient balance"
	ReasonZeroDeposit         = "deposit amount must be positive"
)

var (
	ownerSlot   = []byte("owner")
	valueSlot   = []byte("value")
	balancesKey = []byte("balances/")
)

var abi = core.NewABI(
	nil,
	[]*core.Method{
		{Name: "owner", Outputs: []core.ArgType{core.TypeAddress}, View: true},
		{Name: "value", Outputs: []core.ArgType{core.TypeUint256}, View: true},
		{Name: "balances", Inputs: []core.ArgType{core.TypeAddress}, Outputs: []core.ArgType{core.TypeUint256}, View: true},
		{Name: "setValue", Inputs: []core.ArgType{core.TypeUint256}},
		{Name: "deposit", Payable: true},
		{Name: "withdraw", Inputs: []core.ArgType{core.TypeUint256}},
	},
	[]*core.Event{
		{Name: "ValueChanged", Inputs: []core.ArgType{core.TypeUint256}},
		{Name: "Deposited", Inputs: []core.ArgType{core.TypeAddress, core.TypeUint256}},
		{Name: "Withdrawn", Inputs: []core.ArgType{core.TypeAddress, core.TypeUint256}},
	},
)

// ABI returns the contract interface shared by every instance.
func ABI() *core.ABI {
	return abi
}

type Contract struct{}

func New() *Contract {
	return &Contract{}
}

// Register adds the contract to r under Code.
func Register(r *core.Registry) {
	r.Register(Code, New())
}

func (c *Contract) ABI() *core.ABI {
	return abi
}

// Construct records the deployer as owner.
func (c *Contract) Construct(ctx *core.Context, _ []any) error {
	return ctx.PutAddress(ownerSlot, ctx.Caller)
}

func (c *Contract) Invoke(ctx *core.Context, m *core.Method, args []any) ([]any, error) {
	switch m.Name {
	case "owner":
		owner, err := ctx.GetAddress(ownerSlot)
		return []any{owner}, err
	case "value":
		v, err := ctx.GetUint(valueSlot)
		return []any{v}, err
	case "balances":
		bal, err := ctx.GetUint(balanceKey(args[0].(types.Address)))
		return []any{bal}, err
	case "setValue":
		return nil, c.setValue(ctx, args[0].(*uint256.Int))
	case "deposit":
		return nil, c.deposit(ctx)
	case "withdraw":
		return nil, c.withdraw(ctx, args[0].(*uint256.Int))
	}
	return nil, core.Revert("unknown method " + m.Name)
}

func (c *Contract) setValue(ctx *core.Context, v *uint256.Int) error {
	if err := onlyOwner(ctx); err != nil {
		return err
	}
	if err := ctx.PutUint(valueSlot, v); err != nil {
		return err
	}
	return ctx.Emit("ValueChanged", v)
}

func (c *Contract) deposit(ctx *core.Context) error {
	if ctx.Value.IsZero() {
		return core.Revert(ReasonZeroDeposit)
	}
	key := balanceKey(ctx.Caller)
	bal, err := ctx.GetUint(key)
	if err != nil {
		return err
	}
	if _, overflow := bal.AddOverflow(bal, ctx.Value); overflow {
		return core.Revert("balance overflow")
	}
	if err := ctx.PutUint(key, bal); err != nil {
		return err
	}
	return ctx.Emit("Deposited", ctx.Caller, ctx.Value)
}

func (c *Contract) withdraw(ctx *core.Context, amount *uint256.Int) error {
	if err := onlyOwner(ctx); err != nil {
		return err
	}
	key := balanceKey(ctx.Caller)
	bal, err := ctx.GetUint(key)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return core.Revert(ReasonInsufficientBalance)
	}
	bal.Sub(bal, amount)
	if err := ctx.PutUint(key, bal); err != nil {
		return err
	}
	if err := ctx.Transfer(ctx.Caller, amount); err != nil {
		return err
	}
	return ctx.Emit("Withdrawn", ctx.Caller, amount)
}

func onlyOwner(ctx *core.Context) error {
	owner, err := ctx.GetAddress(ownerSlot)
	if err != nil {
		return err
	}
	if ctx.Caller != owner {
		return core.Revert(ReasonNotOwner)
	}
	return nil
}

func balanceKey(addr types.Address) []byte {
	return append(append([]byte{}, balancesKey...), addr[:]...)
}
