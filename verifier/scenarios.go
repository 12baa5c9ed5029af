package verifier

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/chaintest"
	"github.com/virtue186/fortesting/contracts/fortesting"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/types"
)

// 场景分组
const (
	GroupOwner      = "owner"
	GroupFunctions  = "functions"
	GroupEvents     = "events"
	GroupProperties = "properties"
)

// Scenarios 返回全部内置场景
func Scenarios() []Scenario {
	return []Scenario{
		{GroupOwner, "deploy sets owner to deployer", ownerIsDeployer},
		{GroupOwner, "setValue is owner-only", setValueOwnerOnly},
		{GroupOwner, "withdraw is owner-only", withdrawOwnerOnly},

		{GroupFunctions, "setValue changes the stored value", setValueChangesValue},
		{GroupFunctions, "balances is zero before any deposit", balancesStartAtZero},
		{GroupFunctions, "deposit increases balance by the sent amount", depositIncreasesBalance},
		{GroupFunctions, "withdraw decreases balance by the amount", withdrawDecreasesBalance},
		{GroupFunctions, "withdraw beyond balance reverts", withdrawBeyondBalance},
		{GroupFunctions, "zero deposit reverts", zeroDepositReverts},
		{GroupFunctions, "deposits are tracked per caller", depositsPerCaller},
		{GroupFunctions, "withdraw returns native value to the owner", withdrawReturnsValue},

		{GroupEvents, "setValue emits ValueChanged", setValueEmits},
		{GroupEvents, "deposit emits Deposited", depositEmits},
		{GroupEvents, "withdraw emits Withdrawn", withdrawEmits},
		{GroupEvents, "reverted call emits nothing", revertEmitsNothing},

		{GroupProperties, "deposit then withdraw one ether", depositWithdrawRoundTrip},
		{GroupProperties, "other withdraw without deposit reverts", otherWithdrawWithoutDeposit},
		{GroupProperties, "other withdraw reverts regardless of ledger", otherWithdrawAnyLedger},
	}
}

// ScenariosInGroup 返回属于 group 的场景
func ScenariosInGroup(group string) []Scenario {
	var out []Scenario
	for _, sc := range Scenarios() {
		if sc.Group == group {
			out = append(out, sc)
		}
	}
	return out
}

func (e *Env) expectLedger(ctx context.Context, check string, addr types.Address, want *uint256.Int) error {
	got, err := e.Ledger(ctx, addr)
	if err != nil {
		return fmt.Errorf("%s: %w", check, err)
	}
	return ExpectUint(check, got, want)
}

func (e *Env) expectValue(ctx context.Context, check string, want *uint256.Int) error {
	got, err := e.StoredValue(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", check, err)
	}
	return ExpectUint(check, got, want)
}

func (e *Env) expectNative(ctx context.Context, check string, addr types.Address, want *uint256.Int) error {
	got, err := e.Executor.Balance(ctx, addr)
	if err != nil {
		return fmt.Errorf("%s: %w", check, err)
	}
	return ExpectUint(check, got, want)
}

func (e *Env) expectEvents(check string, r *core.Receipt, want ...chaintest.Event) error {
	got, err := e.Events(r)
	if err != nil {
		return fmt.Errorf("%s: %w", check, err)
	}
	return ExpectEvents(check, got, want)
}

// mustSucceed 发送交易并要求成功
func mustSucceed(ctx context.Context, check string, c *chaintest.ContractInvoker, value *uint256.Int, method string, args ...any) (*core.Receipt, error) {
	r, err := c.InvokeWithValue(ctx, value, method, args...)
	if err != nil {
		return nil, err
	}
	return r, ExpectSuccess(check, r)
}

// mustRevert 发送交易并要求以 reason 被拒绝
func mustRevert(ctx context.Context, check string, c *chaintest.ContractInvoker, value *uint256.Int, method string, reason string, args ...any) error {
	r, err := c.InvokeWithValue(ctx, value, method, args...)
	if err != nil {
		return err
	}
	return ExpectRevert(check, r, reason)
}

func ownerIsDeployer(ctx context.Context, env *Env) error {
	for _, c := range []*chaintest.ContractInvoker{env.AsOwner(), env.AsOther()} {
		owner, err := c.CallAddress(ctx, "owner")
		if err != nil {
			return err
		}
		if err := ExpectAddress("owner()", owner, env.Owner.Address()); err != nil {
			return err
		}
	}
	return nil
}

func setValueOwnerOnly(ctx context.Context, env *Env) error {
	if err := mustRevert(ctx, "other setValue(10)", env.AsOther(), nil, "setValue", fortesting.ReasonNotOwner, uint64(10)); err != nil {
		return err
	}
	if err := env.expectValue(ctx, "value() after rejected setValue", uint256.NewInt(0)); err != nil {
		return err
	}
	if _, err := mustSucceed(ctx, "owner setValue(10)", env.AsOwner(), nil, "setValue", uint64(10)); err != nil {
		return err
	}
	return env.expectValue(ctx, "value() after owner setValue", uint256.NewInt(10))
}

func withdrawOwnerOnly(ctx context.Context, env *Env) error {
	if err := mustRevert(ctx, "other withdraw(1)", env.AsOther(), nil, "withdraw", fortesting.ReasonNotOwner, uint64(1)); err != nil {
		return err
	}
	if _, err := mustSucceed(ctx, "owner deposit 1 ether", env.AsOwner(), types.Ether(1), "deposit"); err != nil {
		return err
	}
	if _, err := mustSucceed(ctx, "owner withdraw 1 ether", env.AsOwner(), nil, "withdraw", types.Ether(1)); err != nil {
		return err
	}
	return env.expectLedger(ctx, "balances(owner) after withdraw", env.Owner.Address(), uint256.NewInt(0))
}

func setValueChangesValue(ctx context.Context, env *Env) error {
	if err := env.expectValue(ctx, "initial value()", uint256.NewInt(0)); err != nil {
		return err
	}
	for _, v := range []uint64{42, 7, 0} {
		if _, err := mustSucceed(ctx, fmt.Sprintf("setValue(%d)", v), env.AsOwner(), nil, "setValue", v); err != nil {
			return err
		}
		if err := env.expectValue(ctx, fmt.Sprintf("value() after setValue(%d)", v), uint256.NewInt(v)); err != nil {
			return err
		}
	}
	return nil
}

func balancesStartAtZero(ctx context.Context, env *Env) error {
	addrs := []types.Address{env.Owner.Address(), env.Other.Address(), chaintest.NewAccount().Address()}
	for _, a := range addrs {
		if err := env.expectLedger(ctx, "balances("+a.String()+")", a, uint256.NewInt(0)); err != nil {
			return err
		}
	}
	return nil
}

func depositIncreasesBalance(ctx context.Context, env *Env) error {
	owner := env.Owner.Address()
	if _, err := mustSucceed(ctx, "deposit 1 ether", env.AsOwner(), types.Ether(1), "deposit"); err != nil {
		return err
	}
	if err := env.expectLedger(ctx, "balances(owner) after first deposit", owner, types.Ether(1)); err != nil {
		return err
	}
	if _, err := mustSucceed(ctx, "deposit 2 ether", env.AsOwner(), types.Ether(2), "deposit"); err != nil {
		return err
	}
	return env.expectLedger(ctx, "balances(owner) after second deposit", owner, types.Ether(3))
}

func withdrawDecreasesBalance(ctx context.Context, env *Env) error {
	owner := env.Owner.Address()
	if _, err := mustSucceed(ctx, "deposit 3 ether", env.AsOwner(), types.Ether(3), "deposit"); err != nil {
		return err
	}
	if _, err := mustSucceed(ctx, "withdraw 1 ether", env.AsOwner(), nil, "withdraw", types.Ether(1)); err != nil {
		return err
	}
	return env.expectLedger(ctx, "balances(owner) after withdraw", owner, types.Ether(2))
}

func withdrawBeyondBalance(ctx context.Context, env *Env) error {
	owner := env.Owner.Address()
	if err := mustRevert(ctx, "withdraw with empty ledger", env.AsOwner(), nil, "withdraw", fortesting.ReasonInsufficientBalance, uint64(1)); err != nil {
		return err
	}
	if _, err := mustSucceed(ctx, "deposit 1 ether", env.AsOwner(), types.Ether(1), "deposit"); err != nil {
		return err
	}
	if err := mustRevert(ctx, "withdraw 2 ether", env.AsOwner(), nil, "withdraw", fortesting.ReasonInsufficientBalance, types.Ether(2)); err != nil {
		return err
	}
	return env.expectLedger(ctx, "balances(owner) unchanged", owner, types.Ether(1))
}

func zeroDepositReverts(ctx context.Context, env *Env) error {
	if err := mustRevert(ctx, "deposit 0", env.AsOther(), nil, "deposit", fortesting.ReasonZeroDeposit); err != nil {
		return err
	}
	return env.expectLedger(ctx, "balances(other) unchanged", env.Other.Address(), uint256.NewInt(0))
}

func depositsPerCaller(ctx context.Context, env *Env) error {
	if _, err := mustSucceed(ctx, "owner deposit 1 ether", env.AsOwner(), types.Ether(1), "deposit"); err != nil {
		return err
	}
	if _, err := mustSucceed(ctx, "other deposit 2 ether", env.AsOther(), types.Ether(2), "deposit"); err != nil {
		return err
	}
	if err := env.expectLedger(ctx, "balances(owner)", env.Owner.Address(), types.Ether(1)); err != nil {
		return err
	}
	return env.expectLedger(ctx, "balances(other)", env.Other.Address(), types.Ether(2))
}

func withdrawReturnsValue(ctx context.Context, env *Env) error {
	owner := env.Owner.Address()
	before, err := env.Executor.Balance(ctx, owner)
	if err != nil {
		return err
	}
	if _, err := mustSucceed(ctx, "deposit 1 ether", env.AsOwner(), types.Ether(1), "deposit"); err != nil {
		return err
	}
	after := new(uint256.Int).Sub(before, types.Ether(1))
	if err := env.expectNative(ctx, "owner native balance after deposit", owner, after); err != nil {
		return err
	}
	if err := env.expectNative(ctx, "contract native balance after deposit", env.Contract.Address, types.Ether(1)); err != nil {
		return err
	}
	if _, err := mustSucceed(ctx, "withdraw 1 ether", env.AsOwner(), nil, "withdraw", types.Ether(1)); err != nil {
		return err
	}
	if err := env.expectNative(ctx, "owner native balance after withdraw", owner, before); err != nil {
		return err
	}
	return env.expectNative(ctx, "contract native balance after withdraw", env.Contract.Address, uint256.NewInt(0))
}

func setValueEmits(ctx context.Context, env *Env) error {
	r, err := mustSucceed(ctx, "setValue(7)", env.AsOwner(), nil, "setValue", uint64(7))
	if err != nil {
		return err
	}
	return env.expectEvents("events of setValue(7)", r, Ev("ValueChanged", uint256.NewInt(7)))
}

func depositEmits(ctx context.Context, env *Env) error {
	r, err := mustSucceed(ctx, "other deposit 5 wei", env.AsOther(), types.Wei(5), "deposit")
	if err != nil {
		return err
	}
	return env.expectEvents("events of deposit", r, Ev("Deposited", env.Other.Address(), types.Wei(5)))
}

func withdrawEmits(ctx context.Context, env *Env) error {
	if _, err := mustSucceed(ctx, "deposit 1 ether", env.AsOwner(), types.Ether(1), "deposit"); err != nil {
		return err
	}
	r, err := mustSucceed(ctx, "withdraw 1 ether", env.AsOwner(), nil, "withdraw", types.Ether(1))
	if err != nil {
		return err
	}
	return env.expectEvents("events of withdraw", r, Ev("Withdrawn", env.Owner.Address(), types.Ether(1)))
}

func revertEmitsNothing(ctx context.Context, env *Env) error {
	r, err := env.AsOther().Invoke(ctx, "setValue", uint64(1))
	if err != nil {
		return err
	}
	if err := ExpectRevert("other setValue(1)", r, fortesting.ReasonNotOwner); err != nil {
		return err
	}
	return env.expectEvents("events of rejected setValue", r)
}

func depositWithdrawRoundTrip(ctx context.Context, env *Env) error {
	owner := env.Owner.Address()
	if _, err := mustSucceed(ctx, "owner deposit 1 ether", env.AsOwner(), types.Ether(1), "deposit"); err != nil {
		return err
	}
	if err := env.expectLedger(ctx, "balances(owner) after deposit", owner, types.Ether(1)); err != nil {
		return err
	}
	r, err := mustSucceed(ctx, "owner withdraw 1 ether", env.AsOwner(), nil, "withdraw", types.Ether(1))
	if err != nil {
		return err
	}
	if err := env.expectLedger(ctx, "balances(owner) after withdraw", owner, uint256.NewInt(0)); err != nil {
		return err
	}
	return env.expectEvents("events of withdraw", r, Ev("Withdrawn", owner, types.Ether(1)))
}

func otherWithdrawWithoutDeposit(ctx context.Context, env *Env) error {
	if err := mustRevert(ctx, "other withdraw(1)", env.AsOther(), nil, "withdraw", fortesting.ReasonNotOwner, uint64(1)); err != nil {
		return err
	}
	return env.expectLedger(ctx, "balances(other)", env.Other.Address(), uint256.NewInt(0))
}

func otherWithdrawAnyLedger(ctx context.Context, env *Env) error {
	other := env.Other.Address()
	if _, err := mustSucceed(ctx, "other deposit 1 ether", env.AsOther(), types.Ether(1), "deposit"); err != nil {
		return err
	}
	for _, amount := range []*uint256.Int{uint256.NewInt(0), uint256.NewInt(1), types.Ether(1), types.Ether(2)} {
		check := "other withdraw(" + types.FormatAmount(amount) + ")"
		if err := mustRevert(ctx, check, env.AsOther(), nil, "withdraw", fortesting.ReasonNotOwner, amount); err != nil {
			return err
		}
	}
	return env.expectLedger(ctx, "balances(other) unchanged", other, types.Ether(1))
}
