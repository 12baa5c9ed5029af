package fortesting_test

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtue186/fortesting/chaintest"
	"github.com/virtue186/fortesting/contracts/fortesting"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/types"
)

type env struct {
	ctx   context.Context
	e     *chaintest.Executor
	owner *chaintest.ContractInvoker
	other *chaintest.ContractInvoker
}

func newEnv(t *testing.T) *env {
	reg := core.NewRegistry()
	fortesting.Register(reg)
	sim, err := chaintest.NewSimulated(nil, reg, 2)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, sim.Close()) })

	ctx := context.Background()
	e := chaintest.NewExecutor(sim)
	signers := chaintest.DevSigners(2)
	c, err := e.DeployContract(ctx, signers[0], fortesting.Code, fortesting.ABI())
	require.NoError(t, err)
	return &env{ctx: ctx, e: e, owner: c, other: c.WithSigner(signers[1])}
}

func (v *env) balanceOf(t *testing.T, addr types.Address) *uint256.Int {
	bal, err := v.owner.CallUint(v.ctx, "balances", addr)
	require.NoError(t, err)
	return bal
}

func requireReverted(t *testing.T, r *core.Receipt, reason string) {
	t.Helper()
	require.False(t, r.Succeeded())
	assert.Equal(t, reason, r.RevertReason)
	assert.Empty(t, r.Logs)
}

func TestOwnerIsDeployer(t *testing.T) {
	v := newEnv(t)
	owner, err := v.other.CallAddress(v.ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, v.owner.Signer.Address(), owner)
}

func TestSetValue(t *testing.T) {
	v := newEnv(t)

	r, err := v.other.Invoke(v.ctx, "setValue", uint64(10))
	require.NoError(t, err)
	requireReverted(t, r, fortesting.ReasonNotOwner)

	r, err = v.owner.Invoke(v.ctx, "setValue", uint64(42))
	require.NoError(t, err)
	require.True(t, r.Succeeded(), r.RevertReason)
	events, err := v.owner.Events(r)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ValueChanged", events[0].Name)
	assert.True(t, events[0].Args[0].(*uint256.Int).Eq(uint256.NewInt(42)))

	got, err := v.other.CallUint(v.ctx, "value")
	require.NoError(t, err)
	assert.True(t, got.Eq(uint256.NewInt(42)))
}

func TestDepositAndWithdraw(t *testing.T) {
	v := newEnv(t)
	ownerAddr := v.owner.Signer.Address()
	assert.True(t, v.balanceOf(t, ownerAddr).IsZero())

	r, err := v.owner.InvokeWithValue(v.ctx, types.Ether(1), "deposit")
	require.NoError(t, err)
	require.True(t, r.Succeeded(), r.RevertReason)
	events, err := v.owner.Events(r)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Deposited", events[0].Name)
	assert.Equal(t, ownerAddr, events[0].Args[0])
	assert.True(t, events[0].Args[1].(*uint256.Int).Eq(types.Ether(1)))
	assert.True(t, v.balanceOf(t, ownerAddr).Eq(types.Ether(1)))

	native, err := v.e.Balance(v.ctx, ownerAddr)
	require.NoError(t, err)
	assert.True(t, native.Eq(new(uint256.Int).Sub(chaintest.DevBalance, types.Ether(1))))

	r, err = v.owner.Invoke(v.ctx, "withdraw", types.Ether(2))
	require.NoError(t, err)
	requireReverted(t, r, fortesting.ReasonInsufficientBalance)

	r, err = v.owner.Invoke(v.ctx, "withdraw", types.Ether(1))
	require.NoError(t, err)
	require.True(t, r.Succeeded(), r.RevertReason)
	events, err = v.owner.Events(r)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Withdrawn", events[0].Name)
	assert.Equal(t, ownerAddr, events[0].Args[0])
	assert.True(t, events[0].Args[1].(*uint256.Int).Eq(types.Ether(1)))
	assert.True(t, v.balanceOf(t, ownerAddr).IsZero())

	native, err = v.e.Balance(v.ctx, ownerAddr)
	require.NoError(t, err)
	assert.True(t, native.Eq(chaintest.DevBalance))
	contractBal, err := v.e.Balance(v.ctx, v.owner.Address)
	require.NoError(t, err)
	assert.True(t, contractBal.IsZero())
}

func TestZeroDepositReverts(t *testing.T) {
	v := newEnv(t)
	r, err := v.other.Invoke(v.ctx, "deposit")
	require.NoError(t, err)
	requireReverted(t, r, fortesting.ReasonZeroDeposit)
}

func TestWithdrawIsOwnerOnly(t *testing.T) {
	v := newEnv(t)
	otherAddr := v.other.Signer.Address()

	r, err := v.other.Invoke(v.ctx, "withdraw", uint64(1))
	require.NoError(t, err)
	requireReverted(t, r, fortesting.ReasonNotOwner)
	assert.True(t, v.balanceOf(t, otherAddr).IsZero())

	// 即使有存款，非 owner 也不能取
	r, err = v.other.InvokeWithValue(v.ctx, types.Wei(500), "deposit")
	require.NoError(t, err)
	require.True(t, r.Succeeded())
	r, err = v.other.Invoke(v.ctx, "withdraw", uint64(1))
	require.NoError(t, err)
	requireReverted(t, r, fortesting.ReasonNotOwner)
	assert.True(t, v.balanceOf(t, otherAddr).Eq(types.Wei(500)))
}

func TestValueOnNonPayableReverts(t *testing.T) {
	v := newEnv(t)
	r, err := v.owner.InvokeWithValue(v.ctx, types.Wei(1), "setValue", uint64(1))
	require.NoError(t, err)
	assert.False(t, r.Succeeded())

	got, err := v.owner.CallUint(v.ctx, "value")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
