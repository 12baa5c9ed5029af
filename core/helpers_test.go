package core

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/types"
)

const counterCode = "Counter"

// counter 是测试用合约: add 只允许部署者调用，每次触发 Added 事件
type counter struct {
	abi *ABI
}

func newCounter() *counter {
	return &counter{abi: NewABI(
		[]ArgType{TypeUint256},
		[]*Method{
			{Name: "add", Inputs: []ArgType{TypeUint256}},
			{Name: "get", Outputs: []ArgType{TypeUint256}, View: true},
			{Name: "fund", Payable: true},
			{Name: "fail"},
			{Name: "badWrite", View: true},
		},
		[]*Event{{Name: "Added", Inputs: []ArgType{TypeAddress, TypeUint256}}},
	)}
}

func (c *counter) ABI() *ABI { return c.abi }

func (c *counter) Construct(ctx *Context, args []any) error {
	if err := ctx.PutAddress([]byte("owner"), ctx.Caller); err != nil {
		return err
	}
	return ctx.PutUint([]byte("n"), args[0].(*uint256.Int))
}

func (c *counter) Invoke(ctx *Context, m *Method, args []any) ([]any, error) {
	switch m.Name {
	case "add":
		owner, err := ctx.GetAddress([]byte("owner"))
		if err != nil {
			return nil, err
		}
		if ctx.Caller != owner {
			return nil, Revert("only owner")
		}
		n, err := ctx.GetUint([]byte("n"))
		if err != nil {
			return nil, err
		}
		delta := args[0].(*uint256.Int)
		n.Add(n, delta)
		if err := ctx.PutUint([]byte("n"), n); err != nil {
			return nil, err
		}
		return nil, ctx.Emit("Added", ctx.Caller, delta)
	case "get":
		n, err := ctx.GetUint([]byte("n"))
		return []any{n}, err
	case "fund":
		return nil, nil
	case "fail":
		if err := ctx.PutUint([]byte("n"), uint256.NewInt(999)); err != nil {
			return nil, err
		}
		if err := ctx.Emit("Added", ctx.Caller, uint256.NewInt(1)); err != nil {
			return nil, err
		}
		return nil, errors.New("boom")
	case "badWrite":
		return nil, ctx.PutUint([]byte("n"), uint256.NewInt(1))
	}
	return nil, Revert("unreachable")
}

type testChain struct {
	*BlockChain
	sealer crypto.PrivateKey
	store  *LeveldbStorage
}

func newTestChain(t *testing.T, funded ...crypto.PrivateKey) *testChain {
	t.Helper()
	registry := NewRegistry()
	registry.Register(counterCode, newCounter())

	alloc := make(map[types.Address]*uint256.Int)
	for _, k := range funded {
		alloc[k.PublicKey().Address()] = types.Ether(100)
	}
	store := NewMemoryStorage()
	t.Cleanup(func() { store.Close() })

	bc, err := NewBlockChain(nil, store, registry, &Genesis{Alloc: alloc})
	require.NoError(t, err)
	return &testChain{BlockChain: bc, sealer: crypto.GeneratePrivateKey(), store: store}
}

func (c *testChain) seal(t *testing.T, txx ...*Transaction) []*Receipt {
	t.Helper()
	block := NewBlockFromPreHeader(c.CurrentHeader(), txx)
	require.NoError(t, block.Sign(c.sealer))
	require.NoError(t, c.AddBlock(block))

	receipts := make([]*Receipt, len(txx))
	for i, tx := range txx {
		r, err := c.Receipt(tx.Hash(TxHasher{}))
		require.NoError(t, err)
		receipts[i] = r
	}
	return receipts
}

func signedTx(t *testing.T, key crypto.PrivateKey, tx *Transaction) *Transaction {
	t.Helper()
	require.NoError(t, tx.Sign(key))
	return tx
}

func (c *testChain) deployCounter(t *testing.T, key crypto.PrivateKey, initial uint64) types.Address {
	t.Helper()
	acc, err := c.Account(key.PublicKey().Address())
	require.NoError(t, err)
	args, err := PackArgs([]ArgType{TypeUint256}, initial)
	require.NoError(t, err)
	tx := signedTx(t, key, NewDeployTransaction(acc.Nonce, counterCode, nil, args))
	r := c.seal(t, tx)[0]
	require.True(t, r.Succeeded(), r.RevertReason)
	return r.ContractAddress
}
