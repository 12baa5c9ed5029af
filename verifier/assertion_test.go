package verifier

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtue186/fortesting/chaintest"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/types"
)

func TestExpectRevert(t *testing.T) {
	ok := &core.Receipt{Status: core.ReceiptSuccess}
	reverted := &core.Receipt{Status: core.ReceiptReverted, RevertReason: "caller is not the owner"}

	assert.NoError(t, ExpectRevert("c", reverted, "caller is not the owner"))
	assert.Error(t, ExpectRevert("c", reverted, "insufficient balance"))
	assert.Error(t, ExpectRevert("c", ok, "caller is not the owner"))
	assert.NoError(t, ExpectSuccess("c", ok))

	err := ExpectSuccess("owner setValue", reverted)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "owner setValue", ae.Check)
	assert.Contains(t, ae.Actual, "caller is not the owner")
}

func TestExpectUint(t *testing.T) {
	assert.NoError(t, ExpectUint("c", types.Ether(1), types.Ether(1)))
	err := ExpectUint("balances(owner)", uint256.NewInt(1), types.Ether(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1000000000000000000")
	assert.Error(t, ExpectUint("c", nil, uint256.NewInt(0)))
}

func TestExpectEvents(t *testing.T) {
	addr := chaintest.NewAccount().Address()
	got := []chaintest.Event{{Name: "Deposited", Args: []any{addr, uint256.NewInt(5)}}}

	assert.NoError(t, ExpectEvents("c", got, []chaintest.Event{Ev("Deposited", addr, types.Wei(5))}))
	assert.NoError(t, ExpectEvents("c", nil, nil))
	assert.Error(t, ExpectEvents("c", got, nil))

	err := ExpectEvents("events of deposit", got, []chaintest.Event{Ev("Deposited", addr, types.Wei(6))})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.NotEmpty(t, ae.Diff)
	assert.Contains(t, ae.Expected, "Deposited("+addr.String()+", 6)")
	assert.Contains(t, ae.Actual, "Deposited("+addr.String()+", 5)")
}

func TestExpectAddress(t *testing.T) {
	a := chaintest.NewAccount().Address()
	b := chaintest.NewAccount().Address()
	assert.NoError(t, ExpectAddress("c", a, a))
	assert.Error(t, ExpectAddress("c", a, b))
}
