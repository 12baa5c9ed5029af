package core

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtue186/fortesting/types"
)

func TestMethodSelector(t *testing.T) {
	m := &Method{Name: "transfer", Inputs: []ArgType{TypeAddress, TypeUint256}}
	assert.Equal(t, "transfer(address,uint256)", m.Signature())
	assert.Equal(t, [4]byte{0xa9, 0x05, 0x9c, 0xbb}, m.Selector())

	e := &Event{Name: "Deposited", Inputs: []ArgType{TypeAddress, TypeUint256}}
	assert.Equal(t, "Deposited(address,uint256)", e.Signature())
}

func TestPackUnpackArgs(t *testing.T) {
	addr := types.AddressFromBytes(types.RandomBytes(20))
	typs := []ArgType{TypeAddress, TypeUint256, TypeUint256}

	data, err := PackArgs(typs, addr, types.Ether(1), 7)
	require.NoError(t, err)
	require.Len(t, data, 3*32)

	out, err := UnpackArgs(typs, data)
	require.NoError(t, err)
	assert.Equal(t, addr, out[0])
	assert.True(t, out[1].(*uint256.Int).Eq(types.Ether(1)))
	assert.True(t, out[2].(*uint256.Int).Eq(uint256.NewInt(7)))
}

func TestPackArgsErrors(t *testing.T) {
	_, err := PackArgs([]ArgType{TypeUint256}, -1)
	assert.Error(t, err)
	_, err = PackArgs([]ArgType{TypeUint256}, "1")
	assert.Error(t, err)
	_, err = PackArgs([]ArgType{TypeAddress}, 1)
	assert.Error(t, err)
	_, err = PackArgs([]ArgType{TypeAddress})
	assert.Error(t, err)

	dirty := make([]byte, 32)
	dirty[0] = 1
	_, err = UnpackArgs([]ArgType{TypeAddress}, dirty)
	assert.Error(t, err)
	_, err = UnpackArgs([]ArgType{TypeUint256}, dirty[:31])
	assert.Error(t, err)
}

func TestABIPackAndDispatch(t *testing.T) {
	abi := newCounter().ABI()
	data, err := abi.Pack("add", uint64(5))
	require.NoError(t, err)

	m, rest, err := abi.MethodByCalldata(data)
	require.NoError(t, err)
	assert.Equal(t, "add", m.Name)
	assert.Len(t, rest, 32)

	_, _, err = abi.MethodByCalldata([]byte{1, 2, 3, 4})
	assert.Error(t, err)
	_, err = abi.Pack("missing")
	assert.Error(t, err)
}

func TestDecodeLog(t *testing.T) {
	abi := newCounter().ABI()
	addr := types.AddressFromBytes(types.RandomBytes(20))
	e := abi.Events["Added"]
	data, err := PackArgs(e.Inputs, addr, uint64(3))
	require.NoError(t, err)

	ev, args, err := abi.DecodeLog(&Log{Topics: []types.Hash{e.Topic()}, Data: data})
	require.NoError(t, err)
	assert.Equal(t, "Added", ev.Name)
	assert.Equal(t, addr, args[0])

	_, _, err = abi.DecodeLog(&Log{Topics: []types.Hash{types.RandomHash()}})
	assert.Error(t, err)
}
