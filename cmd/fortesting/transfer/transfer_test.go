package transfer

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtue186/fortesting/api"
	"github.com/virtue186/fortesting/chaintest"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/types"
)

func execute(args ...string) (string, error) {
	cmd := NewTransferCmd()
	cmd.Flags().String("url", "", "")
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTransfer(t *testing.T) {
	sim, err := chaintest.NewSimulated(nil, core.NewRegistry(), 1)
	require.NoError(t, err)
	srv := httptest.NewServer(api.NewAPIServer("", nil, sim.Node).Handler())
	t.Cleanup(func() {
		srv.Close()
		require.NoError(t, sim.Close())
	})

	to := types.AddressFromBytes(types.RandomBytes(20))
	out, err := execute("--url", srv.URL+"/rpc",
		"--from", crypto.DevKey(0).String(), "--to", to.String(), "--amount", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Block Height:     1")
	assert.Contains(t, out, "Status:           success")

	acc, err := sim.Account(context.Background(), to)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Eq(types.Wei(5)))

	sender, err := sim.Account(context.Background(), crypto.DevKey(0).PublicKey().Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sender.Nonce)
}

func TestTransferRequiresFlags(t *testing.T) {
	_, err := execute("--to", types.AddressFromBytes(types.RandomBytes(20)).String())
	assert.ErrorContains(t, err, "are all required")

	_, err = execute("--from", "zz", "--to", "0x00", "--amount", "1", "--url", "http://127.0.0.1:1/rpc")
	assert.ErrorContains(t, err, "invalid private key")
}
