package balance

import (
	"bytes"
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

func newTestAPI(t *testing.T) string {
	sim, err := chaintest.NewSimulated(nil, core.NewRegistry(), 1)
	require.NoError(t, err)
	srv := httptest.NewServer(api.NewAPIServer("", nil, sim.Node).Handler())
	t.Cleanup(func() {
		srv.Close()
		require.NoError(t, sim.Close())
	})
	return srv.URL + "/rpc"
}

func execute(args ...string) (string, error) {
	cmd := NewBalanceCmd()
	cmd.Flags().String("url", "", "")
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBalance(t *testing.T) {
	url := newTestAPI(t)
	dev := crypto.DevKey(0).PublicKey().Address()

	out, err := execute(dev.String(), "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "State for address "+dev.String())
	assert.Contains(t, out, "Balance: "+types.FormatAmount(chaintest.DevBalance)+" wei")
	assert.Contains(t, out, "Nonce:   0 (pending 0)")
	assert.NotContains(t, out, "Code:")
}

func TestBalanceErrors(t *testing.T) {
	_, err := execute("0x1234", "--url", "http://127.0.0.1:1/rpc")
	assert.ErrorContains(t, err, "invalid address")

	addr := types.AddressFromBytes(types.RandomBytes(20))
	_, err = execute(addr.String())
	assert.ErrorContains(t, err, "--url is required")
}
