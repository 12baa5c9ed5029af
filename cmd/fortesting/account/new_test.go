package account

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtue186/fortesting/crypto"
)

func TestDevAccounts(t *testing.T) {
	cmd := NewAccountCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"dev", "--count", "2"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], crypto.DevKey(1).PublicKey().Address().String())
}

func TestNewAccount(t *testing.T) {
	cmd := NewAccountCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"new"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Address:     0x")
}
