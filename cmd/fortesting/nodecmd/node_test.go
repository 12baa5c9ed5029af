package nodecmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "node.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeConfig(t, `
node:
  listen_addr: "127.0.0.1:9000"
  data_dir: /from/file
log:
  level: warn
`)

	cmd := NewNodeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--listen", "127.0.0.1:9100"}))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	// 标志覆盖文件，未给出的标志不覆盖
	assert.Equal(t, "127.0.0.1:9100", cfg.Node.ListenAddr)
	assert.Equal(t, "/from/file", cfg.Node.DataDir)
	assert.Equal(t, "warn", cfg.Log.Level)

	cmd = NewNodeCmd()
	require.NoError(t, cmd.ParseFlags(nil))
	cfg, err = loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, ":8545", cfg.Node.ListenAddr)
	assert.Empty(t, cfg.Node.DataDir)

	cmd = NewNodeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "missing.yml")}))
	_, err = loadConfig(cmd)
	assert.Error(t, err)
}

func TestNodeCmdRunsUntilCancelled(t *testing.T) {
	dataDir := t.TempDir()
	errOut := new(bytes.Buffer)

	cmd := NewNodeCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"--listen", "127.0.0.1:0", "--datadir", dataDir})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, cmd.ExecuteContext(ctx))

	assert.Contains(t, errOut.String(), "node stopped")
	_, err := os.Stat(filepath.Join(dataDir, "CURRENT"))
	assert.NoError(t, err)
}
