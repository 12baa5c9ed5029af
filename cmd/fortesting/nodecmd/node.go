package nodecmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/spf13/cobra"
	"github.com/virtue186/fortesting/config"
	"github.com/virtue186/fortesting/contracts/fortesting"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/node"
)

// NewNodeCmd 返回运行开发链节点的命令
func NewNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Run a development chain node with the JSON-RPC API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			reg := core.NewRegistry()
			fortesting.Register(reg)

			opts, err := cfg.NodeOpts(logger, reg)
			if err != nil {
				return err
			}
			n, err := node.NewNode(opts)
			if err != nil {
				opts.Storage.Close()
				return err
			}
			defer n.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, logger, n)
		},
	}
	cmd.Flags().String("config", "", "Path to node.yml")
	cmd.Flags().String("listen", "", "API listen address, overrides the config file")
	cmd.Flags().String("datadir", "", "LevelDB data directory, overrides the config file")
	return cmd
}

// loadConfig 按 默认值 < 配置文件 < 命令行标志 的顺序合并配置
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	if cmd.Flags().Changed("listen") {
		cfg.Node.ListenAddr, _ = cmd.Flags().GetString("listen")
	}
	if cmd.Flags().Changed("datadir") {
		cfg.Node.DataDir, _ = cmd.Flags().GetString("datadir")
	}
	return cfg, nil
}

func run(ctx context.Context, logger log.Logger, n *node.Node) error {
	if err := n.Start(ctx); err != nil {
		return err
	}
	logger.Log("msg", "node stopped", "height", n.Chain().Height())
	return nil
}
