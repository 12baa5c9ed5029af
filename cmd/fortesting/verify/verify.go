package verify

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/virtue186/fortesting/chaintest"
	"github.com/virtue186/fortesting/config"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/rpcclient"
	"github.com/virtue186/fortesting/verifier"
)

// NewVerifyCmd 返回运行合约行为检查的命令，有场景失败时返回错误
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the behavior of the ForTesting contract",
		Long: `Deploys a fresh ForTesting instance for every scenario and checks access
control, state changes, revert reasons and emitted events. Without --url the
scenarios run against an in-process chain.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, chainLogger, err := loggers(cmd)
			if err != nil {
				return err
			}

			factory, err := backendFactory(cmd, chainLogger)
			if err != nil {
				return err
			}
			suite := verifier.NewSuite()
			if group, _ := cmd.Flags().GetString("group"); group != "" {
				suite.Scenarios = verifier.ScenariosInGroup(group)
				if len(suite.Scenarios) == 0 {
					return fmt.Errorf("no scenarios in group %q", group)
				}
			}

			sum := suite.Run(cmd.Context(), factory, verifier.NewLogReporter(logger))
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d passed, %d failed in %s\n",
				sum.RunID, sum.Passed, sum.Failed, sum.Duration)
			if !sum.OK() {
				return fmt.Errorf("%d of %d scenarios failed", sum.Failed, len(sum.Results))
			}
			return nil
		},
	}
	cmd.Flags().String("group", "", "Only run scenarios in this group (owner, functions, events, properties)")
	cmd.Flags().String("owner-key", "", "Owner private key for --url runs, defaults to dev account 0")
	cmd.Flags().String("other-key", "", "Second identity for --url runs, defaults to dev account 1")
	cmd.Flags().String("config", "", "Path to node.yml, its log section sets the output level")
	cmd.Flags().BoolP("verbose", "v", false, "Log every scenario start, overrides the configured level")
	return cmd
}

// loggers 返回场景报告用的 logrus logger 和进程内链使用的 go-kit logger。
// 没有 --config 时链日志被丢弃，报告使用 info 级别
func loggers(cmd *cobra.Command) (*logrus.Logger, log.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())

	var chainLogger log.Logger
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		logger.SetLevel(cfg.Log.LogrusLevel())
		if chainLogger, err = cfg.Log.NewLogger(cmd.ErrOrStderr()); err != nil {
			return nil, nil, err
		}
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger, chainLogger, nil
}

func backendFactory(cmd *cobra.Command, chainLogger log.Logger) (verifier.BackendFactory, error) {
	url, err := cmd.Flags().GetString("url")
	if err != nil {
		return nil, err
	}
	if url == "" {
		return verifier.SimulatedFactory(chainLogger), nil
	}

	owner, err := signerFlag(cmd, "owner-key", 0)
	if err != nil {
		return nil, err
	}
	other, err := signerFlag(cmd, "other-key", 1)
	if err != nil {
		return nil, err
	}
	return verifier.RemoteFactory(rpcclient.New(url), owner, other), nil
}

func signerFlag(cmd *cobra.Command, name string, devIndex int) (chaintest.Signer, error) {
	keyHex, _ := cmd.Flags().GetString(name)
	if keyHex == "" {
		return chaintest.NewSigner(crypto.DevKey(devIndex)), nil
	}
	key, err := crypto.NewPrivateKeyFromHex(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return chaintest.NewSigner(key), nil
}
