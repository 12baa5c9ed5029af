package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/virtue186/fortesting/cmd/fortesting/account"
	"github.com/virtue186/fortesting/cmd/fortesting/balance"
	"github.com/virtue186/fortesting/cmd/fortesting/nodecmd"
	"github.com/virtue186/fortesting/cmd/fortesting/transfer"
	"github.com/virtue186/fortesting/cmd/fortesting/verify"
)

var rootCmd = &cobra.Command{
	Use:   "fortesting",
	Short: "Dev chain and behavior verifier for the ForTesting contract",
	Long: `fortesting runs a local development chain hosting the ForTesting contract,
verifies the contract's behavior, and manages accounts and balances.`,
	SilenceUsage: true,
}

func init() {
	// 在根命令上定义一个持久化的字符串标志 "url"
	rootCmd.PersistentFlags().String("url", "", "URL of a running node's RPC API, e.g. http://localhost:8545/rpc")
}

func main() {
	rootCmd.AddCommand(nodecmd.NewNodeCmd())
	rootCmd.AddCommand(verify.NewVerifyCmd())
	rootCmd.AddCommand(account.NewAccountCmd())
	rootCmd.AddCommand(balance.NewBalanceCmd())
	rootCmd.AddCommand(transfer.NewTransferCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your command '%s'\n", err)
		os.Exit(1)
	}
}
