package account

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/virtue186/fortesting/crypto"
)

func NewAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newCreateCmd(), newDevCmd())
	return cmd
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create a new account (key pair)",
		Long:  `Generates a new private key and its corresponding public address.`,
		Run: func(cmd *cobra.Command, args []string) {
			privateKey := crypto.GeneratePrivateKey()
			address := privateKey.PublicKey().Address()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "New account created successfully!")
			fmt.Fprintln(out, "==========================================================================================")
			fmt.Fprintf(out, "Private Key: %s  (SAVE THIS securely, it cannot be recovered!)\n", privateKey.String())
			fmt.Fprintf(out, "Address:     %s\n", address.String())
			fmt.Fprintln(out, "==========================================================================================")
		},
	}
}

// newDevCmd 列出开发链在创世块中预置余额的账户
func newDevCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "List the deterministic dev accounts funded at genesis",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := cmd.Flags().GetInt("count")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i := 0; i < n; i++ {
				key := crypto.DevKey(i)
				fmt.Fprintf(out, "#%d  %s  %s\n", i, key.PublicKey().Address(), key.String())
			}
			return nil
		},
	}
	cmd.Flags().Int("count", 4, "Number of dev accounts to list")
	return cmd
}
