package balance

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/virtue186/fortesting/rpcclient"
	"github.com/virtue186/fortesting/types"
)

func NewBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance [address]",
		Short: "Query the balance and nonce of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := types.AddressFromHex(args[0])
			if err != nil {
				return fmt.Errorf("invalid address: %w", err)
			}
			apiEndpoint, err := cmd.Flags().GetString("url")
			if err != nil {
				return err
			}
			if apiEndpoint == "" {
				return fmt.Errorf("--url is required")
			}

			cli := rpcclient.New(apiEndpoint)
			state, err := cli.GetAccountState(cmd.Context(), addr)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "State for address %s:\n", state.Address)
			fmt.Fprintf(out, "  Balance: %s wei\n", state.Balance)
			fmt.Fprintf(out, "  Nonce:   %d (pending %d)\n", state.Nonce, state.PendingNonce)
			if state.Code != "" {
				fmt.Fprintf(out, "  Code:    %s\n", state.Code)
			}
			return nil
		},
	}
	return cmd
}
