package transfer

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/rpcclient"
	"github.com/virtue186/fortesting/types"
)

// NewTransferCmd 返回一个用于发起转账的 cobra 命令
func NewTransferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer --from <private_key> --to <recipient_address> --amount <wei>",
		Short: "Send funds from one account to another",
		Long: `Constructs a transaction, signs it with the sender's private key,
submits it via RPC and waits until it is sealed into a block.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromKeyHex, _ := cmd.Flags().GetString("from")
			toAddrHex, _ := cmd.Flags().GetString("to")
			amountStr, _ := cmd.Flags().GetString("amount")
			if fromKeyHex == "" || toAddrHex == "" || amountStr == "" {
				return fmt.Errorf("flags --from, --to, and --amount are all required")
			}

			amount, err := types.ParseAmount(amountStr)
			if err != nil {
				return err
			}
			fromKey, err := crypto.NewPrivateKeyFromHex(fromKeyHex)
			if err != nil {
				return fmt.Errorf("invalid private key: %w", err)
			}
			toAddr, err := types.AddressFromHex(toAddrHex)
			if err != nil {
				return fmt.Errorf("invalid recipient address: %w", err)
			}
			apiEndpoint, err := cmd.Flags().GetString("url")
			if err != nil {
				return err
			}
			if apiEndpoint == "" {
				return fmt.Errorf("--url is required")
			}

			ctx := cmd.Context()
			cli := rpcclient.New(apiEndpoint)
			nonce, err := cli.PendingNonce(ctx, fromKey.PublicKey().Address())
			if err != nil {
				return fmt.Errorf("failed to get current nonce for sender: %w", err)
			}

			tx := core.NewCallTransaction(nonce, toAddr, amount, nil)
			if err := tx.Sign(fromKey); err != nil {
				return fmt.Errorf("failed to sign transaction: %w", err)
			}
			txHash, err := cli.SendTransaction(ctx, tx)
			if err != nil {
				return err
			}
			r, err := cli.WaitForReceipt(ctx, txHash)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Transaction Hash: %s\n", txHash)
			fmt.Fprintf(out, "Block Height:     %d\n", r.BlockHeight)
			fmt.Fprintf(out, "Status:           %s\n", r.Status)
			return nil
		},
	}

	cmd.Flags().String("from", "", "Private key of the sender (in hex format)")
	cmd.Flags().String("to", "", "Recipient's address (in hex format)")
	cmd.Flags().String("amount", "", "Amount to send in wei")
	return cmd
}
