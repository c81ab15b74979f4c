package cli

import (
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the state of an escrow",
		RunE:  runShow,
	}

	cmd.Flags().String("escrow", "", "escrow account to display")

	_ = cmd.MarkFlagRequired("escrow")

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	record, err := pubkeyFlag(cmd, "escrow")
	if err != nil {
		return err
	}

	rec, err := loadRecord(conf, record)
	if err != nil {
		return err
	}

	fmt.Printf("Escrow: %s\n", base58.Encode(record))
	fmt.Printf("State: %s\n", rec.State)
	fmt.Printf("Mint: %s\n", base58.Encode(rec.TokenMint))
	fmt.Printf("Token account: %s\n", base58.Encode(rec.TokenAccount))
	fmt.Printf("Launcher: %s\n", base58.Encode(rec.Launcher))
	fmt.Printf("Canceler: %s\n", base58.Encode(rec.Canceler))
	fmt.Printf("Canceler token account: %s\n", base58.Encode(rec.CancelerTokenAccount))
	fmt.Printf("Expires: %s\n", time.Unix(int64(rec.ExpiresAt), 0).UTC().Format(time.RFC3339))

	balance, err := conf.client.GetTokenAccountBalance(rec.TokenAccount)
	if err != nil {
		return errors.Wrap(err, "failed to load escrow token balance")
	}
	fmt.Printf("Balance: %d\n", balance)

	return nil
}
