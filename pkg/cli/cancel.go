package cli

import (
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/humanprotocol/escrow-server/pkg/escrow"
	"github.com/humanprotocol/escrow-server/pkg/solana"
)

func newCancelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel an escrow and refund the remaining balance",
		RunE:  runCancel,
	}

	cmd.Flags().String("escrow", "", "escrow account to cancel")

	_ = cmd.MarkFlagRequired("escrow")

	return cmd
}

func runCancel(cmd *cobra.Command, args []string) error {
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

	authority, err := escrow.AuthorityForBump(conf.programID, record, rec.Bump)
	if err != nil {
		return errors.Wrap(err, "failed to derive escrow authority")
	}

	txn := solana.NewTransaction(
		conf.feePayerPublicKey(),
		escrow.Cancel(
			conf.programID,
			record,
			conf.ownerPublicKey(),
			authority,
			rec.TokenAccount,
			rec.CancelerTokenAccount,
		),
	)

	if err := conf.checkFeePayerBalance(2 * feePerSignature); err != nil {
		return err
	}

	sig, err := conf.signAndSubmit(&txn, conf.feePayer, conf.owner)
	if err != nil {
		return errors.Wrap(err, "failed to submit transaction")
	}

	fmt.Printf("Signature: %s\n", base58.Encode(sig[:]))
	return nil
}
