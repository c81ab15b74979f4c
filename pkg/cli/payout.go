package cli

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/humanprotocol/escrow-server/pkg/escrow"
	"github.com/humanprotocol/escrow-server/pkg/solana"
)

func newPayoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payout",
		Short: "Pay out escrowed tokens to a recipient",
		RunE:  runPayout,
	}

	cmd.Flags().String("escrow", "", "escrow account to pay out from")
	cmd.Flags().String("recipient", "", "token account receiving the payout")
	cmd.Flags().Uint64("amount", 0, "amount of tokens to transfer")

	_ = cmd.MarkFlagRequired("escrow")
	_ = cmd.MarkFlagRequired("recipient")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runPayout(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	record, err := pubkeyFlag(cmd, "escrow")
	if err != nil {
		return err
	}
	recipient, err := pubkeyFlag(cmd, "recipient")
	if err != nil {
		return err
	}
	amount, err := cmd.Flags().GetUint64("amount")
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
		escrow.Payout(
			conf.programID,
			record,
			conf.ownerPublicKey(),
			authority,
			rec.TokenAccount,
			recipient,
			amount,
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

// loadRecord fetches and decodes an escrow account from the cluster.
func loadRecord(conf *Config, record ed25519.PublicKey) (*escrow.Record, error) {
	info, err := conf.client.GetAccountInfo(record)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load escrow account")
	}

	var rec escrow.Record
	if err := rec.Unmarshal(info.Data); err != nil {
		return nil, errors.Wrap(err, "invalid escrow account data")
	}

	return &rec, nil
}
