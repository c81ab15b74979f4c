package cli

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/humanprotocol/escrow-server/pkg/escrow"
	"github.com/humanprotocol/escrow-server/pkg/solana"
	"github.com/humanprotocol/escrow-server/pkg/solana/system"
	"github.com/humanprotocol/escrow-server/pkg/solana/token"
)

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create and launch a new escrow",
		RunE:  runCreate,
	}

	cmd.Flags().String("mint", "", "token mint held by the escrow")
	cmd.Flags().String("launcher", "", "authority allowed to pay out [default: owner]")
	cmd.Flags().String("canceler", "", "authority allowed to cancel [default: owner]")
	cmd.Flags().String("canceler-receiver", "", "token account refunded on cancel [default: new account owned by canceler]")
	cmd.Flags().Uint64("duration", 0, "escrow duration in seconds")

	_ = cmd.MarkFlagRequired("mint")
	_ = cmd.MarkFlagRequired("duration")

	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	mint, err := pubkeyFlag(cmd, "mint")
	if err != nil {
		return err
	}
	launcher, err := pubkeyFlag(cmd, "launcher")
	if err != nil {
		return err
	}
	if launcher == nil {
		launcher = conf.ownerPublicKey()
	}
	canceler, err := pubkeyFlag(cmd, "canceler")
	if err != nil {
		return err
	}
	if canceler == nil {
		canceler = conf.ownerPublicKey()
	}
	cancelerReceiver, err := pubkeyFlag(cmd, "canceler-receiver")
	if err != nil {
		return err
	}
	duration, err := cmd.Flags().GetUint64("duration")
	if err != nil {
		return err
	}

	recordPub, recordPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return errors.Wrap(err, "failed to generate escrow keypair")
	}
	escrowTokenPub, escrowTokenPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return errors.Wrap(err, "failed to generate token account keypair")
	}

	authority, _, err := escrow.DeriveAuthority(conf.programID, recordPub)
	if err != nil {
		return errors.Wrap(err, "failed to derive escrow authority")
	}

	tokenRent, err := conf.client.GetMinimumBalanceForRentExemption(token.AccountSize)
	if err != nil {
		return errors.Wrap(err, "failed to query token account rent")
	}
	recordRent, err := conf.client.GetMinimumBalanceForRentExemption(escrow.RecordLen)
	if err != nil {
		return errors.Wrap(err, "failed to query escrow account rent")
	}

	var (
		instructions []solana.Instruction
		signers      = []ed25519.PrivateKey{conf.feePayer, recordPriv, escrowTokenPriv}
		deposits     = tokenRent + recordRent
	)

	instructions = append(instructions,
		system.CreateAccount(conf.feePayerPublicKey(), escrowTokenPub, token.ProgramKey, tokenRent, token.AccountSize),
		token.InitializeAccount(escrowTokenPub, mint, authority),
	)

	// The canceler receives the refund into an explicitly provided token
	// account, or into a fresh one owned by the canceler.
	if cancelerReceiver == nil {
		receiverPub, receiverPriv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return errors.Wrap(err, "failed to generate receiver keypair")
		}

		instructions = append(instructions,
			system.CreateAccount(conf.feePayerPublicKey(), receiverPub, token.ProgramKey, tokenRent, token.AccountSize),
			token.InitializeAccount(receiverPub, mint, canceler),
		)
		signers = append(signers, receiverPriv)
		deposits += tokenRent
		cancelerReceiver = receiverPub
	}

	instructions = append(instructions,
		system.CreateAccount(conf.feePayerPublicKey(), recordPub, conf.programID, recordRent, escrow.RecordLen),
		escrow.Initialize(conf.programID, recordPub, &escrow.InitializeArgs{
			Mint:                 mint,
			TokenAccount:         escrowTokenPub,
			Launcher:             launcher,
			Canceler:             canceler,
			CancelerTokenAccount: cancelerReceiver,
			Duration:             duration,
		}),
	)

	txn := solana.NewTransaction(conf.feePayerPublicKey(), instructions...)
	if err := conf.checkFeePayerBalance(deposits + uint64(len(signers))*feePerSignature); err != nil {
		return err
	}

	sig, err := conf.signAndSubmit(&txn, signers...)
	if err != nil {
		return errors.Wrap(err, "failed to submit transaction")
	}

	conf.log.WithFields(logrus.Fields{
		"escrow":    base58.Encode(recordPub),
		"signature": base58.Encode(sig[:]),
	}).Debug("escrow created")

	fmt.Printf("Escrow: %s\n", base58.Encode(recordPub))
	fmt.Printf("Token account: %s\n", base58.Encode(escrowTokenPub))
	fmt.Printf("Signature: %s\n", base58.Encode(sig[:]))

	return nil
}
