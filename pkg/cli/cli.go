// Package cli implements the operator wallet client: it assembles
// multi-instruction atomic batches against a ledger RPC endpoint and submits
// them on behalf of the invoking owner.
package cli

import (
	"crypto/ed25519"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/humanprotocol/escrow-server/pkg/solana"
)

// ErrInsufficientFeePayerBalance indicates the fee payer cannot cover the
// rent-exemption deposits plus the transaction fee.
var ErrInsufficientFeePayerBalance = errors.New("insufficient fee payer balance")

// feePerSignature is the default signature fee in lamports.
const feePerSignature = 5000

// Config carries the resolved execution context shared by all commands.
type Config struct {
	log *logrus.Entry

	client    solana.Client
	programID ed25519.PublicKey

	owner    ed25519.PrivateKey
	feePayer ed25519.PrivateKey
}

func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		logrus.StandardLogger().WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "escrow",
		Short:         "Manage custodial escrows on Solana",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "configuration file to use")
	root.PersistentFlags().String("url", "", "JSON RPC URL for the cluster")
	root.PersistentFlags().String("keypair", "", "owner keypair file")
	root.PersistentFlags().String("fee-payer", "", "fee payer keypair file [default: --keypair]")
	root.PersistentFlags().String("program-id", "", "address of the deployed escrow program")
	root.PersistentFlags().BoolP("verbose", "v", false, "show additional information")

	root.AddCommand(
		newCreateCommand(),
		newPayoutCommand(),
		newCancelCommand(),
		newShowCommand(),
	)

	return root
}

func loadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	v.SetDefault("url", "http://localhost:8899")
	v.SetEnvPrefix("escrow")
	v.AutomaticEnv()

	for _, flag := range []string{"url", "keypair", "fee-payer", "program-id", "verbose"} {
		if err := v.BindPFlag(flag, cmd.Flags().Lookup(flag)); err != nil {
			return nil, errors.Wrapf(err, "failed to bind flag %s", flag)
		}
	}

	if path, err := cmd.Flags().GetString("config"); err == nil && path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	if v.GetBool("verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}

	keypairPath := v.GetString("keypair")
	if keypairPath == "" {
		return nil, errors.New("no owner keypair configured (--keypair)")
	}
	owner, err := solana.LoadKeypair(keypairPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load owner keypair")
	}

	feePayer := owner
	if feePayerPath := v.GetString("fee-payer"); feePayerPath != "" {
		if feePayer, err = solana.LoadKeypair(feePayerPath); err != nil {
			return nil, errors.Wrap(err, "failed to load fee payer keypair")
		}
	}

	programValue := v.GetString("program-id")
	if programValue == "" {
		return nil, errors.New("no escrow program configured (--program-id)")
	}
	programID, err := solana.ParsePublicKey(programValue)
	if err != nil {
		return nil, errors.Wrap(err, "invalid program id")
	}

	return &Config{
		log:       logrus.StandardLogger().WithField("type", "cli"),
		client:    solana.NewClient(v.GetString("url")),
		programID: programID,
		owner:     owner,
		feePayer:  feePayer,
	}, nil
}

func (c *Config) ownerPublicKey() ed25519.PublicKey {
	return c.owner.Public().(ed25519.PublicKey)
}

func (c *Config) feePayerPublicKey() ed25519.PublicKey {
	return c.feePayer.Public().(ed25519.PublicKey)
}

// checkFeePayerBalance verifies the fee payer can cover the deposits and
// fees of the batch before it is submitted. Transient network failures are
// the caller's responsibility; no retries are attempted.
func (c *Config) checkFeePayerBalance(required uint64) error {
	balance, err := c.client.GetBalance(c.feePayerPublicKey())
	if err != nil {
		return errors.Wrap(err, "failed to query fee payer balance")
	}

	if balance < required {
		return errors.Wrapf(
			ErrInsufficientFeePayerBalance,
			"%d lamports required, %d available", required, balance,
		)
	}

	return nil
}

// signAndSubmit finalizes the batch with a fresh blockhash and sends it.
func (c *Config) signAndSubmit(txn *solana.Transaction, signers ...ed25519.PrivateKey) (solana.Signature, error) {
	blockhash, err := c.client.GetLatestBlockhash()
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to fetch recent blockhash")
	}

	txn.SetBlockhash(blockhash)
	if err := txn.Sign(signers...); err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to sign transaction")
	}

	return c.client.SubmitTransaction(*txn)
}

func pubkeyFlag(cmd *cobra.Command, name string) (ed25519.PublicKey, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}

	key, err := solana.ParsePublicKey(value)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid --%s", name)
	}
	return key, nil
}
