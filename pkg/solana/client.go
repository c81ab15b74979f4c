package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"
)

var (
	ErrNoAccountInfo = errors.New("no account info")
	ErrNoBalance     = errors.New("no balance")
)

// AccountInfo contains the Solana account information (not to be confused
// with a token account).
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

// Client is the subset of the Solana JSON-RPC API required to assemble,
// fund, and submit transactions.
type Client interface {
	GetMinimumBalanceForRentExemption(size uint64) (uint64, error)
	GetBalance(account ed25519.PublicKey) (uint64, error)
	GetLatestBlockhash() (Blockhash, error)
	GetAccountInfo(account ed25519.PublicKey) (AccountInfo, error)
	GetTokenAccountBalance(account ed25519.PublicKey) (uint64, error)
	SubmitTransaction(txn Transaction) (Signature, error)
}

type client struct {
	log    *logrus.Entry
	client jsonrpc.RPCClient
}

// NewClient returns a client using the specified RPC endpoint.
func NewClient(endpoint string) Client {
	return &client{
		log:    logrus.StandardLogger().WithField("type", "solana/client"),
		client: jsonrpc.NewClient(endpoint),
	}
}

func (c *client) call(out interface{}, method string, params ...interface{}) error {
	return c.client.CallFor(out, method, params...)
}

func (c *client) GetMinimumBalanceForRentExemption(size uint64) (lamports uint64, err error) {
	if err := c.call(&lamports, "getMinimumBalanceForRentExemption", size); err != nil {
		return 0, errors.Wrap(err, "getMinimumBalanceForRentExemption() failed to send request")
	}

	return lamports, nil
}

func (c *client) GetBalance(account ed25519.PublicKey) (uint64, error) {
	type response struct {
		Value float64 `json:"value"`
	}

	var resp response
	if err := c.call(&resp, "getBalance", base58.Encode(account)); err != nil {
		return 0, errors.Wrap(err, "getBalance() failed to send request")
	}

	return uint64(resp.Value), nil
}

func (c *client) GetLatestBlockhash() (hash Blockhash, err error) {
	type response struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}

	var resp response
	if err := c.call(&resp, "getLatestBlockhash"); err != nil {
		return hash, errors.Wrap(err, "getLatestBlockhash() failed to send request")
	}

	hashBytes, err := base58.Decode(resp.Value.Blockhash)
	if err != nil {
		return hash, errors.Wrap(err, "invalid base58 encoded hash in response")
	}

	copy(hash[:], hashBytes)
	return hash, nil
}

func (c *client) GetAccountInfo(account ed25519.PublicKey) (accountInfo AccountInfo, err error) {
	type response struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}

	rpcConfig := struct {
		Encoding string `json:"encoding"`
	}{
		Encoding: "base64",
	}

	var resp response
	if err := c.call(&resp, "getAccountInfo", base58.Encode(account), rpcConfig); err != nil {
		return accountInfo, errors.Wrap(err, "getAccountInfo() failed to send request")
	}

	if resp.Value == nil {
		return accountInfo, ErrNoAccountInfo
	}

	accountInfo.Owner, err = base58.Decode(resp.Value.Owner)
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base58 encoded owner")
	}

	if len(resp.Value.Data) == 0 {
		return accountInfo, errors.New("missing account data in response")
	}

	accountInfo.Data, err = base64.StdEncoding.DecodeString(resp.Value.Data[0])
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base64 encoded data")
	}

	accountInfo.Lamports = resp.Value.Lamports
	accountInfo.Executable = resp.Value.Executable

	return accountInfo, nil
}

func (c *client) GetTokenAccountBalance(account ed25519.PublicKey) (uint64, error) {
	type response struct {
		Value struct {
			Amount string `json:"amount"`
		} `json:"value"`
	}

	var resp response
	if err := c.call(&resp, "getTokenAccountBalance", base58.Encode(account)); err != nil {
		return 0, errors.Wrap(err, "getTokenAccountBalance() failed to send request")
	}

	// The amount is a stringified u64.
	balance, err := strconv.ParseUint(resp.Value.Amount, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "invalid amount in response")
	}

	return balance, nil
}

func (c *client) SubmitTransaction(txn Transaction) (Signature, error) {
	sig := txn.Signatures[0]
	txnBytes := txn.Marshal()

	config := struct {
		SkipPreflight       bool   `json:"skipPreflight"`
		PreflightCommitment string `json:"preflightCommitment"`
	}{
		SkipPreflight:       false,
		PreflightCommitment: "confirmed",
	}

	var sigStr string
	if err := c.call(&sigStr, "sendTransaction", base58.Encode(txnBytes), config); err != nil {
		c.log.WithError(err).Debug("sendTransaction failed")

		if rpcErr, ok := err.(*jsonrpc.RPCError); ok {
			return sig, parseRPCError(rpcErr)
		}

		return sig, errors.Wrap(err, "sendTransaction() failed to send request")
	}

	return sig, nil
}
