// Package mint executes the on-chain mint: it loads the signing credential,
// gates on balance, encodes self-contained metadata, and calls the
// contract's mint method through the JSON-RPC provider.
package mint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mintchat/mintchat/internal/config"
	"github.com/mintchat/mintchat/internal/nft"
)

// ErrNotMintable means the descriptor is missing the image, prompt, or a
// valid wallet address.
var ErrNotMintable = errors.New("descriptor is not mintable")

// ErrCredential means the keystore file could not be read or decrypted.
var ErrCredential = errors.New("failed to unlock minting credential")

// ErrInsufficientBalance means the minting account cannot pay transaction
// fees. A zero balance is certain to be rejected by the network, so the
// mint short-circuits before submitting anything.
var ErrInsufficientBalance = errors.New("minting account has zero balance")

// TransactionError reports a failure during transaction submission or
// confirmation, with the provider's message attached.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("mint transaction failed: %v", e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// Orchestrator performs mints against the configured contract. Each Mint
// call dials its own provider connection and loads its own credential;
// nothing is shared across requests.
type Orchestrator struct {
	cfg config.ChainConfig
}

// New creates an orchestrator from the chain configuration.
func New(cfg config.ChainConfig) *Orchestrator {
	return &Orchestrator{cfg: cfg}
}

// Mint mints d's image as a token owned by d.Wallet and returns the
// confirmed transaction hash. Preconditions are checked in order, each
// with a distinct failure mode: connection parameters, credential
// decryption, then a strictly positive account balance.
func (o *Orchestrator) Mint(ctx context.Context, d nft.Descriptor) (string, error) {
	if !nft.Mintable(d) {
		return "", ErrNotMintable
	}
	if err := o.checkConfig(); err != nil {
		return "", err
	}

	keyJSON, err := os.ReadFile(o.cfg.KeystorePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredential, err)
	}
	key, err := keystore.DecryptKey(keyJSON, o.cfg.KeystorePassphrase)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredential, err)
	}

	client, err := ethclient.DialContext(ctx, o.cfg.RPCURL)
	if err != nil {
		return "", &TransactionError{Err: fmt.Errorf("dial provider: %w", err)}
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return "", &TransactionError{Err: fmt.Errorf("query chain id: %w", err)}
	}

	balance, err := client.BalanceAt(ctx, key.Address, nil)
	if err != nil {
		return "", &TransactionError{Err: fmt.Errorf("query balance: %w", err)}
	}
	if balance.Sign() <= 0 {
		return "", ErrInsufficientBalance
	}

	contractABI, err := o.loadABI()
	if err != nil {
		return "", err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key.PrivateKey, chainID)
	if err != nil {
		return "", &TransactionError{Err: err}
	}
	opts.Context = ctx

	contract := bind.NewBoundContract(
		common.HexToAddress(o.cfg.ContractAddress), contractABI, client, client, client)

	tx, err := contract.Transact(opts, "mint",
		common.HexToAddress(d.Wallet), nft.MetadataURI(d))
	if err != nil {
		return "", &TransactionError{Err: err}
	}

	receipt, err := bind.WaitMined(ctx, client, tx)
	if err != nil {
		return "", &TransactionError{Err: fmt.Errorf("await confirmation: %w", err)}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", &TransactionError{Err: fmt.Errorf("transaction %s reverted", tx.Hash().Hex())}
	}

	return tx.Hash().Hex(), nil
}

// checkConfig verifies the connection parameters, naming the first missing
// field.
func (o *Orchestrator) checkConfig() error {
	checks := []struct {
		value string
		field string
	}{
		{o.cfg.RPCURL, "CHAIN_RPC_URL"},
		{o.cfg.ContractAddress, "CONTRACT_ADDRESS"},
		{o.cfg.ContractABI, "CONTRACT_ABI"},
		{o.cfg.KeystorePath, "KEYSTORE_PATH"},
		{o.cfg.KeystorePassphrase, "KEYSTORE_PASSPHRASE"},
	}
	for _, c := range checks {
		if c.value == "" {
			return &config.ConfigurationError{Field: c.field}
		}
	}
	return nil
}

// loadABI parses the contract interface, resolving an @path reference to a
// file when configured that way.
func (o *Orchestrator) loadABI() (abi.ABI, error) {
	raw := o.cfg.ContractABI
	if strings.HasPrefix(raw, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(raw, "@"))
		if err != nil {
			return abi.ABI{}, fmt.Errorf("read contract ABI file: %w", err)
		}
		raw = string(data)
	}

	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse contract ABI: %w", err)
	}
	return parsed, nil
}
