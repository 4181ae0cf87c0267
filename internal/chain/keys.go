package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidPrivateKey is returned when a key cannot be recovered
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrKeyMismatch is returned when a key does not belong to the expected address
	ErrKeyMismatch = errors.New("private key does not match the account address")
)

// ParsePrivateKey decodes a hex private key with or without 0x prefix
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimSpace(hexKey)
	hexKey = strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X")

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	return key, nil
}

// RecoverAddress returns the address controlled by a private key
func RecoverAddress(hexKey string) (common.Address, error) {
	key, err := ParsePrivateKey(hexKey)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// ValidatePrivateKey checks that hexKey is a usable key and, when expected
// is a hex address, that it controls that address.
func ValidatePrivateKey(hexKey, expected string) error {
	address, err := RecoverAddress(hexKey)
	if err != nil {
		return err
	}

	if !common.IsHexAddress(expected) {
		return nil
	}
	if address != common.HexToAddress(expected) {
		return ErrKeyMismatch
	}
	return nil
}

// SendValue signs and submits a plain value transfer. It returns the
// transaction hash.
func (c *Client) SendValue(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int) (common.Hash, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	chainID, err := c.ChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.GasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
	})

	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Info().
		Str("from", from.Hex()).
		Str("to", to.Hex()).
		Str("tx", signed.Hash().Hex()).
		Msg("transaction submitted")

	return signed.Hash(), nil
}
