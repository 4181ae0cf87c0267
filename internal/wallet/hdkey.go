package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
)

// BIP-44 path constants for Ethereum: m/44'/60'/account'/0/index
const (
	PurposeBIP44     = bip32.FirstHardenedChild + 44
	CoinTypeEthereum = bip32.FirstHardenedChild + 60
	ChangeExternal   = 0
)

// Account is a derived key pair
type Account struct {
	Path       string
	Address    common.Address
	privateKey []byte
}

// PrivateKeyHex returns the private key as 0x-prefixed hex
func (a *Account) PrivateKeyHex() string {
	return "0x" + hex.EncodeToString(a.privateKey)
}

// Zero clears the private key
func (a *Account) Zero() {
	for i := range a.privateKey {
		a.privateKey[i] = 0
	}
}

// DeriveAccount derives the external key at index of the first account.
func DeriveAccount(mnemonic, passphrase string, index uint32) (*Account, error) {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	return DeriveFromSeed(seed, index)
}

// DeriveFromSeed derives m/44'/60'/0'/0/index from a 64-byte seed.
func DeriveFromSeed(seed []byte, index uint32) (*Account, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	if index >= bip32.FirstHardenedChild {
		return nil, fmt.Errorf("index %d out of range", index)
	}

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}

	for _, idx := range []uint32{PurposeBIP44, CoinTypeEthereum, bip32.FirstHardenedChild, ChangeExternal, index} {
		key, err = key.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
	}

	priv := key.Key
	// bip32 may keep a leading zero for private keys.
	if len(priv) == 33 && priv[0] == 0 {
		priv = priv[1:]
	}
	if len(priv) != 32 {
		return nil, fmt.Errorf("unexpected private key length %d", len(priv))
	}

	address, err := AddressFromPrivateKey(priv)
	if err != nil {
		return nil, err
	}

	return &Account{
		Path:       fmt.Sprintf("m/44'/60'/0'/0/%d", index),
		Address:    address,
		privateKey: append([]byte(nil), priv...),
	}, nil
}

// AddressFromPrivateKey computes the Ethereum address of a raw secp256k1 key
func AddressFromPrivateKey(priv []byte) (common.Address, error) {
	if len(priv) != 32 {
		return common.Address{}, fmt.Errorf("private key must be 32 bytes, got %d", len(priv))
	}
	pub := secp256k1.PrivKeyFromBytes(priv).PubKey().SerializeUncompressed()
	return common.BytesToAddress(crypto.Keccak256(pub[1:])[12:]), nil
}
