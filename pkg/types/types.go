package types

import (
	"fmt"
	"strings"
	"time"
)

const (
	// ProductName scopes every secret this tool stores
	ProductName = "in3cli"

	// Sentinel marks an unset profile name or address
	Sentinel = "__DEFAULT__"
)

// Network identifies the chain a profile talks to
type Network string

const (
	Mainnet Network = "mainnet"
	Kovan   Network = "kovan"
	Evan    Network = "evan"
	Goerli  Network = "goerli"
	IPFS    Network = "ipfs"
	EWC     Network = "ewc"
)

// DefaultNetwork is used when a profile has no network set
const DefaultNetwork = Mainnet

var networks = []Network{Mainnet, Kovan, Evan, Goerli, IPFS, EWC}

// Networks returns every supported network in display order
func Networks() []Network {
	out := make([]Network, len(networks))
	copy(out, networks)
	return out
}

// NetworkNames returns the supported networks as plain strings
func NetworkNames() []string {
	names := make([]string, len(networks))
	for i, n := range networks {
		names[i] = string(n)
	}
	return names
}

// ParseNetwork converts user input to a Network, ignoring case
func ParseNetwork(s string) (Network, error) {
	candidate := Network(strings.ToLower(strings.TrimSpace(s)))
	if candidate.Valid() {
		return candidate, nil
	}
	return "", fmt.Errorf("unsupported network '%s': expected one of %s", s, strings.Join(NetworkNames(), ", "))
}

// Valid reports whether n is one of the supported networks
func (n Network) Valid() bool {
	for _, known := range networks {
		if n == known {
			return true
		}
	}
	return false
}

func (n Network) String() string {
	return string(n)
}

// BlockTag is a symbolic block reference accepted by --block-num
type BlockTag string

const (
	BlockLatest   BlockTag = "latest"
	BlockEarliest BlockTag = "earliest"
	BlockPending  BlockTag = "pending"
)

// BlockTags returns the symbolic block references
func BlockTags() []BlockTag {
	return []BlockTag{BlockLatest, BlockEarliest, BlockPending}
}

// Confirmation represents user confirmation settings
type Confirmation struct {
	AssumeYes   bool          `json:"assume_yes"`
	Timeout     time.Duration `json:"timeout"`
	DefaultDeny bool          `json:"default_deny"`
}

// Block is the subset of block data shown by the eth commands
type Block struct {
	Number           uint64 `json:"number"`
	Hash             string `json:"hash"`
	ParentHash       string `json:"parentHash"`
	StateRoot        string `json:"stateRoot"`
	Miner            string `json:"miner"`
	Difficulty       string `json:"difficulty"`
	ExtraData        string `json:"extraData"`
	Size             uint64 `json:"size"`
	GasLimit         uint64 `json:"gasLimit"`
	GasUsed          uint64 `json:"gasUsed"`
	Timestamp        uint64 `json:"timestamp"`
	UncleCount       int    `json:"uncleCount"`
	TransactionCount int    `json:"transactionCount"`

	Transactions []Transaction `json:"-"`
}

// Transaction is the display form of a chain transaction
type Transaction struct {
	Hash        string `json:"hash"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	Gas         uint64 `json:"gas"`
	GasPrice    string `json:"gasPrice"`
	Nonce       uint64 `json:"nonce"`
	Input       string `json:"input,omitempty"`
	Pending     bool   `json:"pending,omitempty"`
}
