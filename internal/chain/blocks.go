package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/in3-cli/in3cli/pkg/types"
)

// ErrNotFound is returned when a block or transaction does not exist
var ErrNotFound = ethereum.NotFound

// BlockRef selects a block by tag or number
type BlockRef struct {
	Tag    types.BlockTag
	Number uint64
}

// Latest refers to the head block
var Latest = BlockRef{Tag: types.BlockLatest}

func (r BlockRef) rpcNumber() *big.Int {
	switch r.Tag {
	case types.BlockLatest:
		return nil
	case types.BlockEarliest:
		return big.NewInt(int64(rpc.EarliestBlockNumber))
	case types.BlockPending:
		return big.NewInt(int64(rpc.PendingBlockNumber))
	default:
		return new(big.Int).SetUint64(r.Number)
	}
}

func (r BlockRef) String() string {
	if r.Tag != "" {
		return string(r.Tag)
	}
	return fmt.Sprintf("%d", r.Number)
}

// BlockByNumber returns the block selected by ref, including transactions
func (c *Client) BlockByNumber(ctx context.Context, ref BlockRef) (*types.Block, error) {
	block, err := c.eth.BlockByNumber(ctx, ref.rpcNumber())
	if err != nil {
		return nil, fmt.Errorf("failed to get block %s: %w", ref, err)
	}
	return c.toBlock(ctx, block), nil
}

// BlockByHash returns the block with the given hash, including transactions
func (c *Client) BlockByHash(ctx context.Context, hash common.Hash) (*types.Block, error) {
	block, err := c.eth.BlockByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get block %s: %w", hash.Hex(), err)
	}
	return c.toBlock(ctx, block), nil
}

// WaitForBlock polls until the block is served or ctx ends. Nodes behind a
// load balancer can report a head they cannot serve yet.
func (c *Client) WaitForBlock(ctx context.Context, ref BlockRef, interval time.Duration) (*types.Block, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		block, err := c.BlockByNumber(ctx, ref)
		if err == nil {
			return block, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("block %s is not available: %w", ref, ctx.Err())
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		c.logger.Debug().Str("block", ref.String()).Msg("block not available yet")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("block %s is not available: %w", ref, ctx.Err())
		case <-ticker.C:
		}
	}
}

// TransactionByHash returns a transaction, pending or mined
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	var raw json.RawMessage
	if err := c.rpc.CallContext(ctx, &raw, "eth_getTransactionByHash", hash); err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", hash.Hex(), err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("transaction %s: %w", hash.Hex(), ethereum.NotFound)
	}

	tx := new(gethtypes.Transaction)
	if err := tx.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("failed to decode transaction %s: %w", hash.Hex(), err)
	}

	var extra struct {
		BlockNumber *hexutil.Big    `json:"blockNumber"`
		From        *common.Address `json:"from"`
	}
	if err := json.Unmarshal(raw, &extra); err != nil {
		return nil, fmt.Errorf("failed to decode transaction %s: %w", hash.Hex(), err)
	}

	out := c.toTransaction(tx)
	if extra.From != nil {
		out.From = extra.From.Hex()
	} else if from, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		out.From = from.Hex()
	}
	if extra.BlockNumber != nil {
		out.BlockNumber = extra.BlockNumber.ToInt().Uint64()
	} else {
		out.Pending = true
	}
	return out, nil
}

func (c *Client) toBlock(ctx context.Context, b *gethtypes.Block) *types.Block {
	out := &types.Block{
		Number:           b.NumberU64(),
		Hash:             b.Hash().Hex(),
		ParentHash:       b.ParentHash().Hex(),
		StateRoot:        b.Root().Hex(),
		Miner:            b.Coinbase().Hex(),
		Difficulty:       b.Difficulty().String(),
		ExtraData:        hexutil.Encode(b.Extra()),
		Size:             b.Size(),
		GasLimit:         b.GasLimit(),
		GasUsed:          b.GasUsed(),
		Timestamp:        b.Time(),
		UncleCount:       len(b.Uncles()),
		TransactionCount: len(b.Transactions()),
	}

	for i, tx := range b.Transactions() {
		t := c.toTransaction(tx)
		t.BlockNumber = out.Number
		if from, err := c.eth.TransactionSender(ctx, tx, b.Hash(), uint(i)); err == nil {
			t.From = from.Hex()
		} else {
			c.logger.Debug().Err(err).Str("tx", t.Hash).Msg("sender unknown")
		}
		out.Transactions = append(out.Transactions, *t)
	}
	return out
}

func (c *Client) toTransaction(tx *gethtypes.Transaction) *types.Transaction {
	out := &types.Transaction{
		Hash:     tx.Hash().Hex(),
		Value:    tx.Value().String(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice().String(),
		Nonce:    tx.Nonce(),
	}
	if to := tx.To(); to != nil {
		out.To = to.Hex()
	}
	if data := tx.Data(); len(data) > 0 {
		out.Input = hexutil.Encode(data)
	}
	return out
}
