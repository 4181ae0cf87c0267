package output

import (
	"strconv"
	"time"

	"github.com/in3-cli/in3cli/pkg/types"
)

// BlockTable returns the tabular view of blocks. The summary view keeps
// the columns that fit a terminal.
func BlockTable(blocks []types.Block, summary bool) Table {
	t := Table{Header: []string{"Number", "Hash", "Miner", "Gas Used", "Timestamp", "Transactions"}}
	if !summary {
		t.Header = []string{
			"Number", "Hash", "Parent Hash", "State Root", "Miner", "Difficulty",
			"Extra Data", "Size", "Gas Limit", "Gas Used", "Timestamp", "Uncles", "Transactions",
		}
	}

	for _, b := range blocks {
		if summary {
			t.Rows = append(t.Rows, []string{
				u64(b.Number), b.Hash, b.Miner, u64(b.GasUsed), FormatTimestamp(b.Timestamp), strconv.Itoa(b.TransactionCount),
			})
			continue
		}
		t.Rows = append(t.Rows, []string{
			u64(b.Number), b.Hash, b.ParentHash, b.StateRoot, b.Miner, b.Difficulty,
			b.ExtraData, u64(b.Size), u64(b.GasLimit), u64(b.GasUsed), FormatTimestamp(b.Timestamp),
			strconv.Itoa(b.UncleCount), strconv.Itoa(b.TransactionCount),
		})
	}
	return t
}

// TransactionTable returns the tabular view of transactions
func TransactionTable(txs []types.Transaction) Table {
	t := Table{Header: []string{"Hash", "Block", "From", "To", "Value", "Gas", "Gas Price", "Nonce"}}
	for _, tx := range txs {
		block := u64(tx.BlockNumber)
		if tx.Pending {
			block = "pending"
		}
		t.Rows = append(t.Rows, []string{
			tx.Hash, block, tx.From, tx.To, tx.Value, u64(tx.Gas), tx.GasPrice, u64(tx.Nonce),
		})
	}
	return t
}

// FormatTimestamp renders a unix timestamp as a UTC date
func FormatTimestamp(ts uint64) string {
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02 15:04:05")
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
