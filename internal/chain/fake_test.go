package chain

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

const (
	testKeyHex  = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"
	testAddrHex = "0x970E8128AB834E8EAC17Ab8E3812F010678CF791"
)

var testChainID = big.NewInt(1337)

type ensRecord struct {
	owner    common.Address
	resolver common.Address
	addr     common.Address
}

// fakeEth serves the subset of the eth namespace the client uses
type fakeEth struct {
	mu       sync.Mutex
	head     uint64
	gasPrice *big.Int
	balances map[common.Address]*big.Int
	blocks   []map[string]interface{}
	txs      map[common.Hash]map[string]interface{}
	ens      map[common.Hash]ensRecord
	nonces   map[common.Address]uint64
	sent     []*gethtypes.Transaction
	// hidden block numbers are reported as head but not served yet
	hidden map[uint64]int
}

func newFakeEth() *fakeEth {
	return &fakeEth{
		gasPrice: big.NewInt(2_000_000_000),
		balances: make(map[common.Address]*big.Int),
		txs:      make(map[common.Hash]map[string]interface{}),
		ens:      make(map[common.Hash]ensRecord),
		nonces:   make(map[common.Address]uint64),
		hidden:   make(map[uint64]int),
	}
}

func (f *fakeEth) ChainId() *hexutil.Big {
	return (*hexutil.Big)(testChainID)
}

func (f *fakeEth) BlockNumber() hexutil.Uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return hexutil.Uint64(f.head)
}

func (f *fakeEth) GasPrice() *hexutil.Big {
	return (*hexutil.Big)(f.gasPrice)
}

func (f *fakeEth) GetBalance(address common.Address, block string) *hexutil.Big {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[address]; ok {
		return (*hexutil.Big)(b)
	}
	return (*hexutil.Big)(big.NewInt(0))
}

func (f *fakeEth) GetTransactionCount(address common.Address, block string) hexutil.Uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return hexutil.Uint64(f.nonces[address])
}

func (f *fakeEth) EstimateGas(args map[string]interface{}, block *string) hexutil.Uint64 {
	return 21000
}

func (f *fakeEth) GetBlockByNumber(number string, full bool) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n uint64
	switch number {
	case "latest", "pending":
		n = f.head
	case "earliest":
		n = 0
	default:
		parsed, err := hexutil.DecodeUint64(number)
		if err != nil {
			return nil, err
		}
		n = parsed
	}

	if f.hidden[n] > 0 {
		f.hidden[n]--
		return nil, nil
	}
	if n >= uint64(len(f.blocks)) {
		return nil, nil
	}
	return f.blocks[n], nil
}

func (f *fakeEth) GetBlockByHash(hash common.Hash, full bool) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.blocks {
		if b["hash"] == hash.Hex() {
			return b, nil
		}
	}
	return nil, nil
}

func (f *fakeEth) GetTransactionByHash(hash common.Hash) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txs[hash]
}

func (f *fakeEth) Call(args map[string]interface{}, block *string) (hexutil.Bytes, error) {
	input, _ := args["input"].(string)
	if input == "" {
		input, _ = args["data"].(string)
	}
	data, err := hexutil.Decode(input)
	if err != nil || len(data) != 36 {
		return nil, errors.New("bad call data")
	}
	to := common.HexToAddress(args["to"].(string))
	selector, node := data[:4], common.BytesToHash(data[4:])

	f.mu.Lock()
	record := f.ens[node]
	f.mu.Unlock()

	var result common.Address
	switch {
	case to == RegistryAddress && bytes.Equal(selector, selectorOwner):
		result = record.owner
	case to == RegistryAddress && bytes.Equal(selector, selectorResolver):
		result = record.resolver
	case to == record.resolver && bytes.Equal(selector, selectorAddr):
		result = record.addr
	default:
		// No contract code: empty result
		return hexutil.Bytes{}, nil
	}
	return common.LeftPadBytes(result.Bytes(), 32), nil
}

func (f *fakeEth) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	tx := new(gethtypes.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return tx.Hash(), nil
}

// addBlock appends a block holding txs and moves the head to it
func (f *fakeEth) addBlock(t *testing.T, txs ...*gethtypes.Transaction) common.Hash {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	number := uint64(len(f.blocks))
	header := &gethtypes.Header{
		Number:     new(big.Int).SetUint64(number),
		Difficulty: big.NewInt(0),
		GasLimit:   30_000_000,
		Time:       1_700_000_000 + number*12,
		Extra:      []byte("in3"),
		UncleHash:  gethtypes.EmptyUncleHash,
		TxHash:     gethtypes.EmptyTxsHash,
		Coinbase:   common.HexToAddress(testAddrHex),
	}
	if number > 0 {
		header.ParentHash = common.HexToHash(f.blocks[number-1]["hash"].(string))
	}
	if len(txs) > 0 {
		header.TxHash = txs[0].Hash()
		header.GasUsed = 21000 * uint64(len(txs))
	}

	block := toJSONMap(t, header)
	hash := block["hash"].(string)

	signer := gethtypes.LatestSignerForChainID(testChainID)
	list := make([]interface{}, 0, len(txs))
	for i, tx := range txs {
		entry := toJSONMap(t, tx)
		from, err := gethtypes.Sender(signer, tx)
		require.NoError(t, err)
		entry["from"] = from.Hex()
		entry["blockHash"] = hash
		entry["blockNumber"] = hexutil.EncodeUint64(number)
		entry["transactionIndex"] = hexutil.EncodeUint64(uint64(i))
		list = append(list, entry)
		f.txs[tx.Hash()] = entry
	}
	block["transactions"] = list
	block["uncles"] = []string{}

	f.blocks = append(f.blocks, block)
	f.head = number
	return common.HexToHash(hash)
}

// addPendingTx registers a transaction that is not in a block yet
func (f *fakeEth) addPendingTx(t *testing.T, tx *gethtypes.Transaction) {
	t.Helper()
	entry := toJSONMap(t, tx)
	entry["blockHash"] = nil
	entry["blockNumber"] = nil
	f.mu.Lock()
	f.txs[tx.Hash()] = entry
	f.mu.Unlock()
}

func toJSONMap(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	out := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func signedTransfer(t *testing.T, nonce uint64, to common.Address, value int64) *gethtypes.Transaction {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: big.NewInt(1_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(value),
	})
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(testChainID), key)
	require.NoError(t, err)
	return signed
}

func newRPCServer(t *testing.T, f *fakeEth) *rpc.Server {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", f))
	t.Cleanup(server.Stop)
	return server
}

// newTestClient returns a client wired in-process to f
func newTestClient(t *testing.T, f *fakeEth) *Client {
	t.Helper()
	rc := rpc.DialInProc(newRPCServer(t, f))
	c := newClient(rc, "inproc", Options{})
	t.Cleanup(c.Close)
	return c
}
