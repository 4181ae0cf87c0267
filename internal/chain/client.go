// Package chain wraps the go-ethereum JSON-RPC client with the calls the
// in3 commands need.
package chain

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/in3-cli/in3cli/internal/log"
)

// ErrNoEndpoint is returned when a network has no RPC URL configured
var ErrNoEndpoint = errors.New("no RPC endpoint configured")

// Options describes how to reach a network
type Options struct {
	URLs               []string
	ChainID            int64
	InsecureSkipVerify bool
	Timeout            time.Duration
	// RateLimit caps HTTP requests per second; zero disables the limit
	RateLimit float64
}

// Client talks to one JSON-RPC endpoint
type Client struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	url     string
	chainID *big.Int
	logger  zerolog.Logger
}

// Dial connects to the first URL in opts that accepts a connection
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if len(opts.URLs) == 0 {
		return nil, ErrNoEndpoint
	}

	httpClient := newHTTPClient(opts)

	var lastErr error
	for _, url := range opts.URLs {
		rc, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(httpClient))
		if err != nil {
			log.Chain.Debug().Err(err).Str("url", url).Msg("endpoint rejected connection")
			lastErr = err
			continue
		}
		return newClient(rc, url, opts), nil
	}

	return nil, fmt.Errorf("failed to connect to %s: %w", opts.URLs[len(opts.URLs)-1], lastErr)
}

func newClient(rc *rpc.Client, url string, opts Options) *Client {
	c := &Client{
		rpc:    rc,
		eth:    ethclient.NewClient(rc),
		url:    url,
		logger: log.Chain.With().Str("url", url).Logger(),
	}
	if opts.ChainID > 0 {
		c.chainID = big.NewInt(opts.ChainID)
	}
	return c
}

func newHTTPClient(opts Options) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- per-profile opt-in
	}
	return &http.Client{
		Transport: newRateLimitedTransport(transport, opts.RateLimit),
		Timeout:   opts.Timeout,
	}
}

// URL returns the endpoint this client is connected to
func (c *Client) URL() string {
	return c.url
}

// Close closes the underlying connection
func (c *Client) Close() {
	c.rpc.Close()
}

// ChainID returns the chain id, asking the node when none was configured
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if c.chainID != nil {
		return new(big.Int).Set(c.chainID), nil
	}
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	c.chainID = id
	return new(big.Int).Set(id), nil
}

// BlockNumber returns the latest block number
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	return n, nil
}

// GasPrice returns the suggested gas price in wei
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return price, nil
}

// Balance returns the latest balance of address in wei
func (c *Client) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", address.Hex(), err)
	}
	return balance, nil
}
