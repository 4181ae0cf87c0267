package chain

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// NodeStatus is the result of probing one endpoint
type NodeStatus struct {
	URL         string        `json:"url"`
	ChainID     uint64        `json:"chainId"`
	BlockNumber uint64        `json:"blockNumber"`
	Latency     time.Duration `json:"latency"`
	Error       string        `json:"error,omitempty"`
}

// Healthy reports whether the endpoint answered as expected
func (s NodeStatus) Healthy() bool {
	return s.Error == ""
}

// CheckNodes queries every configured endpoint concurrently. Results keep
// the order of opts.URLs.
func CheckNodes(ctx context.Context, opts Options) []NodeStatus {
	results := make([]NodeStatus, len(opts.URLs))
	httpClient := newHTTPClient(opts)

	var wg sync.WaitGroup
	for i, url := range opts.URLs {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			results[i] = checkNode(ctx, url, opts, httpClient)
		}(i, url)
	}
	wg.Wait()

	return results
}

func checkNode(ctx context.Context, url string, opts Options, httpClient *http.Client) NodeStatus {
	status := NodeStatus{URL: url}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	rc, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(httpClient))
	if err != nil {
		status.Error = err.Error()
		return status
	}
	c := newClient(rc, url, Options{})
	defer c.Close()

	id, err := c.ChainID(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.ChainID = id.Uint64()

	number, err := c.BlockNumber(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.BlockNumber = number
	status.Latency = time.Since(start)

	if opts.ChainID > 0 && status.ChainID != uint64(opts.ChainID) {
		status.Error = fmt.Sprintf("unexpected chain id %d, expected %d", status.ChainID, opts.ChainID)
	}
	return status
}
