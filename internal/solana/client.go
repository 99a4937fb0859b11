package solana

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/jellydator/ttlcache/v3"
)

const (
	DefaultTxCacheSize = 1024
	DefaultTxCacheTTL  = 10 * time.Minute
)

// Client wraps a JSON-RPC connection to a Solana node.
type Client struct {
	rpcClient *rpc.Client
	txCache   *ttlcache.Cache[string, *Transaction]
}

type clientOptions struct {
	cacheSize uint64
	cacheTTL  time.Duration
}

type Option func(*clientOptions)

// WithTxCache bounds the transaction cache by entry count and age.
func WithTxCache(size uint64, ttl time.Duration) Option {
	return func(o *clientOptions) {
		if size > 0 {
			o.cacheSize = size
		}
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// NewClient dials rpcURL. A nil httpClient uses the rpc package default.
func NewClient(ctx context.Context, rpcURL string, httpClient *http.Client, opts ...Option) (*Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("solana rpc url is required")
	}
	o := clientOptions{cacheSize: DefaultTxCacheSize, cacheTTL: DefaultTxCacheTTL}
	for _, opt := range opts {
		opt(&o)
	}

	var rpcOpts []rpc.ClientOption
	if httpClient != nil {
		rpcOpts = append(rpcOpts, rpc.WithHTTPClient(httpClient))
	}
	rpcClient, err := rpc.DialOptions(ctx, rpcURL, rpcOpts...)
	if err != nil {
		return nil, err
	}
	txCache := ttlcache.New[string, *Transaction](
		ttlcache.WithTTL[string, *Transaction](o.cacheTTL),
		ttlcache.WithCapacity[string, *Transaction](o.cacheSize),
		ttlcache.WithDisableTouchOnHit[string, *Transaction](),
	)
	return &Client{rpcClient: rpcClient, txCache: txCache}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// Health calls getHealth and returns nil when the node reports "ok".
func (c *Client) Health(ctx context.Context) error {
	var status string
	if err := c.rpcClient.CallContext(ctx, &status, "getHealth"); err != nil {
		return err
	}
	if status != "ok" {
		return fmt.Errorf("node health: %s", status)
	}
	return nil
}

// Slot returns the current slot.
func (c *Client) Slot(ctx context.Context) (uint64, error) {
	var slot uint64
	if err := c.rpcClient.CallContext(ctx, &slot, "getSlot"); err != nil {
		return 0, err
	}
	return slot, nil
}

// Transaction fetches a confirmed transaction in jsonParsed encoding,
// using a bounded cache. A nil result means the node does not know it.
func (c *Client) Transaction(ctx context.Context, signature string) (*Transaction, error) {
	if item := c.txCache.Get(signature); item != nil {
		return item.Value(), nil
	}

	var tx *Transaction
	err := c.rpcClient.CallContext(ctx, &tx, "getTransaction", signature, map[string]any{
		"encoding":                       "jsonParsed",
		"commitment":                     "confirmed",
		"maxSupportedTransactionVersion": 0,
	})
	if err != nil {
		return nil, fmt.Errorf("getTransaction %s: %w", signature, err)
	}
	if tx == nil {
		return nil, nil
	}

	c.txCache.Set(signature, tx, ttlcache.DefaultTTL)
	return tx, nil
}

// CachedTransactions returns the number of cached transactions.
func (c *Client) CachedTransactions() int {
	return c.txCache.Len()
}
