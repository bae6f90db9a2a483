package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru"
)

// timestampCacheSize bounds the block timestamp cache. A range rarely spans
// more distinct log-bearing blocks than this.
const timestampCacheSize = 8192

// Client wraps go-ethereum RPC with the calls the indexer needs.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	timestamps *timestampCache
}

// NewClient dials rpcURL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	timestamps, err := newTimestampCache(timestampCacheSize)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}

	return &Client{
		rpcClient:  rpcClient,
		ethClient:  ethclient.NewClient(rpcClient),
		timestamps: timestamps,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain id.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("chain id does not fit in uint64: %s", id)
	}
	return id.Uint64(), nil
}

// LatestBlockNumber returns the head block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// BlockTimestamp returns a block's timestamp. Recent results are cached;
// blocks below the head do not change.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	if ts, ok := c.timestamps.get(number); ok {
		return ts, nil
	}

	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}
	c.timestamps.add(number, header.Time)
	return header.Time, nil
}

// timestampCache keeps the most recently used block timestamps.
type timestampCache struct {
	cache *lru.Cache
}

func newTimestampCache(size int) (*timestampCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create timestamp cache: %w", err)
	}
	return &timestampCache{cache: cache}, nil
}

func (t *timestampCache) get(number uint64) (uint64, bool) {
	v, ok := t.cache.Get(number)
	if !ok {
		return 0, false
	}
	return v.(uint64), true
}

func (t *timestampCache) add(number, ts uint64) {
	t.cache.Add(number, ts)
}

func (t *timestampCache) len() int {
	return t.cache.Len()
}

// FilterLogs returns logs in [fromBlock, toBlock] emitted by addresses whose
// first topic is one of topic0. An empty topic0 matches every event.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// CallContract performs an eth_call. A nil blockNumber reads the head.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}
