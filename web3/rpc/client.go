package rpc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vocdoni/tokenzk/log"
)

// defaultTimeout is the timeout of every call to an endpoint.
const defaultTimeout = 10 * time.Second

// Client struct implements the read methods of the web3 clients used by
// tokenzk over a pool of endpoints of the same chain. Every call is retried
// with the next endpoint of the chain if it fails, disabling the failing
// one.
type Client struct {
	w3p     *Web3Pool
	chainID uint64
}

// ChainID returns the chainID of the client.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// CallContract executes a message call at the block number provided, or at
// the latest block if it is nil.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	res, err := c.retryAndCheckErr(ctx, func(ctx context.Context, cli *ethclient.Client) (any, error) {
		return cli.CallContract(ctx, msg, blockNumber)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// HeaderByNumber returns the block header with the number provided, or the
// latest one if it is nil.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	res, err := c.retryAndCheckErr(ctx, func(ctx context.Context, cli *ethclient.Client) (any, error) {
		return cli.HeaderByNumber(ctx, number)
	})
	if err != nil {
		return nil, err
	}
	return res.(*types.Header), nil
}

// BlockNumber returns the most recent block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	res, err := c.retryAndCheckErr(ctx, func(ctx context.Context, cli *ethclient.Client) (any, error) {
		return cli.BlockNumber(ctx)
	})
	if err != nil {
		return 0, err
	}
	return res.(uint64), nil
}

// retryAndCheckErr calls fn with the next endpoint of the chain, up to the
// number of endpoints of the chain, disabling the endpoints that fail.
func (c *Client) retryAndCheckErr(ctx context.Context, fn func(context.Context, *ethclient.Client) (any, error)) (any, error) {
	attempts := c.w3p.NumberOfEndpoints(c.chainID, false)
	var lastErr error
	for i := 0; i < attempts; i++ {
		endpoint, err := c.w3p.Endpoint(c.chainID)
		if err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		res, err := fn(callCtx, endpoint.client)
		cancel()
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Debugw("web3 call failed", "chainID", c.chainID, "uri", endpoint.URI, "error", err.Error())
		c.w3p.DisableEndpoint(c.chainID, endpoint.URI)
		lastErr = err
	}
	return nil, fmt.Errorf("web3 call failed on every endpoint of chain %d: %w", c.chainID, lastErr)
}

// CodeAt returns the code of the contract at the block number provided.
func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	res, err := c.retryAndCheckErr(ctx, func(ctx context.Context, cli *ethclient.Client) (any, error) {
		return cli.CodeAt(ctx, account, blockNumber)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}
