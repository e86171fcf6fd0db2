// Package rpc balances the read calls of the token reader over a set of web3
// endpoints grouped by chainID. Failing endpoints are set aside until every
// endpoint of the chain has failed, then all of them are tried again.
package rpc

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vocdoni/tokenzk/log"
)

const (
	// DefaultMaxWeb3ClientRetries is the number of dial attempts per endpoint.
	DefaultMaxWeb3ClientRetries = 5
	dialTimeout                 = 10 * time.Second
	txTypeNotSupported          = "transaction type not supported"
)

var notFoundRgx = regexp.MustCompile(`not\s[be\s|]*found`)

// Web3Pool keeps one round robin iterator of endpoints per chainID.
type Web3Pool struct {
	mtx    sync.RWMutex
	chains map[uint64]*Web3Iterator
}

// NewWeb3Pool returns an empty pool.
func NewWeb3Pool() *Web3Pool {
	return &Web3Pool{chains: make(map[uint64]*Web3Iterator)}
}

// AddEndpoint dials the URI, resolves its chainID and adds it to the pool.
// Token snapshots are read at past blocks, so endpoints that do not look
// like archive nodes are accepted with a warning.
func (p *Web3Pool) AddEndpoint(uri string) (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	cli, err := dial(ctx, uri)
	if err != nil {
		return 0, err
	}
	id, err := cli.ChainID(ctx)
	if err != nil {
		cli.Close()
		return 0, fmt.Errorf("cannot get the chainID of %s: %w", uri, err)
	}
	chainID := id.Uint64()
	archive, err := isArchiveNode(ctx, cli)
	if err != nil {
		log.Warnw("cannot tell if the endpoint is an archive node", "uri", uri, "error", err)
	}
	if !archive {
		log.Warnw("endpoint is not an archive node, reads at old blocks may fail", "uri", uri)
	}
	endpoint := &Web3Endpoint{ChainID: chainID, URI: uri, IsArchive: archive, client: cli}

	p.mtx.Lock()
	if iter, ok := p.chains[chainID]; ok {
		iter.Add(endpoint)
	} else {
		p.chains[chainID] = NewWeb3Iterator(endpoint)
	}
	p.mtx.Unlock()
	log.Infow("web3 endpoint added", "chainID", chainID, "uri", uri, "archive", archive)
	return chainID, nil
}

// DelEndpoint disables the URI on every chain it belongs to.
func (p *Web3Pool) DelEndpoint(uri string) {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	for _, iter := range p.chains {
		iter.Disable(uri)
	}
}

// Endpoint returns the next endpoint of the chain.
func (p *Web3Pool) Endpoint(chainID uint64) (*Web3Endpoint, error) {
	iter := p.iterator(chainID)
	if iter == nil {
		return nil, fmt.Errorf("no endpoint for chainID %d", chainID)
	}
	return iter.Next()
}

// DisableEndpoint sets the URI aside on the chain provided.
func (p *Web3Pool) DisableEndpoint(chainID uint64, uri string) {
	if iter := p.iterator(chainID); iter != nil {
		iter.Disable(uri)
	}
}

// NumberOfEndpoints counts the endpoints of the chain. With onlyAvailable
// set, the disabled ones are left out.
func (p *Web3Pool) NumberOfEndpoints(chainID uint64, onlyAvailable bool) int {
	iter := p.iterator(chainID)
	if iter == nil {
		return 0
	}
	if onlyAvailable {
		return iter.Available()
	}
	return iter.Available() + iter.Disabled()
}

// Client returns a balanced client for the chain.
func (p *Web3Pool) Client(chainID uint64) (*Client, error) {
	if p.iterator(chainID) == nil {
		return nil, fmt.Errorf("no endpoint for chainID %d", chainID)
	}
	return &Client{w3p: p, chainID: chainID}, nil
}

func (p *Web3Pool) iterator(chainID uint64) *Web3Iterator {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.chains[chainID]
}

func dial(ctx context.Context, uri string) (*ethclient.Client, error) {
	var err error
	for i := 0; i < DefaultMaxWeb3ClientRetries; i++ {
		var cli *ethclient.Client
		if cli, err = ethclient.DialContext(ctx, uri); err == nil {
			return cli, nil
		}
	}
	return nil, fmt.Errorf("cannot dial web3 endpoint %s: %w", uri, err)
}

// isArchiveNode asks for the transactions of block 1, which pruned nodes do
// not keep.
func isArchiveNode(ctx context.Context, cli *ethclient.Client) (bool, error) {
	block, err := cli.BlockByNumber(ctx, big.NewInt(1))
	if err != nil {
		if strings.Contains(err.Error(), txTypeNotSupported) {
			return true, nil
		}
		return false, fmt.Errorf("cannot get block 1: %w", err)
	}
	if _, err := cli.TransactionCount(ctx, block.Hash()); err != nil {
		switch {
		case notFoundRgx.MatchString(err.Error()):
			return false, nil
		case strings.Contains(err.Error(), txTypeNotSupported):
			return true, nil
		}
		return false, fmt.Errorf("cannot count the transactions of block 1: %w", err)
	}
	return true, nil
}
