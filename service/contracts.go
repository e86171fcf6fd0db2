package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
)

// TokenStateReader defines the interface for reading the state of a token
// contract, see web3.TokenReader.
type TokenStateReader interface {
	LatestBlock(ctx context.Context) (uint64, error)
	TokenState(ctx context.Context, owner common.Address, blockNumber uint64) (*tokenstate.TokenState, error)
}
