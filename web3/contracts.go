package web3

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/crypto/field"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/web3/rpc"
)

// web3QueryTimeout is the timeout of every query to the token contract.
const web3QueryTimeout = 20 * time.Second

// CappedTokenABI is the ABI of the read methods of a capped ERC20 token, as
// the OpenZeppelin ERC20Capped extension exposes them.
const CappedTokenABI = `[
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"cap","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// Backend is the set of web3 methods used by the token reader. It is
// implemented by rpc.Client and ethclient.Client.
type Backend interface {
	bind.ContractCaller
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// TokenReader reads the state of a capped token contract at a given block.
type TokenReader struct {
	ChainID  uint64
	address  common.Address
	contract *bind.BoundContract
	backend  Backend
	web3pool *rpc.Web3Pool
}

// NewTokenReader creates a new TokenReader for the token contract address
// provided, connected to the web3 endpoint provided.
func NewTokenReader(address common.Address, web3rpc string) (*TokenReader, error) {
	w3pool := rpc.NewWeb3Pool()
	chainID, err := w3pool.AddEndpoint(web3rpc)
	if err != nil {
		return nil, fmt.Errorf("failed to add web3 endpoint: %w", err)
	}
	cli, err := w3pool.Client(chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	reader, err := NewTokenReaderWithBackend(address, cli)
	if err != nil {
		return nil, err
	}
	reader.ChainID = chainID
	reader.web3pool = w3pool
	return reader, nil
}

// NewTokenReaderWithBackend creates a new TokenReader over the backend
// provided.
func NewTokenReaderWithBackend(address common.Address, backend Backend) (*TokenReader, error) {
	parsed, err := abi.JSON(strings.NewReader(CappedTokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}
	return &TokenReader{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, nil, nil),
		backend:  backend,
	}, nil
}

// AddWeb3Endpoint adds a new web3 endpoint to the pool. The endpoint must
// serve the same chain as the first one.
func (t *TokenReader) AddWeb3Endpoint(web3rpc string) error {
	if t.web3pool == nil {
		return fmt.Errorf("token reader has no web3 pool")
	}
	chainID, err := t.web3pool.AddEndpoint(web3rpc)
	if err != nil {
		return err
	}
	if chainID != t.ChainID {
		t.web3pool.DelEndpoint(web3rpc)
		return fmt.Errorf("endpoint chainID %d does not match %d", chainID, t.ChainID)
	}
	return nil
}

// Address returns the address of the token contract.
func (t *TokenReader) Address() common.Address {
	return t.address
}

// TotalSupply returns the total supply of the token at the block provided,
// or at the latest block if it is nil.
func (t *TokenReader) TotalSupply(ctx context.Context, block *big.Int) (*big.Int, error) {
	return t.callUint256(ctx, block, "totalSupply")
}

// Cap returns the cap of the token at the block provided.
func (t *TokenReader) Cap(ctx context.Context, block *big.Int) (*big.Int, error) {
	return t.callUint256(ctx, block, "cap")
}

// BalanceOf returns the balance of the account at the block provided.
func (t *TokenReader) BalanceOf(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error) {
	return t.callUint256(ctx, block, "balanceOf", account)
}

// LatestBlock returns the number of the most recent block.
func (t *TokenReader) LatestBlock(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	return t.backend.BlockNumber(ctx)
}

// TokenState reads the token state at the block provided: the total supply,
// the cap, the balance of the owner and the block timestamp. Values that are
// not elements of the scalar field are rejected.
func (t *TokenReader) TokenState(ctx context.Context, owner common.Address, blockNumber uint64) (*tokenstate.TokenState, error) {
	block := new(big.Int).SetUint64(blockNumber)
	totalSupply, err := t.TotalSupply(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("failed to read total supply: %w", err)
	}
	tokenCap, err := t.Cap(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("failed to read cap: %w", err)
	}
	balance, err := t.BalanceOf(ctx, owner, block)
	if err != nil {
		return nil, fmt.Errorf("failed to read owner balance: %w", err)
	}
	hctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	header, err := t.backend.HeaderByNumber(hctx, block)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to read block header: %w", err)
	}
	state := &tokenstate.TokenState{
		TotalSupply:  totalSupply,
		Cap:          tokenCap,
		OwnerBalance: balance,
		BlockNumber:  block,
		Timestamp:    new(big.Int).SetUint64(header.Time),
		Owner:        field.FromAddress(owner),
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", circuits.ErrInvalidState, err)
	}
	log.Debugw("token state read",
		"token", t.address.Hex(),
		"owner", owner.Hex(),
		"blockNumber", blockNumber,
		"totalSupply", totalSupply.String(),
		"cap", tokenCap.String())
	return state, nil
}

func (t *TokenReader) callUint256(ctx context.Context, block *big.Int, method string, args ...any) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	var out []any
	if err := t.contract.Call(&bind.CallOpts{Context: ctx, BlockNumber: block}, &out, method, args...); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s output length %d", method, len(out))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
