// Package token models a capped, mintable token ledger: minting can never
// push the total supply over the cap and every operation is recorded in a
// new block, so the state of the token can be read at any past block and
// proved with the tokenstate circuit.
package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/crypto/field"
	"github.com/vocdoni/tokenzk/log"
)

var (
	// ErrCapExceeded is returned when a mint would push the total supply
	// over the cap.
	ErrCapExceeded = errors.New("cap exceeded")
	// ErrInsufficientBalance is returned when a transfer exceeds the balance
	// of the sender.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount is returned for nil, zero or negative amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrBlockNotFound is returned when a state is requested at a block
	// that does not exist yet.
	ErrBlockNotFound = errors.New("block not found")
)

// checkpoint is the value of a counter from a block on.
type checkpoint struct {
	block uint64
	value *big.Int
}

// checkpoints is the history of a counter, sorted by block.
type checkpoints []checkpoint

// at returns the value of the counter at the block provided.
func (cp checkpoints) at(block uint64) *big.Int {
	i := sort.Search(len(cp), func(i int) bool { return cp[i].block > block })
	if i == 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(cp[i-1].value)
}

func (cp checkpoints) latest() *big.Int {
	if len(cp) == 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(cp[len(cp)-1].value)
}

// Token is a capped token ledger. Every Mint or Transfer is mined in its own
// block, starting at block one. It is safe for concurrent use.
type Token struct {
	mu          sync.RWMutex
	cap         *big.Int
	block       uint64
	timestamps  map[uint64]uint64
	totalSupply checkpoints
	balances    map[common.Address]checkpoints
	now         func() time.Time
}

// New returns a token with the cap provided and no supply. The cap must be
// positive and a field element.
func New(tokenCap *big.Int) (*Token, error) {
	if tokenCap == nil || tokenCap.Sign() <= 0 {
		return nil, fmt.Errorf("%w: cap must be positive", ErrInvalidAmount)
	}
	if !field.IsCanonical(tokenCap) {
		return nil, fmt.Errorf("%w: cap is not a field element", ErrInvalidAmount)
	}
	return &Token{
		cap:        new(big.Int).Set(tokenCap),
		timestamps: make(map[uint64]uint64),
		balances:   make(map[common.Address]checkpoints),
		now:        time.Now,
	}, nil
}

// mine opens a new block. It must be called with the lock held.
func (t *Token) mine() uint64 {
	t.block++
	t.timestamps[t.block] = uint64(t.now().Unix())
	return t.block
}

func (t *Token) setBalance(account common.Address, block uint64, value *big.Int) {
	t.balances[account] = append(t.balances[account], checkpoint{block: block, value: value})
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Mint creates amount tokens for the account provided. It returns
// ErrCapExceeded, without changing the ledger, if the new supply would be
// over the cap. It returns the block of the mint.
func (t *Token) Mint(to common.Address, amount *big.Int) (uint64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	supply := new(big.Int).Add(t.totalSupply.latest(), amount)
	if supply.Cmp(t.cap) > 0 {
		return 0, fmt.Errorf("%w: supply %s over cap %s", ErrCapExceeded, supply, t.cap)
	}
	block := t.mine()
	t.totalSupply = append(t.totalSupply, checkpoint{block: block, value: supply})
	t.setBalance(to, block, new(big.Int).Add(t.balances[to].latest(), amount))
	log.Debugw("tokens minted", "to", to.Hex(), "amount", amount.String(), "block", block)
	return block, nil
}

// Transfer moves amount tokens from one account to another. It returns
// ErrInsufficientBalance, without changing the ledger, if the sender does
// not have enough tokens. It returns the block of the transfer.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) (uint64, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fromBalance := t.balances[from].latest()
	if fromBalance.Cmp(amount) < 0 {
		return 0, fmt.Errorf("%w: %s has %s", ErrInsufficientBalance, from.Hex(), fromBalance)
	}
	block := t.mine()
	t.setBalance(from, block, fromBalance.Sub(fromBalance, amount))
	t.setBalance(to, block, new(big.Int).Add(t.balances[to].latest(), amount))
	log.Debugw("tokens transferred", "from", from.Hex(), "to", to.Hex(), "amount", amount.String(), "block", block)
	return block, nil
}

// Cap returns the cap of the token.
func (t *Token) Cap() *big.Int {
	return new(big.Int).Set(t.cap)
}

// TotalSupply returns the current total supply.
func (t *Token) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalSupply.latest()
}

// BalanceOf returns the current balance of the account.
func (t *Token) BalanceOf(account common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balances[account].latest()
}

// LatestBlock returns the number of the last mined block.
func (t *Token) LatestBlock(_ context.Context) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.block, nil
}

// TokenState returns the state of the token for the owner at the block
// provided, ready to be proved.
func (t *Token) TokenState(_ context.Context, owner common.Address, blockNumber uint64) (*tokenstate.TokenState, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if blockNumber == 0 || blockNumber > t.block {
		return nil, fmt.Errorf("%w: %d", ErrBlockNotFound, blockNumber)
	}
	return &tokenstate.TokenState{
		TotalSupply:  t.totalSupply.at(blockNumber),
		Cap:          new(big.Int).Set(t.cap),
		OwnerBalance: t.balances[owner].at(blockNumber),
		BlockNumber:  new(big.Int).SetUint64(blockNumber),
		Timestamp:    new(big.Int).SetUint64(t.timestamps[blockNumber]),
		Owner:        field.FromAddress(owner),
	}, nil
}

// Snapshot returns the state of the token for the owner at the latest
// block.
func (t *Token) Snapshot(owner common.Address) (*tokenstate.TokenState, error) {
	block, _ := t.LatestBlock(context.Background())
	return t.TokenState(context.Background(), owner, block)
}
