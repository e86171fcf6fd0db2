package rpc

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Web3Endpoint struct contains all the required information about a web3
// provider based on its URI. It includes its chainID, its URI, whether it is
// an archive node and the client initialized for it.
type Web3Endpoint struct {
	ChainID   uint64 `json:"chainId"`
	URI       string `json:"uri"`
	IsArchive bool   `json:"isArchive"`
	client    *ethclient.Client
}

// Web3Iterator struct is a round robin iterator over the endpoints of a
// chain. Disabled endpoints are skipped until every endpoint is disabled,
// then all of them are enabled again.
type Web3Iterator struct {
	mtx       sync.Mutex
	available []*Web3Endpoint
	disabled  []*Web3Endpoint
	next      int
}

// NewWeb3Iterator returns a new iterator over the endpoints provided.
func NewWeb3Iterator(endpoints ...*Web3Endpoint) *Web3Iterator {
	return &Web3Iterator{available: endpoints}
}

// Add adds new endpoints to the iterator as available ones.
func (w3pp *Web3Iterator) Add(endpoints ...*Web3Endpoint) {
	w3pp.mtx.Lock()
	defer w3pp.mtx.Unlock()
	w3pp.available = append(w3pp.available, endpoints...)
}

// Next returns the next available endpoint. If there are no available
// endpoints, it resets the disabled ones and tries again.
func (w3pp *Web3Iterator) Next() (*Web3Endpoint, error) {
	w3pp.mtx.Lock()
	defer w3pp.mtx.Unlock()
	if len(w3pp.available) == 0 {
		if len(w3pp.disabled) == 0 {
			return nil, fmt.Errorf("no endpoints")
		}
		w3pp.available, w3pp.disabled = w3pp.disabled, nil
		w3pp.next = 0
	}
	if w3pp.next >= len(w3pp.available) {
		w3pp.next = 0
	}
	endpoint := w3pp.available[w3pp.next]
	w3pp.next++
	return endpoint, nil
}

// Disable moves the endpoint with the URI provided to the disabled list.
func (w3pp *Web3Iterator) Disable(uri string) {
	w3pp.mtx.Lock()
	defer w3pp.mtx.Unlock()
	for i, endpoint := range w3pp.available {
		if endpoint.URI == uri {
			w3pp.available = append(w3pp.available[:i], w3pp.available[i+1:]...)
			w3pp.disabled = append(w3pp.disabled, endpoint)
			if w3pp.next > i {
				w3pp.next--
			}
			return
		}
	}
}

// Available returns the number of available endpoints.
func (w3pp *Web3Iterator) Available() int {
	w3pp.mtx.Lock()
	defer w3pp.mtx.Unlock()
	return len(w3pp.available)
}

// Disabled returns the number of disabled endpoints.
func (w3pp *Web3Iterator) Disabled() int {
	w3pp.mtx.Lock()
	defer w3pp.mtx.Unlock()
	return len(w3pp.disabled)
}
