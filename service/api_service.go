package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/vocdoni/tokenzk/api"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/registry"
	"github.com/vocdoni/tokenzk/storage"
)

// APIService runs the HTTP API over the storage, registry and verifier of
// the node.
type APIService struct {
	storage  *storage.Storage
	registry *registry.Registry
	verifier *tokenstate.Verifier
	host     string
	port     int

	mu  sync.Mutex
	api *api.API
}

// NewAPI returns a stopped APIService listening on host:port once started.
// Port zero builds the router without listening.
func NewAPI(stg *storage.Storage, reg *registry.Registry, verifier *tokenstate.Verifier, host string, port int) *APIService {
	return &APIService{
		storage:  stg,
		registry: reg,
		verifier: verifier,
		host:     host,
		port:     port,
	}
}

// Start starts the HTTP server. The context is only checked before starting,
// the server runs until Stop.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api != nil {
		return fmt.Errorf("service already running")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	a, err := api.New(&api.APIConfig{
		Host:     as.host,
		Port:     as.port,
		Storage:  as.storage,
		Registry: as.registry,
		Verifier: as.verifier,
	})
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.api = a
	return nil
}

// Stop closes the HTTP server, if running.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api == nil {
		return
	}
	if err := as.api.Close(); err != nil {
		log.Warnw("failed to close API server", "error", err.Error())
	}
	as.api = nil
}

// API returns the running API, or nil if the service is stopped.
func (as *APIService) API() *api.API {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.api
}

// HostPort returns the configured listen address.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
