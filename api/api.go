package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/registry"
	stg "github.com/vocdoni/tokenzk/storage"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port, the storage where proof jobs are queued, the
// registry of verified states and the verifier used by the pure
// verification endpoint.
type APIConfig struct {
	Host     string
	Port     int
	Storage  *stg.Storage
	Registry *registry.Registry
	Verifier *tokenstate.Verifier
}

// API type represents the API HTTP server.
type API struct {
	router   *chi.Mux
	server   *http.Server
	storage  *stg.Storage
	registry *registry.Registry
	verifier *tokenstate.Verifier
}

// New creates a new API instance with the given configuration and starts
// the HTTP server in the background. If the port is zero, the server is not
// started and the router can be served by the caller.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.Registry == nil {
		return nil, fmt.Errorf("missing registry instance")
	}
	if conf.Verifier == nil {
		return nil, fmt.Errorf("missing verifier instance")
	}
	a := &API{
		storage:  conf.Storage,
		registry: conf.Registry,
		verifier: conf.Verifier,
	}

	// Initialize router
	a.initRouter()
	if conf.Port == 0 {
		return a, nil
	}
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "host", conf.Host, "port", conf.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Close stops the HTTP server, if it was started.
func (a *API) Close() error {
	if a.server == nil {
		return nil
	}
	return a.server.Close()
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", ProofsEndpoint, "method", "POST")
	a.router.Post(ProofsEndpoint, a.newProofJob)
	log.Infow("register handler", "endpoint", ProofEndpoint, "method", "GET")
	a.router.Get(ProofEndpoint, a.proofJob)
	log.Infow("register handler", "endpoint", VerifyEndpoint, "method", "POST")
	a.router.Post(VerifyEndpoint, a.verify)
	log.Infow("register handler", "endpoint", StatesEndpoint, "method", "POST")
	a.router.Post(StatesEndpoint, a.submitState)
	log.Infow("register handler", "endpoint", StatesEndpoint, "method", "GET")
	a.router.Get(StatesEndpoint, a.states)
	log.Infow("register handler", "endpoint", StateEndpoint, "method", "GET")
	a.router.Get(StateEndpoint, a.state)
	log.Infow("register handler", "endpoint", RegistryRootEndpoint, "method", "GET")
	a.router.Get(RegistryRootEndpoint, a.registryRoot)
	log.Infow("register handler", "endpoint", VerifierContractEndpoint, "method", "GET")
	a.router.Get(VerifierContractEndpoint, a.verifierContract)
	log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
	a.router.Handle(MetricsEndpoint, promhttp.Handler())
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrResourceNotFound.Withf("no route for %s", r.URL.Path).Write(w)
	})
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
