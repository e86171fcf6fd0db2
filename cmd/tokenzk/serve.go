package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/config"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/registry"
	"github.com/vocdoni/tokenzk/service"
	"github.com/vocdoni/tokenzk/state"
	"github.com/vocdoni/tokenzk/storage"
	"go.vocdoni.io/dvote/db/metadb"
)

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return config.DefaultDataDir
	}
	return filepath.Join(home, config.DefaultDataDir)
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		host            string
		port            int
		dataDir         string
		w3              web3Flags
		monitorInterval time.Duration
		monitorSubmit   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the registry node: HTTP API, proof sequencer and token monitor",
		Long: `Runs the registry of verified token states behind the HTTP API. Proof
jobs posted to the API are proved by the sequencer in the background. When a
token contract is set, its state is read periodically and a proof job is
queued every time the state of the owner changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			keys, manifest, err := loadKeys(flags, false)
			if err != nil {
				return err
			}
			prover, err := tokenstate.NewProverFromKeys(keys)
			if err != nil {
				return err
			}
			verifier, err := tokenstate.NewVerifier(keys.VerifyingKey)
			if err != nil {
				return err
			}

			database, err := metadb.New(config.DefaultDBType, filepath.Join(dataDir, "db"))
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer database.Close()
			stg := storage.New(database)
			set, err := state.New(database)
			if err != nil {
				return err
			}
			reg, err := registry.New(verifier, stg, set)
			if err != nil {
				return err
			}
			if err := reg.Subscribe(func(ev *registry.StateVerified) {
				log.Infow("token state registered",
					"stateId", ev.StateID.String(),
					"block", ev.PublicSignals.BlockNumber().String())
			}); err != nil {
				return err
			}

			seqService, err := service.NewSequencer(stg, prover, reg)
			if err != nil {
				return err
			}
			seqService.Sequencer().TickInterval = config.DefaultTickInterval
			if err := seqService.Start(ctx); err != nil {
				return err
			}
			defer seqService.Stop()

			apiService := service.NewAPI(stg, reg, verifier, host, port)
			if err := apiService.Start(ctx); err != nil {
				return err
			}
			defer apiService.Stop()

			if w3.token != "" {
				reader, owner, err := w3.reader()
				if err != nil {
					return err
				}
				monitor := service.NewTokenMonitor(reader, stg, owner, monitorInterval, monitorSubmit)
				if err := monitor.Start(ctx); err != nil {
					return err
				}
				defer monitor.Stop()
				log.Infow("monitoring token",
					"chainId", reader.ChainID,
					"token", reader.Address().Hex(),
					"owner", owner.Hex())
			}

			size, err := reg.Size()
			if err != nil {
				return err
			}
			log.Infow("tokenzk node started",
				"host", host,
				"port", port,
				"datadir", dataDir,
				"circuitVersion", manifest.Version,
				"registeredStates", size)
			<-ctx.Done()
			log.Infow("shutting down")
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", envOr(config.EnvHost, config.DefaultHost), "API listen host")
	cmd.Flags().IntVar(&port, "port", envIntOr(config.EnvPort, config.DefaultPort), "API listen port")
	cmd.Flags().StringVar(&dataDir, "datadir", envOr(config.EnvDataDir, defaultDataDir()), "data directory")
	w3.register(cmd)
	cmd.Flags().DurationVar(&monitorInterval, "monitor-interval", config.DefaultMonitorInterval,
		"time between two reads of the token contract")
	cmd.Flags().BoolVar(&monitorSubmit, "monitor-submit", true,
		"submit the proofs of the monitored token to the registry")
	return cmd
}
