package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/circom"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/config"
	"github.com/vocdoni/tokenzk/log"
)

const (
	backendGnark  = "gnark"
	backendCircom = "circom"
)

func newProveCmd(flags *globalFlags) *cobra.Command {
	var (
		outDir    string
		backend   string
		circomDir string
		workers   int
	)
	cmd := &cobra.Command{
		Use:   "prove <input.json> [input.json...]",
		Short: "Generate the proof of one or more token states",
		Long: `Generates a Groth16 proof for every token state input file. The proof,
its public signals and the Solidity calldata are written as proof.json,
public.json and calldata.txt into the output directory, or into a
subdirectory named after each input when more than one is provided.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			states := make([]*tokenstate.TokenState, len(args))
			for i, input := range args {
				states[i] = &tokenstate.TokenState{}
				if err := circuits.LoadJSON(input, states[i]); err != nil {
					return err
				}
			}

			var results []*circuits.ProofWithSignals
			switch backend {
			case backendGnark:
				keys, _, err := loadKeys(flags, false)
				if err != nil {
					return err
				}
				prover, err := tokenstate.NewProverFromKeys(keys)
				if err != nil {
					return err
				}
				results, err = prover.GenerateBatch(cmd.Context(), states, workers)
				if err != nil {
					return err
				}
			case backendCircom:
				prover, err := newCircomProver(circomDir)
				if err != nil {
					return err
				}
				for _, s := range states {
					result, err := prover.GenerateProof(cmd.Context(), s)
					if err != nil {
						return err
					}
					results = append(results, result)
				}
			default:
				return fmt.Errorf("unknown backend %q, use %s or %s", backend, backendGnark, backendCircom)
			}

			for i, result := range results {
				dir := outDir
				if len(results) > 1 {
					dir = filepath.Join(outDir, strings.TrimSuffix(filepath.Base(args[i]), filepath.Ext(args[i])))
				}
				if err := writeProofFiles(dir, result); err != nil {
					return err
				}
				log.Infow("proof generated",
					"input", args[i],
					"stateId", result.PublicSignals.StateID().String(),
					"output", dir)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&backend, "backend", backendGnark, "proving backend (gnark or circom)")
	cmd.Flags().StringVar(&circomDir, "circom-dir", envOr(config.EnvCircomDir, ""),
		"directory with the circom wasm, zkey and verification key")
	cmd.Flags().IntVar(&workers, "workers", config.DefaultProveWorkers, "states proved in parallel")
	return cmd
}

// newCircomProver loads the circom backend artifacts from dir.
func newCircomProver(dir string) (*circom.Prover, error) {
	if dir == "" {
		return nil, fmt.Errorf("the circom backend needs --circom-dir")
	}
	read := func(name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, name))
	}
	wasm, err := read(config.CircomWasmFile)
	if err != nil {
		return nil, err
	}
	zkey, err := read(config.CircomZkeyFile)
	if err != nil {
		return nil, err
	}
	vkey, err := read(config.CircomVkeyFile)
	if err != nil {
		return nil, err
	}
	return circom.NewProver(wasm, zkey, vkey)
}
