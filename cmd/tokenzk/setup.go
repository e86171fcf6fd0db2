package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/log"
)

func newSetupCmd(flags *globalFlags) *cobra.Command {
	var solidity string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Compile the circuit, run a development setup and store its artifacts",
		Long: `Compiles the token state circuit, runs a single party Groth16 setup and
stores the constraint system and both keys in the artifacts directory, under
a manifest named after the circuit version. The keys are only suitable for
development, the toxic waste of the setup is known to this process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := circuits.NewArtifactStore(flags.artifactsDir)
			if err != nil {
				return err
			}
			keys, err := tokenstate.CompileAndSetup()
			if err != nil {
				return err
			}
			manifest, err := keys.Store(store, flags.version)
			if err != nil {
				return err
			}
			log.Infow("circuit artifacts stored",
				"dir", store.Dir,
				"version", manifest.Version,
				"constraints", keys.CCS.GetNbConstraints())
			if solidity != "" {
				if err := circuits.StoreSolidityVerifier(keys.VerifyingKey, solidity); err != nil {
					return err
				}
			}
			data, err := json.MarshalIndent(manifest, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&solidity, "solidity", "", "also export the Solidity verifier to this file")
	return cmd
}
