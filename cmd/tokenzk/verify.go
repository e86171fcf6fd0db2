package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/log"
)

var errInvalidProof = errors.New("invalid proof")

func newVerifyCmd(flags *globalFlags) *cobra.Command {
	var (
		proofPath  string
		publicPath string
		circomVkey string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a proof against its public signals",
		Long: `Verifies a proof.json and public.json pair with the verifying key of the
circuit version, or with a snarkjs verification key when --circom-vkey is
set. Exits with an error when the proof is not valid.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				valid bool
				err   error
			)
			if circomVkey != "" {
				valid, err = verifyCircom(circomVkey, proofPath, publicPath)
			} else {
				valid, err = verifyGnark(flags, proofPath, publicPath)
			}
			if err != nil {
				return err
			}
			if !valid {
				return errInvalidProof
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&proofPath, "proof", proofFile, "proof file")
	cmd.Flags().StringVar(&publicPath, "public", publicFile, "public signals file")
	cmd.Flags().StringVar(&circomVkey, "circom-vkey", "", "snarkjs verification key of the circom circuit")
	return cmd
}

func verifyGnark(flags *globalFlags, proofPath, publicPath string) (bool, error) {
	result, err := readProofFiles(proofPath, publicPath)
	if err != nil {
		return false, err
	}
	keys, _, err := loadKeys(flags, true)
	if err != nil {
		return false, err
	}
	valid, err := tokenstate.Verify(result.Proof, result.PublicSignals, keys.VerifyingKey)
	if err != nil {
		return false, err
	}
	log.Debugw("proof checked",
		"stateId", result.PublicSignals.StateID().String(),
		"valid", valid)
	return valid, nil
}

func verifyCircom(vkeyPath, proofPath, publicPath string) (bool, error) {
	vkey, err := os.ReadFile(vkeyPath)
	if err != nil {
		return false, err
	}
	proofJSON, err := os.ReadFile(proofPath)
	if err != nil {
		return false, err
	}
	pubJSON, err := os.ReadFile(publicPath)
	if err != nil {
		return false, err
	}
	return circuits.VerifyCircomProof(vkey, string(proofJSON), string(pubJSON))
}

func newExportSolidityCmd(flags *globalFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-solidity",
		Short: "Export the Solidity verifier contract of the circuit version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, manifest, err := loadKeys(flags, true)
			if err != nil {
				return err
			}
			if err := circuits.StoreSolidityVerifier(keys.VerifyingKey, out); err != nil {
				return err
			}
			log.Infow("solidity verifier exported", "version", manifest.Version, "path", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "Verifier.sol", "output file")
	return cmd
}

func newCalldataCmd() *cobra.Command {
	var proofPath, publicPath string
	cmd := &cobra.Command{
		Use:   "calldata",
		Short: "Print the Solidity calldata of a proof",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := readProofFiles(proofPath, publicPath)
			if err != nil {
				return err
			}
			calldata, err := result.Proof.Calldata(result.PublicSignals)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), calldata.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&proofPath, "proof", proofFile, "proof file")
	cmd.Flags().StringVar(&publicPath, "public", publicFile, "public signals file")
	return cmd
}
