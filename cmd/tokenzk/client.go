package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/vocdoni/tokenzk/api"
	"github.com/vocdoni/tokenzk/api/client"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/circuits/tokenstate"
	"github.com/vocdoni/tokenzk/config"
	"github.com/vocdoni/tokenzk/crypto/field"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/storage"
)

const jobPollInterval = 2 * time.Second

func apiURLFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVar(url, "api", envOr(config.EnvAPIURL, config.DefaultAPIURL), "tokenzk API URL")
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newSubmitCmd() *cobra.Command {
	var (
		apiURL     string
		proofPath  string
		publicPath string
		input      string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a proof to the registry of a tokenzk node",
		Long: `Submits a proof.json and public.json pair to the registry. With --input,
the node proves the token state of the input file itself and submits the
result; the command waits until the proof job finishes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := client.New(apiURL)
			if err != nil {
				return err
			}
			if input != "" {
				s := &tokenstate.TokenState{}
				if err := circuits.LoadJSON(input, s); err != nil {
					return err
				}
				job, err := cli.NewProofJob(s, true)
				if err != nil {
					return err
				}
				log.Infow("proof job queued", "id", job.ID)
				if job, err = cli.WaitProofJob(cmd.Context(), job.ID, jobPollInterval); err != nil {
					return err
				}
				if job.Status == storage.ProofJobFailed {
					return fmt.Errorf("proof job %s failed: %s", job.ID, job.Error)
				}
				return printJSON(cmd.OutOrStdout(), job)
			}
			result, err := readProofFiles(proofPath, publicPath)
			if err != nil {
				return err
			}
			resp, err := cli.SubmitState(result.Proof, result.PublicSignals)
			if errors.Is(err, api.ErrProofRejected) {
				return fmt.Errorf("the registry rejected the proof of state %s", result.PublicSignals.StateID())
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	apiURLFlag(cmd, &apiURL)
	cmd.Flags().StringVar(&proofPath, "proof", proofFile, "proof file")
	cmd.Flags().StringVar(&publicPath, "public", publicFile, "public signals file")
	cmd.Flags().StringVar(&input, "input", "", "token state input file proved by the node")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var apiURL string
	cmd := &cobra.Command{
		Use:   "status [stateId]",
		Short: "Show the status of a token state or of the whole registry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := client.New(apiURL)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				stateID, err := field.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid state id: %w", err)
				}
				st, err := cli.State(stateID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			}
			root, err := cli.RegistryRoot()
			if err != nil {
				return err
			}
			states, err := cli.States()
			if err != nil {
				return err
			}
			ids := make([]string, len(states))
			for i, id := range states {
				ids[i] = id.String()
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"root":   root.Root,
				"size":   root.Size,
				"states": ids,
			})
		},
	}
	apiURLFlag(cmd, &apiURL)
	return cmd
}
