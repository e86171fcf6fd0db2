package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/vocdoni/tokenzk/circuits"
	"github.com/vocdoni/tokenzk/config"
	"github.com/vocdoni/tokenzk/log"
	"github.com/vocdoni/tokenzk/web3"
)

// web3Flags select a token contract and the owner whose state is read.
type web3Flags struct {
	rpcs  []string
	token string
	owner string
}

func (f *web3Flags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.rpcs, "rpc", splitEnv(config.EnvWeb3RPC),
		"web3 JSON-RPC endpoints, all serving the same chain")
	cmd.Flags().StringVar(&f.token, "token", envOr(config.EnvToken, ""), "capped token contract address")
	cmd.Flags().StringVar(&f.owner, "owner", envOr(config.EnvOwner, ""), "address of the owner")
}

// reader connects to the configured endpoints and returns the token reader
// and the owner address.
func (f *web3Flags) reader() (*web3.TokenReader, common.Address, error) {
	if len(f.rpcs) == 0 {
		return nil, common.Address{}, fmt.Errorf("no web3 endpoint provided")
	}
	if !common.IsHexAddress(f.token) {
		return nil, common.Address{}, fmt.Errorf("invalid token address %q", f.token)
	}
	if !common.IsHexAddress(f.owner) {
		return nil, common.Address{}, fmt.Errorf("invalid owner address %q", f.owner)
	}
	reader, err := web3.NewTokenReader(common.HexToAddress(f.token), f.rpcs[0])
	if err != nil {
		return nil, common.Address{}, err
	}
	for _, rpc := range f.rpcs[1:] {
		if err := reader.AddWeb3Endpoint(rpc); err != nil {
			log.Warnw("failed to add web3 endpoint", "rpc", rpc, "error", err)
		}
	}
	return reader, common.HexToAddress(f.owner), nil
}

func splitEnv(key string) []string {
	v := envOr(key, "")
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

func newFetchCmd() *cobra.Command {
	var (
		w3    web3Flags
		block uint64
		out   string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Read the state of a capped token contract into a prover input file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reader, owner, err := w3.reader()
			if err != nil {
				return err
			}
			if block == 0 {
				if block, err = reader.LatestBlock(cmd.Context()); err != nil {
					return err
				}
			}
			state, err := reader.TokenState(cmd.Context(), owner, block)
			if err != nil {
				return err
			}
			if err := circuits.StoreJSON(state, out); err != nil {
				return err
			}
			log.Infow("token state fetched",
				"chainId", reader.ChainID,
				"token", reader.Address().Hex(),
				"block", block,
				"output", out)
			return nil
		},
	}
	w3.register(cmd)
	cmd.Flags().Uint64Var(&block, "block", 0, "block number (default latest)")
	cmd.Flags().StringVarP(&out, "out", "o", "input.json", "output file")
	return cmd
}
