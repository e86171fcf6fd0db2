package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vocdoni/tokenzk/config"
	"github.com/vocdoni/tokenzk/log"
)

// globalFlags are the flags shared by every command.
type globalFlags struct {
	logLevel     string
	logOutput    string
	artifactsDir string
	artifactsURL string
	version      string
}

func main() {
	// the .env file is optional, its values become flag defaults
	_ = godotenv.Load()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "tokenzk",
		Short:         "Prove, verify and register zero-knowledge token state attestations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !log.ValidLevel(flags.logLevel) {
				return fmt.Errorf("invalid log level %q, use debug, info, warn or error", flags.logLevel)
			}
			log.Init(flags.logLevel, flags.logOutput, nil)
			return nil
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", envOr(config.EnvLogLevel, config.DefaultLogLevel),
		"log level (debug, info, warn, error)")
	pf.StringVar(&flags.logOutput, "log-output", envOr(config.EnvLogOutput, config.DefaultLogOutput),
		"log output (stdout, stderr or a file path)")
	pf.StringVar(&flags.artifactsDir, "artifacts-dir", envOr(config.EnvArtifactsDir, ""),
		"circuit artifacts directory (default ~/.cache/tokenzk-artifacts)")
	pf.StringVar(&flags.artifactsURL, "artifacts-url", envOr(config.EnvArtifactsURL, config.DefaultArtifactsURL),
		"base URL to download missing circuit artifacts from")
	pf.StringVar(&flags.version, "circuit-version", envOr(config.EnvVersion, config.DefaultCircuitVersion),
		"circuit version, selects the artifacts manifest")

	rootCmd.AddCommand(
		newSetupCmd(flags),
		newProveCmd(flags),
		newVerifyCmd(flags),
		newExportSolidityCmd(flags),
		newCalldataCmd(),
		newFetchCmd(),
		newServeCmd(flags),
		newSubmitCmd(),
		newStatusCmd(),
	)
	return rootCmd
}
