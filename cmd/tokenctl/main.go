package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	sdkconfig "github.com/ninja0404/token-launch-go/pkg/config"
	sdkrpc "github.com/ninja0404/token-launch-go/pkg/rpc"
	"github.com/ninja0404/token-launch-go/pkg/txbuilder"
	"github.com/ninja0404/token-launch-go/pkg/wallet"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalOpts struct {
	rpcURL         string
	network        string
	commitment     string
	keypairPath    string
	skipPreflight  bool
	retryAttempts  int
	retryBackoffMs int
	rateLimitRPS   float64
	logLevel       string
	timeoutSec     int
	envFile        string
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:           "tokenctl",
		Short:         "Create SPL tokens with Metaplex metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return sdkconfig.LoadEnv(opts.envFile)
		},
	}

	root.PersistentFlags().StringVar(&opts.rpcURL, "rpc-url", "", "RPC endpoint (default $SOLANA_RPC_URL, then the network's public endpoint)")
	root.PersistentFlags().StringVar(&opts.network, "network", string(sdkconfig.NetworkDevnet), "cluster for default endpoint and explorer links (devnet|testnet|mainnet)")
	root.PersistentFlags().StringVar(&opts.commitment, "commitment", "confirmed", "RPC commitment level")
	root.PersistentFlags().StringVar(&opts.keypairPath, "keypair", "", "path to solana-keygen json (default $SOLANA_KEYPAIR, then ~/.config/solana/id.json)")
	root.PersistentFlags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "skip preflight checks")
	root.PersistentFlags().IntVar(&opts.retryAttempts, "retry-attempts", 3, "RPC read retry attempts")
	root.PersistentFlags().IntVar(&opts.retryBackoffMs, "retry-backoff-ms", 200, "initial backoff in ms")
	root.PersistentFlags().Float64Var(&opts.rateLimitRPS, "rate-limit-rps", 4, "rate limit RPS (0 to disable)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	root.PersistentFlags().IntVar(&opts.timeoutSec, "timeout-sec", 30, "RPC timeout seconds")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before running (missing file is ignored)")

	root.AddCommand(
		newConfigCmd(opts),
		newLaunchCmd(opts),
		newInspectCmd(opts),
	)

	return root
}

func newConfigCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show resolved config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := sdkconfigFromOpts(opts, cmd)
			tok := sdkconfig.DefaultTokenConfig()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "network=%s\nrpc=%s\ncommitment=%s\nkeypair=%s\n",
				cfg.Network, cfg.ResolveRPCURL(), cfg.Commitment, resolveKeypairPath(opts))
			fmt.Fprintf(out, "name=%s\nsymbol=%s\nuri=%s\ndecimals=%d\namount=%d\n",
				tok.Name, tok.Symbol, tok.URI, tok.Decimals, tok.Amount)
			return nil
		},
	}
}

type runtimeDeps struct {
	builder *txbuilder.Builder
	signer  wallet.Local
	rpc     *sdkrpc.Client
	network sdkconfig.Network
}

func sdkconfigFromOpts(opts *globalOpts, cmd *cobra.Command) sdkconfig.RPCConfig {
	cfg := sdkconfig.DefaultRPCConfig()
	if opts.network != "" {
		cfg.Network = sdkconfig.Network(strings.ToLower(opts.network))
		cfg.RPCURL = sdkconfig.DefaultRPCURL(cfg.Network)
	}
	switch {
	case opts.rpcURL != "":
		cfg.RPCURL = opts.rpcURL
	case os.Getenv(sdkconfig.EnvRPCURL) != "":
		cfg.RPCURL = os.Getenv(sdkconfig.EnvRPCURL)
	}
	if opts.commitment != "" {
		cfg.Commitment = opts.commitment
	}
	cfg.RateLimit.RPS = opts.rateLimitRPS
	if opts.retryAttempts > 0 {
		cfg.Retry.MaxAttempts = opts.retryAttempts
	}
	if opts.retryBackoffMs > 0 {
		cfg.Retry.InitialBackoff = time.Duration(opts.retryBackoffMs) * time.Millisecond
	}
	if opts.timeoutSec > 0 {
		cfg.Timeout = time.Duration(opts.timeoutSec) * time.Second
	}
	cfg.Logger = zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger().Level(parseLogLevel(opts.logLevel))
	return cfg
}

func resolveKeypairPath(opts *globalOpts) string {
	if opts.keypairPath != "" {
		return opts.keypairPath
	}
	if p := os.Getenv(sdkconfig.EnvKeypair); p != "" {
		return p
	}
	return sdkconfig.DefaultKeypairPath()
}

func newBuilder(cmd *cobra.Command, opts *globalOpts) (*runtimeDeps, error) {
	cfg := sdkconfigFromOpts(opts, cmd)
	if cfg.ResolveRPCURL() == "" {
		return nil, fmt.Errorf("unknown network %q (use --rpc-url)", opts.network)
	}

	client := sdkrpc.NewClient(cfg)
	commit := rpc.CommitmentType(cfg.Commitment)
	builder := txbuilder.NewBuilder(client, commit).WithSkipPreflight(opts.skipPreflight)

	signer, err := wallet.NewLocalFromKeygen(resolveKeypairPath(opts))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if _, err := client.GetLatestBlockhash(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: rpc ping failed: %v\n", err)
	}

	return &runtimeDeps{builder: builder, signer: signer, rpc: client, network: cfg.Network}, nil
}

func parseLogLevel(lvl string) zerolog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
