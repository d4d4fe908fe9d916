package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	sdkconfig "github.com/ninja0404/token-launch-go/pkg/config"
	"github.com/ninja0404/token-launch-go/pkg/explorer"
	"github.com/ninja0404/token-launch-go/pkg/jito"
	"github.com/ninja0404/token-launch-go/pkg/launch"
	"github.com/ninja0404/token-launch-go/pkg/txbuilder"
	"github.com/ninja0404/token-launch-go/pkg/wallet"
)

type launchFlags struct {
	name          string
	symbol        string
	uri           string
	decimals      uint8
	amount        uint64
	profile       string
	vanityPrefix  string
	vanitySuffix  string
	vanityTimeout int
	mintKeyOut    string
	cuPrice       uint64
	cuLimit       uint32
	jito          bool
	jitoEndpoint  string
	jitoUUID      string
	jitoTip       uint64
	preview       bool
	simulate      bool
}

func newLaunchCmd(opts *globalOpts) *cobra.Command {
	f := &launchFlags{}

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Create a token mint with metadata and mint the initial supply",
		Long: `Create a token mint with metadata and mint the initial supply.

One transaction is built with five instructions: create the mint account,
initialize the mint, create the Metaplex metadata account, create the payer's
associated token account and mint the initial supply into it. It is signed
by the payer and the freshly generated mint keypair, sent once and confirmed.

Vanity Address:
  - Use --vanity-prefix / --vanity-suffix to search for a mint address
  - Longer patterns take exponentially longer to generate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := f.tokenConfig(cmd)
			if err != nil {
				return err
			}
			lopts, err := f.launchOptions(opts.commitment)
			if err != nil {
				return err
			}

			timeout := 90 * time.Second
			if f.vanityPrefix != "" || f.vanitySuffix != "" {
				timeout += time.Duration(f.vanityTimeout) * time.Second
				fmt.Fprintf(cmd.OutOrStdout(), "Searching for vanity address")
				if f.vanityPrefix != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " prefix='%s'", f.vanityPrefix)
				}
				if f.vanitySuffix != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " suffix='%s'", f.vanitySuffix)
				}
				fmt.Fprintf(cmd.OutOrStdout(), " (timeout: %ds)...\n", f.vanityTimeout)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			deps, err := newBuilder(cmd, opts)
			if err != nil {
				return err
			}
			if f.jito {
				deps.builder.WithJito(jito.NewClient(f.jitoUUID, jitoEndpoints(f.jitoEndpoint)...))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Payer:", deps.signer.PublicKey().String())

			if f.preview {
				plan, err := launch.Prepare(ctx, deps.rpc, deps.signer.PublicKey(), token,
					append(lopts, launch.WithPreview(cmd.OutOrStdout()))...)
				if err != nil {
					return err
				}
				return f.saveMintKey(cmd.OutOrStdout(), plan.MintKey)
			}

			if f.simulate {
				plan, res, err := launch.Simulate(ctx, deps.builder, deps.signer, token, lopts...)
				if res != nil {
					printSimResult(cmd, res)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Simulation OK, mint would be %s\n", plan.Mint)
				return nil
			}

			res, err := launch.Launch(ctx, deps.builder, deps.signer, token, lopts...)
			if res != nil {
				if saveErr := f.saveMintKey(cmd.OutOrStdout(), res.MintKey); saveErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", saveErr)
				}
			}
			if err != nil {
				if res != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Signature: %s\n", res.Signature)
				}
				return err
			}
			printLaunchResult(cmd.OutOrStdout(), res, deps.network)
			log := deps.rpc.Logger()
			log.Debug().Str("url", explorer.TxURL(res.Signature, deps.network)).Msg("transaction")
			return nil
		},
	}

	def := sdkconfig.DefaultTokenConfig()
	cmd.Flags().StringVar(&f.name, "name", def.Name, "token name")
	cmd.Flags().StringVar(&f.symbol, "symbol", def.Symbol, "token symbol")
	cmd.Flags().StringVar(&f.uri, "uri", def.URI, "metadata JSON URI")
	cmd.Flags().Uint8Var(&f.decimals, "decimals", def.Decimals, "mint decimals")
	cmd.Flags().Uint64Var(&f.amount, "amount", def.Amount, "initial supply in base units")
	cmd.Flags().StringVar(&f.profile, "profile", "", "YAML token profile; explicit flags override it")
	cmd.Flags().StringVar(&f.vanityPrefix, "vanity-prefix", "", "vanity mint address prefix")
	cmd.Flags().StringVar(&f.vanitySuffix, "vanity-suffix", "", "vanity mint address suffix")
	cmd.Flags().IntVar(&f.vanityTimeout, "vanity-timeout", 300, "vanity address search timeout in seconds")
	cmd.Flags().StringVar(&f.mintKeyOut, "mint-keypair-out", "", "write the mint keypair to this solana-keygen json file")
	cmd.Flags().Uint64Var(&f.cuPrice, "cu-price", 0, "compute unit price in micro-lamports (0 = none)")
	cmd.Flags().Uint32Var(&f.cuLimit, "cu-limit", 0, "compute unit limit (0 = runtime default)")
	cmd.Flags().BoolVar(&f.jito, "jito", false, "submit through a Jito block engine")
	cmd.Flags().StringVar(&f.jitoEndpoint, "jito-endpoint", "", "Jito block engine URL (default: mainnet regions)")
	cmd.Flags().StringVar(&f.jitoUUID, "jito-uuid", "", "Jito auth UUID")
	cmd.Flags().Uint64Var(&f.jitoTip, "jito-tip", 0, "Jito tip in lamports (required with --jito)")
	cmd.Flags().BoolVar(&f.preview, "preview", false, "only print the plan without sending")
	cmd.Flags().BoolVar(&f.simulate, "simulate", false, "simulate the transaction without sending")

	return cmd
}

// tokenConfig layers defaults, the optional profile and explicitly set flags.
func (f *launchFlags) tokenConfig(cmd *cobra.Command) (sdkconfig.TokenConfig, error) {
	cfg := sdkconfig.DefaultTokenConfig()
	if f.profile != "" {
		loaded, err := sdkconfig.LoadTokenConfig(f.profile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if f.profile == "" || flags.Changed("name") {
		cfg.Name = f.name
	}
	if f.profile == "" || flags.Changed("symbol") {
		cfg.Symbol = f.symbol
	}
	if f.profile == "" || flags.Changed("uri") {
		cfg.URI = f.uri
	}
	if f.profile == "" || flags.Changed("decimals") {
		cfg.Decimals = f.decimals
	}
	if f.profile == "" || flags.Changed("amount") {
		cfg.Amount = f.amount
	}
	return cfg, nil
}

// launchOptions maps flags to launch options. commitment is the global
// --commitment value and also sets the level the launch waits for.
func (f *launchFlags) launchOptions(commitment string) ([]launch.Option, error) {
	if f.jito && f.jitoTip == 0 {
		return nil, fmt.Errorf("--jito requires --jito-tip: block engines drop bundles without a tip")
	}
	if !f.jito && f.jitoTip > 0 {
		return nil, fmt.Errorf("--jito-tip requires --jito")
	}
	level, err := txbuilder.ParseConfirmationLevel(commitment)
	if err != nil {
		return nil, err
	}
	opts := []launch.Option{
		launch.WithComputeUnitPrice(f.cuPrice),
		launch.WithComputeUnitLimit(f.cuLimit),
		launch.WithJitoTip(f.jitoTip),
		launch.WithConfirmation(level),
	}
	if f.vanityPrefix != "" {
		opts = append(opts, launch.WithVanityPrefix(f.vanityPrefix))
	}
	if f.vanitySuffix != "" {
		opts = append(opts, launch.WithVanitySuffix(f.vanitySuffix))
	}
	if f.vanityTimeout > 0 {
		opts = append(opts, launch.WithVanityTimeout(time.Duration(f.vanityTimeout)*time.Second))
	}
	return opts, nil
}

func (f *launchFlags) saveMintKey(w io.Writer, key solana.PrivateKey) error {
	if f.mintKeyOut == "" || len(key) == 0 {
		return nil
	}
	if err := wallet.SaveKeygenFile(f.mintKeyOut, key); err != nil {
		return err
	}
	fmt.Fprintf(w, "Mint keypair written to %s\n", f.mintKeyOut)
	return nil
}

func jitoEndpoints(endpoint string) []string {
	if endpoint == "" {
		return nil
	}
	return []string{endpoint}
}

func printLaunchResult(w io.Writer, res *launch.Result, network sdkconfig.Network) {
	fmt.Fprintln(w, "Signature:", res.Signature.String())
	if res.BundleID != "" {
		fmt.Fprintln(w, "Bundle:   ", res.BundleID)
	}
	fmt.Fprintln(w, "Mint:     "+explorer.AddressURL(res.Mint, network))
	fmt.Fprintln(w, "ATA:      "+explorer.AddressURL(res.ATA, network))
}
