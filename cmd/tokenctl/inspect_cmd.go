package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/ninja0404/token-launch-go/pkg/launch"
	sdkrpc "github.com/ninja0404/token-launch-go/pkg/rpc"
	"github.com/ninja0404/token-launch-go/pkg/wallet"
)

func newInspectCmd(opts *globalOpts) *cobra.Command {
	var ownerStr string

	cmd := &cobra.Command{
		Use:   "inspect [mint]",
		Short: "Show mint, metadata and owner token account state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parsePubkey("mint", args[0])
			if err != nil {
				return err
			}
			owner, err := resolveOwner(opts, ownerStr)
			if err != nil {
				return err
			}
			client := sdkrpc.NewClient(sdkconfigFromOpts(opts, cmd))

			ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			defer cancel()

			info, err := launch.Inspect(ctx, client, mint, owner)
			if err != nil {
				return err
			}
			bz, _ := json.MarshalIndent(info, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
	cmd.Flags().StringVar(&ownerStr, "owner", "", "token account owner (default: keypair public key)")
	return cmd
}

// resolveOwner falls back to the configured keypair when --owner is empty.
func resolveOwner(opts *globalOpts, ownerStr string) (solana.PublicKey, error) {
	if ownerStr != "" {
		return parsePubkey("owner", ownerStr)
	}
	signer, err := wallet.NewLocalFromKeygen(resolveKeypairPath(opts))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("owner not given and keypair unavailable: %w", err)
	}
	return signer.PublicKey(), nil
}
