package main

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"
)

// parsePubkey converts base58 string to PublicKey.
func parsePubkey(label, v string) (solana.PublicKey, error) {
	if v == "" {
		return solana.PublicKey{}, fmt.Errorf("%s is required", label)
	}
	pk, err := solana.PublicKeyFromBase58(v)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s invalid pubkey: %w", label, err)
	}
	return pk, nil
}

func printSimResult(cmd *cobra.Command, res *solanarpc.SimulateTransactionResult) {
	if res == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "no simulation result\n")
		return
	}
	if res.Err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "simulation error: %v\n", res.Err)
	}
	if res.UnitsConsumed != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "compute units: %d\n", *res.UnitsConsumed)
	}
	if len(res.Logs) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "logs:")
		for _, l := range res.Logs {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", l)
		}
	}
}
