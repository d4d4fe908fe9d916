package types

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/token-launch-go/pkg/config"
	"github.com/ninja0404/token-launch-go/pkg/constants"
)

// ValidateTokenConfig checks the mint parameters against SPL token and
// Metaplex limits before any RPC traffic happens.
func ValidateTokenConfig(cfg config.TokenConfig) error {
	if cfg.Name == "" {
		return NewValidationError("name", "cannot be empty")
	}
	if len(cfg.Name) > constants.MaxNameLength {
		return NewValidationError("name", fmt.Sprintf("must be at most %d bytes", constants.MaxNameLength))
	}
	if cfg.Symbol == "" {
		return NewValidationError("symbol", "cannot be empty")
	}
	if len(cfg.Symbol) > constants.MaxSymbolLength {
		return NewValidationError("symbol", fmt.Sprintf("must be at most %d bytes", constants.MaxSymbolLength))
	}
	if cfg.URI == "" {
		return NewValidationError("uri", "cannot be empty")
	}
	if len(cfg.URI) > constants.MaxURILength {
		return NewValidationError("uri", fmt.Sprintf("must be at most %d bytes", constants.MaxURILength))
	}
	if cfg.SellerFeeBasisPoints > constants.MaxSellerFeeBasisPoints {
		return NewValidationError("sellerFeeBasisPoints", "must be <= 10000 (100%)")
	}
	if cfg.Amount == 0 {
		return NewValidationError("amount", "must be greater than 0")
	}
	return nil
}

// ValidatePublicKey validates a public key is not zero.
func ValidatePublicKey(name string, key solana.PublicKey) error {
	if key.IsZero() {
		return NewValidationError(name, "cannot be zero")
	}
	return nil
}
