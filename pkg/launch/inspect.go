package launch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/ninja0404/token-launch-go/pkg/constants"
	"github.com/ninja0404/token-launch-go/pkg/metadata"
	sdkrpc "github.com/ninja0404/token-launch-go/pkg/rpc"
	"github.com/ninja0404/token-launch-go/pkg/types"
)

// TokenInfo is the on-chain state of a launched token.
type TokenInfo struct {
	Mint            solana.PublicKey   `json:"mint"`
	Decimals        uint8              `json:"decimals"`
	Supply          uint64             `json:"supply"`
	MintAuthority   *solana.PublicKey  `json:"mintAuthority,omitempty"`
	FreezeAuthority *solana.PublicKey  `json:"freezeAuthority,omitempty"`
	MetadataAddress solana.PublicKey   `json:"metadataAddress"`
	Metadata        *metadata.Metadata `json:"metadata,omitempty"`
	Owner           solana.PublicKey   `json:"owner"`
	ATA             solana.PublicKey   `json:"ata"`
	ATAExists       bool               `json:"ataExists"`
	Balance         uint64             `json:"balance"`
	UIBalance       string             `json:"uiBalance"`
}

// Inspect reads the mint, its metadata account and owner's ATA in one
// getMultipleAccounts call. A missing metadata account or ATA is not an
// error; a missing mint is.
func Inspect(ctx context.Context, rpc *sdkrpc.Client, mint, owner solana.PublicKey) (*TokenInfo, error) {
	if rpc == nil {
		return nil, types.ErrNilRPC
	}
	if err := types.ValidatePublicKey("mint", mint); err != nil {
		return nil, err
	}
	if err := types.ValidatePublicKey("owner", owner); err != nil {
		return nil, err
	}

	metadataPDA, _, err := metadata.FindMetadataPDA(mint)
	if err != nil {
		return nil, err
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("derive associated token address: %w", err)
	}

	accounts, err := rpc.GetMultipleAccounts(ctx, mint, metadataPDA, ata)
	if err != nil {
		return nil, err
	}

	mintAcc := accounts[mint]
	if mintAcc == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrMintNotFound, mint)
	}
	if !mintAcc.Owner.Equals(constants.TokenProgramID) {
		return nil, fmt.Errorf("%w: %s is owned by %s", types.ErrNotAMint, mint, mintAcc.Owner)
	}
	var m token.Mint
	if err := bin.NewBinDecoder(mintAcc.Data.GetBinary()).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode mint: %w", err)
	}

	info := &TokenInfo{
		Mint:            mint,
		Decimals:        m.Decimals,
		Supply:          m.Supply,
		MintAuthority:   m.MintAuthority,
		FreezeAuthority: m.FreezeAuthority,
		MetadataAddress: metadataPDA,
		Owner:           owner,
		ATA:             ata,
		UIBalance:       FormatAmount(0, m.Decimals),
	}

	if acc := accounts[metadataPDA]; acc != nil && acc.Owner.Equals(constants.MetadataProgramID) {
		md, err := metadata.Decode(acc.Data.GetBinary())
		if err != nil {
			return nil, err
		}
		info.Metadata = &md
	}

	if acc := accounts[ata]; acc != nil && acc.Owner.Equals(constants.TokenProgramID) {
		var ta token.Account
		if err := bin.NewBinDecoder(acc.Data.GetBinary()).Decode(&ta); err != nil {
			return nil, fmt.Errorf("decode token account: %w", err)
		}
		info.ATAExists = true
		info.Balance = ta.Amount
		info.UIBalance = FormatAmount(ta.Amount, m.Decimals)
	}
	return info, nil
}

// FormatAmount renders base units as a decimal string, e.g. 1000000 with 6
// decimals is "1.000000".
func FormatAmount(amount uint64, decimals uint8) string {
	s := strconv.FormatUint(amount, 10)
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	return s[:len(s)-d] + "." + s[len(s)-d:]
}
