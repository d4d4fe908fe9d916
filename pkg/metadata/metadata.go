// Package metadata wires the Metaplex Token Metadata program into solana-go
// transactions. Instruction and account encoding are delegated to the
// blocto solana-go-sdk token_metadata package; this package only converts
// between the two SDKs' key and instruction types.
package metadata

import (
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	bloctotypes "github.com/blocto/solana-go-sdk/types"
	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/token-launch-go/pkg/constants"
)

// Creator is a verified or unverified creator share entry.
type Creator struct {
	Address  solana.PublicKey `json:"address"`
	Verified bool             `json:"verified"`
	Share    uint8            `json:"share"`
}

// CreateAccounts lists the accounts of CreateMetadataAccountV3.
type CreateAccounts struct {
	Metadata        solana.PublicKey `json:"metadata"`
	Mint            solana.PublicKey `json:"mint"`
	MintAuthority   solana.PublicKey `json:"mintAuthority"`
	Payer           solana.PublicKey `json:"payer"`
	UpdateAuthority solana.PublicKey `json:"updateAuthority"`
}

// CreateArgs is the DataV2 payload plus mutability.
// Collection, uses and collection details are always none.
type CreateArgs struct {
	Name                 string    `json:"name"`
	Symbol               string    `json:"symbol"`
	URI                  string    `json:"uri"`
	SellerFeeBasisPoints uint16    `json:"sellerFeeBasisPoints"`
	Creators             []Creator `json:"creators,omitempty"`
	IsMutable            bool      `json:"isMutable"`
}

// FindMetadataPDA derives the metadata account of mint:
// seeds ["metadata", metadata program id, mint].
func FindMetadataPDA(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(constants.SeedMetadata),
		constants.MetadataProgramID[:],
		mint[:],
	}, constants.MetadataProgramID)
}

// NewCreateMetadataAccountV3Instruction builds the Metaplex
// CreateMetadataAccountV3 instruction. The update authority is always
// required to sign.
func NewCreateMetadataAccountV3Instruction(accounts CreateAccounts, args CreateArgs) (solana.Instruction, error) {
	keys := map[string]solana.PublicKey{
		"metadata":        accounts.Metadata,
		"mint":            accounts.Mint,
		"mintAuthority":   accounts.MintAuthority,
		"payer":           accounts.Payer,
		"updateAuthority": accounts.UpdateAuthority,
	}
	for name, pk := range keys {
		if pk.IsZero() {
			return nil, fmt.Errorf("metadata account %s is required", name)
		}
	}

	data := token_metadata.DataV2{
		Name:                 args.Name,
		Symbol:               args.Symbol,
		Uri:                  args.URI,
		SellerFeeBasisPoints: args.SellerFeeBasisPoints,
	}
	if len(args.Creators) > 0 {
		creators := make([]token_metadata.Creator, 0, len(args.Creators))
		for _, c := range args.Creators {
			creators = append(creators, token_metadata.Creator{
				Address:  toBlocto(c.Address),
				Verified: c.Verified,
				Share:    c.Share,
			})
		}
		data.Creators = &creators
	}

	ix := token_metadata.CreateMetadataAccountV3(token_metadata.CreateMetadataAccountV3Param{
		Metadata:                toBlocto(accounts.Metadata),
		Mint:                    toBlocto(accounts.Mint),
		MintAuthority:           toBlocto(accounts.MintAuthority),
		Payer:                   toBlocto(accounts.Payer),
		UpdateAuthority:         toBlocto(accounts.UpdateAuthority),
		UpdateAuthorityIsSigner: true,
		IsMutable:               args.IsMutable,
		Data:                    data,
		CollectionDetails:       nil,
	})
	return FromBloctoInstruction(ix), nil
}

// FromBloctoInstruction converts a blocto SDK instruction into a solana-go one.
func FromBloctoInstruction(ix bloctotypes.Instruction) solana.Instruction {
	metas := make(solana.AccountMetaSlice, 0, len(ix.Accounts))
	for _, a := range ix.Accounts {
		metas = append(metas, solana.NewAccountMeta(fromBlocto(a.PubKey), a.IsWritable, a.IsSigner))
	}
	data := make([]byte, len(ix.Data))
	copy(data, ix.Data)
	return solana.NewInstruction(fromBlocto(ix.ProgramID), metas, data)
}

// Metadata is the decoded subset of an on-chain metadata account.
type Metadata struct {
	UpdateAuthority      solana.PublicKey `json:"updateAuthority"`
	Mint                 solana.PublicKey `json:"mint"`
	Name                 string           `json:"name"`
	Symbol               string           `json:"symbol"`
	URI                  string           `json:"uri"`
	SellerFeeBasisPoints uint16           `json:"sellerFeeBasisPoints"`
	Creators             []Creator        `json:"creators,omitempty"`
	PrimarySaleHappened  bool             `json:"primarySaleHappened"`
	IsMutable            bool             `json:"isMutable"`
}

// Decode parses raw metadata account data. Strings are stored NUL padded
// on chain and are trimmed here.
func Decode(data []byte) (Metadata, error) {
	if len(data) < 1+32+32 {
		return Metadata{}, fmt.Errorf("metadata account data too short: %d bytes", len(data))
	}
	raw, err := token_metadata.MetadataDeserialize(data)
	if err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	out := Metadata{
		UpdateAuthority:      fromBlocto(raw.UpdateAuthority),
		Mint:                 fromBlocto(raw.Mint),
		Name:                 trimPadding(raw.Data.Name),
		Symbol:               trimPadding(raw.Data.Symbol),
		URI:                  trimPadding(raw.Data.Uri),
		SellerFeeBasisPoints: raw.Data.SellerFeeBasisPoints,
		PrimarySaleHappened:  raw.PrimarySaleHappened,
		IsMutable:            raw.IsMutable,
	}
	if raw.Data.Creators != nil {
		for _, c := range *raw.Data.Creators {
			out.Creators = append(out.Creators, Creator{
				Address:  fromBlocto(c.Address),
				Verified: c.Verified,
				Share:    c.Share,
			})
		}
	}
	return out, nil
}

func trimPadding(s string) string {
	return strings.TrimRight(s, "\x00")
}

func toBlocto(pk solana.PublicKey) common.PublicKey {
	return common.PublicKeyFromBytes(pk[:])
}

func fromBlocto(pk common.PublicKey) solana.PublicKey {
	return solana.PublicKeyFromBytes(pk.Bytes())
}
