// Package launch creates a fungible SPL token with Metaplex metadata in a
// single transaction: mint account, mint initialization, metadata, the
// owner's associated token account and the initial supply.
package launch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/ninja0404/token-launch-go/pkg/config"
	"github.com/ninja0404/token-launch-go/pkg/constants"
	"github.com/ninja0404/token-launch-go/pkg/jito"
	"github.com/ninja0404/token-launch-go/pkg/metadata"
	sdkrpc "github.com/ninja0404/token-launch-go/pkg/rpc"
	"github.com/ninja0404/token-launch-go/pkg/txbuilder"
	"github.com/ninja0404/token-launch-go/pkg/types"
	"github.com/ninja0404/token-launch-go/pkg/vanity"
	"github.com/ninja0404/token-launch-go/pkg/wallet"
)

// Plan is everything derived before the transaction is built.
type Plan struct {
	Payer        solana.PublicKey     `json:"payer"`
	Owner        solana.PublicKey     `json:"owner"`
	Mint         solana.PublicKey     `json:"mint"`
	Metadata     solana.PublicKey     `json:"metadata"`
	ATA          solana.PublicKey     `json:"ata"`
	RentLamports uint64               `json:"rentLamports"`
	Token        config.TokenConfig   `json:"token"`
	Instructions []solana.Instruction `json:"-"`
	MintKey      solana.PrivateKey    `json:"-"`
}

// Result of a confirmed launch.
type Result struct {
	Signature solana.Signature
	BundleID  string
	Mint      solana.PublicKey
	ATA       solana.PublicKey
	Metadata  solana.PublicKey
	MintKey   solana.PrivateKey
}

// BuildInstructions assembles the launch instructions for an already known
// mint address. It does no I/O. The five core instructions always appear in
// this order: create mint account, initialize mint, create metadata, create
// ATA, mint to ATA. Compute budget instructions are prepended and a Jito tip
// is appended only when the options ask for them.
func BuildInstructions(payer, mint solana.PublicKey, rent uint64, cfg config.TokenConfig, opts ...Option) (*Plan, error) {
	return buildInstructions(payer, mint, rent, cfg, newOptions(opts))
}

func buildInstructions(payer, mint solana.PublicKey, rent uint64, cfg config.TokenConfig, options *Options) (*Plan, error) {
	if err := types.ValidatePublicKey("payer", payer); err != nil {
		return nil, err
	}
	if err := types.ValidatePublicKey("mint", mint); err != nil {
		return nil, err
	}
	if err := types.ValidateTokenConfig(cfg); err != nil {
		return nil, err
	}
	owner := options.Owner
	if owner.IsZero() {
		owner = payer
	}

	metadataPDA, _, err := metadata.FindMetadataPDA(mint)
	if err != nil {
		return nil, err
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("derive associated token address: %w", err)
	}

	metadataIx, err := metadata.NewCreateMetadataAccountV3Instruction(
		metadata.CreateAccounts{
			Metadata:        metadataPDA,
			Mint:            mint,
			MintAuthority:   payer,
			Payer:           payer,
			UpdateAuthority: payer,
		},
		metadata.CreateArgs{
			Name:                 cfg.Name,
			Symbol:               cfg.Symbol,
			URI:                  cfg.URI,
			SellerFeeBasisPoints: cfg.SellerFeeBasisPoints,
			IsMutable:            cfg.IsMutable,
		},
	)
	if err != nil {
		return nil, err
	}

	instrs := make([]solana.Instruction, 0, 8)
	if options.ComputeUnitLimit > 0 {
		instrs = append(instrs, computebudget.NewSetComputeUnitLimitInstruction(options.ComputeUnitLimit).Build())
	}
	if options.ComputeUnitPrice > 0 {
		instrs = append(instrs, computebudget.NewSetComputeUnitPriceInstruction(options.ComputeUnitPrice).Build())
	}

	instrs = append(instrs,
		system.NewCreateAccountInstruction(rent, constants.MintSize, constants.TokenProgramID, payer, mint).Build(),
		// no freeze authority
		token.NewInitializeMintInstructionBuilder().
			SetDecimals(cfg.Decimals).
			SetMintAuthority(payer).
			SetMintAccount(mint).
			SetSysVarRentPubkeyAccount(solana.SysVarRentPubkey).
			Build(),
		metadataIx,
		associatedtokenaccount.NewCreateInstruction(payer, owner, mint).Build(),
		token.NewMintToInstruction(cfg.Amount, mint, ata, payer, nil).Build(),
	)

	if options.JitoTipLamports > 0 {
		instrs = append(instrs, jito.NewTipInstruction(payer, options.JitoTipAccount, options.JitoTipLamports))
	}

	return &Plan{
		Payer:        payer,
		Owner:        owner,
		Mint:         mint,
		Metadata:     metadataPDA,
		ATA:          ata,
		RentLamports: rent,
		Token:        cfg,
		Instructions: instrs,
	}, nil
}

// Prepare validates the request, picks the mint keypair, queries rent
// exemption for the mint account and builds the instruction list.
//
// Example:
//
//	plan, err := launch.Prepare(ctx, rpc, payer, config.DefaultTokenConfig(),
//	    launch.WithVanityPrefix("SHM"),
//	)
func Prepare(ctx context.Context, rpc *sdkrpc.Client, payer solana.PublicKey, cfg config.TokenConfig, opts ...Option) (*Plan, error) {
	return prepare(ctx, rpc, payer, cfg, newOptions(opts))
}

func prepare(ctx context.Context, rpc *sdkrpc.Client, payer solana.PublicKey, cfg config.TokenConfig, options *Options) (*Plan, error) {
	if rpc == nil {
		return nil, types.ErrNilRPC
	}
	if err := types.ValidatePublicKey("payer", payer); err != nil {
		return nil, err
	}
	if err := types.ValidateTokenConfig(cfg); err != nil {
		return nil, err
	}

	mintKey, err := generateMintKey(ctx, options)
	if err != nil {
		return nil, err
	}
	if options.MintKey != nil {
		// a reused key whose account exists would fail CreateAccount
		existing, err := rpc.GetAccountInfo(ctx, mintKey.PublicKey())
		if err != nil {
			return nil, fmt.Errorf("check mint account: %w", err)
		}
		if existing != nil {
			return nil, types.NewValidationError("mintKey", fmt.Sprintf("account %s already exists", mintKey.PublicKey()))
		}
	}

	rent, err := rpc.GetMinimumBalanceForRentExemption(ctx, constants.MintSize)
	if err != nil {
		return nil, fmt.Errorf("get rent exemption: %w", err)
	}

	plan, err := buildInstructions(payer, mintKey.PublicKey(), rent, cfg, options)
	if err != nil {
		return nil, err
	}
	plan.MintKey = mintKey

	if options.Preview != nil {
		_ = json.NewEncoder(options.Preview).Encode(plan)
	}
	return plan, nil
}

// generateMintKey returns the caller's key, a vanity key, or a random one.
func generateMintKey(ctx context.Context, options *Options) (solana.PrivateKey, error) {
	if options.MintKey != nil {
		if len(options.MintKey) != 64 {
			return nil, types.NewValidationError("mintKey", "must be a 64-byte ed25519 keypair")
		}
		return options.MintKey, nil
	}
	if options.VanitySuffix != "" || options.VanityPrefix != "" {
		timeout := options.VanityTimeout
		if timeout == 0 {
			timeout = 5 * time.Minute
		}
		result, err := vanity.Generate(ctx, vanity.Options{
			Prefix:  options.VanityPrefix,
			Suffix:  options.VanitySuffix,
			Timeout: timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("generate vanity address: %w", err)
		}
		return result.PrivateKey, nil
	}
	mintKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate mint keypair: %w", err)
	}
	return mintKey, nil
}

// Launch prepares the plan, signs one transaction with the payer and the
// mint keypair, submits it once and waits for the requested confirmation.
// A failed submission is returned as is; nothing is resent.
func Launch(ctx context.Context, builder *txbuilder.Builder, payer wallet.Signer, cfg config.TokenConfig, opts ...Option) (*Result, error) {
	if builder == nil || builder.Client() == nil {
		return nil, types.ErrNilRPC
	}
	if payer == nil {
		return nil, types.ErrNilSigner
	}
	options := newOptions(opts)
	if options.JitoTipLamports > 0 && !builder.HasJito() {
		return nil, types.NewValidationError("jitoTip", "requires a Jito-enabled builder")
	}
	// block engines drop bundles without a tip transfer
	if builder.HasJito() && options.JitoTipLamports == 0 {
		return nil, types.NewValidationError("jitoTip", "required when submitting through Jito")
	}

	log := builder.Client().Logger()
	plan, err := prepare(ctx, builder.Client(), payer.PublicKey(), cfg, options)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("mint", plan.Mint.String()).
		Str("ata", plan.ATA.String()).
		Uint64("rent", plan.RentLamports).
		Int("instructions", len(plan.Instructions)).
		Msg("launch prepared")

	if err := checkBalance(ctx, builder.Client(), plan, options); err != nil {
		return nil, err
	}

	tx, lastValid, err := signedTransaction(ctx, builder, payer, plan)
	if err != nil {
		return nil, err
	}

	sig, bundleID, err := builder.Send(ctx, tx)
	if err != nil {
		return nil, err
	}
	log.Info().Str("signature", sig.String()).Msg("transaction sent")

	res := &Result{
		Signature: sig,
		BundleID:  bundleID,
		Mint:      plan.Mint,
		ATA:       plan.ATA,
		Metadata:  plan.Metadata,
		MintKey:   plan.MintKey,
	}
	// the signature is returned even when confirmation fails, so the caller
	// can look it up instead of resending
	if err := builder.WaitForBundle(ctx, bundleID); err != nil {
		return res, err
	}
	if err := builder.WaitForConfirmation(ctx, sig, options.Confirmation, lastValid, programIDs(plan.Instructions)); err != nil {
		return res, fmt.Errorf("confirm %s: %w", sig, err)
	}
	log.Info().Str("signature", sig.String()).Str("level", string(options.Confirmation)).Msg("transaction confirmed")
	return res, nil
}

// Simulate runs the launch transaction through simulateTransaction without
// submitting it. The returned plan can be inspected either way.
func Simulate(ctx context.Context, builder *txbuilder.Builder, payer wallet.Signer, cfg config.TokenConfig, opts ...Option) (*Plan, *solanarpc.SimulateTransactionResult, error) {
	if builder == nil || builder.Client() == nil {
		return nil, nil, types.ErrNilRPC
	}
	if payer == nil {
		return nil, nil, types.ErrNilSigner
	}
	plan, err := prepare(ctx, builder.Client(), payer.PublicKey(), cfg, newOptions(opts))
	if err != nil {
		return nil, nil, err
	}
	tx, _, err := signedTransaction(ctx, builder, payer, plan)
	if err != nil {
		return plan, nil, err
	}
	res, err := builder.Simulate(ctx, tx)
	return plan, res, err
}

// checkBalance rejects a launch the payer cannot fund. Only the mint rent and
// the tip are known up front; metadata, ATA rent and fees are left to the
// runtime.
func checkBalance(ctx context.Context, rpc *sdkrpc.Client, plan *Plan, options *Options) error {
	balance, err := rpc.GetBalance(ctx, plan.Payer)
	if err != nil {
		return fmt.Errorf("get payer balance: %w", err)
	}
	need := plan.RentLamports + options.JitoTipLamports
	if balance < need {
		return fmt.Errorf("%w: payer %s has %d lamports, mint rent and tip need %d",
			types.ErrInsufficientBalance, plan.Payer, balance, need)
	}
	return nil
}

// signedTransaction also returns the blockhash's last valid block height.
func signedTransaction(ctx context.Context, builder *txbuilder.Builder, payer wallet.Signer, plan *Plan) (*solana.Transaction, uint64, error) {
	tx, lastValid, err := builder.BuildTransaction(ctx, payer.PublicKey(), plan.Instructions...)
	if err != nil {
		return nil, 0, err
	}
	mintSigner := wallet.NewLocalFromPrivateKey(plan.MintKey)
	if err := txbuilder.SignTransaction(ctx, tx, payer, mintSigner); err != nil {
		return nil, 0, fmt.Errorf("sign launch transaction: %w", err)
	}
	return tx, lastValid, nil
}

func programIDs(instrs []solana.Instruction) []solana.PublicKey {
	out := make([]solana.PublicKey, len(instrs))
	for i, ix := range instrs {
		out[i] = ix.ProgramID()
	}
	return out
}
