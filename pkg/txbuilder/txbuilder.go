package txbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/ninja0404/token-launch-go/pkg/jito"
	wraprpc "github.com/ninja0404/token-launch-go/pkg/rpc"
	"github.com/ninja0404/token-launch-go/pkg/types"
	"github.com/ninja0404/token-launch-go/pkg/wallet"
)

// ConfirmationLevel represents transaction confirmation depth.
type ConfirmationLevel string

const (
	ConfirmationProcessed ConfirmationLevel = "processed"
	ConfirmationConfirmed ConfirmationLevel = "confirmed"
	ConfirmationFinalized ConfirmationLevel = "finalized"
)

// ParseConfirmationLevel maps a commitment name to a ConfirmationLevel.
func ParseConfirmationLevel(s string) (ConfirmationLevel, error) {
	switch level := ConfirmationLevel(strings.ToLower(strings.TrimSpace(s))); level {
	case ConfirmationProcessed, ConfirmationConfirmed, ConfirmationFinalized:
		return level, nil
	case "":
		return ConfirmationConfirmed, nil
	default:
		return "", types.NewValidationError("commitment", fmt.Sprintf("unknown level %q", s))
	}
}

// Builder ties together RPC, signing, submission and confirmation.
type Builder struct {
	client        *wraprpc.Client
	commitment    solanarpc.CommitmentType
	skipPreflight bool
	jitoClient    *jito.Client
	pollInterval  time.Duration
	bundleTimeout time.Duration
	log           zerolog.Logger
}

// NewBuilder constructs a builder with the provided client and commitment.
func NewBuilder(client *wraprpc.Client, commitment solanarpc.CommitmentType) *Builder {
	if commitment == "" {
		commitment = solanarpc.CommitmentConfirmed
	}
	b := &Builder{
		client:        client,
		commitment:    commitment,
		pollInterval:  500 * time.Millisecond,
		bundleTimeout: 30 * time.Second,
		log:           zerolog.Nop(),
	}
	if client != nil {
		b.log = client.Logger()
	}
	return b
}

// WithSkipPreflight configures whether to skip preflight.
func (b *Builder) WithSkipPreflight(skip bool) *Builder {
	b.skipPreflight = skip
	return b
}

// WithJito routes submission through a Jito block engine. Nil disables it.
func (b *Builder) WithJito(jitoClient *jito.Client) *Builder {
	b.jitoClient = jitoClient
	return b
}

// WithPollInterval sets how often signature status is polled.
func (b *Builder) WithPollInterval(d time.Duration) *Builder {
	if d > 0 {
		b.pollInterval = d
	}
	return b
}

// WithBundleTimeout bounds how long WaitForBundle polls the block engine.
func (b *Builder) WithBundleTimeout(d time.Duration) *Builder {
	if d > 0 {
		b.bundleTimeout = d
	}
	return b
}

// HasJito reports whether submission goes through Jito.
func (b *Builder) HasJito() bool {
	return b.jitoClient != nil
}

// Client returns the RPC client.
func (b *Builder) Client() *wraprpc.Client {
	return b.client
}

// BuildTransaction builds an unsigned transaction with a fresh blockhash and
// returns the last block height at which that blockhash is still valid.
func (b *Builder) BuildTransaction(ctx context.Context, feePayer solana.PublicKey, instructions ...solana.Instruction) (*solana.Transaction, uint64, error) {
	if b.client == nil {
		return nil, 0, types.ErrNilRPC
	}
	latest, err := b.client.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("get latest blockhash: %w", err)
	}
	tx, err := NewTransaction(feePayer, latest.Value.Blockhash, instructions...)
	if err != nil {
		return nil, 0, err
	}
	return tx, latest.Value.LastValidBlockHeight, nil
}

// NewTransaction assembles a transaction for a known blockhash.
func NewTransaction(feePayer solana.PublicKey, blockhash solana.Hash, instructions ...solana.Instruction) (*solana.Transaction, error) {
	if len(instructions) == 0 {
		return nil, types.ErrNoInstructions
	}
	if feePayer.IsZero() {
		return nil, types.ErrNilFeePayer
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(feePayer))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	return tx, nil
}

// SignTransaction signs using the provided signers in account-key order.
// Every required signer must be supplied; extra signers are an error too,
// since they indicate a mismatch between the plan and the message.
func SignTransaction(ctx context.Context, tx *solana.Transaction, signers ...wallet.Signer) error {
	if tx == nil {
		return fmt.Errorf("transaction is nil")
	}
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Message.AccountKeys) < required {
		return fmt.Errorf("not enough account keys for required signatures")
	}

	byKey := make(map[solana.PublicKey]wallet.Signer, len(signers))
	for _, s := range signers {
		if s == nil {
			return types.ErrNilSigner
		}
		byKey[s.PublicKey()] = s
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	sigs := make([]solana.Signature, required)
	used := 0
	for i := 0; i < required; i++ {
		pk := tx.Message.AccountKeys[i]
		s, ok := byKey[pk]
		if !ok {
			return fmt.Errorf("missing signer for %s", pk)
		}
		sig, err := s.SignMessage(ctx, message)
		if err != nil {
			return fmt.Errorf("sign message for %s: %w", pk, err)
		}
		sigs[i] = sig
		used++
	}
	if used != len(byKey) {
		return fmt.Errorf("%d signers supplied but transaction requires %d", len(byKey), required)
	}
	tx.Signatures = sigs
	return nil
}

// Send submits a signed transaction once, through Jito when configured.
// The returned bundle id is empty for plain RPC submission.
func (b *Builder) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, string, error) {
	if b.jitoClient != nil {
		res, err := b.jitoClient.SendTransaction(ctx, tx)
		if err != nil {
			return solana.Signature{}, "", err
		}
		b.log.Info().Str("bundle", res.BundleID).Str("signature", res.Signature.String()).Msg("bundle submitted")
		return res.Signature, res.BundleID, nil
	}
	if b.client == nil {
		return solana.Signature{}, "", types.ErrNilRPC
	}
	sig, err := b.client.SendTransaction(ctx, tx, solanarpc.TransactionOpts{
		SkipPreflight:       b.skipPreflight,
		PreflightCommitment: b.commitment,
	})
	if err != nil {
		return solana.Signature{}, "", fmt.Errorf("send transaction: %w", err)
	}
	return sig, "", nil
}

// Simulate runs a signed transaction through simulateTransaction and maps
// a failure to a typed error.
func (b *Builder) Simulate(ctx context.Context, tx *solana.Transaction) (*solanarpc.SimulateTransactionResult, error) {
	if b.client == nil {
		return nil, types.ErrNilRPC
	}
	res, err := b.client.SimulateTransaction(ctx, tx, &solanarpc.SimulateTransactionOpts{
		SigVerify:  true,
		Commitment: b.commitment,
	})
	if err != nil {
		return nil, types.RPCError{Op: "simulateTransaction", Err: err}
	}
	if res == nil || res.Value == nil {
		return nil, types.ErrSimulationFailed
	}
	if res.Value.Err != nil {
		return res.Value, types.ParseSimulationError(res.Value.Err, res.Value.Logs, programIDs(tx))
	}
	return res.Value, nil
}

// WaitForBundle waits for a Jito bundle to land. The block engine does not
// report dropped bundles, so after the bundle timeout this gives up quietly
// and leaves the verdict to WaitForConfirmation.
func (b *Builder) WaitForBundle(ctx context.Context, bundleID string) error {
	if b.jitoClient == nil || bundleID == "" {
		return nil
	}
	bctx, cancel := context.WithTimeout(ctx, b.bundleTimeout)
	defer cancel()

	err := b.jitoClient.WaitForBundle(bctx, bundleID)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		b.log.Warn().Str("bundle", bundleID).Dur("timeout", b.bundleTimeout).Msg("bundle status unknown")
		return nil
	}
	if err != nil {
		return fmt.Errorf("wait for bundle %s: %w", bundleID, err)
	}
	b.log.Info().Str("bundle", bundleID).Msg("bundle landed")
	return nil
}

// WaitForConfirmation polls signature status until level is reached, the
// transaction fails, the blockhash expires or ctx ends. A zero
// lastValidBlockHeight disables the expiry check.
func (b *Builder) WaitForConfirmation(ctx context.Context, sig solana.Signature, level ConfirmationLevel, lastValidBlockHeight uint64, programs []solana.PublicKey) error {
	if b.client == nil {
		return types.ErrNilRPC
	}

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("%w: %v", types.ErrConfirmationTimeout, ctx.Err())
			}
			return ctx.Err()
		case <-ticker.C:
			status, err := b.client.GetSignatureStatus(ctx, sig)
			if err != nil {
				b.log.Debug().Err(err).Str("signature", sig.String()).Msg("signature status")
				continue
			}
			if status == nil {
				if expired, height := b.blockhashExpired(ctx, lastValidBlockHeight); expired {
					return fmt.Errorf("%w: blockhash expired at block height %d (last valid %d)",
						types.ErrConfirmationTimeout, height, lastValidBlockHeight)
				}
				continue
			}
			if status.Err != nil {
				return types.ParseSimulationError(status.Err, nil, programs)
			}
			if reached(status.ConfirmationStatus, level) {
				return nil
			}
		}
	}
}

// blockhashExpired reports whether the chain has moved past lastValid.
// Lookup errors count as not expired; the next tick asks again.
func (b *Builder) blockhashExpired(ctx context.Context, lastValid uint64) (bool, uint64) {
	if lastValid == 0 {
		return false, 0
	}
	height, err := b.client.GetBlockHeight(ctx)
	if err != nil {
		b.log.Debug().Err(err).Msg("block height")
		return false, 0
	}
	return height > lastValid, height
}

func reached(status solanarpc.ConfirmationStatusType, level ConfirmationLevel) bool {
	switch level {
	case ConfirmationProcessed:
		return true
	case ConfirmationFinalized:
		return status == solanarpc.ConfirmationStatusFinalized
	default:
		return status == solanarpc.ConfirmationStatusConfirmed ||
			status == solanarpc.ConfirmationStatusFinalized
	}
}

// programIDs lists the program invoked by each top-level instruction.
func programIDs(tx *solana.Transaction) []solana.PublicKey {
	if tx == nil {
		return nil
	}
	out := make([]solana.PublicKey, 0, len(tx.Message.Instructions))
	for _, ci := range tx.Message.Instructions {
		pk, err := tx.Message.Program(ci.ProgramIDIndex)
		if err != nil {
			out = append(out, solana.PublicKey{})
			continue
		}
		out = append(out, pk)
	}
	return out
}
