package launch

import (
	"io"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/token-launch-go/pkg/txbuilder"
)

// Options configures a launch. The zero value produces the plain
// five-instruction transaction confirmed at "confirmed".
type Options struct {
	Owner            solana.PublicKey  // ATA owner (default: payer)
	MintKey          solana.PrivateKey // Pre-generated mint keypair
	VanityPrefix     string            // Mint address prefix
	VanitySuffix     string            // Mint address suffix
	VanityTimeout    time.Duration     // Vanity search timeout (default: 5 minutes)
	ComputeUnitPrice uint64            // Priority fee in micro-lamports per CU (0 = none)
	ComputeUnitLimit uint32            // CU limit (0 = runtime default)
	JitoTipLamports  uint64            // Tip appended for Jito submission (0 = none)
	JitoTipAccount   solana.PublicKey  // Tip account (zero = random published one)
	Confirmation     txbuilder.ConfirmationLevel
	Preview          io.Writer // Receives the plan as JSON before submission
}

// Option functional option.
type Option func(*Options)

func newOptions(opts []Option) *Options {
	o := &Options{Confirmation: txbuilder.ConfirmationConfirmed}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithOwner mints the initial supply to owner's ATA instead of the payer's.
func WithOwner(owner solana.PublicKey) Option {
	return func(o *Options) { o.Owner = owner }
}

// WithMintKey uses a caller-provided mint keypair.
func WithMintKey(key solana.PrivateKey) Option {
	return func(o *Options) { o.MintKey = key }
}

// WithVanityPrefix searches for a mint address starting with prefix.
func WithVanityPrefix(prefix string) Option {
	return func(o *Options) { o.VanityPrefix = prefix }
}

// WithVanitySuffix searches for a mint address ending with suffix.
func WithVanitySuffix(suffix string) Option {
	return func(o *Options) { o.VanitySuffix = suffix }
}

// WithVanityTimeout bounds the vanity search.
func WithVanityTimeout(d time.Duration) Option {
	return func(o *Options) { o.VanityTimeout = d }
}

// WithComputeUnitPrice prepends a SetComputeUnitPrice instruction.
func WithComputeUnitPrice(microLamports uint64) Option {
	return func(o *Options) { o.ComputeUnitPrice = microLamports }
}

// WithComputeUnitLimit prepends a SetComputeUnitLimit instruction.
func WithComputeUnitLimit(units uint32) Option {
	return func(o *Options) { o.ComputeUnitLimit = units }
}

// WithJitoTip appends a tip transfer. Only valid with a Jito-enabled builder.
func WithJitoTip(lamports uint64) Option {
	return func(o *Options) { o.JitoTipLamports = lamports }
}

// WithJitoTipAccount pins the tip recipient.
func WithJitoTipAccount(account solana.PublicKey) Option {
	return func(o *Options) { o.JitoTipAccount = account }
}

// WithConfirmation overrides the confirmation level waited for.
func WithConfirmation(level txbuilder.ConfirmationLevel) Option {
	return func(o *Options) { o.Confirmation = level }
}

// WithPreview writes the derived plan as JSON to w.
func WithPreview(w io.Writer) Option {
	return func(o *Options) { o.Preview = w }
}
