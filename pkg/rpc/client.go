package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ninja0404/token-launch-go/pkg/config"
	"github.com/ninja0404/token-launch-go/pkg/types"
)

// Client wraps solana-go rpc.Client with retry, timeout, and rate limiting.
// Retries apply to reads only; SendTransaction is attempted exactly once.
type Client struct {
	raw     *solanarpc.Client
	cfg     config.RPCConfig
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient builds a configured Client.
func NewClient(cfg config.RPCConfig) *Client {
	rpcClient := solanarpc.New(cfg.ResolveRPCURL())

	var limiter *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst == 0 {
			burst = int(cfg.RateLimit.RPS * 2)
		}
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}

	return &Client{
		raw:     rpcClient,
		cfg:     cfg,
		limiter: limiter,
		log:     cfg.Logger,
	}
}

// Endpoint returns the resolved RPC URL.
func (c *Client) Endpoint() string {
	return c.cfg.ResolveRPCURL()
}

// Commitment returns the configured commitment level.
func (c *Client) Commitment() solanarpc.CommitmentType {
	if c.cfg.Commitment == "" {
		return solanarpc.CommitmentConfirmed
	}
	return solanarpc.CommitmentType(c.cfg.Commitment)
}

// Logger returns the client's logger.
func (c *Client) Logger() zerolog.Logger {
	return c.log
}

// GetLatestBlockhash fetches the latest blockhash at the configured commitment.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*solanarpc.GetLatestBlockhashResult, error) {
	var out *solanarpc.GetLatestBlockhashResult
	err := c.call(ctx, "getLatestBlockhash", func(ctx context.Context) error {
		var err error
		out, err = c.raw.GetLatestBlockhash(ctx, c.Commitment())
		return err
	})
	return out, err
}

// GetBlockHeight returns the current block height. Confirmation compares it
// against the blockhash's last valid height.
func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.call(ctx, "getBlockHeight", func(ctx context.Context) error {
		var err error
		height, err = c.raw.GetBlockHeight(ctx, c.Commitment())
		return err
	})
	return height, err
}

// GetMinimumBalanceForRentExemption returns the lamports an account of
// dataSize bytes needs to be rent exempt.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	var lamports uint64
	err := c.call(ctx, "getMinimumBalanceForRentExemption", func(ctx context.Context) error {
		var err error
		lamports, err = c.raw.GetMinimumBalanceForRentExemption(ctx, dataSize, c.Commitment())
		return err
	})
	return lamports, err
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var lamports uint64
	err := c.call(ctx, "getBalance", func(ctx context.Context) error {
		res, err := c.raw.GetBalance(ctx, account, c.Commitment())
		if err != nil {
			return err
		}
		lamports = res.Value
		return nil
	})
	return lamports, err
}

// GetAccountInfo fetches a single account. A missing account yields a nil
// result and no error.
func (c *Client) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.Account, error) {
	var out *solanarpc.Account
	err := c.call(ctx, "getAccountInfo", func(ctx context.Context) error {
		res, err := c.raw.GetAccountInfoWithOpts(ctx, account, &solanarpc.GetAccountInfoOpts{
			Commitment: c.Commitment(),
		})
		if errors.Is(err, solanarpc.ErrNotFound) {
			out = nil
			return nil
		}
		if err != nil {
			return err
		}
		out = res.Value
		return nil
	})
	return out, err
}

// GetMultipleAccounts pulls several accounts in one call, keyed by address.
// Missing accounts are absent from the map.
func (c *Client) GetMultipleAccounts(ctx context.Context, addrs ...solana.PublicKey) (map[solana.PublicKey]*solanarpc.Account, error) {
	out := make(map[solana.PublicKey]*solanarpc.Account, len(addrs))
	if len(addrs) == 0 {
		return out, nil
	}
	err := c.call(ctx, "getMultipleAccounts", func(ctx context.Context) error {
		res, err := c.raw.GetMultipleAccountsWithOpts(ctx, addrs, &solanarpc.GetMultipleAccountsOpts{
			Commitment: c.Commitment(),
		})
		if err != nil {
			return err
		}
		for i, v := range res.Value {
			if v == nil || i >= len(addrs) {
				continue
			}
			out[addrs[i]] = v
		}
		return nil
	})
	return out, err
}

// GetSignatureStatus returns the status of a single signature, or nil when
// the cluster has not seen it yet.
func (c *Client) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*solanarpc.SignatureStatusesResult, error) {
	var out *solanarpc.SignatureStatusesResult
	err := c.call(ctx, "getSignatureStatuses", func(ctx context.Context) error {
		res, err := c.raw.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return err
		}
		if res != nil && len(res.Value) > 0 {
			out = res.Value[0]
		}
		return nil
	})
	return out, err
}

// SendTransaction submits a signed transaction once.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.wait(ctx); err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.raw.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction: %w", err)
	}
	c.log.Debug().Str("signature", sig.String()).Msg("transaction submitted")
	return sig, nil
}

// SimulateTransaction simulates a transaction without submitting it.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction, opts *solanarpc.SimulateTransactionOpts) (*solanarpc.SimulateTransactionResponse, error) {
	var res *solanarpc.SimulateTransactionResponse
	err := c.call(ctx, "simulateTransaction", func(ctx context.Context) error {
		var err error
		res, err = c.raw.SimulateTransactionWithOpts(ctx, tx, opts)
		return err
	})
	return res, err
}

func (c *Client) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if !c.cfg.Retry.Enabled {
		if err := c.wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	}

	attempts := c.cfg.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = c.wait(ctx); err != nil {
			return err
		}
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) || i == attempts-1 {
			break
		}
		backoff := c.backoff(i)
		c.log.Debug().
			Str("op", op).
			Int("attempt", i+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("rpc retry")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := c.cfg.Retry.InitialBackoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	for i := 0; i < attempt; i++ {
		delay *= 2
		if c.cfg.Retry.MaxBackoff > 0 && delay > c.cfg.Retry.MaxBackoff {
			delay = c.cfg.Retry.MaxBackoff
			break
		}
	}
	if c.cfg.Retry.Jitter && delay > 1 {
		jitter := rand.Int63n(int64(delay / 2))
		delay = delay/2 + time.Duration(jitter)
	}
	return delay
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return types.IsRetryableError(err)
}
