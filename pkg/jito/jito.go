// Package jito submits the launch transaction through a Jito block engine
// as a single-transaction bundle, with a tip transfer appended to it.
//
// See https://github.com/jito-labs/jito-go-rpc
package jito

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	jitorpc "github.com/jito-labs/jito-go-rpc"
)

// Block engine endpoints
const (
	MainnetBlockEngine = "https://mainnet.block-engine.jito.wtf/api/v1"
	TestnetBlockEngine = "https://testnet.block-engine.jito.wtf/api/v1"
)

// MainnetBlockEngines are regional mainnet endpoints used for failover.
var MainnetBlockEngines = []string{
	"https://mainnet.block-engine.jito.wtf/api/v1",
	"https://amsterdam.mainnet.block-engine.jito.wtf/api/v1",
	"https://frankfurt.mainnet.block-engine.jito.wtf/api/v1",
	"https://ny.mainnet.block-engine.jito.wtf/api/v1",
	"https://tokyo.mainnet.block-engine.jito.wtf/api/v1",
}

// MainnetTipAccounts are the published Jito tip accounts.
var MainnetTipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

// RandomTipAccount picks one of MainnetTipAccounts without any network call.
func RandomTipAccount() solana.PublicKey {
	return MainnetTipAccounts[rand.Intn(len(MainnetTipAccounts))]
}

// NewTipInstruction transfers lamports from payer to a tip account.
// A zero tipAccount selects a random published one.
func NewTipInstruction(payer, tipAccount solana.PublicKey, lamports uint64) solana.Instruction {
	if tipAccount.IsZero() {
		tipAccount = RandomTipAccount()
	}
	return system.NewTransferInstruction(lamports, payer, tipAccount).Build()
}

// Client rotates over block engine endpoints. Only rate-limit rejections
// are retried, since those guarantee the bundle was not accepted.
type Client struct {
	endpoints    []string
	uuid         string
	currentIndex uint32
	maxRetries   int
	retryDelay   time.Duration
	pollInterval time.Duration
}

// NewClient creates a client for one or more endpoints. uuid may be empty.
func NewClient(uuid string, endpoints ...string) *Client {
	if len(endpoints) == 0 {
		endpoints = MainnetBlockEngines
	}
	return &Client{
		endpoints:    endpoints,
		uuid:         uuid,
		maxRetries:   len(endpoints) + 2,
		retryDelay:   150 * time.Millisecond,
		pollInterval: 250 * time.Millisecond,
	}
}

// WithRetries overrides the rate-limit retry budget.
func (c *Client) WithRetries(maxRetries int, retryDelay time.Duration) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	c.maxRetries = maxRetries
	c.retryDelay = retryDelay
	return c
}

// WithPollInterval sets how often WaitForBundle asks for bundle status.
func (c *Client) WithPollInterval(d time.Duration) *Client {
	if d > 0 {
		c.pollInterval = d
	}
	return c
}

func (c *Client) next() *jitorpc.JitoJsonRpcClient {
	idx := atomic.AddUint32(&c.currentIndex, 1)
	return jitorpc.NewJitoJsonRpcClient(c.endpoints[int(idx)%len(c.endpoints)], c.uuid)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "congested") ||
		strings.Contains(msg, "429")
}

// SendResult carries the transaction signature and the bundle it rode in.
type SendResult struct {
	Signature solana.Signature
	BundleID  string
}

// SendTransaction submits a signed transaction as a one-transaction bundle.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (SendResult, error) {
	if tx == nil || len(tx.Signatures) == 0 {
		return SendResult{}, fmt.Errorf("transaction must be signed before sending")
	}
	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal transaction: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(txBytes)

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return SendResult{}, err
		}
		raw, err := c.next().SendBundle([][]string{{encoded}})
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				sleep(ctx, c.retryDelay)
				continue
			}
			return SendResult{}, fmt.Errorf("jito send bundle: %w", err)
		}
		var bundleID string
		if err := json.Unmarshal(raw, &bundleID); err != nil {
			return SendResult{}, fmt.Errorf("unmarshal bundle response: %w", err)
		}
		return SendResult{Signature: tx.Signatures[0], BundleID: bundleID}, nil
	}
	return SendResult{}, fmt.Errorf("jito send bundle failed after %d attempts: %w", c.maxRetries, lastErr)
}

// GetBundleStatuses returns the landed status of submitted bundles.
func (c *Client) GetBundleStatuses(ctx context.Context, bundleIDs []string) (*jitorpc.BundleStatusResponse, error) {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		statuses, err := c.next().GetBundleStatuses(bundleIDs)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				sleep(ctx, c.retryDelay)
				continue
			}
			return nil, fmt.Errorf("get bundle statuses: %w", err)
		}
		return statuses, nil
	}
	return nil, fmt.Errorf("get bundle statuses failed after %d attempts: %w", c.maxRetries, lastErr)
}

// WaitForBundle polls until the bundle lands at confirmed or finalized.
// getBundleStatuses only lists landed bundles, so a dropped bundle keeps
// this waiting until ctx ends.
func (c *Client) WaitForBundle(ctx context.Context, bundleID string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			statuses, err := c.GetBundleStatuses(ctx, []string{bundleID})
			if err != nil || statuses == nil {
				continue
			}
			for _, status := range statuses.Value {
				if status.BundleID != "" && status.BundleID != bundleID {
					continue
				}
				switch status.ConfirmationStatus {
				case "confirmed", "finalized":
					return nil
				}
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
