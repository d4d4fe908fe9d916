package jito

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestNewTipInstruction(t *testing.T) {
	payer := solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5")
	tip := MainnetTipAccounts[2]

	ix := NewTipInstruction(payer, tip, 10_000)
	require.Equal(t, solana.SystemProgramID, ix.ProgramID())
	accounts := ix.Accounts()
	require.Len(t, accounts, 2)
	require.Equal(t, payer, accounts[0].PublicKey)
	require.True(t, accounts[0].IsSigner)
	require.Equal(t, tip, accounts[1].PublicKey)
}

func TestNewTipInstructionPicksPublishedAccount(t *testing.T) {
	payer := MainnetTipAccounts[0]
	ix := NewTipInstruction(payer, solana.PublicKey{}, 1)
	require.Contains(t, MainnetTipAccounts, ix.Accounts()[1].PublicKey)
}

func TestIsRateLimitError(t *testing.T) {
	require.False(t, isRateLimitError(nil))
	require.True(t, isRateLimitError(errors.New("HTTP 429 Too Many Requests")))
	require.True(t, isRateLimitError(errors.New("Rate limit exceeded")))
	require.False(t, isRateLimitError(errors.New("invalid bundle")))
}

func TestSendTransactionRequiresSignature(t *testing.T) {
	c := NewClient("", TestnetBlockEngine)
	_, err := c.SendTransaction(context.Background(), &solana.Transaction{})
	require.Error(t, err)
}

func TestWithRetriesFloor(t *testing.T) {
	c := NewClient("").WithRetries(0, 0)
	require.Equal(t, 1, c.maxRetries)
	require.Len(t, c.endpoints, len(MainnetBlockEngines))
}

// fakeEngine answers sendBundle and getBundleStatuses like a block engine.
type fakeEngine struct {
	mu       sync.Mutex
	landed   bool
	statuses int
}

func (f *fakeEngine) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var result interface{}
	switch req.Method {
	case "sendBundle":
		result = "bundle-1"
	case "getBundleStatuses":
		f.statuses++
		value := []interface{}{}
		if f.landed {
			value = append(value, map[string]interface{}{
				"bundle_id":           "bundle-1",
				"transactions":        []string{"sig"},
				"slot":                7,
				"confirmation_status": "confirmed",
				"err":                 map[string]interface{}{"Ok": nil},
			})
		}
		result = map[string]interface{}{"context": map[string]interface{}{"slot": 7}, "value": value}
	default:
		http.Error(w, "unexpected method "+req.Method, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func newFakeEngine(t *testing.T, landed bool) (*fakeEngine, *Client) {
	t.Helper()
	f := &fakeEngine{landed: landed}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, NewClient("", srv.URL).WithPollInterval(10 * time.Millisecond)
}

func signedTx(t *testing.T) *solana.Transaction {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	tx, err := solana.NewTransaction(
		[]solana.Instruction{NewTipInstruction(key.PublicKey(), MainnetTipAccounts[0], 1000)},
		solana.Hash{1},
		solana.TransactionPayer(key.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey { return &key })
	require.NoError(t, err)
	return tx
}

func TestSendTransactionReturnsBundleID(t *testing.T) {
	_, c := newFakeEngine(t, true)
	tx := signedTx(t)
	res, err := c.SendTransaction(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, "bundle-1", res.BundleID)
	require.Equal(t, tx.Signatures[0], res.Signature)
}

func TestWaitForBundleLanded(t *testing.T) {
	_, c := newFakeEngine(t, true)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.WaitForBundle(ctx, "bundle-1"))
}

func TestWaitForBundleNotLandedRunsUntilDeadline(t *testing.T) {
	f, c := newFakeEngine(t, false)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := c.WaitForBundle(ctx, "bundle-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Greater(t, f.statuses, 0)
}
