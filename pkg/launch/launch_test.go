package launch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/token-launch-go/pkg/config"
	"github.com/ninja0404/token-launch-go/pkg/constants"
	"github.com/ninja0404/token-launch-go/pkg/jito"
	"github.com/ninja0404/token-launch-go/pkg/metadata"
	sdkrpc "github.com/ninja0404/token-launch-go/pkg/rpc"
	"github.com/ninja0404/token-launch-go/pkg/txbuilder"
	"github.com/ninja0404/token-launch-go/pkg/types"
	"github.com/ninja0404/token-launch-go/pkg/wallet"
)

const testRent = 1_461_600

func newWallet(t *testing.T) wallet.Local {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return wallet.NewLocalFromPrivateKey(key)
}

func programs(instrs []solana.Instruction) []solana.PublicKey {
	return programIDs(instrs)
}

func TestBuildInstructionsOrder(t *testing.T) {
	payer := newWallet(t).PublicKey()
	mint := newWallet(t).PublicKey()
	cfg := config.DefaultTokenConfig()

	plan, err := BuildInstructions(payer, mint, testRent, cfg)
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 5)
	require.Equal(t, []solana.PublicKey{
		constants.SystemProgramID,
		constants.TokenProgramID,
		constants.MetadataProgramID,
		constants.AssociatedTokenProgramID,
		constants.TokenProgramID,
	}, programs(plan.Instructions))

	require.Equal(t, payer, plan.Owner)
	expectedATA, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	require.NoError(t, err)
	require.Equal(t, expectedATA, plan.ATA)
	expectedPDA, _, err := metadata.FindMetadataPDA(mint)
	require.NoError(t, err)
	require.Equal(t, expectedPDA, plan.Metadata)
}

func TestBuildInstructionsCreateAccount(t *testing.T) {
	payer := newWallet(t).PublicKey()
	mint := newWallet(t).PublicKey()

	plan, err := BuildInstructions(payer, mint, testRent, config.DefaultTokenConfig())
	require.NoError(t, err)

	ix := plan.Instructions[0]
	accounts := ix.Accounts()
	require.Len(t, accounts, 2)
	require.Equal(t, payer, accounts[0].PublicKey)
	require.True(t, accounts[0].IsSigner)
	require.Equal(t, mint, accounts[1].PublicKey)
	require.True(t, accounts[1].IsSigner)
	require.True(t, accounts[1].IsWritable)

	data, err := ix.Data()
	require.NoError(t, err)
	// u32 tag, u64 lamports, u64 space, owner
	require.Len(t, data, 4+8+8+32)
	require.Equal(t, uint64(testRent), binary.LittleEndian.Uint64(data[4:12]))
	require.Equal(t, uint64(constants.MintSize), binary.LittleEndian.Uint64(data[12:20]))
	require.Equal(t, constants.TokenProgramID[:], data[20:52])
}

func TestBuildInstructionsInitializeMintHasNoFreezeAuthority(t *testing.T) {
	payer := newWallet(t).PublicKey()
	mint := newWallet(t).PublicKey()

	plan, err := BuildInstructions(payer, mint, testRent, config.DefaultTokenConfig())
	require.NoError(t, err)

	data, err := plan.Instructions[1].Data()
	require.NoError(t, err)
	// tag, decimals, mint authority, COption<freeze authority>
	require.Equal(t, byte(0), data[0])
	require.Equal(t, byte(6), data[1])
	require.Equal(t, payer[:], data[2:34])
	require.Equal(t, byte(0), data[34])

	accounts := plan.Instructions[1].Accounts()
	require.Equal(t, mint, accounts[0].PublicKey)
	require.Equal(t, solana.SysVarRentPubkey, accounts[1].PublicKey)
}

func TestBuildInstructionsMintTo(t *testing.T) {
	payer := newWallet(t).PublicKey()
	mint := newWallet(t).PublicKey()

	plan, err := BuildInstructions(payer, mint, testRent, config.DefaultTokenConfig())
	require.NoError(t, err)

	ix := plan.Instructions[4]
	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, byte(7), data[0])
	require.Equal(t, uint64(config.DefaultMintAmount), binary.LittleEndian.Uint64(data[1:9]))

	accounts := ix.Accounts()
	require.Equal(t, mint, accounts[0].PublicKey)
	require.Equal(t, plan.ATA, accounts[1].PublicKey)
	require.Equal(t, payer, accounts[2].PublicKey)
	require.True(t, accounts[2].IsSigner)
}

func TestBuildInstructionsOptionalPrefixAndSuffix(t *testing.T) {
	payer := newWallet(t).PublicKey()
	mint := newWallet(t).PublicKey()
	tip := jito.MainnetTipAccounts[1]

	plan, err := BuildInstructions(payer, mint, testRent, config.DefaultTokenConfig(),
		WithComputeUnitLimit(200_000),
		WithComputeUnitPrice(10_000),
		WithJitoTip(5_000),
		WithJitoTipAccount(tip),
	)
	require.NoError(t, err)
	require.Equal(t, []solana.PublicKey{
		constants.ComputeBudgetProgramID,
		constants.ComputeBudgetProgramID,
		constants.SystemProgramID,
		constants.TokenProgramID,
		constants.MetadataProgramID,
		constants.AssociatedTokenProgramID,
		constants.TokenProgramID,
		constants.SystemProgramID,
	}, programs(plan.Instructions))
	require.Equal(t, tip, plan.Instructions[7].Accounts()[1].PublicKey)
}

func TestBuildInstructionsWithOwner(t *testing.T) {
	payer := newWallet(t).PublicKey()
	owner := newWallet(t).PublicKey()
	mint := newWallet(t).PublicKey()

	plan, err := BuildInstructions(payer, mint, testRent, config.DefaultTokenConfig(), WithOwner(owner))
	require.NoError(t, err)
	require.Equal(t, owner, plan.Owner)

	expected, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	require.Equal(t, expected, plan.ATA)
	// payer still funds the ATA
	require.Equal(t, payer, plan.Instructions[3].Accounts()[0].PublicKey)
}

func TestBuildInstructionsValidation(t *testing.T) {
	payer := newWallet(t).PublicKey()
	mint := newWallet(t).PublicKey()

	_, err := BuildInstructions(solana.PublicKey{}, mint, testRent, config.DefaultTokenConfig())
	var verr types.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "payer", verr.Field)

	cfg := config.DefaultTokenConfig()
	cfg.Symbol = "TOOLONGSYMBOL"
	_, err = BuildInstructions(payer, mint, testRent, cfg)
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "symbol", verr.Field)

	cfg = config.DefaultTokenConfig()
	cfg.Amount = 0
	_, err = BuildInstructions(payer, mint, testRent, cfg)
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "amount", verr.Field)
}

func TestGenerateMintKey(t *testing.T) {
	ctx := context.Background()

	given := newWallet(t).PrivateKey()
	key, err := generateMintKey(ctx, newOptions([]Option{WithMintKey(given)}))
	require.NoError(t, err)
	require.Equal(t, given, key)

	_, err = generateMintKey(ctx, newOptions([]Option{WithMintKey(solana.PrivateKey{1, 2, 3})}))
	require.Error(t, err)

	key, err = generateMintKey(ctx, newOptions(nil))
	require.NoError(t, err)
	require.Len(t, key, 64)

	key, err = generateMintKey(ctx, newOptions([]Option{WithVanityPrefix("A"), WithVanityTimeout(time.Minute)}))
	require.NoError(t, err)
	require.Equal(t, byte('A'), key.PublicKey().String()[0])

	_, err = generateMintKey(ctx, newOptions([]Option{WithVanityPrefix("0")}))
	require.Error(t, err)
}

func TestLaunchRequiresBuilderAndPayer(t *testing.T) {
	ctx := context.Background()
	_, err := Launch(ctx, nil, newWallet(t), config.DefaultTokenConfig())
	require.ErrorIs(t, err, types.ErrNilRPC)

	b := txbuilder.NewBuilder(sdkrpc.NewClient(config.DefaultRPCConfig()), "")
	_, err = Launch(ctx, b, nil, config.DefaultTokenConfig())
	require.ErrorIs(t, err, types.ErrNilSigner)

	_, err = Launch(ctx, b, newWallet(t), config.DefaultTokenConfig(), WithJitoTip(1_000))
	var verr types.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "jitoTip", verr.Field)

	_, err = Prepare(ctx, nil, newWallet(t).PublicKey(), config.DefaultTokenConfig())
	require.ErrorIs(t, err, types.ErrNilRPC)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1.000000", FormatAmount(1_000_000, 6))
	require.Equal(t, "0.000001", FormatAmount(1, 6))
	require.Equal(t, "0.000000", FormatAmount(0, 6))
	require.Equal(t, "12.5", FormatAmount(125, 1))
	require.Equal(t, "42", FormatAmount(42, 0))
}

// fakeRPC answers the handful of JSON-RPC methods a launch touches.
type fakeRPC struct {
	mu          sync.Mutex
	blockhash   solana.Hash
	statusErr   interface{}
	status      string // confirmationStatus reported for the signature
	dropped     bool   // the cluster never sees the signature
	blockHeight uint64
	balance     uint64
	accounts    map[string]map[string]interface{}
	sent        []*solana.Transaction
	methods     []string
}

func newFakeRPC(t *testing.T) (*fakeRPC, *sdkrpc.Client) {
	t.Helper()
	f := &fakeRPC{
		blockhash:   solana.Hash{9, 9, 9},
		status:      "confirmed",
		blockHeight: 50,
		balance:     2_000_000_000,
		accounts:    map[string]map[string]interface{}{},
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	cfg := config.DefaultRPCConfig()
	cfg.RPCURL = srv.URL
	cfg.RateLimit.RPS = 0
	cfg.Retry.Enabled = false
	return f, sdkrpc.NewClient(cfg)
}

func (f *fakeRPC) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, req.Method)

	slotCtx := map[string]interface{}{"slot": 1}
	var result interface{}
	switch req.Method {
	case "getMinimumBalanceForRentExemption":
		result = testRent
	case "getBalance":
		result = map[string]interface{}{"context": slotCtx, "value": f.balance}
	case "getLatestBlockhash":
		result = map[string]interface{}{
			"context": slotCtx,
			"value": map[string]interface{}{
				"blockhash":            f.blockhash.String(),
				"lastValidBlockHeight": 100,
			},
		}
	case "sendTransaction", "simulateTransaction":
		var encoded string
		_ = json.Unmarshal(req.Params[0], &encoded)
		raw, _ := base64.StdEncoding.DecodeString(encoded)
		tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Method == "simulateTransaction" {
			result = map[string]interface{}{
				"context": slotCtx,
				"value": map[string]interface{}{
					"err":  f.statusErr,
					"logs": []string{"Program log: simulated"},
				},
			}
			break
		}
		f.sent = append(f.sent, tx)
		result = tx.Signatures[0].String()
	case "getSignatureStatuses":
		var status interface{}
		if !f.dropped {
			status = map[string]interface{}{
				"slot":               1,
				"confirmations":      nil,
				"err":                f.statusErr,
				"confirmationStatus": f.status,
			}
		}
		result = map[string]interface{}{"context": slotCtx, "value": []interface{}{status}}
	case "getBlockHeight":
		result = f.blockHeight
	case "getAccountInfo":
		var key string
		_ = json.Unmarshal(req.Params[0], &key)
		var value interface{}
		if acc, ok := f.accounts[key]; ok {
			value = acc
		}
		result = map[string]interface{}{"context": slotCtx, "value": value}
	case "getMultipleAccounts":
		var keys []string
		_ = json.Unmarshal(req.Params[0], &keys)
		values := make([]interface{}, len(keys))
		for i, k := range keys {
			if acc, ok := f.accounts[k]; ok {
				values[i] = acc
			}
		}
		result = map[string]interface{}{"context": slotCtx, "value": values}
	default:
		http.Error(w, "unexpected method "+req.Method, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      req.ID,
		"result":  result,
	})
}

func (f *fakeRPC) putAccount(t *testing.T, addr, owner solana.PublicKey, v interface{}) {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, bin.NewBinEncoder(buf).Encode(v))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[addr.String()] = map[string]interface{}{
		"data":       []string{base64.StdEncoding.EncodeToString(buf.Bytes()), "base64"},
		"executable": false,
		"lamports":   testRent,
		"owner":      owner.String(),
		"rentEpoch":  0,
	}
}

func TestLaunchAgainstFakeRPC(t *testing.T) {
	fake, client := newFakeRPC(t)
	b := txbuilder.NewBuilder(client, "").WithPollInterval(10 * time.Millisecond)
	payer := newWallet(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	preview := new(bytes.Buffer)
	res, err := Launch(ctx, b, payer, config.DefaultTokenConfig(), WithPreview(preview))
	require.NoError(t, err)
	require.Equal(t, res.MintKey.PublicKey(), res.Mint)
	require.Contains(t, preview.String(), res.Mint.String())
	require.NotContains(t, preview.String(), res.MintKey.String())

	require.Len(t, fake.sent, 1)
	tx := fake.sent[0]
	require.Equal(t, res.Signature, tx.Signatures[0])
	require.Equal(t, fake.blockhash, tx.Message.RecentBlockhash)
	require.Equal(t, uint8(2), tx.Message.Header.NumRequiredSignatures)
	require.Equal(t, payer.PublicKey(), tx.Message.AccountKeys[0])
	require.Equal(t, res.Mint, tx.Message.AccountKeys[1])
	require.NoError(t, tx.VerifySignatures())
	require.Len(t, tx.Message.Instructions, 5)
}

func TestLaunchSurfacesProgramError(t *testing.T) {
	fake, client := newFakeRPC(t)
	fake.statusErr = map[string]interface{}{
		"InstructionError": []interface{}{2, map[string]interface{}{"Custom": 9}},
	}
	b := txbuilder.NewBuilder(client, "").WithPollInterval(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := Launch(ctx, b, newWallet(t), config.DefaultTokenConfig())
	require.Error(t, err)
	require.NotNil(t, res, "signature is reported even when confirmation fails")
	require.True(t, errors.Is(err, types.ErrTransactionFailed))

	var perr *types.ProgramError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "token_metadata", perr.Program)
	require.Equal(t, 9, perr.Code)
	require.Len(t, fake.sent, 1, "never resent")
}

func TestLaunchStopsWhenBlockhashExpires(t *testing.T) {
	fake, client := newFakeRPC(t)
	fake.dropped = true
	fake.blockHeight = 101 // past lastValidBlockHeight 100
	b := txbuilder.NewBuilder(client, "").WithPollInterval(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := Launch(ctx, b, newWallet(t), config.DefaultTokenConfig())
	require.ErrorIs(t, err, types.ErrConfirmationTimeout)
	require.Contains(t, err.Error(), "blockhash expired")
	require.NoError(t, ctx.Err(), "gave up on block height, not the deadline")
	require.NotNil(t, res)
	require.Len(t, fake.sent, 1, "never resent")
	require.Contains(t, fake.methods, "getBlockHeight")
}

func TestLaunchWaitsForRequestedConfirmation(t *testing.T) {
	fake, client := newFakeRPC(t)
	b := txbuilder.NewBuilder(client, "").WithPollInterval(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	// "confirmed" is not enough when finalized is asked for
	res, err := Launch(ctx, b, newWallet(t), config.DefaultTokenConfig(),
		WithConfirmation(txbuilder.ConfirmationFinalized))
	require.ErrorIs(t, err, types.ErrConfirmationTimeout)
	require.NotNil(t, res)

	fake.mu.Lock()
	fake.status = "finalized"
	fake.mu.Unlock()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_, err = Launch(ctx2, b, newWallet(t), config.DefaultTokenConfig(),
		WithConfirmation(txbuilder.ConfirmationFinalized))
	require.NoError(t, err)
}

func TestLaunchJitoRequiresTip(t *testing.T) {
	fake, client := newFakeRPC(t)
	b := txbuilder.NewBuilder(client, "").WithJito(jito.NewClient("", "http://127.0.0.1:0"))

	_, err := Launch(context.Background(), b, newWallet(t), config.DefaultTokenConfig())
	var valErr types.ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, "jitoTip", valErr.Field)
	require.Empty(t, fake.sent)
}

func TestLaunchThroughJitoWaitsForBundle(t *testing.T) {
	_, client := newFakeRPC(t)

	var mu sync.Mutex
	var engineMethods []string
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		engineMethods = append(engineMethods, req.Method)
		mu.Unlock()

		var result interface{} = "bundle-1"
		if req.Method == "getBundleStatuses" {
			result = map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value": []interface{}{map[string]interface{}{
					"bundle_id":           "bundle-1",
					"slot":                1,
					"confirmation_status": "confirmed",
					"err":                 map[string]interface{}{"Ok": nil},
				}},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	defer engine.Close()

	b := txbuilder.NewBuilder(client, "").
		WithPollInterval(10 * time.Millisecond).
		WithJito(jito.NewClient("", engine.URL).WithPollInterval(10 * time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := Launch(ctx, b, newWallet(t), config.DefaultTokenConfig(), WithJitoTip(10_000))
	require.NoError(t, err)
	require.Equal(t, "bundle-1", res.BundleID)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"sendBundle", "getBundleStatuses"}, engineMethods)
}

func TestPrepareRejectsExistingMintKey(t *testing.T) {
	fake, client := newFakeRPC(t)
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	fake.putAccount(t, key.PublicKey(), constants.TokenProgramID, &token.Mint{Decimals: 6, IsInitialized: true})

	_, err = Prepare(context.Background(), client, newWallet(t).PublicKey(), config.DefaultTokenConfig(), WithMintKey(key))
	var valErr types.ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, "mintKey", valErr.Field)

	fresh, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	plan, err := Prepare(context.Background(), client, newWallet(t).PublicKey(), config.DefaultTokenConfig(), WithMintKey(fresh))
	require.NoError(t, err)
	require.Equal(t, fresh.PublicKey(), plan.Mint)
}

func TestLaunchInsufficientBalance(t *testing.T) {
	fake, client := newFakeRPC(t)
	fake.balance = testRent - 1
	b := txbuilder.NewBuilder(client, "")

	_, err := Launch(context.Background(), b, newWallet(t), config.DefaultTokenConfig())
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
	require.Empty(t, fake.sent)
}

func TestSimulateAgainstFakeRPC(t *testing.T) {
	fake, client := newFakeRPC(t)
	b := txbuilder.NewBuilder(client, "")

	plan, res, err := Simulate(context.Background(), b, newWallet(t), config.DefaultTokenConfig())
	require.NoError(t, err)
	require.NotNil(t, plan)
	require.Equal(t, []string{"Program log: simulated"}, res.Logs)
	require.Empty(t, fake.sent)
}

func TestInspectAgainstFakeRPC(t *testing.T) {
	fake, client := newFakeRPC(t)
	owner := newWallet(t).PublicKey()
	mint := newWallet(t).PublicKey()
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)

	fake.putAccount(t, mint, constants.TokenProgramID, &token.Mint{
		MintAuthority: &owner,
		Supply:        1_000_000,
		Decimals:      6,
		IsInitialized: true,
	})
	fake.putAccount(t, ata, constants.TokenProgramID, &token.Account{
		Mint:   mint,
		Owner:  owner,
		Amount: 1_000_000,
		State:  token.Initialized,
	})

	info, err := Inspect(context.Background(), client, mint, owner)
	require.NoError(t, err)
	require.Equal(t, uint8(6), info.Decimals)
	require.Equal(t, uint64(1_000_000), info.Supply)
	require.NotNil(t, info.MintAuthority)
	require.Equal(t, owner, *info.MintAuthority)
	require.Nil(t, info.FreezeAuthority)
	require.Nil(t, info.Metadata)
	require.True(t, info.ATAExists)
	require.Equal(t, "1.000000", info.UIBalance)
}

func TestInspectMissingMint(t *testing.T) {
	_, client := newFakeRPC(t)
	_, err := Inspect(context.Background(), client, newWallet(t).PublicKey(), newWallet(t).PublicKey())
	require.ErrorIs(t, err, types.ErrMintNotFound)
}
