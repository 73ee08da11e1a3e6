package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Catorpilor/rentsol/internal/rentable"
	"github.com/Catorpilor/rentsol/internal/wallet"
)

// node answers JSON-RPC calls with canned results keyed by method and
// remembers the order they arrived in.
type node struct {
	*httptest.Server
	mu      sync.Mutex
	methods []string
}

func newNode(t *testing.T, results map[string]string) *node {
	t.Helper()
	n := &node{}
	n.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		n.mu.Lock()
		n.methods = append(n.methods, req.Method)
		n.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		res, ok := results[req.Method]
		if !ok {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32601,"message":"Method not found"}}`, req.ID)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, res)
	}))
	t.Cleanup(n.Close)
	return n
}

func (n *node) called() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.methods...)
}

// walletEnv writes a fresh keypair file and returns the environment that
// points the CLI at it and at url.
func walletEnv(t *testing.T, url string) (solana.PrivateKey, map[string]string) {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, wallet.WriteKeypairFile(path, key))
	return key, map[string]string{"ANCHOR_PROVIDER_URL": url, "ANCHOR_WALLET": path}
}

func signature(t *testing.T, key solana.PrivateKey) solana.Signature {
	t.Helper()
	sig, err := key.Sign([]byte("rentsol"))
	require.NoError(t, err)
	return sig
}

func sendResults(sig solana.Signature, simErr string, logs ...string) map[string]string {
	rawLogs, _ := json.Marshal(logs)
	return map[string]string{
		"getLatestBlockhash":   fmt.Sprintf(`{"context":{"slot":1},"value":{"blockhash":%q,"lastValidBlockHeight":100}}`, solana.Hash(solana.NewWallet().PublicKey()).String()),
		"simulateTransaction":  fmt.Sprintf(`{"context":{"slot":1},"value":{"err":%s,"logs":%s}}`, simErr, rawLogs),
		"sendTransaction":      fmt.Sprintf("%q", sig.String()),
		"getSignatureStatuses": `{"context":{"slot":1},"value":[{"slot":1,"confirmations":null,"err":null,"confirmationStatus":"confirmed"}]}`,
		"requestAirdrop":       fmt.Sprintf("%q", sig.String()),
		"getBalance":           `{"context":{"slot":1},"value":1000000000}`,
	}
}

func TestInitializeCommand_PrintsSignature(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	sig := signature(t, key)
	n := newNode(t, sendResults(sig, "null", "Program log: Instruction: Initialize"))
	_, env := walletEnv(t, n.URL)

	out, err := runEnv(t, env, "initialize", "--price", "100", "--expiration", "1700000000")
	require.NoError(t, err)
	assert.Equal(t, "Your transaction signature "+sig.String()+"\n", out)
	assert.Equal(t, []string{"getLatestBlockhash", "simulateTransaction", "sendTransaction", "getSignatureStatuses"}, n.called())
}

func TestInitializeCommand_SimulateOnly(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	n := newNode(t, sendResults(signature(t, key), "null"))
	_, env := walletEnv(t, n.URL)

	out, err := runEnv(t, env, "initialize", "--simulate")
	require.NoError(t, err)
	assert.Equal(t, "simulation OK\n", out)
	assert.NotContains(t, n.called(), "sendTransaction")
}

func TestInitializeCommand_ProgramError(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	n := newNode(t, sendResults(signature(t, key),
		`{"InstructionError":[0,{"Custom":6000}]}`,
		"Program log: AnchorError occurred. Error Code: NoSigner. Error Number: 6000. Error Message: No signer was found for the transaction.",
	))
	_, env := walletEnv(t, n.URL)

	out, err := runEnv(t, env, "initialize")
	var pe *rentable.ProgramError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, rentable.ErrNoSigner)
	assert.Equal(t, "NoSigner", pe.Name)
	assert.Empty(t, out)
	assert.NotContains(t, n.called(), "sendTransaction")
}

func TestBorrowCommand_AccountMissing(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	results := sendResults(signature(t, key), "null")
	results["getAccountInfo"] = `{"context":{"slot":1},"value":null}`
	n := newNode(t, results)
	_, env := walletEnv(t, n.URL)

	_, err := runEnv(t, env, "borrow", "--owner", solana.NewWallet().PublicKey().String())
	require.ErrorIs(t, err, rentable.ErrAccountNotFound)
	assert.NotContains(t, n.called(), "sendTransaction")
}

func TestShowCommand(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	state := rentable.RentableToken{TokenOwner: owner, Locked: true, Price: 42, Expiration: 1700000000, Bump: 254}
	data, err := rentable.EncodeRentableToken(state)
	require.NoError(t, err)
	n := newNode(t, map[string]string{
		"getAccountInfo": fmt.Sprintf(`{"context":{"slot":1},"value":{"data":[%q,"base64"],"executable":false,"lamports":1000000,"owner":%q,"rentEpoch":0,"space":%d}}`,
			base64.StdEncoding.EncodeToString(data), rentable.DefaultProgramID.String(), len(data)),
	})
	_, env := walletEnv(t, n.URL)

	out, err := runEnv(t, env, "show", "--owner", owner.String())
	require.NoError(t, err)

	var view struct {
		PDA     string         `yaml:"pda"`
		Account map[string]any `yaml:"account"`
		Expires string         `yaml:"expires"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	pda, _, err := rentable.FindRentablePDA(rentable.DefaultProgramID, owner)
	require.NoError(t, err)
	assert.Equal(t, pda.String(), view.PDA)
	assert.Equal(t, owner.String(), view.Account["token_owner"])
	assert.Equal(t, 42, view.Account["price"])
	assert.Equal(t, "2023-11-14T22:13:20Z", view.Expires)
}

func TestAirdropCommand(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	sig := signature(t, key)
	n := newNode(t, sendResults(sig, "null"))
	_, env := walletEnv(t, n.URL)

	out, err := runEnv(t, env, "airdrop", "--sol", "1")
	require.NoError(t, err)
	assert.Equal(t, "submitted: "+sig.String()+"\nbalance: 1000000000 lamports\n", out)
	assert.Equal(t, []string{"requestAirdrop", "getSignatureStatuses", "getBalance"}, n.called())
}
