package rpcclient

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	cfg "github.com/Catorpilor/rentsol/internal/config"
	"github.com/Catorpilor/rentsol/internal/metrics"
	"github.com/Catorpilor/rentsol/internal/provider"
)

var _ provider.Chain = (*Client)(nil)

// Client is a throttled, instrumented view over the solana JSON-RPC client.
type Client struct {
	RPC     *rpc.Client
	limiter *rate.Limiter
	timeout time.Duration
	metrics *metrics.Metrics
}

func New(c cfg.RPCConfig, m *metrics.Metrics) *Client {
	limit := rate.Inf
	if c.RateLimitRPS > 0 {
		limit = rate.Limit(c.RateLimitRPS)
	}
	burst := c.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		RPC:     rpc.New(c.URL),
		limiter: rate.NewLimiter(limit, burst),
		timeout: c.Timeout,
		metrics: m,
	}
}

// begin waits for a rate token and bounds the call by the configured timeout.
func (c *Client) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	if c.timeout <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return ctx, cancel, nil
}

func (c *Client) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (out *rpc.GetLatestBlockhashResult, err error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer c.observe("getLatestBlockhash", time.Now(), &err)
	return c.RPC.GetLatestBlockhash(ctx, commitment)
}

func (c *Client) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (out *rpc.GetAccountInfoResult, err error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer c.observe("getAccountInfo", time.Now(), &err)
	return c.RPC.GetAccountInfoWithOpts(ctx, account, opts)
}

func (c *Client) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (out *rpc.GetBalanceResult, err error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer c.observe("getBalance", time.Now(), &err)
	return c.RPC.GetBalance(ctx, account, commitment)
}

func (c *Client) SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (out *rpc.SimulateTransactionResponse, err error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer c.observe("simulateTransaction", time.Now(), &err)
	return c.RPC.SimulateTransactionWithOpts(ctx, tx, opts)
}

func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (sig solana.Signature, err error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	defer cancel()
	defer c.observe("sendTransaction", time.Now(), &err)
	return c.RPC.SendTransactionWithOpts(ctx, tx, opts)
}

func (c *Client) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (out *rpc.GetSignatureStatusesResult, err error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer c.observe("getSignatureStatuses", time.Now(), &err)
	return c.RPC.GetSignatureStatuses(ctx, searchTransactionHistory, sigs...)
}

func (c *Client) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64, commitment rpc.CommitmentType) (sig solana.Signature, err error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	defer cancel()
	defer c.observe("requestAirdrop", time.Now(), &err)
	return c.RPC.RequestAirdrop(ctx, account, lamports, commitment)
}

// observe reads *err after the call returns; named results are set by then.
func (c *Client) observe(method string, started time.Time, err *error) {
	c.metrics.ObserveRPC(method, started, *err)
}
