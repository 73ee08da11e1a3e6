// Package provider signs, simulates, sends and confirms transactions for a
// single fee-paying wallet against one cluster.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"

	cfgpkg "github.com/Catorpilor/rentsol/internal/config"
	"github.com/Catorpilor/rentsol/internal/metrics"
)

// Chain is the subset of the JSON-RPC API the provider needs.
type Chain interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solana.Signature, error)
}

type Options struct {
	Commitment            rpc.CommitmentType
	ComputeUnitLimit      uint32
	PriorityMicrolamports uint64
	MaxRetries            uint
	SkipPreflight         bool
	ConfirmTimeout        time.Duration
	PollInterval          time.Duration
}

// OptionsFromConfig maps the loaded config onto provider options.
func OptionsFromConfig(c *cfgpkg.Config) Options {
	return Options{
		Commitment:            rpc.CommitmentType(c.RPC.Commitment),
		ComputeUnitLimit:      c.Fees.ComputeUnitLimit,
		PriorityMicrolamports: c.Fees.PriorityMicrolamports,
		MaxRetries:            uint(c.MaxRetries),
		SkipPreflight:         c.SkipPreflight,
		ConfirmTimeout:        c.Confirm.Timeout,
		PollInterval:          c.Confirm.PollInterval,
	}
}

type SendOptions struct {
	SimulateOnly bool
	// Signers beyond the wallet, e.g. freshly generated account keys.
	ExtraSigners []solana.PrivateKey
}

type Result struct {
	Signature solana.Signature
	Simulated bool
	Confirmed bool
	Status    rpc.ConfirmationStatusType
	Logs      []string
}

func (r Result) String() string {
	switch {
	case r.Simulated:
		return "simulation OK"
	case r.Confirmed:
		return fmt.Sprintf("submitted: %s", r.Signature)
	default:
		return fmt.Sprintf("submitted (pending): %s", r.Signature)
	}
}

// SimulationError is returned when preflight simulation rejects a transaction.
type SimulationError struct {
	Err  any
	Logs []string
}

func (e *SimulationError) Error() string {
	if len(e.Logs) == 0 {
		return fmt.Sprintf("simulation error: %v", e.Err)
	}
	return fmt.Sprintf("simulation error: %v\nlogs:\n%s", e.Err, strings.Join(e.Logs, "\n"))
}

// TransactionError is returned when a sent transaction lands with an error.
type TransactionError struct {
	Signature solana.Signature
	Err       any
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

type Provider struct {
	chain   Chain
	wallet  solana.PrivateKey
	opts    Options
	metrics *metrics.Metrics
}

func New(chain Chain, wallet solana.PrivateKey, opts Options, m *metrics.Metrics) *Provider {
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Provider{chain: chain, wallet: wallet, opts: opts, metrics: m}
}

func (p *Provider) Chain() Chain { return p.chain }

func (p *Provider) Wallet() solana.PrivateKey { return p.wallet }

func (p *Provider) PublicKey() solana.PublicKey { return p.wallet.PublicKey() }

func (p *Provider) Commitment() rpc.CommitmentType { return p.opts.Commitment }

// SendAndConfirm builds a transaction from ixs paid by the wallet, simulates
// it, sends it and polls until it is confirmed or the confirm timeout passes.
// name labels the transaction in logs and metrics.
func (p *Provider) SendAndConfirm(ctx context.Context, name string, ixs []solana.Instruction, opts SendOptions) (Result, error) {
	res, err := p.sendAndConfirm(ctx, ixs, opts)
	switch {
	case err != nil:
		p.metrics.ObserveTransaction(name, metrics.OutcomeError)
	case res.Simulated:
		p.metrics.ObserveTransaction(name, metrics.OutcomeSimulated)
	case !res.Confirmed:
		p.metrics.ObserveTransaction(name, metrics.OutcomePending)
	default:
		p.metrics.ObserveTransaction(name, metrics.OutcomeOK)
	}
	return res, err
}

func (p *Provider) sendAndConfirm(ctx context.Context, ixs []solana.Instruction, opts SendOptions) (Result, error) {
	tx, err := p.buildTransaction(ctx, ixs, opts.ExtraSigners)
	if err != nil {
		return Result{}, err
	}

	var logs []string
	if !p.opts.SkipPreflight || opts.SimulateOnly {
		sim, err := p.chain.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
			SigVerify:  false,
			Commitment: p.opts.Commitment,
		})
		if err != nil {
			return Result{}, fmt.Errorf("simulate: %w", err)
		}
		if sim.Value != nil {
			logs = sim.Value.Logs
			if sim.Value.Err != nil {
				return Result{}, &SimulationError{Err: sim.Value.Err, Logs: sim.Value.Logs}
			}
		}
	}
	if opts.SimulateOnly {
		return Result{Simulated: true, Logs: logs}, nil
	}

	maxRetries := p.opts.MaxRetries
	sig, err := p.chain.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       p.opts.SkipPreflight,
		PreflightCommitment: p.opts.Commitment,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		return Result{}, fmt.Errorf("send: %w", err)
	}
	slog.Debug("transaction sent", "sig", sig.String())

	res := Result{Signature: sig, Logs: logs}
	status, err := p.confirm(ctx, sig)
	if err != nil {
		return res, err
	}
	res.Status = status
	res.Confirmed = status != ""
	return res, nil
}

func (p *Provider) buildTransaction(ctx context.Context, ixs []solana.Instruction, extra []solana.PrivateKey) (*solana.Transaction, error) {
	if len(ixs) == 0 {
		return nil, errors.New("no instructions")
	}
	lb, err := p.chain.GetLatestBlockhash(ctx, p.opts.Commitment)
	if err != nil {
		return nil, fmt.Errorf("getLatestBlockhash: %w", err)
	}
	if lb == nil || lb.Value == nil {
		return nil, errors.New("getLatestBlockhash: empty result")
	}

	var all []solana.Instruction
	if p.opts.ComputeUnitLimit > 0 {
		all = append(all, computebudget.NewSetComputeUnitLimitInstruction(p.opts.ComputeUnitLimit).Build())
	}
	if p.opts.PriorityMicrolamports > 0 {
		all = append(all, computebudget.NewSetComputeUnitPriceInstruction(p.opts.PriorityMicrolamports).Build())
	}
	all = append(all, ixs...)

	tx, err := solana.NewTransaction(all, lb.Value.Blockhash, solana.TransactionPayer(p.wallet.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("new tx: %w", err)
	}
	signers := append([]solana.PrivateKey{p.wallet}, extra...)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if key.Equals(signers[i].PublicKey()) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return tx, nil
}

// confirm polls the signature status. It returns an empty status without
// error when the confirm timeout passes first.
func (p *Provider) confirm(ctx context.Context, sig solana.Signature) (rpc.ConfirmationStatusType, error) {
	timer := time.NewTimer(p.opts.ConfirmTimeout)
	defer timer.Stop()
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		st, err := p.chain.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			slog.Debug("getSignatureStatuses", "sig", sig.String(), "err", err)
		} else if st != nil && len(st.Value) > 0 && st.Value[0] != nil {
			s := st.Value[0]
			if s.Err != nil {
				return "", &TransactionError{Signature: sig, Err: s.Err}
			}
			if reached(s.ConfirmationStatus, p.opts.Commitment) {
				return s.ConfirmationStatus, nil
			}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			slog.Warn("confirmation timed out", "sig", sig.String(), "timeout", p.opts.ConfirmTimeout.String())
			return "", nil
		case <-ticker.C:
		}
	}
}

// reached reports whether status satisfies the wanted commitment level.
func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return want != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return want == rpc.CommitmentProcessed
	}
	return false
}

// Airdrop requests lamports for the wallet and waits for the airdrop to land.
func (p *Provider) Airdrop(ctx context.Context, lamports uint64) (Result, error) {
	sig, err := p.chain.RequestAirdrop(ctx, p.wallet.PublicKey(), lamports, p.opts.Commitment)
	if err != nil {
		p.metrics.ObserveTransaction("airdrop", metrics.OutcomeError)
		return Result{}, fmt.Errorf("requestAirdrop: %w", err)
	}
	status, err := p.confirm(ctx, sig)
	res := Result{Signature: sig, Status: status, Confirmed: status != ""}
	switch {
	case err != nil:
		p.metrics.ObserveTransaction("airdrop", metrics.OutcomeError)
	case res.Confirmed:
		p.metrics.ObserveTransaction("airdrop", metrics.OutcomeOK)
	default:
		p.metrics.ObserveTransaction("airdrop", metrics.OutcomePending)
	}
	return res, err
}

// Balance returns the wallet balance in lamports.
func (p *Provider) Balance(ctx context.Context) (uint64, error) {
	out, err := p.chain.GetBalance(ctx, p.wallet.PublicKey(), p.opts.Commitment)
	if err != nil {
		return 0, fmt.Errorf("getBalance: %w", err)
	}
	return out.Value, nil
}
