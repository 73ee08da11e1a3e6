// Package providertest provides an in-memory provider.Chain for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Catorpilor/rentsol/internal/provider"
)

var _ provider.Chain = (*Chain)(nil)

// Chain records submitted transactions and answers with canned results.
type Chain struct {
	mu sync.Mutex

	Blockhash    solana.Hash
	BlockhashErr error
	Accounts     map[solana.PublicKey]*rpc.Account
	Balances     map[solana.PublicKey]uint64

	SimErr    any
	SimLogs   []string
	SimRPCErr error

	SendErr error
	// Statuses are returned one per poll; the last one repeats.
	Statuses  []rpc.ConfirmationStatusType
	StatusErr any

	Simulated []*solana.Transaction
	Sent      []*solana.Transaction
	SendOpts  []rpc.TransactionOpts
	Airdrops  map[solana.PublicKey]uint64
	Polls     int
}

func New() *Chain {
	return &Chain{
		Blockhash: solana.Hash(solana.NewWallet().PublicKey()),
		Accounts:  map[solana.PublicKey]*rpc.Account{},
		Balances:  map[solana.PublicKey]uint64{},
		Airdrops:  map[solana.PublicKey]uint64{},
		Statuses:  []rpc.ConfirmationStatusType{rpc.ConfirmationStatusConfirmed},
	}
}

// SetAccount stores data owned by owner at addr.
func (c *Chain) SetAccount(addr, owner solana.PublicKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[addr] = &rpc.Account{
		Lamports: 1_000_000,
		Owner:    owner,
		Data:     rpc.DataBytesOrJSONFromBytes(data),
	}
}

func (c *Chain) GetLatestBlockhash(_ context.Context, _ rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BlockhashErr != nil {
		return nil, c.BlockhashErr
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: c.Blockhash, LastValidBlockHeight: 100},
	}, nil
}

func (c *Chain) GetAccountInfoWithOpts(_ context.Context, account solana.PublicKey, _ *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc, ok := c.Accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (c *Chain) GetBalance(_ context.Context, account solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &rpc.GetBalanceResult{Value: c.Balances[account]}, nil
}

func (c *Chain) SimulateTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Simulated = append(c.Simulated, tx)
	if c.SimRPCErr != nil {
		return nil, c.SimRPCErr
	}
	return &rpc.SimulateTransactionResponse{
		Value: &rpc.SimulateTransactionResult{Err: c.SimErr, Logs: c.SimLogs},
	}, nil
}

func (c *Chain) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return solana.Signature{}, c.SendErr
	}
	c.Sent = append(c.Sent, tx)
	c.SendOpts = append(c.SendOpts, opts)
	return tx.Signatures[0], nil
}

func (c *Chain) GetSignatureStatuses(_ context.Context, _ bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Polls++
	out := &rpc.GetSignatureStatusesResult{}
	for range sigs {
		if len(c.Statuses) == 0 {
			out.Value = append(out.Value, nil)
			continue
		}
		i := c.Polls - 1
		if i >= len(c.Statuses) {
			i = len(c.Statuses) - 1
		}
		out.Value = append(out.Value, &rpc.SignatureStatusesResult{
			ConfirmationStatus: c.Statuses[i],
			Err:                c.StatusErr,
		})
	}
	return out, nil
}

func (c *Chain) RequestAirdrop(_ context.Context, account solana.PublicKey, lamports uint64, _ rpc.CommitmentType) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Airdrops[account] += lamports
	c.Balances[account] += lamports
	var sig solana.Signature
	copy(sig[:], account[:])
	return sig, nil
}
