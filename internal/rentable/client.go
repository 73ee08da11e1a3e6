package rentable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Catorpilor/rentsol/internal/provider"
)

// Program is a handle on a deployed rentable_sol program.
type Program struct {
	provider     *provider.Provider
	id           solana.PublicKey
	tokenProgram solana.PublicKey
}

func New(p *provider.Provider, programID, tokenProgramID solana.PublicKey) *Program {
	if programID.IsZero() {
		programID = DefaultProgramID
	}
	if tokenProgramID.IsZero() {
		tokenProgramID = solana.TokenProgramID
	}
	return &Program{provider: p, id: programID, tokenProgram: tokenProgramID}
}

func (p *Program) ID() solana.PublicKey { return p.id }

// PDA derives the RentableToken address for owner.
func (p *Program) PDA(owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return FindRentablePDA(p.id, owner)
}

// InitializeParams are all optional; see Initialize for the defaults.
type InitializeParams struct {
	Owner      solana.PublicKey
	Price      uint64
	Expiration int64

	Mint             solana.PublicKey
	From             solana.PublicKey
	FromTokenAccount solana.PublicKey
	ToTokenAccount   solana.PublicKey

	SimulateOnly bool
}

// Initialize locks a token with the program. The wallet signs as owner and
// its key seeds the PDA; params.Owner, recorded as token_owner, defaults to it.
// With a mint, the source token account defaults to the wallet's ATA and the
// destination to the program's ATA, which is created when missing. Without
// one, unset token accounts fall back to the wallet address and the program
// rejects them during account validation.
func (p *Program) Initialize(ctx context.Context, params InitializeParams) (provider.Result, error) {
	wallet := p.provider.PublicKey()
	owner := params.Owner
	if owner.IsZero() {
		owner = wallet
	}
	// The program seeds the PDA with the signing owner account, not the
	// owner argument.
	pda, _, err := p.PDA(wallet)
	if err != nil {
		return provider.Result{}, fmt.Errorf("derive pda: %w", err)
	}

	var ixs []solana.Instruction
	fromTA, toTA := params.FromTokenAccount, params.ToTokenAccount
	if !params.Mint.IsZero() {
		if fromTA.IsZero() {
			if fromTA, _, err = FindATAWithProgram(wallet, params.Mint, p.tokenProgram); err != nil {
				return provider.Result{}, fmt.Errorf("derive source ata: %w", err)
			}
		}
		if toTA.IsZero() {
			if toTA, _, err = FindATAWithProgram(p.id, params.Mint, p.tokenProgram); err != nil {
				return provider.Result{}, fmt.Errorf("derive program ata: %w", err)
			}
			create, err := p.ensureATA(ctx, toTA, p.id, params.Mint)
			if err != nil {
				return provider.Result{}, err
			}
			if create != nil {
				ixs = append(ixs, create)
			}
		}
	}
	if fromTA.IsZero() {
		fromTA = wallet
	}
	if toTA.IsZero() {
		toTA = wallet
	}
	from := params.From
	if from.IsZero() {
		from = fromTA
	}

	ix, err := NewInitializeInstruction(p.id,
		InitializeArgs{Owner: owner, Price: params.Price, Expiration: params.Expiration},
		InitializeAccounts{
			Owner:            wallet,
			From:             from,
			RentableTokenPDA: pda,
			FromTokenAccount: fromTA,
			ToTokenAccount:   toTA,
			TokenProgram:     p.tokenProgram,
			SystemProgram:    solana.SystemProgramID,
		})
	if err != nil {
		return provider.Result{}, err
	}
	ixs = append(ixs, ix)

	res, err := p.provider.SendAndConfirm(ctx, InstructionInitialize, ixs, provider.SendOptions{SimulateOnly: params.SimulateOnly})
	if err != nil {
		return res, fmt.Errorf("%s: %w", InstructionInitialize, explain(err))
	}
	if !res.Simulated {
		slog.Info("transaction signature", "instruction", InstructionInitialize, "sig", res.Signature.String(), "pda", pda.String(), "confirmed", res.Confirmed)
	}
	return res, nil
}

// ensureATA returns a create instruction when the ATA at addr does not exist.
func (p *Program) ensureATA(ctx context.Context, addr, owner, mint solana.PublicKey) (solana.Instruction, error) {
	acc, err := p.provider.Chain().GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{Commitment: p.provider.Commitment()})
	if err != nil && !errors.Is(err, rpc.ErrNotFound) {
		return nil, fmt.Errorf("getAccountInfo %s: %w", addr, err)
	}
	if err == nil && acc != nil && acc.Value != nil && acc.Value.Lamports > 0 {
		return nil, nil
	}
	payer := p.provider.PublicKey()
	accs := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: addr, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: p.tokenProgram, IsSigner: false, IsWritable: false},
	}
	slog.Debug("creating associated token account", "ata", addr.String(), "owner", owner.String(), "mint", mint.String())
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, accs, []byte{}), nil
}

type BorrowParams struct {
	// Owner is the wallet that initialized the RentableToken account; required.
	Owner solana.PublicKey
	// To receives the rent; defaults to the stored token owner.
	To solana.PublicKey
	// From pays the rent; defaults to the wallet.
	From solana.PublicKey

	SimulateOnly bool
}

// Borrow rents the owner's token for the stored price.
func (p *Program) Borrow(ctx context.Context, params BorrowParams) (provider.Result, error) {
	if params.Owner.IsZero() {
		return provider.Result{}, errors.New("borrow: owner required")
	}
	to := params.To
	state, pda, err := p.FetchRentableToken(ctx, params.Owner)
	if err != nil {
		return provider.Result{}, fmt.Errorf("%s: %w", InstructionBorrow, err)
	}
	if to.IsZero() {
		to = state.TokenOwner
	}
	from := params.From
	if from.IsZero() {
		from = p.provider.PublicKey()
	}

	ix := NewBorrowInstruction(p.id, BorrowAccounts{
		RentableTokenPDA: pda,
		SystemProgram:    solana.SystemProgramID,
		Signer:           p.provider.PublicKey(),
		From:             from,
		To:               to,
	})
	res, err := p.provider.SendAndConfirm(ctx, InstructionBorrow, []solana.Instruction{ix}, provider.SendOptions{SimulateOnly: params.SimulateOnly})
	if err != nil {
		return res, fmt.Errorf("%s: %w", InstructionBorrow, explain(err))
	}
	if !res.Simulated {
		slog.Info("transaction signature", "instruction", InstructionBorrow, "sig", res.Signature.String(), "price", state.Price, "confirmed", res.Confirmed)
	}
	return res, nil
}

// FetchRentableToken loads and decodes the owner's RentableToken account.
func (p *Program) FetchRentableToken(ctx context.Context, owner solana.PublicKey) (*RentableToken, solana.PublicKey, error) {
	pda, _, err := p.PDA(owner)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("derive pda: %w", err)
	}
	acc, err := p.provider.Chain().GetAccountInfoWithOpts(ctx, pda, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: p.provider.Commitment(),
	})
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (acc == nil || acc.Value == nil)) {
		return nil, pda, fmt.Errorf("%s: %w", pda, ErrAccountNotFound)
	}
	if err != nil {
		return nil, pda, fmt.Errorf("getAccountInfo %s: %w", pda, err)
	}
	if !acc.Value.Owner.Equals(p.id) {
		return nil, pda, fmt.Errorf("%s owned by %s: %w", pda, acc.Value.Owner, ErrWrongOwner)
	}
	state, err := DecodeRentableToken(acc.Value.Data.GetBinary())
	if err != nil {
		return nil, pda, err
	}
	return state, pda, nil
}

// explain wraps err in a *ProgramError when the failure carries one.
func explain(err error) error {
	var simErr *provider.SimulationError
	if errors.As(err, &simErr) {
		if pe, ok := ParseProgramError(simErr.Logs); ok {
			pe.Err = err
			return pe
		}
		if code, ok := CustomErrorCode(simErr.Err); ok {
			pe := programErrorFromCode(code)
			pe.Err = err
			return pe
		}
		return err
	}
	var txErr *provider.TransactionError
	if errors.As(err, &txErr) {
		if code, ok := CustomErrorCode(txErr.Err); ok {
			pe := programErrorFromCode(code)
			pe.Err = err
			return pe
		}
	}
	return err
}
