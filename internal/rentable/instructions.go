package rentable

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// InitializeArgs are the Borsh-encoded arguments of the initialize instruction.
type InitializeArgs struct {
	Owner      solana.PublicKey
	Price      uint64
	Expiration int64
}

func (a InitializeArgs) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(a.Owner[:], false); err != nil {
		return err
	}
	if err := enc.WriteUint64(a.Price, bin.LE); err != nil {
		return err
	}
	return enc.WriteInt64(a.Expiration, bin.LE)
}

func (a *InitializeArgs) UnmarshalWithDecoder(dec *bin.Decoder) error {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	a.Owner = solana.PublicKeyFromBytes(b)
	if a.Price, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	a.Expiration, err = dec.ReadInt64(bin.LE)
	return err
}

// InitializeAccounts lists the accounts in the order the program declares them.
type InitializeAccounts struct {
	Owner            solana.PublicKey
	From             solana.PublicKey
	RentableTokenPDA solana.PublicKey
	FromTokenAccount solana.PublicKey
	ToTokenAccount   solana.PublicKey
	TokenProgram     solana.PublicKey
	SystemProgram    solana.PublicKey
}

func (a InitializeAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Owner, true, true),
		solana.NewAccountMeta(a.From, false, false),
		solana.NewAccountMeta(a.RentableTokenPDA, true, false),
		solana.NewAccountMeta(a.FromTokenAccount, false, false),
		solana.NewAccountMeta(a.ToTokenAccount, false, false),
		solana.NewAccountMeta(a.TokenProgram, false, false),
		solana.NewAccountMeta(a.SystemProgram, false, false),
	}
}

// NewInitializeInstruction builds the initialize instruction for programID.
func NewInitializeInstruction(programID solana.PublicKey, args InitializeArgs, accts InitializeAccounts) (*solana.GenericInstruction, error) {
	if accts.SystemProgram.IsZero() {
		accts.SystemProgram = solana.SystemProgramID
	}
	if accts.TokenProgram.IsZero() {
		accts.TokenProgram = solana.TokenProgramID
	}
	data, err := encodeInstruction(InitializeDiscriminator, args)
	if err != nil {
		return nil, fmt.Errorf("encode initialize: %w", err)
	}
	return solana.NewInstruction(programID, accts.metas(), data), nil
}

// BorrowAccounts lists the accounts in the order the program declares them.
type BorrowAccounts struct {
	RentableTokenPDA solana.PublicKey
	SystemProgram    solana.PublicKey
	Signer           solana.PublicKey
	From             solana.PublicKey
	To               solana.PublicKey
}

func (a BorrowAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(a.RentableTokenPDA, true, false),
		solana.NewAccountMeta(a.SystemProgram, false, false),
		solana.NewAccountMeta(a.Signer, false, true),
		solana.NewAccountMeta(a.From, false, false),
		solana.NewAccountMeta(a.To, false, false),
	}
}

// NewBorrowInstruction builds the argument-less borrow instruction.
func NewBorrowInstruction(programID solana.PublicKey, accts BorrowAccounts) *solana.GenericInstruction {
	if accts.SystemProgram.IsZero() {
		accts.SystemProgram = solana.SystemProgramID
	}
	return solana.NewInstruction(programID, accts.metas(), BorrowDiscriminator[:])
}

type encodable interface {
	MarshalWithEncoder(enc *bin.Encoder) error
}

func encodeInstruction(d Discriminator, args encodable) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(d[:])
	if err := args.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeInitializeData parses initialize instruction data, discriminator included.
func DecodeInitializeData(data []byte) (InitializeArgs, error) {
	var args InitializeArgs
	if len(data) < len(Discriminator{}) || Discriminator(data[:8]) != InitializeDiscriminator {
		return args, ErrInvalidDiscriminator
	}
	if err := args.UnmarshalWithDecoder(bin.NewBorshDecoder(data[8:])); err != nil {
		return args, fmt.Errorf("decode initialize: %w", err)
	}
	return args, nil
}
