// Package rentable is the client binding for the rentable_sol program: a
// token owner locks one token with the program at a price and expiration,
// and a borrower pays that price in lamports to become the renter.
package rentable

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
)

// DefaultProgramID is the address the program is deployed at on localnet.
var DefaultProgramID = solana.MustPublicKeyFromBase58("Hus6vJsPgoTE86HUVzaJfJKZM8kfrk6y5LMwbGKhtr8H")

const (
	InstructionInitialize = "initialize"
	InstructionBorrow     = "borrow"

	AccountRentableToken = "RentableToken"

	// PDASeed prefixes the owner key when deriving a RentableToken address.
	PDASeed = "rentable-tokens"
)

type Discriminator [8]byte

// Anchor prefixes instruction data with sha256("global:<name>")[:8] and
// account data with sha256("account:<Name>")[:8].
func sighash(namespace, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d Discriminator
	copy(d[:], sum[:8])
	return d
}

var (
	InitializeDiscriminator    = sighash("global", InstructionInitialize)
	BorrowDiscriminator        = sighash("global", InstructionBorrow)
	RentableTokenDiscriminator = sighash("account", AccountRentableToken)
)

// FindRentablePDA derives the RentableToken account address for owner.
func FindRentablePDA(programID, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(PDASeed),
		owner[:],
	}, programID)
}

// FindATAWithProgram derives the associated token account using a specific
// token program id (Tokenkeg or Token-2022).
func FindATAWithProgram(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		owner[:],
		tokenProgram[:],
		mint[:],
	}, solana.SPLAssociatedTokenAccountProgramID)
}
