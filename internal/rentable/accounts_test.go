package rentable

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleToken(renter *solana.PublicKey) RentableToken {
	return RentableToken{
		TokenOwner:         solana.NewWallet().PublicKey(),
		Renter:             renter,
		AssociatedTokenAcc: solana.NewWallet().PublicKey(),
		Locked:             true,
		Price:              250_000,
		Expiration:         1_700_000_000,
		Bump:               254,
	}
}

func TestRentableToken_Layout(t *testing.T) {
	tok := sampleToken(nil)
	data, err := EncodeRentableToken(tok)
	require.NoError(t, err)
	// discriminator + owner + none tag + ata + locked + price + expiration + bump
	assert.Len(t, data, 8+32+1+32+1+8+8+1)

	renter := solana.NewWallet().PublicKey()
	tok.Renter = &renter
	data, err = EncodeRentableToken(tok)
	require.NoError(t, err)
	assert.Len(t, data, 8+32+1+32+32+1+8+8+1)
	assert.Equal(t, byte(1), data[40])
	assert.Equal(t, renter[:], data[41:73])
}

func TestDecodeRentableToken(t *testing.T) {
	renter := solana.NewWallet().PublicKey()
	for _, tc := range []struct {
		name   string
		renter *solana.PublicKey
	}{
		{"vacant", nil},
		{"rented", &renter},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tok := sampleToken(tc.renter)
			data, err := EncodeRentableToken(tok)
			require.NoError(t, err)
			// Account space is fixed; unused tail bytes stay zero.
			data = append(data, make([]byte, 16)...)

			got, err := DecodeRentableToken(data)
			require.NoError(t, err)
			assert.Equal(t, tok, *got)
			assert.Equal(t, tc.renter != nil, got.IsRented())
		})
	}
}

func TestDecodeRentableToken_Invalid(t *testing.T) {
	_, err := DecodeRentableToken(nil)
	require.ErrorIs(t, err, ErrInvalidDiscriminator)

	_, err = DecodeRentableToken(append(InitializeDiscriminator[:], make([]byte, 90)...))
	require.ErrorIs(t, err, ErrInvalidDiscriminator)

	data, err := EncodeRentableToken(sampleToken(nil))
	require.NoError(t, err)
	_, err = DecodeRentableToken(data[:50])
	require.ErrorContains(t, err, "associated_token_acc")
}

func TestRentableToken_Expiry(t *testing.T) {
	tok := sampleToken(nil)
	exp := time.Unix(tok.Expiration, 0).UTC()
	assert.Equal(t, exp, tok.ExpiresAt())
	assert.False(t, tok.Expired(exp.Add(-time.Second)))
	assert.True(t, tok.Expired(exp))

	tok.Expiration = 0
	assert.False(t, tok.Expired(time.Now()))
}
