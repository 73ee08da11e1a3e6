package rentable

import (
	"bytes"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// RentableToken is the on-chain state kept at the owner's PDA.
type RentableToken struct {
	TokenOwner         solana.PublicKey  `yaml:"token_owner"`
	Renter             *solana.PublicKey `yaml:"renter"`
	AssociatedTokenAcc solana.PublicKey  `yaml:"associated_token_acc"`
	Locked             bool              `yaml:"locked"`
	Price              uint64            `yaml:"price"`
	Expiration         int64             `yaml:"expiration"`
	Bump               uint8             `yaml:"bump"`
}

func (t *RentableToken) IsRented() bool { return t.Renter != nil }

func (t *RentableToken) ExpiresAt() time.Time { return time.Unix(t.Expiration, 0).UTC() }

// Expired reports whether the rental period has passed at now. A zero
// expiration never expires.
func (t *RentableToken) Expired(now time.Time) bool {
	return t.Expiration != 0 && !now.Before(t.ExpiresAt())
}

func (t RentableToken) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(t.TokenOwner[:], false); err != nil {
		return err
	}
	// Option<Pubkey>: one tag byte, then the key when present.
	if err := enc.WriteBool(t.Renter != nil); err != nil {
		return err
	}
	if t.Renter != nil {
		if err := enc.WriteBytes(t.Renter[:], false); err != nil {
			return err
		}
	}
	if err := enc.WriteBytes(t.AssociatedTokenAcc[:], false); err != nil {
		return err
	}
	if err := enc.WriteBool(t.Locked); err != nil {
		return err
	}
	if err := enc.WriteUint64(t.Price, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteInt64(t.Expiration, bin.LE); err != nil {
		return err
	}
	return enc.WriteUint8(t.Bump)
}

func (t *RentableToken) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if t.TokenOwner, err = readPublicKey(dec); err != nil {
		return fmt.Errorf("token_owner: %w", err)
	}
	present, err := dec.ReadBool()
	if err != nil {
		return fmt.Errorf("renter: %w", err)
	}
	t.Renter = nil
	if present {
		renter, err := readPublicKey(dec)
		if err != nil {
			return fmt.Errorf("renter: %w", err)
		}
		t.Renter = &renter
	}
	if t.AssociatedTokenAcc, err = readPublicKey(dec); err != nil {
		return fmt.Errorf("associated_token_acc: %w", err)
	}
	if t.Locked, err = dec.ReadBool(); err != nil {
		return fmt.Errorf("locked: %w", err)
	}
	if t.Price, err = dec.ReadUint64(bin.LE); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	if t.Expiration, err = dec.ReadInt64(bin.LE); err != nil {
		return fmt.Errorf("expiration: %w", err)
	}
	if t.Bump, err = dec.ReadUint8(); err != nil {
		return fmt.Errorf("bump: %w", err)
	}
	return nil
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// EncodeRentableToken returns account data as the program stores it,
// discriminator first.
func EncodeRentableToken(t RentableToken) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(RentableTokenDiscriminator[:])
	if err := t.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRentableToken parses raw account data. Trailing bytes are ignored;
// accounts are allocated with fixed space.
func DecodeRentableToken(data []byte) (*RentableToken, error) {
	if len(data) < len(Discriminator{}) || Discriminator(data[:8]) != RentableTokenDiscriminator {
		return nil, ErrInvalidDiscriminator
	}
	var t RentableToken
	if err := t.UnmarshalWithDecoder(bin.NewBorshDecoder(data[8:])); err != nil {
		return nil, fmt.Errorf("decode %s: %w", AccountRentableToken, err)
	}
	return &t, nil
}
