package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	cfg "github.com/Catorpilor/rentsol/internal/config"
)

// Load returns a solana.PrivateKey from config. A base58 secret wins over a
// keypair file.
func Load(c cfg.WalletConfig) (solana.PrivateKey, error) {
	if sk := c.SecretKeyB58; sk != "" {
		bytes, err := base58.Decode(sk)
		if err != nil {
			return nil, fmt.Errorf("decode base58: %w", err)
		}
		if l := len(bytes); l != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("secret_key_b58 has %d bytes; want %d", l, ed25519.PrivateKeySize)
		}
		return solana.PrivateKey(bytes), nil
	}
	if c.KeypairPath != "" {
		return LoadKeypairFile(c.KeypairPath)
	}
	return nil, fmt.Errorf("no wallet configured: set keypair_path, ANCHOR_WALLET or SECRET_KEY_B58")
}

// LoadKeypairFile reads a Solana CLI keypair file (a JSON array of 64 bytes).
func LoadKeypairFile(p string) (solana.PrivateKey, error) {
	path := expandHome(os.ExpandEnv(p))
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var arr []byte
	if err := json.Unmarshal(b, &arr); err != nil {
		return nil, fmt.Errorf("parse keypair file: %w", err)
	}
	if l := len(arr); l != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair file has %d bytes; want %d", l, ed25519.PrivateKeySize)
	}
	return solana.PrivateKey(arr), nil
}

// WriteKeypairFile stores key in the Solana CLI format.
func WriteKeypairFile(p string, key solana.PrivateKey) error {
	// json.Marshal would base64 a []byte.
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	b, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	return os.WriteFile(expandHome(os.ExpandEnv(p)), b, 0o600)
}

func expandHome(p string) string {
	if p == "" {
		return p
	}
	if p[0] == '~' {
		if len(p) == 1 {
			return os.Getenv("HOME")
		}
		if p[1] == '/' {
			return os.Getenv("HOME") + p[1:]
		}
	}
	return p
}
