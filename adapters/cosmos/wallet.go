// Package cosmos signs Reward Chain transactions and submits them through
// the chain's REST service.
package cosmos

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/ripemd160"
)

// Wallet defaults.
const (
	DefaultHDPath = "m/44'/118'/0'/0/0"
	DefaultPrefix = "reward"
)

// ErrInvalidMnemonic is returned for a mnemonic that fails BIP-39 checks.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Wallet holds one secp256k1 account key.
type Wallet struct {
	priv    *secp256k1.PrivateKey
	pub     []byte
	address string
}

// WalletConfig configures key derivation.
type WalletConfig struct {
	Mnemonic   string
	Passphrase string // BIP-39 passphrase, usually empty
	HDPath     string
	Prefix     string
}

// NewWallet derives the account key from a BIP-39 mnemonic.
func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if cfg.HDPath == "" {
		cfg.HDPath = DefaultHDPath
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	mnemonic := strings.Join(strings.Fields(cfg.Mnemonic), " ")
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}

	path, err := ParseHDPath(cfg.HDPath)
	if err != nil {
		return nil, err
	}

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}
	for _, idx := range path {
		key, err = key.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
	}

	return newWalletFromKey(key.Key, cfg.Prefix)
}

// NewWalletFromPrivateKey wraps a raw 32-byte private key.
func NewWalletFromPrivateKey(key []byte, prefix string) (*Wallet, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(key))
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return newWalletFromKey(key, prefix)
}

func newWalletFromKey(key []byte, prefix string) (*Wallet, error) {
	priv := secp256k1.PrivKeyFromBytes(key)
	pub := priv.PubKey().SerializeCompressed()

	addr, err := AddressFromPubKey(prefix, pub)
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: pub, address: addr}, nil
}

// GenerateMnemonic returns a new 24-word mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// Address returns the bech32 account address.
func (w *Wallet) Address() string { return w.address }

// PubKey returns the 33-byte compressed public key.
func (w *Wallet) PubKey() []byte {
	out := make([]byte, len(w.pub))
	copy(out, w.pub)
	return out
}

// Sign returns the 64-byte r||s signature over SHA-256(msg), with low S.
func (w *Wallet) Sign(msg []byte) []byte {
	hash := sha256.Sum256(msg)
	// SignCompact prefixes a recovery byte.
	return ecdsa.SignCompact(w.priv, hash[:], true)[1:]
}

// AddressFromPubKey returns bech32(prefix, RIPEMD160(SHA256(pub))).
func AddressFromPubKey(prefix string, pub []byte) (string, error) {
	sha := sha256.Sum256(pub)
	h := ripemd160.New()
	h.Write(sha[:])

	conv, err := bech32.ConvertBits(h.Sum(nil), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert address bits: %w", err)
	}
	addr, err := bech32.Encode(prefix, conv)
	if err != nil {
		return "", fmt.Errorf("encode address: %w", err)
	}
	return addr, nil
}

// ValidateAddress checks that addr is bech32 with the expected prefix and a
// 20-byte payload.
func ValidateAddress(addr, prefix string) error {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if prefix != "" && hrp != prefix {
		return fmt.Errorf("invalid address %q: prefix %q, want %q", addr, hrp, prefix)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if len(raw) != 20 {
		return fmt.Errorf("invalid address %q: %d byte payload", addr, len(raw))
	}
	return nil
}

// ParseHDPath parses a BIP-32 path such as m/44'/118'/0'/0/0.
func ParseHDPath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) < 2 || parts[0] != "m" {
		return nil, fmt.Errorf("invalid hd path %q", path)
	}

	out := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		hardened := strings.HasSuffix(p, "'")
		n, err := strconv.ParseUint(strings.TrimSuffix(p, "'"), 10, 31)
		if err != nil {
			return nil, fmt.Errorf("invalid hd path %q: segment %q", path, p)
		}
		idx := uint32(n)
		if hardened {
			idx += bip32.FirstHardenedChild
		}
		out = append(out, idx)
	}
	return out, nil
}
