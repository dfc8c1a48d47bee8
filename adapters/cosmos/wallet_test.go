package cosmos

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestNewWallet(t *testing.T) {
	w, err := NewWallet(WalletConfig{Mnemonic: testMnemonic})
	if err != nil {
		t.Fatalf("NewWallet() error = %v", err)
	}
	if !strings.HasPrefix(w.Address(), DefaultPrefix+"1") {
		t.Errorf("Address() = %q, want %s1 prefix", w.Address(), DefaultPrefix)
	}
	if err := ValidateAddress(w.Address(), DefaultPrefix); err != nil {
		t.Errorf("ValidateAddress() error = %v", err)
	}
	if len(w.PubKey()) != 33 {
		t.Errorf("len(PubKey()) = %d, want 33", len(w.PubKey()))
	}

	// Derivation is deterministic and whitespace-insensitive.
	again, err := NewWallet(WalletConfig{Mnemonic: "  " + strings.ReplaceAll(testMnemonic, " ", "\n ") + " "})
	if err != nil {
		t.Fatal(err)
	}
	if again.Address() != w.Address() {
		t.Errorf("second derivation = %q, want %q", again.Address(), w.Address())
	}
}

func TestNewWallet_PathAndPrefix(t *testing.T) {
	base, err := NewWallet(WalletConfig{Mnemonic: testMnemonic})
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewWallet(WalletConfig{Mnemonic: testMnemonic, HDPath: "m/44'/118'/0'/0/1"})
	if err != nil {
		t.Fatal(err)
	}
	if other.Address() == base.Address() {
		t.Error("different hd paths should give different addresses")
	}

	cosmos, err := NewWallet(WalletConfig{Mnemonic: testMnemonic, Prefix: "cosmos"})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(cosmos.PubKey(), base.PubKey()) {
		t.Error("prefix should not change the key")
	}
	if !strings.HasPrefix(cosmos.Address(), "cosmos1") {
		t.Errorf("Address() = %q", cosmos.Address())
	}

	pass, err := NewWallet(WalletConfig{Mnemonic: testMnemonic, Passphrase: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	if pass.Address() == base.Address() {
		t.Error("passphrase should change the seed")
	}
}

func TestNewWallet_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		cfg     WalletConfig
		wantErr error
	}{
		{"bad checksum", WalletConfig{Mnemonic: strings.Repeat("abandon ", 12)}, ErrInvalidMnemonic},
		{"not words", WalletConfig{Mnemonic: "hello world"}, ErrInvalidMnemonic},
		{"empty", WalletConfig{}, ErrInvalidMnemonic},
		{"bad path", WalletConfig{Mnemonic: testMnemonic, HDPath: "44/118"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWallet(tt.cfg)
			if err == nil {
				t.Fatal("NewWallet() should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("NewWallet() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateMnemonic(t *testing.T) {
	m, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error = %v", err)
	}
	if n := len(strings.Fields(m)); n != 24 {
		t.Errorf("mnemonic has %d words, want 24", n)
	}
	if _, err := NewWallet(WalletConfig{Mnemonic: m}); err != nil {
		t.Errorf("generated mnemonic rejected: %v", err)
	}
}

func TestAddressFromPubKey_Hash160(t *testing.T) {
	// Private key 1; its public key is the generator point.
	key := make([]byte, 32)
	key[31] = 1
	w, err := NewWalletFromPrivateKey(key, "reward")
	if err != nil {
		t.Fatal(err)
	}

	hrp, data, err := bech32.Decode(w.Address())
	if err != nil {
		t.Fatalf("bech32.Decode() error = %v", err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		t.Fatal(err)
	}
	if hrp != "reward" {
		t.Errorf("hrp = %q", hrp)
	}
	if got := hex.EncodeToString(raw); got != "751e76e8199196d454941c45d1b3a323f1433bd6" {
		t.Errorf("hash160 = %s", got)
	}
}

func TestNewWalletFromPrivateKey_BadLength(t *testing.T) {
	if _, err := NewWalletFromPrivateKey([]byte{1, 2, 3}, ""); err == nil {
		t.Error("expected error for short key")
	}
}

func TestWallet_Sign(t *testing.T) {
	w, err := NewWalletFromPrivateKey(bytes.Repeat([]byte{0x11}, 32), "")
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("sign doc bytes")
	sig := w.Sign(msg)
	if len(sig) != 64 {
		t.Fatalf("len(sig) = %d, want 64", len(sig))
	}

	if !verify(t, w.PubKey(), msg, sig) {
		t.Error("signature does not verify")
	}
	if verify(t, w.PubKey(), []byte("other"), sig) {
		t.Error("signature verifies for a different message")
	}
	if !bytes.Equal(sig, w.Sign(msg)) {
		t.Error("signing should be deterministic (RFC 6979)")
	}
}

// verify checks a 64-byte r||s signature and that S is in the lower half.
func verify(t *testing.T, pub, msg, sig []byte) bool {
	t.Helper()
	pk, err := secp256k1.ParsePubKey(pub)
	if err != nil {
		t.Fatalf("ParsePubKey() error = %v", err)
	}
	var r, s secp256k1.ModNScalar
	r.SetByteSlice(sig[:32])
	s.SetByteSlice(sig[32:])
	if s.IsOverHalfOrder() {
		t.Error("signature S is not canonical")
	}
	hash := sha256.Sum256(msg)
	return ecdsa.NewSignature(&r, &s).Verify(hash[:], pk)
}

func TestValidateAddress(t *testing.T) {
	w, _ := NewWalletFromPrivateKey(bytes.Repeat([]byte{0x22}, 32), "reward")

	if err := ValidateAddress(w.Address(), "reward"); err != nil {
		t.Errorf("ValidateAddress() error = %v", err)
	}
	if err := ValidateAddress(w.Address(), "cosmos"); err == nil {
		t.Error("wrong prefix should fail")
	}
	if err := ValidateAddress("reward1notanaddress", "reward"); err == nil {
		t.Error("bad checksum should fail")
	}
}

func TestParseHDPath(t *testing.T) {
	const h = 0x80000000
	tests := []struct {
		path    string
		want    []uint32
		wantErr bool
	}{
		{"m/44'/118'/0'/0/0", []uint32{44 + h, 118 + h, h, 0, 0}, false},
		{"m/0", []uint32{0}, false},
		{"m", nil, true},
		{"44'/118'", nil, true},
		{"m/x", nil, true},
		{"m/2147483648", nil, true},
		{"m/-1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParseHDPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHDPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseHDPath() = %v, want %v", got, tt.want)
			}
		})
	}
}
