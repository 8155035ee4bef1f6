package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func newTestSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("NewSignerFromKey: %v", err)
	}
	return signer
}

func TestSignAndVerify(t *testing.T) {
	key := newTestSigner(t)
	sign := FromSigner(key)

	payload := []byte("tree abc\nauthor a 1 +0000\n\nmsg")
	sig, err := sign(payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.HasPrefix(sig, Prefix+":ssh-ed25519:") {
		t.Fatalf("signature %q has unexpected prefix", sig)
	}

	pub, err := Verify(payload, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !SameKey(pub, key.PublicKey()) {
		t.Error("Verify returned a different key")
	}
	if got, want := Fingerprint(sig), ssh.FingerprintSHA256(key.PublicKey()); got != want {
		t.Errorf("Fingerprint = %q, want %q", got, want)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	sign := FromSigner(newTestSigner(t))
	sig, err := sign([]byte("original"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Verify([]byte("tampered"), sig); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("Verify tampered: got %v, want ErrBadSignature", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	tests := []string{
		"",
		"gpg:abc",
		Prefix + ":ssh-ed25519:!!!:AAAA",
		Prefix + ":ssh-ed25519:AAAA:AAAA",
	}
	for _, sig := range tests {
		if _, err := Verify([]byte("p"), sig); !errors.Is(err, ErrBadSignature) {
			t.Errorf("Verify(%q): got %v, want ErrBadSignature", sig, err)
		}
	}
	if Fingerprint("junk") != "" {
		t.Error("Fingerprint of junk should be empty")
	}
}

func TestNewSSHSignerFromFile(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "test")
	if err != nil {
		t.Fatalf("MarshalPrivateKey: %v", err)
	}
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	sign, resolved, err := NewSSHSigner(keyPath)
	if err != nil {
		t.Fatalf("NewSSHSigner: %v", err)
	}
	if resolved != keyPath {
		t.Errorf("resolved = %q, want %q", resolved, keyPath)
	}
	sig, err := sign([]byte("payload"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Verify([]byte("payload"), sig); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestNewSSHSignerMissingKey(t *testing.T) {
	if _, _, err := NewSSHSigner(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing key file")
	}
}
