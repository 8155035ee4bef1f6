// Package signing produces and checks SSH signatures over commit payloads.
//
// A signature is stored on the commit as a single line:
//
//	sshsig-v1:<format>:<base64 public key>:<base64 signature blob>
package signing

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Prefix tags every signature written by this package.
const Prefix = "sshsig-v1"

// ErrBadSignature is returned when a signature is malformed or does not
// verify against its payload.
var ErrBadSignature = errors.New("bad signature")

// Signer signs a commit payload and returns the encoded signature.
type Signer func(payload []byte) (string, error)

// NewSSHSigner loads the private key at keyPath. An empty keyPath falls back
// to the first of ~/.ssh/id_ed25519, id_ecdsa, id_rsa that exists. The
// resolved key path is returned alongside the signer.
func NewSSHSigner(keyPath string) (Signer, string, error) {
	resolved, err := ResolveKeyPath(keyPath)
	if err != nil {
		return nil, "", err
	}
	raw, err := os.ReadFile(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("read signing key %q: %w", resolved, err)
	}
	signer, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		return nil, "", fmt.Errorf("parse signing key %q: %w", resolved, err)
	}
	return FromSigner(signer), resolved, nil
}

// FromSigner wraps an already loaded ssh.Signer.
func FromSigner(signer ssh.Signer) Signer {
	pubB64 := base64.StdEncoding.EncodeToString(signer.PublicKey().Marshal())
	return func(payload []byte) (string, error) {
		sig, err := signer.Sign(rand.Reader, payload)
		if err != nil {
			return "", err
		}
		sigB64 := base64.StdEncoding.EncodeToString(sig.Blob)
		return fmt.Sprintf("%s:%s:%s:%s", Prefix, sig.Format, pubB64, sigB64), nil
	}
}

// Verify checks signature against payload and returns the signing key.
func Verify(payload []byte, signature string) (ssh.PublicKey, error) {
	parts := strings.Split(strings.TrimSpace(signature), ":")
	if len(parts) != 4 || parts[0] != Prefix {
		return nil, fmt.Errorf("%w: unrecognized format", ErrBadSignature)
	}
	pubRaw, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrBadSignature, err)
	}
	pub, err := ssh.ParsePublicKey(pubRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrBadSignature, err)
	}
	blob, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: signature blob: %v", ErrBadSignature, err)
	}
	if err := pub.Verify(payload, &ssh.Signature{Format: parts[1], Blob: blob}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return pub, nil
}

// Fingerprint returns the SHA256 fingerprint of the key in signature, or ""
// if it cannot be parsed.
func Fingerprint(signature string) string {
	parts := strings.Split(strings.TrimSpace(signature), ":")
	if len(parts) != 4 {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return ""
	}
	pub, err := ssh.ParsePublicKey(raw)
	if err != nil {
		return ""
	}
	return ssh.FingerprintSHA256(pub)
}

// SameKey reports whether a and b are the same public key.
func SameKey(a, b ssh.PublicKey) bool {
	return bytes.Equal(a.Marshal(), b.Marshal())
}

// ResolveKeyPath expands a leading "~/" and makes path absolute. An empty
// path selects the first default key found in ~/.ssh.
func ResolveKeyPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		return expandUserPath(path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	candidates := []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
		filepath.Join(home, ".ssh", "id_rsa"),
	}
	for _, candidate := range candidates {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no default SSH private key found in ~/.ssh (id_ed25519, id_ecdsa, id_rsa)")
}

func expandUserPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
