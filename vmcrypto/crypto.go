// Package vmcrypto implements the VM's only confidentiality primitive:
// AES-256-GCM with HMAC-SHA256-derived keys and nonces, domain-separated
// per context string. Opcode shuffling and SMC (elsewhere in this module)
// raise the static-analysis bar but make no cryptographic claim; this
// package is where that claim actually lives.
package vmcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	"github.com/polyvm/anticheat-vm/vmerrors"
)

const (
	domainKey   = "anticheat-vm-key-v1"
	domainNonce = "anticheat-vm-nonce-v1"

	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

// DeriveKey returns HMAC(seed, context||"anticheat-vm-key-v1"), the full
// 32-byte HMAC-SHA256 output used directly as an AES-256 key.
func DeriveKey(seed []byte, context string) [KeySize]byte {
	mac := hmac.New(sha256.New, seed)
	mac.Write([]byte(context))
	mac.Write([]byte(domainKey))
	var out [KeySize]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// DeriveNonce returns the first 12 bytes of
// HMAC(seed, counter_le||"anticheat-vm-nonce-v1"). Distinct counters under
// one (seed, context) pair are the caller's responsibility for nonce
// uniqueness -- see Context.Encrypt, which owns a monotonic counter.
func DeriveNonce(seed []byte, counter uint64) [NonceSize]byte {
	var ctr [8]byte
	binary.LittleEndian.PutUint64(ctr[:], counter)

	mac := hmac.New(sha256.New, seed)
	mac.Write(ctr[:])
	mac.Write([]byte(domainNonce))
	var out [NonceSize]byte
	copy(out[:], mac.Sum(nil)[:NonceSize])
	return out
}

// Context bundles a seed and a domain-separation label with a monotonic
// nonce counter, so repeated Encrypt calls under the same context never
// reuse a nonce.
type Context struct {
	seed    []byte
	context string
	counter uint64
}

// NewContext copies seed and records context; the AEAD key is derived from
// them on each Encrypt call.
func NewContext(seed []byte, context string) *Context {
	return &Context{seed: append([]byte(nil), seed...), context: context}
}

// Encrypt seals plaintext, returning ciphertext, the detached tag, the
// nonce used, and advancing the internal counter so the next call under
// this Context gets a fresh nonce.
func (c *Context) Encrypt(plaintext []byte) (ciphertext, tag []byte, nonce [NonceSize]byte, err error) {
	key := DeriveKey(c.seed, c.context)
	nonce = DeriveNonce(c.seed, c.counter)
	c.counter++

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, nil, nonce, err
	}
	gcm, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, nil, nonce, err
	}

	sealed := gcm.Seal(nil, nonce[:], plaintext, nil)
	ciphertext = sealed[:len(sealed)-TagSize]
	tag = sealed[len(sealed)-TagSize:]
	return ciphertext, tag, nonce, nil
}

// Decrypt opens ciphertext||tag under seed/context/nonce. Any AEAD failure
// -- wrong key, tampered ciphertext, tampered tag, wrong nonce -- collapses
// to a single DecryptionFailed error; no partial plaintext is ever
// returned to the caller.
func Decrypt(seed []byte, context string, nonce [NonceSize]byte, ciphertext, tag []byte) ([]byte, error) {
	key := DeriveKey(seed, context)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, vmerrors.DecryptionFailed(err)
	}
	gcm, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, vmerrors.DecryptionFailed(err)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce[:], sealed, nil)
	if err != nil {
		return nil, vmerrors.DecryptionFailed(err)
	}
	return plaintext, nil
}

// ComputeHMAC is a general-purpose HMAC-SHA256 keyed hash for
// authentication tasks outside the AEAD path.
func ComputeHMAC(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// VerifyHMAC is a constant-time comparison wrapper around ComputeHMAC.
func VerifyHMAC(key, data, expected []byte) bool {
	got := ComputeHMAC(key, data)
	return hmac.Equal(got, expected)
}
