// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// AlgorithmAES256GCM is the only algorithm produced by [NewCipher].
const AlgorithmAES256GCM = "aes-256-gcm"

const (
	keySize = 32
	ivSize  = 12
	tagSize = 16
)

// Sealed is an encrypted payload with everything but the key needed to open
// it.
type Sealed struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
	Algorithm  string

	// KeyID identifies the key that sealed the payload.
	KeyID string
}

// aesGCMCipher is the private implementation of [Cipher].
type aesGCMCipher struct {
	rand io.Reader
}

// NewCipher constructs an AES-256-GCM [Cipher] reading IVs from the OS
// CSPRNG.
func NewCipher() Cipher {
	return &aesGCMCipher{rand: rand.Reader}
}

// Encrypt implements [Cipher].
func (c *aesGCMCipher) Encrypt(plaintext []byte, key *Key) (Sealed, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return Sealed{}, err
	}

	iv := make([]byte, ivSize)
	if _, err = io.ReadFull(c.rand, iv); err != nil {
		return Sealed{}, fmt.Errorf("generate iv: %w", err)
	}

	// Seal returns ciphertext ‖ tag.
	out := gcm.Seal(nil, iv, plaintext, nil)
	split := len(out) - tagSize

	return Sealed{
		Ciphertext: out[:split],
		IV:         iv,
		AuthTag:    out[split:],
		Algorithm:  AlgorithmAES256GCM,
		KeyID:      key.ID(),
	}, nil
}

// Decrypt implements [Cipher].
func (c *aesGCMCipher) Decrypt(sealed Sealed, key *Key) ([]byte, error) {
	if sealed.Algorithm != "" && sealed.Algorithm != AlgorithmAES256GCM {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, sealed.Algorithm)
	}
	if sealed.KeyID != "" && sealed.KeyID != key.ID() {
		return nil, ErrKeyMismatch
	}
	if len(sealed.IV) != ivSize || len(sealed.AuthTag) != tagSize {
		return nil, ErrDecryptionFailed
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, 0, len(sealed.Ciphertext)+tagSize)
	blob = append(blob, sealed.Ciphertext...)
	blob = append(blob, sealed.AuthTag...)

	plaintext, err := gcm.Open(nil, sealed.IV, blob, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// Hash implements [Cipher].
func (c *aesGCMCipher) Hash(data []byte) string {
	return Hash(data)
}

// Hash returns the hex SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newGCM(key *Key) (cipher.AEAD, error) {
	material, err := key.material()
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(material)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return gcm, nil
}
