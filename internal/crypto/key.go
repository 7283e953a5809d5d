package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Key is a 256-bit symmetric key. It is not safe to retain after Close.
type Key struct {
	mu    sync.RWMutex
	id    string
	bytes []byte
}

// NewKey copies material into a new Key. The material must be 32 bytes.
func NewKey(material []byte) (*Key, error) {
	if len(material) != keySize {
		return nil, ErrInvalidKey
	}

	b := make([]byte, keySize)
	copy(b, material)

	return &Key{id: keyID(b), bytes: b}, nil
}

// ID returns a stable, non-secret identifier of the key material.
func (k *Key) ID() string {
	if k == nil {
		return ""
	}
	return k.id
}

// Close zeroes the key material. Further use returns ErrInvalidKey.
func (k *Key) Close() error {
	if k == nil {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	for i := range k.bytes {
		k.bytes[i] = 0
	}
	k.bytes = nil
	return nil
}

func (k *Key) material() ([]byte, error) {
	if k == nil {
		return nil, ErrInvalidKey
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	if len(k.bytes) != keySize {
		return nil, ErrInvalidKey
	}
	return k.bytes, nil
}

// keyID is the first 8 bytes of SHA-256 over a domain-separated copy of
// the key.
func keyID(material []byte) string {
	h := sha256.New()
	h.Write([]byte("confsync-key-id:"))
	h.Write(material)
	return hex.EncodeToString(h.Sum(nil)[:8])
}
