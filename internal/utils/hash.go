package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"sync"
)

// HashHeader is the HTTP header carrying the hex HMAC-SHA256 of a request
// body.
const HashHeader = "HashSHA256"

// Hasher computes keyed HMAC-SHA256 digests. It keeps a pool of hash
// instances so concurrent request paths do not allocate one per call.
//
// Example usage:
//
//	h := utils.NewHasher("my-secret-key")
//	sig := h.HashString(body)
type Hasher struct {
	pool sync.Pool
}

// NewHasher returns a Hasher keyed with hashKey.
func NewHasher(hashKey string) *Hasher {
	key := []byte(hashKey)
	return &Hasher{
		pool: sync.Pool{
			New: func() any {
				return hmac.New(sha256.New, key)
			},
		},
	}
}

// Hash returns the raw HMAC-SHA256 digest of data.
func (h *Hasher) Hash(data []byte) []byte {
	mac := h.pool.Get().(hash.Hash)
	mac.Reset()

	mac.Write(data)
	sum := mac.Sum(nil)

	mac.Reset()
	h.pool.Put(mac)

	return sum
}

// HashString returns the hex HMAC-SHA256 digest of data.
func (h *Hasher) HashString(data []byte) string {
	return hex.EncodeToString(h.Hash(data))
}

// Verify reports whether signature is the hex digest of data. The
// comparison is constant-time.
func (h *Hasher) Verify(data []byte, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(h.Hash(data), want)
}

// HashString computes a one-off hex HMAC-SHA256 of data with hashKey,
// without a pool.
func HashString(data string, hashKey string) string {
	mac := hmac.New(sha256.New, []byte(hashKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
