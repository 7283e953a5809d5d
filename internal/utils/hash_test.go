// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"testing"

	"github.com/MKhiriev/go-conf-sync/models"
)

const testHashKey = "test-secret-key"

func TestHasher_Hash(t *testing.T) {
	h := NewHasher(testHashKey)
	data := []byte("test-data")

	sum1 := h.Hash(data)
	sum2 := h.Hash(data)

	if len(sum1) == 0 {
		t.Fatal("hash result is empty")
	}
	if !bytes.Equal(sum1, sum2) {
		t.Fatal("hash must be deterministic for the same input")
	}

	// verify against direct HMAC computation
	mac := hmac.New(sha256.New, []byte(testHashKey))
	mac.Write(data)
	if expected := mac.Sum(nil); !bytes.Equal(sum1, expected) {
		t.Fatalf("unexpected hash value\nwant: %x\ngot:  %x", expected, sum1)
	}
}

func TestHasher_WithRecordPayload(t *testing.T) {
	h := NewHasher(testHashKey)

	record := models.RemoteConfigRecord{
		UserID:      "alice",
		Version:     3,
		Payload:     []byte(`{"theme":"dark"}`),
		ContentHash: "abc",
	}

	// serialize the record the same way the HTTP adapter does
	body, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("failed to marshal record: %v", err)
	}

	got := h.HashString(body)

	mac := hmac.New(sha256.New, []byte(testHashKey))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	if got != want {
		t.Errorf("Hash mismatch:\n  got:  %s\n  want: %s", got, want)
	}
	if got != HashString(string(body), testHashKey) {
		t.Error("pooled and one-off digests differ")
	}
}

func TestHasher_DifferentKeys(t *testing.T) {
	data := []byte("payload")

	if bytes.Equal(NewHasher("k1").Hash(data), NewHasher("k2").Hash(data)) {
		t.Error("different keys must produce different digests")
	}
}

func TestHasher_Verify(t *testing.T) {
	h := NewHasher(testHashKey)
	data := []byte("payload")
	sig := h.HashString(data)

	if !h.Verify(data, sig) {
		t.Error("expected valid signature")
	}
	if h.Verify([]byte("other"), sig) {
		t.Error("expected mismatch for other data")
	}
	if h.Verify(data, "not-hex") {
		t.Error("expected mismatch for malformed signature")
	}
}

func TestHasher_Concurrent(t *testing.T) {
	h := NewHasher(testHashKey)
	want := h.HashString([]byte("x"))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := h.HashString([]byte("x")); got != want {
				t.Errorf("concurrent hash mismatch: %s", got)
			}
		}()
	}
	wg.Wait()
}
