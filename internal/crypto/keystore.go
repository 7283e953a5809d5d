// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/crypto/argon2"
)

// KeyFileName is the name of the key file inside the state directory.
const KeyFileName = "key.json"

const saltSize = 16

// keyFile is the persisted form of the key material. Key is only set for
// randomly generated keys; passphrase keys are never written to disk.
type keyFile struct {
	KDF  string `json:"kdf"`
	Salt []byte `json:"salt,omitempty"`
	Key  []byte `json:"key,omitempty"`
}

// fileKeyStore is the private implementation of [KeyStore].
type fileKeyStore struct {
	fs   afero.Fs
	path string
	rand io.Reader

	// Argon2id tuning parameters. Stored in the struct so they can be
	// adjusted per deployment target.
	argonTime    uint32
	argonMemory  uint32
	argonThreads uint8
}

// NewKeyStore constructs a [KeyStore] that keeps its state in
// <stateDir>/key.json on fsys. Argon2id uses the OWASP parameters:
//   - time cost:   1 iteration
//   - memory cost: 64 MiB
//   - parallelism: 4 threads
//   - key length:  32 bytes (256 bits)
func NewKeyStore(fsys afero.Fs, stateDir string) KeyStore {
	return &fileKeyStore{
		fs:           fsys,
		path:         filepath.Join(stateDir, KeyFileName),
		rand:         rand.Reader,
		argonTime:    1,
		argonMemory:  64 * 1024, // 64 MiB
		argonThreads: 4,
	}
}

// LoadOrCreateKey implements [KeyStore].
func (s *fileKeyStore) LoadOrCreateKey(passphrase string) (*Key, error) {
	stored, err := s.load()
	if err != nil {
		return nil, err
	}

	if passphrase != "" {
		return s.derived(stored, passphrase)
	}

	if stored != nil && len(stored.Key) > 0 {
		return NewKey(stored.Key)
	}

	material := make([]byte, keySize)
	if _, err = io.ReadFull(s.rand, material); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	next := keyFile{KDF: "random", Key: material}
	if stored != nil {
		next.Salt = stored.Salt
	}
	if err = s.save(next); err != nil {
		return nil, err
	}

	return NewKey(material)
}

func (s *fileKeyStore) derived(stored *keyFile, passphrase string) (*Key, error) {
	var salt []byte
	if stored != nil {
		salt = stored.Salt
	}

	if len(salt) == 0 {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(s.rand, salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		next := keyFile{KDF: "argon2id", Salt: salt}
		if stored != nil {
			next.Key = stored.Key
		}
		if err := s.save(next); err != nil {
			return nil, err
		}
	}

	material := argon2.IDKey([]byte(passphrase), salt, s.argonTime, s.argonMemory, s.argonThreads, keySize)
	key, err := NewKey(material)
	for i := range material {
		material[i] = 0
	}
	return key, err
}

func (s *fileKeyStore) load() (*keyFile, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	var kf keyFile
	if err = json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedKeyFile, err)
	}
	if len(kf.Key) != 0 && len(kf.Key) != keySize {
		return nil, fmt.Errorf("%w: key has %d bytes", ErrCorruptedKeyFile, len(kf.Key))
	}

	return &kf, nil
}

func (s *fileKeyStore) save(kf keyFile) error {
	data, err := json.Marshal(kf)
	if err != nil {
		return fmt.Errorf("encode key file: %w", err)
	}

	if err = s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err = afero.WriteFile(s.fs, s.path, data, 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}

	return nil
}
