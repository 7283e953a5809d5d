package crypto

//go:generate mockgen -source=interfaces.go -destination=../mock/crypto_mock.go -package=mock

// Cipher seals and opens configuration payloads. It knows nothing about the
// network, the remote store or users; its only job is authenticated
// encryption and content hashing.
//
// Scheme:
//
//	sealed    = Encrypt(serialize(config), key)   (AES-256-GCM, random IV)
//	plaintext = Decrypt(sealed, key)              (fails on any tampering)
//	hash      = Hash(serialize(config))           (SHA-256, hex)
type Cipher interface {
	// Encrypt seals plaintext with key. A fresh 12-byte IV is generated for
	// every call; the 16-byte authentication tag is returned separately from
	// the ciphertext.
	Encrypt(plaintext []byte, key *Key) (Sealed, error)

	// Decrypt verifies the tag and returns the plaintext. Any mismatch in
	// ciphertext, IV, tag or key yields ErrDecryptionFailed.
	Decrypt(sealed Sealed, key *Key) ([]byte, error)

	// Hash returns the hex SHA-256 digest of data.
	Hash(data []byte) string
}

// KeyStore produces the key used by a [Cipher].
type KeyStore interface {
	// LoadOrCreateKey returns the installation key. With a non-empty
	// passphrase the key is derived with Argon2id from the passphrase and a
	// persisted salt, so every device sharing the passphrase derives the same
	// key. Without one a random key is created on first use and stored in
	// the state directory.
	//
	// The caller owns the returned key and must Close it.
	LoadOrCreateKey(passphrase string) (*Key, error)
}
