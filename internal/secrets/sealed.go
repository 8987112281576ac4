package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"hash"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// A box seals passkey slots with XChaCha20-Poly1305 under a key derived
// from the device secret.
type box struct {
	aead cipher.AEAD
}

func newBox(deviceSecret []byte) (*box, error) {
	if len(deviceSecret) == 0 {
		return nil, errors.New("missing device secret")
	}

	aead, err := chacha20poly1305.NewX(kdf(chacha20poly1305.KeySize, deviceSecret))
	if err != nil {
		return nil, errors.Wrap(err, "could not create AEAD")
	}

	return &box{aead: aead}, nil
}

// kdf expands the device secret with HKDF over BLAKE2b-256.
func kdf(l int, k []byte) []byte {
	nhash := func() hash.Hash {
		h, err := blake2b.New256(nil)
		if err != nil {
			panic(err)
		}
		return h
	}

	payload := make([]byte, l)

	kdf := hkdf.New(nhash, k, nil, nil)
	if _, err := io.ReadFull(kdf, payload); err != nil {
		panic(err)
	}

	return payload
}

func (b *box) seal(payload []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "could not generate nonce")
	}

	return append(nonce, b.aead.Seal(nil, nonce, payload, nil)...), nil
}

func (b *box) open(blob []byte) ([]byte, error) {
	if len(blob) < b.aead.NonceSize() {
		return nil, errors.New("sealed slot is too short")
	}

	nonce := blob[:b.aead.NonceSize()]
	payload, err := b.aead.Open(nil, nonce, blob[b.aead.NonceSize():], nil)
	return payload, errors.Wrap(err, "could not open sealed slot")
}
