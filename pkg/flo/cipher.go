package flo

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/d1str0/pkcs7"
	"golang.org/x/crypto/pbkdf2"
)

// Marker prefixes every ciphertext produced by Encrypt so downstream code
// can test "is this value encrypted" without attempting decryption.
const Marker = "BROM_"

const (
	kdfIterations = 4096
	keySalt       = "flostore.category.key"
	ivSalt        = "flostore.category.iv"
)

// IsEncrypted returns true when the value carries the ciphertext marker.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Marker)
}

// DeriveKey derives the AES-256 key from the given secret.
// The derivation is deterministic: the on-disk format stores no key
// material, so decryption must be reproducible from the secret alone.
func DeriveKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), []byte(keySalt), kdfIterations, 32, sha256.New)
}

// DeriveIV derives the AES initialization vector from the given secret,
// salted with a fixed literal and truncated to the cipher's block size.
func DeriveIV(secret string) []byte {
	return pbkdf2.Key([]byte(secret+ivSalt), []byte(keySalt), kdfIterations, aes.BlockSize, sha256.New)
}

// Encrypt encrypts the plaintext with a key and IV derived from the
// (passkey, userID) pair and returns a marker-prefixed ciphertext.
func Encrypt(plaintext, userID, passkey string) (string, error) {
	secret := passkey + userID

	block, err := aes.NewCipher(DeriveKey(secret))
	if err != nil {
		return "", WrapError(KindDecryption, err, "could not create cipher")
	}

	payload, err := pkcs7.Pad([]byte(plaintext), block.BlockSize())
	if err != nil {
		return "", WrapError(KindDecryption, err, "could not pkcs7 pad plaintext")
	}

	mode := cipher.NewCBCEncrypter(block, DeriveIV(secret))
	mode.CryptBlocks(payload, payload)

	return Marker + base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt reverses Encrypt for the same (passkey, userID) pair.
//
// Input without the marker is returned unchanged: values already stored as
// plaintext flow through the same code path. This is a leniency, not a
// security boundary.
func Decrypt(value, userID, passkey string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Marker))
	if err != nil {
		return "", WrapError(KindDecryption, err, "could not decode ciphertext")
	}

	secret := passkey + userID
	block, err := aes.NewCipher(DeriveKey(secret))
	if err != nil {
		return "", WrapError(KindDecryption, err, "could not create cipher")
	}

	if len(payload) == 0 || len(payload)%block.BlockSize() != 0 {
		return "", NewError(KindDecryption, "ciphertext is not block aligned")
	}

	mode := cipher.NewCBCDecrypter(block, DeriveIV(secret))
	mode.CryptBlocks(payload, payload)

	payload, err = pkcs7.Unpad(payload)
	if err != nil {
		return "", WrapError(KindDecryption, err, "could not pkcs7 unpad plaintext")
	}

	plaintext := recoverText(payload)
	if plaintext == "" {
		return "", NewError(KindDecryption, "no usable plaintext after fallback decoding")
	}

	return plaintext, nil
}
