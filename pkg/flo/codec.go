package flo

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/valyala/fastjson"
)

// Base64Marker prefixes raw payloads the file collaborator could not decode
// as UTF-8 text. The wrapped bytes must be base64-decoded before applying
// the regular format detection.
const Base64Marker = "BASE64:"

// A PasskeyResolver yields the effective passkey for the current operation,
// or false when none is resolvable.
type PasskeyResolver func() (string, bool)

// A DecodeResult carries a decoded document and how it was stored.
type DecodeResult struct {
	Document Document
	// Migrated is true when the source was a legacy whole-file-encrypted
	// blob. The next write persists the current per-category format.
	Migrated bool
}

// DecodeDocument translates the on-disk representation into a Document.
//
// Three historical formats are tolerated, detected by prefix inspection:
//   - legacy whole-file ciphertext (requires a resolvable passkey)
//   - plaintext JSON whose category values may be ciphertext strings
//   - a base64-wrapped payload of either of the above
func DecodeDocument(raw, userID string, resolve PasskeyResolver) (*DecodeResult, error) {
	if strings.HasPrefix(raw, Base64Marker) {
		payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(raw, Base64Marker))
		if err != nil {
			return nil, WrapError(KindDecode, err, "could not decode base64 wrapper")
		}

		raw = recoverText(payload)
		if raw == "" {
			return nil, NewError(KindDecode, "no usable content in base64 wrapper")
		}
	}

	result := &DecodeResult{Document: Document{}}

	if IsEncrypted(raw) {
		passkey, ok := resolve()
		if !ok {
			return nil, NewError(KindPasskeyRequired, "passkey required to decrypt document")
		}

		plaintext, err := Decrypt(raw, userID, passkey)
		if err != nil {
			return nil, err
		}

		raw = plaintext
		result.Migrated = true
	}

	if raw == "" {
		return result, nil
	}

	if err := fastjson.ValidateBytes([]byte(raw)); err != nil {
		return nil, WrapError(KindDecode, err, "document is not valid JSON")
	}

	if err := json.Unmarshal([]byte(raw), &result.Document); err != nil {
		return nil, WrapError(KindDecode, err, "could not parse document")
	}

	return result, nil
}

// EncodeDocument serializes the document in the current format: plaintext
// JSON with keyed categories pre-encrypted into ciphertext strings.
// Categories without an entry in keys are stored as plain JSON values.
// The legacy plaintext user identifier is always stripped.
func EncodeDocument(doc Document, userID string, keys map[string]string) (string, error) {
	encoded := Document{}
	for name, raw := range doc {
		encoded[name] = raw
	}
	encoded.StripLegacyUser()

	for name, passkey := range keys {
		raw, ok := encoded.Category(name)
		if !ok {
			continue
		}
		if _, ok := CiphertextOf(raw); ok {
			continue
		}

		ciphertext, err := Encrypt(string(raw), userID, passkey)
		if err != nil {
			return "", err
		}
		if err = encoded.SetCiphertext(name, ciphertext); err != nil {
			return "", err
		}
	}

	payload, err := json.Marshal(encoded)
	if err != nil {
		return "", WrapError(KindDecode, err, "could not serialize document")
	}

	return string(payload), nil
}
