package flo

import (
	"encoding/json"
)

// CategoryJournal is the category holding the user's journal entries.
// Writing it requires a resolvable passkey.
const CategoryJournal = "journal"

// legacyUserField held a plaintext user identifier in early documents.
// It is stripped on every encode and must never be written back.
const legacyUserField = "user"

// A Document is the whole per-user persisted state: named categories mapped
// to JSON values. In the on-disk form a category value may instead be a
// marker-prefixed ciphertext string.
type Document map[string]json.RawMessage

// Category returns the raw value stored under name.
func (d Document) Category(name string) (json.RawMessage, bool) {
	raw, ok := d[name]
	return raw, ok
}

// SetCategory stores the raw value under name.
func (d Document) SetCategory(name string, raw json.RawMessage) {
	d[name] = raw
}

// SetCiphertext stores a ciphertext string as the value of name.
func (d Document) SetCiphertext(name, ciphertext string) error {
	raw, err := json.Marshal(ciphertext)
	if err != nil {
		return WrapError(KindDecode, err, "could not encode ciphertext")
	}
	d[name] = raw
	return nil
}

// StripLegacyUser removes the legacy plaintext user identifier.
func (d Document) StripLegacyUser() {
	delete(d, legacyUserField)
}

// CiphertextOf returns the embedded ciphertext when the raw category value
// is a marker-prefixed JSON string.
func CiphertextOf(raw json.RawMessage) (string, bool) {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	if !IsEncrypted(value) {
		return "", false
	}
	return value, true
}
