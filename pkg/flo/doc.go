//
// flo implements the encrypted per-user document format used by the
// journal store: a single JSON document per user whose categories may be
// individually encrypted with a passkey-derived key.
//
// Encrypt a category payload
//
//	ciphertext, err := flo.Encrypt(`{"hello":"world"}`, userID, passkey)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Decode a document read from disk
//
//	result, err := flo.DecodeDocument(raw, userID, func() (string, bool) {
//		return passkey, true
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	raw, ok := result.Document.Category(flo.CategoryJournal)
package flo
