// Package store implements cached, deduplicated read/write access to named
// categories within one user's document.
package store

import (
	"encoding/json"
	"reflect"
	"sync"

	"github.com/bromapp/flostore/internal/blobfs"
	"github.com/bromapp/flostore/internal/secrets"
	"github.com/bromapp/flostore/pkg/flo"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

type (
	// A Store owns the in-memory state for one user's document: the
	// category cache, the in-flight read map and the raw/parsed memo.
	// It is constructed per active user session and dropped on logout.
	Store struct {
		userID string
		base   string
		files  blobfs.Store
		keys   *secrets.Resolver
		log    logrus.FieldLogger

		mu       sync.Mutex
		cache    map[string]json.RawMessage
		inflight map[string]*call
		memoRaw  string
		memoDoc  flo.Document

		// Serializes writes so overlapping WriteCategory calls cannot
		// interleave their read-modify-write cycles.
		writeMu sync.Mutex
	}

	// A call is a read in progress; concurrent readers of the same
	// category await it instead of issuing redundant decrypt/parse work.
	call struct {
		done  chan struct{}
		value json.RawMessage
		err   error
	}

	// Options configures a Store.
	Options struct {
		// BasePath is the directory holding the per-user document files.
		BasePath string
		Logger   logrus.FieldLogger
	}
)

// New returns a Store bound to the given user id.
func New(userID string, files blobfs.Store, keys *secrets.Resolver, opts Options) (*Store, error) {
	if userID == "" {
		return nil, flo.NewError(flo.KindNoUser, "no active user id")
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Store{
		userID:   userID,
		base:     opts.BasePath,
		files:    files,
		keys:     keys,
		log:      log,
		cache:    map[string]json.RawMessage{},
		inflight: map[string]*call{},
	}, nil
}

// UserID returns the bound user id.
func (s *Store) UserID() string {
	return s.userID
}

// ReadCategory returns the decrypted value of the category, or nil when the
// document or the category does not exist.
//
// The value is served from the cache when warm; absent categories are
// cached as misses. Concurrent reads of the same category share a single
// underlying load: all callers observe the same resolved value or the same
// rejection. A failed read never poisons the cache.
func (s *Store) ReadCategory(category, passkey string) (json.RawMessage, error) {
	s.mu.Lock()
	if value, ok := s.cache[category]; ok {
		s.mu.Unlock()
		return clone(value), nil
	}
	if c, ok := s.inflight[category]; ok {
		s.mu.Unlock()
		<-c.done
		if c.err != nil {
			return nil, c.err
		}
		return clone(c.value), nil
	}

	c := &call{done: make(chan struct{})}
	s.inflight[category] = c
	s.mu.Unlock()

	value, err := s.load(category, passkey)

	s.mu.Lock()
	delete(s.inflight, category)
	if err == nil {
		// Misses are cached too: an absent category stays nil until a
		// write or Invalidate, without re-reading the file every call.
		s.cache[category] = clone(value)
	}
	s.mu.Unlock()

	c.value, c.err = value, err
	close(c.done)

	if err != nil {
		return nil, err
	}
	return clone(value), nil
}

// CachedCategory returns the currently cached value without any I/O or
// passkey resolution, or nil when the category is cold.
func (s *Store) CachedCategory(category string) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.cache[category])
}

// WriteCategory persists the payload under the category, encrypting it when
// a passkey is resolvable. The whole document is rewritten: legacy
// whole-file-encrypted documents migrate to the per-category format here.
//
// Writing the journal category without a resolvable passkey is refused.
// A payload deep-equal to the cached value is a no-op without I/O.
func (s *Store) WriteCategory(category string, payload json.RawMessage, passkey string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := fastjson.ValidateBytes(payload); err != nil {
		return flo.WrapError(flo.KindDecode, err, "payload is not valid JSON")
	}

	effective, resolvable := s.keys.Effective(s.userID, passkey)
	if category == flo.CategoryJournal && !resolvable {
		return flo.NewError(flo.KindPasskeyRequired, "refusing to write plaintext journal data")
	}

	s.mu.Lock()
	cached, warm := s.cache[category]
	s.mu.Unlock()
	if warm && jsonEqual(cached, payload) {
		s.log.WithField("category", category).Debug("write suppressed, payload unchanged")
		return nil
	}

	doc, err := s.loadDocument(passkey)
	if err != nil {
		return err
	}

	doc = cloneDocument(doc)
	doc.SetCategory(category, clone(payload))

	keys := map[string]string{}
	if resolvable {
		keys[category] = effective
		// A legacy whole-file-encrypted document decodes to plaintext
		// categories. Keying the journal on every rewrite keeps it sealed
		// even when the write targets another category.
		keys[flo.CategoryJournal] = effective
	}

	encoded, err := flo.EncodeDocument(doc, s.userID, keys)
	if err != nil {
		return err
	}

	if err = s.files.Set(blobfs.UserPath(s.base, s.userID), encoded); err != nil {
		return flo.WrapError(flo.KindInternal, err, "could not persist document")
	}

	// Make the write visible to subsequent reads without a re-read.
	var onDisk flo.Document
	if err = json.Unmarshal([]byte(encoded), &onDisk); err != nil {
		return flo.WrapError(flo.KindDecode, err, "could not parse encoded document")
	}

	s.mu.Lock()
	s.cache[category] = clone(payload)
	s.memoRaw = encoded
	s.memoDoc = onDisk
	s.mu.Unlock()

	return nil
}

// DeleteDocument removes the user's document file and drops all in-memory
// state.
func (s *Store) DeleteDocument() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.files.Delete(blobfs.UserPath(s.base, s.userID)); err != nil {
		return flo.WrapError(flo.KindInternal, err, "could not delete document")
	}

	s.Invalidate()
	return nil
}

// Invalidate drops the category cache and the parsed-document memo.
// Used on logout and user switch.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = map[string]json.RawMessage{}
	s.memoRaw = ""
	s.memoDoc = nil
}

////
///
//

// load reads and decodes the category from the document file.
func (s *Store) load(category, passkey string) (json.RawMessage, error) {
	raw, ok, err := s.loadRaw()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	doc, err := s.decode(raw, passkey)
	if err != nil {
		return nil, err
	}

	value, ok := doc.Category(category)
	if !ok {
		return nil, nil
	}

	ciphertext, encrypted := flo.CiphertextOf(value)
	if !encrypted {
		return clone(value), nil
	}

	effective, resolvable := s.keys.Effective(s.userID, passkey)
	if !resolvable {
		return nil, flo.NewError(flo.KindPasskeyRequired, "passkey required to decrypt category")
	}

	plaintext, err := flo.Decrypt(ciphertext, s.userID, effective)
	if err != nil {
		return nil, err
	}

	if err = fastjson.Validate(plaintext); err != nil {
		return nil, flo.WrapError(flo.KindDecode, err, "category plaintext is not valid JSON")
	}

	// The write path of older versions JSON-encoded the payload before
	// encrypting it, so the plaintext may be one JSON-string layer deep.
	decrypted := json.RawMessage(plaintext)
	var embedded string
	if json.Unmarshal(decrypted, &embedded) == nil && fastjson.Validate(embedded) == nil {
		decrypted = json.RawMessage(embedded)
	}

	return decrypted, nil
}

// loadRaw reads the user's document, falling back to the fixed
// pre-multi-user path.
func (s *Store) loadRaw() (string, bool, error) {
	raw, ok, err := s.files.Get(blobfs.UserPath(s.base, s.userID))
	if err != nil {
		return "", false, flo.WrapError(flo.KindInternal, err, "could not read document")
	}
	if ok {
		return raw, true, nil
	}

	raw, ok, err = s.files.Get(blobfs.LegacyPath(s.base))
	if err != nil {
		return "", false, flo.WrapError(flo.KindInternal, err, "could not read legacy document")
	}
	return raw, ok, nil
}

// loadDocument returns the current document, or an empty one when no file
// exists yet.
func (s *Store) loadDocument(passkey string) (flo.Document, error) {
	raw, ok, err := s.loadRaw()
	if err != nil {
		return nil, err
	}
	if !ok {
		return flo.Document{}, nil
	}

	return s.decode(raw, passkey)
}

// decode parses the raw document, reusing the previous parse when the raw
// content is byte-identical to the last load.
func (s *Store) decode(raw, passkey string) (flo.Document, error) {
	s.mu.Lock()
	if raw == s.memoRaw && s.memoDoc != nil {
		doc := s.memoDoc
		s.mu.Unlock()
		return doc, nil
	}
	s.mu.Unlock()

	result, err := flo.DecodeDocument(raw, s.userID, func() (string, bool) {
		return s.keys.Effective(s.userID, passkey)
	})
	if err != nil {
		return nil, err
	}
	if result.Migrated {
		s.log.WithField("user", s.userID).Info("legacy whole-file-encrypted document, migrating on next write")
	}

	s.mu.Lock()
	s.memoRaw = raw
	s.memoDoc = result.Document
	s.mu.Unlock()

	return result.Document, nil
}

////
///
//

func clone(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	c := make(json.RawMessage, len(raw))
	copy(c, raw)
	return c
}

func cloneDocument(doc flo.Document) flo.Document {
	c := flo.Document{}
	for name, raw := range doc {
		c[name] = raw
	}
	return c
}

// jsonEqual compares two payloads on their decoded values, so formatting
// and key order differences do not defeat write suppression.
func jsonEqual(a, b json.RawMessage) bool {
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}
