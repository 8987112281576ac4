// Package journal implements entry CRUD on top of the category store.
// Entries live in the "journal" category of the user's document; there is
// no separate persistence path.
package journal

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/bromapp/flostore/internal/store"
	"github.com/bromapp/flostore/pkg/flo"
	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
)

const (
	previewMaxLines = 3
	previewMaxChars = 300
	previewEllipsis = "…"
)

type (
	// An Entry is one journal record.
	Entry struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Body  string `json:"body"`
		// Date is the semantic entry date, distinct from the audit
		// timestamps below.
		Date      string `json:"date"`
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	}

	// A Patch holds the fields UpdateEntry merges over an existing entry.
	// Nil fields are left untouched; id and createdAt are immutable.
	Patch struct {
		Title *string `json:"title,omitempty"`
		Body  *string `json:"body,omitempty"`
		Date  *string `json:"date,omitempty"`
	}

	// A Journal exposes CRUD over the entries of one user.
	Journal struct {
		store *store.Store
		log   logrus.FieldLogger
		now   func() time.Time
	}
)

// New returns a Journal bound to the given store.
func New(s *store.Store, log logrus.FieldLogger) *Journal {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Journal{store: s, log: log, now: time.Now}
}

// CreateEntry inserts the entry and persists the journal. It is send-only:
// the created entry is not returned, so the editor UI never depends on
// round-tripping encrypted content. A missing id is generated; createdAt
// and updatedAt are set to now.
func (j *Journal) CreateEntry(entry Entry, passkey string) error {
	entries, err := j.readEntries(passkey)
	if err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = j.generateID()
	}
	now := flo.Timestamp(j.now())
	entry.CreatedAt = now
	entry.UpdatedAt = now

	entries[entry.ID] = entry
	return j.writeEntries(entries, passkey)
}

// UpdateEntry merges the patch over the entry and refreshes updatedAt.
// Unknown ids are silently skipped: optimistic callers treat updates as
// fire-and-forget.
func (j *Journal) UpdateEntry(id string, patch Patch, passkey string) error {
	entries, err := j.readEntries(passkey)
	if err != nil {
		return err
	}

	entry, ok := entries[id]
	if !ok {
		return nil
	}

	if patch.Title != nil {
		entry.Title = *patch.Title
	}
	if patch.Body != nil {
		entry.Body = *patch.Body
	}
	if patch.Date != nil {
		entry.Date = *patch.Date
	}
	entry.UpdatedAt = flo.Timestamp(j.now())

	entries[id] = entry
	return j.writeEntries(entries, passkey)
}

// DeleteEntry removes the entry. Unknown ids are silently skipped.
func (j *Journal) DeleteEntry(id, passkey string) error {
	entries, err := j.readEntries(passkey)
	if err != nil {
		return err
	}

	if _, ok := entries[id]; !ok {
		return nil
	}

	delete(entries, id)
	return j.writeEntries(entries, passkey)
}

// ListEntries returns a preview projection of all entries, sorted by entry
// date descending. The body is truncated to its first lines and capped.
//
// An absent or unreadable journal degrades to an empty list: the UI shows
// "no entries" instead of crashing when no passkey is available.
func (j *Journal) ListEntries(passkey string) []Entry {
	entries, err := j.readEntries(passkey)
	if err != nil {
		j.log.WithError(err).Warn("could not list journal entries")
		return []Entry{}
	}

	previews := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		entry.Body = preview(entry.Body)
		previews = append(previews, entry)
	}

	sort.SliceStable(previews, func(i, k int) bool {
		return entryDate(previews[i].Date).After(entryDate(previews[k].Date))
	})

	return previews
}

// Entries returns all full entries keyed by id. Unlike ListEntries, errors
// propagate: export paths must not silently produce an empty backup.
func (j *Journal) Entries(passkey string) (map[string]Entry, error) {
	return j.readEntries(passkey)
}

// Entry returns the full entry (no preview truncation), or false when the
// id is unknown.
func (j *Journal) Entry(id, passkey string) (Entry, bool, error) {
	entries, err := j.readEntries(passkey)
	if err != nil {
		return Entry{}, false, err
	}

	entry, ok := entries[id]
	return entry, ok, nil
}

////
///
//

func (j *Journal) readEntries(passkey string) (map[string]Entry, error) {
	raw, err := j.store.ReadCategory(flo.CategoryJournal, passkey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return map[string]Entry{}, nil
	}

	entries := map[string]Entry{}
	if err = json.Unmarshal(raw, &entries); err != nil {
		return nil, flo.WrapError(flo.KindDecode, err, "could not parse journal entries")
	}

	return entries, nil
}

func (j *Journal) writeEntries(entries map[string]Entry, passkey string) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return flo.WrapError(flo.KindDecode, err, "could not serialize journal entries")
	}

	return j.store.WriteCategory(flo.CategoryJournal, raw, passkey)
}

// generateID returns a `timestamp-randomSuffix` id, unique enough within a
// single user's document.
func (j *Journal) generateID() string {
	suffix := uuid.Must(uuid.NewV4()).String()[:8]
	return fmt.Sprintf("%d-%s", j.now().UnixMilli(), suffix)
}

// entryDate parses the semantic entry date leniently.
// Unparseable dates sort last.
func entryDate(date string) time.Time {
	t, err := dateparse.ParseAny(date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// preview truncates a body to its first lines and caps its length.
func preview(body string) string {
	truncated := false

	lines := strings.Split(body, "\n")
	if len(lines) > previewMaxLines {
		lines = lines[:previewMaxLines]
		truncated = true
	}
	out := strings.Join(lines, "\n")

	if runes := []rune(out); len(runes) > previewMaxChars {
		out = string(runes[:previewMaxChars])
		truncated = true
	}

	if truncated {
		out += previewEllipsis
	}
	return out
}
