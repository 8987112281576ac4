package journal_test

import (
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bromapp/flostore/internal/blobfs"
	"github.com/bromapp/flostore/internal/journal"
	"github.com/bromapp/flostore/internal/secrets"
	"github.com/bromapp/flostore/internal/store"
	"github.com/bromapp/flostore/pkg/flo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFiles is an in-memory file collaborator with a write counter.
type memFiles struct {
	mu    sync.Mutex
	blobs map[string]string
	sets  int
}

func newMemFiles() *memFiles {
	return &memFiles{blobs: map[string]string{}}
}

func (f *memFiles) Get(path string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.blobs[path]
	return text, ok, nil
}

func (f *memFiles) Set(path, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.blobs[path] = text
	return nil
}

func (f *memFiles) Delete(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, path)
	return nil
}

func (f *memFiles) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

var _ blobfs.Store = (*memFiles)(nil)

// clock is a manually advanced time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newJournal(t *testing.T, files blobfs.Store) (*journal.Journal, *clock) {
	t.Helper()

	s, err := store.New("42", files, &secrets.Resolver{}, store.Options{BasePath: "data"})
	require.NoError(t, err)

	j := journal.New(s, nil)
	c := newClock()
	j.SetClock(c.now)
	return j, c
}

func TestJournalCRUDScenario(t *testing.T) {
	j, c := newJournal(t, newMemFiles())

	require.NoError(t, j.CreateEntry(journal.Entry{Title: "A", Body: "B", Date: "2024-02-29"}, "s3cret"))

	entries := j.ListEntries("s3cret")
	require.Len(t, entries, 1)
	created := entries[0]
	assert.Equal(t, "A", created.Title)
	assert.Equal(t, "B", created.Body)
	assert.Equal(t, "2024-02-29", created.Date)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.CreatedAt)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	c.advance(time.Minute)
	title := "C"
	require.NoError(t, j.UpdateEntry(created.ID, journal.Patch{Title: &title}, "s3cret"))

	entries = j.ListEntries("s3cret")
	require.Len(t, entries, 1)
	updated := entries[0]
	assert.Equal(t, "C", updated.Title)
	assert.Equal(t, "B", updated.Body)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, flo.ParseTimestamp(updated.UpdatedAt).After(flo.ParseTimestamp(created.UpdatedAt)))

	require.NoError(t, j.DeleteEntry(created.ID, "s3cret"))
	assert.Empty(t, j.ListEntries("s3cret"))
}

func TestCreateEntryGeneratesID(t *testing.T) {
	j, _ := newJournal(t, newMemFiles())

	require.NoError(t, j.CreateEntry(journal.Entry{Title: "A"}, "s3cret"))

	entries := j.ListEntries("s3cret")
	require.Len(t, entries, 1)
	assert.Regexp(t, regexp.MustCompile(`^\d+-[0-9a-f]{8}$`), entries[0].ID)
}

func TestCreateEntryKeepsCallerID(t *testing.T) {
	j, _ := newJournal(t, newMemFiles())

	require.NoError(t, j.CreateEntry(journal.Entry{ID: "optimistic-1", Title: "A"}, "s3cret"))

	entry, ok, err := j.Entry("optimistic-1", "s3cret")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", entry.Title)
}

func TestUpdateEntryUnknownIDIsNoop(t *testing.T) {
	files := newMemFiles()
	j, _ := newJournal(t, files)

	require.NoError(t, j.CreateEntry(journal.Entry{ID: "e1", Title: "A"}, "s3cret"))
	writes := files.writes()

	title := "B"
	require.NoError(t, j.UpdateEntry("missing", journal.Patch{Title: &title}, "s3cret"))
	require.NoError(t, j.DeleteEntry("missing", "s3cret"))

	assert.Equal(t, writes, files.writes())
}

func TestListEntriesPreviewTruncation(t *testing.T) {
	j, _ := newJournal(t, newMemFiles())

	// 5 lines of 100 characters each.
	line := strings.Repeat("x", 100)
	body := strings.Join([]string{line, line, line, line, line}, "\n")
	require.NoError(t, j.CreateEntry(journal.Entry{ID: "e1", Title: "A", Body: body}, "s3cret"))

	entries := j.ListEntries("s3cret")
	require.Len(t, entries, 1)

	excerpt := entries[0].Body
	assert.True(t, strings.HasSuffix(excerpt, "…"))
	assert.LessOrEqual(t, len([]rune(strings.TrimSuffix(excerpt, "…"))), 300)
	assert.Equal(t, 3, len(strings.Split(strings.TrimSuffix(excerpt, "…"), "\n")))

	// The underlying stored entry is unaffected.
	entry, ok, err := j.Entry("e1", "s3cret")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, body, entry.Body)
}

func TestListEntriesShortBodyUntouched(t *testing.T) {
	j, _ := newJournal(t, newMemFiles())

	require.NoError(t, j.CreateEntry(journal.Entry{ID: "e1", Body: "one\ntwo"}, "s3cret"))

	entries := j.ListEntries("s3cret")
	require.Len(t, entries, 1)
	assert.Equal(t, "one\ntwo", entries[0].Body)
}

func TestListEntriesSortOrder(t *testing.T) {
	j, _ := newJournal(t, newMemFiles())

	for id, date := range map[string]string{
		"e1": "2024-01-01",
		"e2": "2024-06-01",
		"e3": "2023-12-01",
	} {
		require.NoError(t, j.CreateEntry(journal.Entry{ID: id, Title: id, Date: date}, "s3cret"))
	}

	entries := j.ListEntries("s3cret")
	require.Len(t, entries, 3)
	assert.Equal(t, "2024-06-01", entries[0].Date)
	assert.Equal(t, "2024-01-01", entries[1].Date)
	assert.Equal(t, "2023-12-01", entries[2].Date)
}

func TestListEntriesMissingCategory(t *testing.T) {
	j, _ := newJournal(t, newMemFiles())

	entries := j.ListEntries("s3cret")
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestListEntriesDegradesWhenUnreadable(t *testing.T) {
	files := newMemFiles()

	// A legacy whole-file-encrypted document with no resolvable passkey.
	ciphertext, err := flo.Encrypt(`{"journal":{"e1":{"id":"e1"}}}`, "42", "s3cret")
	require.NoError(t, err)
	require.NoError(t, files.Set(blobfs.UserPath("data", "42"), ciphertext))

	j, _ := newJournal(t, files)
	assert.Empty(t, j.ListEntries(""))
}

func TestCreateEntryPropagatesPasskeyError(t *testing.T) {
	j, _ := newJournal(t, newMemFiles())

	err := j.CreateEntry(journal.Entry{Title: "A"}, "")
	require.Error(t, err)
	assert.True(t, flo.IsPasskeyRequired(err))
}
