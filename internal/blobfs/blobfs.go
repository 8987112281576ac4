// Package blobfs implements the file persistence collaborator of the
// document store: one UTF-8 text blob per path, with a base64 wrapper
// fallback for reads that are not valid UTF-8.
package blobfs

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/bromapp/flostore/pkg/flo"
	"github.com/pkg/errors"
)

// A Store can read and write text blobs by path.
type Store interface {
	// Get reads the blob as UTF-8 text. The boolean is false when no blob
	// exists at the path. Content that is not valid UTF-8 is returned as a
	// base64-wrapped payload for the codec to handle.
	Get(path string) (string, bool, error)
	// Set writes UTF-8 text, creating parent directories as needed.
	Set(path, text string) error
	// Delete removes the blob. Idempotent.
	Delete(path string) error
}

const (
	documentExt = ".flo"
	// legacyFilename held the single pre-multi-user document.
	legacyFilename = "flodata" + documentExt
)

// UserPath returns the deterministic document path for the given user id.
func UserPath(base, userID string) string {
	return filepath.Join(base, "user-"+userID+documentExt)
}

// LegacyPath returns the fixed pre-multi-user document path.
func LegacyPath(base string) string {
	return filepath.Join(base, legacyFilename)
}

// An OS is a filesystem-backed Store.
type OS struct{}

// NewOS returns a filesystem-backed Store.
func NewOS() *OS {
	return &OS{}
}

// Get reads the file as UTF-8 text.
func (*OS) Get(path string) (string, bool, error) {
	payload, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "could not read document")
	}

	if !utf8.Valid(payload) {
		return flo.Base64Marker + base64.StdEncoding.EncodeToString(payload), true, nil
	}

	return string(payload), true, nil
}

// Set writes the text to the file, creating parent directories as needed.
func (*OS) Set(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "could not create document directory")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrap(err, "could not create document file")
	}
	defer f.Close()

	if _, err = f.WriteString(text); err != nil {
		return errors.Wrap(err, "could not write document")
	}

	return errors.Wrap(f.Sync(), "could not write document")
}

// Delete removes the file if it exists.
func (*OS) Delete(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrap(err, "could not delete document")
}
