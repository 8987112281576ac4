// Package cli implements the flostore maintenance commands: passkey slots,
// entry CRUD and journal export for one user's encrypted document.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bromapp/flostore/internal/blobfs"
	"github.com/bromapp/flostore/internal/journal"
	"github.com/bromapp/flostore/internal/secrets"
	"github.com/bromapp/flostore/internal/store"
	"github.com/bromapp/flostore/pkg/flo"
	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A Config holds the CLI runtime configuration.
type Config struct {
	// BasePath is the directory holding the per-user document files.
	BasePath string
	// SecretsPath is the sealed passkey database file.
	SecretsPath string
	// DeviceSecret seals the persisted passkey slots.
	DeviceSecret []byte
	// UserID selects the document to operate on.
	UserID string

	Logger logrus.FieldLogger
}

// An App wires the store stack for one user.
type App struct {
	cfg     Config
	secrets secrets.Store
	journal *journal.Journal
	store   *store.Store
	log     logrus.FieldLogger
}

// NewApp opens the collaborators and binds them to the configured user.
func NewApp(cfg Config) (*App, error) {
	if cfg.UserID == "" {
		return nil, flo.NewError(flo.KindNoUser, "no user id configured")
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	secstore, err := secrets.OpenStorm(cfg.SecretsPath, cfg.DeviceSecret)
	if err != nil {
		return nil, errors.Wrap(err, "could not open secret store")
	}

	s, err := store.New(cfg.UserID, blobfs.NewOS(), &secrets.Resolver{Store: secstore}, store.Options{
		BasePath: cfg.BasePath,
		Logger:   log,
	})
	if err != nil {
		secstore.Close()
		return nil, err
	}

	return &App{
		cfg:     cfg,
		secrets: secstore,
		store:   s,
		journal: journal.New(s, log),
		log:     log,
	}, nil
}

// Close releases the secret store.
func (a *App) Close() error {
	return a.secrets.Close()
}

// SetKey persists the passkey for the configured user, prompting when none
// is given.
func (a *App) SetKey(passkey string) error {
	if passkey == "" {
		prompted, err := readline.Password("passkey: ")
		if err != nil {
			return errors.Wrap(err, "could not read passkey from stdin")
		}
		passkey = string(prompted)
	}
	if passkey == "" {
		return errors.New("refusing to store an empty passkey")
	}

	return a.secrets.SetPasskey(a.cfg.UserID, passkey)
}

// ClearKey removes the persisted passkey.
func (a *App) ClearKey() error {
	return a.secrets.ClearPasskey(a.cfg.UserID)
}

// Create inserts a new journal entry.
func (a *App) Create(title, body, date, passkey string) error {
	if title == "" {
		return errors.New("title is required")
	}
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	return a.withPasskey(passkey, func(passkey string) error {
		return a.journal.CreateEntry(journal.Entry{Title: title, Body: body, Date: date}, passkey)
	})
}

// List prints entry previews, most recent entry date first.
func (a *App) List(passkey string) error {
	return a.withPasskey(passkey, func(passkey string) error {
		entries, err := a.journal.Entries(passkey)
		if err != nil {
			return err
		}

		for _, entry := range a.journal.ListEntries(passkey) {
			fmt.Printf("%s  %s  %s\n", entry.ID, entry.Date, entry.Title)
		}
		if len(entries) == 0 {
			fmt.Println("no entries")
		}
		return nil
	})
}

// Show prints one full entry.
func (a *App) Show(id, passkey string) error {
	return a.withPasskey(passkey, func(passkey string) error {
		entry, ok, err := a.journal.Entry(id, passkey)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("no entry %s", id)
		}

		fmt.Printf("%s (%s)\ncreated %s, updated %s\n\n%s\n", entry.Title, entry.Date, entry.CreatedAt, entry.UpdatedAt, entry.Body)
		return nil
	})
}

// Delete removes entries. The input accepts all the historical id-list
// shapes (number, digit string, comma list, JSON array).
func (a *App) Delete(input string, passkey string) error {
	ids, err := journal.ParseEntryIDs(input)
	if err != nil {
		return err
	}

	return a.withPasskey(passkey, func(passkey string) error {
		for _, id := range ids {
			if err := a.journal.DeleteEntry(id, passkey); err != nil {
				return errors.Wrapf(err, "could not delete entry %s", id)
			}
		}
		return nil
	})
}

// Export writes the decrypted journal to a timestamped JSON file in the
// current directory and prints its name.
func (a *App) Export(passkey string) error {
	return a.withPasskey(passkey, func(passkey string) error {
		entries, err := a.journal.Entries(passkey)
		if err != nil {
			return err
		}

		payload, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return errors.Wrap(err, "could not serialize journal")
		}

		filename := fmt.Sprintf("journal_%s.json", time.Now().Format("20060102150405"))
		f, err := os.Create(filename)
		if err != nil {
			return errors.Wrap(err, "could not create export file")
		}
		defer f.Close()

		if _, err = f.Write(payload); err != nil {
			return errors.Wrap(err, "could not write export")
		}
		if err = f.Sync(); err != nil {
			return errors.Wrap(err, "could not write export")
		}

		fmt.Println("Exported journal to " + filename)
		return nil
	})
}

// Wipe deletes the user's whole document.
func (a *App) Wipe() error {
	if err := a.store.DeleteDocument(); err != nil {
		return err
	}

	a.log.WithField("user", a.cfg.UserID).Info("document deleted")
	return nil
}

// withPasskey runs fn, prompting for a passkey and retrying once when the
// operation needed one and none was resolvable.
func (a *App) withPasskey(passkey string, fn func(passkey string) error) error {
	err := fn(passkey)
	if passkey != "" || !flo.IsPasskeyRequired(err) {
		return err
	}

	prompted, perr := readline.Password("passkey: ")
	if perr != nil {
		return errors.Wrap(perr, "could not read passkey from stdin")
	}

	return fn(string(prompted))
}
