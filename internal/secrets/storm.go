package secrets

import (
	"github.com/asdine/storm/v3"
	"github.com/pkg/errors"
)

const passkeyBucket = "passkeys"

type strm struct {
	db  *storm.DB
	box *box
}

// OpenStorm returns a Store backed by a Storm (bbolt) database. Slots are
// sealed with a key derived from the device secret before they hit disk.
func OpenStorm(path string, deviceSecret []byte) (Store, error) {
	b, err := newBox(deviceSecret)
	if err != nil {
		return nil, err
	}

	db, err := storm.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open secret store")
	}

	return &strm{db: db, box: b}, nil
}

// SetPasskey persists the sealed passkey, overwriting any existing value.
func (s *strm) SetPasskey(userID, passkey string) error {
	sealed, err := s.box.seal([]byte(passkey))
	if err != nil {
		return err
	}

	return errors.Wrap(s.db.Set(passkeyBucket, userID, sealed), "could not persist passkey")
}

// Passkey reads and unseals the slot.
func (s *strm) Passkey(userID string) (string, bool, error) {
	var sealed []byte
	err := s.db.Get(passkeyBucket, userID, &sealed)
	if err == storm.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "could not read passkey")
	}

	passkey, err := s.box.open(sealed)
	if err != nil {
		return "", false, err
	}

	return string(passkey), true, nil
}

// PasskeyExists returns true when a slot is persisted for the user.
func (s *strm) PasskeyExists(userID string) (bool, error) {
	_, ok, err := s.Passkey(userID)
	return ok, err
}

// ClearPasskey removes the slot. Idempotent.
func (s *strm) ClearPasskey(userID string) error {
	err := s.db.Delete(passkeyBucket, userID)
	if err == storm.ErrNotFound {
		return nil
	}
	return errors.Wrap(err, "could not clear passkey")
}

// Close the underlying database.
func (s *strm) Close() error {
	return s.db.Close()
}
