// Package state persists the fingerprint cache, confirmed sync records,
// and the cached authentication token in a bbolt database.
package state

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// stateDirPerm is the permission mode for the state directory (~/.media-sync/).
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second
)

var (
	appBucket          = []byte("app")
	tokenKey           = []byte("token")
	fingerprintsBucket = []byte("fingerprints")
	syncedBucket       = []byte("synced")
)

// FingerprintRecord caches the content hash of a local item so repeated
// sync passes do not re-read the item's bytes. At most one record exists
// per identifier (upsert semantics).
type FingerprintRecord struct {
	Identifier     string `json:"identifier"`
	ContentHash    string `json:"content_hash"`
	HashComputedAt int64  `json:"hash_computed_at"`
}

// SyncedRecord confirms that a local item has a counterpart in the remote
// store. Removed when the server reports the identifier as needing upload
// again, which means the remote copy was deleted.
type SyncedRecord struct {
	Identifier  string `json:"identifier"`
	RemoteID    string `json:"remote_id"`
	ContentHash string `json:"content_hash"`
	SyncedAt    int64  `json:"synced_at"`
}

// Store wraps a bbolt database for all persistent application state.
// bbolt allows concurrent readers alongside a single writer, which is the
// exact access pattern of the sync engine (one orchestration run writes
// while UI-facing readers call SyncedCount or SyncedRemoteID).
type Store struct {
	db *bolt.DB
}

// Load opens the state database at ~/.media-sync/state.db, creating it
// if it does not exist.
func Load() (*Store, error) {
	return LoadAt(dbPath())
}

// LoadAt opens a state database at the given path, creating it if it
// does not exist. Useful for tests that need an isolated database.
func LoadAt(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(appBucket); err != nil {
			return err
		}

		if _, err := tx.CreateBucketIfNotExists(fingerprintsBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucketIfNotExists(syncedBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Token returns the cached authentication token, or empty string.
func (s *Store) Token() string {
	var token string

	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appBucket).Get(tokenKey)
		if v != nil {
			token = string(v)
		}

		return nil
	})

	return token
}

// SetToken persists the authentication token.
func (s *Store) SetToken(token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Put(tokenKey, []byte(token))
	})
}

// ClearToken removes the cached authentication token. Called on forced
// logout after the server rejects the token.
func (s *Store) ClearToken() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Delete(tokenKey)
	})
}

// GetFingerprints returns the fingerprint records for the given
// identifiers. Missing identifiers are simply absent from the result map;
// absence is the normal "not yet hashed" state, not an error.
func (s *Store) GetFingerprints(identifiers []string) (map[string]FingerprintRecord, error) {
	result := make(map[string]FingerprintRecord, len(identifiers))

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(fingerprintsBucket)

		for _, id := range identifiers {
			v := b.Get([]byte(id))
			if v == nil {
				continue
			}

			var fr FingerprintRecord
			if err := json.Unmarshal(v, &fr); err != nil {
				return err
			}

			result[id] = fr
		}

		return nil
	})

	return result, err
}

// UpsertFingerprints writes the given fingerprint records, replacing any
// existing record for the same identifier.
func (s *Store) UpsertFingerprints(records []FingerprintRecord) error {
	if len(records) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(fingerprintsBucket)

		for _, fr := range records {
			data, err := json.Marshal(fr)
			if err != nil {
				return err
			}

			if err := b.Put([]byte(fr.Identifier), data); err != nil {
				return err
			}
		}

		return nil
	})
}

// DeleteFingerprints removes the fingerprint records for the given
// identifiers. Missing identifiers are ignored.
func (s *Store) DeleteFingerprints(identifiers []string) error {
	if len(identifiers) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(fingerprintsBucket)

		for _, id := range identifiers {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}

		return nil
	})
}

// FingerprintCount returns the number of cached fingerprint records.
func (s *Store) FingerprintCount() int {
	count := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(fingerprintsBucket).Stats().KeyN

		return nil
	})

	return count
}

// ClearFingerprints drops every cached fingerprint record. Sync records
// are untouched. This is the explicit cache-clear path; fingerprints are
// never deleted otherwise.
func (s *Store) ClearFingerprints() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(fingerprintsBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucket(fingerprintsBucket)

		return err
	})
}

// GetSynced returns the sync records for the given identifiers. Missing
// identifiers are absent from the result map.
func (s *Store) GetSynced(identifiers []string) (map[string]SyncedRecord, error) {
	result := make(map[string]SyncedRecord, len(identifiers))

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(syncedBucket)

		for _, id := range identifiers {
			v := b.Get([]byte(id))
			if v == nil {
				continue
			}

			var sr SyncedRecord
			if err := json.Unmarshal(v, &sr); err != nil {
				return err
			}

			result[id] = sr
		}

		return nil
	})

	return result, err
}

// AllSynced returns every sync record, keyed by identifier.
func (s *Store) AllSynced() (map[string]SyncedRecord, error) {
	result := make(map[string]SyncedRecord)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(syncedBucket).ForEach(func(k, v []byte) error {
			var sr SyncedRecord
			if err := json.Unmarshal(v, &sr); err != nil {
				return err
			}

			result[string(k)] = sr

			return nil
		})
	})

	return result, err
}

// UpsertSynced writes the given sync records, replacing any existing
// record for the same identifier.
func (s *Store) UpsertSynced(records []SyncedRecord) error {
	if len(records) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(syncedBucket)

		for _, sr := range records {
			data, err := json.Marshal(sr)
			if err != nil {
				return err
			}

			if err := b.Put([]byte(sr.Identifier), data); err != nil {
				return err
			}
		}

		return nil
	})
}

// DeleteSynced removes the sync records for the given identifiers.
// Missing identifiers are ignored.
func (s *Store) DeleteSynced(identifiers []string) error {
	if len(identifiers) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(syncedBucket)

		for _, id := range identifiers {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}

		return nil
	})
}

// SyncedRemoteID returns the remote id recorded for an identifier, and
// whether the identifier is currently believed synced.
func (s *Store) SyncedRemoteID(identifier string) (string, bool) {
	var (
		remoteID string
		found    bool
	)

	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(syncedBucket).Get([]byte(identifier))
		if v == nil {
			return nil
		}

		var sr SyncedRecord
		if err := json.Unmarshal(v, &sr); err != nil {
			return err
		}

		remoteID = sr.RemoteID
		found = true

		return nil
	})

	return remoteID, found
}

// SyncedCount returns the number of identifiers currently believed synced.
func (s *Store) SyncedCount() int {
	count := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(syncedBucket).Stats().KeyN

		return nil
	})

	return count
}

func dbPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		// Fail loudly rather than silently writing to the current directory
		// where the database (containing the session token) might end up
		// with wrong permissions or inside a source-controlled tree.
		fmt.Fprintf(os.Stderr, "fatal: cannot determine home directory: %v\n", err)
		os.Exit(1)
	}

	return filepath.Join(dir, ".media-sync", "state.db")
}
