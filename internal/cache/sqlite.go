package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"taskflow/internal/payload"
	"taskflow/internal/tferr"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS cache (
	fingerprint TEXT NOT NULL,
	inputs      BLOB NOT NULL,
	fragment    BLOB NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(fingerprint, inputs)
);`

// SQLite is the persistent-table Provider backing a single file on disk,
// matching the schema the pool façade documents as its default cache:
// cache(fingerprint TEXT, inputs BLOB, fragment BLOB, created_at TIMESTAMP).
type SQLite struct {
	path string
	db   *sql.DB
}

// OpenSQLite opens (creating if necessary) the sqlite database at path and
// ensures the cache table exists.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, tferr.CacheBackend("opening sqlite cache: " + err.Error())
	}
	// The coordinator is the only caller (per the concurrency model), but a
	// single connection avoids SQLITE_BUSY from go-sqlite3's lack of
	// built-in write serialization under concurrent connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, tferr.CacheBackend("creating cache table: " + err.Error())
	}
	return &SQLite{path: path, db: db}, nil
}

func (s *SQLite) Get(fingerprint string, inputs map[string]any) (payload.Fragment, bool, error) {
	key, err := BuildKey(fingerprint, inputs)
	if err != nil {
		return nil, false, err
	}

	var raw []byte
	row := s.db.QueryRow(
		`SELECT fragment FROM cache WHERE fingerprint = ? AND inputs = ?`,
		key.Fingerprint, key.Canonical,
	)
	switch err := row.Scan(&raw); err {
	case nil:
	case sql.ErrNoRows:
		return nil, false, nil
	default:
		return nil, false, tferr.CacheBackend("querying cache: " + err.Error())
	}

	var frag payload.Fragment
	if err := json.Unmarshal(raw, &frag); err != nil {
		return nil, false, tferr.CacheBackend("decoding cached fragment: " + err.Error())
	}
	if frag == nil {
		frag = payload.Fragment{}
	}
	return frag, true, nil
}

func (s *SQLite) Set(fingerprint string, inputs map[string]any, fragment payload.Fragment) error {
	key, err := BuildKey(fingerprint, inputs)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(fragment)
	if err != nil {
		return tferr.CacheBackend("encoding fragment: " + err.Error())
	}

	_, err = s.db.Exec(
		`INSERT INTO cache (fingerprint, inputs, fragment, created_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(fingerprint, inputs) DO UPDATE SET
		   fragment = excluded.fragment,
		   created_at = CURRENT_TIMESTAMP`,
		key.Fingerprint, key.Canonical, raw,
	)
	if err != nil {
		return tferr.CacheBackend("writing cache entry: " + err.Error())
	}
	return nil
}

func (s *SQLite) Clear(retain int) error {
	if retain < 0 {
		return tferr.BadArgument("retain must be >= 0")
	}
	if retain == 0 {
		if _, err := s.db.Exec(`DELETE FROM cache`); err != nil {
			return tferr.CacheBackend("clearing cache table: " + err.Error())
		}
		// clear(0) additionally removes the backing file per the on-disk
		// layout contract; re-open so subsequent calls still work.
		if err := s.db.Close(); err != nil {
			return tferr.CacheBackend("closing before file removal: " + err.Error())
		}
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return tferr.CacheBackend("removing cache file: " + err.Error())
		}
		reopened, err := OpenSQLite(s.path)
		if err != nil {
			return err
		}
		*s = *reopened
		return nil
	}

	_, err := s.db.Exec(
		`DELETE FROM cache WHERE rowid NOT IN (
			SELECT rowid FROM cache ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`,
		retain,
	)
	if err != nil {
		return tferr.CacheBackend("trimming cache table: " + err.Error())
	}
	return nil
}

func (s *SQLite) SelfCheck() error {
	return selfCheck(s)
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return tferr.CacheBackend(fmt.Sprintf("closing sqlite cache %s: %s", s.path, err))
	}
	return nil
}
