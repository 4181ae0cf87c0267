package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/in3-cli/in3cli/internal/log"
)

const keyPrefix = "cursor"

// BadgerStore keeps cursors in a Badger database. Keys are
// "cursor\x00<profile>\x00<name>", values big-endian uint64.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the database at path
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger's built-in logging.
	return openBadger(opts, path)
}

// NewInMemoryBadgerStore opens a Badger database that lives only in memory
func NewInMemoryBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts, "memory")
}

func openBadger(opts badger.Options, path string) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "Cannot acquire directory lock") ||
			strings.Contains(errMsg, "resource temporarily unavailable") {
			return nil, fmt.Errorf("cursor database at %s is locked by another process (is another in3 command running?): %w", path, err)
		}
		return nil, fmt.Errorf("open cursor database at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Get(profile, name string) (uint64, error) {
	var value uint64
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cursorKey(profile, name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt cursor value of %d bytes", len(val))
			}
			value = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("badger get: %w", err)
	}
	return value, nil
}

func (b *BadgerStore) Set(profile, name string, value uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cursorKey(profile, name), buf)
	})
	if err != nil {
		return fmt.Errorf("badger put: %w", err)
	}
	return nil
}

func (b *BadgerStore) Delete(profile, name string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(cursorKey(profile, name))
	})
	if err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

func (b *BadgerStore) List(profile string) ([]string, error) {
	prefix := profilePrefix(profile)

	var names []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list: %w", err)
	}
	return names, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func profilePrefix(profile string) []byte {
	return []byte(keyPrefix + "\x00" + profile + "\x00")
}

func cursorKey(profile, name string) []byte {
	return append(profilePrefix(profile), name...)
}

// Lazy opens a BadgerStore on first use. Reads and deletes against a
// database that was never created succeed without creating it, so
// commands that never touch cursors leave no directory behind.
type Lazy struct {
	mu    sync.Mutex
	path  string
	store Store
}

// NewLazy returns a Lazy store for the database directory at path
func NewLazy(path string) *Lazy {
	return &Lazy{path: path}
}

func (l *Lazy) open(create bool) (Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		return l.store, nil
	}
	if !create {
		if _, err := os.Stat(l.path); os.IsNotExist(err) {
			return nil, nil
		}
	}

	store, err := NewBadgerStore(l.path)
	if err != nil {
		return nil, err
	}
	log.Cursor.Debug().Str("path", l.path).Msg("opened cursor database")
	l.store = store
	return store, nil
}

func (l *Lazy) Get(profile, name string) (uint64, error) {
	store, err := l.open(false)
	if err != nil {
		return 0, err
	}
	if store == nil {
		return 0, ErrNotFound
	}
	return store.Get(profile, name)
}

func (l *Lazy) Set(profile, name string, value uint64) error {
	store, err := l.open(true)
	if err != nil {
		return err
	}
	return store.Set(profile, name, value)
}

func (l *Lazy) Delete(profile, name string) error {
	store, err := l.open(false)
	if err != nil || store == nil {
		return err
	}
	return store.Delete(profile, name)
}

func (l *Lazy) List(profile string) ([]string, error) {
	store, err := l.open(false)
	if err != nil || store == nil {
		return nil, err
	}
	return store.List(profile)
}

// Close closes the underlying database if it was opened
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store == nil {
		return nil
	}
	err := l.store.Close()
	l.store = nil
	return err
}
