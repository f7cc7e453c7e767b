package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	lserrors "github.com/matzehuels/linkscope/pkg/errors"
)

var badgerPrefix = []byte("view:")

// BadgerRepository stores views in an embedded badger database under
// view:<id>.
type BadgerRepository struct {
	db *badger.DB
}

// OpenBadgerRepository opens (or creates) a database at path. An empty
// path opens an in-memory database, which is what tests use.
func OpenBadgerRepository(path string) (*BadgerRepository, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path)
	}
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerRepository{db: db}, nil
}

func badgerKey(id string) []byte {
	return append(append([]byte(nil), badgerPrefix...), id...)
}

func (r *BadgerRepository) Create(ctx context.Context, rec Record) (string, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal view: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(rec.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("store view: %w", err)
	}
	return rec.ID, nil
}

func (r *BadgerRepository) Get(ctx context.Context, id string) (Record, error) {
	var data []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get view: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, lserrors.Wrap(lserrors.ErrCodeMalformedData, err, "parse view %s", id)
	}
	return rec, nil
}

func (r *BadgerRepository) List(ctx context.Context) ([]Summary, error) {
	out := []Summary{}
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(badgerPrefix); it.ValidForPrefix(badgerPrefix); it.Next() {
			var s Summary
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &s)
			})
			if err != nil {
				continue
			}
			out = append(out, s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	sortSummaries(out)
	return out, nil
}

// Close closes the database.
func (r *BadgerRepository) Close() error { return r.db.Close() }

var _ Repository = (*BadgerRepository)(nil)
