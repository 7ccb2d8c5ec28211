package corpus

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// bucketPromoted names the bbolt bucket tracking which fingerprints have
// already been written to the queue, so a restarted FuzzLoop doesn't
// reprocess an existing queue directory from scratch.
const bucketPromoted = "promoted"

// Store owns the `<output>/queue/{id}.json` and `<output>/crashes/{id}.json`
// on-disk layout (spec.md §6), with JSON as the source of truth and an
// optional bbolt index (medusa-grounded, SPEC_FULL.md §11) as a derived,
// rebuildable restart cache.
type Store struct {
	root    string
	compact bool
	db      *bolt.DB // nil when the index is disabled
}

// Open creates (if absent) the queue/crashes directories under root and,
// when withIndex is true, opens (creating if absent) a bbolt index file
// at root/corpus.db.
func Open(root string, compact bool, withIndex bool) (*Store, error) {
	for _, sub := range []string{"queue", "crashes"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, errors.Wrapf(err, "corpus: creating %s directory", sub)
		}
	}

	s := &Store{root: root, compact: compact}
	if !withIndex {
		return s, nil
	}

	db, err := bolt.Open(filepath.Join(root, "corpus.db"), 0o644, nil)
	if err != nil {
		return nil, errors.Wrap(err, "corpus: opening bbolt index")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketPromoted))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "corpus: initializing bbolt index")
	}
	s.db = db
	return s, nil
}

// Close releases the bbolt index handle, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) path(kind string, id string) string {
	return filepath.Join(s.root, kind, id+".json")
}

// AlreadyPromoted reports whether fingerprint has already been written to
// the queue in a prior run, per the bbolt index. Always false when the
// index is disabled (every input is treated as new).
func (s *Store) AlreadyPromoted(fingerprint string) bool {
	if s.db == nil {
		return false
	}
	found := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPromoted))
		found = b.Get([]byte(fingerprint)) != nil
		return nil
	})
	return found
}

func (s *Store) markPromoted(fingerprint, id string) error {
	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPromoted))
		return b.Put([]byte(fingerprint), []byte(id))
	})
}

// PutQueue writes in to `<root>/queue/{id}.json` (or `.cbor`-shaped bytes
// under the same `.json` name when compact corpora are enabled — the
// spec's required filename convention is the source of truth; the byte
// encoding within it is an internal detail) and records its fingerprint
// in the index.
func (s *Store) PutQueue(in Input) error {
	if err := s.write("queue", in); err != nil {
		return err
	}
	return s.markPromoted(in.Metadata.Fingerprint, in.ID)
}

// PutCrash writes in to `<root>/crashes/{id}.json`.
func (s *Store) PutCrash(in Input) error {
	return s.write("crashes", in)
}

func (s *Store) write(kind string, in Input) error {
	data, err := in.Marshal(s.compact)
	if err != nil {
		return errors.Wrap(err, "corpus: marshaling input")
	}
	path := s.path(kind, in.ID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "corpus: writing %s", path)
	}
	return nil
}

// LoadQueue reads every Input currently stored under `<root>/queue/`.
func (s *Store) LoadQueue() ([]Input, error) {
	return s.loadDir("queue")
}

// LoadCrashes reads every Input currently stored under `<root>/crashes/`.
func (s *Store) LoadCrashes() ([]Input, error) {
	return s.loadDir("crashes")
}

func (s *Store) loadDir(kind string) ([]Input, error) {
	dir := filepath.Join(s.root, kind)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "corpus: reading %s directory", kind)
	}
	out := make([]Input, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "corpus: reading %s", e.Name())
		}
		in, err := Unmarshal(data)
		if err != nil {
			return nil, errors.Wrapf(err, "corpus: decoding %s", e.Name())
		}
		out = append(out, in)
	}
	return out, nil
}

// LoadByID reads a single stored input by ID from queue or crashes.
func (s *Store) LoadByID(kind, id string) (Input, error) {
	data, err := os.ReadFile(s.path(kind, id))
	if err != nil {
		return Input{}, errors.Wrapf(err, "corpus: reading %s", id)
	}
	return Unmarshal(data)
}
