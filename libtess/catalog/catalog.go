// Package catalog persists finished rule tables.  Each tessellation gets one
// entry keyed by its name, holding the textual rule table plus a small state
// record; adding a table under a name already present leaves the stored entry
// unchanged.
package catalog

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"

	"github.com/hypertiles/gotess/gotess"
	"github.com/hypertiles/gotess/libtess"
)

/***

Catalog database format:

	gCatalogStateKey                  => CatalogState (vers, table count)
	'T', name                         => rule table (textual form)

The textual form is the same state(...) listing the generator persists, so an
entry can be exported as-is and parsed back with libtess.ParseRules.

***/

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
	gTablePrefix     = []byte{'T'}
)

const (
	majorVers = 2024
	minorVers = 1
)

// Opts specifies params for opening a rule catalog.
type Opts struct {
	DbPathName string // omit for an in-memory db
	ReadOnly   bool
}

// Catalog wraps a database of generated rule tables.
type Catalog interface {

	// TryAddRules adds the table if its name is not yet present.
	// Returns true if it was added.
	TryAddRules(rs *gotess.RuleSet) (bool, error)

	// LoadRules fetches and parses the table stored under the given name.
	LoadRules(name string) (*gotess.RuleSet, error)

	// Select fires the callback for every stored table name; enumeration
	// stops when the callback returns false.
	Select(onHit func(name string) bool) error

	// NumTables returns the number of stored tables.
	NumTables() int64

	IsReadOnly() bool

	Close() error
}

type catalogState struct {
	major, minor uint32
	numTables    uint64
}

func (cs *catalogState) marshal() []byte {
	var buf [20]byte
	binary.BigEndian.PutUint32(buf[0:], cs.major)
	binary.BigEndian.PutUint32(buf[4:], cs.minor)
	binary.BigEndian.PutUint64(buf[8:], cs.numTables)
	return buf[:16]
}

func (cs *catalogState) unmarshal(v []byte) error {
	if len(v) < 16 {
		return errors.New("bad catalog state record")
	}
	cs.major = binary.BigEndian.Uint32(v[0:])
	cs.minor = binary.BigEndian.Uint32(v[4:])
	cs.numTables = binary.BigEndian.Uint64(v[8:])
	return nil
}

type catalog struct {
	readOnly   bool
	stateDirty bool
	state      catalogState
	db         *badger.DB
}

// OpenCatalog opens a new or existing rule catalog.
func OpenCatalog(opts Opts) (Catalog, error) {
	cat := &catalog{
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false // single writer, disabled for performance
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.New("DbPathName must be specified for a read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = true
		cat.state.major = majorVers
		cat.state.minor = minorVers
	}
	if err == nil && (cat.state.major != majorVers || cat.state.minor != minorVers) {
		err = errors.New("catalog version is incompatible")
	}
	if err != nil {
		cat.Close()
		return nil, err
	}

	return cat, nil
}

func (cat *catalog) loadState() error {
	return cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cat.state.unmarshal(val)
		})
	})
}

func (cat *catalog) flushState() {
	if !cat.stateDirty {
		return
	}
	err := cat.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gCatalogStateKey, cat.state.marshal())
	})
	if err != nil {
		panic(err)
	}
	cat.stateDirty = false
}

func (cat *catalog) Close() error {
	if cat.db != nil {
		if !cat.readOnly {
			cat.flushState()
		}
		cat.db.Close()
		cat.db = nil
	}
	return nil
}

func (cat *catalog) IsReadOnly() bool { return cat.readOnly }

func (cat *catalog) NumTables() int64 { return int64(cat.state.numTables) }

func tableKey(name string) []byte {
	return append(append([]byte{}, gTablePrefix...), name...)
}

func (cat *catalog) TryAddRules(rs *gotess.RuleSet) (bool, error) {
	if cat.readOnly {
		return false, errors.New("catalog is read-only")
	}
	if err := rs.Validate(); err != nil {
		return false, errors.Wrap(err, "refusing to store a broken table")
	}

	var b strings.Builder
	if err := rs.WriteText(&b); err != nil {
		return false, err
	}

	key := tableKey(rs.Name)
	added := false

	err := cat.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		added = true
		return txn.Set(key, []byte(b.String()))
	})
	if err != nil {
		return false, err
	}
	if added {
		cat.state.numTables++
		cat.stateDirty = true
	}
	return added, nil
}

func (cat *catalog) LoadRules(name string) (*gotess.RuleSet, error) {
	var text []byte
	err := cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tableKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			text = append(text, val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, errors.Wrapf(err, "no rules stored for %q", name)
	}
	if err != nil {
		return nil, err
	}
	return libtess.ParseRules(string(text))
}

func (cat *catalog) Select(onHit func(name string) bool) error {
	txn := cat.db.NewTransaction(false)
	defer txn.Discard()

	it := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: false,
		Prefix:         gTablePrefix,
	})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().Key()
		if !bytes.HasPrefix(key, gTablePrefix) {
			break
		}
		if !onHit(string(key[len(gTablePrefix):])) {
			break
		}
	}
	return nil
}
