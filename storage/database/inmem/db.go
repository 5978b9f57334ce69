package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo/core/course"
)

type (
	// DB is an in-memory content store. Transactions are serialized and work on a private copy
	// of the tables which replaces the shared one on commit.
	DB struct {
		mu     sync.RWMutex // guards tables
		txMu   sync.Mutex   // one transaction at a time, across all courses
		tables *tables

		faultsMu sync.Mutex
		faults   map[string]error
	}

	tables struct {
		courses     map[string]course.Course
		sections    map[string]course.Section
		activities  map[string]course.Activity
		tombstones  map[string]course.Tombstone
		idempotency map[string]course.IdempotencyRecord // courseID + "/" + key
	}
)

func Open() *DB {
	return &DB{
		tables: &tables{
			courses:     make(map[string]course.Course),
			sections:    make(map[string]course.Section),
			activities:  make(map[string]course.Activity),
			tombstones:  make(map[string]course.Tombstone),
			idempotency: make(map[string]course.IdempotencyRecord),
		},
		faults: make(map[string]error),
	}
}

// InjectFault makes the next call to the named Tx method (e.g. "DeleteSection") fail with err.
func (db *DB) InjectFault(method string, err error) {
	db.faultsMu.Lock()
	defer db.faultsMu.Unlock()
	db.faults[method] = err
}

func (db *DB) fault(method string) error {
	db.faultsMu.Lock()
	defer db.faultsMu.Unlock()
	if err, ok := db.faults[method]; ok {
		delete(db.faults, method)
		return err
	}
	return nil
}

func (t *tables) clone() *tables {
	c := &tables{
		courses:     make(map[string]course.Course, len(t.courses)),
		sections:    make(map[string]course.Section, len(t.sections)),
		activities:  make(map[string]course.Activity, len(t.activities)),
		tombstones:  make(map[string]course.Tombstone, len(t.tombstones)),
		idempotency: make(map[string]course.IdempotencyRecord, len(t.idempotency)),
	}
	for k, v := range t.courses {
		c.courses[k] = v
	}
	for k, v := range t.sections {
		c.sections[k] = copySection(v)
	}
	for k, v := range t.activities {
		c.activities[k] = v
	}
	for k, v := range t.tombstones {
		c.tombstones[k] = v
	}
	for k, v := range t.idempotency {
		c.idempotency[k] = v
	}
	return c
}

func copySection(sec course.Section) course.Section {
	seq := make([]string, len(sec.Sequence))
	copy(seq, sec.Sequence)
	sec.Sequence = seq
	return sec
}
