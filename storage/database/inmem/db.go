package inmemdb

import (
	"sort"
	"sync"

	"github.com/trezcool/shule/core/resource"
)

type (
	// DB holds resource collections in process memory.
	DB struct {
		mutex  sync.RWMutex
		tables map[string]*recordTable
	}

	recordTable struct {
		rows []resource.Record // insertion order
	}
)

// Open returns a DB loaded with copies of seed.
func Open(seed map[string][]resource.Record) *DB {
	db := &DB{tables: make(map[string]*recordTable, len(seed))}
	for name, records := range seed {
		t := &recordTable{rows: make([]resource.Record, 0, len(records))}
		for _, rec := range records {
			t.rows = append(t.rows, rec.Clone())
		}
		db.tables[name] = t
	}
	return db
}

func (db *DB) names() []string {
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *recordTable) indexOf(id int64) int {
	for i, rec := range t.rows {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func (t *recordTable) nextID() int64 {
	var maxID int64
	for _, rec := range t.rows {
		if rec.ID > maxID {
			maxID = rec.ID
		}
	}
	return maxID + 1
}
