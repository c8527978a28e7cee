package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/resource"
)

type recordRepository struct {
	db *DB
}

func NewRecordRepository(db *DB) resource.Repository {
	return &recordRepository{db: db}
}

func (repo *recordRepository) Resources(context.Context) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.names(), nil
}

func (repo *recordRepository) QueryRecords(_ context.Context, name string) ([]resource.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	t, ok := repo.db.tables[name]
	if !ok {
		return []resource.Record{}, nil
	}
	records := make([]resource.Record, 0, len(t.rows))
	for _, rec := range t.rows {
		records = append(records, rec.Clone())
	}
	return records, nil
}

func (repo *recordRepository) GetRecord(_ context.Context, name string, id int64) (resource.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.tables[name]; ok {
		if i := t.indexOf(id); i >= 0 {
			return t.rows[i].Clone(), nil
		}
	}
	return resource.Record{}, core.NewNotFoundError(name, id)
}

func (repo *recordRepository) CreateRecord(_ context.Context, name string, fields resource.Fields) (resource.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t, ok := repo.db.tables[name]
	if !ok {
		t = &recordTable{}
		repo.db.tables[name] = t
	}
	rec := resource.Record{ID: t.nextID(), Fields: fields.Clone()}
	delete(rec.Fields, resource.IDField)
	t.rows = append(t.rows, rec)
	return rec.Clone(), nil
}

func (repo *recordRepository) UpdateRecord(_ context.Context, name string, id int64, fields resource.Fields) (resource.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t, ok := repo.db.tables[name]
	if !ok {
		return resource.Record{}, core.NewNotFoundError(name, id)
	}
	i := t.indexOf(id)
	if i < 0 {
		return resource.Record{}, core.NewNotFoundError(name, id)
	}

	rec := t.rows[i].Clone()
	if rec.Fields == nil {
		rec.Fields = make(resource.Fields, len(fields))
	}
	for k, v := range fields {
		if k != resource.IDField {
			rec.Fields[k] = v
		}
	}
	t.rows[i] = rec
	return rec.Clone(), nil
}

func (repo *recordRepository) DeleteRecord(_ context.Context, name string, id int64) (resource.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t, ok := repo.db.tables[name]
	if !ok {
		return resource.Record{}, core.NewNotFoundError(name, id)
	}
	i := t.indexOf(id)
	if i < 0 {
		return resource.Record{}, core.NewNotFoundError(name, id)
	}
	rec := t.rows[i]
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return rec, nil
}
