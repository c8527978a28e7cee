package sqlxdb

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/resource"
)

type recordRow struct {
	Resource string `db:"resource"`
	ID       int64  `db:"id"`
	Data     string `db:"data"`
}

func (row recordRow) record() (resource.Record, error) {
	fields := make(resource.Fields)
	if err := json.Unmarshal([]byte(row.Data), &fields); err != nil {
		return resource.Record{}, errors.Wrapf(err, "decoding %s %d", row.Resource, row.ID)
	}
	delete(fields, resource.IDField)
	return resource.Record{ID: row.ID, Fields: fields}, nil
}

func encodeFields(fields resource.Fields) (string, error) {
	if fields == nil {
		fields = resource.Fields{}
	}
	data, err := json.Marshal(fields)
	return string(data), errors.Wrap(err, "encoding fields")
}

type recordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository stores records in the records table, one JSON document per row.
func NewRecordRepository(db *sqlx.DB) resource.Repository {
	return &recordRepository{db: db}
}

func (repo *recordRepository) Resources(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	err := repo.db.SelectContext(ctx, &names, `SELECT DISTINCT resource FROM records ORDER BY resource`)
	return names, errors.Wrap(err, "selecting resources")
}

func (repo *recordRepository) QueryRecords(ctx context.Context, name string) ([]resource.Record, error) {
	var rows []recordRow
	q := repo.db.Rebind(`SELECT resource, id, data FROM records WHERE resource = ? ORDER BY id`)
	if err := repo.db.SelectContext(ctx, &rows, q, name); err != nil {
		return nil, errors.Wrapf(err, "selecting %s", name)
	}

	records := make([]resource.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func getRow(ctx context.Context, q sqlx.QueryerContext, name string, id int64) (recordRow, error) {
	var row recordRow
	query := sqlx.Rebind(sqlx.BindType(driverName(q)), `SELECT resource, id, data FROM records WHERE resource = ? AND id = ?`)
	if err := sqlx.GetContext(ctx, q, &row, query, name, id); err != nil {
		if err == sql.ErrNoRows {
			return recordRow{}, core.NewNotFoundError(name, id)
		}
		return recordRow{}, errors.Wrapf(err, "selecting %s %d", name, id)
	}
	return row, nil
}

func driverName(q sqlx.QueryerContext) string {
	switch v := q.(type) {
	case *sqlx.DB:
		return v.DriverName()
	case *sqlx.Tx:
		return v.DriverName()
	}
	return ""
}

func (repo *recordRepository) GetRecord(ctx context.Context, name string, id int64) (resource.Record, error) {
	row, err := getRow(ctx, repo.db, name, id)
	if err != nil {
		return resource.Record{}, err
	}
	return row.record()
}

// inTx runs fn in a transaction, committed when fn succeeds.
func (repo *recordRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo *recordRepository) CreateRecord(ctx context.Context, name string, fields resource.Fields) (resource.Record, error) {
	fields = fields.Clone()
	delete(fields, resource.IDField)
	data, err := encodeFields(fields)
	if err != nil {
		return resource.Record{}, err
	}

	var rec resource.Record
	insert := func(tx *sqlx.Tx) error {
		var maxID int64
		q := tx.Rebind(`SELECT COALESCE(MAX(id), 0) FROM records WHERE resource = ?`)
		if err := tx.GetContext(ctx, &maxID, q, name); err != nil {
			return errors.Wrapf(err, "selecting max %s id", name)
		}

		rec = resource.Record{ID: maxID + 1, Fields: fields}
		q = tx.Rebind(`INSERT INTO records (resource, id, data) VALUES (?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, q, name, rec.ID, data); err != nil {
			return errors.Wrapf(err, "inserting %s", name)
		}
		return nil
	}

	// a concurrent create may take the same id first
	for attempt := 1; ; attempt++ {
		err = repo.inTx(ctx, insert)
		if err == nil || attempt == createAttempts || !isUniqueViolation(errors.Cause(err)) {
			break
		}
	}
	if err != nil {
		return resource.Record{}, err
	}
	return rec, nil
}

const createAttempts = 5

func isUniqueViolation(err error) bool {
	switch e := err.(type) {
	case *pq.Error:
		return e.Code == "23505" // unique_violation
	case sqlite3.Error:
		return e.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || e.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func (repo *recordRepository) UpdateRecord(ctx context.Context, name string, id int64, fields resource.Fields) (resource.Record, error) {
	var rec resource.Record
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		row, err := getRow(ctx, tx, name, id)
		if err != nil {
			return err
		}
		if rec, err = row.record(); err != nil {
			return err
		}
		for k, v := range fields {
			if k != resource.IDField {
				rec.Fields[k] = v
			}
		}

		data, err := encodeFields(rec.Fields)
		if err != nil {
			return err
		}
		q := tx.Rebind(`UPDATE records SET data = ? WHERE resource = ? AND id = ?`)
		if _, err = tx.ExecContext(ctx, q, data, name, id); err != nil {
			return errors.Wrapf(err, "updating %s %d", name, id)
		}
		return nil
	})
	if err != nil {
		return resource.Record{}, err
	}
	// reload so numbers have the same types as on read
	return repo.GetRecord(ctx, name, id)
}

func (repo *recordRepository) DeleteRecord(ctx context.Context, name string, id int64) (resource.Record, error) {
	var rec resource.Record
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		row, err := getRow(ctx, tx, name, id)
		if err != nil {
			return err
		}
		if rec, err = row.record(); err != nil {
			return err
		}
		q := tx.Rebind(`DELETE FROM records WHERE resource = ? AND id = ?`)
		if _, err = tx.ExecContext(ctx, q, name, id); err != nil {
			return errors.Wrapf(err, "deleting %s %d", name, id)
		}
		return nil
	})
	if err != nil {
		return resource.Record{}, err
	}
	return rec, nil
}

// Seed inserts records, leaving rows that already exist untouched.
// It returns the number of rows inserted.
func Seed(ctx context.Context, db *sqlx.DB, collections map[string][]resource.Record) (int, error) {
	var inserted int
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	q := tx.Rebind(`INSERT INTO records (resource, id, data) VALUES (?, ?, ?) ON CONFLICT (resource, id) DO NOTHING`)
	for name, records := range collections {
		for _, rec := range records {
			data, err := encodeFields(rec.Fields)
			if err != nil {
				_ = tx.Rollback()
				return 0, err
			}
			res, err := tx.ExecContext(ctx, q, name, rec.ID, data)
			if err != nil {
				_ = tx.Rollback()
				return 0, errors.Wrapf(err, "seeding %s %d", name, rec.ID)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
	}
	return inserted, errors.Wrap(tx.Commit(), "committing seed")
}
