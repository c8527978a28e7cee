package database_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/resource"
	"github.com/trezcool/shule/storage/database"
	"github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/storage/database/sqlx"
	"github.com/trezcool/shule/tests"
)

func repositories(t *testing.T) map[string]resource.Repository {
	db := testutil.OpenDB(t)
	_, err := sqlxdb.Seed(context.Background(), db, database.Fixtures())
	require.NoError(t, err)

	return map[string]resource.Repository{
		"inmem": inmemdb.NewRecordRepository(inmemdb.Open(database.Fixtures())),
		"sqlx":  sqlxdb.NewRecordRepository(db),
	}
}

func ids(records []resource.Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.ID)
	}
	return out
}

func TestFixtures(t *testing.T) {
	fx := database.Fixtures()
	assert.Len(t, fx[resource.Users], 6)
	assert.Equal(t, []int64{3, 4, 5, 6}, ids(fx[resource.Students]))
	assert.Equal(t, []int64{2}, ids(fx[resource.Teachers]))
	assert.Len(t, fx[resource.Classes], 3)
	assert.Len(t, fx[resource.Attendance], 3)
	assert.Len(t, fx[resource.Results], 3)

	// copies
	fx[resource.Classes][0].Fields["name"] = "changed"
	assert.Equal(t, "Grade 5A", database.Fixtures()[resource.Classes][0].Fields["name"])
}

func TestRecordRepository(t *testing.T) {
	ctx := context.Background()

	for name, repo := range repositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			names, err := repo.Resources(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, resource.All, names)

			classes, err := repo.QueryRecords(ctx, resource.Classes)
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 2, 3}, ids(classes))

			unknown, err := repo.QueryRecords(ctx, "nope")
			require.NoError(t, err)
			assert.Empty(t, unknown)

			rec, err := repo.GetRecord(ctx, resource.Classes, 2)
			require.NoError(t, err)
			assert.Equal(t, "Grade 6B", rec.Fields["name"])

			_, err = repo.GetRecord(ctx, resource.Classes, 99)
			assert.True(t, core.IsNotFound(err))
			_, err = repo.GetRecord(ctx, "nope", 1)
			assert.True(t, core.IsNotFound(err))

			// create
			created, err := repo.CreateRecord(ctx, resource.Classes, resource.Fields{"name": "Art", "room": "B2"})
			require.NoError(t, err)
			assert.Equal(t, int64(4), created.ID)
			assert.Equal(t, "Art", created.Fields["name"])

			// new collection
			first, err := repo.CreateRecord(ctx, "events", resource.Fields{"title": "Sports day"})
			require.NoError(t, err)
			assert.Equal(t, int64(1), first.ID)

			// update merges
			updated, err := repo.UpdateRecord(ctx, resource.Classes, 4, resource.Fields{"room": "B3", "id": 77})
			require.NoError(t, err)
			assert.Equal(t, int64(4), updated.ID)
			assert.Equal(t, "Art", updated.Fields["name"])
			assert.Equal(t, "B3", updated.Fields["room"])

			_, err = repo.UpdateRecord(ctx, resource.Classes, 99, resource.Fields{"room": "X"})
			assert.True(t, core.IsNotFound(err))

			// delete
			deleted, err := repo.DeleteRecord(ctx, resource.Classes, 4)
			require.NoError(t, err)
			assert.Equal(t, "B3", deleted.Fields["room"])
			_, err = repo.DeleteRecord(ctx, resource.Classes, 4)
			assert.True(t, core.IsNotFound(err))

			classes, err = repo.QueryRecords(ctx, resource.Classes)
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 2, 3}, ids(classes))
		})
	}
}

func TestRecordRepository_failedWritesKeepCollection(t *testing.T) {
	ctx := context.Background()

	for name, repo := range repositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			before, err := repo.QueryRecords(ctx, resource.Results)
			require.NoError(t, err)
			require.Len(t, before, 3)

			_, err = repo.UpdateRecord(ctx, resource.Results, 99, resource.Fields{"score": 1})
			assert.True(t, core.IsNotFound(err))
			after, err := repo.QueryRecords(ctx, resource.Results)
			require.NoError(t, err)
			assert.Equal(t, before, after, "failed update must not change the collection")

			_, err = repo.DeleteRecord(ctx, resource.Results, 99)
			assert.True(t, core.IsNotFound(err))
			after, err = repo.QueryRecords(ctx, resource.Results)
			require.NoError(t, err)
			assert.Equal(t, before, after, "failed delete must not change the collection")

			created, err := repo.CreateRecord(ctx, resource.Results, resource.Fields{"score": 70})
			require.NoError(t, err)
			grown, err := repo.QueryRecords(ctx, resource.Results)
			require.NoError(t, err)
			assert.Len(t, grown, len(before)+1)

			_, err = repo.DeleteRecord(ctx, resource.Results, created.ID)
			require.NoError(t, err)
			after, err = repo.QueryRecords(ctx, resource.Results)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestRecordRepository_concurrentCreates(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewRecordRepository(inmemdb.Open(nil))

	var wg sync.WaitGroup
	created := make(chan int64, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := repo.CreateRecord(ctx, resource.Results, resource.Fields{"score": 50})
			if assert.NoError(t, err) {
				created <- rec.ID
			}
		}()
	}
	wg.Wait()
	close(created)

	var got []int64
	for id := range created {
		got = append(got, id)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := make([]int64, 0, 20)
	for i := int64(1); i <= 20; i++ {
		want = append(want, i)
	}
	assert.Equal(t, want, got)
}

func TestSeed_isIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)

	n, err := sqlxdb.Seed(ctx, db, database.Fixtures())
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	n, err = sqlxdb.Seed(ctx, db, database.Fixtures())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRunMigrations(t *testing.T) {
	db := testutil.OpenDB(t)
	require.NoError(t, database.RunMigrations(db, "status"))
	require.NoError(t, database.RunMigrations(db, "reset"))

	_, err := db.Exec(`SELECT * FROM records`)
	assert.Error(t, err)

	require.NoError(t, database.Migrate(db))
	_, err = db.Exec(`SELECT * FROM records`)
	assert.NoError(t, err)
}
