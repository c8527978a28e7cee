package resource_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/resource"
	"github.com/trezcool/shule/storage/database"
	"github.com/trezcool/shule/storage/database/inmem"
)

func setup(opts ...resource.Options) *resource.Service {
	var o resource.Options
	if len(opts) > 0 {
		o = opts[0]
	}
	repo := inmemdb.NewRecordRepository(inmemdb.Open(database.Fixtures()))
	return resource.NewService(repo, core.NopLogger(), o)
}

func recordIDs(records []resource.Record) []int64 {
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	return ids
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc := setup()

	tests := []struct {
		name      string
		resource  string
		params    resource.ListParams
		wantIDs   []int64
		wantTotal int
	}{
		{name: "whole collection", resource: resource.Users, wantIDs: []int64{1, 2, 3, 4, 5, 6}, wantTotal: 6},
		{name: "derived collection", resource: resource.Students, wantIDs: []int64{3, 4, 5, 6}, wantTotal: 4},
		{name: "unknown resource", resource: "parents", wantIDs: []int64{}, wantTotal: 0},
		{name: "resource name is cleaned", resource: " Classes ", wantIDs: []int64{1, 2, 3}, wantTotal: 3},
		{
			name:      "paged",
			resource:  resource.Users,
			params:    resource.ListParams{Pagination: &resource.Pagination{Current: 2, PageSize: 4}},
			wantIDs:   []int64{5, 6},
			wantTotal: 6,
		},
		{
			name:      "paging off",
			resource:  resource.Users,
			params:    resource.ListParams{Pagination: &resource.Pagination{Current: 2, PageSize: 4, Mode: resource.PaginationOff}},
			wantIDs:   []int64{1, 2, 3, 4, 5, 6},
			wantTotal: 6,
		},
		{
			name:     "filtered total",
			resource: resource.Attendance,
			params: resource.ListParams{
				Filters:    []resource.Filter{{Field: "status", Operator: resource.OpEq, Value: "present"}},
				Pagination: &resource.Pagination{Current: 1, PageSize: 1},
			},
			wantIDs:   []int64{1},
			wantTotal: 2,
		},
		{
			name:     "sorted then paged",
			resource: resource.Results,
			params: resource.ListParams{
				Sorters:    core.ParseOrdering("score"),
				Pagination: &resource.Pagination{Current: 1, PageSize: 2},
			},
			wantIDs:   []int64{3, 2},
			wantTotal: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.List(ctx, tt.resource, tt.params)
			require.NoError(t, err)
			assert.NotNil(t, res.Data)
			assert.Equal(t, tt.wantIDs, recordIDs(res.Data))
			assert.Equal(t, tt.wantTotal, res.Total)
		})
	}
}

func TestService_List_hugePage(t *testing.T) {
	res, err := setup().List(context.Background(), resource.Users, resource.ListParams{
		Pagination: &resource.Pagination{Current: math.MaxInt, PageSize: 2},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.Equal(t, 6, res.Total)
}

func TestService_List_errors(t *testing.T) {
	ctx := context.Background()
	svc := setup()

	_, err := svc.List(ctx, "  ", resource.ListParams{})
	assert.True(t, core.IsValidation(err))

	_, err = svc.List(ctx, resource.Users, resource.ListParams{Filters: []resource.Filter{{Field: "role", Operator: "like", Value: "adm"}}})
	assert.True(t, core.IsValidation(err))
}

func TestService_GetOne(t *testing.T) {
	ctx := context.Background()
	svc := setup()

	rec, err := svc.GetOne(ctx, resource.Classes, 3)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Science Club", rec.Fields["name"])

	rec, err = svc.GetOne(ctx, resource.Classes, 42)
	assert.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = svc.GetOne(ctx, "parents", 1)
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := setup()

	rec, err := svc.Create(ctx, resource.Attendance, resource.Fields{"id": 1, "studentId": 6, "classId": 1, "status": "late"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), rec.ID)
	assert.NotContains(t, rec.Fields, "id")

	first, err := svc.GetOne(ctx, resource.Attendance, 1)
	require.NoError(t, err)
	assert.Equal(t, "present", first.Fields["status"], "existing record untouched")

	// unknown collections are created
	rec, err = svc.Create(ctx, "parents", resource.Fields{"name": "Harry Wormwood"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)

	res, err := svc.List(ctx, "parents", resource.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	names, err := svc.Resources(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "parents")
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := setup()

	rec, err := svc.Update(ctx, resource.Results, 3, resource.Fields{"score": 81, "grade": "B+", "id": 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.ID)
	assert.Equal(t, 81, rec.Fields["score"])
	assert.Equal(t, "Mathematics", rec.Fields["subject"])

	before, err := svc.List(ctx, resource.Results, resource.ListParams{})
	require.NoError(t, err)

	_, err = svc.Update(ctx, resource.Results, 99, resource.Fields{"score": 1})
	assert.True(t, core.IsNotFound(err))

	after, err := svc.List(ctx, resource.Results, resource.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, after.Total)
	assert.Equal(t, before.Data, after.Data, "failed update must not change the collection")
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := setup()

	rec, err := svc.Delete(ctx, resource.Teachers, 2)
	require.NoError(t, err)
	assert.Equal(t, "Ms. Jennifer Honey", rec.Fields["fullName"])

	_, err = svc.Delete(ctx, resource.Teachers, 2)
	assert.True(t, core.IsNotFound(err))

	// create then delete restores the collection
	before, err := svc.List(ctx, resource.Classes, resource.ListParams{})
	require.NoError(t, err)
	created, err := svc.Create(ctx, resource.Classes, resource.Fields{"name": "Art"})
	require.NoError(t, err)
	grown, err := svc.List(ctx, resource.Classes, resource.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, before.Total+1, grown.Total)

	_, err = svc.Delete(ctx, resource.Classes, created.ID)
	require.NoError(t, err)
	after, err := svc.List(ctx, resource.Classes, resource.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, before.Total, after.Total)
	assert.Equal(t, before.Data, after.Data)

	_, err = svc.Delete(ctx, resource.Classes, 99)
	assert.True(t, core.IsNotFound(err))
	after, err = svc.List(ctx, resource.Classes, resource.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, before.Data, after.Data, "failed delete must not change the collection")

	// the users collection is independent
	usr, err := svc.GetOne(ctx, resource.Users, 2)
	require.NoError(t, err)
	assert.NotNil(t, usr)
}

func TestService_latency(t *testing.T) {
	svc := setup(resource.Options{Latency: 20 * time.Millisecond})

	start := time.Now()
	_, err := svc.List(context.Background(), resource.Classes, resource.ListParams{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.GetOne(ctx, resource.Classes, 1)
	assert.Equal(t, context.Canceled, err)
}
