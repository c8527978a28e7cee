package resource

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
)

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want int
	}{
		{name: "nils", want: 0},
		{name: "nil first", a: nil, b: 1, want: -1},
		{name: "nil last", a: "x", b: nil, want: 1},
		{name: "ints", a: 2, b: 10, want: -1},
		{name: "int and float", a: int64(3), b: float64(3), want: 0},
		{name: "number and numeric string", a: 98, b: "98", want: 0},
		{name: "json number", a: json.Number("72"), b: 95, want: -1},
		{name: "strings compare as text", a: "10", b: "9", want: -1},
		{name: "strings", a: "Grade 6B", b: "Grade 5A", want: 1},
		{name: "bools", a: false, b: true, want: -1},
		{name: "bool and string", a: true, b: "true", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareValues(tt.a, tt.b))
		})
	}
}

func records() []Record {
	return []Record{
		{ID: 1, Fields: Fields{"studentId": 3, "subject": "Mathematics", "score": 98, "grade": "A+"}},
		{ID: 2, Fields: Fields{"studentId": 3, "subject": "Science", "score": 95, "grade": "A"}},
		{ID: 3, Fields: Fields{"studentId": 4, "subject": "Mathematics", "score": 72, "grade": "B"}},
		{ID: 4, Fields: Fields{"studentId": 5, "subject": "History", "score": 95}},
	}
}

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters []Filter
		want    []int64
	}{
		{name: "none", want: []int64{1, 2, 3, 4}},
		{name: "eq", filters: []Filter{{Field: "subject", Operator: OpEq, Value: "Mathematics"}}, want: []int64{1, 3}},
		{name: "default operator", filters: []Filter{{Field: "studentId", Value: "3"}}, want: []int64{1, 2}},
		{name: "ne", filters: []Filter{{Field: "studentId", Operator: OpNe, Value: 3}}, want: []int64{3, 4}},
		{name: "lt", filters: []Filter{{Field: "score", Operator: OpLt, Value: 95}}, want: []int64{3}},
		{name: "lte", filters: []Filter{{Field: "score", Operator: OpLte, Value: "95"}}, want: []int64{2, 3, 4}},
		{name: "gt", filters: []Filter{{Field: "score", Operator: OpGt, Value: 95}}, want: []int64{1}},
		{name: "gte", filters: []Filter{{Field: "score", Operator: OpGte, Value: 95}}, want: []int64{1, 2, 4}},
		{name: "contains", filters: []Filter{{Field: "subject", Operator: OpContains, Value: "MATH"}}, want: []int64{1, 3}},
		{name: "in slice", filters: []Filter{{Field: "studentId", Operator: OpIn, Value: []interface{}{4, 5}}}, want: []int64{3, 4}},
		{name: "in csv", filters: []Filter{{Field: "id", Operator: OpIn, Value: "1, 4"}}, want: []int64{1, 4}},
		{name: "missing field eq", filters: []Filter{{Field: "grade", Operator: OpEq, Value: "A"}}, want: []int64{2}},
		{name: "missing field gt", filters: []Filter{{Field: "grade", Operator: OpGt, Value: ""}}, want: []int64{1, 2, 3}},
		{name: "and", filters: []Filter{
			{Field: "subject", Operator: OpEq, Value: "Mathematics"},
			{Field: "score", Operator: OpGt, Value: 80},
		}, want: []int64{1}},
		{name: "unknown operator", filters: []Filter{{Field: "score", Operator: "like", Value: 1}}, want: []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyFilters(records(), tt.filters)
			ids := make([]int64, 0, len(got))
			for _, rec := range got {
				ids = append(ids, rec.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestApplySorters(t *testing.T) {
	tests := []struct {
		name    string
		sorters []core.Ordering
		want    []int64
	}{
		{name: "none", want: []int64{1, 2, 3, 4}},
		{name: "desc id", sorters: core.ParseOrdering("-id"), want: []int64{4, 3, 2, 1}},
		{name: "score stable", sorters: core.ParseOrdering("score"), want: []int64{3, 2, 4, 1}},
		{name: "score desc then subject", sorters: core.ParseOrdering("-score,subject"), want: []int64{1, 4, 2, 3}},
		{name: "missing values first", sorters: core.ParseOrdering("grade"), want: []int64{4, 2, 1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := records()
			applySorters(recs, tt.sorters)
			ids := make([]int64, 0, len(recs))
			for _, rec := range recs {
				ids = append(ids, rec.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name string
		p    *Pagination
		want int
	}{
		{name: "nil", want: 25},
		{name: "off", p: &Pagination{Current: 2, PageSize: 5, Mode: PaginationOff}, want: 25},
		{name: "defaults", p: &Pagination{}, want: 10},
		{name: "last partial page", p: &Pagination{Current: 3, PageSize: 10}, want: 5},
		{name: "past the end", p: &Pagination{Current: 4, PageSize: 10}, want: 0},
		{name: "huge page", p: &Pagination{Current: math.MaxInt, PageSize: 2}, want: 0},
		{name: "huge page size", p: &Pagination{Current: 1, PageSize: math.MaxInt}, want: 25},
		{name: "huge page and page size", p: &Pagination{Current: math.MaxInt, PageSize: math.MaxInt}, want: 0},
		{name: "exact last page", p: &Pagination{Current: 5, PageSize: 5}, want: 5},
	}
	recs := make([]Record, 25)
	for i := range recs {
		recs[i] = Record{ID: int64(i + 1)}
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paginate(recs, tt.p)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.want)
		})
	}

	page := paginate(recs, &Pagination{Current: 2, PageSize: 10})
	assert.Equal(t, int64(11), page[0].ID)
}

func TestRecord_JSON(t *testing.T) {
	rec := Record{ID: 7, Fields: Fields{"name": "Art", "id": 99}}
	data, err := json.Marshal(rec)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"id": 7, "name": "Art"}`, string(data))

	var decoded Record
	assert.NoError(t, json.Unmarshal([]byte(`{"id": 3, "room": "101"}`), &decoded))
	assert.Equal(t, int64(3), decoded.ID)
	assert.Equal(t, Fields{"room": "101"}, decoded.Fields)
}
