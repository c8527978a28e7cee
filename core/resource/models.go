package resource

import (
	"encoding/json"

	"github.com/trezcool/shule/core"
)

// Resources
const (
	Students   = "students"
	Teachers   = "teachers"
	Classes    = "classes"
	Attendance = "attendance"
	Results    = "results"
	Users      = "users"
)

var All = []string{Students, Teachers, Classes, Attendance, Results, Users}

// IDField is reserved; it always holds Record.ID.
const IDField = "id"

// Fields is the open set of values of a Record. References to other records
// (classId, studentId...) are not checked.
type Fields map[string]interface{}

func (f Fields) Clone() Fields {
	c := make(Fields, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// withoutID returns a copy of f without the reserved id key.
func (f Fields) withoutID() Fields {
	c := f.Clone()
	delete(c, IDField)
	return c
}

// Record is a row of a resource collection. It is encoded as a flat JSON object.
type Record struct {
	ID     int64
	Fields Fields
}

// Get returns the value of field, with "id" mapped to the Record ID.
func (r Record) Get(field string) (interface{}, bool) {
	if field == IDField {
		return r.ID, true
	}
	v, ok := r.Fields[field]
	return v, ok
}

func (r Record) Clone() Record {
	return Record{ID: r.ID, Fields: r.Fields.Clone()}
}

func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(r.Fields)+1)
	for k, v := range r.Fields {
		m[k] = v
	}
	m[IDField] = r.ID
	return json.Marshal(m)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var fields Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.ID = 0
	if id, ok := toFloat(fields[IDField]); ok {
		r.ID = int64(id)
	}
	r.Fields = fields.withoutID()
	return nil
}

// Filter operators
const (
	OpEq       = "eq"
	OpNe       = "ne"
	OpLt       = "lt"
	OpLte      = "lte"
	OpGt       = "gt"
	OpGte      = "gte"
	OpContains = "contains"
	OpIn       = "in"
)

var Operators = []string{OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpContains, OpIn}

func IsOperator(op string) bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

type Filter struct {
	Field    string
	Operator string
	Value    interface{} // a slice for OpIn
}

// Pagination is 1-based. Mode "off" returns every record.
type Pagination struct {
	Current  int
	PageSize int
	Mode     string
}

const (
	PaginationOff   = "off"
	DefaultPageSize = 10
)

// ListParams are all optional; the zero value lists the whole collection.
type ListParams struct {
	Pagination *Pagination
	Filters    []Filter
	Sorters    []core.Ordering
}

type ListResult struct {
	Data  []Record `json:"data"`
	Total int      `json:"total"`
}
