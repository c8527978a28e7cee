package resource

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/trezcool/shule/core"
)

// applyFilters keeps the records matching every filter.
func applyFilters(records []Record, filters []Filter) []Record {
	if len(filters) == 0 {
		return records
	}
	matched := make([]Record, 0, len(records))
	for _, rec := range records {
		if matchesAll(rec, filters) {
			matched = append(matched, rec)
		}
	}
	return matched
}

func matchesAll(rec Record, filters []Filter) bool {
	for _, f := range filters {
		if !matches(rec, f) {
			return false
		}
	}
	return true
}

func matches(rec Record, f Filter) bool {
	val, _ := rec.Get(f.Field)

	switch f.Operator {
	case OpEq, "":
		return compareValues(val, f.Value) == 0
	case OpNe:
		return compareValues(val, f.Value) != 0
	case OpLt:
		return val != nil && compareValues(val, f.Value) < 0
	case OpLte:
		return val != nil && compareValues(val, f.Value) <= 0
	case OpGt:
		return val != nil && compareValues(val, f.Value) > 0
	case OpGte:
		return val != nil && compareValues(val, f.Value) >= 0
	case OpContains:
		if val == nil {
			return false
		}
		return strings.Contains(strings.ToLower(stringify(val)), strings.ToLower(stringify(f.Value)))
	case OpIn:
		for _, candidate := range toSlice(f.Value) {
			if compareValues(val, candidate) == 0 {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// applySorters sorts records in place; earlier sorters take precedence.
func applySorters(records []Record, sorters []core.Ordering) {
	if len(sorters) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, s := range sorters {
			a, _ := records[i].Get(s.Field)
			b, _ := records[j].Get(s.Field)
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if s.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func paginate(records []Record, p *Pagination) []Record {
	if p == nil || p.Mode == PaginationOff {
		return records
	}
	current, size := p.Current, p.PageSize
	if current < 1 {
		current = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	// compare page counts first: (current-1)*size may overflow
	pages := len(records) / size
	if len(records)%size != 0 {
		pages++
	}
	if current-1 >= pages {
		return []Record{}
	}
	start := (current - 1) * size
	end := len(records)
	if size < end-start {
		end = start + size
	}
	return records[start:end]
}

// compareValues orders two field values. nil sorts first; numbers (or numeric strings
// compared to numbers) compare numerically; anything else compares as text.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aNum && bNum && !(aStr && bStr) {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	if ab, ok := toBool(a); ok {
		if bb, ok := toBool(b); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(stringify(a), stringify(b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	default:
		return false, false
	}
}

func toSlice(v interface{}) []interface{} {
	switch s := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return s
	case []string:
		out := make([]interface{}, 0, len(s))
		for _, item := range s {
			out = append(out, item)
		}
		return out
	case string:
		parts := strings.Split(s, ",")
		out := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]interface{}, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, rv.Index(i).Interface())
		}
		return out
	}
	return []interface{}{v}
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
