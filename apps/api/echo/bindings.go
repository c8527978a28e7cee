package echoapi

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/resource"
	"github.com/trezcool/shule/core/user"
)

// query params of the list endpoint; any other param is a filter: `field=value` or `field__op=value`.
const (
	pageParam       = "_page"
	pageSizeParam   = "_page_size"
	paginationParam = "_pagination"
	orderingParam   = "ordering"

	operatorSep = "__"
)

// bindListParams builds resource.ListParams from the query string.
func bindListParams(ctx echo.Context) (resource.ListParams, error) {
	return parseListParams(ctx.QueryParams())
}

func parseListParams(data url.Values) (resource.ListParams, error) {
	var params resource.ListParams
	var fldErrs []core.FieldError

	intParam := func(name string) int {
		val := data.Get(name)
		if val == "" {
			return 0
		}
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			fldErrs = append(fldErrs, core.FieldError{Field: name, Error: "must be a positive integer"})
			return 0
		}
		return n
	}

	page, pageSize := intParam(pageParam), intParam(pageSizeParam)
	mode := core.CleanString(data.Get(paginationParam), true /* lower */)
	if page > 0 || pageSize > 0 || mode != "" {
		params.Pagination = &resource.Pagination{Current: page, PageSize: pageSize, Mode: mode}
	}
	params.Sorters = core.ParseOrdering(data.Get(orderingParam))

	// stable filter order
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch key {
		case pageParam, pageSizeParam, paginationParam, orderingParam:
			continue
		}
		field, op := key, resource.OpEq
		if i := strings.LastIndex(key, operatorSep); i > 0 {
			field, op = key[:i], key[i+len(operatorSep):]
			if !resource.IsOperator(op) {
				fldErrs = append(fldErrs, core.FieldError{Field: key, Error: "unknown operator " + op})
				continue
			}
		}
		for _, val := range data[key] {
			params.Filters = append(params.Filters, resource.Filter{Field: field, Operator: op, Value: val})
		}
	}

	if len(fldErrs) > 0 {
		return resource.ListParams{}, core.NewValidationError(nil, fldErrs...)
	}
	return params, nil
}

func parseID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, core.NewValidationError(nil, core.FieldError{Field: "id", Error: "must be an integer"})
	}
	return id, nil
}

// Request/Response bodies

type LoginResponse struct {
	Token string `json:"token"`
	user.AuthResult
}

type PermissionsResponse struct {
	Role *string `json:"role"`
}

type AvatarRequest struct {
	Avatar string `json:"avatar" validate:"required,url"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
