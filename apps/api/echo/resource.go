package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/resource"
)

const headerTotalCount = "X-Total-Count"

type resourceApi struct {
	svc *resource.Service
}

func registerResourceAPI(g *echo.Group, api *resourceApi) {
	rg := g.Group("/resources", authMiddleware)
	rg.GET("", api.resources)

	pg := rg.Group("/:resource", resourcePolicyMiddleware)
	pg.GET("", api.list)
	pg.POST("", api.create)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update)
	pg.DELETE("/:id", api.destroy)
}

func bindFields(ctx echo.Context) (resource.Fields, error) {
	fields := make(resource.Fields)
	if err := (&echo.DefaultBinder{}).BindBody(ctx, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Handlers

func (api *resourceApi) resources(ctx echo.Context) error {
	names, err := api.svc.Resources(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	return ctx.JSON(http.StatusOK, names)
}

func (api *resourceApi) list(ctx echo.Context) error {
	params, err := bindListParams(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.List(ctx.Request().Context(), ctx.Param("resource"), params)
	if err != nil {
		return err
	}
	ctx.Response().Header().Set(headerTotalCount, strconv.Itoa(res.Total))
	return ctx.JSON(http.StatusOK, res)
}

func (api *resourceApi) retrieve(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.GetOne(ctx.Request().Context(), ctx.Param("resource"), id)
	if err != nil {
		return err
	}
	if rec == nil {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *resourceApi) create(ctx echo.Context) error {
	fields, err := bindFields(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.Create(ctx.Request().Context(), ctx.Param("resource"), fields)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *resourceApi) update(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	fields, err := bindFields(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.Update(ctx.Request().Context(), ctx.Param("resource"), id, fields)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *resourceApi) destroy(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("resource"), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}
