package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/resource"
	"github.com/trezcool/shule/core/user"
)

// clientMiddleware binds the request to the client context named by its bearer token, if any,
// and loads the session's email and role. Invalid tokens are treated as absent.
func clientMiddleware(tk tokenizer, sessions core.KVStore, svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tokenStr, ok := bearerToken(ctx)
			if !ok {
				return next(ctx)
			}
			claims, err := tk.Parse(tokenStr)
			if err != nil {
				return next(ctx)
			}
			ctx.Set(contextClaimsKey, claims)
			ctx.Set(contextSessionKey, ClientSession(sessions, claims.ID, tk.ttl))

			bound := sessionService(ctx, svc)
			reqCtx := ctx.Request().Context()
			role, _, err := bound.GetPermissions(reqCtx)
			if err != nil {
				return errors.Wrap(err, "reading session role")
			}
			email, _, err := bound.SessionEmail(reqCtx)
			if err != nil {
				return errors.Wrap(err, "reading session email")
			}
			ctx.Set(contextRoleKey, role)
			ctx.Set(contextEmailKey, email)
			return next(ctx)
		}
	}
}

// authMiddleware rejects requests whose client context holds no session.
func authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if contextRole(ctx) == "" {
			return errUnauthorized
		}
		return next(ctx)
	}
}

func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			role := contextRole(ctx)
			for _, r := range roles {
				if r == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// selfOrAdminMiddleware allows admins, and users acting on their own directory entry.
func selfOrAdminMiddleware(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if contextRole(ctx) == user.RoleAdmin {
				return next(ctx)
			}
			if email := contextEmail(ctx); email != "" && email == core.CleanString(ctx.Param(param), true /* lower */) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// resourcePolicyMiddleware applies the role policy of the resource routes:
// admins do everything, teachers read everything and write attendance and results,
// students read classes, attendance and results.
func resourcePolicyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		name := core.CleanString(ctx.Param("resource"), true /* lower */)
		write := ctx.Request().Method != http.MethodGet && ctx.Request().Method != http.MethodHead
		if !canAccess(contextRole(ctx), name, write) {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

var (
	teacherWritable = map[string]bool{resource.Attendance: true, resource.Results: true}
	studentReadable = map[string]bool{resource.Classes: true, resource.Attendance: true, resource.Results: true}
)

func canAccess(role, name string, write bool) bool {
	switch role {
	case user.RoleAdmin:
		return true
	case user.RoleTeacher:
		return !write || teacherWritable[name]
	case user.RoleStudent:
		return !write && studentReadable[name]
	default:
		return false
	}
}
