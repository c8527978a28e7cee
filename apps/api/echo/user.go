package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type userApi struct {
	svc        *user.Service
	sessions   core.KVStore
	tokens     tokenizer
	validate   *validator.Validate
	translator ut.Translator
}

func registerUserAPI(g *echo.Group, api *userApi) {
	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
	ag.GET("/check", api.check)
	ag.GET("/permissions", api.permissions)
	ag.GET("/identity", api.identity)
	ag.POST("/register", api.register, authMiddleware, roleMiddleware(user.RoleAdmin))

	dg := g.Group("/directory", authMiddleware)
	dg.GET("", api.query, roleMiddleware(user.RoleAdmin))
	dg.PUT("/:email/avatar", api.updateAvatar, selfOrAdminMiddleware("email"))
	dg.PUT("/:email/profile", api.updateProfile, selfOrAdminMiddleware("email"))
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// a client logging in again keeps its context
	tokenID := newTokenID()
	if claims, ok := getContextClaims(ctx); ok {
		tokenID = claims.ID
	}
	svc := api.svc.WithSession(ClientSession(api.sessions, tokenID, api.tokens.ttl))

	res, err := svc.Login(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	usr, err := svc.GetByEmail(ctx.Request().Context(), data.Email)
	if err != nil {
		return errors.Wrap(err, "finding user by email")
	}
	token, err := api.tokens.Issue(tokenID, usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, AuthResult: res})
}

func (api *userApi) logout(ctx echo.Context) error {
	res, err := sessionService(ctx, api.svc).Logout(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *userApi) check(ctx echo.Context) error {
	res, err := sessionService(ctx, api.svc).CheckSession(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "checking session")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *userApi) permissions(ctx echo.Context) error {
	role, ok, err := sessionService(ctx, api.svc).GetPermissions(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting permissions")
	}
	var res PermissionsResponse
	if ok {
		res.Role = &role
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *userApi) identity(ctx echo.Context) error {
	id, err := sessionService(ctx, api.svc).GetIdentity(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting identity")
	}
	return ctx.JSON(http.StatusOK, id)
}

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.svc.ListUsers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) updateAvatar(ctx echo.Context) error {
	var data AvatarRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AvatarRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := api.svc.UpdateAvatar(ctx.Request().Context(), ctx.Param("email"), data.Avatar)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateProfile(ctx echo.Context) error {
	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.UpdateProfile(ctx.Request().Context(), ctx.Param("email"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}
