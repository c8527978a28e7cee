package echoapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/kv"
)

const (
	contextClaimsKey  = "claims"
	contextSessionKey = "session"
	contextRoleKey    = "role"
	contextEmailKey   = "email"

	// clientKeyPrefix namespaces the session slots of one API client in the shared store.
	clientKeyPrefix = "client:"
)

// Claims represents the authorization claims transmitted via a JWT.
// The token ID names the client context holding the session marker.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// LogPerson makes Claims usable as the logged in user of a log entry.
func (c Claims) LogPerson() (id, name, email string) {
	return c.Subject, c.Email, c.Email
}

type tokenizer struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

// ClientSession returns the session store of the client named by tokenID.
// Its entries expire after ttl, the lifetime of the client's token.
func ClientSession(sessions core.KVStore, tokenID string, ttl time.Duration) core.KVStore {
	return kv.WithTTL(kv.WithPrefix(sessions, clientKeyPrefix+tokenID+":"), ttl)
}

// Issue signs a token for usr bound to the client context tokenID.
func (tk tokenizer) Issue(tokenID string, usr user.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: usr.Email,
		Role:  usr.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    tk.issuer,
			Subject:   usr.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tk.ttl)),
		},
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tk.key)
	return ss, errors.Wrap(err, "signing token")
}

// Parse validates a token and returns its claims.
func (tk tokenizer) Parse(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tk.key, nil
	}, jwt.WithIssuer(tk.issuer))
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return Claims{}, errors.New("invalid token")
	}
	return *claims, nil
}

func newTokenID() string {
	return uuid.NewString()
}

func bearerToken(ctx echo.Context) (string, bool) {
	authz := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authz[len("bearer "):])
	return token, token != ""
}

func getContextClaims(ctx echo.Context) (Claims, bool) {
	claims, ok := ctx.Get(contextClaimsKey).(Claims)
	return claims, ok
}

// sessionService returns the identity service bound to the request's client context.
// Requests without a valid token get an empty, throwaway client context.
func sessionService(ctx echo.Context, svc *user.Service) *user.Service {
	if session, ok := ctx.Get(contextSessionKey).(core.KVStore); ok {
		return svc.WithSession(session)
	}
	return svc.WithSession(kv.NewMemoryStore())
}

func contextRole(ctx echo.Context) string {
	role, _ := ctx.Get(contextRoleKey).(string)
	return role
}

func contextEmail(ctx echo.Context) string {
	email, _ := ctx.Get(contextEmailKey).(string)
	return email
}
