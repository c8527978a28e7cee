package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const (
	SessionEmailKey = "auth.email"
	SessionRoleKey  = "auth.role"

	RedirectHome  = "/"
	RedirectLogin = "/login"

	DefaultAvatar = "https://i.pravatar.cc/150?u=a042581f4e29026024d"
)

// PlaceholderIdentity is returned by GetIdentity when the session's user cannot be found.
var PlaceholderIdentity = Identity{Name: "John Doe", Avatar: DefaultAvatar}

type (
	Repository interface {
		QueryAllUsers(ctx context.Context) ([]User, error)
		// GetUserByEmail does a case-insensitive lookup.
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// CreateUser assigns the ID. Fails with core.DuplicateEmailError.
		CreateUser(ctx context.Context, usr User) (User, error)
		// UpdateUser applies update to the user atomically. Fails with core.NotFoundError.
		UpdateUser(ctx context.Context, email string, update func(usr *User)) (User, error)
	}

	// Service is the session & identity provider.
	// The session marker lives in the session store, which represents one client context.
	Service struct {
		repo         Repository
		session      core.KVStore
		logger       core.Logger
		passwordCost int
	}
)

func NewService(repo Repository, session core.KVStore, logger core.Logger, passwordCost int) *Service {
	return &Service{
		repo:         repo,
		session:      session,
		logger:       logger,
		passwordCost: passwordCost,
	}
}

// WithSession returns a copy of the Service bound to another client context.
func (svc *Service) WithSession(session core.KVStore) *Service {
	s := *svc
	s.session = session
	return &s
}

func (svc *Service) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(creds.Email, true /* lower */))
	if err != nil {
		if core.IsNotFound(err) {
			return AuthResult{}, core.NewAuthenticationError()
		}
		return AuthResult{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(creds.Password); err != nil {
		return AuthResult{}, core.NewAuthenticationError()
	}
	if role := core.CleanString(creds.Role, true /* lower */); role != "" && role != usr.Role {
		return AuthResult{}, core.NewAuthenticationError()
	}

	if err = svc.session.Set(ctx, SessionEmailKey, usr.Email); err != nil {
		return AuthResult{}, errors.Wrap(err, "saving session email")
	}
	if err = svc.session.Set(ctx, SessionRoleKey, usr.Role); err != nil {
		_ = svc.session.Delete(ctx, SessionEmailKey)
		return AuthResult{}, errors.Wrap(err, "saving session role")
	}

	svc.logger.Info("user logged in", usr)
	return AuthResult{Success: true, RedirectTo: RedirectHome}, nil
}

func (svc *Service) Logout(ctx context.Context) (AuthResult, error) {
	if err := svc.session.Delete(ctx, SessionEmailKey, SessionRoleKey); err != nil {
		return AuthResult{}, errors.Wrap(err, "clearing session")
	}
	return AuthResult{Success: true, RedirectTo: RedirectLogin}, nil
}

// CheckSession only checks that a session marker is present.
// A user removed from the directory stays authenticated until logout.
func (svc *Service) CheckSession(ctx context.Context) (CheckResult, error) {
	email, err := svc.sessionValue(ctx, SessionEmailKey)
	if err != nil {
		return CheckResult{}, err
	}
	if email == "" {
		return CheckResult{Authenticated: false, RedirectTo: RedirectLogin}, nil
	}
	return CheckResult{Authenticated: true}, nil
}

// GetPermissions returns the role of the current session.
func (svc *Service) GetPermissions(ctx context.Context) (string, bool, error) {
	role, err := svc.sessionValue(ctx, SessionRoleKey)
	if err != nil {
		return "", false, err
	}
	return role, role != "", nil
}

// SessionEmail returns the email of the current session, if any.
func (svc *Service) SessionEmail(ctx context.Context) (string, bool, error) {
	email, err := svc.sessionValue(ctx, SessionEmailKey)
	if err != nil {
		return "", false, err
	}
	return email, email != "", nil
}

func (svc *Service) GetIdentity(ctx context.Context) (Identity, error) {
	email, err := svc.sessionValue(ctx, SessionEmailKey)
	if err != nil {
		return Identity{}, err
	}
	if email == "" {
		return PlaceholderIdentity, nil
	}

	usr, err := svc.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return PlaceholderIdentity, nil
		}
		return Identity{}, errors.Wrap(err, "finding user by email")
	}

	avatar := usr.Avatar
	if avatar == "" {
		avatar = DefaultAvatar
	}
	return Identity{ID: usr.ID, Name: usr.Name, Avatar: avatar, Role: usr.Role}, nil
}

// Register adds a user to the directory. It does not log the user in.
// nu is expected to have been validated with NewUser.Validate.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Email:     core.CleanString(nu.Email, true /* lower */),
		Name:      nu.defaultName(),
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password, svc.passwordCost); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if core.IsDuplicateEmail(err) {
			return User{}, err
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	svc.logger.Info("user registered", usr)
	return usr, nil
}

func (svc *Service) UpdateAvatar(ctx context.Context, email, avatar string) (User, error) {
	return svc.repo.UpdateUser(ctx, email, func(usr *User) {
		usr.Avatar = avatar
		usr.UpdatedAt = time.Now().UTC()
	})
}

func (svc *Service) UpdateProfile(ctx context.Context, email string, up UpdateProfile) (User, error) {
	return svc.repo.UpdateUser(ctx, email, func(usr *User) {
		if up.Name != nil {
			usr.Name = *up.Name
		}
		if len(up.Profile) > 0 {
			usr.Profile = usr.Profile.Merge(up.Profile)
		}
		usr.UpdatedAt = time.Now().UTC()
	})
}

func (svc *Service) ChangePassword(ctx context.Context, email, pwd string) (User, error) {
	var hashed User
	if err := hashed.SetPassword(pwd, svc.passwordCost); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdateUser(ctx, email, func(usr *User) {
		usr.PasswordHash = hashed.PasswordHash
		usr.UpdatedAt = time.Now().UTC()
	})
}

func (svc *Service) ListUsers(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) sessionValue(ctx context.Context, key string) (string, error) {
	val, err := svc.session.Get(ctx, key)
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return "", nil
		}
		return "", errors.Wrap(err, "reading session")
	}
	return val, nil
}
