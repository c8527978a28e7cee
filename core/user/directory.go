package user

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const (
	DirectoryKey = "auth.users"

	// DefaultPassword is the password of the seeded accounts.
	DefaultPassword = "password"
)

var seedAccounts = []struct {
	email, name, role string
	profile           Profile
}{
	{email: "admin@school.com", name: "Principal Anderson", role: RoleAdmin,
		profile: Profile{ProfileDepartment: "Administration", ProfilePhone: "555-0100"}},
	{email: "teacher@school.com", name: "Ms. Jennifer Honey", role: RoleTeacher,
		profile: Profile{ProfileSubject: "Mathematics", ProfileQualification: "M.Ed", ProfileExperienceYears: "8"}},
	{email: "student@school.com", name: "Matilda Wormwood", role: RoleStudent,
		profile: Profile{ProfileGrade: "5", ProfileSection: "A", ProfileStudentID: "5A-001", ProfileParentName: "Harry Wormwood"}},
}

// entry is the persisted shape of a User.
type entry struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Password  []byte    `json:"password"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	Profile   Profile   `json:"profile,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toEntry(usr User) entry {
	return entry{
		ID:        usr.ID,
		Email:     usr.Email,
		Password:  usr.PasswordHash,
		Role:      usr.Role,
		Name:      usr.Name,
		Avatar:    usr.Avatar,
		Profile:   usr.Profile,
		CreatedAt: usr.CreatedAt,
		UpdatedAt: usr.UpdatedAt,
	}
}

func (e entry) user() User {
	return User{
		ID:           e.ID,
		Email:        e.Email,
		PasswordHash: e.Password,
		Role:         e.Role,
		Name:         e.Name,
		Avatar:       e.Avatar,
		Profile:      e.Profile,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// Directory is a Repository keeping every user under a single key of a core.KVStore.
// The whole directory is read, modified and written back under one mutex.
type Directory struct {
	store        core.KVStore
	logger       core.Logger
	passwordCost int
	mutex        sync.Mutex
}

var _ Repository = (*Directory)(nil) // interface compliance check

func NewDirectory(store core.KVStore, logger core.Logger, passwordCost int) *Directory {
	return &Directory{
		store:        store,
		logger:       logger,
		passwordCost: passwordCost,
	}
}

// load reads the directory, seeding it when it is missing, empty or cannot be decoded.
// Must be called with the mutex held.
func (d *Directory) load(ctx context.Context) ([]User, error) {
	raw, err := d.store.Get(ctx, DirectoryKey)
	if err != nil && errors.Cause(err) != core.ErrKeyNotFound {
		return nil, errors.Wrap(err, "reading directory")
	}

	var entries []entry
	if err == nil {
		if jErr := json.Unmarshal([]byte(raw), &entries); jErr != nil {
			d.logger.Warn("corrupt directory, reseeding", jErr)
			entries = nil
		}
	}
	if len(entries) == 0 {
		return d.seed(ctx)
	}

	users := make([]User, 0, len(entries))
	for _, e := range entries {
		users = append(users, e.user())
	}
	return users, nil
}

func (d *Directory) seed(ctx context.Context) ([]User, error) {
	now := time.Now().UTC()
	users := make([]User, 0, len(seedAccounts))
	for i, acc := range seedAccounts {
		usr := User{
			ID:        i + 1,
			Email:     acc.email,
			Name:      acc.name,
			Role:      acc.role,
			Profile:   acc.profile.clone(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := usr.SetPassword(DefaultPassword, d.passwordCost); err != nil {
			return nil, errors.Wrap(err, "hashing seed password")
		}
		users = append(users, usr)
	}
	if err := d.save(ctx, users); err != nil {
		return nil, errors.Wrap(err, "saving seeded directory")
	}
	d.logger.Info("directory seeded", map[string]interface{}{"users": len(users)})
	return users, nil
}

// save must be called with the mutex held.
func (d *Directory) save(ctx context.Context, users []User) error {
	entries := make([]entry, 0, len(users))
	for _, usr := range users {
		entries = append(entries, toEntry(usr))
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "encoding directory")
	}
	return errors.Wrap(d.store.Set(ctx, DirectoryKey, string(data)), "writing directory")
}

func (d *Directory) QueryAllUsers(ctx context.Context) ([]User, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	users, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]User, 0, len(users))
	for _, usr := range users {
		result = append(result, usr.clone())
	}
	return result, nil
}

func (d *Directory) GetUserByEmail(ctx context.Context, email string) (User, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	users, err := d.load(ctx)
	if err != nil {
		return User{}, err
	}
	if i := indexOf(users, email); i >= 0 {
		return users[i].clone(), nil
	}
	return User{}, core.NewNotFoundError("user", email)
}

func (d *Directory) CreateUser(ctx context.Context, usr User) (User, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	users, err := d.load(ctx)
	if err != nil {
		return User{}, err
	}
	usr.Email = core.CleanString(usr.Email, true /* lower */)
	if indexOf(users, usr.Email) >= 0 {
		return User{}, core.NewDuplicateEmailError(usr.Email)
	}

	var maxID int
	for _, u := range users {
		if u.ID > maxID {
			maxID = u.ID
		}
	}
	usr.ID = maxID + 1
	usr = usr.clone()

	if err := d.save(ctx, append(users, usr)); err != nil {
		return User{}, err
	}
	return usr.clone(), nil
}

func (d *Directory) UpdateUser(ctx context.Context, email string, update func(usr *User)) (User, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	users, err := d.load(ctx)
	if err != nil {
		return User{}, err
	}
	i := indexOf(users, email)
	if i < 0 {
		return User{}, core.NewNotFoundError("user", email)
	}

	usr := users[i].clone()
	update(&usr)
	usr.ID = users[i].ID       // immutable
	usr.Email = users[i].Email // immutable
	users[i] = usr

	if err := d.save(ctx, users); err != nil {
		return User{}, err
	}
	return usr.clone(), nil
}

// indexOf does a case-insensitive email lookup.
func indexOf(users []User, email string) int {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return -1
	}
	for i, usr := range users {
		if core.CleanString(usr.Email, true /* lower */) == email {
			return i
		}
	}
	return -1
}
