package user

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Profile keys
const (
	ProfilePhone           = "phone"
	ProfileAddress         = "address"
	ProfileBio             = "bio"
	ProfileDepartment      = "department"
	ProfileSubject         = "subject"
	ProfileQualification   = "qualification"
	ProfileExperienceYears = "experience_years"
	ProfileGrade           = "grade"
	ProfileSection         = "section"
	ProfileStudentID       = "student_id"
	ProfileAdmissionYear   = "admission_year"
	ProfileParentName      = "parent_name"
	ProfileParentPhone     = "parent_phone"
)

var ProfileKeys = []string{
	ProfilePhone, ProfileAddress, ProfileBio, ProfileDepartment, ProfileSubject, ProfileQualification,
	ProfileExperienceYears, ProfileGrade, ProfileSection, ProfileStudentID, ProfileAdmissionYear,
	ProfileParentName, ProfileParentPhone,
}

func IsProfileKey(key string) bool {
	for _, k := range ProfileKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Profile holds role specific optional attributes. Fields that do not apply are absent.
type Profile map[string]string

// Merge returns a copy of p with the keys of other set on it.
func (p Profile) Merge(other Profile) Profile {
	merged := make(Profile, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

func (p Profile) clone() Profile {
	if p == nil {
		return nil
	}
	return p.Merge(nil)
}

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Avatar       string    `json:"avatar,omitempty"`
	Profile      Profile   `json:"profile,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// SetPassword hashes pwd with bcrypt. A cost below bcrypt.MinCost means bcrypt.DefaultCost.
func (u *User) SetPassword(pwd string, cost int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

func (u User) LogPerson() (id, name, email string) {
	return strconv.Itoa(u.ID), u.Name, u.Email
}

func (u User) clone() User {
	u.Profile = u.Profile.clone()
	if u.PasswordHash != nil {
		u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	}
	return u
}

// Identity is the public view of the logged in user.
type Identity struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Role   string `json:"role"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"` // any mismatch is an AuthenticationError
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	c.Role = core.CleanString(c.Role, true /* lower */)
	return validate.Struct(c)
}

type AuthResult struct {
	Success    bool   `json:"success"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

type CheckResult struct {
	Authenticated bool   `json:"authenticated"`
	RedirectTo    string `json:"redirect_to,omitempty"`
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,role"`
	Name            string `json:"name"`
}

// Validate applies the password policy; Service.Register trusts callers to have called it.
func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.Name = core.CleanString(nu.Name)
	return validate.Struct(nu)
}

// defaultName derives a display name from the local part of the email.
func (nu NewUser) defaultName() string {
	if nu.Name != "" {
		return nu.Name
	}
	return strings.SplitN(nu.Email, "@", 2)[0]
}

// UpdateProfile defines what may be changed on an existing User's profile.
// Profile keys are merged one by one.
type UpdateProfile struct {
	Name    *string `json:"name" validate:"omitnil,notblank"`
	Profile Profile `json:"profile" validate:"omitempty,profilekeys"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	if up.Name != nil {
		name := core.CleanString(*up.Name)
		up.Name = &name
	}
	return validate.Struct(up)
}

type SetPassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (sp SetPassword) Validate(validate *validator.Validate) error { return validate.Struct(sp) }
