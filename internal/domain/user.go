package domain

import (
	"strings"
	"time"
	"unicode"
)

// Password length limits. The upper bound is bcrypt's input limit.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// User is an account that can authenticate against the API.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"      validate:"required,max=150"`
	Email          string    `json:"email"         validate:"omitempty,email,max=254"`
	FirstName      string    `json:"first_name"    validate:"max=150"`
	LastName       string    `json:"last_name"     validate:"max=150"`
	Password       string    `json:"-"` // plaintext, only set while creating or changing a password
	HashedPassword string    `json:"-"`
	IsStaff        bool      `json:"is_staff"`
	IsSuperuser    bool      `json:"is_superuser"`
	IsActive       bool      `json:"is_active"`
	DateJoined     time.Time `json:"date_joined"`
}

// NewUser creates an active user with the given credentials.
// The caller is responsible for hashing the password before storage.
func NewUser(username, email, password string) (*User, error) {
	user := &User{
		Username:   strings.TrimSpace(username),
		Email:      strings.TrimSpace(email),
		Password:   password,
		IsActive:   true,
		DateJoined: time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// Validate checks the user's fields and, when present, the plaintext password.
func (u *User) Validate() error {
	fe := validateStruct(u)

	if u.Password != "" {
		for _, msg := range PasswordProblems(u.Password, u.Username) {
			fe.Add("password", msg)
		}
	} else if u.HashedPassword == "" {
		fe.Add("password", "This field is required.")
	}

	return fe.Err()
}

// PasswordProblems lists every rule the password breaks.
func PasswordProblems(password, username string) []string {
	var problems []string
	if len(password) < MinPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if len(password) > MaxPasswordLength {
		problems = append(problems, "This password is too long. It must contain at most 72 characters.")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		problems = append(problems, "This password is entirely numeric.")
	}
	if username != "" && strings.EqualFold(password, username) {
		problems = append(problems, "The password is too similar to the username.")
	}
	return problems
}

// APIToken is the long-lived key used by the "Token" authentication scheme.
type APIToken struct {
	Key       string    `json:"token"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created"`
}

// Group is a named set of model permissions.
type Group struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// Permission grants Action on Object, e.g. ("task", "change").
type Permission struct {
	Object string `json:"object" yaml:"object"`
	Action string `json:"action" yaml:"action"`
}

// Codename renders the permission the way it is stored, e.g. "change_task".
func (p Permission) Codename() string {
	return p.Action + "_" + p.Object
}

// Permission actions.
const (
	ActionAdd    = "add"
	ActionChange = "change"
	ActionDelete = "delete"
	ActionView   = "view"
)

// AllActions lists every model action.
var AllActions = []string{ActionAdd, ActionChange, ActionDelete, ActionView}
