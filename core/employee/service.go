package employee

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/video-shoppe/core"
	"golang.org/x/crypto/bcrypt"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.@-]{3,64}$`)

const (
	minPasswordLen = 5
	// bcrypt ignores anything past 72 bytes.
	maxPasswordLen = 72
)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

type Service interface {
	Create(ctx context.Context, caller core.Caller, req CreateEmployeeRequest) (Employee, error)
	Get(ctx context.Context, username string) (Employee, error)
	Delete(ctx context.Context, caller core.Caller, username string) error
	Login(ctx context.Context, username, password string) (Employee, error)
	// EnsureAdmin creates the administrator account when it does not exist yet.
	EnsureAdmin(ctx context.Context, username, password string) error
}

type service struct {
	repo Repository
}

func (s *service) Get(ctx context.Context, username string) (Employee, error) {
	e, err := s.repo.Get(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Employee{}, core.NotFound("EmployeeNotFound", "employee "+username+" not found")
		}
		return Employee{}, err
	}
	return e, nil
}

func (s *service) Create(ctx context.Context, caller core.Caller, req CreateEmployeeRequest) (Employee, error) {
	if !caller.IsAdmin {
		return Employee{}, core.Unauthorized("Forbidden", "only administrators may add employees")
	}
	return s.create(ctx, req)
}

func (s *service) create(ctx context.Context, req CreateEmployeeRequest) (Employee, error) {
	if !usernameIsValid(req.Username) {
		return Employee{}, core.Validation("InvalidUsername", "username must be 3 to 64 letters, digits or . _ @ -")
	}
	if !passwordIsValid(req.PlainTextPassword) {
		return Employee{}, core.Validation("InvalidPassword", "password must be 5 to 72 characters")
	}

	_, err := s.repo.Get(ctx, req.Username)
	if err == nil {
		return Employee{}, core.Conflict("EmployeeExists", "employee "+req.Username+" already exists")
	}
	if !errors.Is(err, core.ErrNotFound) {
		return Employee{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PlainTextPassword), bcrypt.DefaultCost)
	if err != nil {
		return Employee{}, errors.WithStack(err)
	}
	e := &Employee{
		Username:       req.Username,
		HashedPassword: string(hash),
		IsAdmin:        req.IsAdmin,
		Created:        time.Now(),
	}
	if err = s.repo.Create(ctx, e); err != nil {
		return Employee{}, err
	}
	return *e, nil
}

func (s *service) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.repo.Get(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	log.Info().Str("username", username).Msg("creating administrator account")
	_, err = s.create(ctx, CreateEmployeeRequest{Username: username, IsAdmin: true, PlainTextPassword: password})
	return err
}

func usernameIsValid(username string) bool {
	return usernamePattern.MatchString(username)
}

func passwordIsValid(password string) bool {
	return len(password) >= minPasswordLen && len(password) <= maxPasswordLen
}

func (s *service) Delete(ctx context.Context, caller core.Caller, username string) error {
	if !caller.IsAdmin {
		return core.Unauthorized("Forbidden", "only administrators may remove employees")
	}
	if caller.Username == username {
		return core.Validation("CannotDeleteSelf", "administrators cannot remove themselves")
	}
	return s.repo.Delete(ctx, username)
}

func (s *service) Login(ctx context.Context, username, password string) (Employee, error) {
	e, err := s.repo.Get(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Employee{}, core.Unauthorized("InvalidCredentials", "invalid username or password")
		}
		return Employee{}, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(e.HashedPassword), []byte(password))
	if err != nil {
		return Employee{}, core.Unauthorized("InvalidCredentials", "invalid username or password")
	}

	return e, nil
}

type Repository interface {
	Create(ctx context.Context, employee *Employee, tx ...core.UpdateOptions) error
	Get(ctx context.Context, username string, tx ...core.QueryOptions) (Employee, error)
	Delete(ctx context.Context, username string, tx ...core.UpdateOptions) error
}
