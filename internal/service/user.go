// Package service implements the directory's business logic over the
// repository layer.
package service

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"dirbridge/internal/db/repository"
	"dirbridge/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPasswordLen = 8

type UserService struct {
	users  *repository.UserRepo
	groups *repository.GroupRepo
}

func NewUserService(users *repository.UserRepo, groups *repository.GroupRepo) *UserService {
	return &UserService{users: users, groups: groups}
}

// Create validates input, hashes the password, and stores the user.
func (s *UserService) Create(ctx context.Context, in domain.CreateUserInput) (*domain.User, error) {
	if strings.TrimSpace(in.Username) == "" {
		return nil, domain.ErrValidation("username is required")
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return nil, domain.ErrValidation("display name is required")
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, domain.ErrValidation("email %q is malformed", in.Email)
	}
	if len(in.Password) < minPasswordLen {
		return nil, domain.ErrValidation("password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		DisplayName:  in.DisplayName,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		Status:       domain.UserStatusEnabled,
	})
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByUsername(ctx, username)
}

func (s *UserService) List(ctx context.Context, page domain.PageRequest) (*domain.ListResult[domain.User], error) {
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return &domain.ListResult[domain.User]{Items: users, Total: total}, nil
}

// All returns every user; the LDAP bridge enumerates entries with it.
func (s *UserService) All(ctx context.Context) ([]*domain.User, error) {
	return s.users.ListAll(ctx)
}

func (s *UserService) Update(ctx context.Context, id string, in domain.UpdateUserInput) (*domain.User, error) {
	if in.Email != nil && !emailPattern.MatchString(*in.Email) {
		return nil, domain.ErrValidation("email %q is malformed", *in.Email)
	}
	return s.users.Update(ctx, id, in)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

func (s *UserService) SetStatus(ctx context.Context, id string, status domain.UserStatus) error {
	return s.users.SetStatus(ctx, id, status)
}

// ChangePassword verifies the old password before setting the new one.
func (s *UserService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)); err != nil {
		return domain.ErrCredentials("old password does not match")
	}
	if len(newPassword) < minPasswordLen {
		return domain.ErrValidation("password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, string(hash))
}

// Groups returns the groups the user is a direct member of.
func (s *UserService) Groups(ctx context.Context, userID string) ([]*domain.Group, error) {
	return s.groups.ListGroupsForUser(ctx, userID)
}

// Authenticate verifies a username/password pair. A disabled user is
// rejected with CredentialsError even when the password matches: the status
// gate is enforced at authentication time. HTTP login and LDAP bind share
// this path.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, domain.ErrCredentials("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrCredentials("invalid credentials")
	}
	if u.Status != domain.UserStatusEnabled {
		return nil, domain.ErrCredentials("invalid credentials")
	}
	return u, nil
}
