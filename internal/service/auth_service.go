package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/docstack/docstack/internal/model"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
	"github.com/docstack/docstack/internal/pkg/jwt"
	"github.com/docstack/docstack/internal/pkg/password"
	"github.com/docstack/docstack/internal/pkg/timeutil"
)

type AuthService struct {
	users    UserStore
	secret   []byte
	tokenTTL time.Duration
	now      func() int64
}

func NewAuthService(users UserStore, secret []byte, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		secret:   secret,
		tokenTTL: tokenTTL,
		now:      timeutil.NowUnix,
	}
}

type RegisterInput struct {
	Username string   `json:"username" binding:"required"`
	Email    string   `json:"email" binding:"required"`
	FullName string   `json:"full_name"`
	Password string   `json:"password" binding:"required"`
	Roles    []string `json:"roles"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

var validRoles = map[string]bool{
	model.RoleAuthor:   true,
	model.RoleReviewer: true,
	model.RoleApprover: true,
	model.RoleAdmin:    true,
}

// Register creates a user account. With no roles given the account defaults
// to Author; granting Admin requires an acting admin.
func (s *AuthService) Register(ctx context.Context, in *RegisterInput, actor *model.User) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || len(in.Password) < 8 {
		return nil, appErr.ErrValidation
	}
	roles := in.Roles
	if len(roles) == 0 {
		roles = []string{model.RoleAuthor}
	}
	for _, role := range roles {
		if !validRoles[role] {
			return nil, appErr.ErrValidation
		}
		if role == model.RoleAdmin && (actor == nil || !actor.IsAdmin()) {
			return nil, appErr.ErrForbidden
		}
	}
	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &model.User{
		ID:           newID(),
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		FullName:     in.FullName,
		PasswordHash: hash,
		Roles:        roles,
		Active:       1,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a signed token. Unknown user and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in *LoginInput) (string, *model.User, error) {
	user, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return "", nil, appErr.ErrUnauthorized
		}
		return "", nil, err
	}
	if user.Active == 0 {
		return "", nil, appErr.ErrUnauthorized
	}
	if err := password.Compare(user.PasswordHash, in.Password); err != nil {
		return "", nil, appErr.ErrUnauthorized
	}
	token, err := jwt.GenerateToken(user.ID, user.Username, user.Roles, s.secret, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}
