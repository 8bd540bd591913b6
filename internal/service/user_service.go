package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TWRT/task-manager/internal/lifecycle"
	"github.com/TWRT/task-manager/internal/models"
)

type UserStore interface {
	UserLister
	Save(ctx context.Context, user *models.User) error
}

// UserService maintains the user directory the lifecycle engine resolves
// identity references against. Credentials live with the identity provider.
type UserService struct {
	store UserStore
	log   *slog.Logger
	now   func() time.Time
}

func NewUserService(store UserStore, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		store: store,
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) ListUsers(ctx context.Context, actor models.Identity) ([]models.User, error) {
	if err := lifecycle.Authorize(actor, nil, lifecycle.ActionListUsers); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SaveUser validates and stores a directory entry, generating an id when
// none is given.
func (s *UserService) SaveUser(ctx context.Context, user models.User) (*models.User, error) {
	user.Name = strings.TrimSpace(user.Name)
	user.Email = strings.TrimSpace(strings.ToLower(user.Email))
	if user.Name == "" {
		return nil, lifecycle.Errorf(lifecycle.KindValidation, "name is required")
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return nil, lifecycle.Errorf(lifecycle.KindValidation, "invalid email %q", user.Email)
	}
	if user.Role == "" {
		user.Role = models.RoleMember
	}
	if !user.Role.IsValid() {
		return nil, lifecycle.Errorf(lifecycle.KindValidation, "invalid role %q", user.Role)
	}
	if user.Id == "" {
		user.Id = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}

	if err := s.store.Save(ctx, &user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	s.log.InfoContext(ctx, "user saved", "user_id", user.Id, "role", user.Role)
	return &user, nil
}
