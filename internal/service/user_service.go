package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/store"
	"go.uber.org/zap"
)

type UserService struct {
	store  store.Store
	logger *zap.Logger
}

func NewUserService(st store.Store, logger *zap.Logger) *UserService {
	return &UserService{
		store:  st,
		logger: logger,
	}
}

// RegisterInput данные регистрации пользователя
type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Role      model.Role
	Bio       string
}

// Register создаёт пользователя. Email уникален без учёта регистра.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("unknown role %q", in.Role)
	}

	repos := s.store.Repos()

	existing, err := repos.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, apperr.Validation("email %s is already registered", email)
	}

	user := &model.User{
		Email:     email,
		Username:  strings.TrimSpace(in.Username),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      in.Role,
		Bio:       strings.TrimSpace(in.Bio),
		CreatedAt: time.Now().UTC(),
	}

	if err := repos.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)

	return user, nil
}

// Get возвращает пользователя или NotFound
func (s *UserService) Get(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.store.Repos().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user %d not found", userID)
	}
	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID. Возвращает nil, если аккаунт не привязан.
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.store.Repos().Users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return user, nil
}

// LinkTelegram привязывает Telegram аккаунт к пользователю.
// Если аккаунт был привязан к другому пользователю, привязка переносится.
func (s *UserService) LinkTelegram(ctx context.Context, userID, telegramID int64) (*model.User, error) {
	if telegramID == 0 {
		return nil, apperr.Validation("telegram id is required")
	}

	var linked *model.User
	err := s.store.InTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		user, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if user == nil {
			return apperr.NotFound("user %d not found", userID)
		}
		if err := repos.Users.SetTelegramID(ctx, userID, telegramID); err != nil {
			return fmt.Errorf("set telegram id: %w", err)
		}
		user.TelegramID = &telegramID
		linked = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Telegram linked",
		zap.Int64("user_id", userID),
		zap.Int64("telegram_id", telegramID),
	)

	return linked, nil
}

// ListMentors возвращает всех менторов
func (s *UserService) ListMentors(ctx context.Context) ([]*model.User, error) {
	mentors, err := s.store.Repos().Users.ListByRole(ctx, model.RoleMentor)
	if err != nil {
		return nil, fmt.Errorf("list mentors: %w", err)
	}
	return mentors, nil
}
