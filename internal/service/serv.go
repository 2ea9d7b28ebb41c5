package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/order-billing/internal/domain/models"
	security "github.com/linemk/order-billing/internal/jwt-new"
	"github.com/linemk/order-billing/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	log       *slog.Logger
	userRepo  storage.UserStorage
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:       log,
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Login осуществляет аутентификацию пользователя.
// Если пользователь не найден, он регистрируется с bcrypt-хэшем пароля.
// Если найден, пароль сверяется с сохраненным хэшем.
// В обоих случаях возвращается JWT, по которому дальше определяется владелец заказов.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "service.AuthService.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	registered := false
	if errors.Is(err, storage.ErrUserNotFound) {
		logger.Info("user not found, creating new user")
		user, err = a.register(ctx, email, password)
		registered = err == nil
		if errors.Is(err, storage.ErrUserExists) {
			// параллельный вход с тем же email успел создать пользователя
			logger.Info("user created concurrently, rechecking")
			user, err = a.userRepo.GetUserByEmail(ctx, email)
		}
	}
	if err != nil {
		logger.Error("failed to get user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if !registered {
		if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
			logger.Warn("invalid password")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
	}

	token, err := security.NewToken(user, a.jwtSecret, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, nil
}

func (a *AuthService) register(ctx context.Context, email, password string) (*models.User, error) {
	// bcrypt сам добавляет соль
	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user, err := a.userRepo.CreateUser(ctx, &models.User{Email: email, PassHash: passHash})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
