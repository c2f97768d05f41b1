package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/internal/domain/repositories"
	"spark.backend/pkg/crypto"
	"spark.backend/pkg/jwt"
	"spark.backend/pkg/logger"
	"spark.backend/pkg/utils"
)

var (
	hashPassword  = crypto.HashPassword
	checkPassword = crypto.CheckPassword
)

// AuthUsecase handles authentication business logic
type AuthUsecase struct {
	uow        repositories.UnitOfWork
	userRepo   repositories.UserRepository
	walletRepo repositories.WalletRepository
	txRepo     repositories.WalletTransactionRepository
	cache      BalanceCache
	jwtService *jwt.JWTService
}

// NewAuthUsecase creates a new auth usecase
func NewAuthUsecase(
	uow repositories.UnitOfWork,
	userRepo repositories.UserRepository,
	walletRepo repositories.WalletRepository,
	txRepo repositories.WalletTransactionRepository,
	cache BalanceCache,
	jwtService *jwt.JWTService,
) *AuthUsecase {
	if cache == nil {
		cache = noopBalanceCache{}
	}
	return &AuthUsecase{
		uow:        uow,
		userRepo:   userRepo,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		cache:      cache,
		jwtService: jwtService,
	}
}

// Register creates a user account. Wallets are created lazily on first credit.
func (u *AuthUsecase) Register(ctx context.Context, input *entities.CreateUserInput) (*entities.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, domainerrors.ErrBadRequest
	}
	if err := crypto.ValidatePasswordStrength(input.Password); err != nil {
		return nil, domainerrors.BadRequest(err.Error())
	}

	_, err := u.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, domainerrors.ErrAlreadyExists
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	passwordHash, err := hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entities.User{
		ID:           utils.GenerateUUIDv7(),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: passwordHash,
		Role:         entities.UserRoleUser,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Info(ctx, "User registered", zap.Stringer("user_id", user.ID))
	return user, nil
}

// Login authenticates a user and returns tokens
func (u *AuthUsecase) Login(ctx context.Context, input *entities.LoginInput) (*entities.AuthResponse, error) {
	user, err := u.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !checkPassword(input.Password, user.PasswordHash) {
		return nil, domainerrors.ErrInvalidCredentials
	}

	tokenPair, err := u.jwtService.GenerateTokenPair(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}

	return &entities.AuthResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
		User:         user,
	}, nil
}

// RefreshToken generates new tokens from a refresh token
func (u *AuthUsecase) RefreshToken(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	claims, err := u.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, domainerrors.ErrUnauthorized
	}

	// deleted accounts cannot refresh
	user, err := u.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.ErrUnauthorized
		}
		return nil, err
	}

	return u.jwtService.GenerateTokenPair(user.ID, user.Email, string(user.Role))
}

// GetUserByID gets a user by ID
func (u *AuthUsecase) GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return u.userRepo.GetByID(ctx, id)
}

// DeleteAccount removes the user's wallets and their transactions and soft-deletes the user in one unit
func (u *AuthUsecase) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	var txCount, walletCount int64
	err := u.uow.Do(ctx, func(ctx context.Context) error {
		if _, err := u.userRepo.GetByIDForUpdate(ctx, userID); err != nil {
			return err
		}
		var err error
		if txCount, err = u.txRepo.DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		if walletCount, err = u.walletRepo.DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		return u.userRepo.SoftDelete(ctx, userID)
	})
	if err != nil {
		return classify(err)
	}

	u.cache.Invalidate(ctx, userID)
	logger.Info(ctx, "Account deleted",
		zap.Stringer("user_id", userID),
		zap.Int64("wallets", walletCount),
		zap.Int64("transactions", txCount),
	)
	return nil
}
