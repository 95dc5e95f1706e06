package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"authd/internal/crypto"
	"authd/internal/models"
	"authd/internal/repository"
	"authd/internal/token"

	"go.uber.org/zap"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService orchestrates registration, credential verification and token
// issuance. Credentials arrive already hashed client-side; when the
// server-rehash stage is enabled, the supplied hash goes through a second
// argon2 pass with the stored salt before it is stored or compared.
type AuthService interface {
	Register(ctx context.Context, username, salt, hashedPassword string) (*models.User, string, error)
	Login(ctx context.Context, username, hashedPassword string) (string, error)
	GetSalt(ctx context.Context, username string) (string, error)
}

type authService struct {
	repo   repository.UserRepository
	tokens *token.Manager
	logger *zap.Logger
	rehash bool
}

func NewAuthService(repo repository.UserRepository, tokens *token.Manager, logger *zap.Logger, serverRehash bool) AuthService {
	return &authService{
		repo:   repo,
		tokens: tokens,
		logger: logger,
		rehash: serverRehash,
	}
}

// Register creates a user and issues a token bound to the new id. The
// existence pre-check is advisory only: the repository's uniqueness
// constraint is the real guard, and losing a race to a concurrent
// identical registration surfaces as ErrUserExists too.
func (s *authService) Register(ctx context.Context, username, salt, hashedPassword string) (*models.User, string, error) {
	exists, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		s.logger.Error("Failed to check existing users", zap.Error(err))
		return nil, "", fmt.Errorf("failed to check existing users: %w", err)
	}
	if exists {
		return nil, "", ErrUserExists
	}

	stored, err := s.storedHash(hashedPassword, salt)
	if err != nil {
		s.logger.Error("Failed to hash credential", zap.Error(err))
		return nil, "", err
	}

	user := &models.User{
		Username:     username,
		Salt:         []byte(salt),
		PasswordHash: stored,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, "", ErrUserExists
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	tokenString, err := s.tokens.Issue(user.ID, time.Now())
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("User registered successfully.", zap.String("username", username))
	return user, tokenString, nil
}

// Login verifies the supplied hash against the stored one and issues a
// token. Unknown username and wrong hash produce the identical error so
// account existence cannot be probed.
func (s *authService) Login(ctx context.Context, username, hashedPassword string) (string, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		s.logger.Error("Failed to get user by username", zap.Error(err))
		return "", fmt.Errorf("failed to retrieve user: %w", err)
	}

	supplied, err := s.storedHash(hashedPassword, string(user.Salt))
	if err != nil {
		s.logger.Error("Failed to hash credential", zap.Error(err))
		return "", err
	}

	if subtle.ConstantTimeCompare(user.PasswordHash, supplied) != 1 {
		return "", ErrInvalidCredentials
	}

	tokenString, err := s.tokens.Issue(user.ID, time.Now())
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("User logged in successfully.", zap.String("username", user.Username))
	return tokenString, nil
}

// GetSalt returns the stored salt so the client can run its first hashing
// pass before Login. Unknown usernames get the same error as a failed
// login.
func (s *authService) GetSalt(ctx context.Context, username string) (string, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		s.logger.Error("Failed to get user by username", zap.Error(err))
		return "", fmt.Errorf("failed to retrieve user: %w", err)
	}

	return string(user.Salt), nil
}

// storedHash maps a client-supplied hash to its stored form. Without the
// rehash stage the client hash is stored as-is; with it, the hash is run
// through argon2id again with the account salt. crypto errors are fatal at
// the call site, retrying cannot change the outcome.
func (s *authService) storedHash(hashedPassword, salt string) ([]byte, error) {
	if !s.rehash {
		return []byte(hashedPassword), nil
	}

	rehashed, err := crypto.Hash(hashedPassword, []byte(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to rehash credential: %w", err)
	}
	return []byte(rehashed), nil
}
