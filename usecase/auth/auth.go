package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskmanager/domain"
	"github.com/fastygo/taskmanager/internal/token"
	appLogger "github.com/fastygo/taskmanager/pkg/logger"
	"github.com/fastygo/taskmanager/pkg/password"
	"github.com/fastygo/taskmanager/repository"
)

// PasswordHasher is satisfied by *password.Hasher.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	DummyVerify(plaintext string) bool
}

// TokenIssuer is satisfied by *token.Issuer.
type TokenIssuer interface {
	Issue(identity domain.Identity, now time.Time) (token.Token, error)
}

// Session is the result of a successful login.
type Session struct {
	Identity  domain.Identity
	Token     string
	ExpiresAt time.Time
}

type UseCase struct {
	users  repository.UserRepository
	hasher PasswordHasher
	issuer TokenIssuer
	now    func() time.Time
	logger *zap.Logger
}

func New(users repository.UserRepository, hasher PasswordHasher, issuer TokenIssuer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		hasher: hasher,
		issuer: issuer,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock overrides the time source used for token issuance.
func (uc *UseCase) WithClock(now func() time.Time) *UseCase {
	if now != nil {
		uc.now = now
	}
	return uc
}

// Register creates an account for email. The plaintext password is only
// handed to the hasher.
func (uc *UseCase) Register(ctx context.Context, email, plaintext string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrInvalidPayload
	}

	hash, err := uc.hasher.Hash(plaintext)
	if err != nil {
		if errors.Is(err, password.ErrEmptyPassword) || errors.Is(err, password.ErrPasswordTooLong) {
			return nil, domain.WrapError(domain.ErrCodeInvalid, "invalid password", err)
		}
		return nil, uc.internal(ctx, "hash password", err)
	}

	user := &domain.User{Email: email, PasswordHash: hash}
	if err := uc.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrIdentityTaken) {
			return nil, domain.ErrIdentityTaken
		}
		return nil, uc.internal(ctx, "create user", err)
	}

	appLogger.FromContext(ctx, uc.logger).Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login checks the credentials and mints a token. Unknown emails and wrong
// passwords both yield domain.ErrInvalidCredentials.
func (uc *UseCase) Login(ctx context.Context, email, plaintext string) (*Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || plaintext == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			uc.hasher.DummyVerify(plaintext)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, uc.internal(ctx, "lookup user", err)
	}

	if !uc.hasher.Verify(plaintext, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	tok, err := uc.issuer.Issue(user.Identity(), uc.now())
	if err != nil {
		return nil, uc.internal(ctx, "issue token", err)
	}

	return &Session{
		Identity:  user.Identity(),
		Token:     tok.Value,
		ExpiresAt: tok.ExpiresAt,
	}, nil
}

// Me loads the account behind an authenticated identity.
func (uc *UseCase) Me(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	if identity.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	user, err := uc.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// The token outlived its account.
			return nil, domain.ErrUnauthorized
		}
		return nil, uc.internal(ctx, "load user", err)
	}
	return user, nil
}

func (uc *UseCase) internal(ctx context.Context, op string, err error) error {
	appLogger.FromContext(ctx, uc.logger).Error("auth operation failed", zap.String("operation", op), zap.Error(err))
	return domain.WrapError(domain.ErrCodeInternal, op, err)
}
