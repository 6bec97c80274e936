package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/teamflow-app/teamflow/internal/database"
	"github.com/teamflow-app/teamflow/internal/models"
	"github.com/teamflow-app/teamflow/pkg/crypto"
	apperrors "github.com/teamflow-app/teamflow/pkg/errors"
	"github.com/teamflow-app/teamflow/pkg/logger"
	"github.com/teamflow-app/teamflow/pkg/metrics"
)

const (
	defaultLockThreshold = 5
	defaultLockDuration  = 15 * time.Minute
)

// LocalConfig tunes account lockout behaviour for password authentication.
type LocalConfig struct {
	LockThreshold int
	LockDuration  time.Duration
	Clock         func() time.Time
}

// RegisterInput carries the fields required to create a local account.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// LocalProvider authenticates users against bcrypt password hashes stored on
// the user record.
type LocalProvider struct {
	db            *gorm.DB
	lockThreshold int
	lockDuration  time.Duration
	now           func() time.Time
}

// NewLocalProvider constructs a password-based authentication provider.
func NewLocalProvider(db *gorm.DB, cfg LocalConfig) (*LocalProvider, error) {
	if db == nil {
		return nil, errors.New("local provider: db is required")
	}

	threshold := cfg.LockThreshold
	if threshold <= 0 {
		threshold = defaultLockThreshold
	}

	duration := cfg.LockDuration
	if duration <= 0 {
		duration = defaultLockDuration
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &LocalProvider{
		db:            db,
		lockThreshold: threshold,
		lockDuration:  duration,
		now:           clock,
	}, nil
}

// Authenticate verifies an email/password pair. Failures are deliberately
// indistinguishable to the caller: unknown email, bad password, and inactive
// account all map to invalid credentials.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password, ipAddress string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := p.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("local provider: load user: %w", err)
	}

	now := p.now()

	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		metrics.AuthAttempts.WithLabelValues("password", "locked").Inc()
		return nil, apperrors.New("ACCOUNT_LOCKED", "Account temporarily locked due to failed login attempts", 401)
	}

	if user.Password == "" || !crypto.VerifyPassword(user.Password, password) {
		if err := p.recordFailure(ctx, &user, now); err != nil {
			logger.Error("failed to record login failure", zap.Error(err), zap.String("user_id", user.ID))
		}
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	updates := map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   strings.TrimSpace(ipAddress),
	}
	if err := p.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("local provider: update login state: %w", err)
	}

	user.FailedAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	user.LastLoginIP = strings.TrimSpace(ipAddress)

	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()

	return &user, nil
}

func (p *LocalProvider) recordFailure(ctx context.Context, user *models.User, now time.Time) error {
	attempts := user.FailedAttempts + 1

	updates := map[string]any{"failed_attempts": attempts}
	if attempts >= p.lockThreshold {
		lockedUntil := now.Add(p.lockDuration)
		updates["locked_until"] = lockedUntil
		logger.Warn("account locked after repeated login failures",
			zap.String("user_id", user.ID),
			zap.Int("attempts", attempts),
			zap.Time("locked_until", lockedUntil),
		)
	}

	return p.db.WithContext(ctx).Model(user).Updates(updates).Error
}

// Register creates a new local account. Duplicate emails produce a conflict.
func (p *LocalProvider) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)

	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("local provider: hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Name:     name,
		Password: hash,
		IsActive: true,
	}

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return fmt.Errorf("local provider: check existing email: %w", err)
		}
		if count > 0 {
			return apperrors.ErrConflict
		}
		if err := tx.Create(user).Error; err != nil {
			// The count check above races with concurrent registrations; the
			// unique index on email is the authoritative arbiter.
			if database.IsUniqueViolation(err) {
				return apperrors.ErrConflict
			}
			return fmt.Errorf("local provider: create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ChangePassword verifies the current password before storing the new hash.
// All active sessions are left to the caller to revoke.
func (p *LocalProvider) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.ErrUnauthorized
	}
	if len(newPassword) < 8 {
		return apperrors.NewBadRequest("password must be at least 8 characters")
	}

	var user models.User
	err := p.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("local provider: load user: %w", err)
	}

	if user.Password != "" && !crypto.VerifyPassword(user.Password, currentPassword) {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("local provider: hash password: %w", err)
	}

	if err := p.db.WithContext(ctx).Model(&user).Update("password", hash).Error; err != nil {
		return fmt.Errorf("local provider: update password: %w", err)
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
