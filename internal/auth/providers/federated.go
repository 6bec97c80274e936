package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/teamflow-app/teamflow/internal/database"
	"github.com/teamflow-app/teamflow/internal/models"
	apperrors "github.com/teamflow-app/teamflow/pkg/errors"
	"github.com/teamflow-app/teamflow/pkg/logger"
	"github.com/teamflow-app/teamflow/pkg/metrics"
)

// FederatedClaims is the identity extracted from a verified ID token.
type FederatedClaims struct {
	Subject string
	Email   string
	Name    string
}

// IDTokenVerifier validates a raw ID token and extracts its identity claims.
// Implementations must check the signature, issuer, audience, and expiry.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*FederatedClaims, error)
}

// OIDCVerifier verifies ID tokens against an OpenID Connect provider using its
// published discovery document and signing keys.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer configuration and builds a verifier
// bound to the given client ID (the expected token audience).
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	if issuer == "" {
		return nil, errors.New("oidc verifier: issuer is required")
	}
	if clientID == "" {
		return nil, errors.New("oidc verifier: client id is required")
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc verifier: discover issuer: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify validates the raw ID token and returns its claims.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*FederatedClaims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("oidc verifier: %w", err)
	}

	var payload struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Subject string `json:"sub"`
	}
	if err := idToken.Claims(&payload); err != nil {
		return nil, fmt.Errorf("oidc verifier: decode claims: %w", err)
	}

	subject := payload.Subject
	if subject == "" {
		subject = idToken.Subject
	}
	if subject == "" {
		return nil, errors.New("oidc verifier: token has no subject")
	}

	return &FederatedClaims{
		Subject: subject,
		Email:   normalizeEmail(payload.Email),
		Name:    strings.TrimSpace(payload.Name),
	}, nil
}

// FederatedProvider resolves verified federated identities to local users.
// Identities are keyed on (provider, subject); the email claim is only used
// for the first-login linking policy.
type FederatedProvider struct {
	db       *gorm.DB
	verifier IDTokenVerifier
	name     string
}

// NewFederatedProvider constructs a federated login provider for the named
// identity provider.
func NewFederatedProvider(db *gorm.DB, verifier IDTokenVerifier, providerName string) (*FederatedProvider, error) {
	if db == nil {
		return nil, errors.New("federated provider: db is required")
	}
	if verifier == nil {
		return nil, errors.New("federated provider: verifier is required")
	}
	providerName = strings.TrimSpace(providerName)
	if providerName == "" {
		return nil, errors.New("federated provider: provider name is required")
	}

	return &FederatedProvider{
		db:       db,
		verifier: verifier,
		name:     providerName,
	}, nil
}

// Name returns the configured provider name.
func (p *FederatedProvider) Name() string {
	return p.name
}

// Authenticate verifies the raw ID token and resolves it to a local user.
// Resolution order: existing (provider, subject) identity, then email linking
// to an existing account (the linkFederatedByEmail policy, always logged),
// then atomic creation of a new user plus identity. The second return value
// reports whether a new account was created.
func (p *FederatedProvider) Authenticate(ctx context.Context, rawToken string) (*models.User, bool, error) {
	claims, err := p.verifier.Verify(ctx, rawToken)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("federated", "failure").Inc()
		return nil, false, apperrors.ErrInvalidFederatedToken.WithInternal(err)
	}

	var (
		user    *models.User
		created bool
	)

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var identity models.OAuthIdentity
		err := tx.Where("provider = ? AND subject = ?", p.name, claims.Subject).
			Take(&identity).Error
		switch {
		case err == nil:
			var existing models.User
			if err := tx.Where("id = ?", identity.UserID).Take(&existing).Error; err != nil {
				return fmt.Errorf("federated provider: load linked user: %w", err)
			}
			user = &existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first login for this subject, fall through
		default:
			return fmt.Errorf("federated provider: load identity: %w", err)
		}

		if claims.Email != "" {
			var existing models.User
			err := tx.Where("email = ?", claims.Email).Take(&existing).Error
			switch {
			case err == nil:
				logger.Warn("linkFederatedByEmail: attaching federated identity to existing account",
					zap.String("provider", p.name),
					zap.String("subject", claims.Subject),
					zap.String("user_id", existing.ID),
				)
				if err := tx.Create(&models.OAuthIdentity{
					Provider: p.name,
					Subject:  claims.Subject,
					Email:    claims.Email,
					UserID:   existing.ID,
				}).Error; err != nil {
					if database.IsUniqueViolation(err) {
						return apperrors.ErrConflict
					}
					return fmt.Errorf("federated provider: link identity: %w", err)
				}
				user = &existing
				return nil
			case errors.Is(err, gorm.ErrRecordNotFound):
				// no account to link, fall through to creation
			default:
				return fmt.Errorf("federated provider: lookup by email: %w", err)
			}
		}

		name := claims.Name
		if name == "" {
			name = claims.Email
		}
		if name == "" {
			name = claims.Subject
		}

		fresh := &models.User{
			Email:    claims.Email,
			Name:     name,
			IsActive: true,
		}
		if err := tx.Create(fresh).Error; err != nil {
			return fmt.Errorf("federated provider: create user: %w", err)
		}
		if err := tx.Create(&models.OAuthIdentity{
			Provider: p.name,
			Subject:  claims.Subject,
			Email:    claims.Email,
			UserID:   fresh.ID,
		}).Error; err != nil {
			// Two concurrent first logins for the same subject can both reach
			// this insert; the loser surfaces as a conflict, not a 500.
			if database.IsUniqueViolation(err) {
				return apperrors.ErrConflict
			}
			return fmt.Errorf("federated provider: create identity: %w", err)
		}

		user = fresh
		created = true
		return nil
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("federated", "failure").Inc()
		return nil, false, err
	}

	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("federated", "failure").Inc()
		return nil, false, apperrors.ErrInvalidCredentials
	}

	metrics.AuthAttempts.WithLabelValues("federated", "success").Inc()

	return user, created, nil
}
